package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"bms-server/internal/domain"
)

// TokenBlacklistService is the revocation registry for issued tokens. It is
// constructed once at process start and injected into the auth service and
// middleware; there is no package-level singleton.
type TokenBlacklistService struct {
	repo   domain.TokenBlacklistRepository
	codec  *TokenCodec
	logger *slog.Logger
	now    func() time.Time
}

// NewTokenBlacklistService creates a new blacklist service.
func NewTokenBlacklistService(
	repo domain.TokenBlacklistRepository,
	codec *TokenCodec,
	logger *slog.Logger,
) *TokenBlacklistService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenBlacklistService{
		repo:   repo,
		codec:  codec,
		logger: logger,
		now:    time.Now,
	}
}

// Fingerprint derives the stable revocation key for a token: a SHA-256 over
// the full compact form (payload and signature included), so two tokens for
// the same user never collide and the raw credential is never stored.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// BlacklistToken revokes a single token. The entry expires when the token
// itself would, so the registry never outgrows the set of live tokens.
func (s *TokenBlacklistService) BlacklistToken(ctx context.Context, token, reason string) error {
	claims, err := s.codec.DecodeUnverified(token)
	if err != nil {
		// Nothing to revoke: a token we cannot parse can never verify.
		return nil
	}

	expiresAt := s.now().Add(time.Hour)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	entry := &domain.BlacklistedToken{
		Fingerprint: Fingerprint(token),
		UserID:      claims.UserID(),
		Reason:      reason,
		ExpiresAt:   expiresAt,
		CreatedAt:   s.now(),
	}
	if err := s.repo.Add(ctx, entry); err != nil {
		return domain.NewInternalError("BLACKLIST_ADD_FAILED", "Failed to blacklist token", err)
	}
	return nil
}

// BlacklistUser sets the all-tokens marker, revoking every token for the
// user that was issued up to now. A later login issues tokens with a newer
// issued-at and is unaffected.
func (s *TokenBlacklistService) BlacklistUser(ctx context.Context, userID, reason string, maxTokenTTL time.Duration) error {
	expiresAt := s.now().Add(maxTokenTTL)
	if err := s.repo.RevokeAllForUser(ctx, userID, expiresAt, reason); err != nil {
		return domain.NewInternalError("BLACKLIST_USER_FAILED", "Failed to revoke user tokens", err)
	}
	return nil
}

// IsBlacklisted reports whether a token has been revoked, either
// individually or through its subject's all-tokens marker. Malformed tokens
// return false: the blacklist tracks revocation, format validation belongs
// to Verify, which independently rejects them.
func (s *TokenBlacklistService) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	listed, err := s.repo.Exists(ctx, Fingerprint(token))
	if err != nil {
		return false, domain.NewInternalError("BLACKLIST_CHECK_FAILED", "Failed to check token blacklist", err)
	}
	if listed {
		return true, nil
	}

	claims, err := s.codec.DecodeUnverified(token)
	if err != nil {
		return false, nil
	}

	marker, err := s.repo.ActiveUserRevocation(ctx, claims.UserID())
	if err != nil {
		return false, domain.NewInternalError("BLACKLIST_CHECK_FAILED", "Failed to check user revocation", err)
	}
	if marker == nil {
		return false, nil
	}

	// Tokens issued after the marker belong to a newer login session.
	if claims.IssuedAt != nil && claims.IssuedAt.Time.After(marker.CreatedAt) {
		return false, nil
	}
	return true, nil
}

// CleanupExpired removes entries whose backing tokens can no longer verify.
// Expired entries are harmless, this only bounds memory.
func (s *TokenBlacklistService) CleanupExpired(ctx context.Context) (int, error) {
	removed, err := s.repo.DeleteExpired(ctx)
	if err != nil {
		return 0, domain.NewInternalError("BLACKLIST_CLEANUP_FAILED", "Failed to sweep expired entries", err)
	}
	return removed, nil
}

// StartSweeper runs periodic cleanup until ctx is canceled.
func (s *TokenBlacklistService) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := s.CleanupExpired(ctx)
				if err != nil {
					s.logger.Warn("blacklist sweep failed", "error", err)
					continue
				}
				if removed > 0 {
					s.logger.Debug("blacklist sweep completed", "removed", removed)
				}
			}
		}
	}()
}
