package repository

import (
	"context"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"

	"bms-server/internal/domain"
)

const blacklistTimeLayout = "2006-01-02 15:04:05.000Z"

// pocketbaseTokenBlacklistRepository persists revocation entries in the
// blacklisted_tokens collection so revocations survive process restarts.
type pocketbaseTokenBlacklistRepository struct {
	app core.App
}

// NewPocketBaseTokenBlacklistRepository creates a persistent blacklist
// repository.
func NewPocketBaseTokenBlacklistRepository(app core.App) domain.TokenBlacklistRepository {
	return &pocketbaseTokenBlacklistRepository{app: app}
}

// Add inserts a revocation entry, replacing any existing entry with the
// same fingerprint (repeated logout is idempotent).
func (r *pocketbaseTokenBlacklistRepository) Add(_ context.Context, entry *domain.BlacklistedToken) error {
	record, err := r.app.FindFirstRecordByFilter(
		"blacklisted_tokens",
		"fingerprint = {:fingerprint}",
		dbx.Params{"fingerprint": entry.Fingerprint},
	)
	if err != nil && !isNoRows(err) {
		return domain.NewInternalError("BLACKLIST_LOOKUP_FAILED", "Failed to look up blacklist entry", err)
	}

	if record == nil {
		collection, err := r.app.FindCollectionByNameOrId("blacklisted_tokens")
		if err != nil {
			return domain.NewInternalError("COLLECTION_NOT_FOUND", "Blacklisted tokens collection not found", err)
		}
		record = core.NewRecord(collection)
	}
	revokedAt := entry.CreatedAt
	if revokedAt.IsZero() {
		revokedAt = time.Now()
	}

	record.Set("fingerprint", entry.Fingerprint)
	record.Set("user_id", entry.UserID)
	record.Set("reason", entry.Reason)
	record.Set("expires_at", entry.ExpiresAt)
	record.Set("revoked_at", revokedAt)

	if err := r.app.Save(record); err != nil {
		return domain.NewInternalError("BLACKLIST_SAVE_FAILED", "Failed to save blacklisted token", err)
	}
	return nil
}

// Exists reports whether a fingerprint has an unexpired entry.
func (r *pocketbaseTokenBlacklistRepository) Exists(_ context.Context, fingerprint string) (bool, error) {
	_, err := r.app.FindFirstRecordByFilter(
		"blacklisted_tokens",
		"fingerprint = {:fingerprint} AND expires_at > {:now}",
		dbx.Params{
			"fingerprint": fingerprint,
			"now":         time.Now().Format(blacklistTimeLayout),
		},
	)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, domain.NewInternalError("BLACKLIST_CHECK_FAILED", "Failed to check token blacklist", err)
	}
	return true, nil
}

// RevokeAllForUser sets the all-tokens marker for a user.
func (r *pocketbaseTokenBlacklistRepository) RevokeAllForUser(ctx context.Context, userID string, expiresAt time.Time, reason string) error {
	return r.Add(ctx, &domain.BlacklistedToken{
		Fingerprint: domain.AllTokensFingerprint(userID),
		UserID:      userID,
		Reason:      reason,
		ExpiresAt:   expiresAt,
		CreatedAt:   time.Now(),
	})
}

// ActiveUserRevocation returns the newest unexpired all-tokens marker.
func (r *pocketbaseTokenBlacklistRepository) ActiveUserRevocation(_ context.Context, userID string) (*domain.BlacklistedToken, error) {
	record, err := r.app.FindFirstRecordByFilter(
		"blacklisted_tokens",
		"fingerprint = {:fingerprint} AND expires_at > {:now}",
		dbx.Params{
			"fingerprint": domain.AllTokensFingerprint(userID),
			"now":         time.Now().Format(blacklistTimeLayout),
		},
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, domain.NewInternalError("BLACKLIST_CHECK_FAILED", "Failed to check user revocation", err)
	}

	return &domain.BlacklistedToken{
		Fingerprint: record.GetString("fingerprint"),
		UserID:      record.GetString("user_id"),
		Reason:      record.GetString("reason"),
		ExpiresAt:   record.GetDateTime("expires_at").Time(),
		CreatedAt:   record.GetDateTime("revoked_at").Time(),
	}, nil
}

// DeleteExpired removes entries whose expiry has passed.
func (r *pocketbaseTokenBlacklistRepository) DeleteExpired(_ context.Context) (int, error) {
	records, err := r.app.FindRecordsByFilter(
		"blacklisted_tokens",
		"expires_at <= {:now}",
		"",
		0,
		0,
		dbx.Params{"now": time.Now().Format(blacklistTimeLayout)},
	)
	if err != nil {
		if isNoRows(err) {
			return 0, nil
		}
		return 0, domain.NewInternalError("CLEANUP_QUERY_FAILED", "Failed to query expired tokens", err)
	}

	removed := 0
	for _, record := range records {
		if err := r.app.Delete(record); err != nil {
			continue
		}
		removed++
	}
	return removed, nil
}
