package domain

import (
	"context"
	"time"
)

// TokenType distinguishes access tokens from refresh tokens. A refresh token
// can never authenticate an API call and vice versa.
type TokenType string

const (
	// AccessTokenType is the short-lived credential presented on API calls.
	AccessTokenType TokenType = "access"
	// RefreshTokenType is the long-lived credential exchanged for new pairs.
	RefreshTokenType TokenType = "refresh"
)

// Revocation reasons recorded on blacklist entries.
const (
	RevocationReasonLogout     = "logout"
	RevocationReasonSecurity   = "security-revocation"
	RevocationReasonSuperseded = "rotation-superseded"
)

// AllTokensFingerprint returns the marker fingerprint that revokes every
// outstanding token for a user without enumerating them.
func AllTokensFingerprint(userID string) string {
	return "__ALL_TOKENS__:" + userID
}

// BlacklistedToken represents a revoked token, or a revoked user when the
// fingerprint is the all-tokens marker. Entries never outlive the token they
// block: ExpiresAt mirrors the original token expiry.
type BlacklistedToken struct {
	Fingerprint string    `json:"fingerprint"`
	UserID      string    `json:"user_id"`
	Reason      string    `json:"reason"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// TokenBlacklistRepository defines the storage contract for the revocation
// registry. Implementations must tolerate concurrent reads and writes.
type TokenBlacklistRepository interface {
	// Add inserts a revocation entry keyed by fingerprint.
	Add(ctx context.Context, entry *BlacklistedToken) error

	// Exists reports whether a fingerprint has an unexpired entry.
	Exists(ctx context.Context, fingerprint string) (bool, error)

	// RevokeAllForUser sets the all-tokens marker for a user.
	RevokeAllForUser(ctx context.Context, userID string, expiresAt time.Time, reason string) error

	// ActiveUserRevocation returns the unexpired all-tokens marker for a
	// user, or nil when none exists.
	ActiveUserRevocation(ctx context.Context, userID string) (*BlacklistedToken, error)

	// DeleteExpired removes entries whose ExpiresAt has passed.
	DeleteExpired(ctx context.Context) (int, error)
}
