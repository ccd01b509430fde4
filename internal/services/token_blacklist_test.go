package services

import (
	"context"
	"testing"
	"time"

	"bms-server/internal/domain"
)

// stubBlacklistRepo is an in-memory repository on the test clock, so expiry
// can be driven deterministically.
type stubBlacklistRepo struct {
	entries map[string]*domain.BlacklistedToken
	now     func() time.Time
}

func (r *stubBlacklistRepo) Add(_ context.Context, entry *domain.BlacklistedToken) error {
	stored := *entry
	r.entries[stored.Fingerprint] = &stored
	return nil
}

func (r *stubBlacklistRepo) Exists(_ context.Context, fingerprint string) (bool, error) {
	entry, ok := r.entries[fingerprint]
	if !ok {
		return false, nil
	}
	return entry.ExpiresAt.After(r.now()), nil
}

func (r *stubBlacklistRepo) RevokeAllForUser(_ context.Context, userID string, expiresAt time.Time, reason string) error {
	fingerprint := domain.AllTokensFingerprint(userID)
	r.entries[fingerprint] = &domain.BlacklistedToken{
		Fingerprint: fingerprint,
		UserID:      userID,
		Reason:      reason,
		ExpiresAt:   expiresAt,
		CreatedAt:   r.now(),
	}
	return nil
}

func (r *stubBlacklistRepo) ActiveUserRevocation(_ context.Context, userID string) (*domain.BlacklistedToken, error) {
	entry, ok := r.entries[domain.AllTokensFingerprint(userID)]
	if !ok || !entry.ExpiresAt.After(r.now()) {
		return nil, nil
	}
	copied := *entry
	return &copied, nil
}

func (r *stubBlacklistRepo) DeleteExpired(_ context.Context) (int, error) {
	removed := 0
	for fingerprint, entry := range r.entries {
		if !entry.ExpiresAt.After(r.now()) {
			delete(r.entries, fingerprint)
			removed++
		}
	}
	return removed, nil
}

func (r *stubBlacklistRepo) Len() int {
	return len(r.entries)
}

func newTestBlacklist(clock *testClock) (*TokenBlacklistService, *TokenCodec, *stubBlacklistRepo) {
	codec := NewTokenCodec(newTestSecurityConfig())
	codec.now = clock.Now

	repo := &stubBlacklistRepo{
		entries: make(map[string]*domain.BlacklistedToken),
		now:     clock.Now,
	}
	service := NewTokenBlacklistService(repo, codec, nil)
	service.now = clock.Now

	return service, codec, repo
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("token-a")
	b := Fingerprint("token-b")

	if a == b {
		t.Error("Distinct tokens produced the same fingerprint")
	}
	if a != Fingerprint("token-a") {
		t.Error("Fingerprint is not deterministic")
	}
	if len(a) != 64 {
		t.Errorf("Expected a 64-char hex fingerprint, got %d chars", len(a))
	}
}

func TestTokenBlacklist_BlacklistToken(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	service, codec, _ := newTestBlacklist(clock)

	token, _, err := codec.Issue(testUser(), domain.RefreshTokenType)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	listed, err := service.IsBlacklisted(ctx, token)
	if err != nil {
		t.Fatalf("IsBlacklisted failed: %v", err)
	}
	if listed {
		t.Fatal("Fresh token reported as blacklisted")
	}

	if err := service.BlacklistToken(ctx, token, domain.RevocationReasonLogout); err != nil {
		t.Fatalf("BlacklistToken failed: %v", err)
	}

	listed, err = service.IsBlacklisted(ctx, token)
	if err != nil {
		t.Fatalf("IsBlacklisted failed: %v", err)
	}
	if !listed {
		t.Error("Blacklisted token reported as not blacklisted")
	}

	// A different token for the same user is unaffected.
	other, _, err := codec.Issue(testUser(), domain.RefreshTokenType)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	listed, err = service.IsBlacklisted(ctx, other)
	if err != nil {
		t.Fatalf("IsBlacklisted failed: %v", err)
	}
	if listed {
		t.Error("Unrelated token reported as blacklisted")
	}
}

func TestTokenBlacklist_MalformedToken(t *testing.T) {
	ctx := context.Background()
	service, _, repo := newTestBlacklist(newTestClock())

	if err := service.BlacklistToken(ctx, "not-a-token", domain.RevocationReasonLogout); err != nil {
		t.Fatalf("Expected malformed blacklist to be a no-op, got %v", err)
	}
	if repo.Len() != 0 {
		t.Errorf("Expected no entries for a malformed token, got %d", repo.Len())
	}

	listed, err := service.IsBlacklisted(ctx, "not-a-token")
	if err != nil {
		t.Fatalf("IsBlacklisted failed: %v", err)
	}
	if listed {
		t.Error("Malformed token reported as blacklisted")
	}
}

func TestTokenBlacklist_BlacklistUser(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	service, codec, _ := newTestBlacklist(clock)

	oldToken, _, err := codec.Issue(testUser(), domain.AccessTokenType)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	clock.Advance(2 * time.Second)

	if err := service.BlacklistUser(ctx, "user-1", domain.RevocationReasonSecurity, 7*24*time.Hour); err != nil {
		t.Fatalf("BlacklistUser failed: %v", err)
	}

	listed, err := service.IsBlacklisted(ctx, oldToken)
	if err != nil {
		t.Fatalf("IsBlacklisted failed: %v", err)
	}
	if !listed {
		t.Error("Token issued before the all-tokens revocation should be blacklisted")
	}

	// Another user's tokens are unaffected.
	other := testUser()
	other.ID = "user-2"
	otherToken, _, err := codec.Issue(other, domain.AccessTokenType)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	listed, err = service.IsBlacklisted(ctx, otherToken)
	if err != nil {
		t.Fatalf("IsBlacklisted failed: %v", err)
	}
	if listed {
		t.Error("Another user's token reported as blacklisted")
	}
}

func TestTokenBlacklist_NewerLoginSurvivesUserRevocation(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	service, codec, _ := newTestBlacklist(clock)

	if err := service.BlacklistUser(ctx, "user-1", domain.RevocationReasonLogout, 7*24*time.Hour); err != nil {
		t.Fatalf("BlacklistUser failed: %v", err)
	}

	clock.Advance(2 * time.Second)

	newToken, _, err := codec.Issue(testUser(), domain.AccessTokenType)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	listed, err := service.IsBlacklisted(ctx, newToken)
	if err != nil {
		t.Fatalf("IsBlacklisted failed: %v", err)
	}
	if listed {
		t.Error("Token issued after the all-tokens revocation should not be blacklisted")
	}
}

func TestTokenBlacklist_CleanupExpired(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	service, codec, repo := newTestBlacklist(clock)

	shortLived, _, err := codec.IssueWithTTL(testUser(), domain.AccessTokenType, time.Minute)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	longLived, _, err := codec.Issue(testUser(), domain.RefreshTokenType)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if err := service.BlacklistToken(ctx, shortLived, domain.RevocationReasonLogout); err != nil {
		t.Fatalf("BlacklistToken failed: %v", err)
	}
	if err := service.BlacklistToken(ctx, longLived, domain.RevocationReasonLogout); err != nil {
		t.Fatalf("BlacklistToken failed: %v", err)
	}

	clock.Advance(time.Hour)

	removed, err := service.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("CleanupExpired failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 swept entry, got %d", removed)
	}
	if repo.Len() != 1 {
		t.Errorf("Expected 1 remaining entry, got %d", repo.Len())
	}

	listed, err := service.IsBlacklisted(ctx, longLived)
	if err != nil {
		t.Fatalf("IsBlacklisted failed: %v", err)
	}
	if !listed {
		t.Error("Unexpired entry should survive the sweep")
	}
}

func TestTokenBlacklist_EntryExpiresWithToken(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	service, codec, _ := newTestBlacklist(clock)

	token, _, err := codec.IssueWithTTL(testUser(), domain.AccessTokenType, time.Minute)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if err := service.BlacklistToken(ctx, token, domain.RevocationReasonLogout); err != nil {
		t.Fatalf("BlacklistToken failed: %v", err)
	}

	clock.Advance(2 * time.Minute)

	// The entry lapsed with the token. Verify rejects it on expiry anyway.
	listed, err := service.IsBlacklisted(ctx, token)
	if err != nil {
		t.Fatalf("IsBlacklisted failed: %v", err)
	}
	if listed {
		t.Error("Expired entry should no longer report as blacklisted")
	}
}
