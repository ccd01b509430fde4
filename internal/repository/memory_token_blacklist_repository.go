// Package repository provides the storage implementations behind the auth
// core's domain interfaces.
package repository

import (
	"context"
	"sync"
	"time"

	"bms-server/internal/domain"
)

// MemoryTokenBlacklistRepository is a process-wide in-memory revocation
// registry. One instance is constructed at startup and shared by reference;
// the mutex makes adds visible to subsequent reads across request handlers.
type MemoryTokenBlacklistRepository struct {
	mu      sync.RWMutex
	entries map[string]*domain.BlacklistedToken
	now     func() time.Time
}

// NewMemoryTokenBlacklistRepository creates an empty registry.
func NewMemoryTokenBlacklistRepository() *MemoryTokenBlacklistRepository {
	return &MemoryTokenBlacklistRepository{
		entries: make(map[string]*domain.BlacklistedToken),
		now:     time.Now,
	}
}

// Add inserts a revocation entry.
func (r *MemoryTokenBlacklistRepository) Add(_ context.Context, entry *domain.BlacklistedToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *entry
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = r.now()
	}
	r.entries[stored.Fingerprint] = &stored
	return nil
}

// Exists reports whether a fingerprint has an unexpired entry.
func (r *MemoryTokenBlacklistRepository) Exists(_ context.Context, fingerprint string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[fingerprint]
	if !ok {
		return false, nil
	}
	return entry.ExpiresAt.After(r.now()), nil
}

// RevokeAllForUser sets the all-tokens marker for a user.
func (r *MemoryTokenBlacklistRepository) RevokeAllForUser(_ context.Context, userID string, expiresAt time.Time, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

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

// ActiveUserRevocation returns the unexpired all-tokens marker, if any.
func (r *MemoryTokenBlacklistRepository) ActiveUserRevocation(_ context.Context, userID string) (*domain.BlacklistedToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[domain.AllTokensFingerprint(userID)]
	if !ok || !entry.ExpiresAt.After(r.now()) {
		return nil, nil
	}
	copied := *entry
	return &copied, nil
}

// DeleteExpired removes entries whose expiry has passed.
func (r *MemoryTokenBlacklistRepository) DeleteExpired(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for fingerprint, entry := range r.entries {
		if !entry.ExpiresAt.After(now) {
			delete(r.entries, fingerprint)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of stored entries, expired ones included.
func (r *MemoryTokenBlacklistRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
