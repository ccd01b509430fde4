package services

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"bms-server/internal/domain"
)

// CacheBackend is the storage abstraction behind the permission cache.
// Implementations must be safe for concurrent use; per-key last-write-wins
// is sufficient.
type CacheBackend interface {
	// Get retrieves a value, returning a NotFound domain error on miss or
	// expiry.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with a TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Len reports the number of live entries, -1 when unknown.
	Len(ctx context.Context) int
}

// MemoryCacheBackend is a process-local cache with lazy expiry.
type MemoryCacheBackend struct {
	mu    sync.RWMutex
	items map[string]memoryCacheItem
	now   func() time.Time
}

type memoryCacheItem struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryCacheBackend creates a new in-memory cache backend.
func NewMemoryCacheBackend() *MemoryCacheBackend {
	return &MemoryCacheBackend{
		items: make(map[string]memoryCacheItem),
		now:   time.Now,
	}
}

// Get retrieves a value from memory.
func (m *MemoryCacheBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	item, exists := m.items[key]
	m.mu.RUnlock()

	if !exists {
		return nil, domain.NewNotFoundError("CACHE_MISS", "Cache miss")
	}
	if m.now().After(item.expiresAt) {
		m.mu.Lock()
		delete(m.items, key)
		m.mu.Unlock()
		return nil, domain.NewNotFoundError("CACHE_EXPIRED", "Cache entry expired")
	}
	return item.value, nil
}

// Set stores a value in memory with a TTL.
func (m *MemoryCacheBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	m.items[key] = memoryCacheItem{value: value, expiresAt: m.now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

// Delete removes a key from memory.
func (m *MemoryCacheBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

// Len reports the number of entries, counting not-yet-swept expired ones.
func (m *MemoryCacheBackend) Len(_ context.Context) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// RedisCacheBackend stores cache entries in Redis so multiple processes
// share one permission cache.
type RedisCacheBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisCacheBackend creates a Redis-backed cache.
func NewRedisCacheBackend(addr, password string, db int, prefix string) *RedisCacheBackend {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCacheBackend{client: client, prefix: prefix}
}

// Get retrieves a value from Redis.
func (r *RedisCacheBackend) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, domain.NewNotFoundError("CACHE_MISS", "Cache miss")
	}
	if err != nil {
		return nil, domain.NewInternalError("CACHE_GET_FAILED", "Failed to read cache entry", err)
	}
	return value, nil
}

// Set stores a value in Redis with a TTL.
func (r *RedisCacheBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.prefix+key, value, ttl).Err(); err != nil {
		return domain.NewInternalError("CACHE_SET_FAILED", "Failed to write cache entry", err)
	}
	return nil
}

// Delete removes a key from Redis.
func (r *RedisCacheBackend) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return domain.NewInternalError("CACHE_DELETE_FAILED", "Failed to delete cache entry", err)
	}
	return nil
}

// Len is unknown for Redis without a prefix scan.
func (r *RedisCacheBackend) Len(_ context.Context) int {
	return -1
}

// Close releases the Redis connection.
func (r *RedisCacheBackend) Close() error {
	return r.client.Close()
}
