package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"bms-server/internal/domain"
)

// PermissionService resolves a user's effective permission set: the codes
// derived from their role unioned with per-user overrides. Resolved sets are
// cached with a TTL; mutations of roles or grants must call Invalidate so a
// revoked permission is never served from a stale entry.
type PermissionService interface {
	// GetUserPermissions returns the effective permission set for a user.
	GetUserPermissions(ctx context.Context, userID string) (domain.PermissionSet, error)

	// HasPermission reports whether the user holds the code. Admins always
	// pass; resolution errors deny.
	HasPermission(ctx context.Context, userID, code string) bool

	// HasAnyPermission reports whether the user holds at least one code.
	HasAnyPermission(ctx context.Context, userID string, codes ...string) bool

	// HasAllPermissions reports whether the user holds every code.
	HasAllPermissions(ctx context.Context, userID string, codes ...string) bool

	// Invalidate removes the cached set for a user. It must be called on
	// every role or permission mutation.
	Invalidate(ctx context.Context, userID string) bool
}

const permissionCachePrefix = "perm:"

type permissionCacheEntry struct {
	Permissions []string  `json:"permissions"`
	CachedAt    time.Time `json:"cached_at"`
}

type permissionService struct {
	users     domain.UserRepository
	roles     domain.RolePermissionRepository
	overrides domain.UserPermissionRepository
	cache     CacheBackend
	ttl       time.Duration
	logger    *slog.Logger
}

// NewPermissionService creates a permission resolver backed by the given
// catalog repositories and cache.
func NewPermissionService(
	users domain.UserRepository,
	roles domain.RolePermissionRepository,
	overrides domain.UserPermissionRepository,
	cache CacheBackend,
	ttl time.Duration,
	logger *slog.Logger,
) PermissionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &permissionService{
		users:     users,
		roles:     roles,
		overrides: overrides,
		cache:     cache,
		ttl:       ttl,
		logger:    logger,
	}
}

// GetUserPermissions returns the cached set when fresh, otherwise resolves
// role and override codes, unions them and caches the result. Concurrent
// misses recompute the same deterministic set; last write wins.
func (s *permissionService) GetUserPermissions(ctx context.Context, userID string) (domain.PermissionSet, error) {
	if cached, err := s.cache.Get(ctx, permissionCachePrefix+userID); err == nil {
		var entry permissionCacheEntry
		if err := json.Unmarshal(cached, &entry); err == nil {
			return domain.NewPermissionSet(entry.Permissions), nil
		}
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	roleCodes, err := s.roles.GetRolePermissions(ctx, user.Role)
	if err != nil {
		return nil, domain.NewInternalError("ROLE_PERMISSIONS_FAILED", "Failed to load role permissions", err)
	}

	overrideCodes, err := s.overrides.GetUserPermissionOverrides(ctx, userID)
	if err != nil {
		return nil, domain.NewInternalError("USER_PERMISSIONS_FAILED", "Failed to load user permission overrides", err)
	}

	set := domain.NewPermissionSet(roleCodes, overrideCodes)

	payload, err := json.Marshal(permissionCacheEntry{
		Permissions: set.Codes(),
		CachedAt:    time.Now(),
	})
	if err == nil {
		if err := s.cache.Set(ctx, permissionCachePrefix+userID, payload, s.ttl); err != nil {
			s.logger.Warn("permission cache write failed", "user_id", userID, "error", err)
		}
	}

	return set, nil
}

// HasPermission checks a single code. Any resolution error denies; this
// method never propagates an error a caller could mistake for a grant.
func (s *permissionService) HasPermission(ctx context.Context, userID, code string) bool {
	if s.isAdmin(ctx, userID) {
		return true
	}

	set, err := s.GetUserPermissions(ctx, userID)
	if err != nil {
		s.logger.Warn("permission resolution failed, denying", "user_id", userID, "code", code, "error", err)
		return false
	}
	return set.Contains(code)
}

// HasAnyPermission checks for at least one of the codes.
func (s *permissionService) HasAnyPermission(ctx context.Context, userID string, codes ...string) bool {
	if s.isAdmin(ctx, userID) {
		return true
	}

	set, err := s.GetUserPermissions(ctx, userID)
	if err != nil {
		s.logger.Warn("permission resolution failed, denying", "user_id", userID, "error", err)
		return false
	}
	for _, code := range codes {
		if set.Contains(code) {
			return true
		}
	}
	return false
}

// HasAllPermissions checks for every code.
func (s *permissionService) HasAllPermissions(ctx context.Context, userID string, codes ...string) bool {
	if s.isAdmin(ctx, userID) {
		return true
	}

	set, err := s.GetUserPermissions(ctx, userID)
	if err != nil {
		s.logger.Warn("permission resolution failed, denying", "user_id", userID, "error", err)
		return false
	}
	for _, code := range codes {
		if !set.Contains(code) {
			return false
		}
	}
	return true
}

// Invalidate removes the cached entry for a user. Synchronous: once it
// returns, a subsequent read resolves from the catalog.
func (s *permissionService) Invalidate(ctx context.Context, userID string) bool {
	if err := s.cache.Delete(ctx, permissionCachePrefix+userID); err != nil {
		s.logger.Warn("permission cache invalidation failed", "user_id", userID, "error", err)
		return false
	}
	return true
}

func (s *permissionService) isAdmin(ctx context.Context, userID string) bool {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return false
	}
	return user.IsAdmin()
}
