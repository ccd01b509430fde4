package domain

import (
	"context"
	"strings"
)

// Permission codes follow the category:action convention, e.g.
// "customer:view" or "appointment:edit". The wildcard code "customer:*"
// grants every action within the category.

// PermissionWildcardSuffix marks a code granting a whole category.
const PermissionWildcardSuffix = ":*"

// PermissionSet is an unordered set of permission codes.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from code slices, skipping blanks.
func NewPermissionSet(codes ...[]string) PermissionSet {
	set := make(PermissionSet)
	for _, group := range codes {
		for _, code := range group {
			code = strings.TrimSpace(code)
			if code == "" {
				continue
			}
			set[code] = struct{}{}
		}
	}
	return set
}

// Contains reports whether the set grants the given code, expanding
// category wildcards.
func (s PermissionSet) Contains(code string) bool {
	if _, ok := s[code]; ok {
		return true
	}
	if idx := strings.Index(code, ":"); idx > 0 {
		if _, ok := s[code[:idx]+PermissionWildcardSuffix]; ok {
			return true
		}
	}
	return false
}

// Codes returns the set as a slice. Order is unspecified.
func (s PermissionSet) Codes() []string {
	codes := make([]string, 0, len(s))
	for code := range s {
		codes = append(codes, code)
	}
	return codes
}

// RolePermissionRepository resolves the administrative role → permission
// catalog.
type RolePermissionRepository interface {
	// GetRolePermissions returns the permission codes granted to a role.
	GetRolePermissions(ctx context.Context, role UserRole) ([]string, error)
}

// UserPermissionRepository resolves per-user permission overrides granted on
// top of the role catalog.
type UserPermissionRepository interface {
	// GetUserPermissionOverrides returns the extra codes granted to a user.
	GetUserPermissionOverrides(ctx context.Context, userID string) ([]string, error)
}
