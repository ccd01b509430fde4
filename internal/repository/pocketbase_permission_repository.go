package repository

import (
	"context"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"

	"bms-server/internal/domain"
)

// pocketbasePermissionRepository resolves the role → permission catalog and
// per-user overrides from the role_permissions and user_permissions
// collections. Each record holds one permission code.
type pocketbasePermissionRepository struct {
	app core.App
}

// NewPocketBasePermissionRepository creates a catalog repository that
// serves both the role and user-override interfaces.
func NewPocketBasePermissionRepository(app core.App) interface {
	domain.RolePermissionRepository
	domain.UserPermissionRepository
} {
	return &pocketbasePermissionRepository{app: app}
}

// GetRolePermissions returns the permission codes granted to a role.
func (r *pocketbasePermissionRepository) GetRolePermissions(_ context.Context, role domain.UserRole) ([]string, error) {
	records, err := r.app.FindRecordsByFilter(
		"role_permissions",
		"role = {:role}",
		"",
		0,
		0,
		dbx.Params{"role": string(role)},
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, domain.NewInternalError("ROLE_CATALOG_QUERY_FAILED", "Failed to query role permissions", err)
	}

	codes := make([]string, 0, len(records))
	for _, record := range records {
		if code := record.GetString("permission"); code != "" {
			codes = append(codes, code)
		}
	}
	return codes, nil
}

// GetUserPermissionOverrides returns the extra codes granted to a user.
func (r *pocketbasePermissionRepository) GetUserPermissionOverrides(_ context.Context, userID string) ([]string, error) {
	records, err := r.app.FindRecordsByFilter(
		"user_permissions",
		"user_id = {:userID}",
		"",
		0,
		0,
		dbx.Params{"userID": userID},
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, domain.NewInternalError("USER_CATALOG_QUERY_FAILED", "Failed to query user permissions", err)
	}

	codes := make([]string, 0, len(records))
	for _, record := range records {
		if code := record.GetString("permission"); code != "" {
			codes = append(codes, code)
		}
	}
	return codes, nil
}
