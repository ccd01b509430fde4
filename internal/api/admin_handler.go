package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bms-server/internal/api/middleware"
	"bms-server/internal/domain"
	"bms-server/internal/services"
)

// AdminHandler exposes the administrative auth operations: forced
// de-authorization and permission cache invalidation.
type AdminHandler struct {
	authService services.AuthService
	permissions services.PermissionService
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(authService services.AuthService, permissions services.PermissionService) *AdminHandler {
	return &AdminHandler{
		authService: authService,
		permissions: permissions,
	}
}

// RegisterRoutes registers admin routes. All routes require the admin role.
func (h *AdminHandler) RegisterRoutes(router *gin.RouterGroup, authMiddleware *middleware.AuthMiddleware) {
	admin := router.Group("/admin", authMiddleware.Authenticate(), authMiddleware.RequireAdmin())
	{
		admin.POST("/users/:userId/revoke-tokens", h.RevokeUserTokens)
		admin.POST("/users/:userId/invalidate-permissions", h.InvalidatePermissions)
	}
}

// RevokeUserTokens revokes every outstanding token for a user. Used when an
// account is compromised or force-deauthorized.
func (h *AdminHandler) RevokeUserTokens(c *gin.Context) {
	userID := c.Param("userId")
	if userID == "" {
		ErrorResponse(c, domain.NewValidationError("INVALID_USER_ID", "User ID is required", nil))
		return
	}

	if err := h.authService.Logout(c.Request.Context(), userID, "", "", true); err != nil {
		ErrorResponse(c, err)
		return
	}

	MessageResponse(c, "All tokens revoked for user")
}

// InvalidatePermissions drops the cached permission set for a user. Every
// role or permission mutation must be followed by this call.
func (h *AdminHandler) InvalidatePermissions(c *gin.Context) {
	userID := c.Param("userId")
	if userID == "" {
		ErrorResponse(c, domain.NewValidationError("INVALID_USER_ID", "User ID is required", nil))
		return
	}

	invalidated := h.permissions.Invalidate(c.Request.Context(), userID)
	SuccessResponse(c, http.StatusOK, gin.H{"invalidated": invalidated})
}
