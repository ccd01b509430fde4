package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bms-server/internal/api/middleware"
	"bms-server/internal/domain"
	"bms-server/internal/services"
)

// PermissionHandler exposes permission checks to API clients that gate
// actions on the caller's effective permissions.
type PermissionHandler struct {
	permissions services.PermissionService
}

// NewPermissionHandler creates a new permission handler.
func NewPermissionHandler(permissions services.PermissionService) *PermissionHandler {
	return &PermissionHandler{permissions: permissions}
}

// RegisterRoutes registers permission routes. All routes require
// authentication.
func (h *PermissionHandler) RegisterRoutes(router *gin.RouterGroup, authMiddleware *middleware.AuthMiddleware) {
	permissions := router.Group("/permissions", authMiddleware.Authenticate())
	{
		permissions.POST("/check", h.Check)
	}
}

// Check reports whether the authenticated user holds the permission for a
// resource and action. Denials are reported with allowed=false, not an
// error status.
func (h *PermissionHandler) Check(c *gin.Context) {
	user, exists := middleware.GetUserFromContext(c)
	if !exists {
		ErrorResponse(c, domain.NewAuthenticationError("AUTHENTICATION_REQUIRED", "Authentication required"))
		return
	}

	var req struct {
		Resource string `json:"resource" binding:"required"`
		Action   string `json:"action" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BindingErrorResponse(c, err)
		return
	}

	code := req.Resource + ":" + req.Action
	allowed := h.permissions.HasPermission(c.Request.Context(), user.ID, code)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"allowed": allowed,
	})
}
