// Package middleware provides the HTTP middleware surface of the auth core:
// authentication, role and permission gates, ownership checks and the
// ambient request plumbing.
package middleware

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"bms-server/internal/domain"
	"bms-server/internal/services"
)

// UserContextKey is the key used to store the authenticated user in the
// request context.
const UserContextKey = "user"

// TokenContextKey is the key used to store the raw access token the
// request authenticated with, so logout can revoke it.
const TokenContextKey = "access_token"

// OwnerLookup resolves a resource id to its owner's user id. A nil result
// means the resource does not exist.
type OwnerLookup func(ctx context.Context, resourceID int64) (*string, error)

// AuthMiddleware provides the authorization gates request handlers compose
// onto their routes.
type AuthMiddleware struct {
	authService services.AuthService
	permissions services.PermissionService
}

// NewAuthMiddleware creates the middleware set.
func NewAuthMiddleware(authService services.AuthService, permissions services.PermissionService) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		permissions: permissions,
	}
}

// Authenticate validates the bearer token (header first, access_token
// cookie as fallback) and attaches the resolved user to the context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := m.extractToken(c)
		if token == "" {
			abortWithError(c, domain.NewAuthenticationError("AUTHENTICATION_REQUIRED", "Authentication required"))
			return
		}

		user, err := m.authService.ValidateToken(c.Request.Context(), token)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.Set(UserContextKey, user)
		c.Set(TokenContextKey, token)
		c.Next()
	}
}

// Authorize requires an authenticated user whose role is in the allowed
// set. An empty set passes any authenticated user.
func (m *AuthMiddleware) Authorize(roles ...domain.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := GetUserFromContext(c)
		if !ok {
			abortWithError(c, domain.NewAuthenticationError("AUTHENTICATION_REQUIRED", "Authentication required"))
			return
		}

		if len(roles) > 0 && !roleAllowed(user.Role, roles) {
			abortWithError(c, domain.NewAuthorizationError("INSUFFICIENT_ROLE", "Insufficient role to access this resource"))
			return
		}

		c.Next()
	}
}

// RequirePermission requires the authenticated user to hold the code.
func (m *AuthMiddleware) RequirePermission(code string) gin.HandlerFunc {
	return m.permissionGate(func(c *gin.Context, userID string) bool {
		return m.permissions.HasPermission(c.Request.Context(), userID, code)
	})
}

// RequireAnyPermission requires at least one of the codes.
func (m *AuthMiddleware) RequireAnyPermission(codes ...string) gin.HandlerFunc {
	return m.permissionGate(func(c *gin.Context, userID string) bool {
		return m.permissions.HasAnyPermission(c.Request.Context(), userID, codes...)
	})
}

// RequireAllPermissions requires every one of the codes.
func (m *AuthMiddleware) RequireAllPermissions(codes ...string) gin.HandlerFunc {
	return m.permissionGate(func(c *gin.Context, userID string) bool {
		return m.permissions.HasAllPermissions(c.Request.Context(), userID, codes...)
	})
}

// CheckOwnership requires the authenticated user to own the resource named
// by the route parameter. Admins bypass the check without invoking the
// lookup.
func (m *AuthMiddleware) CheckOwnership(paramName string, lookup OwnerLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := GetUserFromContext(c)
		if !ok {
			abortWithError(c, domain.NewAuthenticationError("AUTHENTICATION_REQUIRED", "Authentication required"))
			return
		}

		if user.IsAdmin() {
			c.Next()
			return
		}

		resourceID, err := strconv.ParseInt(c.Param(paramName), 10, 64)
		if err != nil {
			abortWithError(c, domain.NewValidationError("INVALID_RESOURCE_ID", "Invalid resource ID", nil))
			return
		}

		ownerID, err := lookup(c.Request.Context(), resourceID)
		if err != nil {
			abortWithError(c, domain.NewInternalError("OWNERSHIP_LOOKUP_FAILED", "Failed to resolve resource owner", err))
			return
		}
		if ownerID == nil {
			abortWithError(c, domain.NewNotFoundError("RESOURCE_NOT_FOUND", "Resource not found"))
			return
		}
		if *ownerID != user.ID {
			abortWithError(c, domain.NewAuthorizationError("NOT_OWNER", "You can only access resources you own"))
			return
		}

		c.Next()
	}
}

func (m *AuthMiddleware) permissionGate(allowed func(c *gin.Context, userID string) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := GetUserFromContext(c)
		if !ok {
			abortWithError(c, domain.NewAuthenticationError("AUTHENTICATION_REQUIRED", "Authentication required"))
			return
		}

		if !allowed(c, user.ID) {
			abortWithError(c, domain.NewAuthorizationError("PERMISSION_DENIED", "Insufficient permissions to access this resource"))
			return
		}

		c.Next()
	}
}

func (m *AuthMiddleware) extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}

	cookie, err := c.Cookie("access_token")
	if err != nil {
		return ""
	}
	return cookie
}

func roleAllowed(role domain.UserRole, allowed []domain.UserRole) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

var errHandler = domain.NewErrorHandler(nil)

// abortWithError renders a domain error in the standard response envelope
// and stops the handler chain.
func abortWithError(c *gin.Context, err error) {
	status, response := errHandler.HandleError(err)
	c.JSON(status, gin.H{
		"success": false,
		"error":   response,
	})
	c.Abort()
}

// GetUserFromContext extracts the authenticated user from Gin context.
func GetUserFromContext(c *gin.Context) (*domain.User, bool) {
	if user, exists := c.Get(UserContextKey); exists {
		if u, ok := user.(*domain.User); ok {
			return u, true
		}
	}
	return nil, false
}

// GetTokenFromContext extracts the raw access token the request
// authenticated with.
func GetTokenFromContext(c *gin.Context) (string, bool) {
	if token, exists := c.Get(TokenContextKey); exists {
		if t, ok := token.(string); ok && t != "" {
			return t, true
		}
	}
	return "", false
}

// RequireAdmin is a convenience gate for admin-only routes.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return m.Authorize(domain.AdminRole)
}
