package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bms-server/internal/api/middleware"
	"bms-server/internal/domain"
	"bms-server/internal/services"
)

// AuthHandler handles authentication-related HTTP requests.
type AuthHandler struct {
	authService services.AuthService
	permissions services.PermissionService
}

// NewAuthHandler creates a new authentication handler.
func NewAuthHandler(authService services.AuthService, permissions services.PermissionService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		permissions: permissions,
	}
}

// RegisterRoutes registers authentication routes with the router.
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup, authMiddleware *middleware.AuthMiddleware) {
	auth := router.Group("/auth")
	{
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.Refresh)
		auth.POST("/logout", authMiddleware.Authenticate(), h.Logout)
		auth.GET("/me", authMiddleware.Authenticate(), h.Me)
	}
}

// Login handles user login requests.
func (h *AuthHandler) Login(c *gin.Context) {
	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindingErrorResponse(c, err)
		return
	}

	tokenPair, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	h.setAuthCookies(c, tokenPair)
	SuccessResponse(c, http.StatusOK, gin.H{
		"access_token":  tokenPair.AccessToken,
		"refresh_token": tokenPair.RefreshToken,
		"expires_at":    tokenPair.ExpiresAt,
		"expires_in":    tokenPair.ExpiresIn,
	})
}

// Refresh handles token refresh requests. The refresh token comes from the
// request body or the refresh_token cookie.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}

	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		cookie, cookieErr := c.Cookie("refresh_token")
		if cookieErr != nil {
			ErrorResponse(c, domain.NewValidationError("MISSING_REFRESH_TOKEN", "Refresh token is required", nil))
			return
		}
		req.RefreshToken = cookie
	}

	tokenPair, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	h.setAuthCookies(c, tokenPair)
	SuccessResponse(c, http.StatusOK, gin.H{
		"access_token":  tokenPair.AccessToken,
		"refresh_token": tokenPair.RefreshToken,
		"expires_at":    tokenPair.ExpiresAt,
		"expires_in":    tokenPair.ExpiresIn,
	})
}

// Logout handles logout requests. With all_devices set, every outstanding
// token for the user is revoked.
func (h *AuthHandler) Logout(c *gin.Context) {
	user, exists := middleware.GetUserFromContext(c)
	if !exists {
		ErrorResponse(c, domain.NewAuthenticationError("AUTHENTICATION_REQUIRED", "Authentication required"))
		return
	}

	var req struct {
		RefreshToken string `json:"refresh_token"`
		AllDevices   bool   `json:"all_devices"`
	}
	_ = c.ShouldBindJSON(&req) // empty body means single-device logout without a refresh token

	if req.RefreshToken == "" {
		if cookie, err := c.Cookie("refresh_token"); err == nil {
			req.RefreshToken = cookie
		}
	}

	accessToken, _ := middleware.GetTokenFromContext(c)

	if err := h.authService.Logout(c.Request.Context(), user.ID, accessToken, req.RefreshToken, req.AllDevices); err != nil {
		ErrorResponse(c, err)
		return
	}

	h.clearAuthCookies(c)
	MessageResponse(c, "Successfully logged out")
}

// Me returns the authenticated user's profile with their effective
// permissions.
func (h *AuthHandler) Me(c *gin.Context) {
	user, exists := middleware.GetUserFromContext(c)
	if !exists {
		ErrorResponse(c, domain.NewAuthenticationError("AUTHENTICATION_REQUIRED", "Authentication required"))
		return
	}

	permissions, err := h.permissions.GetUserPermissions(c.Request.Context(), user.ID)
	if err != nil {
		// Profile is still useful without the permission list.
		permissions = domain.PermissionSet{}
	}

	SuccessResponse(c, http.StatusOK, gin.H{
		"user":        user,
		"permissions": permissions.Codes(),
	})
}

// setAuthCookies sets secure HTTP-only cookies for the token pair.
func (h *AuthHandler) setAuthCookies(c *gin.Context, tokenPair *domain.TokenPair) {
	c.SetCookie(
		"access_token",
		tokenPair.AccessToken,
		int(time.Until(tokenPair.ExpiresAt).Seconds()),
		"/",
		"",
		true, // Secure
		true, // HttpOnly
	)
	c.SetCookie(
		"refresh_token",
		tokenPair.RefreshToken,
		int((7 * 24 * time.Hour).Seconds()),
		"/",
		"",
		true, // Secure
		true, // HttpOnly
	)
}

// clearAuthCookies clears authentication cookies.
func (h *AuthHandler) clearAuthCookies(c *gin.Context) {
	c.SetCookie("access_token", "", -1, "/", "", true, true)
	c.SetCookie("refresh_token", "", -1, "/", "", true, true)
}
