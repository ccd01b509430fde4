package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bms-server/internal/api/middleware"
	"bms-server/internal/domain"
	"bms-server/internal/repository"
	"bms-server/internal/services"
	"bms-server/internal/testutil"
)

type testSecurityConfig struct{}

func (testSecurityConfig) GetJWTSecret() string {
	return "test-jwt-secret-key-at-least-32-characters"
}

func (testSecurityConfig) GetJWTExpiration() time.Duration { return time.Hour }

func (testSecurityConfig) GetRefreshTokenExpiration() time.Duration { return 7 * 24 * time.Hour }

func (testSecurityConfig) IsRefreshRotationEnabled() bool { return true }

type apiTestServer struct {
	router      *gin.Engine
	users       *testutil.MockUserRepository
	catalog     *testutil.MockPermissionCatalog
	permissions services.PermissionService
}

func newAPITestServer(t *testing.T) *apiTestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testSecurityConfig{}
	users := testutil.NewMockUserRepository()
	catalog := testutil.NewMockPermissionCatalog()

	codec := services.NewTokenCodec(cfg)
	blacklist := services.NewTokenBlacklistService(repository.NewMemoryTokenBlacklistRepository(), codec, nil)
	permissions := services.NewPermissionService(users, catalog, catalog, services.NewMemoryCacheBackend(), 5*time.Minute, nil)
	authService := services.NewAuthService(users, codec, blacklist, cfg)

	authMiddleware := middleware.NewAuthMiddleware(authService, permissions)

	router := gin.New()
	apiGroup := router.Group("/api")
	NewAuthHandler(authService, permissions).RegisterRoutes(apiGroup, authMiddleware)
	NewPermissionHandler(permissions).RegisterRoutes(apiGroup, authMiddleware)
	NewAdminHandler(authService, permissions).RegisterRoutes(apiGroup, authMiddleware)

	return &apiTestServer{
		router:      router,
		users:       users,
		catalog:     catalog,
		permissions: permissions,
	}
}

func (s *apiTestServer) addUser(t *testing.T, id, email string, role domain.UserRole, password string) {
	t.Helper()
	user := &domain.User{
		ID:     id,
		Email:  email,
		Name:   id,
		Role:   role,
		Status: domain.ActiveStatus,
	}
	require.NoError(t, user.SetPassword(password))
	s.users.AddUser(user)
}

func (s *apiTestServer) postJSON(path string, body interface{}, token string) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *apiTestServer) login(t *testing.T, email, password string) (string, string) {
	t.Helper()
	w := s.postJSON("/api/auth/login", gin.H{"email": email, "password": password}, "")
	require.Equal(t, http.StatusOK, w.Code, "login failed: %s", w.Body.String())

	var response struct {
		Success bool `json:"success"`
		Data    struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.True(t, response.Success)
	return response.Data.AccessToken, response.Data.RefreshToken
}

func TestAuthAPI_LoginSuccess(t *testing.T) {
	server := newAPITestServer(t)
	server.addUser(t, "user-1", "alice@example.com", domain.StaffRole, "correct-horse-battery")

	w := server.postJSON("/api/auth/login", gin.H{
		"email":    "alice@example.com",
		"password": "correct-horse-battery",
	}, "")

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Success bool `json:"success"`
		Data    struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
			ExpiresIn    int64  `json:"expires_in"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response.Success)
	assert.NotEmpty(t, response.Data.AccessToken)
	assert.NotEmpty(t, response.Data.RefreshToken)
	assert.Greater(t, response.Data.ExpiresIn, int64(0))

	cookies := w.Result().Cookies()
	names := make(map[string]bool, len(cookies))
	for _, cookie := range cookies {
		names[cookie.Name] = true
		assert.True(t, cookie.HttpOnly, "auth cookies must be http-only")
	}
	assert.True(t, names["access_token"])
	assert.True(t, names["refresh_token"])
}

func TestAuthAPI_LoginRejectsBadCredentials(t *testing.T) {
	server := newAPITestServer(t)
	server.addUser(t, "user-1", "alice@example.com", domain.StaffRole, "correct-horse-battery")

	w := server.postJSON("/api/auth/login", gin.H{
		"email":    "alice@example.com",
		"password": "wrong",
	}, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_CREDENTIALS")
}

func TestAuthAPI_LoginRejectsMalformedBody(t *testing.T) {
	server := newAPITestServer(t)

	w := server.postJSON("/api/auth/login", gin.H{"email": "not-an-email"}, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_REQUEST")
}

func TestAuthAPI_RefreshRotatesTokens(t *testing.T) {
	server := newAPITestServer(t)
	server.addUser(t, "user-1", "alice@example.com", domain.StaffRole, "correct-horse-battery")

	_, refreshToken := server.login(t, "alice@example.com", "correct-horse-battery")

	w := server.postJSON("/api/auth/refresh", gin.H{"refresh_token": refreshToken}, "")
	assert.Equal(t, http.StatusOK, w.Code)

	// The superseded refresh token is rejected on replay.
	w = server.postJSON("/api/auth/refresh", gin.H{"refresh_token": refreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TOKEN_REVOKED")
}

func TestAuthAPI_RefreshRequiresToken(t *testing.T) {
	server := newAPITestServer(t)

	w := server.postJSON("/api/auth/refresh", gin.H{}, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "MISSING_REFRESH_TOKEN")
}

func TestAuthAPI_LogoutRevokesRefreshToken(t *testing.T) {
	server := newAPITestServer(t)
	server.addUser(t, "user-1", "alice@example.com", domain.StaffRole, "correct-horse-battery")

	accessToken, refreshToken := server.login(t, "alice@example.com", "correct-horse-battery")

	w := server.postJSON("/api/auth/logout", gin.H{"refresh_token": refreshToken}, accessToken)
	assert.Equal(t, http.StatusOK, w.Code)

	w = server.postJSON("/api/auth/refresh", gin.H{"refresh_token": refreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthAPI_LogoutRevokesAccessToken(t *testing.T) {
	server := newAPITestServer(t)
	server.addUser(t, "user-1", "alice@example.com", domain.StaffRole, "correct-horse-battery")

	accessToken, refreshToken := server.login(t, "alice@example.com", "correct-horse-battery")

	w := server.postJSON("/api/auth/logout", gin.H{"refresh_token": refreshToken}, accessToken)
	assert.Equal(t, http.StatusOK, w.Code)

	// The bearer token the logout request authenticated with is revoked too.
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	rec := httptest.NewRecorder()
	server.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "TOKEN_BLACKLISTED")
}

func TestAuthAPI_MeReturnsProfileAndPermissions(t *testing.T) {
	server := newAPITestServer(t)
	server.addUser(t, "user-1", "alice@example.com", domain.StaffRole, "correct-horse-battery")
	server.catalog.GrantRole(domain.StaffRole, "customer:view")

	accessToken, _ := server.login(t, "alice@example.com", "correct-horse-battery")

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Success bool `json:"success"`
		Data    struct {
			User        domain.User `json:"user"`
			Permissions []string    `json:"permissions"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "user-1", response.Data.User.ID)
	assert.Contains(t, response.Data.Permissions, "customer:view")
	assert.NotContains(t, w.Body.String(), "password_hash")
}

func TestAuthAPI_MeRequiresAuthentication(t *testing.T) {
	server := newAPITestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAPI_RevokeUserTokens(t *testing.T) {
	server := newAPITestServer(t)
	server.addUser(t, "admin-1", "admin@example.com", domain.AdminRole, "admin-password-123")
	server.addUser(t, "user-1", "alice@example.com", domain.StaffRole, "correct-horse-battery")

	userAccess, userRefresh := server.login(t, "alice@example.com", "correct-horse-battery")
	adminAccess, _ := server.login(t, "admin@example.com", "admin-password-123")

	w := server.postJSON("/api/admin/users/user-1/revoke-tokens", nil, adminAccess)
	assert.Equal(t, http.StatusOK, w.Code)

	// Both of the user's tokens are now dead.
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+userAccess)
	rec := httptest.NewRecorder()
	server.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	w = server.postJSON("/api/auth/refresh", gin.H{"refresh_token": userRefresh}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// The admin's own session is untouched.
	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+adminAccess)
	rec = httptest.NewRecorder()
	server.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminAPI_RequiresAdminRole(t *testing.T) {
	server := newAPITestServer(t)
	server.addUser(t, "user-1", "alice@example.com", domain.StaffRole, "correct-horse-battery")

	accessToken, _ := server.login(t, "alice@example.com", "correct-horse-battery")

	w := server.postJSON("/api/admin/users/user-1/revoke-tokens", nil, accessToken)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "INSUFFICIENT_ROLE")
}

func TestAdminAPI_InvalidatePermissions(t *testing.T) {
	server := newAPITestServer(t)
	server.addUser(t, "admin-1", "admin@example.com", domain.AdminRole, "admin-password-123")
	server.addUser(t, "user-1", "alice@example.com", domain.StaffRole, "correct-horse-battery")
	server.catalog.GrantRole(domain.StaffRole, "customer:view")

	adminAccess, _ := server.login(t, "admin@example.com", "admin-password-123")

	// Warm the cache, then revoke the role grant.
	assert.True(t, server.permissions.HasPermission(context.Background(), "user-1", "customer:view"))
	server.catalog.GrantRole(domain.StaffRole)

	w := server.postJSON("/api/admin/users/user-1/invalidate-permissions", nil, adminAccess)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.False(t, server.permissions.HasPermission(context.Background(), "user-1", "customer:view"))
}
