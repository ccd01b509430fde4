package services

import (
	"context"
	"errors"
	"time"

	"bms-server/internal/config"
	"bms-server/internal/domain"
)

// AuthService orchestrates the session lifecycle: login, refresh with
// rotation, logout and access-token validation.
type AuthService interface {
	// Login authenticates credentials and issues a fresh token pair.
	Login(ctx context.Context, req domain.LoginRequest) (*domain.TokenPair, error)

	// Refresh exchanges a refresh token for a new pair. With rotation
	// enabled the presented refresh token is revoked.
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)

	// Logout revokes the supplied tokens, or every token for the user when
	// allDevices is set. Idempotent.
	Logout(ctx context.Context, userID, accessToken, refreshToken string, allDevices bool) error

	// ValidateToken verifies an access token and returns its user.
	ValidateToken(ctx context.Context, accessToken string) (*domain.User, error)
}

type authService struct {
	users     domain.UserRepository
	codec     *TokenCodec
	blacklist *TokenBlacklistService
	rotation  bool
	maxTTL    time.Duration
}

// NewAuthService creates the session manager.
func NewAuthService(
	users domain.UserRepository,
	codec *TokenCodec,
	blacklist *TokenBlacklistService,
	cfg config.SecurityConfig,
) AuthService {
	return &authService{
		users:     users,
		codec:     codec,
		blacklist: blacklist,
		rotation:  cfg.IsRefreshRotationEnabled(),
		maxTTL:    cfg.GetRefreshTokenExpiration(),
	}
}

// Login authenticates a user and returns a token pair. Credential mismatch
// and inactive accounts produce the same error shape so callers cannot
// probe which emails exist.
func (s *authService) Login(ctx context.Context, req domain.LoginRequest) (*domain.TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, domain.NewAuthenticationError("INVALID_CREDENTIALS", "Invalid email or password")
	}

	if err := user.CheckPassword(req.Password); err != nil {
		return nil, domain.NewAuthenticationError("INVALID_CREDENTIALS", "Invalid email or password")
	}

	if !user.IsActive() {
		return nil, domain.NewAuthenticationError("ACCOUNT_INACTIVE", "Account is not active")
	}

	return s.issuePair(user)
}

// Refresh verifies a refresh token, checks revocation and issues a new
// pair. Rotation blacklists the presented token before the new pair is
// returned so a replayed token fails its next refresh.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.verifyTyped(refreshToken, domain.RefreshTokenType)
	if err != nil {
		return nil, err
	}

	listed, err := s.blacklist.IsBlacklisted(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if listed {
		return nil, domain.NewAuthenticationError("TOKEN_REVOKED", "Refresh token has been revoked")
	}

	user, err := s.users.GetByID(ctx, claims.UserID())
	if err != nil {
		return nil, domain.NewAuthenticationError("USER_NOT_FOUND", "User not found")
	}
	if !user.IsActive() {
		return nil, domain.NewAuthenticationError("ACCOUNT_INACTIVE", "Account is not active")
	}

	if !s.rotation {
		accessToken, accessClaims, err := s.codec.Issue(user, domain.AccessTokenType)
		if err != nil {
			return nil, domain.NewInternalError("TOKEN_GENERATION_FAILED", "Failed to generate access token", err)
		}
		return &domain.TokenPair{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			ExpiresAt:    accessClaims.ExpiresAt.Time,
			ExpiresIn:    int64(time.Until(accessClaims.ExpiresAt.Time).Seconds()),
		}, nil
	}

	if err := s.blacklist.BlacklistToken(ctx, refreshToken, domain.RevocationReasonSuperseded); err != nil {
		return nil, err
	}

	return s.issuePair(user)
}

// Logout revokes the refresh token and, when supplied, the access token
// the session was using, or the whole account's tokens when allDevices is
// set. Logging out twice, or with a token that never parses, is not an
// error.
func (s *authService) Logout(ctx context.Context, userID, accessToken, refreshToken string, allDevices bool) error {
	if allDevices {
		return s.blacklist.BlacklistUser(ctx, userID, domain.RevocationReasonLogout, s.maxTTL)
	}
	if accessToken != "" {
		if err := s.blacklist.BlacklistToken(ctx, accessToken, domain.RevocationReasonLogout); err != nil {
			return err
		}
	}
	if refreshToken == "" {
		return nil
	}
	return s.blacklist.BlacklistToken(ctx, refreshToken, domain.RevocationReasonLogout)
}

// ValidateToken verifies an access token, checks the blacklist and loads
// the user. Refresh tokens are rejected here: they cannot authenticate API
// calls.
func (s *authService) ValidateToken(ctx context.Context, accessToken string) (*domain.User, error) {
	claims, err := s.verifyTyped(accessToken, domain.AccessTokenType)
	if err != nil {
		return nil, err
	}

	listed, err := s.blacklist.IsBlacklisted(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if listed {
		return nil, domain.NewAuthenticationError("TOKEN_BLACKLISTED", "Token has been revoked")
	}

	user, err := s.users.GetByID(ctx, claims.UserID())
	if err != nil {
		return nil, domain.NewAuthenticationError("USER_NOT_FOUND", "User not found")
	}
	if !user.IsActive() {
		return nil, domain.NewAuthenticationError("ACCOUNT_INACTIVE", "Account is not active")
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *authService) verifyTyped(token string, wantType domain.TokenType) (*TokenClaims, error) {
	claims, err := s.codec.Verify(token)
	switch {
	case errors.Is(err, ErrTokenExpired):
		return nil, domain.NewAuthenticationError("TOKEN_EXPIRED", "Token expired")
	case err != nil:
		return nil, domain.NewAuthenticationError("INVALID_TOKEN", "Invalid token")
	}
	if claims.Type != wantType {
		return nil, domain.NewAuthenticationError("INVALID_TOKEN_TYPE", "Token cannot be used for this operation")
	}
	return claims, nil
}

func (s *authService) issuePair(user *domain.User) (*domain.TokenPair, error) {
	accessToken, accessClaims, err := s.codec.Issue(user, domain.AccessTokenType)
	if err != nil {
		return nil, domain.NewInternalError("TOKEN_GENERATION_FAILED", "Failed to generate access token", err)
	}

	refreshToken, _, err := s.codec.Issue(user, domain.RefreshTokenType)
	if err != nil {
		return nil, domain.NewInternalError("TOKEN_GENERATION_FAILED", "Failed to generate refresh token", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    accessClaims.ExpiresAt.Time,
		ExpiresIn:    int64(time.Until(accessClaims.ExpiresAt.Time).Seconds()),
	}, nil
}
