// Package services implements the authentication and authorization core:
// token issuance and verification, the revocation blacklist, permission
// resolution and the session lifecycle.
package services

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"bms-server/internal/config"
	"bms-server/internal/domain"
)

const tokenIssuer = "bms-server"

// Typed verification failures. Callers distinguish expiry from everything
// else so clients know whether a refresh is worth attempting.
var (
	// ErrTokenExpired means the token was well-formed and signed but is past
	// its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid means the signature, issuer, algorithm or type check
	// failed.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenMalformed means the token could not be decoded at all.
	ErrTokenMalformed = errors.New("malformed token")
)

// TokenClaims are the claims carried by every issued token.
type TokenClaims struct {
	Email string           `json:"email"`
	Role  domain.UserRole  `json:"role"`
	Type  domain.TokenType `json:"type"`
	jwt.RegisteredClaims
}

// UserID returns the subject claim.
func (c *TokenClaims) UserID() string {
	return c.Subject
}

// TokenCodec issues and verifies HS256-signed JWTs. It is a pure value
// transformer with no storage; revocation lives in the blacklist.
type TokenCodec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenCodec creates a codec from the security configuration.
func NewTokenCodec(cfg config.SecurityConfig) *TokenCodec {
	return &TokenCodec{
		secret:     []byte(cfg.GetJWTSecret()),
		accessTTL:  cfg.GetJWTExpiration(),
		refreshTTL: cfg.GetRefreshTokenExpiration(),
		now:        time.Now,
	}
}

// Issue produces a signed token of the given type for the user. Access
// tokens use the short TTL, refresh tokens the long one.
func (c *TokenCodec) Issue(user *domain.User, tokenType domain.TokenType) (string, *TokenClaims, error) {
	ttl := c.accessTTL
	if tokenType == domain.RefreshTokenType {
		ttl = c.refreshTTL
	}
	return c.IssueWithTTL(user, tokenType, ttl)
}

// IssueWithTTL produces a signed token with an explicit lifetime.
func (c *TokenCodec) IssueWithTTL(user *domain.User, tokenType domain.TokenType, ttl time.Duration) (string, *TokenClaims, error) {
	if ttl <= 0 {
		return "", nil, fmt.Errorf("ttl must be greater than zero")
	}

	now := c.now().UTC()
	claims := &TokenClaims{
		Email: user.Email,
		Role:  user.Role,
		Type:  tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Verify parses and validates a token, failing closed on any decode error,
// signature mismatch or expiry.
func (c *TokenCodec) Verify(tokenString string) (*TokenClaims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrTokenMalformed
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrTokenInvalid
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return c.now() }))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		default:
			return nil, ErrTokenInvalid
		}
	}

	claims, ok := parsed.Claims.(*TokenClaims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if err := c.validateClaims(claims); err != nil {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (c *TokenCodec) validateClaims(claims *TokenClaims) error {
	if claims.Issuer != tokenIssuer {
		return fmt.Errorf("unexpected issuer: %s", claims.Issuer)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return errors.New("subject missing")
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return errors.New("timestamps missing")
	}
	if claims.ExpiresAt.Time.Before(claims.IssuedAt.Time) {
		return errors.New("token expiry precedes issued-at")
	}
	if claims.Type != domain.AccessTokenType && claims.Type != domain.RefreshTokenType {
		return fmt.Errorf("unknown token type: %s", claims.Type)
	}
	return nil
}

// DecodeUnverified extracts the claims from a token payload without
// checking the signature or expiry. It exists so revocation bookkeeping can
// identify the subject of a token it will never trust; it must not be used
// to grant access.
func (c *TokenCodec) DecodeUnverified(tokenString string) (*TokenClaims, error) {
	parts := strings.Split(strings.TrimSpace(tokenString), ".")
	if len(parts) != 3 {
		return nil, ErrTokenMalformed
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, ErrTokenMalformed
	}

	var claims TokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, ErrTokenMalformed
	}
	return &claims, nil
}
