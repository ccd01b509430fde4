package domain

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// UserRole represents the role of a user in the system.
type UserRole string

const (
	// AdminRole bypasses every permission and ownership check.
	AdminRole UserRole = "admin"
	// ManagerRole manages customers, appointments and projects.
	ManagerRole UserRole = "manager"
	// StaffRole handles day-to-day service operations.
	StaffRole UserRole = "staff"
	// RegularUserRole is the default customer-facing role.
	RegularUserRole UserRole = "user"
)

// UserStatus represents the account status of a user.
type UserStatus string

const (
	// ActiveStatus marks an account that may authenticate.
	ActiveStatus UserStatus = "active"
	// InactiveStatus marks a disabled account; login and token validation fail.
	InactiveStatus UserStatus = "inactive"
	// SuspendedStatus marks an account locked for a security reason.
	SuspendedStatus UserStatus = "suspended"
)

// User represents a user account in the system.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"-"` // Never serialize password hash
	Role         UserRole   `json:"role"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// SetPassword hashes and sets the user's password.
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return NewInternalError("PASSWORD_HASH_FAILED", "Failed to hash password", err)
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword verifies the provided password against the stored hash.
func (u *User) CheckPassword(password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return NewAuthenticationError("INVALID_PASSWORD", "Password does not match")
	}
	return nil
}

// IsAdmin returns true if the user has admin role.
func (u *User) IsAdmin() bool {
	return u.Role == AdminRole
}

// IsActive returns true if the account may authenticate.
func (u *User) IsActive() bool {
	return u.Status == ActiveStatus
}

// Validate validates the user data.
func (u *User) Validate() error {
	if u.Email == "" {
		return NewValidationError("INVALID_EMAIL", "Email is required", map[string]interface{}{
			"field": "email",
		})
	}

	if u.Name == "" {
		return NewValidationError("INVALID_NAME", "Name is required", map[string]interface{}{
			"field": "name",
		})
	}

	switch u.Role {
	case AdminRole, ManagerRole, StaffRole, RegularUserRole:
	default:
		return NewValidationError("INVALID_ROLE", "Unknown user role", map[string]interface{}{
			"field": "role",
			"value": u.Role,
		})
	}

	switch u.Status {
	case ActiveStatus, InactiveStatus, SuspendedStatus:
	default:
		return NewValidationError("INVALID_STATUS", "Unknown account status", map[string]interface{}{
			"field": "status",
			"value": u.Status,
		})
	}

	return nil
}

// LoginRequest represents login credentials.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenPair represents an issued access/refresh token pair.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	ExpiresIn    int64     `json:"expires_in"`
}

// UserRepository defines the user lookup operations the auth core depends on.
type UserRepository interface {
	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByEmail retrieves a user by email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Create creates a new user.
	Create(ctx context.Context, user *User) error

	// Update persists changes to an existing user.
	Update(ctx context.Context, user *User) error
}
