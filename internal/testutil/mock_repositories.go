// Package testutil provides mock repository implementations for tests.
package testutil

import (
	"context"
	"sync"

	"bms-server/internal/domain"
)

// MockUserRepository implements domain.UserRepository for testing.
type MockUserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User

	// FailLookups makes every read return an internal error, for
	// fail-closed tests.
	FailLookups bool
}

// NewMockUserRepository creates a new mock user repository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users: make(map[string]*domain.User),
	}
}

// AddUser seeds a user without validation.
func (m *MockUserRepository) AddUser(user *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
}

// Create creates a new user.
func (m *MockUserRepository) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Email == user.Email {
			return domain.NewConflictError("EMAIL_EXISTS", "Email already exists")
		}
	}
	m.users[user.ID] = user
	return nil
}

// GetByID retrieves a user by ID.
func (m *MockUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FailLookups {
		return nil, domain.NewInternalError("LOOKUP_FAILED", "Simulated lookup failure", nil)
	}

	user, exists := m.users[id]
	if !exists {
		return nil, domain.NewNotFoundError("USER_NOT_FOUND", "User not found")
	}
	copied := *user
	return &copied, nil
}

// GetByEmail retrieves a user by email.
func (m *MockUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FailLookups {
		return nil, domain.NewInternalError("LOOKUP_FAILED", "Simulated lookup failure", nil)
	}

	for _, user := range m.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, domain.NewNotFoundError("USER_NOT_FOUND", "User not found")
}

// Update persists changes to an existing user.
func (m *MockUserRepository) Update(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[user.ID]; !exists {
		return domain.NewNotFoundError("USER_NOT_FOUND", "User not found")
	}
	m.users[user.ID] = user
	return nil
}

// MockPermissionCatalog implements the role and user permission
// repositories for testing.
type MockPermissionCatalog struct {
	mu            sync.RWMutex
	roleGrants    map[domain.UserRole][]string
	userOverrides map[string][]string

	// FailLookups makes every read return an error, for fail-closed tests.
	FailLookups bool

	// RoleLookups counts catalog reads, to assert cache hits.
	RoleLookups int
}

// NewMockPermissionCatalog creates an empty catalog.
func NewMockPermissionCatalog() *MockPermissionCatalog {
	return &MockPermissionCatalog{
		roleGrants:    make(map[domain.UserRole][]string),
		userOverrides: make(map[string][]string),
	}
}

// GrantRole sets the codes for a role.
func (m *MockPermissionCatalog) GrantRole(role domain.UserRole, codes ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roleGrants[role] = codes
}

// GrantUser sets the override codes for a user.
func (m *MockPermissionCatalog) GrantUser(userID string, codes ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userOverrides[userID] = codes
}

// GetRolePermissions returns the permission codes granted to a role.
func (m *MockPermissionCatalog) GetRolePermissions(_ context.Context, role domain.UserRole) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailLookups {
		return nil, domain.NewInternalError("CATALOG_FAILED", "Simulated catalog failure", nil)
	}
	m.RoleLookups++
	return append([]string(nil), m.roleGrants[role]...), nil
}

// GetUserPermissionOverrides returns the extra codes granted to a user.
func (m *MockPermissionCatalog) GetUserPermissionOverrides(_ context.Context, userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FailLookups {
		return nil, domain.NewInternalError("CATALOG_FAILED", "Simulated catalog failure", nil)
	}
	return append([]string(nil), m.userOverrides[userID]...), nil
}
