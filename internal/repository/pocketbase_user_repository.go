package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"

	"bms-server/internal/domain"
)

// pocketbaseUserRepository implements domain.UserRepository on a PocketBase
// users collection.
type pocketbaseUserRepository struct {
	app core.App
}

// NewPocketBaseUserRepository creates a new PocketBase user repository.
func NewPocketBaseUserRepository(app core.App) domain.UserRepository {
	return &pocketbaseUserRepository{app: app}
}

// GetByID retrieves a user by ID.
func (r *pocketbaseUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	if id == "" {
		return nil, domain.NewValidationError("INVALID_USER_ID", "User ID cannot be empty", nil)
	}

	record, err := r.app.FindRecordById("users", id)
	if err != nil {
		return nil, domain.NewNotFoundError("USER_NOT_FOUND", "User not found")
	}
	return recordToUser(record), nil
}

// GetByEmail retrieves a user by email.
func (r *pocketbaseUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, domain.NewValidationError("INVALID_EMAIL", "Email cannot be empty", nil)
	}

	record, err := r.app.FindFirstRecordByFilter(
		"users",
		"email = {:email}",
		dbx.Params{"email": email},
	)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.NewNotFoundError("USER_NOT_FOUND", "User not found")
		}
		return nil, domain.NewInternalError("USER_LOOKUP_FAILED", "Failed to look up user", err)
	}
	return recordToUser(record), nil
}

// Create creates a new user record.
func (r *pocketbaseUserRepository) Create(_ context.Context, user *domain.User) error {
	if err := user.Validate(); err != nil {
		return err
	}

	collection, err := r.app.FindCollectionByNameOrId("users")
	if err != nil {
		return domain.NewInternalError("COLLECTION_NOT_FOUND", "Users collection not found", err)
	}

	record := core.NewRecord(collection)
	if user.ID != "" {
		record.Id = user.ID
	}
	applyUser(record, user)

	if err := r.app.Save(record); err != nil {
		return domain.NewInternalError("USER_SAVE_FAILED", "Failed to save user record", err)
	}

	user.ID = record.Id
	user.CreatedAt = record.GetDateTime("created").Time()
	user.UpdatedAt = record.GetDateTime("updated").Time()
	return nil
}

// Update persists changes to an existing user.
func (r *pocketbaseUserRepository) Update(_ context.Context, user *domain.User) error {
	record, err := r.app.FindRecordById("users", user.ID)
	if err != nil {
		return domain.NewNotFoundError("USER_NOT_FOUND", "User not found")
	}

	applyUser(record, user)

	if err := r.app.Save(record); err != nil {
		return domain.NewInternalError("USER_SAVE_FAILED", "Failed to update user record", err)
	}

	user.UpdatedAt = record.GetDateTime("updated").Time()
	return nil
}

func applyUser(record *core.Record, user *domain.User) {
	record.Set("email", user.Email)
	record.Set("name", user.Name)
	record.Set("role", string(user.Role))
	record.Set("status", string(user.Status))
	record.Set("password_hash", user.PasswordHash)
}

func recordToUser(record *core.Record) *domain.User {
	return &domain.User{
		ID:           record.Id,
		Email:        record.GetString("email"),
		Name:         record.GetString("name"),
		PasswordHash: record.GetString("password_hash"),
		Role:         domain.UserRole(record.GetString("role")),
		Status:       domain.UserStatus(record.GetString("status")),
		CreatedAt:    record.GetDateTime("created").Time(),
		UpdatedAt:    record.GetDateTime("updated").Time(),
	}
}

func isNoRows(err error) bool {
	return err != nil && (errors.Is(err, sql.ErrNoRows) || strings.Contains(err.Error(), "no rows in result set"))
}
