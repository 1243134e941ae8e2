package repository

import (
	"context"
	"errors"

	"task-manager/internal/domain"
)

// Store-level sentinel errors. Services translate these into the caller
// facing taxonomy.
var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// Update rewrites the whole user record (last write wins).
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
}
