// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/daybreak-dev/daybreak/internal/model"
	"github.com/gofrs/uuid/v5"
)

// UserRepository provides CRUD access to accounts and their progress fields.
type UserRepository interface {
	// Create inserts a new user.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByEmail loads a user by email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// GetByFederated loads a user by (provider, subject).
	GetByFederated(ctx context.Context, provider, subject string) (*model.User, error)
	// ApplyProgress locks the user row, applies one submission's
	// progress update and writes the result back, returning the
	// updated user.
	ApplyProgress(ctx context.Context, id uuid.UUID, completed bool) (*model.User, error)
}
