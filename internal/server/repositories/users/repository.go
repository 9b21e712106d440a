// Package users declares the server-side repository contract for user
// records.
package users

import (
	"context"

	"github.com/notecloud/backend/internal/server/models"
)

// Repository defines operations over persisted user records.
type Repository interface {
	// Create inserts a new user. The email column carries a unique index;
	// implementations must return common.ErrorAlreadyExists on a duplicate.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByEmail returns the user with the given email (case-sensitive, as
	// stored) or common.ErrorNotFound.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByID returns the user with the given id or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.User, error)
}
