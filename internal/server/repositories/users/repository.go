// Package users persists account records.
package users

import (
	"context"

	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/models"
)

type Repository interface {
	// Create inserts a user and fills in the assigned id.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	// GetByUsername returns the user with the given name, or common.ErrNotFound.
	GetByUsername(ctx context.Context, userName string) (*models.User, error)
	// GetByID returns the user with the given id, or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.User, error)
}
