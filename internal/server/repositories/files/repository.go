// Package files persists file manifests: the ordered remote-handle lists
// that map a logical file to its uploaded chunks.
package files

import (
	"context"

	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/models"
)

// Repository is the manifest store consumed by the transfer pipelines and
// the HTTP layer.
type Repository interface {
	// Save inserts a manifest and returns its assigned id.
	Save(ctx context.Context, file *models.File) (string, error)
	// Find returns the manifest with the given id, or common.ErrNotFound.
	Find(ctx context.Context, id string) (*models.File, error)
	// Delete removes the manifest record. Removing a missing record is not
	// an error.
	Delete(ctx context.Context, id string) error
	// FindAllByUser returns every manifest owned by userID.
	FindAllByUser(ctx context.Context, userID string) ([]*models.File, error)
}
