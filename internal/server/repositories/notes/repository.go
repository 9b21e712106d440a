// Package notes declares the server-side repository contract for note
// records.
package notes

import (
	"context"

	"github.com/notecloud/backend/internal/server/models"
)

// Repository defines operations over persisted notes. All operations are
// scoped to an owner; a note belonging to someone else behaves as absent.
type Repository interface {
	// Save inserts the note, or updates title/content/color when a note with
	// the same id already belongs to ownerID.
	Save(ctx context.Context, note *models.Note) (*models.Note, error)

	// ListByOwner returns the owner's notes, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]models.Note, error)

	// Delete removes the note with the given id if it belongs to ownerID;
	// otherwise returns common.ErrorNotFound.
	Delete(ctx context.Context, ownerID, noteID string) error
}
