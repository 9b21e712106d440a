package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/notecloud/backend/internal/common"
	"github.com/notecloud/backend/internal/server/models"
	"github.com/notecloud/backend/internal/server/repositories/repomanager"
)

// NoteService manages user-owned notes. Ownership checks live in the
// repository queries, so a note belonging to someone else behaves exactly
// like a missing one.
type NoteService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewNoteService(db *sql.DB, m repomanager.RepositoryManager) *NoteService {
	return &NoteService{db: db, repomanager: m}
}

// Save creates or updates a note for ownerID. A blank title is rejected.
func (s *NoteService) Save(ctx context.Context, ownerID string, note *models.Note) (*models.Note, error) {
	if note.Title == "" {
		return nil, fmt.Errorf("%w: title is required", common.ErrorValidation)
	}

	note.OwnerID = ownerID

	repo := s.repomanager.Notes(s.db)
	saved, err := repo.Save(ctx, note)
	if err != nil {
		return nil, fmt.Errorf("error saving note: %w", err)
	}
	return saved, nil
}

// List returns all notes owned by ownerID, newest first.
func (s *NoteService) List(ctx context.Context, ownerID string) ([]models.Note, error) {
	repo := s.repomanager.Notes(s.db)
	notes, err := repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("error listing notes: %w", err)
	}
	return notes, nil
}

// Delete removes the note with the given id if ownerID owns it; otherwise it
// returns common.ErrorNotFound.
func (s *NoteService) Delete(ctx context.Context, ownerID, noteID string) error {
	repo := s.repomanager.Notes(s.db)
	return repo.Delete(ctx, ownerID, noteID)
}
