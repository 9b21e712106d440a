package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/notecloud/backend/internal/common"
	"github.com/notecloud/backend/internal/dbx"
	"github.com/notecloud/backend/internal/server/models"
)

// PostgresRepository implements the note repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Save upserts a note. The owner guard on the conflict branch keeps one user
// from overwriting another user's note by guessing its id.
func (r *PostgresRepository) Save(ctx context.Context, note *models.Note) (*models.Note, error) {

	if note.ID == "" {
		note.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO notes (id, owner_id, title, content, color)
         VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE
		 SET title = EXCLUDED.title, content = EXCLUDED.content, color = EXCLUDED.color
		 WHERE notes.owner_id = EXCLUDED.owner_id
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		note.ID, note.OwnerID, note.Title, note.Content, note.Color).Scan(&note.ID, &note.CreatedAt)

	if err != nil {
		// the conflict branch updates nothing when the note belongs to
		// someone else, so the statement returns no row
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return note, nil
}

// ListByOwner returns all notes owned by ownerID, newest first.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Note, error) {

	query :=
		`SELECT id, owner_id, title, content, color, created_at FROM notes
		 WHERE owner_id = $1
		 ORDER BY created_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []models.Note{}
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ID, &n.OwnerID, &n.Title, &n.Content, &n.Color, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

// Delete removes a note owned by ownerID. A foreign or missing note yields
// common.ErrorNotFound.
func (r *PostgresRepository) Delete(ctx context.Context, ownerID, noteID string) error {

	query :=
		`DELETE FROM notes
		 WHERE id = $1 AND owner_id = $2
		 `

	res, err := r.db.ExecContext(ctx, query, noteID, ownerID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}

	return nil
}
