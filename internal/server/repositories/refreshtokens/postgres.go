package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/notecloud/backend/internal/common"
	"github.com/notecloud/backend/internal/dbx"
	"github.com/notecloud/backend/internal/server/models"
)

// PostgresRepository implements the refresh-token repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new refresh-token record with an expiry time of now+validity.
func (r *PostgresRepository) Create(ctx context.Context, userID string, tokenHash string, validity time.Duration) error {

	query :=
		`INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
         VALUES ($1, $2, $3)
		 `

	_, err := r.db.ExecContext(ctx, query, userID, tokenHash, time.Now().Add(validity))

	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}

	return nil
}

// Consume deletes the record matching (userID, tokenHash) and returns its
// metadata. The conditional DELETE ... RETURNING is a single statement, so
// two concurrent redemptions of the same digest cannot both see the row.
// Returns common.ErrorNotFound when no record matched.
func (r *PostgresRepository) Consume(ctx context.Context, userID string, tokenHash string) (*models.RefreshToken, error) {

	query :=
		`DELETE FROM refresh_tokens
		 WHERE user_id = $1 AND token_hash = $2
		 RETURNING user_id, expires_at
		 `

	token := &models.RefreshToken{TokenHash: tokenHash}
	err := r.db.QueryRowContext(ctx, query, userID, tokenHash).Scan(&token.UserID, &token.ExpiresAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return token, nil
}

// DeleteForUser removes all refresh-token records owned by userID.
func (r *PostgresRepository) DeleteForUser(ctx context.Context, userID string) error {

	query :=
		`DELETE FROM refresh_tokens
		 WHERE user_id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}

	return nil
}
