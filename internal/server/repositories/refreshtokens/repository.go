// Package refreshtokens declares the server-side repository contract for
// managing refresh-token records in persistent storage.
package refreshtokens

import (
	"context"
	"time"

	"github.com/notecloud/backend/internal/server/models"
)

// Repository defines operations for issuing and redeeming refresh tokens.
// Records are keyed by (user id, token digest); the raw token never reaches
// this layer.
type Repository interface {
	// Create stores a new refresh-token record for userID with an expiry of
	// now+validity.
	Create(ctx context.Context, userID string, tokenHash string, validity time.Duration) error

	// Consume atomically deletes the record matching (userID, tokenHash) and
	// returns it. The lookup and delete are one statement, so of any number
	// of concurrent calls presenting the same digest exactly one succeeds;
	// the rest get common.ErrorNotFound.
	Consume(ctx context.Context, userID string, tokenHash string) (*models.RefreshToken, error)

	// DeleteForUser removes every record owned by userID. Deleting for a
	// user with no records is not an error.
	DeleteForUser(ctx context.Context, userID string) error
}
