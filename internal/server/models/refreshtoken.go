package models

import "time"

// RefreshToken is one outstanding, unconsumed refresh token. Only the
// SHA-256 digest of the raw token is ever stored; the raw value exists
// solely in the response that issued it.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}
