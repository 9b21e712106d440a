// Package common defines shared sentinel errors used across NoteCloud
// layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Validation errors (blank or malformed input).
	ErrorValidation = errors.New("validation error")

	// Auth errors. ErrorInvalidCredentials covers both unknown email and
	// wrong password; ErrorInvalidToken covers malformed, expired, forged
	// and already-consumed refresh tokens. Neither reveals which case hit.
	ErrorInvalidCredentials = errors.New("invalid credentials")
	ErrorInvalidToken       = errors.New("invalid token")
)
