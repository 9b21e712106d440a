// Package services contains server-side business logic. This file implements
// AuthService, which handles registration, login, and refresh-token rotation.
package services

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/notecloud/backend/internal/common"
	"github.com/notecloud/backend/internal/dbx"
	"github.com/notecloud/backend/internal/server/auth"
	"github.com/notecloud/backend/internal/server/models"
	"github.com/notecloud/backend/internal/server/password"
	"github.com/notecloud/backend/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
// It is returned to the caller and never persisted; only the digest of the
// refresh token reaches storage.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthService provides authentication-related operations:
// - Register: create users
// - Login: verify credentials and mint tokens
// - Refresh: rotate refresh tokens and mint new access tokens
//
// The service itself is stateless; all durable state lives behind the
// repository manager, so a single instance is safe for concurrent use.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *auth.Manager
}

// NewAuthService constructs an AuthService using repositories and the token
// manager.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, tokens *auth.Manager) *AuthService {
	return &AuthService{
		db:          db,
		repomanager: m,
		tokens:      tokens,
	}
}

// Register creates a new user with the given name, email, and password.
// Blank fields yield common.ErrorValidation; a taken email yields
// common.ErrorAlreadyExists. No tokens are issued here; login is a separate
// step.
func (s *AuthService) Register(ctx context.Context, name, email, plaintext string) (*models.User, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", common.ErrorValidation)
	}
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", common.ErrorValidation)
	}
	if plaintext == "" {
		return nil, fmt.Errorf("%w: password is required", common.ErrorValidation)
	}

	repo := s.repomanager.Users(s.db)

	// Friendly pre-check only; the unique index on email is the real guard.
	_, err := repo.GetByEmail(ctx, email)
	if err == nil {
		return nil, common.ErrorAlreadyExists
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	hashed, err := password.Hash(plaintext)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{Name: name, Email: email, HashedPassword: hashed}
	u, err := repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

// Login verifies the provided password against the stored hash and, on
// success, returns a new TokenPair. Unknown email and wrong password are
// deliberately indistinguishable: both return common.ErrorInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, plaintext string) (*TokenPair, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorInvalidCredentials
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}
	if !password.Verify(plaintext, user.HashedPassword) {
		return nil, common.ErrorInvalidCredentials
	}
	return s.generateTokenPair(ctx, user.ID, s.db)
}

// Refresh validates a refresh token, rotates it transactionally, and returns
// a fresh TokenPair. A malformed, forged, expired, or already-consumed token
// yields common.ErrorInvalidToken; the caller cannot tell those cases apart.
// If any step fails the transaction rolls back, so a failed refresh never
// consumes the presented token half-way.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	userID, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, common.ErrorInvalidToken
	}

	// The subject must still exist. A stale user and a forged token are
	// reported identically.
	if _, err := s.repomanager.Users(s.db).GetByID(ctx, userID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorInvalidToken
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	hashed := hashToken(refreshToken)

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repomanager.RefreshTokens(tx)

		// Single-use enforcement: the conditional delete is the only reader,
		// so two concurrent redemptions of the same token cannot both pass.
		record, err := repoTx.Consume(ctx, userID, hashed)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorInvalidToken
			}
			return fmt.Errorf("error consuming refresh token: %w", err)
		}
		if record.ExpiresAt.Before(time.Now()) {
			// rollback keeps the expired record in place
			return common.ErrorInvalidToken
		}

		var genErr error
		pair, genErr = s.generateTokenPair(ctx, userID, tx)
		return genErr
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// --- helpers below ---

func (s *AuthService) generateTokenPair(ctx context.Context, userID string, tx dbx.DBTX) (*TokenPair, error) {
	access, err := s.tokens.GenerateAccessToken(userID)
	if err != nil {
		return nil, fmt.Errorf("error signing access token: %w", err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(userID)
	if err != nil {
		return nil, fmt.Errorf("error signing refresh token: %w", err)
	}

	refreshRepo := s.repomanager.RefreshTokens(tx)
	if err := refreshRepo.Create(ctx, userID, hashToken(refresh), s.tokens.RefreshTokenValidity()); err != nil {
		return nil, fmt.Errorf("error storing refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// hashToken digests a raw refresh token for storage and lookup. Tokens are
// high-entropy, so a fast unsalted digest is enough; it must stay stable
// across restarts because it is used for equality lookup.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.StdEncoding.EncodeToString(sum[:])
}
