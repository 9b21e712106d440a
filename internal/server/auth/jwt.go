// Package auth issues and validates the JWTs used by NoteCloud: short-lived
// access tokens and longer-lived refresh tokens, distinguished by a "kind"
// claim so one can never be presented as the other.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/notecloud/backend/internal/common"
)

const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

// Claims extends the registered JWT claims with the token kind. The user id
// travels in the standard Subject claim.
type Claims struct {
	jwt.RegisteredClaims
	Kind string `json:"kind"`
}

// Manager signs and validates tokens with a shared HS256 secret and distinct
// validity windows per token kind.
type Manager struct {
	secret          []byte
	accessValidity  time.Duration
	refreshValidity time.Duration
}

func NewManager(secret []byte, accessValidity, refreshValidity time.Duration) *Manager {
	return &Manager{
		secret:          secret,
		accessValidity:  accessValidity,
		refreshValidity: refreshValidity,
	}
}

// RefreshTokenValidity returns the configured refresh-token lifetime, used
// by callers to compute stored-record expiry.
func (m *Manager) RefreshTokenValidity() time.Duration {
	return m.refreshValidity
}

// GenerateAccessToken mints a signed access token for the given user id.
func (m *Manager) GenerateAccessToken(userID string) (string, error) {
	return m.generate(userID, KindAccess, m.accessValidity)
}

// GenerateRefreshToken mints a signed refresh token for the given user id.
func (m *Manager) GenerateRefreshToken(userID string) (string, error) {
	return m.generate(userID, KindRefresh, m.refreshValidity)
}

func (m *Manager) generate(userID, kind string, validity time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		Kind: kind,
	})
	return token.SignedString(m.secret)
}

// UserIDFromToken verifies the token's signature, expiry and kind, and
// returns the subject. Any failure is reported as common.ErrorInvalidToken.
func (m *Manager) UserIDFromToken(tokenString, kind string) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return "", common.ErrorInvalidToken
	}
	if claims.Kind != kind || claims.Subject == "" {
		return "", common.ErrorInvalidToken
	}

	return claims.Subject, nil
}

// ValidateAccessToken returns the user id carried by a valid access token.
func (m *Manager) ValidateAccessToken(tokenString string) (string, error) {
	return m.UserIDFromToken(tokenString, KindAccess)
}

// ValidateRefreshToken returns the user id carried by a valid refresh token.
func (m *Manager) ValidateRefreshToken(tokenString string) (string, error) {
	return m.UserIDFromToken(tokenString, KindRefresh)
}
