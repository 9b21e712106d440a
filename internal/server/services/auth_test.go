package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/notecloud/backend/internal/common"
	"github.com/notecloud/backend/internal/dbx"
	"github.com/notecloud/backend/internal/server/auth"
	"github.com/notecloud/backend/internal/server/models"
	"github.com/notecloud/backend/internal/server/password"
	notesrepo "github.com/notecloud/backend/internal/server/repositories/notes"
	refreshtokensrepo "github.com/notecloud/backend/internal/server/repositories/refreshtokens"
	usersrepo "github.com/notecloud/backend/internal/server/repositories/users"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func newTokenManager() *auth.Manager {
	return auth.NewManager([]byte("k"), time.Hour, 2*time.Hour)
}

func newAuthService(t *testing.T, db *sql.DB, rm *fakeRepoManager) *AuthService {
	t.Helper()
	return NewAuthService(db, rm, newTokenManager())
}

// fakeUsersRepo keeps users in memory, keyed by id and by email.
type fakeUsersRepo struct {
	mu    sync.Mutex
	users map[string]*models.User // by id

	err error // when set, returned by every call
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{users: map[string]*models.User{}}
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	u.ID = uuid.NewString()
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

// fakeRefreshRepo keeps token records in memory keyed by (userID, hash).
// Consume is atomic, mirroring the single-statement conditional delete of the
// Postgres implementation.
type fakeRefreshRepo struct {
	mu      sync.Mutex
	records map[string]time.Time // key: userID + "|" + tokenHash

	createErr  error
	consumeErr error
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{records: map[string]time.Time{}}
}

func (f *fakeRefreshRepo) key(userID, hash string) string { return userID + "|" + hash }

func (f *fakeRefreshRepo) Create(ctx context.Context, userID string, tokenHash string, validity time.Duration) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[f.key(userID, tokenHash)] = time.Now().Add(validity)
	return nil
}

func (f *fakeRefreshRepo) Consume(ctx context.Context, userID string, tokenHash string) (*models.RefreshToken, error) {
	if f.consumeErr != nil {
		return nil, f.consumeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	k := f.key(userID, tokenHash)
	expires, ok := f.records[k]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(f.records, k)
	return &models.RefreshToken{UserID: userID, TokenHash: tokenHash, ExpiresAt: expires}, nil
}

func (f *fakeRefreshRepo) DeleteForUser(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k := range f.records {
		if len(k) > len(userID) && k[:len(userID)+1] == userID+"|" {
			delete(f.records, k)
		}
	}
	return nil
}

func (f *fakeRefreshRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{u: newFakeUsersRepo(), r: newFakeRefreshRepo()}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository { return m.u }

func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository { return m.r }

func (m *fakeRepoManager) Notes(db dbx.DBTX) notesrepo.Repository { return nil }

func registerAndLogin(t *testing.T, s *AuthService) (*models.User, *TokenPair) {
	t.Helper()
	user, err := s.Register(context.Background(), "Alice", "alice@example.com", "pass123")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	pair, err := s.Login(context.Background(), "alice@example.com", "pass123")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	return user, pair
}

// --- Register ---

func TestRegister_BlankFieldsRejected(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()
	s := newAuthService(t, db, newFakeRepoManager())

	tests := []struct {
		name            string
		userName        string
		email, password string
	}{
		{"blank name", "", "a@b.c", "pw"},
		{"blank email", "Alice", "", "pw"},
		{"blank password", "Alice", "a@b.c", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Register(context.Background(), tt.userName, tt.email, tt.password)
			if !errors.Is(err, common.ErrorValidation) {
				t.Fatalf("expected ErrorValidation, got %v", err)
			}
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()
	rm := newFakeRepoManager()
	s := newAuthService(t, db, rm)

	first, err := s.Register(context.Background(), "Alice", "alice@example.com", "pw1")
	if err != nil {
		t.Fatalf("first Register error: %v", err)
	}

	_, err = s.Register(context.Background(), "Mallory", "alice@example.com", "pw2")
	if !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("expected ErrorAlreadyExists, got %v", err)
	}

	// the first user's record must be untouched
	kept, err := rm.u.GetByID(context.Background(), first.ID)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if kept.Name != "Alice" || !password.Verify("pw1", kept.HashedPassword) {
		t.Fatalf("first registration was modified: %+v", kept)
	}
}

func TestRegister_PasswordStoredHashed(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()
	rm := newFakeRepoManager()
	s := newAuthService(t, db, rm)

	user, err := s.Register(context.Background(), "Alice", "alice@example.com", "pass123")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if user.HashedPassword == "pass123" {
		t.Fatal("password must not be stored in plaintext")
	}
	if !password.Verify("pass123", user.HashedPassword) {
		t.Fatal("stored hash must verify against the original password")
	}
}

func TestRegister_StoreFailureIsNotADomainError(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()
	rm := newFakeRepoManager()
	rm.u.err = errors.New("store unreachable")
	s := newAuthService(t, db, rm)

	_, err := s.Register(context.Background(), "Alice", "alice@example.com", "pw")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, common.ErrorValidation) || errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("infrastructure failure masked as domain error: %v", err)
	}
}

// --- Login ---

func TestLogin_UnknownEmailAndWrongPasswordIndistinguishable(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()
	rm := newFakeRepoManager()
	s := newAuthService(t, db, rm)

	if _, err := s.Register(context.Background(), "Alice", "alice@example.com", "right-pw"); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	_, errUnknown := s.Login(context.Background(), "nobody@example.com", "whatever")
	_, errWrongPw := s.Login(context.Background(), "alice@example.com", "wrong-pw")

	if !errors.Is(errUnknown, common.ErrorInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrorInvalidCredentials, got %v", errUnknown)
	}
	if !errors.Is(errWrongPw, common.ErrorInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrorInvalidCredentials, got %v", errWrongPw)
	}
	if errUnknown.Error() != errWrongPw.Error() {
		t.Fatalf("the two failures must be unobservably different: %q vs %q", errUnknown, errWrongPw)
	}
}

func TestLogin_StoresDigestOfIssuedRefreshToken(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()
	rm := newFakeRepoManager()
	s := newAuthService(t, db, rm)

	user, pair := registerAndLogin(t, s)

	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected non-empty token pair: %+v", pair)
	}

	// exactly the digest of the returned raw token must be on record
	if _, err := rm.r.Consume(context.Background(), user.ID, hashToken(pair.RefreshToken)); err != nil {
		t.Fatalf("stored record must match digest of issued token: %v", err)
	}
	if _, err := rm.r.Consume(context.Background(), user.ID, pair.RefreshToken); err == nil {
		t.Fatal("raw token must never be stored as-is")
	}
}

// --- Refresh ---

func TestRefresh_RotatesExactlyOnce(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectRollback()

	rm := newFakeRepoManager()
	s := newAuthService(t, db, rm)
	_, pair := registerAndLogin(t, s)

	fresh, err := s.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if fresh.AccessToken == "" || fresh.RefreshToken == "" {
		t.Fatalf("expected non-empty token pair: %+v", fresh)
	}
	if fresh.RefreshToken == pair.RefreshToken {
		t.Fatal("rotation must issue a different refresh token")
	}
	if rm.r.count() != 1 {
		t.Fatalf("exactly one record must remain after rotation, got %d", rm.r.count())
	}

	// replaying the consumed token must fail like a forged one
	if _, err := s.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, common.ErrorInvalidToken) {
		t.Fatalf("expected ErrorInvalidToken on replay, got %v", err)
	}
}

func TestRefresh_AccessTokenRejected(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()
	rm := newFakeRepoManager()
	s := newAuthService(t, db, rm)
	_, pair := registerAndLogin(t, s)

	if _, err := s.Refresh(context.Background(), pair.AccessToken); !errors.Is(err, common.ErrorInvalidToken) {
		t.Fatalf("expected ErrorInvalidToken for wrong token kind, got %v", err)
	}
}

func TestRefresh_GarbageTokenRejected(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()
	s := newAuthService(t, db, newFakeRepoManager())

	if _, err := s.Refresh(context.Background(), "not-a-jwt"); !errors.Is(err, common.ErrorInvalidToken) {
		t.Fatalf("expected ErrorInvalidToken, got %v", err)
	}
}

func TestRefresh_ExpiredRecordRejected(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	rm := newFakeRepoManager()
	s := newAuthService(t, db, rm)
	user, pair := registerAndLogin(t, s)

	// backdate the stored record; the token's own signature is still valid
	rm.r.mu.Lock()
	rm.r.records[rm.r.key(user.ID, hashToken(pair.RefreshToken))] = time.Now().Add(-time.Minute)
	rm.r.mu.Unlock()

	if _, err := s.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, common.ErrorInvalidToken) {
		t.Fatalf("expected ErrorInvalidToken for expired record, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("transaction must roll back on expired record: %v", err)
	}
}

func TestRefresh_DeletedSubjectRejected(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()
	rm := newFakeRepoManager()
	s := newAuthService(t, db, rm)
	user, pair := registerAndLogin(t, s)

	rm.u.mu.Lock()
	delete(rm.u.users, user.ID)
	rm.u.mu.Unlock()

	if _, err := s.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, common.ErrorInvalidToken) {
		t.Fatalf("expected ErrorInvalidToken for stale subject, got %v", err)
	}
}

func TestRefresh_ConcurrentRedemptionHasOneWinner(t *testing.T) {
	const n = 8

	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < n; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
		mock.ExpectRollback()
	}

	rm := newFakeRepoManager()
	s := newAuthService(t, db, rm)
	_, pair := registerAndLogin(t, s)

	var wg sync.WaitGroup
	results := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Refresh(context.Background(), pair.RefreshToken)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, invalid int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, common.ErrorInvalidToken):
			invalid++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if wins != 1 || invalid != n-1 {
		t.Fatalf("expected 1 winner and %d invalid, got %d winners / %d invalid", n-1, wins, invalid)
	}
}
