package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/cache"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/otps"
	"github.com/redis/go-redis/v9"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func expectTx(mock sqlmock.Sqlmock, commit bool) {
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                   "k",
		JWTAlgorithm:                "HS256",
		JWTSubject:                  "access",
		AccessTokenValidityDuration: time.Hour,
		OTPLength:                   6,
		OTPValidityDuration:         300 * time.Second,
		OTPMaxAttempts:              3,
		LockoutThreshold:            3,
		LockoutDuration:             time.Hour,
	}
}

func newRedisOTPs(t *testing.T) (*otps.RedisRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return otps.NewRedisRepository(cache.NewRedisFromClient(client)), mr
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

// --- fake accounts repository ---

type fakeAccountsRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.Account

	// err, when set, is returned by every call.
	err error
	// resetErr, when set, is returned by ResetLockout only.
	resetErr error
}

func newFakeAccountsRepo() *fakeAccountsRepo {
	return &fakeAccountsRepo{rows: map[int64]*models.Account{}}
}

func (f *fakeAccountsRepo) get(id int64) (*models.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	a, ok := f.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return a, nil
}

func (f *fakeAccountsRepo) byUsername(username string) (*models.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, a := range f.rows {
		if a.Username == username {
			return a, nil
		}
	}
	return nil, common.ErrorNotFound
}

func clone(a *models.Account) *models.Account {
	c := *a
	return &c
}

func (f *fakeAccountsRepo) Create(_ context.Context, account *models.Account) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if _, err := f.byUsername(account.Username); err == nil {
		return nil, common.ErrorAlreadyExists
	}
	f.nextID++
	account.ID = f.nextID
	account.CreatedAt = time.Now()
	f.rows[account.ID] = clone(account)
	return account, nil
}

func (f *fakeAccountsRepo) GetByID(_ context.Context, id int64) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, err := f.get(id)
	if err != nil {
		return nil, err
	}
	return clone(a), nil
}

func (f *fakeAccountsRepo) GetByUsername(_ context.Context, username string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, err := f.byUsername(username)
	if err != nil {
		return nil, err
	}
	return clone(a), nil
}

func (f *fakeAccountsRepo) GetByUsernameForUpdate(ctx context.Context, username string) (*models.Account, error) {
	return f.GetByUsername(ctx, username)
}

func (f *fakeAccountsRepo) UsernameExists(_ context.Context, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	_, err := f.byUsername(username)
	return err == nil, nil
}

func (f *fakeAccountsRepo) mutate(id int64, fn func(a *models.Account)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, err := f.get(id)
	if err != nil {
		return err
	}
	fn(a)
	now := time.Now()
	a.UpdatedAt = &now
	return nil
}

func (f *fakeAccountsRepo) IncrementFailedLogins(_ context.Context, id int64) (int, error) {
	var n int
	err := f.mutate(id, func(a *models.Account) { a.FailedLoginAttempts++; n = a.FailedLoginAttempts })
	return n, err
}

func (f *fakeAccountsRepo) SetBanUntil(_ context.Context, id int64, until time.Time) error {
	return f.mutate(id, func(a *models.Account) { a.BanUntil = &until })
}

func (f *fakeAccountsRepo) RecordLoginSuccess(_ context.Context, id int64) error {
	return f.mutate(id, func(a *models.Account) { a.FailedLoginAttempts = 0; a.IsLoggedIn = true })
}

func (f *fakeAccountsRepo) ResetLockout(_ context.Context, id int64) error {
	if f.resetErr != nil {
		return f.resetErr
	}
	return f.mutate(id, func(a *models.Account) {
		a.FailedLoginAttempts = 0
		a.FailedOTPAttempts = 0
		a.BanUntil = nil
	})
}

func (f *fakeAccountsRepo) IncrementFailedOTP(_ context.Context, id int64) (int, error) {
	var n int
	err := f.mutate(id, func(a *models.Account) { a.FailedOTPAttempts++; n = a.FailedOTPAttempts })
	return n, err
}

func (f *fakeAccountsRepo) MarkVerified(_ context.Context, id int64) error {
	return f.mutate(id, func(a *models.Account) { a.IsVerified = true; a.FailedOTPAttempts = 0 })
}

func (f *fakeAccountsRepo) UpdateUsername(_ context.Context, id int64, username string) error {
	f.mu.Lock()
	if other, err := f.byUsername(username); err == nil && other.ID != id {
		f.mu.Unlock()
		return common.ErrorAlreadyExists
	}
	f.mu.Unlock()
	return f.mutate(id, func(a *models.Account) { a.Username = username })
}

func (f *fakeAccountsRepo) UpdatePassword(_ context.Context, id int64, salt, hash string) error {
	return f.mutate(id, func(a *models.Account) { a.HashSalt = salt; a.HashedPassword = hash })
}

func (f *fakeAccountsRepo) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.get(id); err != nil {
		return err
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeAccountsRepo) snapshot(t *testing.T, username string) *models.Account {
	t.Helper()
	a, err := f.GetByUsername(context.Background(), username)
	if err != nil {
		t.Fatalf("snapshot %q: %v", username, err)
	}
	return a
}

// --- fake repo manager ---

type fakeRepoManager struct {
	a *fakeAccountsRepo
	o otps.Repository
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Accounts(dbx.DBTX) accounts.Repository       { return m.a }
func (m *fakeRepoManager) OTPs(dbx.DBTX) otps.Repository               { return m.o }

// --- fake sender ---

type fakeSender struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func (s *fakeSender) Send(_ context.Context, username, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.codes == nil {
		s.codes = map[string]string{}
	}
	s.codes[username] = code
	return nil
}

func (s *fakeSender) last(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[username]
}

// --- fixture ---

type fixture struct {
	db       *sql.DB
	mock     sqlmock.Sqlmock
	repo     *fakeAccountsRepo
	mr       *miniredis.Miniredis
	sender   *fakeSender
	accounts *AccountService
	otp      *OTPService
	auth     *AuthService
	tokens   *auth.TokenIssuer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testConfig()
	db, mock := newSQLMockDB(t)
	otpRepo, mr := newRedisOTPs(t)
	rm := &fakeRepoManager{a: newFakeAccountsRepo(), o: otpRepo}

	tokens, err := auth.NewTokenIssuer(cfg.SecretKey, cfg.JWTAlgorithm, cfg.JWTSubject)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	f := &fixture{db: db, mock: mock, repo: rm.a, mr: mr, sender: &fakeSender{}, tokens: tokens}
	f.accounts = NewAccountService(db, rm, auth.NewPasswordHasher(), cfg)
	f.otp = NewOTPService(db, rm, cfg)
	f.auth = NewAuthService(f.accounts, f.otp, tokens, f.sender, logging.Nop{}, cfg)
	return f
}
