package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
)

// AccountUpdate lists the mutable attributes of an account. Nil fields are
// left unchanged.
type AccountUpdate struct {
	Username *string
	Password *string
}

// AccountService owns account persistence and the failed-login lockout
// policy.
type AccountService struct {
	db               *sql.DB
	repomanager      repomanager.RepositoryManager
	hasher           *auth.PasswordHasher
	lockoutThreshold int
	lockoutDuration  time.Duration
	now              func() time.Time
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, hasher *auth.PasswordHasher, cfg *config.Config) *AccountService {
	return &AccountService{
		db:               db,
		repomanager:      m,
		hasher:           hasher,
		lockoutThreshold: cfg.LockoutThreshold,
		lockoutDuration:  cfg.LockoutDuration,
		now:              time.Now,
	}
}

// Create stores a new account bound to deviceID. A taken username yields
// common.ErrorAlreadyExists.
func (s *AccountService) Create(ctx context.Context, username, password, deviceID string) (*models.Account, error) {
	salt, err := s.hasher.GenerateSalt()
	if err != nil {
		return nil, fmt.Errorf("error generating salt: %w", err)
	}

	account := &models.Account{
		Username:       username,
		HashSalt:       salt,
		HashedPassword: s.hasher.Hash(salt, password),
		DeviceUUID:     &deviceID,
	}

	a, err := s.repomanager.Accounts(s.db).Create(ctx, account)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating account: %w", err)
	}
	return a, nil
}

func (s *AccountService) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	return s.repomanager.Accounts(s.db).GetByID(ctx, id)
}

func (s *AccountService) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	return s.repomanager.Accounts(s.db).GetByUsername(ctx, username)
}

// Authenticate checks the credentials under a row lock and applies the
// lockout policy. Possible errors: common.ErrorNotFound,
// common.ErrorDeviceMismatch, common.ErrorLocked,
// common.ErrorCredentialMismatch. Counter and ban updates are committed
// before a failure is returned.
func (s *AccountService) Authenticate(ctx context.Context, username, password, deviceID string) (*models.Account, error) {
	var account *models.Account

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)

		a, err := repo.GetByUsernameForUpdate(ctx, username)
		if err != nil {
			return err
		}

		if a.Device() != deviceID {
			return common.ErrorDeviceMismatch
		}

		now := s.now()
		if a.IsBanned(now) {
			return common.ErrorLocked
		}

		// an expired ban with the counter still at the threshold bans again
		if a.FailedLoginAttempts >= s.lockoutThreshold {
			if err := repo.SetBanUntil(ctx, a.ID, now.Add(s.lockoutDuration)); err != nil {
				return err
			}
			return dbx.Commit(common.ErrorLocked)
		}

		if !s.hasher.Verify(a.HashSalt, password, a.HashedPassword) {
			n, err := repo.IncrementFailedLogins(ctx, a.ID)
			if err != nil {
				return err
			}
			if n >= s.lockoutThreshold {
				if err := repo.SetBanUntil(ctx, a.ID, now.Add(s.lockoutDuration)); err != nil {
					return err
				}
				return dbx.Commit(common.ErrorLocked)
			}
			return dbx.Commit(common.ErrorCredentialMismatch)
		}

		if err := repo.RecordLoginSuccess(ctx, a.ID); err != nil {
			return err
		}
		a.FailedLoginAttempts = 0
		a.IsLoggedIn = true
		account = a
		return nil
	})

	if err != nil {
		return nil, err
	}
	return account, nil
}

// Update applies the non-nil fields of u and returns the stored account.
// A new password always gets a new salt.
func (s *AccountService) Update(ctx context.Context, id int64, u AccountUpdate) (*models.Account, error) {
	var account *models.Account

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)

		current, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if u.Username != nil && *u.Username != current.Username {
			if err := repo.UpdateUsername(ctx, id, *u.Username); err != nil {
				return err
			}
		}

		if u.Password != nil {
			if err := s.setPassword(ctx, repo.UpdatePassword, id, *u.Password); err != nil {
				return err
			}
		}

		account, err = repo.GetByID(ctx, id)
		return err
	})

	if err != nil {
		return nil, err
	}
	return account, nil
}

// ChangePassword replaces salt and hash of the account.
func (s *AccountService) ChangePassword(ctx context.Context, id int64, newPassword string) error {
	return s.setPassword(ctx, s.repomanager.Accounts(s.db).UpdatePassword, id, newPassword)
}

// ResetPassword replaces salt and hash and lifts any lockout in one
// transaction.
func (s *AccountService) ResetPassword(ctx context.Context, id int64, newPassword string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)
		if err := s.setPassword(ctx, repo.UpdatePassword, id, newPassword); err != nil {
			return err
		}
		return repo.ResetLockout(ctx, id)
	})
}

func (s *AccountService) MarkVerified(ctx context.Context, id int64) error {
	return s.repomanager.Accounts(s.db).MarkVerified(ctx, id)
}

// RecordOTPFailure returns the number of failed OTP attempts so far.
func (s *AccountService) RecordOTPFailure(ctx context.Context, id int64) (int, error) {
	return s.repomanager.Accounts(s.db).IncrementFailedOTP(ctx, id)
}

func (s *AccountService) Delete(ctx context.Context, id int64) error {
	return s.repomanager.Accounts(s.db).Delete(ctx, id)
}

// IsUsernameTaken returns true together with common.ErrorAlreadyExists when
// another account already uses username.
func (s *AccountService) IsUsernameTaken(ctx context.Context, username string) (bool, error) {
	taken, err := s.repomanager.Accounts(s.db).UsernameExists(ctx, username)
	if err != nil {
		return false, err
	}
	if taken {
		return true, common.ErrorAlreadyExists
	}
	return false, nil
}

func (s *AccountService) setPassword(ctx context.Context, update func(context.Context, int64, string, string) error, id int64, password string) error {
	salt, err := s.hasher.GenerateSalt()
	if err != nil {
		return fmt.Errorf("error generating salt: %w", err)
	}
	return update(ctx, id, salt, s.hasher.Hash(salt, password))
}
