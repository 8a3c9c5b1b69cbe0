// Package accounts provides the PostgreSQL-backed account repository.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

const accountColumns = `id, username, hashed_password, hash_salt, is_verified, is_active, is_logged_in,
		failed_login_attempts, failed_otp_attempts, ban_until, device_uuid,
		email, first_name, last_name, county, sex, fcm_token, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO account (username, hashed_password, hash_salt, device_uuid, is_logged_in)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		account.Username, account.HashedPassword, account.HashSalt, account.DeviceUUID, account.IsLoggedIn,
	).Scan(&account.ID, &account.CreatedAt)

	if err != nil {
		return nil, mapWriteError(err)
	}

	return account, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM account WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM account WHERE username = $1`
	return r.getOne(ctx, query, username)
}

func (r *PostgresRepository) GetByUsernameForUpdate(ctx context.Context, username string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM account WHERE username = $1 FOR UPDATE`
	return r.getOne(ctx, query, username)
}

func (r *PostgresRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM account WHERE username = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return exists, nil
}

func (r *PostgresRepository) IncrementFailedLogins(ctx context.Context, id int64) (int, error) {
	query :=
		`UPDATE account SET failed_login_attempts = failed_login_attempts + 1, updated_at = now()
		 WHERE id = $1
		 RETURNING failed_login_attempts`

	return r.returnCounter(ctx, query, id)
}

func (r *PostgresRepository) SetBanUntil(ctx context.Context, id int64, until time.Time) error {
	query := `UPDATE account SET ban_until = $2, updated_at = now() WHERE id = $1`
	return r.execOne(ctx, query, id, until)
}

func (r *PostgresRepository) RecordLoginSuccess(ctx context.Context, id int64) error {
	query := `UPDATE account SET failed_login_attempts = 0, is_logged_in = TRUE, updated_at = now() WHERE id = $1`
	return r.execOne(ctx, query, id)
}

func (r *PostgresRepository) ResetLockout(ctx context.Context, id int64) error {
	query :=
		`UPDATE account SET failed_login_attempts = 0, failed_otp_attempts = 0, ban_until = NULL, updated_at = now()
		 WHERE id = $1`
	return r.execOne(ctx, query, id)
}

func (r *PostgresRepository) IncrementFailedOTP(ctx context.Context, id int64) (int, error) {
	query :=
		`UPDATE account SET failed_otp_attempts = failed_otp_attempts + 1, updated_at = now()
		 WHERE id = $1
		 RETURNING failed_otp_attempts`

	return r.returnCounter(ctx, query, id)
}

func (r *PostgresRepository) MarkVerified(ctx context.Context, id int64) error {
	query := `UPDATE account SET is_verified = TRUE, failed_otp_attempts = 0, updated_at = now() WHERE id = $1`
	return r.execOne(ctx, query, id)
}

func (r *PostgresRepository) UpdateUsername(ctx context.Context, id int64, username string) error {
	query := `UPDATE account SET username = $2, updated_at = now() WHERE id = $1`
	return r.execOne(ctx, query, id, username)
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id int64, salt, hash string) error {
	query := `UPDATE account SET hash_salt = $2, hashed_password = $3, updated_at = now() WHERE id = $1`
	return r.execOne(ctx, query, id, salt, hash)
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM account WHERE id = $1`
	return r.execOne(ctx, query, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.Account, error) {
	a := &models.Account{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&a.ID, &a.Username, &a.HashedPassword, &a.HashSalt, &a.IsVerified, &a.IsActive, &a.IsLoggedIn,
		&a.FailedLoginAttempts, &a.FailedOTPAttempts, &a.BanUntil, &a.DeviceUUID,
		&a.Profile.Email, &a.Profile.FirstName, &a.Profile.LastName, &a.Profile.County, &a.Profile.Sex, &a.Profile.FCMToken,
		&a.CreatedAt, &a.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return a, nil
}

func (r *PostgresRepository) returnCounter(ctx context.Context, query string, id int64) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapWriteError(err)
	}
	return dbx.RequireOneRow(res)
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return common.ErrorAlreadyExists
	}
	return fmt.Errorf("db error: %w", err)
}
