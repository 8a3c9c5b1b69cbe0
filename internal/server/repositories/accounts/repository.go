package accounts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository is the row-level access to the account table. Methods that
// target a single account return common.ErrorNotFound when it is absent.
type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	// GetByUsernameForUpdate locks the row until the surrounding transaction ends.
	GetByUsernameForUpdate(ctx context.Context, username string) (*models.Account, error)
	UsernameExists(ctx context.Context, username string) (bool, error)

	IncrementFailedLogins(ctx context.Context, id int64) (int, error)
	SetBanUntil(ctx context.Context, id int64, until time.Time) error
	RecordLoginSuccess(ctx context.Context, id int64) error
	ResetLockout(ctx context.Context, id int64) error

	IncrementFailedOTP(ctx context.Context, id int64) (int, error)
	MarkVerified(ctx context.Context, id int64) error

	UpdateUsername(ctx context.Context, id int64, username string) error
	UpdatePassword(ctx context.Context, id int64, salt, hash string) error
	Delete(ctx context.Context, id int64) error
}
