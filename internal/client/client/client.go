package client

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/client/models"
)

// Client is the API surface the CLI relies on.
type Client interface {
	Ping(ctx context.Context) error
	Signup(ctx context.Context, username, password, deviceID string) (*models.AccountInResponse, error)
	Signin(ctx context.Context, username, password, deviceID string) (*models.Session, error)
	RequestOTP(ctx context.Context, username string) error
	VerifyOTP(ctx context.Context, username, otp string) error
	ResetPassword(ctx context.Context, username, otp, newPassword string) error
	Me(ctx context.Context) (*models.AccountInResponse, error)
	UpdateAccount(ctx context.Context, id int64, update models.AccountUpdate) (*models.AccountInResponse, error)
	DeleteAccount(ctx context.Context, id int64) (string, error)
	SetToken(token string)
	Token() string
}
