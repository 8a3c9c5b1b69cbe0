package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

// askUsername uses the logged in username when there is one.
func (a *App) askUsername() (string, error) {
	if a.userName != "" {
		return a.userName, nil
	}
	return getSimpleText(a.reader, "Enter phone number", a.out)
}

func (a *App) RequestOTP(ctx context.Context) error {
	userName, err := a.askUsername()
	if err != nil {
		return err
	}

	if err := a.api.RequestOTP(ctx, userName); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "If the account exists a one-time password has been sent")
	return nil
}

// Verify confirms account ownership with a one-time password.
func (a *App) Verify(ctx context.Context) error {
	userName, err := a.askUsername()
	if err != nil {
		return err
	}

	otp, err := getSimpleText(a.reader, "Enter one-time password", a.out)
	if err != nil {
		return err
	}

	if err := a.api.VerifyOTP(ctx, userName, otp); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Account verified")
	return nil
}

// Reset sets a new password with a one-time password and lifts a lockout.
func (a *App) Reset(ctx context.Context) error {
	userName, err := a.askUsername()
	if err != nil {
		return err
	}

	otp, err := getSimpleText(a.reader, "Enter one-time password", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword("Enter new password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.api.ResetPassword(ctx, userName, otp, string(password)); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Password has been reset, you can log in now")
	return nil
}
