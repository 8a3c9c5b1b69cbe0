package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Signup prompts for a phone number and password and creates an account
// bound to this device.
func (a *App) Signup(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter phone number", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword("Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	acc, err := a.api.Signup(ctx, userName, string(password), a.deviceID)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Account %d created. Request an OTP with 'otp' to verify it.\n", acc.ID)
	return nil
}

// Login authenticates from this device and keeps the returned session.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter phone number", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword("Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	s, err := a.api.Signin(ctx, userName, string(password), a.deviceID)
	if err != nil {
		return err
	}

	a.userName = s.Account.AuthorizedAccount.Username
	a.accountID = s.Account.ID
	a.setMode(ModeOnline)

	fmt.Fprintln(a.out, "Login successful")
	return nil
}

// Logout forgets the session token. Tokens are not revoked server-side.
func (a *App) Logout(ctx context.Context) error {
	a.api.SetToken("")
	a.userName = ""
	a.accountID = 0
	fmt.Fprintln(a.out, "Logged out")
	return nil
}
