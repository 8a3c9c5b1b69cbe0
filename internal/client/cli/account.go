package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/client/models"
	"github.com/dmitrijs2005/gophauth/internal/common"
)

func (a *App) Me(ctx context.Context) error {
	acc, err := a.api.Me(ctx)
	if err != nil {
		return err
	}
	a.accountID = acc.ID

	u := acc.AuthorizedAccount
	fmt.Fprintf(a.out, "id:        %d\n", acc.ID)
	fmt.Fprintf(a.out, "username:  %s\n", u.Username)
	fmt.Fprintf(a.out, "verified:  %t\n", u.IsVerified)
	fmt.Fprintf(a.out, "active:    %t\n", u.IsActive)
	fmt.Fprintf(a.out, "created:   %s\n", u.CreatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

// Passwd changes the password of the logged in account.
func (a *App) Passwd(ctx context.Context) error {
	if !a.isLoggedIn() {
		return client.ErrNotLoggedIn
	}

	password, err := getPassword("Enter new password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	p := string(password)
	if _, err := a.api.UpdateAccount(ctx, a.accountID, models.AccountUpdate{Password: &p}); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Password changed")
	return nil
}

// Rename changes the phone number of the logged in account. The session
// token names the old number, so the user is logged out afterwards.
func (a *App) Rename(ctx context.Context) error {
	if !a.isLoggedIn() {
		return client.ErrNotLoggedIn
	}

	userName, err := getSimpleText(a.reader, "Enter new phone number", a.out)
	if err != nil {
		return err
	}

	acc, err := a.api.UpdateAccount(ctx, a.accountID, models.AccountUpdate{Username: &userName})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Username changed to %s, please log in again\n", acc.AuthorizedAccount.Username)
	return a.Logout(ctx)
}

// Delete removes the logged in account after confirmation.
func (a *App) Delete(ctx context.Context) error {
	if !a.isLoggedIn() {
		return client.ErrNotLoggedIn
	}

	answer, err := getSimpleText(a.reader, "Type 'yes' to delete your account", a.out)
	if err != nil {
		return err
	}
	if !strings.EqualFold(answer, "yes") {
		fmt.Fprintln(a.out, "Cancelled")
		return nil
	}

	msg, err := a.api.DeleteAccount(ctx, a.accountID)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, msg)
	return a.Logout(ctx)
}
