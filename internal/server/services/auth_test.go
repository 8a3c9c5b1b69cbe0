package services

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"0712345678", true},
		{"0112345678", true},
		{"254712345678", true},
		{"712345678", true},
		{"0812345678", false},
		{"07123456789", false},
		{"071234567", false},
		{"+254712345678", false},
		{"", false},
		{"07123456ab", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateUsername(tt.in))
		})
	}
}

func TestSignup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.auth.Signup(ctx, phone, "secret", device)
	require.NoError(t, err)
	assert.Equal(t, phone, a.Username)

	_, err = f.auth.Signup(ctx, phone, "secret", device)
	assert.ErrorIs(t, err, common.ErrorBadUsername)

	_, err = f.auth.Signup(ctx, "12345", "secret", device)
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = f.auth.Signup(ctx, "0798765432", "", device)
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = f.auth.Signup(ctx, "0798765432", "secret", "")
	assert.ErrorIs(t, err, common.ErrorValidation)

	f.repo.err = errBoom{}
	_, err = f.auth.Signup(ctx, "0798765432", "secret", device)
	assert.ErrorIs(t, err, common.ErrorInternal)
}

// Signup, two wrong passwords, a third that locks, then the right password
// still rejected until the password is reset through an OTP.
func TestLoginLockoutScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f.accounts.now = func() time.Time { return now }

	_, err := f.auth.Signup(ctx, phone, "secret", device)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		expectTx(f.mock, true)
		_, err = f.auth.Login(ctx, phone, "wrong", device)
		assert.ErrorIs(t, err, common.ErrorInvalidCredentials)
	}

	expectTx(f.mock, true)
	_, err = f.auth.Login(ctx, phone, "wrong", device)
	assert.ErrorIs(t, err, common.ErrorLocked)

	a := f.repo.snapshot(t, phone)
	require.NotNil(t, a.BanUntil)
	assert.True(t, a.BanUntil.Equal(now.Add(time.Hour)))

	expectTx(f.mock, false)
	_, err = f.auth.Login(ctx, phone, "secret", device)
	assert.ErrorIs(t, err, common.ErrorLocked)

	require.NoError(t, f.auth.RequestOTP(ctx, phone))
	expectTx(f.mock, true)
	require.NoError(t, f.auth.ResetPassword(ctx, phone, f.sender.last(phone), "n3w"))

	expectTx(f.mock, true)
	s, err := f.auth.Login(ctx, phone, "n3w", device)
	require.NoError(t, err)
	assert.Equal(t, common.TokenType, s.TokenType)

	username, err := f.auth.VerifySession(s.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, phone, username)

	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestLogin_Outcomes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.auth.Signup(ctx, phone, "secret", device)
	require.NoError(t, err)

	expectTx(f.mock, false)
	_, err = f.auth.Login(ctx, "0700000000", "secret", device)
	assert.ErrorIs(t, err, common.ErrorInvalidCredentials, "unknown username looks like a wrong password")

	expectTx(f.mock, false)
	_, err = f.auth.Login(ctx, phone, "secret", "dev-2")
	assert.ErrorIs(t, err, common.ErrorDeviceMismatch)

	f.repo.err = errBoom{}
	expectTx(f.mock, false)
	_, err = f.auth.Login(ctx, phone, "secret", device)
	assert.ErrorIs(t, err, common.ErrorInternal)

	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestVerifySession_CollapsesToUnauthorized(t *testing.T) {
	f := newFixture(t)

	expired, err := f.tokens.Issue(phone, -time.Minute)
	require.NoError(t, err)

	for _, tok := range []string{"", "garbage", expired, "a.b.c"} {
		_, err := f.auth.VerifySession(tok)
		assert.ErrorIs(t, err, common.ErrorUnauthorized)
	}
}

func TestGetAccountByToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.auth.Signup(ctx, phone, "secret", device)
	require.NoError(t, err)

	tok, err := f.tokens.Issue(phone, time.Hour)
	require.NoError(t, err)

	a, err := f.auth.GetAccountByToken(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, created.ID, a.ID)

	ghost, err := f.tokens.Issue("0700000000", time.Hour)
	require.NoError(t, err)
	_, err = f.auth.GetAccountByToken(ctx, ghost)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	f.repo.err = errBoom{}
	_, err = f.auth.GetAccountByToken(ctx, tok)
	assert.ErrorIs(t, err, common.ErrorInternal)
}

func TestUpdateAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	me, err := f.auth.Signup(ctx, phone, "secret", device)
	require.NoError(t, err)
	other, err := f.auth.Signup(ctx, "0799999999", "secret", device)
	require.NoError(t, err)

	tok, err := f.tokens.Issue(phone, time.Hour)
	require.NoError(t, err)

	renamed := "0711111111"
	_, err = f.auth.UpdateAccount(ctx, tok, other.ID, AccountUpdate{Username: &renamed})
	assert.ErrorIs(t, err, common.ErrorUnauthorized, "cannot touch somebody else's account")

	bad := "abc"
	_, err = f.auth.UpdateAccount(ctx, tok, me.ID, AccountUpdate{Username: &bad})
	assert.ErrorIs(t, err, common.ErrorValidation)

	empty := ""
	_, err = f.auth.UpdateAccount(ctx, tok, me.ID, AccountUpdate{Password: &empty})
	assert.ErrorIs(t, err, common.ErrorValidation)

	taken := "0799999999"
	_, err = f.auth.UpdateAccount(ctx, tok, me.ID, AccountUpdate{Username: &taken})
	assert.ErrorIs(t, err, common.ErrorBadUsername)

	expectTx(f.mock, true)
	a, err := f.auth.UpdateAccount(ctx, tok, me.ID, AccountUpdate{Username: &renamed})
	require.NoError(t, err)
	assert.Equal(t, renamed, a.Username)

	_, err = f.auth.UpdateAccount(ctx, tok, me.ID, AccountUpdate{Username: &renamed})
	assert.ErrorIs(t, err, common.ErrorUnauthorized, "token names the old username")

	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestDeleteAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	me, err := f.auth.Signup(ctx, phone, "secret", device)
	require.NoError(t, err)
	tok, err := f.tokens.Issue(phone, time.Hour)
	require.NoError(t, err)

	assert.ErrorIs(t, f.auth.DeleteAccount(ctx, tok, me.ID+1), common.ErrorUnauthorized)
	assert.ErrorIs(t, f.auth.DeleteAccount(ctx, "bad", me.ID), common.ErrorUnauthorized)

	require.NoError(t, f.auth.DeleteAccount(ctx, tok, me.ID))
	_, err = f.accounts.FindByID(ctx, me.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestAuthService_ChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	me, err := f.auth.Signup(ctx, phone, "secret", device)
	require.NoError(t, err)

	assert.ErrorIs(t, f.auth.ChangePassword(ctx, me.ID, ""), common.ErrorValidation)
	assert.ErrorIs(t, f.auth.ChangePassword(ctx, me.ID+1, "x"), common.ErrorNotFound)
	require.NoError(t, f.auth.ChangePassword(ctx, me.ID, "n3w"))

	expectTx(f.mock, true)
	_, err = f.auth.Login(ctx, phone, "n3w", device)
	require.NoError(t, err)
}

func TestRequestOTP(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	me, err := f.auth.Signup(ctx, phone, "secret", device)
	require.NoError(t, err)

	require.NoError(t, f.auth.RequestOTP(ctx, "0700000000"))
	assert.Empty(t, f.sender.last("0700000000"))

	require.NoError(t, f.auth.RequestOTP(ctx, phone))
	code := f.sender.last(phone)
	assert.Regexp(t, `^\d{6}$`, code)
	stored, err := f.mr.Get("otp:" + strconv.FormatInt(me.ID, 10))
	require.NoError(t, err)
	assert.Equal(t, code, stored)

	f.sender.err = errBoom{}
	assert.ErrorIs(t, f.auth.RequestOTP(ctx, phone), common.ErrorInternal)
}

func TestVerifyOTP(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.auth.Signup(ctx, phone, "secret", device)
	require.NoError(t, err)
	require.NoError(t, f.auth.RequestOTP(ctx, phone))
	code := f.sender.last(phone)

	assert.ErrorIs(t, f.auth.VerifyOTP(ctx, phone, "000000x"), common.ErrorInvalidOTP)
	assert.Equal(t, 1, f.repo.snapshot(t, phone).FailedOTPAttempts)

	require.NoError(t, f.auth.VerifyOTP(ctx, phone, code))
	a := f.repo.snapshot(t, phone)
	assert.True(t, a.IsVerified)
	assert.Zero(t, a.FailedOTPAttempts)

	assert.ErrorIs(t, f.auth.VerifyOTP(ctx, phone, code), common.ErrorInvalidOTP, "single use")
	assert.ErrorIs(t, f.auth.VerifyOTP(ctx, "0700000000", code), common.ErrorInvalidOTP)
}

func TestVerifyOTP_DiscardsAfterMaxAttempts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	me, err := f.auth.Signup(ctx, phone, "secret", device)
	require.NoError(t, err)
	require.NoError(t, f.auth.RequestOTP(ctx, phone))
	code := f.sender.last(phone)

	for i := 0; i < testConfig().OTPMaxAttempts; i++ {
		assert.ErrorIs(t, f.auth.VerifyOTP(ctx, phone, "wrong"), common.ErrorInvalidOTP)
	}
	assert.False(t, f.mr.Exists("otp:"+strconv.FormatInt(me.ID, 10)))
	assert.ErrorIs(t, f.auth.VerifyOTP(ctx, phone, code), common.ErrorInvalidOTP)
}

func TestVerifyOTP_ExpiredCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.auth.Signup(ctx, phone, "secret", device)
	require.NoError(t, err)
	require.NoError(t, f.auth.RequestOTP(ctx, phone))

	f.mr.FastForward(301 * time.Second)
	assert.ErrorIs(t, f.auth.VerifyOTP(ctx, phone, f.sender.last(phone)), common.ErrorInvalidOTP)
}

func TestResetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.auth.Signup(ctx, phone, "secret", device)
	require.NoError(t, err)

	assert.ErrorIs(t, f.auth.ResetPassword(ctx, phone, "123456", ""), common.ErrorValidation)
	assert.ErrorIs(t, f.auth.ResetPassword(ctx, phone, "123456", "n3w"), common.ErrorInvalidOTP)

	require.NoError(t, f.auth.RequestOTP(ctx, phone))
	expectTx(f.mock, true)
	require.NoError(t, f.auth.ResetPassword(ctx, phone, f.sender.last(phone), "n3w"))

	a := f.repo.snapshot(t, phone)
	assert.Zero(t, a.FailedOTPAttempts)
	assert.Zero(t, a.FailedLoginAttempts)
}
