package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/dmitrijs2005/gophauth/internal/client/models"
)

type fakeClient struct {
	token string

	pingErr error

	signupArgs []string
	signupErr  error

	signinArgs []string
	session    *models.Session
	signinErr  error

	otpUser    string
	verifyArgs []string
	resetArgs  []string
	otpErr     error

	me      *models.AccountInResponse
	updates []models.AccountUpdate
	updID   int64
	deleted int64
	callErr error
}

func (f *fakeClient) Ping(context.Context) error { return f.pingErr }

func (f *fakeClient) Signup(_ context.Context, u, p, d string) (*models.AccountInResponse, error) {
	f.signupArgs = []string{u, p, d}
	if f.signupErr != nil {
		return nil, f.signupErr
	}
	return &models.AccountInResponse{ID: 1, AuthorizedAccount: models.Account{Username: u}}, nil
}

func (f *fakeClient) Signin(_ context.Context, u, p, d string) (*models.Session, error) {
	f.signinArgs = []string{u, p, d}
	if f.signinErr != nil {
		return nil, f.signinErr
	}
	f.token = f.session.AccessToken
	return f.session, nil
}

func (f *fakeClient) RequestOTP(_ context.Context, u string) error {
	f.otpUser = u
	return f.otpErr
}

func (f *fakeClient) VerifyOTP(_ context.Context, u, otp string) error {
	f.verifyArgs = []string{u, otp}
	return f.otpErr
}

func (f *fakeClient) ResetPassword(_ context.Context, u, otp, pw string) error {
	f.resetArgs = []string{u, otp, pw}
	return f.otpErr
}

func (f *fakeClient) Me(context.Context) (*models.AccountInResponse, error) {
	return f.me, f.callErr
}

func (f *fakeClient) UpdateAccount(_ context.Context, id int64, u models.AccountUpdate) (*models.AccountInResponse, error) {
	f.updID = id
	f.updates = append(f.updates, u)
	if f.callErr != nil {
		return nil, f.callErr
	}
	name := "0712345678"
	if u.Username != nil {
		name = *u.Username
	}
	return &models.AccountInResponse{ID: id, AuthorizedAccount: models.Account{Username: name}}, nil
}

func (f *fakeClient) DeleteAccount(_ context.Context, id int64) (string, error) {
	f.deleted = id
	return "deleted", f.callErr
}

func (f *fakeClient) SetToken(t string) { f.token = t }
func (f *fakeClient) Token() string     { return f.token }

// stubInputs feeds text prompts from texts in order and answers every
// password prompt with password.
func stubInputs(t *testing.T, texts []string, password string) {
	t.Helper()
	origST, origGP := getSimpleText, getPassword
	i := 0
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) {
		if i >= len(texts) {
			return "", io.EOF
		}
		i++
		return texts[i-1], nil
	}
	getPassword = func(string, io.Writer) ([]byte, error) { return []byte(password), nil }
	t.Cleanup(func() {
		getSimpleText = origST
		getPassword = origGP
	})
}

func newTestApp(f *fakeClient) (*App, *bytes.Buffer) {
	var out bytes.Buffer
	return &App{api: f, deviceID: "dev-1", out: &out, reader: bufio.NewReader(strings.NewReader(""))}, &out
}
