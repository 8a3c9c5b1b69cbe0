// Package common defines sentinel errors, header names and small helpers
// shared by the server and the client. Callers should use errors.Is to
// match the error values.
package common

import "errors"

var (

	// repository specific errors
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// account authentication outcomes
	ErrorCredentialMismatch = errors.New("credential mismatch")
	ErrorDeviceMismatch     = errors.New("device mismatch")
	ErrorLocked             = errors.New("account locked")

	// token errors
	ErrTokenExpired     = errors.New("token expired")
	ErrMalformedToken   = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid token signature")

	// service specific errors
	ErrorInternal           = errors.New("internal error")
	ErrorUnauthorized       = errors.New("unauthorized")
	ErrorValidation         = errors.New("validation error")
	ErrorInvalidCredentials = errors.New("invalid username or password")
	ErrorBadUsername        = errors.New("username is not available")
	ErrorInvalidOTP         = errors.New("invalid or expired otp")
)
