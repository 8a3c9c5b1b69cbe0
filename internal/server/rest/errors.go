package rest

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

// APIError is the error body of every failed request.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Details    any    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// WithMessage returns a copy of the error with a custom message.
func (e *APIError) WithMessage(message string) *APIError {
	return &APIError{Code: e.Code, Message: message, StatusCode: e.StatusCode, Details: e.Details}
}

// WithDetails returns a copy of the error with additional details.
func (e *APIError) WithDetails(details any) *APIError {
	return &APIError{Code: e.Code, Message: e.Message, StatusCode: e.StatusCode, Details: details}
}

var (
	ErrBadRequest = &APIError{
		Code:       "bad_request",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}
	ErrValidation = &APIError{
		Code:       "validation_error",
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
	}
	ErrBadUsername = &APIError{
		Code:       "bad_username",
		Message:    "Username is not available",
		StatusCode: http.StatusBadRequest,
	}
	ErrInvalidOTP = &APIError{
		Code:       "invalid_otp",
		Message:    "Invalid or expired OTP",
		StatusCode: http.StatusBadRequest,
	}
	ErrInvalidCredentials = &APIError{
		Code:       "invalid_credentials",
		Message:    "Invalid username or password",
		StatusCode: http.StatusUnauthorized,
	}
	ErrUnauthorized = &APIError{
		Code:       "unauthorized",
		Message:    "Could not validate credentials",
		StatusCode: http.StatusUnauthorized,
	}
	ErrDeviceMismatch = &APIError{
		Code:       "device_mismatch",
		Message:    "Login from an unrecognised device",
		StatusCode: http.StatusForbidden,
	}
	ErrNotFound = &APIError{
		Code:       "not_found",
		Message:    "Account not found",
		StatusCode: http.StatusNotFound,
	}
	ErrConflict = &APIError{
		Code:       "conflict",
		Message:    "Account already exists",
		StatusCode: http.StatusConflict,
	}
	ErrLocked = &APIError{
		Code:       "account_locked",
		Message:    "Account is locked, try again later",
		StatusCode: http.StatusLocked,
	}
	ErrRateLimited = &APIError{
		Code:       "rate_limited",
		Message:    "Too many requests. Please try again later.",
		StatusCode: http.StatusTooManyRequests,
	}
	ErrInternal = &APIError{
		Code:       "internal_error",
		Message:    "An internal error occurred",
		StatusCode: http.StatusInternalServerError,
	}
	ErrServiceUnavailable = &APIError{
		Code:       "service_unavailable",
		Message:    "Service temporarily unavailable",
		StatusCode: http.StatusServiceUnavailable,
	}
)

// AsAPIError maps service errors onto API errors. Unknown errors become
// ErrInternal so that no internal detail leaks to the client.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, common.ErrorValidation):
		return ErrValidation.WithMessage(err.Error())
	case errors.Is(err, common.ErrorBadUsername):
		return ErrBadUsername
	case errors.Is(err, common.ErrorInvalidOTP):
		return ErrInvalidOTP
	case errors.Is(err, common.ErrorInvalidCredentials):
		return ErrInvalidCredentials
	case errors.Is(err, common.ErrorUnauthorized):
		return ErrUnauthorized
	case errors.Is(err, common.ErrorDeviceMismatch):
		return ErrDeviceMismatch
	case errors.Is(err, common.ErrorNotFound):
		return ErrNotFound
	case errors.Is(err, common.ErrorAlreadyExists):
		return ErrConflict
	case errors.Is(err, common.ErrorLocked):
		return ErrLocked
	default:
		return ErrInternal
	}
}
