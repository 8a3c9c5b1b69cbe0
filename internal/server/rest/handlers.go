// Package rest is the HTTP transport of the server: routing, middleware,
// request validation and the JSON envelope.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// AuthAPI is the part of services.AuthService the handlers use.
type AuthAPI interface {
	Signup(ctx context.Context, username, password, deviceID string) (*models.Account, error)
	Login(ctx context.Context, username, password, deviceID string) (*services.Session, error)
	VerifySession(token string) (string, error)
	GetAccountByToken(ctx context.Context, token string) (*models.Account, error)
	UpdateAccount(ctx context.Context, token string, id int64, u services.AccountUpdate) (*models.Account, error)
	DeleteAccount(ctx context.Context, token string, id int64) error
	RequestOTP(ctx context.Context, username string) error
	VerifyOTP(ctx context.Context, username, code string) error
	ResetPassword(ctx context.Context, username, code, newPassword string) error
}

// Checker reports whether a dependency is usable.
type Checker func(ctx context.Context) error

type Handler struct {
	auth     AuthAPI
	metrics  *metrics.Metrics
	logger   logging.Logger
	checks   map[string]Checker
	validate *validator.Validate
}

func NewHandler(auth AuthAPI, m *metrics.Metrics, logger logging.Logger, checks map[string]Checker) *Handler {
	return &Handler{
		auth:     auth,
		metrics:  m,
		logger:   logger.With("module", "rest"),
		checks:   checks,
		validate: newValidator(),
	}
}

// decode reads a JSON body into dst and validates it. It writes the error
// response itself and reports whether the handler may go on.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		Error(w, ErrBadRequest.WithMessage("Invalid request body"))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		Error(w, validationError(err))
		return false
	}
	return true
}

// Signup handles POST /api/v1/auth/signup
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !h.decode(w, r, &req) {
		return
	}

	a, err := h.auth.Signup(r.Context(), req.Username, req.Password, req.DeviceID)
	if err != nil {
		Error(w, err)
		return
	}
	Created(w, toAccountResponse(a, ""))
}

// Signin handles POST /api/v1/auth/signin
func (h *Handler) Signin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if !h.decode(w, r, &req) {
		return
	}

	s, err := h.auth.Login(r.Context(), req.Username, req.Password, req.DeviceID)
	h.metrics.Login(loginOutcome(err))
	if err != nil {
		Error(w, err)
		return
	}
	OK(w, toSessionResponse(s))
}

func loginOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.LoginSuccess
	case errors.Is(err, common.ErrorInvalidCredentials):
		return metrics.LoginInvalid
	case errors.Is(err, common.ErrorLocked):
		return metrics.LoginLocked
	case errors.Is(err, common.ErrorDeviceMismatch):
		return metrics.LoginDeviceMismatch
	default:
		return metrics.LoginError
	}
}

// RequestOTP handles POST /api/v1/auth/otp
func (h *Handler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req OTPRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.auth.RequestOTP(r.Context(), req.Username); err != nil {
		Error(w, err)
		return
	}
	h.metrics.OTP(metrics.OTPIssued)
	Accepted(w, NotificationResponse{Notification: "If the account exists an OTP has been sent"})
}

// VerifyOTP handles POST /api/v1/auth/otp/verify
func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req OTPVerificationRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.auth.VerifyOTP(r.Context(), req.Username, req.OTP); err != nil {
		h.otpFailure(err)
		Error(w, err)
		return
	}
	h.metrics.OTP(metrics.OTPVerified)
	OK(w, NotificationResponse{Notification: "Account verified"})
}

// ResetPassword handles POST /api/v1/auth/password-reset
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.auth.ResetPassword(r.Context(), req.Username, req.OTP, req.NewPassword); err != nil {
		h.otpFailure(err)
		Error(w, err)
		return
	}
	h.metrics.OTP(metrics.OTPVerified)
	OK(w, NotificationResponse{Notification: "Password has been reset"})
}

func (h *Handler) otpFailure(err error) {
	if errors.Is(err, common.ErrorInvalidOTP) {
		h.metrics.OTP(metrics.OTPRejected)
	}
}

// GetAccount handles GET /api/v1/accounts/
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	token := AccessToken(r.Context())

	a, err := h.auth.GetAccountByToken(r.Context(), token)
	if err != nil {
		Error(w, err)
		return
	}
	OK(w, toAccountResponse(a, token))
}

// UpdateAccount handles PATCH /api/v1/accounts/{id}
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}

	var req AccountUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}

	token := AccessToken(r.Context())
	a, err := h.auth.UpdateAccount(r.Context(), token, id, services.AccountUpdate{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		Error(w, err)
		return
	}
	OK(w, toAccountResponse(a, ""))
}

// DeleteAccount handles DELETE /api/v1/accounts/{id}
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}

	if err := h.auth.DeleteAccount(r.Context(), AccessToken(r.Context()), id); err != nil {
		Error(w, err)
		return
	}
	OK(w, NotificationResponse{Notification: "Account with id '" + strconv.FormatInt(id, 10) + "' is successfully deleted!"})
}

func accountID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		Error(w, ErrBadRequest.WithMessage("Invalid account id"))
		return 0, false
	}
	return id, true
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	OK(w, HealthResponse{Status: "ok"})
}

// Ready handles GET /ready; it fails while any dependency check fails.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Warn(ctx, "readiness check failed", "check", name, "error", err)
			resp.Checks[name] = "unavailable"
			resp.Status = "unavailable"
			continue
		}
		resp.Checks[name] = "ok"
	}

	if resp.Status != "ok" {
		JSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	OK(w, resp)
}
