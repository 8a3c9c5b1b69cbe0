package rest

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/go-playground/validator/v10"
)

type SignupRequest struct {
	Username string `json:"username" validate:"required,phone"`
	Password string `json:"password" validate:"required"`
	DeviceID string `json:"deviceId" validate:"required,max=128"`
}

type SigninRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	DeviceID string `json:"deviceId" validate:"required,max=128"`
}

type OTPRequest struct {
	Username string `json:"username" validate:"required"`
}

type OTPVerificationRequest struct {
	Username string `json:"username" validate:"required"`
	OTP      string `json:"otp" validate:"required,numeric"`
}

type PasswordResetRequest struct {
	Username    string `json:"username" validate:"required"`
	OTP         string `json:"otp" validate:"required,numeric"`
	NewPassword string `json:"newPassword" validate:"required"`
}

type AccountUpdateRequest struct {
	Username *string `json:"username,omitempty" validate:"omitnil,phone"`
	Password *string `json:"password,omitempty" validate:"omitnil,min=1"`
}

type AccountWithToken struct {
	Token      string     `json:"token,omitempty"`
	Username   string     `json:"username"`
	IsVerified bool       `json:"isVerified"`
	IsActive   bool       `json:"isActive"`
	IsLoggedIn bool       `json:"isLoggedIn"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  *time.Time `json:"updatedAt"`
}

type AccountInResponse struct {
	ID                int64            `json:"id"`
	AuthorizedAccount AccountWithToken `json:"authorizedAccount"`
}

type SessionResponse struct {
	AccessToken string            `json:"accessToken"`
	TokenType   string            `json:"tokenType"`
	Account     AccountInResponse `json:"account"`
}

type NotificationResponse struct {
	Notification string `json:"notification"`
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func toAccountResponse(a *models.Account, token string) AccountInResponse {
	return AccountInResponse{
		ID: a.ID,
		AuthorizedAccount: AccountWithToken{
			Token:      token,
			Username:   a.Username,
			IsVerified: a.IsVerified,
			IsActive:   a.IsActive,
			IsLoggedIn: a.IsLoggedIn,
			CreatedAt:  a.CreatedAt,
			UpdatedAt:  a.UpdatedAt,
		},
	}
}

func toSessionResponse(s *services.Session) SessionResponse {
	return SessionResponse{
		AccessToken: s.AccessToken,
		TokenType:   s.TokenType,
		Account:     toAccountResponse(s.Account, s.AccessToken),
	}
}

// newValidator returns a validator that knows the phone tag and reports
// fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return services.ValidateUsername(fl.Field().String())
	})
	return v
}

// validationError converts validator output into ErrValidation with
// per-field details.
func validationError(err error) *APIError {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return ErrBadRequest.WithMessage(err.Error())
	}

	details := make(map[string]string, len(ve))
	for _, fe := range ve {
		switch fe.Tag() {
		case "required":
			details[fe.Field()] = fmt.Sprintf("%s is required", fe.Field())
		case "phone":
			details[fe.Field()] = fmt.Sprintf("%s must be a mobile number", fe.Field())
		case "numeric":
			details[fe.Field()] = fmt.Sprintf("%s must contain digits only", fe.Field())
		default:
			details[fe.Field()] = fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag())
		}
	}
	return ErrValidation.WithDetails(details)
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}
