// Package services contains server-side business logic: account storage
// with the lockout policy, one-time passwords and the authentication flows
// built on top of them.
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

var usernamePattern = regexp.MustCompile(`^(254|0)?(7|1)\d{8}$`)

// ValidateUsername reports whether username looks like a Kenyan mobile
// number, with or without the 0 / 254 prefix.
func ValidateUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// Session is the result of a successful login.
type Session struct {
	AccessToken string
	TokenType   string
	Account     *models.Account
}

// AuthService exposes the authentication flows. Its errors are the boundary
// classes of package common; storage failures are logged and reported as
// common.ErrorInternal.
type AuthService struct {
	accounts       *AccountService
	otps           *OTPService
	tokens         *auth.TokenIssuer
	sender         Sender
	logger         logging.Logger
	accessTokenTTL time.Duration
	otpMaxAttempts int
}

func NewAuthService(accounts *AccountService, otps *OTPService, tokens *auth.TokenIssuer, sender Sender, logger logging.Logger, cfg *config.Config) *AuthService {
	return &AuthService{
		accounts:       accounts,
		otps:           otps,
		tokens:         tokens,
		sender:         sender,
		logger:         logger,
		accessTokenTTL: cfg.AccessTokenValidityDuration,
		otpMaxAttempts: cfg.OTPMaxAttempts,
	}
}

// Signup registers a new account bound to deviceID.
func (s *AuthService) Signup(ctx context.Context, username, password, deviceID string) (*models.Account, error) {
	if !ValidateUsername(username) {
		return nil, fmt.Errorf("%w: username must be a mobile number", common.ErrorValidation)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", common.ErrorValidation)
	}
	if deviceID == "" {
		return nil, fmt.Errorf("%w: device id is required", common.ErrorValidation)
	}

	a, err := s.accounts.Create(ctx, username, password, deviceID)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorBadUsername
		}
		return nil, s.internal(ctx, "signup failed", err)
	}

	s.logger.Info(ctx, "account created", "account_id", a.ID)
	return a, nil
}

// Login authenticates and issues an access token. Unknown usernames and
// wrong passwords are reported alike as common.ErrorInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password, deviceID string) (*Session, error) {
	a, err := s.accounts.Authenticate(ctx, username, password, deviceID)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorNotFound), errors.Is(err, common.ErrorCredentialMismatch):
			return nil, common.ErrorInvalidCredentials
		case errors.Is(err, common.ErrorLocked):
			s.logger.Warn(ctx, "login rejected, account locked", "username", username)
			return nil, common.ErrorLocked
		case errors.Is(err, common.ErrorDeviceMismatch):
			s.logger.Warn(ctx, "login rejected, unknown device", "username", username)
			return nil, common.ErrorDeviceMismatch
		default:
			return nil, s.internal(ctx, "login failed", err)
		}
	}

	token, err := s.tokens.Issue(a.Username, s.accessTokenTTL)
	if err != nil {
		return nil, s.internal(ctx, "token issue failed", err)
	}

	return &Session{AccessToken: token, TokenType: common.TokenType, Account: a}, nil
}

// VerifySession returns the username of a valid token. Every failure is
// common.ErrorUnauthorized.
func (s *AuthService) VerifySession(token string) (string, error) {
	username, err := s.tokens.Validate(token)
	if err != nil {
		return "", common.ErrorUnauthorized
	}
	return username, nil
}

// GetAccountByToken resolves the account owning token.
func (s *AuthService) GetAccountByToken(ctx context.Context, token string) (*models.Account, error) {
	username, err := s.VerifySession(token)
	if err != nil {
		return nil, err
	}

	a, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, s.internal(ctx, "account lookup failed", err)
	}
	return a, nil
}

// UpdateAccount changes username and/or password of account id, which must
// belong to the token owner.
func (s *AuthService) UpdateAccount(ctx context.Context, token string, id int64, u AccountUpdate) (*models.Account, error) {
	owner, err := s.owner(ctx, token, id)
	if err != nil {
		return nil, err
	}

	if u.Username != nil && !ValidateUsername(*u.Username) {
		return nil, fmt.Errorf("%w: username must be a mobile number", common.ErrorValidation)
	}
	if u.Password != nil && *u.Password == "" {
		return nil, fmt.Errorf("%w: password must not be empty", common.ErrorValidation)
	}

	if u.Username != nil && *u.Username != owner.Username {
		if _, err := s.accounts.IsUsernameTaken(ctx, *u.Username); err != nil {
			if errors.Is(err, common.ErrorAlreadyExists) {
				return nil, common.ErrorBadUsername
			}
			return nil, s.internal(ctx, "username check failed", err)
		}
	}

	a, err := s.accounts.Update(ctx, id, u)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorAlreadyExists):
			return nil, common.ErrorBadUsername
		case errors.Is(err, common.ErrorNotFound):
			return nil, common.ErrorNotFound
		default:
			return nil, s.internal(ctx, "account update failed", err)
		}
	}
	return a, nil
}

// DeleteAccount removes account id, which must belong to the token owner.
func (s *AuthService) DeleteAccount(ctx context.Context, token string, id int64) error {
	if _, err := s.owner(ctx, token, id); err != nil {
		return err
	}

	if err := s.accounts.Delete(ctx, id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return s.internal(ctx, "account delete failed", err)
	}

	s.logger.Info(ctx, "account deleted", "account_id", id)
	return nil
}

// ChangePassword sets a new password with a new salt.
func (s *AuthService) ChangePassword(ctx context.Context, id int64, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: password must not be empty", common.ErrorValidation)
	}
	if err := s.accounts.ChangePassword(ctx, id, newPassword); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return s.internal(ctx, "password change failed", err)
	}
	return nil
}

// RequestOTP issues a code for username. Unknown usernames succeed without
// sending anything.
func (s *AuthService) RequestOTP(ctx context.Context, username string) error {
	a, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Debug(ctx, "otp requested for unknown username")
			return nil
		}
		return s.internal(ctx, "account lookup failed", err)
	}

	code, err := s.otps.Generate()
	if err != nil {
		return s.internal(ctx, "otp generation failed", err)
	}
	if err := s.otps.Store(ctx, a.ID, code); err != nil {
		return s.internal(ctx, "otp store failed", err)
	}
	if err := s.sender.Send(ctx, a.Username, code); err != nil {
		return s.internal(ctx, "otp delivery failed", err)
	}
	return nil
}

// VerifyOTP consumes the pending code and marks the account verified.
func (s *AuthService) VerifyOTP(ctx context.Context, username, code string) error {
	a, err := s.consumeOTP(ctx, username, code)
	if err != nil {
		return err
	}
	if err := s.accounts.MarkVerified(ctx, a.ID); err != nil {
		return s.internal(ctx, "mark verified failed", err)
	}
	return nil
}

// ResetPassword sets a new password after a successful OTP check and lifts
// any lockout.
func (s *AuthService) ResetPassword(ctx context.Context, username, code, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: password must not be empty", common.ErrorValidation)
	}

	a, err := s.consumeOTP(ctx, username, code)
	if err != nil {
		return err
	}

	if err := s.accounts.ResetPassword(ctx, a.ID, newPassword); err != nil {
		return s.internal(ctx, "password reset failed", err)
	}

	s.logger.Info(ctx, "password reset", "account_id", a.ID)
	return nil
}

func (s *AuthService) consumeOTP(ctx context.Context, username, code string) (*models.Account, error) {
	a, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorInvalidOTP
		}
		return nil, s.internal(ctx, "account lookup failed", err)
	}

	ok, err := s.otps.Verify(ctx, a.ID, code)
	if err != nil {
		return nil, s.internal(ctx, "otp verification failed", err)
	}
	if ok {
		return a, nil
	}

	n, err := s.accounts.RecordOTPFailure(ctx, a.ID)
	if err != nil {
		return nil, s.internal(ctx, "otp failure accounting failed", err)
	}
	if n >= s.otpMaxAttempts {
		if err := s.otps.Discard(ctx, a.ID); err != nil {
			return nil, s.internal(ctx, "otp discard failed", err)
		}
		s.logger.Warn(ctx, "pending otp discarded after repeated failures", "account_id", a.ID)
	}
	return nil, common.ErrorInvalidOTP
}

func (s *AuthService) owner(ctx context.Context, token string, id int64) (*models.Account, error) {
	a, err := s.GetAccountByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if a.ID != id {
		return nil, common.ErrorUnauthorized
	}
	return a, nil
}

func (s *AuthService) internal(ctx context.Context, msg string, err error) error {
	s.logger.Error(ctx, msg, "error", err)
	return common.ErrorInternal
}
