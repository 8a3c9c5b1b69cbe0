package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
)

// Sender delivers a one-time password to the owner of username.
type Sender interface {
	Send(ctx context.Context, username, code string) error
}

// LogSender writes codes to the log instead of a message gateway.
type LogSender struct {
	logger logging.Logger
}

func NewLogSender(logger logging.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, username, code string) error {
	s.logger.Info(ctx, "otp issued", "username", username, "otp", code)
	return nil
}

// OTPService issues and checks single-use numeric codes.
type OTPService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	length      int
	ttl         time.Duration
}

func NewOTPService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *OTPService {
	return &OTPService{
		db:          db,
		repomanager: m,
		length:      cfg.OTPLength,
		ttl:         cfg.OTPValidityDuration,
	}
}

// Generate returns a fresh code of the configured length.
func (s *OTPService) Generate() (string, error) {
	code, err := common.MakeRandDigits(s.length)
	if err != nil {
		return "", fmt.Errorf("error generating otp: %w", err)
	}
	return code, nil
}

// Store replaces any pending code of userID.
func (s *OTPService) Store(ctx context.Context, userID int64, code string) error {
	return s.repomanager.OTPs(s.db).Store(ctx, userID, code, s.ttl)
}

// Verify consumes the pending code on a match. A wrong, expired or missing
// code yields false without an error.
func (s *OTPService) Verify(ctx context.Context, userID int64, code string) (bool, error) {
	if code == "" {
		return false, nil
	}
	return s.repomanager.OTPs(s.db).Consume(ctx, userID, code)
}

func (s *OTPService) Discard(ctx context.Context, userID int64) error {
	return s.repomanager.OTPs(s.db).Discard(ctx, userID)
}
