// Package repomanager vends repository implementations bound to a database
// handle and runs the embedded schema migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/cache"
	"github.com/dmitrijs2005/gophauth/internal/server/migrations"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/otps"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed account repositories.
// OTPs live in Redis when a client is configured and in the otp table
// otherwise.
type PostgresRepositoryManager struct {
	redis *cache.Redis
}

func (m *PostgresRepositoryManager) Accounts(db dbx.DBTX) accounts.Repository {
	return accounts.NewPostgresRepository(db)
}

// OTPs ignores db when pending codes are kept in Redis.
func (m *PostgresRepositoryManager) OTPs(db dbx.DBTX) otps.Repository {
	if m.redis != nil {
		return otps.NewRedisRepository(m.redis)
	}
	return otps.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

// NewPostgresRepositoryManager constructs the manager. A nil redis selects
// the PostgreSQL OTP store.
func NewPostgresRepositoryManager(redis *cache.Redis) RepositoryManager {
	return &PostgresRepositoryManager{redis: redis}
}
