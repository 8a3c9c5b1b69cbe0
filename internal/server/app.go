// Package server wires configuration, storage, services and transports into
// a runnable authentication server and manages its lifecycle.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/cache"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/otps"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/rest"
	"github.com/dmitrijs2005/gophauth/internal/server/services"

	gs "github.com/dmitrijs2005/gophauth/internal/server/grpc"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const otpJanitorInterval = time.Minute

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	redis   *cache.Redis
	metrics *metrics.Metrics
	auth    *services.AuthService
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	redis, err := cache.NewRedis(ctx, c.RedisAddr, c.RedisPassword, c.RedisDB)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("redis init error: %w", err)
	}

	var otpStore *cache.Redis
	if c.OTPBackend == config.OTPBackendRedis {
		otpStore = redis
	}
	rm := repomanager.NewPostgresRepositoryManager(otpStore)

	if c.MigrateOnStart {
		if err := rm.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			_ = redis.Close()
			return nil, fmt.Errorf("migration error: %w", err)
		}
	}

	tokens, err := auth.NewTokenIssuer(c.SecretKey, c.JWTAlgorithm, c.JWTSubject)
	if err != nil {
		_ = db.Close()
		_ = redis.Close()
		return nil, err
	}

	accounts := services.NewAccountService(db, rm, auth.NewPasswordHasher(), c)
	otpService := services.NewOTPService(db, rm, c)
	as := services.NewAuthService(accounts, otpService, tokens, services.NewLogSender(logger), logger, c)

	return &App{config: c, logger: logger, db: db, redis: redis, metrics: metrics.New(), auth: as}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) checks() map[string]func(ctx context.Context) error {
	return map[string]func(ctx context.Context) error{
		"postgres": app.db.PingContext,
		"redis":    app.redis.Ping,
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) error {
	key, err := app.config.BodyEncryptionKeyBytes()
	if err != nil {
		return err
	}

	checks := map[string]rest.Checker{}
	for name, fn := range app.checks() {
		checks[name] = fn
	}

	h := rest.NewHandler(app.auth, app.metrics, app.logger, checks)
	router := rest.NewRouter(h, app.metrics, app.logger, rest.Options{
		AllowedOrigins: app.config.AllowedOrigins,
		RateLimiter:    app.redis,
		RateLimit: rest.RateLimitConfig{
			RequestsPerMinute: app.config.RateLimitPerMinute,
			BurstSize:         app.config.RateLimitBurst,
		},
		BodyEncryptionKey: key,
	})

	s := rest.NewServer(app.config.EndpointAddrHTTP, router, app.logger)
	if err := s.Run(ctx); err != nil {
		cancelFunc()
		return err
	}
	return nil
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) error {
	checks := map[string]gs.Checker{}
	for name, fn := range app.checks() {
		checks[name] = fn
	}

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, checks)
	if err := s.Run(ctx); err != nil {
		cancelFunc()
		return err
	}
	return nil
}

// runOTPJanitor removes expired codes from the otp table. Redis expires its
// keys on its own.
func (app *App) runOTPJanitor(ctx context.Context) {
	repo := otps.NewPostgresRepository(app.db)
	ticker := time.NewTicker(otpJanitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.DeleteExpired(ctx)
			if err != nil {
				app.logger.Warn(ctx, "otp sweep failed", "error", err)
				continue
			}
			if n > 0 {
				app.logger.Debug(ctx, "expired otps removed", "count", n)
			}
		}
	}
}

// Run blocks until a termination signal arrives or a server fails, then
// releases the database and Redis connections.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.startHTTPServer(ctx, cancelFunc); err != nil {
			app.logger.Error(ctx, "http server failed", "error", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.startGRPCServer(ctx, cancelFunc); err != nil {
			app.logger.Error(ctx, "grpc server failed", "error", err)
		}
	}()

	if app.config.OTPBackend == config.OTPBackendPostgres {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.runOTPJanitor(ctx)
		}()
	}

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close failed", "error", err)
	}
	if err := app.redis.Close(); err != nil {
		app.logger.Error(ctx, "redis close failed", "error", err)
	}

	app.logger.Info(ctx, "App stopped")
}
