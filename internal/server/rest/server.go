package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/cache"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

const shutdownTimeout = 10 * time.Second

// Options tune the router.
//   - RateLimiter: nil disables rate limiting of the /auth routes.
//   - BodyEncryptionKey: nil rejects encrypted bodies.
type Options struct {
	AllowedOrigins    []string
	RateLimiter       *cache.Redis
	RateLimit         RateLimitConfig
	BodyEncryptionKey []byte
	RequestTimeout    time.Duration
}

// NewRouter mounts the API under /api/v1 next to the health and metrics
// endpoints.
func NewRouter(h *Handler, m *metrics.Metrics, logger logging.Logger, o Options) http.Handler {
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Correlation)
	r.Use(AccessLog(logger, m))
	r.Use(chimiddleware.Recoverer)
	r.Use(CORS(o.AllowedOrigins))
	r.Use(chimiddleware.Timeout(o.RequestTimeout))

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", m.Handler())

	limited := func(next http.Handler) http.Handler { return next }
	if o.RateLimiter != nil {
		limited = RateLimit(o.RateLimiter, o.RateLimit, m, logger)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(BodyEncryption(o.BodyEncryptionKey))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", h.Signup)
			r.Group(func(r chi.Router) {
				r.Use(limited)
				r.Post("/signin", h.Signin)
				r.Post("/otp", h.RequestOTP)
				r.Post("/otp/verify", h.VerifyOTP)
				r.Post("/password-reset", h.ResetPassword)
			})
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Use(RequireBearer(h.auth.VerifySession))
			r.Get("/", h.GetAccount)
			r.Patch("/{id}", h.UpdateAccount)
			r.Delete("/{id}", h.DeleteAccount)
		})
	})

	return r
}

type Server struct {
	address string
	handler http.Handler
	logger  logging.Logger
}

func NewServer(address string, handler http.Handler, logger logging.Logger) *Server {
	return &Server{address: address, handler: handler, logger: logger.With("module", "http_server")}
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}
