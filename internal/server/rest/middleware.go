package rest

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/cache"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
)

type ctxKey string

const (
	tokenKey    ctxKey = "access_token"
	usernameKey ctxKey = "username"
)

// AccessToken returns the bearer token accepted by RequireBearer.
func AccessToken(ctx context.Context) string {
	v, _ := ctx.Value(tokenKey).(string)
	return v
}

// SessionUsername returns the username of the accepted bearer token.
func SessionUsername(ctx context.Context) string {
	v, _ := ctx.Value(usernameKey).(string)
	return v
}

// Correlation propagates X-Correlation-ID, generating one when the client
// sent none, and stores it for the logger.
func Correlation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(common.CorrelationIDHeaderName)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(common.CorrelationIDHeaderName, id)
		next.ServeHTTP(w, r.WithContext(logging.WithCorrelationID(r.Context(), id)))
	})
}

// AccessLog logs every request and records it in m.
func AccessLog(logger logging.Logger, m *metrics.Metrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			duration := time.Since(start)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			m.ObserveRequest(r.Method, route, status, duration)

			logger.Info(r.Context(), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"duration", duration,
				"bytes", ww.BytesWritten(),
				"remote_addr", r.RemoteAddr,
				"initiator", r.Header.Get(common.InitiatorHeaderName),
			)
		})
	}
}

// CORS allows the configured origins.
func CORS(origins []string) func(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type",
			common.CorrelationIDHeaderName, common.InitiatorHeaderName, common.BodyEncryptionHeaderName,
		},
		ExposedHeaders: []string{
			common.CorrelationIDHeaderName, common.BodyEncryptionHeaderName,
			"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset",
		},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// RateLimitConfig defines rate limiting parameters.
type RateLimitConfig struct {
	RequestsPerMinute int
	BurstSize         int
}

// RateLimit is a fixed one minute window per client IP kept in Redis. Redis
// failures let the request through.
func RateLimit(redis *cache.Redis, cfg RateLimitConfig, m *metrics.Metrics, logger logging.Logger) func(next http.Handler) http.Handler {
	const window = time.Minute

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ratelimit:" + clientIP(r)

			count, err := redis.IncrWithExpire(r.Context(), key, window)
			if err != nil {
				logger.Warn(r.Context(), "rate limiter unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			limit := cfg.RequestsPerMinute + cfg.BurstSize
			remaining := limit - int(count)
			if remaining < 0 {
				remaining = 0
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			// the window is anchored at the first request, so reset follows the key's TTL
			left, err := redis.TTL(r.Context(), key)
			if err != nil || left <= 0 {
				left = window
			}
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(left).Unix(), 10))

			if int(count) > limit {
				m.RateLimited()
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(left.Seconds()))))
				Error(w, ErrRateLimited)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RequireBearer rejects requests without a valid bearer token. validate
// returns the username carried by the token.
func RequireBearer(validate func(token string) (string, error)) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get(common.AuthorizationHeaderName))
			if !ok {
				w.Header().Set("WWW-Authenticate", "Bearer")
				Error(w, ErrUnauthorized)
				return
			}

			username, err := validate(token)
			if err != nil {
				w.Header().Set("WWW-Authenticate", "Bearer")
				Error(w, ErrUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), tokenKey, token)
			ctx = context.WithValue(ctx, usernameKey, username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// BodyEncryption decrypts request bodies and encrypts response bodies of
// requests that carry X-Body-Encryption: aes-gcm. Bodies travel as
// base64(nonce || ciphertext). A nil key rejects such requests.
func BodyEncryption(key []byte) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme := r.Header.Get(common.BodyEncryptionHeaderName)
			if scheme == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !strings.EqualFold(scheme, common.BodyEncryptionScheme) || key == nil {
				Error(w, ErrBadRequest.WithMessage(fmt.Sprintf("unsupported body encryption %q", scheme)))
				return
			}

			if r.Body != nil && r.ContentLength != 0 {
				raw, err := io.ReadAll(r.Body)
				if err != nil {
					Error(w, ErrBadRequest.WithMessage("unreadable body"))
					return
				}
				if len(bytes.TrimSpace(raw)) > 0 {
					plain, err := openBody(raw, key)
					if err != nil {
						Error(w, ErrBadRequest.WithMessage("undecryptable body"))
						return
					}
					r.Body = io.NopCloser(bytes.NewReader(plain))
					r.ContentLength = int64(len(plain))
				}
			}

			bw := &bufferedWriter{header: http.Header{}, status: http.StatusOK}
			next.ServeHTTP(bw, r)

			sealed, err := cryptox.Seal(bw.body.Bytes(), key)
			if err != nil {
				Error(w, ErrInternal)
				return
			}

			for k, v := range bw.header {
				w.Header()[k] = v
			}
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set(common.BodyEncryptionHeaderName, common.BodyEncryptionScheme)
			w.Header().Del("Content-Length")
			w.WriteHeader(bw.status)
			_, _ = io.WriteString(w, base64.StdEncoding.EncodeToString(sealed))
		})
	}
}

func openBody(raw, key []byte) ([]byte, error) {
	sealed, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace(raw)))
	if err != nil {
		return nil, err
	}
	return cryptox.Open(sealed, key)
}

// bufferedWriter holds a response until it can be encrypted as a whole.
type bufferedWriter struct {
	header      http.Header
	body        bytes.Buffer
	status      int
	wroteHeader bool
}

func (b *bufferedWriter) Header() http.Header { return b.header }

func (b *bufferedWriter) WriteHeader(code int) {
	if b.wroteHeader {
		return
	}
	b.status = code
	b.wroteHeader = true
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	b.wroteHeader = true
	return b.body.Write(p)
}
