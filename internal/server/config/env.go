package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/joho/godotenv"
)

const envPrefix = "GOPHAUTH_"

const defaultEnvFile = ".env"

type lookupFunc func(key string) (string, bool)

// parseEnv overlays Config with GOPHAUTH_* environment variables.
//
// A dotenv file is loaded first: the one named by -envfile, or ./.env when it
// exists. Variables already present in the process environment win over the
// file, as godotenv never overrides them.
//
// The token lifetime can be given either as GOPHAUTH_ACCESS_TOKEN_TTL
// (duration string) or as the product GOPHAUTH_JWT_MIN * GOPHAUTH_JWT_HOUR *
// GOPHAUTH_JWT_DAY minutes; factors that are not set count as 1.
//
// Malformed numbers or durations cause a panic, like malformed JSON does.
func parseEnv(config *Config, args []string, lookup lookupFunc) {
	loadEnvFile(flagx.EnvFileFlags(args))

	get := func(name string) (string, bool) {
		return lookup(envPrefix + name)
	}

	setString := func(name string, dst *string) {
		if v, ok := get(name); ok {
			*dst = v
		}
	}
	setInt := func(name string, dst *int) {
		if v, ok := get(name); ok {
			*dst = mustAtoi(name, v)
		}
	}
	setDuration := func(name string, dst *time.Duration) {
		if v, ok := get(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				panic(err)
			}
			*dst = d
		}
	}

	setString("HTTP_ADDR", &config.EndpointAddrHTTP)
	setString("GRPC_ADDR", &config.EndpointAddrGRPC)
	setString("DATABASE_DSN", &config.DatabaseDSN)
	setString("REDIS_ADDR", &config.RedisAddr)
	setString("REDIS_PASSWORD", &config.RedisPassword)
	setInt("REDIS_DB", &config.RedisDB)
	setString("SECRET_KEY", &config.SecretKey)
	setString("JWT_ALGORITHM", &config.JWTAlgorithm)
	setString("JWT_SUBJECT", &config.JWTSubject)
	setString("OTP_BACKEND", &config.OTPBackend)
	setInt("OTP_LENGTH", &config.OTPLength)
	setDuration("OTP_TTL", &config.OTPValidityDuration)
	setInt("OTP_MAX_ATTEMPTS", &config.OTPMaxAttempts)
	setInt("LOCKOUT_THRESHOLD", &config.LockoutThreshold)
	setDuration("LOCKOUT_DURATION", &config.LockoutDuration)
	setInt("RATE_LIMIT_PER_MINUTE", &config.RateLimitPerMinute)
	setInt("RATE_LIMIT_BURST", &config.RateLimitBurst)
	setString("BODY_ENCRYPTION_KEY", &config.BodyEncryptionKey)
	setString("LOG_LEVEL", &config.LogLevel)

	if v, ok := get("MIGRATE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			panic(err)
		}
		config.MigrateOnStart = b
	}

	if v, ok := get("ALLOWED_ORIGINS"); ok {
		config.AllowedOrigins = splitList(v)
	}

	setDuration("ACCESS_TOKEN_TTL", &config.AccessTokenValidityDuration)

	minutes, hours, days := 1, 1, 1
	_, hasMin := get("JWT_MIN")
	_, hasHour := get("JWT_HOUR")
	_, hasDay := get("JWT_DAY")
	if hasMin || hasHour || hasDay {
		setInt("JWT_MIN", &minutes)
		setInt("JWT_HOUR", &hours)
		setInt("JWT_DAY", &days)
		config.AccessTokenValidityDuration = time.Duration(minutes*hours*days) * time.Minute
	}
}

func loadEnvFile(path string) {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			panic(err)
		}
		return
	}
	if _, err := os.Stat(defaultEnvFile); err == nil {
		_ = godotenv.Load(defaultEnvFile)
	}
}

func mustAtoi(name, v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		panic(envPrefix + name + ": " + err.Error())
	}
	return n
}

func splitList(v string) []string {
	out := []string{}
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
