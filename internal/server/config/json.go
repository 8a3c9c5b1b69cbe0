package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "5m" and integer nanoseconds are accepted.
// Keys that are absent leave the current value untouched.
type JsonConfig struct {
	EndpointAddrHTTP            string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC            string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                 string         `json:"database_dsn"`
	MigrateOnStart              *bool          `json:"migrate_on_start"`
	RedisAddr                   string         `json:"redis_addr"`
	RedisPassword               string         `json:"redis_password"`
	RedisDB                     *int           `json:"redis_db"`
	SecretKey                   string         `json:"secret_key"`
	JWTAlgorithm                string         `json:"jwt_algorithm"`
	JWTSubject                  string         `json:"jwt_subject"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	OTPBackend                  string         `json:"otp_backend"`
	OTPLength                   int            `json:"otp_length"`
	OTPValidityDuration         timex.Duration `json:"otp_validity_duration"`
	OTPMaxAttempts              int            `json:"otp_max_attempts"`
	LockoutThreshold            int            `json:"lockout_threshold"`
	LockoutDuration             timex.Duration `json:"lockout_duration"`
	RateLimitPerMinute          int            `json:"rate_limit_per_minute"`
	RateLimitBurst              int            `json:"rate_limit_burst"`
	AllowedOrigins              []string       `json:"allowed_origins"`
	BodyEncryptionKey           string         `json:"body_encryption_key"`
	LogLevel                    string         `json:"log_level"`
}

// parseJson loads the file named by -c/-config into config. Nothing happens
// when neither flag is given; an unreadable file or invalid JSON panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags(os.Args[1:])

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	str := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	num := func(dst *int, v int) {
		if v != 0 {
			*dst = v
		}
	}

	str(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	str(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	str(&config.DatabaseDSN, c.DatabaseDSN)
	str(&config.RedisAddr, c.RedisAddr)
	str(&config.RedisPassword, c.RedisPassword)
	str(&config.SecretKey, c.SecretKey)
	str(&config.JWTAlgorithm, c.JWTAlgorithm)
	str(&config.JWTSubject, c.JWTSubject)
	str(&config.OTPBackend, c.OTPBackend)
	str(&config.BodyEncryptionKey, c.BodyEncryptionKey)
	str(&config.LogLevel, c.LogLevel)

	num(&config.OTPLength, c.OTPLength)
	num(&config.OTPMaxAttempts, c.OTPMaxAttempts)
	num(&config.LockoutThreshold, c.LockoutThreshold)
	num(&config.RateLimitPerMinute, c.RateLimitPerMinute)
	num(&config.RateLimitBurst, c.RateLimitBurst)

	if c.MigrateOnStart != nil {
		config.MigrateOnStart = *c.MigrateOnStart
	}
	if c.RedisDB != nil {
		config.RedisDB = *c.RedisDB
	}
	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.OTPValidityDuration.Duration != 0 {
		config.OTPValidityDuration = c.OTPValidityDuration.Duration
	}
	if c.LockoutDuration.Duration != 0 {
		config.LockoutDuration = c.LockoutDuration.Duration
	}
	if c.AllowedOrigins != nil {
		config.AllowedOrigins = c.AllowedOrigins
	}
}
