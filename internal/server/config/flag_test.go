package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		initial     *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd",
				"-a", "127.0.0.1:9090", "-g", "127.0.0.1:9091", "-d", "db", "-r", "cache:6379", "-s", "secret",
				"-t", "15", "-o", "2", "-b", "postgres", "-l", "debug",
			},
			initial: &Config{},
			expected: &Config{
				EndpointAddrHTTP:            "127.0.0.1:9090",
				EndpointAddrGRPC:            "127.0.0.1:9091",
				DatabaseDSN:                 "db",
				RedisAddr:                   "cache:6379",
				SecretKey:                   "secret",
				AccessTokenValidityDuration: 15 * time.Minute,
				OTPValidityDuration:         2 * time.Minute,
				OTPBackend:                  "postgres",
				LogLevel:                    "debug",
			},
		},
		{
			name:     "no flags keep sub-minute durations",
			args:     []string{"cmd", "-unrelated", "x"},
			initial:  &Config{OTPValidityDuration: 90 * time.Second, AccessTokenValidityDuration: 30 * time.Second},
			expected: &Config{OTPValidityDuration: 90 * time.Second, AccessTokenValidityDuration: 30 * time.Second},
		},
		{
			name:        "bad integer panics",
			args:        []string{"cmd", "-t", "soon"},
			initial:     &Config{},
			expectPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := tt.initial

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
