package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_parseEnv(t *testing.T) {
	t.Run("overlays portal variables", func(t *testing.T) {
		stubEnv(t, map[string]string{
			"PORT":           "5001",
			"GRPC_ADDR":      ":6000",
			"DATABASE_URL":   "postgres://u:p@db/campus",
			"JWT_SECRET":     "env-secret",
			"JWT_EXPIRES_IN": "12h",
			"BCRYPT_COST":    "11",
			"CLIENT_URL":     "https://portal.example.edu",
			"LOG_LEVEL":      "debug",
		})

		cfg := &Config{}
		cfg.LoadDefaults()
		require.NoError(t, parseEnv(cfg))

		assert.Equal(t, ":5001", cfg.HTTPAddr)
		assert.Equal(t, ":6000", cfg.GRPCAddr)
		assert.Equal(t, "postgres://u:p@db/campus", cfg.DatabaseDSN)
		assert.Equal(t, "env-secret", cfg.SecretKey)
		assert.Equal(t, 12*time.Hour, cfg.TokenValidityDuration)
		assert.Equal(t, 11, cfg.BcryptCost)
		assert.Equal(t, "https://portal.example.edu", cfg.ClientURL)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("HTTP_ADDR wins over PORT", func(t *testing.T) {
		stubEnv(t, map[string]string{"PORT": "5001", "HTTP_ADDR": "127.0.0.1:7000"})

		cfg := &Config{}
		require.NoError(t, parseEnv(cfg))

		assert.Equal(t, "127.0.0.1:7000", cfg.HTTPAddr)
	})

	t.Run("unset variables leave values alone", func(t *testing.T) {
		stubEnv(t, nil)

		cfg := &Config{}
		cfg.LoadDefaults()
		want := *cfg
		require.NoError(t, parseEnv(cfg))

		assert.Equal(t, want, *cfg)
	})

	t.Run("empty secret is ignored", func(t *testing.T) {
		stubEnv(t, map[string]string{"JWT_SECRET": ""})

		cfg := &Config{SecretKey: "from-json"}
		require.NoError(t, parseEnv(cfg))

		assert.Equal(t, "from-json", cfg.SecretKey)
	})

	t.Run("token lifetime formats", func(t *testing.T) {
		cases := map[string]time.Duration{
			"90s":      90 * time.Second,
			"30s":      30 * time.Second,
			"1h30m15s": time.Hour + 30*time.Minute + 15*time.Second,
			"7d":       7 * 24 * time.Hour,
			"3600":     time.Hour,
		}
		for in, want := range cases {
			stubEnv(t, map[string]string{"JWT_EXPIRES_IN": in})

			cfg := &Config{}
			require.NoError(t, parseEnv(cfg), in)
			assert.Equal(t, want, cfg.TokenValidityDuration, in)
		}
	})

	t.Run("bad duration is an error", func(t *testing.T) {
		stubEnv(t, map[string]string{"JWT_EXPIRES_IN": "soon"})

		err := parseEnv(&Config{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "soon")
	})

	t.Run("bad cost is an error", func(t *testing.T) {
		stubEnv(t, map[string]string{"BCRYPT_COST": "twelve"})
		require.Error(t, parseEnv(&Config{}))
	})
}
