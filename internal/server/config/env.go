package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dmitrijs2005/campusdesk/internal/timex"
)

// EnvConfig mirrors Config for environment variables. Variable names follow
// the deployment conventions of the portal (PORT, JWT_SECRET,
// JWT_EXPIRES_IN, CLIENT_URL, DATABASE_URL).
//
// Fields are pointers so that unset variables leave the current value
// untouched.
type EnvConfig struct {
	Port                  *string        `env:"PORT"`
	HTTPAddr              *string        `env:"HTTP_ADDR"`
	GRPCAddr              *string        `env:"GRPC_ADDR"`
	DatabaseDSN           *string        `env:"DATABASE_URL"`
	SecretKey             *string        `env:"JWT_SECRET"`
	TokenValidityDuration *time.Duration `env:"JWT_EXPIRES_IN"`
	BcryptCost            *int           `env:"BCRYPT_COST"`
	ClientURL             *string        `env:"CLIENT_URL"`
	LogLevel              *string        `env:"LOG_LEVEL"`
}

// environment returns the variables to parse; nil means the process
// environment. Replaced in tests.
var environment = func() map[string]string { return nil }

// parseEnv overlays values from the environment. JWT_EXPIRES_IN accepts
// whatever timex.ParseLifetime does ("24h", "7d", "3600").
func parseEnv(config *Config) error {
	c := &EnvConfig{}

	opts := env.Options{
		Environment: environment(),
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(time.Duration(0)): func(v string) (any, error) {
				return timex.ParseLifetime(v)
			},
		},
	}
	if err := env.ParseWithOptions(c, opts); err != nil {
		return fmt.Errorf("environment: %w", err)
	}

	if port := nonEmpty(c.Port); port != nil {
		config.HTTPAddr = ":" + strings.TrimPrefix(*port, ":")
	}
	setIf(&config.HTTPAddr, nonEmpty(c.HTTPAddr))
	setIf(&config.GRPCAddr, nonEmpty(c.GRPCAddr))
	setIf(&config.DatabaseDSN, c.DatabaseDSN)
	setIf(&config.SecretKey, nonEmpty(c.SecretKey))
	setIf(&config.TokenValidityDuration, c.TokenValidityDuration)
	setIf(&config.BcryptCost, c.BcryptCost)
	setIf(&config.ClientURL, nonEmpty(c.ClientURL))
	setIf(&config.LogLevel, nonEmpty(c.LogLevel))
	return nil
}

// nonEmpty treats a variable set to "" as unset.
func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
