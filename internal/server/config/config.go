// Package config handles configuration for the server component,
// including defaults, JSON overlay, environment and command-line flags.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/campusdesk/internal/logging"
	"golang.org/x/crypto/bcrypt"
)

// Config holds runtime settings for the campusdesk server.
//
// Fields:
//   - HTTPAddr / GRPCAddr: bind addresses for the REST API and the gRPC listener.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty selects the in-memory store.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Required.
//   - TokenValidityDuration: bearer token lifetime.
//   - BcryptCost: password hashing work factor.
//   - ClientURL: origin allowed by CORS.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	HTTPAddr              string
	GRPCAddr              string
	DatabaseDSN           string
	SecretKey             string
	TokenValidityDuration time.Duration
	BcryptCost            int
	ClientURL             string
	LogLevel              string
}

// LoadDefaults populates Config with development defaults. The secret is
// deliberately left empty so a forgotten secret fails Validate.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":5000"
	c.GRPCAddr = ":50051"
	c.DatabaseDSN = ""
	c.SecretKey = ""
	c.TokenValidityDuration = 24 * time.Hour
	c.BcryptCost = 12
	c.ClientURL = "http://localhost:3000"
	c.LogLevel = "info"
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret key is required (-s, JWT_SECRET or secret_key)"))
	}
	if c.TokenValidityDuration <= 0 {
		errs = append(errs, fmt.Errorf("token validity must be positive, got %s", c.TokenValidityDuration))
	}
	if c.BcryptCost < bcrypt.DefaultCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("bcrypt cost must be within [%d, %d], got %d", bcrypt.DefaultCost, bcrypt.MaxCost, c.BcryptCost))
	}
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http address is required"))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment and finally command-line flags.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	parseFlags(cfg)
	return cfg, nil
}
