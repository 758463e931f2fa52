package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/campusdesk/internal/flagx"
	"github.com/dmitrijs2005/campusdesk/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for the token lifetime, which allows parsing both
// string values such as "24h" and integer nanoseconds.
//
// Fields are pointers so that keys absent from the file leave the current
// value untouched.
type JsonConfig struct {
	HTTPAddr              *string         `json:"http_addr"`
	GRPCAddr              *string         `json:"grpc_addr"`
	DatabaseDSN           *string         `json:"database_dsn"`
	SecretKey             *string         `json:"secret_key"`
	TokenValidityDuration *timex.Duration `json:"token_validity_duration"`
	BcryptCost            *int            `json:"bcrypt_cost"`
	ClientURL             *string         `json:"client_url"`
	LogLevel              *string         `json:"log_level"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags. If it is
// not set, no JSON file is loaded. If the file cannot be read or contains
// invalid JSON, the function panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setIf(&config.HTTPAddr, c.HTTPAddr)
	setIf(&config.GRPCAddr, c.GRPCAddr)
	setIf(&config.DatabaseDSN, c.DatabaseDSN)
	setIf(&config.SecretKey, c.SecretKey)
	setIf(&config.BcryptCost, c.BcryptCost)
	setIf(&config.ClientURL, c.ClientURL)
	setIf(&config.LogLevel, c.LogLevel)
	if c.TokenValidityDuration != nil {
		config.TokenValidityDuration = c.TokenValidityDuration.Duration
	}
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
