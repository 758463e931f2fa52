package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/campusdesk/internal/flagx"
	"github.com/dmitrijs2005/campusdesk/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// Empty fields leave the current value untouched.
type JsonConfig struct {
	ServerURL      string         `json:"server_url"`
	RequestTimeout timex.Duration `json:"request_timeout"`
	TokenFile      string         `json:"token_file"`
}

// parseJson overlays Config with values loaded from a JSON file selected by
// -c or -config. Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	// Resolve file path from flags.
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.TokenFile != "" {
		cfg.TokenFile = jc.TokenFile
	}
}
