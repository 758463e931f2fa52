// Package config loads runtime configuration for the portalctl CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the campusdesk API
//	-t int      request timeout (seconds)
//	-f string   token file
//
// # JSON schema
//
// The JSON loader uses timex.Duration for the timeout, so values can be either
// strings like "10s" or integer nanoseconds:
//
//	{
//	  "server_url": "http://localhost:5000",
//	  "request_timeout": "10s",
//	  "token_file": "/home/ann/.config/campusdesk/token"
//	}
package config
