// Package common contains shared constants and sentinel errors used across
// campusdesk components.
package common

const (
	// AuthorizationHeaderName is the HTTP header (and lower-cased gRPC metadata
	// key) carrying the bearer token on protected requests.
	AuthorizationHeaderName = "Authorization"

	// BearerScheme prefixes the token inside the authorization header.
	BearerScheme = "Bearer"

	// RequestIDHeaderName is echoed back on every HTTP response.
	RequestIDHeaderName = "X-Request-ID"
)
