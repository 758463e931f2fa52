// Package common defines shared constants and sentinel errors used across
// server and client layers of campusdesk. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Registration and login errors.
	ErrValidation         = errors.New("validation error")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")

	// Password digest could not be parsed; distinct from a wrong password.
	ErrMalformedHash = errors.New("malformed password hash")

	// Token errors. Both ErrInvalidToken and ErrTokenExpired match
	// ErrInvalidOrExpiredToken via errors.Is.
	ErrMissingToken          = errors.New("access token required")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrInvalidToken          = fmt.Errorf("%w: invalid token", ErrInvalidOrExpiredToken)
	ErrTokenExpired          = fmt.Errorf("%w: token expired", ErrInvalidOrExpiredToken)

	ErrInsufficientPermissions = errors.New("insufficient permissions")
)

// PermissionError reports a role check failure after authentication
// succeeded. It matches ErrInsufficientPermissions.
type PermissionError struct {
	Required []string
	Actual   string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("%s: requires one of [%s], current role %q",
		ErrInsufficientPermissions, strings.Join(e.Required, ", "), e.Actual)
}

func (e *PermissionError) Is(target error) bool {
	return target == ErrInsufficientPermissions
}
