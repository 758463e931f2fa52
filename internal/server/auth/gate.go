package auth

import (
	"net/http"
	"strings"

	"github.com/dmitrijs2005/campusdesk/internal/common"
	"github.com/dmitrijs2005/campusdesk/internal/server/models"
)

// TokenVerifier is satisfied by *TokenIssuer.
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// Gate decides whether a request may reach a handler. It never touches the
// credential store: a verified token is trusted until it expires.
type Gate struct {
	verifier TokenVerifier
}

func NewGate(v TokenVerifier) *Gate {
	return &Gate{verifier: v}
}

// Authorize runs the full decision for an HTTP request.
func (g *Gate) Authorize(r *http.Request, required models.RoleSet) (*Claims, error) {
	return g.AuthorizeHeader(r.Header.Get(common.AuthorizationHeaderName), required)
}

// AuthorizeHeader decides on a raw authorization header value.
//
// Errors: ErrMissingToken when no bearer token is present,
// ErrInvalidToken/ErrTokenExpired (both ErrInvalidOrExpiredToken) when
// verification fails, and *common.PermissionError when the role is not in
// required. In the last case the verified claims are returned alongside the
// error so callers can log who was refused.
func (g *Gate) AuthorizeHeader(header string, required models.RoleSet) (*Claims, error) {
	token, ok := BearerToken(header)
	if !ok {
		return nil, common.ErrMissingToken
	}

	claims, err := g.verifier.Verify(token)
	if err != nil {
		return nil, err
	}

	if !required.Allows(claims.Role) {
		return claims, &common.PermissionError{
			Required: required.Strings(),
			Actual:   claims.Role.String(),
		}
	}

	return claims, nil
}

// BearerToken extracts the token from "Bearer <token>". The scheme is
// matched case-insensitively.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, common.BearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
