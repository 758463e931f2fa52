// Package api is a small client for the campusdesk REST API used by portalctl.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/campusdesk/internal/common"
	"github.com/dmitrijs2005/campusdesk/internal/netx"
)

type User struct {
	ID        string    `json:"userId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
	Token   string `json:"token"`
}

type profileResponse struct {
	User User `json:"user"`
}

// Error is a decoded error body from the server.
type Error struct {
	StatusCode int      `json:"-"`
	Kind       string   `json:"kind"`
	Message    string   `json:"message"`
	Required   []string `json:"required,omitempty"`
	Current    string   `json:"current,omitempty"`
}

func (e *Error) Error() string {
	if len(e.Required) > 0 {
		return fmt.Sprintf("%s (requires %s, you are %s)", e.Message, strings.Join(e.Required, " or "), e.Current)
	}
	return e.Message
}

// Is lets callers match server errors against the shared sentinels.
func (e *Error) Is(target error) bool {
	switch e.Kind {
	case "validation_error":
		return target == common.ErrValidation
	case "duplicate_email":
		return target == common.ErrDuplicateEmail
	case "invalid_credentials":
		return target == common.ErrInvalidCredentials
	case "missing_token":
		return target == common.ErrMissingToken
	case "invalid_token":
		return target == common.ErrInvalidOrExpiredToken
	case "insufficient_permissions":
		return target == common.ErrInsufficientPermissions
	case "not_found":
		return target == common.ErrorNotFound
	}
	return false
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Profile(ctx context.Context, token string) (*User, error) {
	var out profileResponse
	if err := c.do(ctx, http.MethodGet, "/api/auth/profile", token, nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	header := http.Header{}
	if token != "" {
		header.Set(common.AuthorizationHeaderName, common.BearerScheme+" "+token)
	}

	err := netx.DoJSON(ctx, c.http, method, c.baseURL+path, header, in, out)

	var se *netx.StatusError
	if errors.As(err, &se) {
		apiErr := &Error{StatusCode: se.StatusCode}
		if jerr := json.Unmarshal(se.Body, apiErr); jerr != nil || apiErr.Message == "" {
			apiErr.Message = se.Status
		}
		return apiErr
	}
	return err
}
