package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/campusdesk/internal/common"
	"github.com/dmitrijs2005/campusdesk/internal/logging"
)

// Error kinds carried in the "kind" field of error bodies.
const (
	KindValidation              = "validation_error"
	KindDuplicateEmail          = "duplicate_email"
	KindInvalidCredentials      = "invalid_credentials"
	KindMissingToken            = "missing_token"
	KindInvalidToken            = "invalid_token"
	KindInsufficientPermissions = "insufficient_permissions"
	KindNotFound                = "not_found"
	KindInternal                = "internal"
)

// ErrorBody is the JSON shape of every non-2xx response.
type ErrorBody struct {
	Kind     string   `json:"kind"`
	Message  string   `json:"message"`
	Required []string `json:"required,omitempty"`
	Current  string   `json:"current,omitempty"`
	Path     string   `json:"path,omitempty"`
}

// classify maps an error to its status code and body. Internal failures get
// a fixed message so nothing from the store or hasher leaks to clients.
func classify(err error) (int, ErrorBody) {
	var perr *common.PermissionError
	switch {
	case errors.As(err, &perr):
		return http.StatusForbidden, ErrorBody{
			Kind:     KindInsufficientPermissions,
			Message:  common.ErrInsufficientPermissions.Error(),
			Required: perr.Required,
			Current:  perr.Actual,
		}
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest, ErrorBody{Kind: KindValidation, Message: err.Error()}
	case errors.Is(err, common.ErrDuplicateEmail):
		return http.StatusConflict, ErrorBody{Kind: KindDuplicateEmail, Message: common.ErrDuplicateEmail.Error()}
	case errors.Is(err, common.ErrInvalidCredentials):
		return http.StatusUnauthorized, ErrorBody{Kind: KindInvalidCredentials, Message: common.ErrInvalidCredentials.Error()}
	case errors.Is(err, common.ErrMissingToken):
		return http.StatusUnauthorized, ErrorBody{Kind: KindMissingToken, Message: common.ErrMissingToken.Error()}
	case errors.Is(err, common.ErrInvalidOrExpiredToken):
		return http.StatusUnauthorized, ErrorBody{Kind: KindInvalidToken, Message: common.ErrInvalidOrExpiredToken.Error()}
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, ErrorBody{Kind: KindNotFound, Message: err.Error()}
	default:
		return http.StatusInternalServerError, ErrorBody{Kind: KindInternal, Message: common.ErrorInternal.Error()}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(ctx context.Context, l logging.Logger, w http.ResponseWriter, err error) {
	status, body := classify(err)
	if status == http.StatusInternalServerError {
		l.Error(ctx, "request failed", "error", err.Error())
	}
	writeJSON(w, status, body)
}
