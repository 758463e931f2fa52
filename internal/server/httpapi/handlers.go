package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/campusdesk/internal/common"
	"github.com/dmitrijs2005/campusdesk/internal/server/auth"
	"github.com/dmitrijs2005/campusdesk/internal/server/metrics"
	"github.com/dmitrijs2005/campusdesk/internal/server/models"
	"github.com/dmitrijs2005/campusdesk/internal/server/services"
)

const maxBodyBytes = 1 << 20

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Message string            `json:"message"`
	User    models.PublicUser `json:"user"`
	Token   string            `json:"token"`
}

type ProfileResponse struct {
	User models.PublicUser `json:"user"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    float64   `json:"uptime"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", common.ErrValidation)
		}
		return fmt.Errorf("%w: malformed JSON body", common.ErrValidation)
	}
	return nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.metrics.ObserveRegister(metrics.OutcomeValidation)
		writeError(r.Context(), s.logger, w, err)
		return
	}

	res, err := s.users.Register(r.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	s.metrics.ObserveRegister(outcome(err))
	if err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}

	s.logger.Info(r.Context(), "user registered", "user_id", res.User.ID, "role", res.User.Role.String())
	writeJSON(w, http.StatusCreated, AuthResponse{Message: "User registered successfully", User: res.User, Token: res.Token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.metrics.ObserveLogin(metrics.OutcomeValidation)
		writeError(r.Context(), s.logger, w, err)
		return
	}

	res, err := s.users.Login(r.Context(), req.Email, req.Password)
	s.metrics.ObserveLogin(outcome(err))
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			s.logger.Info(r.Context(), "login failed", "outcome", metrics.OutcomeInvalidCredentials)
		}
		writeError(r.Context(), s.logger, w, err)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Message: "Login successful", User: res.User, Token: res.Token})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(r.Context(), s.logger, w, common.ErrMissingToken)
		return
	}

	user, err := s.users.Profile(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			err = fmt.Errorf("user %w", common.ErrorNotFound)
		}
		writeError(r.Context(), s.logger, w, err)
		return
	}

	writeJSON(w, http.StatusOK, ProfileResponse{User: *user})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: now.UTC(),
		Uptime:    now.Sub(s.started).Seconds(),
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Campus Services Portal API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"register": "POST /api/auth/register",
			"login":    "POST /api/auth/login",
			"profile":  "GET /api/auth/profile",
			"health":   "GET /health",
			"metrics":  "GET /metrics",
		},
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, ErrorBody{
		Kind:    KindNotFound,
		Message: "route not found",
		Path:    r.URL.Path,
	})
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, common.ErrValidation):
		return metrics.OutcomeValidation
	case errors.Is(err, common.ErrDuplicateEmail):
		return metrics.OutcomeDuplicate
	case errors.Is(err, common.ErrInvalidCredentials):
		return metrics.OutcomeInvalidCredentials
	default:
		return metrics.OutcomeError
	}
}
