// Package httpapi is the REST transport: routing, handlers for the auth
// endpoints, and the middleware that puts the authorization gate in front of
// protected routes.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/campusdesk/internal/logging"
	"github.com/dmitrijs2005/campusdesk/internal/server/auth"
	"github.com/dmitrijs2005/campusdesk/internal/server/metrics"
	"github.com/dmitrijs2005/campusdesk/internal/server/models"
	"github.com/dmitrijs2005/campusdesk/internal/server/services"
	"github.com/gorilla/mux"
)

const shutdownTimeout = 10 * time.Second

// AuthService is satisfied by *services.UserService.
type AuthService interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error)
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
	Profile(ctx context.Context, userID string) (*models.PublicUser, error)
}

type Server struct {
	address   string
	clientURL string
	router    *mux.Router
	users     AuthService
	gate      *auth.Gate
	metrics   *metrics.Metrics
	logger    logging.Logger
	started   time.Time
	now       func() time.Time
}

func NewServer(address, clientURL string, l logging.Logger, us AuthService, g *auth.Gate, m *metrics.Metrics) *Server {
	s := &Server{
		address:   address,
		clientURL: clientURL,
		router:    mux.NewRouter(),
		users:     us,
		gate:      g,
		metrics:   m,
		logger:    l.With("module", "http_server"),
		now:       time.Now,
	}
	s.started = s.now()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(s.instrument)

	s.router.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	for _, prefix := range []string{"", "/api/auth"} {
		s.router.HandleFunc(prefix+"/register", s.handleRegister).Methods(http.MethodPost)
		s.router.HandleFunc(prefix+"/login", s.handleLogin).Methods(http.MethodPost)
	}
	s.Handle("/api/auth/profile", models.AnyRole, http.HandlerFunc(s.handleProfile)).Methods(http.MethodGet)

	s.router.NotFoundHandler = s.instrument(http.HandlerFunc(s.handleNotFound))
}

// Handle mounts h at path behind the gate. An empty role set admits any
// authenticated caller. The returned route can be narrowed further, e.g.
// with Methods.
func (s *Server) Handle(path string, roles models.RoleSet, h http.Handler) *mux.Route {
	return s.router.Handle(path, s.guard(roles, h))
}

// Handler returns the full middleware chain around the router.
func (s *Server) Handler() http.Handler {
	return s.recoverer(s.accessLog(s.cors(s.router)))
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			s.logger.Error(ctx, "shutdown", "error", err.Error())
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}
