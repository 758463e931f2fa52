package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/campusdesk/internal/common"
	"github.com/dmitrijs2005/campusdesk/internal/logging"
	"github.com/dmitrijs2005/campusdesk/internal/server/auth"
	"github.com/dmitrijs2005/campusdesk/internal/server/metrics"
	"github.com/dmitrijs2005/campusdesk/internal/server/models"
	"github.com/dmitrijs2005/campusdesk/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/campusdesk/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testClientURL = "http://localhost:3000"

type testEnv struct {
	srv     *Server
	issuer  *auth.TokenIssuer
	metrics *metrics.Metrics
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	issuer, err := auth.NewTokenIssuer([]byte("http-test-secret"), 24*time.Hour)
	require.NoError(t, err)
	hasher, err := auth.NewPasswordHasher(10)
	require.NoError(t, err)

	us := services.NewUserService(nil, repomanager.NewInMemoryRepositoryManager(), hasher, issuer)
	return newTestEnvWith(t, us, issuer)
}

func newTestEnvWith(t *testing.T, us AuthService, issuer *auth.TokenIssuer) *testEnv {
	t.Helper()
	m := metrics.NewMetrics(prometheus.NewRegistry())
	srv := NewServer("127.0.0.1:0", testClientURL, logging.Nop{}, us, auth.NewGate(issuer), m)
	return &testEnv{srv: srv, issuer: issuer, metrics: m, handler: srv.Handler()}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRegister_Created(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Ann", "email": "ann@x.edu", "password": "pw1",
	}, "")

	require.Equal(t, http.StatusCreated, rec.Code)
	res := decode[AuthResponse](t, rec)
	assert.Equal(t, "User registered successfully", res.Message)
	assert.Equal(t, models.RoleStudent, res.User.Role)
	assert.NotEmpty(t, res.User.ID)
	assert.NotEmpty(t, res.Token)
	assert.NotContains(t, rec.Body.String(), "password")
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.RegisterTotal.WithLabelValues(metrics.OutcomeSuccess)))
}

func TestRegister_BothMountPoints(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/register", map[string]string{"name": "A", "email": "a@x.edu", "password": "pw"}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(t, http.MethodPost, "/login", map[string]string{"email": "a@x.edu", "password": "pw"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRegister_Errors(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/api/auth/register", map[string]string{"name": "A", "email": "a@x.edu", "password": "pw"}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	tests := []struct {
		name     string
		body     any
		wantCode int
		wantKind string
	}{
		{name: "duplicate", body: map[string]string{"name": "B", "email": "a@x.edu", "password": "pw"}, wantCode: http.StatusConflict, wantKind: KindDuplicateEmail},
		{name: "missing password", body: map[string]string{"name": "B", "email": "b@x.edu"}, wantCode: http.StatusBadRequest, wantKind: KindValidation},
		{name: "bad role", body: map[string]string{"name": "B", "email": "b@x.edu", "password": "pw", "role": "dean"}, wantCode: http.StatusBadRequest, wantKind: KindValidation},
		{name: "empty body", body: nil, wantCode: http.StatusBadRequest, wantKind: KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, http.MethodPost, "/api/auth/register", tt.body, "")
			require.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantKind, decode[ErrorBody](t, rec).Kind)
		})
	}
}

func TestRegister_MalformedJSON(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(`{"name":`))
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, KindValidation, decode[ErrorBody](t, rec).Kind)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	e := newTestEnv(t)
	e.do(t, http.MethodPost, "/api/auth/register", map[string]string{"name": "A", "email": "a@x.edu", "password": "pw"}, "")

	wrong := e.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "a@x.edu", "password": "nope"}, "")
	unknown := e.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "z@x.edu", "password": "pw"}, "")

	require.Equal(t, http.StatusUnauthorized, wrong.Code)
	require.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())
	assert.Equal(t, 2.0, testutil.ToFloat64(e.metrics.LoginTotal.WithLabelValues(metrics.OutcomeInvalidCredentials)))
}

func TestLogin_MissingFields(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "a@x.edu"}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfile(t *testing.T) {
	e := newTestEnv(t)
	reg := decode[AuthResponse](t, e.do(t, http.MethodPost, "/api/auth/register", map[string]string{"name": "A", "email": "a@x.edu", "password": "pw"}, ""))

	t.Run("no token", func(t *testing.T) {
		rec := e.do(t, http.MethodGet, "/api/auth/profile", nil, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, KindMissingToken, decode[ErrorBody](t, rec).Kind)
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := e.do(t, http.MethodGet, "/api/auth/profile", nil, "not.a.jwt")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, KindInvalidToken, decode[ErrorBody](t, rec).Kind)
	})

	t.Run("valid token", func(t *testing.T) {
		rec := e.do(t, http.MethodGet, "/api/auth/profile", nil, reg.Token)
		require.Equal(t, http.StatusOK, rec.Code)
		p := decode[ProfileResponse](t, rec)
		assert.Equal(t, reg.User.ID, p.User.ID)
		assert.False(t, p.User.CreatedAt.IsZero())
	})

	t.Run("token for a vanished user", func(t *testing.T) {
		tok, err := e.issuer.Issue(auth.Identity{UserID: "ghost", Email: "g@x.edu", Role: models.RoleStudent})
		require.NoError(t, err)
		rec := e.do(t, http.MethodGet, "/api/auth/profile", nil, tok)
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, KindNotFound, decode[ErrorBody](t, rec).Kind)
	})
}

func TestHandle_RoleGuard(t *testing.T) {
	e := newTestEnv(t)
	var seen *auth.Claims
	e.srv.Handle("/api/admin/reports", models.AdminOnly, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})).Methods(http.MethodGet)

	student, err := e.issuer.Issue(auth.Identity{UserID: "u1", Email: "s@x.edu", Role: models.RoleStudent})
	require.NoError(t, err)
	admin, err := e.issuer.Issue(auth.Identity{UserID: "u2", Email: "a@x.edu", Role: models.RoleAdmin})
	require.NoError(t, err)

	rec := e.do(t, http.MethodGet, "/api/admin/reports", nil, student)
	require.Equal(t, http.StatusForbidden, rec.Code)
	body := decode[ErrorBody](t, rec)
	assert.Equal(t, KindInsufficientPermissions, body.Kind)
	assert.Equal(t, []string{"admin"}, body.Required)
	assert.Equal(t, "student", body.Current)
	assert.Nil(t, seen)

	rec = e.do(t, http.MethodGet, "/api/admin/reports", nil, admin)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "u2", seen.UserID)

	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.GateDecisionsTotal.WithLabelValues(metrics.DecisionForbidden)))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.GateDecisionsTotal.WithLabelValues(metrics.DecisionAllowed)))
}

func TestNotFound(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/api/nowhere", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decode[ErrorBody](t, rec)
	assert.Equal(t, KindNotFound, body.Kind)
	assert.Equal(t, "/api/nowhere", body.Path)
}

func TestHealthAndRoot(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	h := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", h.Status)
	assert.GreaterOrEqual(t, h.Uptime, 0.0)

	rec = e.do(t, http.MethodGet, "/", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/auth/login")
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestEnv(t)
	e.do(t, http.MethodGet, "/health", nil, "")

	rec := e.do(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `campusdesk_http_request_duration_seconds_count{method="GET",route="/health",status="200"} 1`)
}

func TestCORS(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", testClientURL)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, testClientURL, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestID(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/health", nil, "")
	assert.NotEmpty(t, rec.Header().Get(common.RequestIDHeaderName))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(common.RequestIDHeaderName, "abc-123")
	rec = httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(common.RequestIDHeaderName))
}

// --- internal failures ---

type failingService struct{ err error }

func (f failingService) Register(context.Context, services.RegisterInput) (*services.AuthResult, error) {
	return nil, f.err
}
func (f failingService) Login(context.Context, string, string) (*services.AuthResult, error) {
	return nil, f.err
}
func (f failingService) Profile(context.Context, string) (*models.PublicUser, error) {
	return nil, f.err
}

func TestInternalErrorsAreOpaque(t *testing.T) {
	issuer, err := auth.NewTokenIssuer([]byte("k"), time.Hour)
	require.NoError(t, err)
	e := newTestEnvWith(t, failingService{err: errors.New("pq: connection refused to 10.0.0.5")}, issuer)

	rec := e.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "a@x.edu", "password": "pw"}, "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[ErrorBody](t, rec)
	assert.Equal(t, KindInternal, body.Kind)
	assert.Equal(t, "internal error", body.Message)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestRecoverer(t *testing.T) {
	e := newTestEnv(t)
	e.srv.Handle("/boom", nil, http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	tok, err := e.issuer.Issue(auth.Identity{UserID: "u", Email: "u@x.edu", Role: models.RoleStaff})
	require.NoError(t, err)

	rec := e.do(t, http.MethodGet, "/boom", nil, tok)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

// --- lifecycle ---

func TestServe_StopsOnCancel(t *testing.T) {
	e := newTestEnv(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- e.srv.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

// --- end to end ---

func TestScenario_RegisterLoginAuthorize(t *testing.T) {
	e := newTestEnv(t)
	e.srv.Handle("/api/requests", models.StudentOnly, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"owner": auth.ClaimsFromContext(r.Context()).UserID})
	})).Methods(http.MethodGet)
	e.srv.Handle("/api/analytics", models.AdminOnly, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).Methods(http.MethodGet)

	reg := e.do(t, http.MethodPost, "/api/auth/register", map[string]string{"name": "Ann", "email": "ann@x.edu", "password": "pw1"}, "")
	require.Equal(t, http.StatusCreated, reg.Code)
	user := decode[AuthResponse](t, reg).User
	assert.Equal(t, models.RoleStudent, user.Role)

	login := e.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "ann@x.edu", "password": "pw1"}, "")
	require.Equal(t, http.StatusOK, login.Code)
	tok := decode[AuthResponse](t, login).Token

	rec := e.do(t, http.MethodGet, "/api/requests", nil, tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, user.ID, decode[map[string]string](t, rec)["owner"])

	rec = e.do(t, http.MethodGet, "/api/analytics", nil, tok)
	require.Equal(t, http.StatusForbidden, rec.Code)
	body := decode[ErrorBody](t, rec)
	assert.Equal(t, []string{"admin"}, body.Required)
	assert.Equal(t, "student", body.Current)

	rec = e.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "ann@x.edu", "password": "wrong"}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, KindInvalidCredentials, decode[ErrorBody](t, rec).Kind)
}
