package test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/superplace/rosterd/internal/events"
	"github.com/superplace/rosterd/internal/handler"
	"github.com/superplace/rosterd/internal/repository"
	"github.com/superplace/rosterd/internal/security"
	"github.com/superplace/rosterd/internal/security/audit"
	"github.com/superplace/rosterd/internal/security/auth"
	"github.com/superplace/rosterd/internal/security/middleware"
	"github.com/superplace/rosterd/internal/security/ratelimit"
	"github.com/superplace/rosterd/internal/service"
)

// TestServerHelper runs the full HTTP stack over in-memory storage
type TestServerHelper struct {
	Server       *httptest.Server
	Logger       *slog.Logger
	TokenManager *auth.TokenManager
	limiter      *ratelimit.Limiter
}

func NewTestServer(t *testing.T) *TestServerHelper {
	t.Helper()

	logger := slog.Default()
	accountRepo := repository.NewMemoryAccountRepository()
	tenantRepo := repository.NewMemoryTenantRepository()

	broker := events.NewBroker(logger)
	scoper := security.NewScoper(logger)
	registry := service.NewRegistryService(tenantRepo, logger)
	directory := service.NewDirectoryService(accountRepo, broker, logger)
	roster := service.NewRosterService(accountRepo, scoper, nil, broker, logger)

	tokenManager := auth.NewTokenManager("test-secret", "rosterd")
	limiter := ratelimit.NewLimiter(10000, time.Minute)
	auditLogger := audit.NewLogger(logger)

	signupHandler := handler.NewSignupHandler(registry, directory, auditLogger, logger)
	loginHandler := handler.NewLoginHandler(directory, registry, tokenManager, limiter, auditLogger, logger)
	rosterHandler := handler.NewRosterHandler(roster, auditLogger, logger)
	academiesHandler := handler.NewAcademiesHandler(registry, auditLogger, logger)
	streamHandler := handler.NewRosterStreamHandler(broker, scoper, tokenManager, nil, logger)
	healthHandler := handler.NewHealthHandler(nil, nil, logger)

	mux := http.NewServeMux()
	mux.Handle("POST /api/auth/signup", signupHandler)
	mux.Handle("POST /api/auth/login", loginHandler)
	mux.Handle("GET /api/students", rosterHandler)
	mux.HandleFunc("GET /api/academies", academiesHandler.List)
	mux.HandleFunc("POST /api/academies", academiesHandler.Create)
	mux.Handle("GET /ws/roster/{academyId}", streamHandler)
	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)

	root := middleware.CallerMiddleware(tokenManager, logger)(
		middleware.RateLimitMiddleware(limiter, logger)(mux),
	)

	server := httptest.NewServer(root)
	t.Cleanup(func() {
		server.Close()
		limiter.Stop()
	})

	return &TestServerHelper{
		Server:       server,
		Logger:       logger,
		TokenManager: tokenManager,
		limiter:      limiter,
	}
}

func (h *TestServerHelper) URL() string {
	return h.Server.URL
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// PostJSON sends a JSON request and decodes the envelope
func (h *TestServerHelper) PostJSON(t *testing.T, path, token string, payload any) (int, map[string]any) {
	t.Helper()

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, h.URL()+path, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return h.do(t, req)
}

// GetJSON sends a GET request and decodes the envelope
func (h *TestServerHelper) GetJSON(t *testing.T, path, token string) (int, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, h.URL()+path, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return h.do(t, req)
}

func (h *TestServerHelper) do(t *testing.T, req *http.Request) (int, map[string]any) {
	t.Helper()

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, body
}

// Signup registers an account and fails the test on a non-201 response
func (h *TestServerHelper) Signup(t *testing.T, payload map[string]any) map[string]any {
	t.Helper()

	status, body := h.PostJSON(t, "/api/auth/signup", "", payload)
	if status != http.StatusCreated {
		t.Fatalf("signup failed: status %d, body %v", status, body)
	}
	user, ok := body["user"].(map[string]any)
	if !ok {
		t.Fatalf("signup response missing user: %v", body)
	}
	return user
}

// Login authenticates and returns the issued token
func (h *TestServerHelper) Login(t *testing.T, payload map[string]any) string {
	t.Helper()

	status, body := h.PostJSON(t, "/api/auth/login", "", payload)
	if status != http.StatusOK {
		t.Fatalf("login failed: status %d, body %v", status, body)
	}
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("login response missing data: %v", body)
	}
	token, ok := data["token"].(string)
	if !ok || token == "" {
		t.Fatalf("login response missing token: %v", body)
	}
	return token
}
