package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affconsole/internal/config"
	"affconsole/internal/handlers"
	"affconsole/internal/repository"
	"affconsole/internal/security"
	"affconsole/internal/storage"
)

func testEngine(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.AppConfig{
		Environment: config.EnvDevelopment,
		API:         config.APIConfig{BypassHeader: "ngrok-skip-browser-warning"},
		Security: config.SecurityConfig{
			JWTAccessSecret: "server-test",
			JWTAccessTTL:    time.Minute,
			JWTRefreshTTL:   time.Hour,
		},
	}
	hasher := security.NewPasswordHasher(security.FastParams)
	store := repository.NewMemory().Store()
	require.NoError(t, repository.Seed(context.Background(), store, hasher))

	set := handlers.NewHandlerSet(zerolog.Nop(), cfg, handlers.Deps{
		Store:   store,
		Objects: storage.NewMemoryStore("http://files.local"),
		Hasher:  hasher,
	})
	return NewEngine(cfg, zerolog.Nop(), set)
}

func TestEngineRoutes(t *testing.T) {
	engine := testEngine(t)

	tests := []struct {
		name   string
		method string
		path   string
		status int
		body   string
	}{
		{name: "health", method: http.MethodGet, path: "/api/healthz", status: http.StatusOK},
		{name: "unknown route", method: http.MethodGet, path: "/api/nope", status: http.StatusNotFound,
			body: `{"success":false,"message":"route not found"}`},
		{name: "wrong method", method: http.MethodDelete, path: "/api/auth/login", status: http.StatusMethodNotAllowed,
			body: `{"success":false,"message":"method not allowed"}`},
		{name: "protected", method: http.MethodGet, path: "/api/customers", status: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
			if tt.body != "" {
				assert.JSONEq(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestEnginePreflightAllowsBypassHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	testEngine(t).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "ngrok-skip-browser-warning")
}

func TestNewHTTPServerAddr(t *testing.T) {
	cfg := &config.AppConfig{HTTP: config.HTTPConfig{Host: "127.0.0.1", Port: 9090}}
	srv := NewHTTPServer(cfg, zerolog.Nop(), handlers.HandlerSet{})
	assert.Equal(t, "127.0.0.1:9090", srv.Addr())
}
