package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhartig/kapsel/internal/config"
)

func testServer(apiKey string) *Server {
	return &Server{
		cfg: &config.Config{
			APIKey: apiKey,
		},
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_NoAPIKey(t *testing.T) {
	s := testServer("")
	handler := s.authMiddleware(okHandler())

	req := httptest.NewRequest("POST", "/execute", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	// No API key configured = open access
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddleware_ValidKey(t *testing.T) {
	s := testServer("sk-test-key")
	handler := s.authMiddleware(okHandler())

	req := httptest.NewRequest("POST", "/execute", nil)
	req.Header.Set("Authorization", "Bearer sk-test-key")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddleware_InvalidKey(t *testing.T) {
	s := testServer("sk-test-key")
	handler := s.authMiddleware(okHandler())

	req := httptest.NewRequest("POST", "/execute", nil)
	req.Header.Set("Authorization", "Bearer wrong-key")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	s := testServer("sk-test-key")
	handler := s.authMiddleware(okHandler())

	req := httptest.NewRequest("POST", "/execute", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_NotBearer(t *testing.T) {
	s := testServer("sk-test-key")
	handler := s.authMiddleware(okHandler())

	req := httptest.NewRequest("POST", "/execute", nil)
	req.Header.Set("Authorization", "sk-test-key")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_SkipsProbes(t *testing.T) {
	s := testServer("sk-test-key")
	handler := s.authMiddleware(okHandler())

	for _, path := range []string{"/healthz", "/metrics"} {
		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRequestIDMiddleware_Generated(t *testing.T) {
	s := testServer("")
	handler := s.requestIDMiddleware(okHandler())

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Len(t, rec.Header().Get("X-Request-ID"), 8)
}

func TestRequestIDMiddleware_Propagated(t *testing.T) {
	s := testServer("")
	handler := s.requestIDMiddleware(okHandler())

	req := httptest.NewRequest("GET", "/healthz", nil)
	req.Header.Set("X-Request-ID", "client-id")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "client-id", rec.Header().Get("X-Request-ID"))
}
