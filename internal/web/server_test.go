package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/match"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

func testServer(t *testing.T, token string) *Server {
	t.Helper()

	cfg := &config.Config{
		Web: config.WebConfig{Token: token},
	}
	store := ledger.NewCSVStore(t.TempDir())
	state := handlers.NewState(store, nil, match.NewMatcher(0.6), nil, "", nil)
	return NewServer(cfg, 8080, "127.0.0.1", state)
}

func TestRoutes_HealthIsOpen(t *testing.T) {
	s := testServer(t, "secret")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("health must not require auth, got %d", w.Code)
	}
}

func TestRoutes_APIRequiresToken(t *testing.T) {
	s := testServer(t, "secret")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attendance", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/attendance", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", w.Code)
	}
}

func TestRoutes_UnknownPath(t *testing.T) {
	s := testServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
