package app

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegisterHTTP_HealthAndReady(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	registerHTTP(mux, discardLogger(), Config{}, nil, false, nil, nil, nil)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz: status %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("readyz: status %d", rr.Code)
	}
}

func TestRegisterHTTP_ReadinessRequiresDB(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	registerHTTP(mux, discardLogger(), Config{ReadinessRequireDB: true}, nil, false, nil, nil, nil)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz without db: status %d, want 503", rr.Code)
	}
}

func TestRegisterHTTP_MetricsEndpoint(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	registerHTTP(mux, discardLogger(), Config{}, nil, false, nil, nil, NewMetrics())

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics: status %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "go_goroutines") {
		t.Fatal("metrics output missing runtime collectors")
	}
}

func setTestSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("NOTENEST_ACCESS_TOKEN_SECRET", "access-secret-0123456789-0123456789-abc")
	t.Setenv("NOTENEST_REFRESH_TOKEN_SECRET", "refresh-secret-0123456789-0123456789-xyz")
}

func TestNew_InMemoryWiring(t *testing.T) {
	setTestSecrets(t)

	a, err := New(Config{}, discardLogger())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	if a.dbEnabled || a.dbPool != nil {
		t.Fatal("expected in-memory mode without a database URL")
	}

	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.auth, a.notes, a.metrics)

	body := strings.NewReader(`{"username":"ada","email":"ada@example.com","password":"pw123"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("register through wired mux: status %d body %s", rr.Code, rr.Body.String())
	}

	var env struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if !env.Success {
		t.Fatal("expected success envelope")
	}
}

func TestNew_RejectsBadSecrets(t *testing.T) {
	t.Setenv("NOTENEST_ACCESS_TOKEN_SECRET", "short")
	t.Setenv("NOTENEST_REFRESH_TOKEN_SECRET", "short")

	if _, err := New(Config{}, discardLogger()); err == nil {
		t.Fatal("expected error for short secrets")
	}
}
