package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"parley/cmd/internal/auth"
	"parley/cmd/internal/chat"
)

func testRouter(t *testing.T, cfg Config) http.Handler {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	gw := chat.NewGateway(log, chat.NewRegistry(log), chat.NewMemoryStore(),
		&auth.StaticVerifier{}, nil, chat.GatewayConfig{})

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector())

	return newRouter(log, cfg, nil, false, gw, promReg)
}

func TestRouterHealthz(t *testing.T) {
	r := testRouter(t, LoadConfig())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if body, _ := io.ReadAll(rec.Body); string(body) != "ok\n" {
		t.Fatalf("body=%q", body)
	}
}

func TestRouterReadyz(t *testing.T) {
	// No DB configured, readiness not gated on it.
	r := testRouter(t, Config{})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}

	// Readiness gated on a DB that is not configured.
	r = testRouter(t, Config{ReadinessRequireDB: true})
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d want 503", rec.Code)
	}
}

func TestRouterMetrics(t *testing.T) {
	r := testRouter(t, LoadConfig())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "go_goroutines") {
		t.Fatalf("metrics exposition missing go collector output")
	}
}

func TestRequestLoggingPreservesStatusAndUpgradeSupport(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	var sawHijacker bool
	h := WithRequestLogging(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, sawHijacker = w.(http.Hijacker)
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short"))
	}), log)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/x", nil))

	if rec.Code != http.StatusTeapot {
		t.Fatalf("status=%d", rec.Code)
	}
	if !sawHijacker {
		t.Fatal("wrapped writer lost the Hijacker interface")
	}
}
