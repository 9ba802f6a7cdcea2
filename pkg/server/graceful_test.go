package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dd0wney/cluso-registry/pkg/health"
	"github.com/dd0wney/cluso-registry/pkg/metrics"
)

func newTestServer() *OpsServer {
	checker := health.NewChecker()
	checker.RegisterLivenessCheck("always", func() health.Check {
		return health.Check{Name: "always", Status: health.StatusHealthy}
	})
	return NewOpsServer("127.0.0.1:0", metrics.NewRegistry().GetPrometheusRegistry(), checker)
}

func TestOpsServerRoutes(t *testing.T) {
	s := newTestServer()

	paths := []string{"/metrics", "/health", "/ready"}
	for _, path := range paths {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		s.server.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s: status = %d, want %d", path, rec.Code, http.StatusOK)
		}
	}
}

func TestOpsServerShutdownRunsHooksInOrder(t *testing.T) {
	s := newTestServer()

	var order []string
	s.RegisterShutdownHook(func() { order = append(order, "poller") })
	s.RegisterShutdownHook(func() { order = append(order, "registry") })
	s.RegisterShutdownHook(func() { order = append(order, "transport") })

	if err := s.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	want := []string{"poller", "registry", "transport"}
	if len(order) != len(want) {
		t.Fatalf("ran %d hooks, want %d", len(order), len(want))
	}
	for i, name := range want {
		if order[i] != name {
			t.Errorf("hook %d = %q, want %q", i, order[i], name)
		}
	}
}

func TestOpsServerShutdownIdempotent(t *testing.T) {
	s := newTestServer()

	hookRuns := 0
	s.RegisterShutdownHook(func() { hookRuns++ })

	if err := s.Shutdown(time.Second); err != nil {
		t.Fatalf("first Shutdown failed: %v", err)
	}
	if err := s.Shutdown(time.Second); err != nil {
		t.Fatalf("second Shutdown failed: %v", err)
	}
	if hookRuns != 1 {
		t.Errorf("hook ran %d times, want 1", hookRuns)
	}
}

func TestOpsServerShutdownSignalling(t *testing.T) {
	s := newTestServer()

	if s.IsShuttingDown() {
		t.Error("server reports shutting down before Shutdown")
	}

	if err := s.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	if !s.IsShuttingDown() {
		t.Error("server does not report shutting down after Shutdown")
	}
	select {
	case <-s.ShutdownChannel():
	case <-time.After(time.Second):
		t.Error("shutdown channel did not close")
	}
}
