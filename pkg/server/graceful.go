// Package server provides the operational HTTP endpoint for a registry
// node: Prometheus metrics, liveness and readiness probes, and graceful
// shutdown wired to OS signals.
package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-registry/pkg/health"
)

// ShutdownHook is invoked during graceful shutdown, before the HTTP
// listener closes. Hooks run in registration order.
type ShutdownHook func()

// OpsServer wraps an HTTP server with graceful shutdown capabilities.
type OpsServer struct {
	server       *http.Server
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	hooksMu      sync.Mutex
	hooks        []ShutdownHook
}

// NewOpsServer creates the operational HTTP server. The Prometheus
// registry backs /metrics; the checker backs /health and /ready.
func NewOpsServer(addr string, promRegistry *prometheus.Registry, checker *health.Checker) *OpsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", checker.LivenessHandler())
	mux.HandleFunc("/ready", checker.ReadinessHandler())

	return &OpsServer{
		server: &http.Server{
			Addr:           addr,
			Handler:        mux,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			IdleTimeout:    120 * time.Second,
			MaxHeaderBytes: 1 << 20,
		},
		shutdownCh: make(chan struct{}),
	}
}

// RegisterShutdownHook adds a hook to run during graceful shutdown.
// Typical hooks stop the discovery poller, the registry proxies, and
// the naming transport, in that order.
func (s *OpsServer) RegisterShutdownHook(hook ShutdownHook) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// Start starts the server and handles graceful shutdown signals.
// It blocks until the listener closes.
func (s *OpsServer) Start() error {
	go s.handleSignals()

	log.Printf("Starting HTTP server on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

// Shutdown initiates a graceful shutdown: hooks run first so the node
// releases its registrations before the probe endpoints disappear.
func (s *OpsServer) Shutdown(timeout time.Duration) error {
	var err error
	s.shutdownOnce.Do(func() {
		close(s.shutdownCh)

		log.Printf("Initiating graceful shutdown (timeout: %v)", timeout)

		s.hooksMu.Lock()
		hooks := make([]ShutdownHook, len(s.hooks))
		copy(hooks, s.hooks)
		s.hooksMu.Unlock()
		for _, hook := range hooks {
			hook()
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if shutdownErr := s.server.Shutdown(ctx); shutdownErr != nil {
			err = shutdownErr
			log.Printf("Error during shutdown: %v", shutdownErr)
		} else {
			log.Printf("Server shutdown complete")
		}
	})
	return err
}

// handleSignals listens for OS signals and triggers graceful shutdown.
func (s *OpsServer) handleSignals() {
	sigCh := make(chan os.Signal, 1)

	signal.Notify(sigCh,
		syscall.SIGINT,  // Ctrl+C
		syscall.SIGTERM, // Termination signal (systemd, docker, k8s)
	)

	sig := <-sigCh
	log.Printf("Received %v signal, starting graceful shutdown...", sig)
	if err := s.Shutdown(30 * time.Second); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

// IsShuttingDown returns true if shutdown has been initiated.
func (s *OpsServer) IsShuttingDown() bool {
	select {
	case <-s.shutdownCh:
		return true
	default:
		return false
	}
}

// ShutdownChannel returns a channel that closes when shutdown is initiated.
func (s *OpsServer) ShutdownChannel() <-chan struct{} {
	return s.shutdownCh
}
