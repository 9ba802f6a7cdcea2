package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// Proxy Metrics
	ProxiesActive       prometheus.Gauge
	WorkerStartsTotal   *prometheus.CounterVec
	ConflictsTotal      prometheus.Counter
	ProxyShutdownsTotal *prometheus.CounterVec
	ForwardsTotal       *prometheus.CounterVec
	GetHandleTotal      prometheus.Counter
	CallRelayDuration   prometheus.Histogram

	// Naming Metrics
	NamesRegistered    prometheus.Gauge
	RegistrationsTotal *prometheus.CounterVec
	ResolvesTotal      *prometheus.CounterVec

	// Cluster Metrics
	ClusterPeersTotal        prometheus.Gauge
	ClusterHealthyPeersTotal prometheus.Gauge
	PollerCyclesTotal        *prometheus.CounterVec
	PollerLastSuccessTime    prometheus.Gauge
	ConnectAttemptsTotal     *prometheus.CounterVec

	// Transport Metrics
	TransportMessagesTotal *prometheus.CounterVec
	TransportBytesTotal    *prometheus.CounterVec
	PayloadsCompressed     prometheus.Counter
	DispatchRequestsTotal  *prometheus.CounterVec
	DispatchDuration       prometheus.Histogram

	registry *prometheus.Registry
	mu       sync.RWMutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	// Initialize all metrics
	r.initProxyMetrics()
	r.initNamingMetrics()
	r.initClusterMetrics()
	r.initTransportMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
