package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initProxyMetrics() {
	r.ProxiesActive = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_proxies_active",
			Help: "Number of proxies currently active on this node",
		},
	)

	r.WorkerStartsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_worker_starts_total",
			Help: "Total number of worker start attempts",
		},
		[]string{"status"}, // success, failure
	)

	r.ConflictsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "registry_conflicts_total",
			Help: "Total number of name conflicts that caused a proxy to yield",
		},
	)

	r.ProxyShutdownsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_proxy_shutdowns_total",
			Help: "Total number of proxy shutdowns by reason",
		},
		[]string{"reason"}, // normal, conflict, worker_failure
	)

	r.ForwardsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_forwards_total",
			Help: "Total number of operations forwarded to workers",
		},
		[]string{"kind"}, // cast, call, notify
	)

	r.GetHandleTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "registry_get_handle_total",
			Help: "Total number of reserved get-handle requests answered locally",
		},
	)

	r.CallRelayDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "registry_call_relay_duration_seconds",
			Help:    "Duration of request/response relays through a proxy in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
	)
}
