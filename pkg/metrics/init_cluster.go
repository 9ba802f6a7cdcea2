package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initClusterMetrics() {
	r.ClusterPeersTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_cluster_peers_total",
			Help: "Total number of known peer nodes",
		},
	)

	r.ClusterHealthyPeersTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_cluster_healthy_peers_total",
			Help: "Number of peer nodes seen within the health window",
		},
	)

	r.PollerCyclesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_poller_cycles_total",
			Help: "Total number of discovery poll cycles",
		},
		[]string{"result"}, // ok, error
	)

	r.PollerLastSuccessTime = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_poller_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last successful discovery poll",
		},
	)

	r.ConnectAttemptsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_connect_attempts_total",
			Help: "Total number of peer connect attempts requested by the poller",
		},
		[]string{"result"}, // ok, error
	)
}
