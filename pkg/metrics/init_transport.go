package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initTransportMetrics() {
	r.TransportMessagesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_transport_messages_total",
			Help: "Total number of transport messages by direction and type",
		},
		[]string{"direction", "type"}, // direction: sent, received
	)

	r.TransportBytesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_transport_bytes_total",
			Help: "Total transport payload bytes by direction",
		},
		[]string{"direction"},
	)

	r.PayloadsCompressed = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "registry_transport_payloads_compressed_total",
			Help: "Total number of wire payloads that were snappy-compressed",
		},
	)

	r.DispatchRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_dispatch_requests_total",
			Help: "Total number of remote operations dispatched to local proxies",
		},
		[]string{"status"}, // ok, no_such_registration, error
	)

	r.DispatchDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "registry_dispatch_duration_seconds",
			Help:    "Duration of remote dispatch handling in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
	)
}
