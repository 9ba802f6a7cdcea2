package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initNamingMetrics() {
	r.NamesRegistered = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_names_registered",
			Help: "Number of logical names currently registered in the local directory",
		},
	)

	r.RegistrationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_registrations_total",
			Help: "Total number of name registration attempts",
		},
		[]string{"result"}, // ok, already_registered
	)

	r.ResolvesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_resolves_total",
			Help: "Total number of name lookups against the directory",
		},
		[]string{"result"}, // hit, miss
	)
}
