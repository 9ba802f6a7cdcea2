package metrics

import (
	"time"
)

// RecordWorkerStart records a worker start attempt
func (r *Registry) RecordWorkerStart(status string) {
	r.WorkerStartsTotal.WithLabelValues(status).Inc()
}

// RecordConflict records a name conflict that caused a proxy to yield
func (r *Registry) RecordConflict() {
	r.ConflictsTotal.Inc()
}

// RecordProxyShutdown records a proxy shutdown with its reason
func (r *Registry) RecordProxyShutdown(reason string) {
	r.ProxyShutdownsTotal.WithLabelValues(reason).Inc()
	r.ProxiesActive.Dec()
}

// RecordProxyStarted records a proxy entering the active state
func (r *Registry) RecordProxyStarted() {
	r.ProxiesActive.Inc()
}

// RecordForward records an operation forwarded to a worker
func (r *Registry) RecordForward(kind string) {
	r.ForwardsTotal.WithLabelValues(kind).Inc()
}

// RecordCallRelay records a request/response relay with its duration
func (r *Registry) RecordCallRelay(duration time.Duration) {
	r.ForwardsTotal.WithLabelValues("call").Inc()
	r.CallRelayDuration.Observe(duration.Seconds())
}

// RecordGetHandle records a reserved get-handle request answered locally
func (r *Registry) RecordGetHandle() {
	r.GetHandleTotal.Inc()
}

// RecordRegistration records a name registration attempt
func (r *Registry) RecordRegistration(result string) {
	r.RegistrationsTotal.WithLabelValues(result).Inc()
}

// RecordResolve records a directory lookup
func (r *Registry) RecordResolve(hit bool) {
	if hit {
		r.ResolvesTotal.WithLabelValues("hit").Inc()
	} else {
		r.ResolvesTotal.WithLabelValues("miss").Inc()
	}
}

// SetNamesRegistered updates the registered-names gauge
func (r *Registry) SetNamesRegistered(n int) {
	r.NamesRegistered.Set(float64(n))
}

// UpdatePeerMetrics updates peer membership gauges
func (r *Registry) UpdatePeerMetrics(total, healthy int) {
	r.ClusterPeersTotal.Set(float64(total))
	r.ClusterHealthyPeersTotal.Set(float64(healthy))
}

// RecordPollCycle records a discovery poll cycle
func (r *Registry) RecordPollCycle(ok bool) {
	if ok {
		r.PollerCyclesTotal.WithLabelValues("ok").Inc()
		r.PollerLastSuccessTime.Set(float64(time.Now().Unix()))
	} else {
		r.PollerCyclesTotal.WithLabelValues("error").Inc()
	}
}

// RecordConnectAttempt records a peer connect attempt
func (r *Registry) RecordConnectAttempt(ok bool) {
	if ok {
		r.ConnectAttemptsTotal.WithLabelValues("ok").Inc()
	} else {
		r.ConnectAttemptsTotal.WithLabelValues("error").Inc()
	}
}

// RecordTransportMessage records a transport message with its payload size
func (r *Registry) RecordTransportMessage(direction, msgType string, bytes int) {
	r.TransportMessagesTotal.WithLabelValues(direction, msgType).Inc()
	r.TransportBytesTotal.WithLabelValues(direction).Add(float64(bytes))
}

// RecordDispatch records a remote dispatch with its duration
func (r *Registry) RecordDispatch(status string, duration time.Duration) {
	r.DispatchRequestsTotal.WithLabelValues(status).Inc()
	r.DispatchDuration.Observe(duration.Seconds())
}
