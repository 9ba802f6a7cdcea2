package metrics

import (
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}

	// Verify all metric groups are initialized
	if r.ProxiesActive == nil {
		t.Error("ProxiesActive not initialized")
	}
	if r.ConflictsTotal == nil {
		t.Error("ConflictsTotal not initialized")
	}
	if r.RegistrationsTotal == nil {
		t.Error("RegistrationsTotal not initialized")
	}
	if r.ClusterPeersTotal == nil {
		t.Error("ClusterPeersTotal not initialized")
	}
	if r.TransportMessagesTotal == nil {
		t.Error("TransportMessagesTotal not initialized")
	}
	if r.registry == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestDefaultRegistry(t *testing.T) {
	// Should return the same instance
	r1 := DefaultRegistry()
	r2 := DefaultRegistry()

	if r1 != r2 {
		t.Error("DefaultRegistry() should return the same instance")
	}
}

func TestRecordForward(t *testing.T) {
	r := NewRegistry()

	r.RecordForward("cast")
	r.RecordForward("cast")
	r.RecordForward("notify")

	counter, err := r.ForwardsTotal.GetMetricWithLabelValues("cast")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}

	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("Failed to read metric: %v", err)
	}

	if metric.Counter.GetValue() != 2 {
		t.Errorf("Expected 2 cast forwards, got %v", metric.Counter.GetValue())
	}
}

func TestRecordProxyLifecycle(t *testing.T) {
	r := NewRegistry()

	r.RecordProxyStarted()
	r.RecordProxyStarted()
	r.RecordProxyShutdown("conflict")

	var metric dto.Metric
	if err := r.ProxiesActive.Write(&metric); err != nil {
		t.Fatalf("Failed to read gauge: %v", err)
	}
	if metric.Gauge.GetValue() != 1 {
		t.Errorf("Expected 1 active proxy, got %v", metric.Gauge.GetValue())
	}

	counter, err := r.ProxyShutdownsTotal.GetMetricWithLabelValues("conflict")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("Failed to read metric: %v", err)
	}
	if metric.Counter.GetValue() != 1 {
		t.Errorf("Expected 1 conflict shutdown, got %v", metric.Counter.GetValue())
	}
}

func TestRecordCallRelay(t *testing.T) {
	r := NewRegistry()

	r.RecordCallRelay(5 * time.Millisecond)

	counter, err := r.ForwardsTotal.GetMetricWithLabelValues("call")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}

	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("Failed to read metric: %v", err)
	}
	if metric.Counter.GetValue() != 1 {
		t.Errorf("Expected 1 call forward, got %v", metric.Counter.GetValue())
	}
}

func TestRecordPollCycle(t *testing.T) {
	r := NewRegistry()

	r.RecordPollCycle(true)
	r.RecordPollCycle(false)
	r.RecordPollCycle(true)

	counter, err := r.PollerCyclesTotal.GetMetricWithLabelValues("ok")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}

	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("Failed to read metric: %v", err)
	}
	if metric.Counter.GetValue() != 2 {
		t.Errorf("Expected 2 ok cycles, got %v", metric.Counter.GetValue())
	}

	if err := r.PollerLastSuccessTime.Write(&metric); err != nil {
		t.Fatalf("Failed to read gauge: %v", err)
	}
	if metric.Gauge.GetValue() == 0 {
		t.Error("Expected last success timestamp to be set")
	}
}
