package observability

import (
	"strings"
	"testing"
)

func TestRenderPrometheus(t *testing.T) {
	r := NewRegistry()
	r.IncCounter("dispatches_total", map[string]string{"strategy": "cpu_gpu", "workload_type": "data_analysis"}, 3)
	r.SetGauge("queue_depth", nil, 2)

	out := r.RenderPrometheus()
	if !strings.Contains(out, `dispatches_total{strategy="cpu_gpu",workload_type="data_analysis"} 3`) {
		t.Fatalf("missing dispatch counter in output: %s", out)
	}
	if !strings.Contains(out, `queue_depth 2`) {
		t.Fatalf("missing queue depth gauge in output: %s", out)
	}
}

func TestObserveAccumulatesCountAndSum(t *testing.T) {
	r := NewRegistry()
	r.Observe("dispatch_latency_seconds", map[string]string{"strategy": "cpu_only"}, 0.25)
	r.Observe("dispatch_latency_seconds", map[string]string{"strategy": "cpu_only"}, 0.5)

	s := r.Snapshot()
	if len(s.Observations) != 1 {
		t.Fatalf("expected one observation series, got %d", len(s.Observations))
	}
	if s.Observations[0].Count != 2 || s.Observations[0].Sum != 0.75 {
		t.Fatalf("observation = %+v, want count 2 sum 0.75", s.Observations[0])
	}

	out := r.RenderPrometheus()
	if !strings.Contains(out, `dispatch_latency_seconds_count{strategy="cpu_only"} 2`) {
		t.Fatalf("missing observation count in output: %s", out)
	}
	if !strings.Contains(out, `dispatch_latency_seconds_sum{strategy="cpu_only"} 0.75`) {
		t.Fatalf("missing observation sum in output: %s", out)
	}
}

func TestCounterLabelPermutationsShareASeries(t *testing.T) {
	r := NewRegistry()
	r.IncCounter("branch_failures_total", map[string]string{"class": "gpu", "reason": "error"}, 1)
	r.IncCounter("branch_failures_total", map[string]string{"reason": "error", "class": "gpu"}, 1)

	s := r.Snapshot()
	if len(s.Counters) != 1 {
		t.Fatalf("expected one counter series, got %d", len(s.Counters))
	}
	if s.Counters[0].Value != 2 {
		t.Fatalf("counter value = %v, want 2", s.Counters[0].Value)
	}
}

func TestResetClearsAllSeries(t *testing.T) {
	r := NewRegistry()
	r.IncCounter("dispatches_total", nil, 1)
	r.SetGauge("queue_depth", nil, 5)
	r.Observe("dispatch_latency_seconds", nil, 0.1)
	r.Reset()

	s := r.Snapshot()
	if len(s.Counters) != 0 || len(s.Gauges) != 0 || len(s.Observations) != 0 {
		t.Fatalf("expected empty snapshot after reset, got %+v", s)
	}
}
