package dispatcher

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/lthuynh/NeuralNGenAI/internal/compute"
	"github.com/lthuynh/NeuralNGenAI/internal/profile"
	"github.com/lthuynh/NeuralNGenAI/internal/workload"
)

// echoAdapter returns the workload payload length so tests can tell which
// portion reached which class.
type echoAdapter struct {
	class      compute.Class
	confidence float64
}

func (e *echoAdapter) Class() compute.Class { return e.class }

func (e *echoAdapter) Process(_ context.Context, w workload.Workload) (workload.Result, error) {
	return workload.Result{
		Output:     string(e.class) + ":" + strconv.Itoa(len(w.Payload)),
		Confidence: e.confidence,
		Elapsed:    time.Millisecond,
	}, nil
}

func fullSnapshot() *profile.CapabilitySnapshot {
	return &profile.CapabilitySnapshot{
		CPU:    profile.ComputeClass{Available: true, Capacity: 8},
		GPU:    profile.ComputeClass{Available: true, Capacity: 8},
		Neural: profile.ComputeClass{Available: true},
	}
}

func newTestDispatcher(snap *profile.CapabilitySnapshot) *Dispatcher {
	return New(Options{
		Adapters: compute.NewSet(
			&echoAdapter{class: compute.ClassCPU, confidence: 0.6},
			&echoAdapter{class: compute.ClassGPU, confidence: 0.8},
			&echoAdapter{class: compute.ClassNeural, confidence: 0.9},
		),
		Snapshot: snap,
	})
}

func TestSubmitWithoutSnapshotFallsBackToCPU(t *testing.T) {
	d := newTestDispatcher(nil)
	w := workload.New(workload.TypeModelInference, workload.ComplexityHigh, workload.PriorityNormal, make([]byte, 32), nil)
	res := d.Submit(context.Background(), w)
	if res.Output != "cpu:32" {
		t.Fatalf("expected whole payload on cpu, got %q", res.Output)
	}
}

func TestSubmitFansOutAcrossAllClasses(t *testing.T) {
	d := newTestDispatcher(fullSnapshot())
	w := workload.New(workload.TypeModelInference, workload.ComplexityHigh, workload.PriorityNormal, make([]byte, 320), nil)
	res := d.Submit(context.Background(), w)
	// capacities 8 + 8 + 16 nominal = 32
	for _, part := range []string{"cpu:80", "gpu:80", "neural:160"} {
		if !strings.Contains(res.Output, part) {
			t.Fatalf("output %q missing branch %q", res.Output, part)
		}
	}
	want := (0.6 + 0.8 + 0.9) / 3
	if diff := res.Confidence - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("confidence = %v, want mean %v", res.Confidence, want)
	}
}

func TestSubmitBatchPreservesInputOrder(t *testing.T) {
	d := newTestDispatcher(nil)
	ws := make([]workload.Workload, 8)
	for i := range ws {
		ws[i] = workload.New(workload.TypeDataAnalysis, workload.ComplexityLow, workload.PriorityNormal, make([]byte, i+1), nil)
	}
	results := d.SubmitBatch(context.Background(), ws)
	if len(results) != len(ws) {
		t.Fatalf("got %d results, want %d", len(results), len(ws))
	}
	for i, res := range results {
		if want := "cpu:" + strconv.Itoa(i+1); res.Output != want {
			t.Fatalf("result %d = %q, want %q", i, res.Output, want)
		}
	}
}

func TestDispatchQueuedRunsInPriorityOrder(t *testing.T) {
	d := newTestDispatcher(nil)
	d.Queue().Enqueue(workload.New(workload.TypeDataAnalysis, workload.ComplexityLow, workload.PriorityLow, make([]byte, 1), nil))
	d.Queue().Enqueue(workload.New(workload.TypeDataAnalysis, workload.ComplexityLow, workload.PriorityCritical, make([]byte, 2), nil))
	d.Queue().Enqueue(workload.New(workload.TypeDataAnalysis, workload.ComplexityLow, workload.PriorityNormal, make([]byte, 3), nil))

	results := d.DispatchQueued(context.Background(), 0)
	want := []string{"cpu:2", "cpu:3", "cpu:1"}
	if len(results) != len(want) {
		t.Fatalf("got %d results, want %d", len(results), len(want))
	}
	for i, res := range results {
		if res.Output != want[i] {
			t.Fatalf("result %d = %q, want %q", i, res.Output, want[i])
		}
	}
	if d.Queue().Len() != 0 {
		t.Fatalf("queue should be drained, %d left", d.Queue().Len())
	}
}

func TestDispatchQueuedHonorsMax(t *testing.T) {
	d := newTestDispatcher(nil)
	for i := 0; i < 5; i++ {
		d.Queue().Enqueue(workload.New(workload.TypeDataAnalysis, workload.ComplexityLow, workload.PriorityNormal, nil, nil))
	}
	if got := len(d.DispatchQueued(context.Background(), 2)); got != 2 {
		t.Fatalf("dispatched %d workloads, want 2", got)
	}
	if d.Queue().Len() != 3 {
		t.Fatalf("queue length = %d, want 3", d.Queue().Len())
	}
}

func TestDispatchQueuedOnEmptyQueueReturnsNothing(t *testing.T) {
	d := newTestDispatcher(nil)
	if got := d.DispatchQueued(context.Background(), 0); len(got) != 0 {
		t.Fatalf("expected no results from an empty queue, got %d", len(got))
	}
}

func TestSubmitRecordsMetrics(t *testing.T) {
	d := newTestDispatcher(nil)
	for i := 0; i < 3; i++ {
		w := workload.New(workload.TypeTextAnalysis, workload.ComplexityLow, workload.PriorityNormal, nil, nil)
		d.Submit(context.Background(), w)
	}
	m := d.CurrentMetrics()
	if m.TotalProcessed != 3 {
		t.Fatalf("total processed = %d, want 3", m.TotalProcessed)
	}
	if m.AvgConfidence != 0.6 {
		t.Fatalf("avg confidence = %v, want 0.6", m.AvgConfidence)
	}
	if len(d.History()) != 3 {
		t.Fatalf("history length = %d, want 3", len(d.History()))
	}
}

func TestSetSnapshotChangesRouting(t *testing.T) {
	d := newTestDispatcher(nil)
	w := workload.New(workload.TypeTextAnalysis, workload.ComplexityLow, workload.PriorityNormal, make([]byte, 16), nil)
	if res := d.Submit(context.Background(), w); res.Output != "cpu:16" {
		t.Fatalf("expected cpu routing before snapshot, got %q", res.Output)
	}
	d.SetSnapshot(fullSnapshot())
	if res := d.Submit(context.Background(), w); res.Output != "neural:16" {
		t.Fatalf("expected neural routing after snapshot, got %q", res.Output)
	}
}
