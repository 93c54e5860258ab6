// Package metrics keeps a bounded rolling history of completed executions
// and derives recent-average figures for system health reporting. The
// strategy selector never reads these figures; the decision table is static.
package metrics

import (
	"sync"
	"time"

	"github.com/lthuynh/NeuralNGenAI/internal/strategy"
	"github.com/lthuynh/NeuralNGenAI/internal/workload"
)

const (
	// historyCap bounds the retained history; the oldest record is evicted
	// first once the cap is exceeded.
	historyCap = 100
	// windowSize is how many of the most recent records feed the rolling
	// averages.
	windowSize = 10
)

// PerformanceSnapshot is one record per completed execution.
type PerformanceSnapshot struct {
	Timestamp   time.Time
	Type        workload.Type
	Complexity  workload.Complexity
	Strategy    strategy.Strategy
	Elapsed     time.Duration
	Confidence  float64
	Utilization workload.Utilization
}

// OptimizationMetrics is the rolling view over the most recent records.
type OptimizationMetrics struct {
	AvgUtilization workload.Utilization `json:"avg_utilization"`
	AvgElapsed     time.Duration        `json:"avg_elapsed"`
	AvgConfidence  float64              `json:"avg_confidence"`
	// TotalProcessed counts every recorded execution and is not reset by
	// history eviction.
	TotalProcessed uint64 `json:"total_processed"`
	WindowSize     int    `json:"window_size"`
}

type Tracker struct {
	mu      sync.Mutex
	history []PerformanceSnapshot
	current OptimizationMetrics
	total   uint64
}

func NewTracker() *Tracker {
	return &Tracker{history: make([]PerformanceSnapshot, 0, historyCap)}
}

// Record appends one execution record, evicts the oldest past the cap and
// recomputes the rolling metrics. Readers never observe the history between
// the append and the eviction.
func (t *Tracker) Record(w workload.Workload, st strategy.Strategy, elapsed time.Duration, res workload.Result) {
	snap := PerformanceSnapshot{
		Timestamp:   time.Now().UTC(),
		Type:        w.Type,
		Complexity:  w.Complexity,
		Strategy:    st,
		Elapsed:     elapsed,
		Confidence:  res.Confidence,
		Utilization: res.Utilization,
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.history = append(t.history, snap)
	if len(t.history) > historyCap {
		t.history = t.history[len(t.history)-historyCap:]
	}
	t.total++
	t.current = t.compute()
}

// Current returns the last computed rolling metrics, or the zero value when
// nothing has been recorded yet.
func (t *Tracker) Current() OptimizationMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// History returns a copy of the retained records, oldest first.
func (t *Tracker) History() []PerformanceSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]PerformanceSnapshot, len(t.history))
	copy(out, t.history)
	return out
}

// compute derives rolling means over the most recent windowSize records.
// Caller holds the lock.
func (t *Tracker) compute() OptimizationMetrics {
	window := t.history
	if len(window) > windowSize {
		window = window[len(window)-windowSize:]
	}
	m := OptimizationMetrics{TotalProcessed: t.total, WindowSize: len(window)}
	if len(window) == 0 {
		return m
	}
	var elapsedSum time.Duration
	for _, s := range window {
		m.AvgUtilization.CPU += s.Utilization.CPU
		m.AvgUtilization.GPU += s.Utilization.GPU
		m.AvgUtilization.Neural += s.Utilization.Neural
		m.AvgUtilization.Memory += s.Utilization.Memory
		m.AvgConfidence += s.Confidence
		elapsedSum += s.Elapsed
	}
	n := float64(len(window))
	m.AvgUtilization.CPU /= n
	m.AvgUtilization.GPU /= n
	m.AvgUtilization.Neural /= n
	m.AvgUtilization.Memory /= n
	m.AvgConfidence /= n
	m.AvgElapsed = elapsedSum / time.Duration(len(window))
	return m
}
