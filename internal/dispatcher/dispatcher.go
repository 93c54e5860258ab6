// Package dispatcher ties strategy selection, execution and performance
// tracking together behind one explicitly constructed component. There is no
// process-wide instance: tests and callers build as many independently
// configured dispatchers as they need.
package dispatcher

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/lthuynh/NeuralNGenAI/internal/compute"
	"github.com/lthuynh/NeuralNGenAI/internal/engine"
	"github.com/lthuynh/NeuralNGenAI/internal/metrics"
	"github.com/lthuynh/NeuralNGenAI/internal/profile"
	"github.com/lthuynh/NeuralNGenAI/internal/queue"
	"github.com/lthuynh/NeuralNGenAI/internal/strategy"
	"github.com/lthuynh/NeuralNGenAI/internal/workload"
)

type Options struct {
	Adapters compute.Set
	Snapshot *profile.CapabilitySnapshot
	Logger   *zap.Logger
}

type Dispatcher struct {
	engine  *engine.Engine
	queue   *queue.Queue
	tracker *metrics.Tracker
	snap    atomic.Pointer[profile.CapabilitySnapshot]
	log     *zap.Logger
}

func New(opts Options) *Dispatcher {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	d := &Dispatcher{
		engine:  engine.New(opts.Adapters, log),
		queue:   queue.New(),
		tracker: metrics.NewTracker(),
		log:     log,
	}
	if opts.Snapshot != nil {
		d.snap.Store(opts.Snapshot)
	}
	return d
}

// Submit selects a strategy from the current capability snapshot, dispatches
// the workload and records the outcome. It always returns a result; a
// dispatch that produced nothing returns the zero result.
func (d *Dispatcher) Submit(ctx context.Context, w workload.Workload) workload.Result {
	snap := d.snap.Load()
	st := strategy.Select(w, snap)
	start := time.Now()
	res := d.engine.Dispatch(ctx, w, st, snap)
	elapsed := time.Since(start)
	d.tracker.Record(w, st, elapsed, res)
	d.log.Debug("workload dispatched",
		zap.String("workload_id", w.ID),
		zap.String("type", string(w.Type)),
		zap.String("strategy", string(st)),
		zap.Duration("elapsed", elapsed),
		zap.Float64("confidence", res.Confidence),
	)
	return res
}

// SubmitBatch dispatches independent workloads concurrently. Results are
// returned in input order; there is no cross-workload ordering guarantee
// during execution.
func (d *Dispatcher) SubmitBatch(ctx context.Context, ws []workload.Workload) []workload.Result {
	results := make([]workload.Result, len(ws))
	var wg sync.WaitGroup
	for i, w := range ws {
		wg.Add(1)
		go func(i int, w workload.Workload) {
			defer wg.Done()
			results[i] = d.Submit(ctx, w)
		}(i, w)
	}
	wg.Wait()
	return results
}

// DispatchQueued drains up to max queued workloads in priority order and
// dispatches each. max <= 0 drains the whole queue.
func (d *Dispatcher) DispatchQueued(ctx context.Context, max int) []workload.Result {
	var results []workload.Result
	for max <= 0 || len(results) < max {
		w, ok := d.queue.Dequeue()
		if !ok {
			break
		}
		results = append(results, d.Submit(ctx, w))
	}
	return results
}

// Queue exposes the priority-ordered holding area for batch submission.
func (d *Dispatcher) Queue() *queue.Queue { return d.queue }

func (d *Dispatcher) CurrentMetrics() metrics.OptimizationMetrics {
	return d.tracker.Current()
}

func (d *Dispatcher) History() []metrics.PerformanceSnapshot {
	return d.tracker.History()
}

// SetSnapshot replaces the capability snapshot atomically; in-flight
// dispatches keep the snapshot they started with.
func (d *Dispatcher) SetSnapshot(s *profile.CapabilitySnapshot) {
	d.snap.Store(s)
}

func (d *Dispatcher) Snapshot() *profile.CapabilitySnapshot {
	return d.snap.Load()
}
