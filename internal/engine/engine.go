// Package engine executes workloads against one or more compute classes
// according to a chosen strategy and merges the partial results.
package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/lthuynh/NeuralNGenAI/internal/compute"
	"github.com/lthuynh/NeuralNGenAI/internal/observability"
	"github.com/lthuynh/NeuralNGenAI/internal/profile"
	"github.com/lthuynh/NeuralNGenAI/internal/strategy"
	"github.com/lthuynh/NeuralNGenAI/internal/workload"
)

const (
	// cpuShareOfCPUGPU is the CPU's payload share in a cpu_gpu split.
	cpuShareOfCPUGPU = 0.6
	// gpuShareOfGPUCPU is the GPU's payload share in a gpu_cpu split.
	gpuShareOfGPUCPU = 0.7
	// neuralShortCircuit is the confidence above which a neural result is
	// returned without invoking the CPU fallback.
	neuralShortCircuit = 0.8
)

type Engine struct {
	adapters compute.Set
	log      *zap.Logger
}

func New(adapters compute.Set, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{adapters: adapters, log: log}
}

// branch is one concurrent leg of a dispatch: a payload portion bound to a
// compute class.
type branch struct {
	class compute.Class
	w     workload.Workload
}

// Dispatch runs the workload per the strategy and returns the merged result.
// It is total: a failed or missing adapter branch is logged, counted and
// excluded from the merge, and a dispatch with no surviving branch returns
// the zero-value result. Once started, every branch runs to completion;
// there is no per-branch timeout.
func (e *Engine) Dispatch(ctx context.Context, w workload.Workload, st strategy.Strategy, snap *profile.CapabilitySnapshot) workload.Result {
	ctx, span := observability.StartSpan(ctx, "engine.dispatch",
		attribute.String("workload.id", w.ID),
		attribute.String("workload.type", string(w.Type)),
		attribute.String("strategy", string(st)),
	)
	defer span.End()
	start := time.Now()

	var result workload.Result
	switch st {
	case strategy.CPUOnly:
		result = e.single(ctx, compute.ClassCPU, w)
	case strategy.GPUOnly:
		result = e.single(ctx, compute.ClassGPU, w)
	case strategy.NeuralOnly:
		result = e.single(ctx, compute.ClassNeural, w)
	case strategy.CPUGPU:
		result = Combine(e.concurrent(ctx, []branch{
			{class: compute.ClassCPU, w: w.Portion(cpuShareOfCPUGPU)},
			{class: compute.ClassGPU, w: w.Portion(1 - cpuShareOfCPUGPU)},
		}))
	case strategy.GPUCPU:
		result = Combine(e.concurrent(ctx, []branch{
			{class: compute.ClassGPU, w: w.Portion(gpuShareOfGPUCPU)},
			{class: compute.ClassCPU, w: w.Portion(1 - gpuShareOfGPUCPU)},
		}))
	case strategy.NeuralCPU:
		result = e.neuralThenCPU(ctx, w)
	case strategy.AllCompute:
		result = Combine(e.concurrent(ctx, e.planAllCompute(w, snap)))
	default:
		result = e.single(ctx, compute.ClassCPU, w)
	}

	observability.Default.Observe("dispatch_latency_seconds",
		map[string]string{"strategy": string(st)}, time.Since(start).Seconds())
	observability.Default.IncCounter("dispatches_total",
		map[string]string{"strategy": string(st), "workload_type": string(w.Type)}, 1)
	span.SetAttributes(attribute.Float64("result.confidence", result.Confidence))
	return result
}

// single forwards the whole workload to one adapter and returns its result
// unmodified.
func (e *Engine) single(ctx context.Context, class compute.Class, w workload.Workload) workload.Result {
	res, ok := e.runBranch(ctx, class, w)
	if !ok {
		return workload.Result{}
	}
	return res
}

// neuralThenCPU runs the neural engine first on the full workload. A
// confident neural result is returned immediately; otherwise the CPU
// processes the same full workload (not a split) and both results merge.
func (e *Engine) neuralThenCPU(ctx context.Context, w workload.Workload) workload.Result {
	neural, neuralOK := e.runBranch(ctx, compute.ClassNeural, w)
	if neuralOK && neural.Confidence > neuralShortCircuit {
		observability.Default.IncCounter("neural_short_circuits_total", nil, 1)
		return neural
	}
	cpu, cpuOK := e.runBranch(ctx, compute.ClassCPU, w)
	parts := make([]workload.Result, 0, 2)
	if neuralOK {
		parts = append(parts, neural)
	}
	if cpuOK {
		parts = append(parts, cpu)
	}
	return Combine(parts)
}

// planAllCompute splits the workload across every available class in
// proportion to capacity. The neural engine contributes a fixed nominal
// capacity since its cores cannot be counted portably.
func (e *Engine) planAllCompute(w workload.Workload, snap *profile.CapabilitySnapshot) []branch {
	if snap == nil {
		return []branch{{class: compute.ClassCPU, w: w}}
	}
	type share struct {
		class    compute.Class
		capacity int
	}
	shares := make([]share, 0, 3)
	if snap.CPU.Available && snap.CPU.Capacity > 0 {
		shares = append(shares, share{compute.ClassCPU, snap.CPU.Capacity})
	}
	if snap.GPU.Available && snap.GPU.Capacity > 0 {
		shares = append(shares, share{compute.ClassGPU, snap.GPU.Capacity})
	}
	if snap.Neural.Available {
		shares = append(shares, share{compute.ClassNeural, profile.NominalNeuralCapacity})
	}
	if len(shares) == 0 {
		return []branch{{class: compute.ClassCPU, w: w}}
	}
	total := 0
	for _, s := range shares {
		total += s.capacity
	}
	branches := make([]branch, 0, len(shares))
	for _, s := range shares {
		ratio := float64(s.capacity) / float64(total)
		branches = append(branches, branch{class: s.class, w: w.Portion(ratio)})
	}
	return branches
}

// concurrent launches every branch as its own goroutine and joins on all of
// them before returning; completion order does not matter because Combine is
// commutative over its inputs. Failed branches come back excluded.
func (e *Engine) concurrent(ctx context.Context, branches []branch) []workload.Result {
	results := make([]workload.Result, len(branches))
	succeeded := make([]bool, len(branches))
	var wg sync.WaitGroup
	for i, b := range branches {
		wg.Add(1)
		go func(i int, b branch) {
			defer wg.Done()
			results[i], succeeded[i] = e.runBranch(ctx, b.class, b.w)
		}(i, b)
	}
	wg.Wait()
	out := make([]workload.Result, 0, len(branches))
	for i := range branches {
		if succeeded[i] {
			out = append(out, results[i])
		}
	}
	return out
}

func (e *Engine) runBranch(ctx context.Context, class compute.Class, w workload.Workload) (workload.Result, bool) {
	ctx, span := observability.StartSpan(ctx, "engine.branch",
		attribute.String("compute.class", string(class)),
		attribute.Int("payload.bytes", len(w.Payload)),
	)
	defer span.End()
	adapter, ok := e.adapters[class]
	if !ok {
		e.log.Warn("no adapter for compute class",
			zap.String("class", string(class)), zap.String("workload_id", w.ID))
		observability.Default.IncCounter("branch_failures_total",
			map[string]string{"class": string(class), "reason": "no_adapter"}, 1)
		return workload.Result{}, false
	}
	res, err := adapter.Process(ctx, w)
	if err != nil {
		e.log.Warn("compute branch failed",
			zap.String("class", string(class)), zap.String("workload_id", w.ID), zap.Error(err))
		observability.Default.IncCounter("branch_failures_total",
			map[string]string{"class": string(class), "reason": "error"}, 1)
		return workload.Result{}, false
	}
	return res, true
}

// Combine merges partial results from concurrent branches. Empty input
// yields the zero result; a single result is returned unchanged; multiple
// results concatenate outputs with a space, average confidence with equal
// weight, take the slowest branch's elapsed time, and merge utilization
// dimension-wise by maximum.
func Combine(results []workload.Result) workload.Result {
	switch len(results) {
	case 0:
		return workload.Result{}
	case 1:
		return results[0]
	}
	outputs := make([]string, 0, len(results))
	var confidence float64
	var elapsed time.Duration
	var util workload.Utilization
	for _, r := range results {
		outputs = append(outputs, r.Output)
		confidence += r.Confidence
		if r.Elapsed > elapsed {
			elapsed = r.Elapsed
		}
		util = util.Merge(r.Utilization)
	}
	return workload.Result{
		Output:      strings.Join(outputs, " "),
		Confidence:  confidence / float64(len(results)),
		Utilization: util,
		Elapsed:     elapsed,
	}
}
