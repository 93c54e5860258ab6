package compute

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/lthuynh/NeuralNGenAI/internal/workload"
)

// SimulatedOptions tunes the synthetic processing cost of a simulated
// adapter. Zero values mean no artificial latency, which keeps tests fast.
type SimulatedOptions struct {
	BaseLatency  time.Duration
	LatencyPerKB time.Duration
}

// simulated stands in for a real compute backend. Output is a deterministic
// digest of the payload; confidence reflects how well the class suits the
// workload type, discounted by complexity.
type simulated struct {
	class Class
	opts  SimulatedOptions
}

func NewSimulatedCPU(opts SimulatedOptions) Adapter    { return &simulated{class: ClassCPU, opts: opts} }
func NewSimulatedGPU(opts SimulatedOptions) Adapter    { return &simulated{class: ClassGPU, opts: opts} }
func NewSimulatedNeural(opts SimulatedOptions) Adapter { return &simulated{class: ClassNeural, opts: opts} }

func (s *simulated) Class() Class { return s.class }

func (s *simulated) Process(_ context.Context, w workload.Workload) (workload.Result, error) {
	start := time.Now()
	if d := s.delayFor(len(w.Payload)); d > 0 {
		time.Sleep(d)
	}
	sum := sha1.Sum(w.Payload)
	digest := hex.EncodeToString(sum[:])[:12]
	out := fmt.Sprintf("%s processed %s workload %s (%d bytes, digest %s)",
		s.class, w.Type, w.ID, len(w.Payload), digest)
	return workload.Result{
		Output:      out,
		Confidence:  s.confidence(w),
		Utilization: s.utilization(),
		Elapsed:     time.Since(start),
		Metadata:    map[string]string{"compute_class": string(s.class)},
	}, nil
}

func (s *simulated) delayFor(payloadLen int) time.Duration {
	d := s.opts.BaseLatency
	if s.opts.LatencyPerKB > 0 {
		d += s.opts.LatencyPerKB * time.Duration((payloadLen+1023)/1024)
	}
	return d
}

func (s *simulated) confidence(w workload.Workload) float64 {
	c := affinity[s.class][w.Type]
	if c == 0 {
		c = 0.6
	}
	switch w.Complexity {
	case workload.ComplexityMedium:
		c -= 0.03
	case workload.ComplexityHigh:
		c -= 0.07
	}
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return c
}

// affinity maps how well each compute class handles each workload type.
var affinity = map[Class]map[workload.Type]float64{
	ClassCPU: {
		workload.TypeTextAnalysis:   0.82,
		workload.TypeImageAnalysis:  0.68,
		workload.TypeAudioAnalysis:  0.72,
		workload.TypeDataAnalysis:   0.88,
		workload.TypeModelInference: 0.65,
	},
	ClassGPU: {
		workload.TypeTextAnalysis:   0.70,
		workload.TypeImageAnalysis:  0.90,
		workload.TypeAudioAnalysis:  0.75,
		workload.TypeDataAnalysis:   0.85,
		workload.TypeModelInference: 0.80,
	},
	ClassNeural: {
		workload.TypeTextAnalysis:   0.88,
		workload.TypeImageAnalysis:  0.86,
		workload.TypeAudioAnalysis:  0.84,
		workload.TypeDataAnalysis:   0.72,
		workload.TypeModelInference: 0.92,
	},
}

// utilization samples a busy reading for the class. The CPU adapter reads
// real host figures through gopsutil and falls back to static values when a
// probe fails; GPU and neural readings are synthetic since there is no
// portable way to sample them.
func (s *simulated) utilization() workload.Utilization {
	var u workload.Utilization
	memUtil := 40.0
	if vm, err := mem.VirtualMemory(); err == nil {
		memUtil = vm.UsedPercent
	}
	switch s.class {
	case ClassCPU:
		u.CPU = 50.0
		if pts, err := cpu.Percent(0, false); err == nil && len(pts) > 0 {
			u.CPU = pts[0]
		}
	case ClassGPU:
		u.GPU = 55.0
	case ClassNeural:
		u.Neural = 35.0
	}
	u.Memory = memUtil
	return u
}
