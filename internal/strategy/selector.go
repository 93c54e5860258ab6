// Package strategy decides how a workload is assigned to the host's compute
// classes. Select is a pure function of the workload and the capability
// snapshot: same inputs, same strategy, no hidden state. The decision table
// is static and deliberately does not consult runtime metrics.
package strategy

import (
	"github.com/lthuynh/NeuralNGenAI/internal/profile"
	"github.com/lthuynh/NeuralNGenAI/internal/workload"
)

type Strategy string

const (
	CPUOnly    Strategy = "cpu_only"
	GPUOnly    Strategy = "gpu_only"
	NeuralOnly Strategy = "neural_only"

	// CPUGPU splits the payload 60/40 between CPU and GPU.
	CPUGPU Strategy = "cpu_gpu"
	// GPUCPU splits the payload 70/30 with the GPU taking the larger share.
	GPUCPU Strategy = "gpu_cpu"
	// NeuralCPU runs the neural engine first and falls back to the CPU on
	// the full workload only when the neural result is not confident enough.
	NeuralCPU Strategy = "neural_cpu"

	// AllCompute splits the payload across every available class,
	// proportionally to capacity.
	AllCompute Strategy = "all_compute"
)

// Select maps (workload type, complexity, snapshot) to an execution
// strategy. It is total: absence of a compute class, or a nil snapshot,
// degrades to a CPU-only fallback rather than failing.
func Select(w workload.Workload, snap *profile.CapabilitySnapshot) Strategy {
	if snap == nil {
		return CPUOnly
	}
	switch w.Type {
	case workload.TypeTextAnalysis:
		if snap.Neural.Available {
			switch w.Complexity {
			case workload.ComplexityLow:
				return NeuralOnly
			case workload.ComplexityMedium:
				return NeuralCPU
			default:
				return AllCompute
			}
		}
		if w.Complexity == workload.ComplexityHigh {
			return CPUGPU
		}
		return CPUOnly
	case workload.TypeImageAnalysis:
		if snap.GPU.Available {
			if w.Complexity == workload.ComplexityHigh {
				return AllCompute
			}
			return GPUCPU
		}
		return CPUOnly
	case workload.TypeAudioAnalysis:
		if snap.Neural.Available && w.Complexity != workload.ComplexityLow {
			return NeuralCPU
		}
		return CPUOnly
	case workload.TypeDataAnalysis:
		switch w.Complexity {
		case workload.ComplexityLow:
			return CPUOnly
		case workload.ComplexityMedium:
			if snap.GPU.Available {
				return CPUGPU
			}
			return CPUOnly
		default:
			return AllCompute
		}
	case workload.TypeModelInference:
		if snap.Neural.Available {
			if w.Complexity == workload.ComplexityHigh {
				return AllCompute
			}
			return NeuralOnly
		}
		if snap.GPU.Available {
			return GPUCPU
		}
		return CPUOnly
	default:
		return CPUOnly
	}
}
