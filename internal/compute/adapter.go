// Package compute defines the uniform boundary to the host's processing
// resources. Each adapter wraps one compute class as a black box that
// accepts a workload and returns a result with a confidence score, a
// utilization reading and the elapsed time.
package compute

import (
	"context"

	"github.com/lthuynh/NeuralNGenAI/internal/workload"
)

// Class identifies one category of processing capability.
type Class string

const (
	ClassCPU    Class = "cpu"
	ClassGPU    Class = "gpu"
	ClassNeural Class = "neural"
)

type Adapter interface {
	Class() Class
	Process(ctx context.Context, w workload.Workload) (workload.Result, error)
}

// Set maps compute classes to their adapters. It is built once at
// construction time and read-only afterwards.
type Set map[Class]Adapter

func NewSet(adapters ...Adapter) Set {
	s := make(Set, len(adapters))
	for _, a := range adapters {
		s[a.Class()] = a
	}
	return s
}
