package workload

import (
	"time"

	"github.com/google/uuid"
)

// Type classifies what kind of processing a workload needs.
type Type string

const (
	TypeTextAnalysis   Type = "text_analysis"
	TypeImageAnalysis  Type = "image_analysis"
	TypeAudioAnalysis  Type = "audio_analysis"
	TypeDataAnalysis   Type = "data_analysis"
	TypeModelInference Type = "model_inference"
)

// Complexity is a coarse estimate of how expensive a workload is to process.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Rank orders priorities; a higher rank dequeues first. Unknown values rank
// as normal.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityNormal:
		return 2
	case PriorityLow:
		return 1
	default:
		return 2
	}
}

// Workload is one discrete unit of work. Values are immutable after
// construction: New copies the payload and metadata, and Portion produces a
// fresh value rather than mutating the receiver.
type Workload struct {
	ID         string
	Type       Type
	Complexity Complexity
	Priority   Priority
	Payload    []byte
	Metadata   map[string]string
	CreatedAt  time.Time
}

func New(t Type, c Complexity, p Priority, payload []byte, metadata map[string]string) Workload {
	buf := make([]byte, len(payload))
	copy(buf, payload)
	var md map[string]string
	if len(metadata) > 0 {
		md = make(map[string]string, len(metadata))
		for k, v := range metadata {
			md[k] = v
		}
	}
	return Workload{
		ID:         uuid.NewString(),
		Type:       t,
		Complexity: c,
		Priority:   p,
		Payload:    buf,
		Metadata:   md,
		CreatedAt:  time.Now().UTC(),
	}
}

// Portion returns a new workload carrying the first floor(len(payload)*ratio)
// payload bytes and the same type, complexity, priority and metadata. The
// shortened slice stands in for the portion of work assigned to one compute
// class; it is a representative sample, not an exact partition.
func (w Workload) Portion(ratio float64) Workload {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	n := int(float64(len(w.Payload)) * ratio)
	buf := make([]byte, n)
	copy(buf, w.Payload[:n])
	out := w
	out.ID = w.ID + "-p" + uuid.NewString()[:8]
	out.Payload = buf
	return out
}

// Utilization is a per-dimension busy reading reported alongside a result.
// A zero dimension means the corresponding compute class was not used.
type Utilization struct {
	CPU    float64 `json:"cpu"`
	GPU    float64 `json:"gpu"`
	Neural float64 `json:"neural"`
	Memory float64 `json:"memory"`
}

// Merge combines two readings dimension-wise by maximum: the busiest
// observed reading across contributing branches represents the combined
// load.
func (u Utilization) Merge(other Utilization) Utilization {
	return Utilization{
		CPU:    maxFloat(u.CPU, other.CPU),
		GPU:    maxFloat(u.GPU, other.GPU),
		Neural: maxFloat(u.Neural, other.Neural),
		Memory: maxFloat(u.Memory, other.Memory),
	}
}

// Result is the outcome of processing a workload, either on a single compute
// class or merged from several concurrent branches.
type Result struct {
	Output      string
	Confidence  float64
	Utilization Utilization
	Elapsed     time.Duration
	Metadata    map[string]string
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
