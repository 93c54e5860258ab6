// Package profile describes the compute capabilities of the host this
// dispatcher runs on. A CapabilitySnapshot is produced once by a profiler
// (or loaded from a file) and treated as read-only for the lifetime of one
// configuration; re-profiling builds a new snapshot.
package profile

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ComputeClass describes one class of processing capability.
type ComputeClass struct {
	Available bool   `yaml:"available" json:"available"`
	Capacity  int    `yaml:"capacity" json:"capacity"`
	Name      string `yaml:"name,omitempty" json:"name,omitempty"`
	MemoryMB  int    `yaml:"memory_mb,omitempty" json:"memory_mb,omitempty"`
}

// CapabilitySnapshot is a point-in-time description of the host's compute
// classes. Capacity is only used for proportional work splitting: CPU core
// count, GPU compute-unit count, and a nominal constant for the neural
// engine.
type CapabilitySnapshot struct {
	CapturedAt time.Time    `yaml:"captured_at,omitempty" json:"captured_at,omitempty"`
	CPU        ComputeClass `yaml:"cpu" json:"cpu"`
	GPU        ComputeClass `yaml:"gpu" json:"gpu"`
	Neural     ComputeClass `yaml:"neural" json:"neural"`
}

// LoadFile reads a capability snapshot from a YAML file.
func LoadFile(path string) (*CapabilitySnapshot, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read capability profile: %w", err)
	}
	var snap CapabilitySnapshot
	if err := yaml.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("parse capability profile: %w", err)
	}
	applyDefaults(&snap)
	return &snap, nil
}

func applyDefaults(s *CapabilitySnapshot) {
	if s.CapturedAt.IsZero() {
		s.CapturedAt = time.Now().UTC()
	}
	if s.CPU.Available && s.CPU.Capacity <= 0 {
		s.CPU.Capacity = 1
	}
	if s.GPU.Available && s.GPU.Capacity <= 0 {
		s.GPU.Capacity = 1
	}
}
