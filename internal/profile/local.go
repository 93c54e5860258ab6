package profile

import (
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// NominalNeuralCapacity is the capacity figure the neural engine contributes
// to capacity-weighted splitting when it is available. Unlike CPU cores or
// GPU compute units there is no portable way to count neural cores, so a
// fixed nominal value is used.
const NominalNeuralCapacity = 16

// Detect profiles the local host. CPU capacity comes from the logical core
// count, memory from the VM statistics; GPU and neural availability cannot
// be discovered portably, so they default to unavailable unless enabled in
// the loaded profile. Detection never fails: when a probe errors the
// affected figures fall back to conservative static values.
func Detect() *CapabilitySnapshot {
	snap := &CapabilitySnapshot{
		CapturedAt: time.Now().UTC(),
		CPU: ComputeClass{
			Available: true,
			Capacity:  runtime.NumCPU(),
			Name:      cpuModelName(),
		},
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		snap.CPU.MemoryMB = int(vm.Total / (1024 * 1024))
	}
	return snap
}

func cpuModelName() string {
	infos, err := cpu.Info()
	if err != nil || len(infos) == 0 {
		return runtime.GOARCH
	}
	name := strings.TrimSpace(infos[0].ModelName)
	if name == "" {
		return runtime.GOARCH
	}
	return name
}
