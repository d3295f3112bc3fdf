package cli

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/alecthomas/units"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostResources describes what the machine can give to the cluster VM.
type HostResources struct {
	Platform string
	CPUs     int
	Memory   units.Base2Bytes
}

// HostInspector reads host resources. Tests substitute a fixed value.
type HostInspector func(ctx context.Context) (HostResources, error)

func inspectHost(ctx context.Context) (HostResources, error) {
	cpus, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return HostResources{}, err
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return HostResources{}, err
	}
	res := HostResources{
		Platform: runtime.GOOS,
		CPUs:     cpus,
		Memory:   units.Base2Bytes(vm.Total),
	}
	if info, err := host.InfoWithContext(ctx); err == nil && info.Platform != "" {
		res.Platform = strings.TrimSpace(info.Platform + " " + info.PlatformVersion)
	}
	return res, nil
}

// ParseMemory accepts the forms minikube accepts: 2G, 2g, 2GB, 2GiB,
// 2048mb, or a bare number meaning megabytes.
func ParseMemory(raw string) (units.Base2Bytes, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return 0, fmt.Errorf("empty memory value")
	}
	if _, err := strconv.ParseUint(s, 10, 64); err == nil {
		s += "MB"
	}
	switch {
	case strings.HasSuffix(s, "IB"):
		s = strings.TrimSuffix(s, "IB") + "iB"
	case strings.HasSuffix(s, "B"):
	default:
		s += "B"
	}
	b, err := units.ParseBase2Bytes(s)
	if err != nil {
		return 0, err
	}
	if b <= 0 {
		return 0, fmt.Errorf("memory must be positive")
	}
	return b, nil
}

// ParseCPUs accepts a positive decimal integer.
func ParseCPUs(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid cpu count %q", raw)
	}
	return n, nil
}

// Preflight rejects start requests the host cannot satisfy.
type Preflight struct {
	inspect HostInspector
}

func NewPreflight(inspect HostInspector) *Preflight {
	if inspect == nil {
		inspect = inspectHost
	}
	return &Preflight{inspect: inspect}
}

// Check validates cpus and memory and compares them with the host.
func (p *Preflight) Check(ctx context.Context, cpus, memory string) error {
	wantCPUs, err := ParseCPUs(cpus)
	if err != nil {
		return wrapWithSentinelAndContext(ErrInvalidCPUs, err, ErrInvalidCPUs.Error(), map[string]any{"cpus": cpus})
	}
	wantMem, err := ParseMemory(memory)
	if err != nil {
		return wrapWithSentinelAndContext(ErrInvalidMemory, err, ErrInvalidMemory.Error(), map[string]any{"memory": memory})
	}
	res, err := p.inspect(ctx)
	if err != nil {
		return wrapWithSentinel(ErrHostInspectFailed, err, ErrHostInspectFailed.Error())
	}
	if wantCPUs > res.CPUs {
		return newWithSentinelAndContext(ErrInsufficientCPUs,
			fmt.Sprintf("not enough CPUs on this machine: requested %d, available %d", wantCPUs, res.CPUs),
			map[string]any{"requested": wantCPUs, "available": res.CPUs, "platform": res.Platform})
	}
	if wantMem > res.Memory {
		return newWithSentinelAndContext(ErrInsufficientMemory,
			fmt.Sprintf("not enough memory on this machine: requested %s, available %s", wantMem, res.Memory),
			map[string]any{"requested": wantMem.String(), "available": res.Memory.String(), "platform": res.Platform})
	}
	return nil
}
