package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

// DefaultCPUWindow is how long a CPU measurement blocks.
const DefaultCPUWindow = time.Second

// SystemProvider samples the local host through gopsutil.
type SystemProvider struct {
	diskPath  string
	cpuWindow time.Duration

	// OS bindings, swapped out in tests
	cpuPercent    func(ctx context.Context, interval time.Duration, percpu bool) ([]float64, error)
	virtualMemory func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	diskUsage     func(ctx context.Context, path string) (*disk.UsageStat, error)
	now           func() time.Time
}

// NewProvider returns a provider measuring CPU over cpuWindow and disk usage
// of the filesystem holding diskPath.
func NewProvider(diskPath string, cpuWindow time.Duration) *SystemProvider {
	if diskPath == "" {
		diskPath = "/"
	}
	if cpuWindow < 0 {
		cpuWindow = DefaultCPUWindow
	}
	return &SystemProvider{
		diskPath:      diskPath,
		cpuWindow:     cpuWindow,
		cpuPercent:    cpu.PercentWithContext,
		virtualMemory: mem.VirtualMemoryWithContext,
		diskUsage:     disk.UsageWithContext,
		now:           time.Now,
	}
}

// Sample blocks for the CPU window, then reads memory and disk usage.
func (p *SystemProvider) Sample(ctx context.Context) (Sample, error) {
	cpuPcts, err := p.cpuPercent(ctx, p.cpuWindow, false)
	if err != nil {
		return Sample{}, fmt.Errorf("%w: cpu: %v", ErrMetricsUnavailable, err)
	}
	if len(cpuPcts) == 0 {
		return Sample{}, fmt.Errorf("%w: cpu: no data", ErrMetricsUnavailable)
	}

	vm, err := p.virtualMemory(ctx)
	if err != nil {
		return Sample{}, fmt.Errorf("%w: memory: %v", ErrMetricsUnavailable, err)
	}
	if vm == nil || vm.Total == 0 {
		return Sample{}, fmt.Errorf("%w: memory: no data", ErrMetricsUnavailable)
	}

	du, err := p.diskUsage(ctx, p.diskPath)
	if err != nil {
		return Sample{}, fmt.Errorf("%w: disk %s: %v", ErrMetricsUnavailable, p.diskPath, err)
	}
	if du == nil {
		return Sample{}, fmt.Errorf("%w: disk %s: no data", ErrMetricsUnavailable, p.diskPath)
	}

	// Percent is (total - available) / total, which counts reclaimable cache as free
	var memPercent float64
	if vm.Available <= vm.Total {
		memPercent = float64(vm.Total-vm.Available) / float64(vm.Total) * 100
	}

	return Sample{
		Timestamp:        p.now(),
		CPUPercent:       clampPercent(cpuPcts[0]),
		MemoryPercent:    clampPercent(memPercent),
		MemoryUsedBytes:  vm.Used,
		MemoryTotalBytes: vm.Total,
		DiskPercent:      clampPercent(du.UsedPercent),
		DiskUsedBytes:    du.Used,
		DiskTotalBytes:   du.Total,
		DiskPath:         p.diskPath,
	}, nil
}
