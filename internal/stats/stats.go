// Package stats samples host-wide CPU, memory and disk utilization.
package stats

import (
	"context"
	"errors"
	"math"
	"time"
)

// ErrMetricsUnavailable is returned when the OS cannot be queried for a sample.
var ErrMetricsUnavailable = errors.New("metrics unavailable")

// Sample holds one tick's worth of system resource statistics
type Sample struct {
	Timestamp        time.Time `json:"timestamp"`
	CPUPercent       float64   `json:"cpu_percent"`
	MemoryPercent    float64   `json:"memory_percent"`
	MemoryUsedBytes  uint64    `json:"memory_used_bytes"`
	MemoryTotalBytes uint64    `json:"memory_total_bytes"`
	DiskPercent      float64   `json:"disk_percent"`
	DiskUsedBytes    uint64    `json:"disk_used_bytes"`
	DiskTotalBytes   uint64    `json:"disk_total_bytes"`
	DiskPath         string    `json:"disk_path"`
}

// Provider produces samples. Sample either returns a complete sample or an
// error wrapping ErrMetricsUnavailable.
type Provider interface {
	Sample(ctx context.Context) (Sample, error)
}

// ToGiB converts bytes to GiB rounded to two decimals.
func ToGiB(b uint64) float64 {
	return math.Round(float64(b)/(1<<30)*100) / 100
}

// clampPercent keeps a percentage inside [0,100].
func clampPercent(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
