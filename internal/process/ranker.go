// Package process ranks live processes by resource consumption.
package process

import (
	"context"
	"fmt"
	"sort"
)

// DefaultTopN is how many processes a tick reports.
const DefaultTopN = 5

// Info is a per-tick reading of one process.
type Info struct {
	PID           int     `json:"pid"`
	Name          string  `json:"name"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
}

// Candidate is a process that may or may not still be readable.
type Candidate interface {
	Info(ctx context.Context) (Info, error)
}

// Source enumerates the live processes on the host.
type Source interface {
	Processes(ctx context.Context) ([]Candidate, error)
}

// Ranker picks the heaviest processes from a Source.
type Ranker struct {
	source Source
}

func NewRanker(source Source) *Ranker {
	return &Ranker{source: source}
}

// Top returns at most n processes ordered by CPU then memory, both descending.
// Processes that fail to read (exited, access denied, zombie) are skipped.
// An error is returned only when enumeration itself fails.
func (r *Ranker) Top(ctx context.Context, n int) ([]Info, error) {
	candidates, err := r.source.Processes(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate processes: %w", err)
	}

	infos := make([]Info, 0, len(candidates))
	for _, c := range candidates {
		info, err := c.Info(ctx)
		if err != nil {
			continue
		}
		infos = append(infos, info)
	}

	return Rank(infos, n), nil
}

// Rank sorts infos by (CPUPercent, MemoryPercent) descending and keeps the
// first n. n <= 0 keeps everything. The input slice is reordered in place.
func Rank(infos []Info, n int) []Info {
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CPUPercent == infos[j].CPUPercent {
			return infos[i].MemoryPercent > infos[j].MemoryPercent
		}
		return infos[i].CPUPercent > infos[j].CPUPercent
	})
	if n > 0 && len(infos) > n {
		infos = infos[:n]
	}
	return infos
}
