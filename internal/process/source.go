package process

import (
	"context"
	"errors"
	"slices"
	"sync"

	gops "github.com/shirou/gopsutil/v4/process"
)

// ErrZombie marks a process that has exited but not been reaped.
var ErrZombie = errors.New("zombie process")

// SystemSource enumerates host processes through gopsutil.
//
// Handles are kept between calls so each CPU reading is the delta since the
// previous enumeration; a process seen for the first time reads 0% CPU.
type SystemSource struct {
	mu      sync.Mutex
	handles map[int32]*gops.Process
}

func NewSystemSource() *SystemSource {
	return &SystemSource{handles: make(map[int32]*gops.Process)}
}

func (s *SystemSource) Processes(ctx context.Context) ([]Candidate, error) {
	pids, err := gops.PidsWithContext(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[int32]bool, len(pids))
	candidates := make([]Candidate, 0, len(pids))
	for _, pid := range pids {
		seen[pid] = true
		h, ok := s.handles[pid]
		if !ok {
			h, err = gops.NewProcessWithContext(ctx, pid)
			if err != nil {
				// Gone between listing and opening
				continue
			}
			s.handles[pid] = h
		}
		candidates = append(candidates, &systemCandidate{proc: h})
	}

	for pid := range s.handles {
		if !seen[pid] {
			delete(s.handles, pid)
		}
	}

	return candidates, nil
}

type systemCandidate struct {
	proc *gops.Process
}

func (c *systemCandidate) Info(ctx context.Context) (Info, error) {
	status, err := c.proc.StatusWithContext(ctx)
	if err == nil && slices.Contains(status, gops.Zombie) {
		return Info{}, ErrZombie
	}

	name, err := c.proc.NameWithContext(ctx)
	if err != nil {
		return Info{}, err
	}
	cpu, err := c.proc.PercentWithContext(ctx, 0)
	if err != nil {
		return Info{}, err
	}
	mem, err := c.proc.MemoryPercentWithContext(ctx)
	if err != nil {
		return Info{}, err
	}

	return Info{
		PID:           int(c.proc.Pid),
		Name:          name,
		CPUPercent:    cpu,
		MemoryPercent: float64(mem),
	}, nil
}
