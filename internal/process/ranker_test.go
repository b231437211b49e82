package process

import (
	"context"
	"errors"
	"testing"
)

type fakeCandidate struct {
	info Info
	err  error
}

func (f fakeCandidate) Info(ctx context.Context) (Info, error) {
	return f.info, f.err
}

type fakeSource struct {
	candidates []Candidate
	err        error
}

func (f fakeSource) Processes(ctx context.Context) ([]Candidate, error) {
	return f.candidates, f.err
}

func readable(pid int, name string, cpu, mem float64) Candidate {
	return fakeCandidate{info: Info{PID: pid, Name: name, CPUPercent: cpu, MemoryPercent: mem}}
}

func unreadable(pid int, err error) Candidate {
	return fakeCandidate{info: Info{PID: pid}, err: err}
}

func pids(infos []Info) []int {
	out := make([]int, len(infos))
	for i, info := range infos {
		out[i] = info.PID
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRankOrdersByCPUThenMemory(t *testing.T) {
	infos := []Info{
		{PID: 1, CPUPercent: 10, MemoryPercent: 1},
		{PID: 2, CPUPercent: 50, MemoryPercent: 2},
		{PID: 3, CPUPercent: 10, MemoryPercent: 9},
		{PID: 4, CPUPercent: 0, MemoryPercent: 40},
		{PID: 5, CPUPercent: 75, MemoryPercent: 0.5},
		{PID: 6, CPUPercent: 50, MemoryPercent: 3},
		{PID: 7, CPUPercent: 1, MemoryPercent: 0},
	}

	got := Rank(infos, 5)

	want := []int{5, 6, 2, 3, 1}
	if !equalInts(pids(got), want) {
		t.Errorf("Rank() pids = %v, want %v", pids(got), want)
	}
}

func TestRankFewerThanN(t *testing.T) {
	infos := []Info{
		{PID: 1, CPUPercent: 1},
		{PID: 2, CPUPercent: 3},
		{PID: 3, CPUPercent: 2},
	}

	got := Rank(infos, 5)

	if !equalInts(pids(got), []int{2, 3, 1}) {
		t.Errorf("Rank() pids = %v, want [2 3 1]", pids(got))
	}
}

func TestRankNonPositiveNKeepsAll(t *testing.T) {
	infos := []Info{{PID: 1}, {PID: 2}, {PID: 3}}
	if got := Rank(infos, 0); len(got) != 3 {
		t.Errorf("Rank(_, 0) len = %d, want 3", len(got))
	}
}

func TestRankEmpty(t *testing.T) {
	if got := Rank(nil, 5); len(got) != 0 {
		t.Errorf("Rank(nil) = %v, want empty", got)
	}
}

func TestRankerTopSkipsUnreadable(t *testing.T) {
	src := fakeSource{candidates: []Candidate{
		readable(10, "idle", 0.0, 0.1),
		unreadable(11, errors.New("no such process")),
		readable(12, "chrome", 35.0, 12.5),
		unreadable(13, ErrZombie),
		readable(14, "postgres", 12.0, 4.0),
		unreadable(15, errors.New("access denied")),
		readable(16, "go", 35.0, 2.0),
		readable(17, "sshd", 0.5, 0.2),
		readable(18, "bash", 0.0, 0.3),
	}}

	got, err := NewRanker(src).Top(context.Background(), DefaultTopN)
	if err != nil {
		t.Fatalf("Top() error = %v", err)
	}

	want := []int{12, 16, 14, 17, 18}
	if !equalInts(pids(got), want) {
		t.Errorf("Top() pids = %v, want %v", pids(got), want)
	}
	for _, info := range got {
		if info.PID == 11 || info.PID == 13 || info.PID == 15 {
			t.Errorf("unreadable pid %d should have been skipped", info.PID)
		}
	}
}

func TestRankerTopAllUnreadable(t *testing.T) {
	src := fakeSource{candidates: []Candidate{
		unreadable(1, errors.New("gone")),
		unreadable(2, errors.New("gone")),
	}}

	got, err := NewRanker(src).Top(context.Background(), 5)
	if err != nil {
		t.Fatalf("Top() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Top() = %v, want empty", got)
	}
}

func TestRankerTopEnumerationError(t *testing.T) {
	boom := errors.New("proc not mounted")
	_, err := NewRanker(fakeSource{err: boom}).Top(context.Background(), 5)
	if !errors.Is(err, boom) {
		t.Errorf("Top() error = %v, want wrapped %v", err, boom)
	}
}
