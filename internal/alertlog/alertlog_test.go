package alertlog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gethomeport/resmon/internal/alert"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "usage_log.txt"))
}

func cpuEvent(ts time.Time) alert.Event {
	return alert.Event{
		Resource:  alert.CPU,
		Message:   "CPU usage has exceeded 80%! Current usage: 95.0%",
		Timestamp: ts,
	}
}

func TestFormatLine(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 0, 0, 123456000, time.Local)
	got := FormatLine(cpuEvent(ts))
	want := "2024-01-15 10:00:00.123456 - CPU Alert: CPU usage has exceeded 80%! Current usage: 95.0%"
	if got != want {
		t.Errorf("FormatLine() = %q, want %q", got, want)
	}
}

func TestAppendAndLines(t *testing.T) {
	l := newTestLog(t)

	for i := 0; i < 3; i++ {
		if err := l.Append(cpuEvent(time.Unix(int64(1000+i), 0))); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	lines, err := l.Lines(0)
	if err != nil {
		t.Fatalf("Lines() error = %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("Lines() returned %d lines, want 3", len(lines))
	}
	for _, line := range lines {
		if !strings.Contains(line, " - CPU Alert: ") {
			t.Errorf("line %q missing alert marker", line)
		}
	}

	last, err := l.Lines(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(last) != 2 || last[1] != lines[2] {
		t.Errorf("Lines(2) = %v, want the last two lines", last)
	}
}

func TestClearThenAppend(t *testing.T) {
	l := newTestLog(t)

	_ = l.Append(cpuEvent(time.Unix(1000, 0)))
	_ = l.Append(cpuEvent(time.Unix(1001, 0)))

	if err := l.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	data, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 {
		t.Errorf("file after Clear() = %q, want empty", data)
	}

	if err := l.Append(cpuEvent(time.Unix(1002, 0))); err != nil {
		t.Fatal(err)
	}
	lines, _ := l.Lines(0)
	if len(lines) != 1 {
		t.Errorf("after clear + one append got %d lines, want 1", len(lines))
	}
}

func TestClearCreatesMissingFile(t *testing.T) {
	l := newTestLog(t)
	if err := l.Clear(); err != nil {
		t.Fatalf("Clear() on missing file error = %v", err)
	}
	if _, err := os.Stat(l.Path()); err != nil {
		t.Errorf("Clear() should leave an empty file: %v", err)
	}
}

func TestLinesMissingFile(t *testing.T) {
	lines, err := newTestLog(t).Lines(10)
	if err != nil {
		t.Fatalf("Lines() error = %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("Lines() = %v, want empty", lines)
	}
}

func TestAppendUnwritablePath(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "missing-dir", "log.txt"))
	if err := l.Notify(context.Background(), cpuEvent(time.Now())); err == nil {
		t.Error("Notify() into a missing directory should fail")
	}
}
