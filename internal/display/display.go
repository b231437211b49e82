// Package display renders samples, process rankings and alerts as text.
package display

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/gethomeport/resmon/internal/alert"
	"github.com/gethomeport/resmon/internal/monitor"
	"github.com/gethomeport/resmon/internal/process"
	"github.com/gethomeport/resmon/internal/stats"
)

const TimeFormat = "2006-01-02 15:04:05"

func FormatSample(s stats.Sample) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CPU Usage: %.1f%%\n", s.CPUPercent)
	fmt.Fprintf(&b, "RAM Usage: %.1f%% (%.2f/%.2f GB)\n",
		s.MemoryPercent, stats.ToGiB(s.MemoryUsedBytes), stats.ToGiB(s.MemoryTotalBytes))
	fmt.Fprintf(&b, "Disk Usage: %.1f%%\n", s.DiskPercent)
	fmt.Fprintf(&b, "Current Time: %s\n", s.Timestamp.Format(TimeFormat))
	return b.String()
}

func FormatProcesses(procs []process.Info) string {
	var b strings.Builder
	b.WriteString("Top Processes:\n")
	for _, p := range procs {
		fmt.Fprintf(&b, "%s (PID: %d) - CPU: %.1f%%, RAM: %.1f%%\n", p.Name, p.PID, p.CPUPercent, p.MemoryPercent)
	}
	return b.String()
}

// FormatAlert is the short operator-facing form of an alert.
func FormatAlert(ev alert.Event) string {
	return fmt.Sprintf("%s Usage High: %s", ev.Resource, ev.Message)
}

// FormatSnapshot renders a whole snapshot, thresholds included.
func FormatSnapshot(s monitor.Snapshot) string {
	var b strings.Builder
	b.WriteString(FormatSample(s.Sample))
	fmt.Fprintf(&b, "Thresholds: CPU %d%%, RAM %d%%, Disk %d%%\n",
		s.Thresholds.CPU, s.Thresholds.RAM, s.Thresholds.Disk)
	if s.Paused {
		b.WriteString("Monitoring paused\n")
	}
	b.WriteString("\n")
	b.WriteString(FormatProcesses(s.Processes))
	return b.String()
}

// Console writes every snapshot and alert to w as plain text.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) OnSnapshot(s monitor.Snapshot) {
	c.write(FormatSnapshot(s) + "\n")
}

func (c *Console) OnAlert(ev alert.Event) {
	c.write("!! " + FormatAlert(ev) + "\n")
}

func (c *Console) OnError(err error) {
	c.write("error: " + err.Error() + "\n")
}

func (c *Console) write(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	io.WriteString(c.w, s)
}
