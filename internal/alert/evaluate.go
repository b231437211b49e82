package alert

import (
	"fmt"
	"time"

	"github.com/gethomeport/resmon/internal/stats"
)

// DefaultCooldown is the minimum gap between two alerts for one resource.
const DefaultCooldown = 10 * time.Second

// Cooldown records when each resource last alerted. A missing entry means
// the resource has never alerted.
type Cooldown map[Resource]time.Time

// Clone returns an independent copy.
func (c Cooldown) Clone() Cooldown {
	out := make(Cooldown, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Policy holds the debounce window. An alert is suppressed while
// now - last <= Window and resumes strictly after it.
type Policy struct {
	Window time.Duration
}

// DefaultPolicy uses DefaultCooldown.
var DefaultPolicy = Policy{Window: DefaultCooldown}

// Evaluate applies DefaultPolicy.
func Evaluate(sample stats.Sample, th Thresholds, cd Cooldown, now time.Time) ([]Event, Cooldown) {
	return DefaultPolicy.Evaluate(sample, th, cd, now)
}

// Evaluate compares each resource in sample against its threshold (strictly
// greater fires) and returns the fired events plus the updated cooldown.
// cd is not modified.
func (p Policy) Evaluate(sample stats.Sample, th Thresholds, cd Cooldown, now time.Time) ([]Event, Cooldown) {
	next := cd.Clone()
	var events []Event

	for _, r := range Resources {
		value := valueOf(sample, r)
		limit := th.For(r)

		if value <= float64(limit) {
			continue
		}
		if last, ok := next[r]; ok && now.Sub(last) <= p.Window {
			continue
		}

		events = append(events, Event{
			Resource:  r,
			Message:   fmt.Sprintf("%s usage has exceeded %d%%! Current usage: %.1f%%", r, limit, value),
			Threshold: limit,
			Value:     value,
			Timestamp: now,
		})
		next[r] = now
	}

	return events, next
}

func valueOf(s stats.Sample, r Resource) float64 {
	switch r {
	case CPU:
		return s.CPUPercent
	case RAM:
		return s.MemoryPercent
	case Disk:
		return s.DiskPercent
	}
	return 0
}
