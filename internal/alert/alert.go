// Package alert decides when resource usage crosses its threshold and
// debounces repeated alerts per resource.
package alert

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Resource names a monitored resource.
type Resource string

const (
	CPU  Resource = "CPU"
	RAM  Resource = "RAM"
	Disk Resource = "Disk"
)

// Resources lists every monitored resource in evaluation order.
var Resources = []Resource{CPU, RAM, Disk}

// ParseResource maps a case-insensitive name to a Resource.
func ParseResource(s string) (Resource, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cpu":
		return CPU, true
	case "ram", "memory", "mem":
		return RAM, true
	case "disk":
		return Disk, true
	}
	return "", false
}

// Event is one fired alert.
type Event struct {
	ID        string    `json:"id"`
	Resource  Resource  `json:"resource"`
	Message   string    `json:"message"`
	Threshold int       `json:"threshold"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink receives fired alerts.
type Sink interface {
	Notify(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event) error

func (f SinkFunc) Notify(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Fanout delivers each event to every sink. A failing sink does not stop
// delivery to the others; all failures are joined into the returned error.
type Fanout []Sink

func (f Fanout) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
