package activity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gethomeport/resmon/internal/alert"
)

const DefaultSize = 100

// Entry represents a single activity log entry
type Entry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"` // "threshold_update", "threshold_rejected", "pause", "resume", "clear_logs", "alert"
	Resource  string    `json:"resource,omitempty"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
}

// Log stores recent activity entries
type Log struct {
	entries []Entry
	maxSize int
	nextID  int64
	mu      sync.RWMutex
	now     func() time.Time
}

func New(maxSize int) *Log {
	if maxSize <= 0 {
		maxSize = DefaultSize
	}
	return &Log{
		entries: make([]Entry, 0, maxSize),
		maxSize: maxSize,
		nextID:  1,
		now:     time.Now,
	}
}

// Add adds a new entry to the log
func (l *Log) Add(entryType, resource, message, details string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := Entry{
		ID:        l.nextID,
		Timestamp: l.now(),
		Type:      entryType,
		Resource:  resource,
		Message:   message,
		Details:   details,
	}
	l.nextID++

	l.entries = append(l.entries, entry)

	// Trim if too large
	if len(l.entries) > l.maxSize {
		l.entries = l.entries[len(l.entries)-l.maxSize:]
	}
}

// Recent returns the most recent entries
func (l *Log) Recent(limit int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if limit <= 0 || limit > len(l.entries) {
		limit = len(l.entries)
	}

	// Return in reverse order (newest first)
	result := make([]Entry, limit)
	for i := 0; i < limit; i++ {
		result[i] = l.entries[len(l.entries)-1-i]
	}
	return result
}

// Notify records a fired alert so operators see it alongside their own actions.
func (l *Log) Notify(ctx context.Context, ev alert.Event) error {
	l.Add("alert", string(ev.Resource), fmt.Sprintf("%s Usage High", ev.Resource), ev.Message)
	return nil
}

// Helper functions for common activity types

func (l *Log) LogThresholdUpdate(th alert.Thresholds) {
	l.Add("threshold_update", "", "Updated thresholds",
		fmt.Sprintf("cpu=%d ram=%d disk=%d", th.CPU, th.RAM, th.Disk))
}

func (l *Log) LogThresholdRejected(reason string) {
	l.Add("threshold_rejected", "", "Rejected threshold update", reason)
}

func (l *Log) LogPause() {
	l.Add("pause", "", "Paused monitoring", "")
}

func (l *Log) LogResume() {
	l.Add("resume", "", "Resumed monitoring", "")
}

func (l *Log) LogClear() {
	l.Add("clear_logs", "", "Cleared alert log", "")
}
