// Package alertlog persists alerts to an append-only text file.
package alertlog

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gethomeport/resmon/internal/alert"
)

// TimeFormat is the timestamp layout at the start of every line.
const TimeFormat = "2006-01-02 15:04:05.000000"

// Log is a text file holding one alert per line:
//
//	2024-01-15 10:00:00.123456 - CPU Alert: CPU usage has exceeded 80%! Current usage: 95.0%
type Log struct {
	path string
	mu   sync.Mutex
}

func New(path string) *Log {
	return &Log{path: path}
}

func (l *Log) Path() string {
	return l.path
}

// FormatLine renders ev as a log line without the trailing newline.
func FormatLine(ev alert.Event) string {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return fmt.Sprintf("%s - %s Alert: %s", ts.Format(TimeFormat), ev.Resource, ev.Message)
}

// Append writes ev as a single line, creating the file if needed.
func (l *Log) Append(ev alert.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open alert log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatLine(ev) + "\n"); err != nil {
		return fmt.Errorf("write alert log: %w", err)
	}
	return nil
}

// Notify lets the log act as an alert sink.
func (l *Log) Notify(ctx context.Context, ev alert.Event) error {
	return l.Append(ev)
}

// Clear truncates the log to empty.
func (l *Log) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.WriteFile(l.path, nil, 0644); err != nil {
		return fmt.Errorf("clear alert log: %w", err)
	}
	return nil
}

// Lines returns the last limit lines, oldest first. limit <= 0 returns all.
// A missing file reads as empty.
func (l *Log) Lines(limit int) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	defer f.Close()

	lines := []string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return lines, nil
}
