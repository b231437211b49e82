// Package monitor runs the periodic sampling loop: sample the host, rank
// processes, evaluate thresholds, dispatch alerts and publish snapshots.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gethomeport/resmon/internal/alert"
	"github.com/gethomeport/resmon/internal/logger"
	"github.com/gethomeport/resmon/internal/process"
	"github.com/gethomeport/resmon/internal/stats"
)

const DefaultInterval = time.Second

// ErrNoSnapshot is returned by Latest before the first successful tick.
var ErrNoSnapshot = errors.New("no snapshot yet")

// Snapshot is what one tick publishes.
type Snapshot struct {
	Sample     stats.Sample     `json:"sample"`
	Processes  []process.Info   `json:"processes"`
	Thresholds alert.Thresholds `json:"thresholds"`
	Paused     bool             `json:"paused"`
}

// Subscriber observes the loop. Callbacks run on the loop goroutine and
// must not block.
type Subscriber interface {
	OnSnapshot(Snapshot)
	OnAlert(alert.Event)
	OnError(error)
}

// Ranker returns the top n processes.
type Ranker interface {
	Top(ctx context.Context, n int) ([]process.Info, error)
}

type Options struct {
	Interval   time.Duration
	TopN       int
	Cooldown   time.Duration
	Thresholds alert.Thresholds
}

func DefaultOptions() Options {
	return Options{
		Interval:   DefaultInterval,
		TopN:       process.DefaultTopN,
		Cooldown:   alert.DefaultCooldown,
		Thresholds: alert.DefaultThresholds(),
	}
}

type Monitor struct {
	provider stats.Provider
	ranker   Ranker
	sink     alert.Sink
	log      logger.Logger

	interval time.Duration
	topN     int
	policy   alert.Policy
	now      func() time.Time

	thMu       sync.RWMutex
	thresholds alert.Thresholds

	cdMu     sync.Mutex
	cooldown alert.Cooldown

	paused atomic.Bool

	latestMu sync.RWMutex
	latest   *Snapshot

	subMu   sync.RWMutex
	subs    map[int]Subscriber
	nextSub int
}

func New(provider stats.Provider, ranker Ranker, sink alert.Sink, log logger.Logger, opts Options) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.TopN <= 0 {
		opts.TopN = process.DefaultTopN
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = alert.DefaultCooldown
	}
	if log == nil {
		log = logger.Discard()
	}

	return &Monitor{
		provider:   provider,
		ranker:     ranker,
		sink:       sink,
		log:        log,
		interval:   opts.Interval,
		topN:       opts.TopN,
		policy:     alert.Policy{Window: opts.Cooldown},
		now:        time.Now,
		thresholds: opts.Thresholds,
		cooldown:   alert.Cooldown{},
		subs:       make(map[int]Subscriber),
	}
}

func (m *Monitor) Interval() time.Duration {
	return m.interval
}

// Run ticks every interval until ctx is cancelled. The wait starts after a
// tick completes, so ticks never overlap. No tick runs while paused.
func (m *Monitor) Run(ctx context.Context) error {
	m.log.Info("monitor started", "interval", m.interval, "top_n", m.topN)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Info("monitor stopped")
			return nil
		case <-timer.C:
		}

		if !m.Paused() {
			// Tick errors are reported to subscribers; the loop keeps going.
			_ = m.Tick(ctx, m.now())
		}

		timer.Reset(m.interval)
	}
}

// Tick runs a single iteration of the loop at now.
func (m *Monitor) Tick(ctx context.Context, now time.Time) error {
	sample, err := m.provider.Sample(ctx)
	if err != nil {
		m.log.Warn("sample failed, skipping tick", "error", err)
		m.publishError(err)
		return err
	}

	procs, err := m.ranker.Top(ctx, m.topN)
	if err != nil {
		m.log.Warn("process ranking failed", "error", err)
		procs = []process.Info{}
	}

	th := m.Thresholds()

	m.cdMu.Lock()
	events, next := m.policy.Evaluate(sample, th, m.cooldown, now)
	m.cooldown = next
	m.cdMu.Unlock()

	for _, ev := range events {
		ev.ID = uuid.NewString()
		m.log.Info("alert fired", "resource", ev.Resource, "value", ev.Value, "threshold", ev.Threshold)
		if m.sink != nil {
			if err := m.sink.Notify(ctx, ev); err != nil {
				m.log.Error("alert delivery failed", "resource", ev.Resource, "error", err)
			}
		}
		m.publishAlert(ev)
	}

	snap := Snapshot{
		Sample:     sample,
		Processes:  procs,
		Thresholds: th,
	}

	m.latestMu.Lock()
	m.latest = &snap
	m.latestMu.Unlock()

	m.publishSnapshot(snap)
	return nil
}

// Latest returns the most recent snapshot with the current pause state.
func (m *Monitor) Latest() (Snapshot, error) {
	m.latestMu.RLock()
	defer m.latestMu.RUnlock()

	if m.latest == nil {
		return Snapshot{}, ErrNoSnapshot
	}
	snap := *m.latest
	snap.Paused = m.Paused()
	return snap, nil
}

func (m *Monitor) Pause() {
	if !m.paused.Swap(true) {
		m.log.Info("monitor paused")
	}
}

func (m *Monitor) Resume() {
	if m.paused.Swap(false) {
		m.log.Info("monitor resumed")
	}
}

func (m *Monitor) Paused() bool {
	return m.paused.Load()
}

func (m *Monitor) Thresholds() alert.Thresholds {
	m.thMu.RLock()
	defer m.thMu.RUnlock()
	return m.thresholds
}

// SetThresholds replaces all three thresholds. Invalid values leave the
// current ones in place.
func (m *Monitor) SetThresholds(th alert.Thresholds) error {
	if err := th.Validate(); err != nil {
		return err
	}

	m.thMu.Lock()
	m.thresholds = th
	m.thMu.Unlock()

	m.log.Info("thresholds updated", "cpu", th.CPU, "ram", th.RAM, "disk", th.Disk)
	return nil
}

// UpdateThresholds parses operator input and applies it all-or-nothing.
func (m *Monitor) UpdateThresholds(cpu, ram, disk string) (alert.Thresholds, error) {
	th, err := alert.ParseThresholds(cpu, ram, disk)
	if err != nil {
		m.log.Warn("threshold update rejected", "error", err)
		return m.Thresholds(), err
	}
	if err := m.SetThresholds(th); err != nil {
		return m.Thresholds(), err
	}
	return th, nil
}

// Cooldown returns a copy of the last alert time per resource.
func (m *Monitor) Cooldown() alert.Cooldown {
	m.cdMu.Lock()
	defer m.cdMu.Unlock()
	return m.cooldown.Clone()
}

// Subscribe registers s and returns a function that removes it.
func (m *Monitor) Subscribe(s Subscriber) func() {
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = s
	m.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.subMu.Lock()
			delete(m.subs, id)
			m.subMu.Unlock()
		})
	}
}

func (m *Monitor) subscribers() []Subscriber {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	out := make([]Subscriber, 0, len(m.subs))
	for _, s := range m.subs {
		out = append(out, s)
	}
	return out
}

func (m *Monitor) publishSnapshot(s Snapshot) {
	for _, sub := range m.subscribers() {
		sub.OnSnapshot(s)
	}
}

func (m *Monitor) publishAlert(ev alert.Event) {
	for _, sub := range m.subscribers() {
		sub.OnAlert(ev)
	}
}

func (m *Monitor) publishError(err error) {
	err = fmt.Errorf("tick: %w", err)
	for _, sub := range m.subscribers() {
		sub.OnError(err)
	}
}
