package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gethomeport/resmon/internal/alert"
	"github.com/gethomeport/resmon/internal/process"
	"github.com/gethomeport/resmon/internal/stats"
)

type fakeProvider struct {
	mu     sync.Mutex
	sample stats.Sample
	err    error
	calls  int
}

func (f *fakeProvider) Sample(ctx context.Context) (stats.Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.sample, f.err
}

func (f *fakeProvider) set(s stats.Sample, err error) {
	f.mu.Lock()
	f.sample, f.err = s, err
	f.mu.Unlock()
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeRanker struct {
	infos []process.Info
	err   error
	gotN  int
}

func (f *fakeRanker) Top(ctx context.Context, n int) ([]process.Info, error) {
	f.gotN = n
	return f.infos, f.err
}

type recordingSink struct {
	mu     sync.Mutex
	events []alert.Event
	err    error
}

func (r *recordingSink) Notify(ctx context.Context, ev alert.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type recorder struct {
	mu        sync.Mutex
	snapshots []Snapshot
	alerts    []alert.Event
	errs      []error
	snapCh    chan Snapshot
}

func newRecorder() *recorder {
	return &recorder{snapCh: make(chan Snapshot, 64)}
}

func (r *recorder) OnSnapshot(s Snapshot) {
	r.mu.Lock()
	r.snapshots = append(r.snapshots, s)
	r.mu.Unlock()
	select {
	case r.snapCh <- s:
	default:
	}
}

func (r *recorder) OnAlert(ev alert.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, ev)
}

func (r *recorder) OnError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func usage(cpu, ram, disk float64) stats.Sample {
	return stats.Sample{CPUPercent: cpu, MemoryPercent: ram, DiskPercent: disk}
}

func newTestMonitor(p *fakeProvider, r *fakeRanker, sink alert.Sink) *Monitor {
	opts := DefaultOptions()
	opts.Interval = 5 * time.Millisecond
	return New(p, r, sink, nil, opts)
}

func at(sec int64) time.Time {
	return time.Unix(sec, 0)
}

func TestTickEndToEnd(t *testing.T) {
	p := &fakeProvider{sample: usage(95, 50, 50)}
	sink := &recordingSink{}
	rec := newRecorder()
	m := newTestMonitor(p, &fakeRanker{}, sink)
	m.Subscribe(rec)
	ctx := context.Background()

	steps := []struct {
		sec    int64
		alerts int
	}{
		{1000, 1},
		{1005, 1},
		{1011, 2},
	}
	for _, step := range steps {
		if err := m.Tick(ctx, at(step.sec)); err != nil {
			t.Fatalf("Tick(%d) error = %v", step.sec, err)
		}
		if got := sink.count(); got != step.alerts {
			t.Errorf("after t=%d sink has %d alerts, want %d", step.sec, got, step.alerts)
		}
	}

	if !m.Cooldown()[alert.CPU].Equal(at(1011)) {
		t.Errorf("Cooldown()[CPU] = %v, want %v", m.Cooldown()[alert.CPU], at(1011))
	}
	if len(rec.alerts) != 2 || len(rec.snapshots) != 3 {
		t.Errorf("subscriber saw %d alerts / %d snapshots, want 2 / 3", len(rec.alerts), len(rec.snapshots))
	}
	for _, ev := range sink.events {
		if ev.ID == "" {
			t.Error("alert delivered without an ID")
		}
		if ev.Resource != alert.CPU {
			t.Errorf("alert resource = %s, want CPU", ev.Resource)
		}
	}
	if sink.events[0].ID == sink.events[1].ID {
		t.Error("alerts share an ID")
	}
}

func TestTickPublishesSnapshot(t *testing.T) {
	procs := []process.Info{{PID: 1, Name: "init", CPUPercent: 3}}
	r := &fakeRanker{infos: procs}
	m := newTestMonitor(&fakeProvider{sample: usage(10, 20, 30)}, r, nil)

	if _, err := m.Latest(); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("Latest() before first tick error = %v, want ErrNoSnapshot", err)
	}

	if err := m.Tick(context.Background(), at(1)); err != nil {
		t.Fatal(err)
	}
	if r.gotN != 5 {
		t.Errorf("ranker asked for %d processes, want 5", r.gotN)
	}

	snap, err := m.Latest()
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if snap.Sample.DiskPercent != 30 || len(snap.Processes) != 1 {
		t.Errorf("Latest() = %+v", snap)
	}
	if snap.Thresholds != alert.DefaultThresholds() {
		t.Errorf("snapshot thresholds = %+v", snap.Thresholds)
	}
}

func TestTickSkipsOnMetricsUnavailable(t *testing.T) {
	boom := errors.New("proc unreadable")
	p := &fakeProvider{err: unavailable(boom)}
	sink := &recordingSink{}
	rec := newRecorder()
	m := newTestMonitor(p, &fakeRanker{}, sink)
	m.Subscribe(rec)

	err := m.Tick(context.Background(), at(1))
	if !errors.Is(err, stats.ErrMetricsUnavailable) {
		t.Errorf("Tick() error = %v, want ErrMetricsUnavailable", err)
	}
	if sink.count() != 0 || len(rec.snapshots) != 0 {
		t.Error("a failed sample must not produce alerts or snapshots")
	}
	if len(rec.errs) != 1 || !errors.Is(rec.errs[0], stats.ErrMetricsUnavailable) {
		t.Errorf("subscriber errors = %v", rec.errs)
	}
	if len(m.Cooldown()) != 0 {
		t.Error("cooldown changed on a skipped tick")
	}
}

func unavailable(err error) error {
	return errors.Join(stats.ErrMetricsUnavailable, err)
}

func TestTickRankerFailureStillPublishes(t *testing.T) {
	rec := newRecorder()
	m := newTestMonitor(&fakeProvider{sample: usage(1, 1, 1)}, &fakeRanker{err: errors.New("no /proc")}, nil)
	m.Subscribe(rec)

	if err := m.Tick(context.Background(), at(1)); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	if len(rec.snapshots) != 1 {
		t.Fatalf("got %d snapshots, want 1", len(rec.snapshots))
	}
	if rec.snapshots[0].Processes == nil || len(rec.snapshots[0].Processes) != 0 {
		t.Errorf("Processes = %v, want empty list", rec.snapshots[0].Processes)
	}
}

func TestTickSinkFailureDoesNotStopLoop(t *testing.T) {
	sink := &recordingSink{err: errors.New("disk full")}
	rec := newRecorder()
	m := newTestMonitor(&fakeProvider{sample: usage(95, 95, 95)}, &fakeRanker{}, sink)
	m.Subscribe(rec)

	if err := m.Tick(context.Background(), at(1)); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	if sink.count() != 3 {
		t.Errorf("sink received %d alerts, want 3", sink.count())
	}
	if len(rec.alerts) != 3 || len(rec.snapshots) != 1 {
		t.Errorf("subscriber saw %d alerts / %d snapshots", len(rec.alerts), len(rec.snapshots))
	}
	if len(m.Cooldown()) != 3 {
		t.Errorf("cooldown recorded %d resources, want 3", len(m.Cooldown()))
	}
}

func TestUpdateThresholds(t *testing.T) {
	m := newTestMonitor(&fakeProvider{}, &fakeRanker{}, nil)

	got, err := m.UpdateThresholds("90", "70", "85")
	if err != nil {
		t.Fatalf("UpdateThresholds() error = %v", err)
	}
	want := alert.Thresholds{CPU: 90, RAM: 70, Disk: 85}
	if got != want || m.Thresholds() != want {
		t.Errorf("thresholds = %+v / %+v, want %+v", got, m.Thresholds(), want)
	}

	got, err = m.UpdateThresholds("abc", "70", "85")
	if !errors.Is(err, alert.ErrInvalidThreshold) {
		t.Errorf("UpdateThresholds(abc) error = %v, want ErrInvalidThreshold", err)
	}
	if got != want || m.Thresholds() != want {
		t.Errorf("invalid update changed thresholds to %+v", m.Thresholds())
	}
}

func TestSetThresholdsRejectsOutOfRange(t *testing.T) {
	m := newTestMonitor(&fakeProvider{}, &fakeRanker{}, nil)
	if err := m.SetThresholds(alert.Thresholds{CPU: 150, RAM: 10, Disk: 10}); err == nil {
		t.Error("SetThresholds(150) should fail")
	}
	if m.Thresholds() != alert.DefaultThresholds() {
		t.Errorf("thresholds changed to %+v", m.Thresholds())
	}
}

func TestThresholdChangeAppliesNextTick(t *testing.T) {
	sink := &recordingSink{}
	m := newTestMonitor(&fakeProvider{sample: usage(85, 0, 0)}, &fakeRanker{}, sink)
	ctx := context.Background()

	_ = m.Tick(ctx, at(1))
	if sink.count() != 1 {
		t.Fatal("cpu 85 over default 80 should alert")
	}

	_ = m.SetThresholds(alert.Thresholds{CPU: 90, RAM: 80, Disk: 80})
	_ = m.Tick(ctx, at(100))
	if sink.count() != 1 {
		t.Error("cpu 85 under a 90 threshold should not alert")
	}
}

func TestPauseResume(t *testing.T) {
	m := newTestMonitor(&fakeProvider{}, &fakeRanker{}, nil)
	if m.Paused() {
		t.Fatal("new monitor should be running")
	}
	m.Pause()
	m.Pause()
	if !m.Paused() {
		t.Error("Paused() = false after Pause()")
	}
	m.Resume()
	if m.Paused() {
		t.Error("Paused() = true after Resume()")
	}
}

func TestLatestReportsPauseState(t *testing.T) {
	m := newTestMonitor(&fakeProvider{sample: usage(1, 1, 1)}, &fakeRanker{}, nil)
	_ = m.Tick(context.Background(), at(1))

	m.Pause()
	snap, err := m.Latest()
	if err != nil {
		t.Fatal(err)
	}
	if !snap.Paused {
		t.Error("Latest().Paused = false while paused")
	}
}

func TestRunTicksUntilCancelled(t *testing.T) {
	p := &fakeProvider{sample: usage(1, 1, 1)}
	rec := newRecorder()
	m := newTestMonitor(p, &fakeRanker{}, nil)
	m.Subscribe(rec)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	for i := 0; i < 3; i++ {
		select {
		case <-rec.snapCh:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for snapshot %d", i+1)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestRunPausedDoesNotSample(t *testing.T) {
	p := &fakeProvider{sample: usage(1, 1, 1)}
	rec := newRecorder()
	m := newTestMonitor(p, &fakeRanker{}, nil)
	m.Subscribe(rec)
	m.Pause()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_ = m.Run(ctx)

	if n := p.callCount(); n != 0 {
		t.Errorf("paused monitor sampled %d times", n)
	}

	m.Resume()
	ctx2, cancel2 := context.WithCancel(context.Background())
	go func() {
		<-rec.snapCh
		cancel2()
	}()
	_ = m.Run(ctx2)

	if p.callCount() == 0 {
		t.Error("resumed monitor never sampled")
	}
}

func TestRunSurvivesTickErrors(t *testing.T) {
	p := &fakeProvider{err: unavailable(errors.New("flaky"))}
	rec := newRecorder()
	m := newTestMonitor(p, &fakeRanker{}, nil)
	m.Subscribe(rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	deadline := time.After(2 * time.Second)
	for p.callCount() < 2 {
		select {
		case <-deadline:
			t.Fatal("loop stopped after a failed tick")
		case <-time.After(time.Millisecond):
		}
	}

	p.set(usage(1, 1, 1), nil)
	select {
	case <-rec.snapCh:
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after provider recovered")
	}
}

func TestUnsubscribe(t *testing.T) {
	rec := newRecorder()
	m := newTestMonitor(&fakeProvider{sample: usage(1, 1, 1)}, &fakeRanker{}, nil)

	unsubscribe := m.Subscribe(rec)
	_ = m.Tick(context.Background(), at(1))
	unsubscribe()
	unsubscribe()
	_ = m.Tick(context.Background(), at(2))

	if len(rec.snapshots) != 1 {
		t.Errorf("got %d snapshots, want 1 before unsubscribe", len(rec.snapshots))
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	m := New(&fakeProvider{}, &fakeRanker{}, nil, nil, Options{})
	if m.Interval() != DefaultInterval {
		t.Errorf("Interval() = %v, want %v", m.Interval(), DefaultInterval)
	}
	if m.topN != process.DefaultTopN {
		t.Errorf("topN = %d, want %d", m.topN, process.DefaultTopN)
	}
	if m.policy.Window != alert.DefaultCooldown {
		t.Errorf("cooldown window = %v, want %v", m.policy.Window, alert.DefaultCooldown)
	}
}
