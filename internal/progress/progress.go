// Package progress derives completion percentage, smoothed throughput and
// an ETA from unit-of-work updates.
package progress

import (
	"fmt"
	"sync"
	"time"

	"github.com/scribahq/scriba/internal/log"
	"github.com/scribahq/scriba/internal/model"
)

// Notifier receives a report after every tracker change. It runs while the
// tracker lock is held, so it must be fast and must not call the tracker.
type Notifier func(model.ProgressReport)

// TrackerConfig is the configuration for a Tracker.
type TrackerConfig struct {
	// Notifier is called with a fresh report on Start, every Update and
	// Complete.
	Notifier Notifier
	// WindowSize is how many recent per-unit durations feed the ETA.
	WindowSize int
	Logger     log.Logger
}

func (c *TrackerConfig) defaults() error {
	if c.Notifier == nil {
		c.Notifier = func(model.ProgressReport) {}
	}
	if c.WindowSize <= 0 {
		c.WindowSize = 10
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "progress.Tracker"})
	return nil
}

// Tracker tracks the advancement of one long operation. Safe for
// concurrent use.
type Tracker struct {
	notifier Notifier
	window   int
	logger   log.Logger
	clock    func() time.Time

	mu         sync.Mutex
	total      int
	completed  int
	label      string
	lastUnitAt time.Time
	samples    []time.Duration
}

// NewTracker creates a new tracker.
func NewTracker(cfg TrackerConfig) (*Tracker, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Tracker{
		notifier: cfg.Notifier,
		window:   cfg.WindowSize,
		logger:   cfg.Logger,
		clock:    time.Now,
	}, nil
}

// Start begins tracking an operation of total units. A total of zero means
// the size is unknown: percent stays at zero and the ETA stays "unknown".
func (t *Tracker) Start(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total = total
	t.completed = 0
	t.label = ""
	t.lastUnitAt = t.clock()
	t.samples = t.samples[:0]

	t.notifier(t.report())
}

// Update records that completed units are done. Counts lower than what was
// already recorded are clamped, so a confused caller can never make the
// bar move backwards.
func (t *Tracker) Update(completed int, label string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.label = label

	if completed <= t.completed {
		t.notifier(t.report())
		return
	}

	now := t.clock()
	delta := completed - t.completed
	if !t.lastUnitAt.IsZero() {
		perUnit := now.Sub(t.lastUnitAt) / time.Duration(delta)
		for i := 0; i < delta; i++ {
			t.samples = append(t.samples, perUnit)
		}
		if len(t.samples) > t.window {
			t.samples = t.samples[len(t.samples)-t.window:]
		}
	}
	t.lastUnitAt = now
	t.completed = completed

	t.notifier(t.report())
}

// Complete marks the operation finished and emits a final report.
func (t *Tracker) Complete() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.total > 0 {
		t.completed = t.total
	}

	r := t.report()
	r.Percent = 100
	r.ETA = "0s"
	t.notifier(r)
}

// Snapshot returns the current report without emitting it.
func (t *Tracker) Snapshot() model.ProgressReport {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.report()
}

func (t *Tracker) report() model.ProgressReport {
	r := model.ProgressReport{
		Completed:  t.completed,
		Total:      t.total,
		Label:      t.label,
		ETA:        "unknown",
		Throughput: t.throughput(),
	}

	if t.total <= 0 {
		return r
	}

	r.Percent = float64(t.completed) / float64(t.total) * 100
	if r.Percent > 100 {
		r.Percent = 100
	}

	remaining := t.total - t.completed
	if remaining == 0 {
		r.ETA = "0s"
		return r
	}
	if avg := t.avgUnitDuration(); avg > 0 {
		r.ETA = formatETA(avg * time.Duration(remaining))
	}

	return r
}

func (t *Tracker) avgUnitDuration() time.Duration {
	if len(t.samples) == 0 {
		return 0
	}
	var sum time.Duration
	for _, s := range t.samples {
		sum += s
	}
	return sum / time.Duration(len(t.samples))
}

func (t *Tracker) throughput() float64 {
	avg := t.avgUnitDuration()
	if avg <= 0 {
		return 0
	}
	return float64(time.Second) / float64(avg)
}

func formatETA(d time.Duration) string {
	if d < 0 {
		return "unknown"
	}
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
