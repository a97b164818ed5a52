package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Cadences configures the four scheduled task intervals (§4.7 defaults:
// cache sweep 6h, auto-sync 1h, health snapshot 4h, full cycle 24h).
type Cadences struct {
	CacheSweep     time.Duration
	AutoSync       time.Duration
	HealthSnapshot time.Duration
	FullCycle      time.Duration
}

// Scheduler wraps gocron to run a Loop's four tasks on independent
// cadences — the first use of gocron in this codebase; the teacher
// carried it in go.mod but never wired it to anything (DESIGN.md).
type Scheduler struct {
	loop      *Loop
	cadences  Cadences
	scheduler gocron.Scheduler
}

// NewScheduler builds a Scheduler over loop with the given cadences.
func NewScheduler(loop *Loop, cadences Cadences) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Scheduler{loop: loop, cadences: cadences, scheduler: s}, nil
}

// Start registers all four jobs and begins the scheduler's background
// goroutine. ctx is passed through to each task invocation so cancellation
// propagates into in-flight sync/sweep operations at their own checkpoints.
func (s *Scheduler) Start(ctx context.Context) error {
	tasks := []struct {
		name     string
		interval time.Duration
		run      func()
	}{
		{"cache_sweep", s.cadences.CacheSweep, func() { s.loop.CacheSweep(ctx) }},
		{"auto_sync", s.cadences.AutoSync, func() { s.loop.AutoSync(ctx) }},
		{"health_snapshot", s.cadences.HealthSnapshot, func() { s.loop.HealthSnapshot(ctx) }},
		{"full_cycle", s.cadences.FullCycle, func() { s.loop.FullCycle(ctx) }},
	}

	for _, t := range tasks {
		if t.interval <= 0 {
			continue
		}
		_, err := s.scheduler.NewJob(
			gocron.DurationJob(t.interval),
			gocron.NewTask(t.run),
			gocron.WithName(t.name),
		)
		if err != nil {
			return err
		}
	}

	slog.Info("maintenance: scheduler starting",
		slog.Duration("cache_sweep", s.cadences.CacheSweep),
		slog.Duration("auto_sync", s.cadences.AutoSync),
		slog.Duration("health_snapshot", s.cadences.HealthSnapshot),
		slog.Duration("full_cycle", s.cadences.FullCycle))
	s.scheduler.Start()
	return nil
}

// Stop halts the scheduler, waiting for any in-flight task invocation to
// return.
func (s *Scheduler) Stop() error {
	return s.scheduler.Shutdown()
}
