// Package scheduler runs deck source syncs periodically.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Job is the work run on every tick.
type Job func(ctx context.Context) error

// Scheduler manages the periodic sync task.
type Scheduler struct {
	scheduler *gocron.Scheduler
	interval  time.Duration
	job       Job
	ctx       context.Context
	cancel    context.CancelFunc
}

// New creates a scheduler that runs job every interval.
func New(interval time.Duration, job Job) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		interval:  interval,
		job:       job,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start begins running the job in a non-blocking manner. The first run
// happens one interval after Start.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		return fmt.Errorf("invalid sync interval %s", s.interval)
	}
	if _, err := s.scheduler.Every(s.interval).WaitForSchedule().Do(s.run); err != nil {
		return fmt.Errorf("failed to schedule sync: %w", err)
	}
	s.scheduler.StartAsync()
	slog.Info("scheduled periodic sync", "interval", s.interval)
	return nil
}

// Stop terminates the scheduled task and cancels a run in progress.
func (s *Scheduler) Stop() {
	s.cancel()
	s.scheduler.Stop()
}

func (s *Scheduler) run() {
	started := time.Now()
	if err := s.job(s.ctx); err != nil {
		slog.Error("scheduled sync failed", "error", err)
		return
	}
	slog.Debug("scheduled sync finished", "took", time.Since(started))
}
