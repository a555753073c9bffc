// Package schedule provides the interval scheduler behind `kolpulse run
// --every`. Re-running the same day's jobs is safe because every pipeline
// stage probes the archive first.
package schedule

import (
	"context"
	"log/slog"
	"time"
)

// Job is one scheduled task.
type Job struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Scheduler runs jobs at a fixed interval.
type Scheduler struct {
	jobs   []Job
	logger *slog.Logger
	done   chan struct{}
}

// New creates a scheduler.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Add registers a job.
func (s *Scheduler) Add(job Job) {
	s.jobs = append(s.jobs, job)
}

// RunOnce executes all registered jobs once, in order. A failing job is
// logged and the remaining jobs still run; the first error is returned.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var firstErr error
	for _, job := range s.jobs {
		s.logger.Info("running job", "name", job.Name)
		start := time.Now()
		if err := job.Fn(ctx); err != nil {
			s.logger.Error("job failed", "name", job.Name, "error", err, "duration", time.Since(start))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.logger.Info("job completed", "name", job.Name, "duration", time.Since(start))
	}
	return firstErr
}

// Start runs all jobs immediately and then on every tick of interval, until
// the context is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	s.logger.Info("scheduler started", "interval", interval, "jobs", len(s.jobs))

	s.RunOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-s.done:
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	close(s.done)
}
