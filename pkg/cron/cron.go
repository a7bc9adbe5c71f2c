// Package cron runs recurring jobs on robfig/cron schedules.
package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one unit of scheduled work. The context expires after the
// scheduler's job timeout.
type Job func(ctx context.Context) error

type namedJob struct {
	name string
	job  Job
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration

	mu   sync.Mutex
	jobs []namedJob
}

// NewScheduler creates a scheduler using the standard 5-field format plus
// descriptors such as "@every 15m". A run is skipped while the previous run
// of the same job is still going.
func NewScheduler(logger *slog.Logger, timeout time.Duration) *Scheduler {
	cronLogger := cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))
	c := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}

	return &Scheduler{
		cron:    c,
		logger:  logger,
		timeout: timeout,
	}
}

// Add registers job under name on spec.
func (s *Scheduler) Add(spec, name string, job Job) error {
	if _, err := s.cron.AddFunc(spec, func() { s.run(name, job) }); err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", spec, name, err)
	}
	s.mu.Lock()
	s.jobs = append(s.jobs, namedJob{name: name, job: job})
	s.mu.Unlock()
	return nil
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
	)
}

// Stop halts the schedule. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow runs every registered job once, in registration order, and returns
// the first failure.
func (s *Scheduler) RunNow() error {
	s.mu.Lock()
	jobs := append([]namedJob(nil), s.jobs...)
	s.mu.Unlock()

	var first error
	for _, j := range jobs {
		if err := s.run(j.name, j.job); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Next reports when the earliest scheduled job fires next.
func (s *Scheduler) Next() (time.Time, bool) {
	var next time.Time
	for _, e := range s.cron.Entries() {
		if next.IsZero() || (!e.Next.IsZero() && e.Next.Before(next)) {
			next = e.Next
		}
	}
	return next, !next.IsZero()
}

func (s *Scheduler) run(name string, job Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	if err := job(ctx); err != nil {
		s.logger.Error("scheduled job failed",
			slog.String("job", name),
			slog.Duration("elapsed", time.Since(start)),
			slog.Any("error", err),
		)
		return fmt.Errorf("%s: %w", name, err)
	}
	s.logger.Debug("scheduled job completed",
		slog.String("job", name),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}
