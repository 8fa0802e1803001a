// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/FACorreiaa/student-expense-tracker/pkg/metrics"
)

const jobTimeout = time.Minute

// OverrideExpirer drops stat overrides whose day or month has ended.
type OverrideExpirer interface {
	ExpireOverrides(ctx context.Context) (int, error)
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron     *cron.Cron
	expirer  OverrideExpirer
	schedule string
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewScheduler creates a job scheduler. schedule is a standard 5-field cron
// expression evaluated in loc.
func NewScheduler(expirer OverrideExpirer, schedule string, loc *time.Location, m *metrics.Metrics, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))),
	)

	return &Scheduler{
		cron:     c,
		expirer:  expirer,
		schedule: schedule,
		metrics:  m,
		logger:   logger,
	}
}

// Start registers the jobs and begins running them.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.expireOverrides); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
		slog.String("schedule", s.schedule),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow runs the override expiry synchronously.
func (s *Scheduler) RunNow() {
	s.expireOverrides()
}

func (s *Scheduler) expireOverrides() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.expirer.ExpireOverrides(ctx)
	if n > 0 {
		s.metrics.OverridesExpired(n)
	}
	if err != nil {
		s.logger.Error("failed to expire stat overrides",
			slog.Int("expired", n),
			slog.Any("error", err),
		)
		return
	}

	s.logger.Info("stat overrides expired", slog.Int("expired", n))
}
