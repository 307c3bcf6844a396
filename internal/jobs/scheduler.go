// Package jobs runs the scheduled background work: the badge expiry sweep
// and the email automation dispatcher.
package jobs

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"steeple/internal/service"
)

// Scheduler owns the cron loop. Jobs run in UTC.
type Scheduler struct {
	cron       *cron.Cron
	badges     *service.BadgeService
	automation *service.AutomationService
	logger     *slog.Logger
}

// NewScheduler creates a scheduler over the badge and automation services.
func NewScheduler(badges *service.BadgeService, automation *service.AutomationService, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		badges:     badges,
		automation: automation,
		logger:     logger,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	// Badge expiry sweep hourly on the hour.
	if _, err := s.cron.AddFunc("0 * * * *", func() {
		n, err := s.badges.DeactivateExpired(ctx)
		if err != nil {
			s.logger.Error("badge expiry sweep failed", slog.String("error", err.Error()))
			return
		}
		if n > 0 {
			s.logger.Info("badge expiry sweep finished", slog.Int64("deactivated", n))
		}
	}); err != nil {
		return err
	}

	// Automation dispatch every five minutes. Each run drains one batch;
	// a backlog larger than the batch clears over subsequent runs.
	if _, err := s.cron.AddFunc("*/5 * * * *", func() {
		n, err := s.automation.DispatchDue(ctx)
		if err != nil {
			s.logger.Error("automation dispatch failed", slog.String("error", err.Error()))
			return
		}
		if n > 0 {
			s.logger.Info("automation entries dispatched", slog.Int("count", n))
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("background job scheduler started")
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("background job scheduler stopped")
}
