/**
 * @description
 * Cron scheduler setup for the background jobs.
 */
package app

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
	"github.com/workbridge/marketplace-service/internal/config"
)

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron   *cron.Cron
	jobs   *Jobs
	logger *slog.Logger
	config config.Config
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(jobs *Jobs, logger *slog.Logger, cfg config.Config) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:   c,
		jobs:   jobs,
		logger: logger,
		config: cfg,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.config.StrayBidSweepSchedule, s.jobs.SweepStrayBids); err != nil {
		s.logger.Error("failed to schedule stray bid sweep job", "error", err)
	} else {
		s.logger.Info("scheduled stray bid sweep job", "schedule", s.config.StrayBidSweepSchedule)
	}

	if _, err := s.cron.AddFunc(s.config.InvoiceOverdueSchedule, s.jobs.FlagOverdueInvoices); err != nil {
		s.logger.Error("failed to schedule invoice overdue job", "error", err)
	} else {
		s.logger.Info("scheduled invoice overdue job", "schedule", s.config.InvoiceOverdueSchedule)
	}

	s.cron.Start()
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
