/**
 * @description
 * Scheduled job implementations for the marketplace-service.
 */
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/workbridge/marketplace-service/pkg/metrics"
)

// JobsRepository defines the database operations needed by the jobs.
type JobsRepository interface {
	RejectStrayPendingBids(ctx context.Context) (int64, error)
	MarkOverdueInvoices(ctx context.Context, now time.Time) (int64, error)
}

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	repo   JobsRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewJobs creates a new Jobs runner.
func NewJobs(repo JobsRepository, logger *slog.Logger) *Jobs {
	return &Jobs{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// SweepStrayBids rejects pending bids left on projects that have already
// been assigned. The acceptance transaction normally rejects siblings
// inline; this pass repairs the rare interrupted run.
func (j *Jobs) SweepStrayBids() {
	j.logger.Info("starting stray bid sweep job")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	swept, err := j.repo.RejectStrayPendingBids(ctx)
	if err != nil {
		j.logger.Error("failed to sweep stray bids", "error", err)
		return
	}
	if swept > 0 {
		j.logger.Warn("rejected stray pending bids", "count", swept)
		metrics.StrayBidsSwept.Add(float64(swept))
	}

	j.logger.Info("stray bid sweep job finished", "swept", swept)
}

// FlagOverdueInvoices moves sent invoices past their due date to overdue.
func (j *Jobs) FlagOverdueInvoices() {
	j.logger.Info("starting invoice overdue job")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	flagged, err := j.repo.MarkOverdueInvoices(ctx, j.now())
	if err != nil {
		j.logger.Error("failed to flag overdue invoices", "error", err)
		return
	}
	if flagged > 0 {
		metrics.InvoicesOverdue.Add(float64(flagged))
	}

	j.logger.Info("invoice overdue job finished", "flagged", flagged)
}
