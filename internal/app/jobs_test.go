package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

type jobsRepoStub struct {
	strayCount   int64
	strayErr     error
	overdueCount int64
	overdueErr   error

	sweepCalled   bool
	overdueCalled bool
}

func (s *jobsRepoStub) RejectStrayPendingBids(ctx context.Context) (int64, error) {
	s.sweepCalled = true
	if s.strayErr != nil {
		return 0, s.strayErr
	}
	return s.strayCount, nil
}

func (s *jobsRepoStub) MarkOverdueInvoices(ctx context.Context, now time.Time) (int64, error) {
	s.overdueCalled = true
	if s.overdueErr != nil {
		return 0, s.overdueErr
	}
	return s.overdueCount, nil
}

func newTestJobs(repo JobsRepository) *Jobs {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewJobs(repo, logger)
}

func TestSweepStrayBids_RunsSweep(t *testing.T) {
	repo := &jobsRepoStub{strayCount: 3}
	jobs := newTestJobs(repo)

	jobs.SweepStrayBids()

	if !repo.sweepCalled {
		t.Fatal("expected sweep to run")
	}
}

func TestSweepStrayBids_SurvivesRepositoryError(t *testing.T) {
	repo := &jobsRepoStub{strayErr: errors.New("db down")}
	jobs := newTestJobs(repo)

	// Must not panic; the next scheduled run picks up the work.
	jobs.SweepStrayBids()
}

func TestFlagOverdueInvoices_RunsSweep(t *testing.T) {
	repo := &jobsRepoStub{overdueCount: 2}
	jobs := newTestJobs(repo)

	jobs.FlagOverdueInvoices()

	if !repo.overdueCalled {
		t.Fatal("expected overdue flagging to run")
	}
}
