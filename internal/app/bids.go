/**
 * @description
 * Bid lifecycle use cases: submission, editing, withdrawal, and the
 * acceptance flow that resolves a bidding round. Submission runs through a
 * Redis-backed rate limiter to blunt bid spam; acceptance delegates to the
 * repository's single-transaction resolution so that exactly one bid per
 * project can ever be accepted.
 */

package app

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/workbridge/marketplace-service/internal/domain"
	"github.com/workbridge/marketplace-service/internal/store"
	"github.com/workbridge/marketplace-service/pkg/metrics"
)

// SubmitBid creates a pending bid on an open project.
func (s *Service) SubmitBid(ctx context.Context, freelancerID uuid.UUID, role domain.Role, projectID uuid.UUID, req domain.SubmitBidRequest) (*domain.Bid, error) {
	if role != domain.RoleFreelancer {
		return nil, ErrRoleNotAllowed
	}
	if req.Amount <= 0 {
		return nil, validationError("amount must be positive")
	}
	if req.EstimatedDays <= 0 {
		return nil, validationError("estimated_days must be positive")
	}

	if s.rateLimiter != nil {
		allowed, retryAfter, err := s.rateLimiter.ConsumeBidSubmission(ctx, freelancerID.String())
		if err != nil {
			log.Printf("level=warn component=service msg=\"bid rate limiter unavailable, allowing request\" error=%v", err)
		} else if !allowed {
			log.Printf("level=info component=service msg=\"bid submission rate limited\" freelancer_id=%s retry_after=%d", freelancerID, retryAfter)
			return nil, ErrRateLimited
		}
	}

	project, err := s.repo.FindProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.ClientID == freelancerID {
		return nil, ErrSelfBid
	}
	if project.Status != domain.ProjectOpen {
		return nil, store.ErrProjectNotOpen
	}

	// Pre-check the one-bid-per-freelancer rule; the partial unique index on
	// bids catches the concurrent-insert race behind it.
	exists, err := s.repo.HasActiveBid(ctx, projectID, freelancerID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, store.ErrDuplicateBid
	}

	bid := &domain.Bid{
		ID:            uuid.New(),
		ProjectID:     projectID,
		FreelancerID:  freelancerID,
		Amount:        req.Amount,
		EstimatedDays: req.EstimatedDays,
		Proposal:      req.Proposal,
		Status:        domain.BidPending,
	}
	if err := s.repo.CreateBid(ctx, bid); err != nil {
		return nil, err
	}

	log.Printf("level=info component=service msg=\"bid submitted\" bid_id=%s project_id=%s freelancer_id=%s amount=%d", bid.ID, projectID, freelancerID, bid.Amount)
	metrics.BidsSubmitted.Inc()
	return bid, nil
}

// GetBid retrieves a bid by ID. Visible to the bid's freelancer and the
// owning project's client only.
func (s *Service) GetBid(ctx context.Context, callerID uuid.UUID, bidID uuid.UUID) (*domain.Bid, error) {
	bid, err := s.repo.FindBidByID(ctx, bidID)
	if err != nil {
		return nil, err
	}
	if bid.FreelancerID == callerID {
		return bid, nil
	}
	project, err := s.repo.FindProjectByID(ctx, bid.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.ClientID != callerID {
		return nil, ErrNotBidOwner
	}
	return bid, nil
}

// ListProjectBids lists the bids on a project. Only the owning client sees
// the full book; a freelancer sees only their own bid.
func (s *Service) ListProjectBids(ctx context.Context, callerID uuid.UUID, projectID uuid.UUID) ([]domain.Bid, error) {
	project, err := s.repo.FindProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	bids, err := s.repo.ListBidsByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.ClientID == callerID {
		return bids, nil
	}
	own := make([]domain.Bid, 0, 1)
	for _, b := range bids {
		if b.FreelancerID == callerID {
			own = append(own, b)
		}
	}
	return own, nil
}

// ListFreelancerBids lists every bid the caller has submitted.
func (s *Service) ListFreelancerBids(ctx context.Context, freelancerID uuid.UUID) ([]domain.Bid, error) {
	return s.repo.ListBidsByFreelancer(ctx, freelancerID)
}

// UpdateBid patches a pending bid owned by the caller.
func (s *Service) UpdateBid(ctx context.Context, callerID uuid.UUID, bidID uuid.UUID, params domain.UpdateBidParams) (*domain.Bid, error) {
	bid, err := s.repo.FindBidByID(ctx, bidID)
	if err != nil {
		return nil, err
	}
	if bid.FreelancerID != callerID {
		return nil, ErrNotBidOwner
	}
	if params.Amount != nil && *params.Amount <= 0 {
		return nil, validationError("amount must be positive")
	}
	if params.EstimatedDays != nil && *params.EstimatedDays <= 0 {
		return nil, validationError("estimated_days must be positive")
	}
	return s.repo.UpdateBidDetails(ctx, bidID, params)
}

// WithdrawBid retires a pending bid owned by the caller. Withdrawn bids free
// the freelancer to submit a fresh bid on the same project.
func (s *Service) WithdrawBid(ctx context.Context, callerID uuid.UUID, bidID uuid.UUID) error {
	bid, err := s.repo.FindBidByID(ctx, bidID)
	if err != nil {
		return err
	}
	if bid.FreelancerID != callerID {
		return ErrNotBidOwner
	}
	return s.repo.WithdrawBid(ctx, bidID)
}

// AcceptBid resolves the bidding round on an open project. The repository
// performs the assignment, the acceptance, and the sibling rejections in a
// single transaction, so two clients racing to accept different bids cannot
// both win.
func (s *Service) AcceptBid(ctx context.Context, callerID uuid.UUID, bidID uuid.UUID) (*domain.AcceptBidResult, error) {
	bid, err := s.repo.FindBidByID(ctx, bidID)
	if err != nil {
		return nil, err
	}
	project, err := s.repo.FindProjectByID(ctx, bid.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.ClientID != callerID {
		return nil, ErrNotProjectOwner
	}
	if bid.Status != domain.BidPending {
		return nil, store.ErrBidStateConflict
	}

	acceptedBid, updatedProject, err := s.repo.ResolveBidAcceptance(ctx, bid.ProjectID, bidID, bid.FreelancerID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bid acceptance: %w", err)
	}

	log.Printf("level=info component=service msg=\"bid accepted\" bid_id=%s project_id=%s freelancer_id=%s", bidID, bid.ProjectID, bid.FreelancerID)
	metrics.BidsAccepted.Inc()
	s.publishEvent(domain.EventBidAccepted, domain.BidAcceptedEvent{
		ProjectID:    updatedProject.ID,
		BidID:        acceptedBid.ID,
		ClientID:     updatedProject.ClientID,
		FreelancerID: acceptedBid.FreelancerID,
		Amount:       acceptedBid.Amount,
		OccurredAt:   s.now(),
	})

	return &domain.AcceptBidResult{Bid: acceptedBid, Project: updatedProject}, nil
}
