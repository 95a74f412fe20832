/**
 * @description
 * Milestone lifecycle use cases. Clients create milestones on their assigned
 * projects, the assigned freelancer marks them complete, and the client
 * releases payment, which moves the milestone to its terminal approved state
 * and publishes the event the invoice ledger consumes. When the last
 * milestone of a project is approved the project itself is completed.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/workbridge/marketplace-service/internal/domain"
	"github.com/workbridge/marketplace-service/internal/store"
	"github.com/workbridge/marketplace-service/pkg/metrics"
)

// milestoneCreatableStatuses are the project states that accept new milestones.
func milestoneCreatable(status domain.ProjectStatus) bool {
	return status == domain.ProjectAssigned || status == domain.ProjectInProgress
}

// CreateMilestone creates a pending milestone on an assigned project owned
// by the caller. An optional attachment key is resolved to a public URL
// through the blob store.
func (s *Service) CreateMilestone(ctx context.Context, callerID uuid.UUID, req domain.CreateMilestoneRequest) (*domain.Milestone, error) {
	if req.Title == "" {
		return nil, validationError("title is required")
	}
	if req.Amount <= 0 {
		return nil, validationError("amount must be positive")
	}

	project, err := s.repo.FindProjectByID(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.ClientID != callerID {
		return nil, ErrNotProjectOwner
	}
	if !milestoneCreatable(project.Status) {
		return nil, store.ErrProjectStateConflict
	}

	var attachmentURL *string
	if req.AttachmentKey != nil && *req.AttachmentKey != "" {
		url, err := s.blobClient.ResolveURL(ctx, *req.AttachmentKey)
		if err != nil {
			log.Printf("level=warn component=service msg=\"failed to resolve milestone attachment\" key=%s error=%v", *req.AttachmentKey, err)
		} else {
			attachmentURL = &url
		}
	}

	milestone := &domain.Milestone{
		ID:            uuid.New(),
		ProjectID:     req.ProjectID,
		ClientID:      callerID,
		Title:         req.Title,
		Description:   req.Description,
		Amount:        req.Amount,
		DueDate:       req.DueDate,
		AttachmentURL: attachmentURL,
		Status:        domain.MilestonePending,
	}
	if err := s.repo.CreateMilestone(ctx, milestone); err != nil {
		return nil, fmt.Errorf("failed to create milestone: %w", err)
	}

	log.Printf("level=info component=service msg=\"milestone created\" milestone_id=%s project_id=%s amount=%d", milestone.ID, req.ProjectID, milestone.Amount)
	return milestone, nil
}

// GetMilestone retrieves a milestone by ID.
func (s *Service) GetMilestone(ctx context.Context, milestoneID uuid.UUID) (*domain.Milestone, error) {
	return s.repo.FindMilestoneByID(ctx, milestoneID)
}

// ListProjectMilestones lists all milestones of a project.
func (s *Service) ListProjectMilestones(ctx context.Context, projectID uuid.UUID) ([]domain.Milestone, error) {
	if _, err := s.repo.FindProjectByID(ctx, projectID); err != nil {
		return nil, err
	}
	return s.repo.ListMilestonesByProject(ctx, projectID)
}

// MarkMilestoneComplete is invoked by the assigned freelancer to flag a
// pending milestone as delivered. Completing an already completed or
// approved milestone is a state conflict, not an idempotent no-op, so the
// client always sees at most one completion signal per milestone.
func (s *Service) MarkMilestoneComplete(ctx context.Context, callerID uuid.UUID, role domain.Role, milestoneID uuid.UUID) (*domain.Milestone, error) {
	if role != domain.RoleFreelancer {
		return nil, ErrRoleNotAllowed
	}
	milestone, err := s.repo.FindMilestoneByID(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	project, err := s.repo.FindProjectByID(ctx, milestone.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.AssignedFreelancerID == nil || *project.AssignedFreelancerID != callerID {
		return nil, ErrNotAssignedFreelancer
	}

	updated, err := s.repo.CompleteMilestone(ctx, milestoneID)
	if err != nil {
		return nil, err
	}

	// The first milestone leaving pending kicks the project from assigned
	// into in_progress.
	if project.Status == domain.ProjectAssigned {
		if err := s.repo.TransitionProjectStatus(ctx, milestone.ProjectID, domain.ProjectAssigned, domain.ProjectInProgress); err != nil && !errors.Is(err, store.ErrProjectStateConflict) {
			log.Printf("level=warn component=service msg=\"failed to advance project to in_progress\" project_id=%s error=%v", milestone.ProjectID, err)
		}
	}

	log.Printf("level=info component=service msg=\"milestone completed\" milestone_id=%s project_id=%s", milestoneID, milestone.ProjectID)
	return updated, nil
}

// ReleaseMilestonePayment is invoked by the owning client to approve a
// completed milestone and release its payment. The milestone lands in the
// terminal approved state; the released event drives invoice drafting
// downstream. Approving the last outstanding milestone completes the project.
func (s *Service) ReleaseMilestonePayment(ctx context.Context, callerID uuid.UUID, milestoneID uuid.UUID) (*domain.Milestone, error) {
	milestone, err := s.repo.FindMilestoneByID(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	project, err := s.repo.FindProjectByID(ctx, milestone.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.ClientID != callerID {
		return nil, ErrNotProjectOwner
	}

	updated, err := s.repo.ApproveMilestone(ctx, milestoneID)
	if err != nil {
		return nil, err
	}

	log.Printf("level=info component=service msg=\"milestone payment released\" milestone_id=%s project_id=%s amount=%d", milestoneID, milestone.ProjectID, milestone.Amount)
	metrics.MilestonesReleased.Inc()

	var freelancerID uuid.UUID
	if project.AssignedFreelancerID != nil {
		freelancerID = *project.AssignedFreelancerID
	}
	s.publishEvent(domain.EventMilestoneReleased, domain.MilestoneReleasedEvent{
		ProjectID:    project.ID,
		MilestoneID:  updated.ID,
		ClientID:     project.ClientID,
		FreelancerID: freelancerID,
		Amount:       updated.Amount,
		OccurredAt:   s.now(),
	})

	s.maybeCompleteProject(ctx, project, freelancerID)
	return updated, nil
}

// maybeCompleteProject drives the project to completed when every milestone
// has been approved.
func (s *Service) maybeCompleteProject(ctx context.Context, project *domain.Project, freelancerID uuid.UUID) {
	remaining, err := s.repo.CountUnapprovedMilestones(ctx, project.ID)
	if err != nil {
		log.Printf("level=warn component=service msg=\"failed to count unapproved milestones\" project_id=%s error=%v", project.ID, err)
		return
	}
	if remaining > 0 {
		return
	}
	if err := s.repo.TransitionProjectStatus(ctx, project.ID, domain.ProjectInProgress, domain.ProjectCompleted); err != nil {
		if !errors.Is(err, store.ErrProjectStateConflict) {
			log.Printf("level=warn component=service msg=\"failed to complete project\" project_id=%s error=%v", project.ID, err)
		}
		return
	}
	log.Printf("level=info component=service msg=\"project completed\" project_id=%s", project.ID)
	s.publishEvent(domain.EventProjectCompleted, domain.ProjectCompletedEvent{
		ProjectID:    project.ID,
		ClientID:     project.ClientID,
		FreelancerID: freelancerID,
		OccurredAt:   s.now(),
	})
}

// DeleteMilestone removes a pending milestone from a project the caller owns.
func (s *Service) DeleteMilestone(ctx context.Context, callerID uuid.UUID, milestoneID uuid.UUID) error {
	milestone, err := s.repo.FindMilestoneByID(ctx, milestoneID)
	if err != nil {
		return err
	}
	if milestone.ClientID != callerID {
		return ErrNotProjectOwner
	}
	return s.repo.DeleteMilestone(ctx, milestoneID)
}
