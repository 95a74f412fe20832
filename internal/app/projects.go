/**
 * @description
 * Project lifecycle use cases: creation, editing, opening for bids,
 * cancellation, and deletion. Projects start as drafts so clients can stage
 * them before exposing them to bidding.
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

// CreateProject creates a new draft project owned by the calling client.
func (s *Service) CreateProject(ctx context.Context, clientID uuid.UUID, role domain.Role, req domain.CreateProjectRequest) (*domain.Project, error) {
	if role != domain.RoleClient {
		return nil, ErrRoleNotAllowed
	}
	if req.Title == "" {
		return nil, validationError("title is required")
	}
	if req.Budget <= 0 {
		return nil, validationError("budget must be positive")
	}
	if req.Deadline != nil && req.Deadline.Before(s.now()) {
		return nil, validationError("deadline must be in the future")
	}

	project := &domain.Project{
		ID:          uuid.New(),
		ClientID:    clientID,
		Title:       req.Title,
		Description: req.Description,
		Status:      domain.ProjectDraft,
		Budget:      req.Budget,
		Deadline:    req.Deadline,
	}
	if err := s.repo.CreateProject(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	log.Printf("level=info component=service msg=\"project created\" project_id=%s client_id=%s", project.ID, clientID)
	metrics.ProjectsCreated.Inc()
	return project, nil
}

// GetProject retrieves a project by ID. Reads are not ownership gated.
func (s *Service) GetProject(ctx context.Context, projectID uuid.UUID) (*domain.Project, error) {
	return s.repo.FindProjectByID(ctx, projectID)
}

// ListClientProjects retrieves all projects the caller has posted.
func (s *Service) ListClientProjects(ctx context.Context, clientID uuid.UUID) ([]domain.Project, error) {
	return s.repo.ListProjectsByClient(ctx, clientID)
}

// UpdateProject patches project details. Only the owning client may edit,
// and only while the project has not been assigned.
func (s *Service) UpdateProject(ctx context.Context, callerID uuid.UUID, projectID uuid.UUID, params domain.UpdateProjectParams) (*domain.Project, error) {
	project, err := s.repo.FindProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.ClientID != callerID {
		return nil, ErrNotProjectOwner
	}
	if project.Status != domain.ProjectDraft && project.Status != domain.ProjectOpen {
		return nil, store.ErrProjectStateConflict
	}
	if params.Budget != nil && *params.Budget <= 0 {
		return nil, validationError("budget must be positive")
	}
	return s.repo.UpdateProjectDetails(ctx, projectID, params)
}

// OpenProject moves a draft project into the open state, exposing it to bids.
func (s *Service) OpenProject(ctx context.Context, callerID uuid.UUID, projectID uuid.UUID) (*domain.Project, error) {
	project, err := s.repo.FindProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.ClientID != callerID {
		return nil, ErrNotProjectOwner
	}
	if err := s.repo.TransitionProjectStatus(ctx, projectID, domain.ProjectDraft, domain.ProjectOpen); err != nil {
		return nil, err
	}
	return s.repo.FindProjectByID(ctx, projectID)
}

// CancelProject cancels a project that has not started work yet. Stray
// pending bids on a cancelled project stay pending and are never accepted;
// the reconciliation sweep leaves them alone because cancellation is not an
// assignment.
func (s *Service) CancelProject(ctx context.Context, callerID uuid.UUID, projectID uuid.UUID) (*domain.Project, error) {
	project, err := s.repo.FindProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.ClientID != callerID {
		return nil, ErrNotProjectOwner
	}

	from := project.Status
	if from != domain.ProjectDraft && from != domain.ProjectOpen && from != domain.ProjectAssigned {
		return nil, store.ErrProjectStateConflict
	}
	if err := s.repo.TransitionProjectStatus(ctx, projectID, from, domain.ProjectCancelled); err != nil {
		return nil, err
	}
	log.Printf("level=info component=service msg=\"project cancelled\" project_id=%s", projectID)
	return s.repo.FindProjectByID(ctx, projectID)
}

// DeleteProject removes a draft project with no bid or milestone history.
func (s *Service) DeleteProject(ctx context.Context, callerID uuid.UUID, projectID uuid.UUID) error {
	project, err := s.repo.FindProjectByID(ctx, projectID)
	if err != nil {
		return err
	}
	if project.ClientID != callerID {
		return ErrNotProjectOwner
	}
	if project.Status != domain.ProjectDraft {
		return store.ErrProjectStateConflict
	}
	return s.repo.DeleteProject(ctx, projectID)
}
