package app

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/workbridge/marketplace-service/internal/domain"
	"github.com/workbridge/marketplace-service/internal/store"
)

type projectRepoStub struct {
	store.Repository

	project *domain.Project

	createdProject *domain.Project
	transitions    []domain.ProjectStatus
}

func (s *projectRepoStub) CreateProject(ctx context.Context, project *domain.Project) error {
	s.createdProject = project
	return nil
}

func (s *projectRepoStub) FindProjectByID(ctx context.Context, projectID uuid.UUID) (*domain.Project, error) {
	if s.project == nil || s.project.ID != projectID {
		return nil, store.ErrProjectNotFound
	}
	return s.project, nil
}

func (s *projectRepoStub) TransitionProjectStatus(ctx context.Context, projectID uuid.UUID, from, to domain.ProjectStatus) error {
	if s.project.Status != from {
		return store.ErrProjectStateConflict
	}
	s.transitions = append(s.transitions, to)
	s.project.Status = to
	return nil
}

func TestCreateProject_RejectsFreelancerRole(t *testing.T) {
	repo := &projectRepoStub{}
	svc := NewService(repo, nil, &publisherStub{}, nil, 1000)

	_, err := svc.CreateProject(context.Background(), uuid.New(), domain.RoleFreelancer, domain.CreateProjectRequest{Title: "site build", Budget: 100000})
	if !errors.Is(err, ErrRoleNotAllowed) {
		t.Fatalf("expected ErrRoleNotAllowed, got %v", err)
	}
}

func TestCreateProject_RejectsNonPositiveBudget(t *testing.T) {
	repo := &projectRepoStub{}
	svc := NewService(repo, nil, &publisherStub{}, nil, 1000)

	_, err := svc.CreateProject(context.Background(), uuid.New(), domain.RoleClient, domain.CreateProjectRequest{Title: "site build", Budget: 0})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if repo.createdProject != nil {
		t.Fatal("did not expect a project to be created")
	}
}

func TestCreateProject_StartsAsDraft(t *testing.T) {
	repo := &projectRepoStub{}
	svc := NewService(repo, nil, &publisherStub{}, nil, 1000)

	clientID := uuid.New()
	project, err := svc.CreateProject(context.Background(), clientID, domain.RoleClient, domain.CreateProjectRequest{Title: "site build", Budget: 500000})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if project.Status != domain.ProjectDraft {
		t.Fatalf("expected draft status, got %q", project.Status)
	}
	if project.ClientID != clientID {
		t.Fatal("expected project to be owned by the caller")
	}
}

func TestOpenProject_RejectsNonOwner(t *testing.T) {
	repo := &projectRepoStub{project: &domain.Project{ID: uuid.New(), ClientID: uuid.New(), Status: domain.ProjectDraft}}
	svc := NewService(repo, nil, &publisherStub{}, nil, 1000)

	_, err := svc.OpenProject(context.Background(), uuid.New(), repo.project.ID)
	if !errors.Is(err, ErrNotProjectOwner) {
		t.Fatalf("expected ErrNotProjectOwner, got %v", err)
	}
	if len(repo.transitions) != 0 {
		t.Fatal("did not expect a transition")
	}
}

func TestCancelProject_RefusedOnceInProgress(t *testing.T) {
	freelancerID := uuid.New()
	repo := &projectRepoStub{project: &domain.Project{
		ID:                   uuid.New(),
		ClientID:             uuid.New(),
		AssignedFreelancerID: &freelancerID,
		Status:               domain.ProjectInProgress,
	}}
	svc := NewService(repo, nil, &publisherStub{}, nil, 1000)

	_, err := svc.CancelProject(context.Background(), repo.project.ClientID, repo.project.ID)
	if !errors.Is(err, store.ErrProjectStateConflict) {
		t.Fatalf("expected ErrProjectStateConflict, got %v", err)
	}
	if repo.project.Status != domain.ProjectInProgress {
		t.Fatal("expected project status to be unchanged")
	}
}

func TestCancelProject_CancelsAssignedProject(t *testing.T) {
	freelancerID := uuid.New()
	repo := &projectRepoStub{project: &domain.Project{
		ID:                   uuid.New(),
		ClientID:             uuid.New(),
		AssignedFreelancerID: &freelancerID,
		Status:               domain.ProjectAssigned,
	}}
	svc := NewService(repo, nil, &publisherStub{}, nil, 1000)

	project, err := svc.CancelProject(context.Background(), repo.project.ClientID, repo.project.ID)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if project.Status != domain.ProjectCancelled {
		t.Fatalf("expected cancelled status, got %q", project.Status)
	}
}

func TestCancelProject_CancelsOpenProject(t *testing.T) {
	repo := &projectRepoStub{project: &domain.Project{ID: uuid.New(), ClientID: uuid.New(), Status: domain.ProjectOpen}}
	svc := NewService(repo, nil, &publisherStub{}, nil, 1000)

	project, err := svc.CancelProject(context.Background(), repo.project.ClientID, repo.project.ID)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if project.Status != domain.ProjectCancelled {
		t.Fatalf("expected cancelled status, got %q", project.Status)
	}
}
