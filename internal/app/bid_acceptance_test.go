package app

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/workbridge/marketplace-service/internal/domain"
	"github.com/workbridge/marketplace-service/internal/store"
)

type publisherStub struct {
	published []string
}

func (p *publisherStub) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	p.published = append(p.published, routingKey)
	return nil
}

func (p *publisherStub) Close() {}

type bidRepoStub struct {
	store.Repository

	project *domain.Project
	bid     *domain.Bid

	createdBid     *domain.Bid
	hasActiveBid   bool
	resolveCalled  bool
	resolveProject uuid.UUID
	createBidErr   error
}

func (s *bidRepoStub) HasActiveBid(ctx context.Context, projectID, freelancerID uuid.UUID) (bool, error) {
	return s.hasActiveBid, nil
}

func (s *bidRepoStub) FindProjectByID(ctx context.Context, projectID uuid.UUID) (*domain.Project, error) {
	if s.project == nil || s.project.ID != projectID {
		return nil, store.ErrProjectNotFound
	}
	return s.project, nil
}

func (s *bidRepoStub) FindBidByID(ctx context.Context, bidID uuid.UUID) (*domain.Bid, error) {
	if s.bid == nil || s.bid.ID != bidID {
		return nil, store.ErrBidNotFound
	}
	return s.bid, nil
}

func (s *bidRepoStub) CreateBid(ctx context.Context, bid *domain.Bid) error {
	if s.createBidErr != nil {
		return s.createBidErr
	}
	s.createdBid = bid
	return nil
}

func (s *bidRepoStub) ResolveBidAcceptance(ctx context.Context, projectID, bidID, freelancerID uuid.UUID) (*domain.Bid, *domain.Project, error) {
	s.resolveCalled = true
	s.resolveProject = projectID

	accepted := *s.bid
	accepted.Status = domain.BidAccepted
	updated := *s.project
	updated.Status = domain.ProjectAssigned
	updated.AssignedFreelancerID = &freelancerID
	return &accepted, &updated, nil
}

func newBidTestService(repo store.Repository, producer *publisherStub) *Service {
	return NewService(repo, nil, producer, nil, 1000)
}

type rateLimiterStub struct {
	allowed    bool
	retryAfter int
	err        error
	subjects   []string
}

func (s *rateLimiterStub) ConsumeBidSubmission(ctx context.Context, freelancerID string) (bool, int, error) {
	s.subjects = append(s.subjects, freelancerID)
	return s.allowed, s.retryAfter, s.err
}

func TestSubmitBid_RateLimitedFreelancerIsRefused(t *testing.T) {
	project := &domain.Project{ID: uuid.New(), ClientID: uuid.New(), Status: domain.ProjectOpen}
	repo := &bidRepoStub{project: project}
	limiter := &rateLimiterStub{allowed: false, retryAfter: 30}
	svc := NewService(repo, nil, &publisherStub{}, limiter, 1000)

	freelancerID := uuid.New()
	_, err := svc.SubmitBid(context.Background(), freelancerID, domain.RoleFreelancer, project.ID, domain.SubmitBidRequest{Amount: 1000, EstimatedDays: 5})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if repo.createdBid != nil {
		t.Fatal("did not expect a bid to be created")
	}
	if len(limiter.subjects) != 1 || limiter.subjects[0] != freelancerID.String() {
		t.Fatalf("expected the freelancer id as limiter subject, got %v", limiter.subjects)
	}
}

func TestSubmitBid_LimiterOutageFailsOpen(t *testing.T) {
	project := &domain.Project{ID: uuid.New(), ClientID: uuid.New(), Status: domain.ProjectOpen}
	repo := &bidRepoStub{project: project}
	limiter := &rateLimiterStub{err: errors.New("redis unreachable")}
	svc := NewService(repo, nil, &publisherStub{}, limiter, 1000)

	bid, err := svc.SubmitBid(context.Background(), uuid.New(), domain.RoleFreelancer, project.ID, domain.SubmitBidRequest{Amount: 1000, EstimatedDays: 5})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if bid == nil || bid.Status != domain.BidPending {
		t.Fatal("expected a pending bid despite the limiter outage")
	}
}

func TestSubmitBid_RejectsClientRole(t *testing.T) {
	repo := &bidRepoStub{}
	svc := newBidTestService(repo, &publisherStub{})

	_, err := svc.SubmitBid(context.Background(), uuid.New(), domain.RoleClient, uuid.New(), domain.SubmitBidRequest{Amount: 1000, EstimatedDays: 5})
	if !errors.Is(err, ErrRoleNotAllowed) {
		t.Fatalf("expected ErrRoleNotAllowed, got %v", err)
	}
}

func TestSubmitBid_RejectsProjectOwner(t *testing.T) {
	clientID := uuid.New()
	project := &domain.Project{ID: uuid.New(), ClientID: clientID, Status: domain.ProjectOpen}
	repo := &bidRepoStub{project: project}
	svc := newBidTestService(repo, &publisherStub{})

	_, err := svc.SubmitBid(context.Background(), clientID, domain.RoleFreelancer, project.ID, domain.SubmitBidRequest{Amount: 1000, EstimatedDays: 5})
	if !errors.Is(err, ErrSelfBid) {
		t.Fatalf("expected ErrSelfBid, got %v", err)
	}
	if repo.createdBid != nil {
		t.Fatal("did not expect a bid to be created")
	}
}

func TestSubmitBid_RejectsNonOpenProject(t *testing.T) {
	project := &domain.Project{ID: uuid.New(), ClientID: uuid.New(), Status: domain.ProjectAssigned}
	repo := &bidRepoStub{project: project}
	svc := newBidTestService(repo, &publisherStub{})

	_, err := svc.SubmitBid(context.Background(), uuid.New(), domain.RoleFreelancer, project.ID, domain.SubmitBidRequest{Amount: 1000, EstimatedDays: 5})
	if !errors.Is(err, store.ErrProjectNotOpen) {
		t.Fatalf("expected ErrProjectNotOpen, got %v", err)
	}
}

func TestSubmitBid_RejectsExistingActiveBid(t *testing.T) {
	project := &domain.Project{ID: uuid.New(), ClientID: uuid.New(), Status: domain.ProjectOpen}
	repo := &bidRepoStub{project: project, hasActiveBid: true}
	svc := newBidTestService(repo, &publisherStub{})

	_, err := svc.SubmitBid(context.Background(), uuid.New(), domain.RoleFreelancer, project.ID, domain.SubmitBidRequest{Amount: 1000, EstimatedDays: 5})
	if !errors.Is(err, store.ErrDuplicateBid) {
		t.Fatalf("expected ErrDuplicateBid, got %v", err)
	}
	if repo.createdBid != nil {
		t.Fatal("did not expect an insert after the duplicate check")
	}
}

func TestSubmitBid_SurfacesDuplicateBidRace(t *testing.T) {
	project := &domain.Project{ID: uuid.New(), ClientID: uuid.New(), Status: domain.ProjectOpen}
	repo := &bidRepoStub{project: project, createBidErr: store.ErrDuplicateBid}
	svc := newBidTestService(repo, &publisherStub{})

	_, err := svc.SubmitBid(context.Background(), uuid.New(), domain.RoleFreelancer, project.ID, domain.SubmitBidRequest{Amount: 1000, EstimatedDays: 5})
	if !errors.Is(err, store.ErrDuplicateBid) {
		t.Fatalf("expected ErrDuplicateBid, got %v", err)
	}
}

func TestSubmitBid_CreatesPendingBid(t *testing.T) {
	project := &domain.Project{ID: uuid.New(), ClientID: uuid.New(), Status: domain.ProjectOpen}
	repo := &bidRepoStub{project: project}
	svc := newBidTestService(repo, &publisherStub{})

	freelancerID := uuid.New()
	bid, err := svc.SubmitBid(context.Background(), freelancerID, domain.RoleFreelancer, project.ID, domain.SubmitBidRequest{Amount: 250000, EstimatedDays: 14, Proposal: "two week build"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if bid.Status != domain.BidPending {
		t.Fatalf("expected pending status, got %q", bid.Status)
	}
	if bid.FreelancerID != freelancerID || bid.Amount != 250000 {
		t.Fatalf("unexpected bid fields: %+v", bid)
	}
	if repo.createdBid == nil {
		t.Fatal("expected bid to be persisted")
	}
}

func TestAcceptBid_RejectsNonOwner(t *testing.T) {
	project := &domain.Project{ID: uuid.New(), ClientID: uuid.New(), Status: domain.ProjectOpen}
	bid := &domain.Bid{ID: uuid.New(), ProjectID: project.ID, FreelancerID: uuid.New(), Status: domain.BidPending}
	repo := &bidRepoStub{project: project, bid: bid}
	svc := newBidTestService(repo, &publisherStub{})

	_, err := svc.AcceptBid(context.Background(), uuid.New(), bid.ID)
	if !errors.Is(err, ErrNotProjectOwner) {
		t.Fatalf("expected ErrNotProjectOwner, got %v", err)
	}
	if repo.resolveCalled {
		t.Fatal("did not expect acceptance to be resolved")
	}
}

func TestAcceptBid_RejectsNonPendingBid(t *testing.T) {
	project := &domain.Project{ID: uuid.New(), ClientID: uuid.New(), Status: domain.ProjectOpen}
	bid := &domain.Bid{ID: uuid.New(), ProjectID: project.ID, FreelancerID: uuid.New(), Status: domain.BidWithdrawn}
	repo := &bidRepoStub{project: project, bid: bid}
	svc := newBidTestService(repo, &publisherStub{})

	_, err := svc.AcceptBid(context.Background(), project.ClientID, bid.ID)
	if !errors.Is(err, store.ErrBidStateConflict) {
		t.Fatalf("expected ErrBidStateConflict, got %v", err)
	}
}

func TestAcceptBid_ResolvesRoundAndPublishes(t *testing.T) {
	project := &domain.Project{ID: uuid.New(), ClientID: uuid.New(), Status: domain.ProjectOpen}
	bid := &domain.Bid{ID: uuid.New(), ProjectID: project.ID, FreelancerID: uuid.New(), Amount: 500000, Status: domain.BidPending}
	repo := &bidRepoStub{project: project, bid: bid}
	producer := &publisherStub{}
	svc := newBidTestService(repo, producer)

	result, err := svc.AcceptBid(context.Background(), project.ClientID, bid.ID)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !repo.resolveCalled || repo.resolveProject != project.ID {
		t.Fatal("expected acceptance to be resolved through the repository")
	}
	if result.Bid.Status != domain.BidAccepted {
		t.Fatalf("expected accepted bid, got %q", result.Bid.Status)
	}
	if result.Project.Status != domain.ProjectAssigned {
		t.Fatalf("expected assigned project, got %q", result.Project.Status)
	}
	if result.Project.AssignedFreelancerID == nil || *result.Project.AssignedFreelancerID != bid.FreelancerID {
		t.Fatal("expected project to be assigned to the bidder")
	}
	if len(producer.published) != 1 || producer.published[0] != domain.EventBidAccepted {
		t.Fatalf("expected bid.accepted event, got %v", producer.published)
	}
}
