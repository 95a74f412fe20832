package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/workbridge/marketplace-service/internal/domain"
	"github.com/workbridge/marketplace-service/internal/store"
)

type invoiceRepoStub struct {
	store.Repository

	project   *domain.Project
	milestone *domain.Milestone
	invoice   *domain.Invoice
	payment   *domain.Payment

	existingNumbers map[string]bool
	createdInvoice  *domain.Invoice
	settledPayment  *domain.Payment
	settleCalled    bool
}

func (s *invoiceRepoStub) FindProjectByID(ctx context.Context, projectID uuid.UUID) (*domain.Project, error) {
	if s.project == nil || s.project.ID != projectID {
		return nil, store.ErrProjectNotFound
	}
	return s.project, nil
}

func (s *invoiceRepoStub) FindMilestoneByID(ctx context.Context, milestoneID uuid.UUID) (*domain.Milestone, error) {
	if s.milestone == nil || s.milestone.ID != milestoneID {
		return nil, store.ErrMilestoneNotFound
	}
	return s.milestone, nil
}

func (s *invoiceRepoStub) FindInvoiceByID(ctx context.Context, invoiceID uuid.UUID) (*domain.Invoice, error) {
	if s.invoice == nil || s.invoice.ID != invoiceID {
		return nil, store.ErrInvoiceNotFound
	}
	return s.invoice, nil
}

func (s *invoiceRepoStub) InvoiceNumberExists(ctx context.Context, invoiceNumber string) (bool, error) {
	return s.existingNumbers[invoiceNumber], nil
}

func (s *invoiceRepoStub) CreateInvoice(ctx context.Context, invoice *domain.Invoice) error {
	s.createdInvoice = invoice
	return nil
}

func (s *invoiceRepoStub) FindPaymentByInvoiceID(ctx context.Context, invoiceID uuid.UUID) (*domain.Payment, error) {
	if s.payment == nil {
		return nil, store.ErrPaymentNotFound
	}
	return s.payment, nil
}

func (s *invoiceRepoStub) SettleInvoice(ctx context.Context, invoiceID uuid.UUID, payableFrom []domain.InvoiceStatus, payment *domain.Payment) (*domain.Invoice, error) {
	s.settleCalled = true
	allowed := false
	for _, status := range payableFrom {
		if s.invoice.Status == status {
			allowed = true
		}
	}
	if !allowed {
		return nil, store.ErrInvoiceStateConflict
	}
	s.settledPayment = payment
	settled := *s.invoice
	settled.Status = domain.InvoicePaid
	s.invoice = &settled
	return &settled, nil
}

func newInvoiceFixture() *invoiceRepoStub {
	freelancerID := uuid.New()
	project := &domain.Project{
		ID:                   uuid.New(),
		ClientID:             uuid.New(),
		AssignedFreelancerID: &freelancerID,
		Status:               domain.ProjectInProgress,
	}
	milestone := &domain.Milestone{
		ID:        uuid.New(),
		ProjectID: project.ID,
		ClientID:  project.ClientID,
		Amount:    200000,
		Status:    domain.MilestoneApproved,
	}
	return &invoiceRepoStub{
		project:         project,
		milestone:       milestone,
		existingNumbers: map[string]bool{},
	}
}

func TestCreateInvoice_RejectsUnassignedFreelancer(t *testing.T) {
	repo := newInvoiceFixture()
	svc := NewService(repo, nil, &publisherStub{}, nil, 1000)

	req := domain.CreateInvoiceRequest{ProjectID: repo.project.ID, MilestoneID: repo.milestone.ID, Amount: 200000}
	_, err := svc.CreateInvoice(context.Background(), uuid.New(), domain.RoleFreelancer, req)
	if !errors.Is(err, ErrNotAssignedFreelancer) {
		t.Fatalf("expected ErrNotAssignedFreelancer, got %v", err)
	}
}

func TestCreateInvoice_RejectsUnapprovedMilestone(t *testing.T) {
	repo := newInvoiceFixture()
	repo.milestone.Status = domain.MilestoneCompleted
	svc := NewService(repo, nil, &publisherStub{}, nil, 1000)

	req := domain.CreateInvoiceRequest{ProjectID: repo.project.ID, MilestoneID: repo.milestone.ID, Amount: 200000}
	_, err := svc.CreateInvoice(context.Background(), *repo.project.AssignedFreelancerID, domain.RoleFreelancer, req)
	if !errors.Is(err, store.ErrMilestoneStateConflict) {
		t.Fatalf("expected ErrMilestoneStateConflict, got %v", err)
	}
}

func TestCreateInvoice_ComputesTotalAndGeneratesNumber(t *testing.T) {
	repo := newInvoiceFixture()
	svc := NewService(repo, nil, &publisherStub{}, nil, 1000)

	req := domain.CreateInvoiceRequest{ProjectID: repo.project.ID, MilestoneID: repo.milestone.ID, Amount: 200000, TaxAmount: 15000}
	invoice, err := svc.CreateInvoice(context.Background(), *repo.project.AssignedFreelancerID, domain.RoleFreelancer, req)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if invoice.TotalAmount != 215000 {
		t.Fatalf("expected total 215000, got %d", invoice.TotalAmount)
	}
	if invoice.Status != domain.InvoiceDraft {
		t.Fatalf("expected draft status, got %q", invoice.Status)
	}
	if !strings.HasPrefix(invoice.InvoiceNumber, "INV-") {
		t.Fatalf("expected generated invoice number, got %q", invoice.InvoiceNumber)
	}
}

func TestCreateInvoice_SuffixesCollidingNumber(t *testing.T) {
	repo := newInvoiceFixture()
	repo.existingNumbers["INV-2026-001"] = true
	svc := NewService(repo, nil, &publisherStub{}, nil, 1000)

	number := "INV-2026-001"
	req := domain.CreateInvoiceRequest{ProjectID: repo.project.ID, MilestoneID: repo.milestone.ID, InvoiceNumber: &number, Amount: 200000}
	invoice, err := svc.CreateInvoice(context.Background(), *repo.project.AssignedFreelancerID, domain.RoleFreelancer, req)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if invoice.InvoiceNumber == number {
		t.Fatal("expected colliding number to be suffixed")
	}
	if !strings.HasPrefix(invoice.InvoiceNumber, number+"-") {
		t.Fatalf("expected suffix on requested number, got %q", invoice.InvoiceNumber)
	}
}

func TestPayInvoice_RejectsNonOwner(t *testing.T) {
	repo := newInvoiceFixture()
	repo.invoice = &domain.Invoice{
		ID:           uuid.New(),
		ProjectID:    repo.project.ID,
		MilestoneID:  repo.milestone.ID,
		FreelancerID: *repo.project.AssignedFreelancerID,
		TotalAmount:  215000,
		Status:       domain.InvoiceSent,
	}
	svc := NewService(repo, nil, &publisherStub{}, nil, 1000)

	_, err := svc.PayInvoice(context.Background(), uuid.New(), repo.invoice.ID)
	if !errors.Is(err, ErrNotProjectOwner) {
		t.Fatalf("expected ErrNotProjectOwner, got %v", err)
	}
	if repo.settleCalled {
		t.Fatal("did not expect settlement to reach the repository")
	}
}

func TestPayInvoice_RejectsCancelledInvoice(t *testing.T) {
	repo := newInvoiceFixture()
	repo.invoice = &domain.Invoice{
		ID:          uuid.New(),
		ProjectID:   repo.project.ID,
		TotalAmount: 215000,
		Status:      domain.InvoiceCancelled,
	}
	svc := NewService(repo, nil, &publisherStub{}, nil, 1000)

	_, err := svc.PayInvoice(context.Background(), repo.project.ClientID, repo.invoice.ID)
	if !errors.Is(err, store.ErrInvoiceStateConflict) {
		t.Fatalf("expected ErrInvoiceStateConflict, got %v", err)
	}
}

func TestPayInvoice_RepeatPaymentReturnsExistingSettlement(t *testing.T) {
	repo := newInvoiceFixture()
	existing := &domain.Payment{ID: uuid.New(), Status: domain.PaymentCompleted}
	repo.invoice = &domain.Invoice{
		ID:          uuid.New(),
		ProjectID:   repo.project.ID,
		TotalAmount: 215000,
		Status:      domain.InvoicePaid,
	}
	repo.payment = existing
	svc := NewService(repo, nil, &publisherStub{}, nil, 1000)

	result, err := svc.PayInvoice(context.Background(), repo.project.ClientID, repo.invoice.ID)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if result.Payment.ID != existing.ID {
		t.Fatal("expected the existing settlement to be returned")
	}
	if repo.settleCalled {
		t.Fatal("did not expect a second settlement")
	}
}

func TestPayInvoice_RecordsPlatformFeeSplit(t *testing.T) {
	repo := newInvoiceFixture()
	freelancerID := *repo.project.AssignedFreelancerID
	repo.invoice = &domain.Invoice{
		ID:           uuid.New(),
		ProjectID:    repo.project.ID,
		MilestoneID:  repo.milestone.ID,
		FreelancerID: freelancerID,
		TotalAmount:  215000,
		Status:       domain.InvoiceSent,
	}
	producer := &publisherStub{}
	svc := NewService(repo, nil, producer, nil, 1000)

	result, err := svc.PayInvoice(context.Background(), repo.project.ClientID, repo.invoice.ID)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if result.Invoice.Status != domain.InvoicePaid {
		t.Fatalf("expected paid invoice, got %q", result.Invoice.Status)
	}

	payment := repo.settledPayment
	if payment == nil {
		t.Fatal("expected a settlement to be recorded")
	}
	// 10% of 215000
	if payment.PlatformFee != 21500 {
		t.Fatalf("expected platform fee 21500, got %d", payment.PlatformFee)
	}
	if payment.FreelancerAmount != 193500 {
		t.Fatalf("expected freelancer amount 193500, got %d", payment.FreelancerAmount)
	}
	if payment.PlatformFee+payment.FreelancerAmount != payment.Amount {
		t.Fatal("expected fee split to sum to the settled amount")
	}
	if payment.SenderID != repo.project.ClientID || payment.RecipientID != freelancerID {
		t.Fatal("expected payment parties to match client and freelancer")
	}
	if len(producer.published) != 2 {
		t.Fatalf("expected invoice.paid and payment.recorded events, got %v", producer.published)
	}
	if producer.published[0] != domain.EventInvoicePaid || producer.published[1] != domain.EventPaymentRecorded {
		t.Fatalf("expected invoice.paid then payment.recorded, got %v", producer.published)
	}
}
