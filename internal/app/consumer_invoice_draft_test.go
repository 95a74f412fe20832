package app

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/workbridge/marketplace-service/internal/domain"
	"github.com/workbridge/marketplace-service/internal/store"
)

type consumerRepoStub struct {
	store.Repository

	invoices       []domain.Invoice
	createdInvoice *domain.Invoice
}

func (s *consumerRepoStub) ListInvoicesByProject(ctx context.Context, projectID uuid.UUID) ([]domain.Invoice, error) {
	return s.invoices, nil
}

func (s *consumerRepoStub) InvoiceNumberExists(ctx context.Context, invoiceNumber string) (bool, error) {
	return false, nil
}

func (s *consumerRepoStub) CreateInvoice(ctx context.Context, invoice *domain.Invoice) error {
	s.createdInvoice = invoice
	return nil
}

func TestMilestoneReleaseConsumer_DraftsInvoice(t *testing.T) {
	repo := &consumerRepoStub{}
	svc := NewService(repo, nil, &publisherStub{}, nil, 1000)
	consumer := NewMilestoneReleaseConsumer(svc)

	event := domain.MilestoneReleasedEvent{
		ProjectID:    uuid.New(),
		MilestoneID:  uuid.New(),
		ClientID:     uuid.New(),
		FreelancerID: uuid.New(),
		Amount:       150000,
		OccurredAt:   time.Now(),
	}

	if err := consumer.processEvent(context.Background(), event); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	invoice := repo.createdInvoice
	if invoice == nil {
		t.Fatal("expected an invoice to be drafted")
	}
	if invoice.Status != domain.InvoiceDraft {
		t.Fatalf("expected draft status, got %q", invoice.Status)
	}
	if invoice.MilestoneID != event.MilestoneID || invoice.FreelancerID != event.FreelancerID {
		t.Fatalf("unexpected invoice references: %+v", invoice)
	}
	if invoice.Amount != 150000 || invoice.TotalAmount != 150000 {
		t.Fatalf("expected amounts to mirror the release, got %+v", invoice)
	}
	if invoice.DueDate == nil {
		t.Fatal("expected a due date on the drafted invoice")
	}
}

func TestMilestoneReleaseConsumer_SkipsDuplicateDelivery(t *testing.T) {
	milestoneID := uuid.New()
	repo := &consumerRepoStub{
		invoices: []domain.Invoice{{ID: uuid.New(), MilestoneID: milestoneID}},
	}
	svc := NewService(repo, nil, &publisherStub{}, nil, 1000)
	consumer := NewMilestoneReleaseConsumer(svc)

	event := domain.MilestoneReleasedEvent{
		ProjectID:    uuid.New(),
		MilestoneID:  milestoneID,
		FreelancerID: uuid.New(),
		Amount:       150000,
	}

	if err := consumer.processEvent(context.Background(), event); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if repo.createdInvoice != nil {
		t.Fatal("did not expect a duplicate invoice to be drafted")
	}
}

func TestMilestoneReleaseConsumer_AcknowledgesMalformedPayload(t *testing.T) {
	repo := &consumerRepoStub{}
	svc := NewService(repo, nil, &publisherStub{}, nil, 1000)
	consumer := NewMilestoneReleaseConsumer(svc)

	if !consumer.HandleMessage([]byte("not json")) {
		t.Fatal("expected malformed payload to be acknowledged, not requeued")
	}
	if repo.createdInvoice != nil {
		t.Fatal("did not expect an invoice from a malformed payload")
	}
}
