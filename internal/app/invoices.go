/**
 * @description
 * Invoice and payment use cases. The assigned freelancer raises invoices
 * against approved milestones, sends them to the client, and the client
 * settles them. Settlement records the platform fee split in a payment row
 * inside the same transaction that marks the invoice paid.
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

// invoicePayableStatuses are the states a client can settle an invoice from.
// Overdue invoices stay payable; lateness is bookkeeping, not a refusal.
var invoicePayableStatuses = []domain.InvoiceStatus{
	domain.InvoiceDraft,
	domain.InvoiceSent,
	domain.InvoiceOverdue,
}

// GenerateInvoiceNumber produces a human-facing invoice number of the form
// INV-{year}-{unix nanos}. Collisions are possible in principle, so the
// caller re-suffixes until the number is free.
func (s *Service) generateInvoiceNumber() string {
	now := s.now()
	return fmt.Sprintf("INV-%d-%d", now.Year(), now.UnixNano())
}

func (s *Service) dedupInvoiceNumber(ctx context.Context, number string) (string, error) {
	candidate := number
	for attempt := 0; attempt < 5; attempt++ {
		exists, err := s.repo.InvoiceNumberExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check invoice number: %w", err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", number, s.now().UnixNano())
	}
	return candidate, nil
}

// CreateInvoice raises a draft invoice against an approved milestone of a
// project assigned to the caller.
func (s *Service) CreateInvoice(ctx context.Context, callerID uuid.UUID, role domain.Role, req domain.CreateInvoiceRequest) (*domain.Invoice, error) {
	if role != domain.RoleFreelancer {
		return nil, ErrRoleNotAllowed
	}
	if req.Amount <= 0 {
		return nil, validationError("amount must be positive")
	}
	if req.TaxAmount < 0 {
		return nil, validationError("tax_amount cannot be negative")
	}

	project, err := s.repo.FindProjectByID(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.AssignedFreelancerID == nil || *project.AssignedFreelancerID != callerID {
		return nil, ErrNotAssignedFreelancer
	}

	milestone, err := s.repo.FindMilestoneByID(ctx, req.MilestoneID)
	if err != nil {
		return nil, err
	}
	if milestone.ProjectID != req.ProjectID {
		return nil, validationError("milestone does not belong to the project")
	}
	if milestone.Status != domain.MilestoneApproved {
		return nil, store.ErrMilestoneStateConflict
	}

	number := s.generateInvoiceNumber()
	if req.InvoiceNumber != nil && *req.InvoiceNumber != "" {
		number = *req.InvoiceNumber
	}
	number, err = s.dedupInvoiceNumber(ctx, number)
	if err != nil {
		return nil, err
	}

	var attachmentURL *string
	if req.AttachmentKey != nil && *req.AttachmentKey != "" {
		url, err := s.blobClient.ResolveURL(ctx, *req.AttachmentKey)
		if err != nil {
			log.Printf("level=warn component=service msg=\"failed to resolve invoice attachment\" key=%s error=%v", *req.AttachmentKey, err)
		} else {
			attachmentURL = &url
		}
	}

	invoice := &domain.Invoice{
		ID:            uuid.New(),
		ProjectID:     req.ProjectID,
		MilestoneID:   req.MilestoneID,
		FreelancerID:  callerID,
		InvoiceNumber: number,
		Amount:        req.Amount,
		TaxAmount:     req.TaxAmount,
		TotalAmount:   req.Amount + req.TaxAmount,
		Status:        domain.InvoiceDraft,
		DueDate:       req.DueDate,
		AttachmentURL: attachmentURL,
	}
	if err := s.repo.CreateInvoice(ctx, invoice); err != nil {
		if errors.Is(err, store.ErrDuplicateInvoiceNumber) {
			// Lost the race between existence check and insert; suffix and retry once.
			invoice.InvoiceNumber = fmt.Sprintf("%s-%d", number, s.now().UnixNano())
			if retryErr := s.repo.CreateInvoice(ctx, invoice); retryErr != nil {
				return nil, retryErr
			}
		} else {
			return nil, err
		}
	}

	log.Printf("level=info component=service msg=\"invoice created\" invoice_id=%s invoice_number=%s project_id=%s total=%d", invoice.ID, invoice.InvoiceNumber, req.ProjectID, invoice.TotalAmount)
	metrics.InvoicesCreated.Inc()
	return invoice, nil
}

// GetInvoice retrieves an invoice by ID.
func (s *Service) GetInvoice(ctx context.Context, invoiceID uuid.UUID) (*domain.Invoice, error) {
	return s.repo.FindInvoiceByID(ctx, invoiceID)
}

// ListProjectInvoices lists the invoices raised against a project.
func (s *Service) ListProjectInvoices(ctx context.Context, projectID uuid.UUID) ([]domain.Invoice, error) {
	if _, err := s.repo.FindProjectByID(ctx, projectID); err != nil {
		return nil, err
	}
	return s.repo.ListInvoicesByProject(ctx, projectID)
}

// ListFreelancerInvoices lists every invoice the caller has raised.
func (s *Service) ListFreelancerInvoices(ctx context.Context, freelancerID uuid.UUID) ([]domain.Invoice, error) {
	return s.repo.ListInvoicesByFreelancer(ctx, freelancerID)
}

// UpdateInvoice patches a draft invoice owned by the caller.
func (s *Service) UpdateInvoice(ctx context.Context, callerID uuid.UUID, invoiceID uuid.UUID, params domain.UpdateInvoiceParams) (*domain.Invoice, error) {
	invoice, err := s.repo.FindInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.FreelancerID != callerID {
		return nil, ErrNotInvoiceOwner
	}
	if params.Amount != nil && *params.Amount <= 0 {
		return nil, validationError("amount must be positive")
	}
	if params.TaxAmount != nil && *params.TaxAmount < 0 {
		return nil, validationError("tax_amount cannot be negative")
	}
	return s.repo.UpdateInvoiceDetails(ctx, invoiceID, params)
}

// SendInvoice moves a draft invoice to sent, making it visible for payment
// chasing and the overdue sweep.
func (s *Service) SendInvoice(ctx context.Context, callerID uuid.UUID, invoiceID uuid.UUID) (*domain.Invoice, error) {
	invoice, err := s.repo.FindInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.FreelancerID != callerID {
		return nil, ErrNotInvoiceOwner
	}
	if err := s.repo.TransitionInvoiceStatus(ctx, invoiceID, domain.InvoiceDraft, domain.InvoiceSent); err != nil {
		return nil, err
	}
	return s.repo.FindInvoiceByID(ctx, invoiceID)
}

// CancelInvoice retires an unpaid invoice owned by the caller.
func (s *Service) CancelInvoice(ctx context.Context, callerID uuid.UUID, invoiceID uuid.UUID) (*domain.Invoice, error) {
	invoice, err := s.repo.FindInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.FreelancerID != callerID {
		return nil, ErrNotInvoiceOwner
	}
	switch invoice.Status {
	case domain.InvoiceDraft, domain.InvoiceSent, domain.InvoiceOverdue:
	default:
		return nil, store.ErrInvoiceStateConflict
	}
	if err := s.repo.TransitionInvoiceStatus(ctx, invoiceID, invoice.Status, domain.InvoiceCancelled); err != nil {
		return nil, err
	}
	return s.repo.FindInvoiceByID(ctx, invoiceID)
}

// PayInvoice settles an invoice. Only the client who owns the project may
// pay. A repeat payment of an already paid invoice returns the existing
// settlement rather than an error; paying a cancelled invoice is refused.
func (s *Service) PayInvoice(ctx context.Context, callerID uuid.UUID, invoiceID uuid.UUID) (*domain.PayInvoiceResult, error) {
	invoice, err := s.repo.FindInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	project, err := s.repo.FindProjectByID(ctx, invoice.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.ClientID != callerID {
		return nil, ErrNotProjectOwner
	}

	if invoice.Status == domain.InvoicePaid {
		payment, err := s.repo.FindPaymentByInvoiceID(ctx, invoiceID)
		if err != nil {
			return nil, err
		}
		return &domain.PayInvoiceResult{Invoice: invoice, Payment: payment}, nil
	}
	if invoice.Status == domain.InvoiceCancelled {
		return nil, store.ErrInvoiceStateConflict
	}

	platformFee := invoice.TotalAmount * s.platformFeeBps / 10000
	payment := &domain.Payment{
		ID:               uuid.New(),
		InvoiceID:        invoiceID,
		SenderID:         project.ClientID,
		RecipientID:      invoice.FreelancerID,
		Amount:           invoice.TotalAmount,
		PlatformFee:      platformFee,
		FreelancerAmount: invoice.TotalAmount - platformFee,
		Status:           domain.PaymentCompleted,
	}

	settled, err := s.repo.SettleInvoice(ctx, invoiceID, invoicePayableStatuses, payment)
	if err != nil {
		return nil, err
	}

	log.Printf("level=info component=service msg=\"invoice paid\" invoice_id=%s invoice_number=%s total=%d platform_fee=%d", invoiceID, settled.InvoiceNumber, settled.TotalAmount, platformFee)
	metrics.InvoicesPaid.Inc()
	metrics.PaymentVolume.Add(float64(settled.TotalAmount))
	s.publishEvent(domain.EventInvoicePaid, domain.InvoicePaidEvent{
		InvoiceID:     settled.ID,
		ProjectID:     settled.ProjectID,
		MilestoneID:   settled.MilestoneID,
		InvoiceNumber: settled.InvoiceNumber,
		TotalAmount:   settled.TotalAmount,
		PaymentID:     payment.ID,
		OccurredAt:    s.now(),
	})
	s.publishEvent(domain.EventPaymentRecorded, domain.PaymentRecordedEvent{
		PaymentID:        payment.ID,
		InvoiceID:        invoiceID,
		SenderID:         payment.SenderID,
		RecipientID:      payment.RecipientID,
		Amount:           payment.Amount,
		PlatformFee:      payment.PlatformFee,
		FreelancerAmount: payment.FreelancerAmount,
		OccurredAt:       s.now(),
	})

	return &domain.PayInvoiceResult{Invoice: settled, Payment: payment}, nil
}

// GetInvoicePayment retrieves the settlement record for a paid invoice.
func (s *Service) GetInvoicePayment(ctx context.Context, invoiceID uuid.UUID) (*domain.Payment, error) {
	return s.repo.FindPaymentByInvoiceID(ctx, invoiceID)
}

// DeleteInvoice removes a draft invoice owned by the caller.
func (s *Service) DeleteInvoice(ctx context.Context, callerID uuid.UUID, invoiceID uuid.UUID) error {
	invoice, err := s.repo.FindInvoiceByID(ctx, invoiceID)
	if err != nil {
		return err
	}
	if invoice.FreelancerID != callerID {
		return ErrNotInvoiceOwner
	}
	return s.repo.DeleteInvoice(ctx, invoiceID)
}
