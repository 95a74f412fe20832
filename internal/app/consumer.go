/**
 * @description
 * Asynchronous consumer for milestone release events. When a client releases
 * payment for a milestone, the published event is consumed here to draft an
 * invoice on the freelancer's behalf, so released work always has a ledger
 * entry even if the freelancer never raises one manually.
 */

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/workbridge/marketplace-service/internal/domain"
	"github.com/workbridge/marketplace-service/internal/store"
)

// defaultInvoiceDueDays is how long a drafted invoice has before the overdue
// sweep can flag it once sent.
const defaultInvoiceDueDays = 14

type MilestoneReleaseConsumer struct {
	svc *Service
}

func NewMilestoneReleaseConsumer(svc *Service) *MilestoneReleaseConsumer {
	return &MilestoneReleaseConsumer{svc: svc}
}

// HandleMessage processes one milestone.released delivery. Returning true
// acknowledges the message; false requeues it.
func (c *MilestoneReleaseConsumer) HandleMessage(body []byte) bool {
	var event domain.MilestoneReleasedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("milestone-consumer: failed to unmarshal payload: %v", err)
		return true
	}

	if event.MilestoneID == uuid.Nil || event.FreelancerID == uuid.Nil {
		log.Printf("milestone-consumer: missing ids in event %+v", event)
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := c.processEvent(ctx, event); err != nil {
		log.Printf("milestone-consumer: processing error for milestone %s: %v", event.MilestoneID, err)
		return false
	}
	return true
}

func (c *MilestoneReleaseConsumer) processEvent(ctx context.Context, event domain.MilestoneReleasedEvent) error {
	// Skip if an invoice already references this milestone. Releases are
	// published at most once per milestone, but deliveries are not.
	invoices, err := c.svc.repo.ListInvoicesByProject(ctx, event.ProjectID)
	if err != nil {
		if errors.Is(err, store.ErrProjectNotFound) {
			log.Printf("milestone-consumer: no project found for %s; acknowledging", event.ProjectID)
			return nil
		}
		return fmt.Errorf("list invoices: %w", err)
	}
	for _, inv := range invoices {
		if inv.MilestoneID == event.MilestoneID {
			return nil
		}
	}

	number, err := c.svc.dedupInvoiceNumber(ctx, c.svc.generateInvoiceNumber())
	if err != nil {
		return err
	}

	dueDate := c.svc.now().AddDate(0, 0, defaultInvoiceDueDays)
	invoice := &domain.Invoice{
		ID:            uuid.New(),
		ProjectID:     event.ProjectID,
		MilestoneID:   event.MilestoneID,
		FreelancerID:  event.FreelancerID,
		InvoiceNumber: number,
		Amount:        event.Amount,
		TaxAmount:     0,
		TotalAmount:   event.Amount,
		Status:        domain.InvoiceDraft,
		DueDate:       &dueDate,
	}
	if err := c.svc.repo.CreateInvoice(ctx, invoice); err != nil {
		if errors.Is(err, store.ErrDuplicateInvoiceNumber) {
			invoice.InvoiceNumber = fmt.Sprintf("%s-%d", number, c.svc.now().UnixNano())
			if retryErr := c.svc.repo.CreateInvoice(ctx, invoice); retryErr != nil {
				return fmt.Errorf("create invoice: %w", retryErr)
			}
		} else {
			return fmt.Errorf("create invoice: %w", err)
		}
	}

	log.Printf("milestone-consumer: drafted invoice %s for milestone %s", invoice.InvoiceNumber, event.MilestoneID)
	return nil
}
