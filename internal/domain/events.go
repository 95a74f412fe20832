package domain

import (
	"time"

	"github.com/google/uuid"
)

// Routing keys published to the marketplace events exchange on committed
// lifecycle transitions.
const (
	EventBidAccepted       = "bid.accepted"
	EventMilestoneReleased = "milestone.released"
	EventInvoicePaid       = "invoice.paid"
	EventPaymentRecorded   = "payment.recorded"
	EventProjectCompleted  = "project.completed"
)

// BidAcceptedEvent is published when a bidding round is resolved.
type BidAcceptedEvent struct {
	ProjectID    uuid.UUID `json:"project_id"`
	BidID        uuid.UUID `json:"bid_id"`
	ClientID     uuid.UUID `json:"client_id"`
	FreelancerID uuid.UUID `json:"freelancer_id"`
	Amount       int64     `json:"amount"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// MilestoneReleasedEvent is published when a client releases payment for a
// completed milestone. The invoice ledger consumes it to draft an invoice.
type MilestoneReleasedEvent struct {
	ProjectID    uuid.UUID `json:"project_id"`
	MilestoneID  uuid.UUID `json:"milestone_id"`
	ClientID     uuid.UUID `json:"client_id"`
	FreelancerID uuid.UUID `json:"freelancer_id"`
	Amount       int64     `json:"amount"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// InvoicePaidEvent is published when an invoice is settled.
type InvoicePaidEvent struct {
	InvoiceID     uuid.UUID `json:"invoice_id"`
	ProjectID     uuid.UUID `json:"project_id"`
	MilestoneID   uuid.UUID `json:"milestone_id"`
	InvoiceNumber string    `json:"invoice_number"`
	TotalAmount   int64     `json:"total_amount"`
	PaymentID     uuid.UUID `json:"payment_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// PaymentRecordedEvent is published alongside invoice.paid once the
// settlement row is committed. It carries the fee split for downstream
// ledgers that track platform revenue separately from invoice state.
type PaymentRecordedEvent struct {
	PaymentID        uuid.UUID `json:"payment_id"`
	InvoiceID        uuid.UUID `json:"invoice_id"`
	SenderID         uuid.UUID `json:"sender_id"`
	RecipientID      uuid.UUID `json:"recipient_id"`
	Amount           int64     `json:"amount"`
	PlatformFee      int64     `json:"platform_fee"`
	FreelancerAmount int64     `json:"freelancer_amount"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// ProjectCompletedEvent is published when the last milestone of a project is
// approved and the project reaches its terminal completed state.
type ProjectCompletedEvent struct {
	ProjectID    uuid.UUID `json:"project_id"`
	ClientID     uuid.UUID `json:"client_id"`
	FreelancerID uuid.UUID `json:"freelancer_id"`
	OccurredAt   time.Time `json:"occurred_at"`
}
