/**
 * @description
 * This file defines the Invoice and Payment entities. Invoices are raised by
 * the assigned freelancer against an approved milestone; the client settles
 * an invoice, which records a denormalized Payment row carrying the platform
 * fee split.
 *
 * @notes
 * - `total_amount` is always `amount + tax_amount` by construction; callers
 *   never supply it.
 * - The invoice number is a human-facing identifier distinct from the
 *   primary key, generated at creation time and de-duplicated with a
 *   timestamp suffix on collision rather than failing.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// InvoiceStatus defines lifecycle states for an invoice.
type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "draft"
	InvoiceSent      InvoiceStatus = "sent"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceCancelled InvoiceStatus = "cancelled"
	InvoiceOverdue   InvoiceStatus = "overdue"
)

// PaymentStatus defines lifecycle states for a settlement record.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Invoice maps directly to the `invoices` table.
type Invoice struct {
	ID            uuid.UUID     `json:"id"`
	ProjectID     uuid.UUID     `json:"project_id"`
	MilestoneID   uuid.UUID     `json:"milestone_id"`
	FreelancerID  uuid.UUID     `json:"freelancer_id"`
	InvoiceNumber string        `json:"invoice_number"`
	Amount        int64         `json:"amount"`       // in cents
	TaxAmount     int64         `json:"tax_amount"`   // in cents
	TotalAmount   int64         `json:"total_amount"` // amount + tax_amount
	Status        InvoiceStatus `json:"status"`
	DueDate       *time.Time    `json:"due_date,omitempty"`
	PaymentDate   *time.Time    `json:"payment_date,omitempty"`
	AttachmentURL *string       `json:"attachment_url,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Payment is the denormalized settlement record created when an invoice is
// marked paid. Rows are immutable once completed.
type Payment struct {
	ID               uuid.UUID     `json:"id"`
	InvoiceID        uuid.UUID     `json:"invoice_id"`
	SenderID         uuid.UUID     `json:"sender_id"`
	RecipientID      uuid.UUID     `json:"recipient_id"`
	Amount           int64         `json:"amount"`            // in cents
	PlatformFee      int64         `json:"platform_fee"`      // in cents
	FreelancerAmount int64         `json:"freelancer_amount"` // amount - platform_fee
	Status           PaymentStatus `json:"status"`
	CreatedAt        time.Time     `json:"created_at"`
}

// CreateInvoiceRequest is the DTO for incoming invoice creation requests.
// InvoiceNumber is optional; when omitted the service generates one.
type CreateInvoiceRequest struct {
	ProjectID     uuid.UUID  `json:"project_id"`
	MilestoneID   uuid.UUID  `json:"milestone_id"`
	InvoiceNumber *string    `json:"invoice_number,omitempty"`
	Amount        int64      `json:"amount"`     // in cents
	TaxAmount     int64      `json:"tax_amount"` // in cents
	DueDate       *time.Time `json:"due_date,omitempty"`
	AttachmentKey *string    `json:"attachment_key,omitempty"`
}

// UpdateInvoiceParams carries the freelancer-editable fields of a draft
// invoice. Nil fields are left untouched.
type UpdateInvoiceParams struct {
	Amount    *int64     `json:"amount,omitempty"`
	TaxAmount *int64     `json:"tax_amount,omitempty"`
	DueDate   *time.Time `json:"due_date,omitempty"`
}

// PayInvoiceResult is returned after a successful settlement so the API can
// respond with the updated invoice and the recorded payment in one payload.
type PayInvoiceResult struct {
	Invoice *Invoice `json:"invoice"`
	Payment *Payment `json:"payment"`
}
