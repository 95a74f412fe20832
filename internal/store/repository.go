/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract
 * for all data access operations required by the marketplace-service. By
 * defining an interface, we decouple the engagement lifecycle logic from the
 * specific database implementation (e.g., PostgreSQL), making the code more
 * modular and easier to test.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/workbridge/marketplace-service/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Project methods
	CreateProject(ctx context.Context, project *domain.Project) error
	FindProjectByID(ctx context.Context, projectID uuid.UUID) (*domain.Project, error)
	ListProjectsByClient(ctx context.Context, clientID uuid.UUID) ([]domain.Project, error)
	UpdateProjectDetails(ctx context.Context, projectID uuid.UUID, params domain.UpdateProjectParams) (*domain.Project, error)
	// TransitionProjectStatus performs a conditional status update and reports
	// ErrProjectStateConflict when the project is no longer in `from`.
	TransitionProjectStatus(ctx context.Context, projectID uuid.UUID, from, to domain.ProjectStatus) error
	DeleteProject(ctx context.Context, projectID uuid.UUID) error

	// Bid methods
	CreateBid(ctx context.Context, bid *domain.Bid) error
	// HasActiveBid reports whether the freelancer holds a non-withdrawn bid
	// on the project.
	HasActiveBid(ctx context.Context, projectID, freelancerID uuid.UUID) (bool, error)
	FindBidByID(ctx context.Context, bidID uuid.UUID) (*domain.Bid, error)
	ListBidsByProject(ctx context.Context, projectID uuid.UUID) ([]domain.Bid, error)
	ListBidsByFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]domain.Bid, error)
	UpdateBidDetails(ctx context.Context, bidID uuid.UUID, params domain.UpdateBidParams) (*domain.Bid, error)
	WithdrawBid(ctx context.Context, bidID uuid.UUID) error
	// ResolveBidAcceptance atomically assigns the project to the bidder,
	// accepts the bid, and rejects every pending sibling. The conditional
	// project update makes concurrent acceptances mutually exclusive: the
	// loser observes ErrProjectNotOpen and nothing is written.
	ResolveBidAcceptance(ctx context.Context, projectID, bidID, freelancerID uuid.UUID) (*domain.Bid, *domain.Project, error)
	// RejectStrayPendingBids is the reconciliation pass for pending bids left
	// on projects that are already assigned. Returns the number of rows swept.
	RejectStrayPendingBids(ctx context.Context) (int64, error)

	// Milestone methods
	CreateMilestone(ctx context.Context, milestone *domain.Milestone) error
	FindMilestoneByID(ctx context.Context, milestoneID uuid.UUID) (*domain.Milestone, error)
	ListMilestonesByProject(ctx context.Context, projectID uuid.UUID) ([]domain.Milestone, error)
	CompleteMilestone(ctx context.Context, milestoneID uuid.UUID) (*domain.Milestone, error)
	ApproveMilestone(ctx context.Context, milestoneID uuid.UUID) (*domain.Milestone, error)
	CountUnapprovedMilestones(ctx context.Context, projectID uuid.UUID) (int64, error)
	DeleteMilestone(ctx context.Context, milestoneID uuid.UUID) error

	// Invoice and payment methods
	CreateInvoice(ctx context.Context, invoice *domain.Invoice) error
	FindInvoiceByID(ctx context.Context, invoiceID uuid.UUID) (*domain.Invoice, error)
	ListInvoicesByProject(ctx context.Context, projectID uuid.UUID) ([]domain.Invoice, error)
	ListInvoicesByFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]domain.Invoice, error)
	InvoiceNumberExists(ctx context.Context, invoiceNumber string) (bool, error)
	UpdateInvoiceDetails(ctx context.Context, invoiceID uuid.UUID, params domain.UpdateInvoiceParams) (*domain.Invoice, error)
	TransitionInvoiceStatus(ctx context.Context, invoiceID uuid.UUID, from, to domain.InvoiceStatus) error
	// SettleInvoice marks the invoice paid and inserts the settlement record
	// in one transaction. Settlement is refused unless the invoice status is
	// one of `payableFrom`.
	SettleInvoice(ctx context.Context, invoiceID uuid.UUID, payableFrom []domain.InvoiceStatus, payment *domain.Payment) (*domain.Invoice, error)
	FindPaymentByInvoiceID(ctx context.Context, invoiceID uuid.UUID) (*domain.Payment, error)
	DeleteInvoice(ctx context.Context, invoiceID uuid.UUID) error
	// MarkOverdueInvoices flips sent invoices whose due date has passed.
	MarkOverdueInvoices(ctx context.Context, now time.Time) (int64, error)
}
