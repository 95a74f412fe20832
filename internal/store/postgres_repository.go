/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository`
 * interface. It contains all the necessary SQL queries to interact with the
 * database tables backing the engagement lifecycle: projects, bids,
 * milestones, invoices, and payments.
 *
 * @dependencies
 * - context, errors, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/workbridge/marketplace-service/internal/domain"
)

var (
	ErrProjectNotFound        = errors.New("project not found")
	ErrBidNotFound            = errors.New("bid not found")
	ErrMilestoneNotFound      = errors.New("milestone not found")
	ErrInvoiceNotFound        = errors.New("invoice not found")
	ErrPaymentNotFound        = errors.New("payment not found")
	ErrProjectNotOpen         = errors.New("project is not open")
	ErrProjectStateConflict   = errors.New("project is not in the required state")
	ErrBidStateConflict       = errors.New("bid is not in the required state")
	ErrMilestoneStateConflict = errors.New("milestone is not in the required state")
	ErrInvoiceStateConflict   = errors.New("invoice is not in the required state")
	ErrDuplicateBid           = errors.New("freelancer already has a bid on this project")
	ErrDuplicateInvoiceNumber = errors.New("invoice number already exists")
	ErrProjectHasHistory      = errors.New("project still has bids or milestones")
)

const uniqueViolationCode = "23505"

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

const projectColumns = `id, client_id, assigned_freelancer_id, title, description, status, budget, deadline, created_at, updated_at`

func scanProject(row pgx.Row) (*domain.Project, error) {
	var p domain.Project
	err := row.Scan(
		&p.ID, &p.ClientID, &p.AssignedFreelancerID, &p.Title, &p.Description,
		&p.Status, &p.Budget, &p.Deadline, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProject inserts a new project record in draft status.
func (r *PostgresRepository) CreateProject(ctx context.Context, project *domain.Project) error {
	query := `
		INSERT INTO projects (id, client_id, title, description, status, budget, deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	return r.db.QueryRow(ctx, query,
		project.ID,
		project.ClientID,
		project.Title,
		project.Description,
		project.Status,
		project.Budget,
		project.Deadline,
	).Scan(&project.CreatedAt, &project.UpdatedAt)
}

// FindProjectByID retrieves a project from the database by its ID.
func (r *PostgresRepository) FindProjectByID(ctx context.Context, projectID uuid.UUID) (*domain.Project, error) {
	project, err := scanProject(r.db.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, projectID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return project, nil
}

// ListProjectsByClient retrieves all projects owned by a client.
func (r *PostgresRepository) ListProjectsByClient(ctx context.Context, clientID uuid.UUID) ([]domain.Project, error) {
	rows, err := r.db.Query(ctx, `SELECT `+projectColumns+` FROM projects WHERE client_id = $1 ORDER BY created_at DESC`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(
			&p.ID, &p.ClientID, &p.AssignedFreelancerID, &p.Title, &p.Description,
			&p.Status, &p.Budget, &p.Deadline, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// UpdateProjectDetails patches the client-editable fields of a project.
func (r *PostgresRepository) UpdateProjectDetails(ctx context.Context, projectID uuid.UUID, params domain.UpdateProjectParams) (*domain.Project, error) {
	query := `
		UPDATE projects
		SET
			title = COALESCE($1, title),
			description = COALESCE($2, description),
			budget = COALESCE($3, budget),
			deadline = COALESCE($4, deadline),
			updated_at = NOW()
		WHERE id = $5
		RETURNING ` + projectColumns
	project, err := scanProject(r.db.QueryRow(ctx, query, params.Title, params.Description, params.Budget, params.Deadline, projectID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return project, nil
}

// TransitionProjectStatus performs a checked-and-updated-in-one-statement
// status change. Zero rows affected means the project either does not exist
// or has already left the `from` state.
func (r *PostgresRepository) TransitionProjectStatus(ctx context.Context, projectID uuid.UUID, from, to domain.ProjectStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE projects SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`,
		to, projectID, from,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, findErr := r.FindProjectByID(ctx, projectID); findErr != nil {
			return findErr
		}
		return ErrProjectStateConflict
	}
	return nil
}

// DeleteProject removes a project only while it has no bid or milestone history.
func (r *PostgresRepository) DeleteProject(ctx context.Context, projectID uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var hasHistory bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM bids WHERE project_id = $1)
		    OR EXISTS (SELECT 1 FROM milestones WHERE project_id = $1)
	`, projectID).Scan(&hasHistory)
	if err != nil {
		return err
	}
	if hasHistory {
		return ErrProjectHasHistory
	}

	tag, err := tx.Exec(ctx, `DELETE FROM projects WHERE id = $1`, projectID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProjectNotFound
	}
	return tx.Commit(ctx)
}

const bidColumns = `id, project_id, freelancer_id, amount, estimated_days, proposal, status, created_at, updated_at`

func scanBid(row pgx.Row) (*domain.Bid, error) {
	var b domain.Bid
	err := row.Scan(
		&b.ID, &b.ProjectID, &b.FreelancerID, &b.Amount, &b.EstimatedDays,
		&b.Proposal, &b.Status, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBid inserts a new bid record. The partial unique index on
// (project_id, freelancer_id) WHERE status <> 'withdrawn' enforces the
// one-bid-per-freelancer rule at the database level.
func (r *PostgresRepository) CreateBid(ctx context.Context, bid *domain.Bid) error {
	query := `
		INSERT INTO bids (id, project_id, freelancer_id, amount, estimated_days, proposal, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		bid.ID,
		bid.ProjectID,
		bid.FreelancerID,
		bid.Amount,
		bid.EstimatedDays,
		bid.Proposal,
		bid.Status,
	).Scan(&bid.CreatedAt, &bid.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateBid
		}
		return err
	}
	return nil
}

// HasActiveBid reports whether the freelancer already holds a non-withdrawn
// bid on the project. Callers use it ahead of CreateBid to reject duplicates
// before the insert; the unique index remains the backstop for races.
func (r *PostgresRepository) HasActiveBid(ctx context.Context, projectID, freelancerID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bids
			WHERE project_id = $1 AND freelancer_id = $2 AND status <> $3
		)`, projectID, freelancerID, domain.BidWithdrawn,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check for existing bid: %w", err)
	}
	return exists, nil
}

// FindBidByID retrieves a bid from the database by its ID.
func (r *PostgresRepository) FindBidByID(ctx context.Context, bidID uuid.UUID) (*domain.Bid, error) {
	bid, err := scanBid(r.db.QueryRow(ctx, `SELECT `+bidColumns+` FROM bids WHERE id = $1`, bidID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrBidNotFound
		}
		return nil, err
	}
	return bid, nil
}

// ListBidsByProject retrieves all bids submitted against a project.
func (r *PostgresRepository) ListBidsByProject(ctx context.Context, projectID uuid.UUID) ([]domain.Bid, error) {
	return r.listBids(ctx, `SELECT `+bidColumns+` FROM bids WHERE project_id = $1 ORDER BY created_at ASC`, projectID)
}

// ListBidsByFreelancer retrieves all bids a freelancer has submitted.
func (r *PostgresRepository) ListBidsByFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]domain.Bid, error) {
	return r.listBids(ctx, `SELECT `+bidColumns+` FROM bids WHERE freelancer_id = $1 ORDER BY created_at DESC`, freelancerID)
}

func (r *PostgresRepository) listBids(ctx context.Context, query string, arg any) ([]domain.Bid, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []domain.Bid
	for rows.Next() {
		var b domain.Bid
		if err := rows.Scan(
			&b.ID, &b.ProjectID, &b.FreelancerID, &b.Amount, &b.EstimatedDays,
			&b.Proposal, &b.Status, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, err
		}
		bids = append(bids, b)
	}
	return bids, rows.Err()
}

// UpdateBidDetails patches a pending bid. Accepted and rejected bids are
// immutable, which the status predicate enforces.
func (r *PostgresRepository) UpdateBidDetails(ctx context.Context, bidID uuid.UUID, params domain.UpdateBidParams) (*domain.Bid, error) {
	query := `
		UPDATE bids
		SET
			amount = COALESCE($1, amount),
			estimated_days = COALESCE($2, estimated_days),
			proposal = COALESCE($3, proposal),
			updated_at = NOW()
		WHERE id = $4 AND status = $5
		RETURNING ` + bidColumns
	bid, err := scanBid(r.db.QueryRow(ctx, query, params.Amount, params.EstimatedDays, params.Proposal, bidID, domain.BidPending))
	if err != nil {
		if err == pgx.ErrNoRows {
			if _, findErr := r.FindBidByID(ctx, bidID); findErr != nil {
				return nil, findErr
			}
			return nil, ErrBidStateConflict
		}
		return nil, err
	}
	return bid, nil
}

// WithdrawBid moves a pending bid to withdrawn.
func (r *PostgresRepository) WithdrawBid(ctx context.Context, bidID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE bids SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`,
		domain.BidWithdrawn, bidID, domain.BidPending,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, findErr := r.FindBidByID(ctx, bidID); findErr != nil {
			return findErr
		}
		return ErrBidStateConflict
	}
	return nil
}

// ResolveBidAcceptance runs the three-way acceptance write as one
// transaction:
//  1. conditionally assign the project while it is still open,
//  2. conditionally accept the bid while it is still pending,
//  3. reject every remaining pending sibling.
//
// A concurrent acceptance on another bid of the same project loses at step 1
// and observes ErrProjectNotOpen with no partial writes.
func (r *PostgresRepository) ResolveBidAcceptance(ctx context.Context, projectID, bidID, freelancerID uuid.UUID) (*domain.Bid, *domain.Project, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	project, err := scanProject(tx.QueryRow(ctx, `
		UPDATE projects
		SET status = $1, assigned_freelancer_id = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4
		RETURNING `+projectColumns,
		domain.ProjectAssigned, freelancerID, projectID, domain.ProjectOpen,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil, ErrProjectNotOpen
		}
		return nil, nil, err
	}

	bid, err := scanBid(tx.QueryRow(ctx, `
		UPDATE bids
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND project_id = $3 AND status = $4
		RETURNING `+bidColumns,
		domain.BidAccepted, bidID, projectID, domain.BidPending,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil, ErrBidStateConflict
		}
		return nil, nil, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE bids
		SET status = $1, updated_at = NOW()
		WHERE project_id = $2 AND id <> $3 AND status = $4`,
		domain.BidRejected, projectID, bidID, domain.BidPending,
	); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return bid, project, nil
}

// RejectStrayPendingBids sweeps pending bids on projects that have already
// been assigned. These can only exist if the sibling-rejection step of an
// acceptance was interrupted; the sweep restores the invariant.
func (r *PostgresRepository) RejectStrayPendingBids(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE bids
		SET status = $1, updated_at = NOW()
		WHERE status = $2
		  AND project_id IN (
			SELECT id FROM projects WHERE status IN ($3, $4, $5)
		  )`,
		domain.BidRejected, domain.BidPending,
		domain.ProjectAssigned, domain.ProjectInProgress, domain.ProjectCompleted,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const milestoneColumns = `id, project_id, client_id, title, description, amount, due_date, attachment_url, status, released_at, created_at, updated_at`

func scanMilestone(row pgx.Row) (*domain.Milestone, error) {
	var m domain.Milestone
	err := row.Scan(
		&m.ID, &m.ProjectID, &m.ClientID, &m.Title, &m.Description, &m.Amount,
		&m.DueDate, &m.AttachmentURL, &m.Status, &m.ReleasedAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateMilestone inserts a new milestone record in pending status.
func (r *PostgresRepository) CreateMilestone(ctx context.Context, milestone *domain.Milestone) error {
	query := `
		INSERT INTO milestones (id, project_id, client_id, title, description, amount, due_date, attachment_url, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	return r.db.QueryRow(ctx, query,
		milestone.ID,
		milestone.ProjectID,
		milestone.ClientID,
		milestone.Title,
		milestone.Description,
		milestone.Amount,
		milestone.DueDate,
		milestone.AttachmentURL,
		milestone.Status,
	).Scan(&milestone.CreatedAt, &milestone.UpdatedAt)
}

// FindMilestoneByID retrieves a milestone from the database by its ID.
func (r *PostgresRepository) FindMilestoneByID(ctx context.Context, milestoneID uuid.UUID) (*domain.Milestone, error) {
	milestone, err := scanMilestone(r.db.QueryRow(ctx, `SELECT `+milestoneColumns+` FROM milestones WHERE id = $1`, milestoneID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrMilestoneNotFound
		}
		return nil, err
	}
	return milestone, nil
}

// ListMilestonesByProject retrieves all milestones for a project.
func (r *PostgresRepository) ListMilestonesByProject(ctx context.Context, projectID uuid.UUID) ([]domain.Milestone, error) {
	rows, err := r.db.Query(ctx, `SELECT `+milestoneColumns+` FROM milestones WHERE project_id = $1 ORDER BY created_at ASC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var milestones []domain.Milestone
	for rows.Next() {
		var m domain.Milestone
		if err := rows.Scan(
			&m.ID, &m.ProjectID, &m.ClientID, &m.Title, &m.Description, &m.Amount,
			&m.DueDate, &m.AttachmentURL, &m.Status, &m.ReleasedAt, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, err
		}
		milestones = append(milestones, m)
	}
	return milestones, rows.Err()
}

// CompleteMilestone moves a pending milestone to completed.
func (r *PostgresRepository) CompleteMilestone(ctx context.Context, milestoneID uuid.UUID) (*domain.Milestone, error) {
	return r.transitionMilestone(ctx, milestoneID, domain.MilestonePending, domain.MilestoneCompleted, false)
}

// ApproveMilestone moves a completed milestone to its terminal approved
// state and stamps the release time.
func (r *PostgresRepository) ApproveMilestone(ctx context.Context, milestoneID uuid.UUID) (*domain.Milestone, error) {
	return r.transitionMilestone(ctx, milestoneID, domain.MilestoneCompleted, domain.MilestoneApproved, true)
}

func (r *PostgresRepository) transitionMilestone(ctx context.Context, milestoneID uuid.UUID, from, to domain.MilestoneStatus, stampRelease bool) (*domain.Milestone, error) {
	query := `
		UPDATE milestones
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
		RETURNING ` + milestoneColumns
	if stampRelease {
		query = `
		UPDATE milestones
		SET status = $1, released_at = NOW(), updated_at = NOW()
		WHERE id = $2 AND status = $3
		RETURNING ` + milestoneColumns
	}
	milestone, err := scanMilestone(r.db.QueryRow(ctx, query, to, milestoneID, from))
	if err != nil {
		if err == pgx.ErrNoRows {
			if _, findErr := r.FindMilestoneByID(ctx, milestoneID); findErr != nil {
				return nil, findErr
			}
			return nil, ErrMilestoneStateConflict
		}
		return nil, err
	}
	return milestone, nil
}

// CountUnapprovedMilestones returns how many milestones of a project have
// not reached the approved state yet.
func (r *PostgresRepository) CountUnapprovedMilestones(ctx context.Context, projectID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM milestones WHERE project_id = $1 AND status <> $2`,
		projectID, domain.MilestoneApproved,
	).Scan(&count)
	return count, err
}

// DeleteMilestone removes a milestone only while it is still pending.
func (r *PostgresRepository) DeleteMilestone(ctx context.Context, milestoneID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM milestones WHERE id = $1 AND status = $2`,
		milestoneID, domain.MilestonePending,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, findErr := r.FindMilestoneByID(ctx, milestoneID); findErr != nil {
			return findErr
		}
		return ErrMilestoneStateConflict
	}
	return nil
}

const invoiceColumns = `id, project_id, milestone_id, freelancer_id, invoice_number, amount, tax_amount, total_amount, status, due_date, payment_date, attachment_url, created_at, updated_at`

func scanInvoice(row pgx.Row) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := row.Scan(
		&inv.ID, &inv.ProjectID, &inv.MilestoneID, &inv.FreelancerID, &inv.InvoiceNumber,
		&inv.Amount, &inv.TaxAmount, &inv.TotalAmount, &inv.Status, &inv.DueDate,
		&inv.PaymentDate, &inv.AttachmentURL, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// CreateInvoice inserts a new invoice record. total_amount is computed by
// the caller as amount + tax_amount; the unique index on invoice_number
// backs the collision detection in the service layer.
func (r *PostgresRepository) CreateInvoice(ctx context.Context, invoice *domain.Invoice) error {
	query := `
		INSERT INTO invoices (id, project_id, milestone_id, freelancer_id, invoice_number, amount, tax_amount, total_amount, status, due_date, attachment_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		invoice.ID,
		invoice.ProjectID,
		invoice.MilestoneID,
		invoice.FreelancerID,
		invoice.InvoiceNumber,
		invoice.Amount,
		invoice.TaxAmount,
		invoice.TotalAmount,
		invoice.Status,
		invoice.DueDate,
		invoice.AttachmentURL,
	).Scan(&invoice.CreatedAt, &invoice.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateInvoiceNumber
		}
		return err
	}
	return nil
}

// FindInvoiceByID retrieves an invoice from the database by its ID.
func (r *PostgresRepository) FindInvoiceByID(ctx context.Context, invoiceID uuid.UUID) (*domain.Invoice, error) {
	invoice, err := scanInvoice(r.db.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, invoiceID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	return invoice, nil
}

// ListInvoicesByProject retrieves all invoices raised against a project.
func (r *PostgresRepository) ListInvoicesByProject(ctx context.Context, projectID uuid.UUID) ([]domain.Invoice, error) {
	return r.listInvoices(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE project_id = $1 ORDER BY created_at DESC`, projectID)
}

// ListInvoicesByFreelancer retrieves all invoices a freelancer has raised.
func (r *PostgresRepository) ListInvoicesByFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]domain.Invoice, error) {
	return r.listInvoices(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE freelancer_id = $1 ORDER BY created_at DESC`, freelancerID)
}

func (r *PostgresRepository) listInvoices(ctx context.Context, query string, arg any) ([]domain.Invoice, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []domain.Invoice
	for rows.Next() {
		var inv domain.Invoice
		if err := rows.Scan(
			&inv.ID, &inv.ProjectID, &inv.MilestoneID, &inv.FreelancerID, &inv.InvoiceNumber,
			&inv.Amount, &inv.TaxAmount, &inv.TotalAmount, &inv.Status, &inv.DueDate,
			&inv.PaymentDate, &inv.AttachmentURL, &inv.CreatedAt, &inv.UpdatedAt,
		); err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// InvoiceNumberExists reports whether an invoice already carries the number.
func (r *PostgresRepository) InvoiceNumberExists(ctx context.Context, invoiceNumber string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM invoices WHERE invoice_number = $1)`,
		invoiceNumber,
	).Scan(&exists)
	return exists, err
}

// UpdateInvoiceDetails patches a draft invoice and recomputes total_amount.
func (r *PostgresRepository) UpdateInvoiceDetails(ctx context.Context, invoiceID uuid.UUID, params domain.UpdateInvoiceParams) (*domain.Invoice, error) {
	query := `
		UPDATE invoices
		SET
			amount = COALESCE($1, amount),
			tax_amount = COALESCE($2, tax_amount),
			total_amount = COALESCE($1, amount) + COALESCE($2, tax_amount),
			due_date = COALESCE($3, due_date),
			updated_at = NOW()
		WHERE id = $4 AND status = $5
		RETURNING ` + invoiceColumns
	invoice, err := scanInvoice(r.db.QueryRow(ctx, query, params.Amount, params.TaxAmount, params.DueDate, invoiceID, domain.InvoiceDraft))
	if err != nil {
		if err == pgx.ErrNoRows {
			if _, findErr := r.FindInvoiceByID(ctx, invoiceID); findErr != nil {
				return nil, findErr
			}
			return nil, ErrInvoiceStateConflict
		}
		return nil, err
	}
	return invoice, nil
}

// TransitionInvoiceStatus performs a conditional invoice status change.
func (r *PostgresRepository) TransitionInvoiceStatus(ctx context.Context, invoiceID uuid.UUID, from, to domain.InvoiceStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE invoices SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`,
		to, invoiceID, from,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, findErr := r.FindInvoiceByID(ctx, invoiceID); findErr != nil {
			return findErr
		}
		return ErrInvoiceStateConflict
	}
	return nil
}

// SettleInvoice marks the invoice paid and records the settlement row in one
// transaction. The conditional update keeps concurrent settlements mutually
// exclusive; the loser observes ErrInvoiceStateConflict.
func (r *PostgresRepository) SettleInvoice(ctx context.Context, invoiceID uuid.UUID, payableFrom []domain.InvoiceStatus, payment *domain.Payment) (*domain.Invoice, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	statuses := make([]string, 0, len(payableFrom))
	for _, s := range payableFrom {
		statuses = append(statuses, string(s))
	}

	invoice, err := scanInvoice(tx.QueryRow(ctx, `
		UPDATE invoices
		SET status = $1, payment_date = NOW(), updated_at = NOW()
		WHERE id = $2 AND status = ANY($3)
		RETURNING `+invoiceColumns,
		domain.InvoicePaid, invoiceID, statuses,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			var exists bool
			if checkErr := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM invoices WHERE id = $1)`, invoiceID).Scan(&exists); checkErr != nil {
				return nil, checkErr
			}
			if !exists {
				return nil, ErrInvoiceNotFound
			}
			return nil, ErrInvoiceStateConflict
		}
		return nil, err
	}

	if err := tx.QueryRow(ctx, `
		INSERT INTO payments (id, invoice_id, sender_id, recipient_id, amount, platform_fee, freelancer_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		payment.ID,
		payment.InvoiceID,
		payment.SenderID,
		payment.RecipientID,
		payment.Amount,
		payment.PlatformFee,
		payment.FreelancerAmount,
		payment.Status,
	).Scan(&payment.CreatedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return invoice, nil
}

// FindPaymentByInvoiceID retrieves the settlement record for an invoice.
func (r *PostgresRepository) FindPaymentByInvoiceID(ctx context.Context, invoiceID uuid.UUID) (*domain.Payment, error) {
	var p domain.Payment
	err := r.db.QueryRow(ctx, `
		SELECT id, invoice_id, sender_id, recipient_id, amount, platform_fee, freelancer_amount, status, created_at
		FROM payments
		WHERE invoice_id = $1`,
		invoiceID,
	).Scan(&p.ID, &p.InvoiceID, &p.SenderID, &p.RecipientID, &p.Amount, &p.PlatformFee, &p.FreelancerAmount, &p.Status, &p.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

// DeleteInvoice removes an invoice only while it is still a draft.
func (r *PostgresRepository) DeleteInvoice(ctx context.Context, invoiceID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM invoices WHERE id = $1 AND status = $2`,
		invoiceID, domain.InvoiceDraft,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, findErr := r.FindInvoiceByID(ctx, invoiceID); findErr != nil {
			return findErr
		}
		return ErrInvoiceStateConflict
	}
	return nil
}

// MarkOverdueInvoices flips sent invoices whose due date has passed.
func (r *PostgresRepository) MarkOverdueInvoices(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE invoices
		SET status = $1, updated_at = NOW()
		WHERE status = $2 AND due_date IS NOT NULL AND due_date < $3`,
		domain.InvoiceOverdue, domain.InvoiceSent, now,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
