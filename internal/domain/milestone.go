/**
 * @description
 * This file defines the Milestone entity. Milestones are created by the
 * project's client on an assigned project, completed by the assigned
 * freelancer, and approved by the client when payment is released.
 *
 * @notes
 * - `approved` is the terminal state reached by payment release. An earlier
 *   iteration of the product reset released milestones to `pending`, which
 *   made them indistinguishable from never-started work; that behavior is
 *   intentionally not kept.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// MilestoneStatus defines lifecycle states for a milestone.
// pending → completed → approved is the normal path; in_progress is an
// optional intermediate step reserved for finer-grained tracking.
type MilestoneStatus string

const (
	MilestonePending    MilestoneStatus = "pending"
	MilestoneInProgress MilestoneStatus = "in_progress"
	MilestoneCompleted  MilestoneStatus = "completed"
	MilestoneApproved   MilestoneStatus = "approved"
)

// Milestone maps directly to the `milestones` table.
type Milestone struct {
	ID            uuid.UUID       `json:"id"`
	ProjectID     uuid.UUID       `json:"project_id"`
	ClientID      uuid.UUID       `json:"client_id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Amount        int64           `json:"amount"` // in cents
	DueDate       *time.Time      `json:"due_date,omitempty"`
	AttachmentURL *string         `json:"attachment_url,omitempty"`
	Status        MilestoneStatus `json:"status"`
	ReleasedAt    *time.Time      `json:"released_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// CreateMilestoneRequest is the DTO for incoming milestone creation requests.
type CreateMilestoneRequest struct {
	ProjectID     uuid.UUID  `json:"project_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Amount        int64      `json:"amount"` // in cents
	DueDate       *time.Time `json:"due_date,omitempty"`
	AttachmentKey *string    `json:"attachment_key,omitempty"`
}
