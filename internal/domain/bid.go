/**
 * @description
 * This file defines the Bid entity. A freelancer submits at most one bid per
 * open project; the project's client resolves the bidding round by accepting
 * exactly one bid, which rejects every pending sibling in the same commit.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// BidStatus defines lifecycle states for a bid. A bid leaves `pending`
// exactly once; accepted, rejected, and withdrawn are terminal.
type BidStatus string

const (
	BidPending   BidStatus = "pending"
	BidAccepted  BidStatus = "accepted"
	BidRejected  BidStatus = "rejected"
	BidWithdrawn BidStatus = "withdrawn"
)

// Bid maps directly to the `bids` table. (project_id, freelancer_id) is
// unique among non-withdrawn rows.
type Bid struct {
	ID            uuid.UUID `json:"id"`
	ProjectID     uuid.UUID `json:"project_id"`
	FreelancerID  uuid.UUID `json:"freelancer_id"`
	Amount        int64     `json:"amount"` // in cents
	EstimatedDays int       `json:"estimated_days"`
	Proposal      string    `json:"proposal"`
	Status        BidStatus `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SubmitBidRequest is the DTO for incoming bid submission API requests.
type SubmitBidRequest struct {
	Amount        int64  `json:"amount"` // in cents
	EstimatedDays int    `json:"estimated_days"`
	Proposal      string `json:"proposal"`
}

// UpdateBidParams carries the owner-editable fields of a pending bid. Nil
// fields are left untouched.
type UpdateBidParams struct {
	Amount        *int64  `json:"amount,omitempty"`
	EstimatedDays *int    `json:"estimated_days,omitempty"`
	Proposal      *string `json:"proposal,omitempty"`
}

// AcceptBidResult is returned after a successful acceptance so the API can
// respond with the updated bid and project in one payload.
type AcceptBidResult struct {
	Bid     *Bid     `json:"bid"`
	Project *Project `json:"project"`
}
