/**
 * @description
 * This file defines the Project entity and its lifecycle states. A project is
 * created by a client, opened for bidding, assigned to exactly one freelancer
 * through bid acceptance, and driven to completion by milestone approvals.
 *
 * @notes
 * - Statuses and roles are typed string enums so transition tables can match
 *   exhaustively instead of comparing raw strings in handlers.
 * - Budget is stored as `int64` in the smallest currency unit (cents) to
 *   avoid floating-point inaccuracies with financial data.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the marketplace party performing a request.
type Role string

const (
	RoleClient     Role = "client"
	RoleFreelancer Role = "freelancer"
)

// ValidRole reports whether r is one of the marketplace roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleClient, RoleFreelancer:
		return true
	default:
		return false
	}
}

// ProjectStatus defines lifecycle states for a project.
type ProjectStatus string

const (
	ProjectDraft      ProjectStatus = "draft"
	ProjectOpen       ProjectStatus = "open"
	ProjectAssigned   ProjectStatus = "assigned"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectCancelled  ProjectStatus = "cancelled"
)

// Project maps directly to the `projects` table.
// AssignedFreelancerID is non-nil exactly when the status is one of
// assigned, in_progress, or completed.
type Project struct {
	ID                   uuid.UUID     `json:"id"`
	ClientID             uuid.UUID     `json:"client_id"`
	AssignedFreelancerID *uuid.UUID    `json:"assigned_freelancer_id,omitempty"`
	Title                string        `json:"title"`
	Description          string        `json:"description"`
	Status               ProjectStatus `json:"status"`
	Budget               int64         `json:"budget"` // in cents
	Deadline             *time.Time    `json:"deadline,omitempty"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

// CreateProjectRequest is the DTO for incoming project creation API requests.
type CreateProjectRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Budget      int64      `json:"budget"` // in cents
	Deadline    *time.Time `json:"deadline,omitempty"`
}

// UpdateProjectParams carries the client-editable project fields. Nil fields
// are left untouched.
type UpdateProjectParams struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Budget      *int64     `json:"budget,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
}
