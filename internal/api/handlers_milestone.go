/**
 * @description
 * HTTP handlers for milestone endpoints: creation, listing, completion by
 * the assigned freelancer, and payment release by the client.
 */

package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/workbridge/marketplace-service/internal/domain"
)

// CreateMilestoneHandler handles requests to create a milestone on an
// assigned project.
func (h *MarketplaceHandlers) CreateMilestoneHandler(w http.ResponseWriter, r *http.Request) {
	callerID, _, ok := h.authCaller(w, r)
	if !ok {
		return
	}

	var req domain.CreateMilestoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=create_milestone outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	milestone, err := h.service.CreateMilestone(r.Context(), callerID, req)
	if err != nil {
		h.writeServiceError(w, "create_milestone", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, milestone)
}

// GetMilestoneHandler handles requests to fetch a single milestone.
func (h *MarketplaceHandlers) GetMilestoneHandler(w http.ResponseWriter, r *http.Request) {
	milestoneID, ok := h.pathUUID(w, r, "milestoneID")
	if !ok {
		return
	}
	milestone, err := h.service.GetMilestone(r.Context(), milestoneID)
	if err != nil {
		h.writeServiceError(w, "get_milestone", err)
		return
	}
	h.writeJSON(w, http.StatusOK, milestone)
}

// ListProjectMilestonesHandler handles requests to list a project's milestones.
func (h *MarketplaceHandlers) ListProjectMilestonesHandler(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.pathUUID(w, r, "projectID")
	if !ok {
		return
	}
	milestones, err := h.service.ListProjectMilestones(r.Context(), projectID)
	if err != nil {
		h.writeServiceError(w, "list_project_milestones", err)
		return
	}
	h.writeJSON(w, http.StatusOK, milestones)
}

// CompleteMilestoneHandler handles the assigned freelancer flagging a
// milestone as delivered.
func (h *MarketplaceHandlers) CompleteMilestoneHandler(w http.ResponseWriter, r *http.Request) {
	callerID, role, ok := h.authCaller(w, r)
	if !ok {
		return
	}
	milestoneID, ok := h.pathUUID(w, r, "milestoneID")
	if !ok {
		return
	}

	milestone, err := h.service.MarkMilestoneComplete(r.Context(), callerID, role, milestoneID)
	if err != nil {
		h.writeServiceError(w, "complete_milestone", err)
		return
	}
	h.writeJSON(w, http.StatusOK, milestone)
}

// ReleaseMilestonePaymentHandler handles the client approving a completed
// milestone and releasing its payment.
func (h *MarketplaceHandlers) ReleaseMilestonePaymentHandler(w http.ResponseWriter, r *http.Request) {
	callerID, _, ok := h.authCaller(w, r)
	if !ok {
		return
	}
	milestoneID, ok := h.pathUUID(w, r, "milestoneID")
	if !ok {
		return
	}

	milestone, err := h.service.ReleaseMilestonePayment(r.Context(), callerID, milestoneID)
	if err != nil {
		h.writeServiceError(w, "release_milestone_payment", err)
		return
	}
	log.Printf("level=info component=api endpoint=release_milestone_payment outcome=released milestone_id=%s", milestone.ID)
	h.writeJSON(w, http.StatusOK, milestone)
}

// DeleteMilestoneHandler handles requests to remove a pending milestone.
func (h *MarketplaceHandlers) DeleteMilestoneHandler(w http.ResponseWriter, r *http.Request) {
	callerID, _, ok := h.authCaller(w, r)
	if !ok {
		return
	}
	milestoneID, ok := h.pathUUID(w, r, "milestoneID")
	if !ok {
		return
	}
	if err := h.service.DeleteMilestone(r.Context(), callerID, milestoneID); err != nil {
		h.writeServiceError(w, "delete_milestone", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
