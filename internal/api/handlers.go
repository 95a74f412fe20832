/**
 * @description
 * This file contains the HTTP handlers for project and bid endpoints. Handlers
 * are responsible for parsing incoming requests, calling the appropriate
 * methods on the application service, and writing the HTTP response. They act
 * as the bridge between the web layer and the business logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/workbridge/marketplace-service/internal/app"
	"github.com/workbridge/marketplace-service/internal/domain"
	"github.com/workbridge/marketplace-service/internal/store"
)

// MarketplaceHandlers holds the application service that handlers will use.
type MarketplaceHandlers struct {
	service *app.Service
}

// NewMarketplaceHandlers creates a new instance of MarketplaceHandlers.
func NewMarketplaceHandlers(service *app.Service) *MarketplaceHandlers {
	return &MarketplaceHandlers{service: service}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (h *MarketplaceHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *MarketplaceHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, errorResponse{Error: message})
}

func (h *MarketplaceHandlers) writeErrorCode(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, errorResponse{Error: message, Code: code})
}

// writeServiceError maps domain and store errors onto HTTP statuses. The
// ordering matters: missing resources before ownership, ownership before
// state conflicts.
func (h *MarketplaceHandlers) writeServiceError(w http.ResponseWriter, endpoint string, err error) {
	switch {
	case errors.Is(err, store.ErrProjectNotFound),
		errors.Is(err, store.ErrBidNotFound),
		errors.Is(err, store.ErrMilestoneNotFound),
		errors.Is(err, store.ErrInvoiceNotFound),
		errors.Is(err, store.ErrPaymentNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrNotProjectOwner),
		errors.Is(err, app.ErrNotBidOwner),
		errors.Is(err, app.ErrNotInvoiceOwner),
		errors.Is(err, app.ErrNotAssignedFreelancer),
		errors.Is(err, app.ErrSelfBid),
		errors.Is(err, app.ErrRoleNotAllowed):
		h.writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, store.ErrDuplicateBid),
		errors.Is(err, store.ErrDuplicateInvoiceNumber):
		h.writeErrorCode(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, store.ErrProjectNotOpen),
		errors.Is(err, store.ErrProjectStateConflict),
		errors.Is(err, store.ErrBidStateConflict),
		errors.Is(err, store.ErrMilestoneStateConflict),
		errors.Is(err, store.ErrInvoiceStateConflict),
		errors.Is(err, store.ErrProjectHasHistory):
		h.writeErrorCode(w, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, app.ErrValidation):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrRateLimited):
		h.writeError(w, http.StatusTooManyRequests, err.Error())
	default:
		log.Printf("level=error component=api endpoint=%s msg=\"unhandled service error\" err=%v", endpoint, err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// authCaller extracts and parses the authenticated caller's identity. A
// false return means the response has already been written.
func (h *MarketplaceHandlers) authCaller(w http.ResponseWriter, r *http.Request) (uuid.UUID, domain.Role, bool) {
	userIDStr, ok := GetAuthUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return uuid.Nil, "", false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		log.Printf("level=warn component=api outcome=reject reason=invalid_user_id user_id=%s", userIDStr)
		h.writeError(w, http.StatusBadRequest, "Invalid user ID format")
		return uuid.Nil, "", false
	}
	role, ok := GetAuthRole(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get role from context")
		return uuid.Nil, "", false
	}
	return userID, role, true
}

func (h *MarketplaceHandlers) pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s", param))
		return uuid.Nil, false
	}
	return id, true
}

// CreateProjectHandler handles requests to post a new project.
func (h *MarketplaceHandlers) CreateProjectHandler(w http.ResponseWriter, r *http.Request) {
	callerID, role, ok := h.authCaller(w, r)
	if !ok {
		return
	}

	var req domain.CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=create_project outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	project, err := h.service.CreateProject(r.Context(), callerID, role, req)
	if err != nil {
		h.writeServiceError(w, "create_project", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, project)
}

// GetProjectHandler handles requests to fetch a single project.
func (h *MarketplaceHandlers) GetProjectHandler(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.pathUUID(w, r, "projectID")
	if !ok {
		return
	}
	project, err := h.service.GetProject(r.Context(), projectID)
	if err != nil {
		h.writeServiceError(w, "get_project", err)
		return
	}
	h.writeJSON(w, http.StatusOK, project)
}

// ListProjectsHandler handles requests to list the caller's projects.
func (h *MarketplaceHandlers) ListProjectsHandler(w http.ResponseWriter, r *http.Request) {
	callerID, _, ok := h.authCaller(w, r)
	if !ok {
		return
	}
	projects, err := h.service.ListClientProjects(r.Context(), callerID)
	if err != nil {
		h.writeServiceError(w, "list_projects", err)
		return
	}
	h.writeJSON(w, http.StatusOK, projects)
}

// UpdateProjectHandler handles requests to edit a project.
func (h *MarketplaceHandlers) UpdateProjectHandler(w http.ResponseWriter, r *http.Request) {
	callerID, _, ok := h.authCaller(w, r)
	if !ok {
		return
	}
	projectID, ok := h.pathUUID(w, r, "projectID")
	if !ok {
		return
	}

	var params domain.UpdateProjectParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	project, err := h.service.UpdateProject(r.Context(), callerID, projectID, params)
	if err != nil {
		h.writeServiceError(w, "update_project", err)
		return
	}
	h.writeJSON(w, http.StatusOK, project)
}

// OpenProjectHandler handles requests to open a draft project for bidding.
func (h *MarketplaceHandlers) OpenProjectHandler(w http.ResponseWriter, r *http.Request) {
	callerID, _, ok := h.authCaller(w, r)
	if !ok {
		return
	}
	projectID, ok := h.pathUUID(w, r, "projectID")
	if !ok {
		return
	}
	project, err := h.service.OpenProject(r.Context(), callerID, projectID)
	if err != nil {
		h.writeServiceError(w, "open_project", err)
		return
	}
	h.writeJSON(w, http.StatusOK, project)
}

// CancelProjectHandler handles requests to cancel an unassigned project.
func (h *MarketplaceHandlers) CancelProjectHandler(w http.ResponseWriter, r *http.Request) {
	callerID, _, ok := h.authCaller(w, r)
	if !ok {
		return
	}
	projectID, ok := h.pathUUID(w, r, "projectID")
	if !ok {
		return
	}
	project, err := h.service.CancelProject(r.Context(), callerID, projectID)
	if err != nil {
		h.writeServiceError(w, "cancel_project", err)
		return
	}
	h.writeJSON(w, http.StatusOK, project)
}

// DeleteProjectHandler handles requests to delete a draft project.
func (h *MarketplaceHandlers) DeleteProjectHandler(w http.ResponseWriter, r *http.Request) {
	callerID, _, ok := h.authCaller(w, r)
	if !ok {
		return
	}
	projectID, ok := h.pathUUID(w, r, "projectID")
	if !ok {
		return
	}
	if err := h.service.DeleteProject(r.Context(), callerID, projectID); err != nil {
		h.writeServiceError(w, "delete_project", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitBidHandler handles requests to submit a bid on an open project.
func (h *MarketplaceHandlers) SubmitBidHandler(w http.ResponseWriter, r *http.Request) {
	callerID, role, ok := h.authCaller(w, r)
	if !ok {
		return
	}
	projectID, ok := h.pathUUID(w, r, "projectID")
	if !ok {
		return
	}

	var req domain.SubmitBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=submit_bid outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	bid, err := h.service.SubmitBid(r.Context(), callerID, role, projectID, req)
	if err != nil {
		h.writeServiceError(w, "submit_bid", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, bid)
}

// ListProjectBidsHandler handles requests to list the bids on a project.
func (h *MarketplaceHandlers) ListProjectBidsHandler(w http.ResponseWriter, r *http.Request) {
	callerID, _, ok := h.authCaller(w, r)
	if !ok {
		return
	}
	projectID, ok := h.pathUUID(w, r, "projectID")
	if !ok {
		return
	}
	bids, err := h.service.ListProjectBids(r.Context(), callerID, projectID)
	if err != nil {
		h.writeServiceError(w, "list_project_bids", err)
		return
	}
	h.writeJSON(w, http.StatusOK, bids)
}

// ListMyBidsHandler handles requests to list every bid the caller submitted.
func (h *MarketplaceHandlers) ListMyBidsHandler(w http.ResponseWriter, r *http.Request) {
	callerID, _, ok := h.authCaller(w, r)
	if !ok {
		return
	}
	bids, err := h.service.ListFreelancerBids(r.Context(), callerID)
	if err != nil {
		h.writeServiceError(w, "list_my_bids", err)
		return
	}
	h.writeJSON(w, http.StatusOK, bids)
}

// GetBidHandler handles requests to fetch a single bid.
func (h *MarketplaceHandlers) GetBidHandler(w http.ResponseWriter, r *http.Request) {
	callerID, _, ok := h.authCaller(w, r)
	if !ok {
		return
	}
	bidID, ok := h.pathUUID(w, r, "bidID")
	if !ok {
		return
	}
	bid, err := h.service.GetBid(r.Context(), callerID, bidID)
	if err != nil {
		h.writeServiceError(w, "get_bid", err)
		return
	}
	h.writeJSON(w, http.StatusOK, bid)
}

// UpdateBidHandler handles requests to edit a pending bid.
func (h *MarketplaceHandlers) UpdateBidHandler(w http.ResponseWriter, r *http.Request) {
	callerID, _, ok := h.authCaller(w, r)
	if !ok {
		return
	}
	bidID, ok := h.pathUUID(w, r, "bidID")
	if !ok {
		return
	}

	var params domain.UpdateBidParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	bid, err := h.service.UpdateBid(r.Context(), callerID, bidID, params)
	if err != nil {
		h.writeServiceError(w, "update_bid", err)
		return
	}
	h.writeJSON(w, http.StatusOK, bid)
}

// WithdrawBidHandler handles requests to withdraw a pending bid.
func (h *MarketplaceHandlers) WithdrawBidHandler(w http.ResponseWriter, r *http.Request) {
	callerID, _, ok := h.authCaller(w, r)
	if !ok {
		return
	}
	bidID, ok := h.pathUUID(w, r, "bidID")
	if !ok {
		return
	}
	if err := h.service.WithdrawBid(r.Context(), callerID, bidID); err != nil {
		h.writeServiceError(w, "withdraw_bid", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AcceptBidHandler handles requests to accept a bid, resolving the round.
func (h *MarketplaceHandlers) AcceptBidHandler(w http.ResponseWriter, r *http.Request) {
	callerID, _, ok := h.authCaller(w, r)
	if !ok {
		return
	}
	bidID, ok := h.pathUUID(w, r, "bidID")
	if !ok {
		return
	}

	result, err := h.service.AcceptBid(r.Context(), callerID, bidID)
	if err != nil {
		h.writeServiceError(w, "accept_bid", err)
		return
	}
	log.Printf("level=info component=api endpoint=accept_bid outcome=accepted bid_id=%s project_id=%s", result.Bid.ID, result.Project.ID)
	h.writeJSON(w, http.StatusOK, result)
}
