/**
 * @description
 * HTTP handlers for invoice and payment endpoints: raising invoices against
 * approved milestones, sending and cancelling them, settlement by the
 * client, and looking up the recorded payment.
 */

package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/workbridge/marketplace-service/internal/domain"
)

// CreateInvoiceHandler handles requests to raise an invoice against an
// approved milestone.
func (h *MarketplaceHandlers) CreateInvoiceHandler(w http.ResponseWriter, r *http.Request) {
	callerID, role, ok := h.authCaller(w, r)
	if !ok {
		return
	}

	var req domain.CreateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=create_invoice outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	invoice, err := h.service.CreateInvoice(r.Context(), callerID, role, req)
	if err != nil {
		h.writeServiceError(w, "create_invoice", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, invoice)
}

// GetInvoiceHandler handles requests to fetch a single invoice.
func (h *MarketplaceHandlers) GetInvoiceHandler(w http.ResponseWriter, r *http.Request) {
	invoiceID, ok := h.pathUUID(w, r, "invoiceID")
	if !ok {
		return
	}
	invoice, err := h.service.GetInvoice(r.Context(), invoiceID)
	if err != nil {
		h.writeServiceError(w, "get_invoice", err)
		return
	}
	h.writeJSON(w, http.StatusOK, invoice)
}

// ListProjectInvoicesHandler handles requests to list a project's invoices.
func (h *MarketplaceHandlers) ListProjectInvoicesHandler(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.pathUUID(w, r, "projectID")
	if !ok {
		return
	}
	invoices, err := h.service.ListProjectInvoices(r.Context(), projectID)
	if err != nil {
		h.writeServiceError(w, "list_project_invoices", err)
		return
	}
	h.writeJSON(w, http.StatusOK, invoices)
}

// ListMyInvoicesHandler handles requests to list every invoice the caller raised.
func (h *MarketplaceHandlers) ListMyInvoicesHandler(w http.ResponseWriter, r *http.Request) {
	callerID, _, ok := h.authCaller(w, r)
	if !ok {
		return
	}
	invoices, err := h.service.ListFreelancerInvoices(r.Context(), callerID)
	if err != nil {
		h.writeServiceError(w, "list_my_invoices", err)
		return
	}
	h.writeJSON(w, http.StatusOK, invoices)
}

// UpdateInvoiceHandler handles requests to edit a draft invoice.
func (h *MarketplaceHandlers) UpdateInvoiceHandler(w http.ResponseWriter, r *http.Request) {
	callerID, _, ok := h.authCaller(w, r)
	if !ok {
		return
	}
	invoiceID, ok := h.pathUUID(w, r, "invoiceID")
	if !ok {
		return
	}

	var params domain.UpdateInvoiceParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	invoice, err := h.service.UpdateInvoice(r.Context(), callerID, invoiceID, params)
	if err != nil {
		h.writeServiceError(w, "update_invoice", err)
		return
	}
	h.writeJSON(w, http.StatusOK, invoice)
}

// SendInvoiceHandler handles requests to move a draft invoice to sent.
func (h *MarketplaceHandlers) SendInvoiceHandler(w http.ResponseWriter, r *http.Request) {
	callerID, _, ok := h.authCaller(w, r)
	if !ok {
		return
	}
	invoiceID, ok := h.pathUUID(w, r, "invoiceID")
	if !ok {
		return
	}
	invoice, err := h.service.SendInvoice(r.Context(), callerID, invoiceID)
	if err != nil {
		h.writeServiceError(w, "send_invoice", err)
		return
	}
	h.writeJSON(w, http.StatusOK, invoice)
}

// CancelInvoiceHandler handles requests to cancel an unpaid invoice.
func (h *MarketplaceHandlers) CancelInvoiceHandler(w http.ResponseWriter, r *http.Request) {
	callerID, _, ok := h.authCaller(w, r)
	if !ok {
		return
	}
	invoiceID, ok := h.pathUUID(w, r, "invoiceID")
	if !ok {
		return
	}
	invoice, err := h.service.CancelInvoice(r.Context(), callerID, invoiceID)
	if err != nil {
		h.writeServiceError(w, "cancel_invoice", err)
		return
	}
	h.writeJSON(w, http.StatusOK, invoice)
}

// PayInvoiceHandler handles the client settling an invoice.
func (h *MarketplaceHandlers) PayInvoiceHandler(w http.ResponseWriter, r *http.Request) {
	callerID, _, ok := h.authCaller(w, r)
	if !ok {
		return
	}
	invoiceID, ok := h.pathUUID(w, r, "invoiceID")
	if !ok {
		return
	}

	result, err := h.service.PayInvoice(r.Context(), callerID, invoiceID)
	if err != nil {
		h.writeServiceError(w, "pay_invoice", err)
		return
	}
	log.Printf("level=info component=api endpoint=pay_invoice outcome=paid invoice_id=%s payment_id=%s", result.Invoice.ID, result.Payment.ID)
	h.writeJSON(w, http.StatusOK, result)
}

// GetInvoicePaymentHandler handles requests to fetch the settlement record
// of a paid invoice.
func (h *MarketplaceHandlers) GetInvoicePaymentHandler(w http.ResponseWriter, r *http.Request) {
	invoiceID, ok := h.pathUUID(w, r, "invoiceID")
	if !ok {
		return
	}
	payment, err := h.service.GetInvoicePayment(r.Context(), invoiceID)
	if err != nil {
		h.writeServiceError(w, "get_invoice_payment", err)
		return
	}
	h.writeJSON(w, http.StatusOK, payment)
}

// DeleteInvoiceHandler handles requests to remove a draft invoice.
func (h *MarketplaceHandlers) DeleteInvoiceHandler(w http.ResponseWriter, r *http.Request) {
	callerID, _, ok := h.authCaller(w, r)
	if !ok {
		return
	}
	invoiceID, ok := h.pathUUID(w, r, "invoiceID")
	if !ok {
		return
	}
	if err := h.service.DeleteInvoice(r.Context(), callerID, invoiceID); err != nil {
		h.writeServiceError(w, "delete_invoice", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
