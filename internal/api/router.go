/**
 * @description
 * This file sets up the HTTP router for the marketplace-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies any
 * necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS middleware for browser clients.
 */

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MarketplaceRoutes creates and returns a new router for the marketplace service.
func MarketplaceRoutes(h *MarketplaceHandlers, jwksURL string, allowedOrigins string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(allowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Prometheus metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Group routes that require authentication.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwksURL))

		// Project endpoints
		r.Post("/projects", h.CreateProjectHandler)
		r.Get("/projects", h.ListProjectsHandler)
		r.Get("/projects/{projectID}", h.GetProjectHandler)
		r.Patch("/projects/{projectID}", h.UpdateProjectHandler)
		r.Delete("/projects/{projectID}", h.DeleteProjectHandler)
		r.Post("/projects/{projectID}/open", h.OpenProjectHandler)
		r.Post("/projects/{projectID}/cancel", h.CancelProjectHandler)

		// Bid endpoints
		r.Post("/projects/{projectID}/bids", h.SubmitBidHandler)
		r.Get("/projects/{projectID}/bids", h.ListProjectBidsHandler)
		r.Get("/bids", h.ListMyBidsHandler)
		r.Get("/bids/{bidID}", h.GetBidHandler)
		r.Patch("/bids/{bidID}", h.UpdateBidHandler)
		r.Delete("/bids/{bidID}", h.WithdrawBidHandler)
		r.Post("/bids/{bidID}/accept", h.AcceptBidHandler)

		// Milestone endpoints
		r.Post("/milestones", h.CreateMilestoneHandler)
		r.Get("/milestones/{milestoneID}", h.GetMilestoneHandler)
		r.Delete("/milestones/{milestoneID}", h.DeleteMilestoneHandler)
		r.Get("/projects/{projectID}/milestones", h.ListProjectMilestonesHandler)
		r.Post("/milestones/{milestoneID}/complete", h.CompleteMilestoneHandler)
		r.Post("/milestones/{milestoneID}/release-payment", h.ReleaseMilestonePaymentHandler)

		// Invoice and payment endpoints
		r.Post("/invoices", h.CreateInvoiceHandler)
		r.Get("/invoices", h.ListMyInvoicesHandler)
		r.Get("/invoices/{invoiceID}", h.GetInvoiceHandler)
		r.Patch("/invoices/{invoiceID}", h.UpdateInvoiceHandler)
		r.Delete("/invoices/{invoiceID}", h.DeleteInvoiceHandler)
		r.Post("/invoices/{invoiceID}/send", h.SendInvoiceHandler)
		r.Post("/invoices/{invoiceID}/cancel", h.CancelInvoiceHandler)
		r.Post("/invoices/{invoiceID}/pay", h.PayInvoiceHandler)
		r.Get("/invoices/{invoiceID}/payment", h.GetInvoicePaymentHandler)
		r.Get("/projects/{projectID}/invoices", h.ListProjectInvoicesHandler)
	})

	return r
}
