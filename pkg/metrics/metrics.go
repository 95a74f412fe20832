package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProjectsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_projects_created_total",
			Help: "Total number of projects created",
		},
	)

	BidsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_bids_submitted_total",
			Help: "Total number of bids submitted",
		},
	)

	BidsAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_bids_accepted_total",
			Help: "Total number of bids accepted",
		},
	)

	MilestonesReleased = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_milestones_released_total",
			Help: "Total number of milestone payments released",
		},
	)

	InvoicesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_invoices_created_total",
			Help: "Total number of invoices created",
		},
	)

	InvoicesPaid = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_invoices_paid_total",
			Help: "Total number of invoices settled",
		},
	)

	// PaymentVolume tracks settled amounts in minor currency units.
	PaymentVolume = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_payment_volume_cents_total",
			Help: "Total settled payment volume in cents",
		},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_events_published_total",
			Help: "Total number of events published to the broker",
		},
		[]string{"routing_key"},
	)

	StrayBidsSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_stray_bids_swept_total",
			Help: "Total number of stray pending bids rejected by the sweep job",
		},
	)

	InvoicesOverdue = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_invoices_overdue_total",
			Help: "Total number of invoices flagged overdue by the sweep job",
		},
	)
)
