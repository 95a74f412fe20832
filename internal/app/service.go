/**
 * @description
 * This file contains the core business logic for the marketplace-service. The
 * `Service` struct orchestrates the engagement lifecycle, coordinating
 * between the database repository, the blob store client, and the message
 * broker.
 *
 * Key features:
 * - Implements the main use cases: project posting, bidding, bid acceptance,
 *   milestone completion and payment release, invoicing and settlement.
 * - Enforces role and ownership checks before any state transition.
 * - Publishes events to RabbitMQ for asynchronous processing by other services.
 *
 * @dependencies
 * - context, errors, log, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID generation.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/blobclient, pkg/rabbitmq: For external service communication.
 */

package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/workbridge/marketplace-service/internal/store"
	"github.com/workbridge/marketplace-service/pkg/blobclient"
	"github.com/workbridge/marketplace-service/pkg/metrics"
	"github.com/workbridge/marketplace-service/pkg/rabbitmq"
)

var (
	ErrNotProjectOwner       = errors.New("caller does not own this project")
	ErrNotBidOwner           = errors.New("caller does not own this bid")
	ErrNotInvoiceOwner       = errors.New("caller did not raise this invoice")
	ErrNotAssignedFreelancer = errors.New("caller is not the assigned freelancer")
	ErrSelfBid               = errors.New("clients cannot bid on their own projects")
	ErrRoleNotAllowed        = errors.New("caller role is not allowed to perform this action")
	ErrValidation            = errors.New("validation failed")
	ErrRateLimited           = errors.New("too many bid submissions")
)

// RateLimiter is the contract for the distributed bid-submission limiter.
// A nil limiter disables limiting entirely.
type RateLimiter interface {
	ConsumeBidSubmission(ctx context.Context, freelancerID string) (allowed bool, retryAfterSeconds int, err error)
}

// Service provides the core business logic for the engagement lifecycle.
type Service struct {
	repo           store.Repository
	blobClient     *blobclient.Client
	eventProducer  rabbitmq.Publisher
	rateLimiter    RateLimiter
	platformFeeBps int64
	now            func() time.Time
}

// NewService creates a new marketplace service instance.
func NewService(repo store.Repository, blob *blobclient.Client, producer rabbitmq.Publisher, limiter RateLimiter, platformFeeBps int64) *Service {
	return &Service{
		repo:           repo,
		blobClient:     blob,
		eventProducer:  producer,
		rateLimiter:    limiter,
		platformFeeBps: platformFeeBps,
		now:            time.Now,
	}
}

// publishEvent publishes the payload under the routing key. Publishing is
// best effort: a broker outage must not fail the state change that already
// committed.
func (s *Service) publishEvent(routingKey string, payload any) {
	if s.eventProducer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.eventProducer.Publish(ctx, rabbitmq.MarketplaceEventsExchange, routingKey, payload); err != nil {
		log.Printf("level=warn component=service msg=\"failed to publish event\" routing_key=%s error=%v", routingKey, err)
		return
	}
	metrics.EventsPublished.WithLabelValues(routingKey).Inc()
}

func validationError(msg string) error {
	return &ValidationError{Msg: msg}
}

// ValidationError carries a request-level validation failure message. It
// unwraps to ErrValidation so handlers can map the whole class at once.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Unwrap() error { return ErrValidation }
