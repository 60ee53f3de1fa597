package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	pkgerrors "github.com/luanpereira/vitrine-backend/pkg/errors"
	"github.com/luanpereira/vitrine-backend/pkg/logger"
)

const (
	// EventTypeShipmentRequested is the message attribute consumers filter on.
	EventTypeShipmentRequested = "shipment.requested"

	schemaVersion = 1

	defaultPublishTimeout = 10 * time.Second
)

// ShipmentRequested is the versioned payload published when a payment is
// confirmed. Consumers create the shipment; this side only requests it.
type ShipmentRequested struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	OrderID       string    `json:"order_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// PublishResult is the awaited outcome of one publish.
type PublishResult interface {
	Get(ctx context.Context) (string, error)
}

// Publisher abstracts the Pub/Sub publisher handle so the trigger can be
// exercised without a live broker.
type Publisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) PublishResult
}

// NewGCPPublisher adapts a Pub/Sub v2 publisher to the Publisher seam.
func NewGCPPublisher(p *gcppubsub.Publisher) Publisher {
	if p == nil {
		return nil
	}
	return &gcpPublisher{publisher: p}
}

type gcpPublisher struct {
	publisher *gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) PublishResult {
	if p == nil || p.publisher == nil {
		return nil
	}
	return &gcpPublishResult{result: p.publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	result *gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.result == nil {
		return "", errors.New("publish result is nil")
	}
	return r.result.Get(ctx)
}

type ServiceParams struct {
	Publisher      Publisher
	Logger         *logger.Logger
	PublishTimeout time.Duration
}

// Service requests shipment creation for confirmed payments. It performs no
// dedup of its own: the reconciler only calls it when an order actually
// transitioned into processing.
type Service struct {
	publisher      Publisher
	logger         *logger.Logger
	publishTimeout time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Publisher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "publisher required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	timeout := params.PublishTimeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	return &Service{
		publisher:      params.Publisher,
		logger:         params.Logger,
		publishTimeout: timeout,
	}, nil
}

// OnPaymentConfirmed publishes one shipment request for the order. It is safe
// for the caller to retry on failure: nothing is recorded locally, and the
// consumer side dedups on (event_type, order_id).
func (s *Service) OnPaymentConfirmed(ctx context.Context, orderID uuid.UUID) error {
	event := ShipmentRequested{
		SchemaVersion: schemaVersion,
		EventType:     EventTypeShipmentRequested,
		OrderID:       orderID.String(),
		OccurredAt:    time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal shipment request")
	}

	msg := &gcppubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"event_type":  EventTypeShipmentRequested,
			"order_id":    event.OrderID,
			"occurred_at": event.OccurredAt.Format(time.RFC3339Nano),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()

	result := s.publisher.Publish(publishCtx, msg)
	if result == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "publisher returned no result")
	}
	if _, err := result.Get(publishCtx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish shipment request")
	}

	lctx := s.logger.WithOrderID(ctx, event.OrderID)
	s.logger.Info(lctx, "shipment requested")
	return nil
}
