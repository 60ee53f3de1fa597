package mercadopagowebhook

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luanpereira/vitrine-backend/internal/orders"
	"github.com/luanpereira/vitrine-backend/internal/payments"
	"github.com/luanpereira/vitrine-backend/internal/settings"
	"github.com/luanpereira/vitrine-backend/pkg/config"
	"github.com/luanpereira/vitrine-backend/pkg/db/models"
	pkgerrors "github.com/luanpereira/vitrine-backend/pkg/errors"
	"github.com/luanpereira/vitrine-backend/pkg/logger"
	"github.com/luanpereira/vitrine-backend/pkg/mercadopago"
	"github.com/luanpereira/vitrine-backend/pkg/metrics"
)

// TopicPayment is the single canonical topic this reconciler acts on. Mercado
// Pago emits merchant_order events for the same transaction; processing both
// would double-trigger fulfillment, so everything else is acknowledged and
// ignored.
const TopicPayment = "payment"

const gatewayName = "mercadopago"

// PaymentFetcher is the authoritative-refetch slice of the gateway API.
type PaymentFetcher interface {
	GetPayment(ctx context.Context, accessToken, paymentID string) (*mercadopago.Payment, error)
}

// FulfillmentTrigger requests shipment creation for a confirmed order.
type FulfillmentTrigger interface {
	OnPaymentConfirmed(ctx context.Context, orderID uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	OrderRepo         orders.Repository
	PaymentRepo       payments.Repository
	SettingsRepo      settings.Repository
	Gateway           PaymentFetcher
	Fulfillment       FulfillmentTrigger
	TransactionRunner txRunner
	Logger            *logger.Logger
	Metrics           *metrics.ReconcilerMetrics
}

// Service reconciles inbound payment notifications against the gateway's own
// state and applies the resulting order transition idempotently.
type Service struct {
	orderRepo   orders.Repository
	paymentRepo payments.Repository
	settings    settings.Repository
	gateway     PaymentFetcher
	fulfillment FulfillmentTrigger
	txRunner    txRunner
	logger      *logger.Logger
	metrics     *metrics.ReconcilerMetrics
}

func NewService(params ServiceParams) (*Service, error) {
	if params.OrderRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order repo required")
	}
	if params.PaymentRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment repo required")
	}
	if params.SettingsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settings repo required")
	}
	if params.Gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "gateway client required")
	}
	if params.Fulfillment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment trigger required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		orderRepo:   params.OrderRepo,
		paymentRepo: params.PaymentRepo,
		settings:    params.SettingsRepo,
		gateway:     params.Gateway,
		fulfillment: params.Fulfillment,
		txRunner:    params.TransactionRunner,
		logger:      params.Logger,
		metrics:     params.Metrics,
	}, nil
}

// HandleNotification processes one webhook delivery. A nil return means the
// notification may be acknowledged; any error withholds the ack so the
// gateway redelivers. Fulfillment failures never surface here: once the
// order/payment transition committed, the ack must go out regardless.
func (s *Service) HandleNotification(ctx context.Context, topic, paymentID string) error {
	started := time.Now()
	result := "ignored"
	defer func() {
		s.metrics.ObserveDuration(result, time.Since(started))
	}()

	if !strings.EqualFold(strings.TrimSpace(topic), TopicPayment) {
		s.metrics.IncIgnored("topic")
		return nil
	}

	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		result = "invalid"
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id is required")
	}

	lctx := s.logger.WithTransactionID(s.logger.WithTopic(ctx, topic), paymentID)

	gateway, err := s.settings.ActiveGateway(ctx)
	if err != nil {
		result = "error"
		return err
	}

	// Authoritative refetch. The notification body is never trusted for
	// money-moving decisions, and a failure here withholds the ack so the
	// gateway's retry mechanism redelivers.
	payment, err := s.gateway.GetPayment(ctx, gateway.AccessToken, paymentID)
	if err != nil {
		result = "error"
		s.logger.Error(lctx, "authoritative payment fetch failed", err)
		return err
	}

	reference := strings.TrimSpace(payment.ExternalReference)
	if reference == "" {
		s.metrics.IncIgnored("no_external_reference")
		s.logger.Warn(lctx, "payment carries no external reference, acknowledging")
		return nil
	}

	// external_reference is untrusted input: it must parse and resolve to a
	// real order before anything is written.
	orderID, err := uuid.Parse(reference)
	if err != nil {
		s.metrics.IncIgnored("bad_external_reference")
		s.logger.Warn(s.logger.WithField(lctx, "external_reference", reference), "external reference is not an order id, acknowledging")
		return nil
	}

	lctx = s.logger.WithOrderID(lctx, orderID.String())

	if _, err := s.orderRepo.FindByID(ctx, orderID); err != nil {
		if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeNotFound {
			s.metrics.IncIgnored("unknown_order")
			s.logger.Warn(lctx, "order not found for external reference, acknowledging")
			return nil
		}
		result = "error"
		return err
	}

	currency := payment.CurrencyID
	if currency == "" {
		currency = config.DefaultCurrency
	}
	record := &models.PaymentRecord{
		OrderID:              orderID,
		Gateway:              gatewayName,
		GatewayTransactionID: paymentID,
		Amount:               payment.TransactionAmount,
		Currency:             currency,
		Status:               payment.Status,
		RawPayload:           payment.Raw,
	}

	var changed bool
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.paymentRepo.WithTx(tx).UpsertByGatewayTransaction(ctx, record); err != nil {
			return err
		}

		txOrders := s.orderRepo.WithTx(tx)
		var applyErr error
		switch normalizeStatus(payment.Status) {
		case "approved":
			changed, applyErr = txOrders.MarkPaidProcessing(ctx, orderID)
		case "rejected", "cancelled":
			changed, applyErr = txOrders.MarkFailedCancelled(ctx, orderID)
		default:
			// in_process, pending, refunded, anything unknown: keep the
			// order pending and record the latest gateway vocabulary.
			changed, applyErr = txOrders.MarkPaymentPending(ctx, orderID)
		}
		return applyErr
	})
	if err != nil {
		// State would silently diverge from the gateway if this were
		// acknowledged.
		result = "error"
		s.logger.Error(lctx, "reconciliation write failed", err)
		return err
	}

	result = "processed"
	s.metrics.IncProcessed(normalizeStatus(payment.Status))

	// Saga boundary: the payment transition is committed, so the ack goes
	// out even if the shipment request fails. The trigger fires only when
	// this notification actually moved the order into processing; replays
	// and second approved transactions find changed=false.
	if normalizeStatus(payment.Status) == "approved" && changed {
		if err := s.fulfillment.OnPaymentConfirmed(ctx, orderID); err != nil {
			s.metrics.IncFulfillmentError()
			s.logger.Error(lctx, "fulfillment trigger failed, payment state kept", err)
		}
	}

	return nil
}

func normalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}
