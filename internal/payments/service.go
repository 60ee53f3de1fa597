package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/luanpereira/vitrine-backend/internal/orders"
	"github.com/luanpereira/vitrine-backend/internal/settings"
	"github.com/luanpereira/vitrine-backend/pkg/config"
	"github.com/luanpereira/vitrine-backend/pkg/db"
	"github.com/luanpereira/vitrine-backend/pkg/db/models"
	"github.com/luanpereira/vitrine-backend/pkg/enums"
	pkgerrors "github.com/luanpereira/vitrine-backend/pkg/errors"
	"github.com/luanpereira/vitrine-backend/pkg/logger"
	"github.com/luanpereira/vitrine-backend/pkg/mercadopago"
	"github.com/luanpereira/vitrine-backend/pkg/metrics"
)

const gatewayName = "mercadopago"

type ServiceParams struct {
	OrderRepo       orders.Repository
	PaymentRepo     Repository
	SettingsRepo    settings.Repository
	Gateway         GatewayClient
	Logger          *logger.Logger
	Metrics         *metrics.ReconcilerMetrics
	NotificationURL string
}

// Service creates checkout intents against the active gateway.
type Service struct {
	orderRepo       orders.Repository
	paymentRepo     Repository
	settingsRepo    settings.Repository
	gateway         GatewayClient
	logger          *logger.Logger
	metrics         *metrics.ReconcilerMetrics
	notificationURL string
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
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		orderRepo:       params.OrderRepo,
		paymentRepo:     params.PaymentRepo,
		settingsRepo:    params.SettingsRepo,
		gateway:         params.Gateway,
		logger:          params.Logger,
		metrics:         params.Metrics,
		notificationURL: params.NotificationURL,
	}, nil
}

// CreateIntent registers a checkout preference at the gateway for the given
// order. The order id travels as the external reference unless the input
// overrides it; that is the only correlation the webhook reconciler gets back.
func (s *Service) CreateIntent(ctx context.Context, input CreateIntentInput) (*IntentResult, error) {
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}

	order, err := s.orderRepo.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
	}

	gateway, err := s.settingsRepo.ActiveGateway(ctx)
	if err != nil {
		return nil, err
	}

	currency := order.Currency
	if currency == "" {
		currency = config.DefaultCurrency
	}

	externalReference := strings.TrimSpace(input.ExternalReference)
	if externalReference == "" {
		externalReference = order.ID.String()
	}

	req := mercadopago.PreferenceRequest{
		ExternalReference: externalReference,
		NotificationURL:   s.notificationURL,
		BackURLs:          input.BackURLs,
		Items:             buildItems(input, order.ID, currency),
	}

	pref, err := s.gateway.CreatePreference(ctx, gateway.AccessToken, req)
	if err != nil {
		var apiErr *mercadopago.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode >= http.StatusBadRequest && apiErr.StatusCode < http.StatusInternalServerError {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "gateway rejected the payment intent").
				WithDetails(map[string]any{"gateway_status": apiErr.StatusCode})
		}
		return nil, err
	}

	// The gateway already accepted the intent; a local persistence failure
	// must not make the storefront retry and double-charge. Log the gap and
	// hand back the checkout URL anyway.
	record := &models.PaymentRecord{
		OrderID:              order.ID,
		Gateway:              gatewayName,
		GatewayTransactionID: pref.ID,
		Amount:               input.Amount,
		Currency:             currency,
		Status:               "pending",
	}
	if err := s.paymentRepo.Create(ctx, record); err != nil {
		if db.IsUniqueViolation(err, "") {
			// A record for this preference already exists, so nothing was
			// actually lost. Happens when the storefront resubmits past the
			// idempotency window.
			lctx := s.logger.WithOrderID(ctx, order.ID.String())
			lctx = s.logger.WithField(lctx, "preference_id", pref.ID)
			s.logger.Warn(lctx, "payment record already exists for preference")
		} else {
			lctx := s.logger.WithOrderID(ctx, order.ID.String())
			lctx = s.logger.WithField(lctx, "event", "payment.reconciliation_gap")
			lctx = s.logger.WithField(lctx, "preference_id", pref.ID)
			s.logger.Error(lctx, "intent accepted by gateway but local record failed", err)
			s.metrics.IncReconciliationGap()
		}
	}

	checkoutURL := pref.InitPoint
	if gateway.IsSandbox && pref.SandboxInitPoint != "" {
		checkoutURL = pref.SandboxInitPoint
	}

	return &IntentResult{
		PreferenceID:      pref.ID,
		CheckoutURL:       checkoutURL,
		ExternalReference: pref.ExternalReference,
	}, nil
}

func buildItems(input CreateIntentInput, orderID uuid.UUID, currency string) []mercadopago.PreferenceItem {
	if len(input.Items) == 0 {
		return []mercadopago.PreferenceItem{{
			Title:      fmt.Sprintf("Pedido %s", orderID),
			Quantity:   1,
			UnitPrice:  input.Amount,
			CurrencyID: currency,
		}}
	}

	items := make([]mercadopago.PreferenceItem, 0, len(input.Items))
	for _, item := range input.Items {
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		itemCurrency := item.CurrencyID
		if itemCurrency == "" {
			itemCurrency = currency
		}
		items = append(items, mercadopago.PreferenceItem{
			Title:      item.Title,
			Quantity:   quantity,
			UnitPrice:  item.UnitPrice,
			CurrencyID: itemCurrency,
		})
	}
	return items
}
