package payments

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luanpereira/vitrine-backend/pkg/mercadopago"
)

// IntentItem is one checkout line. Blank currency falls back to the order's.
type IntentItem struct {
	Title      string          `json:"title" validate:"required"`
	Quantity   int             `json:"quantity" validate:"gte=0"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	CurrencyID string          `json:"currency_id,omitempty"`
}

// CreateIntentInput is a checkout intent for an existing order. When Items is
// empty a single line covering Amount is sent. ExternalReference overrides the
// order id as the correlation key; leave it blank unless a migration demands
// otherwise, the reconciler resolves orders through it.
type CreateIntentInput struct {
	OrderID           uuid.UUID             `json:"order_id" validate:"required,uuid4"`
	Amount            decimal.Decimal       `json:"amount" validate:"required"`
	Items             []IntentItem          `json:"items,omitempty" validate:"omitempty,dive"`
	BackURLs          *mercadopago.BackURLs `json:"back_urls,omitempty"`
	ExternalReference string                `json:"external_reference,omitempty"`
}

// IntentResult is what the storefront needs to send the customer to checkout.
type IntentResult struct {
	PreferenceID      string `json:"preference_id"`
	CheckoutURL       string `json:"checkout_url"`
	ExternalReference string `json:"external_reference"`
}
