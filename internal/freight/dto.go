package freight

import "github.com/shopspring/decimal"

// Parcel is one product entry in a quote request. Dimensions are in
// centimeters, weight in kilograms, insurance value in BRL.
type Parcel struct {
	Width          float64 `json:"width" validate:"gt=0"`
	Height         float64 `json:"height" validate:"gt=0"`
	Length         float64 `json:"length" validate:"gt=0"`
	Weight         float64 `json:"weight" validate:"gt=0"`
	InsuranceValue float64 `json:"insurance_value" validate:"gte=0"`
	Quantity       int     `json:"quantity" validate:"gte=0"`
}

// QuoteRequest is a freight calculation for a set of parcels.
type QuoteRequest struct {
	DestinationCEP string   `json:"to_postal_code" validate:"required"`
	Products       []Parcel `json:"products" validate:"required,min=1,dive"`
}

// Quote is one normalized carrier option offered to the storefront. Final
// price already reconciles list price, discount and any negotiated rate.
type Quote struct {
	Carrier      string          `json:"carrier"`
	Service      string          `json:"service"`
	Price        decimal.Decimal `json:"price"`
	Discount     decimal.Decimal `json:"discount"`
	FinalPrice   decimal.Decimal `json:"final_price"`
	Currency     string          `json:"currency"`
	DeliveryDays int             `json:"delivery_days"`
}
