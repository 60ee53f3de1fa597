package freight

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luanpereira/vitrine-backend/internal/settings"
	"github.com/luanpereira/vitrine-backend/pkg/config"
	pkgerrors "github.com/luanpereira/vitrine-backend/pkg/errors"
	"github.com/luanpereira/vitrine-backend/pkg/logger"
	"github.com/luanpereira/vitrine-backend/pkg/melhorenvio"
)

// allowedServices is the carrier/service pairs shown to customers. Matching
// is a case-insensitive contains on both names; the list is business policy
// and changes only when commercial terms do.
var allowedServices = []struct {
	carrier string
	service string
}{
	{"correios", "sedex"},
	{"correios", "pac"},
	{"jadlog", ".package"},
	{"jadlog", ".com"},
}

// AggregatorClient is the slice of the Melhor Envio API the freight service uses.
type AggregatorClient interface {
	Calculate(ctx context.Context, accessToken string, sandbox bool, req melhorenvio.CalculateRequest) ([]melhorenvio.ServiceQuote, error)
}

type ServiceParams struct {
	SettingsRepo settings.Repository
	Aggregator   AggregatorClient
	Logger       *logger.Logger
}

// Service turns raw aggregator responses into the storefront's quote list.
type Service struct {
	settingsRepo settings.Repository
	aggregator   AggregatorClient
	logger       *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.SettingsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settings repo required")
	}
	if params.Aggregator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "aggregator client required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		settingsRepo: params.SettingsRepo,
		aggregator:   params.Aggregator,
		logger:       params.Logger,
	}, nil
}

// Quote fetches carrier options for a destination and normalizes them:
// entries outside the allow-list or flagged as unavailable by the carrier are
// dropped, prices are reconciled to a single final value, and the result is
// sorted by final price ascending. Equal-priced options keep the aggregator's
// relative order. The returned slice is built fresh per call and is safe to
// iterate any number of times.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) ([]Quote, error) {
	destination, err := NormalizeCEP(req.DestinationCEP)
	if err != nil {
		return nil, err
	}
	if len(req.Products) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one product is required")
	}

	provider, err := s.settingsRepo.ActiveShippingProvider(ctx)
	if err != nil {
		return nil, err
	}

	origin, err := NormalizeCEP(provider.OriginPostalCode)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, "shipping provider origin postal code is invalid")
	}

	products := make([]melhorenvio.Product, 0, len(req.Products))
	for _, parcel := range req.Products {
		quantity := parcel.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		products = append(products, melhorenvio.Product{
			// The aggregator requires an id per entry; it only needs to be
			// unique within one call.
			ID:             uuid.NewString(),
			Width:          parcel.Width,
			Height:         parcel.Height,
			Length:         parcel.Length,
			Weight:         parcel.Weight,
			InsuranceValue: parcel.InsuranceValue,
			Quantity:       quantity,
		})
	}

	raw, err := s.aggregator.Calculate(ctx, provider.APIToken, provider.IsSandbox, melhorenvio.CalculateRequest{
		From:     melhorenvio.Endpoint{PostalCode: origin},
		To:       melhorenvio.Endpoint{PostalCode: destination},
		Products: products,
	})
	if err != nil {
		return nil, err
	}

	quotes := make([]Quote, 0, len(raw))
	for _, entry := range raw {
		if entry.Error != "" {
			continue
		}
		if !isAllowed(entry.Company.Name, entry.Name) {
			continue
		}

		price := parseAmount(entry.Price)
		discount := parseAmount(entry.Discount)
		quotes = append(quotes, Quote{
			Carrier:      entry.Company.Name,
			Service:      entry.Name,
			Price:        price,
			Discount:     discount,
			FinalPrice:   finalPrice(price, discount, entry.CustomPrice),
			Currency:     config.DefaultCurrency,
			DeliveryDays: deliveryDays(entry),
		})
	}

	sort.SliceStable(quotes, func(i, j int) bool {
		return quotes[i].FinalPrice.LessThan(quotes[j].FinalPrice)
	})

	return quotes, nil
}

// deliveryDays picks the estimate shown to customers: the carrier's
// delivery_time when it is set, otherwise the top of the delivery_range
// window, otherwise zero.
func deliveryDays(entry melhorenvio.ServiceQuote) int {
	if entry.DeliveryTime > 0 {
		return int(entry.DeliveryTime)
	}
	if entry.DeliveryRange.Max > 0 {
		return entry.DeliveryRange.Max
	}
	return 0
}

func isAllowed(company, service string) bool {
	companyLower := strings.ToLower(company)
	serviceLower := strings.ToLower(service)
	for _, allowed := range allowedServices {
		if strings.Contains(companyLower, allowed.carrier) && strings.Contains(serviceLower, allowed.service) {
			return true
		}
	}
	return false
}

// NormalizeCEP strips formatting from a Brazilian postal code and validates
// it is exactly eight digits.
func NormalizeCEP(cep string) (string, error) {
	var digits strings.Builder
	for _, r := range cep {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	normalized := digits.String()
	if len(normalized) != 8 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "postal code must have exactly 8 digits")
	}
	return normalized, nil
}

// finalPrice reconciles the aggregator's money fields. A negotiated custom
// price wins when present; otherwise list price minus discount. Malformed
// numbers parse as zero rather than dropping the option, and the result never
// goes negative.
func finalPrice(price, discount decimal.Decimal, customPrice string) decimal.Decimal {
	if custom := parseAmount(customPrice); !custom.IsZero() {
		return custom
	}
	final := price.Sub(discount)
	if final.IsNegative() {
		return decimal.Zero
	}
	return final
}

func parseAmount(value string) decimal.Decimal {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero
	}
	return amount
}
