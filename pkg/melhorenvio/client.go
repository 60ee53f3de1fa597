package melhorenvio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/luanpereira/vitrine-backend/pkg/errors"
)

const (
	defaultBaseURL        = "https://melhorenvio.com.br"
	defaultSandboxBaseURL = "https://sandbox.melhorenvio.com.br"

	calculatePath = "/api/v2/me/shipment/calculate"

	responseBodyReadLimit int64 = 4096
)

var errTokenRequired = errors.New("melhorenvio access token is required")

// Client wraps the shipment calculate API. Tokens are per-call: the active
// shipping provider row supplies them and may be rotated at any time.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	sandboxBaseURL string
	userAgent      string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides both production and sandbox hosts. Intended for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
			c.sandboxBaseURL = trimmed
		}
	}
}

// WithSandboxBaseURL overrides only the sandbox host.
func WithSandboxBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.sandboxBaseURL = trimmed
		}
	}
}

// WithUserAgent sets the contact header the aggregator asks integrators to send.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if strings.TrimSpace(ua) != "" {
			c.userAgent = ua
		}
	}
}

// NewClient builds the Melhor Envio client.
func NewClient(timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := &Client{
		baseURL:        defaultBaseURL,
		sandboxBaseURL: defaultSandboxBaseURL,
		httpClient:     &http.Client{Timeout: timeout},
		userAgent:      "vitrine-backend",
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client
}

// Product is one parcel entry in a calculate request. Dimensions are in
// centimeters, weight in kilograms.
type Product struct {
	ID             string  `json:"id"`
	Width          float64 `json:"width"`
	Height         float64 `json:"height"`
	Length         float64 `json:"length"`
	Weight         float64 `json:"weight"`
	InsuranceValue float64 `json:"insurance_value"`
	Quantity       int     `json:"quantity"`
}

// CalculateRequest is the payload for the shipment calculate endpoint.
type CalculateRequest struct {
	From     Endpoint  `json:"from"`
	To       Endpoint  `json:"to"`
	Products []Product `json:"products"`
}

// Endpoint carries a postal code side of the route.
type Endpoint struct {
	PostalCode string `json:"postal_code"`
}

// Company identifies the carrier behind a service entry.
type Company struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// DeliveryRange is the carrier's min/max delivery window in days.
type DeliveryRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// DeliveryDays tolerates the aggregator sending delivery_time as a number, a
// quoted number, null, or something else entirely; malformed values decode as
// zero so one bad entry cannot abort the rest of the quote array.
type DeliveryDays int

func (d *DeliveryDays) UnmarshalJSON(data []byte) error {
	trimmed := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if trimmed == "" || trimmed == "null" {
		*d = 0
		return nil
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		f, ferr := strconv.ParseFloat(trimmed, 64)
		if ferr != nil {
			*d = 0
			return nil
		}
		n = int(f)
	}
	if n < 0 {
		n = 0
	}
	*d = DeliveryDays(n)
	return nil
}

// ServiceQuote is one raw calculate entry. Monetary fields arrive as strings
// and are parsed downstream; entries with a non-empty Error are unavailable.
type ServiceQuote struct {
	ID            int           `json:"id"`
	Name          string        `json:"name"`
	Price         string        `json:"price"`
	CustomPrice   string        `json:"custom_price"`
	Discount      string        `json:"discount"`
	Currency      string        `json:"currency"`
	DeliveryTime  DeliveryDays  `json:"delivery_time"`
	DeliveryRange DeliveryRange `json:"delivery_range"`
	Company       Company       `json:"company"`
	Error         string        `json:"error"`
}

// Calculate fetches raw carrier quotes for a route. The sandbox host is used
// when the provider row is flagged as sandbox.
func (c *Client) Calculate(ctx context.Context, accessToken string, sandbox bool, req CalculateRequest) ([]ServiceQuote, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "melhorenvio client not configured")
	}
	if strings.TrimSpace(accessToken) == "" {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConfiguration, errTokenRequired, "calculate shipment")
	}
	if req.From.PostalCode == "" || req.To.PostalCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "origin and destination postal codes are required")
	}
	if len(req.Products) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one product is required")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal calculate request")
	}

	host := c.baseURL
	if sandbox {
		host = c.sandboxBaseURL
	}
	endpoint := strings.TrimRight(host, "/") + calculatePath

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build calculate request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	httpReq.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute calculate request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(
			pkgerrors.CodeDependency,
			fmt.Errorf("melhorenvio status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			"calculate request failed",
		)
	}

	var quotes []ServiceQuote
	if err := json.NewDecoder(resp.Body).Decode(&quotes); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode calculate response")
	}

	return quotes, nil
}
