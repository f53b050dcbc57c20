package provider

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// TokenSource supplies a bearer token for provider requests. Token
// refresh is a vendor concern handled outside the pipeline core.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource returning a fixed token. Useful for
// tests and short-lived batch runs.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) { return string(s), nil }

// TRIDs holds the provider transaction IDs per endpoint.
type TRIDs struct {
	EquityMinute string
	FutureMinute string
	OptionChain  string
}

// DefaultTRIDs returns the production board transaction IDs.
func DefaultTRIDs() TRIDs {
	return TRIDs{
		EquityMinute: "FHKST03010200",
		FutureMinute: "FHKIF03020200",
		OptionChain:  "FHPIF05030100",
	}
}

// Client provides access to the quote provider's REST API.
type Client struct {
	baseURL    string
	appKey     string
	appSecret  string
	trIDs      TRIDs
	tokens     TokenSource
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new provider client.
func NewClient(baseURL, appKey, appSecret string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   baseURL,
		appKey:    appKey,
		appSecret: appSecret,
		trIDs:     DefaultTRIDs(),
		tokens:    StaticToken(""),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(2), 1), // provider quota: 2 req/s
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout for a single attempt.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithTokenSource sets the auth token source.
func WithTokenSource(ts TokenSource) ClientOption {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithTRIDs overrides the per-endpoint transaction IDs.
func WithTRIDs(ids TRIDs) ClientOption {
	return func(c *Client) {
		c.trIDs = ids
	}
}

// WithRateLimit sets the client-side request pacing in requests/sec.
func WithRateLimit(perSec float64) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}
