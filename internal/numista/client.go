package numista

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"coinenrich/internal/httpretry"
	"coinenrich/internal/logging"
	"coinenrich/internal/services"
)

const (
	defaultUserAgent    = "coinenrich/1.0"
	defaultRequestDelay = 250 * time.Millisecond
	defaultMaxRetries   = 4
	defaultTimeout      = 30 * time.Second
	stageName           = "numista"
)

// Catalog defines the Numista operations used by enrichment.
type Catalog interface {
	GetType(ctx context.Context, id int64) (*Type, error)
	SearchTypes(ctx context.Context, params SearchParams) (*SearchResponse, error)
}

// SearchParams holds the query string of GET /types. Zero values are omitted.
type SearchParams struct {
	Query  string
	Date   int
	Year   int
	Issuer string
	Count  int
	Page   int
}

// APIError reports a non-2xx status or an error_message body.
type APIError struct {
	StatusCode int
	Message    string
	Path       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("numista api request %s failed (%d): %s", e.Path, e.StatusCode, e.Message)
}

// Unwrap maps the status onto the services error taxonomy.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return services.ErrNotFound
	case httpretry.RetryableStatus(e.StatusCode):
		return services.ErrTransient
	default:
		return services.ErrExternalService
	}
}

// Client provides access to the Numista catalog API.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	userAgent  string
	httpClient *http.Client
	delay      time.Duration
	maxRetries int
	sleeper    func(time.Duration)
	logger     *slog.Logger
	policy     httpretry.Policy
}

var _ Catalog = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRequestDelay sets the pacing interval and the base retry delay.
func WithRequestDelay(delay time.Duration) Option {
	return func(c *Client) {
		if delay > 0 {
			c.delay = delay
		}
	}
}

// WithMaxRetries sets the attempt budget for transient failures.
func WithMaxRetries(attempts int) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.maxRetries = attempts
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(agent string) Option {
	return func(c *Client) {
		if agent = strings.TrimSpace(agent); agent != "" {
			c.userAgent = agent
		}
	}
}

// WithLogger attaches a logger for retry and request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// New creates a Numista client.
func New(apiKey, baseURL, language string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "new client", "numista api key required", nil)
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "new client", "numista base url required", nil)
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   strings.TrimSpace(language),
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{Timeout: defaultTimeout},
		delay:      defaultRequestDelay,
		maxRetries: defaultMaxRetries,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	client.policy = httpretry.Policy{
		Stage:       stageName,
		MaxAttempts: client.maxRetries,
		BaseDelay:   client.delay,
		Limiter:     httpretry.NewLimiter(client.delay),
		Sleeper:     client.sleeper,
		Logger:      client.logger,
	}
	return client, nil
}

// Language returns the response language sent with every request.
func (c *Client) Language() string {
	return c.language
}

// GetType fetches the full detail of a catalog type.
func (c *Client) GetType(ctx context.Context, id int64) (*Type, error) {
	if id <= 0 {
		return nil, services.Wrap(services.ErrValidation, stageName, "get type", "type id must be positive", nil)
	}
	var payload Type
	if err := c.get(ctx, fmt.Sprintf("/types/%d", id), url.Values{}, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// SearchTypes runs a catalog type search.
func (c *Client) SearchTypes(ctx context.Context, params SearchParams) (*SearchResponse, error) {
	values := url.Values{}
	if q := strings.TrimSpace(params.Query); q != "" {
		values.Set("q", q)
	}
	if issuer := strings.TrimSpace(params.Issuer); issuer != "" {
		values.Set("issuer", issuer)
	}
	setPositive(values, "date", params.Date)
	setPositive(values, "year", params.Year)
	setPositive(values, "count", params.Count)
	setPositive(values, "page", params.Page)

	var payload SearchResponse
	if err := c.get(ctx, "/types", values, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, target any) error {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("parse numista url: %w", err)
	}
	if c.language != "" {
		params.Set("lang", c.language)
	}
	endpoint.RawQuery = params.Encode()
	rawURL := endpoint.String()

	resp, err := c.policy.Do(ctx, c.httpClient, "GET "+path, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Numista-API-Key", c.apiKey)
		req.Header.Set("User-Agent", c.userAgent)
		return req, nil
	})
	if err != nil {
		return err
	}

	var envelope struct {
		ErrorMessage string `json:"error_message"`
	}
	if len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, &envelope); err != nil {
			return services.Wrap(services.ErrDecode, stageName, path, "invalid JSON", err)
		}
	}
	if !resp.OK() || envelope.ErrorMessage != "" {
		message := envelope.ErrorMessage
		if message == "" {
			message = strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
		}
		if message == "" {
			message = "unknown API error"
		}
		return &APIError{StatusCode: resp.StatusCode, Message: message, Path: path}
	}
	if len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, target); err != nil {
		return services.Wrap(services.ErrDecode, stageName, path, "unexpected payload shape", err)
	}
	return nil
}

func setPositive(values url.Values, key string, value int) {
	if value > 0 {
		values.Set(key, strconv.Itoa(value))
	}
}

// IsAPIError reports whether err carries an *APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
