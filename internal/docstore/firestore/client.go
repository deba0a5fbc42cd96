package firestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"coinenrich/internal/docstore"
	"coinenrich/internal/httpretry"
	"coinenrich/internal/logging"
	"coinenrich/internal/services"
)

const (
	stageName         = "firestore"
	defaultBaseURL    = "https://firestore.googleapis.com/v1"
	defaultDatabaseID = "(default)"
	defaultMaxRetries = 4
	defaultTimeout    = 30 * time.Second
	minRetryDelay     = 100 * time.Millisecond
	listPageSize      = 500
)

var simpleFieldPath = regexp.MustCompile(`^[A-Za-z_][A-Za-z_0-9]*$`)

// APIError reports a non-2xx Firestore response.
type APIError struct {
	StatusCode int
	Message    string
	Op         string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("firestore %s failed (%d): %s", e.Op, e.StatusCode, e.Message)
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

// Client is a docstore.Store backed by the Firestore REST API.
type Client struct {
	baseURL    string
	projectID  string
	databaseID string
	token      string
	httpClient *http.Client
	delay      time.Duration
	maxRetries int
	sleeper    func(time.Duration)
	logger     *slog.Logger
	policy     httpretry.Policy
}

var _ docstore.Store = (*Client)(nil)

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

// WithRequestDelay paces requests and sets the base retry delay. The retry
// delay never drops below 100ms, so a zero delay still backs off.
func WithRequestDelay(delay time.Duration) Option {
	return func(c *Client) {
		c.delay = delay
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

// WithSleeper overrides retry sleeps.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Firestore client for one project database. An empty
// databaseID selects "(default)" and an empty baseURL the public endpoint.
// The token, when set, is sent as an OAuth bearer token.
func New(projectID, databaseID, baseURL, token string, opts ...Option) (*Client, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "new client", "firestore project id required", nil)
	}
	databaseID = strings.TrimSpace(databaseID)
	if databaseID == "" {
		databaseID = defaultDatabaseID
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		projectID:  projectID,
		databaseID: databaseID,
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{Timeout: defaultTimeout},
		maxRetries: defaultMaxRetries,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	client.policy = httpretry.Policy{
		Stage:       stageName,
		MaxAttempts: client.maxRetries,
		BaseDelay:   max(client.delay, minRetryDelay),
		Limiter:     httpretry.NewLimiter(client.delay),
		Sleeper:     client.sleeper,
		Logger:      client.logger,
	}
	return client, nil
}

// documentsRoot is the resource name prefix shared by every document.
func (c *Client) documentsRoot() string {
	return fmt.Sprintf("projects/%s/databases/%s/documents", c.projectID, c.databaseID)
}

func (c *Client) documentName(collection, id string) string {
	return c.documentsRoot() + "/" + collection + "/" + id
}

// documentPath is documentName with the collection and id escaped for use in
// a request URL.
func (c *Client) documentPath(collection, id string) string {
	return c.documentsRoot() + "/" + url.PathEscape(collection) + "/" + url.PathEscape(id)
}

type wireDocument struct {
	Name   string         `json:"name"`
	Fields map[string]any `json:"fields,omitempty"`
}

func (d wireDocument) toDocument() docstore.Document {
	id := d.Name
	if idx := strings.LastIndex(id, "/"); idx >= 0 {
		id = id[idx+1:]
	}
	return docstore.Document{ID: id, Name: d.Name, Fields: DecodeFields(d.Fields)}
}

// List returns every document in the collection, following page tokens.
func (c *Client) List(ctx context.Context, collection string) ([]docstore.Document, error) {
	var docs []docstore.Document
	pageToken := ""
	for {
		params := url.Values{}
		params.Set("pageSize", strconv.Itoa(listPageSize))
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}
		var page struct {
			Documents     []wireDocument `json:"documents"`
			NextPageToken string         `json:"nextPageToken"`
		}
		if err := c.call(ctx, http.MethodGet, c.documentsRoot()+"/"+url.PathEscape(collection), params, nil, &page); err != nil {
			return nil, err
		}
		for _, doc := range page.Documents {
			docs = append(docs, doc.toDocument())
		}
		if page.NextPageToken == "" {
			return docs, nil
		}
		pageToken = page.NextPageToken
	}
}

// Get fetches one document.
func (c *Client) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	var doc wireDocument
	if err := c.call(ctx, http.MethodGet, c.documentPath(collection, id), nil, nil, &doc); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return docstore.Document{}, services.Wrap(services.ErrNotFound, stageName, "get", collection+"/"+id, docstore.ErrNotFound)
		}
		return docstore.Document{}, err
	}
	return doc.toDocument(), nil
}

// Patch merges the patch into one document. Only the patched field paths are
// listed in the update mask, so other fields are left untouched.
func (c *Client) Patch(ctx context.Context, collection string, patch docstore.Patch) error {
	if strings.TrimSpace(patch.ID) == "" {
		return services.Wrap(services.ErrValidation, stageName, "patch", "document id required", nil)
	}
	params := url.Values{}
	for _, path := range maskPaths(patch) {
		params.Add("updateMask.fieldPaths", path)
	}
	body := map[string]any{"fields": EncodeFields(patch.Fields)}
	return c.call(ctx, http.MethodPatch, c.documentPath(collection, patch.ID), params, body, nil)
}

// Commit writes up to docstore.MaxBatchSize patches in one atomic request.
func (c *Client) Commit(ctx context.Context, collection string, patches []docstore.Patch) error {
	if len(patches) == 0 {
		return nil
	}
	if len(patches) > docstore.MaxBatchSize {
		return services.Wrap(services.ErrValidation, stageName, "commit",
			fmt.Sprintf("batch of %d exceeds %d writes", len(patches), docstore.MaxBatchSize), nil)
	}
	writes := make([]map[string]any, 0, len(patches))
	for _, patch := range patches {
		if strings.TrimSpace(patch.ID) == "" {
			return services.Wrap(services.ErrValidation, stageName, "commit", "document id required", nil)
		}
		writes = append(writes, map[string]any{
			"update": map[string]any{
				"name":   c.documentName(collection, patch.ID),
				"fields": EncodeFields(patch.Fields),
			},
			"updateMask": map[string]any{"fieldPaths": maskPaths(patch)},
		})
	}
	body := map[string]any{"writes": writes}
	return c.call(ctx, http.MethodPost, c.documentsRoot()+":commit", nil, body, nil)
}

// maskPaths lists the patched fields that survive encoding. Fields dropped
// by the codec are left out so Firestore does not delete them.
func maskPaths(patch docstore.Patch) []string {
	paths := make([]string, 0, len(patch.Fields))
	for _, field := range patch.FieldPaths() {
		if _, ok := EncodeValue(patch.Fields[field]); !ok {
			continue
		}
		paths = append(paths, quoteFieldPath(field))
	}
	return paths
}

func quoteFieldPath(field string) string {
	if simpleFieldPath.MatchString(field) {
		return field
	}
	escaped := strings.ReplaceAll(field, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, "`", "\\`")
	return "`" + escaped + "`"
}

func (c *Client) call(ctx context.Context, method, resource string, params url.Values, body any, target any) error {
	rawURL := c.baseURL + "/" + resource
	if len(params) > 0 {
		rawURL += "?" + params.Encode()
	}
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return services.Wrap(services.ErrValidation, stageName, method, "encode request body", err)
		}
		payload = encoded
	}
	op := method + " " + resource

	resp, err := c.policy.Do(ctx, c.httpClient, op, func(ctx context.Context) (*http.Request, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		return req, nil
	})
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp), Op: op}
	}
	if target == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, target); err != nil {
		return services.Wrap(services.ErrDecode, stageName, op, "invalid JSON", err)
	}
	return nil
}

func errorMessage(resp *httpretry.Response) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body, &envelope); err == nil {
		if msg := strings.TrimSpace(envelope.Error.Message); msg != "" {
			return msg
		}
		if status := strings.TrimSpace(envelope.Error.Status); status != "" {
			return status
		}
	}
	if msg := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))); msg != "" {
		return msg
	}
	return "unknown API error"
}
