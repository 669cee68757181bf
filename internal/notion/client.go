// Package notion provides the record-store client: two independently keyed
// collections of typed records behind a rate-limited REST API. Every call is
// spaced by a minimum interval and retried with exponential backoff on
// rate-limit and transient server failures.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jonesrussell/linkhound/internal/logger"
)

const (
	// DefaultBaseURL is the record-store API root.
	DefaultBaseURL = "https://api.notion.com/v1"
	// DefaultTimeout bounds each API request.
	DefaultTimeout = 15 * time.Second
	// apiVersion is the API version header value the client pins.
	apiVersion = "2022-06-28"
)

// Client is an HTTP client for the record-store API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rateLimiter
	maxRetries int
	log        logger.Interface
}

// Option is a function that configures a Client.
type Option func(*Client)

// WithBaseURL sets the API root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithMinInterval sets the minimum spacing enforced before every API call.
func WithMinInterval(interval time.Duration) Option {
	return func(c *Client) {
		c.limiter = newRateLimiter(interval)
	}
}

// WithMaxRetries bounds retry attempts on rate-limit and server errors.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// NewClient creates a record-store API client.
func NewClient(token string, log logger.Interface, opts ...Option) *Client {
	client := &Client{
		baseURL:    DefaultBaseURL,
		token:      token,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    newRateLimiter(0),
		maxRetries: 4,
		log:        log.WithComponent("notion"),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// queryResponse is one page of a collection query.
type queryResponse struct {
	Results    []Record `json:"results"`
	HasMore    bool     `json:"has_more"`
	NextCursor *string  `json:"next_cursor"`
}

// QueryAll reads every record of a collection, following pagination cursors.
// A nil filter returns the full collection; used once per run per collection
// to build the prefetch index.
func (c *Client) QueryAll(ctx context.Context, collectionID string, filter map[string]any) ([]Record, error) {
	endpoint := fmt.Sprintf("%s/databases/%s/query", c.baseURL, collectionID)

	var records []Record
	var cursor *string

	for {
		payload := map[string]any{}
		if filter != nil {
			payload["filter"] = filter
		}
		if cursor != nil {
			payload["start_cursor"] = *cursor
		}

		var page queryResponse
		if err := c.do(ctx, http.MethodPost, endpoint, payload, &page); err != nil {
			return nil, fmt.Errorf("query collection %s: %w", collectionID, err)
		}

		records = append(records, page.Results...)

		if !page.HasMore || page.NextCursor == nil {
			break
		}
		cursor = page.NextCursor
	}

	return records, nil
}

// createResponse is the relevant part of a record-creation response.
type createResponse struct {
	ID string `json:"id"`
}

// CreateRecord creates a record in the given collection and returns its ID.
func (c *Client) CreateRecord(ctx context.Context, collectionID string, props Properties) (string, error) {
	payload := map[string]any{
		"parent":     map[string]any{"database_id": collectionID},
		"properties": props,
	}

	var created createResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/pages", payload, &created); err != nil {
		return "", fmt.Errorf("create record: %w", err)
	}

	return created.ID, nil
}

// UpdateRecord patches an existing record's properties in place.
func (c *Client) UpdateRecord(ctx context.Context, recordID string, props Properties) error {
	payload := map[string]any{"properties": props}

	if err := c.do(ctx, http.MethodPatch, c.baseURL+"/pages/"+recordID, payload, nil); err != nil {
		return fmt.Errorf("update record %s: %w", recordID, err)
	}

	return nil
}

// GetCollection fetches a collection's schema descriptor, used for
// schema-tolerant writes.
func (c *Client) GetCollection(ctx context.Context, collectionID string) (*Collection, error) {
	var collection Collection
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/databases/"+collectionID, nil, &collection); err != nil {
		return nil, fmt.Errorf("get collection %s: %w", collectionID, err)
	}

	return &collection, nil
}

// AddSelectOption registers a missing enum option on a single-choice field so
// that a subsequent record write carrying the value is accepted.
func (c *Client) AddSelectOption(ctx context.Context, collection *Collection, field, option string) error {
	if collection.HasSelectOption(field, option) {
		return nil
	}

	descriptor, ok := collection.Properties[field]
	if !ok || descriptor.Select == nil {
		return fmt.Errorf("add select option: collection %s has no select field %q", collection.ID, field)
	}

	options := make([]SelectOption, 0, len(descriptor.Select.Options)+1)
	options = append(options, descriptor.Select.Options...)
	options = append(options, SelectOption{Name: option})

	payload := map[string]any{
		"properties": map[string]any{
			field: map[string]any{
				"select": map[string]any{"options": options},
			},
		},
	}

	if err := c.do(ctx, http.MethodPatch, c.baseURL+"/databases/"+collection.ID, payload, nil); err != nil {
		return fmt.Errorf("add select option %q to %q: %w", option, field, err)
	}

	descriptor.Select.Options = options
	collection.Properties[field] = descriptor

	return nil
}

// do executes one API call with rate limiting and retry. Rate-limit (429) and
// server (5xx) responses back off and retry up to the configured attempt
// count; exhausting retries surfaces the last error.
func (c *Client) do(ctx context.Context, method, endpoint string, payload, result any) error {
	operation := func() error {
		if waitErr := c.limiter.wait(ctx); waitErr != nil {
			return permanent(waitErr)
		}

		return c.doOnce(ctx, method, endpoint, payload, result)
	}

	return retryCall(ctx, c.maxRetries, operation)
}

// doOnce executes a single API request attempt.
func (c *Client) doOnce(ctx context.Context, method, endpoint string, payload, result any) error {
	var body io.Reader = http.NoBody

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return permanent(fmt.Errorf("marshal payload: %w", err))
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return permanent(fmt.Errorf("new request: %w", err))
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", apiVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, doErr := c.httpClient.Do(req)
	if doErr != nil {
		// Transport failures are transient; let backoff retry them.
		return fmt.Errorf("request failed: %w", doErr)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return fmt.Errorf("read response body: %w", readErr)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := newAPIError(resp.StatusCode, raw)
		if apiErr.Retryable() {
			c.log.Warn("record store transient failure, backing off",
				"status", resp.StatusCode,
				"endpoint", endpoint,
			)
			return apiErr
		}
		return permanent(apiErr)
	}

	if result == nil {
		return nil
	}

	if unmarshalErr := json.Unmarshal(raw, result); unmarshalErr != nil {
		return permanent(fmt.Errorf("decode response: %w", unmarshalErr))
	}

	return nil
}
