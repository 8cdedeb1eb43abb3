// internal/congress/client.go

// Package congress wraps the Congress.gov v3 REST API, translating wire
// payloads into internal model types.
package congress

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"congress-data-sync/internal/metrics"
)

// RequestRecorder is notified of every outbound request so the rate-limit
// monitor can account for it.
type RequestRecorder interface {
	RecordRequest()
}

// APIError is a non-2xx upstream response.
type APIError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("congress api: %s returned %d: %s", e.URL, e.StatusCode, e.Body)
}

// IsTransient reports whether a retry could plausibly succeed.
func (e *APIError) IsTransient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// ListOptions addresses one page of a remote collection.
type ListOptions struct {
	Congress     int
	Offset       int
	Limit        int
	FromDateTime time.Time
}

// Pagination is the page metadata returned alongside every collection.
type Pagination struct {
	Count   int
	HasNext bool
}

// Client is a thin wrapper over the Congress.gov API. Retries are the
// caller's concern; the client issues exactly one request per call.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *slog.Logger
	recorder   RequestRecorder
}

// NewClient creates and configures a new Client instance. Every request is
// authenticated with the API key and reported to the recorder.
func NewClient(baseURL, apiKey string, recorder RequestRecorder, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		logger:     logger,
		recorder:   recorder,
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := fmt.Sprintf("%s%s", c.baseURL, path)
	if len(query) > 0 {
		u = u + "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	if c.recorder != nil {
		c.recorder.RecordRequest()
	}
	metrics.IncAPIRequest(resourceOf(path))
	c.logger.Debug("Fetching", "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{StatusCode: resp.StatusCode, URL: path, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func listQuery(opts ListOptions) url.Values {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(opts.Offset))
	q.Set("limit", strconv.Itoa(opts.Limit))
	q.Set("format", "json")
	if !opts.FromDateTime.IsZero() {
		q.Set("fromDateTime", opts.FromDateTime.UTC().Format("2006-01-02T15:04:05Z"))
	}
	return q
}

func toPagination(w wirePagination) Pagination {
	return Pagination{Count: w.Count, HasNext: w.Next != ""}
}

// resourceOf extracts the leading path segment for metric labels.
func resourceOf(path string) string {
	parts := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 2)
	return parts[0]
}
