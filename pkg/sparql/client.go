// Package sparql is a minimal client for SPARQL 1.1 query endpoints.
package sparql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const (
	resultsMediaType = "application/sparql-results+json"
	// maxBodySize bounds how much of a response is read into memory.
	maxBodySize = 10 * 1024 * 1024
)

// Executor runs a query and returns its decoded results.
type Executor interface {
	Execute(ctx context.Context, query string) (*Results, error)
}

// HTTPError is returned for non-2xx responses. Body holds the raw response text.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("sparql endpoint returned status %d: %s", e.Status, e.Body)
}

// Client sends queries to a single endpoint. It makes exactly one attempt per
// query; retrying is left to callers.
type Client struct {
	Endpoint   string
	HTTPClient *http.Client
	UserAgent  string
	Logger     *slog.Logger
}

// NewClient creates a client for endpoint with the given request timeout.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		Endpoint:   endpoint,
		HTTPClient: &http.Client{Timeout: timeout},
		UserAgent:  "cognates-cli",
	}
}

// Execute submits query as the `query` request parameter.
func (c *Client) Execute(ctx context.Context, query string) (*Results, error) {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("query", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", resultsMediaType)
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sparql request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read sparql response: %w", err)
	}

	c.logger().Debug("sparql query executed",
		"status", resp.StatusCode, "bytes", len(body), "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Status: resp.StatusCode, Body: string(body)}
	}

	var res Results
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&res); err != nil {
		// Malformed bodies are treated as an empty result set.
		c.logger().Warn("undecodable sparql response, treating as empty", "error", err)
		return &Results{}, nil
	}
	return &res, nil
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return discardLogger
}

var discardLogger = slog.New(slog.DiscardHandler)
