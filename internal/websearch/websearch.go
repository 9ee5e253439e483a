// Package websearch provides the Serper search API client used to find
// candidate suppliers for extracted products.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultEndpoint = "https://google.serper.dev/search"
	defaultTimeout  = 20 * time.Second
	defaultGeo      = "uz"
	defaultCount    = 10
)

// ErrNoCredential signals that the search API key is not configured. The
// orchestrator treats this as fatal for the whole run: without search there
// is no supplier discovery at all.
var ErrNoCredential = errors.New("search API key is not configured")

// Client executes search queries against the Serper API.
type Client struct {
	apiKey     string
	endpoint   string
	geo        string
	count      int
	httpClient *http.Client
}

// NewClient creates a new search client.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:   apiKey,
		endpoint: defaultEndpoint,
		geo:      defaultGeo,
		count:    defaultCount,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// WithEndpoint overrides the API endpoint, primarily for tests.
func (c *Client) WithEndpoint(endpoint string) *Client {
	c.endpoint = endpoint
	return c
}

// WithGeo sets the geolocation bias for queries.
func (c *Client) WithGeo(geo string) *Client {
	if geo != "" {
		c.geo = geo
	}
	return c
}

// WithResultCount sets how many organic results to request per query.
func (c *Client) WithResultCount(n int) *Client {
	if n > 0 {
		c.count = n
	}
	return c
}

// Result is one organic search hit.
type Result struct {
	Title      string `json:"title"`
	Link       string `json:"link"`
	Snippet    string `json:"snippet"`
	PriceRange string `json:"priceRange,omitempty"`
}

type searchRequest struct {
	Query string `json:"q"`
	Geo   string `json:"gl"`
	Num   int    `json:"num"`
}

type searchResponse struct {
	Organic []Result `json:"organic"`
}

// Search executes one query and returns the ranked organic results.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	if c.apiKey == "" {
		return nil, ErrNoCredential
	}

	body, err := json.Marshal(searchRequest{Query: query, Geo: c.geo, Num: c.count})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: API rejected key (HTTP %d)", ErrNoCredential, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API error (HTTP %d): %s", resp.StatusCode, string(respBody))
	}

	var parsed searchResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return parsed.Organic, nil
}
