package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultURL     = "https://www.berlin.de/sen/arbeit/weiterbildung/bildungszeit/suche/index.php/index/all.json?q="
	DefaultTimeout = 30 * time.Second

	// Upper bound for a catalog response body
	maxBodySize = 32 << 20
)

// StatusError is returned when the catalog answers with a non-2xx status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog returned status %d: %s", e.StatusCode, e.Body)
}

// Client fetches the course catalog
type Client struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewClient creates a catalog client. An empty url selects DefaultURL.
func NewClient(url string, timeout time.Duration, logger *zap.Logger) *Client {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// URL returns the endpoint the client talks to
func (c *Client) URL() string {
	return c.url
}

// FetchRaw returns the catalog response body verbatim
func (c *Client) FetchRaw(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 256)}
	}

	c.logger.Debug("catalog fetched",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("took", time.Since(started)),
	)
	return body, nil
}

// Fetch retrieves and decodes the catalog index
func (c *Client) Fetch(ctx context.Context) ([]Course, error) {
	body, err := c.FetchRaw(ctx)
	if err != nil {
		return nil, err
	}

	var index Index
	if err := json.Unmarshal(body, &index); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	if index.Index == nil {
		return []Course{}, nil
	}
	return index.Index, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
