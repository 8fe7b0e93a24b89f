package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mmynk/shoeshelf/internal/models"
)

const maxResponseBytes = 1 << 20

// HTTPClient interface allows injecting mock HTTP clients for testing
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client calls the enrichment endpoint.
type Client struct {
	httpClient HTTPClient
	baseURL    string
}

// NewClient creates a client for the endpoint served under baseURL.
func NewClient(httpClient HTTPClient, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Describe posts items and returns the details text, which may be empty.
// A reported {error} comes back as *ServiceError; any other unexpected
// answer wraps ErrMalformedResponse.
func (c *Client) Describe(ctx context.Context, items []models.Item, userID string) (string, error) {
	body, err := json.Marshal(Request{Shoes: items, UserID: userID})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+Path, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("enrichment request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read enrichment response: %w", err)
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: status %d: %v", ErrMalformedResponse, resp.StatusCode, err)
	}
	if out.Error != "" {
		return "", &ServiceError{StatusCode: resp.StatusCode, Message: out.Error}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d", ErrMalformedResponse, resp.StatusCode)
	}

	return out.Details, nil
}
