package pricefeed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Sink records fetched quotes and returns how many were stored.
type Sink interface {
	RecordPrices(ctx context.Context, quotes []Quote) (int, error)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, quotes []Quote) (int, error)

// RecordPrices implements Sink.
func (f SinkFunc) RecordPrices(ctx context.Context, quotes []Quote) (int, error) {
	return f(ctx, quotes)
}

// priceEntry mirrors the API's ingestion payload.
type priceEntry struct {
	Asset      string `json:"asset"`
	Source     string `json:"source"`
	Value      string `json:"value"`
	Decimals   uint8  `json:"decimals"`
	RecordedAt string `json:"recorded_at"`
}

// APIClient posts quotes to the vaultcore ingestion endpoint.
type APIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewAPIClient creates a new ingestion API client.
func NewAPIClient(baseURL, apiKey string, httpClient *http.Client) *APIClient {
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// RecordPrices submits quotes and returns the count recorded.
func (c *APIClient) RecordPrices(ctx context.Context, quotes []Quote) (int, error) {
	entries := make([]priceEntry, len(quotes))
	for i, q := range quotes {
		entries[i] = priceEntry{
			Asset:      q.Asset.Hex(),
			Source:     q.Source,
			Value:      q.Value.String(),
			Decimals:   Decimals,
			RecordedAt: q.ObservedAt.Format(time.RFC3339),
		}
	}
	body, err := json.Marshal(struct {
		Prices []priceEntry `json:"prices"`
	}{Prices: entries})
	if err != nil {
		return 0, fmt.Errorf("marshaling prices: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/pipeline/prices", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("recording prices: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		return 0, fmt.Errorf("recording prices: unexpected status %d", resp.StatusCode)
	}

	var result struct {
		Recorded int `json:"recorded"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decoding prices response: %w", err)
	}
	return result.Recorded, nil
}
