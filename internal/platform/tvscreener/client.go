package tvscreener

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/quantfold/tradedesk/internal/domain"
)

// DefaultBaseURL is the production scanner endpoint root.
const DefaultBaseURL = "https://scanner.tradingview.com"

// Client is the HTTP client for the scan API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a scanner client. baseURL falls back to the production
// endpoint when empty.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Row is one scan result row. Values align with the query's column selection;
// entries are float64, string, or nil as the screener returns them.
type Row struct {
	Ticker string
	Values []any
}

// Result is a completed scan.
type Result struct {
	TotalCount int
	Columns    []string
	Rows       []Row
}

type scanRow struct {
	Symbol string `json:"s"`
	Data   []any  `json:"d"`
}

type scanResponse struct {
	TotalCount int       `json:"totalCount"`
	Data       []scanRow `json:"data"`
	Error      string    `json:"error"`
}

// Scan executes the query against the US market scanner. An unknown-field
// rejection comes back as a validation error so callers can surface the bad
// column name.
func (c *Client) Scan(ctx context.Context, q *Query) (*Result, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("tvscreener: encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/america/scan", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tvscreener: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tvscreener: scan: %w: %w", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tvscreener: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if strings.Contains(strings.ToLower(string(raw)), "unknown field") {
			return nil, fmt.Errorf("tvscreener: unknown column in query: %w", domain.ErrValidation)
		}
		return nil, fmt.Errorf("tvscreener: scan: status %d: %s: %w",
			resp.StatusCode, string(raw), domain.ErrUpstream)
	}

	var parsed scanResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("tvscreener: decode response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("tvscreener: scan: %s: %w", parsed.Error, domain.ErrUpstream)
	}

	result := &Result{
		TotalCount: parsed.TotalCount,
		Columns:    q.Columns(),
		Rows:       make([]Row, 0, len(parsed.Data)),
	}
	for _, r := range parsed.Data {
		result.Rows = append(result.Rows, Row{Ticker: r.Symbol, Values: r.Data})
	}
	return result, nil
}
