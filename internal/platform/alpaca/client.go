// Package alpaca is the REST client for the Alpaca market data API: historical
// stock bars and news.
package alpaca

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/quantfold/tradedesk/internal/domain"
	"github.com/quantfold/tradedesk/internal/marketdata"
)

// DefaultBaseURL is the production market data API root.
const DefaultBaseURL = "https://data.alpaca.markets"

// pageLimit is the maximum bars or articles per page the API allows.
const pageLimit = 10000

// Client is the REST client for the Alpaca market data API.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
}

// NewClient creates a new Alpaca data client. baseURL falls back to the
// production endpoint when empty.
func NewClient(baseURL, apiKey, apiSecret string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) doRequest(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("alpaca: build request: %w", err)
	}
	req.Header.Set("APCA-API-KEY-ID", c.apiKey)
	req.Header.Set("APCA-API-SECRET-KEY", c.apiSecret)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("alpaca: %s: %w: %w", path, domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("alpaca: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alpaca: %s: status %d: %s: %w",
			path, resp.StatusCode, string(body), domain.ErrUpstream)
	}
	return body, nil
}

// timeframeParam renders a timeframe in the API's form, e.g. "5Min", "1Day".
func timeframeParam(tf marketdata.Timeframe) string {
	var suffix string
	switch tf.Unit {
	case marketdata.UnitMinute:
		suffix = "Min"
	case marketdata.UnitHour:
		suffix = "Hour"
	case marketdata.UnitDaily:
		suffix = "Day"
	case marketdata.UnitWeekly:
		suffix = "Week"
	case marketdata.UnitMonthly:
		suffix = "Month"
	}
	return strconv.Itoa(tf.Amount) + suffix
}

// Bars fetches historical bars for the query, following pagination until the
// window is exhausted. Bars come back adjusted for splits and dividends from
// the SIP feed.
func (c *Client) Bars(ctx context.Context, q marketdata.BarQuery) ([]marketdata.Bar, error) {
	params := url.Values{}
	params.Set("timeframe", timeframeParam(q.Timeframe))
	params.Set("start", q.Start.UTC().Format(time.RFC3339))
	params.Set("end", q.End.UTC().Format(time.RFC3339))
	params.Set("adjustment", "all")
	params.Set("feed", "sip")
	params.Set("limit", strconv.Itoa(pageLimit))
	if q.AsOf != "" {
		params.Set("asof", q.AsOf)
	}

	path := "/v2/stocks/" + url.PathEscape(q.Symbol) + "/bars"

	var bars []marketdata.Bar
	for {
		body, err := c.doRequest(ctx, path, params)
		if err != nil {
			return nil, fmt.Errorf("alpaca: get bars %s: %w", q.Symbol, err)
		}

		var resp barsResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("alpaca: decode bars: %w", err)
		}

		for _, b := range resp.Bars {
			bars = append(bars, marketdata.Bar{
				Time:   b.Time,
				Open:   b.Open,
				High:   b.High,
				Low:    b.Low,
				Close:  b.Close,
				Volume: b.Volume,
			})
		}

		if resp.NextPageToken == nil || *resp.NextPageToken == "" {
			return bars, nil
		}
		params.Set("page_token", *resp.NextPageToken)
	}
}

// News fetches articles mentioning the symbols between start and end,
// following pagination. sort is "asc" or "desc" by update time.
func (c *Client) News(ctx context.Context, symbols []string, start, end time.Time, sort string) ([]NewsArticle, error) {
	params := url.Values{}
	params.Set("symbols", strings.Join(symbols, ","))
	params.Set("start", start.UTC().Format(time.RFC3339))
	params.Set("end", end.UTC().Format(time.RFC3339))
	params.Set("sort", sort)
	params.Set("limit", "50")

	var articles []NewsArticle
	for {
		body, err := c.doRequest(ctx, "/v1beta1/news", params)
		if err != nil {
			return nil, fmt.Errorf("alpaca: get news: %w", err)
		}

		var resp newsResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("alpaca: decode news: %w", err)
		}
		articles = append(articles, resp.News...)

		if resp.NextPageToken == nil || *resp.NextPageToken == "" {
			return articles, nil
		}
		params.Set("page_token", *resp.NextPageToken)
	}
}

// Compile-time interface check.
var _ marketdata.BarSource = (*Client)(nil)
