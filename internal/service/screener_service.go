package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/quantfold/tradedesk/internal/platform/tvscreener"
)

// scanAPI is the slice of the screener client this service needs.
type scanAPI interface {
	Scan(ctx context.Context, q *tvscreener.Query) (*tvscreener.Result, error)
}

// summaryColumns is the selection behind symbol summaries.
var summaryColumns = []string{
	"name", "description", "close", "volume", "market_cap_basic",
	"price_52_week_high", "price_52_week_low", "High.3M", "Low.3M",
	"postmarket_high", "postmarket_low", "premarket_high", "premarket_low",
	"VWAP", "industry", "sector", "change_from_open", "change",
	"Perf.1M", "Perf.3M", "float_shares_outstanding", "gap",
	"earnings_release_next_date", "Recommend.All",
}

// ScreenerService runs stock screens and renders the results as delimited
// text.
type ScreenerService struct {
	api    scanAPI
	logger *slog.Logger
}

// NewScreenerService creates a ScreenerService.
func NewScreenerService(api scanAPI, logger *slog.Logger) *ScreenerService {
	return &ScreenerService{
		api:    api,
		logger: logger.With(slog.String("component", "screener")),
	}
}

// Scan executes a caller-built query and renders the result.
func (s *ScreenerService) Scan(ctx context.Context, q *tvscreener.Query) (string, error) {
	result, err := s.api.Scan(ctx, q)
	if err != nil {
		return "", fmt.Errorf("screener: scan: %w", err)
	}
	return renderCSV(result.Columns, rowsToCells(result)), nil
}

// ScanNamed executes one of the built-in scanner lists. limit caps the rows
// when positive.
func (s *ScreenerService) ScanNamed(ctx context.Context, name string, limit int) (string, error) {
	q, err := tvscreener.ScannerQuery(name)
	if err != nil {
		return "", err
	}
	if limit > 0 {
		q.Limit(limit)
	}
	return s.Scan(ctx, q)
}

// SearchColumns returns the union of column matches for the given search
// terms, deduplicated and in index order.
func (s *ScreenerService) SearchColumns(terms []string) []string {
	var out []string
	for _, term := range terms {
		for _, col := range tvscreener.SearchColumns(term) {
			if !slices.Contains(out, col) {
				out = append(out, col)
			}
		}
	}
	return out
}

// SymbolSummaries screens the given symbols and renders their key metrics.
// The technical rating is folded into a word, the market cap into whole
// millions, and the raw rating column is dropped.
func (s *ScreenerService) SymbolSummaries(ctx context.Context, symbols []string) (string, error) {
	q := tvscreener.NewQuery().
		Select(summaryColumns...).
		Where(tvscreener.IsIn("name", symbols...))

	result, err := s.api.Scan(ctx, q)
	if err != nil {
		return "", fmt.Errorf("screener: symbol summaries: %w", err)
	}

	col := func(name string) int {
		return slices.Index(result.Columns, name)
	}
	dropped := map[string]bool{"market_cap_basic": true, "Recommend.All": true}
	renamed := map[string]string{
		"close":            "last",
		"change":           "change_from_last_close_%",
		"change_from_open": "change_from_open_%",
	}

	header := make([]string, 0, len(result.Columns))
	var kept []int
	for i, name := range result.Columns {
		if dropped[name] {
			continue
		}
		if alias, ok := renamed[name]; ok {
			name = alias
		}
		header = append(header, name)
		kept = append(kept, i)
	}
	header = append(header, "rating", "market_cap_basic_millions")

	earningsIdx := col("earnings_release_next_date")
	ratingIdx := col("Recommend.All")
	capIdx := col("market_cap_basic")

	value := func(row tvscreener.Row, i int) any {
		if i < 0 || i >= len(row.Values) {
			return nil
		}
		return row.Values[i]
	}

	rows := make([][]string, 0, len(result.Rows))
	for _, row := range result.Rows {
		cells := make([]string, 0, len(header))
		for _, i := range kept {
			if i == earningsIdx {
				cells = append(cells, formatEarningsDate(value(row, i)))
				continue
			}
			cells = append(cells, formatCell(value(row, i)))
		}
		cells = append(cells, formatTechnicalRating(value(row, ratingIdx)))
		cells = append(cells, formatCapMillions(value(row, capIdx)))
		rows = append(rows, cells)
	}

	return renderCSV(header, rows), nil
}

// formatTechnicalRating folds the screener's [-1, 1] consensus score into a
// recommendation word.
func formatTechnicalRating(v any) string {
	rating, ok := v.(float64)
	if !ok {
		return "N/A"
	}

	switch {
	case rating >= 0.5:
		return "Strong Buy"
	case rating >= 0.1:
		return "Buy"
	case rating >= -0.1:
		return "Neutral"
	case rating >= -0.5:
		return "Sell"
	default:
		return "Strong Sell"
	}
}

func formatCapMillions(v any) string {
	mc, ok := v.(float64)
	if !ok {
		return "N/A"
	}
	return strconv.FormatInt(int64(math.Floor(mc/1e6)), 10)
}

// formatEarningsDate converts the screener's unix timestamp to a date.
func formatEarningsDate(v any) string {
	ts, ok := v.(float64)
	if !ok || ts <= 0 {
		return "N/A"
	}
	return time.Unix(int64(ts), 0).UTC().Format("2006-01-02")
}

// formatCell renders a scan value: floats rounded to two decimals, nil as
// "N/A".
func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "N/A"
	case float64:
		return strconv.FormatFloat(math.Round(x*100)/100, 'f', -1, 64)
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

func rowsToCells(result *tvscreener.Result) [][]string {
	rows := make([][]string, 0, len(result.Rows))
	for _, row := range result.Rows {
		cells := make([]string, 0, len(row.Values))
		for _, v := range row.Values {
			cells = append(cells, formatCell(v))
		}
		rows = append(rows, cells)
	}
	return rows
}

func renderCSV(header []string, rows [][]string) string {
	var b strings.Builder
	w := csv.NewWriter(&b)
	_ = w.Write(header)
	_ = w.WriteAll(rows)
	w.Flush()
	return b.String()
}
