package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/tradedesk/internal/domain"
	"github.com/quantfold/tradedesk/internal/platform/alpaca"
	"github.com/quantfold/tradedesk/internal/platform/tvscreener"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// orderStoreStub serves canned orders for the report views.
type orderStoreStub struct {
	orders []domain.Order
}

func (s *orderStoreStub) Create(context.Context, domain.Order) error { return nil }

func (s *orderStoreStub) GetByID(_ context.Context, id uuid.UUID) (domain.Order, error) {
	for _, o := range s.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return domain.Order{}, domain.ErrNotFound
}

func (s *orderStoreStub) UpdateStatus(context.Context, uuid.UUID, domain.OrderStatus) error {
	return nil
}

func (s *orderStoreStub) Replace(context.Context, uuid.UUID, domain.Order) error { return nil }

func (s *orderStoreStub) CloseMatching(context.Context, string) (int64, error) { return 0, nil }

func (s *orderStoreStub) ListByStatus(_ context.Context, instrument string, statuses []domain.OrderStatus) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range s.orders {
		if instrument != "" && instrument != "all" && o.Instrument != instrument {
			continue
		}
		for _, st := range statuses {
			if o.Status == st {
				out = append(out, o)
				break
			}
		}
	}
	return out, nil
}

func (s *orderStoreStub) ListTerminalBefore(context.Context, time.Time) ([]domain.Order, error) {
	return nil, nil
}

var _ domain.OrderStore = (*orderStoreStub)(nil)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func fixedOrder(symbol string, side domain.Side, qty, entry string, status domain.OrderStatus, updated time.Time) domain.Order {
	o := domain.Order{
		ID:          uuid.New(),
		Instrument:  symbol,
		Quantity:    d(qty),
		Side:        side,
		Type:        domain.OrderTypeLimit,
		Class:       domain.OrderClassSimple,
		TimeInForce: domain.TimeInForceDay,
		Status:      status,
		CreatedAt:   updated,
		UpdatedAt:   updated,
	}
	if entry != "" {
		o.EntryPrice = dp(entry)
	}
	return o
}

func TestCompletedOrdersWindow(t *testing.T) {
	now := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	store := &orderStoreStub{orders: []domain.Order{
		fixedOrder("AAPL", domain.SideBuy, "10", "100", domain.OrderStatusFilled, now.Add(-time.Hour)),
		fixedOrder("AAPL", domain.SideBuy, "5", "90", domain.OrderStatusFilled, now.Add(-48*time.Hour)),
		fixedOrder("AAPL", domain.SideBuy, "1", "95", domain.OrderStatusCanceled, now.Add(-time.Hour)),
	}}
	svc := NewReportService(store, d("100000"), discardLogger()).
		WithClock(func() time.Time { return now })

	orders, err := svc.CompletedOrders(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.True(t, orders[0].Quantity.Equal(d("10")))
}

func TestPortfolioAggregatesFills(t *testing.T) {
	now := time.Now().UTC()
	store := &orderStoreStub{orders: []domain.Order{
		fixedOrder("AAPL", domain.SideBuy, "10", "100", domain.OrderStatusFilled, now),
		fixedOrder("AAPL", domain.SideBuy, "10", "110", domain.OrderStatusFilled, now),
		fixedOrder("AAPL", domain.SideSell, "5", "", domain.OrderStatusFilled, now),
		fixedOrder("MSFT", domain.SideBuy, "3", "400", domain.OrderStatusFilled, now),
		fixedOrder("TSLA", domain.SideBuy, "2", "200", domain.OrderStatusNew, now),
	}}
	svc := NewReportService(store, d("100000"), discardLogger())

	positions, err := svc.Portfolio(context.Background(), "all")
	require.NoError(t, err)
	require.Len(t, positions, 2)

	aapl := positions[0]
	assert.Equal(t, "AAPL", aapl.Symbol)
	assert.True(t, aapl.Qty.Equal(d("15")))
	assert.Equal(t, domain.SideBuy, aapl.Side)
	require.NotNil(t, aapl.AvgEntryPrice)
	assert.True(t, aapl.AvgEntryPrice.Equal(d("105")))

	assert.Equal(t, "MSFT", positions[1].Symbol)
}

func TestPortfolioDropsFlatPositions(t *testing.T) {
	now := time.Now().UTC()
	store := &orderStoreStub{orders: []domain.Order{
		fixedOrder("AAPL", domain.SideBuy, "10", "100", domain.OrderStatusFilled, now),
		fixedOrder("AAPL", domain.SideSell, "10", "105", domain.OrderStatusFilled, now),
	}}
	svc := NewReportService(store, d("100000"), discardLogger())

	positions, err := svc.Portfolio(context.Background(), "all")
	require.NoError(t, err)
	assert.Empty(t, positions)
}

func TestAccountSummary(t *testing.T) {
	now := time.Now().UTC()
	store := &orderStoreStub{orders: []domain.Order{
		fixedOrder("AAPL", domain.SideBuy, "10", "100", domain.OrderStatusFilled, now),
	}}
	svc := NewReportService(store, d("100000"), discardLogger())

	account, err := svc.Account(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "USD", account.Currency)
	assert.True(t, account.PortfolioValue.Equal(d("1000")))
	assert.True(t, account.BuyingPower.Equal(d("99000")))
}

func TestHasOrderFilled(t *testing.T) {
	now := time.Now().UTC()
	filled := fixedOrder("AAPL", domain.SideBuy, "10", "100", domain.OrderStatusFilled, now)
	open := fixedOrder("AAPL", domain.SideBuy, "10", "100", domain.OrderStatusNew, now)
	store := &orderStoreStub{orders: []domain.Order{filled, open}}
	svc := NewReportService(store, d("100000"), discardLogger())

	ok, err := svc.HasOrderFilled(context.Background(), filled.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.HasOrderFilled(context.Background(), open.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.HasOrderFilled(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// newsStub serves canned articles.
type newsStub struct {
	articles []alpaca.NewsArticle
	gotSort  string
}

func (n *newsStub) News(_ context.Context, _ []string, _, _ time.Time, sort string) ([]alpaca.NewsArticle, error) {
	n.gotSort = sort
	return n.articles, nil
}

func TestNewsDigest(t *testing.T) {
	now := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	stub := &newsStub{articles: []alpaca.NewsArticle{
		{Headline: "Chips rally", Summary: "Semis up big.", UpdatedAt: now.Add(-2 * time.Hour)},
	}}
	svc := NewNewsService(stub, discardLogger()).WithClock(func() time.Time { return now })

	digest, err := svc.News(context.Background(), []string{"NVDA"}, 1)
	require.NoError(t, err)
	assert.Equal(t, "asc", stub.gotSort)
	assert.Contains(t, digest, "*Chips rally*")
	assert.Contains(t, digest, "2 hours ago")
	assert.Contains(t, digest, "Semis up big.")
}

func TestNewsEmpty(t *testing.T) {
	svc := NewNewsService(&newsStub{}, discardLogger())

	digest, err := svc.News(context.Background(), []string{"NVDA"}, 1)
	require.NoError(t, err)
	assert.Equal(t, "No news found", digest)

	headline, err := svc.LatestHeadline(context.Background(), "NVDA")
	require.NoError(t, err)
	assert.Equal(t, "No headline from the past 4 hours", headline)
}

// scanStub returns a canned scan result.
type scanStub struct {
	result *tvscreener.Result
	gotQ   *tvscreener.Query
}

func (s *scanStub) Scan(_ context.Context, q *tvscreener.Query) (*tvscreener.Result, error) {
	s.gotQ = q
	return s.result, nil
}

func TestSymbolSummaries(t *testing.T) {
	stub := &scanStub{result: &tvscreener.Result{
		TotalCount: 1,
		Columns:    summaryColumns,
		Rows: []tvscreener.Row{{
			Ticker: "NASDAQ:AAPL",
			Values: []any{
				"AAPL", "Apple Inc.", 185.456, 1000000.0, 2.9e12,
				199.62, 164.08, 190.0, 170.0,
				nil, nil, nil, nil,
				185.1, "Electronic Technology", "Technology Services", 0.456, -1.234,
				3.5, 8.1, 1.5e10, 0.2,
				1767139200.0, 0.42,
			},
		}},
	}}
	svc := NewScreenerService(stub, discardLogger())

	out, err := svc.SymbolSummaries(context.Background(), []string{"AAPL"})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)

	header := lines[0]
	assert.Contains(t, header, "last")
	assert.Contains(t, header, "change_from_last_close_%")
	assert.Contains(t, header, "rating")
	assert.Contains(t, header, "market_cap_basic_millions")
	assert.NotContains(t, header, "Recommend.All")
	assert.NotContains(t, header, "market_cap_basic,")

	row := lines[1]
	assert.Contains(t, row, "185.46")    // rounded to two decimals
	assert.Contains(t, row, "N/A")       // nil post/premarket values
	assert.Contains(t, row, "Buy")       // 0.42 folds to Buy
	assert.Contains(t, row, "2900000")   // market cap in millions
	assert.Contains(t, row, "2025-12-31") // earnings timestamp becomes a date
}

func TestFormatTechnicalRating(t *testing.T) {
	assert.Equal(t, "Strong Buy", formatTechnicalRating(0.6))
	assert.Equal(t, "Buy", formatTechnicalRating(0.3))
	assert.Equal(t, "Neutral", formatTechnicalRating(0.0))
	assert.Equal(t, "Sell", formatTechnicalRating(-0.3))
	assert.Equal(t, "Strong Sell", formatTechnicalRating(-0.8))
	assert.Equal(t, "N/A", formatTechnicalRating(nil))
}

func TestSearchColumnsDeduplicates(t *testing.T) {
	svc := NewScreenerService(&scanStub{}, discardLogger())

	cols := svc.SearchColumns([]string{"market_cap", "market_cap"})
	assert.Contains(t, cols, "market_cap_basic")

	seen := map[string]bool{}
	for _, c := range cols {
		assert.False(t, seen[c], "duplicate column %s", c)
		seen[c] = true
	}
}
