// Package service holds the application services behind the HTTP handlers:
// order reporting, screener access, and news retrieval.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quantfold/tradedesk/internal/domain"
)

// openStatuses are the order states still working the book.
var openStatuses = []domain.OrderStatus{
	domain.OrderStatusNew,
	domain.OrderStatusAccepted,
	domain.OrderStatusHeld,
}

// completedStatuses are the states reported by the completed-orders view.
var completedStatuses = []domain.OrderStatus{
	domain.OrderStatusFilled,
	domain.OrderStatusHeld,
}

// completedWindow bounds the completed-orders report to the recent session.
const completedWindow = 24 * time.Hour

// Position is an aggregate holding derived from filled orders.
type Position struct {
	Symbol        string           `json:"symbol"`
	Qty           decimal.Decimal  `json:"qty"`
	Side          domain.Side      `json:"side"`
	AvgEntryPrice *decimal.Decimal `json:"avg_entry_price,omitempty"`
	MarketValue   *decimal.Decimal `json:"market_value,omitempty"`
}

// AccountSummary is the simulated account's headline numbers.
type AccountSummary struct {
	AccountID      string          `json:"account_id"`
	Status         string          `json:"status"`
	Currency       string          `json:"currency"`
	Equity         decimal.Decimal `json:"equity"`
	BuyingPower    decimal.Decimal `json:"buying_power"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
}

// ReportService builds read-only views over the order book.
type ReportService struct {
	orders       domain.OrderStore
	logger       *slog.Logger
	startingCash decimal.Decimal
	accountID    string
	now          func() time.Time
}

// NewReportService creates a ReportService. startingCash seeds the simulated
// account's buying power.
func NewReportService(orders domain.OrderStore, startingCash decimal.Decimal, logger *slog.Logger) *ReportService {
	return &ReportService{
		orders:       orders,
		logger:       logger.With(slog.String("component", "reports")),
		startingCash: startingCash,
		accountID:    uuid.NewString(),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock. Intended for tests.
func (s *ReportService) WithClock(now func() time.Time) *ReportService {
	s.now = now
	return s
}

// OpenOrders returns working orders for the instrument, newest first.
// instrument "all" spans the whole book.
func (s *ReportService) OpenOrders(ctx context.Context, instrument string) ([]domain.Order, error) {
	orders, err := s.orders.ListByStatus(ctx, instrument, openStatuses)
	if err != nil {
		return nil, fmt.Errorf("reports: open orders: %w", err)
	}
	return orders, nil
}

// CompletedOrders returns orders that reached a reportable completed state in
// the last 24 hours.
func (s *ReportService) CompletedOrders(ctx context.Context, instrument string) ([]domain.Order, error) {
	orders, err := s.orders.ListByStatus(ctx, instrument, completedStatuses)
	if err != nil {
		return nil, fmt.Errorf("reports: completed orders: %w", err)
	}

	cutoff := s.now().Add(-completedWindow)
	recent := orders[:0:0]
	for _, o := range orders {
		if o.UpdatedAt.After(cutoff) {
			recent = append(recent, o)
		}
	}
	return recent, nil
}

// HasOrderFilled reports whether the order has filled. Fills are all-or-none
// in simulation, so this is a pure status check.
func (s *ReportService) HasOrderFilled(ctx context.Context, id uuid.UUID) (bool, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("reports: order filled %s: %w", id, err)
	}
	return order.Status == domain.OrderStatusFilled, nil
}

// Portfolio aggregates filled orders into per-instrument positions. Buys add
// to the position, sells subtract; flat positions are dropped. symbol "all"
// spans the whole book.
func (s *ReportService) Portfolio(ctx context.Context, symbol string) ([]Position, error) {
	filled, err := s.orders.ListByStatus(ctx, symbol, []domain.OrderStatus{domain.OrderStatusFilled})
	if err != nil {
		return nil, fmt.Errorf("reports: portfolio: %w", err)
	}

	type accum struct {
		qty       decimal.Decimal
		cost      decimal.Decimal
		pricedQty decimal.Decimal
	}
	byInstrument := make(map[string]*accum)
	for _, o := range filled {
		a := byInstrument[o.Instrument]
		if a == nil {
			a = &accum{}
			byInstrument[o.Instrument] = a
		}

		qty := o.Quantity
		if o.Side == domain.SideSell {
			qty = qty.Neg()
		}
		a.qty = a.qty.Add(qty)

		if o.EntryPrice != nil {
			a.cost = a.cost.Add(o.EntryPrice.Mul(o.Quantity))
			a.pricedQty = a.pricedQty.Add(o.Quantity)
		}
	}

	positions := make([]Position, 0, len(byInstrument))
	for instrument, a := range byInstrument {
		if a.qty.IsZero() {
			continue
		}

		pos := Position{Symbol: instrument, Qty: a.qty.Abs(), Side: domain.SideBuy}
		if a.qty.IsNegative() {
			pos.Side = domain.SideSell
		}
		if a.pricedQty.IsPositive() {
			avg := a.cost.Div(a.pricedQty)
			pos.AvgEntryPrice = &avg
			mv := avg.Mul(pos.Qty)
			pos.MarketValue = &mv
		}
		positions = append(positions, pos)
	}

	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Symbol < positions[j].Symbol
	})
	return positions, nil
}

// Account summarizes the simulated account: portfolio value marked at entry
// prices, with buying power as the remaining starting cash.
func (s *ReportService) Account(ctx context.Context) (AccountSummary, error) {
	positions, err := s.Portfolio(ctx, "all")
	if err != nil {
		return AccountSummary{}, err
	}

	portfolioValue := decimal.Zero
	for _, p := range positions {
		if p.MarketValue != nil {
			portfolioValue = portfolioValue.Add(*p.MarketValue)
		}
	}

	buyingPower := s.startingCash.Sub(portfolioValue)
	if buyingPower.IsNegative() {
		buyingPower = decimal.Zero
	}

	return AccountSummary{
		AccountID:      s.accountID,
		Status:         "ACTIVE",
		Currency:       "USD",
		Equity:         s.startingCash,
		BuyingPower:    buyingPower,
		PortfolioValue: portfolioValue,
	}, nil
}
