// Package sim implements a simulated brokerage trading client backed by the
// order store. It mirrors a real broker client's order lifecycle surface but
// performs no matching: filled is a manual terminal status reached only
// through ClosePosition, never through market price movement.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/quantfold/tradedesk/internal/domain"
)

// TradingClient is the simulated order state machine.
type TradingClient struct {
	orders domain.OrderStore
	logger *slog.Logger
	now    func() time.Time
}

// NewTradingClient creates a TradingClient over the given store.
func NewTradingClient(orders domain.OrderStore, logger *slog.Logger) *TradingClient {
	return &TradingClient{
		orders: orders,
		logger: logger.With(slog.String("component", "sim")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the client's clock. Intended for tests.
func (c *TradingClient) WithClock(now func() time.Time) *TradingClient {
	c.now = now
	return c
}

// buildOrder materializes an order from a spec. The entry price is taken from
// the limit price only for limit orders; every other type persists null.
func (c *TradingClient) buildOrder(spec domain.OrderSpec) domain.Order {
	entryPrice := spec.LimitPrice
	if spec.Type != domain.OrderTypeLimit {
		entryPrice = nil
	}

	class := spec.Class
	if class == "" {
		class = domain.OrderClassSimple
	}

	ts := c.now()
	return domain.Order{
		ID:              uuid.New(),
		Instrument:      spec.Symbol,
		Quantity:        spec.Qty,
		Side:            spec.Side,
		EntryPrice:      entryPrice,
		TakeProfitPrice: spec.TakeProfit,
		StopLossPrice:   spec.StopLoss,
		Type:            spec.Type,
		Class:           class,
		TimeInForce:     spec.TimeInForce,
		Status:          domain.OrderStatusNew,
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
}

// SubmitOrder persists a new order from the spec. Acceptance is unconditional.
func (c *TradingClient) SubmitOrder(ctx context.Context, spec domain.OrderSpec) (domain.OrderAck, error) {
	order := c.buildOrder(spec)
	if err := c.orders.Create(ctx, order); err != nil {
		return domain.OrderAck{}, fmt.Errorf("sim: submit order: %w", err)
	}

	c.logger.InfoContext(ctx, "order submitted",
		slog.String("order_id", order.ID.String()),
		slog.String("instrument", order.Instrument),
		slog.String("side", string(order.Side)),
		slog.String("type", string(order.Type)),
	)
	return domain.OrderAck{Status: order.Status, ID: order.ID}, nil
}

// GetOrder fetches an order by id.
func (c *TradingClient) GetOrder(ctx context.Context, id uuid.UUID) (domain.OrderAck, error) {
	order, err := c.orders.GetByID(ctx, id)
	if err != nil {
		return domain.OrderAck{}, fmt.Errorf("sim: get order %s: %w", id, err)
	}
	return domain.OrderAck{Status: order.Status, ID: order.ID}, nil
}

// CancelOrder marks an order canceled. Canceling an already-canceled order
// succeeds silently; only a missing order fails.
func (c *TradingClient) CancelOrder(ctx context.Context, id uuid.UUID) (domain.OrderAck, error) {
	order, err := c.orders.GetByID(ctx, id)
	if err != nil {
		return domain.OrderAck{}, fmt.Errorf("sim: cancel order %s: %w", id, err)
	}

	if err := c.orders.UpdateStatus(ctx, order.ID, domain.OrderStatusCanceled); err != nil {
		return domain.OrderAck{}, fmt.Errorf("sim: cancel order %s: %w", id, err)
	}

	c.logger.InfoContext(ctx, "order canceled",
		slog.String("order_id", order.ID.String()),
	)
	return domain.OrderAck{Status: domain.OrderStatusCanceled, ID: order.ID}, nil
}

// buildReplacement synthesizes the replacement order spec. Symbol, side, type,
// class, and (absent overrides) qty/time-in-force/limit price come from the
// existing order. The take profit is always inherited from the existing order;
// the stop loss comes only from the replace request.
func buildReplacement(existing domain.Order, spec domain.ReplaceSpec) domain.OrderSpec {
	out := domain.OrderSpec{
		Symbol:      existing.Instrument,
		Qty:         existing.Quantity,
		Side:        existing.Side,
		Type:        existing.Type,
		Class:       existing.Class,
		TimeInForce: existing.TimeInForce,
		LimitPrice:  existing.EntryPrice,
		TakeProfit:  existing.TakeProfitPrice,
	}

	if spec.Qty != nil {
		out.Qty = *spec.Qty
	}
	if spec.TimeInForce != nil {
		out.TimeInForce = *spec.TimeInForce
	}
	if spec.LimitPrice != nil {
		out.LimitPrice = spec.LimitPrice
	}
	if spec.StopPrice != nil {
		out.StopLoss = spec.StopPrice
	}
	return out
}

// ReplaceOrder cancels the existing order and creates a brand-new one carrying
// the merged terms. A canceled order can never be replaced.
func (c *TradingClient) ReplaceOrder(ctx context.Context, id uuid.UUID, spec domain.ReplaceSpec) (domain.ReplaceAck, error) {
	existing, err := c.orders.GetByID(ctx, id)
	if err != nil {
		return domain.ReplaceAck{}, fmt.Errorf("sim: replace order %s: %w", id, err)
	}
	if existing.Status == domain.OrderStatusCanceled {
		return domain.ReplaceAck{}, fmt.Errorf("sim: replace order %s: %w", id, domain.ErrOrderCanceled)
	}

	replacement := c.buildOrder(buildReplacement(existing, spec))
	if err := c.orders.Replace(ctx, existing.ID, replacement); err != nil {
		return domain.ReplaceAck{}, fmt.Errorf("sim: replace order %s: %w", id, err)
	}

	c.logger.InfoContext(ctx, "order replaced",
		slog.String("old_order_id", existing.ID.String()),
		slog.String("new_order_id", replacement.ID.String()),
	)

	return domain.ReplaceAck{
		Status:     replacement.Status,
		ID:         replacement.ID,
		Qty:        replacement.Quantity,
		LimitPrice: replacement.EntryPrice,
		StopPrice:  replacement.StopLossPrice,
	}, nil
}

// ClosePosition liquidates the position for an instrument by bulk-marking its
// new orders filled. Partial closes are not supported in simulation: the
// request percentage must be exactly "100".
func (c *TradingClient) ClosePosition(ctx context.Context, instrument string, req domain.CloseRequest) error {
	if req.Percentage != "100" {
		return fmt.Errorf("sim: close position %s: %w", instrument, domain.ErrPartialClose)
	}

	n, err := c.orders.CloseMatching(ctx, instrument)
	if err != nil {
		return fmt.Errorf("sim: close position %s: %w", instrument, err)
	}

	c.logger.InfoContext(ctx, "position closed",
		slog.String("instrument", instrument),
		slog.Int64("orders_filled", n),
	)
	return nil
}
