package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/quantfold/tradedesk/internal/domain"
)

// TradingService defines the methods the order handler requires from the
// trading client.
type TradingService interface {
	SubmitOrder(ctx context.Context, spec domain.OrderSpec) (domain.OrderAck, error)
	GetOrder(ctx context.Context, id uuid.UUID) (domain.OrderAck, error)
	CancelOrder(ctx context.Context, id uuid.UUID) (domain.OrderAck, error)
	ReplaceOrder(ctx context.Context, id uuid.UUID, spec domain.ReplaceSpec) (domain.ReplaceAck, error)
	ClosePosition(ctx context.Context, instrument string, req domain.CloseRequest) error
}

// OrderHandler serves the order lifecycle endpoints.
type OrderHandler struct {
	trading TradingService
	logger  *slog.Logger
}

// NewOrderHandler creates an OrderHandler.
func NewOrderHandler(trading TradingService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{trading: trading, logger: logger}
}

// SubmitOrder creates a new order from the JSON order specification.
// POST /api/orders
func (h *OrderHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var spec domain.OrderSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if spec.Symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	ack, err := h.trading.SubmitOrder(r.Context(), spec)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err, "failed to submit order")
		return
	}
	writeJSON(w, http.StatusCreated, ack)
}

// GetOrder returns the current acknowledgement for an order.
// GET /api/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	ack, err := h.trading.GetOrder(r.Context(), id)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err, "failed to get order")
		return
	}
	writeJSON(w, http.StatusOK, ack)
}

// CancelOrder cancels an order by id.
// DELETE /api/orders/{id}
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	ack, err := h.trading.CancelOrder(r.Context(), id)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err, "failed to cancel order")
		return
	}
	writeJSON(w, http.StatusOK, ack)
}

// ReplaceOrder cancels the order and resubmits it with the supplied
// overrides.
// PATCH /api/orders/{id}
func (h *OrderHandler) ReplaceOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	var spec domain.ReplaceSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	ack, err := h.trading.ReplaceOrder(r.Context(), id, spec)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err, "failed to replace order")
		return
	}
	writeJSON(w, http.StatusOK, ack)
}

// ClosePosition liquidates the position for a symbol.
// POST /api/positions/{symbol}/close
func (h *OrderHandler) ClosePosition(w http.ResponseWriter, r *http.Request) {
	symbol := pathParam(r, "symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "missing symbol")
		return
	}

	req := domain.CloseRequest{Percentage: "100"}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	if err := h.trading.ClosePosition(r.Context(), symbol, req); err != nil {
		writeDomainError(r.Context(), w, h.logger, err, "failed to close position")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed", "symbol": symbol})
}

func orderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(pathParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return uuid.Nil, false
	}
	return id, true
}
