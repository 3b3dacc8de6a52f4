package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/quantfold/tradedesk/internal/domain"
	"github.com/quantfold/tradedesk/internal/service"
)

// ReportService defines the read-only order book views the handler serves.
type ReportService interface {
	OpenOrders(ctx context.Context, instrument string) ([]domain.Order, error)
	CompletedOrders(ctx context.Context, instrument string) ([]domain.Order, error)
	HasOrderFilled(ctx context.Context, id uuid.UUID) (bool, error)
	Portfolio(ctx context.Context, symbol string) ([]service.Position, error)
	Account(ctx context.Context) (service.AccountSummary, error)
}

// ReportHandler serves order book and account reporting endpoints.
type ReportHandler struct {
	reports ReportService
	logger  *slog.Logger
}

// NewReportHandler creates a ReportHandler.
func NewReportHandler(reports ReportService, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, logger: logger}
}

func symbolFilter(r *http.Request) string {
	if s := r.URL.Query().Get("symbol"); s != "" {
		return s
	}
	return "all"
}

// OpenOrders lists working orders.
// GET /api/orders/open?symbol=AAPL
func (h *ReportHandler) OpenOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.reports.OpenOrders(r.Context(), symbolFilter(r))
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err, "failed to list open orders")
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// CompletedOrders lists recently completed orders.
// GET /api/orders/completed?symbol=AAPL
func (h *ReportHandler) CompletedOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.reports.CompletedOrders(r.Context(), symbolFilter(r))
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err, "failed to list completed orders")
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// OrderFilled reports whether an order has filled.
// GET /api/orders/{id}/filled
func (h *ReportHandler) OrderFilled(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	filled, err := h.reports.HasOrderFilled(r.Context(), id)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err, "failed to check order fill")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "filled": filled})
}

// Portfolio lists current positions.
// GET /api/positions?symbol=all
func (h *ReportHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	positions, err := h.reports.Portfolio(r.Context(), symbolFilter(r))
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err, "failed to build portfolio")
		return
	}
	if positions == nil {
		positions = []service.Position{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"positions": positions})
}

// Account returns the simulated account summary.
// GET /api/account
func (h *ReportHandler) Account(w http.ResponseWriter, r *http.Request) {
	account, err := h.reports.Account(r.Context())
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err, "failed to build account summary")
		return
	}
	writeJSON(w, http.StatusOK, account)
}
