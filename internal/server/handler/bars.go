package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/quantfold/tradedesk/internal/marketdata"
)

// BarService defines the bar retrieval operations the handler serves.
type BarService interface {
	GetBarsCSV(ctx context.Context, req marketdata.BarRequest) ([]byte, error)
	MostRecentBars(ctx context.Context, symbols []string, unit marketdata.Unit, barSize int, includeOutsideHours bool) (map[string]marketdata.Bar, error)
}

// BarHandler serves historical bar endpoints.
type BarHandler struct {
	bars   BarService
	logger *slog.Logger
}

// NewBarHandler creates a BarHandler.
func NewBarHandler(bars BarService, logger *slog.Logger) *BarHandler {
	return &BarHandler{bars: bars, logger: logger}
}

// GetBars returns historical bars as CSV.
// GET /api/bars?symbol=AAPL&unit=minute&bar_size=5&bars_back=60&indicators=sma_20&truncate_bars=true&include_outside_hours=false
func (h *BarHandler) GetBars(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	unit, err := marketdata.ParseUnit(r.URL.Query().Get("unit"))
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err, "failed to parse unit")
		return
	}

	req := marketdata.BarRequest{
		Symbol:              symbol,
		Unit:                unit,
		BarSize:             queryInt(r, "bar_size", 1),
		BarsBack:            queryInt(r, "bars_back", 0),
		Indicators:          r.URL.Query().Get("indicators"),
		TruncateBars:        queryBool(r, "truncate_bars", true),
		IncludeOutsideHours: queryBool(r, "include_outside_hours", false),
	}

	data, err := h.bars.GetBarsCSV(r.Context(), req)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err, "failed to get bars")
		return
	}
	writeText(w, http.StatusOK, data)
}

// MostRecentBars returns the latest bar per symbol as JSON.
// GET /api/bars/latest?symbols=AAPL,MSFT&unit=hour&bar_size=1
func (h *BarHandler) MostRecentBars(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("symbols")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "symbols is required")
		return
	}
	var symbols []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			symbols = append(symbols, s)
		}
	}

	unit, err := marketdata.ParseUnit(r.URL.Query().Get("unit"))
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err, "failed to parse unit")
		return
	}

	bars, err := h.bars.MostRecentBars(r.Context(), symbols, unit,
		queryInt(r, "bar_size", 1),
		queryBool(r, "include_outside_hours", false))
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err, "failed to get latest bars")
		return
	}
	writeJSON(w, http.StatusOK, bars)
}
