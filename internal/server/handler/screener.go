package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/quantfold/tradedesk/internal/platform/tvscreener"
)

// ScreenerService defines the screening operations the handler serves.
type ScreenerService interface {
	Scan(ctx context.Context, q *tvscreener.Query) (string, error)
	ScanNamed(ctx context.Context, name string, limit int) (string, error)
	SearchColumns(terms []string) []string
	SymbolSummaries(ctx context.Context, symbols []string) (string, error)
}

// ScreenerHandler serves stock screening endpoints.
type ScreenerHandler struct {
	screener ScreenerService
	logger   *slog.Logger
}

// NewScreenerHandler creates a ScreenerHandler.
func NewScreenerHandler(screener ScreenerService, logger *slog.Logger) *ScreenerHandler {
	return &ScreenerHandler{screener: screener, logger: logger}
}

// scanRequest is the JSON form of a screener query.
type scanRequest struct {
	Columns []string            `json:"columns"`
	Filters []tvscreener.Filter `json:"filters"`
	OrderBy *struct {
		Column    string `json:"column"`
		Ascending bool   `json:"ascending"`
	} `json:"order_by"`
	Limit int `json:"limit"`
}

// Scan runs a caller-composed screen and returns the rows as CSV.
// POST /api/screener/scan
func (h *ScreenerHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	q := tvscreener.NewQuery()
	if len(req.Columns) > 0 {
		q.Select(req.Columns...)
	}
	if len(req.Filters) > 0 {
		q.Where(req.Filters...)
	}
	if req.OrderBy != nil {
		q.OrderBy(req.OrderBy.Column, req.OrderBy.Ascending)
	}
	if req.Limit > 0 {
		q.Limit(req.Limit)
	}

	out, err := h.screener.Scan(r.Context(), q)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err, "failed to run scan")
		return
	}
	writeText(w, http.StatusOK, []byte(out))
}

// Scanners lists the built-in scanner names.
// GET /api/screener/scanners
func (h *ScreenerHandler) Scanners(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"scanners": tvscreener.ScannerNames()})
}

// ScanNamed runs a built-in scanner list.
// GET /api/screener/scanners/{name}?limit=25
func (h *ScreenerHandler) ScanNamed(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing scanner name")
		return
	}

	out, err := h.screener.ScanNamed(r.Context(), name, queryInt(r, "limit", 0))
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err, "failed to run scanner")
		return
	}
	writeText(w, http.StatusOK, []byte(out))
}

// SearchColumns finds screener columns by substring.
// GET /api/screener/columns?search=market_cap&search=change
func (h *ScreenerHandler) SearchColumns(w http.ResponseWriter, r *http.Request) {
	terms := r.URL.Query()["search"]
	if len(terms) == 0 {
		writeError(w, http.StatusBadRequest, "at least one search term is required")
		return
	}

	columns := h.screener.SearchColumns(terms)
	if len(columns) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{
			"columns": []string{},
			"message": "No columns found, try a different search query",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"columns": columns})
}

// SymbolSummaries returns key metrics for the symbols as CSV.
// GET /api/screener/summaries?symbols=AAPL,MSFT
func (h *ScreenerHandler) SymbolSummaries(w http.ResponseWriter, r *http.Request) {
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

	out, err := h.screener.SymbolSummaries(r.Context(), symbols)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err, "failed to build summaries")
		return
	}
	writeText(w, http.StatusOK, []byte(out))
}
