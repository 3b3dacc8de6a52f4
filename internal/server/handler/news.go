package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// NewsService defines the news operations the handler serves.
type NewsService interface {
	News(ctx context.Context, symbols []string, daysBack int) (string, error)
	LatestHeadline(ctx context.Context, symbol string) (string, error)
}

// NewsHandler serves market news endpoints.
type NewsHandler struct {
	news   NewsService
	logger *slog.Logger
}

// NewNewsHandler creates a NewsHandler.
func NewNewsHandler(news NewsService, logger *slog.Logger) *NewsHandler {
	return &NewsHandler{news: news, logger: logger}
}

// News returns a digest of recent articles for the symbols.
// GET /api/news?symbols=AAPL,MSFT&days_back=1
func (h *NewsHandler) News(w http.ResponseWriter, r *http.Request) {
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

	digest, err := h.news.News(r.Context(), symbols, queryInt(r, "days_back", 1))
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err, "failed to get news")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"news": digest})
}

// LatestHeadline returns the most recent headline for a symbol.
// GET /api/news/{symbol}/headline
func (h *NewsHandler) LatestHeadline(w http.ResponseWriter, r *http.Request) {
	symbol := pathParam(r, "symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "missing symbol")
		return
	}

	headline, err := h.news.LatestHeadline(r.Context(), symbol)
	if err != nil {
		writeDomainError(r.Context(), w, h.logger, err, "failed to get headline")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"headline": headline})
}
