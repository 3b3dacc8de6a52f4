// Package server assembles the HTTP API: routing, middleware, and lifecycle.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/quantfold/tradedesk/internal/domain"
	"github.com/quantfold/tradedesk/internal/server/handler"
	"github.com/quantfold/tradedesk/internal/server/middleware"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// RateLimit caps requests per client IP per RateWindow; zero disables
	// limiting.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates all HTTP handlers the server registers.
type Handlers struct {
	Health   *handler.HealthHandler
	Orders   *handler.OrderHandler
	Reports  *handler.ReportHandler
	Bars     *handler.BarHandler
	News     *handler.NewsHandler
	Screener *handler.ScreenerHandler
}

// Server is the HTTP API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered. limiter may be nil
// to disable rate limiting regardless of config.
func NewServer(cfg Config, handlers Handlers, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Order lifecycle.
	mux.HandleFunc("POST /api/orders", handlers.Orders.SubmitOrder)
	mux.HandleFunc("GET /api/orders/open", handlers.Reports.OpenOrders)
	mux.HandleFunc("GET /api/orders/completed", handlers.Reports.CompletedOrders)
	mux.HandleFunc("GET /api/orders/{id}", handlers.Orders.GetOrder)
	mux.HandleFunc("DELETE /api/orders/{id}", handlers.Orders.CancelOrder)
	mux.HandleFunc("PATCH /api/orders/{id}", handlers.Orders.ReplaceOrder)
	mux.HandleFunc("GET /api/orders/{id}/filled", handlers.Reports.OrderFilled)

	// Positions and account.
	mux.HandleFunc("POST /api/positions/{symbol}/close", handlers.Orders.ClosePosition)
	mux.HandleFunc("GET /api/positions", handlers.Reports.Portfolio)
	mux.HandleFunc("GET /api/account", handlers.Reports.Account)

	// Historical bars.
	mux.HandleFunc("GET /api/bars", handlers.Bars.GetBars)
	mux.HandleFunc("GET /api/bars/latest", handlers.Bars.MostRecentBars)

	// News.
	mux.HandleFunc("GET /api/news", handlers.News.News)
	mux.HandleFunc("GET /api/news/{symbol}/headline", handlers.News.LatestHeadline)

	// Screener.
	mux.HandleFunc("POST /api/screener/scan", handlers.Screener.Scan)
	mux.HandleFunc("GET /api/screener/scanners", handlers.Screener.Scanners)
	mux.HandleFunc("GET /api/screener/scanners/{name}", handlers.Screener.ScanNamed)
	mux.HandleFunc("GET /api/screener/columns", handlers.Screener.SearchColumns)
	mux.HandleFunc("GET /api/screener/summaries", handlers.Screener.SymbolSummaries)

	// Build the middleware chain, innermost first.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	if limiter != nil && cfg.RateLimit > 0 {
		window := cfg.RateWindow
		if window <= 0 {
			window = time.Second
		}
		h = middleware.RateLimit(limiter, cfg.RateLimit, window)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
