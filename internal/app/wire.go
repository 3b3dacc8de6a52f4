package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	s3blob "github.com/quantfold/tradedesk/internal/blob/s3"
	"github.com/quantfold/tradedesk/internal/broker/sim"
	"github.com/quantfold/tradedesk/internal/cache/redis"
	"github.com/quantfold/tradedesk/internal/config"
	"github.com/quantfold/tradedesk/internal/domain"
	"github.com/quantfold/tradedesk/internal/marketdata"
	"github.com/quantfold/tradedesk/internal/platform/alpaca"
	"github.com/quantfold/tradedesk/internal/platform/tvscreener"
	"github.com/quantfold/tradedesk/internal/service"
	"github.com/quantfold/tradedesk/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency the application needs to
// operate. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	// Stores and caches
	OrderStore  domain.OrderStore
	RateLimiter domain.RateLimiter

	// Health probes, keyed by dependency name.
	Pingers map[string]Pinger

	// Services
	Trading  *sim.TradingClient
	Reports  *service.ReportService
	News     *service.NewsService
	Screener *service.ScreenerService
	Bars     *marketdata.Service

	// Archival; nil unless archive.enabled.
	Archiver *s3blob.Archiver
}

// Pinger is a dependency that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Pingers: map[string]Pinger{},
	}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	orderStore := postgres.NewOrderStore(pgClient.Pool())
	deps.OrderStore = orderStore
	deps.Pingers["postgres"] = pgClient

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.Pingers["redis"] = redisClient

	// --- Market data ---
	alpacaClient := alpaca.NewClient(cfg.Alpaca.BaseURL, cfg.Alpaca.ApiKey, cfg.Alpaca.ApiSecret)
	barCache := redis.NewBarCache(redisClient)
	deps.Bars = marketdata.NewService(alpacaClient, barCache, cfg.MarketData.CacheTTL.Duration, logger)
	deps.News = service.NewNewsService(alpacaClient, logger)

	// --- Screener ---
	screenerClient := tvscreener.NewClient(cfg.Screener.BaseURL)
	deps.Screener = service.NewScreenerService(screenerClient, logger)

	// --- Simulated trading ---
	startingCash, err := decimal.NewFromString(cfg.Trading.StartingCash)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: trading starting_cash: %w", err)
	}
	deps.Trading = sim.NewTradingClient(orderStore, logger)
	deps.Reports = service.NewReportService(orderStore, startingCash, logger)

	// --- S3 archival (optional) ---
	if cfg.Archive.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), orderStore, logger)
	}

	return deps, cleanup, nil
}
