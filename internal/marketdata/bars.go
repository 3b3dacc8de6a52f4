// Package marketdata retrieves historical bars, filters them to the regular
// trading session, and decorates them with technical indicators. The upstream
// serves bars on a wall-clock calendar, so requests are widened over the
// business calendar and over-fetched, then filtered and truncated down to the
// caller's window.
package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quantfold/tradedesk/internal/domain"
	"github.com/quantfold/tradedesk/internal/indicator"
)

// Session-hours filtering discards roughly 17.5 of every 24 wall-clock hours,
// so intraday fetches are widened before the first attempt.
const (
	minuteFillFactor = 3.7
	hourFillFactor   = 4
)

// BarQuery is the widened request sent upstream.
type BarQuery struct {
	Symbol    string
	Timeframe Timeframe
	Start     time.Time
	End       time.Time

	// AsOf pins symbology to a date, set for daily and coarser bars.
	AsOf string
}

// BarSource fetches raw bars from the upstream data provider.
type BarSource interface {
	Bars(ctx context.Context, q BarQuery) ([]Bar, error)
}

// Cache stores rendered bar responses keyed by request.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// BarRequest is a caller-facing bar retrieval request.
type BarRequest struct {
	Symbol string
	Unit   Unit

	// BarSize is the interval each bar spans, in Unit multiples.
	BarSize int

	// BarsBack is the number of trailing bars wanted; zero selects a
	// unit-specific default.
	BarsBack int

	// Indicators is a comma-separated list of indicator specs.
	Indicators string

	// TruncateBars trims the response to exactly BarsBack trailing rows.
	TruncateBars bool

	// IncludeOutsideHours keeps pre-market and post-market bars.
	IncludeOutsideHours bool
}

// cacheKey folds every request field that affects the response.
func (r BarRequest) cacheKey() string {
	return fmt.Sprintf("bars:%s:%s:%d:%d:%s:%t:%t",
		r.Symbol, r.Unit, r.BarSize, r.BarsBack,
		r.Indicators, r.TruncateBars, r.IncludeOutsideHours)
}

// Service is the bar retrieval pipeline.
type Service struct {
	source   BarSource
	cache    Cache
	logger   *slog.Logger
	cacheTTL time.Duration
	now      func() time.Time
}

// NewService creates a bar Service. cache may be nil to disable response
// caching.
func NewService(source BarSource, cache Cache, cacheTTL time.Duration, logger *slog.Logger) *Service {
	return &Service{
		source:   source,
		cache:    cache,
		logger:   logger.With(slog.String("component", "marketdata")),
		cacheTTL: cacheTTL,
		now:      func() time.Time { return time.Now().In(eastern) },
	}
}

// WithClock overrides the service clock. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// GetBars runs the retrieval pipeline and returns the resulting frame.
//
// The fetch window is widened three ways before hitting the upstream: by the
// indicator warmup so the visible rows have valid values, by the session fill
// factor when outside-hours bars will be filtered away, and by the business
// calendar walk in WindowStart. If filtering still leaves fewer rows than
// requested, the fetch is retried once with a ten-fold window; a persistent
// shortfall is returned as-is with a warning.
func (s *Service) GetBars(ctx context.Context, req BarRequest) (*Frame, error) {
	if req.BarSize < 1 {
		return nil, fmt.Errorf("marketdata: bar size %d: %w", req.BarSize, domain.ErrValidation)
	}

	specs, err := indicator.ParseList(req.Indicators)
	if err != nil {
		return nil, err
	}
	warmup := indicator.MaxWarmup(specs)

	requested := req.BarsBack
	if requested <= 0 {
		requested = DefaultBarsBack(req.Unit, req.BarSize)
	}
	fetchBack := requested + warmup

	filterSession := !req.IncludeOutsideHours && req.Unit.Intraday()
	tf := Resolve(req.Unit, req.BarSize)
	now := s.now().In(eastern)

	var bars []Bar
	for attempt := 0; ; attempt++ {
		adjusted := fetchBack
		if filterSession {
			if req.Unit == UnitMinute {
				adjusted = int(float64(fetchBack) * minuteFillFactor)
			} else {
				adjusted = fetchBack * hourFillFactor
			}
		}

		q := BarQuery{
			Symbol:    req.Symbol,
			Timeframe: tf,
			Start:     WindowStart(now, req.Unit, req.BarSize, adjusted),
			End:       now,
		}
		if !tf.Unit.Intraday() {
			q.AsOf = now.Format("2006-01-02")
		}

		raw, err := s.source.Bars(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("marketdata: fetch bars for %s: %w", req.Symbol, err)
		}

		bars = rebase(raw)
		if filterSession {
			bars = filterRegularHours(bars)
		}

		if len(bars) < requested && filterSession && attempt == 0 {
			s.logger.InfoContext(ctx, "bar shortfall after session filter, widening window",
				slog.String("symbol", req.Symbol),
				slog.Int("got", len(bars)),
				slog.Int("want", requested),
			)
			fetchBack = requested*10 + warmup
			continue
		}
		break
	}

	if len(bars) < requested {
		s.logger.WarnContext(ctx, "returning fewer bars than requested",
			slog.String("symbol", req.Symbol),
			slog.String("unit", string(req.Unit)),
			slog.Int("bar_size", req.BarSize),
			slog.Int("got", len(bars)),
			slog.Int("want", requested),
		)
	}

	frame := &Frame{Bars: bars}
	if len(specs) > 0 {
		frame.Indicators = indicator.ComputeAll(specs, frame.Series())
	}
	if req.TruncateBars {
		frame.truncate(requested)
	}
	return frame, nil
}

// GetBarsCSV returns the frame rendered as delimited text, served from the
// response cache when possible. Cache failures degrade to a direct fetch.
func (s *Service) GetBarsCSV(ctx context.Context, req BarRequest) ([]byte, error) {
	key := req.cacheKey()
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil && data != nil {
			return data, nil
		}
	}

	frame, err := s.GetBars(ctx, req)
	if err != nil {
		return nil, err
	}

	data := frame.CSV()
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
			s.logger.WarnContext(ctx, "bar cache write failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
	return data, nil
}

// MostRecentBars fetches the latest bar for each symbol concurrently and
// returns them keyed by symbol.
func (s *Service) MostRecentBars(ctx context.Context, symbols []string, unit Unit, barSize int, includeOutsideHours bool) (map[string]Bar, error) {
	latest := make([]Bar, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	for i, symbol := range symbols {
		g.Go(func() error {
			frame, err := s.GetBars(gctx, BarRequest{
				Symbol:              symbol,
				Unit:                unit,
				BarSize:             barSize,
				BarsBack:            1,
				TruncateBars:        false,
				IncludeOutsideHours: includeOutsideHours,
			})
			if err != nil {
				return err
			}
			bar, ok := frame.Last()
			if !ok {
				return fmt.Errorf("marketdata: no bars for %s: %w", symbol, domain.ErrNotFound)
			}
			latest[i] = bar
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]Bar, len(symbols))
	for i, symbol := range symbols {
		out[symbol] = latest[i]
	}
	return out, nil
}

// rebase converts upstream UTC bar timestamps into exchange-local wall time.
func rebase(bars []Bar) []Bar {
	for i := range bars {
		bars[i].Time = bars[i].Time.In(eastern)
	}
	return bars
}
