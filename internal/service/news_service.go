package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/quantfold/tradedesk/internal/platform/alpaca"
)

// newsAPI is the slice of the market data client the news service needs.
type newsAPI interface {
	News(ctx context.Context, symbols []string, start, end time.Time, sort string) ([]alpaca.NewsArticle, error)
}

// headlineWindow is how far back the latest-headline lookup reaches.
const headlineWindow = 4 * time.Hour

// NewsService retrieves and formats market news.
type NewsService struct {
	api    newsAPI
	logger *slog.Logger
	now    func() time.Time
}

// NewNewsService creates a NewsService.
func NewNewsService(api newsAPI, logger *slog.Logger) *NewsService {
	return &NewsService{
		api:    api,
		logger: logger.With(slog.String("component", "news")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock. Intended for tests.
func (s *NewsService) WithClock(now func() time.Time) *NewsService {
	s.now = now
	return s
}

// News returns the articles mentioning the symbols from the past daysBack
// days, oldest first, as a readable digest.
func (s *NewsService) News(ctx context.Context, symbols []string, daysBack int) (string, error) {
	if daysBack < 1 {
		daysBack = 1
	}
	now := s.now()

	articles, err := s.api.News(ctx, symbols, now.AddDate(0, 0, -daysBack), now, "asc")
	if err != nil {
		return "", fmt.Errorf("news: fetch: %w", err)
	}
	if len(articles) == 0 {
		return "No news found", nil
	}

	var b strings.Builder
	for _, a := range articles {
		fmt.Fprintf(&b, "*%s*\n%s\n%s\n\n", a.Headline, timeAgo(now, a.UpdatedAt), a.Summary)
	}
	return b.String(), nil
}

// LatestHeadline returns the most recent headline for the symbol from the
// past four hours.
func (s *NewsService) LatestHeadline(ctx context.Context, symbol string) (string, error) {
	now := s.now()

	articles, err := s.api.News(ctx, []string{symbol}, now.Add(-headlineWindow), now, "desc")
	if err != nil {
		return "", fmt.Errorf("news: latest headline: %w", err)
	}
	if len(articles) == 0 {
		return "No headline from the past 4 hours", nil
	}

	return fmt.Sprintf("*%s*\n%s", articles[0].Headline, timeAgo(now, articles[0].UpdatedAt)), nil
}

// timeAgo renders how long before now t happened, in the largest sensible
// unit.
func timeAgo(now, t time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}

	switch {
	case d < time.Minute:
		return plural(int(d.Seconds()), "second")
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute")
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour")
	default:
		return plural(int(d.Hours()/24), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
