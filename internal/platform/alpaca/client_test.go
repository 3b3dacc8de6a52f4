package alpaca

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/tradedesk/internal/domain"
	"github.com/quantfold/tradedesk/internal/marketdata"
)

func TestBarsFollowsPagination(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "key", r.Header.Get("APCA-API-KEY-ID"))
		assert.Equal(t, "secret", r.Header.Get("APCA-API-SECRET-KEY"))
		assert.Equal(t, "/v2/stocks/AAPL/bars", r.URL.Path)
		assert.Equal(t, "5Min", r.URL.Query().Get("timeframe"))
		assert.Equal(t, "all", r.URL.Query().Get("adjustment"))
		assert.Equal(t, "sip", r.URL.Query().Get("feed"))

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page_token") == "" {
			next := "tok"
			json.NewEncoder(w).Encode(barsResponse{
				Bars: []barPayload{
					{Time: time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100},
				},
				NextPageToken: &next,
			})
			return
		}
		assert.Equal(t, "tok", r.URL.Query().Get("page_token"))
		json.NewEncoder(w).Encode(barsResponse{
			Bars: []barPayload{
				{Time: time.Date(2026, 3, 2, 14, 35, 0, 0, time.UTC), Open: 1.5, High: 2.5, Low: 1, Close: 2, Volume: 200},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key", "secret")
	bars, err := client.Bars(context.Background(), marketdata.BarQuery{
		Symbol:    "AAPL",
		Timeframe: marketdata.Timeframe{Amount: 5, Unit: marketdata.UnitMinute},
		Start:     time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC),
		End:       time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 2, calls)
	assert.Equal(t, int64(200), bars[1].Volume)
}

func TestBarsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key", "secret")
	_, err := client.Bars(context.Background(), marketdata.BarQuery{
		Symbol:    "AAPL",
		Timeframe: marketdata.Timeframe{Amount: 1, Unit: marketdata.UnitDaily},
	})
	assert.ErrorIs(t, err, domain.ErrUpstream)
}

func TestNews(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta1/news", r.URL.Path)
		assert.Equal(t, "AAPL,MSFT", r.URL.Query().Get("symbols"))
		assert.Equal(t, "asc", r.URL.Query().Get("sort"))

		json.NewEncoder(w).Encode(newsResponse{
			News: []NewsArticle{{ID: 1, Headline: "earnings beat", Symbols: []string{"AAPL"}}},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key", "secret")
	articles, err := client.News(context.Background(),
		[]string{"AAPL", "MSFT"},
		time.Now().Add(-24*time.Hour), time.Now(), "asc")
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "earnings beat", articles[0].Headline)
}
