package marketdata

import (
	"context"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/tradedesk/internal/indicator"
)

type fakeSource struct {
	calls   int
	queries []BarQuery
	fn      func(q BarQuery) []Bar
}

func (f *fakeSource) Bars(_ context.Context, q BarQuery) ([]Bar, error) {
	f.calls++
	f.queries = append(f.queries, q)
	if f.fn == nil {
		return nil, nil
	}
	return f.fn(q), nil
}

// minuteBars emits one bar per minute across the query window, on the wall
// clock with no session awareness.
func minuteBars(q BarQuery) []Bar {
	var out []Bar
	i := 0
	for t := q.Start; !t.After(q.End); t = t.Add(time.Minute) {
		out = append(out, Bar{
			Time:   t.UTC(),
			Open:   100 + float64(i),
			High:   101 + float64(i),
			Low:    99 + float64(i),
			Close:  100.5 + float64(i),
			Volume: 1000,
		})
		i++
	}
	return out
}

// mondayMorning is a regular session moment: Monday 2026-03-02 10:00 Eastern.
var mondayMorning = time.Date(2026, 3, 2, 10, 0, 0, 0, eastern)

func testService(source BarSource) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(source, nil, 0, logger)
	return svc.WithClock(func() time.Time { return mondayMorning })
}

func TestGetBarsFiltersAndTruncates(t *testing.T) {
	source := &fakeSource{fn: minuteBars}
	svc := testService(source)

	frame, err := svc.GetBars(context.Background(), BarRequest{
		Symbol:       "AAPL",
		Unit:         UnitMinute,
		BarSize:      1,
		BarsBack:     5,
		TruncateBars: true,
	})
	require.NoError(t, err)
	require.Len(t, frame.Bars, 5)

	for _, b := range frame.Bars {
		assert.True(t, InRegularHours(b.Time), "bar at %s outside session", b.Time)
	}

	last, ok := frame.Last()
	require.True(t, ok)
	assert.True(t, last.Time.Equal(mondayMorning))
	assert.Equal(t, 1, source.calls)
}

func TestGetBarsRetriesOnceOnShortfall(t *testing.T) {
	source := &fakeSource{} // upstream returns nothing
	svc := testService(source)

	frame, err := svc.GetBars(context.Background(), BarRequest{
		Symbol:   "THIN",
		Unit:     UnitMinute,
		BarSize:  1,
		BarsBack: 5,
	})
	require.NoError(t, err)
	assert.Empty(t, frame.Bars)
	assert.Equal(t, 2, source.calls, "expected exactly one retry")

	// The retry widens the window tenfold.
	assert.True(t, source.queries[1].Start.Before(source.queries[0].Start))
}

func TestGetBarsNoRetryWhenOutsideHoursIncluded(t *testing.T) {
	source := &fakeSource{}
	svc := testService(source)

	_, err := svc.GetBars(context.Background(), BarRequest{
		Symbol:              "THIN",
		Unit:                UnitMinute,
		BarSize:             1,
		BarsBack:            5,
		IncludeOutsideHours: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, source.calls)
}

func TestGetBarsWarmupCoversIndicators(t *testing.T) {
	source := &fakeSource{fn: minuteBars}
	svc := testService(source)

	frame, err := svc.GetBars(context.Background(), BarRequest{
		Symbol:       "AAPL",
		Unit:         UnitMinute,
		BarSize:      1,
		BarsBack:     2,
		Indicators:   "sma_3",
		TruncateBars: true,
	})
	require.NoError(t, err)
	require.Len(t, frame.Bars, 2)
	require.Len(t, frame.Indicators, 1)
	require.Len(t, frame.Indicators[0].Values, 2)

	// Warmup bars are fetched beyond the visible window, so every visible
	// indicator value is valid.
	for _, v := range frame.Indicators[0].Values {
		assert.False(t, math.IsNaN(v))
	}
}

func TestGetBarsSetsAsOfForDailyOnly(t *testing.T) {
	source := &fakeSource{fn: minuteBars}
	svc := testService(source)

	_, err := svc.GetBars(context.Background(), BarRequest{
		Symbol: "AAPL", Unit: UnitDaily, BarSize: 1, BarsBack: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", source.queries[0].AsOf)

	_, err = svc.GetBars(context.Background(), BarRequest{
		Symbol: "AAPL", Unit: UnitMinute, BarSize: 1, BarsBack: 5,
	})
	require.NoError(t, err)
	assert.Empty(t, source.queries[len(source.queries)-1].AsOf)
}

type fakeCache struct {
	data map[string][]byte
	sets int
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, error) {
	if v, ok := c.data[key]; ok {
		return v, nil
	}
	return nil, nil
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.data[key] = value
	c.sets++
	return nil
}

func TestGetBarsCSVUsesCache(t *testing.T) {
	source := &fakeSource{fn: minuteBars}
	cache := &fakeCache{data: map[string][]byte{}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(source, cache, time.Minute, logger).
		WithClock(func() time.Time { return mondayMorning })

	req := BarRequest{Symbol: "AAPL", Unit: UnitMinute, BarSize: 1, BarsBack: 3, TruncateBars: true}

	first, err := svc.GetBarsCSV(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, source.calls)
	assert.Equal(t, 1, cache.sets)

	second, err := svc.GetBarsCSV(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, source.calls, "second read must come from cache")
}

func TestMostRecentBars(t *testing.T) {
	source := &fakeSource{fn: minuteBars}
	svc := testService(source)

	bars, err := svc.MostRecentBars(context.Background(), []string{"AAPL", "MSFT"}, UnitMinute, 1, false)
	require.NoError(t, err)
	require.Len(t, bars, 2)

	for _, symbol := range []string{"AAPL", "MSFT"} {
		b, ok := bars[symbol]
		require.True(t, ok)
		assert.True(t, b.Time.Equal(mondayMorning))
	}
}

func TestFrameCSV(t *testing.T) {
	ts := time.Date(2026, 3, 2, 9, 30, 0, 0, eastern)
	frame := &Frame{
		Bars: []Bar{
			{Time: ts, Open: 100.12345, High: 101, Low: 99.5, Close: 100.5, Volume: 1200},
			{Time: ts.Add(time.Minute), Open: 100.5, High: 102, Low: 100, Close: 101.75, Volume: 800},
		},
		Indicators: []indicator.Column{
			{Name: "sma_2", Values: []float64{math.NaN(), 101.125}},
		},
	}

	lines := strings.Split(strings.TrimSpace(string(frame.CSV())), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "datetime,open,high,low,close,volume,sma_2", lines[0])
	assert.Equal(t, "2026-03-02 09:30:00,100.123,101,99.5,100.5,1200,", lines[1])
	assert.Equal(t, "2026-03-02 09:31:00,100.5,102,100,101.75,800,101.125", lines[2])
}
