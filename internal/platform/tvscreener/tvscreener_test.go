package tvscreener

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/tradedesk/internal/domain"
)

func TestQueryPayload(t *testing.T) {
	q := NewQuery().
		Select("name", "close", "volume").
		Where(Greater("close", 5), IsIn("sector", "Finance", "Technology Services")).
		OrderBy("volume", false).
		Limit(25)

	data, err := json.Marshal(q)
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(data, &payload))

	assert.Equal(t, []any{"america"}, payload["markets"])
	assert.Equal(t, []any{"name", "close", "volume"}, payload["columns"])
	assert.Equal(t, []any{float64(0), float64(25)}, payload["range"])
	assert.Equal(t, map[string]any{"sortBy": "volume", "sortOrder": "desc"}, payload["sort"])

	filters := payload["filter"].([]any)
	require.Len(t, filters, 2)
	first := filters[0].(map[string]any)
	assert.Equal(t, "close", first["left"])
	assert.Equal(t, "greater", first["operation"])

	second := filters[1].(map[string]any)
	assert.Equal(t, "in_range", second["operation"])
	assert.Equal(t, []any{"Finance", "Technology Services"}, second["right"])
}

func TestQueryDefaults(t *testing.T) {
	data, err := json.Marshal(NewQuery())
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(data, &payload))

	assert.Equal(t, []any{"name", "close", "volume", "market_cap_basic"}, payload["columns"])
	assert.Equal(t, []any{float64(0), float64(50)}, payload["range"])
	_, hasSort := payload["sort"]
	assert.False(t, hasSort)
}

func TestScan(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/america/scan", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.NotEmpty(t, payload["columns"])

		json.NewEncoder(w).Encode(scanResponse{
			TotalCount: 2,
			Data: []scanRow{
				{Symbol: "NASDAQ:AAPL", Data: []any{"AAPL", 185.5, 1000000.0, 2.9e12}},
				{Symbol: "NASDAQ:MSFT", Data: []any{"MSFT", 420.0, 800000.0, 3.1e12}},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	result, err := client.Scan(context.Background(), NewQuery())
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalCount)
	assert.Equal(t, []string{"name", "close", "volume", "market_cap_basic"}, result.Columns)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "NASDAQ:AAPL", result.Rows[0].Ticker)
	assert.Equal(t, 185.5, result.Rows[0].Values[1])
}

func TestScanUnknownField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": "unknown field \"not_a_column\""}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.Scan(context.Background(), NewQuery().Select("not_a_column"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSearchColumns(t *testing.T) {
	got := SearchColumns("market_cap")
	assert.Contains(t, got, "market_cap_basic")

	assert.Empty(t, SearchColumns("no_such_column_xyz"))
	assert.Empty(t, SearchColumns(""))
}

func TestScannerQuery(t *testing.T) {
	q, err := ScannerQuery("day_gainers")
	require.NoError(t, err)
	assert.Contains(t, q.Columns(), "change")

	_, err = ScannerQuery("moon_shots")
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Contains(t, ScannerNames(), "premarket_gainers")
}
