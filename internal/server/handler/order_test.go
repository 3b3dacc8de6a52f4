package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/tradedesk/internal/domain"
)

// tradingStub lets each test pin the behavior of a single endpoint.
type tradingStub struct {
	submit func(ctx context.Context, spec domain.OrderSpec) (domain.OrderAck, error)
	get    func(ctx context.Context, id uuid.UUID) (domain.OrderAck, error)
	cancel func(ctx context.Context, id uuid.UUID) (domain.OrderAck, error)
	repl   func(ctx context.Context, id uuid.UUID, spec domain.ReplaceSpec) (domain.ReplaceAck, error)
	close  func(ctx context.Context, instrument string, req domain.CloseRequest) error
}

func (s *tradingStub) SubmitOrder(ctx context.Context, spec domain.OrderSpec) (domain.OrderAck, error) {
	return s.submit(ctx, spec)
}

func (s *tradingStub) GetOrder(ctx context.Context, id uuid.UUID) (domain.OrderAck, error) {
	return s.get(ctx, id)
}

func (s *tradingStub) CancelOrder(ctx context.Context, id uuid.UUID) (domain.OrderAck, error) {
	return s.cancel(ctx, id)
}

func (s *tradingStub) ReplaceOrder(ctx context.Context, id uuid.UUID, spec domain.ReplaceSpec) (domain.ReplaceAck, error) {
	return s.repl(ctx, id, spec)
}

func (s *tradingStub) ClosePosition(ctx context.Context, instrument string, req domain.CloseRequest) error {
	return s.close(ctx, instrument, req)
}

func orderMux(stub *tradingStub) *http.ServeMux {
	h := NewOrderHandler(stub, slog.New(slog.NewTextHandler(io.Discard, nil)))
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/orders", h.SubmitOrder)
	mux.HandleFunc("GET /api/orders/{id}", h.GetOrder)
	mux.HandleFunc("DELETE /api/orders/{id}", h.CancelOrder)
	mux.HandleFunc("PATCH /api/orders/{id}", h.ReplaceOrder)
	mux.HandleFunc("POST /api/positions/{symbol}/close", h.ClosePosition)
	return mux
}

func TestSubmitOrder(t *testing.T) {
	id := uuid.New()
	stub := &tradingStub{
		submit: func(_ context.Context, spec domain.OrderSpec) (domain.OrderAck, error) {
			assert.Equal(t, "AAPL", spec.Symbol)
			return domain.OrderAck{Status: domain.OrderStatusNew, ID: id}, nil
		},
	}

	body := `{"symbol":"AAPL","qty":"10","side":"buy","type":"market","time_in_force":"day"}`
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
	rec := httptest.NewRecorder()
	orderMux(stub).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), id.String())
	assert.Contains(t, rec.Body.String(), `"new"`)
}

func TestSubmitOrderMissingSymbol(t *testing.T) {
	stub := &tradingStub{}
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{"qty":"1"}`))
	rec := httptest.NewRecorder()
	orderMux(stub).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetOrderNotFound(t *testing.T) {
	stub := &tradingStub{
		get: func(_ context.Context, _ uuid.UUID) (domain.OrderAck, error) {
			return domain.OrderAck{}, domain.ErrNotFound
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/api/orders/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	orderMux(stub).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOrderBadID(t *testing.T) {
	stub := &tradingStub{}
	req := httptest.NewRequest(http.MethodGet, "/api/orders/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	orderMux(stub).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReplaceCanceledOrderConflicts(t *testing.T) {
	stub := &tradingStub{
		repl: func(_ context.Context, _ uuid.UUID, _ domain.ReplaceSpec) (domain.ReplaceAck, error) {
			return domain.ReplaceAck{}, domain.ErrOrderCanceled
		},
	}
	req := httptest.NewRequest(http.MethodPatch, "/api/orders/"+uuid.NewString(), strings.NewReader(`{"qty":"5"}`))
	rec := httptest.NewRecorder()
	orderMux(stub).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestClosePositionDefaultsToFullClose(t *testing.T) {
	var got domain.CloseRequest
	stub := &tradingStub{
		close: func(_ context.Context, instrument string, req domain.CloseRequest) error {
			assert.Equal(t, "AAPL", instrument)
			got = req
			return nil
		},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/positions/AAPL/close", nil)
	rec := httptest.NewRecorder()
	orderMux(stub).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "100", got.Percentage)
}

func TestClosePositionPartialRejected(t *testing.T) {
	stub := &tradingStub{
		close: func(_ context.Context, _ string, _ domain.CloseRequest) error {
			return domain.ErrPartialClose
		},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/positions/AAPL/close", strings.NewReader(`{"percentage":"50"}`))
	rec := httptest.NewRecorder()
	orderMux(stub).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "full close")
}
