package s3blob

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/tradedesk/internal/domain"
)

type captureWriter struct {
	path        string
	contentType string
	body        []byte
	calls       int
}

func (w *captureWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	w.calls++
	w.path = path
	w.contentType = contentType
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.body = b
	return nil
}

type archiveStoreStub struct {
	orders []domain.Order
}

func (s *archiveStoreStub) ListTerminalBefore(_ context.Context, _ time.Time) ([]domain.Order, error) {
	return s.orders, nil
}

func testOrder(status domain.OrderStatus) domain.Order {
	return domain.Order{
		ID:         uuid.New(),
		Instrument: "AAPL",
		Quantity:   decimal.NewFromInt(10),
		Side:       domain.SideBuy,
		Type:       domain.OrderTypeMarket,
		Status:     status,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
}

func TestArchiveOrdersUploadsJSONL(t *testing.T) {
	writer := &captureWriter{}
	store := &archiveStoreStub{orders: []domain.Order{
		testOrder(domain.OrderStatusFilled),
		testOrder(domain.OrderStatusCanceled),
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	arch := NewArchiver(writer, store, logger)
	before := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	count, err := arch.ArchiveOrders(context.Background(), before)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, "archive/orders/2026-02.jsonl", writer.path)
	assert.Equal(t, "application/x-ndjson", writer.contentType)

	lines := bytes.Split(bytes.TrimRight(writer.body, "\n"), []byte("\n"))
	assert.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), store.orders[0].ID.String())
}

func TestArchiveOrdersEmptySkipsUpload(t *testing.T) {
	writer := &captureWriter{}
	store := &archiveStoreStub{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	arch := NewArchiver(writer, store, logger)
	count, err := arch.ArchiveOrders(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, writer.calls)
}
