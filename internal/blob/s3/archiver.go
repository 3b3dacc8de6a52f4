package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/quantfold/tradedesk/internal/domain"
)

// OrderArchiveStore provides read access to terminal orders for archival
// purposes. The archiver only needs this one query method, not the full
// order store interface; the Postgres store satisfies it implicitly.
type OrderArchiveStore interface {
	// ListTerminalBefore returns all filled or canceled orders last updated
	// strictly before the given cutoff time.
	ListTerminalBefore(ctx context.Context, before time.Time) ([]domain.Order, error)
}

// BlobWriter uploads a blob to object storage under the given key.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver snapshots terminal orders to S3. It queries the order store for
// filled and canceled orders older than a cutoff, serializes them to JSONL,
// and uploads the result.
//
// Deletion of the archived records from the primary store is intentionally
// NOT performed here -- that is a separate, explicit step to be executed
// after the archive has been verified.
type Archiver struct {
	writer BlobWriter
	orders OrderArchiveStore
	logger *slog.Logger
}

// NewArchiver creates a new Archiver.
func NewArchiver(writer BlobWriter, orders OrderArchiveStore, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer: writer,
		orders: orders,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveOrders queries all terminal orders before the cutoff, serializes
// them to JSONL, and uploads the file to S3 at archive/orders/YYYY-MM.jsonl.
// The count of archived records is returned.
func (a *Archiver) ArchiveOrders(ctx context.Context, before time.Time) (int64, error) {
	orders, err := a.orders.ListTerminalBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive orders query: %w", err)
	}
	if len(orders) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(orders)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive orders marshal: %w", err)
	}

	path := archivePath("orders", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive orders upload: %w", err)
	}

	count := int64(len(orders))
	a.logger.Info("archived orders",
		slog.String("path", path),
		slog.Int64("count", count),
		slog.String("before", before.Format(time.RFC3339)),
	)
	return count, nil
}

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/orders/2025-01.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
