package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OrderStore persists simulated orders. Every method runs in its own
// transactional scope: a failed call leaves no partial writes behind.
type OrderStore interface {
	// Create inserts a new order row.
	Create(ctx context.Context, o Order) error

	// GetByID returns the order with the given id, or ErrNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (Order, error)

	// UpdateStatus sets the status of an existing order and stamps
	// updated_at. Returns ErrNotFound when no row matches.
	UpdateStatus(ctx context.Context, id uuid.UUID, status OrderStatus) error

	// Replace marks the order cancelID canceled and inserts replacement in a
	// single transaction.
	Replace(ctx context.Context, cancelID uuid.UUID, replacement Order) error

	// CloseMatching bulk-updates every order with status new and the given
	// instrument to filled, stamping updated_at. Returns the affected count.
	CloseMatching(ctx context.Context, instrument string) (int64, error)

	// ListByStatus returns orders for the instrument in any of the given
	// statuses, newest first. instrument "all" matches every instrument.
	ListByStatus(ctx context.Context, instrument string, statuses []OrderStatus) ([]Order, error)

	// ListTerminalBefore returns filled/canceled orders last updated strictly
	// before the cutoff, for archival snapshots.
	ListTerminalBefore(ctx context.Context, before time.Time) ([]Order, error)
}
