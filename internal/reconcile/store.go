package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/model"
)

// ErrNotFound is returned by stores when no row matches.
var ErrNotFound = errors.New("not found")

// OrderStore is the ledger persistence the matcher reconciles against.
type OrderStore interface {
	// FindByOrderNumber looks up the order for (user, order number).
	FindByOrderNumber(ctx context.Context, userID int64, orderNumber string) (*model.Order, error)

	// FindRecentBySupplier returns orders for (user, supplier) in the given
	// statuses whose order date is on or after since, most recent first.
	FindRecentBySupplier(ctx context.Context, userID int64, supplier string, statuses []model.OrderStatus, since time.Time) ([]model.Order, error)

	// FindExact looks up an order with identical (user, supplier, order
	// date, quantity). Order dates compare at day granularity.
	FindExact(ctx context.Context, userID int64, supplier string, orderDate time.Time, quantity int) (*model.Order, error)

	// Insert persists a new order and returns its id.
	Insert(ctx context.Context, order *model.Order) (int64, error)

	// ApplyTransition updates an order's status and, when provided, its
	// tracking number and delivery date.
	ApplyTransition(ctx context.Context, orderID int64, status model.OrderStatus, trackingNumber *string, deliveredAt *time.Time) error
}

// InventoryStore credits a user's on-hand supply count. The increment is
// assumed atomic.
type InventoryStore interface {
	Increment(ctx context.Context, userID, productID int64, quantity int) error
}

// ProductStore resolves item descriptions to catalog products.
type ProductStore interface {
	FindByName(ctx context.Context, name string) (*model.Product, error)
}
