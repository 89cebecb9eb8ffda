package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/model"
	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/reconcile"
	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/pkg/metrics"
)

type OrderRepository struct {
	db *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `
        id, user_id, order_date, quantity, supplier, status,
        order_number, tracking_number, product_id, delivered_at,
        created_at, updated_at
`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.OrderDate,
		&o.Quantity,
		&o.Supplier,
		&o.Status,
		&o.OrderNumber,
		&o.TrackingNumber,
		&o.ProductID,
		&o.DeliveredAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, reconcile.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindByOrderNumber returns the order for (user, order number).
func (r *OrderRepository) FindByOrderNumber(ctx context.Context, userID int64, orderNumber string) (*model.Order, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("select", "orders", time.Since(start)) }()

	query := `
        SELECT` + orderColumns + `
        FROM orders
        WHERE user_id = $1 AND order_number = $2
    `
	return scanOrder(r.db.QueryRow(ctx, query, userID, orderNumber))
}

// FindRecentBySupplier returns orders of (user, supplier) in the given
// statuses with order_date >= since, most recent first.
func (r *OrderRepository) FindRecentBySupplier(ctx context.Context, userID int64, supplier string, statuses []model.OrderStatus, since time.Time) ([]model.Order, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("select", "orders", time.Since(start)) }()

	statusStrs := make([]string, len(statuses))
	for i, s := range statuses {
		statusStrs[i] = string(s)
	}

	query := `
        SELECT` + orderColumns + `
        FROM orders
        WHERE user_id = $1 AND supplier = $2
          AND status = ANY($3)
          AND order_date >= $4
        ORDER BY order_date DESC
    `
	rows, err := r.db.Query(ctx, query, userID, supplier, statusStrs, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// FindExact returns an order with identical (user, supplier, order date,
// quantity). Dates compare at day granularity.
func (r *OrderRepository) FindExact(ctx context.Context, userID int64, supplier string, orderDate time.Time, quantity int) (*model.Order, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("select", "orders", time.Since(start)) }()

	query := `
        SELECT` + orderColumns + `
        FROM orders
        WHERE user_id = $1 AND supplier = $2
          AND order_date::date = $3::date
          AND quantity = $4
        LIMIT 1
    `
	return scanOrder(r.db.QueryRow(ctx, query, userID, supplier, orderDate, quantity))
}

// Insert persists a new order.
func (r *OrderRepository) Insert(ctx context.Context, o *model.Order) (int64, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("insert", "orders", time.Since(start)) }()

	query := `
        INSERT INTO orders (user_id, order_date, quantity, supplier, status,
                            order_number, tracking_number, product_id, delivered_at,
                            created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
        RETURNING id
    `
	var id int64
	err := r.db.QueryRow(ctx, query,
		o.UserID,
		o.OrderDate,
		o.Quantity,
		o.Supplier,
		o.Status,
		o.OrderNumber,
		o.TrackingNumber,
		o.ProductID,
		o.DeliveredAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert order: %w", err)
	}
	return id, nil
}

// ApplyTransition updates status and optionally tracking number and
// delivery date.
func (r *OrderRepository) ApplyTransition(ctx context.Context, orderID int64, status model.OrderStatus, trackingNumber *string, deliveredAt *time.Time) error {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("update", "orders", time.Since(start)) }()

	sets := []string{"status = $2", "updated_at = NOW()"}
	args := []any{orderID, string(status)}

	if trackingNumber != nil {
		args = append(args, *trackingNumber)
		sets = append(sets, fmt.Sprintf("tracking_number = $%d", len(args)))
	}
	if deliveredAt != nil {
		args = append(args, *deliveredAt)
		sets = append(sets, fmt.Sprintf("delivered_at = $%d", len(args)))
	}

	query := fmt.Sprintf(`UPDATE orders SET %s WHERE id = $1`, strings.Join(sets, ", "))
	_, err := r.db.Exec(ctx, query, args...)
	return err
}
