package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/pkg/metrics"
)

type InventoryRepository struct {
	db *pgxpool.Pool
}

func NewInventoryRepository(db *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// Increment credits a user's on-hand count for a product. The UPSERT makes
// the increment a single atomic statement.
func (r *InventoryRepository) Increment(ctx context.Context, userID, productID int64, quantity int) error {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("upsert", "inventory", time.Since(start)) }()

	query := `
        INSERT INTO inventory (user_id, product_id, on_hand, updated_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (user_id, product_id)
        DO UPDATE SET on_hand = inventory.on_hand + EXCLUDED.on_hand, updated_at = NOW()
    `
	_, err := r.db.Exec(ctx, query, userID, productID, quantity)
	return err
}
