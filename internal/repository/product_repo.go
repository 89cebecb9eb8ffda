package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/model"
	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/reconcile"
	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/pkg/metrics"
)

type ProductRepository struct {
	db *pgxpool.Pool
}

func NewProductRepository(db *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{db: db}
}

// FindByName resolves an item description to a catalog product. Substring
// match either way, so "Dexcom G6 Sensor" finds a product named "Dexcom G6".
func (r *ProductRepository) FindByName(ctx context.Context, name string) (*model.Product, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("select", "products", time.Since(start)) }()

	query := `
        SELECT id, name
        FROM products
        WHERE name ILIKE '%' || $1 || '%' OR $1 ILIKE '%' || name || '%'
        ORDER BY length(name) DESC
        LIMIT 1
    `
	var p model.Product
	err := r.db.QueryRow(ctx, query, name).Scan(&p.ID, &p.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, reconcile.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
