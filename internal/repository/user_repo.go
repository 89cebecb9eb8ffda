package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/pkg/metrics"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// ListSyncEnabledIDs returns the users the scheduled pass should cover.
func (r *UserRepository) ListSyncEnabledIDs(ctx context.Context) ([]int64, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("select", "users", time.Since(start)) }()

	query := `
        SELECT id
        FROM users
        WHERE email_sync_enabled = TRUE
        ORDER BY id
    `
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
