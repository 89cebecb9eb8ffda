package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/model"
	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/pkg/metrics"
)

type ProcessingRepository struct {
	db *pgxpool.Pool
}

func NewProcessingRepository(db *pgxpool.Pool) *ProcessingRepository {
	return &ProcessingRepository{db: db}
}

// FindByMessageID returns the audit record for a message id, or nil when
// the message has never been processed.
func (r *ProcessingRepository) FindByMessageID(ctx context.Context, messageID string) (*model.ProcessingRecord, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("select", "email_processing_records", time.Since(start)) }()

	query := `
        SELECT id, message_id, user_id, status, supplier, confidence, order_id, payload, processed_at
        FROM email_processing_records
        WHERE message_id = $1
    `
	var rec model.ProcessingRecord
	err := r.db.QueryRow(ctx, query, messageID).Scan(
		&rec.ID,
		&rec.MessageID,
		&rec.UserID,
		&rec.Status,
		&rec.Supplier,
		&rec.Confidence,
		&rec.OrderID,
		&rec.Payload,
		&rec.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// Upsert writes the audit record, keyed by message id. A later pass over the
// same message replaces the previous verdict.
func (r *ProcessingRepository) Upsert(ctx context.Context, rec *model.ProcessingRecord) error {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("upsert", "email_processing_records", time.Since(start)) }()

	query := `
        INSERT INTO email_processing_records
            (message_id, user_id, status, supplier, confidence, order_id, payload, processed_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
        ON CONFLICT (message_id)
        DO UPDATE SET status = EXCLUDED.status,
                      supplier = EXCLUDED.supplier,
                      confidence = EXCLUDED.confidence,
                      order_id = EXCLUDED.order_id,
                      payload = EXCLUDED.payload,
                      processed_at = NOW()
    `
	_, err := r.db.Exec(ctx, query,
		rec.MessageID,
		rec.UserID,
		rec.Status,
		rec.Supplier,
		rec.Confidence,
		rec.OrderID,
		rec.Payload,
	)
	return err
}

// ListByUser returns a user's audit records with the given status, newest
// first. Used by the triage endpoints.
func (r *ProcessingRepository) ListByUser(ctx context.Context, userID int64, status string, limit int) ([]model.ProcessingRecord, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("select", "email_processing_records", time.Since(start)) }()

	query := `
        SELECT id, message_id, user_id, status, supplier, confidence, order_id, payload, processed_at
        FROM email_processing_records
        WHERE user_id = $1 AND status = $2
        ORDER BY processed_at DESC
        LIMIT $3
    `
	rows, err := r.db.Query(ctx, query, userID, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []model.ProcessingRecord{}
	for rows.Next() {
		var rec model.ProcessingRecord
		err := rows.Scan(
			&rec.ID,
			&rec.MessageID,
			&rec.UserID,
			&rec.Status,
			&rec.Supplier,
			&rec.Confidence,
			&rec.OrderID,
			&rec.Payload,
			&rec.ProcessedAt,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
