package model

import "time"

// RawEmail is one message as returned by the mail provider. Never mutated.
type RawEmail struct {
	MessageID  string
	From       string
	Subject    string
	Body       string
	ReceivedAt time.Time
}

// Processing record statuses.
const (
	ProcessingStatusSuccess = "success"
	ProcessingStatusFailed  = "failed"
)

// ProcessingRecord is the per-message audit entry, upserted by message id.
// A success record with a linked order blocks reprocessing on later passes.
type ProcessingRecord struct {
	ID          int64
	MessageID   string
	UserID      int64
	Status      string
	Supplier    string
	Confidence  float64
	OrderID     *int64
	Payload     []byte
	ProcessedAt time.Time
}
