package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	syncservice "github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/service/sync"
	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/pkg/metrics"
	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/pkg/mq"
	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/pkg/util"
)

// SyncRequestedPayload is the body of a sync.requested event.
type SyncRequestedPayload struct {
	UserID int64 `json:"user_id"`
}

// SyncRequestedHandler runs a sync pass when a sync.requested event arrives.
type SyncRequestedHandler struct {
	syncService *syncservice.Service
	publisher   *mq.Publisher
	logger      *zap.Logger
}

func NewSyncRequestedHandler(syncService *syncservice.Service, publisher *mq.Publisher, logger *zap.Logger) *SyncRequestedHandler {
	return &SyncRequestedHandler{
		syncService: syncService,
		publisher:   publisher,
		logger:      logger,
	}
}

// HandleSyncRequested is the consumer entry point. Retryable failures are
// returned (nack-requeue); permanent ones are parked on the DLQ and acked.
func (h *SyncRequestedHandler) HandleSyncRequested(ctx context.Context, raw json.RawMessage) error {
	start := time.Now()
	defer func() { metrics.RecordMQConsumeLatency("sync.requested", "sync.requested.q", time.Since(start)) }()

	var p SyncRequestedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		// Malformed payloads never improve on retry.
		h.parkOnDLQ(raw, err)
		return nil
	}
	if p.UserID <= 0 {
		h.parkOnDLQ(raw, errors.New("missing user_id"))
		return nil
	}

	result, err := h.syncService.SyncUser(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, syncservice.ErrSyncInProgress) {
			// Another pass is running; its results cover this request.
			h.logger.Info("Sync already running, dropping request",
				zap.Int64("user_id", p.UserID),
			)
			return nil
		}

		retryable, errType := util.IsRetryableError(err)
		if !retryable {
			h.logger.Error("Sync failed permanently",
				zap.Int64("user_id", p.UserID),
				zap.String("error_type", errType),
				zap.Error(err),
			)
			h.parkOnDLQ(raw, err)
			return nil
		}
		return err
	}

	h.logger.Info("Sync pass handled",
		zap.Int64("user_id", p.UserID),
		zap.Int("processed", result.Processed),
		zap.Int("unparsed", len(result.Unparsed)),
	)
	return nil
}

func (h *SyncRequestedHandler) parkOnDLQ(raw json.RawMessage, cause error) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.PublishToDLQ("sync.requested", raw, cause.Error()); err != nil {
		h.logger.Error("Failed to park message on DLQ", zap.Error(err))
	}
}
