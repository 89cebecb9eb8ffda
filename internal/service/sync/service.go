package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/mail"
	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/model"
	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/parser"
	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/reconcile"
	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/pkg/metrics"
)

// ErrSyncInProgress is returned when another pass holds the user's lock.
var ErrSyncInProgress = errors.New("sync already in progress for user")

// AuditStore persists per-message processing records.
type AuditStore interface {
	FindByMessageID(ctx context.Context, messageID string) (*model.ProcessingRecord, error)
	Upsert(ctx context.Context, rec *model.ProcessingRecord) error
}

// Locker serializes sync passes per user.
type Locker interface {
	Acquire(ctx context.Context, userID int64) (token string, ok bool)
	Release(ctx context.Context, userID int64, token string)
}

// EventPublisher announces completed passes. Optional; may be nil.
type EventPublisher interface {
	Publish(routingKey string, payload any) error
}

// Config holds the pass knobs.
type Config struct {
	QueryWindowDays int
	MaxResults      int
	EmailTimeout    time.Duration
}

// EmailResult is the per-email outcome of a pass.
type EmailResult struct {
	MessageID string `json:"message_id"`
	Supplier  string `json:"supplier"`
	Status    string `json:"status"`
	Action    string `json:"action"`
	Reason    string `json:"reason"`
}

// UnparsedEmail is an email no parser could interpret, surfaced for manual
// triage.
type UnparsedEmail struct {
	MessageID string `json:"message_id"`
	Subject   string `json:"subject"`
	From      string `json:"from"`
}

// SyncResult summarizes one pass.
type SyncResult struct {
	Processed int             `json:"processed"`
	Results   []EmailResult   `json:"results"`
	Unparsed  []UnparsedEmail `json:"unparsed"`
}

// Service drives one sync pass: fetch candidate emails, parse, reconcile,
// record outcomes. Idempotent across repeated invocations: already-linked
// messages are skipped before any parser runs.
type Service struct {
	mailClient mail.Client
	registry   *parser.Registry
	matcher    *reconcile.Matcher
	audit      AuditStore
	locker     Locker
	publisher  EventPublisher
	logger     *zap.Logger
	cfg        Config
}

func NewService(
	mailClient mail.Client,
	registry *parser.Registry,
	matcher *reconcile.Matcher,
	audit AuditStore,
	locker Locker,
	publisher EventPublisher,
	logger *zap.Logger,
	cfg Config,
) *Service {
	return &Service{
		mailClient: mailClient,
		registry:   registry,
		matcher:    matcher,
		audit:      audit,
		locker:     locker,
		publisher:  publisher,
		logger:     logger,
		cfg:        cfg,
	}
}

// SyncUser runs one pass for one user. A mail-access failure aborts the
// whole pass (nothing was retrieved); every per-email failure is recorded
// and the batch continues. The pass is serialized per user: a concurrent
// manual trigger racing a scheduled one gets ErrSyncInProgress.
func (s *Service) SyncUser(ctx context.Context, userID int64) (*SyncResult, error) {
	token, ok := s.locker.Acquire(ctx, userID)
	if !ok {
		return nil, ErrSyncInProgress
	}
	defer s.locker.Release(ctx, userID, token)

	start := time.Now()

	query := mail.BuildQuery(s.registry.SubjectTerms(), s.registry.SenderDomains(), s.cfg.QueryWindowDays)
	emails, err := s.mailClient.SearchEmails(ctx, userID, query, s.cfg.MaxResults)
	if err != nil {
		return nil, fmt.Errorf("mail search failed: %w", err)
	}

	s.logger.Info("Sync pass started",
		zap.Int64("user_id", userID),
		zap.Int("fetched", len(emails)),
	)

	result := &SyncResult{
		Results:  []EmailResult{},
		Unparsed: []UnparsedEmail{},
	}

	for _, email := range emails {
		// Cancellation is only meaningful between emails: abort the rest,
		// keep completed results.
		if ctx.Err() != nil {
			s.logger.Warn("Sync pass cancelled mid-batch",
				zap.Int64("user_id", userID),
				zap.Int("processed", result.Processed),
			)
			break
		}

		s.processEmail(ctx, userID, email, result)
	}

	metrics.RecordSyncPassDuration("pass", time.Since(start))

	s.logger.Info("Sync pass completed",
		zap.Int64("user_id", userID),
		zap.Int("processed", result.Processed),
		zap.Int("unparsed", len(result.Unparsed)),
		zap.Duration("duration", time.Since(start)),
	)

	s.publishCompleted(userID, result)

	return result, nil
}

// processEmail runs one email through the pipeline. Never returns an error:
// one bad record must not abort the remaining batch.
func (s *Service) processEmail(ctx context.Context, userID int64, email model.RawEmail, result *SyncResult) {
	// Primary idempotence guard, independent of and prior to the matcher's
	// own duplicate logic: a message already linked to an order is done.
	existing, err := s.audit.FindByMessageID(ctx, email.MessageID)
	if err != nil {
		s.logger.Error("Audit lookup failed, skipping email this pass",
			zap.String("message_id", email.MessageID),
			zap.Error(err),
		)
		return
	}
	if existing != nil && existing.Status == model.ProcessingStatusSuccess && existing.OrderID != nil {
		return
	}

	cand, parserName, ok := s.registry.Parse(email)
	if !ok {
		metrics.EmailsUnparsedCount.Inc()
		result.Unparsed = append(result.Unparsed, UnparsedEmail{
			MessageID: email.MessageID,
			Subject:   email.Subject,
			From:      email.From,
		})
		s.recordFailure(ctx, userID, email.MessageID, "", 0, nil)
		result.Processed++
		return
	}

	metrics.IncrementEmailsParsed(parserName, string(cand.Status))
	metrics.ObserveConfidence(parserName, cand.Confidence)

	payload, _ := json.Marshal(cand)

	emailCtx := ctx
	if s.cfg.EmailTimeout > 0 {
		var cancel context.CancelFunc
		emailCtx, cancel = context.WithTimeout(ctx, s.cfg.EmailTimeout)
		defer cancel()
	}

	outcome, err := s.matcher.Reconcile(emailCtx, userID, cand)
	if err != nil {
		// Recoverable per-email failure: the record stays failed so the
		// email is naturally retried on the next pass.
		metrics.IncrementReconcileOutcome("failed")
		s.logger.Error("Reconciliation failed",
			zap.String("message_id", email.MessageID),
			zap.String("supplier", cand.Supplier),
			zap.String("status", string(cand.Status)),
			zap.Error(err),
		)
		s.recordFailure(ctx, userID, email.MessageID, cand.Supplier, cand.Confidence, payload)
		result.Processed++
		return
	}

	metrics.IncrementReconcileOutcome(string(outcome.Action))

	rec := &model.ProcessingRecord{
		MessageID:  email.MessageID,
		UserID:     userID,
		Status:     model.ProcessingStatusSuccess,
		Supplier:   cand.Supplier,
		Confidence: cand.Confidence,
		OrderID:    &outcome.OrderID,
		Payload:    payload,
	}
	if err := s.audit.Upsert(ctx, rec); err != nil {
		s.logger.Error("Failed to persist processing record",
			zap.String("message_id", email.MessageID),
			zap.Error(err),
		)
	}

	result.Results = append(result.Results, EmailResult{
		MessageID: email.MessageID,
		Supplier:  cand.Supplier,
		Status:    string(cand.Status),
		Action:    string(outcome.Action),
		Reason:    outcome.Reason,
	})
	result.Processed++
}

func (s *Service) recordFailure(ctx context.Context, userID int64, messageID, supplier string, confidence float64, payload []byte) {
	rec := &model.ProcessingRecord{
		MessageID:  messageID,
		UserID:     userID,
		Status:     model.ProcessingStatusFailed,
		Supplier:   supplier,
		Confidence: confidence,
		Payload:    payload,
	}
	if err := s.audit.Upsert(ctx, rec); err != nil {
		s.logger.Error("Failed to persist failure record",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
	}
}

// publishCompleted announces the pass summary. Best effort: a publish
// failure never fails the pass.
func (s *Service) publishCompleted(userID int64, result *SyncResult) {
	if s.publisher == nil {
		return
	}

	payload := map[string]any{
		"user_id":   userID,
		"processed": result.Processed,
		"updated":   len(result.Results),
		"unparsed":  len(result.Unparsed),
	}
	if err := s.publisher.Publish("sync.completed", payload); err != nil {
		s.logger.Warn("Failed to publish sync.completed event",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	}
}
