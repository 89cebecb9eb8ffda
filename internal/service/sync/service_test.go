package sync_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/model"
	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/parser"
	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/reconcile"
	syncservice "github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/service/sync"
)

type fakeMailClient struct {
	emails []model.RawEmail
	err    error
	calls  int
}

func (c *fakeMailClient) SearchEmails(_ context.Context, _ int64, _ string, _ int) ([]model.RawEmail, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.emails, nil
}

type fakeAuditStore struct {
	records map[string]*model.ProcessingRecord
}

func newFakeAuditStore() *fakeAuditStore {
	return &fakeAuditStore{records: make(map[string]*model.ProcessingRecord)}
}

func (s *fakeAuditStore) FindByMessageID(_ context.Context, messageID string) (*model.ProcessingRecord, error) {
	rec, ok := s.records[messageID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (s *fakeAuditStore) Upsert(_ context.Context, rec *model.ProcessingRecord) error {
	cp := *rec
	s.records[rec.MessageID] = &cp
	return nil
}

type fakeLocker struct {
	held     map[int64]bool
	acquires int
	releases int
}

func newFakeLocker() *fakeLocker { return &fakeLocker{held: make(map[int64]bool)} }

func (l *fakeLocker) Acquire(_ context.Context, userID int64) (string, bool) {
	l.acquires++
	if l.held[userID] {
		return "", false
	}
	l.held[userID] = true
	return "tok", true
}

func (l *fakeLocker) Release(_ context.Context, userID int64, _ string) {
	l.releases++
	delete(l.held, userID)
}

type fakePublisher struct {
	events []string
}

func (p *fakePublisher) Publish(routingKey string, _ any) error {
	p.events = append(p.events, routingKey)
	return nil
}

// In-memory stores backing a real Matcher.

type memOrderStore struct {
	orders  []*model.Order
	nextID  int64
	findErr error
}

func (s *memOrderStore) FindByOrderNumber(_ context.Context, userID int64, orderNumber string) (*model.Order, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, o := range s.orders {
		if o.UserID == userID && o.OrderNumber != nil && *o.OrderNumber == orderNumber {
			cp := *o
			return &cp, nil
		}
	}
	return nil, reconcile.ErrNotFound
}

func (s *memOrderStore) FindRecentBySupplier(_ context.Context, userID int64, supplier string, statuses []model.OrderStatus, since time.Time) ([]model.Order, error) {
	allowed := make(map[model.OrderStatus]bool)
	for _, st := range statuses {
		allowed[st] = true
	}
	var out []model.Order
	for _, o := range s.orders {
		if o.UserID == userID && o.Supplier == supplier && allowed[o.Status] && !o.OrderDate.Before(since) {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderDate.After(out[j].OrderDate) })
	return out, nil
}

func (s *memOrderStore) FindExact(_ context.Context, userID int64, supplier string, orderDate time.Time, quantity int) (*model.Order, error) {
	for _, o := range s.orders {
		if o.UserID == userID && o.Supplier == supplier && o.Quantity == quantity &&
			o.OrderDate.Truncate(24*time.Hour).Equal(orderDate.Truncate(24*time.Hour)) {
			cp := *o
			return &cp, nil
		}
	}
	return nil, reconcile.ErrNotFound
}

func (s *memOrderStore) Insert(_ context.Context, order *model.Order) (int64, error) {
	s.nextID++
	cp := *order
	cp.ID = s.nextID
	s.orders = append(s.orders, &cp)
	return s.nextID, nil
}

func (s *memOrderStore) ApplyTransition(_ context.Context, orderID int64, status model.OrderStatus, trackingNumber *string, deliveredAt *time.Time) error {
	for _, o := range s.orders {
		if o.ID == orderID {
			o.Status = status
			if trackingNumber != nil {
				o.TrackingNumber = trackingNumber
			}
			if deliveredAt != nil {
				o.DeliveredAt = deliveredAt
			}
			return nil
		}
	}
	return reconcile.ErrNotFound
}

type memInventoryStore struct {
	increments int
}

func (s *memInventoryStore) Increment(context.Context, int64, int64, int) error {
	s.increments++
	return nil
}

type memProductStore struct{}

func (memProductStore) FindByName(_ context.Context, name string) (*model.Product, error) {
	if strings.Contains(strings.ToLower(name), "dexcom") {
		return &model.Product{ID: 1, Name: "Dexcom G6"}, nil
	}
	return nil, reconcile.ErrNotFound
}

type harness struct {
	mail      *fakeMailClient
	audit     *fakeAuditStore
	locker    *fakeLocker
	publisher *fakePublisher
	orders    *memOrderStore
	inventory *memInventoryStore
	service   *syncservice.Service
}

func newHarness(emails ...model.RawEmail) *harness {
	h := &harness{
		mail:      &fakeMailClient{emails: emails},
		audit:     newFakeAuditStore(),
		locker:    newFakeLocker(),
		publisher: &fakePublisher{},
		orders:    &memOrderStore{},
		inventory: &memInventoryStore{},
	}
	matcher := reconcile.NewMatcher(h.orders, h.inventory, memProductStore{}, zap.NewNop())
	h.service = syncservice.NewService(
		h.mail,
		parser.NewDefaultRegistry(),
		matcher,
		h.audit,
		h.locker,
		h.publisher,
		zap.NewNop(),
		syncservice.Config{QueryWindowDays: 30, MaxResults: 50, EmailTimeout: 10 * time.Second},
	)
	return h
}

func rawEmail(id, from, subject, body string) model.RawEmail {
	return model.RawEmail{
		MessageID:  id,
		From:       from,
		Subject:    subject,
		Body:       body,
		ReceivedAt: time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
	}
}

func TestSyncCreatesOrderFromShippingNotice(t *testing.T) {
	h := newHarness(rawEmail("m1", "orders@cvs.com", "Your order has shipped",
		"Tracking Number: 1Z999, Items: Dexcom G6 Sensor (3-pack)"))

	result, err := h.service.SyncUser(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Processed)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "created", result.Results[0].Action)
	assert.Empty(t, result.Unparsed)

	require.Len(t, h.orders.orders, 1)
	created := h.orders.orders[0]
	assert.Equal(t, "CVS", created.Supplier)
	assert.Equal(t, model.OrderStatusShipped, created.Status)
	assert.Equal(t, 3, created.Quantity)
	require.NotNil(t, created.TrackingNumber)
	assert.Equal(t, "1Z999", *created.TrackingNumber)
	// Shipped, not delivered: inventory untouched.
	assert.Zero(t, h.inventory.increments)

	rec := h.audit.records["m1"]
	require.NotNil(t, rec)
	assert.Equal(t, model.ProcessingStatusSuccess, rec.Status)
	require.NotNil(t, rec.OrderID)
	assert.Equal(t, created.ID, *rec.OrderID)
}

func TestSyncIsIdempotentAcrossPasses(t *testing.T) {
	h := newHarness(
		rawEmail("m1", "noreply@dexcom.com", "Dexcom order confirmation",
			"Order Number: DX-100200\nDexcom G6 sensors, Qty: 3"),
		rawEmail("m2", "noreply@dexcom.com", "Your Dexcom order was delivered",
			"Order Number: DX-100200\nYour Dexcom G6 sensors arrived."),
	)

	first, err := h.service.SyncUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Processed)
	require.Len(t, h.orders.orders, 1)
	assert.Equal(t, model.OrderStatusDelivered, h.orders.orders[0].Status)
	assert.Equal(t, 1, h.inventory.increments)

	// Same mailbox again: every message is already linked, nothing moves.
	second, err := h.service.SyncUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, second.Processed)
	assert.Empty(t, second.Results)
	require.Len(t, h.orders.orders, 1)
	assert.Equal(t, 1, h.inventory.increments)
}

func TestSyncRecordsUnparsedEmails(t *testing.T) {
	h := newHarness(rawEmail("m1", "news@example.com", "Weekly digest", "nothing relevant"))

	result, err := h.service.SyncUser(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Processed)
	require.Len(t, result.Unparsed, 1)
	assert.Equal(t, "m1", result.Unparsed[0].MessageID)
	assert.Equal(t, "Weekly digest", result.Unparsed[0].Subject)

	rec := h.audit.records["m1"]
	require.NotNil(t, rec)
	assert.Equal(t, model.ProcessingStatusFailed, rec.Status)
	assert.Nil(t, rec.OrderID)
	assert.Empty(t, h.orders.orders)
}

func TestSyncMailFailureAbortsPass(t *testing.T) {
	h := newHarness()
	h.mail.err = errors.New("oauth token expired")

	result, err := h.service.SyncUser(context.Background(), 1)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Empty(t, h.audit.records)
	// The lock is still released on the error path.
	assert.Equal(t, 1, h.locker.releases)
}

func TestSyncRejectsConcurrentPass(t *testing.T) {
	h := newHarness()
	h.locker.held[1] = true

	_, err := h.service.SyncUser(context.Background(), 1)
	assert.ErrorIs(t, err, syncservice.ErrSyncInProgress)
	assert.Zero(t, h.mail.calls)
}

func TestSyncReconcileFailureContinuesBatch(t *testing.T) {
	h := newHarness(
		rawEmail("m1", "noreply@dexcom.com", "Dexcom order confirmation",
			"Order Number: DX-1\nDexcom G6 sensors, Qty: 3"),
		rawEmail("m2", "orders@cvs.com", "Order Confirmation",
			"Order #77001 CGM sensor supplies, Qty: 3"),
	)
	h.orders.findErr = errors.New("db connection reset")

	result, err := h.service.SyncUser(context.Background(), 1)
	require.NoError(t, err)

	// Both emails hit the broken lookup; both are recorded failed, the pass
	// itself still succeeds.
	assert.Equal(t, 2, result.Processed)
	assert.Empty(t, result.Results)
	for _, id := range []string{"m1", "m2"} {
		rec := h.audit.records[id]
		require.NotNil(t, rec)
		assert.Equal(t, model.ProcessingStatusFailed, rec.Status)
	}

	// Next pass with a healthy store picks the failed records back up.
	h.orders.findErr = nil
	retry, err := h.service.SyncUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, retry.Processed)
	assert.Len(t, retry.Results, 2)
}

func TestSyncCancellationStopsBetweenEmails(t *testing.T) {
	h := newHarness(
		rawEmail("m1", "noreply@dexcom.com", "Dexcom order confirmation",
			"Order Number: DX-1\nDexcom G6 sensors, Qty: 3"),
		rawEmail("m2", "noreply@dexcom.com", "Dexcom order confirmation",
			"Order Number: DX-2\nDexcom G6 sensors, Qty: 3"),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := h.service.SyncUser(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, result.Processed)
	assert.Empty(t, h.orders.orders)
}

func TestSyncPublishesCompletionEvent(t *testing.T) {
	h := newHarness(rawEmail("m1", "orders@cvs.com", "Your order has shipped",
		"Tracking Number: 1Z999, Items: Dexcom G6 Sensor (3-pack)"))

	_, err := h.service.SyncUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"sync.completed"}, h.publisher.events)
}
