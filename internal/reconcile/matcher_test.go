package reconcile_test

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/model"
	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/reconcile"
)

type fakeOrderStore struct {
	orders []*model.Order
	nextID int64
}

func (s *fakeOrderStore) FindByOrderNumber(_ context.Context, userID int64, orderNumber string) (*model.Order, error) {
	for _, o := range s.orders {
		if o.UserID == userID && o.OrderNumber != nil && *o.OrderNumber == orderNumber {
			cp := *o
			return &cp, nil
		}
	}
	return nil, reconcile.ErrNotFound
}

func (s *fakeOrderStore) FindRecentBySupplier(_ context.Context, userID int64, supplier string, statuses []model.OrderStatus, since time.Time) ([]model.Order, error) {
	allowed := make(map[model.OrderStatus]bool)
	for _, st := range statuses {
		allowed[st] = true
	}

	var result []model.Order
	for _, o := range s.orders {
		if o.UserID == userID && o.Supplier == supplier && allowed[o.Status] && !o.OrderDate.Before(since) {
			result = append(result, *o)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].OrderDate.After(result[j].OrderDate) })
	return result, nil
}

func (s *fakeOrderStore) FindExact(_ context.Context, userID int64, supplier string, orderDate time.Time, quantity int) (*model.Order, error) {
	for _, o := range s.orders {
		if o.UserID == userID && o.Supplier == supplier && o.Quantity == quantity &&
			o.OrderDate.Truncate(24*time.Hour).Equal(orderDate.Truncate(24*time.Hour)) {
			cp := *o
			return &cp, nil
		}
	}
	return nil, reconcile.ErrNotFound
}

func (s *fakeOrderStore) Insert(_ context.Context, order *model.Order) (int64, error) {
	s.nextID++
	cp := *order
	cp.ID = s.nextID
	s.orders = append(s.orders, &cp)
	return s.nextID, nil
}

func (s *fakeOrderStore) ApplyTransition(_ context.Context, orderID int64, status model.OrderStatus, trackingNumber *string, deliveredAt *time.Time) error {
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

func (s *fakeOrderStore) byID(id int64) *model.Order {
	for _, o := range s.orders {
		if o.ID == id {
			return o
		}
	}
	return nil
}

type fakeInventoryStore struct {
	increments int
	total      int
}

func (s *fakeInventoryStore) Increment(_ context.Context, _, _ int64, quantity int) error {
	s.increments++
	s.total += quantity
	return nil
}

type fakeProductStore struct {
	products []model.Product
}

func (s *fakeProductStore) FindByName(_ context.Context, name string) (*model.Product, error) {
	for _, p := range s.products {
		if strings.Contains(strings.ToLower(name), strings.ToLower(p.Name)) {
			cp := p
			return &cp, nil
		}
	}
	return nil, reconcile.ErrNotFound
}

type fixture struct {
	orders    *fakeOrderStore
	inventory *fakeInventoryStore
	matcher   *reconcile.Matcher
}

func newFixture() *fixture {
	orders := &fakeOrderStore{}
	inventory := &fakeInventoryStore{}
	products := &fakeProductStore{products: []model.Product{{ID: 1, Name: "Dexcom G6"}}}
	return &fixture{
		orders:    orders,
		inventory: inventory,
		matcher:   reconcile.NewMatcher(orders, inventory, products, zap.NewNop()),
	}
}

var baseDate = time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)

func seedOrder(f *fixture, status model.OrderStatus, orderNumber string, date time.Time, quantity int) *model.Order {
	o := &model.Order{
		UserID:    1,
		OrderDate: date,
		Quantity:  quantity,
		Supplier:  "Dexcom",
		Status:    status,
	}
	if orderNumber != "" {
		o.OrderNumber = &orderNumber
	}
	productID := int64(1)
	o.ProductID = &productID
	id, _ := f.orders.Insert(context.Background(), o)
	return f.orders.byID(id)
}

func candidate(status model.OrderStatus, orderNumber string, date time.Time, quantity int) model.CandidateOrder {
	c := model.CandidateOrder{
		OrderDate: date,
		Quantity:  quantity,
		Supplier:  "Dexcom",
		Status:    status,
		Items:     []string{"Dexcom G6 Sensor"},
	}
	if orderNumber != "" {
		c.OrderNumber = model.Some(orderNumber)
	}
	return c
}

func TestExactMatchForwardTransition(t *testing.T) {
	f := newFixture()
	seeded := seedOrder(f, model.OrderStatusOrdered, "DX-1", baseDate, 3)

	out, err := f.matcher.Reconcile(context.Background(), 1, candidate(model.OrderStatusShipped, "DX-1", baseDate.AddDate(0, 0, 2), 3))
	require.NoError(t, err)
	assert.Equal(t, reconcile.ActionUpdated, out.Action)
	assert.Equal(t, seeded.ID, out.OrderID)
	assert.Equal(t, model.OrderStatusShipped, seeded.Status)
	assert.Zero(t, f.inventory.increments)
}

func TestStatusNeverRegresses(t *testing.T) {
	f := newFixture()
	seeded := seedOrder(f, model.OrderStatusDelivered, "DX-1", baseDate, 3)

	// Feed candidates out of order: none may move status backward.
	for _, status := range []model.OrderStatus{model.OrderStatusShipped, model.OrderStatusOrdered, model.OrderStatusDelivered} {
		out, err := f.matcher.Reconcile(context.Background(), 1, candidate(status, "DX-1", baseDate.AddDate(0, 0, 1), 3))
		require.NoError(t, err)
		assert.Equal(t, reconcile.ActionSkipped, out.Action)
		assert.Equal(t, "no new info", out.Reason)
	}
	assert.Equal(t, model.OrderStatusDelivered, seeded.Status)
	assert.Zero(t, f.inventory.increments)
	assert.Len(t, f.orders.orders, 1)
}

func TestSingleInventoryIncrementPerDelivery(t *testing.T) {
	f := newFixture()
	seedOrder(f, model.OrderStatusShipped, "DX-1", baseDate, 3)

	first, err := f.matcher.Reconcile(context.Background(), 1, candidate(model.OrderStatusDelivered, "DX-1", baseDate.AddDate(0, 0, 3), 3))
	require.NoError(t, err)
	assert.Equal(t, reconcile.ActionUpdated, first.Action)

	// Duplicate delivery notice.
	second, err := f.matcher.Reconcile(context.Background(), 1, candidate(model.OrderStatusDelivered, "DX-1", baseDate.AddDate(0, 0, 3), 3))
	require.NoError(t, err)
	assert.Equal(t, reconcile.ActionSkipped, second.Action)

	assert.Equal(t, 1, f.inventory.increments)
	assert.Equal(t, 3, f.inventory.total)
}

func TestFuzzyMatchWithinWindow(t *testing.T) {
	f := newFixture()
	seeded := seedOrder(f, model.OrderStatusOrdered, "DX-1", baseDate, 3)

	// Shipping notice without an order number, 3 days after placement.
	cand := candidate(model.OrderStatusShipped, "", baseDate.AddDate(0, 0, 3), 3)
	out, err := f.matcher.Reconcile(context.Background(), 1, cand)
	require.NoError(t, err)
	assert.Equal(t, reconcile.ActionUpdated, out.Action)
	assert.Equal(t, "fuzzy matched by supplier and date", out.Reason)
	assert.Equal(t, seeded.ID, out.OrderID)
	assert.Equal(t, model.OrderStatusShipped, seeded.Status)
	assert.Len(t, f.orders.orders, 1)
}

func TestFuzzyMatchOutsideWindowCreates(t *testing.T) {
	f := newFixture()
	seedOrder(f, model.OrderStatusOrdered, "DX-1", baseDate, 3)

	// 8 days after placement: outside the 5-day notice window.
	cand := candidate(model.OrderStatusShipped, "", baseDate.AddDate(0, 0, 8), 3)
	out, err := f.matcher.Reconcile(context.Background(), 1, cand)
	require.NoError(t, err)
	assert.Equal(t, reconcile.ActionCreated, out.Action)
	assert.Len(t, f.orders.orders, 2)
}

func TestFuzzyMatchIgnoresQuantity(t *testing.T) {
	f := newFixture()
	seeded := seedOrder(f, model.OrderStatusOrdered, "DX-1", baseDate, 3)

	// Shipping notices often omit quantity; a pack-size default of 1 must
	// still fuzzy-match the 3-box order.
	cand := candidate(model.OrderStatusShipped, "", baseDate.AddDate(0, 0, 2), 1)
	out, err := f.matcher.Reconcile(context.Background(), 1, cand)
	require.NoError(t, err)
	assert.Equal(t, reconcile.ActionUpdated, out.Action)
	assert.Equal(t, seeded.ID, out.OrderID)
}

func TestSynthesizedKeyNeverExactMatches(t *testing.T) {
	f := newFixture()
	synthKey := "dexcom-1700000000"
	seedOrder(f, model.OrderStatusOrdered, synthKey, baseDate, 3)

	cand := candidate(model.OrderStatusShipped, synthKey, baseDate.AddDate(0, 0, 1), 3)
	cand.Synthesized = true

	out, err := f.matcher.Reconcile(context.Background(), 1, cand)
	require.NoError(t, err)
	// Resolved by the fuzzy stage, not by key equality.
	assert.Equal(t, "fuzzy matched by supplier and date", out.Reason)
}

func TestDuplicateGuardBlocksSecondCreation(t *testing.T) {
	f := newFixture()

	// Confirmation without a number, then a duplicate of it on the same
	// day. Stage 2 skips it (ordered -> ordered is not forward), stage 3
	// must catch it before creation.
	first, err := f.matcher.Reconcile(context.Background(), 1, candidate(model.OrderStatusOrdered, "", baseDate, 3))
	require.NoError(t, err)
	assert.Equal(t, reconcile.ActionCreated, first.Action)

	second, err := f.matcher.Reconcile(context.Background(), 1, candidate(model.OrderStatusOrdered, "", baseDate, 3))
	require.NoError(t, err)
	assert.Equal(t, reconcile.ActionSkipped, second.Action)
	assert.Len(t, f.orders.orders, 1)
}

func TestCreateDeliveredIncrementsOnce(t *testing.T) {
	f := newFixture()

	out, err := f.matcher.Reconcile(context.Background(), 1, candidate(model.OrderStatusDelivered, "DX-9", baseDate, 3))
	require.NoError(t, err)
	assert.Equal(t, reconcile.ActionCreated, out.Action)

	created := f.orders.byID(out.OrderID)
	require.NotNil(t, created)
	assert.Equal(t, model.OrderStatusDelivered, created.Status)
	require.NotNil(t, created.DeliveredAt)
	assert.Equal(t, 1, f.inventory.increments)
	assert.Equal(t, 3, f.inventory.total)
}

func TestCreateResolvesProductAndTracking(t *testing.T) {
	f := newFixture()

	cand := candidate(model.OrderStatusShipped, "", baseDate, 3)
	cand.TrackingNumber = model.Some("1Z999")

	out, err := f.matcher.Reconcile(context.Background(), 1, cand)
	require.NoError(t, err)
	assert.Equal(t, reconcile.ActionCreated, out.Action)

	created := f.orders.byID(out.OrderID)
	require.NotNil(t, created)
	require.NotNil(t, created.ProductID)
	assert.Equal(t, int64(1), *created.ProductID)
	require.NotNil(t, created.TrackingNumber)
	assert.Equal(t, "1Z999", *created.TrackingNumber)
	// Shipped, not delivered: no inventory movement yet.
	assert.Zero(t, f.inventory.increments)
}

func TestDeliveredWithoutProductSkipsIncrement(t *testing.T) {
	f := newFixture()

	cand := candidate(model.OrderStatusDelivered, "DX-5", baseDate, 3)
	cand.Items = []string{"Mystery Item"}

	out, err := f.matcher.Reconcile(context.Background(), 1, cand)
	require.NoError(t, err)
	assert.Equal(t, reconcile.ActionCreated, out.Action)
	assert.Zero(t, f.inventory.increments)
}
