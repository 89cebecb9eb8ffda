package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/model"
	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/pkg/metrics"
)

// Action is the matcher's verdict for one candidate.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionSkipped Action = "skipped"
)

// Outcome describes what Reconcile did with a candidate.
type Outcome struct {
	Action  Action
	OrderID int64
	Reason  string
}

// Fuzzy-match windows. A shipping or delivery notice without an order number
// is attributed to a recent order of the same supplier only when the notice
// arrives within maxNoticeGapDays of placement; an order cannot ship before
// it was placed.
const (
	recentOrderWindowDays = 7
	maxNoticeGapDays      = 5
)

// Matcher reconciles candidate orders against a user's ledger. The stage-3
// duplicate guard matches on exact quantity while the stage-2 fuzzy match
// ignores it: confirmation emails carry quantity, shipping notices usually
// do not, and requiring it in stage 2 would cause false negatives.
type Matcher struct {
	orders    OrderStore
	inventory InventoryStore
	products  ProductStore
	logger    *zap.Logger
}

func NewMatcher(orders OrderStore, inventory InventoryStore, products ProductStore, logger *zap.Logger) *Matcher {
	return &Matcher{
		orders:    orders,
		inventory: inventory,
		products:  products,
		logger:    logger,
	}
}

// Reconcile decides whether a candidate updates an existing order, creates a
// new one, or is discarded as a duplicate. The stages run as a strict
// sequence; each either resolves the candidate or falls through.
func (m *Matcher) Reconcile(ctx context.Context, userID int64, cand model.CandidateOrder) (Outcome, error) {
	// Stage 1: exact match by vendor-assigned order number. Synthesized
	// keys are excluded; they only exist to give the audit record a handle.
	if cand.OrderNumber.Present && !cand.Synthesized {
		existing, err := m.orders.FindByOrderNumber(ctx, userID, cand.OrderNumber.Value)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return Outcome{}, fmt.Errorf("order number lookup: %w", err)
		}
		if existing != nil {
			return m.applyTransition(ctx, existing, cand, "matched by order number")
		}
	}

	// Stage 2: fuzzy match by supplier and recency, for candidates without
	// a vendor-assigned number. Shipping notices frequently omit the order
	// number present in the original confirmation.
	if !cand.OrderNumber.Present || cand.Synthesized {
		since := cand.OrderDate.AddDate(0, 0, -recentOrderWindowDays)
		recent, err := m.orders.FindRecentBySupplier(ctx, userID, cand.Supplier,
			[]model.OrderStatus{model.OrderStatusOrdered, model.OrderStatusShipped}, since)
		if err != nil {
			return Outcome{}, fmt.Errorf("recent order lookup: %w", err)
		}
		for i := range recent {
			order := &recent[i]
			gap := cand.OrderDate.Sub(order.OrderDate)
			if gap < 0 || gap > maxNoticeGapDays*24*time.Hour {
				continue
			}
			if !order.Status.IsForwardTransition(cand.Status) {
				continue
			}
			return m.applyTransition(ctx, order, cand, "fuzzy matched by supplier and date")
		}
	}

	// Stage 3: duplicate-creation guard. Stricter than stage 2 (exact date
	// and quantity) to catch a confirmation and a shipping notice that both
	// lack a number yet describe the same purchase.
	existing, err := m.orders.FindExact(ctx, userID, cand.Supplier, cand.OrderDate, cand.Quantity)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Outcome{}, fmt.Errorf("duplicate guard lookup: %w", err)
	}
	if existing != nil {
		return m.applyTransition(ctx, existing, cand, "matched duplicate order")
	}

	// Stage 4: nothing matched, create.
	return m.create(ctx, userID, cand)
}

// applyTransition advances an order to the candidate's status if that is a
// forward move, else skips. The inventory increment is coupled one-to-one
// with the transition to delivered: replaying a delivered email against an
// already-delivered order lands in the skip branch and has no side effects.
func (m *Matcher) applyTransition(ctx context.Context, order *model.Order, cand model.CandidateOrder, reason string) (Outcome, error) {
	if !order.Status.IsForwardTransition(cand.Status) {
		return Outcome{
			Action:  ActionSkipped,
			OrderID: order.ID,
			Reason:  "no new info",
		}, nil
	}

	var tracking *string
	if cand.TrackingNumber.Present && order.TrackingNumber == nil {
		tracking = &cand.TrackingNumber.Value
	}

	var deliveredAt *time.Time
	if cand.Status == model.OrderStatusDelivered {
		t := cand.OrderDate
		deliveredAt = &t
	}

	if err := m.orders.ApplyTransition(ctx, order.ID, cand.Status, tracking, deliveredAt); err != nil {
		return Outcome{}, fmt.Errorf("apply transition: %w", err)
	}

	if cand.Status == model.OrderStatusDelivered {
		m.incrementInventory(ctx, order.UserID, order.ProductID, order.Quantity, order.ID)
	}

	m.logger.Info("Order updated",
		zap.Int64("order_id", order.ID),
		zap.String("from", string(order.Status)),
		zap.String("to", string(cand.Status)),
		zap.String("reason", reason),
	)

	return Outcome{
		Action:  ActionUpdated,
		OrderID: order.ID,
		Reason:  reason,
	}, nil
}

func (m *Matcher) create(ctx context.Context, userID int64, cand model.CandidateOrder) (Outcome, error) {
	order := &model.Order{
		UserID:    userID,
		OrderDate: cand.OrderDate,
		Quantity:  cand.Quantity,
		Supplier:  cand.Supplier,
		Status:    cand.Status,
	}

	if cand.OrderNumber.Present && !cand.Synthesized {
		order.OrderNumber = &cand.OrderNumber.Value
	}
	if cand.TrackingNumber.Present {
		order.TrackingNumber = &cand.TrackingNumber.Value
	}
	if product := m.resolveProduct(ctx, cand.Items); product != nil {
		order.ProductID = &product.ID
	}
	if cand.Status == model.OrderStatusDelivered {
		t := cand.OrderDate
		order.DeliveredAt = &t
	}

	id, err := m.orders.Insert(ctx, order)
	if err != nil {
		return Outcome{}, fmt.Errorf("insert order: %w", err)
	}
	order.ID = id

	// Delivered on first sight: there is no prior state to transition from,
	// so the one increment happens together with creation.
	if cand.Status == model.OrderStatusDelivered {
		m.incrementInventory(ctx, userID, order.ProductID, order.Quantity, id)
	}

	m.logger.Info("Order created",
		zap.Int64("order_id", id),
		zap.String("supplier", cand.Supplier),
		zap.String("status", string(cand.Status)),
	)

	return Outcome{
		Action:  ActionCreated,
		OrderID: id,
		Reason:  "no existing order matched",
	}, nil
}

// resolveProduct is a best-effort catalog lookup over the extracted item
// descriptions; the first hit wins.
func (m *Matcher) resolveProduct(ctx context.Context, items []string) *model.Product {
	for _, item := range items {
		product, err := m.products.FindByName(ctx, item)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				m.logger.Warn("Product lookup failed", zap.String("item", item), zap.Error(err))
			}
			continue
		}
		return product
	}
	return nil
}

// incrementInventory credits the delivery once. Failures are logged, not
// returned: the status transition is already committed, and retrying the
// email would find a non-forward transition and never reach this point
// again, so propagating the error could not trigger a second attempt.
func (m *Matcher) incrementInventory(ctx context.Context, userID int64, productID *int64, quantity int, orderID int64) {
	if productID == nil {
		m.logger.Warn("Delivered order has no resolved product, inventory not credited",
			zap.Int64("order_id", orderID),
		)
		return
	}

	if err := m.inventory.Increment(ctx, userID, *productID, quantity); err != nil {
		m.logger.Error("Inventory increment failed",
			zap.Int64("order_id", orderID),
			zap.Int64("product_id", *productID),
			zap.Int("quantity", quantity),
			zap.Error(err),
		)
		return
	}

	metrics.InventoryIncrementCount.Inc()
}
