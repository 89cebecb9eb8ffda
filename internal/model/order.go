package model

import "time"

// OrderStatus is the shipment lifecycle state of a supply order.
type OrderStatus string

const (
	OrderStatusOrdered   OrderStatus = "ordered"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
)

// rank positions a status in the ordered -> shipped -> delivered lifecycle.
func (s OrderStatus) rank() int {
	switch s {
	case OrderStatusOrdered:
		return 1
	case OrderStatusShipped:
		return 2
	case OrderStatusDelivered:
		return 3
	default:
		return 0
	}
}

// IsForwardTransition reports whether moving from s to next advances the
// lifecycle. Status never regresses: once delivered, always delivered.
func (s OrderStatus) IsForwardTransition(next OrderStatus) bool {
	return next.rank() > s.rank()
}

// Field is an optional extracted value. Present distinguishes "the email did
// not carry this field" from a legitimate zero value.
type Field[T any] struct {
	Value   T
	Present bool
}

// Some wraps a present value.
func Some[T any](v T) Field[T] {
	return Field[T]{Value: v, Present: true}
}

// None is an absent field.
func None[T any]() Field[T] {
	return Field[T]{}
}

// Or returns the value if present, otherwise def.
func (f Field[T]) Or(def T) T {
	if f.Present {
		return f.Value
	}
	return def
}

// CandidateOrder is a parser extraction awaiting reconciliation. It lives
// only for the duration of one sync pass.
type CandidateOrder struct {
	// OrderNumber is the vendor-assigned id. Synthesized marks a fallback
	// key built from supplier + email timestamp for vendors whose shipping
	// notices carry no order id; synthesized keys are never used for exact
	// matching.
	OrderNumber    Field[string]
	Synthesized    bool
	OrderDate      time.Time
	Quantity       int
	Supplier       string
	Status         OrderStatus
	TrackingNumber Field[string]
	Confidence     float64
	Items          []string
}

// Order is the persisted ledger entity.
type Order struct {
	ID             int64
	UserID         int64
	OrderDate      time.Time
	Quantity       int
	Supplier       string
	Status         OrderStatus
	OrderNumber    *string
	TrackingNumber *string
	ProductID      *int64
	DeliveredAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Product is a catalog entry supplies are counted against.
type Product struct {
	ID   int64
	Name string
}
