// Package fulfillment drives orders through the assembly and shipment
// lifecycle. Transitions are strictly ordered; assembly confirmation is
// the only one with stock side effects.
package fulfillment

import (
	"context"
	"time"

	"provender/internal/core/apperror"
	"provender/internal/core/entity"
	"provender/internal/core/id"
	"provender/internal/core/types"
)

// Status is the fulfillment stage of an order.
// The happy path is NEW → IN_ASSEMBLY → DISTRIBUTING → LOADED → SHIPPED.
// Cancellation is an orthogonal lifecycle tag, not a status.
type Status string

const (
	StatusNew          Status = "NEW"
	StatusInAssembly   Status = "IN_ASSEMBLY"
	StatusDistributing Status = "DISTRIBUTING"
	StatusLoaded       Status = "LOADED"
	StatusShipped      Status = "SHIPPED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusInAssembly, StatusDistributing, StatusLoaded, StatusShipped:
		return true
	}
	return false
}

// next returns the only permitted successor, or "" for the terminal state.
func (s Status) next() Status {
	switch s {
	case StatusNew:
		return StatusInAssembly
	case StatusInAssembly:
		return StatusDistributing
	case StatusDistributing:
		return StatusLoaded
	case StatusLoaded:
		return StatusShipped
	}
	return ""
}

// Order is a customer order owned by the fulfillment machine.
// Mutated only through transitions or pre-assembly item edits;
// never hard-deleted (lifecycle disable only).
type Order struct {
	entity.BaseRecord

	CustomerID id.ID     `db:"customer_id" json:"customerId"`
	Date       time.Time `db:"date" json:"date"`
	Status     Status    `db:"status" json:"status"`

	ExpeditorID *id.ID `db:"expeditor_id" json:"expeditorId,omitempty"`

	TotalAmount types.Money    `db:"total_amount" json:"totalAmount"`
	TotalWeight types.Quantity `db:"total_weight" json:"totalWeight"`

	// IDN is the business-day order number assigned by the sales channel.
	// Empty for manually entered orders.
	IDN string `db:"idn" json:"idn,omitempty"`

	// Transition stamps. Each ...By field holds the opaque actor id
	// supplied by the caller.
	AssemblyStartedAt   *time.Time `db:"assembly_started_at" json:"assemblyStartedAt,omitempty"`
	AssemblyStartedBy   string     `db:"assembly_started_by" json:"assemblyStartedBy,omitempty"`
	AssemblyConfirmedAt *time.Time `db:"assembly_confirmed_at" json:"assemblyConfirmedAt,omitempty"`
	AssemblyConfirmedBy string     `db:"assembly_confirmed_by" json:"assemblyConfirmedBy,omitempty"`
	DispatchDay         *time.Time `db:"dispatch_day" json:"dispatchDay,omitempty"`
	LoadedAt            *time.Time `db:"loaded_at" json:"loadedAt,omitempty"`
	LoadedBy            string     `db:"loaded_by" json:"loadedBy,omitempty"`
	ShippedAt           *time.Time `db:"shipped_at" json:"shippedAt,omitempty"`
	ShippedBy           string     `db:"shipped_by" json:"shippedBy,omitempty"`

	Items []OrderItem `db:"-" json:"items"`
}

// OrderItem is one product line, owned exclusively by its order.
type OrderItem struct {
	ID        id.ID          `db:"id" json:"id"`
	OrderID   id.ID          `db:"order_id" json:"orderId"`
	ProductID id.ID          `db:"product_id" json:"productId"`
	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	Price     types.Money    `db:"price" json:"price"`
	Amount    types.Money    `db:"amount" json:"amount"`

	// ShippedQty is the fact quantity, set once at assembly completion.
	ShippedQty types.Quantity `db:"shipped_qty" json:"shippedQty"`
}

// NewOrder creates an order in the NEW state.
func NewOrder(customerID id.ID, date time.Time) *Order {
	return &Order{
		BaseRecord: entity.NewBaseRecord(),
		CustomerID: customerID,
		Date:       date,
		Status:     StatusNew,
		Items:      make([]OrderItem, 0),
	}
}

// AddItem appends a line and recalculates totals.
func (o *Order) AddItem(productID id.ID, quantity types.Quantity, price types.Money) {
	item := OrderItem{
		ID:        id.New(),
		OrderID:   o.ID,
		ProductID: productID,
		Quantity:  quantity,
		Price:     price,
		Amount:    price.Mul(quantity.Decimal()),
	}
	o.Items = append(o.Items, item)
	o.RecalculateTotals()
}

// RecalculateTotals recomputes the order totals from its items.
func (o *Order) RecalculateTotals() {
	o.TotalAmount = types.ZeroMoney()
	o.TotalWeight = 0
	for _, item := range o.Items {
		o.TotalAmount = o.TotalAmount.Add(item.Amount)
		o.TotalWeight += item.Quantity
	}
}

// Validate implements entity.Validatable.
func (o *Order) Validate(ctx context.Context) error {
	if id.IsNil(o.CustomerID) {
		return apperror.NewValidation("customer is required").
			WithDetail("field", "customerId")
	}
	if o.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}
	for i, item := range o.Items {
		if id.IsNil(item.ProductID) {
			return apperror.NewValidation("product is required").
				WithDetail("field", "items").
				WithDetail("lineNo", i+1)
		}
		if !item.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "items").
				WithDetail("lineNo", i+1)
		}
		if item.Price.IsNegative() {
			return apperror.NewValidation("price must not be negative").
				WithDetail("field", "items").
				WithDetail("lineNo", i+1)
		}
	}
	return nil
}

// requireStatus checks the transition precondition.
// A mismatch is always reported, never silently coerced.
func (o *Order) requireStatus(expected Status) error {
	if o.IsDisabled() {
		return apperror.NewBusinessRule(apperror.CodeOrderDisabled, "order is cancelled").
			WithDetail("order_id", o.ID.String())
	}
	if o.Status != expected {
		return apperror.NewInvalidTransition(o.ID.String(), string(o.Status), string(expected))
	}
	return nil
}

// ItemFact carries the fact quantity for one item at assembly completion.
type ItemFact struct {
	ItemID     id.ID          `json:"itemId"`
	ShippedQty types.Quantity `json:"shippedQty"`
}

var _ entity.Validatable = (*Order)(nil)
