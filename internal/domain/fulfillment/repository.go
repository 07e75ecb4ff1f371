package fulfillment

import (
	"context"
	"time"

	"provender/internal/core/id"
	"provender/internal/core/types"
)

// ListFilter narrows order listings.
type ListFilter struct {
	CustomerID      *id.ID
	Status          *Status
	DateFrom        *time.Time
	DateTo          *time.Time
	IncludeDisabled bool
	Limit           int
	Offset          int
}

// Repository defines order persistence operations.
type Repository interface {
	// Create inserts the order header.
	Create(ctx context.Context, order *Order) error

	// GetByID returns the order header or apperror NotFound.
	// Disabled orders are returned (callers decide).
	GetByID(ctx context.Context, orderID id.ID) (*Order, error)

	// FindByCustomerAndIDN locates an order by its sales-channel
	// business-day number, falling back to the order date when idn is
	// empty. Returns nil, nil when absent (reconciliation existence check).
	FindByCustomerAndIDN(ctx context.Context, customerID id.ID, idn string, day time.Time) (*Order, error)

	// Update writes header fields including status and stamps.
	Update(ctx context.Context, order *Order) error

	// UpdateStatusFrom advances status only when the stored status still
	// equals expected, writing the given stamp fields in the same
	// statement. Returns false when the guard did not match, so a
	// concurrent transition loses cleanly instead of double-applying.
	UpdateStatusFrom(ctx context.Context, order *Order, expected Status) (bool, error)

	// GetItems returns order items ordered by insertion.
	GetItems(ctx context.Context, orderID id.ID) ([]OrderItem, error)

	// SaveItems replaces the item set (pre-assembly edits and creation).
	SaveItems(ctx context.Context, orderID id.ID, items []OrderItem) error

	// UpdateItemShippedQty writes the fact quantity on one item.
	UpdateItemShippedQty(ctx context.Context, itemID id.ID, qty types.Quantity) error

	// List returns orders matching the filter.
	List(ctx context.Context, filter ListFilter) ([]*Order, error)
}
