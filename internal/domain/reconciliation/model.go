// Package reconciliation folds externally aggregated order lines into
// canonical orders exactly once.
package reconciliation

import (
	"time"

	"provender/internal/core/id"
	"provender/internal/core/types"
)

// EntryStatus is the lifecycle of a summary journal entry as managed by
// the external aggregation process. Only synced entries are folded in.
type EntryStatus string

const (
	EntryDraft   EntryStatus = "draft"
	EntryForming EntryStatus = "forming"
	EntrySynced  EntryStatus = "synced"
)

// JournalEntry is one line of an externally aggregated order.
// Entries are never deleted by the engine, only updated with the
// OrderItemID back-reference once materialized.
//
// CustomerID and ProductID may be null when the source only carried a
// human-readable name; the identity backfill resolves them.
type JournalEntry struct {
	ID id.ID `db:"id" json:"id"`

	CustomerID   *id.ID `db:"customer_id" json:"customerId,omitempty"`
	CustomerName string `db:"customer_name" json:"customerName"`

	ProductID       *id.ID `db:"product_id" json:"productId,omitempty"`
	ProductFullName string `db:"product_full_name" json:"productFullName"`

	OrderQty   types.Quantity `db:"order_qty" json:"orderQty"`
	ShippedQty types.Quantity `db:"shipped_qty" json:"shippedQty"`
	Price      types.Money    `db:"price" json:"price"`

	ShipDate time.Time `db:"ship_date" json:"shipDate"`

	// IDN is the business-day order number from the sales channel.
	IDN string `db:"idn" json:"idn"`

	Status EntryStatus `db:"status" json:"status"`

	// OrderItemID is the back-reference written exactly once. Every
	// synced entry must eventually point at a real order item.
	OrderItemID *id.ID `db:"order_item_id" json:"orderItemId,omitempty"`
}

// Resolved reports whether both foreign keys are present.
func (e JournalEntry) Resolved() bool {
	return e.CustomerID != nil && !isNilPtr(e.CustomerID) &&
		e.ProductID != nil && !isNilPtr(e.ProductID)
}

func isNilPtr(p *id.ID) bool { return p == nil || id.IsNil(*p) }

// GroupKey identifies one reconciliation group: all entries of one
// customer shipping on one business day.
type GroupKey struct {
	CustomerID id.ID
	Day        time.Time
}

// Report summarizes one reconciliation batch.
type Report struct {
	OrdersCreated int     `json:"ordersCreated"`
	OrdersReused  int     `json:"ordersReused"`
	ItemsCreated  int     `json:"itemsCreated"`
	ItemsReused   int     `json:"itemsReused"`
	EntriesLinked int     `json:"entriesLinked"`
	Skipped       []id.ID `json:"skipped"`
	FailedGroups  int     `json:"failedGroups"`
}

// BackfillReport summarizes one identity backfill pass.
type BackfillReport struct {
	CustomersResolved int `json:"customersResolved"`
	ProductsResolved  int `json:"productsResolved"`

	// Ambiguous and NoMatch entries are left for manual resolution;
	// a guessed foreign key is never written.
	Ambiguous []UnresolvedName `json:"ambiguous"`
	NoMatch   []UnresolvedName `json:"noMatch"`
}

// UnresolvedName describes one name the backfill could not resolve.
type UnresolvedName struct {
	EntryID id.ID  `json:"entryId"`
	Field   string `json:"field"` // "customer" or "product"
	Name    string `json:"name"`
}
