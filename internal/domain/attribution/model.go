// Package attribution links production output to the purchase lot it
// was sourced from, for costing and traceability.
//
// The match is earliest-eligible-lot by purchase date, not
// earliest-lot-with-remaining-quantity: lot capacity is deliberately
// not tracked.
package attribution

import (
	"time"

	"provender/internal/core/entity"
	"provender/internal/core/id"
	"provender/internal/core/types"
)

// SourceType classifies where a production run's input came from.
type SourceType string

const (
	// SourcePurchase means the run consumed an incoming purchase lot.
	SourcePurchase SourceType = "PURCHASE"
	// SourceOpeningBalance marks runs predating lot tracking; they are
	// never attributed.
	SourceOpeningBalance SourceType = "OPENING_BALANCE"
)

// ProductionRun is one recorded unit of production output.
// SourcePurchaseItemID starts null and is set exactly once by the
// attributor; already-linked runs are skipped.
type ProductionRun struct {
	ID             id.ID            `db:"id" json:"id"`
	ProductID      id.ID            `db:"product_id" json:"productId"`
	ProductionDate time.Time        `db:"production_date" json:"productionDate"`
	Quantity       types.Quantity   `db:"quantity" json:"quantity"`
	SourceType     SourceType       `db:"source_type" json:"sourceType"`
	Lifecycle      entity.Lifecycle `db:"lifecycle" json:"lifecycle"`

	SourcePurchaseItemID *id.ID `db:"source_purchase_item_id" json:"sourcePurchaseItemId,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// PurchaseLot is the read-only projection of one incoming purchase line.
// Owned by the purchasing module; the attributor never writes it.
type PurchaseLot struct {
	ItemID       id.ID     `db:"item_id" json:"itemId"`
	ProductID    id.ID     `db:"product_id" json:"productId"`
	PurchaseDate time.Time `db:"purchase_date" json:"purchaseDate"`
}

// LinkedRun reports one attribution made by a batch, so a downstream
// closure step can recalculate derived cost aggregates.
type LinkedRun struct {
	RunID          id.ID `json:"runId"`
	PurchaseItemID id.ID `json:"purchaseItemId"`
}

// Report summarizes one attribution batch.
// Unmatched runs are review candidates (possible OPENING_BALANCE
// reclassification), not failures.
type Report struct {
	Linked    []LinkedRun `json:"linked"`
	Unmatched []id.ID     `json:"unmatched"`
	Failed    int         `json:"failed"`
}

// LinkedCount returns the number of runs changed by the batch.
func (r Report) LinkedCount() int { return len(r.Linked) }
