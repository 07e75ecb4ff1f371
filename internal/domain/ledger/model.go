// Package ledger provides the append-only stock ledger and its
// materialized per-product balance.
package ledger

import (
	"time"

	"provender/internal/core/id"
	"provender/internal/core/types"
)

// TransactionType classifies stock-affecting events.
type TransactionType string

const (
	// TypeArrival increases stock (incoming purchase lot or production output).
	TypeArrival TransactionType = "ARRIVAL"
	// TypeAssemblyConsumption decreases stock when an order's assembly is confirmed.
	TypeAssemblyConsumption TransactionType = "ASSEMBLY_CONSUMPTION"
	// TypeAdjustment is a manual correction, either sign.
	TypeAdjustment TransactionType = "ADJUSTMENT"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeArrival, TypeAssemblyConsumption, TypeAdjustment:
		return true
	}
	return false
}

// Transaction is one append-only ledger row. Rows are immutable once
// written: corrections are new ADJUSTMENT rows, never edits.
type Transaction struct {
	ID        id.ID           `db:"id" json:"id"`
	ProductID id.ID           `db:"product_id" json:"productId"`
	Type      TransactionType `db:"type" json:"type"`

	// Quantity is signed: negative for consumption.
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// OrderID links consumption rows back to the order that caused them.
	OrderID *id.ID `db:"order_id" json:"orderId,omitempty"`

	Note      string    `db:"note" json:"note,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Balance is the materialized current balance for one product.
// Created lazily on first transaction; never deleted.
// Invariant: Quantity equals the sum of all Transaction.Quantity rows
// for the product.
type Balance struct {
	ProductID id.ID          `db:"product_id" json:"productId"`
	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	UpdatedAt time.Time      `db:"updated_at" json:"updatedAt"`
}

// IsNegative reports oversold stock. This is a data-quality signal for
// operators, not an error: assembly must never be blocked by it.
func (b Balance) IsNegative() bool {
	return b.Quantity.IsNegative()
}

// ApplyInput describes one ledger application.
type ApplyInput struct {
	ProductID id.ID
	Type      TransactionType
	Quantity  types.Quantity
	OrderID   *id.ID
	Note      string
}

// HistoryFilter narrows the transaction history read.
type HistoryFilter struct {
	Type     *TransactionType
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}
