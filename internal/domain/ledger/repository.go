package ledger

import (
	"context"

	"provender/internal/core/id"
	"provender/internal/core/types"
)

// Repository defines ledger persistence operations.
// Implementations must make AppendAndIncrement a single atomic unit:
// the transaction row and the balance increment commit or fail together.
type Repository interface {
	// AppendAndIncrement appends one transaction row and atomically
	// increments the product balance by tx.Quantity, creating the
	// balance row with quantity 0 first if missing. Returns the
	// resulting balance.
	AppendAndIncrement(ctx context.Context, tx Transaction) (Balance, error)

	// GetBalance returns the current balance, zero-valued if no row exists.
	GetBalance(ctx context.Context, productID id.ID) (Balance, error)

	// GetBalances returns balances for the given products (missing rows omitted).
	GetBalances(ctx context.Context, productIDs []id.ID) ([]Balance, error)

	// History returns transaction rows for a product, newest first.
	History(ctx context.Context, productID id.ID, filter HistoryFilter) ([]Transaction, error)

	// SumTransactions returns the sum of all transaction quantities for
	// a product. Used by consistency audits against the balance row.
	SumTransactions(ctx context.Context, productID id.ID) (types.Quantity, error)
}
