// Package ledger_repo provides the PostgreSQL implementation of the
// stock ledger repository.
package ledger_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"provender/internal/core/id"
	"provender/internal/core/types"
	"provender/internal/domain/ledger"
	"provender/internal/infrastructure/storage/postgres"
)

const (
	transactionsTable = "stock_transactions"
	balancesTable     = "stock_balances"
)

// StockRepo implements ledger.Repository.
type StockRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewStockRepo creates a new stock ledger repository.
func NewStockRepo(txm *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// AppendAndIncrement appends a transaction row and bumps the balance in
// one statement each, inside the caller's transaction.
//
// The balance update is a single atomic increment, not a load-modify-
// store at the application layer: the row lock taken by the UPDATE is
// what serializes concurrent assemblies touching the same product.
func (r *StockRepo) AppendAndIncrement(ctx context.Context, tx ledger.Transaction) (ledger.Balance, error) {
	var balance ledger.Balance

	q := r.builder.Insert(transactionsTable).
		Columns("id", "product_id", "type", "quantity", "order_id", "note", "created_at").
		Values(tx.ID, tx.ProductID, tx.Type, tx.Quantity, tx.OrderID, tx.Note, tx.CreatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return balance, fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return balance, fmt.Errorf("insert transaction: %w", err)
	}

	// Missing balance rows are created with the delta directly; the
	// conflict path is the atomic increment.
	upsertSQL := `
		INSERT INTO stock_balances (product_id, quantity, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (product_id) DO UPDATE
		SET quantity = stock_balances.quantity + EXCLUDED.quantity,
		    updated_at = EXCLUDED.updated_at
		RETURNING product_id, quantity, updated_at
	`
	err = querier.QueryRow(ctx, upsertSQL, tx.ProductID, tx.Quantity, tx.CreatedAt).
		Scan(&balance.ProductID, &balance.Quantity, &balance.UpdatedAt)
	if err != nil {
		return balance, fmt.Errorf("increment balance: %w", err)
	}

	return balance, nil
}

// GetBalance returns the current balance, zero-valued when absent.
func (r *StockRepo) GetBalance(ctx context.Context, productID id.ID) (ledger.Balance, error) {
	var balance ledger.Balance

	q := r.builder.Select("product_id", "quantity", "updated_at").
		From(balancesTable).
		Where(squirrel.Eq{"product_id": productID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return balance, fmt.Errorf("build query: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &balance, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return ledger.Balance{ProductID: productID, Quantity: 0}, nil
		}
		return balance, fmt.Errorf("get balance: %w", err)
	}

	return balance, nil
}

// GetBalances returns balances for the given products.
func (r *StockRepo) GetBalances(ctx context.Context, productIDs []id.ID) ([]ledger.Balance, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}

	q := r.builder.Select("product_id", "quantity", "updated_at").
		From(balancesTable).
		Where(squirrel.Eq{"product_id": productIDs}).
		OrderBy("product_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var balances []ledger.Balance
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &balances, sql, args...); err != nil {
		return nil, fmt.Errorf("select balances: %w", err)
	}

	return balances, nil
}

// History returns transaction rows for a product, newest first.
func (r *StockRepo) History(ctx context.Context, productID id.ID, filter ledger.HistoryFilter) ([]ledger.Transaction, error) {
	q := r.builder.Select("id", "product_id", "type", "quantity", "order_id", "note", "created_at").
		From(transactionsTable).
		Where(squirrel.Eq{"product_id": productID})

	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"type": *filter.Type})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *filter.ToDate})
	}

	q = q.OrderBy("created_at DESC", "id DESC")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var transactions []ledger.Transaction
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &transactions, sql, args...); err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}

	return transactions, nil
}

// SumTransactions returns the transaction-log sum for a product.
func (r *StockRepo) SumTransactions(ctx context.Context, productID id.ID) (types.Quantity, error) {
	sql := `
		SELECT COALESCE(SUM(quantity), 0)
		FROM stock_transactions
		WHERE product_id = $1
	`

	var sumScaled int64
	querier := r.txm.GetQuerier(ctx)
	err := querier.QueryRow(ctx, sql, productID).Scan(&sumScaled)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("sum transactions: %w", err)
	}

	return types.NewQuantityFromInt64Scaled(sumScaled), nil
}

// Ensure interface compliance.
var _ ledger.Repository = (*StockRepo)(nil)
