// Package journal_repo provides the PostgreSQL implementation of the
// summary journal repository used by reconciliation.
package journal_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"provender/internal/core/apperror"
	"provender/internal/core/id"
	"provender/internal/domain/reconciliation"
	"provender/internal/infrastructure/storage/postgres"
)

const summaryJournalTable = "summary_journal"

var entryColumns = []string{
	"id", "customer_id", "customer_name", "product_id", "product_full_name",
	"order_qty", "shipped_qty", "price", "ship_date", "idn", "status",
	"order_item_id",
}

// JournalRepo implements reconciliation.Repository.
type JournalRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewJournalRepo creates a new summary journal repository.
func NewJournalRepo(txm *postgres.TxManager) *JournalRepo {
	return &JournalRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// ListSyncedUnlinked returns synced entries with no order item
// back-reference, in ship date order so batches fold deterministically.
func (r *JournalRepo) ListSyncedUnlinked(ctx context.Context) ([]reconciliation.JournalEntry, error) {
	q := r.builder.Select(entryColumns...).
		From(summaryJournalTable).
		Where(squirrel.Eq{"status": reconciliation.EntrySynced}).
		Where("order_item_id IS NULL").
		OrderBy("ship_date", "id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []reconciliation.JournalEntry
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("select synced unlinked entries: %w", err)
	}

	return entries, nil
}

// ListUnresolved returns entries missing a customer or product key.
func (r *JournalRepo) ListUnresolved(ctx context.Context) ([]reconciliation.JournalEntry, error) {
	q := r.builder.Select(entryColumns...).
		From(summaryJournalTable).
		Where(squirrel.Or{
			squirrel.Expr("customer_id IS NULL"),
			squirrel.Expr("product_id IS NULL"),
		}).
		OrderBy("ship_date", "id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []reconciliation.JournalEntry
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("select unresolved entries: %w", err)
	}

	return entries, nil
}

// SetOrderItemID writes the back-reference on one entry.
func (r *JournalRepo) SetOrderItemID(ctx context.Context, entryID, orderItemID id.ID) error {
	return r.setColumn(ctx, entryID, "order_item_id", orderItemID)
}

// SetCustomerID writes a resolved customer key on one entry.
func (r *JournalRepo) SetCustomerID(ctx context.Context, entryID, customerID id.ID) error {
	return r.setColumn(ctx, entryID, "customer_id", customerID)
}

// SetProductID writes a resolved product key on one entry.
func (r *JournalRepo) SetProductID(ctx context.Context, entryID, productID id.ID) error {
	return r.setColumn(ctx, entryID, "product_id", productID)
}

func (r *JournalRepo) setColumn(ctx context.Context, entryID id.ID, column string, value id.ID) error {
	q := r.builder.Update(summaryJournalTable).
		Set(column, value).
		Where(squirrel.Eq{"id": entryID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update journal entry %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("journal entry", entryID.String())
	}
	return nil
}

// Ensure interface compliance.
var _ reconciliation.Repository = (*JournalRepo)(nil)
