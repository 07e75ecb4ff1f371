// Package production_repo provides the PostgreSQL implementation of the
// lot attribution repository: production runs plus the read-only
// purchase lot projection.
package production_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"provender/internal/core/apperror"
	"provender/internal/core/entity"
	"provender/internal/core/id"
	"provender/internal/domain/attribution"
	"provender/internal/infrastructure/storage/postgres"
)

const productionRunsTable = "production_runs"

var runColumns = []string{
	"id", "product_id", "production_date", "quantity",
	"source_type", "lifecycle", "source_purchase_item_id", "created_at",
}

// ProductionRepo implements attribution.Repository.
type ProductionRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewProductionRepo creates a new production repository.
func NewProductionRepo(txm *postgres.TxManager) *ProductionRepo {
	return &ProductionRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CreateRun inserts a production run.
func (r *ProductionRepo) CreateRun(ctx context.Context, run *attribution.ProductionRun) error {
	q := r.builder.Insert(productionRunsTable).
		Columns(runColumns...).
		Values(
			run.ID, run.ProductID, run.ProductionDate, run.Quantity,
			run.SourceType, run.Lifecycle, run.SourcePurchaseItemID, run.CreatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert production run: %w", err)
	}
	return nil
}

// GetRun returns the run or NotFound.
func (r *ProductionRepo) GetRun(ctx context.Context, runID id.ID) (*attribution.ProductionRun, error) {
	q := r.builder.Select(runColumns...).
		From(productionRunsTable).
		Where(squirrel.Eq{"id": runID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var run attribution.ProductionRun
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &run, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("production run", runID.String())
		}
		return nil, fmt.Errorf("get run: %w", err)
	}

	return &run, nil
}

// ListUnlinkedRuns returns active PURCHASE runs still lacking a source
// lot, oldest production date first. Interrupted batches resume from
// this same query with no cleanup.
func (r *ProductionRepo) ListUnlinkedRuns(ctx context.Context) ([]attribution.ProductionRun, error) {
	q := r.builder.Select(runColumns...).
		From(productionRunsTable).
		Where(squirrel.Eq{
			"source_type": attribution.SourcePurchase,
			"lifecycle":   entity.LifecycleActive,
		}).
		Where("source_purchase_item_id IS NULL").
		OrderBy("production_date", "id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var runs []attribution.ProductionRun
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &runs, sql, args...); err != nil {
		return nil, fmt.Errorf("select unlinked runs: %w", err)
	}

	return runs, nil
}

// FindEarliestEligibleLot returns the FIFO match for a product and date,
// or nil when no lot qualifies.
func (r *ProductionRepo) FindEarliestEligibleLot(ctx context.Context, productID id.ID, onOrBefore time.Time) (*attribution.PurchaseLot, error) {
	sql := `
		SELECT pi.id AS item_id, pi.product_id, p.purchase_date
		FROM purchase_items pi
		JOIN purchases p ON p.id = pi.purchase_id
		WHERE pi.product_id = $1
		  AND p.lifecycle = 'active'
		  AND p.purchase_date <= $2
		ORDER BY p.purchase_date, pi.id
		LIMIT 1
	`

	var lot attribution.PurchaseLot
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &lot, sql, productID, onOrBefore); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find eligible lot: %w", err)
	}

	return &lot, nil
}

// SetRunSourceLot writes the attribution once. The IS NULL guard makes
// the write idempotent under concurrent batches.
func (r *ProductionRepo) SetRunSourceLot(ctx context.Context, runID, purchaseItemID id.ID) (bool, error) {
	sql := `
		UPDATE production_runs
		SET source_purchase_item_id = $2
		WHERE id = $1 AND source_purchase_item_id IS NULL
	`

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, runID, purchaseItemID)
	if err != nil {
		return false, fmt.Errorf("set source lot: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Ensure interface compliance.
var _ attribution.Repository = (*ProductionRepo)(nil)
