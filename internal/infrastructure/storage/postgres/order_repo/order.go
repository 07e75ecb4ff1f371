// Package order_repo provides the PostgreSQL implementation of the
// fulfillment order repository.
package order_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"provender/internal/core/apperror"
	"provender/internal/core/id"
	"provender/internal/core/types"
	"provender/internal/domain/fulfillment"
	"provender/internal/infrastructure/storage/postgres"
)

const (
	ordersTable     = "orders"
	orderItemsTable = "order_items"
)

var orderColumns = []string{
	"id", "lifecycle", "version", "created_at", "updated_at",
	"customer_id", "date", "status", "expeditor_id",
	"total_amount", "total_weight", "idn",
	"assembly_started_at", "assembly_started_by",
	"assembly_confirmed_at", "assembly_confirmed_by", "dispatch_day",
	"loaded_at", "loaded_by", "shipped_at", "shipped_by",
}

// OrderRepo implements fulfillment.Repository.
type OrderRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewOrderRepo creates a new order repository.
func NewOrderRepo(txm *postgres.TxManager) *OrderRepo {
	return &OrderRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts the order header.
func (r *OrderRepo) Create(ctx context.Context, order *fulfillment.Order) error {
	q := r.builder.Insert(ordersTable).
		Columns(orderColumns...).
		Values(
			order.ID, order.Lifecycle, order.Version, order.CreatedAt, order.UpdatedAt,
			order.CustomerID, order.Date, order.Status, order.ExpeditorID,
			order.TotalAmount, order.TotalWeight, order.IDN,
			order.AssemblyStartedAt, order.AssemblyStartedBy,
			order.AssemblyConfirmedAt, order.AssemblyConfirmedBy, order.DispatchDay,
			order.LoadedAt, order.LoadedBy, order.ShippedAt, order.ShippedBy,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByID returns the order header or NotFound.
func (r *OrderRepo) GetByID(ctx context.Context, orderID id.ID) (*fulfillment.Order, error) {
	q := r.builder.Select(orderColumns...).
		From(ordersTable).
		Where(squirrel.Eq{"id": orderID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var order fulfillment.Order
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &order, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("order", orderID.String())
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	return &order, nil
}

// FindByCustomerAndIDN locates an order for reconciliation re-entrancy
// checks. Disabled orders are excluded so a cancelled order does not
// swallow re-delivered entries.
func (r *OrderRepo) FindByCustomerAndIDN(ctx context.Context, customerID id.ID, idn string, day time.Time) (*fulfillment.Order, error) {
	q := r.builder.Select(orderColumns...).
		From(ordersTable).
		Where(squirrel.Eq{"customer_id": customerID, "lifecycle": "active"})

	if idn != "" {
		q = q.Where(squirrel.Eq{"idn": idn})
	} else {
		q = q.Where(squirrel.Eq{"date": day})
	}

	q = q.OrderBy("created_at").Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var order fulfillment.Order
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &order, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find order: %w", err)
	}

	return &order, nil
}

// Update writes all header fields.
func (r *OrderRepo) Update(ctx context.Context, order *fulfillment.Order) error {
	q := r.builder.Update(ordersTable).
		Set("lifecycle", order.Lifecycle).
		Set("version", order.Version).
		Set("updated_at", order.UpdatedAt).
		Set("status", order.Status).
		Set("expeditor_id", order.ExpeditorID).
		Set("total_amount", order.TotalAmount).
		Set("total_weight", order.TotalWeight).
		Set("assembly_started_at", order.AssemblyStartedAt).
		Set("assembly_started_by", order.AssemblyStartedBy).
		Set("assembly_confirmed_at", order.AssemblyConfirmedAt).
		Set("assembly_confirmed_by", order.AssemblyConfirmedBy).
		Set("dispatch_day", order.DispatchDay).
		Set("loaded_at", order.LoadedAt).
		Set("loaded_by", order.LoadedBy).
		Set("shipped_at", order.ShippedAt).
		Set("shipped_by", order.ShippedBy).
		Where(squirrel.Eq{"id": order.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("order", order.ID.String())
	}
	return nil
}

// UpdateStatusFrom persists a transition guarded by the stored status,
// so a concurrent transition loses cleanly.
func (r *OrderRepo) UpdateStatusFrom(ctx context.Context, order *fulfillment.Order, expected fulfillment.Status) (bool, error) {
	q := r.builder.Update(ordersTable).
		Set("version", order.Version).
		Set("updated_at", order.UpdatedAt).
		Set("status", order.Status).
		Set("assembly_started_at", order.AssemblyStartedAt).
		Set("assembly_started_by", order.AssemblyStartedBy).
		Set("assembly_confirmed_at", order.AssemblyConfirmedAt).
		Set("assembly_confirmed_by", order.AssemblyConfirmedBy).
		Set("dispatch_day", order.DispatchDay).
		Set("loaded_at", order.LoadedAt).
		Set("loaded_by", order.LoadedBy).
		Set("shipped_at", order.ShippedAt).
		Set("shipped_by", order.ShippedBy).
		Where(squirrel.Eq{
			"id":        order.ID,
			"status":    expected,
			"lifecycle": "active",
		})

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("update status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetItems returns order items in insertion order.
func (r *OrderRepo) GetItems(ctx context.Context, orderID id.ID) ([]fulfillment.OrderItem, error) {
	q := r.builder.Select("id", "order_id", "product_id", "quantity", "price", "amount", "shipped_qty").
		From(orderItemsTable).
		Where(squirrel.Eq{"order_id": orderID}).
		OrderBy("id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []fulfillment.OrderItem
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}

	return items, nil
}

// SaveItems replaces the item set for an order. Callers hold a
// transaction: the delete and COPY land atomically.
func (r *OrderRepo) SaveItems(ctx context.Context, orderID id.ID, items []fulfillment.OrderItem) error {
	querier := r.txm.GetQuerier(ctx)

	deleteSQL := "DELETE FROM " + orderItemsTable + " WHERE order_id = $1"
	if _, err := querier.Exec(ctx, deleteSQL, orderID); err != nil {
		return fmt.Errorf("delete existing items: %w", err)
	}

	if len(items) == 0 {
		return nil
	}

	rows := make([][]any, len(items))
	for i, item := range items {
		rows[i] = []any{item.ID, orderID, item.ProductID, item.Quantity, item.Price, item.Amount, item.ShippedQty}
	}

	inserter := postgres.NewBatchInserter(r.txm)
	columns := []string{"id", "order_id", "product_id", "quantity", "price", "amount", "shipped_qty"}
	if _, err := inserter.CopyFromSlice(ctx, orderItemsTable, columns, rows); err != nil {
		return fmt.Errorf("insert items: %w", err)
	}
	return nil
}

// UpdateItemShippedQty writes the fact quantity on one item.
func (r *OrderRepo) UpdateItemShippedQty(ctx context.Context, itemID id.ID, qty types.Quantity) error {
	q := r.builder.Update(orderItemsTable).
		Set("shipped_qty", qty).
		Where(squirrel.Eq{"id": itemID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update shipped qty: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("order item", itemID.String())
	}
	return nil
}

// List returns order headers matching the filter.
func (r *OrderRepo) List(ctx context.Context, filter fulfillment.ListFilter) ([]*fulfillment.Order, error) {
	q := r.builder.Select(orderColumns...).From(ordersTable)

	if !filter.IncludeDisabled {
		q = q.Where(squirrel.Eq{"lifecycle": "active"})
	}
	if filter.CustomerID != nil {
		q = q.Where(squirrel.Eq{"customer_id": *filter.CustomerID})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"date": *filter.DateTo})
	}

	q = q.OrderBy("date DESC", "created_at DESC")

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

	var orders []*fulfillment.Order
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &orders, sql, args...); err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}

	return orders, nil
}

// Ensure interface compliance.
var _ fulfillment.Repository = (*OrderRepo)(nil)
