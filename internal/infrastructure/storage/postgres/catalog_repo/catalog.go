// Package catalog_repo provides the PostgreSQL read-side of the catalog:
// product and customer identity lookup.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"provender/internal/core/apperror"
	"provender/internal/core/entity"
	"provender/internal/core/id"
	"provender/internal/domain/catalog"
	"provender/internal/infrastructure/storage/postgres"
)

const (
	productsTable  = "products"
	customersTable = "customers"
)

// CatalogRepo implements catalog.ProductReader and catalog.CustomerReader.
type CatalogRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewCatalogRepo creates a new catalog repository.
func NewCatalogRepo(txm *postgres.TxManager) *CatalogRepo {
	return &CatalogRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetProduct returns the product or NotFound.
func (r *CatalogRepo) GetProduct(ctx context.Context, productID id.ID) (catalog.Product, error) {
	q := r.builder.Select("id", "name", "full_name", "lifecycle").
		From(productsTable).
		Where(squirrel.Eq{"id": productID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return catalog.Product{}, fmt.Errorf("build query: %w", err)
	}

	var p catalog.Product
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return catalog.Product{}, apperror.NewNotFound("product", productID.String())
		}
		return catalog.Product{}, fmt.Errorf("get product: %w", err)
	}

	return p, nil
}

// FindProductsByNameFold returns active products whose name or full name
// matches case-insensitively and exactly.
func (r *CatalogRepo) FindProductsByNameFold(ctx context.Context, name string) ([]catalog.Product, error) {
	q := r.builder.Select("id", "name", "full_name", "lifecycle").
		From(productsTable).
		Where(squirrel.Eq{"lifecycle": entity.LifecycleActive}).
		Where(squirrel.Or{
			squirrel.Expr("LOWER(name) = LOWER(?)", name),
			squirrel.Expr("LOWER(full_name) = LOWER(?)", name),
		}).
		OrderBy("id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var products []catalog.Product
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &products, sql, args...); err != nil {
		return nil, fmt.Errorf("find products by name: %w", err)
	}

	return products, nil
}

// GetCustomer returns the customer or NotFound.
func (r *CatalogRepo) GetCustomer(ctx context.Context, customerID id.ID) (catalog.Customer, error) {
	q := r.builder.Select("id", "name", "lifecycle").
		From(customersTable).
		Where(squirrel.Eq{"id": customerID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return catalog.Customer{}, fmt.Errorf("build query: %w", err)
	}

	var c catalog.Customer
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &c, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return catalog.Customer{}, apperror.NewNotFound("customer", customerID.String())
		}
		return catalog.Customer{}, fmt.Errorf("get customer: %w", err)
	}

	return c, nil
}

// FindCustomersByNameFold returns active customers matching the name
// case-insensitively and exactly.
func (r *CatalogRepo) FindCustomersByNameFold(ctx context.Context, name string) ([]catalog.Customer, error) {
	q := r.builder.Select("id", "name", "lifecycle").
		From(customersTable).
		Where(squirrel.Eq{"lifecycle": entity.LifecycleActive}).
		Where(squirrel.Expr("LOWER(name) = LOWER(?)", name)).
		OrderBy("id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var customers []catalog.Customer
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &customers, sql, args...); err != nil {
		return nil, fmt.Errorf("find customers by name: %w", err)
	}

	return customers, nil
}

// Ensure interface compliance.
var (
	_ catalog.ProductReader  = (*CatalogRepo)(nil)
	_ catalog.CustomerReader = (*CatalogRepo)(nil)
)
