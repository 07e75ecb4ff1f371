package catalog

import (
	"context"

	"provender/internal/core/id"
)

// ProductReader resolves products for validation and name lookup.
type ProductReader interface {
	// GetProduct returns the product or apperror NotFound.
	GetProduct(ctx context.Context, productID id.ID) (Product, error)

	// FindProductsByNameFold returns active products whose name or full
	// name matches case-insensitively and exactly. Several rows mean
	// the name is ambiguous.
	FindProductsByNameFold(ctx context.Context, name string) ([]Product, error)
}

// CustomerReader resolves customers for validation and name lookup.
type CustomerReader interface {
	// GetCustomer returns the customer or apperror NotFound.
	GetCustomer(ctx context.Context, customerID id.ID) (Customer, error)

	// FindCustomersByNameFold returns active customers matching the
	// name case-insensitively and exactly.
	FindCustomersByNameFold(ctx context.Context, name string) ([]Customer, error)
}
