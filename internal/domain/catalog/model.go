// Package catalog exposes the read-side contract of the catalog service:
// product and customer identity resolution for validation and for
// name-based reconciliation backfill. Descriptive fields are owned by
// the external catalog module; this package never writes them.
package catalog

import (
	"provender/internal/core/entity"
	"provender/internal/core/id"
)

// Product is a stock-keeping unit identity.
type Product struct {
	ID        id.ID            `db:"id" json:"id"`
	Name      string           `db:"name" json:"name"`
	FullName  string           `db:"full_name" json:"fullName"`
	Lifecycle entity.Lifecycle `db:"lifecycle" json:"lifecycle"`
}

// Customer is a buyer identity.
type Customer struct {
	ID        id.ID            `db:"id" json:"id"`
	Name      string           `db:"name" json:"name"`
	Lifecycle entity.Lifecycle `db:"lifecycle" json:"lifecycle"`
}
