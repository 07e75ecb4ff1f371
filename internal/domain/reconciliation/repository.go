package reconciliation

import (
	"context"

	"provender/internal/core/id"
)

// Repository defines summary journal persistence.
type Repository interface {
	// ListSyncedUnlinked returns entries with status synced and no
	// order item back-reference, in ship date order.
	ListSyncedUnlinked(ctx context.Context) ([]JournalEntry, error)

	// ListUnresolved returns entries (any status) missing a customer or
	// product foreign key.
	ListUnresolved(ctx context.Context) ([]JournalEntry, error)

	// SetOrderItemID writes the back-reference on one entry.
	SetOrderItemID(ctx context.Context, entryID, orderItemID id.ID) error

	// SetCustomerID writes a resolved customer key on one entry.
	SetCustomerID(ctx context.Context, entryID, customerID id.ID) error

	// SetProductID writes a resolved product key on one entry.
	SetProductID(ctx context.Context, entryID, productID id.ID) error
}
