package attribution

import (
	"context"
	"time"

	"provender/internal/core/id"
)

// Repository defines production run persistence and the purchase lot
// read contract needed for matching.
type Repository interface {
	// CreateRun inserts a production run.
	CreateRun(ctx context.Context, run *ProductionRun) error

	// GetRun returns the run or apperror NotFound.
	GetRun(ctx context.Context, runID id.ID) (*ProductionRun, error)

	// ListUnlinkedRuns returns active PURCHASE runs with no source lot,
	// oldest production date first.
	ListUnlinkedRuns(ctx context.Context) ([]ProductionRun, error)

	// FindEarliestEligibleLot returns the purchase lot for the product
	// with the earliest purchase date not after onOrBefore, belonging to
	// an active purchase. Ties break on the lowest item ID. Returns
	// nil, nil when no lot is eligible.
	FindEarliestEligibleLot(ctx context.Context, productID id.ID, onOrBefore time.Time) (*PurchaseLot, error)

	// SetRunSourceLot writes the attribution, only when the run is still
	// unlinked. Returns false when the run was linked concurrently.
	SetRunSourceLot(ctx context.Context, runID, purchaseItemID id.ID) (bool, error)
}
