package attribution

import (
	"context"
	"fmt"
	"time"

	"provender/internal/core/apperror"
	"provender/internal/core/entity"
	"provender/internal/core/id"
	"provender/internal/core/tx"
	"provender/internal/domain/ledger"
	"provender/pkg/logger"
)

// Service attributes production runs to purchase lots.
type Service struct {
	repo      Repository
	ledger    *ledger.Service
	txManager tx.Manager
}

// NewService creates a new attribution service.
func NewService(repo Repository, ledgerSvc *ledger.Service, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		ledger:    ledgerSvc,
		txManager: txManager,
	}
}

// RecordRun persists a production run and credits the stock ledger with
// the output in the same transaction.
func (s *Service) RecordRun(ctx context.Context, run *ProductionRun) error {
	if id.IsNil(run.ProductID) {
		return apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}
	if !run.Quantity.IsPositive() {
		return apperror.NewValidation("quantity must be positive").
			WithDetail("field", "quantity")
	}
	if run.ProductionDate.IsZero() {
		return apperror.NewValidation("production date is required").
			WithDetail("field", "productionDate")
	}
	if run.SourceType == "" {
		run.SourceType = SourcePurchase
	}
	if id.IsNil(run.ID) {
		run.ID = id.New()
	}
	if run.Lifecycle == "" {
		run.Lifecycle = entity.LifecycleActive
	}
	run.CreatedAt = time.Now().UTC()

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateRun(ctx, run); err != nil {
			return fmt.Errorf("create production run: %w", err)
		}
		_, err := s.ledger.Apply(ctx, ledger.ApplyInput{
			ProductID: run.ProductID,
			Type:      ledger.TypeArrival,
			Quantity:  run.Quantity,
			Note:      "production output",
		})
		return err
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "production run recorded",
		"run_id", run.ID,
		"product_id", run.ProductID,
		"quantity", run.Quantity,
	)
	return nil
}

// GetRun returns a production run by ID.
func (s *Service) GetRun(ctx context.Context, runID id.ID) (*ProductionRun, error) {
	return s.repo.GetRun(ctx, runID)
}

// LinkLots attributes every unlinked PURCHASE run to the earliest
// eligible purchase lot.
//
// FIFO-by-date: eligible lots share the run's product, belong to an
// active purchase, and have purchaseDate on or before the run's
// production date; the earliest purchase date wins, ties broken by
// lowest item ID. Runs with no eligible lot are reported, not failed.
//
// The batch is idempotent and resumable: already-linked runs never
// reappear in the unlinked query, each link commits independently, and
// re-running produces no further changes.
func (s *Service) LinkLots(ctx context.Context) (Report, error) {
	var report Report

	runs, err := s.repo.ListUnlinkedRuns(ctx)
	if err != nil {
		return report, fmt.Errorf("list unlinked runs: %w", err)
	}

	for _, run := range runs {
		linked, lotID, err := s.linkOne(ctx, run)
		if err != nil {
			// One bad run must not block the rest of the batch.
			logger.Error(ctx, "lot attribution failed",
				"run_id", run.ID,
				"error", err,
			)
			report.Failed++
			continue
		}
		if !linked {
			report.Unmatched = append(report.Unmatched, run.ID)
			continue
		}
		report.Linked = append(report.Linked, LinkedRun{RunID: run.ID, PurchaseItemID: lotID})
	}

	logger.Info(ctx, "lot attribution batch finished",
		"linked", len(report.Linked),
		"unmatched", len(report.Unmatched),
		"failed", report.Failed,
	)
	return report, nil
}

// linkOne attributes a single run inside its own transaction.
func (s *Service) linkOne(ctx context.Context, run ProductionRun) (bool, id.ID, error) {
	var lotID id.ID
	linked := false

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		lot, err := s.repo.FindEarliestEligibleLot(ctx, run.ProductID, run.ProductionDate)
		if err != nil {
			return fmt.Errorf("find eligible lot: %w", err)
		}
		if lot == nil {
			// Review candidate: possibly an OPENING_BALANCE run.
			logger.Warn(ctx, "production run has no eligible lot",
				"run_id", run.ID,
				"product_id", run.ProductID,
				"production_date", run.ProductionDate,
			)
			return nil
		}

		ok, err := s.repo.SetRunSourceLot(ctx, run.ID, lot.ItemID)
		if err != nil {
			return fmt.Errorf("set source lot: %w", err)
		}
		if ok {
			linked = true
			lotID = lot.ItemID
		}
		return nil
	})
	return linked, lotID, err
}
