package fulfillment

import (
	"context"
	"fmt"
	"time"

	"provender/internal/core/apperror"
	"provender/internal/core/busday"
	"provender/internal/core/id"
	"provender/internal/core/tx"
	"provender/internal/domain/catalog"
	"provender/internal/domain/ledger"
	"provender/pkg/logger"
)

// Service is the fulfillment state machine.
// Each transition is a single atomic unit; partial application (items
// updated but stock not debited, or vice versa) cannot be persisted.
type Service struct {
	repo      Repository
	ledger    *ledger.Service
	products  catalog.ProductReader
	txManager tx.Manager
	offset    busday.Offset
	now       func() time.Time
}

// NewService creates a new fulfillment service.
// offset is the operating timezone used to derive dispatch days.
func NewService(
	repo Repository,
	ledgerSvc *ledger.Service,
	products catalog.ProductReader,
	txManager tx.Manager,
	offset busday.Offset,
) *Service {
	return &Service{
		repo:      repo,
		ledger:    ledgerSvc,
		products:  products,
		txManager: txManager,
		offset:    offset,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create persists a new order with its items.
func (s *Service) Create(ctx context.Context, order *Order) error {
	if err := order.Validate(ctx); err != nil {
		return err
	}
	order.Status = StatusNew
	order.RecalculateTotals()

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		if err := s.repo.SaveItems(ctx, order.ID, order.Items); err != nil {
			return fmt.Errorf("save items: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "order created",
		"order_id", order.ID,
		"customer_id", order.CustomerID,
		"items", len(order.Items),
	)
	return nil
}

// GetByID returns the order with its items.
func (s *Service) GetByID(ctx context.Context, orderID id.ID) (*Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.GetItems(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	order.Items = items
	return order, nil
}

// List returns orders matching the filter (headers only).
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Order, error) {
	return s.repo.List(ctx, filter)
}

// StartAssembly moves NEW → IN_ASSEMBLY. No stock effect: assembly is
// reservation-free, stock is only debited at confirmation.
func (s *Service) StartAssembly(ctx context.Context, orderID id.ID, actor string) error {
	return s.transition(ctx, orderID, StatusNew, func(order *Order) {
		now := s.now()
		order.AssemblyStartedAt = &now
		order.AssemblyStartedBy = actor
	})
}

// CompleteAssembly moves IN_ASSEMBLY → DISTRIBUTING.
//
// In one transaction it writes the fact quantity on every item, appends
// one ASSEMBLY_CONSUMPTION ledger row per item with shippedQty > 0, and
// stamps the confirmation and dispatch day. An item whose product has no
// catalog entry fails the whole transaction.
func (s *Service) CompleteAssembly(ctx context.Context, orderID id.ID, facts []ItemFact, actor string) error {
	order, err := s.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if err := order.requireStatus(StatusInAssembly); err != nil {
		return err
	}

	factByItem := make(map[id.ID]ItemFact, len(facts))
	for _, f := range facts {
		if f.ShippedQty.IsNegative() {
			return apperror.NewValidation("shipped quantity must not be negative").
				WithDetail("item_id", f.ItemID.String())
		}
		factByItem[f.ItemID] = f
	}
	for itemID := range factByItem {
		found := false
		for _, item := range order.Items {
			if item.ID == itemID {
				found = true
				break
			}
		}
		if !found {
			return apperror.NewValidation("fact references unknown order item").
				WithDetail("item_id", itemID.String())
		}
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		inputs := make([]ledger.ApplyInput, 0, len(order.Items))
		for i := range order.Items {
			item := &order.Items[i]

			// Validate the referenced product exists before touching stock.
			if _, err := s.products.GetProduct(ctx, item.ProductID); err != nil {
				return err
			}

			if fact, ok := factByItem[item.ID]; ok {
				item.ShippedQty = fact.ShippedQty
			} else {
				item.ShippedQty = item.Quantity
			}
			if err := s.repo.UpdateItemShippedQty(ctx, item.ID, item.ShippedQty); err != nil {
				return fmt.Errorf("update shipped qty: %w", err)
			}

			if item.ShippedQty.IsPositive() {
				oid := order.ID
				inputs = append(inputs, ledger.ApplyInput{
					ProductID: item.ProductID,
					Type:      ledger.TypeAssemblyConsumption,
					Quantity:  item.ShippedQty.Neg(),
					OrderID:   &oid,
				})
			}
		}

		if _, err := s.ledger.ApplyBatch(ctx, inputs); err != nil {
			return err
		}

		now := s.now()
		dispatch := s.offset.Day(now)
		order.AssemblyConfirmedAt = &now
		order.AssemblyConfirmedBy = actor
		order.DispatchDay = &dispatch
		order.Status = StatusDistributing
		order.Touch()

		return s.guardedUpdate(ctx, order, StatusInAssembly)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "assembly completed",
		"order_id", order.ID,
		"dispatch_day", order.DispatchDay,
		"actor", actor,
	)
	return nil
}

// AssignExpeditor sets the expeditor on an order before loading.
func (s *Service) AssignExpeditor(ctx context.Context, orderID, expeditorID id.ID) error {
	if id.IsNil(expeditorID) {
		return apperror.NewValidation("expeditor is required").
			WithDetail("field", "expeditorId")
	}
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status == StatusLoaded || order.Status == StatusShipped {
		return apperror.NewInvalidTransition(order.ID.String(), string(order.Status), string(StatusDistributing))
	}
	order.ExpeditorID = &expeditorID
	order.Touch()
	return s.repo.Update(ctx, order)
}

// Load moves DISTRIBUTING → LOADED. Requires an expeditor assignment.
func (s *Service) Load(ctx context.Context, orderID id.ID, actor string) error {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if err := order.requireStatus(StatusDistributing); err != nil {
		return err
	}
	if order.ExpeditorID == nil || id.IsNil(*order.ExpeditorID) {
		return apperror.NewValidation("expeditor must be assigned before loading").
			WithDetail("order_id", orderID.String())
	}

	now := s.now()
	order.LoadedAt = &now
	order.LoadedBy = actor
	order.Status = StatusLoaded
	order.Touch()
	return s.guardedUpdate(ctx, order, StatusDistributing)
}

// Ship moves LOADED → SHIPPED, the terminal happy-path state.
func (s *Service) Ship(ctx context.Context, orderID id.ID, actor string) error {
	return s.transition(ctx, orderID, StatusLoaded, func(order *Order) {
		now := s.now()
		order.ShippedAt = &now
		order.ShippedBy = actor
		order.Status = StatusShipped
	})
}

// Cancel soft-disables the order from any state. Already-applied ledger
// rows are NOT reversed: by the time an order is cancellable, stock may
// have physically moved. Reversal is a separate explicit adjustment.
func (s *Service) Cancel(ctx context.Context, orderID id.ID, actor string) error {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.IsDisabled() {
		return nil
	}
	order.Disable()
	order.Touch()
	if err := s.repo.Update(ctx, order); err != nil {
		return err
	}
	logger.Info(ctx, "order cancelled", "order_id", orderID, "status", order.Status, "actor", actor)
	return nil
}

// UpdateItems replaces the item set. Allowed only before assembly starts.
func (s *Service) UpdateItems(ctx context.Context, orderID id.ID, items []OrderItem) error {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if err := order.requireStatus(StatusNew); err != nil {
		return err
	}

	order.Items = items
	for i := range order.Items {
		order.Items[i].OrderID = orderID
		if id.IsNil(order.Items[i].ID) {
			order.Items[i].ID = id.New()
		}
		order.Items[i].Amount = order.Items[i].Price.Mul(order.Items[i].Quantity.Decimal())
	}
	if err := order.Validate(ctx); err != nil {
		return err
	}
	order.RecalculateTotals()
	order.Touch()

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.SaveItems(ctx, orderID, order.Items); err != nil {
			return fmt.Errorf("save items: %w", err)
		}
		if err := s.repo.Update(ctx, order); err != nil {
			return fmt.Errorf("update totals: %w", err)
		}
		return nil
	})
}

// transition runs a simple stamp-only transition under the status guard.
func (s *Service) transition(ctx context.Context, orderID id.ID, expected Status, stamp func(*Order)) error {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if err := order.requireStatus(expected); err != nil {
		return err
	}

	if next := expected.next(); next != "" {
		order.Status = next
	}
	stamp(order)
	order.Touch()
	return s.guardedUpdate(ctx, order, expected)
}

// guardedUpdate persists the transition with a status-conditional update,
// so a concurrent transition on the same order loses instead of
// double-applying.
func (s *Service) guardedUpdate(ctx context.Context, order *Order, expected Status) error {
	ok, err := s.repo.UpdateStatusFrom(ctx, order, expected)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if !ok {
		// Lost a race: someone else moved the order first. Report what
		// the row actually holds now.
		current := string(expected)
		if fresh, ferr := s.repo.GetByID(ctx, order.ID); ferr == nil {
			current = string(fresh.Status)
		}
		return apperror.NewInvalidTransition(order.ID.String(), current, string(expected))
	}
	logger.Info(ctx, "order transitioned",
		"order_id", order.ID,
		"status", order.Status,
	)
	return nil
}
