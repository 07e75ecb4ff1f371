package reconciliation

import (
	"context"
	"fmt"
	"sort"

	"provender/internal/core/busday"
	"provender/internal/core/id"
	"provender/internal/core/tx"
	"provender/internal/domain/catalog"
	"provender/internal/domain/fulfillment"
	"provender/pkg/logger"
)

// Service materializes summary journal entries into canonical orders.
type Service struct {
	repo      Repository
	orders    fulfillment.Repository
	customers catalog.CustomerReader
	products  catalog.ProductReader
	txManager tx.Manager
	offset    busday.Offset
}

// NewService creates a new reconciliation service.
func NewService(
	repo Repository,
	orders fulfillment.Repository,
	customers catalog.CustomerReader,
	products catalog.ProductReader,
	txManager tx.Manager,
	offset busday.Offset,
) *Service {
	return &Service{
		repo:      repo,
		orders:    orders,
		customers: customers,
		products:  products,
		txManager: txManager,
		offset:    offset,
	}
}

// Reconcile folds all pending synced entries into orders, exactly once.
//
// Entries group by (customer, ship business day). Each group commits in
// its own transaction: find-or-create the order, find-or-create an item
// per product, write the back-reference. The existence checks are what
// make re-runs safe; they are mandatory, not optimizations. A failing
// group is logged and skipped so one bad record cannot block the batch.
func (s *Service) Reconcile(ctx context.Context) (Report, error) {
	var report Report

	entries, err := s.repo.ListSyncedUnlinked(ctx)
	if err != nil {
		return report, fmt.Errorf("list pending entries: %w", err)
	}

	groups := make(map[GroupKey][]JournalEntry)
	var keys []GroupKey
	for _, e := range entries {
		if !e.Resolved() {
			// Unresolved name lookups are skipped and reported, never
			// guessed at. The identity backfill handles them.
			report.Skipped = append(report.Skipped, e.ID)
			continue
		}
		key := GroupKey{CustomerID: *e.CustomerID, Day: s.offset.Day(e.ShipDate)}
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], e)
	}

	// Deterministic group order for reproducible batch logs.
	sort.Slice(keys, func(i, j int) bool {
		if !keys[i].Day.Equal(keys[j].Day) {
			return keys[i].Day.Before(keys[j].Day)
		}
		return keys[i].CustomerID.String() < keys[j].CustomerID.String()
	})

	for _, key := range keys {
		if err := s.reconcileGroup(ctx, key, groups[key], &report); err != nil {
			logger.Error(ctx, "reconciliation group failed",
				"customer_id", key.CustomerID,
				"day", key.Day,
				"error", err,
			)
			report.FailedGroups++
		}
	}

	logger.Info(ctx, "reconciliation batch finished",
		"orders_created", report.OrdersCreated,
		"orders_reused", report.OrdersReused,
		"items_created", report.ItemsCreated,
		"entries_linked", report.EntriesLinked,
		"skipped", len(report.Skipped),
		"failed_groups", report.FailedGroups,
	)
	return report, nil
}

// reconcileGroup materializes one (customer, day) group atomically.
func (s *Service) reconcileGroup(ctx context.Context, key GroupKey, entries []JournalEntry, report *Report) error {
	idn := ""
	for _, e := range entries {
		if e.IDN != "" {
			idn = e.IDN
			break
		}
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		order, err := s.orders.FindByCustomerAndIDN(ctx, key.CustomerID, idn, key.Day)
		if err != nil {
			return fmt.Errorf("find order: %w", err)
		}

		if order == nil {
			order = fulfillment.NewOrder(key.CustomerID, key.Day)
			order.IDN = idn
			if err := s.orders.Create(ctx, order); err != nil {
				return fmt.Errorf("create order: %w", err)
			}
			report.OrdersCreated++
		} else {
			items, err := s.orders.GetItems(ctx, order.ID)
			if err != nil {
				return fmt.Errorf("get items: %w", err)
			}
			order.Items = items
			report.OrdersReused++
		}

		itemByProduct := make(map[id.ID]id.ID, len(order.Items))
		for _, item := range order.Items {
			itemByProduct[item.ProductID] = item.ID
		}

		// Every entry funnels through the same find-or-create, so a
		// re-delivered line for a product already in the group (or
		// already on the order) links to the one existing item instead
		// of adding a duplicate.
		changed := false
		for _, e := range entries {
			itemID, exists := itemByProduct[*e.ProductID]
			if !exists {
				order.AddItem(*e.ProductID, e.OrderQty, e.Price)
				added := &order.Items[len(order.Items)-1]
				added.ShippedQty = e.ShippedQty
				itemID = added.ID
				itemByProduct[*e.ProductID] = itemID
				changed = true
				report.ItemsCreated++
			} else {
				report.ItemsReused++
			}

			if err := s.repo.SetOrderItemID(ctx, e.ID, itemID); err != nil {
				return fmt.Errorf("write back-reference: %w", err)
			}
			report.EntriesLinked++
		}

		if changed {
			order.RecalculateTotals()
			order.Touch()
			if err := s.orders.SaveItems(ctx, order.ID, order.Items); err != nil {
				return fmt.Errorf("save items: %w", err)
			}
			if err := s.orders.Update(ctx, order); err != nil {
				return fmt.Errorf("update totals: %w", err)
			}
		}
		return nil
	})
}

// BackfillIdentities resolves customer and product foreign keys on
// entries that only carry a human-readable name.
//
// Two phases per entry: a pure name match against the catalog, then a
// write only for unambiguous hits. Ambiguous and no-match names are
// enumerated for manual resolution; a guessed key is never written.
func (s *Service) BackfillIdentities(ctx context.Context) (BackfillReport, error) {
	var report BackfillReport

	entries, err := s.repo.ListUnresolved(ctx)
	if err != nil {
		return report, fmt.Errorf("list unresolved entries: %w", err)
	}

	for _, e := range entries {
		if e.CustomerID == nil || id.IsNil(*e.CustomerID) {
			if err := s.backfillCustomer(ctx, e, &report); err != nil {
				return report, err
			}
		}
		if e.ProductID == nil || id.IsNil(*e.ProductID) {
			if err := s.backfillProduct(ctx, e, &report); err != nil {
				return report, err
			}
		}
	}

	logger.Info(ctx, "identity backfill finished",
		"customers_resolved", report.CustomersResolved,
		"products_resolved", report.ProductsResolved,
		"ambiguous", len(report.Ambiguous),
		"no_match", len(report.NoMatch),
	)
	return report, nil
}

func (s *Service) backfillCustomer(ctx context.Context, e JournalEntry, report *BackfillReport) error {
	rows, err := s.customers.FindCustomersByNameFold(ctx, e.CustomerName)
	if err != nil {
		return fmt.Errorf("find customers: %w", err)
	}
	candidates := make([]Candidate, len(rows))
	for i, c := range rows {
		candidates[i] = Candidate{ID: c.ID, Name: c.Name}
	}

	switch res := MatchName(e.CustomerName, candidates); res.Outcome {
	case MatchFound:
		if err := s.repo.SetCustomerID(ctx, e.ID, res.ID); err != nil {
			return fmt.Errorf("set customer id: %w", err)
		}
		report.CustomersResolved++
	case MatchAmbiguous:
		report.Ambiguous = append(report.Ambiguous, UnresolvedName{EntryID: e.ID, Field: "customer", Name: e.CustomerName})
	case MatchNone:
		report.NoMatch = append(report.NoMatch, UnresolvedName{EntryID: e.ID, Field: "customer", Name: e.CustomerName})
	}
	return nil
}

func (s *Service) backfillProduct(ctx context.Context, e JournalEntry, report *BackfillReport) error {
	rows, err := s.products.FindProductsByNameFold(ctx, e.ProductFullName)
	if err != nil {
		return fmt.Errorf("find products: %w", err)
	}
	candidates := make([]Candidate, 0, len(rows)*2)
	for _, p := range rows {
		candidates = append(candidates, Candidate{ID: p.ID, Name: p.FullName})
		candidates = append(candidates, Candidate{ID: p.ID, Name: p.Name})
	}

	switch res := MatchName(e.ProductFullName, candidates); res.Outcome {
	case MatchFound:
		if err := s.repo.SetProductID(ctx, e.ID, res.ID); err != nil {
			return fmt.Errorf("set product id: %w", err)
		}
		report.ProductsResolved++
	case MatchAmbiguous:
		report.Ambiguous = append(report.Ambiguous, UnresolvedName{EntryID: e.ID, Field: "product", Name: e.ProductFullName})
	case MatchNone:
		report.NoMatch = append(report.NoMatch, UnresolvedName{EntryID: e.ID, Field: "product", Name: e.ProductFullName})
	}
	return nil
}
