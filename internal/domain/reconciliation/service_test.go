package reconciliation

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"provender/internal/core/busday"
	"provender/internal/core/id"
	"provender/internal/core/types"
	"provender/internal/domain/catalog"
	"provender/internal/domain/fulfillment"
)

type noopTxManager struct{}

func (noopTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memJournalRepo struct {
	entries map[id.ID]*JournalEntry
}

func newMemJournalRepo() *memJournalRepo {
	return &memJournalRepo{entries: make(map[id.ID]*JournalEntry)}
}

func (r *memJournalRepo) add(e JournalEntry) id.ID {
	if id.IsNil(e.ID) {
		e.ID = id.New()
	}
	if e.Status == "" {
		e.Status = EntrySynced
	}
	r.entries[e.ID] = &e
	return e.ID
}

func (r *memJournalRepo) ListSyncedUnlinked(_ context.Context) ([]JournalEntry, error) {
	var out []JournalEntry
	for _, e := range r.entries {
		if e.Status == EntrySynced && e.OrderItemID == nil {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShipDate.Before(out[j].ShipDate) })
	return out, nil
}

func (r *memJournalRepo) ListUnresolved(_ context.Context) ([]JournalEntry, error) {
	var out []JournalEntry
	for _, e := range r.entries {
		if e.CustomerID == nil || e.ProductID == nil {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShipDate.Before(out[j].ShipDate) })
	return out, nil
}

func (r *memJournalRepo) SetOrderItemID(_ context.Context, entryID, orderItemID id.ID) error {
	r.entries[entryID].OrderItemID = &orderItemID
	return nil
}

func (r *memJournalRepo) SetCustomerID(_ context.Context, entryID, customerID id.ID) error {
	r.entries[entryID].CustomerID = &customerID
	return nil
}

func (r *memJournalRepo) SetProductID(_ context.Context, entryID, productID id.ID) error {
	r.entries[entryID].ProductID = &productID
	return nil
}

type memOrderRepo struct {
	orders map[id.ID]fulfillment.Order
	items  map[id.ID][]fulfillment.OrderItem
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{
		orders: make(map[id.ID]fulfillment.Order),
		items:  make(map[id.ID][]fulfillment.OrderItem),
	}
}

func (r *memOrderRepo) Create(_ context.Context, order *fulfillment.Order) error {
	stored := *order
	stored.Items = nil
	r.orders[order.ID] = stored
	return nil
}

func (r *memOrderRepo) GetByID(_ context.Context, orderID id.ID) (*fulfillment.Order, error) {
	stored := r.orders[orderID]
	return &stored, nil
}

func (r *memOrderRepo) FindByCustomerAndIDN(_ context.Context, customerID id.ID, idn string, day time.Time) (*fulfillment.Order, error) {
	for _, o := range r.orders {
		if o.CustomerID != customerID {
			continue
		}
		if idn != "" {
			if o.IDN == idn {
				stored := o
				return &stored, nil
			}
			continue
		}
		if o.Date.Equal(day) {
			stored := o
			return &stored, nil
		}
	}
	return nil, nil
}

func (r *memOrderRepo) Update(_ context.Context, order *fulfillment.Order) error {
	stored := *order
	stored.Items = nil
	r.orders[order.ID] = stored
	return nil
}

func (r *memOrderRepo) UpdateStatusFrom(_ context.Context, order *fulfillment.Order, expected fulfillment.Status) (bool, error) {
	stored, ok := r.orders[order.ID]
	if !ok || stored.Status != expected {
		return false, nil
	}
	updated := *order
	updated.Items = nil
	r.orders[order.ID] = updated
	return true, nil
}

func (r *memOrderRepo) GetItems(_ context.Context, orderID id.ID) ([]fulfillment.OrderItem, error) {
	return append([]fulfillment.OrderItem(nil), r.items[orderID]...), nil
}

func (r *memOrderRepo) SaveItems(_ context.Context, orderID id.ID, items []fulfillment.OrderItem) error {
	r.items[orderID] = append([]fulfillment.OrderItem(nil), items...)
	return nil
}

func (r *memOrderRepo) UpdateItemShippedQty(_ context.Context, itemID id.ID, qty types.Quantity) error {
	for orderID, items := range r.items {
		for i := range items {
			if items[i].ID == itemID {
				items[i].ShippedQty = qty
				r.items[orderID] = items
			}
		}
	}
	return nil
}

func (r *memOrderRepo) List(_ context.Context, _ fulfillment.ListFilter) ([]*fulfillment.Order, error) {
	return nil, nil
}

type memCatalog struct {
	products  []catalog.Product
	customers []catalog.Customer
}

func (m *memCatalog) GetProduct(_ context.Context, productID id.ID) (catalog.Product, error) {
	for _, p := range m.products {
		if p.ID == productID {
			return p, nil
		}
	}
	return catalog.Product{}, nil
}

func (m *memCatalog) FindProductsByNameFold(_ context.Context, name string) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, p := range m.products {
		if foldEq(p.Name, name) || foldEq(p.FullName, name) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memCatalog) GetCustomer(_ context.Context, customerID id.ID) (catalog.Customer, error) {
	for _, c := range m.customers {
		if c.ID == customerID {
			return c, nil
		}
	}
	return catalog.Customer{}, nil
}

func (m *memCatalog) FindCustomersByNameFold(_ context.Context, name string) ([]catalog.Customer, error) {
	var out []catalog.Customer
	for _, c := range m.customers {
		if foldEq(c.Name, name) {
			out = append(out, c)
		}
	}
	return out, nil
}

func foldEq(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

type fixture struct {
	svc     *Service
	journal *memJournalRepo
	orders  *memOrderRepo
	catalog *memCatalog
}

func newFixture() fixture {
	journal := newMemJournalRepo()
	orders := newMemOrderRepo()
	cat := &memCatalog{}
	svc := NewService(journal, orders, cat, cat, noopTxManager{}, busday.DefaultOffset())
	return fixture{svc: svc, journal: journal, orders: orders, catalog: cat}
}

func ptr(v id.ID) *id.ID { return &v }

func shipAt(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
}

func TestReconcile_FoldsGroupIntoOneOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	customerID := id.New()
	productA := id.New()
	productB := id.New()

	entryA := f.journal.add(JournalEntry{
		CustomerID: ptr(customerID),
		ProductID:  ptr(productA),
		OrderQty:   types.NewQuantityFromFloat64(10),
		ShippedQty: types.NewQuantityFromFloat64(9),
		Price:      types.NewMoney(20),
		ShipDate:   shipAt(2024, 3, 11, 8),
		IDN:        "42",
	})
	entryB := f.journal.add(JournalEntry{
		CustomerID: ptr(customerID),
		ProductID:  ptr(productB),
		OrderQty:   types.NewQuantityFromFloat64(5),
		ShippedQty: types.NewQuantityFromFloat64(5),
		Price:      types.NewMoney(10),
		ShipDate:   shipAt(2024, 3, 11, 9),
		IDN:        "42",
	})

	report, err := f.svc.Reconcile(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.OrdersCreated)
	assert.Zero(t, report.OrdersReused)
	assert.Equal(t, 2, report.EntriesLinked)
	assert.Empty(t, report.Skipped)
	assert.Zero(t, report.FailedGroups)

	require.Len(t, f.orders.orders, 1)
	var order fulfillment.Order
	for _, o := range f.orders.orders {
		order = o
	}
	assert.Equal(t, customerID, order.CustomerID)
	assert.Equal(t, "42", order.IDN)
	assert.Equal(t, fulfillment.StatusNew, order.Status)
	assert.True(t, order.TotalAmount.Equal(types.NewMoney(250)))
	assert.Equal(t, types.NewQuantityFromFloat64(15), order.TotalWeight)

	items, err := f.orders.GetItems(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	byProduct := make(map[id.ID]fulfillment.OrderItem)
	for _, it := range items {
		byProduct[it.ProductID] = it
	}
	assert.Equal(t, types.NewQuantityFromFloat64(9), byProduct[productA].ShippedQty)
	assert.Equal(t, types.NewQuantityFromFloat64(5), byProduct[productB].ShippedQty)

	require.NotNil(t, f.journal.entries[entryA].OrderItemID)
	require.NotNil(t, f.journal.entries[entryB].OrderItemID)
	assert.Equal(t, byProduct[productA].ID, *f.journal.entries[entryA].OrderItemID)
	assert.Equal(t, byProduct[productB].ID, *f.journal.entries[entryB].OrderItemID)
}

func TestReconcile_RedeliveredLineSharesItem(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	customerID := id.New()
	productID := id.New()

	first := f.journal.add(JournalEntry{
		CustomerID: ptr(customerID),
		ProductID:  ptr(productID),
		OrderQty:   types.NewQuantityFromFloat64(10),
		ShippedQty: types.NewQuantityFromFloat64(10),
		Price:      types.NewMoney(20),
		ShipDate:   shipAt(2024, 3, 11, 8),
		IDN:        "42",
	})
	second := f.journal.add(JournalEntry{
		CustomerID: ptr(customerID),
		ProductID:  ptr(productID),
		OrderQty:   types.NewQuantityFromFloat64(10),
		ShippedQty: types.NewQuantityFromFloat64(10),
		Price:      types.NewMoney(20),
		ShipDate:   shipAt(2024, 3, 11, 10),
		IDN:        "42",
	})

	report, err := f.svc.Reconcile(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.OrdersCreated)
	assert.Equal(t, 1, report.ItemsCreated)
	assert.Equal(t, 1, report.ItemsReused)
	assert.Equal(t, 2, report.EntriesLinked)

	require.Len(t, f.orders.orders, 1)
	var order fulfillment.Order
	for _, o := range f.orders.orders {
		order = o
	}

	items, err := f.orders.GetItems(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, productID, items[0].ProductID)

	// One item, one contribution to the totals.
	assert.True(t, order.TotalAmount.Equal(types.NewMoney(200)))
	assert.Equal(t, types.NewQuantityFromFloat64(10), order.TotalWeight)

	require.NotNil(t, f.journal.entries[first].OrderItemID)
	require.NotNil(t, f.journal.entries[second].OrderItemID)
	assert.Equal(t, items[0].ID, *f.journal.entries[first].OrderItemID)
	assert.Equal(t, items[0].ID, *f.journal.entries[second].OrderItemID)
}

func TestReconcile_RerunIsNoOp(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	customerID := id.New()
	f.journal.add(JournalEntry{
		CustomerID: ptr(customerID),
		ProductID:  ptr(id.New()),
		OrderQty:   types.NewQuantityFromFloat64(10),
		Price:      types.NewMoney(20),
		ShipDate:   shipAt(2024, 3, 11, 8),
		IDN:        "42",
	})

	first, err := f.svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.OrdersCreated)

	second, err := f.svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Zero(t, second.OrdersCreated)
	assert.Zero(t, second.OrdersReused)
	assert.Zero(t, second.EntriesLinked)
	assert.Len(t, f.orders.orders, 1)
}

func TestReconcile_ReusesOrderByIDN(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	customerID := id.New()
	productA := id.New()
	productB := id.New()
	day := shipAt(2024, 3, 11, 0)

	existing := fulfillment.NewOrder(customerID, day)
	existing.IDN = "42"
	existing.AddItem(productA, types.NewQuantityFromFloat64(10), types.NewMoney(20))
	require.NoError(t, f.orders.Create(ctx, existing))
	require.NoError(t, f.orders.SaveItems(ctx, existing.ID, existing.Items))

	f.journal.add(JournalEntry{
		CustomerID: ptr(customerID),
		ProductID:  ptr(productA),
		OrderQty:   types.NewQuantityFromFloat64(10),
		Price:      types.NewMoney(20),
		ShipDate:   shipAt(2024, 3, 11, 8),
		IDN:        "42",
	})
	f.journal.add(JournalEntry{
		CustomerID: ptr(customerID),
		ProductID:  ptr(productB),
		OrderQty:   types.NewQuantityFromFloat64(4),
		ShippedQty: types.NewQuantityFromFloat64(3),
		Price:      types.NewMoney(25),
		ShipDate:   shipAt(2024, 3, 11, 8),
		IDN:        "42",
	})

	report, err := f.svc.Reconcile(ctx)
	require.NoError(t, err)

	assert.Zero(t, report.OrdersCreated)
	assert.Equal(t, 1, report.OrdersReused)
	assert.Equal(t, 1, report.ItemsReused)
	assert.Equal(t, 1, report.ItemsCreated)
	assert.Equal(t, 2, report.EntriesLinked)

	items, err := f.orders.GetItems(ctx, existing.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	byProduct := make(map[id.ID]fulfillment.OrderItem)
	for _, it := range items {
		byProduct[it.ProductID] = it
	}
	assert.Equal(t, types.NewQuantityFromFloat64(3), byProduct[productB].ShippedQty)

	updated, err := f.orders.GetByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.True(t, updated.TotalAmount.Equal(types.NewMoney(300)))
	assert.Equal(t, types.NewQuantityFromFloat64(14), updated.TotalWeight)
}

func TestReconcile_SplitsByBusinessDay(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	customerID := id.New()
	// 18:00 UTC and 21:00 UTC straddle midnight in the +05:00 operating
	// zone, so the entries belong to different business days.
	f.journal.add(JournalEntry{
		CustomerID: ptr(customerID),
		ProductID:  ptr(id.New()),
		OrderQty:   types.NewQuantityFromFloat64(1),
		Price:      types.NewMoney(10),
		ShipDate:   shipAt(2024, 3, 10, 18),
	})
	f.journal.add(JournalEntry{
		CustomerID: ptr(customerID),
		ProductID:  ptr(id.New()),
		OrderQty:   types.NewQuantityFromFloat64(1),
		Price:      types.NewMoney(10),
		ShipDate:   shipAt(2024, 3, 10, 21),
	})

	report, err := f.svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.OrdersCreated)
	assert.Len(t, f.orders.orders, 2)
}

func TestReconcile_SkipsUnresolvedEntries(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	unresolved := f.journal.add(JournalEntry{
		CustomerName: "No Such Trading",
		ProductID:    ptr(id.New()),
		OrderQty:     types.NewQuantityFromFloat64(1),
		Price:        types.NewMoney(10),
		ShipDate:     shipAt(2024, 3, 11, 8),
	})

	report, err := f.svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.OrdersCreated)
	assert.Equal(t, []id.ID{unresolved}, report.Skipped)
	assert.Nil(t, f.journal.entries[unresolved].OrderItemID)
}

func TestBackfillIdentities(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	customerID := id.New()
	productID := id.New()
	f.catalog.customers = []catalog.Customer{
		{ID: customerID, Name: "Hilltop Bakery"},
		{ID: id.New(), Name: "Twin Mills"},
		{ID: id.New(), Name: "twin mills"},
	}
	f.catalog.products = []catalog.Product{
		{ID: productID, Name: "Rye", FullName: "Rye Loaf 500g"},
	}

	resolvable := f.journal.add(JournalEntry{
		CustomerName:    "hilltop bakery",
		ProductFullName: "RYE LOAF 500G",
		ShipDate:        shipAt(2024, 3, 11, 8),
	})
	ambiguous := f.journal.add(JournalEntry{
		CustomerName: "Twin Mills",
		ProductID:    ptr(productID),
		ShipDate:     shipAt(2024, 3, 11, 9),
	})
	noMatch := f.journal.add(JournalEntry{
		CustomerName: "Unknown Trading",
		ProductID:    ptr(productID),
		ShipDate:     shipAt(2024, 3, 11, 10),
	})

	report, err := f.svc.BackfillIdentities(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.CustomersResolved)
	assert.Equal(t, 1, report.ProductsResolved)

	require.NotNil(t, f.journal.entries[resolvable].CustomerID)
	assert.Equal(t, customerID, *f.journal.entries[resolvable].CustomerID)
	require.NotNil(t, f.journal.entries[resolvable].ProductID)
	assert.Equal(t, productID, *f.journal.entries[resolvable].ProductID)

	require.Len(t, report.Ambiguous, 1)
	assert.Equal(t, ambiguous, report.Ambiguous[0].EntryID)
	assert.Equal(t, "customer", report.Ambiguous[0].Field)
	assert.Nil(t, f.journal.entries[ambiguous].CustomerID)

	require.Len(t, report.NoMatch, 1)
	assert.Equal(t, noMatch, report.NoMatch[0].EntryID)
	assert.Nil(t, f.journal.entries[noMatch].CustomerID)
}
