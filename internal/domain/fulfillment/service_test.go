package fulfillment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"provender/internal/core/apperror"
	"provender/internal/core/busday"
	"provender/internal/core/id"
	"provender/internal/core/types"
	"provender/internal/domain/catalog"
	"provender/internal/domain/ledger"
)

// --- fakes ---

type noopTxManager struct{}

func (noopTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memOrderRepo struct {
	orders map[id.ID]Order
	items  map[id.ID][]OrderItem
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{
		orders: make(map[id.ID]Order),
		items:  make(map[id.ID][]OrderItem),
	}
}

func (r *memOrderRepo) Create(_ context.Context, order *Order) error {
	stored := *order
	stored.Items = nil
	r.orders[order.ID] = stored
	return nil
}

func (r *memOrderRepo) GetByID(_ context.Context, orderID id.ID) (*Order, error) {
	stored, ok := r.orders[orderID]
	if !ok {
		return nil, apperror.NewNotFound("order", orderID.String())
	}
	return &stored, nil
}

func (r *memOrderRepo) FindByCustomerAndIDN(_ context.Context, customerID id.ID, idn string, day time.Time) (*Order, error) {
	for _, o := range r.orders {
		if o.IsDisabled() || o.CustomerID != customerID {
			continue
		}
		if idn != "" && o.IDN == idn {
			stored := o
			return &stored, nil
		}
		if idn == "" && o.Date.Equal(day) {
			stored := o
			return &stored, nil
		}
	}
	return nil, nil
}

func (r *memOrderRepo) Update(_ context.Context, order *Order) error {
	if _, ok := r.orders[order.ID]; !ok {
		return apperror.NewNotFound("order", order.ID.String())
	}
	stored := *order
	stored.Items = nil
	r.orders[order.ID] = stored
	return nil
}

func (r *memOrderRepo) UpdateStatusFrom(_ context.Context, order *Order, expected Status) (bool, error) {
	stored, ok := r.orders[order.ID]
	if !ok || stored.Status != expected || stored.IsDisabled() {
		return false, nil
	}
	updated := *order
	updated.Items = nil
	r.orders[order.ID] = updated
	return true, nil
}

func (r *memOrderRepo) GetItems(_ context.Context, orderID id.ID) ([]OrderItem, error) {
	return append([]OrderItem(nil), r.items[orderID]...), nil
}

func (r *memOrderRepo) SaveItems(_ context.Context, orderID id.ID, items []OrderItem) error {
	r.items[orderID] = append([]OrderItem(nil), items...)
	return nil
}

func (r *memOrderRepo) UpdateItemShippedQty(_ context.Context, itemID id.ID, qty types.Quantity) error {
	for orderID, items := range r.items {
		for i := range items {
			if items[i].ID == itemID {
				items[i].ShippedQty = qty
				r.items[orderID] = items
				return nil
			}
		}
	}
	return apperror.NewNotFound("order item", itemID.String())
}

func (r *memOrderRepo) List(_ context.Context, filter ListFilter) ([]*Order, error) {
	var out []*Order
	for _, o := range r.orders {
		if !filter.IncludeDisabled && o.IsDisabled() {
			continue
		}
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		stored := o
		out = append(out, &stored)
	}
	return out, nil
}

type memLedgerRepo struct {
	transactions []ledger.Transaction
	balances     map[id.ID]types.Quantity
}

func newMemLedgerRepo() *memLedgerRepo {
	return &memLedgerRepo{balances: make(map[id.ID]types.Quantity)}
}

func (r *memLedgerRepo) AppendAndIncrement(_ context.Context, tx ledger.Transaction) (ledger.Balance, error) {
	r.transactions = append(r.transactions, tx)
	r.balances[tx.ProductID] += tx.Quantity
	return ledger.Balance{ProductID: tx.ProductID, Quantity: r.balances[tx.ProductID]}, nil
}

func (r *memLedgerRepo) GetBalance(_ context.Context, productID id.ID) (ledger.Balance, error) {
	return ledger.Balance{ProductID: productID, Quantity: r.balances[productID]}, nil
}

func (r *memLedgerRepo) GetBalances(_ context.Context, _ []id.ID) ([]ledger.Balance, error) {
	return nil, nil
}

func (r *memLedgerRepo) History(_ context.Context, _ id.ID, _ ledger.HistoryFilter) ([]ledger.Transaction, error) {
	return nil, nil
}

func (r *memLedgerRepo) SumTransactions(_ context.Context, productID id.ID) (types.Quantity, error) {
	var sum types.Quantity
	for _, tx := range r.transactions {
		if tx.ProductID == productID {
			sum += tx.Quantity
		}
	}
	return sum, nil
}

type memProductReader struct {
	products map[id.ID]catalog.Product
}

func (r *memProductReader) GetProduct(_ context.Context, productID id.ID) (catalog.Product, error) {
	if p, ok := r.products[productID]; ok {
		return p, nil
	}
	return catalog.Product{}, apperror.NewNotFound("product", productID.String())
}

func (r *memProductReader) FindProductsByNameFold(_ context.Context, _ string) ([]catalog.Product, error) {
	return nil, nil
}

// --- fixture ---

type fixture struct {
	svc        *Service
	repo       *memOrderRepo
	ledgerRepo *memLedgerRepo
	products   *memProductReader
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newMemOrderRepo()
	ledgerRepo := newMemLedgerRepo()
	products := &memProductReader{products: make(map[id.ID]catalog.Product)}
	ledgerSvc := ledger.NewService(ledgerRepo, noopTxManager{})
	svc := NewService(repo, ledgerSvc, products, noopTxManager{}, busday.DefaultOffset())
	return &fixture{svc: svc, repo: repo, ledgerRepo: ledgerRepo, products: products}
}

func (f *fixture) addProduct() id.ID {
	productID := id.New()
	f.products.products[productID] = catalog.Product{ID: productID, Name: "p"}
	return productID
}

func (f *fixture) createOrder(t *testing.T, quantities ...float64) *Order {
	t.Helper()
	order := NewOrder(id.New(), time.Now().UTC())
	for _, q := range quantities {
		order.AddItem(f.addProduct(), types.NewQuantityFromFloat64(q), types.NewMoney(10))
	}
	require.NoError(t, f.svc.Create(context.Background(), order))
	return order
}

// --- tests ---

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order := NewOrder(id.Nil(), time.Now())
	err := f.svc.Create(ctx, order)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)

	order = NewOrder(id.New(), time.Now())
	order.AddItem(f.addProduct(), types.NewQuantityFromFloat64(-1), types.NewMoney(10))
	err = f.svc.Create(ctx, order)
	require.Error(t, err)
}

func TestCreate_ComputesTotals(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, 10, 5)

	stored, err := f.svc.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusNew, stored.Status)
	require.Len(t, stored.Items, 2)
	assert.Equal(t, types.NewQuantityFromFloat64(15), stored.TotalWeight)
	assert.True(t, stored.TotalAmount.Equal(types.NewMoney(150)))
}

func TestStartAssembly_SecondCallerLoses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.createOrder(t, 10)

	require.NoError(t, f.svc.StartAssembly(ctx, order.ID, "worker-a"))

	err := f.svc.StartAssembly(ctx, order.ID, "worker-b")
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidTransition(err))

	stored, err := f.svc.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInAssembly, stored.Status)
	assert.Equal(t, "worker-a", stored.AssemblyStartedBy)
	require.NotNil(t, stored.AssemblyStartedAt)
}

func TestCompleteAssembly_FactsAndDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Confirmation at 21:30 UTC lands past local midnight in UTC+5,
	// so the dispatch day is the next calendar day.
	at := time.Date(2024, 3, 10, 21, 30, 0, 0, time.UTC)
	f.svc.WithClock(func() time.Time { return at })

	order := f.createOrder(t, 10, 5)
	require.NoError(t, f.svc.StartAssembly(ctx, order.ID, "worker-a"))

	items, err := f.repo.GetItems(ctx, order.ID)
	require.NoError(t, err)

	facts := []ItemFact{{ItemID: items[0].ID, ShippedQty: types.NewQuantityFromFloat64(8)}}
	require.NoError(t, f.svc.CompleteAssembly(ctx, order.ID, facts, "worker-a"))

	stored, err := f.svc.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDistributing, stored.Status)
	assert.Equal(t, "worker-a", stored.AssemblyConfirmedBy)
	require.NotNil(t, stored.DispatchDay)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), *stored.DispatchDay)

	// Fact overrides the first item, the second defaults to ordered qty.
	assert.Equal(t, types.NewQuantityFromFloat64(8), stored.Items[0].ShippedQty)
	assert.Equal(t, types.NewQuantityFromFloat64(5), stored.Items[1].ShippedQty)

	// One negative consumption row per shipped item.
	require.Len(t, f.ledgerRepo.transactions, 2)
	for _, tx := range f.ledgerRepo.transactions {
		assert.Equal(t, ledger.TypeAssemblyConsumption, tx.Type)
		require.NotNil(t, tx.OrderID)
		assert.Equal(t, order.ID, *tx.OrderID)
	}
	assert.Equal(t, types.NewQuantityFromFloat64(-8), f.ledgerRepo.transactions[0].Quantity)
	assert.Equal(t, types.NewQuantityFromFloat64(-5), f.ledgerRepo.transactions[1].Quantity)
}

func TestCompleteAssembly_ZeroFactSkipsLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.createOrder(t, 10)
	require.NoError(t, f.svc.StartAssembly(ctx, order.ID, ""))

	items, err := f.repo.GetItems(ctx, order.ID)
	require.NoError(t, err)

	facts := []ItemFact{{ItemID: items[0].ID, ShippedQty: 0}}
	require.NoError(t, f.svc.CompleteAssembly(ctx, order.ID, facts, ""))

	assert.Empty(t, f.ledgerRepo.transactions)

	stored, err := f.svc.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDistributing, stored.Status)
	assert.True(t, stored.Items[0].ShippedQty.IsZero())
}

func TestCompleteAssembly_UnknownItemFact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.createOrder(t, 10)
	require.NoError(t, f.svc.StartAssembly(ctx, order.ID, ""))

	facts := []ItemFact{{ItemID: id.New(), ShippedQty: types.NewQuantityFromFloat64(1)}}
	err := f.svc.CompleteAssembly(ctx, order.ID, facts, "")
	require.Error(t, err)
	assert.Empty(t, f.ledgerRepo.transactions)
}

func TestCompleteAssembly_MissingProductFailsWhole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order := NewOrder(id.New(), time.Now().UTC())
	order.AddItem(f.addProduct(), types.NewQuantityFromFloat64(10), types.NewMoney(10))
	order.AddItem(id.New(), types.NewQuantityFromFloat64(5), types.NewMoney(10)) // no catalog entry
	require.NoError(t, f.svc.Create(ctx, order))
	require.NoError(t, f.svc.StartAssembly(ctx, order.ID, ""))

	err := f.svc.CompleteAssembly(ctx, order.ID, nil, "")
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))

	stored, err := f.svc.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInAssembly, stored.Status)
}

func TestTransitions_NoStageSkipping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.createOrder(t, 10)

	err := f.svc.Load(ctx, order.ID, "")
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidTransition(err))

	err = f.svc.Ship(ctx, order.ID, "")
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidTransition(err))
}

func TestLoad_RequiresExpeditor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.createOrder(t, 10)
	require.NoError(t, f.svc.StartAssembly(ctx, order.ID, ""))
	require.NoError(t, f.svc.CompleteAssembly(ctx, order.ID, nil, ""))

	err := f.svc.Load(ctx, order.ID, "driver")
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)

	require.NoError(t, f.svc.AssignExpeditor(ctx, order.ID, id.New()))
	require.NoError(t, f.svc.Load(ctx, order.ID, "driver"))
	require.NoError(t, f.svc.Ship(ctx, order.ID, "driver"))

	stored, err := f.svc.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, stored.Status)
	assert.Equal(t, "driver", stored.ShippedBy)
}

func TestAssignExpeditor_BlockedAfterLoading(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.createOrder(t, 10)
	require.NoError(t, f.svc.StartAssembly(ctx, order.ID, ""))
	require.NoError(t, f.svc.CompleteAssembly(ctx, order.ID, nil, ""))
	require.NoError(t, f.svc.AssignExpeditor(ctx, order.ID, id.New()))
	require.NoError(t, f.svc.Load(ctx, order.ID, ""))

	err := f.svc.AssignExpeditor(ctx, order.ID, id.New())
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidTransition(err))
}

func TestCancel_IdempotentAndBlocksTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.createOrder(t, 10)

	require.NoError(t, f.svc.Cancel(ctx, order.ID, "mgr"))
	require.NoError(t, f.svc.Cancel(ctx, order.ID, "mgr"))

	err := f.svc.StartAssembly(ctx, order.ID, "")
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeOrderDisabled, appErr.Code)
}

func TestCancel_DoesNotReverseLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.createOrder(t, 10)
	require.NoError(t, f.svc.StartAssembly(ctx, order.ID, ""))
	require.NoError(t, f.svc.CompleteAssembly(ctx, order.ID, nil, ""))
	require.Len(t, f.ledgerRepo.transactions, 1)

	require.NoError(t, f.svc.Cancel(ctx, order.ID, ""))
	assert.Len(t, f.ledgerRepo.transactions, 1)
}

func TestUpdateItems_OnlyBeforeAssembly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.createOrder(t, 10)

	newItems := []OrderItem{{
		ProductID: f.addProduct(),
		Quantity:  types.NewQuantityFromFloat64(3),
		Price:     types.NewMoney(7),
	}}
	require.NoError(t, f.svc.UpdateItems(ctx, order.ID, newItems))

	stored, err := f.svc.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, types.NewQuantityFromFloat64(3), stored.TotalWeight)
	assert.True(t, stored.TotalAmount.Equal(types.NewMoney(21)))

	require.NoError(t, f.svc.StartAssembly(ctx, order.ID, ""))
	err = f.svc.UpdateItems(ctx, order.ID, newItems)
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidTransition(err))
}
