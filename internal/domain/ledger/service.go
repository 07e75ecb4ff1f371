package ledger

import (
	"context"
	"fmt"
	"time"

	"provender/internal/core/apperror"
	"provender/internal/core/id"
	"provender/internal/core/tx"
	"provender/pkg/logger"
)

// Service provides business operations for the stock ledger.
// Every write executes inside the same transaction as the business event
// that caused it; callers already inside a transaction are joined.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates a new ledger service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
	}
}

// Apply records one stock-affecting event and returns the new balance.
//
// A negative resulting balance is allowed: oversold inventory is a real
// possibility in this domain and must not block an assembly operator.
// The condition is logged for operator review instead.
func (s *Service) Apply(ctx context.Context, in ApplyInput) (Balance, error) {
	if err := validateInput(in); err != nil {
		return Balance{}, err
	}

	var balance Balance
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		balance, err = s.repo.AppendAndIncrement(ctx, newTransaction(in))
		if err != nil {
			return fmt.Errorf("apply ledger transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return Balance{}, err
	}

	if balance.IsNegative() {
		logger.Warn(ctx, "stock balance went negative",
			"product_id", in.ProductID,
			"balance", balance.Quantity,
			"type", in.Type,
		)
	}

	return balance, nil
}

// ApplyBatch records several events in one transaction.
// Used by assembly completion so item updates and ledger writes share
// a single atomic boundary.
func (s *Service) ApplyBatch(ctx context.Context, inputs []ApplyInput) ([]Balance, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	for i, in := range inputs {
		if err := validateInput(in); err != nil {
			return nil, err.WithDetail("index", i)
		}
	}

	balances := make([]Balance, 0, len(inputs))
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, in := range inputs {
			b, err := s.repo.AppendAndIncrement(ctx, newTransaction(in))
			if err != nil {
				return fmt.Errorf("apply ledger transaction for %s: %w", in.ProductID, err)
			}
			balances = append(balances, b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, b := range balances {
		if b.IsNegative() {
			logger.Warn(ctx, "stock balance went negative",
				"product_id", b.ProductID,
				"balance", b.Quantity,
			)
		}
	}

	return balances, nil
}

// GetBalance returns the current balance snapshot for a product.
// Missing balance rows read as zero; create-on-first-use is implicit.
func (s *Service) GetBalance(ctx context.Context, productID id.ID) (Balance, error) {
	return s.repo.GetBalance(ctx, productID)
}

// History returns the transaction history for audit views.
func (s *Service) History(ctx context.Context, productID id.ID, filter HistoryFilter) ([]Transaction, error) {
	return s.repo.History(ctx, productID, filter)
}

// Audit compares the balance row against the transaction sum.
// A mismatch is reported, not repaired.
func (s *Service) Audit(ctx context.Context, productID id.ID) (bool, error) {
	balance, err := s.repo.GetBalance(ctx, productID)
	if err != nil {
		return false, err
	}
	sum, err := s.repo.SumTransactions(ctx, productID)
	if err != nil {
		return false, err
	}
	if balance.Quantity != sum {
		logger.Error(ctx, "ledger balance drift detected",
			"product_id", productID,
			"balance", balance.Quantity,
			"transaction_sum", sum,
		)
		return false, nil
	}
	return true, nil
}

func validateInput(in ApplyInput) *apperror.AppError {
	if id.IsNil(in.ProductID) {
		return apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}
	if !in.Type.Valid() {
		return apperror.NewValidation("unknown transaction type").
			WithDetail("type", string(in.Type))
	}
	if in.Quantity.IsZero() {
		return apperror.NewValidation("quantity must be non-zero").
			WithDetail("field", "quantity")
	}
	return nil
}

func newTransaction(in ApplyInput) Transaction {
	return Transaction{
		ID:        id.New(),
		ProductID: in.ProductID,
		Type:      in.Type,
		Quantity:  in.Quantity,
		OrderID:   in.OrderID,
		Note:      in.Note,
		CreatedAt: time.Now().UTC(),
	}
}
