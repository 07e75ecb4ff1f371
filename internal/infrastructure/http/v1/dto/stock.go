package dto

import (
	"provender/internal/core/apperror"
	"provender/internal/core/id"
	"provender/internal/core/types"
	"provender/internal/domain/ledger"
)

// AdjustmentRequest records a manual stock correction.
// Quantity is a decimal string, either sign.
type AdjustmentRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  string `json:"quantity" binding:"required"`
	Note      string `json:"note"`
}

// ToApplyInput converts the request into a ledger application.
func (r AdjustmentRequest) ToApplyInput() (ledger.ApplyInput, error) {
	productID, err := id.Parse(r.ProductID)
	if err != nil {
		return ledger.ApplyInput{}, apperror.NewValidation("invalid productId format")
	}

	qty, err := types.ParseQuantity(r.Quantity)
	if err != nil {
		return ledger.ApplyInput{}, apperror.NewValidation("invalid quantity format")
	}

	return ledger.ApplyInput{
		ProductID: productID,
		Type:      ledger.TypeAdjustment,
		Quantity:  qty,
		Note:      r.Note,
	}, nil
}

// AuditResponse reports a ledger consistency check for one product.
type AuditResponse struct {
	ProductID  string `json:"productId"`
	Consistent bool   `json:"consistent"`
}
