package dto

import (
	"time"

	"provender/internal/core/apperror"
	"provender/internal/core/id"
	"provender/internal/core/types"
	"provender/internal/domain/attribution"
)

// RecordRunRequest records one unit of production output.
// Quantity is a decimal string.
type RecordRunRequest struct {
	ProductID      string    `json:"productId" binding:"required"`
	ProductionDate time.Time `json:"productionDate" binding:"required"`
	Quantity       string    `json:"quantity" binding:"required"`

	// SourceType defaults to PURCHASE.
	SourceType string `json:"sourceType"`
}

// ToRun converts the request into a domain production run.
func (r RecordRunRequest) ToRun() (*attribution.ProductionRun, error) {
	productID, err := id.Parse(r.ProductID)
	if err != nil {
		return nil, apperror.NewValidation("invalid productId format")
	}

	qty, err := types.ParseQuantity(r.Quantity)
	if err != nil {
		return nil, apperror.NewValidation("invalid quantity format")
	}

	return &attribution.ProductionRun{
		ProductID:      productID,
		ProductionDate: r.ProductionDate,
		Quantity:       qty,
		SourceType:     attribution.SourceType(r.SourceType),
	}, nil
}
