package dto

import (
	"time"

	"provender/internal/core/apperror"
	"provender/internal/core/id"
	"provender/internal/core/types"
	"provender/internal/domain/fulfillment"
)

// OrderItemRequest is one product line of a create or update request.
// Quantity and Price are decimal strings.
type OrderItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  string `json:"quantity" binding:"required"`
	Price     string `json:"price" binding:"required"`
}

func (r OrderItemRequest) parse() (id.ID, types.Quantity, types.Money, error) {
	productID, err := id.Parse(r.ProductID)
	if err != nil {
		return id.Nil(), 0, types.ZeroMoney(), apperror.NewValidation("invalid productId format")
	}

	qty, err := types.ParseQuantity(r.Quantity)
	if err != nil {
		return id.Nil(), 0, types.ZeroMoney(), apperror.NewValidation("invalid quantity format")
	}

	price, err := types.NewMoneyFromString(r.Price)
	if err != nil {
		return id.Nil(), 0, types.ZeroMoney(), apperror.NewValidation("invalid price format")
	}

	return productID, qty, price, nil
}

// CreateOrderRequest creates a NEW order with its items.
type CreateOrderRequest struct {
	CustomerID string             `json:"customerId" binding:"required"`
	Date       time.Time          `json:"date" binding:"required"`
	IDN        string             `json:"idn"`
	Items      []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// ToOrder converts the request into a domain order.
func (r CreateOrderRequest) ToOrder() (*fulfillment.Order, error) {
	customerID, err := id.Parse(r.CustomerID)
	if err != nil {
		return nil, apperror.NewValidation("invalid customerId format")
	}

	order := fulfillment.NewOrder(customerID, r.Date)
	order.IDN = r.IDN

	for _, item := range r.Items {
		productID, qty, price, err := item.parse()
		if err != nil {
			return nil, err
		}
		order.AddItem(productID, qty, price)
	}

	return order, nil
}

// UpdateItemsRequest replaces the item lines of a NEW order.
type UpdateItemsRequest struct {
	Items []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// ToItems converts the request lines into domain order items.
func (r UpdateItemsRequest) ToItems() ([]fulfillment.OrderItem, error) {
	items := make([]fulfillment.OrderItem, 0, len(r.Items))
	for _, item := range r.Items {
		productID, qty, price, err := item.parse()
		if err != nil {
			return nil, err
		}
		items = append(items, fulfillment.OrderItem{
			ProductID: productID,
			Quantity:  qty,
			Price:     price,
		})
	}
	return items, nil
}

// ItemFactRequest is one actually-shipped quantity supplied at assembly
// completion. ShippedQty is a decimal string.
type ItemFactRequest struct {
	ItemID     string `json:"itemId" binding:"required"`
	ShippedQty string `json:"shippedQty" binding:"required"`
}

// CompleteAssemblyRequest confirms assembly with optional fact lines.
// Items without a fact ship exactly the ordered quantity.
type CompleteAssemblyRequest struct {
	Facts []ItemFactRequest `json:"facts" binding:"dive"`
}

// ToFacts converts the request into domain item facts.
func (r CompleteAssemblyRequest) ToFacts() ([]fulfillment.ItemFact, error) {
	facts := make([]fulfillment.ItemFact, 0, len(r.Facts))
	for _, f := range r.Facts {
		itemID, err := id.Parse(f.ItemID)
		if err != nil {
			return nil, apperror.NewValidation("invalid itemId format")
		}
		qty, err := types.ParseQuantity(f.ShippedQty)
		if err != nil {
			return nil, apperror.NewValidation("invalid shippedQty format")
		}
		facts = append(facts, fulfillment.ItemFact{ItemID: itemID, ShippedQty: qty})
	}
	return facts, nil
}

// AssignExpeditorRequest assigns the delivery expeditor.
type AssignExpeditorRequest struct {
	ExpeditorID string `json:"expeditorId" binding:"required"`
}
