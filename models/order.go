package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusCreated    OrderStatus = "created"
	OrderStatusAccepted   OrderStatus = "accepted"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusInDelivery OrderStatus = "in_delivery"
	OrderStatusCompleted  OrderStatus = "completed"
)

// OrderStatuses lists statuses in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderStatusCreated,
	OrderStatusAccepted,
	OrderStatusInProgress,
	OrderStatusInDelivery,
	OrderStatusCompleted,
}

func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Order is a snapshot of an orders row with its owner and line items.
type Order struct {
	ID           int64
	Owner        User
	Status       OrderStatus
	CreatedAt    time.Time
	Address      string     // empty means pickup
	DeliveryTime *time.Time // nil if not specified
	Comment      string
	Items        []OrderItem
}

// Total sums line totals. It is zero for an order without items.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.LineTotal())
	}
	return total
}

type OrderItem struct {
	Product  Product
	Quantity int
}

func (it OrderItem) LineTotal() decimal.Decimal {
	return it.Product.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

type CreateOrderInput struct {
	UserID       int64
	Address      string
	DeliveryTime *time.Time
	Comment      string
	Items        []CreateOrderItem
}

type CreateOrderItem struct {
	ProductID int64
	Quantity  int
}
