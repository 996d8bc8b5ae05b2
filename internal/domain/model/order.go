package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus describes order lifecycle bucket.
type OrderStatus string

const (
	OrderStatusNew        OrderStatus = "NEW"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusPaid       OrderStatus = "PAID"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// Statuses lists every lifecycle bucket in order of progression.
var Statuses = []OrderStatus{
	OrderStatusNew,
	OrderStatusProcessing,
	OrderStatusPaid,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// ParseOrderStatus maps raw text to a known status.
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	for _, s := range Statuses {
		if string(s) == raw {
			return s, true
		}
	}
	return "", false
}

// Order describes purchase order registered by customer. Mutations go
// through ledger transitions only, never by direct field assignment.
type Order struct {
	ID          int64
	OrderID     string
	CustomerID  string
	ProductName string
	Amount      decimal.Decimal
	PaidAmount  *decimal.Decimal
	Status      OrderStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
