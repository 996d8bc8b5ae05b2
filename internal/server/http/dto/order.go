package dto

import "time"

// CreateOrderRequest describes the order creation payload. Amount travels
// as a string to avoid float rounding on the wire.
type CreateOrderRequest struct {
	CustomerID  string `json:"customer_id"`
	ProductName string `json:"product_name"`
	Amount      string `json:"amount"`
}

// OrderResponse describes one order record.
type OrderResponse struct {
	ID          int64     `json:"id"`
	OrderID     string    `json:"order_id"`
	CustomerID  string    `json:"customer_id"`
	ProductName string    `json:"product_name"`
	Amount      string    `json:"amount"`
	PaidAmount  *string   `json:"paid_amount,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// OrderIDResponse carries a freshly generated order identifier.
type OrderIDResponse struct {
	OrderID string `json:"order_id"`
}

// PaymentRequest carries the payment amount, which must match the order total.
type PaymentRequest struct {
	Amount string `json:"amount"`
}

// EventRequest submits a processing event for an existing order.
type EventRequest struct {
	Priority string         `json:"priority"`
	Payload  map[string]any `json:"payload,omitempty"`
	// Durable routes the event through the broker instead of direct
	// admission when a broker is configured.
	Durable bool `json:"durable,omitempty"`
}

// UpdateStatusRequest forces an order into a target status (admin only).
type UpdateStatusRequest struct {
	Status string `json:"status"`
}
