package model

import "time"

// EventStatus tracks a work item through the dispatcher.
type EventStatus string

const (
	EventStatusPending   EventStatus = "PENDING"
	EventStatusInFlight  EventStatus = "IN_FLIGHT"
	EventStatusCompleted EventStatus = "COMPLETED"
	EventStatusFailed    EventStatus = "FAILED"
)

// OrderEvent is a transient processing work item referencing an order.
// It lives only inside a dispatcher run (or a kafka lane, when configured)
// and is not part of committed order state.
type OrderEvent struct {
	OrderID    string         `json:"order_id"`
	Priority   PriorityClass  `json:"priority"`
	Payload    map[string]any `json:"payload,omitempty"`
	RetryCount int            `json:"retry_count"`
	Status     EventStatus    `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
}
