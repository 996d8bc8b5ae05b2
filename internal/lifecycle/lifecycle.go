// Package lifecycle holds the order status transition table. It is pure:
// no storage, no clocks, no locking.
package lifecycle

import "github.com/polkiloo/orderflow/internal/domain/model"

// transitions maps each status to its allowed destinations.
var transitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderStatusNew:        {model.OrderStatusProcessing, model.OrderStatusCancelled},
	model.OrderStatusProcessing: {model.OrderStatusPaid, model.OrderStatusCancelled},
	model.OrderStatusPaid:       {model.OrderStatusShipped, model.OrderStatusCancelled},
	model.OrderStatusShipped:    {model.OrderStatusDelivered},
	model.OrderStatusDelivered:  {},
	model.OrderStatusCancelled:  {},
}

// Allowed reports whether moving current -> target obeys the transition table.
// It is total: unknown statuses simply have no outgoing edges.
func Allowed(current, target model.OrderStatus) bool {
	for _, next := range transitions[current] {
		if next == target {
			return true
		}
	}
	return false
}

// Terminal reports whether the status has no outgoing transitions.
func Terminal(status model.OrderStatus) bool {
	known := false
	for _, s := range model.Statuses {
		if s == status {
			known = true
			break
		}
	}
	return known && len(transitions[status]) == 0
}

// Initial is the status assigned to every freshly created order.
func Initial() model.OrderStatus {
	return model.OrderStatusNew
}
