package model

// OrderStatistics is a read-only snapshot of per-status order counts taken
// in a single consistent pass over storage.
type OrderStatistics struct {
	Total      int64 `json:"total"`
	New        int64 `json:"new"`
	Processing int64 `json:"processing"`
	Paid       int64 `json:"paid"`
	Shipped    int64 `json:"shipped"`
	Delivered  int64 `json:"delivered"`
	Cancelled  int64 `json:"cancelled"`
}

// ByStatus returns the bucket counter for the given status.
func (s OrderStatistics) ByStatus(status OrderStatus) int64 {
	switch status {
	case OrderStatusNew:
		return s.New
	case OrderStatusProcessing:
		return s.Processing
	case OrderStatusPaid:
		return s.Paid
	case OrderStatusShipped:
		return s.Shipped
	case OrderStatusDelivered:
		return s.Delivered
	case OrderStatusCancelled:
		return s.Cancelled
	}
	return 0
}
