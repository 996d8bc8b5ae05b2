package dto

import "time"

// StatisticsResponse reports order counts per status from one snapshot.
type StatisticsResponse struct {
	Total      int64 `json:"total"`
	New        int64 `json:"new"`
	Processing int64 `json:"processing"`
	Paid       int64 `json:"paid"`
	Shipped    int64 `json:"shipped"`
	Delivered  int64 `json:"delivered"`
	Cancelled  int64 `json:"cancelled"`
}

// DeadLetterResponse describes one event that was given up on.
type DeadLetterResponse struct {
	OrderID    string    `json:"order_id"`
	Priority   string    `json:"priority"`
	RetryCount int       `json:"retry_count"`
	Reason     string    `json:"reason"`
	At         time.Time `json:"at"`
}
