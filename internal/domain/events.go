package domain

import "time"

// OrderPlacedEvent announces a newly placed order to the fulfillment
// pipeline.
type OrderPlacedEvent struct {
	EventID   string      `json:"event_id"`
	OrderID   int64       `json:"order_id"`
	Items     []OrderItem `json:"items"`
	Timestamp time.Time   `json:"timestamp"`
}

// OrderFulfilledEvent is published for external delivery channels once an
// order transitions to Fulfilled.
type OrderFulfilledEvent struct {
	EventID   string    `json:"event_id"`
	OrderID   int64     `json:"order_id"`
	Timestamp time.Time `json:"timestamp"`
}
