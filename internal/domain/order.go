package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending Fulfillment"
	OrderStatusFulfilled OrderStatus = "Fulfilled"
)

type OrderItem struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// Order items are fixed at placement; only Status changes afterwards.
// Cancellation deletes the order outright rather than marking it.
type Order struct {
	ID        int64       `json:"id"`
	Items     []OrderItem `json:"items"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
}
