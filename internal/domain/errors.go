package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidInput rejects a placement request with no items.
var ErrInvalidInput = errors.New("order must contain at least one item")

// InsufficientStockError reports the first item whose stock check failed.
// The message text is part of the API contract.
type InsufficientStockError struct {
	ProductID int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for product %d", e.ProductID)
}

// NotFoundError reports an operation against an absent order.
type NotFoundError struct {
	OrderID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Order %d not found", e.OrderID)
}

// InvalidStateError reports a cancellation of an order that is no longer
// pending fulfillment.
type InvalidStateError struct {
	OrderID int64
	Status  OrderStatus
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("Cannot cancel order %d with status %s", e.OrderID, e.Status)
}
