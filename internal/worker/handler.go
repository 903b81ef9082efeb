// Package worker consumes order placement events and drives fulfillment.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/stocklane/order-inventory/internal/domain"
)

// OrderFulfiller is the part of the order service the worker uses.
type OrderFulfiller interface {
	FulfillOrder(ctx context.Context, orderID int64) error
}

// FulfillmentHandler reacts to placed orders by fulfilling them. It is
// the internal trigger for the fulfillment transition; there is no HTTP
// route for it.
type FulfillmentHandler struct {
	service OrderFulfiller
	logger  *slog.Logger
}

func NewFulfillmentHandler(service OrderFulfiller, logger *slog.Logger) *FulfillmentHandler {
	return &FulfillmentHandler{
		service: service,
		logger:  logger,
	}
}

func (h *FulfillmentHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderPlacedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order placed event: %w", err)
	}

	h.logger.Info("processing order placed event", "order_id", event.OrderID, "event_id", event.EventID)

	if err := h.service.FulfillOrder(ctx, event.OrderID); err != nil {
		return fmt.Errorf("fulfill order %d: %w", event.OrderID, err)
	}

	return nil
}
