// Package notify delivers fire-and-forget fulfillment acknowledgments.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/stocklane/order-inventory/internal/domain"
)

// Notifier acknowledges that an order was fulfilled. Failures are
// surfaced to the caller but carry no delivery guarantee either way.
type Notifier interface {
	OrderFulfilled(ctx context.Context, orderID int64) error
}

// LogNotifier is the reference sink: it simulates an outbound email by
// logging.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) OrderFulfilled(ctx context.Context, orderID int64) error {
	n.logger.Info(fmt.Sprintf("Simulated email sent: Order %d has been fulfilled.", orderID))
	return nil
}

// EventPublisher is the subset of the messaging producer the event sink
// needs.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// EventNotifier publishes a fulfillment event for external delivery
// channels instead of logging locally.
type EventNotifier struct {
	publisher EventPublisher
}

func NewEventNotifier(publisher EventPublisher) *EventNotifier {
	return &EventNotifier{publisher: publisher}
}

func (n *EventNotifier) OrderFulfilled(ctx context.Context, orderID int64) error {
	event := domain.OrderFulfilledEvent{
		EventID:   uuid.New().String(),
		OrderID:   orderID,
		Timestamp: time.Now().UTC(),
	}
	return n.publisher.Publish(ctx, strconv.FormatInt(orderID, 10), event)
}
