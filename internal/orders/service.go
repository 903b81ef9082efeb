package orders

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/stocklane/order-inventory/internal/domain"
	"github.com/stocklane/order-inventory/internal/notify"
	"github.com/stocklane/order-inventory/internal/products"
)

var meter = otel.Meter("orders")

// EventPublisher publishes order lifecycle events. *messaging.Producer
// satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Service coordinates the product and order stores to place, cancel and
// fulfill orders. Each store operation is individually lock-protected by
// its store; there is no atomicity across them, so a failure partway
// through a multi-item sequence leaves earlier mutations applied.
type Service struct {
	products  products.Repository
	orders    Repository
	notifier  notify.Notifier
	publisher EventPublisher
	logger    *slog.Logger

	orderSeq atomic.Int64

	placed    metric.Int64Counter
	cancelled metric.Int64Counter
	fulfilled metric.Int64Counter
}

// NewService wires the order service. publisher may be nil, in which
// case no placement events are emitted.
func NewService(productRepo products.Repository, orderRepo Repository, notifier notify.Notifier, publisher EventPublisher, logger *slog.Logger) (*Service, error) {
	placed, err := meter.Int64Counter("orders.placed",
		metric.WithDescription("Orders placed successfully"))
	if err != nil {
		return nil, err
	}
	cancelled, err := meter.Int64Counter("orders.cancelled",
		metric.WithDescription("Orders cancelled while pending fulfillment"))
	if err != nil {
		return nil, err
	}
	fulfilled, err := meter.Int64Counter("orders.fulfilled",
		metric.WithDescription("Orders transitioned to fulfilled"))
	if err != nil {
		return nil, err
	}

	return &Service{
		products:  productRepo,
		orders:    orderRepo,
		notifier:  notifier,
		publisher: publisher,
		logger:    logger,
		placed:    placed,
		cancelled: cancelled,
		fulfilled: fulfilled,
	}, nil
}

// PlaceOrder reserves stock for each item in sequence and persists the
// order. Each reservation is applied immediately; when an item fails its
// stock check, reservations already made for earlier items are not
// rolled back.
func (s *Service) PlaceOrder(ctx context.Context, items []domain.OrderItem) (int64, error) {
	if len(items) == 0 {
		return 0, domain.ErrInvalidInput
	}

	for _, item := range items {
		if err := s.products.ReserveStock(ctx, item.ProductID, item.Quantity); err != nil {
			return 0, err
		}
	}

	order := &domain.Order{
		// The service's own sequence; the store overwrites the id on
		// insert with its max+1 assignment. Both sequences are kept.
		ID:        s.orderSeq.Add(1),
		Items:     items,
		Status:    domain.OrderStatusPending,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.orders.Add(ctx, order); err != nil {
		return 0, err
	}

	s.placed.Add(ctx, 1)
	s.logger.Info("order placed", "order_id", order.ID, "items", len(order.Items))

	if s.publisher != nil {
		event := domain.OrderPlacedEvent{
			EventID:   uuid.New().String(),
			OrderID:   order.ID,
			Items:     order.Items,
			Timestamp: order.CreatedAt,
		}
		if err := s.publisher.Publish(ctx, strconv.FormatInt(order.ID, 10), event); err != nil {
			s.logger.Error("failed to publish order placed event", "error", err, "order_id", order.ID)
		}
	}

	return order.ID, nil
}

// CancelOrder restores stock for every item of a pending order and
// deletes the order record. Stock restoration is best effort: a product
// that no longer exists is skipped, and increments already applied are
// kept if a later one fails.
func (s *Service) CancelOrder(ctx context.Context, orderID int64) error {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return &domain.NotFoundError{OrderID: orderID}
	}
	if order.Status != domain.OrderStatusPending {
		return &domain.InvalidStateError{OrderID: orderID, Status: order.Status}
	}

	for _, item := range order.Items {
		err := s.products.ReleaseStock(ctx, item.ProductID, item.Quantity)
		if errors.Is(err, products.ErrNotFound) {
			s.logger.Warn("product gone, skipping stock restore", "product_id", item.ProductID, "order_id", orderID)
			continue
		}
		if err != nil {
			return err
		}
	}

	if err := s.orders.Delete(ctx, orderID); err != nil {
		return err
	}

	s.cancelled.Add(ctx, 1)
	s.logger.Info("order cancelled", "order_id", orderID)
	return nil
}

// FulfillOrder transitions a pending order to fulfilled and notifies the
// sink once. Absent or non-pending orders are a no-op. The transition is
// persisted before notification, and a notification failure does not
// undo it.
func (s *Service) FulfillOrder(ctx context.Context, orderID int64) error {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil || order.Status != domain.OrderStatusPending {
		return nil
	}

	order.Status = domain.OrderStatusFulfilled
	if err := s.orders.Update(ctx, order); err != nil {
		return err
	}

	s.fulfilled.Add(ctx, 1)

	if err := s.notifier.OrderFulfilled(ctx, orderID); err != nil {
		s.logger.Error("failed to notify order fulfilled", "error", err, "order_id", orderID)
	}

	s.logger.Info("order fulfilled", "order_id", orderID)
	return nil
}

// GetOrder exposes order reads for the HTTP layer; (nil, nil) when
// absent.
func (s *Service) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	return s.orders.GetByID(ctx, orderID)
}
