package orders

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stocklane/order-inventory/internal/domain"
	"github.com/stocklane/order-inventory/internal/notify"
	"github.com/stocklane/order-inventory/internal/products"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls []int64
	err   error
}

func (n *recordingNotifier) OrderFulfilled(ctx context.Context, orderID int64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, orderID)
	return n.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.OrderPlacedEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if placed, ok := event.(domain.OrderPlacedEvent); ok {
		p.events = append(p.events, placed)
	}
	return nil
}

func newTestService(t *testing.T, notifier notify.Notifier, publisher EventPublisher) (*Service, *products.MemoryRepository, *MemoryRepository) {
	t.Helper()

	productRepo := products.NewMemoryRepository()
	orderRepo := NewMemoryRepository()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	service, err := NewService(productRepo, orderRepo, notifier, publisher, logger)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return service, productRepo, orderRepo
}

func addProduct(t *testing.T, repo *products.MemoryRepository, name string, stock int) int64 {
	t.Helper()

	p := &domain.Product{Name: name, Price: 9.99, StockQuantity: stock}
	if err := repo.Add(context.Background(), p); err != nil {
		t.Fatalf("failed to add product: %v", err)
	}
	return p.ID
}

func stockOf(t *testing.T, repo *products.MemoryRepository, id int64) int {
	t.Helper()

	p, err := repo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to get product %d: %v", id, err)
	}
	if p == nil {
		t.Fatalf("product %d not found", id)
	}
	return p.StockQuantity
}

func TestPlaceOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("reserves stock and persists the order", func(t *testing.T) {
		service, productRepo, orderRepo := newTestService(t, &recordingNotifier{}, nil)
		productID := addProduct(t, productRepo, "widget", 15)

		orderID, err := service.PlaceOrder(ctx, []domain.OrderItem{{ProductID: productID, Quantity: 3}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if orderID <= 0 {
			t.Fatalf("expected positive order id, got %d", orderID)
		}
		if got := stockOf(t, productRepo, productID); got != 12 {
			t.Errorf("expected stock 12, got %d", got)
		}

		order, err := orderRepo.GetByID(ctx, orderID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if order == nil {
			t.Fatal("order not persisted")
		}
		if order.Status != domain.OrderStatusPending {
			t.Errorf("expected status %q, got %q", domain.OrderStatusPending, order.Status)
		}
		if order.CreatedAt.IsZero() {
			t.Error("expected createdAt to be set")
		}
	})

	t.Run("fails with insufficient stock and leaves stock unchanged", func(t *testing.T) {
		service, productRepo, _ := newTestService(t, &recordingNotifier{}, nil)
		productID := addProduct(t, productRepo, "widget", 1)

		_, err := service.PlaceOrder(ctx, []domain.OrderItem{{ProductID: productID, Quantity: 2}})
		if err == nil {
			t.Fatal("expected error")
		}
		if err.Error() != "Insufficient stock for product 1" {
			t.Errorf("unexpected message: %q", err.Error())
		}
		var stockErr *domain.InsufficientStockError
		if !errors.As(err, &stockErr) || stockErr.ProductID != productID {
			t.Errorf("expected InsufficientStockError for product %d, got %v", productID, err)
		}
		if got := stockOf(t, productRepo, productID); got != 1 {
			t.Errorf("expected stock to remain 1, got %d", got)
		}
	})

	t.Run("fails for unknown product", func(t *testing.T) {
		service, _, _ := newTestService(t, &recordingNotifier{}, nil)

		_, err := service.PlaceOrder(ctx, []domain.OrderItem{{ProductID: 42, Quantity: 1}})
		var stockErr *domain.InsufficientStockError
		if !errors.As(err, &stockErr) || stockErr.ProductID != 42 {
			t.Fatalf("expected InsufficientStockError for product 42, got %v", err)
		}
	})

	t.Run("rejects nil and empty item lists", func(t *testing.T) {
		service, _, _ := newTestService(t, &recordingNotifier{}, nil)

		for _, items := range [][]domain.OrderItem{nil, {}} {
			if _, err := service.PlaceOrder(ctx, items); !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		}
	})

	t.Run("keeps earlier reservations when a later item fails", func(t *testing.T) {
		service, productRepo, orderRepo := newTestService(t, &recordingNotifier{}, nil)
		first := addProduct(t, productRepo, "widget", 5)
		second := addProduct(t, productRepo, "gadget", 0)

		_, err := service.PlaceOrder(ctx, []domain.OrderItem{
			{ProductID: first, Quantity: 2},
			{ProductID: second, Quantity: 1},
		})
		var stockErr *domain.InsufficientStockError
		if !errors.As(err, &stockErr) || stockErr.ProductID != second {
			t.Fatalf("expected InsufficientStockError for product %d, got %v", second, err)
		}
		// Best-effort semantics: the first item's decrement stands.
		if got := stockOf(t, productRepo, first); got != 3 {
			t.Errorf("expected stock 3 for first product, got %d", got)
		}
		if order, _ := orderRepo.GetByID(ctx, 1); order != nil {
			t.Error("expected no order to be persisted")
		}
	})

	t.Run("publishes a placement event", func(t *testing.T) {
		publisher := &recordingPublisher{}
		service, productRepo, _ := newTestService(t, &recordingNotifier{}, publisher)
		productID := addProduct(t, productRepo, "widget", 10)

		orderID, err := service.PlaceOrder(ctx, []domain.OrderItem{{ProductID: productID, Quantity: 1}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(publisher.events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(publisher.events))
		}
		event := publisher.events[0]
		if event.OrderID != orderID {
			t.Errorf("expected event for order %d, got %d", orderID, event.OrderID)
		}
		if event.EventID == "" {
			t.Error("expected event id to be set")
		}
	})

	t.Run("concurrent placements never lose an update or go negative", func(t *testing.T) {
		service, productRepo, _ := newTestService(t, &recordingNotifier{}, nil)
		productID := addProduct(t, productRepo, "widget", 6)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := range errs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = service.PlaceOrder(ctx, []domain.OrderItem{{ProductID: productID, Quantity: 3}})
			}()
		}
		wg.Wait()

		for i, err := range errs {
			if err != nil {
				t.Errorf("placement %d failed: %v", i, err)
			}
		}
		if got := stockOf(t, productRepo, productID); got != 0 {
			t.Errorf("expected final stock 0, got %d", got)
		}
	})
}

func TestCancelOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("restores stock and deletes the order", func(t *testing.T) {
		service, productRepo, orderRepo := newTestService(t, &recordingNotifier{}, nil)
		productID := addProduct(t, productRepo, "widget", 15)

		orderID, err := service.PlaceOrder(ctx, []domain.OrderItem{{ProductID: productID, Quantity: 3}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := stockOf(t, productRepo, productID); got != 12 {
			t.Fatalf("expected stock 12 before cancel, got %d", got)
		}

		if err := service.CancelOrder(ctx, orderID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := stockOf(t, productRepo, productID); got != 15 {
			t.Errorf("expected stock 15 after cancel, got %d", got)
		}
		if order, _ := orderRepo.GetByID(ctx, orderID); order != nil {
			t.Error("expected order to be deleted")
		}
	})

	t.Run("fails for an unknown order", func(t *testing.T) {
		service, _, _ := newTestService(t, &recordingNotifier{}, nil)

		err := service.CancelOrder(ctx, 1)
		var notFoundErr *domain.NotFoundError
		if !errors.As(err, &notFoundErr) {
			t.Fatalf("expected NotFoundError, got %v", err)
		}
		if err.Error() != "Order 1 not found" {
			t.Errorf("unexpected message: %q", err.Error())
		}
	})

	t.Run("fails for a fulfilled order without touching stock", func(t *testing.T) {
		service, productRepo, _ := newTestService(t, &recordingNotifier{}, nil)
		productID := addProduct(t, productRepo, "widget", 10)

		orderID, err := service.PlaceOrder(ctx, []domain.OrderItem{{ProductID: productID, Quantity: 4}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := service.FulfillOrder(ctx, orderID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		err = service.CancelOrder(ctx, orderID)
		var stateErr *domain.InvalidStateError
		if !errors.As(err, &stateErr) {
			t.Fatalf("expected InvalidStateError, got %v", err)
		}
		if err.Error() != "Cannot cancel order 1 with status Fulfilled" {
			t.Errorf("unexpected message: %q", err.Error())
		}
		if got := stockOf(t, productRepo, productID); got != 6 {
			t.Errorf("expected stock to remain 6, got %d", got)
		}
	})

	t.Run("skips restoring stock for a vanished product", func(t *testing.T) {
		service, productRepo, orderRepo := newTestService(t, &recordingNotifier{}, nil)
		kept := addProduct(t, productRepo, "widget", 10)
		doomed := addProduct(t, productRepo, "gadget", 10)

		orderID, err := service.PlaceOrder(ctx, []domain.OrderItem{
			{ProductID: doomed, Quantity: 2},
			{ProductID: kept, Quantity: 3},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if err := productRepo.Delete(ctx, doomed); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if err := service.CancelOrder(ctx, orderID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := stockOf(t, productRepo, kept); got != 10 {
			t.Errorf("expected stock 10 for surviving product, got %d", got)
		}
		if order, _ := orderRepo.GetByID(ctx, orderID); order != nil {
			t.Error("expected order to be deleted")
		}
	})
}

func TestFulfillOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("transitions to fulfilled and notifies exactly once", func(t *testing.T) {
		notifier := &recordingNotifier{}
		service, productRepo, orderRepo := newTestService(t, notifier, nil)
		productID := addProduct(t, productRepo, "widget", 10)

		orderID, err := service.PlaceOrder(ctx, []domain.OrderItem{{ProductID: productID, Quantity: 1}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if err := service.FulfillOrder(ctx, orderID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		order, _ := orderRepo.GetByID(ctx, orderID)
		if order == nil || order.Status != domain.OrderStatusFulfilled {
			t.Fatalf("expected order %d to be fulfilled, got %+v", orderID, order)
		}
		if len(notifier.calls) != 1 || notifier.calls[0] != orderID {
			t.Errorf("expected one notification for order %d, got %v", orderID, notifier.calls)
		}
	})

	t.Run("is a no-op for an absent order", func(t *testing.T) {
		notifier := &recordingNotifier{}
		service, _, _ := newTestService(t, notifier, nil)

		if err := service.FulfillOrder(ctx, 99); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(notifier.calls) != 0 {
			t.Errorf("expected no notifications, got %v", notifier.calls)
		}
	})

	t.Run("is a no-op for an already fulfilled order", func(t *testing.T) {
		notifier := &recordingNotifier{}
		service, productRepo, _ := newTestService(t, notifier, nil)
		productID := addProduct(t, productRepo, "widget", 10)

		orderID, err := service.PlaceOrder(ctx, []domain.OrderItem{{ProductID: productID, Quantity: 1}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if err := service.FulfillOrder(ctx, orderID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := service.FulfillOrder(ctx, orderID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(notifier.calls) != 1 {
			t.Errorf("expected exactly one notification, got %v", notifier.calls)
		}
	})

	t.Run("keeps the transition when notification fails", func(t *testing.T) {
		notifier := &recordingNotifier{err: errors.New("smtp down")}
		service, productRepo, orderRepo := newTestService(t, notifier, nil)
		productID := addProduct(t, productRepo, "widget", 10)

		orderID, err := service.PlaceOrder(ctx, []domain.OrderItem{{ProductID: productID, Quantity: 1}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if err := service.FulfillOrder(ctx, orderID); err != nil {
			t.Fatalf("expected notification failure to be swallowed, got %v", err)
		}
		order, _ := orderRepo.GetByID(ctx, orderID)
		if order == nil || order.Status != domain.OrderStatusFulfilled {
			t.Errorf("expected order to stay fulfilled, got %+v", order)
		}
	})
}

func TestOrderIDReuseAfterCancellation(t *testing.T) {
	ctx := context.Background()
	service, productRepo, _ := newTestService(t, &recordingNotifier{}, nil)
	productID := addProduct(t, productRepo, "widget", 100)

	place := func() int64 {
		t.Helper()
		id, err := service.PlaceOrder(ctx, []domain.OrderItem{{ProductID: productID, Quantity: 1}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return id
	}

	first := place()
	second := place()
	if first != 1 || second != 2 {
		t.Fatalf("expected store-assigned ids 1 and 2, got %d and %d", first, second)
	}

	// The store hands out max+1, so cancelling the newest order frees
	// its id for the next placement; the service's own sequence keeps
	// counting independently.
	if err := service.CancelOrder(ctx, second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if third := place(); third != 2 {
		t.Errorf("expected reused id 2, got %d", third)
	}
}
