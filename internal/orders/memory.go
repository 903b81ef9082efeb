package orders

import (
	"context"
	"slices"
	"sync"

	"github.com/stocklane/order-inventory/internal/domain"
)

// MemoryRepository is the reference order store: a lock-guarded
// process-wide map. Records are copied in and out so callers never hold
// a reference into the store.
type MemoryRepository struct {
	mu     sync.RWMutex
	orders map[int64]domain.Order
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{orders: make(map[int64]domain.Order)}
}

func (r *MemoryRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	o.Items = slices.Clone(o.Items)
	return &o, nil
}

// Add assigns the next id (max existing + 1, or 1 when empty). After a
// cancellation frees the highest id, that id is handed out again; the
// order service's own sequence keeps counting regardless.
func (r *MemoryRepository) Add(ctx context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var max int64
	for id := range r.orders {
		if id > max {
			max = id
		}
	}
	o.ID = max + 1
	r.orders[o.ID] = *o
	return nil
}

func (r *MemoryRepository) Update(ctx context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[o.ID]; !ok {
		return nil
	}
	r.orders[o.ID] = *o
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.orders, id)
	return nil
}
