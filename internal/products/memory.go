package products

import (
	"context"
	"sync"

	"github.com/stocklane/order-inventory/internal/domain"
)

// MemoryRepository is the reference product store: a process-wide map
// guarded by a single lock. All access goes through the lock-guarded
// methods; records are copied in and out.
type MemoryRepository struct {
	mu       sync.RWMutex
	products map[int64]domain.Product
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{products: make(map[int64]domain.Product)}
}

func (r *MemoryRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	return out, nil
}

// Add assigns the next id (max existing + 1, or 1 when empty) and
// inserts the record.
func (r *MemoryRepository) Add(ctx context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.nextID()
	r.products[p.ID] = *p
	return nil
}

func (r *MemoryRepository) nextID() int64 {
	var max int64
	for id := range r.products {
		if id > max {
			max = id
		}
	}
	return max + 1
}

// Update replaces the fields of an existing record; absent ids are a
// no-op.
func (r *MemoryRepository) Update(ctx context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[p.ID]; !ok {
		return nil
	}
	r.products[p.ID] = *p
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.products, id)
	return nil
}

// ReserveStock checks and decrements under the store lock, so two
// concurrent reservations against the same product cannot lose an
// update or drive stock negative.
func (r *MemoryRepository) ReserveStock(ctx context.Context, id int64, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok || p.StockQuantity < quantity {
		return &domain.InsufficientStockError{ProductID: id}
	}
	p.StockQuantity -= quantity
	r.products[id] = p
	return nil
}

func (r *MemoryRepository) ReleaseStock(ctx context.Context, id int64, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return ErrNotFound
	}
	p.StockQuantity += quantity
	r.products[id] = p
	return nil
}
