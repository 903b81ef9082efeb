package orders

import (
	"context"

	"github.com/stocklane/order-inventory/internal/domain"
)

// Repository is the order store contract. GetByID returns (nil, nil)
// when the order is absent; Update and Delete are no-ops for absent
// ids. Add assigns its own id (max existing + 1, or 1 when empty),
// overwriting whatever id the caller stamped on the record.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	Add(ctx context.Context, o *domain.Order) error
	Update(ctx context.Context, o *domain.Order) error
	Delete(ctx context.Context, id int64) error
}
