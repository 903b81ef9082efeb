package products

import (
	"context"
	"errors"

	"github.com/stocklane/order-inventory/internal/domain"
)

// ErrNotFound indicates the referenced product does not exist. Stock
// release reports it so callers can treat a vanished product as a
// best-effort skip.
var ErrNotFound = errors.New("product not found")

// Repository is the product store contract. GetByID returns (nil, nil)
// when the product is absent; Update and Delete are no-ops for absent
// ids. ReserveStock and ReleaseStock run the stock check and adjustment
// inside the store's critical section so a reservation can never drive
// stock negative.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
	Add(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id int64) error

	// ReserveStock decrements stock by quantity, failing with
	// *domain.InsufficientStockError when the product is absent or its
	// stock is short.
	ReserveStock(ctx context.Context, id int64, quantity int) error

	// ReleaseStock increments stock by quantity, failing with
	// ErrNotFound when the product is absent.
	ReleaseStock(ctx context.Context, id int64, quantity int) error
}
