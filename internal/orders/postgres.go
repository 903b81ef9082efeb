package orders

import (
	"context"
	"database/sql"

	"github.com/stocklane/order-inventory/internal/domain"
)

// PostgresRepository is the substitutable database-backed order store.
// It keeps the same max+1 id assignment as the in-memory store so both
// backends expose the same id sequence.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	order := &domain.Order{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, status, created_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID, &order.Status, &order.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, quantity
		FROM order_items
		WHERE order_id = $1
		ORDER BY position
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Quantity); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}

	return order, rows.Err()
}

func (r *PostgresRepository) Add(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (id, status, created_at)
		SELECT COALESCE(MAX(id), 0) + 1, $1, $2 FROM orders
		RETURNING id
	`, order.Status, order.CreatedAt).Scan(&order.ID)
	if err != nil {
		return err
	}

	for i, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, position, product_id, quantity)
			VALUES ($1, $2, $3, $4)
		`, order.ID, i, item.ProductID, item.Quantity)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Update persists the mutable part of an order, which is its status.
// Items never change after placement.
func (r *PostgresRepository) Update(ctx context.Context, order *domain.Order) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1
		WHERE id = $2
	`, order.Status, order.ID)
	return err
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	return err
}
