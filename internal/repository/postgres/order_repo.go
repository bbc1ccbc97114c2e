// internal/repository/postgres/order_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"mealbox-service/internal/domain/order"
	xerrors "mealbox-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepository struct {
	db *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, order_reference, user_id, meal_plan_id, amount, discount_applied, currency,
	gateway_order_id, gateway_payment_id, purpose, status, payment_status, created_at, updated_at`

func scanOrder(row pgx.Row) (*order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID, &o.OrderReference, &o.UserID, &o.MealPlanID,
		&o.Amount, &o.DiscountApplied, &o.Currency,
		&o.GatewayOrderID, &o.GatewayPaymentID,
		&o.Purpose, &o.Status, &o.PaymentStatus,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	return &o, nil
}

// CreateTx inserts an order within a transaction. Unique violations on
// gateway_order_id surface unwrapped so the caller can detect a concurrent
// reconciliation and re-fetch.
func (r *OrderRepository) CreateTx(ctx context.Context, tx pgx.Tx, o *order.Order) error {
	query := `
		INSERT INTO orders (
			order_reference, user_id, meal_plan_id, amount, discount_applied, currency,
			gateway_order_id, gateway_payment_id, purpose, status, payment_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`
	err := tx.QueryRow(
		ctx, query,
		o.OrderReference, o.UserID, o.MealPlanID, o.Amount, o.DiscountApplied, o.Currency,
		o.GatewayOrderID, o.GatewayPaymentID, o.Purpose, o.Status, o.PaymentStatus,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id int64) (*order.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return scanOrder(r.db.QueryRow(ctx, query, id))
}

// FindByGatewayOrderID is the reconciliation idempotency lookup.
func (r *OrderRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*order.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE gateway_order_id = $1`
	return scanOrder(r.db.QueryRow(ctx, query, gatewayOrderID))
}

// ListByUser returns a user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]order.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []order.Order
	for rows.Next() {
		var o order.Order
		if err := rows.Scan(
			&o.ID, &o.OrderReference, &o.UserID, &o.MealPlanID,
			&o.Amount, &o.DiscountApplied, &o.Currency,
			&o.GatewayOrderID, &o.GatewayPaymentID,
			&o.Purpose, &o.Status, &o.PaymentStatus,
			&o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
