// internal/repository/postgres/delivery_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mealbox-service/internal/domain/delivery"
	xerrors "mealbox-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DeliveryRepository struct {
	db *pgxpool.Pool
}

func NewDeliveryRepository(db *pgxpool.Pool) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

const deliveryColumns = `id, subscription_id, delivery_date, status, notes, created_at, updated_at`

func scanDelivery(row pgx.Row) (*delivery.Delivery, error) {
	var d delivery.Delivery
	err := row.Scan(&d.ID, &d.SubscriptionID, &d.DeliveryDate, &d.Status, &d.Notes, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan delivery: %w", err)
	}
	return &d, nil
}

func (r *DeliveryRepository) FindByID(ctx context.Context, id int64) (*delivery.Delivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM deliveries WHERE id = $1`
	return scanDelivery(r.db.QueryRow(ctx, query, id))
}

// EnsureForDate materializes the delivery row for a (subscription, date)
// pair, returning the existing row if one was created earlier.
func (r *DeliveryRepository) EnsureForDate(ctx context.Context, subscriptionID int64, date time.Time) (*delivery.Delivery, error) {
	insert := `
		INSERT INTO deliveries (subscription_id, delivery_date, status)
		VALUES ($1, $2, 'pending')
		ON CONFLICT (subscription_id, delivery_date) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, insert, subscriptionID, date); err != nil {
		return nil, fmt.Errorf("failed to materialize delivery: %w", err)
	}

	query := `SELECT ` + deliveryColumns + ` FROM deliveries
		WHERE subscription_id = $1 AND delivery_date = $2`
	return scanDelivery(r.db.QueryRow(ctx, query, subscriptionID, date))
}

// UpdateStatus moves a delivery to a new status. Transition validity is the
// service's concern; this just writes.
func (r *DeliveryRepository) UpdateStatus(ctx context.Context, id int64, status delivery.DeliveryStatus, notes string) error {
	query := `
		UPDATE deliveries
		SET status = $1, notes = COALESCE(NULLIF($2, ''), notes), updated_at = $3
		WHERE id = $4
	`
	result, err := r.db.Exec(ctx, query, status, notes, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update delivery status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// CancelPendingForDateTx cancels a still-pending materialized delivery when
// its date gets skipped. Returns false when there was nothing to cancel.
func (r *DeliveryRepository) CancelPendingForDateTx(ctx context.Context, tx pgx.Tx, subscriptionID int64, date time.Time) (bool, error) {
	query := `
		UPDATE deliveries
		SET status = 'cancelled', updated_at = $1
		WHERE subscription_id = $2 AND delivery_date = $3 AND status = 'pending'
	`
	result, err := tx.Exec(ctx, query, time.Now(), subscriptionID, date)
	if err != nil {
		return false, fmt.Errorf("failed to cancel pending delivery: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// ListForDate returns all deliveries on a date in subscription order.
func (r *DeliveryRepository) ListForDate(ctx context.Context, date time.Time) ([]delivery.Delivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM deliveries
		WHERE delivery_date = $1 ORDER BY subscription_id ASC`
	rows, err := r.db.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []delivery.Delivery
	for rows.Next() {
		var d delivery.Delivery
		if err := rows.Scan(&d.ID, &d.SubscriptionID, &d.DeliveryDate, &d.Status, &d.Notes, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}

// ListForSubscription returns a subscription's deliveries, newest first.
func (r *DeliveryRepository) ListForSubscription(ctx context.Context, subscriptionID int64, limit int) ([]delivery.Delivery, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	query := `SELECT ` + deliveryColumns + ` FROM deliveries
		WHERE subscription_id = $1 ORDER BY delivery_date DESC LIMIT $2`
	rows, err := r.db.Query(ctx, query, subscriptionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []delivery.Delivery
	for rows.Next() {
		var d delivery.Delivery
		if err := rows.Scan(&d.ID, &d.SubscriptionID, &d.DeliveryDate, &d.Status, &d.Notes, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}
