// internal/repository/postgres/skipped_delivery_repo.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SkippedDeliveryRepository persists per-date skip decisions. The
// (subscription_id, delivery_date) pair carries a unique constraint.
type SkippedDeliveryRepository struct {
	db *pgxpool.Pool
}

func NewSkippedDeliveryRepository(db *pgxpool.Pool) *SkippedDeliveryRepository {
	return &SkippedDeliveryRepository{db: db}
}

// IsSkipped reports whether a skip record exists for the pair.
func (r *SkippedDeliveryRepository) IsSkipped(ctx context.Context, subscriptionID int64, date time.Time) (bool, error) {
	query := `SELECT EXISTS(
		SELECT 1 FROM skipped_deliveries WHERE subscription_id = $1 AND delivery_date = $2
	)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, subscriptionID, date).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check skip record: %w", err)
	}
	return exists, nil
}

// InsertTx records a skip. Returns false when the record already existed.
func (r *SkippedDeliveryRepository) InsertTx(ctx context.Context, tx pgx.Tx, subscriptionID int64, date time.Time) (bool, error) {
	query := `
		INSERT INTO skipped_deliveries (subscription_id, delivery_date)
		VALUES ($1, $2)
		ON CONFLICT (subscription_id, delivery_date) DO NOTHING
	`
	result, err := tx.Exec(ctx, query, subscriptionID, date)
	if err != nil {
		return false, fmt.Errorf("failed to insert skip record: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// DeleteTx removes a skip. Returns false when no record existed.
func (r *SkippedDeliveryRepository) DeleteTx(ctx context.Context, tx pgx.Tx, subscriptionID int64, date time.Time) (bool, error) {
	query := `DELETE FROM skipped_deliveries WHERE subscription_id = $1 AND delivery_date = $2`
	result, err := tx.Exec(ctx, query, subscriptionID, date)
	if err != nil {
		return false, fmt.Errorf("failed to delete skip record: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// SkippedDatesInRange returns the skipped dates for one subscription inside
// [from, to], keyed by YYYY-MM-DD.
func (r *SkippedDeliveryRepository) SkippedDatesInRange(ctx context.Context, subscriptionID int64, from, to time.Time) (map[string]bool, error) {
	query := `
		SELECT delivery_date FROM skipped_deliveries
		WHERE subscription_id = $1 AND delivery_date BETWEEN $2 AND $3
	`
	rows, err := r.db.Query(ctx, query, subscriptionID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list skip records: %w", err)
	}
	defer rows.Close()

	skipped := make(map[string]bool)
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan skip record: %w", err)
		}
		skipped[d.Format("2006-01-02")] = true
	}
	return skipped, rows.Err()
}

// SkippedSubscriptionsForDate returns the set of subscription ids with a
// skip record on the date. Used by the meal-prep aggregation.
func (r *SkippedDeliveryRepository) SkippedSubscriptionsForDate(ctx context.Context, date time.Time) (map[int64]bool, error) {
	query := `SELECT subscription_id FROM skipped_deliveries WHERE delivery_date = $1`
	rows, err := r.db.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list skips for date: %w", err)
	}
	defer rows.Close()

	skipped := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan skip record: %w", err)
		}
		skipped[id] = true
	}
	return skipped, rows.Err()
}
