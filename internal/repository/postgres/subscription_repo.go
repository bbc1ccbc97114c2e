// internal/repository/postgres/subscription_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mealbox-service/internal/domain/mealprep"
	"mealbox-service/internal/domain/subscription"
	xerrors "mealbox-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SubscriptionRepository struct {
	db *pgxpool.Pool
}

func NewSubscriptionRepository(db *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

const subscriptionColumns = `id, subscription_reference, user_id, meal_plan_id, order_id,
	billing_frequency, current_period_start, current_period_end, renewal_count,
	delivery_days, veg_days, address_line, city, pincode, phone,
	status, cancel_at_period_end, paused_at, cancelled_at, cancellation_reason,
	created_at, updated_at`

func scanSubscription(row pgx.Row) (*subscription.Subscription, error) {
	var s subscription.Subscription
	err := row.Scan(
		&s.ID, &s.SubscriptionReference, &s.UserID, &s.MealPlanID, &s.OrderID,
		&s.BillingFrequency, &s.CurrentPeriodStart, &s.CurrentPeriodEnd, &s.RenewalCount,
		&s.DeliveryDays, &s.VegDays, &s.AddressLine, &s.City, &s.Pincode, &s.Phone,
		&s.Status, &s.CancelAtPeriodEnd, &s.PausedAt, &s.CancelledAt, &s.CancellationReason,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan subscription: %w", err)
	}
	return &s, nil
}

// CreateTx creates a subscription within a transaction.
func (r *SubscriptionRepository) CreateTx(ctx context.Context, tx pgx.Tx, s *subscription.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			subscription_reference, user_id, meal_plan_id, order_id,
			billing_frequency, current_period_start, current_period_end,
			delivery_days, veg_days, address_line, city, pincode, phone,
			status, cancel_at_period_end
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at
	`
	err := tx.QueryRow(
		ctx, query,
		s.SubscriptionReference, s.UserID, s.MealPlanID, s.OrderID,
		s.BillingFrequency, s.CurrentPeriodStart, s.CurrentPeriodEnd,
		s.DeliveryDays, s.VegDays, s.AddressLine, s.City, s.Pincode, s.Phone,
		s.Status, s.CancelAtPeriodEnd,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

func (r *SubscriptionRepository) FindByID(ctx context.Context, id int64) (*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`
	return scanSubscription(r.db.QueryRow(ctx, query, id))
}

// FindByOrderID resolves the subscription created by a reconciled order.
func (r *SubscriptionRepository) FindByOrderID(ctx context.Context, orderID int64) (*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE order_id = $1`
	return scanSubscription(r.db.QueryRow(ctx, query, orderID))
}

// ListByUser retrieves a user's subscriptions with optional status filter.
func (r *SubscriptionRepository) ListByUser(ctx context.Context, userID int64, filters *subscription.ListFilters) ([]subscription.Subscription, int64, error) {
	where := []string{"user_id = $1"}
	args := []interface{}{userID}

	if filters.Status != "" {
		args = append(args, filters.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	whereClause := strings.Join(where, " AND ")

	var total int64
	countQuery := `SELECT COUNT(*) FROM subscriptions WHERE ` + whereClause
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	offset := (filters.Page - 1) * filters.PageSize
	args = append(args, filters.PageSize, offset)
	query := fmt.Sprintf(
		`SELECT %s FROM subscriptions WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		subscriptionColumns, whereClause, len(args)-1, len(args),
	)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []subscription.Subscription
	for rows.Next() {
		var s subscription.Subscription
		if err := rows.Scan(
			&s.ID, &s.SubscriptionReference, &s.UserID, &s.MealPlanID, &s.OrderID,
			&s.BillingFrequency, &s.CurrentPeriodStart, &s.CurrentPeriodEnd, &s.RenewalCount,
			&s.DeliveryDays, &s.VegDays, &s.AddressLine, &s.City, &s.Pincode, &s.Phone,
			&s.Status, &s.CancelAtPeriodEnd, &s.PausedAt, &s.CancelledAt, &s.CancellationReason,
			&s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, total, rows.Err()
}

// ListActiveDetails returns every active subscription joined with its owner
// and plan, in stable id order, for meal-prep aggregation.
func (r *SubscriptionRepository) ListActiveDetails(ctx context.Context) ([]mealprep.ActiveSubscriptionDetail, error) {
	query := `
		SELECT s.id, s.user_id, u.full_name, s.meal_plan_id, p.name,
		       p.is_vegetarian, p.has_breakfast, p.has_lunch, p.has_dinner,
		       s.delivery_days, COALESCE(s.veg_days, ''),
		       s.address_line, s.city, s.pincode
		FROM subscriptions s
		JOIN users u ON u.id = s.user_id
		JOIN meal_plans p ON p.id = s.meal_plan_id
		WHERE s.status = 'active'
		ORDER BY s.id ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active subscriptions: %w", err)
	}
	defer rows.Close()

	var details []mealprep.ActiveSubscriptionDetail
	for rows.Next() {
		var d mealprep.ActiveSubscriptionDetail
		if err := rows.Scan(
			&d.SubscriptionID, &d.UserID, &d.CustomerName, &d.MealPlanID, &d.PlanName,
			&d.PlanIsVeg, &d.HasBreakfast, &d.HasLunch, &d.HasDinner,
			&d.DeliveryDays, &d.VegDays,
			&d.AddressLine, &d.City, &d.Pincode,
		); err != nil {
			return nil, fmt.Errorf("failed to scan subscription detail: %w", err)
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// Pause marks an active subscription paused.
func (r *SubscriptionRepository) Pause(ctx context.Context, id int64) error {
	query := `
		UPDATE subscriptions
		SET status = 'paused', paused_at = $1, updated_at = $1
		WHERE id = $2
	`
	return r.execExpectingRow(ctx, query, time.Now(), id)
}

// Resume reactivates a paused subscription.
func (r *SubscriptionRepository) Resume(ctx context.Context, id int64) error {
	query := `
		UPDATE subscriptions
		SET status = 'active', paused_at = NULL, updated_at = $1
		WHERE id = $2
	`
	return r.execExpectingRow(ctx, query, time.Now(), id)
}

// Cancel ends a subscription, either immediately or at period end via flag.
func (r *SubscriptionRepository) Cancel(ctx context.Context, id int64, reason string, immediately bool) error {
	now := time.Now()
	if immediately {
		query := `
			UPDATE subscriptions
			SET status = 'cancelled', cancelled_at = $1, cancellation_reason = NULLIF($2, ''), updated_at = $1
			WHERE id = $3
		`
		return r.execExpectingRow(ctx, query, now, reason, id)
	}
	query := `
		UPDATE subscriptions
		SET cancel_at_period_end = TRUE, cancellation_reason = NULLIF($1, ''), updated_at = $2
		WHERE id = $3
	`
	return r.execExpectingRow(ctx, query, reason, now, id)
}

// RenewTx advances the billing period within a transaction.
func (r *SubscriptionRepository) RenewTx(ctx context.Context, tx pgx.Tx, id int64, periodStart, periodEnd time.Time, renewalCount int) error {
	query := `
		UPDATE subscriptions
		SET current_period_start = $1, current_period_end = $2, renewal_count = $3, updated_at = $4
		WHERE id = $5
	`
	result, err := tx.Exec(ctx, query, periodStart, periodEnd, renewalCount, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to renew subscription: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// UpdateDeliveryDays changes the weekday schedule and veg override.
func (r *SubscriptionRepository) UpdateDeliveryDays(ctx context.Context, id int64, deliveryDays string, vegDays *string) error {
	query := `
		UPDATE subscriptions
		SET delivery_days = $1, veg_days = $2, updated_at = $3
		WHERE id = $4
	`
	return r.execExpectingRow(ctx, query, deliveryDays, vegDays, time.Now(), id)
}

// ExpireElapsed moves still-active subscriptions whose period has elapsed to
// expired, and returns how many rows changed.
func (r *SubscriptionRepository) ExpireElapsed(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE subscriptions
		SET status = 'expired', updated_at = $1
		WHERE status = 'active' AND current_period_end < $1 AND cancel_at_period_end = FALSE
	`
	result, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire subscriptions: %w", err)
	}
	return result.RowsAffected(), nil
}

// CancelElapsedPending finalizes deferred cancellations whose period ended.
func (r *SubscriptionRepository) CancelElapsedPending(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE subscriptions
		SET status = 'cancelled', cancelled_at = $1, updated_at = $1
		WHERE status IN ('active', 'paused') AND cancel_at_period_end = TRUE AND current_period_end < $1
	`
	result, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to finalize cancellations: %w", err)
	}
	return result.RowsAffected(), nil
}

// CountExpiringSoon counts active subscriptions ending within the window.
func (r *SubscriptionRepository) CountExpiringSoon(ctx context.Context, now time.Time, days int) (int64, error) {
	query := `
		SELECT COUNT(*) FROM subscriptions
		WHERE status = 'active' AND current_period_end >= $1 AND current_period_end < $2
	`
	var count int64
	if err := r.db.QueryRow(ctx, query, now, now.AddDate(0, 0, days)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count expiring subscriptions: %w", err)
	}
	return count, nil
}

// GetStats aggregates subscription counts by status.
func (r *SubscriptionRepository) GetStats(ctx context.Context) (*subscription.SubscriptionStats, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'active'),
		       COUNT(*) FILTER (WHERE status = 'paused'),
		       COUNT(*) FILTER (WHERE status = 'cancelled'),
		       COUNT(*) FILTER (WHERE status = 'expired')
		FROM subscriptions
	`
	var stats subscription.SubscriptionStats
	err := r.db.QueryRow(ctx, query).Scan(
		&stats.TotalSubscriptions, &stats.ActiveSubscriptions,
		&stats.PausedSubscriptions, &stats.CancelledSubscriptions,
		&stats.ExpiredSubscriptions,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription stats: %w", err)
	}
	return &stats, nil
}

func (r *SubscriptionRepository) execExpectingRow(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}
