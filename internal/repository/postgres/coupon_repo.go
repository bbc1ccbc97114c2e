// internal/repository/postgres/coupon_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mealbox-service/internal/domain/coupon"
	xerrors "mealbox-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

type CouponRepository struct {
	db *pgxpool.Pool
}

func NewCouponRepository(db *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{db: db}
}

const couponColumns = `id, code, description, discount_type, discount_value, max_discount_amount,
	applicable_plans, max_uses, current_uses, valid_from, valid_until, status, created_at, updated_at`

func scanCoupon(row pgx.Row) (*coupon.Coupon, error) {
	var c coupon.Coupon
	err := row.Scan(
		&c.ID, &c.Code, &c.Description, &c.DiscountType, &c.DiscountValue, &c.MaxDiscountAmount,
		pq.Array(&c.ApplicablePlans), &c.MaxUses, &c.CurrentUses,
		&c.ValidFrom, &c.ValidUntil, &c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan coupon: %w", err)
	}
	return &c, nil
}

func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	query := `
		INSERT INTO coupons (
			code, description, discount_type, discount_value, max_discount_amount,
			applicable_plans, max_uses, valid_from, valid_until, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, current_uses, created_at, updated_at
	`
	err := r.db.QueryRow(
		ctx, query,
		c.Code, c.Description, c.DiscountType, c.DiscountValue, c.MaxDiscountAmount,
		pq.Array(c.ApplicablePlans), c.MaxUses, c.ValidFrom, c.ValidUntil, c.Status,
	).Scan(&c.ID, &c.CurrentUses, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return xerrors.ErrConflict
		}
		return fmt.Errorf("failed to create coupon: %w", err)
	}
	return nil
}

func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE upper(code) = upper($1)`
	return scanCoupon(r.db.QueryRow(ctx, query, code))
}

// FindByCodeTx locks the coupon row so concurrent reconciliations serialize
// on the usage counter.
func (r *CouponRepository) FindByCodeTx(ctx context.Context, tx pgx.Tx, code string) (*coupon.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE upper(code) = upper($1) FOR UPDATE`
	return scanCoupon(tx.QueryRow(ctx, query, code))
}

// IncrementUsesTx bumps the usage counter within a transaction.
func (r *CouponRepository) IncrementUsesTx(ctx context.Context, tx pgx.Tx, id int64) error {
	query := `UPDATE coupons SET current_uses = current_uses + 1, updated_at = $1 WHERE id = $2`
	result, err := tx.Exec(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to increment coupon uses: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// InsertUsageTx records the attribution row tying a redemption to its order.
func (r *CouponRepository) InsertUsageTx(ctx context.Context, tx pgx.Tx, u *coupon.CouponUsage) error {
	query := `
		INSERT INTO coupon_usages (coupon_id, order_id, user_id, amount_saved)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := tx.QueryRow(ctx, query, u.CouponID, u.OrderID, u.UserID, u.AmountSaved).
		Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record coupon usage: %w", err)
	}
	return nil
}

func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}
	defer rows.Close()

	var coupons []coupon.Coupon
	for rows.Next() {
		var c coupon.Coupon
		if err := rows.Scan(
			&c.ID, &c.Code, &c.Description, &c.DiscountType, &c.DiscountValue, &c.MaxDiscountAmount,
			pq.Array(&c.ApplicablePlans), &c.MaxUses, &c.CurrentUses,
			&c.ValidFrom, &c.ValidUntil, &c.Status, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan coupon: %w", err)
		}
		coupons = append(coupons, c)
	}
	return coupons, rows.Err()
}

func (r *CouponRepository) UpdateStatus(ctx context.Context, id int64, status coupon.CouponStatus) error {
	query := `UPDATE coupons SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.Exec(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update coupon status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}
