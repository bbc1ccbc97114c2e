// internal/domain/coupon/entity.go
package coupon

import (
	"database/sql"
	"fmt"
	"time"

	xerrors "mealbox-service/internal/pkg/errors"
)

type CouponStatus string
type DiscountType string

const (
	StatusActive   CouponStatus = "active"
	StatusInactive CouponStatus = "inactive"

	DiscountPercentage  DiscountType = "percentage"
	DiscountFixedAmount DiscountType = "fixed_amount"
)

type Coupon struct {
	ID          int64          `json:"id" db:"id"`
	Code        string         `json:"code" db:"code"`
	Description sql.NullString `json:"description,omitempty" db:"description"`

	DiscountType      DiscountType    `json:"discount_type" db:"discount_type"`
	DiscountValue     float64         `json:"discount_value" db:"discount_value"`
	MaxDiscountAmount sql.NullFloat64 `json:"max_discount_amount,omitempty" db:"max_discount_amount"`

	// Empty means the coupon applies to every plan.
	ApplicablePlans []int64 `json:"applicable_plans,omitempty" db:"applicable_plans"`

	MaxUses     sql.NullInt32 `json:"max_uses,omitempty" db:"max_uses"`
	CurrentUses int           `json:"current_uses" db:"current_uses"`

	ValidFrom  time.Time    `json:"valid_from" db:"valid_from"`
	ValidUntil time.Time    `json:"valid_until" db:"valid_until"`
	Status     CouponStatus `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DiscountFor validates the coupon against a plan and price at the given time
// and returns the discount amount. Percentage discounts are capped by
// MaxDiscountAmount when set; the discount never exceeds the price.
func (c *Coupon) DiscountFor(planID int64, price float64, now time.Time) (float64, error) {
	if c.Status != StatusActive {
		return 0, xerrors.ErrCouponInactive
	}
	if now.Before(c.ValidFrom) || now.After(c.ValidUntil) {
		return 0, xerrors.ErrCouponInactive
	}
	if c.MaxUses.Valid && c.CurrentUses >= int(c.MaxUses.Int32) {
		return 0, xerrors.ErrCouponExhausted
	}
	if len(c.ApplicablePlans) > 0 {
		applies := false
		for _, id := range c.ApplicablePlans {
			if id == planID {
				applies = true
				break
			}
		}
		if !applies {
			return 0, fmt.Errorf("%w: coupon does not apply to this plan", xerrors.ErrInvalidInput)
		}
	}

	var discount float64
	switch c.DiscountType {
	case DiscountPercentage:
		discount = price * c.DiscountValue / 100
		if c.MaxDiscountAmount.Valid && discount > c.MaxDiscountAmount.Float64 {
			discount = c.MaxDiscountAmount.Float64
		}
	case DiscountFixedAmount:
		discount = c.DiscountValue
	default:
		return 0, fmt.Errorf("%w: unknown discount type %q", xerrors.ErrInvalidInput, c.DiscountType)
	}

	if discount > price {
		discount = price
	}
	return discount, nil
}

// CouponUsage attributes one redemption to the order it discounted.
type CouponUsage struct {
	ID          int64     `json:"id" db:"id"`
	CouponID    int64     `json:"coupon_id" db:"coupon_id"`
	OrderID     int64     `json:"order_id" db:"order_id"`
	UserID      int64     `json:"user_id" db:"user_id"`
	AmountSaved float64   `json:"amount_saved" db:"amount_saved"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
