// internal/service/coupon/coupon_service.go
package coupon

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"mealbox-service/internal/domain/coupon"
	"mealbox-service/internal/domain/mealplan"
	xerrors "mealbox-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type Store interface {
	Create(ctx context.Context, c *coupon.Coupon) error
	FindByCode(ctx context.Context, code string) (*coupon.Coupon, error)
	List(ctx context.Context) ([]coupon.Coupon, error)
	UpdateStatus(ctx context.Context, id int64, status coupon.CouponStatus) error
}

type PlanStore interface {
	FindByID(ctx context.Context, id int64) (*mealplan.MealPlan, error)
}

type CouponService struct {
	coupons Store
	plans   PlanStore
	logger  *zap.Logger

	now func() time.Time
}

func NewCouponService(coupons Store, plans PlanStore, logger *zap.Logger) *CouponService {
	return &CouponService{coupons: coupons, plans: plans, logger: logger, now: time.Now}
}

func (s *CouponService) Create(ctx context.Context, req *coupon.CreateCouponRequest) (*coupon.Coupon, error) {
	validFrom, err := time.Parse("2006-01-02", req.ValidFrom)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid valid_from date", xerrors.ErrInvalidInput)
	}
	validUntil, err := time.Parse("2006-01-02", req.ValidUntil)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid valid_until date", xerrors.ErrInvalidInput)
	}
	if !validUntil.After(validFrom) {
		return nil, fmt.Errorf("%w: valid_until must be after valid_from", xerrors.ErrInvalidInput)
	}
	// Coupons stay valid through the whole final day.
	validUntil = validUntil.Add(24*time.Hour - time.Second)

	c := &coupon.Coupon{
		Code:            strings.ToUpper(strings.TrimSpace(req.Code)),
		DiscountType:    coupon.DiscountType(req.DiscountType),
		DiscountValue:   req.DiscountValue,
		ApplicablePlans: req.ApplicablePlans,
		ValidFrom:       validFrom,
		ValidUntil:      validUntil,
		Status:          coupon.StatusActive,
	}
	if req.Description != "" {
		c.Description = sql.NullString{String: req.Description, Valid: true}
	}
	if req.MaxDiscountAmount != nil {
		c.MaxDiscountAmount = sql.NullFloat64{Float64: *req.MaxDiscountAmount, Valid: true}
	}
	if req.MaxUses != nil {
		c.MaxUses = sql.NullInt32{Int32: *req.MaxUses, Valid: true}
	}

	if err := s.coupons.Create(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info("coupon created", zap.Int64("coupon_id", c.ID), zap.String("code", c.Code))
	return c, nil
}

// Validate quotes a coupon against a plan and billing frequency. A rejected
// coupon is not an error: the response carries the reason.
func (s *CouponService) Validate(ctx context.Context, req *coupon.ValidateCouponRequest) (*coupon.ValidateCouponResponse, error) {
	plan, err := s.plans.FindByID(ctx, req.MealPlanID)
	if err != nil {
		return nil, fmt.Errorf("meal plan not found: %w", err)
	}
	price := plan.PriceFor(req.Frequency)

	c, err := s.coupons.FindByCode(ctx, req.Code)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return &coupon.ValidateCouponResponse{Valid: false, FinalAmount: price, Reason: "coupon not found"}, nil
		}
		return nil, err
	}

	discount, err := c.DiscountFor(req.MealPlanID, price, s.now())
	if err != nil {
		return &coupon.ValidateCouponResponse{Valid: false, FinalAmount: price, Reason: err.Error()}, nil
	}

	return &coupon.ValidateCouponResponse{
		Valid:       true,
		Discount:    discount,
		FinalAmount: price - discount,
	}, nil
}

func (s *CouponService) List(ctx context.Context) ([]coupon.Coupon, error) {
	coupons, err := s.coupons.List(ctx)
	if err != nil {
		return nil, err
	}
	if coupons == nil {
		coupons = []coupon.Coupon{}
	}
	return coupons, nil
}

func (s *CouponService) SetStatus(ctx context.Context, id int64, status coupon.CouponStatus) error {
	return s.coupons.UpdateStatus(ctx, id, status)
}
