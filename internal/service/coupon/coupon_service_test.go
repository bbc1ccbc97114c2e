package coupon

import (
	"context"
	"testing"
	"time"

	"mealbox-service/internal/domain/coupon"
	"mealbox-service/internal/domain/mealplan"
	xerrors "mealbox-service/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockStore struct {
	create       func(ctx context.Context, c *coupon.Coupon) error
	findByCode   func(ctx context.Context, code string) (*coupon.Coupon, error)
	list         func(ctx context.Context) ([]coupon.Coupon, error)
	updateStatus func(ctx context.Context, id int64, status coupon.CouponStatus) error
}

func (m *mockStore) Create(ctx context.Context, c *coupon.Coupon) error { return m.create(ctx, c) }

func (m *mockStore) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	return m.findByCode(ctx, code)
}

func (m *mockStore) List(ctx context.Context) ([]coupon.Coupon, error) { return m.list(ctx) }

func (m *mockStore) UpdateStatus(ctx context.Context, id int64, status coupon.CouponStatus) error {
	return m.updateStatus(ctx, id, status)
}

type mockPlanStore struct {
	findByID func(ctx context.Context, id int64) (*mealplan.MealPlan, error)
}

func (m *mockPlanStore) FindByID(ctx context.Context, id int64) (*mealplan.MealPlan, error) {
	return m.findByID(ctx, id)
}

var fixedNow = time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)

func plans() *mockPlanStore {
	return &mockPlanStore{
		findByID: func(ctx context.Context, id int64) (*mealplan.MealPlan, error) {
			return &mealplan.MealPlan{ID: id, WeeklyPrice: 700, MonthlyPrice: 2600, Currency: "INR"}, nil
		},
	}
}

func newService(store *mockStore, plans *mockPlanStore) *CouponService {
	svc := NewCouponService(store, plans, zap.NewNop())
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestCreate(t *testing.T) {
	t.Run("normalizes and stores", func(t *testing.T) {
		var created *coupon.Coupon
		store := &mockStore{
			create: func(ctx context.Context, c *coupon.Coupon) error {
				c.ID = 1
				created = c
				return nil
			},
		}
		svc := newService(store, plans())

		_, err := svc.Create(context.Background(), &coupon.CreateCouponRequest{
			Code:          "  save20 ",
			DiscountType:  "percentage",
			DiscountValue: 20,
			ValidFrom:     "2026-08-01",
			ValidUntil:    "2026-09-30",
		})
		require.NoError(t, err)

		require.NotNil(t, created)
		assert.Equal(t, "SAVE20", created.Code)
		assert.Equal(t, coupon.StatusActive, created.Status)
		// The window covers the whole final day.
		assert.Equal(t, time.Date(2026, 9, 30, 23, 59, 59, 0, time.UTC), created.ValidUntil)
	})

	t.Run("rejects inverted window", func(t *testing.T) {
		svc := newService(&mockStore{}, plans())

		_, err := svc.Create(context.Background(), &coupon.CreateCouponRequest{
			Code:          "SAVE20",
			DiscountType:  "percentage",
			DiscountValue: 20,
			ValidFrom:     "2026-09-30",
			ValidUntil:    "2026-08-01",
		})
		assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
	})

	t.Run("rejects malformed date", func(t *testing.T) {
		svc := newService(&mockStore{}, plans())

		_, err := svc.Create(context.Background(), &coupon.CreateCouponRequest{
			Code:          "SAVE20",
			DiscountType:  "percentage",
			DiscountValue: 20,
			ValidFrom:     "01/08/2026",
			ValidUntil:    "2026-09-30",
		})
		assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
	})
}

func TestValidate(t *testing.T) {
	goodCoupon := func() *coupon.Coupon {
		return &coupon.Coupon{
			ID:            1,
			Code:          "SAVE20",
			DiscountType:  coupon.DiscountPercentage,
			DiscountValue: 20,
			ValidFrom:     fixedNow.AddDate(0, -1, 0),
			ValidUntil:    fixedNow.AddDate(0, 1, 0),
			Status:        coupon.StatusActive,
		}
	}

	t.Run("valid coupon quotes discount", func(t *testing.T) {
		store := &mockStore{
			findByCode: func(ctx context.Context, code string) (*coupon.Coupon, error) {
				return goodCoupon(), nil
			},
		}
		svc := newService(store, plans())

		resp, err := svc.Validate(context.Background(), &coupon.ValidateCouponRequest{
			Code: "SAVE20", MealPlanID: 10, Frequency: "weekly",
		})
		require.NoError(t, err)

		assert.True(t, resp.Valid)
		assert.Equal(t, 140.0, resp.Discount)
		assert.Equal(t, 560.0, resp.FinalAmount)
	})

	t.Run("unknown code is a reason, not an error", func(t *testing.T) {
		store := &mockStore{
			findByCode: func(ctx context.Context, code string) (*coupon.Coupon, error) {
				return nil, xerrors.ErrNotFound
			},
		}
		svc := newService(store, plans())

		resp, err := svc.Validate(context.Background(), &coupon.ValidateCouponRequest{
			Code: "NOPE", MealPlanID: 10, Frequency: "weekly",
		})
		require.NoError(t, err)

		assert.False(t, resp.Valid)
		assert.Equal(t, "coupon not found", resp.Reason)
		assert.Equal(t, 700.0, resp.FinalAmount)
	})

	t.Run("expired coupon carries the reason", func(t *testing.T) {
		expired := goodCoupon()
		expired.ValidUntil = fixedNow.AddDate(0, 0, -1)
		store := &mockStore{
			findByCode: func(ctx context.Context, code string) (*coupon.Coupon, error) {
				return expired, nil
			},
		}
		svc := newService(store, plans())

		resp, err := svc.Validate(context.Background(), &coupon.ValidateCouponRequest{
			Code: "SAVE20", MealPlanID: 10, Frequency: "monthly",
		})
		require.NoError(t, err)

		assert.False(t, resp.Valid)
		assert.NotEmpty(t, resp.Reason)
		assert.Equal(t, 2600.0, resp.FinalAmount)
	})
}

func TestListNeverNil(t *testing.T) {
	store := &mockStore{
		list: func(ctx context.Context) ([]coupon.Coupon, error) { return nil, nil },
	}
	svc := newService(store, plans())

	coupons, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, coupons)
	assert.Empty(t, coupons)
}
