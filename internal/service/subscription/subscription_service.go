// internal/service/subscription/subscription_service.go
package subscription

import (
	"context"
	"fmt"
	"time"

	"mealbox-service/internal/domain/mealplan"
	"mealbox-service/internal/domain/order"
	"mealbox-service/internal/domain/subscription"
	xerrors "mealbox-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Store is the subscription persistence surface the lifecycle service needs.
type Store interface {
	FindByID(ctx context.Context, id int64) (*subscription.Subscription, error)
	ListByUser(ctx context.Context, userID int64, filters *subscription.ListFilters) ([]subscription.Subscription, int64, error)
	Pause(ctx context.Context, id int64) error
	Resume(ctx context.Context, id int64) error
	Cancel(ctx context.Context, id int64, reason string, immediately bool) error
	RenewTx(ctx context.Context, tx pgx.Tx, id int64, periodStart, periodEnd time.Time, renewalCount int) error
	UpdateDeliveryDays(ctx context.Context, id int64, deliveryDays string, vegDays *string) error
	ExpireElapsed(ctx context.Context, now time.Time) (int64, error)
	CancelElapsedPending(ctx context.Context, now time.Time) (int64, error)
	CountExpiringSoon(ctx context.Context, now time.Time, days int) (int64, error)
	GetStats(ctx context.Context) (*subscription.SubscriptionStats, error)
}

type OrderStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, o *order.Order) error
}

type PlanStore interface {
	FindByID(ctx context.Context, id int64) (*mealplan.MealPlan, error)
}

type TxBeginner interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
}

// SubscriptionService drives the pause/resume/cancel/renew lifecycle and the
// periodic maintenance sweep.
type SubscriptionService struct {
	subs   Store
	orders OrderStore
	plans  PlanStore
	db     TxBeginner
	logger *zap.Logger

	expiringSoonDays int
	now              func() time.Time
}

func NewSubscriptionService(subs Store, orders OrderStore, plans PlanStore, db TxBeginner, expiringSoonDays int, logger *zap.Logger) *SubscriptionService {
	if expiringSoonDays <= 0 {
		expiringSoonDays = 3
	}
	return &SubscriptionService{
		subs:             subs,
		orders:           orders,
		plans:            plans,
		db:               db,
		logger:           logger,
		expiringSoonDays: expiringSoonDays,
		now:              time.Now,
	}
}

func (s *SubscriptionService) GetByID(ctx context.Context, id int64) (*subscription.Subscription, error) {
	return s.subs.FindByID(ctx, id)
}

// GetOwned fetches a subscription and verifies it belongs to the user.
func (s *SubscriptionService) GetOwned(ctx context.Context, id, userID int64) (*subscription.Subscription, error) {
	sub, err := s.subs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, xerrors.ErrForbidden
	}
	return sub, nil
}

func (s *SubscriptionService) ListByUser(ctx context.Context, userID int64, filters *subscription.ListFilters) (*subscription.ListResponse, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 || filters.PageSize > 100 {
		filters.PageSize = 20
	}

	subs, total, err := s.subs.ListByUser(ctx, userID, filters)
	if err != nil {
		return nil, err
	}
	if subs == nil {
		subs = []subscription.Subscription{}
	}

	totalPages := int((total + int64(filters.PageSize) - 1) / int64(filters.PageSize))
	return &subscription.ListResponse{
		Subscriptions: subs,
		Total:         total,
		Page:          filters.Page,
		PageSize:      filters.PageSize,
		TotalPages:    totalPages,
	}, nil
}

// Pause suspends deliveries and billing. Only an active subscription can be
// paused; pausing twice fails rather than silently succeeding.
func (s *SubscriptionService) Pause(ctx context.Context, id int64) (*subscription.Subscription, error) {
	sub, err := s.subs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch sub.Status {
	case subscription.StatusPaused:
		return nil, xerrors.ErrAlreadyPaused
	case subscription.StatusActive:
	default:
		return nil, xerrors.ErrNotActive
	}

	if err := s.subs.Pause(ctx, id); err != nil {
		return nil, err
	}
	s.logger.Info("subscription paused", zap.Int64("subscription_id", id))
	return s.subs.FindByID(ctx, id)
}

// Resume reactivates a paused subscription.
func (s *SubscriptionService) Resume(ctx context.Context, id int64) (*subscription.Subscription, error) {
	sub, err := s.subs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Status != subscription.StatusPaused {
		return nil, xerrors.ErrNotPaused
	}

	if err := s.subs.Resume(ctx, id); err != nil {
		return nil, err
	}
	s.logger.Info("subscription resumed", zap.Int64("subscription_id", id))
	return s.subs.FindByID(ctx, id)
}

// Cancel ends a subscription. With CancelImmediately the status flips now;
// otherwise the subscription runs out its paid period and the maintenance
// sweep finalizes the cancellation.
func (s *SubscriptionService) Cancel(ctx context.Context, id int64, req *subscription.CancelRequest) (*subscription.Subscription, error) {
	sub, err := s.subs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch sub.Status {
	case subscription.StatusCancelled, subscription.StatusExpired:
		return nil, xerrors.ErrAlreadyEnded
	}
	if !req.CancelImmediately && sub.CancelAtPeriodEnd {
		return nil, fmt.Errorf("%w: cancellation already scheduled", xerrors.ErrConflict)
	}

	if err := s.subs.Cancel(ctx, id, req.Reason, req.CancelImmediately); err != nil {
		return nil, err
	}
	s.logger.Info("subscription cancelled",
		zap.Int64("subscription_id", id),
		zap.Bool("immediately", req.CancelImmediately),
	)
	return s.subs.FindByID(ctx, id)
}

// Renew advances the billing period by one span and records the renewal
// charge as an order in the same transaction. The new period starts where the
// old one ends unless it already lapsed, in which case it starts now.
func (s *SubscriptionService) Renew(ctx context.Context, id int64) (*subscription.Subscription, error) {
	sub, err := s.subs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Status != subscription.StatusActive {
		return nil, xerrors.ErrNotActive
	}
	if sub.CancelAtPeriodEnd {
		return nil, fmt.Errorf("%w: subscription is scheduled for cancellation", xerrors.ErrConflict)
	}

	plan, err := s.plans.FindByID(ctx, sub.MealPlanID)
	if err != nil {
		return nil, fmt.Errorf("meal plan not found: %w", err)
	}

	now := s.now()
	periodStart := sub.CurrentPeriodEnd
	if periodStart.Before(now) {
		periodStart = now
	}
	periodEnd := periodStart.Add(sub.BillingFrequency.PeriodLength())

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.subs.RenewTx(ctx, tx, id, periodStart, periodEnd, sub.RenewalCount+1); err != nil {
		return nil, err
	}

	ord := &order.Order{
		OrderReference: "ORD-" + ulid.Make().String(),
		UserID:         sub.UserID,
		MealPlanID:     sub.MealPlanID,
		Amount:         plan.PriceFor(string(sub.BillingFrequency)),
		Currency:       plan.Currency,
		GatewayOrderID: "renewal_" + ulid.Make().String(),
		Purpose:        order.PurposeRenewal,
		Status:         order.StatusConfirmed,
		PaymentStatus:  order.PaymentCaptured,
	}
	if err := s.orders.CreateTx(ctx, tx, ord); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("subscription renewed",
		zap.Int64("subscription_id", id),
		zap.Time("period_end", periodEnd),
		zap.Int64("order_id", ord.ID),
	)
	return s.subs.FindByID(ctx, id)
}

// UpdateDeliveryDays changes the weekday schedule. The new value is validated
// before it is stored so the schedule walker never sees corrupt data from
// this path.
func (s *SubscriptionService) UpdateDeliveryDays(ctx context.Context, id int64, req *subscription.UpdateDeliveryDaysRequest) (*subscription.Subscription, error) {
	if _, err := subscription.ParseDeliveryDays(req.DeliveryDays); err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrInvalidInput, err)
	}
	if req.VegDays != nil && *req.VegDays != "" {
		if _, err := subscription.ParseDeliveryDays(*req.VegDays); err != nil {
			return nil, fmt.Errorf("%w: %v", xerrors.ErrInvalidInput, err)
		}
	}

	sub, err := s.subs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch sub.Status {
	case subscription.StatusCancelled, subscription.StatusExpired:
		return nil, xerrors.ErrAlreadyEnded
	}

	if err := s.subs.UpdateDeliveryDays(ctx, id, req.DeliveryDays, req.VegDays); err != nil {
		return nil, err
	}
	return s.subs.FindByID(ctx, id)
}

// RunMaintenance expires elapsed subscriptions, finalizes deferred
// cancellations, and counts subscriptions nearing expiry. It is safe to run
// repeatedly.
func (s *SubscriptionService) RunMaintenance(ctx context.Context) (*subscription.MaintenanceResult, error) {
	now := s.now()

	expired, err := s.subs.ExpireElapsed(ctx, now)
	if err != nil {
		return nil, err
	}
	cancelled, err := s.subs.CancelElapsedPending(ctx, now)
	if err != nil {
		return nil, err
	}
	expiringSoon, err := s.subs.CountExpiringSoon(ctx, now, s.expiringSoonDays)
	if err != nil {
		return nil, err
	}

	result := &subscription.MaintenanceResult{
		ExpiredCount:      int(expired + cancelled),
		ExpiringSoonCount: int(expiringSoon),
	}
	if result.ExpiredCount > 0 {
		s.logger.Info("subscription maintenance sweep",
			zap.Int64("expired", expired),
			zap.Int64("cancellations_finalized", cancelled),
			zap.Int64("expiring_soon", expiringSoon),
		)
	}
	return result, nil
}

func (s *SubscriptionService) Stats(ctx context.Context) (*subscription.SubscriptionStats, error) {
	return s.subs.GetStats(ctx)
}
