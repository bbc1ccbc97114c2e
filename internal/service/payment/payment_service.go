// internal/service/payment/payment_service.go
package payment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"mealbox-service/internal/domain/coupon"
	"mealbox-service/internal/domain/mealplan"
	"mealbox-service/internal/domain/order"
	"mealbox-service/internal/domain/subscription"
	"mealbox-service/internal/domain/user"
	gateway "mealbox-service/internal/gateway/razorpay"
	xerrors "mealbox-service/internal/pkg/errors"
	"mealbox-service/internal/repository/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

type OrderStore interface {
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*order.Order, error)
	CreateTx(ctx context.Context, tx pgx.Tx, o *order.Order) error
}

type SubscriptionStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, s *subscription.Subscription) error
	FindByOrderID(ctx context.Context, orderID int64) (*subscription.Subscription, error)
}

type UserStore interface {
	FindByEmailTx(ctx context.Context, tx pgx.Tx, email string) (*user.User, error)
	CreateTx(ctx context.Context, tx pgx.Tx, u *user.User) error
}

type CouponStore interface {
	FindByCode(ctx context.Context, code string) (*coupon.Coupon, error)
	FindByCodeTx(ctx context.Context, tx pgx.Tx, code string) (*coupon.Coupon, error)
	IncrementUsesTx(ctx context.Context, tx pgx.Tx, id int64) error
	InsertUsageTx(ctx context.Context, tx pgx.Tx, u *coupon.CouponUsage) error
}

type PlanStore interface {
	FindByID(ctx context.Context, id int64) (*mealplan.MealPlan, error)
}

// Gateway is the slice of the payment provider the service depends on.
type Gateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]interface{}) (*gateway.CheckoutOrder, error)
	FetchOrder(ctx context.Context, gatewayOrderID string) (*gateway.CheckoutOrder, error)
	VerifyWebhookSignature(body []byte, signature string) bool
	VerifyCheckoutSignature(gatewayOrderID, gatewayPaymentID, signature string) bool
}

type TxBeginner interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
}

// PaymentService turns completed payment events into exactly one Order plus
// one Subscription, no matter how many times or through which channel the
// event arrives.
type PaymentService struct {
	orders  OrderStore
	subs    SubscriptionStore
	users   UserStore
	coupons CouponStore
	plans   PlanStore
	gateway Gateway
	db      TxBeginner
	logger  *zap.Logger

	gatewayTimeout time.Duration
	now            func() time.Time
}

func NewPaymentService(
	orders OrderStore,
	subs SubscriptionStore,
	users UserStore,
	coupons CouponStore,
	plans PlanStore,
	gw Gateway,
	db TxBeginner,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		orders:         orders,
		subs:           subs,
		users:          users,
		coupons:        coupons,
		plans:          plans,
		gateway:        gw,
		db:             db,
		logger:         logger,
		gatewayTimeout: 15 * time.Second,
		now:            time.Now,
	}
}

// CreateCheckout opens a gateway checkout session for a plan purchase. The
// checkout fields ride along as gateway order notes so both completion
// channels can rebuild the payment event from the gateway's copy.
func (s *PaymentService) CreateCheckout(ctx context.Context, req *order.CheckoutRequest) (*order.CheckoutSession, error) {
	plan, err := s.plans.FindByID(ctx, req.MealPlanID)
	if err != nil {
		return nil, fmt.Errorf("meal plan not found: %w", err)
	}
	if plan.Status != mealplan.StatusActive || !plan.IsPublic {
		return nil, fmt.Errorf("%w: meal plan is not available", xerrors.ErrInvalidInput)
	}
	if req.DeliveryDays != "" {
		if _, err := subscription.ParseDeliveryDays(req.DeliveryDays); err != nil {
			return nil, fmt.Errorf("%w: %v", xerrors.ErrInvalidInput, err)
		}
	}

	price := plan.PriceFor(req.BillingFrequency)
	discount := 0.0
	if req.CouponCode != "" {
		c, err := s.coupons.FindByCode(ctx, req.CouponCode)
		if err != nil {
			return nil, fmt.Errorf("coupon not found: %w", err)
		}
		discount, err = c.DiscountFor(req.MealPlanID, price, s.now())
		if err != nil {
			return nil, err
		}
	}
	finalAmount := price - discount

	notes := map[string]interface{}{
		"email":             req.Email,
		"full_name":         req.FullName,
		"phone":             req.Phone,
		"address_line":      req.AddressLine,
		"city":              req.City,
		"pincode":           req.Pincode,
		"meal_plan_id":      strconv.FormatInt(req.MealPlanID, 10),
		"billing_frequency": req.BillingFrequency,
		"delivery_days":     req.DeliveryDays,
		"coupon_code":       req.CouponCode,
	}

	gctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	receipt := "rcpt_" + ulid.Make().String()
	gwOrder, err := s.gateway.CreateOrder(gctx, int64(finalAmount*100), plan.Currency, receipt, notes)
	if err != nil {
		return nil, err
	}

	return &order.CheckoutSession{
		GatewayOrderID: gwOrder.ID,
		Amount:         finalAmount,
		Currency:       plan.Currency,
		GatewayKeyID:   s.gateway.KeyID(),
	}, nil
}

// ConfirmRedirect handles the synchronous completion channel: the storefront
// redirect carrying the gateway order id and checkout signature.
func (s *PaymentService) ConfirmRedirect(ctx context.Context, gatewayOrderID, gatewayPaymentID, signature string) (*subscription.Subscription, error) {
	if gatewayOrderID == "" {
		return nil, fmt.Errorf("%w: missing gateway order id", xerrors.ErrInvalidInput)
	}
	if !s.gateway.VerifyCheckoutSignature(gatewayOrderID, gatewayPaymentID, signature) {
		return nil, fmt.Errorf("%w: checkout signature mismatch", xerrors.ErrUnauthorized)
	}

	ev, err := s.fetchEvent(ctx, gatewayOrderID, gatewayPaymentID)
	if err != nil {
		return nil, err
	}
	return s.Reconcile(ctx, ev)
}

// HandleWebhook handles the asynchronous completion channel: a signed
// payment.captured notification.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !s.gateway.VerifyWebhookSignature(body, signature) {
		return fmt.Errorf("%w: webhook signature mismatch", xerrors.ErrUnauthorized)
	}

	var payload struct {
		Event   string `json:"event"`
		Payload struct {
			Payment struct {
				Entity struct {
					ID      string `json:"id"`
					OrderID string `json:"order_id"`
					Status  string `json:"status"`
				} `json:"entity"`
			} `json:"payment"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("%w: malformed webhook payload", xerrors.ErrInvalidInput)
	}

	if payload.Event != "payment.captured" {
		s.logger.Debug("ignoring webhook event", zap.String("event", payload.Event))
		return nil
	}

	entity := payload.Payload.Payment.Entity
	if entity.OrderID == "" {
		return fmt.Errorf("%w: webhook payment has no order id", xerrors.ErrInvalidInput)
	}

	ev, err := s.fetchEvent(ctx, entity.OrderID, entity.ID)
	if err != nil {
		return err
	}
	_, err = s.Reconcile(ctx, ev)
	return err
}

// fetchEvent confirms the checkout session with the gateway and rebuilds the
// normalized payment event from the session's notes.
func (s *PaymentService) fetchEvent(ctx context.Context, gatewayOrderID, gatewayPaymentID string) (*order.PaymentEvent, error) {
	gctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	gwOrder, err := s.gateway.FetchOrder(gctx, gatewayOrderID)
	if err != nil {
		return nil, err
	}
	if gwOrder.Status != "paid" && gwOrder.Status != "attempted" {
		return nil, fmt.Errorf("%w: gateway order %s is not paid (status %s)",
			xerrors.ErrInvalidInput, gatewayOrderID, gwOrder.Status)
	}

	planID, _ := strconv.ParseInt(noteString(gwOrder.Notes, "meal_plan_id"), 10, 64)
	ev := &order.PaymentEvent{
		GatewayOrderID:   gwOrder.ID,
		GatewayPaymentID: gatewayPaymentID,
		AmountPaid:       float64(gwOrder.Amount) / 100,
		Currency:         gwOrder.Currency,
		Email:            noteString(gwOrder.Notes, "email"),
		FullName:         noteString(gwOrder.Notes, "full_name"),
		Phone:            noteString(gwOrder.Notes, "phone"),
		AddressLine:      noteString(gwOrder.Notes, "address_line"),
		City:             noteString(gwOrder.Notes, "city"),
		Pincode:          noteString(gwOrder.Notes, "pincode"),
		MealPlanID:       planID,
		BillingFrequency: noteString(gwOrder.Notes, "billing_frequency"),
		DeliveryDays:     noteString(gwOrder.Notes, "delivery_days"),
		CouponCode:       noteString(gwOrder.Notes, "coupon_code"),
	}
	return ev, nil
}

// Reconcile turns one completed payment event into exactly one Order and one
// Subscription. The gateway order id is the idempotency key: replays return
// the already-created subscription, and a concurrent insert losing the unique
// constraint race re-reads instead of erroring.
func (s *PaymentService) Reconcile(ctx context.Context, ev *order.PaymentEvent) (*subscription.Subscription, error) {
	if err := validateEvent(ev); err != nil {
		return nil, err
	}

	// Fast path: event already processed.
	if existing, err := s.orders.FindByGatewayOrderID(ctx, ev.GatewayOrderID); err == nil {
		return s.subs.FindByOrderID(ctx, existing.ID)
	} else if !errors.Is(err, xerrors.ErrNotFound) {
		return nil, err
	}

	plan, err := s.plans.FindByID(ctx, ev.MealPlanID)
	if err != nil {
		return nil, fmt.Errorf("meal plan not found: %w", err)
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	buyer, err := s.findOrCreateBuyer(ctx, tx, ev)
	if err != nil {
		return nil, err
	}

	price := plan.PriceFor(ev.BillingFrequency)
	discount := price - ev.AmountPaid
	if discount < 0 {
		discount = 0
	}

	ord := &order.Order{
		OrderReference:  "ORD-" + ulid.Make().String(),
		UserID:          buyer.ID,
		MealPlanID:      plan.ID,
		Amount:          ev.AmountPaid,
		DiscountApplied: discount,
		Currency:        ev.Currency,
		GatewayOrderID:  ev.GatewayOrderID,
		Purpose:         order.PurposeNewSubscription,
		Status:          order.StatusConfirmed,
		PaymentStatus:   order.PaymentCaptured,
	}
	if ev.GatewayPaymentID != "" {
		ord.GatewayPaymentID = sql.NullString{String: ev.GatewayPaymentID, Valid: true}
	}

	if err := s.orders.CreateTx(ctx, tx, ord); err != nil {
		if postgres.IsUniqueViolation(err) {
			// Lost the race against the other delivery channel.
			tx.Rollback(ctx)
			s.logger.Info("payment event already reconciled concurrently",
				zap.String("gateway_order_id", ev.GatewayOrderID))
			return s.findReconciled(ctx, ev.GatewayOrderID)
		}
		return nil, err
	}

	now := s.now()
	frequency := subscription.BillingFrequency(ev.BillingFrequency)
	sub := &subscription.Subscription{
		SubscriptionReference: "SUB-" + ulid.Make().String(),
		UserID:                buyer.ID,
		MealPlanID:            plan.ID,
		OrderID:               sql.NullInt64{Int64: ord.ID, Valid: true},
		BillingFrequency:      frequency,
		CurrentPeriodStart:    now,
		CurrentPeriodEnd:      now.Add(frequency.PeriodLength()),
		DeliveryDays:          ev.DeliveryDays,
		AddressLine:           ev.AddressLine,
		City:                  ev.City,
		Pincode:               ev.Pincode,
		Status:                subscription.StatusActive,
	}
	if ev.Phone != "" {
		sub.Phone = sql.NullString{String: ev.Phone, Valid: true}
	}
	if err := s.subs.CreateTx(ctx, tx, sub); err != nil {
		return nil, err
	}

	if ev.CouponCode != "" {
		if err := s.recordCouponUsage(ctx, tx, ev.CouponCode, ord, discount); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("payment reconciled",
		zap.String("gateway_order_id", ev.GatewayOrderID),
		zap.Int64("order_id", ord.ID),
		zap.Int64("subscription_id", sub.ID),
		zap.Int64("user_id", buyer.ID),
		zap.String("billing_frequency", ev.BillingFrequency),
	)
	return sub, nil
}

func (s *PaymentService) findOrCreateBuyer(ctx context.Context, tx pgx.Tx, ev *order.PaymentEvent) (*user.User, error) {
	buyer, err := s.users.FindByEmailTx(ctx, tx, ev.Email)
	if err == nil {
		return buyer, nil
	}
	if !errors.Is(err, xerrors.ErrNotFound) {
		return nil, err
	}

	// New buyer: account starts without a usable password; activation happens
	// later through the password-set flow.
	buyer = &user.User{
		Email:       ev.Email,
		FullName:    ev.FullName,
		PasswordSet: false,
		Role:        user.RoleCustomer,
		Status:      user.StatusActive,
	}
	if ev.Phone != "" {
		buyer.Phone = sql.NullString{String: ev.Phone, Valid: true}
	}
	if err := s.users.CreateTx(ctx, tx, buyer); err != nil {
		return nil, err
	}
	return buyer, nil
}

func (s *PaymentService) recordCouponUsage(ctx context.Context, tx pgx.Tx, code string, ord *order.Order, discount float64) error {
	c, err := s.coupons.FindByCodeTx(ctx, tx, code)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			// The coupon was deleted between checkout and capture. The payment
			// already happened, so keep the order and just log it.
			s.logger.Warn("coupon vanished before reconciliation", zap.String("code", code))
			return nil
		}
		return err
	}

	if err := s.coupons.IncrementUsesTx(ctx, tx, c.ID); err != nil {
		return err
	}
	return s.coupons.InsertUsageTx(ctx, tx, &coupon.CouponUsage{
		CouponID:    c.ID,
		OrderID:     ord.ID,
		UserID:      ord.UserID,
		AmountSaved: discount,
	})
}

func (s *PaymentService) findReconciled(ctx context.Context, gatewayOrderID string) (*subscription.Subscription, error) {
	existing, err := s.orders.FindByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		return nil, err
	}
	return s.subs.FindByOrderID(ctx, existing.ID)
}

func validateEvent(ev *order.PaymentEvent) error {
	switch {
	case ev.GatewayOrderID == "":
		return fmt.Errorf("%w: missing gateway order id", xerrors.ErrInvalidInput)
	case ev.Email == "":
		return fmt.Errorf("%w: missing buyer email", xerrors.ErrInvalidInput)
	case ev.MealPlanID == 0:
		return fmt.Errorf("%w: missing meal plan", xerrors.ErrInvalidInput)
	case ev.BillingFrequency != string(subscription.FrequencyWeekly) &&
		ev.BillingFrequency != string(subscription.FrequencyMonthly):
		return fmt.Errorf("%w: unknown billing frequency %q", xerrors.ErrInvalidInput, ev.BillingFrequency)
	}
	return nil
}

func noteString(notes map[string]interface{}, key string) string {
	if notes == nil {
		return ""
	}
	if v, ok := notes[key].(string); ok {
		return v
	}
	return ""
}
