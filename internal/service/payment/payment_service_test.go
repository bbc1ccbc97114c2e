package payment

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"mealbox-service/internal/domain/coupon"
	"mealbox-service/internal/domain/mealplan"
	"mealbox-service/internal/domain/order"
	"mealbox-service/internal/domain/subscription"
	"mealbox-service/internal/domain/user"
	gateway "mealbox-service/internal/gateway/razorpay"
	xerrors "mealbox-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockOrderStore struct {
	findByGatewayID func(ctx context.Context, id string) (*order.Order, error)
	createTx        func(ctx context.Context, tx pgx.Tx, o *order.Order) error
}

func (m *mockOrderStore) FindByGatewayOrderID(ctx context.Context, id string) (*order.Order, error) {
	return m.findByGatewayID(ctx, id)
}

func (m *mockOrderStore) CreateTx(ctx context.Context, tx pgx.Tx, o *order.Order) error {
	return m.createTx(ctx, tx, o)
}

type mockSubscriptionStore struct {
	createTx      func(ctx context.Context, tx pgx.Tx, s *subscription.Subscription) error
	findByOrderID func(ctx context.Context, orderID int64) (*subscription.Subscription, error)
}

func (m *mockSubscriptionStore) CreateTx(ctx context.Context, tx pgx.Tx, s *subscription.Subscription) error {
	return m.createTx(ctx, tx, s)
}

func (m *mockSubscriptionStore) FindByOrderID(ctx context.Context, orderID int64) (*subscription.Subscription, error) {
	return m.findByOrderID(ctx, orderID)
}

type mockUserStore struct {
	findByEmailTx func(ctx context.Context, tx pgx.Tx, email string) (*user.User, error)
	createTx      func(ctx context.Context, tx pgx.Tx, u *user.User) error
}

func (m *mockUserStore) FindByEmailTx(ctx context.Context, tx pgx.Tx, email string) (*user.User, error) {
	return m.findByEmailTx(ctx, tx, email)
}

func (m *mockUserStore) CreateTx(ctx context.Context, tx pgx.Tx, u *user.User) error {
	return m.createTx(ctx, tx, u)
}

type mockCouponStore struct {
	findByCode   func(ctx context.Context, code string) (*coupon.Coupon, error)
	findByCodeTx func(ctx context.Context, tx pgx.Tx, code string) (*coupon.Coupon, error)
	incrementTx  func(ctx context.Context, tx pgx.Tx, id int64) error
	insertUsage  func(ctx context.Context, tx pgx.Tx, u *coupon.CouponUsage) error
}

func (m *mockCouponStore) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	return m.findByCode(ctx, code)
}

func (m *mockCouponStore) FindByCodeTx(ctx context.Context, tx pgx.Tx, code string) (*coupon.Coupon, error) {
	return m.findByCodeTx(ctx, tx, code)
}

func (m *mockCouponStore) IncrementUsesTx(ctx context.Context, tx pgx.Tx, id int64) error {
	return m.incrementTx(ctx, tx, id)
}

func (m *mockCouponStore) InsertUsageTx(ctx context.Context, tx pgx.Tx, u *coupon.CouponUsage) error {
	return m.insertUsage(ctx, tx, u)
}

type mockPlanStore struct {
	findByID func(ctx context.Context, id int64) (*mealplan.MealPlan, error)
}

func (m *mockPlanStore) FindByID(ctx context.Context, id int64) (*mealplan.MealPlan, error) {
	return m.findByID(ctx, id)
}

type mockGateway struct {
	createOrder   func(ctx context.Context, amount int64, currency, receipt string, notes map[string]interface{}) (*gateway.CheckoutOrder, error)
	fetchOrder    func(ctx context.Context, id string) (*gateway.CheckoutOrder, error)
	verifyWebhook bool
	verifySig     bool
}

func (m *mockGateway) KeyID() string { return "rzp_test_key" }

func (m *mockGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]interface{}) (*gateway.CheckoutOrder, error) {
	return m.createOrder(ctx, amount, currency, receipt, notes)
}

func (m *mockGateway) FetchOrder(ctx context.Context, id string) (*gateway.CheckoutOrder, error) {
	return m.fetchOrder(ctx, id)
}

func (m *mockGateway) VerifyWebhookSignature(body []byte, signature string) bool { return m.verifyWebhook }

func (m *mockGateway) VerifyCheckoutSignature(orderID, paymentID, signature string) bool {
	return m.verifySig
}

type fakeTx struct {
	pgx.Tx
	commits   int
	rollbacks int
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.commits++
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.rollbacks++
	return nil
}

type fakeTxBeginner struct {
	tx     *fakeTx
	begins int
}

func (f *fakeTxBeginner) BeginTx(ctx context.Context) (pgx.Tx, error) {
	f.begins++
	return f.tx, nil
}

var fixedNow = time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)

func testPlan() *mealplan.MealPlan {
	return &mealplan.MealPlan{
		ID:           10,
		Code:         "veg-classic",
		Name:         "Veg Classic",
		WeeklyPrice:  700,
		MonthlyPrice: 2600,
		Currency:     "INR",
		Status:       mealplan.StatusActive,
		IsPublic:     true,
	}
}

func testEvent() *order.PaymentEvent {
	return &order.PaymentEvent{
		GatewayOrderID:   "order_abc123",
		GatewayPaymentID: "pay_xyz789",
		AmountPaid:       700,
		Currency:         "INR",
		Email:            "buyer@example.com",
		FullName:         "New Buyer",
		AddressLine:      "12 Lake Road",
		City:             "Pune",
		Pincode:          "411001",
		MealPlanID:       10,
		BillingFrequency: "weekly",
		DeliveryDays:     "0,2,4",
	}
}

type reconcileFixture struct {
	orders  *mockOrderStore
	subs    *mockSubscriptionStore
	users   *mockUserStore
	coupons *mockCouponStore
	plans   *mockPlanStore
	txb     *fakeTxBeginner
	svc     *PaymentService
}

func newReconcileFixture() *reconcileFixture {
	f := &reconcileFixture{
		orders: &mockOrderStore{
			findByGatewayID: func(ctx context.Context, id string) (*order.Order, error) {
				return nil, xerrors.ErrNotFound
			},
			createTx: func(ctx context.Context, tx pgx.Tx, o *order.Order) error {
				o.ID = 100
				return nil
			},
		},
		subs: &mockSubscriptionStore{
			createTx: func(ctx context.Context, tx pgx.Tx, s *subscription.Subscription) error {
				s.ID = 200
				return nil
			},
			findByOrderID: func(ctx context.Context, orderID int64) (*subscription.Subscription, error) {
				return nil, xerrors.ErrNotFound
			},
		},
		users: &mockUserStore{
			findByEmailTx: func(ctx context.Context, tx pgx.Tx, email string) (*user.User, error) {
				return nil, xerrors.ErrNotFound
			},
			createTx: func(ctx context.Context, tx pgx.Tx, u *user.User) error {
				u.ID = 50
				return nil
			},
		},
		coupons: &mockCouponStore{},
		plans: &mockPlanStore{
			findByID: func(ctx context.Context, id int64) (*mealplan.MealPlan, error) {
				return testPlan(), nil
			},
		},
		txb: &fakeTxBeginner{tx: &fakeTx{}},
	}
	f.svc = NewPaymentService(f.orders, f.subs, f.users, f.coupons, f.plans, &mockGateway{}, f.txb, zap.NewNop())
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func TestReconcileCreatesOrderAndSubscription(t *testing.T) {
	f := newReconcileFixture()

	var createdOrder *order.Order
	f.orders.createTx = func(ctx context.Context, tx pgx.Tx, o *order.Order) error {
		o.ID = 100
		createdOrder = o
		return nil
	}
	var createdUser *user.User
	f.users.createTx = func(ctx context.Context, tx pgx.Tx, u *user.User) error {
		u.ID = 50
		createdUser = u
		return nil
	}

	sub, err := f.svc.Reconcile(context.Background(), testEvent())
	require.NoError(t, err)

	require.NotNil(t, createdOrder)
	assert.Equal(t, "order_abc123", createdOrder.GatewayOrderID)
	assert.Equal(t, order.PurposeNewSubscription, createdOrder.Purpose)
	assert.Equal(t, order.PaymentCaptured, createdOrder.PaymentStatus)
	assert.Equal(t, int64(50), createdOrder.UserID)

	require.NotNil(t, createdUser)
	assert.False(t, createdUser.PasswordSet)
	assert.Equal(t, user.RoleCustomer, createdUser.Role)

	require.NotNil(t, sub)
	assert.Equal(t, subscription.StatusActive, sub.Status)
	assert.Equal(t, fixedNow, sub.CurrentPeriodStart)
	assert.Equal(t, fixedNow.AddDate(0, 0, 7), sub.CurrentPeriodEnd)
	assert.Equal(t, "0,2,4", sub.DeliveryDays)
	assert.Equal(t, int64(100), sub.OrderID.Int64)

	assert.Equal(t, 1, f.txb.tx.commits)
}

func TestReconcileMonthlyPeriod(t *testing.T) {
	f := newReconcileFixture()

	ev := testEvent()
	ev.BillingFrequency = "monthly"
	ev.AmountPaid = 2600

	sub, err := f.svc.Reconcile(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, fixedNow.AddDate(0, 0, 30), sub.CurrentPeriodEnd)
}

func TestReconcileIsIdempotent(t *testing.T) {
	f := newReconcileFixture()

	existing := &subscription.Subscription{ID: 200, Status: subscription.StatusActive}
	f.orders.findByGatewayID = func(ctx context.Context, id string) (*order.Order, error) {
		return &order.Order{ID: 100, GatewayOrderID: id}, nil
	}
	f.subs.findByOrderID = func(ctx context.Context, orderID int64) (*subscription.Subscription, error) {
		assert.Equal(t, int64(100), orderID)
		return existing, nil
	}

	sub, err := f.svc.Reconcile(context.Background(), testEvent())
	require.NoError(t, err)

	// Replay returns the original subscription and opens no transaction.
	assert.Same(t, existing, sub)
	assert.Equal(t, 0, f.txb.begins)
}

func TestReconcileConcurrentDuplicateRefetches(t *testing.T) {
	f := newReconcileFixture()

	// The initial lookup misses but the insert loses the unique-constraint
	// race against the other completion channel.
	lookups := 0
	existing := &subscription.Subscription{ID: 200}
	f.orders.findByGatewayID = func(ctx context.Context, id string) (*order.Order, error) {
		lookups++
		if lookups == 1 {
			return nil, xerrors.ErrNotFound
		}
		return &order.Order{ID: 100}, nil
	}
	f.orders.createTx = func(ctx context.Context, tx pgx.Tx, o *order.Order) error {
		return &pgconn.PgError{Code: "23505", ConstraintName: "orders_gateway_order_id_key"}
	}
	f.subs.findByOrderID = func(ctx context.Context, orderID int64) (*subscription.Subscription, error) {
		return existing, nil
	}

	sub, err := f.svc.Reconcile(context.Background(), testEvent())
	require.NoError(t, err)

	assert.Same(t, existing, sub)
	assert.Equal(t, 0, f.txb.tx.commits)
	assert.GreaterOrEqual(t, f.txb.tx.rollbacks, 1)
}

func TestReconcileReusesExistingUser(t *testing.T) {
	f := newReconcileFixture()

	created := false
	f.users.findByEmailTx = func(ctx context.Context, tx pgx.Tx, email string) (*user.User, error) {
		return &user.User{ID: 77, Email: email, PasswordSet: true}, nil
	}
	f.users.createTx = func(ctx context.Context, tx pgx.Tx, u *user.User) error {
		created = true
		return nil
	}

	sub, err := f.svc.Reconcile(context.Background(), testEvent())
	require.NoError(t, err)

	assert.False(t, created)
	assert.Equal(t, int64(77), sub.UserID)
}

func TestReconcileRecordsCouponUsageOnce(t *testing.T) {
	f := newReconcileFixture()

	increments := 0
	var usage *coupon.CouponUsage
	f.coupons.findByCodeTx = func(ctx context.Context, tx pgx.Tx, code string) (*coupon.Coupon, error) {
		assert.Equal(t, "SAVE100", code)
		return &coupon.Coupon{ID: 5, Code: code}, nil
	}
	f.coupons.incrementTx = func(ctx context.Context, tx pgx.Tx, id int64) error {
		increments++
		return nil
	}
	f.coupons.insertUsage = func(ctx context.Context, tx pgx.Tx, u *coupon.CouponUsage) error {
		usage = u
		return nil
	}

	ev := testEvent()
	ev.CouponCode = "SAVE100"
	ev.AmountPaid = 600 // 700 plan price minus 100 discount

	_, err := f.svc.Reconcile(context.Background(), ev)
	require.NoError(t, err)

	assert.Equal(t, 1, increments)
	require.NotNil(t, usage)
	assert.Equal(t, int64(5), usage.CouponID)
	assert.Equal(t, int64(100), usage.OrderID)
	assert.Equal(t, 100.0, usage.AmountSaved)
}

func TestReconcileValidation(t *testing.T) {
	f := newReconcileFixture()

	tests := []struct {
		name   string
		mutate func(ev *order.PaymentEvent)
	}{
		{"missing gateway order id", func(ev *order.PaymentEvent) { ev.GatewayOrderID = "" }},
		{"missing email", func(ev *order.PaymentEvent) { ev.Email = "" }},
		{"missing plan", func(ev *order.PaymentEvent) { ev.MealPlanID = 0 }},
		{"unknown frequency", func(ev *order.PaymentEvent) { ev.BillingFrequency = "daily" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := testEvent()
			tt.mutate(ev)
			_, err := f.svc.Reconcile(context.Background(), ev)
			assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
		})
	}
	assert.Equal(t, 0, f.txb.begins)
}

func TestReconcileSubscriptionFailureAborts(t *testing.T) {
	f := newReconcileFixture()

	f.subs.createTx = func(ctx context.Context, tx pgx.Tx, s *subscription.Subscription) error {
		return assert.AnError
	}

	_, err := f.svc.Reconcile(context.Background(), testEvent())
	require.Error(t, err)

	// Nothing commits; the deferred rollback undoes the user and order.
	assert.Equal(t, 0, f.txb.tx.commits)
	assert.GreaterOrEqual(t, f.txb.tx.rollbacks, 1)
}

func TestCreateCheckout(t *testing.T) {
	f := newReconcileFixture()

	var gotNotes map[string]interface{}
	var gotAmount int64
	gw := &mockGateway{
		createOrder: func(ctx context.Context, amount int64, currency, receipt string, notes map[string]interface{}) (*gateway.CheckoutOrder, error) {
			gotAmount = amount
			gotNotes = notes
			return &gateway.CheckoutOrder{ID: "order_new1", Amount: amount, Currency: currency, Status: "created"}, nil
		},
	}
	svc := NewPaymentService(f.orders, f.subs, f.users, f.coupons, f.plans, gw, f.txb, zap.NewNop())
	svc.now = func() time.Time { return fixedNow }

	req := &order.CheckoutRequest{
		MealPlanID:       10,
		BillingFrequency: "weekly",
		Email:            "buyer@example.com",
		FullName:         "New Buyer",
		AddressLine:      "12 Lake Road",
		City:             "Pune",
		Pincode:          "411001",
		DeliveryDays:     "0,2,4",
	}
	session, err := svc.CreateCheckout(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "order_new1", session.GatewayOrderID)
	assert.Equal(t, 700.0, session.Amount)
	assert.Equal(t, "rzp_test_key", session.GatewayKeyID)
	assert.Equal(t, int64(70000), gotAmount) // paise
	assert.Equal(t, "buyer@example.com", gotNotes["email"])
	assert.Equal(t, "10", gotNotes["meal_plan_id"])
	assert.Equal(t, "weekly", gotNotes["billing_frequency"])
}

func TestCreateCheckoutRejectsHiddenPlan(t *testing.T) {
	f := newReconcileFixture()
	f.plans.findByID = func(ctx context.Context, id int64) (*mealplan.MealPlan, error) {
		p := testPlan()
		p.IsPublic = false
		return p, nil
	}

	_, err := f.svc.CreateCheckout(context.Background(), &order.CheckoutRequest{
		MealPlanID:       10,
		BillingFrequency: "weekly",
		Email:            "buyer@example.com",
	})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestHandleWebhook(t *testing.T) {
	f := newReconcileFixture()

	gw := &mockGateway{
		verifyWebhook: true,
		fetchOrder: func(ctx context.Context, id string) (*gateway.CheckoutOrder, error) {
			return &gateway.CheckoutOrder{
				ID:       id,
				Amount:   70000,
				Currency: "INR",
				Status:   "paid",
				Notes: map[string]interface{}{
					"email":             "buyer@example.com",
					"full_name":         "New Buyer",
					"address_line":      "12 Lake Road",
					"city":              "Pune",
					"pincode":           "411001",
					"meal_plan_id":      "10",
					"billing_frequency": "weekly",
					"delivery_days":     "0,2,4",
				},
			}, nil
		},
	}
	svc := NewPaymentService(f.orders, f.subs, f.users, f.coupons, f.plans, gw, f.txb, zap.NewNop())
	svc.now = func() time.Time { return fixedNow }

	body, err := json.Marshal(map[string]interface{}{
		"event": "payment.captured",
		"payload": map[string]interface{}{
			"payment": map[string]interface{}{
				"entity": map[string]interface{}{
					"id":       "pay_xyz789",
					"order_id": "order_abc123",
					"status":   "captured",
				},
			},
		},
	})
	require.NoError(t, err)

	require.NoError(t, svc.HandleWebhook(context.Background(), body, "sig"))
	assert.Equal(t, 1, f.txb.tx.commits)
}

func TestHandleWebhookRejectsBadSignature(t *testing.T) {
	f := newReconcileFixture()
	svc := NewPaymentService(f.orders, f.subs, f.users, f.coupons, f.plans, &mockGateway{verifyWebhook: false}, f.txb, zap.NewNop())

	err := svc.HandleWebhook(context.Background(), []byte(`{}`), "bad")
	assert.ErrorIs(t, err, xerrors.ErrUnauthorized)
}

func TestHandleWebhookIgnoresOtherEvents(t *testing.T) {
	f := newReconcileFixture()
	svc := NewPaymentService(f.orders, f.subs, f.users, f.coupons, f.plans, &mockGateway{verifyWebhook: true}, f.txb, zap.NewNop())

	body := []byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1"}}}}`)
	require.NoError(t, svc.HandleWebhook(context.Background(), body, "sig"))
	assert.Equal(t, 0, f.txb.begins)
}
