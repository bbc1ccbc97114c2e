// internal/domain/order/entity.go
package order

import (
	"database/sql"
	"time"
)

type OrderStatus string
type PaymentStatus string
type OrderPurpose string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"

	PaymentPending  PaymentStatus = "pending"
	PaymentCaptured PaymentStatus = "captured"
	PaymentFailed   PaymentStatus = "failed"

	PurposeNewSubscription OrderPurpose = "new_subscription"
	PurposeRenewal         OrderPurpose = "renewal"
)

// Order is one payment transaction. GatewayOrderID carries a unique
// constraint and acts as the reconciliation idempotency key.
type Order struct {
	ID             int64 `json:"id" db:"id"`
	OrderReference string `json:"order_reference" db:"order_reference"`

	UserID     int64 `json:"user_id" db:"user_id"`
	MealPlanID int64 `json:"meal_plan_id" db:"meal_plan_id"`

	Amount          float64 `json:"amount" db:"amount"`
	DiscountApplied float64 `json:"discount_applied" db:"discount_applied"`
	Currency        string  `json:"currency" db:"currency"`

	GatewayOrderID   string         `json:"gateway_order_id" db:"gateway_order_id"`
	GatewayPaymentID sql.NullString `json:"gateway_payment_id,omitempty" db:"gateway_payment_id"`

	Purpose       OrderPurpose  `json:"purpose" db:"purpose"`
	Status        OrderStatus   `json:"status" db:"status"`
	PaymentStatus PaymentStatus `json:"payment_status" db:"payment_status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
