// internal/domain/order/dto.go
package order

// PaymentEvent is a normalized completed-payment notification. Both the
// redirect callback and the asynchronous webhook produce one of these before
// calling reconciliation.
type PaymentEvent struct {
	GatewayOrderID   string  `json:"gateway_order_id"`
	GatewayPaymentID string  `json:"gateway_payment_id"`
	AmountPaid       float64 `json:"amount_paid"`
	Currency         string  `json:"currency"`

	// Buyer contact + delivery address
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	Phone       string `json:"phone"`
	AddressLine string `json:"address_line"`
	City        string `json:"city"`
	Pincode     string `json:"pincode"`

	// Target plan and billing
	MealPlanID       int64  `json:"meal_plan_id"`
	BillingFrequency string `json:"billing_frequency"`
	DeliveryDays     string `json:"delivery_days"`
	CouponCode       string `json:"coupon_code"`
}

type CheckoutRequest struct {
	MealPlanID       int64  `json:"meal_plan_id" binding:"required"`
	BillingFrequency string `json:"billing_frequency" binding:"required,oneof=weekly monthly"`
	Email            string `json:"email" binding:"required,email"`
	FullName         string `json:"full_name" binding:"required"`
	Phone            string `json:"phone"`
	AddressLine      string `json:"address_line" binding:"required"`
	City             string `json:"city" binding:"required"`
	Pincode          string `json:"pincode" binding:"required"`
	DeliveryDays     string `json:"delivery_days"`
	CouponCode       string `json:"coupon_code"`
}

// CheckoutSession is what the storefront needs to open the gateway's
// payment widget.
type CheckoutSession struct {
	GatewayOrderID string  `json:"gateway_order_id"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	GatewayKeyID   string  `json:"gateway_key_id"`
}
