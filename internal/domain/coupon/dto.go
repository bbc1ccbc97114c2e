// internal/domain/coupon/dto.go
package coupon

type CreateCouponRequest struct {
	Code              string   `json:"code" binding:"required"`
	Description       string   `json:"description"`
	DiscountType      string   `json:"discount_type" binding:"required,oneof=percentage fixed_amount"`
	DiscountValue     float64  `json:"discount_value" binding:"required,gt=0"`
	MaxDiscountAmount *float64 `json:"max_discount_amount"`
	ApplicablePlans   []int64  `json:"applicable_plans"`
	MaxUses           *int32   `json:"max_uses"`
	ValidFrom         string   `json:"valid_from" binding:"required"`  // YYYY-MM-DD
	ValidUntil        string   `json:"valid_until" binding:"required"` // YYYY-MM-DD
}

type ValidateCouponRequest struct {
	Code       string `json:"code" binding:"required"`
	MealPlanID int64  `json:"meal_plan_id" binding:"required"`
	Frequency  string `json:"frequency" binding:"required,oneof=weekly monthly"`
}

type ValidateCouponResponse struct {
	Valid       bool    `json:"valid"`
	Discount    float64 `json:"discount"`
	FinalAmount float64 `json:"final_amount"`
	Reason      string  `json:"reason,omitempty"`
}
