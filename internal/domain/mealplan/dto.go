// internal/domain/mealplan/dto.go
package mealplan

type CreatePlanRequest struct {
	Code         string  `json:"code" binding:"required"`
	Name         string  `json:"name" binding:"required"`
	Description  string  `json:"description"`
	WeeklyPrice  float64 `json:"weekly_price" binding:"required,gt=0"`
	MonthlyPrice float64 `json:"monthly_price" binding:"required,gt=0"`
	Currency     string  `json:"currency"`
	IsVegetarian bool    `json:"is_vegetarian"`
	HasBreakfast bool    `json:"has_breakfast"`
	HasLunch     bool    `json:"has_lunch"`
	HasDinner    bool    `json:"has_dinner"`
	IsPublic     *bool   `json:"is_public"`
}

type UpdatePlanRequest struct {
	Name         *string  `json:"name"`
	Description  *string  `json:"description"`
	WeeklyPrice  *float64 `json:"weekly_price"`
	MonthlyPrice *float64 `json:"monthly_price"`
	IsVegetarian *bool    `json:"is_vegetarian"`
	HasBreakfast *bool    `json:"has_breakfast"`
	HasLunch     *bool    `json:"has_lunch"`
	HasDinner    *bool    `json:"has_dinner"`
	IsPublic     *bool    `json:"is_public"`
}
