// internal/domain/mealplan/entity.go
package mealplan

import (
	"database/sql"
	"time"
)

type PlanStatus string

const (
	StatusActive   PlanStatus = "active"
	StatusInactive PlanStatus = "inactive"
)

// MealPlan is a catalog entry. Pricing and composition flags are static from
// the scheduling core's perspective.
type MealPlan struct {
	ID          int64          `json:"id" db:"id"`
	Code        string         `json:"code" db:"code"`
	Name        string         `json:"name" db:"name"`
	Description sql.NullString `json:"description,omitempty" db:"description"`

	WeeklyPrice  float64 `json:"weekly_price" db:"weekly_price"`
	MonthlyPrice float64 `json:"monthly_price" db:"monthly_price"`
	Currency     string  `json:"currency" db:"currency"`

	// Dietary and meal composition flags
	IsVegetarian bool `json:"is_vegetarian" db:"is_vegetarian"`
	HasBreakfast bool `json:"has_breakfast" db:"has_breakfast"`
	HasLunch     bool `json:"has_lunch" db:"has_lunch"`
	HasDinner    bool `json:"has_dinner" db:"has_dinner"`

	Status   PlanStatus `json:"status" db:"status"`
	IsPublic bool       `json:"is_public" db:"is_public"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PriceFor returns the charge for one billing period of the given frequency.
func (p *MealPlan) PriceFor(frequency string) float64 {
	if frequency == "weekly" {
		return p.WeeklyPrice
	}
	return p.MonthlyPrice
}
