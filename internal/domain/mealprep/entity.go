// internal/domain/mealprep/entity.go
package mealprep

import "time"

// CustomerPrep is one customer line on the kitchen sheet.
type CustomerPrep struct {
	SubscriptionID int64  `json:"subscription_id"`
	CustomerName   string `json:"customer_name"`
	AddressLine    string `json:"address_line"`
	City           string `json:"city"`
	Pincode        string `json:"pincode"`
	IsVegetarian   bool   `json:"is_vegetarian"`
	HasBreakfast   bool   `json:"has_breakfast"`
	HasLunch       bool   `json:"has_lunch"`
	HasDinner      bool   `json:"has_dinner"`
}

// PlanPrep aggregates meal counts for one plan on one date.
type PlanPrep struct {
	MealPlanID     int64          `json:"meal_plan_id"`
	PlanName       string         `json:"plan_name"`
	VegCount       int            `json:"veg_count"`
	NonVegCount    int            `json:"nonveg_count"`
	BreakfastCount int            `json:"breakfast_count"`
	LunchCount     int            `json:"lunch_count"`
	DinnerCount    int            `json:"dinner_count"`
	TotalCount     int            `json:"total_count"`
	Customers      []CustomerPrep `json:"customers"`
}

// PrepReport is the full kitchen rollup for a date. Plans keeps first-seen
// subscription iteration order so repeated runs over the same inputs produce
// identical output.
type PrepReport struct {
	Date             string      `json:"date"`
	Plans            []*PlanPrep `json:"plans"`
	TotalMeals       int         `json:"total_meals"`
	SkippedBadData   int         `json:"skipped_bad_data"`
	GeneratedAt      time.Time   `json:"generated_at"`
	FromCache        bool        `json:"from_cache,omitempty"`
}

// ActiveSubscriptionDetail is the aggregator's input row: a subscription
// joined with its owner and plan.
type ActiveSubscriptionDetail struct {
	SubscriptionID int64
	UserID         int64
	CustomerName   string
	MealPlanID     int64
	PlanName       string
	PlanIsVeg      bool
	HasBreakfast   bool
	HasLunch       bool
	HasDinner      bool
	DeliveryDays   string
	VegDays        string
	AddressLine    string
	City           string
	Pincode        string
}
