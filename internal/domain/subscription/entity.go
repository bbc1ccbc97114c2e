// internal/domain/subscription/entity.go
package subscription

import (
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

type SubscriptionStatus string
type BillingFrequency string

const (
	StatusActive    SubscriptionStatus = "active"
	StatusPaused    SubscriptionStatus = "paused"
	StatusCancelled SubscriptionStatus = "cancelled"
	StatusExpired   SubscriptionStatus = "expired"

	FrequencyWeekly  BillingFrequency = "weekly"
	FrequencyMonthly BillingFrequency = "monthly"
)

// Delivery weekday indices run 0=Monday .. 6=Sunday.
var DefaultDeliveryDays = []int{0, 1, 2, 3, 4}

type Subscription struct {
	ID                    int64  `json:"id" db:"id"`
	SubscriptionReference string `json:"subscription_reference" db:"subscription_reference"`

	// Related entities
	UserID     int64         `json:"user_id" db:"user_id"`
	MealPlanID int64         `json:"meal_plan_id" db:"meal_plan_id"`
	OrderID    sql.NullInt64 `json:"order_id,omitempty" db:"order_id"`

	// Billing period
	BillingFrequency   BillingFrequency `json:"billing_frequency" db:"billing_frequency"`
	CurrentPeriodStart time.Time        `json:"current_period_start" db:"current_period_start"`
	CurrentPeriodEnd   time.Time        `json:"current_period_end" db:"current_period_end"`
	RenewalCount       int              `json:"renewal_count" db:"renewal_count"`

	// Delivery schedule. DeliveryDays is a comma-separated weekday list
	// ("0,2,4"); empty means weekdays. VegDays optionally overrides the plan's
	// vegetarian flag on the listed weekdays.
	DeliveryDays string         `json:"delivery_days" db:"delivery_days"`
	VegDays      sql.NullString `json:"veg_days,omitempty" db:"veg_days"`

	// Delivery address snapshot taken at checkout
	AddressLine string         `json:"address_line" db:"address_line"`
	City        string         `json:"city" db:"city"`
	Pincode     string         `json:"pincode" db:"pincode"`
	Phone       sql.NullString `json:"phone,omitempty" db:"phone"`

	// Status
	Status             SubscriptionStatus `json:"status" db:"status"`
	CancelAtPeriodEnd  bool               `json:"cancel_at_period_end" db:"cancel_at_period_end"`
	PausedAt           sql.NullTime       `json:"paused_at,omitempty" db:"paused_at"`
	CancelledAt        sql.NullTime       `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CancellationReason sql.NullString     `json:"cancellation_reason,omitempty" db:"cancellation_reason"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PeriodLength returns the fixed billing span for a frequency: 7 days for
// weekly, 30 for monthly.
func (f BillingFrequency) PeriodLength() time.Duration {
	if f == FrequencyWeekly {
		return 7 * 24 * time.Hour
	}
	return 30 * 24 * time.Hour
}

// ParseDeliveryDays parses a comma-separated weekday list. An empty string
// falls back to DefaultDeliveryDays. Out-of-range or non-numeric entries are
// an error so corrupt rows can be reported rather than silently dropped.
func ParseDeliveryDays(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		days := make([]int, len(DefaultDeliveryDays))
		copy(days, DefaultDeliveryDays)
		return days, nil
	}

	seen := make(map[int]bool)
	var days []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid delivery day %q", part)
		}
		if d < 0 || d > 6 {
			return nil, fmt.Errorf("delivery day %d out of range", d)
		}
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	if len(days) == 0 {
		days = make([]int, len(DefaultDeliveryDays))
		copy(days, DefaultDeliveryDays)
		return days, nil
	}
	sort.Ints(days)
	return days, nil
}

// WeekdayIndex maps time.Weekday to the 0=Monday .. 6=Sunday convention used
// in delivery_days.
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

type SubscriptionStats struct {
	TotalSubscriptions     int64 `json:"total_subscriptions"`
	ActiveSubscriptions    int64 `json:"active_subscriptions"`
	PausedSubscriptions    int64 `json:"paused_subscriptions"`
	CancelledSubscriptions int64 `json:"cancelled_subscriptions"`
	ExpiredSubscriptions   int64 `json:"expired_subscriptions"`
}
