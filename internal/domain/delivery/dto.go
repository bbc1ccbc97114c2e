// internal/domain/delivery/dto.go
package delivery

import "time"

// DeliveryDay is one slot in the upcoming-deliveries view.
type DeliveryDay struct {
	Date         time.Time `json:"date"`
	IsSkipped    bool      `json:"is_skipped"`
	CanSkip      bool      `json:"can_skip"`
	CutoffPassed bool      `json:"cutoff_passed"`
}

type SkipRequest struct {
	Date string `json:"date" binding:"required"` // YYYY-MM-DD
}

type UpdateStatusRequest struct {
	Status DeliveryStatus `json:"status" binding:"required"`
	Notes  string         `json:"notes"`
}

// StatusEvent is broadcast on the kitchen feed when a delivery changes state.
type StatusEvent struct {
	DeliveryID     int64          `json:"delivery_id"`
	SubscriptionID int64          `json:"subscription_id"`
	DeliveryDate   string         `json:"delivery_date"`
	Status         DeliveryStatus `json:"status"`
	OccurredAt     time.Time      `json:"occurred_at"`
}
