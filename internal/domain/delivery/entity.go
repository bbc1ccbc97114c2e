// internal/domain/delivery/entity.go
package delivery

import (
	"database/sql"
	"time"
)

type DeliveryStatus string

const (
	StatusPending        DeliveryStatus = "pending"
	StatusPreparing      DeliveryStatus = "preparing"
	StatusPacked         DeliveryStatus = "packed"
	StatusOutForDelivery DeliveryStatus = "out_for_delivery"
	StatusDelivered      DeliveryStatus = "delivered"
	StatusDelayed        DeliveryStatus = "delayed"
	StatusCancelled      DeliveryStatus = "cancelled"
)

// allowedTransitions encodes the delivery state machine. Delayed deliveries
// can re-enter the normal flow; delivered and cancelled are terminal.
var allowedTransitions = map[DeliveryStatus][]DeliveryStatus{
	StatusPending:        {StatusPreparing, StatusDelayed, StatusCancelled},
	StatusPreparing:      {StatusPacked, StatusDelayed, StatusCancelled},
	StatusPacked:         {StatusOutForDelivery, StatusDelayed, StatusCancelled},
	StatusOutForDelivery: {StatusDelivered, StatusDelayed, StatusCancelled},
	StatusDelayed:        {StatusPreparing, StatusPacked, StatusOutForDelivery, StatusDelivered, StatusCancelled},
}

// CanTransition reports whether moving from one status to another is allowed.
func CanTransition(from, to DeliveryStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Delivery is a materialized (subscription, date) record. Rows are created
// lazily when a date is actually scheduled for preparation.
type Delivery struct {
	ID             int64          `json:"id" db:"id"`
	SubscriptionID int64          `json:"subscription_id" db:"subscription_id"`
	DeliveryDate   time.Time      `json:"delivery_date" db:"delivery_date"`
	Status         DeliveryStatus `json:"status" db:"status"`
	Notes          sql.NullString `json:"notes,omitempty" db:"notes"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}

// SkippedDelivery records "no delivery on this date for this subscription".
// At most one row exists per (subscription_id, delivery_date).
type SkippedDelivery struct {
	ID             int64     `json:"id" db:"id"`
	SubscriptionID int64     `json:"subscription_id" db:"subscription_id"`
	DeliveryDate   time.Time `json:"delivery_date" db:"delivery_date"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
