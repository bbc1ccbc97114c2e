package delivery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from DeliveryStatus
		to   DeliveryStatus
		want bool
	}{
		{"pending to preparing", StatusPending, StatusPreparing, true},
		{"preparing to packed", StatusPreparing, StatusPacked, true},
		{"packed to out for delivery", StatusPacked, StatusOutForDelivery, true},
		{"out for delivery to delivered", StatusOutForDelivery, StatusDelivered, true},
		{"any stage can be delayed", StatusPacked, StatusDelayed, true},
		{"delayed re-enters flow", StatusDelayed, StatusOutForDelivery, true},
		{"pending can be cancelled", StatusPending, StatusCancelled, true},
		{"no skipping stages", StatusPending, StatusPacked, false},
		{"no going backwards", StatusPacked, StatusPreparing, false},
		{"delivered is terminal", StatusDelivered, StatusPending, false},
		{"cancelled is terminal", StatusCancelled, StatusPreparing, false},
		{"no self transition", StatusPending, StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}
