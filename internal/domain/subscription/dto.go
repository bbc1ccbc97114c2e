// internal/domain/subscription/dto.go
package subscription

type CancelRequest struct {
	Reason            string `json:"reason"`
	CancelImmediately bool   `json:"cancel_immediately"`
}

type UpdateDeliveryDaysRequest struct {
	DeliveryDays string  `json:"delivery_days" binding:"required"`
	VegDays      *string `json:"veg_days"`
}

type ListFilters struct {
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

type ListResponse struct {
	Subscriptions []Subscription `json:"subscriptions"`
	Total         int64          `json:"total"`
	Page          int            `json:"page"`
	PageSize      int            `json:"page_size"`
	TotalPages    int            `json:"total_pages"`
}

// MaintenanceResult is returned by the expiry sweep.
type MaintenanceResult struct {
	ExpiredCount      int `json:"expired_count"`
	ExpiringSoonCount int `json:"expiring_soon_count"`
}
