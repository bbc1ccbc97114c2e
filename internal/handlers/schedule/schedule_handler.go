// internal/handlers/schedule/schedule_handler.go
package schedule

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"mealbox-service/internal/domain/delivery"
	"mealbox-service/internal/domain/subscription"
	"mealbox-service/internal/middleware"
	xerrors "mealbox-service/internal/pkg/errors"
	"mealbox-service/internal/pkg/response"
	schedulesvc "mealbox-service/internal/service/schedule"
	subscriptionsvc "mealbox-service/internal/service/subscription"

	"github.com/gin-gonic/gin"
)

const defaultWindowDays = 14

// ScheduleHandler serves the upcoming-deliveries view and the skip/unskip
// endpoints. All routes are keyed by subscription and ownership-checked.
type ScheduleHandler struct {
	scheduleService     *schedulesvc.ScheduleService
	subscriptionService *subscriptionsvc.SubscriptionService
	windowDays          int
}

func NewScheduleHandler(scheduleService *schedulesvc.ScheduleService, subscriptionService *subscriptionsvc.SubscriptionService, windowDays int) *ScheduleHandler {
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}
	return &ScheduleHandler{
		scheduleService:     scheduleService,
		subscriptionService: subscriptionService,
		windowDays:          windowDays,
	}
}

// Upcoming lists delivery dates in the lookahead window.
func (h *ScheduleHandler) Upcoming(c *gin.Context) {
	sub, ok := h.ownedSubscription(c)
	if !ok {
		return
	}

	days := h.windowDays
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 60 {
			response.Error(c, http.StatusBadRequest, "days must be between 1 and 60", err)
			return
		}
		days = parsed
	}

	deliveries, err := h.scheduleService.UpcomingDeliveries(c.Request.Context(), sub, days)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to compute delivery schedule", err)
		return
	}
	response.Success(c, http.StatusOK, "upcoming deliveries retrieved", deliveries)
}

// Skip marks a delivery date skipped.
func (h *ScheduleHandler) Skip(c *gin.Context) {
	sub, ok := h.ownedSubscription(c)
	if !ok {
		return
	}
	date, ok := bindDate(c)
	if !ok {
		return
	}

	if err := h.scheduleService.Skip(c.Request.Context(), sub.ID, date); err != nil {
		handleSkipError(c, err, "failed to skip delivery")
		return
	}
	response.Success(c, http.StatusOK, "delivery skipped", nil)
}

// Unskip restores a previously skipped delivery date.
func (h *ScheduleHandler) Unskip(c *gin.Context) {
	sub, ok := h.ownedSubscription(c)
	if !ok {
		return
	}
	date, ok := bindDate(c)
	if !ok {
		return
	}

	if err := h.scheduleService.Unskip(c.Request.Context(), sub.ID, date); err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "delivery date is not skipped")
			return
		}
		handleSkipError(c, err, "failed to restore delivery")
		return
	}
	response.Success(c, http.StatusOK, "delivery restored", nil)
}

func handleSkipError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, xerrors.ErrCutoffPassed):
		response.Conflict(c, "same-day changes are closed for today", err)
	case errors.Is(err, xerrors.ErrInvalidInput):
		response.ValidationError(c, "invalid delivery date", err)
	default:
		response.Error(c, http.StatusInternalServerError, fallback, err)
	}
}

func bindDate(c *gin.Context) (time.Time, bool) {
	var req delivery.SkipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return time.Time{}, false
	}

	date, err := time.ParseInLocation("2006-01-02", req.Date, time.Local)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "date must be YYYY-MM-DD", err)
		return time.Time{}, false
	}
	return date, true
}

func (h *ScheduleHandler) ownedSubscription(c *gin.Context) (*subscription.Subscription, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid subscription ID", err)
		return nil, false
	}

	var sub *subscription.Subscription
	if middleware.IsAdmin(c) {
		sub, err = h.subscriptionService.GetByID(c.Request.Context(), id)
	} else {
		sub, err = h.subscriptionService.GetOwned(c.Request.Context(), id, middleware.MustGetIdentityID(c))
	}
	if err != nil {
		if errors.Is(err, xerrors.ErrForbidden) {
			response.Forbidden(c, "subscription does not belong to you")
			return nil, false
		}
		response.NotFound(c, "subscription not found")
		return nil, false
	}
	return sub, true
}
