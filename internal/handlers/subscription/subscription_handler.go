// internal/handlers/subscription/subscription_handler.go
package subscription

import (
	"errors"
	"net/http"
	"strconv"

	"mealbox-service/internal/domain/subscription"
	"mealbox-service/internal/middleware"
	xerrors "mealbox-service/internal/pkg/errors"
	"mealbox-service/internal/pkg/response"
	service "mealbox-service/internal/service/subscription"

	"github.com/gin-gonic/gin"
)

type SubscriptionHandler struct {
	subscriptionService *service.SubscriptionService
}

func NewSubscriptionHandler(subscriptionService *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptionService: subscriptionService}
}

// List returns the caller's subscriptions.
func (h *SubscriptionHandler) List(c *gin.Context) {
	userID := middleware.MustGetIdentityID(c)

	var filters subscription.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid filters", err)
		return
	}

	result, err := h.subscriptionService.ListByUser(c.Request.Context(), userID, &filters)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list subscriptions", err)
		return
	}
	response.Success(c, http.StatusOK, "subscriptions retrieved", result)
}

func (h *SubscriptionHandler) Get(c *gin.Context) {
	sub, ok := h.ownedSubscription(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, "subscription retrieved", sub)
}

func (h *SubscriptionHandler) Pause(c *gin.Context) {
	sub, ok := h.ownedSubscription(c)
	if !ok {
		return
	}

	result, err := h.subscriptionService.Pause(c.Request.Context(), sub.ID)
	if err != nil {
		switch {
		case errors.Is(err, xerrors.ErrAlreadyPaused):
			response.Conflict(c, "subscription is already paused", err)
		case errors.Is(err, xerrors.ErrNotActive):
			response.Conflict(c, "only an active subscription can be paused", err)
		default:
			response.Error(c, http.StatusInternalServerError, "failed to pause subscription", err)
		}
		return
	}
	response.Success(c, http.StatusOK, "subscription paused", result)
}

func (h *SubscriptionHandler) Resume(c *gin.Context) {
	sub, ok := h.ownedSubscription(c)
	if !ok {
		return
	}

	result, err := h.subscriptionService.Resume(c.Request.Context(), sub.ID)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotPaused) {
			response.Conflict(c, "subscription is not paused", err)
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to resume subscription", err)
		return
	}
	response.Success(c, http.StatusOK, "subscription resumed", result)
}

func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	sub, ok := h.ownedSubscription(c)
	if !ok {
		return
	}

	var req subscription.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.subscriptionService.Cancel(c.Request.Context(), sub.ID, &req)
	if err != nil {
		switch {
		case errors.Is(err, xerrors.ErrAlreadyEnded):
			response.Conflict(c, "subscription is already ended", err)
		case errors.Is(err, xerrors.ErrConflict):
			response.Conflict(c, "cancellation already scheduled", err)
		default:
			response.Error(c, http.StatusInternalServerError, "failed to cancel subscription", err)
		}
		return
	}
	response.Success(c, http.StatusOK, "subscription cancelled", result)
}

func (h *SubscriptionHandler) UpdateDeliveryDays(c *gin.Context) {
	sub, ok := h.ownedSubscription(c)
	if !ok {
		return
	}

	var req subscription.UpdateDeliveryDaysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.subscriptionService.UpdateDeliveryDays(c.Request.Context(), sub.ID, &req)
	if err != nil {
		switch {
		case errors.Is(err, xerrors.ErrInvalidInput):
			response.ValidationError(c, "invalid delivery days", err)
		case errors.Is(err, xerrors.ErrAlreadyEnded):
			response.Conflict(c, "subscription is already ended", err)
		default:
			response.Error(c, http.StatusInternalServerError, "failed to update delivery days", err)
		}
		return
	}
	response.Success(c, http.StatusOK, "delivery days updated", result)
}

// ========== Admin Endpoints ==========

// Renew advances the billing period and records the renewal charge.
func (h *SubscriptionHandler) Renew(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid subscription ID", err)
		return
	}

	result, err := h.subscriptionService.Renew(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, xerrors.ErrNotFound):
			response.NotFound(c, "subscription not found")
		case errors.Is(err, xerrors.ErrNotActive):
			response.Conflict(c, "only an active subscription can be renewed", err)
		case errors.Is(err, xerrors.ErrConflict):
			response.Conflict(c, "subscription is scheduled for cancellation", err)
		default:
			response.Error(c, http.StatusInternalServerError, "failed to renew subscription", err)
		}
		return
	}
	response.Success(c, http.StatusOK, "subscription renewed", result)
}

// RunMaintenance triggers the expiry sweep.
func (h *SubscriptionHandler) RunMaintenance(c *gin.Context) {
	result, err := h.subscriptionService.RunMaintenance(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "maintenance sweep failed", err)
		return
	}
	response.Success(c, http.StatusOK, "maintenance sweep completed", result)
}

func (h *SubscriptionHandler) Stats(c *gin.Context) {
	stats, err := h.subscriptionService.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to get stats", err)
		return
	}
	response.Success(c, http.StatusOK, "stats retrieved", stats)
}

// ownedSubscription loads the path subscription and enforces ownership.
// Admins can act on any subscription.
func (h *SubscriptionHandler) ownedSubscription(c *gin.Context) (*subscription.Subscription, bool) {
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
