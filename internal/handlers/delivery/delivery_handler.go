// internal/handlers/delivery/delivery_handler.go
package delivery

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"mealbox-service/internal/domain/delivery"
	"mealbox-service/internal/middleware"
	xerrors "mealbox-service/internal/pkg/errors"
	"mealbox-service/internal/pkg/response"
	service "mealbox-service/internal/service/delivery"
	ws "mealbox-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type DeliveryHandler struct {
	deliveryService *service.DeliveryService
	hub             *ws.Hub
	logger          *zap.Logger
}

func NewDeliveryHandler(deliveryService *service.DeliveryService, hub *ws.Hub, logger *zap.Logger) *DeliveryHandler {
	return &DeliveryHandler{deliveryService: deliveryService, hub: hub, logger: logger}
}

// ========== Admin Endpoints ==========

// Materialize creates the delivery row the kitchen works against for a
// (subscription, date) pair.
func (h *DeliveryHandler) Materialize(c *gin.Context) {
	subscriptionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid subscription ID", err)
		return
	}

	var req struct {
		Date string `json:"date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}
	date, err := time.ParseInLocation("2006-01-02", req.Date, time.Local)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "date must be YYYY-MM-DD", err)
		return
	}

	d, err := h.deliveryService.EnsureForDate(c.Request.Context(), subscriptionID, date)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to materialize delivery", err)
		return
	}
	response.Success(c, http.StatusCreated, "delivery materialized", d)
}

// UpdateStatus moves a delivery through the state machine.
func (h *DeliveryHandler) UpdateStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid delivery ID", err)
		return
	}

	var req delivery.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	d, err := h.deliveryService.UpdateStatus(c.Request.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, xerrors.ErrNotFound):
			response.NotFound(c, "delivery not found")
		case errors.Is(err, xerrors.ErrInvalidInput):
			response.Conflict(c, "status transition not allowed", err)
		default:
			response.Error(c, http.StatusInternalServerError, "failed to update delivery", err)
		}
		return
	}
	response.Success(c, http.StatusOK, "delivery status updated", d)
}

// ListForDate returns all deliveries on a date.
func (h *DeliveryHandler) ListForDate(c *gin.Context) {
	date := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "date must be YYYY-MM-DD", err)
			return
		}
		date = parsed
	}

	deliveries, err := h.deliveryService.ListForDate(c.Request.Context(), date)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list deliveries", err)
		return
	}
	response.Success(c, http.StatusOK, "deliveries retrieved", deliveries)
}

// ListForSubscription returns a subscription's delivery history.
func (h *DeliveryHandler) ListForSubscription(c *gin.Context) {
	subscriptionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid subscription ID", err)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))

	deliveries, err := h.deliveryService.ListForSubscription(c.Request.Context(), subscriptionID, limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list deliveries", err)
		return
	}
	response.Success(c, http.StatusOK, "deliveries retrieved", deliveries)
}

// Feed upgrades to a websocket carrying live delivery status events. Runs
// behind the admin middleware; the token rides the query string.
func (h *DeliveryHandler) Feed(c *gin.Context) {
	identityID := middleware.MustGetIdentityID(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := ws.NewClient(h.hub, conn, identityID, h.logger)
	client.Start()
}
