// internal/handlers/coupon/coupon_handler.go
package coupon

import (
	"errors"
	"net/http"
	"strconv"

	"mealbox-service/internal/domain/coupon"
	xerrors "mealbox-service/internal/pkg/errors"
	"mealbox-service/internal/pkg/response"
	service "mealbox-service/internal/service/coupon"

	"github.com/gin-gonic/gin"
)

type CouponHandler struct {
	couponService *service.CouponService
}

func NewCouponHandler(couponService *service.CouponService) *CouponHandler {
	return &CouponHandler{couponService: couponService}
}

// Validate quotes a coupon for the storefront before checkout.
func (h *CouponHandler) Validate(c *gin.Context) {
	var req coupon.ValidateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.couponService.Validate(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "meal plan not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to validate coupon", err)
		return
	}
	response.Success(c, http.StatusOK, "coupon validated", result)
}

// ========== Admin Endpoints ==========

func (h *CouponHandler) Create(c *gin.Context) {
	var req coupon.CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.couponService.Create(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, xerrors.ErrConflict):
			response.Conflict(c, "coupon code already exists", err)
		case errors.Is(err, xerrors.ErrInvalidInput):
			response.ValidationError(c, "invalid coupon", err)
		default:
			response.Error(c, http.StatusInternalServerError, "failed to create coupon", err)
		}
		return
	}
	response.Success(c, http.StatusCreated, "coupon created", result)
}

func (h *CouponHandler) List(c *gin.Context) {
	coupons, err := h.couponService.List(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list coupons", err)
		return
	}
	response.Success(c, http.StatusOK, "coupons retrieved", coupons)
}

func (h *CouponHandler) SetStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid coupon ID", err)
		return
	}

	var req struct {
		Status string `json:"status" binding:"required,oneof=active inactive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	if err := h.couponService.SetStatus(c.Request.Context(), id, coupon.CouponStatus(req.Status)); err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "coupon not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to update coupon", err)
		return
	}
	response.Success(c, http.StatusOK, "coupon status updated", nil)
}
