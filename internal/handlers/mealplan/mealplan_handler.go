// internal/handlers/mealplan/mealplan_handler.go
package mealplan

import (
	"errors"
	"net/http"
	"strconv"

	"mealbox-service/internal/domain/mealplan"
	xerrors "mealbox-service/internal/pkg/errors"
	"mealbox-service/internal/pkg/response"
	service "mealbox-service/internal/service/mealplan"

	"github.com/gin-gonic/gin"
)

type MealPlanHandler struct {
	planService *service.MealPlanService
}

func NewMealPlanHandler(planService *service.MealPlanService) *MealPlanHandler {
	return &MealPlanHandler{planService: planService}
}

// ListPublic serves the storefront catalog.
func (h *MealPlanHandler) ListPublic(c *gin.Context) {
	plans, err := h.planService.ListPublic(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list meal plans", err)
		return
	}
	response.Success(c, http.StatusOK, "meal plans retrieved", plans)
}

func (h *MealPlanHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid meal plan ID", err)
		return
	}

	plan, err := h.planService.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "meal plan not found")
		return
	}
	response.Success(c, http.StatusOK, "meal plan retrieved", plan)
}

// ========== Admin Endpoints ==========

func (h *MealPlanHandler) ListAll(c *gin.Context) {
	plans, err := h.planService.ListAll(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list meal plans", err)
		return
	}
	response.Success(c, http.StatusOK, "meal plans retrieved", plans)
}

func (h *MealPlanHandler) Create(c *gin.Context) {
	var req mealplan.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	plan, err := h.planService.Create(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, xerrors.ErrConflict) {
			response.Conflict(c, "meal plan code already exists", err)
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to create meal plan", err)
		return
	}
	response.Success(c, http.StatusCreated, "meal plan created", plan)
}

func (h *MealPlanHandler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid meal plan ID", err)
		return
	}

	var req mealplan.UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	plan, err := h.planService.Update(c.Request.Context(), id, &req)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "meal plan not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to update meal plan", err)
		return
	}
	response.Success(c, http.StatusOK, "meal plan updated", plan)
}

func (h *MealPlanHandler) SetStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid meal plan ID", err)
		return
	}

	var req struct {
		Status string `json:"status" binding:"required,oneof=active inactive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	if err := h.planService.SetStatus(c.Request.Context(), id, mealplan.PlanStatus(req.Status)); err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "meal plan not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to update meal plan status", err)
		return
	}
	response.Success(c, http.StatusOK, "meal plan status updated", nil)
}
