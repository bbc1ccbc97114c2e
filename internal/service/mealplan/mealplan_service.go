// internal/service/mealplan/mealplan_service.go
package mealplan

import (
	"context"
	"database/sql"
	"strings"

	"mealbox-service/internal/domain/mealplan"

	"go.uber.org/zap"
)

type Store interface {
	Create(ctx context.Context, p *mealplan.MealPlan) error
	FindByID(ctx context.Context, id int64) (*mealplan.MealPlan, error)
	FindByCode(ctx context.Context, code string) (*mealplan.MealPlan, error)
	ListPublic(ctx context.Context) ([]mealplan.MealPlan, error)
	ListAll(ctx context.Context) ([]mealplan.MealPlan, error)
	Update(ctx context.Context, p *mealplan.MealPlan) error
	UpdateStatus(ctx context.Context, id int64, status mealplan.PlanStatus) error
}

type MealPlanService struct {
	plans  Store
	logger *zap.Logger
}

func NewMealPlanService(plans Store, logger *zap.Logger) *MealPlanService {
	return &MealPlanService{plans: plans, logger: logger}
}

func (s *MealPlanService) Create(ctx context.Context, req *mealplan.CreatePlanRequest) (*mealplan.MealPlan, error) {
	currency := req.Currency
	if currency == "" {
		currency = "INR"
	}
	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	p := &mealplan.MealPlan{
		Code:         strings.ToLower(strings.TrimSpace(req.Code)),
		Name:         req.Name,
		WeeklyPrice:  req.WeeklyPrice,
		MonthlyPrice: req.MonthlyPrice,
		Currency:     currency,
		IsVegetarian: req.IsVegetarian,
		HasBreakfast: req.HasBreakfast,
		HasLunch:     req.HasLunch,
		HasDinner:    req.HasDinner,
		Status:       mealplan.StatusActive,
		IsPublic:     isPublic,
	}
	if req.Description != "" {
		p.Description = sql.NullString{String: req.Description, Valid: true}
	}

	if err := s.plans.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("meal plan created", zap.Int64("plan_id", p.ID), zap.String("code", p.Code))
	return p, nil
}

func (s *MealPlanService) GetByID(ctx context.Context, id int64) (*mealplan.MealPlan, error) {
	return s.plans.FindByID(ctx, id)
}

func (s *MealPlanService) GetByCode(ctx context.Context, code string) (*mealplan.MealPlan, error) {
	return s.plans.FindByCode(ctx, code)
}

// ListPublic returns the storefront catalog: active public plans only.
func (s *MealPlanService) ListPublic(ctx context.Context) ([]mealplan.MealPlan, error) {
	plans, err := s.plans.ListPublic(ctx)
	if err != nil {
		return nil, err
	}
	if plans == nil {
		plans = []mealplan.MealPlan{}
	}
	return plans, nil
}

func (s *MealPlanService) ListAll(ctx context.Context) ([]mealplan.MealPlan, error) {
	plans, err := s.plans.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if plans == nil {
		plans = []mealplan.MealPlan{}
	}
	return plans, nil
}

func (s *MealPlanService) Update(ctx context.Context, id int64, req *mealplan.UpdatePlanRequest) (*mealplan.MealPlan, error) {
	p, err := s.plans.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = sql.NullString{String: *req.Description, Valid: *req.Description != ""}
	}
	if req.WeeklyPrice != nil {
		p.WeeklyPrice = *req.WeeklyPrice
	}
	if req.MonthlyPrice != nil {
		p.MonthlyPrice = *req.MonthlyPrice
	}
	if req.IsVegetarian != nil {
		p.IsVegetarian = *req.IsVegetarian
	}
	if req.HasBreakfast != nil {
		p.HasBreakfast = *req.HasBreakfast
	}
	if req.HasLunch != nil {
		p.HasLunch = *req.HasLunch
	}
	if req.HasDinner != nil {
		p.HasDinner = *req.HasDinner
	}
	if req.IsPublic != nil {
		p.IsPublic = *req.IsPublic
	}

	if err := s.plans.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *MealPlanService) SetStatus(ctx context.Context, id int64, status mealplan.PlanStatus) error {
	return s.plans.UpdateStatus(ctx, id, status)
}
