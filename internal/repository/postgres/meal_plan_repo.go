// internal/repository/postgres/meal_plan_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mealbox-service/internal/domain/mealplan"
	xerrors "mealbox-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MealPlanRepository struct {
	db *pgxpool.Pool
}

func NewMealPlanRepository(db *pgxpool.Pool) *MealPlanRepository {
	return &MealPlanRepository{db: db}
}

const mealPlanColumns = `id, code, name, description, weekly_price, monthly_price, currency,
	is_vegetarian, has_breakfast, has_lunch, has_dinner, status, is_public, created_at, updated_at`

func scanMealPlan(row pgx.Row) (*mealplan.MealPlan, error) {
	var p mealplan.MealPlan
	err := row.Scan(
		&p.ID, &p.Code, &p.Name, &p.Description,
		&p.WeeklyPrice, &p.MonthlyPrice, &p.Currency,
		&p.IsVegetarian, &p.HasBreakfast, &p.HasLunch, &p.HasDinner,
		&p.Status, &p.IsPublic, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan meal plan: %w", err)
	}
	return &p, nil
}

func (r *MealPlanRepository) Create(ctx context.Context, p *mealplan.MealPlan) error {
	query := `
		INSERT INTO meal_plans (
			code, name, description, weekly_price, monthly_price, currency,
			is_vegetarian, has_breakfast, has_lunch, has_dinner, status, is_public
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(
		ctx, query,
		p.Code, p.Name, p.Description, p.WeeklyPrice, p.MonthlyPrice, p.Currency,
		p.IsVegetarian, p.HasBreakfast, p.HasLunch, p.HasDinner, p.Status, p.IsPublic,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return xerrors.ErrConflict
		}
		return fmt.Errorf("failed to create meal plan: %w", err)
	}
	return nil
}

func (r *MealPlanRepository) FindByID(ctx context.Context, id int64) (*mealplan.MealPlan, error) {
	query := `SELECT ` + mealPlanColumns + ` FROM meal_plans WHERE id = $1`
	return scanMealPlan(r.db.QueryRow(ctx, query, id))
}

func (r *MealPlanRepository) FindByCode(ctx context.Context, code string) (*mealplan.MealPlan, error) {
	query := `SELECT ` + mealPlanColumns + ` FROM meal_plans WHERE code = $1`
	return scanMealPlan(r.db.QueryRow(ctx, query, code))
}

// ListPublic returns active, publicly listed plans for the storefront.
func (r *MealPlanRepository) ListPublic(ctx context.Context) ([]mealplan.MealPlan, error) {
	query := `SELECT ` + mealPlanColumns + ` FROM meal_plans
		WHERE status = 'active' AND is_public = TRUE
		ORDER BY monthly_price ASC, id ASC`
	return r.queryPlans(ctx, query)
}

// ListAll returns every plan regardless of visibility (admin view).
func (r *MealPlanRepository) ListAll(ctx context.Context) ([]mealplan.MealPlan, error) {
	query := `SELECT ` + mealPlanColumns + ` FROM meal_plans ORDER BY id ASC`
	return r.queryPlans(ctx, query)
}

func (r *MealPlanRepository) queryPlans(ctx context.Context, query string, args ...interface{}) ([]mealplan.MealPlan, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list meal plans: %w", err)
	}
	defer rows.Close()

	var plans []mealplan.MealPlan
	for rows.Next() {
		var p mealplan.MealPlan
		if err := rows.Scan(
			&p.ID, &p.Code, &p.Name, &p.Description,
			&p.WeeklyPrice, &p.MonthlyPrice, &p.Currency,
			&p.IsVegetarian, &p.HasBreakfast, &p.HasLunch, &p.HasDinner,
			&p.Status, &p.IsPublic, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan meal plan: %w", err)
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (r *MealPlanRepository) Update(ctx context.Context, p *mealplan.MealPlan) error {
	query := `
		UPDATE meal_plans
		SET name = $1, description = $2, weekly_price = $3, monthly_price = $4,
		    is_vegetarian = $5, has_breakfast = $6, has_lunch = $7, has_dinner = $8,
		    is_public = $9, updated_at = $10
		WHERE id = $11
	`
	result, err := r.db.Exec(
		ctx, query,
		p.Name, p.Description, p.WeeklyPrice, p.MonthlyPrice,
		p.IsVegetarian, p.HasBreakfast, p.HasLunch, p.HasDinner,
		p.IsPublic, time.Now(), p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update meal plan: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *MealPlanRepository) UpdateStatus(ctx context.Context, id int64, status mealplan.PlanStatus) error {
	query := `UPDATE meal_plans SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.Exec(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update meal plan status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}
