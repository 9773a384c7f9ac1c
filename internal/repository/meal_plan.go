package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/ai-meal-planner/backend/internal/models"
	"example.com/ai-meal-planner/backend/internal/planner"
)

const mealPlanColumns = `id, user_id, week_start_date, meals, total_estimated_cost, budget_status, created_at, updated_at`

type MealPlanRepository struct {
	db *pgxpool.Pool
}

// NewMealPlanRepository создает репозиторий планов питания.
func NewMealPlanRepository(db *pgxpool.Pool) *MealPlanRepository {
	return &MealPlanRepository{db: db}
}

// Save сохраняет новый план и возвращает его идентификатор.
func (r *MealPlanRepository) Save(ctx context.Context, plan models.MealPlan) (uuid.UUID, error) {
	meals, err := encodeMeals(plan.Meals)
	if err != nil {
		return uuid.Nil, err
	}

	id := plan.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	var saved uuid.UUID
	err = r.db.QueryRow(ctx,
		`INSERT INTO meal_plans (id, user_id, week_start_date, meals, total_estimated_cost, budget_status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		id, plan.UserID, dateOnly(plan.WeekStartDate), meals, plan.TotalEstimatedCost, plan.BudgetStatus,
	).Scan(&saved)
	if err != nil {
		return uuid.Nil, err
	}

	return saved, nil
}

// Get возвращает план по идентификатору.
func (r *MealPlanRepository) Get(ctx context.Context, id uuid.UUID) (models.MealPlan, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+mealPlanColumns+`
		 FROM meal_plans
		 WHERE id = $1`,
		id,
	)

	plan, err := scanMealPlan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return plan, fmt.Errorf("%w: %s", planner.ErrPlanNotFound, id)
		}
		return plan, err
	}

	return plan, nil
}

// ListByUser возвращает планы пользователя, новые первыми.
func (r *MealPlanRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.MealPlan, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+mealPlanColumns+`
		 FROM meal_plans
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := make([]models.MealPlan, 0)
	for rows.Next() {
		plan, err := scanMealPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return plans, nil
}

// Delete удаляет план.
func (r *MealPlanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmd, err := r.db.Exec(ctx,
		`DELETE FROM meal_plans
		 WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", planner.ErrPlanNotFound, id)
	}

	return nil
}

// Update обновляет переданные поля плана, остальные остаются прежними.
func (r *MealPlanRepository) Update(ctx context.Context, id uuid.UUID, update planner.PlanUpdate) error {
	var meals []byte
	if update.Meals != nil {
		encoded, err := encodeMeals(update.Meals)
		if err != nil {
			return err
		}
		meals = encoded
	}

	var weekStart *time.Time
	if update.WeekStartDate != nil {
		date := dateOnly(*update.WeekStartDate)
		weekStart = &date
	}

	cmd, err := r.db.Exec(ctx,
		`UPDATE meal_plans
		 SET meals = COALESCE($2::jsonb, meals),
		     total_estimated_cost = COALESCE($3, total_estimated_cost),
		     budget_status = COALESCE($4, budget_status),
		     week_start_date = COALESCE($5, week_start_date),
		     updated_at = NOW()
		 WHERE id = $1`,
		id, meals, update.TotalEstimatedCost, update.BudgetStatus, weekStart,
	)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", planner.ErrPlanNotFound, id)
	}

	return nil
}

func scanMealPlan(row pgx.Row) (models.MealPlan, error) {
	var plan models.MealPlan
	var meals []byte

	err := row.Scan(&plan.ID, &plan.UserID, &plan.WeekStartDate, &meals, &plan.TotalEstimatedCost, &plan.BudgetStatus, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return plan, err
	}

	plan.Meals, err = decodeMeals(meals)
	if err != nil {
		return plan, fmt.Errorf("decode meals of plan %s: %w", plan.ID, err)
	}

	return plan, nil
}

func encodeMeals(meals []models.Meal) ([]byte, error) {
	if meals == nil {
		meals = []models.Meal{}
	}
	payload, err := json.Marshal(meals)
	if err != nil {
		return nil, fmt.Errorf("encode meals: %w", err)
	}
	return payload, nil
}

func decodeMeals(payload []byte) ([]models.Meal, error) {
	meals := make([]models.Meal, 0)
	if len(payload) == 0 {
		return meals, nil
	}
	if err := json.Unmarshal(payload, &meals); err != nil {
		return nil, err
	}
	return meals, nil
}

// dateOnly отбрасывает время и часовой пояс, сохраняя календарную дату.
func dateOnly(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
