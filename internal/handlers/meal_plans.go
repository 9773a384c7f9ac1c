package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/ai-meal-planner/backend/internal/auth"
	"example.com/ai-meal-planner/backend/internal/models"
	"example.com/ai-meal-planner/backend/internal/notifications"
	"example.com/ai-meal-planner/backend/internal/planner"
)

type MealPlanHandler struct {
	Planner  *planner.Service
	Profiles ProfileStore
	Notifier *notifications.Hub
	Logger   *slog.Logger
}

// NewMealPlanHandler создает обработчик планов питания.
func NewMealPlanHandler(service *planner.Service, profiles ProfileStore, notifier *notifications.Hub, logger *slog.Logger) *MealPlanHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MealPlanHandler{Planner: service, Profiles: profiles, Notifier: notifier, Logger: logger}
}

type GeneratePlanRequest struct {
	WeekStartDate     string   `json:"week_start_date"`
	ExcludeRecipes    []string `json:"exclude_recipes" validate:"max=50,dive,max=200"`
	PantryItems       []string `json:"pantry_items" validate:"max=50,dive,max=100"`
	PreferredCuisines []string `json:"preferred_cuisines" validate:"max=10,dive,max=50"`
}

type SwapMealRequest struct {
	ExcludeRecipes []string `json:"exclude_recipes" validate:"max=50,dive,max=200"`
}

type SwapMealResponse struct {
	Plan           models.MealPlan `json:"plan"`
	PreviousMealID string          `json:"previous_meal_id"`
	Meal           models.Meal     `json:"meal"`
}

type InstructionsResponse struct {
	MealID       string   `json:"meal_id"`
	Instructions []string `json:"instructions"`
}

type TipsResponse struct {
	PlanID uuid.UUID `json:"plan_id"`
	Tips   []string  `json:"tips"`
}

// Generate генерирует и сохраняет недельный план питания по профилю пользователя.
func (h *MealPlanHandler) Generate(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req GeneratePlanRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	var weekStart time.Time
	if raw := strings.TrimSpace(req.WeekStartDate); raw != "" {
		parsed, err := time.ParseInLocation(dateLayout, raw, time.Local)
		if err != nil {
			return badRequest(c, "week_start_date must be YYYY-MM-DD")
		}
		weekStart = parsed
	}

	profile, err := h.Profiles.Get(c.Request().Context(), userID)
	if err != nil {
		return profileError(c, err)
	}

	plan, err := h.Planner.GeneratePlan(c.Request().Context(), planner.PlanRequest{
		Profile:           profile,
		ExcludeRecipes:    trimList(req.ExcludeRecipes),
		PantryItems:       trimList(req.PantryItems),
		PreferredCuisines: normalizeTags(req.PreferredCuisines),
		WeekStartDate:     weekStart,
	})
	if err != nil {
		return plannerError(c, h.Logger, err)
	}

	h.Notifier.Publish(userID, notifications.PlanGenerated(plan))
	return c.JSON(http.StatusCreated, plan)
}

// List возвращает планы пользователя, новые первыми.
func (h *MealPlanHandler) List(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	plans, err := h.Planner.ListPlans(c.Request().Context(), userID)
	if err != nil {
		return plannerError(c, h.Logger, err)
	}

	return c.JSON(http.StatusOK, plans)
}

// Get возвращает план по идентификатору.
func (h *MealPlanHandler) Get(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid plan id")
	}

	plan, err := h.Planner.GetPlan(c.Request().Context(), userID, planID)
	if err != nil {
		return plannerError(c, h.Logger, err)
	}

	return c.JSON(http.StatusOK, plan)
}

// Delete удаляет план питания.
func (h *MealPlanHandler) Delete(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid plan id")
	}

	if err := h.Planner.DeletePlan(c.Request().Context(), userID, planID); err != nil {
		return plannerError(c, h.Logger, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// Swap заменяет блюдо плана на альтернативу того же дня и типа.
func (h *MealPlanHandler) Swap(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid plan id")
	}
	mealID := strings.TrimSpace(c.Param("mealId"))

	var req SwapMealRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	profile, err := h.Profiles.Get(c.Request().Context(), userID)
	if err != nil {
		return profileError(c, err)
	}

	current, err := h.Planner.GetPlan(c.Request().Context(), userID, planID)
	if err != nil {
		return plannerError(c, h.Logger, err)
	}
	idx, ok := current.MealIndex(mealID)
	if !ok {
		return notFound(c, "meal not found")
	}

	plan, err := h.Planner.SwapMeal(c.Request().Context(), profile, planID, mealID, trimList(req.ExcludeRecipes))
	if err != nil {
		return plannerError(c, h.Logger, err)
	}

	meal := plan.Meals[idx]
	h.Notifier.Publish(userID, notifications.MealSwapped(plan, mealID, meal))
	return c.JSON(http.StatusOK, SwapMealResponse{Plan: plan, PreviousMealID: mealID, Meal: meal})
}

// Instructions возвращает шаги приготовления блюда из плана.
func (h *MealPlanHandler) Instructions(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid plan id")
	}
	mealID := strings.TrimSpace(c.Param("mealId"))

	steps, err := h.Planner.MealInstructions(c.Request().Context(), userID, planID, mealID)
	if err != nil {
		return plannerError(c, h.Logger, err)
	}

	return c.JSON(http.StatusOK, InstructionsResponse{MealID: mealID, Instructions: steps})
}

// Tips возвращает советы по закупкам и готовке для плана.
func (h *MealPlanHandler) Tips(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid plan id")
	}

	profile, err := h.Profiles.Get(c.Request().Context(), userID)
	if err != nil {
		return profileError(c, err)
	}

	plan, err := h.Planner.GetPlan(c.Request().Context(), userID, planID)
	if err != nil {
		return plannerError(c, h.Logger, err)
	}

	tips, err := h.Planner.GenerateTips(c.Request().Context(), plan, profile)
	if err != nil {
		return plannerError(c, h.Logger, err)
	}

	return c.JSON(http.StatusOK, TipsResponse{PlanID: plan.ID, Tips: tips})
}
