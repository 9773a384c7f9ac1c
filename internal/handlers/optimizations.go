package handlers

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/ai-meal-planner/backend/internal/auth"
	"example.com/ai-meal-planner/backend/internal/models"
	"example.com/ai-meal-planner/backend/internal/notifications"
	"example.com/ai-meal-planner/backend/internal/optimizer"
	"example.com/ai-meal-planner/backend/internal/planner"
)

type OptimizationHandler struct {
	Planner    *planner.Service
	Optimizer  *optimizer.Engine
	Profiles   ProfileStore
	Households planner.HouseholdSource
	Notifier   *notifications.Hub
	Logger     *slog.Logger
}

// NewOptimizationHandler создает обработчик оптимизации стоимости планов.
func NewOptimizationHandler(service *planner.Service, engine *optimizer.Engine, profiles ProfileStore, households planner.HouseholdSource, notifier *notifications.Hub, logger *slog.Logger) *OptimizationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OptimizationHandler{
		Planner:    service,
		Optimizer:  engine,
		Profiles:   profiles,
		Households: households,
		Notifier:   notifier,
		Logger:     logger,
	}
}

type SuggestOptimizationsRequest struct {
	IncludeAdvanced bool `json:"include_advanced"`
	MaxSuggestions  int  `json:"max_suggestions" validate:"gte=0,lte=50"`
}

type SuggestOptimizationsResponse struct {
	PlanID           uuid.UUID                       `json:"plan_id"`
	Suggestions      []models.OptimizationSuggestion `json:"suggestions"`
	PotentialSavings float64                         `json:"potential_savings"`
}

type ApplyOptimizationsRequest struct {
	Suggestions []models.OptimizationSuggestion `json:"suggestions" validate:"required,min=1,max=50"`
}

// Suggest возвращает ранжированные предложения по экономии для плана.
func (h *OptimizationHandler) Suggest(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid plan id")
	}

	var req SuggestOptimizationsRequest
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

	plan, err := h.Planner.GetPlan(c.Request().Context(), userID, planID)
	if err != nil {
		return plannerError(c, h.Logger, err)
	}

	suggestions, err := h.Optimizer.Suggest(c.Request().Context(), plan, profile, optimizer.SuggestOptions{
		Household:       h.household(c, userID),
		IncludeAdvanced: req.IncludeAdvanced,
		MaxSuggestions:  req.MaxSuggestions,
	})
	if err != nil {
		return plannerError(c, h.Logger, err)
	}

	var potential float64
	for _, suggestion := range suggestions {
		potential += suggestion.SavingsAmount
	}

	return c.JSON(http.StatusOK, SuggestOptimizationsResponse{
		PlanID:           plan.ID,
		Suggestions:      suggestions,
		PotentialSavings: models.RoundCurrency(potential),
	})
}

// Apply применяет выбранные предложения к плану и сохраняет результат.
func (h *OptimizationHandler) Apply(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid plan id")
	}

	var req ApplyOptimizationsRequest
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

	plan, err := h.Planner.GetPlan(c.Request().Context(), userID, planID)
	if err != nil {
		return plannerError(c, h.Logger, err)
	}

	result, err := h.Optimizer.Apply(c.Request().Context(), plan, profile, req.Suggestions)
	if err != nil {
		return plannerError(c, h.Logger, err)
	}

	if err := h.Planner.SavePlanChanges(c.Request().Context(), result.OptimizedMealPlan); err != nil {
		return plannerError(c, h.Logger, err)
	}

	h.Notifier.Publish(userID, notifications.PlanOptimized(result.OptimizedMealPlan, len(result.Applied), result.TotalSavings))
	return c.JSON(http.StatusOK, result)
}

func (h *OptimizationHandler) household(c echo.Context, userID uuid.UUID) *models.HouseholdPreferences {
	if h.Households == nil {
		return nil
	}

	prefs, err := h.Households.GetHouseholdPreferences(c.Request().Context(), userID)
	if err != nil {
		h.Logger.Warn("household preferences unavailable", slog.String("user_id", userID.String()), slog.Any("error", err))
		return nil
	}
	return prefs
}
