package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"example.com/ai-meal-planner/backend/internal/cache"
	"example.com/ai-meal-planner/backend/internal/metrics"
	"example.com/ai-meal-planner/backend/internal/models"
)

const (
	defaultMaxRenegotiations = 3
	// renegotiationCut is taken from the original budget on every attempt; it does not compound.
	renegotiationCut = 0.10
)

// PlanStore persists meal plans. Get returns an error matching
// ErrPlanNotFound when the plan does not exist.
type PlanStore interface {
	Save(ctx context.Context, plan models.MealPlan) (uuid.UUID, error)
	Get(ctx context.Context, id uuid.UUID) (models.MealPlan, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.MealPlan, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Update(ctx context.Context, id uuid.UUID, update PlanUpdate) error
}

// PlanUpdate lists the fields to change; nil fields stay untouched.
type PlanUpdate struct {
	Meals              []models.Meal
	TotalEstimatedCost *float64
	BudgetStatus       *models.BudgetStatus
	WeekStartDate      *time.Time
}

type HouseholdSource interface {
	GetHouseholdPreferences(ctx context.Context, userID uuid.UUID) (*models.HouseholdPreferences, error)
}

type RecipeSource interface {
	GetRecipeInstructions(ctx context.Context, recipeID string) ([]string, error)
}

type Options struct {
	Cache                cache.Cache
	Households           HouseholdSource
	Recipes              RecipeSource
	Metrics              *metrics.Metrics
	Logger               *slog.Logger
	DisableRenegotiation bool
	MaxRenegotiations    int
}

// Service orchestrates plan generation, swaps and recipe enrichment on top
// of a Generator. A nil cache disables response caching.
type Service struct {
	generator         Generator
	store             PlanStore
	cache             cache.Cache
	households        HouseholdSource
	recipes           RecipeSource
	metrics           *metrics.Metrics
	logger            *slog.Logger
	renegotiate       bool
	maxRenegotiations int
	now               func() time.Time
}

// NewService создает сервис планирования питания.
func NewService(generator Generator, store PlanStore, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	maxRenegotiations := opts.MaxRenegotiations
	if maxRenegotiations <= 0 {
		maxRenegotiations = defaultMaxRenegotiations
	}

	return &Service{
		generator:         generator,
		store:             store,
		cache:             opts.Cache,
		households:        opts.Households,
		recipes:           opts.Recipes,
		metrics:           opts.Metrics,
		logger:            logger,
		renegotiate:       !opts.DisableRenegotiation,
		maxRenegotiations: maxRenegotiations,
		now:               time.Now,
	}
}

// GeneratePlan генерирует, при необходимости пересогласует по бюджету и сохраняет недельный план.
func (s *Service) GeneratePlan(ctx context.Context, req PlanRequest) (models.MealPlan, error) {
	if err := validateProfile(req.Profile); err != nil {
		return models.MealPlan{}, err
	}

	if req.Household == nil && s.households != nil {
		household, err := s.households.GetHouseholdPreferences(ctx, req.Profile.UserID)
		if err != nil {
			s.logger.Warn("household preferences unavailable", slog.String("user_id", req.Profile.UserID.String()), slog.Any("error", err))
		} else {
			req.Household = household
		}
	}

	if req.WeekStartDate.IsZero() {
		req.WeekStartDate = s.defaultWeekStart()
	}

	key := cache.Key("plan", req)
	var cached models.MealPlan
	if s.lookup(ctx, "plan", key, &cached) {
		stored, err := s.cachedPlan(ctx, cached)
		if err != nil {
			return models.MealPlan{}, err
		}
		if stored != nil {
			return *stored, nil
		}
	}

	plan, err := s.generate(ctx, req, req.Profile.WeeklyBudget)
	if err != nil {
		return models.MealPlan{}, err
	}
	if len(plan.Meals) != models.MealsPerWeek {
		s.logger.Warn("generated plan has unexpected meal count", slog.Int("meals", len(plan.Meals)))
	}

	plan = s.renegotiateBudget(ctx, req, plan)

	id, err := s.store.Save(ctx, plan)
	if err != nil {
		return models.MealPlan{}, fmt.Errorf("save meal plan: %w", err)
	}
	plan.ID = id

	s.metrics.ObservePlan(string(plan.BudgetStatus))
	s.remember(ctx, "plan", key, plan)

	s.logger.Info("meal plan generated",
		slog.String("plan_id", plan.ID.String()),
		slog.String("user_id", plan.UserID.String()),
		slog.Float64("total_cost", plan.TotalEstimatedCost),
		slog.String("budget_status", string(plan.BudgetStatus)),
	)
	return plan, nil
}

// cachedPlan возвращает актуальную сохраненную версию плана из кэша
// или nil, если план уже удален или принадлежит другому пользователю.
func (s *Service) cachedPlan(ctx context.Context, cached models.MealPlan) (*models.MealPlan, error) {
	stored, err := s.store.Get(ctx, cached.ID)
	if err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			s.logger.Debug("cached plan no longer stored, regenerating", slog.String("plan_id", cached.ID.String()))
			return nil, nil
		}
		return nil, fmt.Errorf("load cached meal plan: %w", err)
	}
	if stored.UserID != cached.UserID {
		return nil, nil
	}
	return &stored, nil
}

// renegotiateBudget перегенерирует план со сниженным бюджетом, пока план превышает исходный бюджет.
func (s *Service) renegotiateBudget(ctx context.Context, req PlanRequest, plan models.MealPlan) models.MealPlan {
	if !s.renegotiate {
		return plan
	}

	originalBudget := req.Profile.WeeklyBudget
	for attempt := 1; plan.BudgetStatus == models.BudgetOver && attempt <= s.maxRenegotiations; attempt++ {
		reduced := req
		reduced.Profile.WeeklyBudget = models.RoundCurrency(originalBudget * (1 - renegotiationCut))

		s.metrics.IncRenegotiation()
		s.logger.Info("plan over budget, regenerating",
			slog.Int("attempt", attempt),
			slog.Float64("total_cost", plan.TotalEstimatedCost),
			slog.Float64("budget", originalBudget),
			slog.Float64("target_budget", reduced.Profile.WeeklyBudget),
		)

		next, err := s.generate(ctx, reduced, originalBudget)
		if err != nil {
			s.logger.Warn("budget renegotiation failed, keeping last plan", slog.Int("attempt", attempt), slog.Any("error", err))
			break
		}
		plan = next
	}

	return plan
}

// generate выполняет один вызов генератора и собирает план; статус считается по переданному бюджету.
func (s *Service) generate(ctx context.Context, req PlanRequest, statusBudget float64) (models.MealPlan, error) {
	parsed, err := s.generator.GeneratePlan(ctx, req)
	if err != nil {
		return models.MealPlan{}, Classify(err)
	}

	now := s.now()
	plan := models.MealPlan{
		ID:            uuid.New(),
		UserID:        req.Profile.UserID,
		WeekStartDate: req.WeekStartDate,
		Meals:         parsed.Meals,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	plan.Recalculate(statusBudget)
	return plan, nil
}

// SuggestMealSwap предлагает замену блюда того же дня и типа.
func (s *Service) SuggestMealSwap(ctx context.Context, meal models.Meal, profile models.UserProfile, exclude []string) (models.Meal, error) {
	key := cache.Key("swap", profile.UserID, meal.ID, exclude)
	var cached models.Meal
	if s.lookup(ctx, "swap", key, &cached) {
		return cached, nil
	}

	replacement, err := s.generator.SuggestSwap(ctx, meal, profile, exclude)
	if err != nil {
		return models.Meal{}, Classify(err)
	}

	replacement.DayOfWeek = meal.DayOfWeek
	replacement.MealType = meal.MealType
	if meal.Servings > 0 {
		replacement.Servings = meal.Servings
	}

	s.remember(ctx, "swap", key, replacement)
	return replacement, nil
}

// SwapMeal заменяет блюдо в сохраненном плане и пересчитывает стоимость.
func (s *Service) SwapMeal(ctx context.Context, profile models.UserProfile, planID uuid.UUID, mealID string, exclude []string) (models.MealPlan, error) {
	plan, err := s.GetPlan(ctx, profile.UserID, planID)
	if err != nil {
		return models.MealPlan{}, err
	}

	idx, ok := plan.MealIndex(mealID)
	if !ok {
		return models.MealPlan{}, fmt.Errorf("%w: %s", ErrMealNotFound, mealID)
	}

	original := plan.Meals[idx]
	exclude = mergeUnique([]string{original.RecipeName}, exclude)

	replacement, err := s.SuggestMealSwap(ctx, original, profile, exclude)
	if err != nil {
		return models.MealPlan{}, err
	}

	plan.Meals[idx] = replacement
	plan.Recalculate(profile.WeeklyBudget)
	if err := s.SavePlanChanges(ctx, plan); err != nil {
		return models.MealPlan{}, err
	}

	s.logger.Info("meal swapped",
		slog.String("plan_id", plan.ID.String()),
		slog.String("from", original.RecipeName),
		slog.String("to", replacement.RecipeName),
	)
	return plan, nil
}

// RecipeInstructions возвращает шаги рецепта: сначала из хранилища рецептов, затем от генератора.
func (s *Service) RecipeInstructions(ctx context.Context, meal models.Meal) ([]string, error) {
	recipeID := meal.RecipeID
	if recipeID == "" {
		recipeID = RecipeID(meal.RecipeName)
	}

	if s.recipes != nil {
		steps, err := s.recipes.GetRecipeInstructions(ctx, recipeID)
		switch {
		case err != nil:
			s.logger.Debug("recipe instructions lookup failed", slog.String("recipe_id", recipeID), slog.Any("error", err))
		case len(steps) > 0:
			return steps, nil
		}
	}

	key := cache.Key("instructions", recipeID)
	var cached []string
	if s.lookup(ctx, "instructions", key, &cached) {
		return cached, nil
	}

	steps, err := s.generator.RecipeInstructions(ctx, meal)
	if err != nil {
		return nil, Classify(err)
	}

	s.remember(ctx, "instructions", key, steps)
	return steps, nil
}

// MealInstructions ищет блюдо в плане пользователя и возвращает шаги его рецепта.
func (s *Service) MealInstructions(ctx context.Context, userID, planID uuid.UUID, mealID string) ([]string, error) {
	plan, err := s.GetPlan(ctx, userID, planID)
	if err != nil {
		return nil, err
	}

	idx, ok := plan.MealIndex(mealID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMealNotFound, mealID)
	}

	return s.RecipeInstructions(ctx, plan.Meals[idx])
}

// GenerateTips возвращает советы по закупкам и готовке для плана.
func (s *Service) GenerateTips(ctx context.Context, plan models.MealPlan, profile models.UserProfile) ([]string, error) {
	key := cache.Key("tips", plan.ID, plan.TotalEstimatedCost, profile.WeeklyBudget)
	var cached []string
	if s.lookup(ctx, "tips", key, &cached) {
		return cached, nil
	}

	tips, err := s.generator.GenerateTips(ctx, plan, profile)
	if err != nil {
		return nil, Classify(err)
	}

	s.remember(ctx, "tips", key, tips)
	return tips, nil
}

// SuggestSubstitutes возвращает более дешевые замены ингредиента, исключая запрещенные.
func (s *Service) SuggestSubstitutes(ctx context.Context, ingredient models.Ingredient, avoid []string) ([]models.Substitute, error) {
	key := cache.Key("substitutes", strings.ToLower(ingredient.Name), avoid)
	var cached []models.Substitute
	if s.lookup(ctx, "substitutes", key, &cached) {
		return cached, nil
	}

	substitutes, err := s.generator.SuggestSubstitutes(ctx, ingredient, avoid)
	if err != nil {
		return nil, Classify(err)
	}

	filtered := substitutes[:0]
	for _, substitute := range substitutes {
		if !containsAny(substitute.Name, avoid) {
			filtered = append(filtered, substitute)
		}
	}

	s.remember(ctx, "substitutes", key, filtered)
	return filtered, nil
}

// GetPlan возвращает план, принадлежащий пользователю.
func (s *Service) GetPlan(ctx context.Context, userID, planID uuid.UUID) (models.MealPlan, error) {
	plan, err := s.store.Get(ctx, planID)
	if err != nil {
		return models.MealPlan{}, err
	}
	if plan.UserID != userID {
		return models.MealPlan{}, fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
	}
	return plan, nil
}

// ListPlans возвращает планы пользователя.
func (s *Service) ListPlans(ctx context.Context, userID uuid.UUID) ([]models.MealPlan, error) {
	return s.store.ListByUser(ctx, userID)
}

// DeletePlan удаляет план пользователя.
func (s *Service) DeletePlan(ctx context.Context, userID, planID uuid.UUID) error {
	if _, err := s.GetPlan(ctx, userID, planID); err != nil {
		return err
	}
	return s.store.Delete(ctx, planID)
}

// SavePlanChanges сохраняет измененный состав плана, итог и статус бюджета.
func (s *Service) SavePlanChanges(ctx context.Context, plan models.MealPlan) error {
	total := plan.TotalEstimatedCost
	status := plan.BudgetStatus

	err := s.store.Update(ctx, plan.ID, PlanUpdate{
		Meals:              plan.Meals,
		TotalEstimatedCost: &total,
		BudgetStatus:       &status,
	})
	if err != nil {
		return fmt.Errorf("update meal plan: %w", err)
	}
	return nil
}

func (s *Service) defaultWeekStart() time.Time {
	now := s.now()
	year, month, day := now.Date()
	return time.Date(year, month, day+1, 0, 0, 0, 0, now.Location())
}

func (s *Service) lookup(ctx context.Context, kind, key string, dst any) bool {
	if s.cache == nil {
		return false
	}

	found, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		s.logger.Warn("response cache read failed", slog.String("kind", kind), slog.Any("error", err))
		return false
	}

	s.metrics.ObserveCache(kind, found)
	if found {
		s.logger.Debug("response cache hit", slog.String("kind", kind))
	}
	return found
}

func (s *Service) remember(ctx context.Context, kind, key string, value any) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Set(ctx, key, value); err != nil {
		s.logger.Warn("response cache write failed", slog.String("kind", kind), slog.Any("error", err))
	}
}

func validateProfile(profile models.UserProfile) error {
	switch {
	case profile.HouseholdSize <= 0:
		return fmt.Errorf("%w: household size must be positive", ErrInvalidInput)
	case profile.WeeklyBudget <= 0:
		return fmt.Errorf("%w: weekly budget must be positive", ErrInvalidInput)
	}
	return nil
}

// IsNotFound сообщает, относится ли ошибка к отсутствующей сущности.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPlanNotFound) || errors.Is(err, ErrMealNotFound)
}
