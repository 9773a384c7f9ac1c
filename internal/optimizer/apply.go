package optimizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"example.com/ai-meal-planner/backend/internal/models"
)

type SkippedSuggestion struct {
	SuggestionID string                `json:"suggestion_id"`
	Type         models.SuggestionType `json:"type"`
	Reason       string                `json:"reason"`
}

// Result is the outcome of applying a batch of suggestions. TotalSavings
// reflects structural changes only; advisory savings are reported apart.
type Result struct {
	OptimizedMealPlan models.MealPlan                 `json:"optimized_meal_plan"`
	Applied           []models.OptimizationSuggestion `json:"applied"`
	Skipped           []SkippedSuggestion             `json:"skipped"`
	OriginalCost      float64                         `json:"original_cost"`
	OptimizedCost     float64                         `json:"optimized_cost"`
	TotalSavings      float64                         `json:"total_savings"`
	SavingsPercentage float64                         `json:"savings_percentage"`
	AdvisorySavings   float64                         `json:"advisory_savings"`
}

type applyState struct {
	plan     models.MealPlan
	replaced map[string]bool
	result   *Result
}

// Apply применяет выбранные предложения к копии плана и пересчитывает стоимость и статус бюджета.
// Неудачные предложения пропускаются без прерывания всего пакета.
func (e *Engine) Apply(ctx context.Context, plan models.MealPlan, profile models.UserProfile, suggestions []models.OptimizationSuggestion) (Result, error) {
	state := &applyState{
		plan:     plan.Clone(),
		replaced: make(map[string]bool),
		result:   &Result{OriginalCost: models.SumMealCosts(plan.Meals)},
	}

	var replacements, swaps, portions []models.OptimizationSuggestion
	for _, suggestion := range suggestions {
		switch {
		case suggestion.Type == models.SuggestionMealReplacement:
			replacements = append(replacements, suggestion)
		case suggestion.Type == models.SuggestionIngredientSwap:
			swaps = append(swaps, suggestion)
		case suggestion.Type == models.SuggestionPortionAdjustment:
			portions = append(portions, suggestion)
		case suggestion.Type.IsAdvisory():
			state.result.AdvisorySavings += suggestion.SavingsAmount
			e.applied(state, suggestion)
		default:
			e.skip(state, suggestion, fmt.Sprintf("unknown suggestion type %q", suggestion.Type))
		}
	}

	if err := e.applyReplacements(ctx, state, profile, replacements); err != nil {
		return Result{}, err
	}
	if len(swaps) > 0 {
		avoid := avoidedKeywords(profile, nil)
		for _, suggestion := range swaps {
			e.applyIngredientSwap(ctx, state, suggestion, avoid)
		}
	}
	for _, suggestion := range portions {
		e.applyPortion(state, suggestion)
	}

	state.plan.Recalculate(profile.WeeklyBudget)
	state.plan.UpdatedAt = e.now()

	result := state.result
	result.OptimizedMealPlan = state.plan
	result.OptimizedCost = state.plan.TotalEstimatedCost
	result.TotalSavings = models.RoundCurrency(result.OriginalCost - result.OptimizedCost)
	result.AdvisorySavings = models.RoundCurrency(result.AdvisorySavings)
	if result.OriginalCost > 0 {
		result.SavingsPercentage = models.RoundCurrency(result.TotalSavings / result.OriginalCost * 100)
	}

	e.logger.Info("optimizations applied",
		slog.String("plan_id", plan.ID.String()),
		slog.Int("applied", len(result.Applied)),
		slog.Int("skipped", len(result.Skipped)),
		slog.Float64("total_savings", result.TotalSavings),
	)
	return *result, nil
}

// applyReplacements получает недостающие замены параллельно, затем последовательно объединяет их в план.
func (e *Engine) applyReplacements(ctx context.Context, state *applyState, profile models.UserProfile, suggestions []models.OptimizationSuggestion) error {
	type fetched struct {
		meal models.Meal
		err  error
	}
	results := make([]fetched, len(suggestions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.MaxReplacementLookups)

	for i, suggestion := range suggestions {
		idx, ok := state.plan.MealIndex(suggestion.TargetMealID)
		if !ok {
			results[i].err = fmt.Errorf("meal %s not found", suggestion.TargetMealID)
			continue
		}
		original := state.plan.Meals[idx]

		if suggestion.ReplacementMeal != nil {
			err := checkReplacement(original, *suggestion.ReplacementMeal)
			if err == nil {
				results[i].meal = suggestion.ReplacementMeal.Clone()
				continue
			}
			e.logger.Warn("proposed replacement rejected", slog.String("meal_id", original.ID), slog.Any("error", err))
		}
		if e.swapper == nil {
			results[i].err = fmt.Errorf("meal replacement is unavailable")
			continue
		}

		g.Go(func() error {
			meal, err := e.swapper.SuggestMealSwap(gctx, original, profile, []string{original.RecipeName})
			results[i] = fetched{meal: meal, err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for i, suggestion := range suggestions {
		if results[i].err != nil {
			e.logger.Warn("meal replacement skipped", slog.String("meal_id", suggestion.TargetMealID), slog.Any("error", results[i].err))
			e.skip(state, suggestion, results[i].err.Error())
			continue
		}
		if state.replaced[suggestion.TargetMealID] {
			e.skip(state, suggestion, "meal already replaced")
			continue
		}

		idx, _ := state.plan.MealIndex(suggestion.TargetMealID)
		original := state.plan.Meals[idx]

		replacement := results[i].meal
		replacement.DayOfWeek = original.DayOfWeek
		replacement.MealType = original.MealType
		if replacement.Servings <= 0 {
			replacement.Servings = original.Servings
		}
		if replacement.ID == "" {
			replacement.ID = original.ID
		}
		if err := checkReplacement(original, replacement); err != nil {
			e.skip(state, suggestion, err.Error())
			continue
		}

		suggestion.SavingsAmount = models.RoundCurrency(original.EstimatedCost - replacement.EstimatedCost)
		state.plan.Meals[idx] = replacement
		state.replaced[suggestion.TargetMealID] = true
		state.replaced[replacement.ID] = true
		e.applied(state, suggestion)
	}
	return nil
}

// applyIngredientSwap заменяет ингредиент и уменьшает стоимость блюда на разницу в цене.
// Разница считается по собственному коэффициенту цены замены, а не по SavingsAmount из запроса.
func (e *Engine) applyIngredientSwap(ctx context.Context, state *applyState, suggestion models.OptimizationSuggestion, avoid []string) {
	if state.replaced[suggestion.TargetMealID] {
		e.skip(state, suggestion, "meal was replaced")
		return
	}
	idx, ok := state.plan.MealIndex(suggestion.TargetMealID)
	if !ok {
		e.skip(state, suggestion, "meal not found")
		return
	}
	if strings.TrimSpace(suggestion.ProposedReplacement) == "" {
		e.skip(state, suggestion, "no replacement ingredient")
		return
	}

	meal := &state.plan.Meals[idx]
	for i := range meal.Ingredients {
		ingredient := &meal.Ingredients[i]
		if !strings.EqualFold(ingredient.Name, suggestion.TargetIngredient) {
			continue
		}

		if ingredient.EstimatedPrice <= 0 {
			e.skip(state, suggestion, "ingredient has no price")
			return
		}

		ratio, ok := e.replacementRatio(ctx, *ingredient, suggestion.ProposedReplacement, avoid)
		if !ok {
			e.skip(state, suggestion, "replacement price is unknown")
			return
		}

		delta := models.RoundCurrency(ingredient.EstimatedPrice * (1 - ratio))
		ingredient.Name = suggestion.ProposedReplacement
		ingredient.EstimatedPrice = models.RoundCurrency(ingredient.EstimatedPrice - delta)
		meal.EstimatedCost = models.RoundCurrency(max(meal.EstimatedCost-delta, 0))

		suggestion.SavingsAmount = delta
		e.applied(state, suggestion)
		return
	}

	e.skip(state, suggestion, "ingredient not found")
}

// replacementRatio возвращает долю цены, которую стоит предложенная замена,
// по таблице, категории или источнику замен. Замена не дешевле оригинала не принимается.
func (e *Engine) replacementRatio(ctx context.Context, ingredient models.Ingredient, proposed string, avoid []string) (float64, bool) {
	proposed = strings.TrimSpace(proposed)

	if sub, ok := lookupSubstitution(ingredient.Name); ok && strings.EqualFold(sub.name, proposed) {
		return sub.priceRatio, true
	}
	if fallback, ok := categoryFallback[ingredient.Category]; ok && strings.EqualFold(fallback.prefix+ingredient.Name, proposed) {
		return fallback.priceRatio, true
	}
	if e.substitutes == nil {
		return 0, false
	}

	candidates, err := e.substitutes.SuggestSubstitutes(ctx, ingredient, avoid)
	if err != nil {
		e.logger.Warn("substitute lookup failed", slog.String("ingredient", ingredient.Name), slog.Any("error", err))
		return 0, false
	}
	for _, candidate := range candidates {
		if strings.EqualFold(strings.TrimSpace(candidate.Name), proposed) && candidate.PriceRatio > 0 && candidate.PriceRatio < 1 {
			return candidate.PriceRatio, true
		}
	}
	return 0, false
}

// checkReplacement отклоняет блюда без названия, с отрицательными ценами или не дешевле исходного.
func checkReplacement(original, replacement models.Meal) error {
	if strings.TrimSpace(replacement.RecipeName) == "" {
		return errors.New("replacement has no recipe name")
	}
	if replacement.EstimatedCost < 0 {
		return errors.New("replacement cost is negative")
	}
	if replacement.Servings < 0 {
		return errors.New("replacement servings are negative")
	}
	for _, ingredient := range replacement.Ingredients {
		if ingredient.EstimatedPrice < 0 || ingredient.Amount < 0 {
			return fmt.Errorf("replacement ingredient %q has a negative amount or price", ingredient.Name)
		}
	}
	if replacement.EstimatedCost >= original.EstimatedCost {
		return errors.New("replacement is not cheaper")
	}
	return nil
}

// applyPortion масштабирует блюдо до предложенного числа порций.
func (e *Engine) applyPortion(state *applyState, suggestion models.OptimizationSuggestion) {
	if state.replaced[suggestion.TargetMealID] {
		e.skip(state, suggestion, "meal was replaced")
		return
	}
	idx, ok := state.plan.MealIndex(suggestion.TargetMealID)
	if !ok {
		e.skip(state, suggestion, "meal not found")
		return
	}

	meal := &state.plan.Meals[idx]
	if suggestion.ProposedServings <= 0 || suggestion.ProposedServings >= meal.Servings {
		e.skip(state, suggestion, "servings already at or below proposal")
		return
	}

	factor := float64(suggestion.ProposedServings) / float64(meal.Servings)
	for i := range meal.Ingredients {
		meal.Ingredients[i].Amount = roundAmount(meal.Ingredients[i].Amount * factor)
		meal.Ingredients[i].EstimatedPrice = models.RoundCurrency(meal.Ingredients[i].EstimatedPrice * factor)
	}
	meal.EstimatedCost = models.RoundCurrency(meal.EstimatedCost * factor)
	meal.Servings = suggestion.ProposedServings

	e.applied(state, suggestion)
}

func (e *Engine) applied(state *applyState, suggestion models.OptimizationSuggestion) {
	state.result.Applied = append(state.result.Applied, suggestion)
	e.metrics.ObserveOptimization(string(suggestion.Type), true)
}

func (e *Engine) skip(state *applyState, suggestion models.OptimizationSuggestion, reason string) {
	state.result.Skipped = append(state.result.Skipped, SkippedSuggestion{
		SuggestionID: suggestion.ID,
		Type:         suggestion.Type,
		Reason:       reason,
	})
	e.metrics.ObserveOptimization(string(suggestion.Type), false)
}

func roundAmount(value float64) float64 {
	return float64(int64(value*100+0.5)) / 100
}
