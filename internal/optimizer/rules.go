package optimizer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"example.com/ai-meal-planner/backend/internal/models"
)

type substituteChoice struct {
	name       string
	priceRatio float64
	taste      string
	source     string
}

// ingredientSwaps предлагает более дешевые замены для дорогих ингредиентов.
func (e *Engine) ingredientSwaps(ctx context.Context, plan models.MealPlan, avoid []string) []models.OptimizationSuggestion {
	averages := categoryAverages(plan.Meals)
	resolved := make(map[string]*substituteChoice)

	var out []models.OptimizationSuggestion
	for _, meal := range plan.Meals {
		for _, ingredient := range meal.Ingredients {
			if !e.isExpensive(ingredient, averages) {
				continue
			}

			key := strings.ToLower(ingredient.Name)
			choice, ok := resolved[key]
			if !ok {
				choice = e.findSubstitute(ctx, ingredient, avoid)
				resolved[key] = choice
			}
			if choice == nil {
				continue
			}

			savings := models.RoundCurrency(ingredient.EstimatedPrice * (1 - choice.priceRatio))
			if savings < minIngredientSwapSavings {
				continue
			}

			out = append(out, models.OptimizationSuggestion{
				ID:                  uuid.NewString(),
				Type:                models.SuggestionIngredientSwap,
				Title:               fmt.Sprintf("Use %s instead of %s", choice.name, ingredient.Name),
				Description:         fmt.Sprintf("%s is one of the priciest items in %s. Switching to %s saves about $%.2f.", ingredient.Name, meal.RecipeName, choice.name, savings),
				SavingsAmount:       savings,
				Priority:            priorityFor(savings),
				Difficulty:          models.DifficultyLow,
				TargetMealID:        meal.ID,
				TargetIngredient:    ingredient.Name,
				ProposedReplacement: choice.name,
				Implementation: models.Implementation{
					SkillRequired: models.SkillBeginner,
					Steps: []string{
						fmt.Sprintf("Buy %s %s instead of %s.", formatAmount(ingredient.Amount, ingredient.Unit), choice.name, ingredient.Name),
						fmt.Sprintf("Cook %s as written.", meal.RecipeName),
					},
				},
				Impact: models.Impact{
					Nutritional: models.ImpactNeutral,
					Taste:       choice.taste,
					Notes:       "substitute source: " + choice.source,
				},
			})
		}
	}
	return out
}

func (e *Engine) isExpensive(ingredient models.Ingredient, averages map[string]categoryAverage) bool {
	if ingredient.EstimatedPrice >= e.cfg.HighPriceFloor {
		return true
	}

	avg, ok := averages[ingredient.Category]
	if !ok || avg.count < 2 || avg.mean <= 0 {
		return false
	}
	return ingredient.EstimatedPrice > avg.mean*e.cfg.ExpensiveRatio
}

// findSubstitute ищет замену в таблице, затем по категории, затем у LLM.
func (e *Engine) findSubstitute(ctx context.Context, ingredient models.Ingredient, avoid []string) *substituteChoice {
	if sub, ok := lookupSubstitution(ingredient.Name); ok && !isAvoided(sub.name, avoid) {
		return &substituteChoice{name: sub.name, priceRatio: sub.priceRatio, taste: sub.taste, source: "table"}
	}

	if fallback, ok := categoryFallback[ingredient.Category]; ok {
		name := fallback.prefix + ingredient.Name
		if !isAvoided(name, avoid) && !strings.HasPrefix(strings.ToLower(ingredient.Name), strings.TrimSpace(fallback.prefix)) {
			return &substituteChoice{name: name, priceRatio: fallback.priceRatio, taste: "similar", source: "category"}
		}
	}

	if e.substitutes == nil {
		return nil
	}

	candidates, err := e.substitutes.SuggestSubstitutes(ctx, ingredient, avoid)
	if err != nil {
		e.logger.Warn("substitute lookup failed", slog.String("ingredient", ingredient.Name), slog.Any("error", err))
		return nil
	}
	for _, candidate := range candidates {
		if candidate.PriceRatio > 0 && candidate.PriceRatio < 1 && !isAvoided(candidate.Name, avoid) {
			return &substituteChoice{name: candidate.Name, priceRatio: candidate.PriceRatio, taste: candidate.Notes, source: "ai"}
		}
	}
	return nil
}

// mealReplacements запрашивает альтернативы для самых дорогих блюд параллельно.
func (e *Engine) mealReplacements(ctx context.Context, plan models.MealPlan, profile models.UserProfile) ([]models.OptimizationSuggestion, error) {
	if e.swapper == nil || len(plan.Meals) == 0 {
		return nil, nil
	}

	targets := e.replacementTargets(plan, profile)
	if len(targets) == 0 {
		return nil, nil
	}

	results := make([]*models.OptimizationSuggestion, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.MaxReplacementLookups)

	for i, meal := range targets {
		g.Go(func() error {
			replacement, err := e.swapper.SuggestMealSwap(gctx, meal, profile, []string{meal.RecipeName})
			if err != nil {
				e.logger.Warn("meal replacement lookup failed", slog.String("meal_id", meal.ID), slog.Any("error", err))
				return nil
			}

			savings := models.RoundCurrency(meal.EstimatedCost - replacement.EstimatedCost)
			if savings <= e.cfg.MinReplacementSavings {
				return nil
			}

			replacement.DayOfWeek = meal.DayOfWeek
			replacement.MealType = meal.MealType
			results[i] = &models.OptimizationSuggestion{
				ID:                  uuid.NewString(),
				Type:                models.SuggestionMealReplacement,
				Title:               fmt.Sprintf("Replace %s with %s", meal.RecipeName, replacement.RecipeName),
				Description:         fmt.Sprintf("%s costs $%.2f; %s costs $%.2f for the same %s.", meal.RecipeName, meal.EstimatedCost, replacement.RecipeName, replacement.EstimatedCost, meal.MealType),
				SavingsAmount:       savings,
				Priority:            priorityFor(savings),
				Difficulty:          models.DifficultyMedium,
				TargetMealID:        meal.ID,
				ProposedReplacement: replacement.RecipeName,
				ReplacementMeal:     &replacement,
				Implementation: models.Implementation{
					SkillRequired: skillForTime(replacement.PrepTime + replacement.CookTime),
					Steps: []string{
						fmt.Sprintf("Swap %s for %s in your plan.", meal.RecipeName, replacement.RecipeName),
						"Update your shopping list with the new ingredients.",
					},
					TimeImpact: (replacement.PrepTime + replacement.CookTime) - (meal.PrepTime + meal.CookTime),
				},
				Impact: models.Impact{
					Nutritional: models.ImpactNeutral,
					Taste:       "different recipe",
				},
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []models.OptimizationSuggestion
	for _, suggestion := range results {
		if suggestion != nil {
			out = append(out, *suggestion)
		}
	}
	return out, nil
}

// replacementTargets выбирает блюда заметно дороже среднего, либо самые дорогие при превышении бюджета.
func (e *Engine) replacementTargets(plan models.MealPlan, profile models.UserProfile) []models.Meal {
	total := models.SumMealCosts(plan.Meals)
	average := total / float64(len(plan.Meals))
	overBudget := profile.WeeklyBudget > 0 && models.ComputeBudgetStatus(total, profile.WeeklyBudget) == models.BudgetOver

	sorted := append([]models.Meal(nil), plan.Meals...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EstimatedCost > sorted[j].EstimatedCost
	})

	var targets []models.Meal
	for _, meal := range sorted {
		if len(targets) == e.cfg.MaxReplacementLookups {
			break
		}
		if overBudget || meal.EstimatedCost > average*e.cfg.ExpensiveMealRatio {
			targets = append(targets, meal)
		}
	}
	return targets
}

// portionAdjustments предлагает сократить порции до размера домохозяйства.
func (e *Engine) portionAdjustments(plan models.MealPlan, profile models.UserProfile) []models.OptimizationSuggestion {
	household := profile.HouseholdSize
	if household <= 0 {
		return nil
	}

	var out []models.OptimizationSuggestion
	for _, meal := range plan.Meals {
		if meal.Servings <= household {
			continue
		}

		savings := models.RoundCurrency(meal.EstimatedCost * float64(meal.Servings-household) / float64(meal.Servings))
		if savings <= 0 {
			continue
		}

		out = append(out, models.OptimizationSuggestion{
			ID:               uuid.NewString(),
			Type:             models.SuggestionPortionAdjustment,
			Title:            fmt.Sprintf("Cook %d servings of %s", household, meal.RecipeName),
			Description:      fmt.Sprintf("%s is planned for %d servings but the household has %d people.", meal.RecipeName, meal.Servings, household),
			SavingsAmount:    savings,
			Priority:         priorityFor(savings),
			Difficulty:       models.DifficultyLow,
			TargetMealID:     meal.ID,
			ProposedServings: household,
			Implementation: models.Implementation{
				SkillRequired: models.SkillBeginner,
				Steps: []string{
					fmt.Sprintf("Scale every ingredient of %s by %d/%d.", meal.RecipeName, household, meal.Servings),
					"Buy only the scaled quantities.",
				},
			},
			Impact: models.Impact{
				Nutritional: models.ImpactNeutral,
				Taste:       "unchanged",
				Notes:       "fewer leftovers",
			},
		})
	}
	return out
}

type ingredientUsage struct {
	name    string
	meals   int
	spend   float64
	mealIDs []string
}

// bulkPurchases предлагает оптовую закупку ингредиентов, встречающихся в трех и более блюдах.
func (e *Engine) bulkPurchases(plan models.MealPlan) []models.OptimizationSuggestion {
	usage := make(map[string]*ingredientUsage)
	var order []string

	for _, meal := range plan.Meals {
		seen := make(map[string]struct{})
		for _, ingredient := range meal.Ingredients {
			key := strings.ToLower(strings.TrimSpace(ingredient.Name))
			entry, ok := usage[key]
			if !ok {
				entry = &ingredientUsage{name: ingredient.Name}
				usage[key] = entry
				order = append(order, key)
			}
			entry.spend += ingredient.EstimatedPrice
			if _, counted := seen[key]; !counted {
				seen[key] = struct{}{}
				entry.meals++
				entry.mealIDs = append(entry.mealIDs, meal.ID)
			}
		}
	}

	var out []models.OptimizationSuggestion
	for _, key := range order {
		entry := usage[key]
		if entry.meals < bulkMinMeals {
			continue
		}

		savings := models.RoundCurrency(entry.spend * e.cfg.BulkDiscount)
		if savings <= 0 {
			continue
		}

		out = append(out, models.OptimizationSuggestion{
			ID:               uuid.NewString(),
			Type:             models.SuggestionBulkPurchase,
			Title:            fmt.Sprintf("Buy %s in bulk", entry.name),
			Description:      fmt.Sprintf("%s appears in %d meals this week ($%.2f). A bulk pack is typically %.0f%% cheaper.", entry.name, entry.meals, entry.spend, e.cfg.BulkDiscount*100),
			SavingsAmount:    savings,
			Priority:         priorityFor(savings),
			Difficulty:       models.DifficultyLow,
			TargetMealID:     entry.mealIDs[0],
			TargetIngredient: entry.name,
			Implementation: models.Implementation{
				SkillRequired: models.SkillBeginner,
				Steps: []string{
					fmt.Sprintf("Buy a bulk pack of %s for the whole week.", entry.name),
					fmt.Sprintf("Store the bulk %s properly and portion it for %d meals.", entry.name, entry.meals),
				},
			},
			Impact: models.Impact{
				Nutritional: models.ImpactNeutral,
				Taste:       "unchanged",
			},
		})
	}
	return out
}

// seasonalSwaps предлагает сезонную замену для овощей и фруктов вне сезона.
func (e *Engine) seasonalSwaps(plan models.MealPlan, avoid []string) []models.OptimizationSuggestion {
	month := planMonth(plan, e.now())

	type seasonalUsage struct {
		name   string
		spend  float64
		mealID string
		key    string
	}
	usage := make(map[string]*seasonalUsage)
	var order []string

	for _, meal := range plan.Meals {
		for _, ingredient := range meal.Ingredients {
			if ingredient.Category != "produce" || inSeason(ingredient.Name, month) {
				continue
			}
			key, _, _ := seasonFor(ingredient.Name)
			entry, ok := usage[key]
			if !ok {
				entry = &seasonalUsage{name: ingredient.Name, mealID: meal.ID, key: key}
				usage[key] = entry
				order = append(order, key)
			}
			entry.spend += ingredient.EstimatedPrice
		}
	}

	var out []models.OptimizationSuggestion
	for _, key := range order {
		entry := usage[key]
		_, season, _ := seasonFor(entry.name)

		alternative := ""
		for _, candidate := range season.alternatives {
			if inSeason(candidate, month) && !isAvoided(candidate, avoid) {
				alternative = candidate
				break
			}
		}
		if alternative == "" {
			continue
		}

		savings := models.RoundCurrency(entry.spend * e.cfg.SeasonalSavingsRate)
		if savings <= 0 {
			continue
		}

		out = append(out, models.OptimizationSuggestion{
			ID:                  uuid.NewString(),
			Type:                models.SuggestionSeasonalSwap,
			Title:               fmt.Sprintf("Swap %s for in-season %s", entry.name, alternative),
			Description:         fmt.Sprintf("%s is out of season in %s, so it costs more; %s is in season now.", entry.name, month, alternative),
			SavingsAmount:       savings,
			Priority:            priorityFor(savings),
			Difficulty:          models.DifficultyLow,
			TargetMealID:        entry.mealID,
			TargetIngredient:    entry.name,
			ProposedReplacement: alternative,
			Implementation: models.Implementation{
				SkillRequired: models.SkillBeginner,
				Steps: []string{
					fmt.Sprintf("Buy %s instead of %s while %s is out of season.", alternative, entry.name, entry.key),
					"Adjust cooking time for the new vegetable or fruit.",
				},
			},
			Impact: models.Impact{
				Nutritional: models.ImpactImproved,
				Taste:       "fresher",
				Notes:       "in-season produce is picked riper",
			},
		})
	}
	return out
}

type categoryAverage struct {
	mean  float64
	count int
}

func categoryAverages(meals []models.Meal) map[string]categoryAverage {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, meal := range meals {
		for _, ingredient := range meal.Ingredients {
			sums[ingredient.Category] += ingredient.EstimatedPrice
			counts[ingredient.Category]++
		}
	}

	out := make(map[string]categoryAverage, len(sums))
	for category, sum := range sums {
		out[category] = categoryAverage{mean: sum / float64(counts[category]), count: counts[category]}
	}
	return out
}

func formatAmount(amount float64, unit string) string {
	value := fmt.Sprintf("%.2f", amount)
	value = strings.TrimRight(strings.TrimRight(value, "0"), ".")
	if unit == "" {
		return value
	}
	return value + " " + unit
}
