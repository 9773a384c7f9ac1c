package planner

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"example.com/ai-meal-planner/backend/internal/models"
)

const swapIngredientSample = 5

const systemPrompt = `You are a professional meal planner and home-cooking nutritionist.
You design practical weekly menus for real households: affordable, varied, and realistic for the cook's skill and available time.
Strictly respect dietary restrictions and never use an allergen.
Estimate ingredient prices in US dollars using typical supermarket prices.
Respond with JSON only, without code fences or extra text.`

// PlanRequest is the full input of a weekly plan generation.
type PlanRequest struct {
	Profile           models.UserProfile           `json:"profile"`
	Household         *models.HouseholdPreferences `json:"household,omitempty"`
	ExcludeRecipes    []string                     `json:"exclude_recipes,omitempty"`
	PantryItems       []string                     `json:"pantry_items,omitempty"`
	PreferredCuisines []string                     `json:"preferred_cuisines,omitempty"`
	WeekStartDate     time.Time                    `json:"week_start_date"`
}

type Prompt struct {
	System string
	User   string
}

// BuildPlanPrompt собирает промпт генерации недельного плана.
func BuildPlanPrompt(req PlanRequest) Prompt {
	profile := req.Profile
	household := req.Household
	if household == nil {
		household = &models.HouseholdPreferences{}
	}

	var b strings.Builder

	b.WriteString("Create a 7-day meal plan (breakfast, lunch and dinner every day) as JSON.\n\n")

	b.WriteString("Household:\n")
	fmt.Fprintf(&b, "- Household size: %d people\n", profile.HouseholdSize)
	fmt.Fprintf(&b, "- Cooking skill: %s\n", skillOrDefault(profile.CookingSkill))
	if !req.WeekStartDate.IsZero() {
		fmt.Fprintf(&b, "- Week starts: %s (%s)\n", req.WeekStartDate.Format("2006-01-02"), req.WeekStartDate.Weekday())
	}

	b.WriteString("\nBudget:\n")
	fmt.Fprintf(&b, "- Weekly grocery budget: $%.2f\n", profile.WeeklyBudget)
	fmt.Fprintf(&b, "- Daily budget: $%.2f\n", profile.WeeklyBudget/models.DaysPerWeek)
	b.WriteString("- The sum of all meal estimatedCost values must not exceed the weekly budget.\n")

	b.WriteString("\nTime limits (prep + cook minutes per meal):\n")
	fmt.Fprintf(&b, "- Weekdays: at most %s\n", minutesOrFlexible(profile.WeekdayMinutes))
	fmt.Fprintf(&b, "- Weekends: at most %s\n", minutesOrFlexible(profile.WeekendMinutes))

	restrictions := mergeUnique(profile.DietaryRestrictions, household.DietaryRestrictions)
	b.WriteString("\nDietary requirements:\n")
	fmt.Fprintf(&b, "- Dietary restrictions: %s\n", listOrNone(restrictions))
	if allergens := mergeUnique(household.Allergens); len(allergens) > 0 {
		fmt.Fprintf(&b, "- ALLERGENS (must never appear in any meal): %s\n", strings.Join(allergens, ", "))
	}
	if disliked := mergeUnique(household.DislikedIngredients); len(disliked) > 0 {
		fmt.Fprintf(&b, "- Disliked ingredients (avoid when possible): %s\n", strings.Join(disliked, ", "))
	}

	cuisines := rankCuisines(profile.CuisinePreferences, household.CuisinePreferences)
	fmt.Fprintf(&b, "- Cuisine preferences (most popular first): %s\n", listOrNone(cuisines))
	if preferred := mergeUnique(req.PreferredCuisines); len(preferred) > 0 {
		fmt.Fprintf(&b, "- Focus this week on: %s\n", strings.Join(preferred, ", "))
	}

	if len(household.NutritionTargets) > 0 {
		b.WriteString("\nNutrition targets per member (daily):\n")
		for _, target := range household.NutritionTargets {
			fmt.Fprintf(&b, "- %s: %d kcal, protein %dg, carbs %dg, fat %dg\n",
				target.MemberName, target.DailyCalories, target.ProteinGrams, target.CarbsGrams, target.FatGrams)
		}
	}

	if pantry := mergeUnique(req.PantryItems); len(pantry) > 0 {
		fmt.Fprintf(&b, "\nPantry items to use up: %s\n", strings.Join(pantry, ", "))
	}
	if excluded := mergeUnique(req.ExcludeRecipes); len(excluded) > 0 {
		fmt.Fprintf(&b, "\nDo not include these recipes: %s\n", strings.Join(excluded, ", "))
	}

	fmt.Fprintf(&b, `
Requirements:
- Output a single JSON object with a "meals" array, no code fences, no extra text.
- Provide exactly %d meals: %d days (dayOfWeek 0-6) x %d meal types (breakfast, lunch, dinner).
- Every meal serves %d people (servings = %d).
- estimatedCost is the total cost of the meal's ingredients in USD.
- Schema:
{
  "meals": [
    {
      "dayOfWeek": 0,
      "mealType": "breakfast",
      "recipeName": "Veggie Scramble",
      "description": "Eggs scrambled with peppers and spinach",
      "prepTime": 10,
      "cookTime": 10,
      "servings": %d,
      "estimatedCost": 6.5,
      "ingredients": [
        {"name": "eggs", "amount": 8, "unit": "pcs", "category": "dairy", "estimatedPrice": 2.4}
      ]
    }
  ]
}`, models.MealsPerWeek, models.DaysPerWeek, models.MealsPerDay,
		profile.HouseholdSize, profile.HouseholdSize, profile.HouseholdSize)

	return Prompt{System: systemPrompt, User: b.String()}
}

// BuildSwapPrompt собирает промпт замены одного блюда.
func BuildSwapPrompt(meal models.Meal, profile models.UserProfile, exclude []string) Prompt {
	var b strings.Builder

	b.WriteString("Suggest one replacement recipe for a meal in a weekly plan as JSON.\n\n")

	b.WriteString("Original meal:\n")
	fmt.Fprintf(&b, "- Recipe: %s\n", meal.RecipeName)
	if meal.Description != "" {
		fmt.Fprintf(&b, "- Description: %s\n", meal.Description)
	}
	fmt.Fprintf(&b, "- Meal type: %s\n", meal.MealType)
	fmt.Fprintf(&b, "- Prep time: %d min, cook time: %d min\n", meal.PrepTime, meal.CookTime)
	fmt.Fprintf(&b, "- Cost: $%.2f for %d servings\n", meal.EstimatedCost, meal.Servings)
	if names := mainIngredients(meal.Ingredients); len(names) > 0 {
		fmt.Fprintf(&b, "- Main ingredients: %s\n", strings.Join(names, ", "))
	}

	b.WriteString("\nConstraints:\n")
	fmt.Fprintf(&b, "- Dietary restrictions: %s\n", listOrNone(mergeUnique(profile.DietaryRestrictions)))
	fmt.Fprintf(&b, "- Cuisine preferences: %s\n", listOrNone(mergeUnique(profile.CuisinePreferences)))
	fmt.Fprintf(&b, "- Cooking skill: %s\n", skillOrDefault(profile.CookingSkill))
	fmt.Fprintf(&b, "- Keep the cost at or below $%.2f when possible.\n", meal.EstimatedCost)
	excluded := mergeUnique([]string{meal.RecipeName}, exclude)
	fmt.Fprintf(&b, "- Do not suggest: %s\n", strings.Join(excluded, ", "))

	fmt.Fprintf(&b, `
Requirements:
- Output a single JSON object describing one recipe, no code fences, no extra text.
- Same meal type (%s), %d servings.
- Schema:
{
  "recipeName": string,
  "description": string,
  "prepTime": integer,
  "cookTime": integer,
  "estimatedCost": number,
  "ingredients": [
    {"name": string, "amount": number, "unit": string, "category": string, "estimatedPrice": number}
  ]
}`, meal.MealType, meal.Servings)

	return Prompt{System: systemPrompt, User: b.String()}
}

// BuildInstructionsPrompt собирает промпт пошагового рецепта.
func BuildInstructionsPrompt(meal models.Meal) Prompt {
	var b strings.Builder

	fmt.Fprintf(&b, "Write step-by-step cooking instructions for %q (%d servings) as JSON.\n\n", meal.RecipeName, meal.Servings)
	if meal.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", meal.Description)
	}
	if len(meal.Ingredients) > 0 {
		b.WriteString("Ingredients:\n")
		for _, ingredient := range meal.Ingredients {
			fmt.Fprintf(&b, "- %s %s %s\n", formatAmount(ingredient.Amount), ingredient.Unit, ingredient.Name)
		}
	}

	b.WriteString(`
Requirements:
- Output JSON only, no code fences.
- Schema:
{"instructions": [string]}
- Provide 4-10 short, imperative steps.`)

	return Prompt{System: systemPrompt, User: b.String()}
}

// BuildTipsPrompt собирает промпт советов по закупке и готовке для плана.
func BuildTipsPrompt(plan models.MealPlan, profile models.UserProfile) Prompt {
	var b strings.Builder

	b.WriteString("Give practical shopping and meal-prep tips for this weekly meal plan as JSON.\n\n")
	fmt.Fprintf(&b, "Weekly budget: $%.2f, plan cost: $%.2f (%s budget)\n",
		profile.WeeklyBudget, plan.TotalEstimatedCost, plan.BudgetStatus)
	fmt.Fprintf(&b, "Household size: %d, cooking skill: %s\n", profile.HouseholdSize, skillOrDefault(profile.CookingSkill))

	b.WriteString("Meals:\n")
	for _, meal := range sortedMeals(plan.Meals) {
		fmt.Fprintf(&b, "- day %d %s: %s ($%.2f)\n", meal.DayOfWeek, meal.MealType, meal.RecipeName, meal.EstimatedCost)
	}

	b.WriteString(`
Requirements:
- Output JSON only, no code fences.
- Schema:
{"tips": [string]}
- Provide 3-6 actionable tips.`)

	return Prompt{System: systemPrompt, User: b.String()}
}

// BuildSubstitutesPrompt собирает промпт поиска более дешевых замен ингредиента.
func BuildSubstitutesPrompt(ingredient models.Ingredient, avoid []string) Prompt {
	var b strings.Builder

	fmt.Fprintf(&b, "Suggest cheaper substitutes for the ingredient %q (%s, about $%.2f) as JSON.\n",
		ingredient.Name, categoryOrDefault(ingredient.Category), ingredient.EstimatedPrice)
	if avoided := mergeUnique(avoid); len(avoided) > 0 {
		fmt.Fprintf(&b, "Never suggest: %s\n", strings.Join(avoided, ", "))
	}

	b.WriteString(`
Requirements:
- Output a JSON array only, no code fences.
- Schema:
[{"name": string, "priceRatio": number, "notes": string}]
- priceRatio is the substitute price divided by the original price, below 1.
- Provide 1-3 substitutes ordered from best to worst.`)

	return Prompt{System: systemPrompt, User: b.String()}
}

// rankCuisines упорядочивает кухни по популярности в домохозяйстве.
func rankCuisines(profile []string, histogram map[string]int) []string {
	if len(histogram) == 0 {
		return mergeUnique(profile)
	}

	ranked := make([]string, 0, len(histogram))
	for cuisine := range histogram {
		ranked = append(ranked, cuisine)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if histogram[ranked[i]] != histogram[ranked[j]] {
			return histogram[ranked[i]] > histogram[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})

	return mergeUnique(ranked, profile)
}

// mergeUnique объединяет списки без повторов, сохраняя порядок первого появления.
func mergeUnique(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string

	for _, list := range lists {
		for _, value := range list {
			value = strings.TrimSpace(value)
			key := strings.ToLower(value)
			if value == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, value)
		}
	}

	return out
}

func mainIngredients(ingredients []models.Ingredient) []string {
	sorted := append([]models.Ingredient(nil), ingredients...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EstimatedPrice > sorted[j].EstimatedPrice
	})

	names := make([]string, 0, swapIngredientSample)
	for _, ingredient := range sorted {
		if len(names) == swapIngredientSample {
			break
		}
		names = append(names, ingredient.Name)
	}
	return names
}

func sortedMeals(meals []models.Meal) []models.Meal {
	sorted := append([]models.Meal(nil), meals...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].DayOfWeek != sorted[j].DayOfWeek {
			return sorted[i].DayOfWeek < sorted[j].DayOfWeek
		}
		return mealTypeOrder(sorted[i].MealType) < mealTypeOrder(sorted[j].MealType)
	})
	return sorted
}

func mealTypeOrder(t models.MealType) int {
	for i, known := range models.MealTypes {
		if known == t {
			return i
		}
	}
	return len(models.MealTypes)
}

func listOrNone(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	return strings.Join(values, ", ")
}

func skillOrDefault(skill models.SkillLevel) models.SkillLevel {
	if skill == "" {
		return models.SkillBeginner
	}
	return skill
}

func minutesOrFlexible(minutes int) string {
	if minutes <= 0 {
		return "flexible"
	}
	return fmt.Sprintf("%d minutes", minutes)
}

func categoryOrDefault(category string) string {
	if category == "" {
		return "other"
	}
	return category
}

func formatAmount(amount float64) string {
	if amount == float64(int64(amount)) {
		return fmt.Sprintf("%d", int64(amount))
	}
	return fmt.Sprintf("%.2f", amount)
}
