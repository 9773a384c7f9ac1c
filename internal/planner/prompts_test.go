package planner

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/ai-meal-planner/backend/internal/models"
)

// TestBuildPlanPromptIsDeterministic проверяет детерминированность промпта.
func TestBuildPlanPromptIsDeterministic(t *testing.T) {
	req := PlanRequest{
		Profile: testProfile(150),
		Household: &models.HouseholdPreferences{
			CuisinePreferences: map[string]int{"thai": 1, "italian": 3, "mexican": 2, "greek": 2},
		},
		WeekStartDate: time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC),
	}

	first := BuildPlanPrompt(req)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, BuildPlanPrompt(req))
	}
}

// TestBuildPlanPromptContent проверяет ключевые элементы промпта генерации плана.
func TestBuildPlanPromptContent(t *testing.T) {
	req := PlanRequest{
		Profile: testProfile(140),
		Household: &models.HouseholdPreferences{
			DietaryRestrictions: []string{"Vegetarian", "gluten-free"},
			Allergens:           []string{"peanuts"},
			DislikedIngredients: []string{"olives"},
			CuisinePreferences:  map[string]int{"thai": 1, "italian": 3, "mexican": 2},
			NutritionTargets: []models.NutritionTarget{
				{MemberName: "Ann", DailyCalories: 2000, ProteinGrams: 90, CarbsGrams: 220, FatGrams: 70},
			},
		},
		PantryItems:    []string{"rice", "black beans"},
		ExcludeRecipes: []string{"Lentil Soup"},
	}

	prompt := BuildPlanPrompt(req)

	assert.Contains(t, prompt.System, "JSON only")
	assert.Contains(t, prompt.User, "Household size: 4 people")
	assert.Contains(t, prompt.User, "Dietary restrictions: vegetarian, gluten-free")
	assert.Contains(t, prompt.User, "ALLERGENS (must never appear in any meal): peanuts")
	assert.Contains(t, prompt.User, "Disliked ingredients (avoid when possible): olives")
	assert.Contains(t, prompt.User, "Cuisine preferences (most popular first): italian, mexican, thai")
	assert.Contains(t, prompt.User, "Weekly grocery budget: $140.00")
	assert.Contains(t, prompt.User, "Daily budget: $20.00")
	assert.Contains(t, prompt.User, "Weekdays: at most 30 minutes")
	assert.Contains(t, prompt.User, "Weekends: at most 60 minutes")
	assert.Contains(t, prompt.User, "Ann: 2000 kcal")
	assert.Contains(t, prompt.User, "Pantry items to use up: rice, black beans")
	assert.Contains(t, prompt.User, "Do not include these recipes: Lentil Soup")
	assert.Contains(t, prompt.User, "exactly 21 meals")
	assert.Contains(t, prompt.User, `"meals"`)
}

// TestBuildPlanPromptFallsBackToProfileCuisines проверяет порядок кухонь без данных домохозяйства.
func TestBuildPlanPromptFallsBackToProfileCuisines(t *testing.T) {
	prompt := BuildPlanPrompt(PlanRequest{Profile: testProfile(100)})

	assert.Contains(t, prompt.User, "Cuisine preferences (most popular first): italian, mexican")
	assert.NotContains(t, prompt.User, "ALLERGENS")
	assert.NotContains(t, prompt.User, "Pantry items")
}

// TestBuildSwapPrompt проверяет промпт замены блюда.
func TestBuildSwapPrompt(t *testing.T) {
	meal := models.Meal{
		RecipeName:    "Mushroom Risotto",
		Description:   "Creamy rice",
		MealType:      models.MealTypeDinner,
		PrepTime:      10,
		CookTime:      35,
		Servings:      4,
		EstimatedCost: 9.7,
		Ingredients: []models.Ingredient{
			{Name: "onion", EstimatedPrice: 0.4},
			{Name: "mushrooms", EstimatedPrice: 3},
			{Name: "arborio rice", EstimatedPrice: 2.2},
		},
	}

	prompt := BuildSwapPrompt(meal, testProfile(150), []string{"Pasta Bake"})

	assert.Contains(t, prompt.User, "Recipe: Mushroom Risotto")
	assert.Contains(t, prompt.User, "Description: Creamy rice")
	assert.Contains(t, prompt.User, "Meal type: dinner")
	assert.Contains(t, prompt.User, "Prep time: 10 min, cook time: 35 min")
	assert.Contains(t, prompt.User, "Cost: $9.70 for 4 servings")
	assert.Contains(t, prompt.User, "Main ingredients: mushrooms, arborio rice, onion")
	assert.Contains(t, prompt.User, "Do not suggest: Mushroom Risotto, Pasta Bake")
	assert.Contains(t, prompt.User, "single JSON object")
}

// TestMergeUnique проверяет объединение без повторов.
func TestMergeUnique(t *testing.T) {
	got := mergeUnique([]string{"Vegan", " vegan ", ""}, []string{"gluten-free", "VEGAN"})
	require.Len(t, got, 2)
	assert.Equal(t, []string{"Vegan", "gluten-free"}, got)
}

// TestAuxiliaryPrompts проверяет промпты рецепта, советов и замен.
func TestAuxiliaryPrompts(t *testing.T) {
	meal := models.Meal{
		RecipeName: "Lentil Soup",
		Servings:   4,
		Ingredients: []models.Ingredient{
			{Name: "red lentils", Amount: 300, Unit: "g"},
			{Name: "vegetable broth", Amount: 1.5, Unit: "l"},
		},
	}

	instructions := BuildInstructionsPrompt(meal)
	assert.Contains(t, instructions.User, `"Lentil Soup"`)
	assert.Contains(t, instructions.User, "- 300 g red lentils")
	assert.Contains(t, instructions.User, "- 1.50 l vegetable broth")

	plan := models.MealPlan{
		Meals: []models.Meal{
			{DayOfWeek: 1, MealType: models.MealTypeDinner, RecipeName: "B"},
			{DayOfWeek: 0, MealType: models.MealTypeLunch, RecipeName: "A"},
		},
		TotalEstimatedCost: 50,
		BudgetStatus:       models.BudgetUnder,
	}
	tips := BuildTipsPrompt(plan, testProfile(100))
	assert.Less(t, strings.Index(tips.User, "day 0 lunch: A"), strings.Index(tips.User, "day 1 dinner: B"))
	assert.Contains(t, tips.User, `{"tips": [string]}`)

	substitutes := BuildSubstitutesPrompt(models.Ingredient{Name: "pine nuts", Category: "pantry", EstimatedPrice: 6}, []string{"peanuts"})
	assert.Contains(t, substitutes.User, `"pine nuts"`)
	assert.Contains(t, substitutes.User, "Never suggest: peanuts")
	assert.Contains(t, substitutes.User, "JSON array")
}
