package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/ai-meal-planner/backend/internal/models"
)

// TestExtractJSON проверяет поиск первого валидного JSON-значения.
func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		openers string
		want    string
		ok      bool
	}{
		{"plain object", `{"a":1}`, "{[", `{"a":1}`, true},
		{"surrounded by prose", "Sure! {\"a\":{\"b\":2}} Enjoy.", "{[", `{"a":{"b":2}}`, true},
		{"code fence", "```json\n[1,2]\n```", "{[", `[1,2]`, true},
		{"braces inside strings", `note {"text":"use } and { \" carefully"} end`, "{[", `{"text":"use } and { \" carefully"}`, true},
		{"first value wins", `{"a":1} {"b":2}`, "{[", `{"a":1}`, true},
		{"unbalanced then valid", `{oops ] {"a":1}`, "{[", `{"a":1}`, true},
		{"bracketed prose before object", `Here is your plan [7 days x 3 meals]: {"meals":[]}`, "{[", `{"meals":[]}`, true},
		{"braced prose before array", `Options {cheap first}: ["rice"]`, "{[", `["rice"]`, true},
		{"object only", `[1] {"a":1}`, "{", `{"a":1}`, true},
		{"array only", `{"a":1} [2]`, "[", `[2]`, true},
		{"no json", "I cannot help with that.", "{[", "", false},
		{"prose brackets only", "Plan [7 days] for {you}", "{[", "", false},
		{"unterminated", `{"a":1`, "{[", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := extractJSON(tc.input, tc.openers)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

// TestParsePlanResponse проверяет разбор плана и производные поля.
func TestParsePlanResponse(t *testing.T) {
	parsed, err := ParsePlanResponse(planReply(uniformCosts(models.MealsPerWeek, 6.5)), testNow, 150)
	require.NoError(t, err)

	require.Len(t, parsed.Meals, models.MealsPerWeek)
	assert.InDelta(t, 136.5, parsed.TotalEstimatedCost, 0.001)
	assert.Equal(t, models.BudgetUnder, parsed.BudgetStatus)

	first := parsed.Meals[0]
	assert.Equal(t, "meal-1710430200000-0", first.ID)
	assert.Equal(t, "test-recipe-0", first.RecipeID)
	assert.Equal(t, 0, first.DayOfWeek)
	assert.Equal(t, models.MealTypeBreakfast, first.MealType)
	assert.Equal(t, "meal-1710430200000-20", parsed.Meals[20].ID)
	assert.Equal(t, 6, parsed.Meals[20].DayOfWeek)
	assert.Equal(t, models.MealTypeDinner, parsed.Meals[20].MealType)
	require.Len(t, first.Ingredients, 1)
	assert.Equal(t, "grains", first.Ingredients[0].Category)

	prefixed, err := ParsePlanResponse("Here is your plan [7 days x 3 meals]:\n"+planReply(uniformCosts(models.MealsPerWeek, 6.5)), testNow, 150)
	require.NoError(t, err)
	assert.Equal(t, parsed, prefixed)
}

// TestParsePlanResponseErrors проверяет фатальные ошибки формата.
func TestParsePlanResponseErrors(t *testing.T) {
	cases := map[string]string{
		"no json":          "Sorry, I can't do that.",
		"broken json":      `{"meals": [ {"dayOfWeek": 0,, } ]}`,
		"empty meals":      `{"meals": []}`,
		"missing name":     `{"meals":[{"dayOfWeek":0,"mealType":"lunch","servings":4,"estimatedCost":5}]}`,
		"missing cost":     `{"meals":[{"dayOfWeek":0,"mealType":"lunch","servings":4,"recipeName":"Soup"}]}`,
		"missing day":      `{"meals":[{"mealType":"lunch","servings":4,"recipeName":"Soup","estimatedCost":5}]}`,
		"missing servings": `{"meals":[{"dayOfWeek":0,"mealType":"lunch","recipeName":"Soup","estimatedCost":5}]}`,
		"bad meal type":    `{"meals":[{"dayOfWeek":0,"mealType":"brunch","servings":4,"recipeName":"Soup","estimatedCost":5}]}`,
		"day out of range": `{"meals":[{"dayOfWeek":7,"mealType":"lunch","servings":4,"recipeName":"Soup","estimatedCost":5}]}`,
		"ingredient name":  `{"meals":[{"dayOfWeek":0,"mealType":"lunch","servings":4,"recipeName":"Soup","estimatedCost":5,"ingredients":[{"amount":1}]}]}`,
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePlanResponse(content, testNow, 100)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidFormat)
		})
	}
}

// TestParseSwapResponsePreservesSlot проверяет сохранение дня, типа и порций.
func TestParseSwapResponsePreservesSlot(t *testing.T) {
	original := models.Meal{ID: "meal-1-5", DayOfWeek: 3, MealType: models.MealTypeLunch, Servings: 6, RecipeName: "Tuna Melt"}
	content := `Try this: {"recipeName":"Egg Salad Sandwich","description":"Classic","prepTime":10,"cookTime":0,"servings":2,"dayOfWeek":0,"mealType":"dinner","estimatedCost":4.256,"ingredients":[{"name":"eggs","amount":6,"unit":"pcs","category":"Dairy","estimatedPrice":1.8}]}`

	meal, err := ParseSwapResponse(content, original, testNow)
	require.NoError(t, err)

	assert.Equal(t, 3, meal.DayOfWeek)
	assert.Equal(t, models.MealTypeLunch, meal.MealType)
	assert.Equal(t, 6, meal.Servings)
	assert.Equal(t, "egg-salad-sandwich", meal.RecipeID)
	assert.NotEqual(t, original.ID, meal.ID)
	assert.InDelta(t, 4.26, meal.EstimatedCost, 0.001)
	assert.Equal(t, "dairy", meal.Ingredients[0].Category)

	_, err = ParseSwapResponse(`{"description":"nameless"}`, original, testNow)
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

// TestParseListResponses проверяет разбор инструкций, советов и замен.
func TestParseListResponses(t *testing.T) {
	steps, err := ParseInstructions(`{"instructions":["Boil water.", " ", "Add pasta."]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Boil water.", "Add pasta."}, steps)

	steps, err = ParseInstructions(`Steps: ["Chop.", "Fry."]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Chop.", "Fry."}, steps)

	_, err = ParseInstructions(`{"instructions":[]}`)
	assert.ErrorIs(t, err, ErrInvalidFormat)

	tips, err := ParseTips(`{"tips":["Shop on Sunday."]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Shop on Sunday."}, tips)

	substitutes, err := ParseSubstitutes(`[{"name":"sunflower seeds","priceRatio":0.4,"notes":"toast them"}]`)
	require.NoError(t, err)
	require.Len(t, substitutes, 1)
	assert.Equal(t, "sunflower seeds", substitutes[0].Name)
	assert.InDelta(t, 0.4, substitutes[0].PriceRatio, 0.0001)

	_, err = ParseSubstitutes(`[{"name":"seeds"}]`)
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

// TestRecipeID проверяет построение идентификатора рецепта.
func TestRecipeID(t *testing.T) {
	assert.Equal(t, "bean-and-vegetable-chili", RecipeID("Bean and  Vegetable Chili "))
}
