package planner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/ai-meal-planner/backend/internal/ai"
	"example.com/ai-meal-planner/backend/internal/cache"
	"example.com/ai-meal-planner/backend/internal/models"
)

func newLiveService(t *testing.T, client *scriptedClient, opts Options) (*Service, *MemoryStore) {
	t.Helper()

	generator := NewLiveGenerator(client, ai.DefaultSampling(), nil, nil)
	generator.now = fixedNow

	store := NewMemoryStore()
	service := NewService(generator, store, opts)
	service.now = fixedNow
	return service, store
}

// TestGeneratePlanWithMockGenerator проверяет план из 21 блюда для вегетарианского профиля.
func TestGeneratePlanWithMockGenerator(t *testing.T) {
	generator := NewMockGenerator()
	generator.now = fixedNow
	store := NewMemoryStore()
	service := NewService(generator, store, Options{})
	service.now = fixedNow

	profile := testProfile(150)
	plan, err := service.GeneratePlan(context.Background(), PlanRequest{Profile: profile})
	require.NoError(t, err)

	require.Len(t, plan.Meals, models.MealsPerWeek)
	slots := make(map[int]map[models.MealType]bool)
	var total float64
	for _, meal := range plan.Meals {
		if slots[meal.DayOfWeek] == nil {
			slots[meal.DayOfWeek] = make(map[models.MealType]bool)
		}
		slots[meal.DayOfWeek][meal.MealType] = true
		total += meal.EstimatedCost
		assert.NotContains(t, []string{"Chicken Curry", "Tuna Melt", "Bacon and Egg Muffins"}, meal.RecipeName)
	}
	for day := 0; day < models.DaysPerWeek; day++ {
		for _, mealType := range models.MealTypes {
			assert.True(t, slots[day][mealType], "missing day %d %s", day, mealType)
		}
	}
	assert.InDelta(t, total, plan.TotalEstimatedCost, 0.01)
	assert.Equal(t, models.ComputeBudgetStatus(plan.TotalEstimatedCost, 150), plan.BudgetStatus)

	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), plan.WeekStartDate)
	assert.Equal(t, profile.UserID, plan.UserID)

	stored, err := store.Get(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.Meals, stored.Meals)
}

// TestGeneratePlanUsesCache проверяет, что повторный запрос обслуживается из кэша.
func TestGeneratePlanUsesCache(t *testing.T) {
	client := &scriptedClient{replies: []string{planReply(uniformCosts(models.MealsPerWeek, 6))}}
	service, _ := newLiveService(t, client, Options{Cache: cache.NewMemoryCache(30 * time.Minute)})

	req := PlanRequest{Profile: testProfile(150)}

	first, err := service.GeneratePlan(context.Background(), req)
	require.NoError(t, err)
	second, err := service.GeneratePlan(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, client.Calls())
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Meals, second.Meals)
	assert.InDelta(t, first.TotalEstimatedCost, second.TotalEstimatedCost, 0.0001)
}

// TestGeneratePlanCacheAfterDelete проверяет, что удаленный план не отдается из кэша.
func TestGeneratePlanCacheAfterDelete(t *testing.T) {
	client := &scriptedClient{replies: []string{planReply(uniformCosts(models.MealsPerWeek, 6))}}
	service, _ := newLiveService(t, client, Options{Cache: cache.NewMemoryCache(30 * time.Minute)})

	profile := testProfile(150)
	req := PlanRequest{Profile: profile}

	first, err := service.GeneratePlan(context.Background(), req)
	require.NoError(t, err)
	require.NoError(t, service.DeletePlan(context.Background(), profile.UserID, first.ID))

	second, err := service.GeneratePlan(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 2, client.Calls())
	assert.NotEqual(t, first.ID, second.ID)

	stored, err := service.GetPlan(context.Background(), profile.UserID, second.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Meals, models.MealsPerWeek)

	third, err := service.GeneratePlan(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, second.ID, third.ID)
	assert.Equal(t, 2, client.Calls())
}

// TestGeneratePlanCacheReturnsStoredChanges проверяет, что из кэша отдается текущая версия плана.
func TestGeneratePlanCacheReturnsStoredChanges(t *testing.T) {
	client := &scriptedClient{replies: []string{planReply(uniformCosts(models.MealsPerWeek, 6))}}
	service, _ := newLiveService(t, client, Options{Cache: cache.NewMemoryCache(30 * time.Minute)})

	req := PlanRequest{Profile: testProfile(150)}

	plan, err := service.GeneratePlan(context.Background(), req)
	require.NoError(t, err)

	plan.Meals[0].RecipeName = "Leftover Pasta"
	plan.Meals[0].EstimatedCost = 1
	plan.TotalEstimatedCost = models.SumMealCosts(plan.Meals)
	require.NoError(t, service.SavePlanChanges(context.Background(), plan))

	again, err := service.GeneratePlan(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, client.Calls())
	assert.Equal(t, plan.ID, again.ID)
	assert.Equal(t, "Leftover Pasta", again.Meals[0].RecipeName)
	assert.InDelta(t, plan.TotalEstimatedCost, again.TotalEstimatedCost, 0.01)
}

// TestGeneratePlanWithoutCacheCallsEveryTime проверяет работу без кэша.
func TestGeneratePlanWithoutCacheCallsEveryTime(t *testing.T) {
	client := &scriptedClient{replies: []string{planReply(uniformCosts(models.MealsPerWeek, 6))}}
	service, _ := newLiveService(t, client, Options{})

	req := PlanRequest{Profile: testProfile(150)}
	_, err := service.GeneratePlan(context.Background(), req)
	require.NoError(t, err)
	_, err = service.GeneratePlan(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 2, client.Calls())
}

// TestRenegotiationExhaustsAttempts проверяет возврат последнего плана после исчерпания попыток.
func TestRenegotiationExhaustsAttempts(t *testing.T) {
	client := &scriptedClient{replies: []string{planReply(costsTotaling(120))}}
	service, store := newLiveService(t, client, Options{MaxRenegotiations: 3})

	plan, err := service.GeneratePlan(context.Background(), PlanRequest{Profile: testProfile(100)})
	require.NoError(t, err)

	assert.Equal(t, 4, client.Calls())
	assert.Equal(t, models.BudgetOver, plan.BudgetStatus)
	assert.InDelta(t, 120, plan.TotalEstimatedCost, 0.001)

	assert.Contains(t, client.UserPrompt(0), "Weekly grocery budget: $100.00")
	for i := 1; i < 4; i++ {
		assert.Contains(t, client.UserPrompt(i), "Weekly grocery budget: $90.00")
	}

	plans, err := store.ListByUser(context.Background(), plan.UserID)
	require.NoError(t, err)
	assert.Len(t, plans, 1)
}

// TestRenegotiationStopsWhenWithinBudget проверяет остановку после первого плана в бюджете.
func TestRenegotiationStopsWhenWithinBudget(t *testing.T) {
	client := &scriptedClient{replies: []string{
		planReply(costsTotaling(120)),
		planReply(costsTotaling(104)),
	}}
	service, _ := newLiveService(t, client, Options{})

	plan, err := service.GeneratePlan(context.Background(), PlanRequest{Profile: testProfile(100)})
	require.NoError(t, err)

	assert.Equal(t, 2, client.Calls())
	assert.Equal(t, models.BudgetAt, plan.BudgetStatus)
	assert.InDelta(t, 104, plan.TotalEstimatedCost, 0.001)
}

// TestRenegotiationDisabled проверяет отключение пересогласования.
func TestRenegotiationDisabled(t *testing.T) {
	client := &scriptedClient{replies: []string{planReply(costsTotaling(120))}}
	service, _ := newLiveService(t, client, Options{DisableRenegotiation: true})

	plan, err := service.GeneratePlan(context.Background(), PlanRequest{Profile: testProfile(100)})
	require.NoError(t, err)

	assert.Equal(t, 1, client.Calls())
	assert.Equal(t, models.BudgetOver, plan.BudgetStatus)
}

// TestRenegotiationFailureKeepsLastPlan проверяет, что ошибка повторной генерации не теряет план.
func TestRenegotiationFailureKeepsLastPlan(t *testing.T) {
	client := &scriptedClient{replies: []string{planReply(costsTotaling(120)), "no json here"}}
	service, _ := newLiveService(t, client, Options{})

	plan, err := service.GeneratePlan(context.Background(), PlanRequest{Profile: testProfile(100)})
	require.NoError(t, err)

	assert.Equal(t, 2, client.Calls())
	assert.InDelta(t, 120, plan.TotalEstimatedCost, 0.001)
}

// TestGeneratePlanErrorTaxonomy проверяет классификацию ошибок генерации.
func TestGeneratePlanErrorTaxonomy(t *testing.T) {
	cases := []struct {
		name  string
		reply string
		err   error
		want  error
	}{
		{"busy upstream", "", &ai.APIError{Provider: "groq", StatusCode: 503, Message: "overloaded"}, ErrServiceUnavailable},
		{"bad credentials", "", &ai.APIError{Provider: "groq", StatusCode: 401, Message: "invalid key"}, ErrConfiguration},
		{"missing key", "", ai.ErrMissingAPIKey, ErrConfiguration},
		{"malformed output", "I'm sorry, I can't.", nil, ErrInvalidFormat},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := &scriptedClient{replies: []string{tc.reply}, err: tc.err}
			service, _ := newLiveService(t, client, Options{})

			_, err := service.GeneratePlan(context.Background(), PlanRequest{Profile: testProfile(100)})
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

// TestGeneratePlanRejectsInvalidProfile проверяет валидацию профиля.
func TestGeneratePlanRejectsInvalidProfile(t *testing.T) {
	service := NewService(NewMockGenerator(), NewMemoryStore(), Options{})

	profile := testProfile(0)
	_, err := service.GeneratePlan(context.Background(), PlanRequest{Profile: profile})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

type staticHousehold struct {
	prefs *models.HouseholdPreferences
	err   error
}

func (h staticHousehold) GetHouseholdPreferences(context.Context, uuid.UUID) (*models.HouseholdPreferences, error) {
	return h.prefs, h.err
}

// TestGeneratePlanLoadsHousehold проверяет подмешивание предпочтений домохозяйства.
func TestGeneratePlanLoadsHousehold(t *testing.T) {
	client := &scriptedClient{replies: []string{planReply(uniformCosts(models.MealsPerWeek, 4))}}
	service, _ := newLiveService(t, client, Options{
		Households: staticHousehold{prefs: &models.HouseholdPreferences{Allergens: []string{"shellfish"}}},
	})

	_, err := service.GeneratePlan(context.Background(), PlanRequest{Profile: testProfile(150)})
	require.NoError(t, err)
	assert.Contains(t, client.UserPrompt(0), "ALLERGENS (must never appear in any meal): shellfish")

	failing, _ := newLiveService(t, client, Options{Households: staticHousehold{err: errors.New("db down")}})
	_, err = failing.GeneratePlan(context.Background(), PlanRequest{Profile: testProfile(150)})
	assert.NoError(t, err)
}

// TestSuggestMealSwapPreservesSlot проверяет, что замена сохраняет день и тип блюда.
func TestSuggestMealSwapPreservesSlot(t *testing.T) {
	service := NewService(NewMockGenerator(), NewMemoryStore(), Options{})
	profile := testProfile(150)

	for _, mealType := range models.MealTypes {
		meal := models.Meal{ID: "meal-1-9", DayOfWeek: 5, MealType: mealType, RecipeName: "Something Else", Servings: 4, EstimatedCost: 20}

		swap, err := service.SuggestMealSwap(context.Background(), meal, profile, nil)
		require.NoError(t, err)
		assert.Equal(t, 5, swap.DayOfWeek)
		assert.Equal(t, mealType, swap.MealType)
		assert.Equal(t, 4, swap.Servings)
		assert.NotEqual(t, meal.RecipeName, swap.RecipeName)
	}
}

// TestSuggestMealSwapLiveCached проверяет кэширование замены по блюду и исключениям.
func TestSuggestMealSwapLiveCached(t *testing.T) {
	client := &scriptedClient{replies: []string{`{"recipeName":"Egg Fried Rice","estimatedCost":3.5,"servings":1,"mealType":"breakfast","ingredients":[]}`}}
	service, _ := newLiveService(t, client, Options{Cache: cache.NewMemoryCache(time.Minute)})

	meal := models.Meal{ID: "meal-1-4", DayOfWeek: 1, MealType: models.MealTypeLunch, RecipeName: "Tuna Melt", Servings: 4}
	first, err := service.SuggestMealSwap(context.Background(), meal, testProfile(150), []string{"Lentil Soup"})
	require.NoError(t, err)
	second, err := service.SuggestMealSwap(context.Background(), meal, testProfile(150), []string{"Lentil Soup"})
	require.NoError(t, err)

	assert.Equal(t, 1, client.Calls())
	assert.Equal(t, first, second)
	assert.Equal(t, models.MealTypeLunch, first.MealType)
	assert.Equal(t, 1, first.DayOfWeek)
	assert.Equal(t, 4, first.Servings)
}

// TestSuggestMealSwapCacheIsPerUser проверяет, что замены разных пользователей не делят кэш.
func TestSuggestMealSwapCacheIsPerUser(t *testing.T) {
	client := &scriptedClient{replies: []string{
		`{"recipeName":"Egg Fried Rice","estimatedCost":3.5,"servings":1,"mealType":"lunch","ingredients":[]}`,
		`{"recipeName":"Chickpea Wrap","estimatedCost":3,"servings":1,"mealType":"lunch","ingredients":[]}`,
	}}
	service, _ := newLiveService(t, client, Options{Cache: cache.NewMemoryCache(time.Minute)})

	meal := models.Meal{ID: "meal-1-2", DayOfWeek: 1, MealType: models.MealTypeLunch, RecipeName: "Tuna Melt", Servings: 2}
	anna, bob := testProfile(150), testProfile(150)
	bob.UserID = uuid.New()

	first, err := service.SuggestMealSwap(context.Background(), meal, anna, nil)
	require.NoError(t, err)
	second, err := service.SuggestMealSwap(context.Background(), meal, bob, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, client.Calls())
	assert.Equal(t, "Egg Fried Rice", first.RecipeName)
	assert.Equal(t, "Chickpea Wrap", second.RecipeName)
}

// TestSwapMeal проверяет замену блюда в сохраненном плане.
func TestSwapMeal(t *testing.T) {
	generator := NewMockGenerator()
	store := NewMemoryStore()
	service := NewService(generator, store, Options{})
	profile := testProfile(150)

	plan, err := service.GeneratePlan(context.Background(), PlanRequest{Profile: profile})
	require.NoError(t, err)

	target := plan.Meals[2]
	updated, err := service.SwapMeal(context.Background(), profile, plan.ID, target.ID, nil)
	require.NoError(t, err)

	swapped := updated.Meals[2]
	assert.NotEqual(t, target.RecipeName, swapped.RecipeName)
	assert.Equal(t, target.DayOfWeek, swapped.DayOfWeek)
	assert.Equal(t, target.MealType, swapped.MealType)
	assert.InDelta(t, models.SumMealCosts(updated.Meals), updated.TotalEstimatedCost, 0.01)

	stored, err := store.Get(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.Equal(t, swapped.RecipeName, stored.Meals[2].RecipeName)

	_, err = service.SwapMeal(context.Background(), profile, plan.ID, "meal-missing", nil)
	assert.ErrorIs(t, err, ErrMealNotFound)

	_, err = service.SwapMeal(context.Background(), profile, uuid.New(), target.ID, nil)
	assert.ErrorIs(t, err, ErrPlanNotFound)

	stranger := profile
	stranger.UserID = uuid.New()
	_, err = service.SwapMeal(context.Background(), stranger, plan.ID, target.ID, nil)
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

type stubRecipes struct {
	steps []string
	err   error
}

func (r stubRecipes) GetRecipeInstructions(context.Context, string) ([]string, error) {
	return r.steps, r.err
}

// TestRecipeInstructionsFallback проверяет порядок источников инструкций.
func TestRecipeInstructionsFallback(t *testing.T) {
	meal := models.Meal{RecipeName: "Lentil Soup", RecipeID: "lentil-soup", Servings: 4}
	reply := `{"instructions":["Rinse lentils.","Simmer 30 minutes."]}`

	client := &scriptedClient{replies: []string{reply}}
	stored, _ := newLiveService(t, client, Options{Recipes: stubRecipes{steps: []string{"From the book."}}})
	steps, err := stored.RecipeInstructions(context.Background(), meal)
	require.NoError(t, err)
	assert.Equal(t, []string{"From the book."}, steps)
	assert.Equal(t, 0, client.Calls())

	fallback, _ := newLiveService(t, client, Options{
		Recipes: stubRecipes{err: errors.New("recipe service down")},
		Cache:   cache.NewMemoryCache(time.Minute),
	})
	steps, err = fallback.RecipeInstructions(context.Background(), meal)
	require.NoError(t, err)
	assert.Equal(t, []string{"Rinse lentils.", "Simmer 30 minutes."}, steps)

	_, err = fallback.RecipeInstructions(context.Background(), meal)
	require.NoError(t, err)
	assert.Equal(t, 1, client.Calls())
}

// TestGenerateTipsAndSubstitutes проверяет советы и фильтрацию замен.
func TestGenerateTipsAndSubstitutes(t *testing.T) {
	client := &scriptedClient{replies: []string{
		`{"tips":["Buy rice in bulk."]}`,
		`[{"name":"peanut butter","priceRatio":0.5},{"name":"sunflower seed butter","priceRatio":0.7}]`,
	}}
	audit := &recordingAudit{}
	generator := NewLiveGenerator(client, ai.DefaultSampling(), audit, nil)
	service := NewService(generator, NewMemoryStore(), Options{})

	tips, err := service.GenerateTips(context.Background(), models.MealPlan{ID: uuid.New()}, testProfile(100))
	require.NoError(t, err)
	assert.Equal(t, []string{"Buy rice in bulk."}, tips)

	substitutes, err := service.SuggestSubstitutes(context.Background(), models.Ingredient{Name: "almond butter"}, []string{"peanut"})
	require.NoError(t, err)
	require.Len(t, substitutes, 1)
	assert.Equal(t, "sunflower seed butter", substitutes[0].Name)

	require.Len(t, audit.entries, 2)
	assert.Equal(t, requestTips, audit.entries[0].RequestType)
	assert.True(t, audit.entries[0].Success)
	assert.Equal(t, requestSubstitutes, audit.entries[1].RequestType)
}

// TestDeletePlan проверяет удаление плана владельцем.
func TestDeletePlan(t *testing.T) {
	service := NewService(NewMockGenerator(), NewMemoryStore(), Options{})
	profile := testProfile(150)

	plan, err := service.GeneratePlan(context.Background(), PlanRequest{Profile: profile})
	require.NoError(t, err)

	assert.ErrorIs(t, service.DeletePlan(context.Background(), uuid.New(), plan.ID), ErrPlanNotFound)
	require.NoError(t, service.DeletePlan(context.Background(), profile.UserID, plan.ID))

	_, err = service.GetPlan(context.Background(), profile.UserID, plan.ID)
	assert.True(t, IsNotFound(err))
}
