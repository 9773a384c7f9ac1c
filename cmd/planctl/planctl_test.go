package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/ai-meal-planner/backend/internal/auth"
	"example.com/ai-meal-planner/backend/internal/models"
	"example.com/ai-meal-planner/backend/internal/optimizer"
)

const profileYAML = `
user_id: 6f1f7b1e-2c4a-4d8e-9a51-3b2f0c9d7e11
household_size: 2
dietary_restrictions: [vegetarian]
cuisine_preferences: [italian]
cooking_skill: intermediate
weekly_budget: 90
weekday_minutes: 30
weekend_minutes: 60
`

const householdYAML = `
members:
  - name: Ann
    allergens: [Peanuts]
    cuisine_preferences: [Italian, thai]
    daily_calories: 1800
  - name: Bob
    allergens: [peanuts, shellfish]
    disliked_ingredients: [olives]
    cuisine_preferences: [italian]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) []byte {
	t.Helper()

	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.Bytes()
}

func mockEnv(t *testing.T) {
	t.Helper()

	t.Setenv("ENV_FILE", "")
	t.Setenv("AI_PROVIDER", "groq")
	t.Setenv("PLANNER_USE_MOCK", "true")
}

// TestLoadProfile проверяет чтение профиля и значения по умолчанию.
func TestLoadProfile(t *testing.T) {
	profile, err := loadProfile(writeFile(t, "profile.yaml", profileYAML))
	require.NoError(t, err)

	assert.Equal(t, uuid.MustParse("6f1f7b1e-2c4a-4d8e-9a51-3b2f0c9d7e11"), profile.UserID)
	assert.Equal(t, 2, profile.HouseholdSize)
	assert.Equal(t, models.SkillIntermediate, profile.CookingSkill)
	assert.InDelta(t, 90.0, profile.WeeklyBudget, 1e-9)

	_, err = loadProfile(writeFile(t, "bad.yaml", "household_size: 0\nweekly_budget: 10\n"))
	assert.Error(t, err)
}

// TestLoadHousehold проверяет сведение предпочтений членов семьи.
func TestLoadHousehold(t *testing.T) {
	household, err := loadHousehold(writeFile(t, "household.yaml", householdYAML), uuid.New())
	require.NoError(t, err)
	require.NotNil(t, household)

	assert.Equal(t, []string{"Peanuts", "shellfish"}, household.Allergens)
	assert.Equal(t, []string{"olives"}, household.DislikedIngredients)
	assert.Equal(t, 2, household.CuisinePreferences["italian"])
	assert.Equal(t, 1, household.CuisinePreferences["thai"])
	require.Len(t, household.NutritionTargets, 1)
	assert.Equal(t, "Ann", household.NutritionTargets[0].MemberName)
}

// TestGenerateAndOptimize проверяет полный цикл CLI в режиме мока.
func TestGenerateAndOptimize(t *testing.T) {
	mockEnv(t)
	profilePath := writeFile(t, "profile.yaml", profileYAML)

	output := run(t, "generate", "--profile", profilePath, "--week-start", "2024-03-18")

	var plan models.MealPlan
	require.NoError(t, json.Unmarshal(output, &plan))
	require.Len(t, plan.Meals, models.MealsPerWeek)
	assert.Equal(t, "2024-03-18", plan.WeekStartDate.Format(dateLayout))
	assert.InDelta(t, models.SumMealCosts(plan.Meals), plan.TotalEstimatedCost, 0.01)

	planPath := writeFile(t, "plan.json", string(output))

	var suggested suggestionsOutput
	require.NoError(t, json.Unmarshal(run(t, "optimize", "--profile", profilePath, "--plan", planPath), &suggested))
	assert.Equal(t, plan.ID, suggested.PlanID)

	var result optimizer.Result
	require.NoError(t, json.Unmarshal(run(t, "optimize", "--profile", profilePath, "--plan", planPath, "--apply", "--advanced"), &result))
	assert.InDelta(t, models.SumMealCosts(result.OptimizedMealPlan.Meals), result.OptimizedMealPlan.TotalEstimatedCost, 0.01)
	assert.LessOrEqual(t, result.OptimizedCost, result.OriginalCost+0.01)
}

// TestTokenCommand проверяет, что выданный токен принимает сервер.
func TestTokenCommand(t *testing.T) {
	userID := uuid.New()
	output := run(t, "token", "--secret", "secret", "--issuer", "meal-planner", "--user", userID.String())

	var issued struct {
		UserID      uuid.UUID `json:"user_id"`
		AccessToken string    `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(output, &issued))
	assert.Equal(t, userID, issued.UserID)

	claims, err := auth.NewTokenManager("secret", "meal-planner").ParseAccessToken(issued.AccessToken)
	require.NoError(t, err)
	parsed, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, parsed)
}
