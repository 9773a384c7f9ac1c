package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestComputeBudgetStatus проверяет пороги статуса бюджета.
func TestComputeBudgetStatus(t *testing.T) {
	cases := []struct {
		name   string
		total  float64
		budget float64
		want   BudgetStatus
	}{
		{"well under", 80, 100, BudgetUnder},
		{"exactly budget", 100, 100, BudgetUnder},
		{"just over", 100.01, 100, BudgetAt},
		{"tolerance edge", 105, 100, BudgetAt},
		{"past tolerance", 105.01, 100, BudgetOver},
		{"far over", 120, 100, BudgetOver},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ComputeBudgetStatus(tc.total, tc.budget))
		})
	}
}

// TestMealPlanRecalculate проверяет пересчет суммы и статуса.
func TestMealPlanRecalculate(t *testing.T) {
	plan := MealPlan{Meals: []Meal{
		{ID: "a", EstimatedCost: 10.105},
		{ID: "b", EstimatedCost: 20.2},
		{ID: "c", EstimatedCost: 5},
	}}

	plan.Recalculate(30)

	assert.InDelta(t, 35.31, plan.TotalEstimatedCost, 0.01)
	assert.Equal(t, BudgetOver, plan.BudgetStatus)

	idx, ok := plan.MealIndex("b")
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	_, ok = plan.MealIndex("missing")
	assert.False(t, ok)
}

// TestMealPlanCloneIsDeep проверяет независимость копии плана.
func TestMealPlanCloneIsDeep(t *testing.T) {
	plan := MealPlan{Meals: []Meal{{ID: "a", Ingredients: []Ingredient{{Name: "rice"}}}}}

	clone := plan.Clone()
	clone.Meals[0].Ingredients[0].Name = "quinoa"
	clone.Meals[0].RecipeName = "changed"

	assert.Equal(t, "rice", plan.Meals[0].Ingredients[0].Name)
	assert.Empty(t, plan.Meals[0].RecipeName)
}

// TestSkillRankOrder проверяет порядок уровней навыка.
func TestSkillRankOrder(t *testing.T) {
	assert.Less(t, SkillBeginner.Rank(), SkillIntermediate.Rank())
	assert.Less(t, SkillIntermediate.Rank(), SkillAdvanced.Rank())
	assert.Equal(t, 0, SkillLevel("chef").Rank())
}

// TestPriorityWeight проверяет веса приоритетов.
func TestPriorityWeight(t *testing.T) {
	assert.Equal(t, 3.0, PriorityHigh.Weight())
	assert.Equal(t, 2.0, PriorityMedium.Weight())
	assert.Equal(t, 1.0, PriorityLow.Weight())
}
