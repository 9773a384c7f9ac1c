package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"example.com/ai-meal-planner/backend/internal/ai"
	"example.com/ai-meal-planner/backend/internal/models"
)

var testNow = time.Date(2024, 3, 14, 15, 30, 0, 0, time.UTC)

// scriptedClient returns the scripted replies in order and repeats the last one.
type scriptedClient struct {
	mu       sync.Mutex
	replies  []string
	err      error
	requests []ai.Request
}

func (c *scriptedClient) Chat(_ context.Context, request ai.Request) (ai.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests = append(c.requests, request)
	if c.err != nil {
		return ai.Response{}, c.err
	}

	idx := len(c.requests) - 1
	if idx >= len(c.replies) {
		idx = len(c.replies) - 1
	}
	return ai.Response{Content: c.replies[idx], Raw: []byte(c.replies[idx])}, nil
}

func (c *scriptedClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func (c *scriptedClient) UserPrompt(i int) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests[i].Messages[len(c.requests[i].Messages)-1].Content
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (a *recordingAudit) LogRequest(_ context.Context, entry AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

// planReply строит ответ модели с блюдами заданной стоимости (по три на день).
func planReply(costs []float64) string {
	meals := make([]map[string]any, 0, len(costs))
	for i, cost := range costs {
		meals = append(meals, map[string]any{
			"dayOfWeek":     i / models.MealsPerDay,
			"mealType":      models.MealTypes[i%models.MealsPerDay],
			"recipeName":    fmt.Sprintf("Test Recipe %d", i),
			"description":   "test meal",
			"prepTime":      10,
			"cookTime":      20,
			"servings":      4,
			"estimatedCost": cost,
			"ingredients": []map[string]any{
				{"name": "rice", "amount": 200, "unit": "g", "category": "grains", "estimatedPrice": cost},
			},
		})
	}

	payload, _ := json.Marshal(map[string]any{"meals": meals})
	return "Here is your plan:\n```json\n" + string(payload) + "\n```"
}

func uniformCosts(n int, cost float64) []float64 {
	costs := make([]float64, n)
	for i := range costs {
		costs[i] = cost
	}
	return costs
}

// costsTotaling возвращает 21 стоимость с заданной суммой.
func costsTotaling(total float64) []float64 {
	costs := uniformCosts(models.MealsPerWeek, 5)
	costs[len(costs)-1] = total - 5*float64(models.MealsPerWeek-1)
	return costs
}

func testProfile(budget float64) models.UserProfile {
	return models.UserProfile{
		UserID:              uuid.MustParse("6f1c1a3e-2b7d-4c55-9e0a-0d6f3c1b2a11"),
		HouseholdSize:       4,
		DietaryRestrictions: []string{"vegetarian"},
		CuisinePreferences:  []string{"italian", "mexican"},
		CookingSkill:        models.SkillIntermediate,
		WeeklyBudget:        budget,
		WeekdayMinutes:      30,
		WeekendMinutes:      60,
	}
}

func fixedNow() time.Time {
	return testNow
}
