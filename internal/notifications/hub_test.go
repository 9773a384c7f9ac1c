package notifications

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/ai-meal-planner/backend/internal/models"
)

// TestHubPublishSubscribe проверяет доставку событий подписчику.
func TestHubPublishSubscribe(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()

	ch, unsubscribe := hub.Subscribe(userID)
	defer unsubscribe()

	plan := models.MealPlan{
		ID:                 uuid.New(),
		WeekStartDate:      time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Meals:              make([]models.Meal, models.MealsPerWeek),
		TotalEstimatedCost: 98.5,
		BudgetStatus:       models.BudgetUnder,
	}
	hub.Publish(userID, PlanGenerated(plan))

	select {
	case event := <-ch:
		assert.Equal(t, EventPlanGenerated, event.Type)
		assert.False(t, event.Timestamp.IsZero())

		summary, ok := event.Data.(PlanSummary)
		require.True(t, ok)
		assert.Equal(t, plan.ID, summary.PlanID)
		assert.Equal(t, "2024-03-15", summary.WeekStartDate)
		assert.Equal(t, models.MealsPerWeek, summary.Meals)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected event to be delivered")
	}
}

// TestHubIsolatesUsers проверяет, что события не уходят чужим подписчикам.
func TestHubIsolatesUsers(t *testing.T) {
	hub := NewHub()
	owner, stranger := uuid.New(), uuid.New()

	ch, unsubscribe := hub.Subscribe(stranger)
	defer unsubscribe()

	hub.Publish(owner, Event{Type: EventMealSwapped})

	select {
	case event := <-ch:
		t.Fatalf("unexpected event %s", event.Type)
	default:
	}
}

// TestHubDropsWhenFull проверяет, что переполненный подписчик не блокирует публикацию.
func TestHubDropsWhenFull(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()

	ch, unsubscribe := hub.Subscribe(userID)
	defer unsubscribe()

	for i := 0; i < subscriberBuffer*2; i++ {
		hub.Publish(userID, Event{Type: EventPlanOptimized})
	}

	assert.Len(t, ch, subscriberBuffer)
}

// TestHubUnsubscribe проверяет закрытие канала после отписки.
func TestHubUnsubscribe(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()

	ch, unsubscribe := hub.Subscribe(userID)
	unsubscribe()
	unsubscribe()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Zero(t, hub.Subscribers(userID))
}

// TestNilHubPublish проверяет, что публикация в nil-хаб безопасна.
func TestNilHubPublish(t *testing.T) {
	var hub *Hub
	assert.NotPanics(t, func() { hub.Publish(uuid.New(), Event{Type: EventPlanGenerated}) })
}
