package notifications

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"example.com/ai-meal-planner/backend/internal/models"
)

const (
	EventConnected     = "connected"
	EventPlanGenerated = "plan_generated"
	EventMealSwapped   = "meal_swapped"
	EventPlanOptimized = "plan_optimized"

	subscriberBuffer = 16
)

type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// Hub раздает события планов подписчикам SSE. Медленный подписчик теряет события, а не блокирует публикацию.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]map[chan Event]struct{}
	now         func() time.Time
}

// NewHub создает хаб для SSE-подписок.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[uuid.UUID]map[chan Event]struct{}),
		now:         time.Now,
	}
}

// Subscribe подписывает пользователя на события и возвращает канал и функцию отписки.
func (h *Hub) Subscribe(userID uuid.UUID) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()

	userSubs, ok := h.subscribers[userID]
	if !ok {
		userSubs = make(map[chan Event]struct{})
		h.subscribers[userID] = userSubs
	}
	userSubs[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()

			if subs, exists := h.subscribers[userID]; exists {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(h.subscribers, userID)
				}
			}
			close(ch)
		})
	}
}

// Publish отправляет событие всем подписчикам пользователя. Nil-хаб ничего не делает.
func (h *Hub) Publish(userID uuid.UUID, event Event) {
	if h == nil {
		return
	}
	event.Timestamp = h.now().UTC()

	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[userID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribers возвращает число активных подписок пользователя.
func (h *Hub) Subscribers(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[userID])
}

type PlanSummary struct {
	PlanID             uuid.UUID           `json:"plan_id"`
	WeekStartDate      string              `json:"week_start_date"`
	Meals              int                 `json:"meals"`
	TotalEstimatedCost float64             `json:"total_estimated_cost"`
	BudgetStatus       models.BudgetStatus `json:"budget_status"`
}

// PlanGenerated сообщает о новом сохраненном плане.
func PlanGenerated(plan models.MealPlan) Event {
	return Event{Type: EventPlanGenerated, Data: summarize(plan)}
}

// MealSwapped сообщает о замене блюда в плане.
func MealSwapped(plan models.MealPlan, previousMealID string, meal models.Meal) Event {
	return Event{
		Type: EventMealSwapped,
		Data: map[string]any{
			"plan":             summarize(plan),
			"previous_meal_id": previousMealID,
			"meal_id":          meal.ID,
			"recipe_name":      meal.RecipeName,
		},
	}
}

// PlanOptimized сообщает о применении оптимизаций.
func PlanOptimized(plan models.MealPlan, applied int, savings float64) Event {
	return Event{
		Type: EventPlanOptimized,
		Data: map[string]any{
			"plan":          summarize(plan),
			"applied":       applied,
			"total_savings": savings,
		},
	}
}

func summarize(plan models.MealPlan) PlanSummary {
	return PlanSummary{
		PlanID:             plan.ID,
		WeekStartDate:      plan.WeekStartDate.Format(time.DateOnly),
		Meals:              len(plan.Meals),
		TotalEstimatedCost: plan.TotalEstimatedCost,
		BudgetStatus:       plan.BudgetStatus,
	}
}
