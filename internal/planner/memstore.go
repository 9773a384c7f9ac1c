package planner

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"example.com/ai-meal-planner/backend/internal/models"
)

// MemoryStore is an in-process PlanStore.
type MemoryStore struct {
	mu    sync.RWMutex
	plans map[uuid.UUID]models.MealPlan
	now   func() time.Time
}

// NewMemoryStore создает хранилище планов в памяти.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{plans: make(map[uuid.UUID]models.MealPlan), now: time.Now}
}

// Save сохраняет план и возвращает его идентификатор.
func (m *MemoryStore) Save(_ context.Context, plan models.MealPlan) (uuid.UUID, error) {
	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.plans[plan.ID] = plan.Clone()
	return plan.ID, nil
}

// Get возвращает план по идентификатору.
func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (models.MealPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plan, ok := m.plans[id]
	if !ok {
		return models.MealPlan{}, fmt.Errorf("%w: %s", ErrPlanNotFound, id)
	}
	return plan.Clone(), nil
}

// ListByUser возвращает планы пользователя, новые первыми.
func (m *MemoryStore) ListByUser(_ context.Context, userID uuid.UUID) ([]models.MealPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.MealPlan
	for _, plan := range m.plans {
		if plan.UserID == userID {
			out = append(out, plan.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Delete удаляет план.
func (m *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.plans[id]; !ok {
		return fmt.Errorf("%w: %s", ErrPlanNotFound, id)
	}
	delete(m.plans, id)
	return nil
}

// Update применяет частичное обновление плана.
func (m *MemoryStore) Update(_ context.Context, id uuid.UUID, update PlanUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	plan, ok := m.plans[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPlanNotFound, id)
	}

	if update.Meals != nil {
		plan.Meals = update.Meals
	}
	if update.TotalEstimatedCost != nil {
		plan.TotalEstimatedCost = *update.TotalEstimatedCost
	}
	if update.BudgetStatus != nil {
		plan.BudgetStatus = *update.BudgetStatus
	}
	if update.WeekStartDate != nil {
		plan.WeekStartDate = *update.WeekStartDate
	}
	plan.UpdatedAt = m.now()

	m.plans[id] = plan.Clone()
	return nil
}
