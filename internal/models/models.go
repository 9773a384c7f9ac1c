package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type SkillLevel string

type MealType string

type BudgetStatus string

const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"

	MealTypeBreakfast MealType = "breakfast"
	MealTypeLunch     MealType = "lunch"
	MealTypeDinner    MealType = "dinner"

	BudgetUnder BudgetStatus = "under"
	BudgetAt    BudgetStatus = "at"
	BudgetOver  BudgetStatus = "over"
)

// BudgetTolerance is the share above the budget still reported as "at".
const BudgetTolerance = 0.05

const (
	DaysPerWeek  = 7
	MealsPerDay  = 3
	MealsPerWeek = DaysPerWeek * MealsPerDay
)

var MealTypes = []MealType{MealTypeBreakfast, MealTypeLunch, MealTypeDinner}

type UserProfile struct {
	UserID              uuid.UUID  `json:"user_id" yaml:"user_id"`
	HouseholdSize       int        `json:"household_size" yaml:"household_size" validate:"gte=1,lte=20"`
	DietaryRestrictions []string   `json:"dietary_restrictions" yaml:"dietary_restrictions"`
	CuisinePreferences  []string   `json:"cuisine_preferences" yaml:"cuisine_preferences"`
	CookingSkill        SkillLevel `json:"cooking_skill" yaml:"cooking_skill" validate:"omitempty,oneof=beginner intermediate advanced"`
	WeeklyBudget        float64    `json:"weekly_budget" yaml:"weekly_budget" validate:"gt=0"`
	WeekdayMinutes      int        `json:"weekday_minutes" yaml:"weekday_minutes" validate:"gte=0"`
	WeekendMinutes      int        `json:"weekend_minutes" yaml:"weekend_minutes" validate:"gte=0"`
	UpdatedAt           time.Time  `json:"updated_at" yaml:"-"`
}

type NutritionTarget struct {
	MemberName    string `json:"member_name" yaml:"member_name"`
	DailyCalories int    `json:"daily_calories" yaml:"daily_calories"`
	ProteinGrams  int    `json:"protein_grams" yaml:"protein_grams"`
	CarbsGrams    int    `json:"carbs_grams" yaml:"carbs_grams"`
	FatGrams      int    `json:"fat_grams" yaml:"fat_grams"`
}

type HouseholdMember struct {
	ID                  uuid.UUID `json:"id"`
	OwnerID             uuid.UUID `json:"owner_id"`
	Name                string    `json:"name"`
	DietaryRestrictions []string  `json:"dietary_restrictions"`
	Allergens           []string  `json:"allergens"`
	DislikedIngredients []string  `json:"disliked_ingredients"`
	CuisinePreferences  []string  `json:"cuisine_preferences"`
	DailyCalories       int       `json:"daily_calories"`
	ProteinGrams        int       `json:"protein_grams"`
	CarbsGrams          int       `json:"carbs_grams"`
	FatGrams            int       `json:"fat_grams"`
}

type HouseholdPreferences struct {
	DietaryRestrictions []string          `json:"dietary_restrictions" yaml:"dietary_restrictions"`
	Allergens           []string          `json:"allergens" yaml:"allergens"`
	DislikedIngredients []string          `json:"disliked_ingredients" yaml:"disliked_ingredients"`
	CuisinePreferences  map[string]int    `json:"cuisine_preferences" yaml:"cuisine_preferences"`
	NutritionTargets    []NutritionTarget `json:"nutrition_targets" yaml:"nutrition_targets"`
}

type Ingredient struct {
	Name           string  `json:"name"`
	Amount         float64 `json:"amount"`
	Unit           string  `json:"unit"`
	Category       string  `json:"category"`
	EstimatedPrice float64 `json:"estimatedPrice"`
}

type Meal struct {
	ID            string       `json:"id"`
	DayOfWeek     int          `json:"dayOfWeek"`
	MealType      MealType     `json:"mealType"`
	RecipeName    string       `json:"recipeName"`
	Description   string       `json:"description"`
	PrepTime      int          `json:"prepTime"`
	CookTime      int          `json:"cookTime"`
	Servings      int          `json:"servings"`
	EstimatedCost float64      `json:"estimatedCost"`
	Ingredients   []Ingredient `json:"ingredients"`
	RecipeID      string       `json:"recipeId"`
}

type MealPlan struct {
	ID                 uuid.UUID    `json:"id"`
	UserID             uuid.UUID    `json:"user_id"`
	WeekStartDate      time.Time    `json:"week_start_date"`
	Meals              []Meal       `json:"meals"`
	TotalEstimatedCost float64      `json:"total_estimated_cost"`
	BudgetStatus       BudgetStatus `json:"budget_status"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// Rank возвращает порядковый номер уровня навыка (beginner < intermediate < advanced).
func (s SkillLevel) Rank() int {
	switch s {
	case SkillBeginner:
		return 1
	case SkillIntermediate:
		return 2
	case SkillAdvanced:
		return 3
	default:
		return 0
	}
}

// IsValid сообщает, является ли значение известным типом приема пищи.
func (t MealType) IsValid() bool {
	switch t {
	case MealTypeBreakfast, MealTypeLunch, MealTypeDinner:
		return true
	default:
		return false
	}
}

// ComputeBudgetStatus классифицирует стоимость относительно недельного бюджета.
func ComputeBudgetStatus(total, budget float64) BudgetStatus {
	switch {
	case total <= budget:
		return BudgetUnder
	case total <= budget*(1+BudgetTolerance):
		return BudgetAt
	default:
		return BudgetOver
	}
}

// RoundCurrency округляет сумму до центов.
func RoundCurrency(value float64) float64 {
	return math.Round(value*100) / 100
}

// SumMealCosts суммирует стоимость всех блюд.
func SumMealCosts(meals []Meal) float64 {
	var total float64
	for _, meal := range meals {
		total += meal.EstimatedCost
	}
	return RoundCurrency(total)
}

// Recalculate пересчитывает итоговую стоимость и статус бюджета плана.
func (p *MealPlan) Recalculate(weeklyBudget float64) {
	p.TotalEstimatedCost = SumMealCosts(p.Meals)
	p.BudgetStatus = ComputeBudgetStatus(p.TotalEstimatedCost, weeklyBudget)
}

// MealIndex ищет блюдо по идентификатору.
func (p *MealPlan) MealIndex(mealID string) (int, bool) {
	for i := range p.Meals {
		if p.Meals[i].ID == mealID {
			return i, true
		}
	}
	return -1, false
}

// Clone возвращает глубокую копию плана.
func (p MealPlan) Clone() MealPlan {
	out := p
	out.Meals = make([]Meal, len(p.Meals))
	for i, meal := range p.Meals {
		out.Meals[i] = meal.Clone()
	}
	return out
}

// Clone возвращает копию блюда с собственным списком ингредиентов.
func (m Meal) Clone() Meal {
	out := m
	out.Ingredients = append([]Ingredient(nil), m.Ingredients...)
	return out
}

// IngredientsCost суммирует оценочные цены ингредиентов блюда.
func (m Meal) IngredientsCost() float64 {
	var total float64
	for _, ingredient := range m.Ingredients {
		total += ingredient.EstimatedPrice
	}
	return total
}

type Recipe struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Cuisine      string    `json:"cuisine"`
	PrepTime     int       `json:"prep_time"`
	CookTime     int       `json:"cook_time"`
	Servings     int       `json:"servings"`
	Instructions []string  `json:"instructions"`
	Tags         []string  `json:"tags"`
	CreatedAt    time.Time `json:"created_at"`
}
