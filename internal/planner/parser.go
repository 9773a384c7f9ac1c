package planner

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"example.com/ai-meal-planner/backend/internal/models"
)

// ParsedPlan is the validated content of a plan response before it is bound
// to an owner and persisted.
type ParsedPlan struct {
	Meals              []models.Meal       `json:"meals"`
	TotalEstimatedCost float64             `json:"total_estimated_cost"`
	BudgetStatus       models.BudgetStatus `json:"budget_status"`
}

type rawIngredient struct {
	Name           *string  `json:"name"`
	Amount         float64  `json:"amount"`
	Unit           string   `json:"unit"`
	Category       string   `json:"category"`
	EstimatedPrice *float64 `json:"estimatedPrice"`
}

type rawMeal struct {
	DayOfWeek     *int            `json:"dayOfWeek"`
	MealType      *string         `json:"mealType"`
	RecipeName    *string         `json:"recipeName"`
	Description   string          `json:"description"`
	PrepTime      int             `json:"prepTime"`
	CookTime      int             `json:"cookTime"`
	Servings      *int            `json:"servings"`
	EstimatedCost *float64        `json:"estimatedCost"`
	Ingredients   []rawIngredient `json:"ingredients"`
}

type rawPlan struct {
	Meals []rawMeal `json:"meals"`
}

// ParsePlanResponse извлекает и валидирует недельный план из ответа модели.
func ParsePlanResponse(content string, generatedAt time.Time, weeklyBudget float64) (ParsedPlan, error) {
	var raw rawPlan
	if err := decodeEmbedded(content, "{", &raw); err != nil {
		return ParsedPlan{}, err
	}
	if len(raw.Meals) == 0 {
		return ParsedPlan{}, formatErrorf("meals are required")
	}

	meals := make([]models.Meal, 0, len(raw.Meals))
	for i, item := range raw.Meals {
		if item.DayOfWeek == nil {
			return ParsedPlan{}, formatErrorf("meal %d: dayOfWeek is required", i)
		}
		if *item.DayOfWeek < 0 || *item.DayOfWeek >= models.DaysPerWeek {
			return ParsedPlan{}, formatErrorf("meal %d: dayOfWeek %d out of range", i, *item.DayOfWeek)
		}
		if item.MealType == nil {
			return ParsedPlan{}, formatErrorf("meal %d: mealType is required", i)
		}
		mealType := models.MealType(strings.ToLower(strings.TrimSpace(*item.MealType)))
		if !mealType.IsValid() {
			return ParsedPlan{}, formatErrorf("meal %d: invalid mealType %q", i, *item.MealType)
		}
		if item.Servings == nil {
			return ParsedPlan{}, formatErrorf("meal %d: servings is required", i)
		}

		meal, err := buildMeal(item)
		if err != nil {
			return ParsedPlan{}, formatErrorf("meal %d: %s", i, err)
		}

		meal.ID = fmt.Sprintf("meal-%d-%d", generatedAt.UnixMilli(), i)
		meal.DayOfWeek = *item.DayOfWeek
		meal.MealType = mealType
		meal.Servings = *item.Servings
		meals = append(meals, meal)
	}

	total := models.SumMealCosts(meals)
	return ParsedPlan{
		Meals:              meals,
		TotalEstimatedCost: total,
		BudgetStatus:       models.ComputeBudgetStatus(total, weeklyBudget),
	}, nil
}

// ParseSwapResponse извлекает блюдо-замену, сохраняя день, тип и порции исходного блюда.
func ParseSwapResponse(content string, original models.Meal, generatedAt time.Time) (models.Meal, error) {
	var raw rawMeal
	if err := decodeEmbedded(content, "{", &raw); err != nil {
		return models.Meal{}, err
	}

	meal, err := buildMeal(raw)
	if err != nil {
		return models.Meal{}, formatErrorf("replacement meal: %s", err)
	}

	meal.ID = swapMealID(original, generatedAt)
	meal.DayOfWeek = original.DayOfWeek
	meal.MealType = original.MealType
	meal.Servings = original.Servings
	return meal, nil
}

// ParseInstructions извлекает шаги рецепта.
func ParseInstructions(content string) ([]string, error) {
	var wrapped struct {
		Instructions []string `json:"instructions"`
	}
	steps, err := decodeStringList(content, &wrapped, func() []string { return wrapped.Instructions })
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, formatErrorf("instructions are required")
	}
	return steps, nil
}

// ParseTips извлекает советы по плану.
func ParseTips(content string) ([]string, error) {
	var wrapped struct {
		Tips []string `json:"tips"`
	}
	tips, err := decodeStringList(content, &wrapped, func() []string { return wrapped.Tips })
	if err != nil {
		return nil, err
	}
	if len(tips) == 0 {
		return nil, formatErrorf("tips are required")
	}
	return tips, nil
}

// ParseSubstitutes извлекает список замен ингредиента.
func ParseSubstitutes(content string) ([]models.Substitute, error) {
	var raw []struct {
		Name       *string  `json:"name"`
		PriceRatio *float64 `json:"priceRatio"`
		Notes      string   `json:"notes"`
	}
	if err := decodeEmbedded(content, "[", &raw); err != nil {
		return nil, err
	}

	out := make([]models.Substitute, 0, len(raw))
	for i, item := range raw {
		if item.Name == nil || strings.TrimSpace(*item.Name) == "" {
			return nil, formatErrorf("substitute %d: name is required", i)
		}
		if item.PriceRatio == nil || *item.PriceRatio <= 0 {
			return nil, formatErrorf("substitute %d: priceRatio is required", i)
		}
		out = append(out, models.Substitute{
			Name:       strings.TrimSpace(*item.Name),
			PriceRatio: *item.PriceRatio,
			Notes:      strings.TrimSpace(item.Notes),
		})
	}
	return out, nil
}

// RecipeID строит идентификатор рецепта из его названия.
func RecipeID(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

func swapMealID(original models.Meal, generatedAt time.Time) string {
	return fmt.Sprintf("meal-%d-%d-%s", generatedAt.UnixMilli(), original.DayOfWeek, original.MealType)
}

func buildMeal(raw rawMeal) (models.Meal, error) {
	if raw.RecipeName == nil || strings.TrimSpace(*raw.RecipeName) == "" {
		return models.Meal{}, fmt.Errorf("recipeName is required")
	}
	if raw.EstimatedCost == nil {
		return models.Meal{}, fmt.Errorf("estimatedCost is required")
	}
	if *raw.EstimatedCost < 0 {
		return models.Meal{}, fmt.Errorf("estimatedCost must not be negative")
	}
	if raw.Servings != nil && *raw.Servings <= 0 {
		return models.Meal{}, fmt.Errorf("servings must be positive")
	}
	if raw.PrepTime < 0 || raw.CookTime < 0 {
		return models.Meal{}, fmt.Errorf("prepTime and cookTime must not be negative")
	}

	ingredients := make([]models.Ingredient, 0, len(raw.Ingredients))
	for j, item := range raw.Ingredients {
		if item.Name == nil || strings.TrimSpace(*item.Name) == "" {
			return models.Meal{}, fmt.Errorf("ingredient %d: name is required", j)
		}
		price := 0.0
		if item.EstimatedPrice != nil {
			price = *item.EstimatedPrice
		}
		if price < 0 || item.Amount < 0 {
			return models.Meal{}, fmt.Errorf("ingredient %d: amount and price must not be negative", j)
		}
		ingredients = append(ingredients, models.Ingredient{
			Name:           strings.TrimSpace(*item.Name),
			Amount:         item.Amount,
			Unit:           strings.TrimSpace(item.Unit),
			Category:       strings.ToLower(strings.TrimSpace(item.Category)),
			EstimatedPrice: price,
		})
	}

	name := strings.TrimSpace(*raw.RecipeName)
	return models.Meal{
		RecipeName:    name,
		Description:   strings.TrimSpace(raw.Description),
		PrepTime:      raw.PrepTime,
		CookTime:      raw.CookTime,
		EstimatedCost: models.RoundCurrency(*raw.EstimatedCost),
		Ingredients:   ingredients,
		RecipeID:      RecipeID(name),
	}, nil
}

// decodeStringList принимает как объект-обертку, так и голый JSON-массив строк.
func decodeStringList(content string, wrapper any, field func() []string) ([]string, error) {
	payload, ok := extractJSON(content, "{[")
	if !ok {
		return nil, formatErrorf("response does not contain json")
	}

	if strings.HasPrefix(payload, "[") {
		var list []string
		if err := json.Unmarshal([]byte(payload), &list); err != nil {
			return nil, formatErrorf("%s", err)
		}
		return trimAll(list), nil
	}

	if err := json.Unmarshal([]byte(payload), wrapper); err != nil {
		return nil, formatErrorf("%s", err)
	}
	return trimAll(field()), nil
}

func decodeEmbedded(content, openers string, target any) error {
	payload, ok := extractJSON(content, openers)
	if !ok {
		return formatErrorf("response does not contain json")
	}
	if err := json.Unmarshal([]byte(payload), target); err != nil {
		return formatErrorf("%s", err)
	}
	return nil
}

// extractJSON возвращает первое валидное JSON-значение, начинающееся с одной
// из скобок openers. Скобки в прозе вроде "[7 days x 3 meals]" пропускаются.
func extractJSON(input, openers string) (string, bool) {
	start := strings.IndexAny(input, openers)
	for start >= 0 {
		if end, ok := matchBalanced(input, start); ok && json.Valid([]byte(input[start:end+1])) {
			return input[start : end+1], true
		}

		next := strings.IndexAny(input[start+1:], openers)
		if next < 0 {
			break
		}
		start += next + 1
	}

	return "", false
}

// matchBalanced ищет закрывающую скобку с учетом строковых литералов.
func matchBalanced(input string, start int) (int, bool) {
	var stack []byte
	inString := false
	escaped := false

	for i := start; i < len(input); i++ {
		c := input[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return 0, false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i, true
			}
		}
	}

	return 0, false
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	}
	return out
}
