package models

type SuggestionType string

type Priority string

type Difficulty string

const (
	SuggestionIngredientSwap    SuggestionType = "ingredient_swap"
	SuggestionMealReplacement   SuggestionType = "meal_replacement"
	SuggestionPortionAdjustment SuggestionType = "portion_adjustment"
	SuggestionBulkPurchase      SuggestionType = "bulk_purchase"
	SuggestionSeasonalSwap      SuggestionType = "seasonal_swap"

	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"

	DifficultyLow    Difficulty = "low"
	DifficultyMedium Difficulty = "medium"
	DifficultyHigh   Difficulty = "high"

	ImpactImproved  = "improved"
	ImpactNeutral   = "neutral"
	ImpactDecreased = "decreased"
)

type Implementation struct {
	SkillRequired SkillLevel `json:"skill_required"`
	Steps         []string   `json:"steps"`
	TimeImpact    int        `json:"time_impact_minutes"`
}

type Impact struct {
	Nutritional string `json:"nutritional"`
	Taste       string `json:"taste"`
	Notes       string `json:"notes,omitempty"`
}

type OptimizationSuggestion struct {
	ID                  string         `json:"id"`
	Type                SuggestionType `json:"type"`
	Title               string         `json:"title"`
	Description         string         `json:"description"`
	SavingsAmount       float64        `json:"savings_amount"`
	Priority            Priority       `json:"priority"`
	Difficulty          Difficulty     `json:"difficulty"`
	TargetMealID        string         `json:"target_meal_id,omitempty"`
	TargetIngredient    string         `json:"target_ingredient,omitempty"`
	ProposedReplacement string         `json:"proposed_replacement,omitempty"`
	ReplacementMeal     *Meal          `json:"replacement_meal,omitempty"`
	ProposedServings    int            `json:"proposed_servings,omitempty"`
	Implementation      Implementation `json:"implementation"`
	Impact              Impact         `json:"impact"`
}

type Substitute struct {
	Name       string  `json:"name"`
	PriceRatio float64 `json:"price_ratio"`
	Notes      string  `json:"notes,omitempty"`
}

// Weight возвращает числовой вес приоритета для ранжирования.
func (p Priority) Weight() float64 {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// IsAdvisory сообщает, что предложение не меняет структуру плана.
func (t SuggestionType) IsAdvisory() bool {
	return t == SuggestionBulkPurchase || t == SuggestionSeasonalSwap
}
