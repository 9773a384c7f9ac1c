package optimizer

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"example.com/ai-meal-planner/backend/internal/metrics"
	"example.com/ai-meal-planner/backend/internal/models"
)

const (
	DefaultMaxSuggestions        = 10
	DefaultMinReplacementSavings = 2.00
	DefaultBulkDiscount          = 0.15
	DefaultExpensiveRatio        = 1.5

	defaultHighPriceFloor        = 8.00
	defaultExpensiveMealRatio    = 1.3
	defaultMaxReplacementLookups = 3
	defaultSeasonalSavingsRate   = 0.25
	minIngredientSwapSavings     = 0.50
	bulkMinMeals                 = 3
	priorityScoreFactor          = 0.5
)

type Config struct {
	MaxSuggestions        int
	MinReplacementSavings float64
	BulkDiscount          float64
	ExpensiveRatio        float64
	HighPriceFloor        float64
	ExpensiveMealRatio    float64
	MaxReplacementLookups int
	SeasonalSavingsRate   float64
}

// DefaultConfig возвращает параметры оптимизатора по умолчанию.
func DefaultConfig() Config {
	return Config{
		MaxSuggestions:        DefaultMaxSuggestions,
		MinReplacementSavings: DefaultMinReplacementSavings,
		BulkDiscount:          DefaultBulkDiscount,
		ExpensiveRatio:        DefaultExpensiveRatio,
		HighPriceFloor:        defaultHighPriceFloor,
		ExpensiveMealRatio:    defaultExpensiveMealRatio,
		MaxReplacementLookups: defaultMaxReplacementLookups,
		SeasonalSavingsRate:   defaultSeasonalSavingsRate,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxSuggestions <= 0 {
		c.MaxSuggestions = d.MaxSuggestions
	}
	if c.MinReplacementSavings <= 0 {
		c.MinReplacementSavings = d.MinReplacementSavings
	}
	if c.BulkDiscount <= 0 || c.BulkDiscount >= 1 {
		c.BulkDiscount = d.BulkDiscount
	}
	if c.ExpensiveRatio <= 1 {
		c.ExpensiveRatio = d.ExpensiveRatio
	}
	if c.HighPriceFloor <= 0 {
		c.HighPriceFloor = d.HighPriceFloor
	}
	if c.ExpensiveMealRatio <= 1 {
		c.ExpensiveMealRatio = d.ExpensiveMealRatio
	}
	if c.MaxReplacementLookups <= 0 {
		c.MaxReplacementLookups = d.MaxReplacementLookups
	}
	if c.SeasonalSavingsRate <= 0 || c.SeasonalSavingsRate >= 1 {
		c.SeasonalSavingsRate = d.SeasonalSavingsRate
	}
	return c
}

// MealSwapper proposes a replacement for a meal of the same day and type.
type MealSwapper interface {
	SuggestMealSwap(ctx context.Context, meal models.Meal, profile models.UserProfile, exclude []string) (models.Meal, error)
}

// SubstituteSource proposes cheaper substitutes for an ingredient.
type SubstituteSource interface {
	SuggestSubstitutes(ctx context.Context, ingredient models.Ingredient, avoid []string) ([]models.Substitute, error)
}

type Engine struct {
	swapper     MealSwapper
	substitutes SubstituteSource
	cfg         Config
	metrics     *metrics.Metrics
	logger      *slog.Logger
	now         func() time.Time
}

type SuggestOptions struct {
	Household       *models.HouseholdPreferences
	IncludeAdvanced bool
	MaxSuggestions  int
}

// NewEngine создает движок оптимизации стоимости. swapper и substitutes могут быть nil.
func NewEngine(swapper MealSwapper, substitutes SubstituteSource, cfg Config, m *metrics.Metrics, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		swapper:     swapper,
		substitutes: substitutes,
		cfg:         cfg.withDefaults(),
		metrics:     m,
		logger:      logger,
		now:         time.Now,
	}
}

// Suggest анализирует план и возвращает ранжированные предложения по экономии.
func (e *Engine) Suggest(ctx context.Context, plan models.MealPlan, profile models.UserProfile, opts SuggestOptions) ([]models.OptimizationSuggestion, error) {
	avoid := avoidedKeywords(profile, opts.Household)

	var suggestions []models.OptimizationSuggestion
	suggestions = append(suggestions, e.ingredientSwaps(ctx, plan, avoid)...)

	replacements, err := e.mealReplacements(ctx, plan, profile)
	if err != nil {
		return nil, err
	}
	suggestions = append(suggestions, replacements...)
	suggestions = append(suggestions, e.portionAdjustments(plan, profile)...)
	suggestions = append(suggestions, e.bulkPurchases(plan)...)
	suggestions = append(suggestions, e.seasonalSwaps(plan, avoid)...)

	if !opts.IncludeAdvanced {
		suggestions = filterBySkill(suggestions, models.SkillIntermediate)
	}

	limit := opts.MaxSuggestions
	if limit <= 0 {
		limit = e.cfg.MaxSuggestions
	}

	ranked := Rank(suggestions, limit)
	e.logger.Debug("optimization suggestions ready",
		slog.String("plan_id", plan.ID.String()),
		slog.Int("candidates", len(suggestions)),
		slog.Int("returned", len(ranked)),
	)
	return ranked, nil
}

// Score вычисляет ранжирующий балл предложения.
func Score(s models.OptimizationSuggestion) float64 {
	return s.SavingsAmount + s.Priority.Weight()*priorityScoreFactor
}

// Rank сортирует предложения по убыванию балла и обрезает список до limit.
func Rank(suggestions []models.OptimizationSuggestion, limit int) []models.OptimizationSuggestion {
	ranked := append([]models.OptimizationSuggestion(nil), suggestions...)
	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := Score(ranked[i]), Score(ranked[j])
		if si != sj {
			return si > sj
		}
		return ranked[i].Title < ranked[j].Title
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// filterBySkill оставляет предложения, выполнимые на уровне не выше maxSkill.
func filterBySkill(suggestions []models.OptimizationSuggestion, maxSkill models.SkillLevel) []models.OptimizationSuggestion {
	out := make([]models.OptimizationSuggestion, 0, len(suggestions))
	for _, s := range suggestions {
		if s.Implementation.SkillRequired.Rank() <= maxSkill.Rank() {
			out = append(out, s)
		}
	}
	return out
}

// avoidedKeywords собирает запрещенные ключевые слова профиля и домохозяйства.
func avoidedKeywords(profile models.UserProfile, household *models.HouseholdPreferences) []string {
	var restrictions, avoid []string
	restrictions = append(restrictions, profile.DietaryRestrictions...)
	if household != nil {
		restrictions = append(restrictions, household.DietaryRestrictions...)
		avoid = append(avoid, household.Allergens...)
		avoid = append(avoid, household.DislikedIngredients...)
	}

	for _, restriction := range restrictions {
		normalized := strings.Join(strings.Fields(strings.ToLower(restriction)), "-")
		if keywords, ok := restrictionKeywords[normalized]; ok {
			avoid = append(avoid, keywords...)
			continue
		}
		avoid = append(avoid, strings.TrimPrefix(strings.TrimPrefix(normalized, "no-"), "non-"))
	}

	seen := make(map[string]struct{}, len(avoid))
	out := make([]string, 0, len(avoid))
	for _, keyword := range avoid {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword == "" {
			continue
		}
		if _, ok := seen[keyword]; ok {
			continue
		}
		seen[keyword] = struct{}{}
		out = append(out, keyword)
	}
	sort.Strings(out)
	return out
}

func isAvoided(name string, avoid []string) bool {
	lower := strings.ToLower(name)
	for _, keyword := range avoid {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

func priorityFor(savings float64) models.Priority {
	switch {
	case savings >= 5:
		return models.PriorityHigh
	case savings >= 2:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

func skillForTime(minutes int) models.SkillLevel {
	switch {
	case minutes <= 30:
		return models.SkillBeginner
	case minutes <= 60:
		return models.SkillIntermediate
	default:
		return models.SkillAdvanced
	}
}

func planMonth(plan models.MealPlan, now time.Time) time.Month {
	if !plan.WeekStartDate.IsZero() {
		return plan.WeekStartDate.Month()
	}
	return now.Month()
}
