package planner

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"example.com/ai-meal-planner/backend/internal/models"
)

const mockBaseServings = 4

const (
	tagVegetarian = "vegetarian"
	tagVegan      = "vegan"
	tagGlutenFree = "gluten-free"
	tagDairyFree  = "dairy-free"
)

type mockRecipe struct {
	name        string
	description string
	mealType    models.MealType
	prepTime    int
	cookTime    int
	tags        []string
	ingredients []models.Ingredient
}

// MockGenerator builds deterministic plans from a built-in recipe catalog.
type MockGenerator struct {
	catalog []mockRecipe
	now     func() time.Time
}

// NewMockGenerator создает локальный детерминированный генератор.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{catalog: mockCatalog, now: time.Now}
}

// GeneratePlan строит план из каталога с учетом ограничений профиля.
func (g *MockGenerator) GeneratePlan(_ context.Context, req PlanRequest) (ParsedPlan, error) {
	if req.Profile.HouseholdSize <= 0 {
		return ParsedPlan{}, fmt.Errorf("%w: household size must be positive", ErrInvalidInput)
	}

	household := req.Household
	if household == nil {
		household = &models.HouseholdPreferences{}
	}
	restrictions := mergeUnique(req.Profile.DietaryRestrictions, household.DietaryRestrictions)
	avoid := mergeUnique(household.Allergens, household.DislikedIngredients)

	generatedAt := g.now()
	meals := make([]models.Meal, 0, models.MealsPerWeek)

	for day := 0; day < models.DaysPerWeek; day++ {
		for _, mealType := range models.MealTypes {
			candidates := g.candidates(mealType, restrictions, avoid, req.ExcludeRecipes)
			if len(candidates) == 0 {
				return ParsedPlan{}, fmt.Errorf("%w: %s", ErrNoAlternative, mealType)
			}

			recipe := candidates[day%len(candidates)]
			meal := recipe.meal(req.Profile.HouseholdSize)
			meal.ID = fmt.Sprintf("meal-%d-%d", generatedAt.UnixMilli(), len(meals))
			meal.DayOfWeek = day
			meals = append(meals, meal)
		}
	}

	total := models.SumMealCosts(meals)
	return ParsedPlan{
		Meals:              meals,
		TotalEstimatedCost: total,
		BudgetStatus:       models.ComputeBudgetStatus(total, req.Profile.WeeklyBudget),
	}, nil
}

// SuggestSwap выбирает самый дешевый подходящий рецепт того же типа.
func (g *MockGenerator) SuggestSwap(_ context.Context, meal models.Meal, profile models.UserProfile, exclude []string) (models.Meal, error) {
	servings := meal.Servings
	if servings <= 0 {
		servings = profile.HouseholdSize
	}

	candidates := g.candidates(meal.MealType, profile.DietaryRestrictions, nil, append([]string{meal.RecipeName}, exclude...))
	if len(candidates) == 0 {
		return models.Meal{}, fmt.Errorf("%w: %s", ErrNoAlternative, meal.RecipeName)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].baseCost() < candidates[j].baseCost()
	})

	replacement := candidates[0].meal(servings)
	replacement.ID = swapMealID(meal, g.now())
	replacement.DayOfWeek = meal.DayOfWeek
	replacement.MealType = meal.MealType
	replacement.Servings = meal.Servings
	return replacement, nil
}

// GenerateTips формирует советы на основе состава плана.
func (g *MockGenerator) GenerateTips(_ context.Context, plan models.MealPlan, profile models.UserProfile) ([]string, error) {
	var tips []string

	if name, count := mostUsedIngredient(plan.Meals); count >= 2 {
		tips = append(tips, fmt.Sprintf("Buy %s in bulk: it appears in %d meals this week.", name, count))
	}

	remaining := profile.WeeklyBudget - plan.TotalEstimatedCost
	switch {
	case remaining >= 0:
		tips = append(tips, fmt.Sprintf("You have $%.2f left in your budget; stock up on pantry staples on sale.", remaining))
	default:
		if expensive, ok := mostExpensiveMeal(plan.Meals); ok {
			tips = append(tips, fmt.Sprintf("The plan is $%.2f over budget; swap %s for a cheaper recipe first.", -remaining, expensive.RecipeName))
		}
	}

	tips = append(tips,
		"Batch-cook grains and chop vegetables on the weekend to shorten weekday cooking.",
		"Plan leftovers from dinner as next day's lunch to cut waste.",
	)
	return tips, nil
}

// RecipeInstructions формирует базовые шаги приготовления по составу блюда.
func (g *MockGenerator) RecipeInstructions(_ context.Context, meal models.Meal) ([]string, error) {
	names := make([]string, 0, len(meal.Ingredients))
	for _, ingredient := range meal.Ingredients {
		names = append(names, ingredient.Name)
	}

	steps := []string{
		fmt.Sprintf("Gather and measure the ingredients: %s.", listOrNone(names)),
		"Wash, peel and chop the produce.",
	}
	if meal.CookTime > 0 {
		steps = append(steps, fmt.Sprintf("Cook for about %d minutes, stirring occasionally, until done.", meal.CookTime))
	} else {
		steps = append(steps, "Combine everything in a bowl and mix well.")
	}
	steps = append(steps, fmt.Sprintf("Season to taste and serve %d portions of %s.", meal.Servings, meal.RecipeName))

	return steps, nil
}

// SuggestSubstitutes предлагает продукт собственной марки магазина.
func (g *MockGenerator) SuggestSubstitutes(_ context.Context, ingredient models.Ingredient, avoid []string) ([]models.Substitute, error) {
	name := "store-brand " + ingredient.Name
	if containsAny(name, avoid) {
		return nil, nil
	}

	return []models.Substitute{{
		Name:       name,
		PriceRatio: 0.8,
		Notes:      "Store brands usually cost about 20% less.",
	}}, nil
}

func (g *MockGenerator) candidates(mealType models.MealType, restrictions, avoid, exclude []string) []mockRecipe {
	excluded := make(map[string]struct{}, len(exclude))
	for _, name := range exclude {
		excluded[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}
	tags := restrictionTags(restrictions)

	var out []mockRecipe
	for _, recipe := range g.catalog {
		if recipe.mealType != mealType || !recipe.hasTags(tags) {
			continue
		}
		if _, ok := excluded[strings.ToLower(recipe.name)]; ok {
			continue
		}
		if recipe.usesAny(avoid) {
			continue
		}
		out = append(out, recipe)
	}
	return out
}

func (r mockRecipe) meal(servings int) models.Meal {
	scale := float64(servings) / mockBaseServings
	ingredients := make([]models.Ingredient, len(r.ingredients))
	for i, ingredient := range r.ingredients {
		ingredient.Amount = math.Round(ingredient.Amount*scale*100) / 100
		ingredient.EstimatedPrice = models.RoundCurrency(ingredient.EstimatedPrice * scale)
		ingredients[i] = ingredient
	}

	meal := models.Meal{
		MealType:    r.mealType,
		RecipeName:  r.name,
		Description: r.description,
		PrepTime:    r.prepTime,
		CookTime:    r.cookTime,
		Servings:    servings,
		Ingredients: ingredients,
		RecipeID:    RecipeID(r.name),
	}
	meal.EstimatedCost = models.RoundCurrency(meal.IngredientsCost())
	return meal
}

func (r mockRecipe) baseCost() float64 {
	var total float64
	for _, ingredient := range r.ingredients {
		total += ingredient.EstimatedPrice
	}
	return total
}

func (r mockRecipe) hasTags(required []string) bool {
	for _, tag := range required {
		found := false
		for _, own := range r.tags {
			if own == tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (r mockRecipe) usesAny(avoid []string) bool {
	for _, ingredient := range r.ingredients {
		if containsAny(ingredient.Name, avoid) {
			return true
		}
	}
	return false
}

// restrictionTags нормализует известные диетические ограничения в теги каталога.
func restrictionTags(restrictions []string) []string {
	var tags []string
	for _, restriction := range restrictions {
		normalized := strings.Join(strings.Fields(strings.ToLower(restriction)), "-")
		switch normalized {
		case tagVegetarian, tagVegan, tagGlutenFree, tagDairyFree:
			tags = append(tags, normalized)
		}
	}
	return tags
}

func containsAny(name string, keywords []string) bool {
	lower := strings.ToLower(name)
	for _, keyword := range keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword != "" && strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

func mostUsedIngredient(meals []models.Meal) (string, int) {
	counts := make(map[string]int)
	for _, meal := range meals {
		seen := make(map[string]struct{})
		for _, ingredient := range meal.Ingredients {
			key := strings.ToLower(ingredient.Name)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			counts[key]++
		}
	}

	best, bestCount := "", 0
	for name, count := range counts {
		if count > bestCount || (count == bestCount && name < best) {
			best, bestCount = name, count
		}
	}
	return best, bestCount
}

func mostExpensiveMeal(meals []models.Meal) (models.Meal, bool) {
	if len(meals) == 0 {
		return models.Meal{}, false
	}
	best := meals[0]
	for _, meal := range meals[1:] {
		if meal.EstimatedCost > best.EstimatedCost {
			best = meal
		}
	}
	return best, true
}

func ing(name string, amount float64, unit, category string, price float64) models.Ingredient {
	return models.Ingredient{Name: name, Amount: amount, Unit: unit, Category: category, EstimatedPrice: price}
}

var mockCatalog = []mockRecipe{
	{
		name: "Veggie Scramble", description: "Eggs scrambled with peppers, spinach and cheddar",
		mealType: models.MealTypeBreakfast, prepTime: 10, cookTime: 10,
		tags: []string{tagVegetarian, tagGlutenFree},
		ingredients: []models.Ingredient{
			ing("eggs", 8, "pcs", "dairy", 2.40),
			ing("bell pepper", 1, "pcs", "produce", 1.00),
			ing("spinach", 100, "g", "produce", 1.20),
			ing("cheddar cheese", 50, "g", "dairy", 0.80),
		},
	},
	{
		name: "Overnight Oats", description: "Rolled oats soaked in milk with banana and honey",
		mealType: models.MealTypeBreakfast, prepTime: 5, cookTime: 0,
		tags: []string{tagVegetarian},
		ingredients: []models.Ingredient{
			ing("rolled oats", 200, "g", "grains", 0.60),
			ing("milk", 500, "ml", "dairy", 0.70),
			ing("banana", 2, "pcs", "produce", 0.50),
			ing("honey", 2, "tbsp", "pantry", 0.40),
		},
	},
	{
		name: "Peanut Butter Banana Toast", description: "Whole wheat toast with peanut butter and sliced banana",
		mealType: models.MealTypeBreakfast, prepTime: 5, cookTime: 3,
		tags: []string{tagVegetarian, tagVegan, tagDairyFree},
		ingredients: []models.Ingredient{
			ing("whole wheat bread", 8, "slices", "grains", 1.20),
			ing("peanut butter", 4, "tbsp", "pantry", 0.60),
			ing("banana", 3, "pcs", "produce", 0.75),
		},
	},
	{
		name: "Tofu Breakfast Burritos", description: "Tortillas filled with scrambled tofu, black beans and salsa",
		mealType: models.MealTypeBreakfast, prepTime: 10, cookTime: 10,
		tags: []string{tagVegetarian, tagVegan, tagDairyFree},
		ingredients: []models.Ingredient{
			ing("flour tortillas", 4, "pcs", "grains", 1.20),
			ing("firm tofu", 400, "g", "protein", 2.20),
			ing("black beans", 1, "can", "protein", 1.00),
			ing("salsa", 100, "g", "pantry", 0.80),
			ing("onion", 1, "pcs", "produce", 0.40),
		},
	},
	{
		name: "Greek Yogurt Parfait", description: "Layers of greek yogurt, berries and granola",
		mealType: models.MealTypeBreakfast, prepTime: 5, cookTime: 0,
		tags: []string{tagVegetarian, tagGlutenFree},
		ingredients: []models.Ingredient{
			ing("greek yogurt", 500, "g", "dairy", 3.00),
			ing("mixed berries", 200, "g", "produce", 2.50),
			ing("granola", 100, "g", "grains", 0.90),
		},
	},
	{
		name: "Bacon and Egg Muffins", description: "Toasted english muffins with fried egg and bacon",
		mealType: models.MealTypeBreakfast, prepTime: 5, cookTime: 15,
		tags: []string{tagDairyFree},
		ingredients: []models.Ingredient{
			ing("eggs", 4, "pcs", "dairy", 1.20),
			ing("bacon", 200, "g", "meat", 3.00),
			ing("english muffins", 4, "pcs", "grains", 1.60),
		},
	},
	{
		name: "Banana Pancakes", description: "Fluffy pancakes with mashed banana and maple syrup",
		mealType: models.MealTypeBreakfast, prepTime: 10, cookTime: 15,
		tags: []string{tagVegetarian},
		ingredients: []models.Ingredient{
			ing("all-purpose flour", 250, "g", "grains", 0.40),
			ing("eggs", 2, "pcs", "dairy", 0.60),
			ing("milk", 300, "ml", "dairy", 0.45),
			ing("banana", 2, "pcs", "produce", 0.50),
			ing("maple syrup", 4, "tbsp", "pantry", 1.20),
		},
	},
	{
		name: "Black Bean Quesadillas", description: "Crispy tortillas with black beans, peppers and melted cheddar",
		mealType: models.MealTypeLunch, prepTime: 10, cookTime: 10,
		tags: []string{tagVegetarian},
		ingredients: []models.Ingredient{
			ing("flour tortillas", 8, "pcs", "grains", 2.40),
			ing("black beans", 2, "can", "protein", 2.00),
			ing("cheddar cheese", 200, "g", "dairy", 2.80),
			ing("bell pepper", 1, "pcs", "produce", 1.00),
		},
	},
	{
		name: "Lentil Soup", description: "Hearty red lentil soup with carrots and tomatoes",
		mealType: models.MealTypeLunch, prepTime: 10, cookTime: 30,
		tags: []string{tagVegetarian, tagVegan, tagGlutenFree, tagDairyFree},
		ingredients: []models.Ingredient{
			ing("red lentils", 300, "g", "protein", 1.50),
			ing("carrots", 3, "pcs", "produce", 0.60),
			ing("onion", 1, "pcs", "produce", 0.40),
			ing("canned tomatoes", 1, "can", "pantry", 1.00),
			ing("vegetable broth", 1, "l", "pantry", 1.80),
		},
	},
	{
		name: "Chicken Caesar Wraps", description: "Grilled chicken, romaine and parmesan in a tortilla",
		mealType: models.MealTypeLunch, prepTime: 15, cookTime: 15,
		ingredients: []models.Ingredient{
			ing("chicken breast", 500, "g", "meat", 5.50),
			ing("romaine lettuce", 1, "head", "produce", 1.80),
			ing("flour tortillas", 4, "pcs", "grains", 1.20),
			ing("parmesan", 50, "g", "dairy", 1.20),
			ing("caesar dressing", 100, "ml", "pantry", 1.30),
		},
	},
	{
		name: "Chickpea Salad Sandwiches", description: "Mashed chickpeas with celery and lemon on whole wheat bread",
		mealType: models.MealTypeLunch, prepTime: 15, cookTime: 0,
		tags: []string{tagVegetarian, tagVegan, tagDairyFree},
		ingredients: []models.Ingredient{
			ing("chickpeas", 2, "can", "protein", 2.00),
			ing("whole wheat bread", 8, "slices", "grains", 1.20),
			ing("celery", 2, "stalks", "produce", 0.50),
			ing("vegan mayo", 4, "tbsp", "pantry", 0.80),
			ing("lemon", 1, "pcs", "produce", 0.50),
		},
	},
	{
		name: "Vegetable Fried Rice", description: "Rice stir-fried with egg, peas and carrots",
		mealType: models.MealTypeLunch, prepTime: 10, cookTime: 15,
		tags: []string{tagVegetarian, tagDairyFree},
		ingredients: []models.Ingredient{
			ing("rice", 300, "g", "grains", 0.75),
			ing("eggs", 3, "pcs", "dairy", 0.90),
			ing("frozen peas", 200, "g", "produce", 0.90),
			ing("carrots", 2, "pcs", "produce", 0.40),
			ing("soy sauce", 3, "tbsp", "pantry", 0.30),
			ing("onion", 1, "pcs", "produce", 0.40),
		},
	},
	{
		name: "Caprese Pasta Salad", description: "Pasta with cherry tomatoes, mozzarella and basil",
		mealType: models.MealTypeLunch, prepTime: 15, cookTime: 10,
		tags: []string{tagVegetarian},
		ingredients: []models.Ingredient{
			ing("pasta", 400, "g", "grains", 1.20),
			ing("cherry tomatoes", 250, "g", "produce", 2.50),
			ing("fresh mozzarella", 200, "g", "dairy", 3.50),
			ing("basil", 1, "bunch", "produce", 1.50),
			ing("olive oil", 3, "tbsp", "pantry", 0.60),
		},
	},
	{
		name: "Tuna Melt", description: "Open-faced tuna sandwiches with melted cheddar",
		mealType: models.MealTypeLunch, prepTime: 10, cookTime: 5,
		ingredients: []models.Ingredient{
			ing("canned tuna", 2, "can", "seafood", 2.60),
			ing("whole wheat bread", 8, "slices", "grains", 1.20),
			ing("cheddar cheese", 100, "g", "dairy", 1.40),
			ing("celery", 1, "stalk", "produce", 0.25),
		},
	},
	{
		name: "Vegetable Stir-Fry with Tofu", description: "Tofu with broccoli and peppers over rice",
		mealType: models.MealTypeDinner, prepTime: 15, cookTime: 15,
		tags: []string{tagVegetarian, tagVegan, tagDairyFree},
		ingredients: []models.Ingredient{
			ing("firm tofu", 400, "g", "protein", 2.20),
			ing("broccoli", 300, "g", "produce", 1.80),
			ing("bell pepper", 2, "pcs", "produce", 2.00),
			ing("rice", 300, "g", "grains", 0.75),
			ing("soy sauce", 3, "tbsp", "pantry", 0.30),
			ing("garlic", 3, "cloves", "produce", 0.30),
		},
	},
	{
		name: "Spaghetti Marinara with Lentil Meatballs", description: "Spaghetti in tomato sauce with baked lentil meatballs",
		mealType: models.MealTypeDinner, prepTime: 20, cookTime: 25,
		tags: []string{tagVegetarian},
		ingredients: []models.Ingredient{
			ing("spaghetti", 500, "g", "grains", 1.50),
			ing("marinara sauce", 700, "g", "pantry", 2.50),
			ing("red lentils", 200, "g", "protein", 1.00),
			ing("parmesan", 50, "g", "dairy", 1.20),
			ing("onion", 1, "pcs", "produce", 0.40),
		},
	},
	{
		name: "Chicken Curry", description: "Chicken thighs simmered in coconut curry sauce with rice",
		mealType: models.MealTypeDinner, prepTime: 15, cookTime: 30,
		tags: []string{tagGlutenFree, tagDairyFree},
		ingredients: []models.Ingredient{
			ing("chicken thighs", 800, "g", "meat", 6.40),
			ing("coconut milk", 1, "can", "pantry", 1.80),
			ing("onion", 1, "pcs", "produce", 0.40),
			ing("curry paste", 3, "tbsp", "pantry", 1.50),
			ing("rice", 300, "g", "grains", 0.75),
			ing("garlic", 3, "cloves", "produce", 0.30),
		},
	},
	{
		name: "Bean and Vegetable Chili", description: "Kidney and black bean chili with peppers",
		mealType: models.MealTypeDinner, prepTime: 15, cookTime: 35,
		tags: []string{tagVegetarian, tagVegan, tagGlutenFree, tagDairyFree},
		ingredients: []models.Ingredient{
			ing("kidney beans", 2, "can", "protein", 2.00),
			ing("black beans", 1, "can", "protein", 1.00),
			ing("canned tomatoes", 2, "can", "pantry", 2.00),
			ing("onion", 1, "pcs", "produce", 0.40),
			ing("bell pepper", 1, "pcs", "produce", 1.00),
			ing("chili powder", 2, "tbsp", "pantry", 0.40),
		},
	},
	{
		name: "Baked Salmon with Roasted Potatoes", description: "Lemon salmon fillets with potatoes and green beans",
		mealType: models.MealTypeDinner, prepTime: 15, cookTime: 30,
		tags: []string{tagGlutenFree, tagDairyFree},
		ingredients: []models.Ingredient{
			ing("salmon fillets", 600, "g", "seafood", 12.00),
			ing("potatoes", 1, "kg", "produce", 1.50),
			ing("lemon", 1, "pcs", "produce", 0.50),
			ing("olive oil", 3, "tbsp", "pantry", 0.60),
			ing("green beans", 300, "g", "produce", 1.80),
		},
	},
	{
		name: "Mushroom Risotto", description: "Creamy arborio rice with mushrooms and parmesan",
		mealType: models.MealTypeDinner, prepTime: 10, cookTime: 35,
		tags: []string{tagVegetarian, tagGlutenFree},
		ingredients: []models.Ingredient{
			ing("arborio rice", 300, "g", "grains", 2.20),
			ing("mushrooms", 300, "g", "produce", 3.00),
			ing("parmesan", 80, "g", "dairy", 1.90),
			ing("vegetable broth", 1, "l", "pantry", 1.80),
			ing("onion", 1, "pcs", "produce", 0.40),
			ing("butter", 30, "g", "dairy", 0.40),
		},
	},
	{
		name: "Sheet Pan Chicken Fajitas", description: "Roasted chicken strips with peppers in warm tortillas",
		mealType: models.MealTypeDinner, prepTime: 15, cookTime: 25,
		tags: []string{tagDairyFree},
		ingredients: []models.Ingredient{
			ing("chicken breast", 600, "g", "meat", 6.60),
			ing("bell pepper", 3, "pcs", "produce", 3.00),
			ing("onion", 1, "pcs", "produce", 0.40),
			ing("flour tortillas", 8, "pcs", "grains", 2.40),
			ing("fajita seasoning", 2, "tbsp", "pantry", 0.80),
		},
	},
	{
		name: "Sweet Potato and Chickpea Curry", description: "Sweet potato, chickpeas and spinach in coconut curry",
		mealType: models.MealTypeDinner, prepTime: 15, cookTime: 30,
		tags: []string{tagVegetarian, tagVegan, tagGlutenFree, tagDairyFree},
		ingredients: []models.Ingredient{
			ing("sweet potatoes", 2, "pcs", "produce", 1.60),
			ing("chickpeas", 1, "can", "protein", 1.00),
			ing("coconut milk", 1, "can", "pantry", 1.80),
			ing("spinach", 150, "g", "produce", 1.80),
			ing("curry paste", 3, "tbsp", "pantry", 1.50),
			ing("rice", 300, "g", "grains", 0.75),
		},
	},
}
