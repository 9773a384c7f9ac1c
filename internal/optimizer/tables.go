package optimizer

import (
	"sort"
	"strings"
	"time"
)

type substitution struct {
	name       string
	priceRatio float64
	taste      string
}

// substitutionTable maps an ingredient keyword to a cheaper substitute.
var substitutionTable = map[string]substitution{
	"salmon":           {name: "tilapia fillets", priceRatio: 0.55, taste: "milder, flakier fish"},
	"shrimp":           {name: "white fish fillets", priceRatio: 0.6, taste: "milder seafood flavor"},
	"chicken breast":   {name: "chicken thighs", priceRatio: 0.7, taste: "juicier and slightly richer"},
	"steak":            {name: "chuck roast", priceRatio: 0.6, taste: "needs longer cooking"},
	"ground beef":      {name: "ground turkey", priceRatio: 0.75, taste: "leaner, milder"},
	"lamb":             {name: "pork shoulder", priceRatio: 0.55, taste: "less gamey"},
	"bacon":            {name: "smoked turkey", priceRatio: 0.7, taste: "less fatty"},
	"fresh mozzarella": {name: "shredded mozzarella", priceRatio: 0.6, taste: "firmer texture"},
	"parmesan":         {name: "grated hard cheese", priceRatio: 0.6, taste: "slightly less nutty"},
	"goat cheese":      {name: "cream cheese", priceRatio: 0.5, taste: "less tangy"},
	"greek yogurt":     {name: "plain yogurt", priceRatio: 0.6, taste: "thinner texture"},
	"pine nuts":        {name: "sunflower seeds", priceRatio: 0.3, taste: "similar crunch"},
	"cashews":          {name: "peanuts", priceRatio: 0.45, taste: "stronger nut flavor"},
	"berries":          {name: "frozen mixed berries", priceRatio: 0.6, taste: "softer once thawed"},
	"cherry tomatoes":  {name: "canned diced tomatoes", priceRatio: 0.4, taste: "best in cooked dishes"},
	"arborio rice":     {name: "long-grain rice", priceRatio: 0.4, taste: "less creamy"},
	"quinoa":           {name: "brown rice", priceRatio: 0.4, taste: "nuttier, chewier"},
	"maple syrup":      {name: "honey", priceRatio: 0.6, taste: "floral sweetness"},
	"olive oil":        {name: "vegetable oil", priceRatio: 0.5, taste: "neutral flavor"},
	"fresh basil":      {name: "dried basil", priceRatio: 0.3, taste: "less aromatic"},
	"basil":            {name: "dried basil", priceRatio: 0.3, taste: "less aromatic"},
	"butter":           {name: "margarine", priceRatio: 0.6, taste: "slightly less rich"},
	"mushrooms":        {name: "canned mushrooms", priceRatio: 0.6, taste: "softer texture"},
}

// categoryFallback builds a substitute name for ingredients missing from the table.
var categoryFallback = map[string]struct {
	prefix     string
	priceRatio float64
}{
	"meat":    {prefix: "value-pack ", priceRatio: 0.8},
	"seafood": {prefix: "frozen ", priceRatio: 0.7},
	"produce": {prefix: "frozen ", priceRatio: 0.7},
	"dairy":   {prefix: "store-brand ", priceRatio: 0.75},
	"grains":  {prefix: "store-brand ", priceRatio: 0.75},
	"pantry":  {prefix: "store-brand ", priceRatio: 0.75},
	"protein": {prefix: "store-brand ", priceRatio: 0.8},
}

// restrictionKeywords lists ingredient keywords excluded by a dietary restriction.
var restrictionKeywords = map[string][]string{
	"vegetarian": {"chicken", "beef", "pork", "bacon", "ham", "turkey", "lamb", "steak", "sausage", "fish", "salmon", "tuna", "tilapia", "shrimp", "anchovy"},
	"vegan": {"chicken", "beef", "pork", "bacon", "ham", "turkey", "lamb", "steak", "sausage", "fish", "salmon", "tuna", "tilapia", "shrimp", "anchovy",
		"milk", "cheese", "mozzarella", "parmesan", "butter", "yogurt", "cream", "egg", "honey"},
	"gluten-free": {"wheat", "flour", "bread", "pasta", "spaghetti", "tortilla", "barley", "couscous", "muffin"},
	"dairy-free":  {"milk", "cheese", "mozzarella", "parmesan", "butter", "yogurt", "cream"},
	"pescatarian": {"chicken", "beef", "pork", "bacon", "ham", "turkey", "lamb", "steak", "sausage"},
}

type seasonalProduce struct {
	months       []time.Month
	alternatives []string
}

// produceSeasons is a northern-hemisphere produce calendar. Produce missing
// from the table is treated as available all year.
var produceSeasons = map[string]seasonalProduce{
	"asparagus":        {months: months(3, 6), alternatives: []string{"broccoli", "green beans", "cabbage"}},
	"berries":          {months: months(5, 8), alternatives: []string{"apples", "bananas"}},
	"strawberries":     {months: months(5, 7), alternatives: []string{"apples", "bananas"}},
	"peaches":          {months: months(6, 8), alternatives: []string{"apples", "bananas"}},
	"tomatoes":         {months: months(6, 9), alternatives: []string{"carrots", "cabbage"}},
	"zucchini":         {months: months(6, 9), alternatives: []string{"butternut squash", "carrots"}},
	"cucumber":         {months: months(6, 9), alternatives: []string{"carrots", "cabbage"}},
	"corn":             {months: months(7, 9), alternatives: []string{"frozen peas", "carrots"}},
	"bell pepper":      {months: months(7, 10), alternatives: []string{"carrots", "cabbage"}},
	"green beans":      {months: months(6, 9), alternatives: []string{"broccoli", "brussels sprouts", "cabbage"}},
	"basil":            {months: months(6, 9), alternatives: []string{"parsley"}},
	"romaine lettuce":  {months: months(4, 10), alternatives: []string{"cabbage"}},
	"spinach":          {months: append(months(3, 5), months(9, 11)...), alternatives: []string{"kale", "cabbage"}},
	"broccoli":         {months: append(months(10, 12), months(1, 4)...), alternatives: []string{"green beans", "zucchini", "cabbage"}},
	"brussels sprouts": {months: append(months(10, 12), months(1, 2)...), alternatives: []string{"green beans", "cabbage"}},
	"kale":             {months: append(months(10, 12), months(1, 3)...), alternatives: []string{"spinach", "cabbage"}},
	"butternut squash": {months: append(months(9, 12), months(1, 2)...), alternatives: []string{"zucchini", "carrots"}},
	"sweet potatoes":   {months: months(9, 12), alternatives: []string{"potatoes", "carrots"}},
	"apples":           {months: append(months(8, 12), months(1, 3)...), alternatives: []string{"bananas"}},
}

func months(from, to time.Month) []time.Month {
	out := make([]time.Month, 0, to-from+1)
	for m := from; m <= to; m++ {
		out = append(out, m)
	}
	return out
}

// lookupSubstitution ищет замену по самому длинному совпадающему ключу таблицы.
func lookupSubstitution(name string) (substitution, bool) {
	key, ok := longestKeyMatch(name, substitutionTable)
	if !ok {
		return substitution{}, false
	}
	return substitutionTable[key], true
}

// seasonFor возвращает запись календаря для продукта.
func seasonFor(name string) (string, seasonalProduce, bool) {
	key, ok := longestKeyMatch(name, produceSeasons)
	if !ok {
		return "", seasonalProduce{}, false
	}
	return key, produceSeasons[key], true
}

// inSeason сообщает, доступен ли продукт в указанном месяце.
func inSeason(name string, month time.Month) bool {
	_, season, ok := seasonFor(name)
	if !ok {
		return true
	}
	for _, m := range season.months {
		if m == month {
			return true
		}
	}
	return false
}

func longestKeyMatch[V any](name string, table map[string]V) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(name))
	keys := make([]string, 0, len(table))
	for key := range table {
		if strings.Contains(lower, key) {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return "", false
	}

	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys[0], true
}
