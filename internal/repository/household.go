package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/ai-meal-planner/backend/internal/models"
)

type HouseholdRepository struct {
	db *pgxpool.Pool
}

// NewHouseholdRepository создает репозиторий членов семьи.
func NewHouseholdRepository(db *pgxpool.Pool) *HouseholdRepository {
	return &HouseholdRepository{db: db}
}

// ListMembers возвращает членов семьи пользователя.
func (r *HouseholdRepository) ListMembers(ctx context.Context, ownerID uuid.UUID) ([]models.HouseholdMember, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, owner_id, name, dietary_restrictions, allergens, disliked_ingredients, cuisine_preferences,
		        daily_calories, protein_grams, carbs_grams, fat_grams
		 FROM household_members
		 WHERE owner_id = $1
		 ORDER BY created_at, name`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]models.HouseholdMember, 0)
	for rows.Next() {
		var member models.HouseholdMember

		err := rows.Scan(&member.ID, &member.OwnerID, &member.Name, &member.DietaryRestrictions, &member.Allergens,
			&member.DislikedIngredients, &member.CuisinePreferences, &member.DailyCalories, &member.ProteinGrams,
			&member.CarbsGrams, &member.FatGrams)
		if err != nil {
			return nil, err
		}

		members = append(members, member)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return members, nil
}

// GetHouseholdPreferences возвращает агрегированные предпочтения семьи или nil, если членов нет.
func (r *HouseholdRepository) GetHouseholdPreferences(ctx context.Context, ownerID uuid.UUID) (*models.HouseholdPreferences, error) {
	members, err := r.ListMembers(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return AggregateHousehold(members), nil
}

// AggregateHousehold объединяет ограничения, аллергены и вкусы всех членов семьи.
func AggregateHousehold(members []models.HouseholdMember) *models.HouseholdPreferences {
	if len(members) == 0 {
		return nil
	}

	prefs := &models.HouseholdPreferences{
		DietaryRestrictions: []string{},
		Allergens:           []string{},
		DislikedIngredients: []string{},
		CuisinePreferences:  map[string]int{},
		NutritionTargets:    []models.NutritionTarget{},
	}

	restrictions := newUnion()
	allergens := newUnion()
	disliked := newUnion()

	for _, member := range members {
		restrictions.add(member.DietaryRestrictions...)
		allergens.add(member.Allergens...)
		disliked.add(member.DislikedIngredients...)

		seen := map[string]bool{}
		for _, cuisine := range member.CuisinePreferences {
			key := strings.ToLower(strings.TrimSpace(cuisine))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			prefs.CuisinePreferences[key]++
		}

		if member.DailyCalories > 0 {
			prefs.NutritionTargets = append(prefs.NutritionTargets, models.NutritionTarget{
				MemberName:    member.Name,
				DailyCalories: member.DailyCalories,
				ProteinGrams:  member.ProteinGrams,
				CarbsGrams:    member.CarbsGrams,
				FatGrams:      member.FatGrams,
			})
		}
	}

	prefs.DietaryRestrictions = restrictions.values
	prefs.Allergens = allergens.values
	prefs.DislikedIngredients = disliked.values
	return prefs
}

// union сохраняет порядок первого появления и сравнивает без учета регистра.
type union struct {
	seen   map[string]bool
	values []string
}

func newUnion() *union {
	return &union{seen: map[string]bool{}, values: []string{}}
}

func (u *union) add(values ...string) {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		key := strings.ToLower(trimmed)
		if key == "" || u.seen[key] {
			continue
		}
		u.seen[key] = true
		u.values = append(u.values, trimmed)
	}
}
