package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/ai-meal-planner/backend/internal/models"
)

type ProfileRepository struct {
	db *pgxpool.Pool
}

// NewProfileRepository создает репозиторий профилей.
func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Get возвращает профиль пользователя.
func (r *ProfileRepository) Get(ctx context.Context, userID uuid.UUID) (models.UserProfile, error) {
	var profile models.UserProfile

	err := r.db.QueryRow(ctx,
		`SELECT user_id, household_size, dietary_restrictions, cuisine_preferences, cooking_skill,
		        weekly_budget, weekday_minutes, weekend_minutes, updated_at
		 FROM user_profiles
		 WHERE user_id = $1`,
		userID,
	).Scan(&profile.UserID, &profile.HouseholdSize, &profile.DietaryRestrictions, &profile.CuisinePreferences, &profile.CookingSkill,
		&profile.WeeklyBudget, &profile.WeekdayMinutes, &profile.WeekendMinutes, &profile.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return profile, ErrNotFound
		}
		return profile, err
	}

	return profile, nil
}

// Upsert создает или обновляет профиль пользователя.
func (r *ProfileRepository) Upsert(ctx context.Context, profile models.UserProfile) (models.UserProfile, error) {
	if profile.HouseholdSize <= 0 || profile.WeeklyBudget <= 0 {
		return profile, ErrInvalid
	}
	if profile.CookingSkill == "" {
		profile.CookingSkill = models.SkillBeginner
	}

	var saved models.UserProfile
	err := r.db.QueryRow(ctx,
		`INSERT INTO user_profiles
		 (user_id, household_size, dietary_restrictions, cuisine_preferences, cooking_skill, weekly_budget, weekday_minutes, weekend_minutes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (user_id) DO UPDATE
		 SET household_size = EXCLUDED.household_size,
		     dietary_restrictions = EXCLUDED.dietary_restrictions,
		     cuisine_preferences = EXCLUDED.cuisine_preferences,
		     cooking_skill = EXCLUDED.cooking_skill,
		     weekly_budget = EXCLUDED.weekly_budget,
		     weekday_minutes = EXCLUDED.weekday_minutes,
		     weekend_minutes = EXCLUDED.weekend_minutes,
		     updated_at = NOW()
		 RETURNING user_id, household_size, dietary_restrictions, cuisine_preferences, cooking_skill,
		           weekly_budget, weekday_minutes, weekend_minutes, updated_at`,
		profile.UserID, profile.HouseholdSize, nonNil(profile.DietaryRestrictions), nonNil(profile.CuisinePreferences),
		profile.CookingSkill, profile.WeeklyBudget, profile.WeekdayMinutes, profile.WeekendMinutes,
	).Scan(&saved.UserID, &saved.HouseholdSize, &saved.DietaryRestrictions, &saved.CuisinePreferences, &saved.CookingSkill,
		&saved.WeeklyBudget, &saved.WeekdayMinutes, &saved.WeekendMinutes, &saved.UpdatedAt)
	if err != nil {
		return saved, err
	}

	return saved, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
