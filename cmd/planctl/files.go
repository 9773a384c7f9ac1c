package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"example.com/ai-meal-planner/backend/internal/models"
	"example.com/ai-meal-planner/backend/internal/repository"
)

type householdFile struct {
	Members []memberFile `yaml:"members"`
}

type memberFile struct {
	Name                string   `yaml:"name"`
	DietaryRestrictions []string `yaml:"dietary_restrictions"`
	Allergens           []string `yaml:"allergens"`
	DislikedIngredients []string `yaml:"disliked_ingredients"`
	CuisinePreferences  []string `yaml:"cuisine_preferences"`
	DailyCalories       int      `yaml:"daily_calories"`
	ProteinGrams        int      `yaml:"protein_grams"`
	CarbsGrams          int      `yaml:"carbs_grams"`
	FatGrams            int      `yaml:"fat_grams"`
}

// loadProfile читает профиль пользователя из YAML.
func loadProfile(path string) (models.UserProfile, error) {
	var profile models.UserProfile
	if err := decodeYAML(path, &profile); err != nil {
		return profile, fmt.Errorf("read profile: %w", err)
	}

	if profile.UserID == uuid.Nil {
		profile.UserID = uuid.New()
	}
	if profile.CookingSkill == "" {
		profile.CookingSkill = models.SkillBeginner
	}
	if profile.HouseholdSize <= 0 {
		return profile, fmt.Errorf("read profile: household_size must be positive")
	}
	if profile.WeeklyBudget <= 0 {
		return profile, fmt.Errorf("read profile: weekly_budget must be positive")
	}

	return profile, nil
}

// loadHousehold читает членов семьи из YAML и сводит их предпочтения.
func loadHousehold(path string, ownerID uuid.UUID) (*models.HouseholdPreferences, error) {
	var file householdFile
	if err := decodeYAML(path, &file); err != nil {
		return nil, fmt.Errorf("read household: %w", err)
	}

	members := make([]models.HouseholdMember, 0, len(file.Members))
	for _, m := range file.Members {
		members = append(members, models.HouseholdMember{
			ID:                  uuid.New(),
			OwnerID:             ownerID,
			Name:                strings.TrimSpace(m.Name),
			DietaryRestrictions: m.DietaryRestrictions,
			Allergens:           m.Allergens,
			DislikedIngredients: m.DislikedIngredients,
			CuisinePreferences:  m.CuisinePreferences,
			DailyCalories:       m.DailyCalories,
			ProteinGrams:        m.ProteinGrams,
			CarbsGrams:          m.CarbsGrams,
			FatGrams:            m.FatGrams,
		})
	}

	return repository.AggregateHousehold(members), nil
}

// loadPlan читает сохраненный план в JSON.
func loadPlan(path string) (models.MealPlan, error) {
	var plan models.MealPlan

	payload, err := os.ReadFile(path)
	if err != nil {
		return plan, fmt.Errorf("read plan: %w", err)
	}
	if err := json.Unmarshal(payload, &plan); err != nil {
		return plan, fmt.Errorf("decode plan: %w", err)
	}
	if len(plan.Meals) == 0 {
		return plan, fmt.Errorf("decode plan: plan has no meals")
	}
	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}

	return plan, nil
}

func decodeYAML(path string, dst any) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(payload, dst)
}

func writeJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
