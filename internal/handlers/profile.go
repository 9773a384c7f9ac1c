package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/ai-meal-planner/backend/internal/auth"
	"example.com/ai-meal-planner/backend/internal/models"
	"example.com/ai-meal-planner/backend/internal/repository"
)

// ProfileStore хранит профили пользователей; Get возвращает repository.ErrNotFound для отсутствующего профиля.
type ProfileStore interface {
	Get(ctx context.Context, userID uuid.UUID) (models.UserProfile, error)
	Upsert(ctx context.Context, profile models.UserProfile) (models.UserProfile, error)
}

type ProfileHandler struct {
	Profiles ProfileStore
}

// NewProfileHandler создает обработчик профиля.
func NewProfileHandler(profiles ProfileStore) *ProfileHandler {
	return &ProfileHandler{Profiles: profiles}
}

type ProfileRequest struct {
	HouseholdSize       int      `json:"household_size" validate:"gte=1,lte=20"`
	DietaryRestrictions []string `json:"dietary_restrictions" validate:"max=20,dive,max=50"`
	CuisinePreferences  []string `json:"cuisine_preferences" validate:"max=20,dive,max=50"`
	CookingSkill        string   `json:"cooking_skill" validate:"omitempty,oneof=beginner intermediate advanced"`
	WeeklyBudget        float64  `json:"weekly_budget" validate:"gt=0,lte=100000"`
	WeekdayMinutes      int      `json:"weekday_minutes" validate:"gte=0,lte=600"`
	WeekendMinutes      int      `json:"weekend_minutes" validate:"gte=0,lte=600"`
}

// Get возвращает профиль текущего пользователя.
func (h *ProfileHandler) Get(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	profile, err := h.Profiles.Get(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "profile not found")
		}
		return serverError(c)
	}

	return c.JSON(http.StatusOK, profile)
}

// Put создает или обновляет профиль текущего пользователя.
func (h *ProfileHandler) Put(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req ProfileRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	skill := models.SkillLevel(strings.ToLower(strings.TrimSpace(req.CookingSkill)))
	if skill == "" {
		skill = models.SkillBeginner
	}

	profile, err := h.Profiles.Upsert(c.Request().Context(), models.UserProfile{
		UserID:              userID,
		HouseholdSize:       req.HouseholdSize,
		DietaryRestrictions: normalizeTags(req.DietaryRestrictions),
		CuisinePreferences:  normalizeTags(req.CuisinePreferences),
		CookingSkill:        skill,
		WeeklyBudget:        models.RoundCurrency(req.WeeklyBudget),
		WeekdayMinutes:      req.WeekdayMinutes,
		WeekendMinutes:      req.WeekendMinutes,
	})
	if err != nil {
		if errors.Is(err, repository.ErrInvalid) {
			return badRequest(c, "invalid profile")
		}
		return serverError(c)
	}

	return c.JSON(http.StatusOK, profile)
}

// profileError отвечает на ошибку загрузки профиля перед операциями с планами.
func profileError(c echo.Context, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(c, "profile not found, create it first")
	}
	return serverError(c)
}

func normalizeTags(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, value := range values {
		tag := strings.ToLower(strings.TrimSpace(value))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

func trimList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
