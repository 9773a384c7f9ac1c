package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"example.com/ai-meal-planner/backend/internal/models"
	"example.com/ai-meal-planner/backend/internal/repository"
)

type RecipeStore interface {
	GetRecipeByID(ctx context.Context, id string) (models.Recipe, error)
}

type RecipeHandler struct {
	Recipes RecipeStore
}

// NewRecipeHandler создает обработчик каталога рецептов.
func NewRecipeHandler(recipes RecipeStore) *RecipeHandler {
	return &RecipeHandler{Recipes: recipes}
}

// Get возвращает рецепт из каталога по идентификатору.
func (h *RecipeHandler) Get(c echo.Context) error {
	id := strings.ToLower(strings.TrimSpace(c.Param("id")))
	if id == "" {
		return badRequest(c, "invalid recipe id")
	}

	recipe, err := h.Recipes.GetRecipeByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "recipe not found")
		}
		return serverError(c)
	}

	return c.JSON(http.StatusOK, recipe)
}
