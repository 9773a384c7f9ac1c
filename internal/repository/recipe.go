package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/ai-meal-planner/backend/internal/models"
)

type RecipeRepository struct {
	db *pgxpool.Pool
}

// NewRecipeRepository создает репозиторий рецептов.
func NewRecipeRepository(db *pgxpool.Pool) *RecipeRepository {
	return &RecipeRepository{db: db}
}

// GetRecipeByID возвращает рецепт по идентификатору.
func (r *RecipeRepository) GetRecipeByID(ctx context.Context, id string) (models.Recipe, error) {
	var recipe models.Recipe

	err := r.db.QueryRow(ctx,
		`SELECT id, name, description, cuisine, prep_time, cook_time, servings, instructions, tags, created_at
		 FROM recipes
		 WHERE id = $1`,
		id,
	).Scan(&recipe.ID, &recipe.Name, &recipe.Description, &recipe.Cuisine, &recipe.PrepTime, &recipe.CookTime,
		&recipe.Servings, &recipe.Instructions, &recipe.Tags, &recipe.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return recipe, ErrNotFound
		}
		return recipe, err
	}

	return recipe, nil
}

// GetRecipeInstructions возвращает шаги приготовления рецепта.
func (r *RecipeRepository) GetRecipeInstructions(ctx context.Context, recipeID string) ([]string, error) {
	var instructions []string

	err := r.db.QueryRow(ctx,
		`SELECT instructions
		 FROM recipes
		 WHERE id = $1`,
		recipeID,
	).Scan(&instructions)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if len(instructions) == 0 {
		return nil, ErrNotFound
	}

	return instructions, nil
}
