package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"example.com/ai-meal-planner/backend/internal/auth"
	"example.com/ai-meal-planner/backend/internal/cache"
	"example.com/ai-meal-planner/backend/internal/config"
	"example.com/ai-meal-planner/backend/internal/models"
	"example.com/ai-meal-planner/backend/internal/optimizer"
	"example.com/ai-meal-planner/backend/internal/planner"
	"example.com/ai-meal-planner/backend/internal/server"
)

const dateLayout = "2006-01-02"

// newPlanner собирает сервис планирования поверх хранилища в памяти.
func newPlanner(cfg config.Config, logger *slog.Logger) *planner.Service {
	opts := planner.Options{
		Logger:               logger,
		DisableRenegotiation: !cfg.Planner.Renegotiation,
		MaxRenegotiations:    cfg.Planner.MaxRenegotiations,
	}
	if !cfg.MockMode() {
		opts.Cache = cache.NewMemoryCache(cfg.Planner.CacheTTL)
	}

	return planner.NewService(server.NewGenerator(cfg, nil, nil, logger), planner.NewMemoryStore(), opts)
}

func generateCmd() *cobra.Command {
	var (
		profilePath   string
		householdPath string
		pantry        []string
		exclude       []string
		cuisines      []string
		weekStart     string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a weekly meal plan and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadPlanning()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := slog.Default()

			profile, err := loadProfile(profilePath)
			if err != nil {
				return err
			}

			req := planner.PlanRequest{
				Profile:           profile,
				PantryItems:       pantry,
				ExcludeRecipes:    exclude,
				PreferredCuisines: cuisines,
			}

			if householdPath != "" {
				if req.Household, err = loadHousehold(householdPath, profile.UserID); err != nil {
					return err
				}
			}

			if weekStart != "" {
				req.WeekStartDate, err = time.ParseInLocation(dateLayout, strings.TrimSpace(weekStart), time.Local)
				if err != nil {
					return fmt.Errorf("--week-start must be YYYY-MM-DD: %w", err)
				}
			}

			plan, err := newPlanner(cfg, logger).GeneratePlan(cmd.Context(), req)
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), plan)
		},
	}

	cmd.Flags().StringVar(&profilePath, "profile", "", "Profile YAML file")
	cmd.Flags().StringVar(&householdPath, "household", "", "Household members YAML file")
	cmd.Flags().StringSliceVar(&pantry, "pantry", nil, "Ingredients already at home")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Recipe names to leave out")
	cmd.Flags().StringSliceVar(&cuisines, "cuisine", nil, "Preferred cuisines for this week")
	cmd.Flags().StringVar(&weekStart, "week-start", "", "First day of the plan (YYYY-MM-DD), tomorrow by default")
	_ = cmd.MarkFlagRequired("profile")

	return cmd
}

type suggestionsOutput struct {
	PlanID           uuid.UUID                       `json:"plan_id"`
	Suggestions      []models.OptimizationSuggestion `json:"suggestions"`
	PotentialSavings float64                         `json:"potential_savings"`
}

func optimizeCmd() *cobra.Command {
	var (
		profilePath    string
		planPath       string
		householdPath  string
		apply          bool
		advanced       bool
		maxSuggestions int
	)

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Suggest cost optimizations for a plan, optionally applying them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadPlanning()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := slog.Default()

			profile, err := loadProfile(profilePath)
			if err != nil {
				return err
			}

			plan, err := loadPlan(planPath)
			if err != nil {
				return err
			}

			var household *models.HouseholdPreferences
			if householdPath != "" {
				if household, err = loadHousehold(householdPath, profile.UserID); err != nil {
					return err
				}
			}

			service := newPlanner(cfg, logger)
			engine := optimizer.NewEngine(service, service, server.NewOptimizerConfig(cfg.Optimizer), nil, logger)

			suggestions, err := engine.Suggest(cmd.Context(), plan, profile, optimizer.SuggestOptions{
				Household:       household,
				IncludeAdvanced: advanced,
				MaxSuggestions:  maxSuggestions,
			})
			if err != nil {
				return err
			}

			if !apply {
				var savings float64
				for _, s := range suggestions {
					savings += s.SavingsAmount
				}
				return writeJSON(cmd.OutOrStdout(), suggestionsOutput{
					PlanID:           plan.ID,
					Suggestions:      suggestions,
					PotentialSavings: models.RoundCurrency(savings),
				})
			}

			if len(suggestions) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "no optimizations to apply")
			}

			result, err := engine.Apply(cmd.Context(), plan, profile, suggestions)
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&profilePath, "profile", "", "Profile YAML file")
	cmd.Flags().StringVar(&planPath, "plan", "", "Meal plan JSON file produced by generate")
	cmd.Flags().StringVar(&householdPath, "household", "", "Household members YAML file")
	cmd.Flags().BoolVar(&apply, "apply", false, "Apply the suggestions and print the optimized plan")
	cmd.Flags().BoolVar(&advanced, "advanced", false, "Include suggestions above the profile's cooking skill")
	cmd.Flags().IntVar(&maxSuggestions, "max", 0, "Maximum number of suggestions, configured default when 0")
	_ = cmd.MarkFlagRequired("profile")
	_ = cmd.MarkFlagRequired("plan")

	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		userID string
		secret string
		issuer string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development bearer token for the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return fmt.Errorf("--secret or JWT_SECRET is required")
			}

			id := uuid.New()
			if userID != "" {
				parsed, err := uuid.Parse(userID)
				if err != nil {
					return fmt.Errorf("--user must be a UUID: %w", err)
				}
				id = parsed
			}

			token, expiresAt, err := auth.NewTokenManager(secret, issuer).Issue(id, ttl)
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"user_id":      id,
				"access_token": token,
				"expires_at":   expiresAt,
			})
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User ID, random when empty")
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "HMAC secret shared with the server")
	cmd.Flags().StringVar(&issuer, "issuer", envOr("JWT_ISSUER", "meal-planner"), "Token issuer")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")

	return cmd
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
