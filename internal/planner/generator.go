package planner

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"example.com/ai-meal-planner/backend/internal/ai"
	"example.com/ai-meal-planner/backend/internal/models"
)

const (
	requestPlan         = "meal_plan"
	requestSwap         = "meal_swap"
	requestInstructions = "recipe_instructions"
	requestTips         = "plan_tips"
	requestSubstitutes  = "ingredient_substitutes"
)

// Generator produces plan content. LiveGenerator calls the LLM and
// MockGenerator builds deterministic plans locally; the choice is made once
// when the Service is constructed.
type Generator interface {
	GeneratePlan(ctx context.Context, req PlanRequest) (ParsedPlan, error)
	SuggestSwap(ctx context.Context, meal models.Meal, profile models.UserProfile, exclude []string) (models.Meal, error)
	GenerateTips(ctx context.Context, plan models.MealPlan, profile models.UserProfile) ([]string, error)
	RecipeInstructions(ctx context.Context, meal models.Meal) ([]string, error)
	SuggestSubstitutes(ctx context.Context, ingredient models.Ingredient, avoid []string) ([]models.Substitute, error)
}

type AuditEntry struct {
	UserID       uuid.UUID
	RequestType  string
	Provider     string
	Model        string
	Prompt       string
	RawResponse  []byte
	Success      bool
	ErrorMessage *string
}

// AuditLogger stores a record of every upstream LLM request.
type AuditLogger interface {
	LogRequest(ctx context.Context, entry AuditEntry) error
}

type providerNamer interface {
	Provider() string
}

type LiveGenerator struct {
	client   ai.Client
	sampling ai.Sampling
	audit    AuditLogger
	logger   *slog.Logger
	now      func() time.Time
}

// NewLiveGenerator создает генератор поверх LLM-клиента.
func NewLiveGenerator(client ai.Client, sampling ai.Sampling, audit AuditLogger, logger *slog.Logger) *LiveGenerator {
	if logger == nil {
		logger = slog.Default()
	}

	return &LiveGenerator{
		client:   client,
		sampling: sampling,
		audit:    audit,
		logger:   logger,
		now:      time.Now,
	}
}

// GeneratePlan запрашивает у модели недельный план и разбирает ответ.
func (g *LiveGenerator) GeneratePlan(ctx context.Context, req PlanRequest) (ParsedPlan, error) {
	content, err := g.call(ctx, req.Profile.UserID, requestPlan, BuildPlanPrompt(req))
	if err != nil {
		return ParsedPlan{}, err
	}

	return ParsePlanResponse(content, g.now(), req.Profile.WeeklyBudget)
}

// SuggestSwap запрашивает у модели замену блюда.
func (g *LiveGenerator) SuggestSwap(ctx context.Context, meal models.Meal, profile models.UserProfile, exclude []string) (models.Meal, error) {
	content, err := g.call(ctx, profile.UserID, requestSwap, BuildSwapPrompt(meal, profile, exclude))
	if err != nil {
		return models.Meal{}, err
	}

	return ParseSwapResponse(content, meal, g.now())
}

// GenerateTips запрашивает у модели советы по плану.
func (g *LiveGenerator) GenerateTips(ctx context.Context, plan models.MealPlan, profile models.UserProfile) ([]string, error) {
	content, err := g.call(ctx, profile.UserID, requestTips, BuildTipsPrompt(plan, profile))
	if err != nil {
		return nil, err
	}

	return ParseTips(content)
}

// RecipeInstructions запрашивает у модели шаги приготовления.
func (g *LiveGenerator) RecipeInstructions(ctx context.Context, meal models.Meal) ([]string, error) {
	content, err := g.call(ctx, uuid.Nil, requestInstructions, BuildInstructionsPrompt(meal))
	if err != nil {
		return nil, err
	}

	return ParseInstructions(content)
}

// SuggestSubstitutes запрашивает у модели замены ингредиента.
func (g *LiveGenerator) SuggestSubstitutes(ctx context.Context, ingredient models.Ingredient, avoid []string) ([]models.Substitute, error) {
	content, err := g.call(ctx, uuid.Nil, requestSubstitutes, BuildSubstitutesPrompt(ingredient, avoid))
	if err != nil {
		return nil, err
	}

	return ParseSubstitutes(content)
}

func (g *LiveGenerator) call(ctx context.Context, userID uuid.UUID, requestType string, prompt Prompt) (string, error) {
	response, err := g.client.Chat(ctx, ai.Request{
		Messages: []ai.Message{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.User},
		},
		Sampling: g.sampling,
	})

	g.record(ctx, AuditEntry{
		UserID:      userID,
		RequestType: requestType,
		Model:       response.Usage.Model,
		Prompt:      prompt.User,
		RawResponse: response.Raw,
		Success:     err == nil,
	}, err)

	if err != nil {
		return "", Classify(err)
	}

	g.logger.Debug("llm response received",
		slog.String("request_type", requestType),
		slog.Int("total_tokens", response.Usage.TotalTokens),
	)
	return response.Content, nil
}

func (g *LiveGenerator) record(ctx context.Context, entry AuditEntry, callErr error) {
	if g.audit == nil {
		return
	}

	if named, ok := g.client.(providerNamer); ok {
		entry.Provider = named.Provider()
	}
	if callErr != nil {
		message := callErr.Error()
		entry.ErrorMessage = &message
	}

	if err := g.audit.LogRequest(context.WithoutCancel(ctx), entry); err != nil {
		g.logger.Warn("failed to log ai request", slog.String("request_type", entry.RequestType), slog.Any("error", err))
	}
}
