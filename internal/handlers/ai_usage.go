package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/ai-meal-planner/backend/internal/auth"
	"example.com/ai-meal-planner/backend/internal/repository"
)

const (
	timeLayout       = "2006-01-02T15:04:05Z07:00"
	defaultUsageDays = 7
	maxUsageDays     = 30
)

type AIUsageStore interface {
	ListRequests(ctx context.Context, filter repository.AIRequestFilter, limit, offset int, includePayloads bool) ([]repository.AIRequestRecord, error)
	CountRequests(ctx context.Context, filter repository.AIRequestFilter) (int, error)
	Usage(ctx context.Context, userID uuid.UUID, days int) (repository.UsageStats, error)
}

type AIUsageHandler struct {
	Repo AIUsageStore
}

// NewAIUsageHandler создает обработчик журнала AI-запросов пользователя.
func NewAIUsageHandler(repo AIUsageStore) *AIUsageHandler {
	return &AIUsageHandler{Repo: repo}
}

type AIRequestResponse struct {
	ID           uuid.UUID `json:"id"`
	RequestType  string    `json:"request_type"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	Success      bool      `json:"success"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	CreatedAt    string    `json:"created_at"`
	Prompt       *string   `json:"prompt,omitempty"`
	RawResponse  *string   `json:"raw_response,omitempty"`
}

type AIRequestsResponse struct {
	Total    int                 `json:"total"`
	Requests []AIRequestResponse `json:"requests"`
}

type UsageDay struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type UsageResponse struct {
	Plans           int        `json:"plans"`
	AIRequests      int        `json:"ai_requests"`
	AISuccess       int        `json:"ai_success"`
	AIFail          int        `json:"ai_fail"`
	AIRequestsByDay []UsageDay `json:"ai_requests_by_day"`
}

// ListRequests возвращает журнал AI-запросов пользователя с фильтрами.
func (h *AIUsageHandler) ListRequests(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	limit, offset, err := parsePagination(c, 50, 200)
	if err != nil {
		return badRequest(c, err.Error())
	}

	filter := repository.AIRequestFilter{UserID: userID}
	if raw := strings.TrimSpace(c.QueryParam("success")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return badRequest(c, "invalid success")
		}
		filter.Success = &parsed
	}

	if raw := strings.TrimSpace(c.QueryParam("request_type")); raw != "" {
		filter.RequestType = &raw
	}

	includePayloads := false
	if raw := strings.TrimSpace(c.QueryParam("include_payloads")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return badRequest(c, "invalid include_payloads")
		}
		includePayloads = parsed
	}

	requests, err := h.Repo.ListRequests(c.Request().Context(), filter, limit, offset, includePayloads)
	if err != nil {
		return serverError(c)
	}

	total, err := h.Repo.CountRequests(c.Request().Context(), filter)
	if err != nil {
		return serverError(c)
	}

	response := make([]AIRequestResponse, 0, len(requests))
	for _, req := range requests {
		response = append(response, AIRequestResponse{
			ID:           req.ID,
			RequestType:  req.RequestType,
			Provider:     req.Provider,
			Model:        req.Model,
			Success:      req.Success,
			ErrorMessage: req.ErrorMessage,
			CreatedAt:    req.CreatedAt.Format(timeLayout),
			Prompt:       req.Prompt,
			RawResponse:  req.RawResponse,
		})
	}

	return c.JSON(http.StatusOK, AIRequestsResponse{Total: total, Requests: response})
}

// Usage возвращает статистику использования AI пользователем.
func (h *AIUsageHandler) Usage(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	days := defaultUsageDays
	if raw := strings.TrimSpace(c.QueryParam("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return badRequest(c, "invalid days")
		}
		days = min(parsed, maxUsageDays)
	}

	stats, err := h.Repo.Usage(c.Request().Context(), userID, days)
	if err != nil {
		if errors.Is(err, repository.ErrInvalid) {
			return badRequest(c, "invalid days")
		}
		return serverError(c)
	}

	daysResponse := make([]UsageDay, 0, len(stats.AIRequestsByDay))
	for _, day := range stats.AIRequestsByDay {
		daysResponse = append(daysResponse, UsageDay{
			Date:  day.Day.Format(dateLayout),
			Count: day.Count,
		})
	}

	return c.JSON(http.StatusOK, UsageResponse{
		Plans:           stats.Plans,
		AIRequests:      stats.AIRequests,
		AISuccess:       stats.AISuccess,
		AIFail:          stats.AIFail,
		AIRequestsByDay: daysResponse,
	})
}

func parsePagination(c echo.Context, defaultLimit, maxLimit int) (int, int, error) {
	limit := defaultLimit
	if raw := strings.TrimSpace(c.QueryParam("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return 0, 0, errors.New("invalid limit")
		}
		limit = min(parsed, maxLimit)
	}

	offset := 0
	if raw := strings.TrimSpace(c.QueryParam("offset")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return 0, 0, errors.New("invalid offset")
		}
		offset = parsed
	}

	return limit, offset, nil
}
