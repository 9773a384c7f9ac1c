package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"example.com/ai-meal-planner/backend/internal/planner"
)

const dateLayout = "2006-01-02"

type ErrorResponse struct {
	Error string `json:"error"`
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
}

func notFound(c echo.Context, message string) error {
	return c.JSON(http.StatusNotFound, ErrorResponse{Error: message})
}

func serverError(c echo.Context) error {
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// plannerError переводит ошибки оркестратора в HTTP-статусы и понятные пользователю сообщения.
func plannerError(c echo.Context, logger *slog.Logger, err error) error {
	var status int
	var message string

	switch {
	case errors.Is(err, planner.ErrInvalidInput):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, planner.ErrPlanNotFound):
		status, message = http.StatusNotFound, "meal plan not found"
	case errors.Is(err, planner.ErrMealNotFound):
		status, message = http.StatusNotFound, "meal not found"
	case errors.Is(err, planner.ErrNoAlternative):
		status, message = http.StatusUnprocessableEntity, "no alternative meal available"
	case errors.Is(err, planner.ErrServiceUnavailable), errors.Is(err, context.DeadlineExceeded):
		status, message = http.StatusServiceUnavailable, "service busy, please try again later"
	case errors.Is(err, planner.ErrConfiguration):
		status, message = http.StatusInternalServerError, "configuration error"
	case errors.Is(err, planner.ErrInvalidFormat):
		status, message = http.StatusBadGateway, "invalid response format"
	default:
		status, message = http.StatusInternalServerError, "internal server error"
	}

	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed", slog.String("path", c.Path()), slog.Any("error", err))
	}

	return c.JSON(status, ErrorResponse{Error: message})
}
