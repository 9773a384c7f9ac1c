package planner

import (
	"context"
	"errors"
	"fmt"

	"example.com/ai-meal-planner/backend/internal/ai"
)

var (
	ErrServiceUnavailable = errors.New("meal planning service is busy, please try again later")
	ErrConfiguration      = errors.New("meal planning service configuration error")
	ErrInvalidFormat      = errors.New("invalid response format from meal planning service")
	ErrInvalidInput       = errors.New("invalid meal planning input")
	ErrPlanNotFound       = errors.New("meal plan not found")
	ErrMealNotFound       = errors.New("meal not found in meal plan")
	ErrNoAlternative      = errors.New("no alternative recipe available")
)

// Classify переводит ошибку вызова LLM в таксономию планировщика.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, ErrConfiguration),
		errors.Is(err, ErrInvalidFormat),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrPlanNotFound),
		errors.Is(err, ErrMealNotFound),
		errors.Is(err, ErrNoAlternative),
		errors.Is(err, context.Canceled):
		return err
	case ai.IsAuthError(err):
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	case ai.IsRetryable(err):
		return fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}

	var apiErr *ai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	return fmt.Errorf("meal generation failed: %w", err)
}

func formatErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidFormat, fmt.Sprintf(format, args...))
}
