package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// APIError is returned for non-2xx responses from an upstream provider.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api error: status=%d %s", e.Provider, e.StatusCode, e.Message)
}

var retryableMarkers = []string{
	"network",
	"timeout",
	"timed out",
	"rate limit",
	"rate-limit",
	"too many requests",
	"connection reset",
	"connection refused",
	"429",
	"500",
	"503",
}

// IsRetryable сообщает, стоит ли повторять вызов после ошибки.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrMissingAPIKey) || errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable:
			return true
		default:
			return false
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	text := strings.ToLower(err.Error())
	for _, marker := range retryableMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}

	return false
}

// IsAuthError сообщает об ошибке аутентификации или конфигурации провайдера.
func IsAuthError(err error) bool {
	if errors.Is(err, ErrMissingAPIKey) {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
	}

	return false
}
