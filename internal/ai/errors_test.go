package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestIsRetryable проверяет классификацию ошибок.
func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"429", &APIError{StatusCode: http.StatusTooManyRequests}, true},
		{"500", &APIError{StatusCode: http.StatusInternalServerError}, true},
		{"503", &APIError{StatusCode: http.StatusServiceUnavailable}, true},
		{"401", &APIError{StatusCode: http.StatusUnauthorized}, false},
		{"400", &APIError{StatusCode: http.StatusBadRequest}, false},
		{"wrapped 503", fmt.Errorf("call: %w", &APIError{StatusCode: http.StatusServiceUnavailable}), true},
		{"network text", errors.New("groq network error: dial tcp"), true},
		{"timeout text", errors.New("request Timeout"), true},
		{"rate limit text", errors.New("Rate limit exceeded"), true},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"missing key", ErrMissingAPIKey, false},
		{"malformed", errors.New("malformed request body"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsRetryable(tc.err))
		})
	}
}

// TestIsAuthError проверяет распознавание ошибок авторизации.
func TestIsAuthError(t *testing.T) {
	assert.True(t, IsAuthError(ErrMissingAPIKey))
	assert.True(t, IsAuthError(&APIError{StatusCode: http.StatusUnauthorized}))
	assert.True(t, IsAuthError(&APIError{StatusCode: http.StatusForbidden}))
	assert.False(t, IsAuthError(&APIError{StatusCode: http.StatusTooManyRequests}))
	assert.False(t, IsAuthError(errors.New("boom")))
}
