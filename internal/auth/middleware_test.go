package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, manager *TokenManager, header string) (*httptest.ResponseRecorder, uuid.UUID, error) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen uuid.UUID
	handler := JWTMiddleware(manager)(func(c echo.Context) error {
		seen, _ = UserIDFromContext(c)
		return c.NoContent(http.StatusNoContent)
	})

	return rec, seen, handler(c)
}

// TestJWTMiddlewareAcceptsValidToken проверяет сохранение user_id в контексте.
func TestJWTMiddlewareAcceptsValidToken(t *testing.T) {
	manager := NewTokenManager("secret", "meal-planner")
	userID := uuid.New()

	token, _, err := manager.Issue(userID, time.Hour)
	require.NoError(t, err)

	rec, seen, err := serve(t, manager, "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, userID, seen)
}

// TestJWTMiddlewareRejectsBadTokens проверяет отказ для некорректных заголовков и токенов.
func TestJWTMiddlewareRejectsBadTokens(t *testing.T) {
	manager := NewTokenManager("secret", "meal-planner")
	other := NewTokenManager("secret", "someone-else")
	foreign, _, err := other.Issue(uuid.New(), time.Hour)
	require.NoError(t, err)

	expired := NewTokenManager("secret", "meal-planner")
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, _, err := expired.Issue(uuid.New(), time.Hour)
	require.NoError(t, err)

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "meal-planner",
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	refreshToken, err := refresh.SignedString([]byte("secret"))
	require.NoError(t, err)

	cases := map[string]string{
		"missing":       "",
		"wrong scheme":  "Basic abc",
		"empty bearer":  "Bearer  ",
		"wrong issuer":  "Bearer " + foreign,
		"expired":       "Bearer " + stale,
		"refresh token": "Bearer " + refreshToken,
	}

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := serve(t, manager, header)
			var httpErr *echo.HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
		})
	}
}
