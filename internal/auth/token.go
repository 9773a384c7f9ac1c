package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenTypeAccess = "access"

type Claims struct {
	TokenType string `json:"typ,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager проверяет bearer-токены, выданные внешним сервисом идентификации.
type TokenManager struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokenManager инициализирует менеджер JWT токенов.
func NewTokenManager(secret string, issuer string) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}
}

// Issue подписывает access-токен для пользователя; используется локальными инструментами.
func (m *TokenManager) Issue(userID uuid.UUID, ttl time.Duration) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(ttl)

	claims := Claims{
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// ParseAccessToken валидирует access-токен и возвращает claims.
func (m *TokenManager) ParseAccessToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}), jwt.WithIssuer(m.issuer))
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("token is invalid")
	}

	// Внешние провайдеры могут не указывать тип; refresh-токены отклоняются.
	if claims.TokenType != "" && claims.TokenType != tokenTypeAccess {
		return nil, errors.New("token type mismatch")
	}

	return claims, nil
}

// UserID возвращает идентификатор пользователя из subject.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}
