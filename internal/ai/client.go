package ai

import (
	"context"
	"errors"
	"strings"
)

const defaultMaxTokens = 4096

var ErrMissingAPIKey = errors.New("ai api key is missing")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Sampling holds the generation parameters sent with every request.
type Sampling struct {
	Temperature      float64 `json:"temperature"`
	MaxTokens        int     `json:"max_tokens"`
	TopP             float64 `json:"top_p"`
	FrequencyPenalty float64 `json:"frequency_penalty"`
	PresencePenalty  float64 `json:"presence_penalty"`
}

type Request struct {
	Messages []Message
	Sampling Sampling
}

type Usage struct {
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	Model            string `json:"model"`
}

type Response struct {
	Content string
	Usage   Usage
	Raw     []byte
}

type Client interface {
	Chat(ctx context.Context, request Request) (Response, error)
}

// TokenSource returns the bearer credential used for the next upstream call.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource backed by a fixed API key.
type StaticToken string

// Token возвращает статический ключ API.
func (t StaticToken) Token(context.Context) (string, error) {
	value := strings.TrimSpace(string(t))
	if value == "" {
		return "", ErrMissingAPIKey
	}
	return value, nil
}

// DefaultSampling возвращает параметры генерации по умолчанию.
func DefaultSampling() Sampling {
	return Sampling{
		Temperature:      0.7,
		MaxTokens:        defaultMaxTokens,
		TopP:             0.9,
		FrequencyPenalty: 0.1,
		PresencePenalty:  0.1,
	}
}

func resolveMaxTokens(value int) int {
	if value > 0 {
		return value
	}

	return defaultMaxTokens
}
