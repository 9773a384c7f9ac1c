package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const groqProvider = "groq"

// GroqClient calls the Groq OpenAI-compatible chat completions API.
type GroqClient struct {
	tokens     TokenSource
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
}

type groqChatRequest struct {
	Model            string    `json:"model"`
	Messages         []Message `json:"messages"`
	Temperature      float64   `json:"temperature"`
	MaxTokens        int       `json:"max_tokens,omitempty"`
	TopP             float64   `json:"top_p,omitempty"`
	FrequencyPenalty float64   `json:"frequency_penalty,omitempty"`
	PresencePenalty  float64   `json:"presence_penalty,omitempty"`
}

type groqChatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewGroqClient создает клиент Groq с заданными параметрами.
func NewGroqClient(tokens TokenSource, baseURL, model string, timeout time.Duration, maxTokens int) *GroqClient {
	trimmedURL := strings.TrimRight(baseURL, "/")
	return &GroqClient{
		tokens:    tokens,
		baseURL:   trimmedURL,
		model:     model,
		maxTokens: maxTokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Provider возвращает имя провайдера.
func (c *GroqClient) Provider() string {
	return groqProvider
}

// Chat отправляет сообщения в Groq и возвращает текст ответа и метаданные.
func (c *GroqClient) Chat(ctx context.Context, request Request) (Response, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return Response{}, err
	}

	maxTokens := request.Sampling.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	reqBody := groqChatRequest{
		Model:            c.model,
		Messages:         request.Messages,
		Temperature:      request.Sampling.Temperature,
		MaxTokens:        resolveMaxTokens(maxTokens),
		TopP:             request.Sampling.TopP,
		FrequencyPenalty: request.Sampling.FrequencyPenalty,
		PresencePenalty:  request.Sampling.PresencePenalty,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return Response{}, err
	}

	endpoint := fmt.Sprintf("%s/chat/completions", c.baseURL)
	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Response{}, err
	}

	httpRequest.Header.Set("Authorization", "Bearer "+token)
	httpRequest.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return Response{}, fmt.Errorf("groq network error: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return Response{}, fmt.Errorf("groq network error: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		message := strings.TrimSpace(string(body))
		var apiErr groqChatResponse
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != nil {
			message = apiErr.Error.Message
		}
		return Response{Raw: body}, &APIError{Provider: groqProvider, StatusCode: response.StatusCode, Message: message}
	}

	var parsed groqChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Response{Raw: body}, err
	}

	if len(parsed.Choices) == 0 {
		return Response{Raw: body}, errors.New("groq response missing choices")
	}

	result := Response{
		Content: parsed.Choices[0].Message.Content,
		Raw:     body,
		Usage:   Usage{Model: parsed.Model},
	}
	if parsed.Usage != nil {
		result.Usage.PromptTokens = parsed.Usage.PromptTokens
		result.Usage.CompletionTokens = parsed.Usage.CompletionTokens
		result.Usage.TotalTokens = parsed.Usage.TotalTokens
	}

	return result, nil
}
