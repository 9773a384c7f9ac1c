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

const geminiProvider = "gemini"

// GeminiClient calls the Google Generative Language API (Gemini).
type GeminiClient struct {
	tokens     TokenSource
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  *geminiConfig   `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	TopP             float64 `json:"topP,omitempty"`
	FrequencyPenalty float64 `json:"frequencyPenalty,omitempty"`
	PresencePenalty  float64 `json:"presencePenalty,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata,omitempty"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewGeminiClient создает клиент Gemini с заданными параметрами.
func NewGeminiClient(tokens TokenSource, baseURL, model string, timeout time.Duration, maxTokens int) *GeminiClient {
	trimmedURL := strings.TrimRight(baseURL, "/")
	return &GeminiClient{
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
func (c *GeminiClient) Provider() string {
	return geminiProvider
}

// Chat отправляет сообщения в Gemini и возвращает текст ответа и метаданные.
func (c *GeminiClient) Chat(ctx context.Context, request Request) (Response, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return Response{}, err
	}

	systemParts := make([]geminiPart, 0)
	contents := make([]geminiContent, 0)

	for _, message := range request.Messages {
		role := strings.ToLower(strings.TrimSpace(message.Role))
		text := strings.TrimSpace(message.Content)
		if text == "" {
			continue
		}

		switch role {
		case "system":
			systemParts = append(systemParts, geminiPart{Text: text})
		case "assistant", "model":
			contents = append(contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: text}}})
		default:
			contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: text}}})
		}
	}

	if len(contents) == 0 {
		return Response{}, errors.New("gemini request has no user content")
	}

	maxTokens := request.Sampling.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	body := geminiRequest{
		Contents: contents,
		GenerationConfig: &geminiConfig{
			Temperature:      request.Sampling.Temperature,
			MaxOutputTokens:  resolveMaxTokens(maxTokens),
			TopP:             request.Sampling.TopP,
			FrequencyPenalty: request.Sampling.FrequencyPenalty,
			PresencePenalty:  request.Sampling.PresencePenalty,
			ResponseMimeType: "application/json",
		},
	}

	if len(systemParts) > 0 {
		body.SystemInstruction = &geminiContent{Role: "system", Parts: systemParts}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, err
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Response{}, err
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("x-goog-api-key", token)

	response, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return Response{}, fmt.Errorf("gemini network error: %w", err)
	}
	defer response.Body.Close()

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return Response{}, fmt.Errorf("gemini network error: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		message := strings.TrimSpace(string(raw))
		var apiErr geminiResponse
		if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Error != nil {
			message = apiErr.Error.Message
		}
		return Response{Raw: raw}, &APIError{Provider: geminiProvider, StatusCode: response.StatusCode, Message: message}
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Response{Raw: raw}, err
	}

	if len(parsed.Candidates) == 0 {
		return Response{Raw: raw}, errors.New("gemini response missing candidates")
	}

	parts := parsed.Candidates[0].Content.Parts
	if len(parts) == 0 {
		return Response{Raw: raw}, errors.New("gemini response missing content")
	}

	var builder strings.Builder
	for _, part := range parts {
		builder.WriteString(part.Text)
	}

	result := Response{
		Content: builder.String(),
		Raw:     raw,
		Usage:   Usage{Model: c.model},
	}
	if parsed.UsageMetadata != nil {
		result.Usage.PromptTokens = parsed.UsageMetadata.PromptTokenCount
		result.Usage.CompletionTokens = parsed.UsageMetadata.CandidatesTokenCount
		result.Usage.TotalTokens = parsed.UsageMetadata.TotalTokenCount
	}

	return result, nil
}
