package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGroqClientChat проверяет формирование запроса и разбор ответа Groq.
func TestGroqClientChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body groqChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "llama-test", body.Model)
		assert.Len(t, body.Messages, 2)
		assert.InDelta(t, 0.9, body.TopP, 0.0001)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama-test","choices":[{"message":{"role":"assistant","content":"{\"ok\":true}"}}],"usage":{"prompt_tokens":12,"completion_tokens":4,"total_tokens":16}}`))
	}))
	defer server.Close()

	client := NewGroqClient(StaticToken("secret"), server.URL+"/", "llama-test", 5*time.Second, 0)
	response, err := client.Chat(context.Background(), Request{
		Messages: []Message{{Role: "system", Content: "sys"}, {Role: "user", Content: "hi"}},
		Sampling: DefaultSampling(),
	})

	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, response.Content)
	assert.Equal(t, 16, response.Usage.TotalTokens)
	assert.NotEmpty(t, response.Raw)
}

// TestGroqClientAPIError проверяет преобразование статуса ответа в APIError.
func TestGroqClientAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down"}}`))
	}))
	defer server.Close()

	client := NewGroqClient(StaticToken("secret"), server.URL, "llama-test", 5*time.Second, 0)
	_, err := client.Chat(context.Background(), Request{Messages: []Message{{Role: "user", Content: "hi"}}})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "slow down", apiErr.Message)
	assert.True(t, IsRetryable(err))
}

// TestGroqClientMissingKey проверяет ошибку при пустом ключе.
func TestGroqClientMissingKey(t *testing.T) {
	client := NewGroqClient(StaticToken(" "), "http://localhost", "llama-test", time.Second, 0)
	_, err := client.Chat(context.Background(), Request{Messages: []Message{{Role: "user", Content: "hi"}}})

	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.False(t, IsRetryable(err))
}

// TestGeminiClientChat проверяет маппинг ролей и разбор ответа Gemini.
func TestGeminiClientChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))

		var body geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.NotNil(t, body.SystemInstruction)
		assert.Equal(t, "sys", body.SystemInstruction.Parts[0].Text)
		require.Len(t, body.Contents, 1)
		assert.Equal(t, "user", body.Contents[0].Role)

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"a\":"},{"text":"1}"}]}}],"usageMetadata":{"promptTokenCount":3,"candidatesTokenCount":2,"totalTokenCount":5}}`))
	}))
	defer server.Close()

	client := NewGeminiClient(StaticToken("secret"), server.URL, "gemini-test", 5*time.Second, 1024)
	response, err := client.Chat(context.Background(), Request{
		Messages: []Message{{Role: "system", Content: "sys"}, {Role: "user", Content: "hi"}},
	})

	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, response.Content)
	assert.Equal(t, 5, response.Usage.TotalTokens)
}

// TestGuardedClientRetriesThroughLimiter проверяет повтор и прохождение лимитера на каждой попытке.
func TestGuardedClientRetriesThroughLimiter(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"done"}}]}`))
	}))
	defer server.Close()

	clock := newFakeClock()
	limiter := newTestLimiter(10, clock)
	retrier := newTestRetrier(3, clock)
	client := NewGuardedClient(NewGroqClient(StaticToken("secret"), server.URL, "m", 5*time.Second, 0), limiter, retrier, nil, nil)

	response, err := client.Chat(context.Background(), Request{Messages: []Message{{Role: "user", Content: "hi"}}})

	require.NoError(t, err)
	assert.Equal(t, "done", response.Content)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, 2, limiter.InWindow())
	assert.Equal(t, "groq", client.Provider())
}
