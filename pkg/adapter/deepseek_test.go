package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDeepSeek(t *testing.T, handler http.HandlerFunc) *DeepSeekAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &DeepSeekAdapter{
		apiKey:     "test-key",
		baseURL:    srv.URL,
		httpClient: srv.Client(),
	}
}

func TestDeepSeekGenerate(t *testing.T) {
	var gotAuth string
	var gotReq deepseekRequest

	a := newTestDeepSeek(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":    "gen-1",
			"model": "deepseek-chat",
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "hello"}},
			},
			"usage": map[string]int{
				"prompt_tokens":     12,
				"completion_tokens": 3,
				"total_tokens":      15,
			},
		})
	})

	resp, err := a.Generate(context.Background(), GenerateRequest{
		Model:       "deepseek-chat",
		Prompt:      "say hello",
		Temperature: 0.5,
		MaxTokens:   64,
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "deepseek-chat", gotReq.Model)
	assert.Equal(t, 64, gotReq.MaxTokens)
	assert.Equal(t, "hello", resp.Content)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 12, resp.Usage.PromptTokens)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
}

func TestDeepSeekGenerateRateLimited(t *testing.T) {
	a := newTestDeepSeek(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := a.Generate(context.Background(), GenerateRequest{Model: "deepseek-chat", Prompt: "x"})
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestDeepSeekGenerateAPIError(t *testing.T) {
	a := newTestDeepSeek(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"auth","code":"invalid_api_key"}}`))
	})

	_, err := a.Generate(context.Background(), GenerateRequest{Model: "deepseek-chat", Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad key")
	assert.False(t, IsTransient(err))
}
