package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"plain error", errors.New("boom"), false},
		{"rate limited status", &AdapterError{Status: 429}, true},
		{"server error status", &AdapterError{Status: 503}, true},
		{"client error status", &AdapterError{Status: 400}, false},
		{"unauthorized", &AdapterError{Status: 401, Code: "invalid_api_key"}, false},
		{"rate limit code on 200 body", &AdapterError{Status: 200, Code: "rate_limit_exceeded"}, true},
		{"overloaded code", &AdapterError{Code: "overloaded"}, true},
		{"temporary flag", &AdapterError{Status: 418, Temporary: true}, true},
		{"wrapped adapter error", fmt.Errorf("call failed: %w", &AdapterError{Status: 500}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestDeepSeekErrorBodyCodeClassified(t *testing.T) {
	// DeepSeek can report throttling in the error body with a 200-level
	// status; the code alone must make the failure retryable.
	a := newTestDeepSeek(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit","code":"rate_limit_exceeded"}}`))
	})

	_, err := a.Generate(context.Background(), GenerateRequest{Model: "deepseek-chat", Prompt: "x"})
	require.Error(t, err)

	var aerr *AdapterError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "rate_limit_exceeded", aerr.Code)
	assert.True(t, IsTransient(err))
}
