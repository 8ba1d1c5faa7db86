package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveProvider(t *testing.T) {
	cases := []struct {
		model    string
		provider string
		matched  bool
	}{
		{"gpt-3.5-turbo", "openai", true},
		{"gpt-4", "openai", true},
		{"gemini-1.5-flash", "google", true},
		{"claude-3-5-sonnet-20241022", "anthropic", true},
		{"deepseek-chat", "deepseek", true},
		{"GPT-4o", "openai", true},
		{"llama-3-70b", "openai", false},
		{"", "openai", false},
	}

	for _, tc := range cases {
		provider, matched := ResolveProvider(tc.model)
		assert.Equal(t, tc.provider, provider, "model %q", tc.model)
		assert.Equal(t, tc.matched, matched, "model %q", tc.model)
	}
}

func TestRegistryGet(t *testing.T) {
	reg := NewRegistry(
		NewMockAdapter().WithName("openai"),
		NewMockAdapter().WithName("google"),
	)

	a, ok := reg.Get("openai")
	assert.True(t, ok)
	assert.Equal(t, "openai", a.Name())

	_, ok = reg.Get("anthropic")
	assert.False(t, ok)

	assert.Equal(t, []string{"google", "openai"}, reg.Names())
}
