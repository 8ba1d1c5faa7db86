package adapter

import (
	"sort"
	"strings"
)

// DefaultProvider receives models whose prefix matches no routing rule.
const DefaultProvider = "openai"

// modelRoute maps a model-name prefix to a provider.
type modelRoute struct {
	prefix   string
	provider string
}

// Matching is ordered: first prefix wins.
var modelRoutes = []modelRoute{
	{prefix: "gpt", provider: "openai"},
	{prefix: "gemini", provider: "google"},
	{prefix: "claude", provider: "anthropic"},
	{prefix: "deepseek", provider: "deepseek"},
}

// ResolveProvider maps a model name to a provider name. The second return
// value is false when no prefix matched and the default provider was
// used, so callers can log the fallthrough.
func ResolveProvider(model string) (string, bool) {
	name := strings.ToLower(strings.TrimSpace(model))
	for _, route := range modelRoutes {
		if strings.HasPrefix(name, route.prefix) {
			return route.provider, true
		}
	}
	return DefaultProvider, false
}

// Registry holds the configured adapters keyed by provider name. It is
// built once at startup from available credentials and is read-only
// afterward; construct it explicitly and inject it where needed.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry creates a registry from the given adapters. A later adapter
// with the same name replaces an earlier one.
func NewRegistry(adapters ...Adapter) *Registry {
	m := make(map[string]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Name()] = a
	}
	return &Registry{adapters: m}
}

// Get returns the adapter registered under the provider name.
func (r *Registry) Get(name string) (Adapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
