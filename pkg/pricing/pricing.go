// Package pricing provides per-provider cost tables and token estimation
// for generation accounting.
package pricing

// Rate holds the price per thousand tokens for one model.
type Rate struct {
	InputPer1K  float64 `koanf:"input_per_1k"`
	OutputPer1K float64 `koanf:"output_per_1k"`
}

// Table maps provider name → model → rate. A "default" model entry acts
// as the fallback for models without an explicit row.
type Table map[string]map[string]Rate

// DefaultTable returns the built-in rate table. Rates are USD per 1k
// tokens and are estimates, not billing data.
func DefaultTable() Table {
	return Table{
		"openai": {
			"gpt-3.5-turbo": {InputPer1K: 0.0005, OutputPer1K: 0.0015},
			"gpt-4":         {InputPer1K: 0.03, OutputPer1K: 0.06},
			"gpt-4o":        {InputPer1K: 0.0025, OutputPer1K: 0.01},
			"default":       {InputPer1K: 0.0005, OutputPer1K: 0.0015},
		},
		"anthropic": {
			"claude-3-5-sonnet-20241022": {InputPer1K: 0.003, OutputPer1K: 0.015},
			"claude-3-5-haiku-20241022":  {InputPer1K: 0.0008, OutputPer1K: 0.004},
			"default":                    {InputPer1K: 0.003, OutputPer1K: 0.015},
		},
		"google": {
			"gemini-1.5-flash": {InputPer1K: 0.000075, OutputPer1K: 0.0003},
			"gemini-1.5-pro":   {InputPer1K: 0.00125, OutputPer1K: 0.005},
			"default":          {InputPer1K: 0.000075, OutputPer1K: 0.0003},
		},
		"deepseek": {
			"deepseek-chat": {InputPer1K: 0.00014, OutputPer1K: 0.00028},
			"default":       {InputPer1K: 0.00014, OutputPer1K: 0.00028},
		},
	}
}

// Lookup returns the rate for a provider/model pair, falling back to the
// provider's "default" entry.
func (t Table) Lookup(provider, model string) (Rate, bool) {
	models, ok := t[provider]
	if !ok {
		return Rate{}, false
	}
	if rate, ok := models[model]; ok {
		return rate, true
	}
	if rate, ok := models["default"]; ok {
		return rate, true
	}
	return Rate{}, false
}

// Cost computes the estimated cost for the given token counts. Unknown
// provider/model pairs cost zero.
func (t Table) Cost(provider, model string, inputTokens, outputTokens int) float64 {
	rate, ok := t.Lookup(provider, model)
	if !ok {
		return 0
	}
	return (float64(inputTokens)*rate.InputPer1K + float64(outputTokens)*rate.OutputPer1K) / 1000.0
}
