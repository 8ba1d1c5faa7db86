package pricing

import "unicode/utf8"

// TokenEstimator approximates the token count of a text. It is a
// replaceable strategy: the default is a character-count heuristic, and a
// real tokenizer can be substituted per provider without touching callers.
type TokenEstimator interface {
	Estimate(text string) int
}

// HeuristicEstimator approximates tokens as ceil(characters/4), counting
// characters as runes so multi-byte text is not overcharged. This is a
// documented approximation, not a tokenizer.
type HeuristicEstimator struct{}

func (HeuristicEstimator) Estimate(text string) int {
	if text == "" {
		return 0
	}
	return (utf8.RuneCountInString(text) + 3) / 4
}

// EstimatorSet selects a TokenEstimator per provider, with a shared
// fallback for providers without an override.
type EstimatorSet struct {
	Default     TokenEstimator
	PerProvider map[string]TokenEstimator
}

// NewEstimatorSet returns a set using the heuristic estimator everywhere.
func NewEstimatorSet() EstimatorSet {
	return EstimatorSet{Default: HeuristicEstimator{}}
}

// ForProvider returns the estimator registered for the provider, or the
// default.
func (s EstimatorSet) ForProvider(provider string) TokenEstimator {
	if est, ok := s.PerProvider[provider]; ok {
		return est
	}
	if s.Default != nil {
		return s.Default
	}
	return HeuristicEstimator{}
}
