// Package generation defines the persisted entities of the AI generation
// subsystem: the Generation record that tracks one prompt→output attempt
// through its lifecycle, and the Agent preset it may be attributed to.
package generation

import "time"

// Status is the lifecycle state of a Generation.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status is final. Records in a terminal
// state are never mutated again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from s to next is a legal
// lifecycle step. Transitions are one-directional:
// pending → processing → {completed | failed}.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusFailed
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// TokenUsage holds token accounting for one generation.
type TokenUsage struct {
	Input  int `bson:"input" json:"input"`
	Output int `bson:"output" json:"output"`
	Total  int `bson:"total" json:"total"`
}

// Metadata describes how a generation was produced.
type Metadata struct {
	Provider    string  `bson:"provider" json:"provider"`
	Model       string  `bson:"model" json:"model"`
	Temperature float64 `bson:"temperature" json:"temperature"`
	MaxTokens   int     `bson:"max_tokens" json:"max_tokens"`
	DurationMs  int64   `bson:"duration_ms" json:"duration_ms"`
}

// Generation is one persisted generation attempt.
//
// Tokens, Cost and DurationMs are populated only when Status is completed;
// Error is populated only when Status is failed.
type Generation struct {
	ID      string `bson:"_id" json:"id"`
	UserID  string `bson:"user_id" json:"user_id"`
	AgentID string `bson:"agent_id,omitempty" json:"agent_id,omitempty"`

	Prompt      string  `bson:"prompt" json:"prompt"`
	Context     string  `bson:"context,omitempty" json:"context,omitempty"`
	Model       string  `bson:"model" json:"model"`
	Temperature float64 `bson:"temperature" json:"temperature"`
	MaxTokens   int     `bson:"max_tokens" json:"max_tokens"`

	Output   string   `bson:"output,omitempty" json:"output,omitempty"`
	Metadata Metadata `bson:"metadata" json:"metadata"`
	Sources  []string `bson:"sources,omitempty" json:"sources,omitempty"`

	Tokens     TokenUsage `bson:"tokens" json:"tokens"`
	Cost       float64    `bson:"cost" json:"cost"`
	DurationMs int64      `bson:"duration_ms" json:"duration_ms"`

	Status     Status `bson:"status" json:"status"`
	Error      string `bson:"error,omitempty" json:"error,omitempty"`
	RetryCount int    `bson:"retry_count" json:"retry_count"`
	MaxRetries int    `bson:"max_retries" json:"max_retries"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Agent is a reusable generation preset owned by one user. Requests that
// name an AgentID inherit its model, temperature, max tokens and system
// prompt for any field they leave unset.
type Agent struct {
	ID     string `bson:"_id" json:"id"`
	UserID string `bson:"user_id" json:"user_id"`

	Name         string   `bson:"name" json:"name"`
	Type         string   `bson:"type,omitempty" json:"type,omitempty"`
	Model        string   `bson:"model" json:"model"`
	Temperature  float64  `bson:"temperature" json:"temperature"`
	MaxTokens    int      `bson:"max_tokens" json:"max_tokens"`
	SystemPrompt string   `bson:"system_prompt,omitempty" json:"system_prompt,omitempty"`
	OutputFormat string   `bson:"output_format,omitempty" json:"output_format,omitempty"`
	Constraints  []string `bson:"constraints,omitempty" json:"constraints,omitempty"`

	// UsageCount is incremented exactly once per generation attributed to
	// this agent, via an atomic datastore increment.
	UsageCount int64 `bson:"usage_count" json:"usage_count"`

	// IsDefault marks the default agent for this user and type. At most
	// one agent per (user, type) pair carries it.
	IsDefault bool `bson:"is_default" json:"is_default"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// StatsSnapshot is a derived per-user aggregate over Generation records.
// It is cached with a TTL and is never a source of truth.
type StatsSnapshot struct {
	TotalGenerations      int     `json:"total_generations"`
	SuccessfulGenerations int     `json:"successful_generations"`
	FailedGenerations     int     `json:"failed_generations"`
	TotalTokens           int     `json:"total_tokens"`
	TotalCost             float64 `json:"total_cost"`
	AverageDurationMs     float64 `json:"average_duration_ms"`
	MostUsedModel         string  `json:"most_used_model"`
}
