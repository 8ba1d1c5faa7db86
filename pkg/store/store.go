// Package store persists Generation and Agent entities. The production
// implementation is backed by MongoDB; an in-memory implementation backs
// tests and credential-less local runs.
package store

import (
	"context"
	"errors"

	"github.com/jonasqin/automedia-ai/pkg/generation"
)

// ErrNotFound reports a missing entity.
var ErrNotFound = errors.New("not found")

// ErrStaleTransition reports a state transition rejected because the
// record had already reached a terminal state. Late writes (for example
// an adapter response arriving after the caller's timeout marked the
// record failed) surface as this error and must be discarded, not
// retried.
var ErrStaleTransition = errors.New("generation already in terminal state")

// Completion carries the fields written when a generation completes.
type Completion struct {
	Output     string
	Metadata   generation.Metadata
	Tokens     generation.TokenUsage
	Cost       float64
	DurationMs int64
	RetryCount int
}

// Store is the persistence contract the orchestrator depends on.
type Store interface {
	// CreateGeneration persists a new record. The record's Status must be
	// pending.
	CreateGeneration(ctx context.Context, gen *generation.Generation) error

	// MarkProcessing transitions pending → processing.
	MarkProcessing(ctx context.Context, id string) error

	// MarkCompleted transitions a non-terminal record to completed and
	// writes the output and accounting fields. Returns ErrStaleTransition
	// if the record is already terminal.
	MarkCompleted(ctx context.Context, id string, c Completion) error

	// MarkFailed transitions a non-terminal record to failed and records
	// the error message. Returns ErrStaleTransition if the record is
	// already terminal.
	MarkFailed(ctx context.Context, id string, errMsg string, retryCount int) error

	// GetGeneration fetches one record by id.
	GetGeneration(ctx context.Context, id string) (*generation.Generation, error)

	// ListGenerationsByUser returns all of a user's generation records.
	ListGenerationsByUser(ctx context.Context, userID string) ([]generation.Generation, error)

	// GetAgent fetches one agent by id.
	GetAgent(ctx context.Context, id string) (*generation.Agent, error)

	// IncrementAgentUsage atomically increments the agent's usage counter.
	// A read-modify-write here would lose updates under concurrency; the
	// increment must happen at the datastore.
	IncrementAgentUsage(ctx context.Context, agentID string) error
}
