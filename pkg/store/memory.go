package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonasqin/automedia-ai/pkg/generation"
)

// Memory is an in-memory Store for tests and credential-less local runs.
// All mutations happen under one mutex, so the agent usage counter
// increments without lost updates.
type Memory struct {
	mu          sync.Mutex
	generations map[string]*generation.Generation
	agents      map[string]*generation.Agent
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		generations: make(map[string]*generation.Generation),
		agents:      make(map[string]*generation.Agent),
	}
}

// PutAgent seeds an agent. Test helper; the agent CRUD surface lives
// outside this subsystem.
func (s *Memory) PutAgent(agent *generation.Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *agent
	s.agents[agent.ID] = &cp
}

func (s *Memory) CreateGeneration(_ context.Context, gen *generation.Generation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen.Status == "" {
		gen.Status = generation.StatusPending
	}
	now := time.Now().UTC()
	if gen.CreatedAt.IsZero() {
		gen.CreatedAt = now
	}
	gen.UpdatedAt = now

	cp := *gen
	s.generations[gen.ID] = &cp
	return nil
}

func (s *Memory) MarkProcessing(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen, ok := s.generations[id]
	if !ok {
		return ErrNotFound
	}
	if !gen.Status.CanTransition(generation.StatusProcessing) {
		return ErrStaleTransition
	}
	gen.Status = generation.StatusProcessing
	gen.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Memory) MarkCompleted(_ context.Context, id string, c Completion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen, ok := s.generations[id]
	if !ok {
		return ErrNotFound
	}
	if gen.Status.Terminal() {
		return ErrStaleTransition
	}
	gen.Status = generation.StatusCompleted
	gen.Output = c.Output
	gen.Metadata = c.Metadata
	gen.Tokens = c.Tokens
	gen.Cost = c.Cost
	gen.DurationMs = c.DurationMs
	gen.RetryCount = c.RetryCount
	gen.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Memory) MarkFailed(_ context.Context, id string, errMsg string, retryCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen, ok := s.generations[id]
	if !ok {
		return ErrNotFound
	}
	if gen.Status.Terminal() {
		return ErrStaleTransition
	}
	gen.Status = generation.StatusFailed
	gen.Error = errMsg
	gen.RetryCount = retryCount
	gen.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Memory) GetGeneration(_ context.Context, id string) (*generation.Generation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen, ok := s.generations[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *gen
	return &cp, nil
}

func (s *Memory) ListGenerationsByUser(_ context.Context, userID string) ([]generation.Generation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var gens []generation.Generation
	for _, gen := range s.generations {
		if gen.UserID == userID {
			gens = append(gens, *gen)
		}
	}
	sort.Slice(gens, func(i, j int) bool {
		return gens[i].CreatedAt.Before(gens[j].CreatedAt)
	})
	return gens, nil
}

func (s *Memory) GetAgent(_ context.Context, id string) (*generation.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	agent, ok := s.agents[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *agent
	return &cp, nil
}

func (s *Memory) IncrementAgentUsage(_ context.Context, agentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	agent, ok := s.agents[agentID]
	if !ok {
		return ErrNotFound
	}
	agent.UsageCount++
	agent.UpdatedAt = time.Now().UTC()
	return nil
}
