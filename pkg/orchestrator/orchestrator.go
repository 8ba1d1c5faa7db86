// Package orchestrator coordinates AI generation: it validates input,
// resolves the provider for the requested model, assembles the effective
// prompt, drives the persisted Generation record through its lifecycle,
// accounts tokens and cost, and maintains agent usage counters and the
// per-user stats cache.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/jonasqin/automedia-ai/pkg/adapter"
	"github.com/jonasqin/automedia-ai/pkg/cache"
	"github.com/jonasqin/automedia-ai/pkg/generation"
	"github.com/jonasqin/automedia-ai/pkg/pricing"
	"github.com/jonasqin/automedia-ai/pkg/store"
)

// Request is one generation call. Zero values for Model, Temperature and
// MaxTokens take the configured defaults (or the attributed agent's
// preset, when AgentID is set).
type Request struct {
	Prompt       string  `json:"prompt"`
	Model        string  `json:"model,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	Context      string  `json:"context,omitempty"`
	AgentID      string  `json:"agent_id,omitempty"`
}

// Result is returned to the caller on a completed generation.
type Result struct {
	GenerationID string                `json:"generation_id"`
	Content      string                `json:"content"`
	Metadata     generation.Metadata   `json:"metadata"`
	Tokens       generation.TokenUsage `json:"tokens"`
	Cost         float64               `json:"cost"`

	// PersistenceErr reports a datastore failure that occurred after the
	// provider call succeeded, when the service is not configured to fail
	// the whole call on it. The content above is still valid.
	PersistenceErr error `json:"-"`
}

// Options tunes the service. The zero value takes all defaults.
type Options struct {
	DefaultModel       string
	DefaultTemperature float64
	DefaultMaxTokens   int

	// MaxRetries bounds retry attempts beyond the first call; only
	// transient provider errors are retried.
	MaxRetries       int
	RetryBaseBackoff time.Duration
	RetryMaxBackoff  time.Duration

	// ProviderConcurrency bounds in-flight calls per provider so bursts
	// do not trip upstream rate limits.
	ProviderConcurrency int64

	// StatsTTL bounds staleness of the cached per-user stats snapshot.
	StatsTTL time.Duration

	// StrictPersistence fails the whole call when the datastore is
	// unreachable after a successful provider call. When false the
	// generated content is still returned and the failure is logged and
	// reported on Result.PersistenceErr.
	StrictPersistence bool
}

func (o *Options) setDefaults() {
	if o.DefaultModel == "" {
		o.DefaultModel = "gpt-3.5-turbo"
	}
	if o.DefaultTemperature == 0 {
		o.DefaultTemperature = 0.7
	}
	if o.DefaultMaxTokens == 0 {
		o.DefaultMaxTokens = 1000
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = 3
	}
	if o.RetryBaseBackoff == 0 {
		o.RetryBaseBackoff = 200 * time.Millisecond
	}
	if o.RetryMaxBackoff == 0 {
		o.RetryMaxBackoff = 2 * time.Second
	}
	if o.ProviderConcurrency == 0 {
		o.ProviderConcurrency = 8
	}
	if o.StatsTTL == 0 {
		o.StatsTTL = time.Hour
	}
}

// Service is the generation orchestrator. Construct with New; all
// collaborators are injected so tests can run against fakes.
type Service struct {
	registry   *adapter.Registry
	store      store.Store
	cache      cache.Cache
	pricing    pricing.Table
	estimators pricing.EstimatorSet
	logger     *slog.Logger
	opts       Options

	gates  map[string]*semaphore.Weighted
	flight singleflight.Group
}

// New creates a Service. The registry must be fully built; it is treated
// as immutable from here on.
func New(reg *adapter.Registry, st store.Store, ca cache.Cache, opts Options, logger *slog.Logger) *Service {
	opts.setDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	gates := make(map[string]*semaphore.Weighted)
	for _, name := range reg.Names() {
		gates[name] = semaphore.NewWeighted(opts.ProviderConcurrency)
	}

	return &Service{
		registry:   reg,
		store:      st,
		cache:      ca,
		pricing:    pricing.DefaultTable(),
		estimators: pricing.NewEstimatorSet(),
		logger:     logger,
		opts:       opts,
		gates:      gates,
	}
}

// SetPricing replaces the rate table.
func (s *Service) SetPricing(t pricing.Table) { s.pricing = t }

// SetEstimators replaces the token estimation strategies.
func (s *Service) SetEstimators(set pricing.EstimatorSet) { s.estimators = set }

// Generate runs one generation end to end.
func (s *Service) Generate(ctx context.Context, userID string, req Request) (*Result, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, &generation.ValidationError{Field: "prompt", Reason: "must not be empty"}
	}
	if userID == "" {
		return nil, &generation.ValidationError{Field: "userId", Reason: "must not be empty"}
	}

	// Agent ownership is checked before any record is written or any
	// provider is called. The fast-fail path leaves no trace.
	var agent *generation.Agent
	if req.AgentID != "" {
		a, err := s.store.GetAgent(ctx, req.AgentID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, &generation.AgentAccessDeniedError{AgentID: req.AgentID, UserID: userID}
			}
			return nil, &generation.PersistenceError{Op: "load agent", Err: err}
		}
		if a.UserID != userID {
			return nil, &generation.AgentAccessDeniedError{AgentID: req.AgentID, UserID: userID}
		}
		agent = a
	}

	req = s.applyDefaults(req, agent)

	gen := &generation.Generation{
		ID:          uuid.NewString(),
		UserID:      userID,
		AgentID:     req.AgentID,
		Prompt:      req.Prompt,
		Context:     req.Context,
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Status:      generation.StatusPending,
		MaxRetries:  s.opts.MaxRetries,
	}

	// The pending record is the persisted intent: a crash mid-call still
	// leaves an auditable row.
	if err := s.store.CreateGeneration(ctx, gen); err != nil {
		return nil, &generation.PersistenceError{Op: "create generation", Err: err}
	}
	if err := s.store.MarkProcessing(ctx, gen.ID); err != nil {
		return nil, &generation.PersistenceError{Op: "mark processing", Err: err}
	}

	effectivePrompt := EffectivePrompt(req.Prompt, req.SystemPrompt, req.Context)

	providerName, matched := adapter.ResolveProvider(req.Model)
	if !matched {
		s.logger.Warn("model routed to default provider",
			"model", req.Model, "provider", providerName)
	}

	ad, ok := s.registry.Get(providerName)
	if !ok {
		s.failGeneration(ctx, gen.ID, userID, fmt.Sprintf("provider %s is not configured", providerName), 0)
		return nil, &generation.ProviderUnavailableError{Provider: providerName}
	}

	if err := s.acquireGate(ctx, providerName); err != nil {
		s.failGeneration(ctx, gen.ID, userID, err.Error(), 0)
		return nil, &generation.ProviderError{Provider: providerName, Err: err}
	}
	defer s.releaseGate(providerName)

	start := time.Now()
	resp, attempts, err := s.callWithRetry(ctx, ad, adapter.GenerateRequest{
		Model:       req.Model,
		Prompt:      effectivePrompt,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	durationMs := time.Since(start).Milliseconds()

	if err != nil {
		s.failGeneration(ctx, gen.ID, userID, err.Error(), attempts)
		return nil, &generation.ProviderError{Provider: providerName, Err: err}
	}

	tokens := s.countTokens(providerName, effectivePrompt, resp)
	cost := s.pricing.Cost(providerName, req.Model, tokens.Input, tokens.Output)
	meta := generation.Metadata{
		Provider:    providerName,
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		DurationMs:  durationMs,
	}

	result := &Result{
		GenerationID: gen.ID,
		Content:      resp.Content,
		Metadata:     meta,
		Tokens:       tokens,
		Cost:         cost,
	}

	// Terminal writes must land even when the caller's context has
	// already expired; the outcome is a fact regardless of who is still
	// waiting for it.
	pctx := context.WithoutCancel(ctx)
	persistErr := s.store.MarkCompleted(pctx, gen.ID, store.Completion{
		Output:     resp.Content,
		Metadata:   meta,
		Tokens:     tokens,
		Cost:       cost,
		DurationMs: durationMs,
		RetryCount: attempts,
	})
	if persistErr == nil && req.AgentID != "" {
		if err := s.store.IncrementAgentUsage(pctx, req.AgentID); err != nil {
			persistErr = err
		}
	}
	if persistErr != nil {
		wrapped := &generation.PersistenceError{Op: "record completion", Err: persistErr}
		if s.opts.StrictPersistence {
			return nil, wrapped
		}
		// The content was already produced; losing it over a bookkeeping
		// failure would punish the caller twice.
		s.logger.Error("generation succeeded but persistence failed",
			"generation_id", gen.ID, "user_id", userID, "error", persistErr)
		result.PersistenceErr = wrapped
	}

	s.invalidateStats(pctx, userID)
	return result, nil
}

// applyDefaults fills unset request fields from the agent preset first,
// then the service defaults.
func (s *Service) applyDefaults(req Request, agent *generation.Agent) Request {
	if agent != nil {
		if req.Model == "" {
			req.Model = agent.Model
		}
		if req.Temperature == 0 && agent.Temperature != 0 {
			req.Temperature = agent.Temperature
		}
		if req.MaxTokens == 0 && agent.MaxTokens != 0 {
			req.MaxTokens = agent.MaxTokens
		}
		if req.SystemPrompt == "" {
			req.SystemPrompt = agent.SystemPrompt
		}
	}
	if req.Model == "" {
		req.Model = s.opts.DefaultModel
	}
	if req.Temperature == 0 {
		req.Temperature = s.opts.DefaultTemperature
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = s.opts.DefaultMaxTokens
	}
	return req
}

// countTokens prefers provider-reported usage and falls back to the
// configured estimator when the upstream response carries none.
func (s *Service) countTokens(provider, effectivePrompt string, resp *adapter.Response) generation.TokenUsage {
	if u := resp.Usage; u != nil && u.PromptTokens > 0 {
		total := u.TotalTokens
		if total == 0 {
			total = u.PromptTokens + u.CompletionTokens
		}
		return generation.TokenUsage{Input: u.PromptTokens, Output: u.CompletionTokens, Total: total}
	}
	est := s.estimators.ForProvider(provider)
	in := est.Estimate(effectivePrompt)
	out := est.Estimate(resp.Content)
	return generation.TokenUsage{Input: in, Output: out, Total: in + out}
}

// failGeneration records a terminal failure and invalidates the user's
// stats snapshot. A stale transition means the record already reached a
// terminal state (for example through a timeout path) and the late write
// is dropped.
func (s *Service) failGeneration(ctx context.Context, id, userID, errMsg string, attempts int) {
	// The caller's context may already be expired when this runs; the
	// terminal write still has to go through.
	ctx = context.WithoutCancel(ctx)
	err := s.store.MarkFailed(ctx, id, errMsg, attempts)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrStaleTransition):
		s.logger.Warn("dropping late failure for terminal generation", "generation_id", id)
	default:
		s.logger.Error("failed to record generation failure",
			"generation_id", id, "error", err)
	}
	s.invalidateStats(ctx, userID)
}

func (s *Service) acquireGate(ctx context.Context, provider string) error {
	gate, ok := s.gates[provider]
	if !ok {
		return nil
	}
	if err := gate.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("waiting for %s slot: %w", provider, err)
	}
	return nil
}

func (s *Service) releaseGate(provider string) {
	if gate, ok := s.gates[provider]; ok {
		gate.Release(1)
	}
}
