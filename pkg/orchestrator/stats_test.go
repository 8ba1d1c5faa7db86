package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonasqin/automedia-ai/pkg/adapter"
	"github.com/jonasqin/automedia-ai/pkg/cache"
	"github.com/jonasqin/automedia-ai/pkg/generation"
	"github.com/jonasqin/automedia-ai/pkg/store"
)

// countingStore counts aggregate reads so tests can assert the cache
// short-circuits them.
type countingStore struct {
	*store.Memory
	listCalls atomic.Int64
}

func (s *countingStore) ListGenerationsByUser(ctx context.Context, userID string) ([]generation.Generation, error) {
	s.listCalls.Add(1)
	return s.Memory.ListGenerationsByUser(ctx, userID)
}

func newStatsService(t *testing.T) (*Service, *countingStore) {
	t.Helper()
	st := &countingStore{Memory: store.NewMemory()}
	svc := New(adapter.NewRegistry(&stubAdapter{name: "openai", response: "ok"}), st, cache.NewMemory(), Options{
		RetryBaseBackoff: time.Millisecond,
	}, testLogger())
	return svc, st
}

func TestGetStatsZeroGenerations(t *testing.T) {
	ctx := context.Background()
	svc, st := newStatsService(t)

	want := &generation.StatsSnapshot{MostUsedModel: "gpt-3.5-turbo"}

	snap, err := svc.GetStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, want, snap)

	// A repeated call within the TTL window is served from cache.
	snap, err = svc.GetStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, want, snap)
	assert.Equal(t, int64(1), st.listCalls.Load())
}

func TestGetStatsAggregates(t *testing.T) {
	ctx := context.Background()
	svc, st := newStatsService(t)

	seed := []generation.Generation{
		{ID: "g1", UserID: "u1", Model: "gpt-3.5-turbo", Status: generation.StatusCompleted,
			Tokens: generation.TokenUsage{Total: 100}, Cost: 0.01, DurationMs: 200},
		{ID: "g2", UserID: "u1", Model: "gpt-4", Status: generation.StatusCompleted,
			Tokens: generation.TokenUsage{Total: 300}, Cost: 0.05, DurationMs: 400},
		{ID: "g3", UserID: "u1", Model: "claude-3-5-haiku-20241022", Status: generation.StatusFailed},
		{ID: "g4", UserID: "u2", Model: "gpt-4", Status: generation.StatusCompleted,
			Tokens: generation.TokenUsage{Total: 999}, Cost: 1, DurationMs: 1},
	}
	for i := range seed {
		seed[i].CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Second)
		require.NoError(t, st.CreateGeneration(ctx, &seed[i]))
	}

	snap, err := svc.GetStats(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, 3, snap.TotalGenerations)
	assert.Equal(t, 2, snap.SuccessfulGenerations)
	assert.Equal(t, 1, snap.FailedGenerations)
	assert.Equal(t, 400, snap.TotalTokens)
	assert.InDelta(t, 0.06, snap.TotalCost, 1e-9)
	assert.InDelta(t, 300, snap.AverageDurationMs, 1e-9)
	assert.Equal(t, "claude-3-5-haiku-20241022", snap.MostUsedModel)
}

func TestGenerateInvalidatesStatsCache(t *testing.T) {
	ctx := context.Background()
	svc, st := newStatsService(t)

	snap, err := svc.GetStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, snap.TotalGenerations)

	_, err = svc.Generate(ctx, "u1", Request{Prompt: "hello"})
	require.NoError(t, err)

	snap, err = svc.GetStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.TotalGenerations)
	assert.Equal(t, 1, snap.SuccessfulGenerations)
	assert.Equal(t, int64(2), st.listCalls.Load())
}

func TestFailedGenerationInvalidatesStatsCache(t *testing.T) {
	ctx := context.Background()
	st := &countingStore{Memory: store.NewMemory()}
	svc := New(adapter.NewRegistry(&stubAdapter{name: "openai", err: assert.AnError}), st, cache.NewMemory(), Options{
		RetryBaseBackoff: time.Millisecond,
	}, testLogger())

	_, err := svc.GetStats(ctx, "u1")
	require.NoError(t, err)

	_, err = svc.Generate(ctx, "u1", Request{Prompt: "hello"})
	require.Error(t, err)

	snap, err := svc.GetStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.FailedGenerations)
}

func TestGetStatsConcurrentMissesDeduplicated(t *testing.T) {
	ctx := context.Background()
	svc, st := newStatsService(t)

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, _ = svc.GetStats(ctx, "u1")
		}()
	}
	wg.Wait()

	// The singleflight guard keeps concurrent misses from stampeding the
	// store; the exact count depends on timing but must stay far below
	// one read per caller.
	assert.LessOrEqual(t, st.listCalls.Load(), int64(2))
}

// ctxAwareStore refuses reads under an expired context, the way a real
// driver does.
type ctxAwareStore struct {
	*store.Memory
}

func (s *ctxAwareStore) ListGenerationsByUser(ctx context.Context, userID string) ([]generation.Generation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Memory.ListGenerationsByUser(ctx, userID)
}

func TestGetStatsSurvivesCanceledLeader(t *testing.T) {
	st := &ctxAwareStore{Memory: store.NewMemory()}
	svc := New(adapter.NewRegistry(&stubAdapter{name: "openai", response: "ok"}), st, cache.NewMemory(), Options{
		RetryBaseBackoff: time.Millisecond,
	}, testLogger())

	// Even when the leading caller has already given up, the aggregation
	// it leads must still complete for the waiters behind it.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap, err := svc.GetStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, snap.TotalGenerations)
}
