package orchestrator

import (
	"context"
	"encoding/json"

	"github.com/jonasqin/automedia-ai/pkg/generation"
)

// defaultStatsModel is reported for users with no generations.
const defaultStatsModel = "gpt-3.5-turbo"

func statsKey(userID string) string {
	return "user:" + userID + ":generation-stats"
}

// GetStats returns the user's aggregate generation statistics,
// cache-aside: a cache hit is returned verbatim; on a miss the aggregate
// is computed from the store and cached with the configured TTL.
// Concurrent misses for the same user are deduplicated so the store is
// consulted once.
func (s *Service) GetStats(ctx context.Context, userID string) (*generation.StatsSnapshot, error) {
	if userID == "" {
		return nil, &generation.ValidationError{Field: "userId", Reason: "must not be empty"}
	}

	key := statsKey(userID)
	if snap, ok := s.cachedStats(ctx, key); ok {
		return snap, nil
	}

	// The flight leader works for every waiter sharing the key, so its
	// aggregation must not die with whichever caller happened to lead.
	fctx := context.WithoutCancel(ctx)
	v, err, _ := s.flight.Do(key, func() (any, error) {
		// A concurrent flight may have populated the cache already.
		if snap, ok := s.cachedStats(fctx, key); ok {
			return snap, nil
		}

		gens, err := s.store.ListGenerationsByUser(fctx, userID)
		if err != nil {
			return nil, &generation.PersistenceError{Op: "list generations", Err: err}
		}
		snap := aggregateStats(gens)

		data, err := json.Marshal(snap)
		if err == nil {
			if err := s.cache.Set(fctx, key, data, s.opts.StatsTTL); err != nil {
				s.logger.Warn("failed to cache stats snapshot", "key", key, "error", err)
			}
		}
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*generation.StatsSnapshot), nil
}

func (s *Service) cachedStats(ctx context.Context, key string) (*generation.StatsSnapshot, bool) {
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("stats cache read failed", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var snap generation.StatsSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Warn("dropping corrupt stats cache entry", "key", key, "error", err)
		return nil, false
	}
	return &snap, true
}

// invalidateStats removes the user's cached snapshot. Called on every
// terminal transition so dashboards never serve stale aggregates for a
// full TTL window.
func (s *Service) invalidateStats(ctx context.Context, userID string) {
	if err := s.cache.Delete(ctx, statsKey(userID)); err != nil {
		s.logger.Warn("failed to invalidate stats cache", "user_id", userID, "error", err)
	}
}

// aggregateStats folds generation records into a snapshot. The average
// duration covers completed generations; MostUsedModel reports the model
// of the most recent record, defaulting for empty histories.
func aggregateStats(gens []generation.Generation) *generation.StatsSnapshot {
	snap := &generation.StatsSnapshot{MostUsedModel: defaultStatsModel}

	var durationSum int64
	var completed int
	for _, gen := range gens {
		snap.TotalGenerations++
		switch gen.Status {
		case generation.StatusCompleted:
			snap.SuccessfulGenerations++
			snap.TotalTokens += gen.Tokens.Total
			snap.TotalCost += gen.Cost
			durationSum += gen.DurationMs
			completed++
		case generation.StatusFailed:
			snap.FailedGenerations++
		}
	}
	if completed > 0 {
		snap.AverageDurationMs = float64(durationSum) / float64(completed)
	}
	if len(gens) > 0 {
		// Records are listed in creation order; the last one is the most
		// recently used model.
		if model := gens[len(gens)-1].Model; model != "" {
			snap.MostUsedModel = model
		}
	}
	return snap
}
