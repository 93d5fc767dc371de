package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/problem-register/internal/domain/entities"
	"github.com/zatekoja/problem-register/internal/domain/providers"
	"github.com/zatekoja/problem-register/internal/domain/repositories"
	"github.com/zatekoja/problem-register/internal/infrastructure/observability"
)

// DefaultProblemTTLSeconds is used when the configured TTL is not positive.
const DefaultProblemTTLSeconds = 300

// CachedParentProblemAdapter wraps a ParentProblemRepository with a
// read-through cache on GetByID. Every successful mutation drops the
// record's cache entry before returning, so a subsequent read by the same
// caller observes its own write. Lists are never cached: a status flip
// would leave stale membership in list keys.
type CachedParentProblemAdapter struct {
	adapter    repositories.ParentProblemRepository
	cache      providers.CacheProvider
	ttlSeconds int
	metrics    *observability.Metrics
}

// NewCachedParentProblemAdapter creates a new cached parent problem adapter.
// metrics may be nil.
func NewCachedParentProblemAdapter(adapter repositories.ParentProblemRepository, cache providers.CacheProvider, ttlSeconds int, metrics *observability.Metrics) repositories.ParentProblemRepository {
	if ttlSeconds <= 0 {
		ttlSeconds = DefaultProblemTTLSeconds
	}
	return &CachedParentProblemAdapter{
		adapter:    adapter,
		cache:      cache,
		ttlSeconds: ttlSeconds,
		metrics:    metrics,
	}
}

func problemCacheKey(parentID string) string {
	return fmt.Sprintf("problem:%s", parentID)
}

// Create inserts through to storage. The fresh record is not cached
// eagerly; the first read fills the cache.
func (a *CachedParentProblemAdapter) Create(ctx context.Context, problem *entities.ParentProblem) error {
	return a.adapter.Create(ctx, problem)
}

// GetByID retrieves a problem by ID with caching
func (a *CachedParentProblemAdapter) GetByID(ctx context.Context, parentID string) (*entities.ParentProblem, error) {
	cacheKey := problemCacheKey(parentID)

	if cached, err := a.cache.Get(ctx, cacheKey); err == nil {
		var problem entities.ParentProblem
		if err := json.Unmarshal(cached, &problem); err == nil {
			if _, ok := entities.ParseProblemStatus(string(problem.Status)); ok {
				observability.RecordCacheHit(ctx, a.metrics, cacheKey)
				return &problem, nil
			}
		}
		// Corrupt cache entry; fall through to storage.
		log.Warn().Str("parent_id", parentID).Msg("Discarding unreadable cached problem")
	}
	observability.RecordCacheMiss(ctx, a.metrics, cacheKey)

	problem, err := a.adapter.GetByID(ctx, parentID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(problem); err == nil {
		if err := a.cache.Set(ctx, cacheKey, data, a.ttlSeconds); err != nil {
			log.Warn().Str("parent_id", parentID).Err(err).Msg("Failed to cache problem")
		}
	}

	return problem, nil
}

// ListByStatus always goes to storage.
func (a *CachedParentProblemAdapter) ListByStatus(ctx context.Context, status entities.ProblemStatus) ([]*entities.ParentProblem, error) {
	return a.adapter.ListByStatus(ctx, status)
}

// UpdateSummary updates through and invalidates the cached record.
func (a *CachedParentProblemAdapter) UpdateSummary(ctx context.Context, parentID, summary string) error {
	if err := a.adapter.UpdateSummary(ctx, parentID, summary); err != nil {
		return err
	}
	a.invalidate(ctx, parentID)
	return nil
}

// Resolve transitions through and invalidates the cached record.
func (a *CachedParentProblemAdapter) Resolve(ctx context.Context, parentID string) error {
	if err := a.adapter.Resolve(ctx, parentID); err != nil {
		return err
	}
	a.invalidate(ctx, parentID)
	return nil
}

// Reopen transitions through and invalidates the cached record.
func (a *CachedParentProblemAdapter) Reopen(ctx context.Context, parentID string) error {
	if err := a.adapter.Reopen(ctx, parentID); err != nil {
		return err
	}
	a.invalidate(ctx, parentID)
	return nil
}

// Purge deletes through and invalidates the cached record.
func (a *CachedParentProblemAdapter) Purge(ctx context.Context, parentID string) error {
	if err := a.adapter.Purge(ctx, parentID); err != nil {
		return err
	}
	a.invalidate(ctx, parentID)
	return nil
}

func (a *CachedParentProblemAdapter) invalidate(ctx context.Context, parentID string) {
	if err := a.cache.Delete(ctx, problemCacheKey(parentID)); err != nil {
		log.Warn().Str("parent_id", parentID).Err(err).Msg("Failed to invalidate cached problem")
	}
}
