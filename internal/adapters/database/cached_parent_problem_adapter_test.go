package database_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/problem-register/internal/adapters/database"
	"github.com/zatekoja/problem-register/internal/adapters/memory"
	"github.com/zatekoja/problem-register/internal/domain/entities"
	apperrors "github.com/zatekoja/problem-register/pkg/errors"
)

// fakeCache is a map-backed CacheProvider for exercising the cached adapter
// without Redis.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	failing bool
	gets    int
	sets    int
	deletes int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.failing {
		return nil, fmt.Errorf("cache unavailable")
	}
	data, ok := c.entries[key]
	if !ok {
		return nil, fmt.Errorf("key not found: %s", key)
	}
	return data, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.failing {
		return fmt.Errorf("cache unavailable")
	}
	c.entries[key] = value
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes++
	if c.failing {
		return fmt.Errorf("cache unavailable")
	}
	delete(c.entries, key)
	return nil
}

func (c *fakeCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return false, fmt.Errorf("cache unavailable")
	}
	_, ok := c.entries[key]
	return ok, nil
}

func (c *fakeCache) poison(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = data
}

func TestCachedParentProblemAdapter_GetByID_FillsAndServesCache(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewParentProblemAdapter()
	fc := newFakeCache()
	adapter := database.NewCachedParentProblemAdapter(inner, fc, 60, nil)

	require.NoError(t, adapter.Create(ctx, entities.NewParentProblem("INC0000032", "Email server is down")))

	// First read misses and fills
	got, err := adapter.GetByID(ctx, "INC0000032")
	require.NoError(t, err)
	assert.Equal(t, "Email server is down", got.CoreIssueSummary)
	assert.Equal(t, 1, fc.sets)

	// Second read is served from cache even if storage changes underneath
	require.NoError(t, inner.UpdateSummary(ctx, "INC0000032", "changed behind the cache"))
	got, err = adapter.GetByID(ctx, "INC0000032")
	require.NoError(t, err)
	assert.Equal(t, "Email server is down", got.CoreIssueSummary)
}

func TestCachedParentProblemAdapter_MutationsInvalidate(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewParentProblemAdapter()
	fc := newFakeCache()
	adapter := database.NewCachedParentProblemAdapter(inner, fc, 60, nil)

	require.NoError(t, adapter.Create(ctx, entities.NewParentProblem("INC0000032", "Email server is down")))

	// Warm the cache
	_, err := adapter.GetByID(ctx, "INC0000032")
	require.NoError(t, err)

	// Same-caller read-your-writes across every mutation
	require.NoError(t, adapter.UpdateSummary(ctx, "INC0000032", "SMTP relay misconfigured"))
	got, err := adapter.GetByID(ctx, "INC0000032")
	require.NoError(t, err)
	assert.Equal(t, "SMTP relay misconfigured", got.CoreIssueSummary)

	require.NoError(t, adapter.Resolve(ctx, "INC0000032"))
	got, err = adapter.GetByID(ctx, "INC0000032")
	require.NoError(t, err)
	assert.Equal(t, entities.StatusResolved, got.Status)

	require.NoError(t, adapter.Reopen(ctx, "INC0000032"))
	got, err = adapter.GetByID(ctx, "INC0000032")
	require.NoError(t, err)
	assert.Equal(t, entities.StatusActive, got.Status)

	require.NoError(t, adapter.Purge(ctx, "INC0000032"))
	_, err = adapter.GetByID(ctx, "INC0000032")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCachedParentProblemAdapter_FailedMutationKeepsCache(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewParentProblemAdapter()
	fc := newFakeCache()
	adapter := database.NewCachedParentProblemAdapter(inner, fc, 60, nil)

	require.NoError(t, adapter.Create(ctx, entities.NewParentProblem("INC0000032", "Email server is down")))
	_, err := adapter.GetByID(ctx, "INC0000032")
	require.NoError(t, err)
	deletesBefore := fc.deletes

	err = adapter.UpdateSummary(ctx, "INC9999999", "missing record")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, deletesBefore, fc.deletes)
}

func TestCachedParentProblemAdapter_CacheFailureFallsThrough(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewParentProblemAdapter()
	fc := newFakeCache()
	adapter := database.NewCachedParentProblemAdapter(inner, fc, 60, nil)

	require.NoError(t, adapter.Create(ctx, entities.NewParentProblem("INC0000032", "Email server is down")))
	fc.failing = true

	// Reads still work against storage when the cache is down
	got, err := adapter.GetByID(ctx, "INC0000032")
	require.NoError(t, err)
	assert.Equal(t, "Email server is down", got.CoreIssueSummary)

	// Mutations still succeed; the failed invalidation only logs
	require.NoError(t, adapter.Resolve(ctx, "INC0000032"))
	got, err = adapter.GetByID(ctx, "INC0000032")
	require.NoError(t, err)
	assert.Equal(t, entities.StatusResolved, got.Status)
}

func TestCachedParentProblemAdapter_CorruptEntryFallsThrough(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewParentProblemAdapter()
	fc := newFakeCache()
	adapter := database.NewCachedParentProblemAdapter(inner, fc, 60, nil)

	require.NoError(t, adapter.Create(ctx, entities.NewParentProblem("INC0000032", "Email server is down")))
	fc.poison("problem:INC0000032", []byte("{not json"))

	got, err := adapter.GetByID(ctx, "INC0000032")
	require.NoError(t, err)
	assert.Equal(t, "Email server is down", got.CoreIssueSummary)

	// An entry with an invalid status is also discarded
	fc.poison("problem:INC0000032", []byte(`{"parent_id":"INC0000032","status":"Closed"}`))
	got, err = adapter.GetByID(ctx, "INC0000032")
	require.NoError(t, err)
	assert.Equal(t, entities.StatusActive, got.Status)
}

func TestCachedParentProblemAdapter_ListByStatus_NeverCached(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewParentProblemAdapter()
	fc := newFakeCache()
	adapter := database.NewCachedParentProblemAdapter(inner, fc, 60, nil)

	require.NoError(t, adapter.Create(ctx, entities.NewParentProblem("INC0000031", "first")))
	require.NoError(t, adapter.Create(ctx, entities.NewParentProblem("INC0000032", "second")))

	active, err := adapter.ListByStatus(ctx, entities.StatusActive)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	require.NoError(t, adapter.Resolve(ctx, "INC0000031"))

	// The list reflects the transition immediately
	active, err = adapter.ListByStatus(ctx, entities.StatusActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "INC0000032", active[0].ParentID)

	resolved, err := adapter.ListByStatus(ctx, entities.StatusResolved)
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, "INC0000031", resolved[0].ParentID)
}
