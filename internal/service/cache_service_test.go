package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/marks-api/internal/models"
	appErrors "github.com/noah-isme/marks-api/pkg/errors"
)

type fakeCacheRepo struct {
	data     map[string][]byte
	ttls     map[string]time.Duration
	patterns []string
	getErr   error
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	if f.getErr != nil {
		return f.getErr
	}
	raw, ok := f.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeCacheRepo) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.data[key] = raw
	f.ttls[key] = ttl
	return nil
}

func (f *fakeCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	f.patterns = append(f.patterns, pattern)
	return nil
}

func TestCacheServiceHitMissAndMetrics(t *testing.T) {
	repo := newFakeCacheRepo()
	metrics := NewMetricsService()
	cache := NewCacheService(repo, metrics, 0, nil, true)

	var out models.StudentGradeSummary
	hit, err := cache.Get(context.Background(), "summary:student:S1", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Set(context.Background(), "summary:student:S1", models.StudentGradeSummary{StudentID: "S1"}, 0))
	assert.Equal(t, 5*time.Minute, repo.ttls["summary:student:S1"])

	hit, err = cache.Get(context.Background(), "summary:student:S1", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "S1", out.StudentID)

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.CacheHits)
	assert.Equal(t, uint64(1), snap.CacheMisses)
}

func TestCacheServiceBackendError(t *testing.T) {
	repo := newFakeCacheRepo()
	repo.getErr = errors.New("connection reset")
	cache := NewCacheService(repo, nil, time.Minute, nil, true)

	var out models.StudentGradeSummary
	hit, err := cache.Get(context.Background(), "k", &out)
	assert.False(t, hit)
	assert.Error(t, err)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newFakeCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, nil, false)

	require.NoError(t, cache.Set(context.Background(), "k", 1, 0))
	assert.Empty(t, repo.data)
	require.NoError(t, cache.Invalidate(context.Background(), "k*"))
	assert.Empty(t, repo.patterns)

	var nilCache *CacheService
	hit, err := nilCache.Get(context.Background(), "k", new(int))
	assert.False(t, hit)
	assert.NoError(t, err)
}
