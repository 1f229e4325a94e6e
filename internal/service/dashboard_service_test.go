package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aulanet/booking-api/internal/models"
	appErrors "github.com/aulanet/booking-api/pkg/errors"
)

type fakeStatsRepo struct {
	stats   *models.DashboardStatistics
	calls   int
	today   string
	weekEnd string
	lastErr error
}

func (f *fakeStatsRepo) Statistics(_ context.Context, today, weekEnd string) (*models.DashboardStatistics, error) {
	f.calls++
	f.today = today
	f.weekEnd = weekEnd
	if f.lastErr != nil {
		return nil, f.lastErr
	}
	return f.stats, nil
}

type fakeStatsCache struct {
	entries map[string][]byte
	getErr  error
	sets    int
	lastTTL time.Duration
	deletes []string
}

func (f *fakeStatsCache) Get(_ context.Context, key string, dest interface{}) error {
	if f.getErr != nil {
		return f.getErr
	}
	data, ok := f.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (f *fakeStatsCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if f.entries == nil {
		f.entries = map[string][]byte{}
	}
	f.entries[key] = data
	f.sets++
	f.lastTTL = ttl
	return nil
}

func (f *fakeStatsCache) Delete(_ context.Context, key string) error {
	f.deletes = append(f.deletes, key)
	return nil
}

func TestDashboardServiceComputesAndCaches(t *testing.T) {
	repo := &fakeStatsRepo{stats: &models.DashboardStatistics{TotalRooms: 12, FreeRooms: 9}}
	cache := &fakeStatsCache{}
	svc := NewDashboardService(repo, cache, 5*time.Minute, 7, nil)
	svc.now = func() time.Time { return fixedNow(t) }

	stats, err := svc.Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, stats.TotalRooms)
	assert.Equal(t, 1, repo.calls)
	assert.Equal(t, "2026-08-29", repo.today)
	assert.Equal(t, "2026-09-05", repo.weekEnd)
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, 5*time.Minute, cache.lastTTL)
}

func TestDashboardServiceServesFromCache(t *testing.T) {
	repo := &fakeStatsRepo{stats: &models.DashboardStatistics{TotalRooms: 12}}
	cache := &fakeStatsCache{}
	svc := NewDashboardService(repo, cache, time.Minute, 7, nil)

	_, err := svc.Statistics(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, repo.calls)

	stats, err := svc.Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, stats.TotalRooms)
	assert.Equal(t, 1, repo.calls, "second read must be served from cache")
}

func TestDashboardServiceCacheErrorFallsThrough(t *testing.T) {
	repo := &fakeStatsRepo{stats: &models.DashboardStatistics{TotalRooms: 3}}
	cache := &fakeStatsCache{getErr: errors.New("redis down")}
	svc := NewDashboardService(repo, cache, time.Minute, 7, nil)

	stats, err := svc.Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalRooms)
	assert.Equal(t, 1, repo.calls)
}

func TestDashboardServiceNilCache(t *testing.T) {
	repo := &fakeStatsRepo{stats: &models.DashboardStatistics{TotalRooms: 3}}
	svc := NewDashboardService(repo, nil, time.Minute, 7, nil)

	_, err := svc.Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)
}

func TestDashboardServiceRepoError(t *testing.T) {
	repo := &fakeStatsRepo{lastErr: errors.New("query failed")}
	svc := NewDashboardService(repo, &fakeStatsCache{}, time.Minute, 7, nil)

	_, err := svc.Statistics(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestDashboardServiceInvalidate(t *testing.T) {
	cache := &fakeStatsCache{}
	svc := NewDashboardService(&fakeStatsRepo{}, cache, time.Minute, 7, nil)

	svc.Invalidate(context.Background())
	assert.Equal(t, []string{dashboardCacheKey}, cache.deletes)
}
