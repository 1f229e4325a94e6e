package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/aulanet/booking-api/internal/models"
	appErrors "github.com/aulanet/booking-api/pkg/errors"
)

const dashboardCacheKey = "dashboard:statistics"

type statisticsRepository interface {
	Statistics(ctx context.Context, today, weekEnd string) (*models.DashboardStatistics, error)
}

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// DashboardService computes usage statistics with a short-lived Redis
// cache in front of the aggregate queries.
type DashboardService struct {
	repo        statisticsRepository
	cache       dashboardCache
	cacheTTL    time.Duration
	horizonDays int
	now         func() time.Time
	logger      *zap.Logger
}

func NewDashboardService(repo statisticsRepository, cache dashboardCache, cacheTTL time.Duration, horizonDays int, logger *zap.Logger) *DashboardService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	if horizonDays <= 0 {
		horizonDays = 7
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		repo:        repo,
		cache:       cache,
		cacheTTL:    cacheTTL,
		horizonDays: horizonDays,
		now:         time.Now,
		logger:      logger,
	}
}

// Statistics returns the dashboard payload, serving from cache when fresh.
func (s *DashboardService) Statistics(ctx context.Context) (*models.DashboardStatistics, error) {
	if s.cache != nil {
		var cached models.DashboardStatistics
		err := s.cache.Get(ctx, dashboardCacheKey, &cached)
		if err == nil {
			return &cached, nil
		}
		if err != appErrors.ErrCacheMiss {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	now := s.now()
	today := now.Format(models.DateLayout)
	weekEnd := now.AddDate(0, 0, s.horizonDays).Format(models.DateLayout)

	stats, err := s.repo.Statistics(ctx, today, weekEnd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute statistics")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardCacheKey, stats, s.cacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}

	return stats, nil
}

// Invalidate drops the cached statistics so the next read recomputes them.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, dashboardCacheKey); err != nil {
		s.logger.Warn("dashboard cache invalidate failed", zap.Error(err))
	}
}
