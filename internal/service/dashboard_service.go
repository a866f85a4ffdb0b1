package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/atms-platform/atms-api/internal/models"
	appErrors "github.com/atms-platform/atms-api/pkg/errors"
)

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type userCounter interface {
	CountByRole(ctx context.Context) (map[models.UserRole]int, error)
}

type courseCounter interface {
	CountByStatus(ctx context.Context) (map[models.CourseStatus]int, error)
}

type enrollmentCounter interface {
	Count(ctx context.Context) (int, error)
}

const dashboardCacheKey = "dashboard:stats"

// DashboardService composes the admin overview snapshot. The snapshot is
// cached; writes that change the counts call Invalidate.
type DashboardService struct {
	users       userCounter
	courses     courseCounter
	enrollments enrollmentCounter
	cache       dashboardCache
	cacheTTL    time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// NewDashboardService constructs DashboardService. A nil cache disables
// caching entirely.
func NewDashboardService(users userCounter, courses courseCounter, enrollments enrollmentCounter, cache dashboardCache, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		users:       users,
		courses:     courses,
		enrollments: enrollments,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger,
		now:         time.Now,
	}
}

// Stats returns the overview snapshot, served from cache when fresh.
func (s *DashboardService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	if s.cache != nil {
		var cached models.DashboardStats
		if err := s.cache.Get(ctx, dashboardCacheKey, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	roleCounts, err := s.users.CountByRole(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count users")
	}
	statusCounts, err := s.courses.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count courses")
	}
	enrollmentTotal, err := s.enrollments.Count(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}

	totalUsers := 0
	for _, count := range roleCounts {
		totalUsers += count
	}
	totalCourses := 0
	for _, count := range statusCounts {
		totalCourses += count
	}

	stats := &models.DashboardStats{
		TotalUsers:       totalUsers,
		PendingUsers:     roleCounts[models.RolePending],
		TotalCourses:     totalCourses,
		CoursesByStatus:  statusCounts,
		TotalEnrollments: enrollmentTotal,
		GeneratedAt:      s.now().UTC(),
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardCacheKey, stats, s.cacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

// Invalidate drops the cached snapshot.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, dashboardCacheKey); err != nil {
		s.logger.Warn("dashboard cache invalidate failed", zap.Error(err))
	}
}
