package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/atms-platform/atms-api/internal/models"
	appErrors "github.com/atms-platform/atms-api/pkg/errors"
)

type activityRepo interface {
	Insert(ctx context.Context, entry *models.ActivityLog) error
	ListRecent(ctx context.Context, limit int) ([]models.ActivityLog, error)
}

// ActivityService exposes the append-only activity feed.
type ActivityService struct {
	repo   activityRepo
	logger *zap.Logger
}

// NewActivityService constructs ActivityService.
func NewActivityService(repo activityRepo, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{repo: repo, logger: logger}
}

// Record appends an entry to the feed.
func (s *ActivityService) Record(ctx context.Context, userName, action, target, details string) {
	entry := &models.ActivityLog{UserName: userName, Action: action, Target: target, Details: details}
	if err := s.repo.Insert(ctx, entry); err != nil {
		s.logger.Warn("failed to record activity", zap.String("action", action), zap.Error(err))
	}
}

// Recent returns the latest entries, newest first.
func (s *ActivityService) Recent(ctx context.Context, limit int) ([]models.ActivityLog, error) {
	entries, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activity")
	}
	return entries, nil
}
