package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atms-platform/atms-api/internal/models"
	"github.com/atms-platform/atms-api/pkg/config"
	"github.com/atms-platform/atms-api/pkg/jobs"
)

type draftCourseRepo interface {
	ListByStatus(ctx context.Context, status models.CourseStatus) ([]models.Course, error)
	UpdateInstructor(ctx context.Context, courseID, instructorID string, status models.CourseStatus) (bool, error)
}

type reconcilerUserRepo interface {
	FindActiveByName(ctx context.Context, name string, role models.UserRole) ([]models.User, error)
}

type activityWriter interface {
	Insert(ctx context.Context, entry *models.ActivityLog) error
}

// ReconcilerService walks draft courses and binds them to trainers whose
// accounts appeared after the course was created. Trigger is called when a
// pending user gets approved; triggers arriving while a pass is queued are
// coalesced into that pass, and a pass that finds nothing to bind changes
// nothing, so re-running is always safe.
type ReconcilerService struct {
	courses  draftCourseRepo
	users    reconcilerUserRepo
	activity activityWriter
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time

	queue   *jobs.Queue
	mu      sync.Mutex
	pending bool
}

// NewReconcilerService constructs ReconcilerService and its backing queue.
func NewReconcilerService(courses draftCourseRepo, users reconcilerUserRepo, activity activityWriter, cfg config.ReconcilerConfig, logger *zap.Logger) *ReconcilerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ReconcilerService{
		courses:  courses,
		users:    users,
		activity: activity,
		logger:   logger,
		now:      time.Now,
	}
	s.queue = jobs.NewQueue("course-reconciler", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// SetMetrics attaches pass instrumentation.
func (s *ReconcilerService) SetMetrics(m *MetricsService) {
	s.metrics = m
}

// Start begins background processing.
func (s *ReconcilerService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the queue workers.
func (s *ReconcilerService) Stop() {
	s.queue.Stop()
}

// Trigger schedules a reconciliation pass. Repeated triggers collapse into
// the already queued pass.
func (s *ReconcilerService) Trigger() {
	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return
	}
	s.pending = true
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: "reconcile"}); err != nil {
		s.mu.Lock()
		s.pending = false
		s.mu.Unlock()
		s.logger.Warn("failed to enqueue reconciliation", zap.Error(err))
	}
}

func (s *ReconcilerService) handle(ctx context.Context, _ jobs.Job) error {
	s.mu.Lock()
	s.pending = false
	s.mu.Unlock()
	_, err := s.Reconcile(ctx)
	return err
}

// Reconcile runs one pass over the draft courses and returns how many were
// bound. Exposed for the manual admin endpoint.
func (s *ReconcilerService) Reconcile(ctx context.Context) (int, error) {
	drafts, err := s.courses.ListByStatus(ctx, models.CourseStatusDraft)
	if err != nil {
		return 0, fmt.Errorf("list draft courses: %w", err)
	}
	bound := 0
	defer func() { s.metrics.ObserveReconcilePass(bound) }()
	for _, course := range drafts {
		matches, err := s.users.FindActiveByName(ctx, course.InstructorName, models.RoleTrainer)
		if err != nil {
			return bound, fmt.Errorf("resolve instructor for course %s: %w", course.ID, err)
		}
		if len(matches) != 1 {
			if len(matches) > 1 {
				s.logger.Warn("ambiguous instructor name, course stays draft",
					zap.String("course_id", course.ID),
					zap.String("instructor_name", course.InstructorName),
					zap.Int("matches", len(matches)))
			}
			continue
		}
		trainer := matches[0]
		status := ComputeStatus(trainer.ID, course.EndDate, s.now())
		updated, err := s.courses.UpdateInstructor(ctx, course.ID, trainer.ID, status)
		if err != nil {
			return bound, fmt.Errorf("bind instructor for course %s: %w", course.ID, err)
		}
		if !updated {
			continue
		}
		bound++
		s.logger.Info("course bound to trainer",
			zap.String("course_id", course.ID),
			zap.String("trainer_id", trainer.ID),
			zap.String("status", string(status)))
		if s.activity != nil {
			entry := &models.ActivityLog{
				UserName: trainer.FullName,
				Action:   "assigned as instructor",
				Target:   course.Title,
				Details:  fmt.Sprintf("course moved from draft to %s", status),
			}
			if err := s.activity.Insert(ctx, entry); err != nil {
				s.logger.Warn("failed to record reconciliation activity", zap.Error(err))
			}
		}
	}
	return bound, nil
}
