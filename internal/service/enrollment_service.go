package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/atms-platform/atms-api/internal/models"
	appErrors "github.com/atms-platform/atms-api/pkg/errors"
)

type enrollmentRepo interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Exists(ctx context.Context, userID, courseID string) (bool, error)
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error)
}

type enrollCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// EnrollmentService lets trainees join courses inside the registration
// window. Course metadata is snapshotted onto the enrollment row.
type EnrollmentService struct {
	enrollments enrollmentRepo
	courses     enrollCourseReader
	sessions    sessionReader
	activity    activityWriter
	logger      *zap.Logger
	now         func() time.Time
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(enrollments enrollmentRepo, courses enrollCourseReader, sessions sessionReader, activity activityWriter, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		enrollments: enrollments,
		courses:     courses,
		sessions:    sessions,
		activity:    activity,
		logger:      logger,
		now:         time.Now,
	}
}

// Enroll joins a trainee to a course. Completed and cancelled courses, and
// courses the trainee already joined, are rejected. When a session exists,
// enrolling outside its registration window is rejected too.
func (s *EnrollmentService) Enroll(ctx context.Context, user *models.UserInfo, courseID string) (*models.Enrollment, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.Status == models.CourseStatusCompleted || course.Status == models.CourseStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course is not open for enrollment")
	}

	if err := s.checkRegistrationWindow(ctx); err != nil {
		return nil, err
	}

	exists, err := s.enrollments.Exists(ctx, user.ID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrAlreadyEnrolled, "already enrolled in this course")
	}

	enrollment := &models.Enrollment{
		UserID:         user.ID,
		CourseID:       course.ID,
		Title:          course.Title,
		InstructorID:   course.InstructorID,
		InstructorName: course.InstructorName,
		Category:       course.Category,
		Level:          course.Level,
		Hours:          course.Hours,
		StartDate:      course.StartDate,
		EndDate:        course.EndDate,
		Materials:      course.Materials,
		Status:         course.Status,
	}
	if err := s.enrollments.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	if s.activity != nil {
		entry := &models.ActivityLog{UserName: user.FullName, Action: "enrolled in course", Target: course.Title}
		if err := s.activity.Insert(ctx, entry); err != nil {
			s.logger.Warn("failed to record enrollment activity", zap.Error(err))
		}
	}
	return enrollment, nil
}

// ListForUser returns the enrollments of a single trainee.
func (s *EnrollmentService) ListForUser(ctx context.Context, userID string, filter models.EnrollmentFilter) ([]models.Enrollment, int, error) {
	filter.UserID = userID
	return s.list(ctx, filter)
}

// List returns enrollments for the filter.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error) {
	return s.list(ctx, filter)
}

func (s *EnrollmentService) list(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error) {
	enrollments, total, err := s.enrollments.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, total, nil
}

func (s *EnrollmentService) checkRegistrationWindow(ctx context.Context) error {
	session, err := s.sessions.Latest(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	today := truncateToDay(s.now())
	if today.Before(truncateToDay(session.RegStart)) || today.After(truncateToDay(session.RegEnd)) {
		return appErrors.Clone(appErrors.ErrDateOutOfWindow, "registration window is closed")
	}
	return nil
}
