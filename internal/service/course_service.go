package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/atms-platform/atms-api/internal/models"
	appErrors "github.com/atms-platform/atms-api/pkg/errors"
)

type courseRepo interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
}

type trainerResolver interface {
	FindActiveByName(ctx context.Context, name string, role models.UserRole) ([]models.User, error)
}

type sessionReader interface {
	Latest(ctx context.Context) (*models.Session, error)
}

// CreateCourseRequest is the admin payload for a new course.
type CreateCourseRequest struct {
	Title          string   `json:"title" validate:"required"`
	InstructorName string   `json:"instructor_name" validate:"required"`
	Category       string   `json:"category" validate:"required"`
	Level          string   `json:"level" validate:"required"`
	StartDate      string   `json:"start_date" validate:"required"`
	EndDate        string   `json:"end_date" validate:"required"`
	Hours          int      `json:"hours" validate:"required,min=1"`
	Materials      []string `json:"materials"`
}

// UpdateCourseRequest carries mutable course fields. Empty fields keep their
// stored value.
type UpdateCourseRequest struct {
	Title          string   `json:"title"`
	InstructorName string   `json:"instructor_name"`
	Category       string   `json:"category"`
	Level          string   `json:"level"`
	StartDate      string   `json:"start_date"`
	EndDate        string   `json:"end_date"`
	Hours          int      `json:"hours"`
	Materials      []string `json:"materials"`
}

// CourseService manages the course catalogue. Status is derived from trainer
// resolution and dates on every write and read-through, never stored by hand.
type CourseService struct {
	courses   courseRepo
	users     trainerResolver
	sessions  sessionReader
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewCourseService constructs CourseService.
func NewCourseService(courses courseRepo, users trainerResolver, sessions sessionReader, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{
		courses:   courses,
		users:     users,
		sessions:  sessions,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// ComputeStatus derives the lifecycle status of a course. Courses without a
// resolved trainer stay draft regardless of dates; otherwise the course is
// completed once today is past the end date and active before that. The
// comparison is date-only: a course ending today is still active.
func ComputeStatus(instructorID string, endDate time.Time, now time.Time) models.CourseStatus {
	if instructorID == "" {
		return models.CourseStatusDraft
	}
	today := truncateToDay(now)
	end := truncateToDay(endDate)
	if today.After(end) {
		return models.CourseStatusCompleted
	}
	return models.CourseStatusActive
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Create validates the payload, resolves the named trainer and stores the
// course with its derived status.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	level := models.CourseLevel(strings.ToLower(req.Level))
	if !level.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown course level")
	}
	startDate, endDate, err := s.parseDates(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	if err := s.checkTrainingWindow(ctx, startDate, endDate); err != nil {
		return nil, err
	}
	course := &models.Course{
		Title:          strings.TrimSpace(req.Title),
		InstructorName: strings.TrimSpace(req.InstructorName),
		Category:       strings.TrimSpace(req.Category),
		Level:          level,
		StartDate:      startDate,
		EndDate:        endDate,
		Hours:          req.Hours,
		Materials:      pq.StringArray(req.Materials),
	}
	if err := s.resolveInstructor(ctx, course); err != nil {
		return nil, err
	}
	course.Status = ComputeStatus(course.InstructorID, course.EndDate, s.now())
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.logger.Info("course created",
		zap.String("course_id", course.ID),
		zap.String("status", string(course.Status)))
	return course, nil
}

// Update applies partial edits, re-resolves the trainer when the name
// changed and re-derives status.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if req.Title != "" {
		course.Title = strings.TrimSpace(req.Title)
	}
	if req.Category != "" {
		course.Category = strings.TrimSpace(req.Category)
	}
	if req.Level != "" {
		level := models.CourseLevel(strings.ToLower(req.Level))
		if !level.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown course level")
		}
		course.Level = level
	}
	if req.Hours > 0 {
		course.Hours = req.Hours
	}
	if req.Materials != nil {
		course.Materials = pq.StringArray(req.Materials)
	}
	if req.StartDate != "" || req.EndDate != "" {
		start := course.StartDate.Format(dateLayout)
		end := course.EndDate.Format(dateLayout)
		if req.StartDate != "" {
			start = req.StartDate
		}
		if req.EndDate != "" {
			end = req.EndDate
		}
		startDate, endDate, err := s.parseDates(start, end)
		if err != nil {
			return nil, err
		}
		if err := s.checkTrainingWindow(ctx, startDate, endDate); err != nil {
			return nil, err
		}
		course.StartDate = startDate
		course.EndDate = endDate
	}
	if req.InstructorName != "" && !strings.EqualFold(strings.TrimSpace(req.InstructorName), strings.TrimSpace(course.InstructorName)) {
		course.InstructorName = strings.TrimSpace(req.InstructorName)
		course.InstructorID = ""
		if err := s.resolveInstructor(ctx, course); err != nil {
			return nil, err
		}
	}
	course.Status = ComputeStatus(course.InstructorID, course.EndDate, s.now())
	if err := s.courses.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return course, nil
}

// Get returns a course with a freshly derived status. The stored status may
// be stale once the end date has passed.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	s.refreshStatus(course)
	return course, nil
}

// List returns courses for the filter with derived statuses.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	courses, total, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	for i := range courses {
		s.refreshStatus(&courses[i])
	}
	return courses, total, nil
}

// Delete removes a course.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if _, err := s.courses.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if err := s.courses.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	return nil
}

const dateLayout = "2006-01-02"

func (s *CourseService) parseDates(start, end string) (time.Time, time.Time, error) {
	startDate, err := time.ParseInLocation(dateLayout, start, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid start date")
	}
	endDate, err := time.ParseInLocation(dateLayout, end, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid end date")
	}
	if endDate.Before(startDate) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "end date before start date")
	}
	return startDate, endDate, nil
}

// checkTrainingWindow rejects course dates outside the latest session's
// training window. Without a session any dates are accepted.
func (s *CourseService) checkTrainingWindow(ctx context.Context, start, end time.Time) error {
	session, err := s.sessions.Latest(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if start.Before(truncateToDay(session.TrainStart)) || truncateToDay(session.TrainEnd).Before(end) {
		return appErrors.Clone(appErrors.ErrDateOutOfWindow, "course dates outside the session training window")
	}
	return nil
}

// resolveInstructor matches the typed instructor name against registered
// trainers. No match and ambiguous matches both leave the course unresolved,
// keeping it draft until the reconciler or a later edit settles it.
func (s *CourseService) resolveInstructor(ctx context.Context, course *models.Course) error {
	matches, err := s.users.FindActiveByName(ctx, course.InstructorName, models.RoleTrainer)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve instructor")
	}
	switch len(matches) {
	case 0:
		course.InstructorID = ""
	case 1:
		course.InstructorID = matches[0].ID
	default:
		s.logger.Warn("ambiguous instructor name",
			zap.String("instructor_name", course.InstructorName),
			zap.Int("matches", len(matches)))
		course.InstructorID = ""
	}
	return nil
}

func (s *CourseService) refreshStatus(course *models.Course) {
	if course.Status == models.CourseStatusCancelled {
		return
	}
	course.Status = ComputeStatus(course.InstructorID, course.EndDate, s.now())
}
