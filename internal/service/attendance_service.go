package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/atms-platform/atms-api/internal/models"
	appErrors "github.com/atms-platform/atms-api/pkg/errors"
)

type attendanceRepo interface {
	CreateMeeting(ctx context.Context, meeting *models.ClassMeeting) error
	FindMeeting(ctx context.Context, id string) (*models.ClassMeeting, error)
	ListMeetings(ctx context.Context, courseID, trainerID string) ([]models.ClassMeeting, error)
	UpsertRecord(ctx context.Context, record *models.AttendanceRecord) error
	ListRecords(ctx context.Context, meetingID string) ([]models.AttendanceRecord, error)
}

// CreateMeetingRequest schedules one class meeting for a course.
type CreateMeetingRequest struct {
	CourseID string `json:"course_id" validate:"required"`
	Date     string `json:"date" validate:"required"`
	Hours    int    `json:"hours" validate:"required,min=1"`
}

// MarkAttendanceRequest records one trainee's status at a meeting.
type MarkAttendanceRequest struct {
	StudentID   string `json:"student_id" validate:"required"`
	StudentName string `json:"student_name" validate:"required"`
	Status      string `json:"status" validate:"required,oneof=present absent"`
}

// AttendanceService lets trainers schedule meetings and mark attendance for
// their own courses.
type AttendanceService struct {
	attendance attendanceRepo
	courses    enrollCourseReader
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewAttendanceService constructs AttendanceService.
func NewAttendanceService(attendance attendanceRepo, courses enrollCourseReader, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{attendance: attendance, courses: courses, validator: validate, logger: logger}
}

// CreateMeeting schedules a meeting. Only the course's resolved trainer may
// schedule, and the meeting date must fall inside the course dates.
func (s *AttendanceService) CreateMeeting(ctx context.Context, trainerID string, req CreateMeetingRequest) (*models.ClassMeeting, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid meeting payload")
	}
	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.InstructorID != trainerID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the course trainer can schedule meetings")
	}
	date, err := time.ParseInLocation(dateLayout, req.Date, time.UTC)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid meeting date")
	}
	if date.Before(truncateToDay(course.StartDate)) || truncateToDay(course.EndDate).Before(date) {
		return nil, appErrors.Clone(appErrors.ErrDateOutOfWindow, "meeting date outside the course dates")
	}
	meeting := &models.ClassMeeting{
		CourseID:    course.ID,
		CourseTitle: course.Title,
		Date:        date,
		Hours:       req.Hours,
		TrainerID:   trainerID,
	}
	if err := s.attendance.CreateMeeting(ctx, meeting); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create meeting")
	}
	return meeting, nil
}

// ListMeetings returns meetings for a course, optionally scoped to a trainer.
func (s *AttendanceService) ListMeetings(ctx context.Context, courseID, trainerID string) ([]models.ClassMeeting, error) {
	meetings, err := s.attendance.ListMeetings(ctx, courseID, trainerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list meetings")
	}
	return meetings, nil
}

// Mark records attendance statuses for one meeting. Re-marking a trainee
// overwrites their previous status.
func (s *AttendanceService) Mark(ctx context.Context, trainerID, meetingID string, entries []MarkAttendanceRequest) error {
	meeting, err := s.attendance.FindMeeting(ctx, meetingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "meeting not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load meeting")
	}
	if meeting.TrainerID != trainerID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the meeting trainer can mark attendance")
	}
	for _, entry := range entries {
		if err := s.validator.Struct(entry); err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance entry")
		}
		record := &models.AttendanceRecord{
			MeetingID:   meetingID,
			StudentID:   entry.StudentID,
			StudentName: entry.StudentName,
			Status:      models.AttendanceStatus(entry.Status),
		}
		if err := s.attendance.UpsertRecord(ctx, record); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store attendance")
		}
	}
	return nil
}

// Records returns the attendance sheet of one meeting.
func (s *AttendanceService) Records(ctx context.Context, meetingID string) ([]models.AttendanceRecord, error) {
	records, err := s.attendance.ListRecords(ctx, meetingID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return records, nil
}
