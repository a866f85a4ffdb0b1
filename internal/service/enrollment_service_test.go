package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atms-platform/atms-api/internal/models"
)

type mockEnrollmentRepo struct {
	enrollments []models.Enrollment
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	m.enrollments = append(m.enrollments, *enrollment)
	return nil
}

func (m *mockEnrollmentRepo) Exists(ctx context.Context, userID, courseID string) (bool, error) {
	for _, e := range m.enrollments {
		if e.UserID == userID && e.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error) {
	var result []models.Enrollment
	for _, e := range m.enrollments {
		if filter.UserID != "" && e.UserID != filter.UserID {
			continue
		}
		result = append(result, e)
	}
	return result, len(result), nil
}

func activeCourse() *mockCourseRepo {
	return &mockCourseRepo{courses: map[string]models.Course{
		"c-1": {
			ID:             "c-1",
			Title:          "Audit101",
			InstructorID:   "trainer-1",
			InstructorName: "Sam",
			Category:       "audit",
			Level:          models.CourseLevelBeginner,
			Hours:          40,
			StartDate:      time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC),
			EndDate:        time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC),
			Status:         models.CourseStatusActive,
		},
	}}
}

func regWindowSession(start, end string) *mockSessionReader {
	regStart, _ := time.ParseInLocation("2006-01-02", start, time.UTC)
	regEnd, _ := time.ParseInLocation("2006-01-02", end, time.UTC)
	return &mockSessionReader{session: &models.Session{RegStart: regStart, RegEnd: regEnd}}
}

func TestEnrollSnapshotsCourse(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	svc := NewEnrollmentService(repo, activeCourse(), regWindowSession("2026-04-01", "2026-05-05"), &mockActivityWriter{}, nil)
	svc.now = fixedNow(t, "2026-04-15")

	enrollment, err := svc.Enroll(context.Background(), &models.UserInfo{ID: "t-1", FullName: "Ana"}, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "Audit101", enrollment.Title)
	assert.Equal(t, "Sam", enrollment.InstructorName)
	assert.Equal(t, 40, enrollment.Hours)
	require.Len(t, repo.enrollments, 1)
}

func TestEnrollRejectsDuplicate(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	svc := NewEnrollmentService(repo, activeCourse(), &mockSessionReader{}, nil, nil)

	_, err := svc.Enroll(context.Background(), &models.UserInfo{ID: "t-1"}, "c-1")
	require.NoError(t, err)

	_, err = svc.Enroll(context.Background(), &models.UserInfo{ID: "t-1"}, "c-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already enrolled")
}

func TestEnrollRejectsClosedRegistration(t *testing.T) {
	svc := NewEnrollmentService(&mockEnrollmentRepo{}, activeCourse(), regWindowSession("2026-04-01", "2026-05-05"), nil, nil)
	svc.now = fixedNow(t, "2026-05-20")

	_, err := svc.Enroll(context.Background(), &models.UserInfo{ID: "t-1"}, "c-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registration window")
}

func TestEnrollRejectsCompletedCourse(t *testing.T) {
	courses := &mockCourseRepo{courses: map[string]models.Course{
		"c-1": {ID: "c-1", Status: models.CourseStatusCompleted},
	}}
	svc := NewEnrollmentService(&mockEnrollmentRepo{}, courses, &mockSessionReader{}, nil, nil)

	_, err := svc.Enroll(context.Background(), &models.UserInfo{ID: "t-1"}, "c-1")
	require.Error(t, err)
}

func TestEnrollRejectsUnknownCourse(t *testing.T) {
	svc := NewEnrollmentService(&mockEnrollmentRepo{}, &mockCourseRepo{}, &mockSessionReader{}, nil, nil)

	_, err := svc.Enroll(context.Background(), &models.UserInfo{ID: "t-1"}, "missing")
	require.Error(t, err)
}
