package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atms-platform/atms-api/internal/models"
)

type mockCourseRepo struct {
	courses map[string]models.Course
	nextID  int
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	course, ok := m.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &course, nil
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	var result []models.Course
	for _, course := range m.courses {
		result = append(result, course)
	}
	return result, len(result), nil
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	if m.courses == nil {
		m.courses = make(map[string]models.Course)
	}
	m.nextID++
	course.ID = string(rune('a' + m.nextID))
	m.courses[course.ID] = *course
	return nil
}

func (m *mockCourseRepo) Update(ctx context.Context, course *models.Course) error {
	m.courses[course.ID] = *course
	return nil
}

func (m *mockCourseRepo) Delete(ctx context.Context, id string) error {
	delete(m.courses, id)
	return nil
}

type mockTrainerResolver struct {
	byName map[string][]models.User
}

func (m *mockTrainerResolver) FindActiveByName(ctx context.Context, name string, role models.UserRole) ([]models.User, error) {
	return m.byName[strings.ToLower(strings.TrimSpace(name))], nil
}

type mockSessionReader struct {
	session *models.Session
}

func (m *mockSessionReader) Latest(ctx context.Context) (*models.Session, error) {
	if m.session == nil {
		return nil, sql.ErrNoRows
	}
	return m.session, nil
}

func fixedNow(t *testing.T, value string) func() time.Time {
	t.Helper()
	parsed, err := time.ParseInLocation("2006-01-02", value, time.UTC)
	require.NoError(t, err)
	return func() time.Time { return parsed }
}

func TestComputeStatus(t *testing.T) {
	end := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)

	t.Run("no trainer stays draft", func(t *testing.T) {
		past := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, models.CourseStatusDraft, ComputeStatus("", end, past))
	})

	t.Run("ends today is still active", func(t *testing.T) {
		now := time.Date(2026, 6, 30, 23, 0, 0, 0, time.UTC)
		assert.Equal(t, models.CourseStatusActive, ComputeStatus("trainer-1", end, now))
	})

	t.Run("past end date is completed", func(t *testing.T) {
		now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, models.CourseStatusCompleted, ComputeStatus("trainer-1", end, now))
	})

	t.Run("before end date is active", func(t *testing.T) {
		now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, models.CourseStatusActive, ComputeStatus("trainer-1", end, now))
	})
}

func TestCreateCourseResolvesInstructor(t *testing.T) {
	repo := &mockCourseRepo{}
	users := &mockTrainerResolver{byName: map[string][]models.User{
		"sam": {{ID: "trainer-sam", FullName: "Sam", Role: models.RoleTrainer}},
	}}
	svc := NewCourseService(repo, users, &mockSessionReader{}, nil, nil)
	svc.now = fixedNow(t, "2026-05-01")

	course, err := svc.Create(context.Background(), CreateCourseRequest{
		Title:          "Audit101",
		InstructorName: "Sam",
		Category:       "audit",
		Level:          "beginner",
		StartDate:      "2026-05-10",
		EndDate:        "2026-06-10",
		Hours:          40,
	})
	require.NoError(t, err)
	assert.Equal(t, "trainer-sam", course.InstructorID)
	assert.Equal(t, models.CourseStatusActive, course.Status)
}

func TestCreateCourseUnknownInstructorStaysDraft(t *testing.T) {
	repo := &mockCourseRepo{}
	svc := NewCourseService(repo, &mockTrainerResolver{}, &mockSessionReader{}, nil, nil)
	svc.now = fixedNow(t, "2026-05-01")

	course, err := svc.Create(context.Background(), CreateCourseRequest{
		Title:          "Audit101",
		InstructorName: "Sam",
		Category:       "audit",
		Level:          "beginner",
		StartDate:      "2026-05-10",
		EndDate:        "2026-06-10",
		Hours:          40,
	})
	require.NoError(t, err)
	assert.Empty(t, course.InstructorID)
	assert.Equal(t, models.CourseStatusDraft, course.Status)
}

func TestCreateCourseAmbiguousInstructorStaysDraft(t *testing.T) {
	repo := &mockCourseRepo{}
	users := &mockTrainerResolver{byName: map[string][]models.User{
		"sam": {
			{ID: "trainer-sam-1", FullName: "Sam", Role: models.RoleTrainer},
			{ID: "trainer-sam-2", FullName: "sam", Role: models.RoleTrainer},
		},
	}}
	svc := NewCourseService(repo, users, &mockSessionReader{}, nil, nil)
	svc.now = fixedNow(t, "2026-05-01")

	course, err := svc.Create(context.Background(), CreateCourseRequest{
		Title:          "Audit101",
		InstructorName: "Sam",
		Category:       "audit",
		Level:          "beginner",
		StartDate:      "2026-05-10",
		EndDate:        "2026-06-10",
		Hours:          40,
	})
	require.NoError(t, err)
	assert.Empty(t, course.InstructorID)
	assert.Equal(t, models.CourseStatusDraft, course.Status)
}

func TestCreateCourseRejectsDatesOutsideTrainingWindow(t *testing.T) {
	sessions := &mockSessionReader{session: &models.Session{
		TrainStart: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		TrainEnd:   time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
	}}
	svc := NewCourseService(&mockCourseRepo{}, &mockTrainerResolver{}, sessions, nil, nil)
	svc.now = fixedNow(t, "2026-05-01")

	_, err := svc.Create(context.Background(), CreateCourseRequest{
		Title:          "Audit101",
		InstructorName: "Sam",
		Category:       "audit",
		Level:          "beginner",
		StartDate:      "2026-05-10",
		EndDate:        "2026-07-10",
		Hours:          40,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "training window")
}

func TestCreateCourseRejectsInvalidDates(t *testing.T) {
	svc := NewCourseService(&mockCourseRepo{}, &mockTrainerResolver{}, &mockSessionReader{}, nil, nil)

	_, err := svc.Create(context.Background(), CreateCourseRequest{
		Title:          "Audit101",
		InstructorName: "Sam",
		Category:       "audit",
		Level:          "beginner",
		StartDate:      "2026-06-10",
		EndDate:        "2026-05-10",
		Hours:          40,
	})
	require.Error(t, err)
}

func TestGetRefreshesStaleStatus(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]models.Course{
		"c-1": {
			ID:           "c-1",
			Title:        "Audit101",
			InstructorID: "trainer-1",
			EndDate:      time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
			Status:       models.CourseStatusActive,
		},
	}}
	svc := NewCourseService(repo, &mockTrainerResolver{}, &mockSessionReader{}, nil, nil)
	svc.now = fixedNow(t, "2026-08-01")

	course, err := svc.Get(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, models.CourseStatusCompleted, course.Status)
}
