package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atms-platform/atms-api/internal/models"
	"github.com/atms-platform/atms-api/pkg/config"
)

type mockDraftCourseRepo struct {
	courses map[string]models.Course
}

func (m *mockDraftCourseRepo) ListByStatus(ctx context.Context, status models.CourseStatus) ([]models.Course, error) {
	var result []models.Course
	for _, course := range m.courses {
		if course.Status == status {
			result = append(result, course)
		}
	}
	return result, nil
}

func (m *mockDraftCourseRepo) UpdateInstructor(ctx context.Context, courseID, instructorID string, status models.CourseStatus) (bool, error) {
	course, ok := m.courses[courseID]
	if !ok || course.Status != models.CourseStatusDraft {
		return false, nil
	}
	course.InstructorID = instructorID
	course.Status = status
	m.courses[courseID] = course
	return true, nil
}

type mockReconcilerUsers struct {
	byName map[string][]models.User
}

func (m *mockReconcilerUsers) FindActiveByName(ctx context.Context, name string, role models.UserRole) ([]models.User, error) {
	return m.byName[strings.ToLower(strings.TrimSpace(name))], nil
}

type mockActivityWriter struct {
	entries []models.ActivityLog
}

func (m *mockActivityWriter) Insert(ctx context.Context, entry *models.ActivityLog) error {
	m.entries = append(m.entries, *entry)
	return nil
}

func newReconciler(courses *mockDraftCourseRepo, users *mockReconcilerUsers, activity *mockActivityWriter) *ReconcilerService {
	svc := NewReconcilerService(courses, users, activity, config.ReconcilerConfig{}, nil)
	svc.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }
	return svc
}

func TestReconcileBindsDraftCourseWhenTrainerAppears(t *testing.T) {
	courses := &mockDraftCourseRepo{courses: map[string]models.Course{
		"c-1": {
			ID:             "c-1",
			Title:          "Audit101",
			InstructorName: "Sam",
			EndDate:        time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
			Status:         models.CourseStatusDraft,
		},
	}}
	users := &mockReconcilerUsers{byName: map[string][]models.User{}}
	activity := &mockActivityWriter{}
	svc := newReconciler(courses, users, activity)

	// No account named Sam yet: the course must stay draft.
	bound, err := svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, bound)
	assert.Equal(t, models.CourseStatusDraft, courses.courses["c-1"].Status)

	// Sam registers and is approved as a trainer.
	users.byName["sam"] = []models.User{{ID: "trainer-sam", FullName: "Sam", Role: models.RoleTrainer}}

	bound, err = svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, bound)
	assert.Equal(t, "trainer-sam", courses.courses["c-1"].InstructorID)
	assert.Equal(t, models.CourseStatusActive, courses.courses["c-1"].Status)
	require.Len(t, activity.entries, 1)
	assert.Equal(t, "Sam", activity.entries[0].UserName)
}

func TestReconcileSecondPassIsNoOp(t *testing.T) {
	courses := &mockDraftCourseRepo{courses: map[string]models.Course{
		"c-1": {
			ID:             "c-1",
			Title:          "Audit101",
			InstructorName: "Sam",
			EndDate:        time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
			Status:         models.CourseStatusDraft,
		},
	}}
	users := &mockReconcilerUsers{byName: map[string][]models.User{
		"sam": {{ID: "trainer-sam", FullName: "Sam", Role: models.RoleTrainer}},
	}}
	activity := &mockActivityWriter{}
	svc := newReconciler(courses, users, activity)

	bound, err := svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, bound)

	bound, err = svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, bound)
	assert.Len(t, activity.entries, 1)
}

func TestReconcileSkipsAmbiguousNames(t *testing.T) {
	courses := &mockDraftCourseRepo{courses: map[string]models.Course{
		"c-1": {
			ID:             "c-1",
			Title:          "Audit101",
			InstructorName: "Sam",
			EndDate:        time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
			Status:         models.CourseStatusDraft,
		},
	}}
	users := &mockReconcilerUsers{byName: map[string][]models.User{
		"sam": {
			{ID: "trainer-sam-1", FullName: "Sam", Role: models.RoleTrainer},
			{ID: "trainer-sam-2", FullName: "sam ", Role: models.RoleTrainer},
		},
	}}
	svc := newReconciler(courses, users, &mockActivityWriter{})

	bound, err := svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, bound)
	assert.Equal(t, models.CourseStatusDraft, courses.courses["c-1"].Status)
}

func TestReconcileBindsExpiredCourseAsCompleted(t *testing.T) {
	courses := &mockDraftCourseRepo{courses: map[string]models.Course{
		"c-1": {
			ID:             "c-1",
			Title:          "Audit101",
			InstructorName: "Sam",
			EndDate:        time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
			Status:         models.CourseStatusDraft,
		},
	}}
	users := &mockReconcilerUsers{byName: map[string][]models.User{
		"sam": {{ID: "trainer-sam", FullName: "Sam", Role: models.RoleTrainer}},
	}}
	svc := newReconciler(courses, users, &mockActivityWriter{})

	bound, err := svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, bound)
	assert.Equal(t, models.CourseStatusCompleted, courses.courses["c-1"].Status)
}

func TestTriggerCoalescesPendingPasses(t *testing.T) {
	courses := &mockDraftCourseRepo{courses: map[string]models.Course{}}
	users := &mockReconcilerUsers{}
	svc := newReconciler(courses, users, &mockActivityWriter{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	svc.Trigger()
	svc.Trigger()
	svc.Trigger()

	// Workers drain the queue; the coalesced triggers leave nothing pending.
	assert.Eventually(t, func() bool {
		svc.mu.Lock()
		defer svc.mu.Unlock()
		return !svc.pending
	}, time.Second, 10*time.Millisecond)
}
