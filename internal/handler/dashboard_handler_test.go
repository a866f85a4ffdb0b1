package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atms-platform/atms-api/internal/models"
	"github.com/atms-platform/atms-api/internal/service"
)

type fakeUserCounter struct {
	counts map[models.UserRole]int
	err    error
}

func (f *fakeUserCounter) CountByRole(context.Context) (map[models.UserRole]int, error) {
	return f.counts, f.err
}

type fakeCourseCounter struct {
	counts map[models.CourseStatus]int
}

func (f *fakeCourseCounter) CountByStatus(context.Context) (map[models.CourseStatus]int, error) {
	return f.counts, nil
}

type fakeEnrollmentCounter struct {
	total int
}

func (f *fakeEnrollmentCounter) Count(context.Context) (int, error) {
	return f.total, nil
}

type fakeActivityRepo struct {
	entries []models.ActivityLog
}

func (f *fakeActivityRepo) Insert(_ context.Context, entry *models.ActivityLog) error {
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeActivityRepo) ListRecent(_ context.Context, limit int) ([]models.ActivityLog, error) {
	if limit < len(f.entries) {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}

type responseEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Error map[string]interface{} `json:"error"`
}

func TestDashboardHandlerStats(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dashboard := service.NewDashboardService(
		&fakeUserCounter{counts: map[models.UserRole]int{
			models.RoleAdmin:   1,
			models.RoleTrainee: 7,
			models.RolePending: 2,
		}},
		&fakeCourseCounter{counts: map[models.CourseStatus]int{
			models.CourseStatusActive:    3,
			models.CourseStatusCompleted: 1,
		}},
		&fakeEnrollmentCounter{total: 12},
		nil, 0, nil,
	)
	handler := NewDashboardHandler(dashboard, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard/stats", nil)

	handler.Stats(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, float64(10), envelope.Data["total_users"])
	assert.Equal(t, float64(2), envelope.Data["pending_users"])
	assert.Equal(t, float64(4), envelope.Data["total_courses"])
	assert.Equal(t, float64(12), envelope.Data["total_enrollments"])
}

func TestDashboardHandlerStatsFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dashboard := service.NewDashboardService(
		&fakeUserCounter{err: assert.AnError},
		&fakeCourseCounter{},
		&fakeEnrollmentCounter{},
		nil, 0, nil,
	)
	handler := NewDashboardHandler(dashboard, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard/stats", nil)

	handler.Stats(c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "INTERNAL_ERROR", envelope.Error["code"])
}

func TestDashboardHandlerActivity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &fakeActivityRepo{entries: []models.ActivityLog{
		{ID: "a1", UserName: "Ana Souza", Action: "enrolled in course", Target: "Field Sampling", CreatedAt: time.Now()},
		{ID: "a2", UserName: "Sam Reed", Action: "assigned as instructor", Target: "Lab Safety", CreatedAt: time.Now()},
	}}
	handler := NewDashboardHandler(nil, service.NewActivityService(repo, nil))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard/activity?limit=1", nil)

	handler.Activity(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "Ana Souza", body.Data[0]["user_name"])
}
