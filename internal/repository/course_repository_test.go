package repository

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atms-platform/atms-api/internal/models"
)

var courseTestColumns = []string{
	"id", "title", "instructor_name", "instructor_id", "category", "level",
	"start_date", "end_date", "hours", "materials", "status", "created_at", "updated_at",
}

func courseRow(id, title, status string, now time.Time) []driver.Value {
	return []driver.Value{
		id, title, "Sam Reed", "t1", "safety", "beginner",
		now, now.AddDate(0, 1, 0), 40, "{slides.pdf}", status, now, now,
	}
}

func TestCourseFindByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(courseTestColumns).AddRow(courseRow("c1", "Lab Safety", "active", now)...)
	mock.ExpectQuery("SELECT .+ FROM courses WHERE id = \\$1 LIMIT 1").
		WithArgs("c1").
		WillReturnRows(rows)

	course, err := repo.FindByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "Lab Safety", course.Title)
	assert.Equal(t, models.CourseStatusActive, course.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseListByStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(courseTestColumns).
		AddRow(courseRow("c1", "Lab Safety", "draft", now)...).
		AddRow(courseRow("c2", "Field Sampling", "draft", now)...)
	mock.ExpectQuery("SELECT .+ FROM courses WHERE status = \\$1 ORDER BY created_at").
		WithArgs(models.CourseStatusDraft).
		WillReturnRows(rows)

	courses, err := repo.ListByStatus(context.Background(), models.CourseStatusDraft)
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, "Field Sampling", courses[1].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseUpdateInstructorOnlyTouchesDrafts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	query := regexp.QuoteMeta(`UPDATE courses SET instructor_id = $2, status = $3, updated_at = $4 WHERE id = $1 AND status = 'draft'`)

	mock.ExpectExec(query).
		WithArgs("c1", "t1", models.CourseStatusActive, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	updated, err := repo.UpdateInstructor(context.Background(), "c1", "t1", models.CourseStatusActive)
	require.NoError(t, err)
	assert.True(t, updated)

	// A second pass finds the row locked out of draft and changes nothing.
	mock.ExpectExec(query).
		WithArgs("c1", "t1", models.CourseStatusActive, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	updated, err = repo.UpdateInstructor(context.Background(), "c1", "t1", models.CourseStatusActive)
	require.NoError(t, err)
	assert.False(t, updated)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(courseTestColumns).AddRow(courseRow("c1", "Lab Safety", "active", now)...)
	mock.ExpectQuery("SELECT .+ FROM courses WHERE 1=1 AND status = \\$1 ORDER BY created_at DESC LIMIT 20 OFFSET 0").
		WithArgs("active").
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM courses WHERE 1=1 AND status = \\$1").
		WithArgs("active").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	courses, total, err := repo.List(context.Background(), models.CourseFilter{Status: "active"})
	require.NoError(t, err)
	assert.Len(t, courses, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseCountByStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	rows := sqlmock.NewRows([]string{"status", "count"}).
		AddRow("active", 3).
		AddRow("draft", 2)
	mock.ExpectQuery("SELECT status, COUNT\\(\\*\\) AS count FROM courses GROUP BY status").
		WillReturnRows(rows)

	counts, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, counts[models.CourseStatusActive])
	assert.Equal(t, 2, counts[models.CourseStatusDraft])
	assert.NoError(t, mock.ExpectationsWereMet())
}
