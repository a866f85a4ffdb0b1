package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atms-platform/atms-api/internal/models"
)

type mockScoreRepo struct {
	scores  map[string]models.CourseScore
	failOn  map[string]error
	upserts int
}

func (m *mockScoreRepo) Upsert(ctx context.Context, score *models.CourseScore) error {
	if err, ok := m.failOn[score.TraineeID+score.CourseID]; ok {
		return err
	}
	if m.scores == nil {
		m.scores = make(map[string]models.CourseScore)
	}
	m.scores[score.TraineeID+score.CourseID] = *score
	m.upserts++
	return nil
}

func (m *mockScoreRepo) List(ctx context.Context, filter models.CourseScoreFilter) ([]models.CourseScore, error) {
	var result []models.CourseScore
	for _, score := range m.scores {
		if filter.TraineeID != "" && filter.TraineeID != score.TraineeID {
			continue
		}
		if filter.CourseID != "" && filter.CourseID != score.CourseID {
			continue
		}
		result = append(result, score)
	}
	return result, nil
}

type mockFinalRepo struct {
	records map[string]models.FinalGradeRecord
}

func (m *mockFinalRepo) Upsert(ctx context.Context, record *models.FinalGradeRecord) error {
	if m.records == nil {
		m.records = make(map[string]models.FinalGradeRecord)
	}
	m.records[record.TraineeID] = *record
	return nil
}

func (m *mockFinalRepo) FindByTrainee(ctx context.Context, traineeID string) (*models.FinalGradeRecord, error) {
	record, ok := m.records[traineeID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &record, nil
}

func (m *mockFinalRepo) List(ctx context.Context) ([]models.FinalGradeRecord, error) {
	var result []models.FinalGradeRecord
	for _, record := range m.records {
		result = append(result, record)
	}
	return result, nil
}

type mockTraineeReader struct {
	users map[string]models.User
}

func (m *mockTraineeReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &user, nil
}

func TestLetterGrade(t *testing.T) {
	cases := []struct {
		score    float64
		expected string
	}{
		{95, "A+"},
		{90, "A+"},
		{89, "A"},
		{85, "A"},
		{80, "A-"},
		{78, "B+"},
		{75, "B+"},
		{70, "B"},
		{65, "B-"},
		{60, "C+"},
		{55, "C"},
		{50, "D"},
		{49.9, "F"},
		{0, "F"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.expected, LetterGrade(tc.score), "score %.1f", tc.score)
	}
}

func TestSaveAllAggregatesRollup(t *testing.T) {
	scores := &mockScoreRepo{}
	finals := &mockFinalRepo{}
	svc := NewGradeService(scores, finals, &mockTraineeReader{}, nil, nil)

	result, err := svc.SaveAll(context.Background(), "trainer-1", SaveGradesRequest{Scores: []SubmitScoreRequest{
		{TraineeID: "ana-1", TraineeName: "Ana", CourseID: "c-101", CourseTitle: "Audit101", Grade: 92},
		{TraineeID: "ana-1", TraineeName: "Ana", CourseID: "c-102", CourseTitle: "Audit102", Grade: 78},
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, result.SavedCount)
	assert.Empty(t, result.Failures)

	record, ok := finals.records["ana-1"]
	require.True(t, ok)
	assert.Equal(t, "Ana", record.TraineeName)
	assert.InDelta(t, 170.0, record.Total, 0.001)
	assert.InDelta(t, 85.0, record.Average, 0.001)
	assert.Equal(t, "3.40", record.CGPA)
	require.Len(t, record.Courses, 2)
	letters := map[string]string{}
	for _, line := range record.Courses {
		letters[line.CourseTitle] = line.LetterGrade
	}
	assert.Equal(t, "A+", letters["Audit101"])
	assert.Equal(t, "B+", letters["Audit102"])
}

func TestSaveAllResubmissionOverwrites(t *testing.T) {
	scores := &mockScoreRepo{}
	finals := &mockFinalRepo{}
	svc := NewGradeService(scores, finals, &mockTraineeReader{}, nil, nil)

	_, err := svc.SaveAll(context.Background(), "trainer-1", SaveGradesRequest{Scores: []SubmitScoreRequest{
		{TraineeID: "t-1", TraineeName: "Bo", CourseID: "c-1", CourseTitle: "Audit101", Grade: 40},
	}})
	require.NoError(t, err)

	_, err = svc.SaveAll(context.Background(), "trainer-1", SaveGradesRequest{Scores: []SubmitScoreRequest{
		{TraineeID: "t-1", TraineeName: "Bo", CourseID: "c-1", CourseTitle: "Audit101", Grade: 88},
	}})
	require.NoError(t, err)

	record := finals.records["t-1"]
	require.Len(t, record.Courses, 1)
	assert.InDelta(t, 88.0, record.Courses[0].Grade, 0.001)
	assert.Equal(t, "A", record.Courses[0].LetterGrade)
	assert.InDelta(t, 88.0, record.Total, 0.001)
}

func TestSaveAllCollectsFailures(t *testing.T) {
	scores := &mockScoreRepo{failOn: map[string]error{
		"badc-1": errors.New("constraint violation"),
	}}
	finals := &mockFinalRepo{}
	svc := NewGradeService(scores, finals, &mockTraineeReader{}, nil, nil)

	result, err := svc.SaveAll(context.Background(), "trainer-1", SaveGradesRequest{Scores: []SubmitScoreRequest{
		{TraineeID: "ok", TraineeName: "Ok", CourseID: "c-1", CourseTitle: "Audit101", Grade: 70},
		{TraineeID: "bad", TraineeName: "Bad", CourseID: "c-1", CourseTitle: "Audit101", Grade: 70},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.SavedCount)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "bad", result.Failures[0].TraineeID)
	_, ok := finals.records["ok"]
	assert.True(t, ok)
	_, ok = finals.records["bad"]
	assert.False(t, ok)
}

func TestSaveAllRejectsInvalidPayload(t *testing.T) {
	svc := NewGradeService(&mockScoreRepo{}, &mockFinalRepo{}, &mockTraineeReader{}, nil, nil)

	_, err := svc.SaveAll(context.Background(), "trainer-1", SaveGradesRequest{})
	require.Error(t, err)

	_, err = svc.SaveAll(context.Background(), "trainer-1", SaveGradesRequest{Scores: []SubmitScoreRequest{
		{TraineeID: "t-1", TraineeName: "Bo", CourseID: "c-1", CourseTitle: "Audit101", Grade: 120},
	}})
	require.Error(t, err)
}

func TestTraineeReport(t *testing.T) {
	finals := &mockFinalRepo{records: map[string]models.FinalGradeRecord{
		"t-1": {TraineeID: "t-1", TraineeName: "Ana", Total: 170, Average: 85, CGPA: "3.40"},
	}}
	users := &mockTraineeReader{users: map[string]models.User{
		"t-1": {ID: "t-1", FullName: "Ana", Role: models.RoleTrainee},
		"t-2": {ID: "t-2", FullName: "Empty", Role: models.RoleTrainee},
	}}
	svc := NewGradeService(&mockScoreRepo{}, finals, users, nil, nil)

	record, err := svc.TraineeReport(context.Background(), "t-1", false)
	require.NoError(t, err)
	assert.Equal(t, "3.40", record.CGPA)

	_, err = svc.TraineeReport(context.Background(), "t-2", false)
	require.Error(t, err)

	_, err = svc.TraineeReport(context.Background(), "missing", false)
	require.Error(t, err)
}

func TestAggregateRebuildsFromScores(t *testing.T) {
	scores := &mockScoreRepo{scores: map[string]models.CourseScore{
		"t-1c-1": {TraineeID: "t-1", TraineeName: "Ana", CourseID: "c-1", CourseTitle: "Audit101", Grade: 92},
		"t-1c-2": {TraineeID: "t-1", TraineeName: "Ana", CourseID: "c-2", CourseTitle: "Audit102", Grade: 78},
	}}
	finals := &mockFinalRepo{}
	svc := NewGradeService(scores, finals, &mockTraineeReader{}, nil, nil)

	record, err := svc.Aggregate(context.Background(), "t-1")
	require.NoError(t, err)
	assert.InDelta(t, 170.0, record.Total, 0.001)
	assert.Equal(t, "3.40", record.CGPA)
	require.Len(t, record.Courses, 2)

	_, ok := finals.records["t-1"]
	assert.True(t, ok, "rollup must be persisted, not just returned")

	_, err = svc.Aggregate(context.Background(), "")
	require.Error(t, err)

	_, err = svc.Aggregate(context.Background(), "no-scores")
	require.Error(t, err)
}

func TestTraineeReportRefreshRecomputesStaleRollup(t *testing.T) {
	scores := &mockScoreRepo{scores: map[string]models.CourseScore{
		"t-1c-1": {TraineeID: "t-1", TraineeName: "Ana", CourseID: "c-1", CourseTitle: "Audit101", Grade: 92},
	}}
	finals := &mockFinalRepo{records: map[string]models.FinalGradeRecord{
		"t-1": {TraineeID: "t-1", TraineeName: "Ana", Total: 40, Average: 40, CGPA: "1.60"},
	}}
	users := &mockTraineeReader{users: map[string]models.User{
		"t-1": {ID: "t-1", FullName: "Ana", Role: models.RoleTrainee},
	}}
	svc := NewGradeService(scores, finals, users, nil, nil)

	stale, err := svc.TraineeReport(context.Background(), "t-1", false)
	require.NoError(t, err)
	assert.Equal(t, "1.60", stale.CGPA)

	fresh, err := svc.TraineeReport(context.Background(), "t-1", true)
	require.NoError(t, err)
	assert.InDelta(t, 92.0, fresh.Total, 0.001)
	assert.Equal(t, "3.68", fresh.CGPA)
}
