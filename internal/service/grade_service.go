package service

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/atms-platform/atms-api/internal/models"
	appErrors "github.com/atms-platform/atms-api/pkg/errors"
)

type scoreRepo interface {
	Upsert(ctx context.Context, score *models.CourseScore) error
	List(ctx context.Context, filter models.CourseScoreFilter) ([]models.CourseScore, error)
}

type finalGradeRepo interface {
	Upsert(ctx context.Context, record *models.FinalGradeRecord) error
	FindByTrainee(ctx context.Context, traineeID string) (*models.FinalGradeRecord, error)
	List(ctx context.Context) ([]models.FinalGradeRecord, error)
}

type traineeReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// SubmitScoreRequest is one trainer-entered grade for a trainee in a course.
type SubmitScoreRequest struct {
	TraineeID   string  `json:"trainee_id" validate:"required"`
	TraineeName string  `json:"trainee_name" validate:"required"`
	CourseID    string  `json:"course_id" validate:"required"`
	CourseTitle string  `json:"course_title" validate:"required"`
	Grade       float64 `json:"grade" validate:"min=0,max=100"`
}

// SaveGradesRequest carries a batch of score entries to persist.
type SaveGradesRequest struct {
	Scores []SubmitScoreRequest `json:"scores" validate:"required,min=1,dive"`
}

// SaveGradesResult summarises per-trainee outcomes of a batch save.
type SaveGradesResult struct {
	SavedCount int                `json:"saved_count"`
	Failures   []SaveGradeFailure `json:"failures,omitempty"`
}

// SaveGradeFailure captures a score entry that could not be stored.
type SaveGradeFailure struct {
	TraineeID string `json:"trainee_id"`
	CourseID  string `json:"course_id"`
	Reason    string `json:"reason"`
}

// GradeService turns raw course scores into per-trainee grade rollups.
type GradeService struct {
	scores    scoreRepo
	finals    finalGradeRepo
	users     traineeReader
	validator *validator.Validate
	logger    *zap.Logger
	rounding  func(float64) float64
}

// NewGradeService constructs GradeService.
func NewGradeService(scores scoreRepo, finals finalGradeRepo, users traineeReader, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{
		scores:    scores,
		finals:    finals,
		users:     users,
		validator: validate,
		logger:    logger,
		rounding:  func(v float64) float64 { return math.RoundToEven(v*100) / 100 },
	}
}

// LetterGrade maps a numeric score to its letter band.
func LetterGrade(score float64) string {
	switch {
	case score >= 90:
		return "A+"
	case score >= 85:
		return "A"
	case score >= 80:
		return "A-"
	case score >= 75:
		return "B+"
	case score >= 70:
		return "B"
	case score >= 65:
		return "B-"
	case score >= 60:
		return "C+"
	case score >= 55:
		return "C"
	case score >= 50:
		return "D"
	default:
		return "F"
	}
}

// SaveAll persists a batch of scores and rebuilds the rollup of every
// affected trainee. Failures are collected per entry instead of aborting
// the whole batch.
func (s *GradeService) SaveAll(ctx context.Context, trainerID string, req SaveGradesRequest) (*SaveGradesResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grades payload")
	}
	result := &SaveGradesResult{}
	affected := make(map[string]bool)
	for _, entry := range req.Scores {
		score := &models.CourseScore{
			TraineeID:   entry.TraineeID,
			TraineeName: entry.TraineeName,
			CourseID:    entry.CourseID,
			CourseTitle: entry.CourseTitle,
			Grade:       entry.Grade,
			TrainerID:   trainerID,
		}
		if err := s.scores.Upsert(ctx, score); err != nil {
			s.logger.Warn("score upsert failed",
				zap.String("trainee_id", entry.TraineeID),
				zap.String("course_id", entry.CourseID),
				zap.Error(err))
			result.Failures = append(result.Failures, SaveGradeFailure{
				TraineeID: entry.TraineeID,
				CourseID:  entry.CourseID,
				Reason:    err.Error(),
			})
			continue
		}
		result.SavedCount++
		affected[entry.TraineeID] = true
	}
	for traineeID := range affected {
		if err := s.rebuildRollup(ctx, traineeID); err != nil {
			result.Failures = append(result.Failures, SaveGradeFailure{
				TraineeID: traineeID,
				Reason:    err.Error(),
			})
		}
	}
	return result, nil
}

// Aggregate rebuilds and returns the rollup for a single trainee from its
// stored scores. Trainees without scores get an empty rollup, not an error.
func (s *GradeService) Aggregate(ctx context.Context, traineeID string) (*models.FinalGradeRecord, error) {
	if traineeID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "trainee id required")
	}
	if err := s.rebuildRollup(ctx, traineeID); err != nil {
		return nil, err
	}
	record, err := s.finals.FindByTrainee(ctx, traineeID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no grades recorded for trainee")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load final grades")
	}
	return record, nil
}

// ListScores returns raw score entries for the given filter.
func (s *GradeService) ListScores(ctx context.Context, filter models.CourseScoreFilter) ([]models.CourseScore, error) {
	scores, err := s.scores.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list scores")
	}
	return scores, nil
}

// ListFinalGrades returns every trainee rollup.
func (s *GradeService) ListFinalGrades(ctx context.Context) ([]models.FinalGradeRecord, error) {
	records, err := s.finals.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list final grades")
	}
	return records, nil
}

// TraineeReport returns the stored rollup for a trainee, verifying the
// trainee exists first so missing trainees and missing grades report
// differently. With refresh the rollup is recomputed from the score rows
// before it is read back.
func (s *GradeService) TraineeReport(ctx context.Context, traineeID string, refresh bool) (*models.FinalGradeRecord, error) {
	if _, err := s.users.FindByID(ctx, traineeID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "trainee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load trainee")
	}
	if refresh {
		return s.Aggregate(ctx, traineeID)
	}
	record, err := s.finals.FindByTrainee(ctx, traineeID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no grades recorded for trainee")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load final grades")
	}
	return record, nil
}

func (s *GradeService) rebuildRollup(ctx context.Context, traineeID string) error {
	scores, err := s.scores.List(ctx, models.CourseScoreFilter{TraineeID: traineeID})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch scores")
	}
	if len(scores) == 0 {
		return nil
	}
	record := s.buildRecord(traineeID, scores)
	if err := s.finals.Upsert(ctx, record); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store final grades")
	}
	return nil
}

// buildRecord computes totals over the maximum attainable score of 100 per
// course. cgpa sits on a 4.0 scale, kept as a formatted string.
func (s *GradeService) buildRecord(traineeID string, scores []models.CourseScore) *models.FinalGradeRecord {
	lines := make(models.GradeLines, 0, len(scores))
	total := 0.0
	name := ""
	for _, score := range scores {
		lines = append(lines, models.GradeLine{
			CourseID:    score.CourseID,
			CourseTitle: score.CourseTitle,
			Grade:       score.Grade,
			LetterGrade: LetterGrade(score.Grade),
		})
		total += score.Grade
		if name == "" {
			name = score.TraineeName
		}
	}
	average := total / (float64(len(scores)) * 100) * 100
	average = s.rounding(average)
	return &models.FinalGradeRecord{
		TraineeID:   traineeID,
		TraineeName: name,
		Courses:     lines,
		Total:       total,
		Average:     average,
		CGPA:        fmt.Sprintf("%.2f", average/25),
	}
}
