package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/atms-platform/atms-api/internal/models"
	appErrors "github.com/atms-platform/atms-api/pkg/errors"
)

type materialCourseRepo interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Update(ctx context.Context, course *models.Course) error
}

type materialStore interface {
	SaveStream(name string, r io.Reader) (string, error)
	Open(name string) (*os.File, error)
	Delete(name string) error
}

type downloadSigner interface {
	Generate(courseID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (courseID, relPath string, expiresAt time.Time, err error)
}

// MaterialService stores course material files and hands out signed
// download links so trainees can fetch them without a session token.
type MaterialService struct {
	courses materialCourseRepo
	store   materialStore
	signer  downloadSigner
	logger  *zap.Logger
}

// NewMaterialService constructs MaterialService.
func NewMaterialService(courses materialCourseRepo, store materialStore, signer downloadSigner, logger *zap.Logger) *MaterialService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaterialService{courses: courses, store: store, signer: signer, logger: logger}
}

// Upload stores the file under the course and records its name on the
// course record. Re-uploading the same name replaces the file.
func (s *MaterialService) Upload(ctx context.Context, courseID, filename string, r io.Reader) (*models.Course, error) {
	name := filepath.Base(filepath.Clean(filename))
	if name == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid material filename")
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if _, err := s.store.SaveStream(path.Join(course.ID, name), r); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store material")
	}

	if !containsString(course.Materials, name) {
		course.Materials = append(course.Materials, name)
		if err := s.courses.Update(ctx, course); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record material")
		}
	}

	s.logger.Info("material uploaded",
		zap.String("course_id", course.ID),
		zap.String("name", name))
	return course, nil
}

// Link returns a signed download token for a recorded material.
func (s *MaterialService) Link(ctx context.Context, courseID, name string) (string, time.Time, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", time.Time{}, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if !containsString(course.Materials, name) {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrNotFound, "material not found")
	}

	token, expiresAt, err := s.signer.Generate(course.ID, path.Join(course.ID, name))
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}
	return token, expiresAt, nil
}

// Download resolves a signed token to an open file handle. The caller
// owns the handle.
func (s *MaterialService) Download(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download link")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "material not found")
	}
	return file, path.Base(relPath), nil
}

// Remove deletes the stored file and drops it from the course record.
func (s *MaterialService) Remove(ctx context.Context, courseID, name string) error {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if !containsString(course.Materials, name) {
		return appErrors.Clone(appErrors.ErrNotFound, "material not found")
	}

	if err := s.store.Delete(path.Join(course.ID, name)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete material")
	}

	kept := course.Materials[:0]
	for _, m := range course.Materials {
		if m != name {
			kept = append(kept, m)
		}
	}
	course.Materials = kept
	if err := s.courses.Update(ctx, course); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record material removal")
	}
	return nil
}

func containsString(list []string, want string) bool {
	for _, item := range list {
		if item == want {
			return true
		}
	}
	return false
}
