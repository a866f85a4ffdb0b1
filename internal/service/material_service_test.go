package service

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atms-platform/atms-api/internal/models"
	"github.com/atms-platform/atms-api/pkg/storage"
)

type fsMaterialStore struct {
	dir string
}

func newFSMaterialStore(t *testing.T) *fsMaterialStore {
	return &fsMaterialStore{dir: t.TempDir()}
}

func (s *fsMaterialStore) SaveStream(name string, r io.Reader) (string, error) {
	path := filepath.Join(s.dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return name, os.WriteFile(path, data, 0o644)
}

func (s *fsMaterialStore) Open(name string) (*os.File, error) {
	return os.Open(filepath.Join(s.dir, name))
}

func (s *fsMaterialStore) Delete(name string) error {
	return os.Remove(filepath.Join(s.dir, name))
}

func materialCourse() *mockCourseRepo {
	return &mockCourseRepo{courses: map[string]models.Course{
		"c-1": {ID: "c-1", Title: "Audit101", Status: models.CourseStatusActive},
	}}
}

func TestMaterialUploadRecordsName(t *testing.T) {
	courses := materialCourse()
	svc := NewMaterialService(courses, newFSMaterialStore(t), storage.NewSignedURLSigner("secret", time.Minute), nil)

	course, err := svc.Upload(context.Background(), "c-1", "slides.pdf", bytes.NewReader([]byte("pdf bytes")))
	require.NoError(t, err)
	assert.Equal(t, []string{"slides.pdf"}, []string(course.Materials))

	// Same name again replaces the file without duplicating the entry.
	course, err = svc.Upload(context.Background(), "c-1", "slides.pdf", bytes.NewReader([]byte("new bytes")))
	require.NoError(t, err)
	assert.Len(t, course.Materials, 1)
}

func TestMaterialUploadStripsDirectories(t *testing.T) {
	courses := materialCourse()
	svc := NewMaterialService(courses, newFSMaterialStore(t), storage.NewSignedURLSigner("secret", time.Minute), nil)

	course, err := svc.Upload(context.Background(), "c-1", "../../etc/passwd", bytes.NewReader([]byte("x")))
	require.NoError(t, err)
	assert.Equal(t, []string{"passwd"}, []string(course.Materials))
}

func TestMaterialUploadUnknownCourse(t *testing.T) {
	svc := NewMaterialService(materialCourse(), newFSMaterialStore(t), storage.NewSignedURLSigner("secret", time.Minute), nil)

	_, err := svc.Upload(context.Background(), "missing", "slides.pdf", bytes.NewReader(nil))
	assert.Error(t, err)
}

func TestMaterialLinkAndDownload(t *testing.T) {
	courses := materialCourse()
	store := newFSMaterialStore(t)
	svc := NewMaterialService(courses, store, storage.NewSignedURLSigner("secret", time.Minute), nil)

	_, err := svc.Upload(context.Background(), "c-1", "slides.pdf", bytes.NewReader([]byte("pdf bytes")))
	require.NoError(t, err)

	token, expiresAt, err := svc.Link(context.Background(), "c-1", "slides.pdf")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	file, name, err := svc.Download(token)
	require.NoError(t, err)
	defer file.Close()

	assert.Equal(t, "slides.pdf", name)
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf bytes"), data)
}

func TestMaterialLinkUnknownMaterial(t *testing.T) {
	svc := NewMaterialService(materialCourse(), newFSMaterialStore(t), storage.NewSignedURLSigner("secret", time.Minute), nil)

	_, _, err := svc.Link(context.Background(), "c-1", "missing.pdf")
	assert.Error(t, err)
}

func TestMaterialDownloadRejectsBadToken(t *testing.T) {
	svc := NewMaterialService(materialCourse(), newFSMaterialStore(t), storage.NewSignedURLSigner("secret", time.Minute), nil)

	_, _, err := svc.Download("not-a-token")
	assert.Error(t, err)
}

func TestMaterialRemove(t *testing.T) {
	courses := materialCourse()
	store := newFSMaterialStore(t)
	svc := NewMaterialService(courses, store, storage.NewSignedURLSigner("secret", time.Minute), nil)

	_, err := svc.Upload(context.Background(), "c-1", "slides.pdf", bytes.NewReader([]byte("pdf bytes")))
	require.NoError(t, err)

	require.NoError(t, svc.Remove(context.Background(), "c-1", "slides.pdf"))

	course, err := courses.FindByID(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Empty(t, course.Materials)

	_, err = store.Open(filepath.Join("c-1", "slides.pdf"))
	assert.Error(t, err)
}
