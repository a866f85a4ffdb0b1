package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atms-platform/atms-api/internal/models"
)

type mockSessionRepo struct {
	sessions []models.Session
}

func (m *mockSessionRepo) Create(ctx context.Context, session *models.Session) error {
	m.sessions = append(m.sessions, *session)
	return nil
}

func (m *mockSessionRepo) Update(ctx context.Context, session *models.Session) error {
	for i := range m.sessions {
		if m.sessions[i].ID == session.ID {
			m.sessions[i] = *session
		}
	}
	return nil
}

func (m *mockSessionRepo) Delete(ctx context.Context, id string) error { return nil }

func (m *mockSessionRepo) List(ctx context.Context) ([]models.Session, error) {
	return m.sessions, nil
}

func (m *mockSessionRepo) Latest(ctx context.Context) (*models.Session, error) {
	if len(m.sessions) == 0 {
		return nil, sql.ErrNoRows
	}
	return &m.sessions[len(m.sessions)-1], nil
}

func TestCreateSessionValidWindows(t *testing.T) {
	repo := &mockSessionRepo{}
	svc := NewSessionService(repo, nil, nil)

	session, err := svc.Create(context.Background(), SaveSessionRequest{
		Title:      "Spring 2026",
		RegStart:   "2026-04-01",
		RegEnd:     "2026-04-30",
		TrainStart: "2026-05-01",
		TrainEnd:   "2026-06-30",
	})
	require.NoError(t, err)
	assert.Equal(t, "Spring 2026", session.Title)
	require.Len(t, repo.sessions, 1)
}

func TestCreateSessionRejectsDisorderedWindows(t *testing.T) {
	svc := NewSessionService(&mockSessionRepo{}, nil, nil)

	cases := []SaveSessionRequest{
		// Registration end before start.
		{Title: "s", RegStart: "2026-04-30", RegEnd: "2026-04-01", TrainStart: "2026-05-01", TrainEnd: "2026-06-30"},
		// Training end before start.
		{Title: "s", RegStart: "2026-04-01", RegEnd: "2026-04-30", TrainStart: "2026-06-30", TrainEnd: "2026-05-01"},
		// Training begins before registration closes.
		{Title: "s", RegStart: "2026-04-01", RegEnd: "2026-05-15", TrainStart: "2026-05-01", TrainEnd: "2026-06-30"},
	}
	for _, req := range cases {
		_, err := svc.Create(context.Background(), req)
		require.Error(t, err)
	}
}

func TestCreateSessionRejectsBadDates(t *testing.T) {
	svc := NewSessionService(&mockSessionRepo{}, nil, nil)

	_, err := svc.Create(context.Background(), SaveSessionRequest{
		Title:      "s",
		RegStart:   "not-a-date",
		RegEnd:     "2026-04-30",
		TrainStart: "2026-05-01",
		TrainEnd:   "2026-06-30",
	})
	require.Error(t, err)
}
