package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/atms-platform/atms-api/internal/models"
	appErrors "github.com/atms-platform/atms-api/pkg/errors"
)

type sessionRepo interface {
	Create(ctx context.Context, session *models.Session) error
	Update(ctx context.Context, session *models.Session) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.Session, error)
	Latest(ctx context.Context) (*models.Session, error)
}

// SaveSessionRequest carries session window dates as yyyy-mm-dd strings.
type SaveSessionRequest struct {
	Title      string `json:"title" validate:"required"`
	RegStart   string `json:"reg_start" validate:"required"`
	RegEnd     string `json:"reg_end" validate:"required"`
	TrainStart string `json:"train_start" validate:"required"`
	TrainEnd   string `json:"train_end" validate:"required"`
}

// SessionService manages academic-term sessions. Registration must close
// before training begins; both windows must be ordered.
type SessionService struct {
	sessions  sessionRepo
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSessionService constructs SessionService.
func NewSessionService(sessions sessionRepo, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{sessions: sessions, validator: validate, logger: logger}
}

// Create validates and stores a new session.
func (s *SessionService) Create(ctx context.Context, req SaveSessionRequest) (*models.Session, error) {
	session, err := s.buildSession(req)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}
	return session, nil
}

// Update replaces the windows of an existing session.
func (s *SessionService) Update(ctx context.Context, id string, req SaveSessionRequest) (*models.Session, error) {
	session, err := s.buildSession(req)
	if err != nil {
		return nil, err
	}
	session.ID = id
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session")
	}
	return session, nil
}

// Delete removes a session.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	if err := s.sessions.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete session")
	}
	return nil
}

// List returns all sessions, newest first.
func (s *SessionService) List(ctx context.Context) ([]models.Session, error) {
	sessions, err := s.sessions.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return sessions, nil
}

// Current returns the most recently created session.
func (s *SessionService) Current(ctx context.Context) (*models.Session, error) {
	session, err := s.sessions.Latest(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no session configured")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

func (s *SessionService) buildSession(req SaveSessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	dates := make([]time.Time, 4)
	for i, raw := range []string{req.RegStart, req.RegEnd, req.TrainStart, req.TrainEnd} {
		parsed, err := time.ParseInLocation(dateLayout, raw, time.UTC)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid session date")
		}
		dates[i] = parsed
	}
	regStart, regEnd, trainStart, trainEnd := dates[0], dates[1], dates[2], dates[3]
	if regEnd.Before(regStart) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "registration end before start")
	}
	if trainEnd.Before(trainStart) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "training end before start")
	}
	if trainStart.Before(regEnd) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "training starts before registration closes")
	}
	return &models.Session{
		Title:      req.Title,
		RegStart:   regStart,
		RegEnd:     regEnd,
		TrainStart: trainStart,
		TrainEnd:   trainEnd,
	}, nil
}
