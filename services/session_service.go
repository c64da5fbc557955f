// services/session_service.go
package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"arcade-economy-system/errs"
	"arcade-economy-system/models"
)

// SessionService owns the session state machine:
// waiting → in_progress → finished. Solo sessions skip "waiting".
type SessionService struct {
	DB *gorm.DB
}

func NewSessionService(db *gorm.DB) *SessionService {
	return &SessionService{DB: db}
}

// CreateSession starts a new play-through of an active game. Solo sessions
// enter in_progress immediately with the clock running.
func (s *SessionService) CreateSession(tenantID, userID, gameID, mode, difficulty string) (*models.GameSession, error) {
	var game models.GameDefinition
	if err := s.DB.Where("id = ? AND tenant_id = ? AND is_active = ?", gameID, tenantID, true).
		First(&game).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.CodeNotFound, "game not found or inactive")
		}
		return nil, errs.Wrap(errs.CodeInternal, err, "DB error loading game")
	}

	if mode == "" {
		mode = models.SessionModeSolo
	}
	if mode != models.SessionModeSolo && mode != models.SessionModeMultiplayer {
		return nil, errs.Newf(errs.CodeValidation, "unknown session mode %q", mode)
	}
	if difficulty == "" {
		difficulty = models.DifficultyNormal
	}

	session := models.GameSession{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		GameID:     game.ID,
		HostUserID: userID,
		Mode:       mode,
		Difficulty: difficulty,
		State:      models.SessionStateWaiting,
	}
	if mode == models.SessionModeSolo {
		now := time.Now()
		session.State = models.SessionStateInProgress
		session.StartedAt = &now
		session.Round = 1
	}

	if err := s.DB.Create(&session).Error; err != nil {
		return nil, errs.Wrap(errs.CodeInternal, err, "failed to create session")
	}

	// The host participates too: a zero-score placeholder marks the seat.
	placeholder := models.ScoreRecord{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		SessionID: session.ID,
		UserID:    userID,
		GameID:    game.ID,
	}
	if err := s.DB.Create(&placeholder).Error; err != nil {
		return nil, errs.Wrap(errs.CodeInternal, err, "failed to create host score placeholder")
	}

	session.Game = &game
	return &session, nil
}

// JoinSession adds a user to a waiting multiplayer session. Joining twice is
// a no-op: the existing placeholder marks the seat.
func (s *SessionService) JoinSession(tenantID, sessionID, userID string) (*models.GameSession, error) {
	session, err := s.getSession(tenantID, sessionID)
	if err != nil {
		return nil, err
	}

	if session.State != models.SessionStateWaiting {
		return nil, errs.Newf(errs.CodeStateConflict, "session is %s, joining requires waiting", session.State)
	}

	var existing models.ScoreRecord
	err = s.DB.Where("session_id = ? AND user_id = ?", sessionID, userID).First(&existing).Error
	if err == nil {
		return session, nil // already joined
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.Wrap(errs.CodeInternal, err, "DB error checking participation")
	}

	var game models.GameDefinition
	if err := s.DB.First(&game, "id = ?", session.GameID).Error; err != nil {
		return nil, errs.Wrap(errs.CodeInternal, err, "DB error loading game for capacity check")
	}

	var participants int64
	if err := s.DB.Model(&models.ScoreRecord{}).
		Where("session_id = ?", sessionID).
		Count(&participants).Error; err != nil {
		return nil, errs.Wrap(errs.CodeInternal, err, "DB error counting participants")
	}
	if game.MaxPlayers > 0 && int(participants) >= game.MaxPlayers {
		return nil, errs.Newf(errs.CodeCapacity, "session is full (%d/%d players)", participants, game.MaxPlayers)
	}

	placeholder := models.ScoreRecord{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		SessionID: sessionID,
		UserID:    userID,
		GameID:    session.GameID,
	}
	if err := s.DB.Create(&placeholder).Error; err != nil {
		return nil, errs.Wrap(errs.CodeInternal, err, "failed to create score placeholder")
	}

	return session, nil
}

// StartSession moves a waiting session to in_progress. Only the host may
// start it.
func (s *SessionService) StartSession(tenantID, sessionID, userID string) (*models.GameSession, error) {
	session, err := s.getSession(tenantID, sessionID)
	if err != nil {
		return nil, err
	}

	if session.State != models.SessionStateWaiting {
		return nil, errs.Newf(errs.CodeStateConflict, "session is %s, starting requires waiting", session.State)
	}
	if session.HostUserID != userID {
		return nil, errs.New(errs.CodeStateConflict, "only the host can start the session")
	}

	now := time.Now()
	session.State = models.SessionStateInProgress
	session.StartedAt = &now
	session.Round = 1
	if err := s.DB.Save(session).Error; err != nil {
		return nil, errs.Wrap(errs.CodeInternal, err, "failed to start session")
	}

	return session, nil
}

func (s *SessionService) getSession(tenantID, sessionID string) (*models.GameSession, error) {
	var session models.GameSession
	if err := s.DB.Where("id = ? AND tenant_id = ?", sessionID, tenantID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.CodeNotFound, "session not found")
		}
		return nil, errs.Wrap(errs.CodeInternal, err, "DB error loading session")
	}
	return &session, nil
}
