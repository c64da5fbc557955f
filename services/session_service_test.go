package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arcade-economy-system/errs"
	"arcade-economy-system/models"
)

func TestCreateSessionSoloStartsImmediately(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewSessionService(db)
	game := seedGame(t, db, nil)

	session, err := svc.CreateSession(testTenant, "host-1", game.ID, models.SessionModeSolo, "")
	require.NoError(t, err)
	assert.Equal(t, models.SessionStateInProgress, session.State)
	assert.NotNil(t, session.StartedAt)
	assert.Equal(t, 1, session.Round)
	assert.Equal(t, models.DifficultyNormal, session.Difficulty)
}

func TestCreateSessionMultiplayerWaits(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewSessionService(db)
	game := seedGame(t, db, nil)

	session, err := svc.CreateSession(testTenant, "host-1", game.ID, models.SessionModeMultiplayer, models.DifficultyHard)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStateWaiting, session.State)
	assert.Nil(t, session.StartedAt)
}

func TestCreateSessionUnknownGame(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewSessionService(db)

	_, err := svc.CreateSession(testTenant, "host-1", "00000000-0000-0000-0000-000000000000", "", "")
	require.Error(t, err)
	assert.Equal(t, errs.CodeNotFound, errs.CodeOf(err))
}

func TestCreateSessionInactiveGame(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewSessionService(db)
	game := seedGame(t, db, func(g *models.GameDefinition) { g.IsActive = false })

	_, err := svc.CreateSession(testTenant, "host-1", game.ID, "", "")
	require.Error(t, err)
	assert.Equal(t, errs.CodeNotFound, errs.CodeOf(err))
}

func TestJoinSessionIsIdempotent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewSessionService(db)
	game := seedGame(t, db, nil)

	session, err := svc.CreateSession(testTenant, "host-1", game.ID, models.SessionModeMultiplayer, "")
	require.NoError(t, err)

	_, err = svc.JoinSession(testTenant, session.ID, "user-2")
	require.NoError(t, err)
	_, err = svc.JoinSession(testTenant, session.ID, "user-2")
	require.NoError(t, err)

	var placeholders int64
	db.Model(&models.ScoreRecord{}).
		Where("session_id = ? AND user_id = ?", session.ID, "user-2").
		Count(&placeholders)
	assert.Equal(t, int64(1), placeholders)
}

func TestJoinSessionEnforcesCapacity(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewSessionService(db)
	game := seedGame(t, db, func(g *models.GameDefinition) { g.MaxPlayers = 2 })

	session, err := svc.CreateSession(testTenant, "host-1", game.ID, models.SessionModeMultiplayer, "")
	require.NoError(t, err)

	_, err = svc.JoinSession(testTenant, session.ID, "user-2")
	require.NoError(t, err)

	// Host seat plus user-2 fills the session.
	_, err = svc.JoinSession(testTenant, session.ID, "user-3")
	require.Error(t, err)
	assert.Equal(t, errs.CodeCapacity, errs.CodeOf(err))
}

func TestJoinSessionRequiresWaitingState(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewSessionService(db)
	game := seedGame(t, db, nil)

	session, err := svc.CreateSession(testTenant, "host-1", game.ID, models.SessionModeSolo, "")
	require.NoError(t, err)

	_, err = svc.JoinSession(testTenant, session.ID, "user-2")
	require.Error(t, err)
	assert.Equal(t, errs.CodeStateConflict, errs.CodeOf(err))
}

func TestStartSessionOnlyHost(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewSessionService(db)
	game := seedGame(t, db, nil)

	session, err := svc.CreateSession(testTenant, "host-1", game.ID, models.SessionModeMultiplayer, "")
	require.NoError(t, err)

	_, err = svc.StartSession(testTenant, session.ID, "user-2")
	require.Error(t, err)
	assert.Equal(t, errs.CodeStateConflict, errs.CodeOf(err))

	// State must be untouched by the rejected start.
	var stored models.GameSession
	require.NoError(t, db.First(&stored, "id = ?", session.ID).Error)
	assert.Equal(t, models.SessionStateWaiting, stored.State)

	started, err := svc.StartSession(testTenant, session.ID, "host-1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionStateInProgress, started.State)
	assert.NotNil(t, started.StartedAt)
	assert.Equal(t, 1, started.Round)
}

func TestStartSessionTwiceConflicts(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewSessionService(db)
	game := seedGame(t, db, nil)

	session, err := svc.CreateSession(testTenant, "host-1", game.ID, models.SessionModeMultiplayer, "")
	require.NoError(t, err)

	_, err = svc.StartSession(testTenant, session.ID, "host-1")
	require.NoError(t, err)
	_, err = svc.StartSession(testTenant, session.ID, "host-1")
	require.Error(t, err)
	assert.Equal(t, errs.CodeStateConflict, errs.CodeOf(err))
}
