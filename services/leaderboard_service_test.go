package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arcade-economy-system/errs"
	"arcade-economy-system/models"
)

func TestLeaderboardAllTimeOrdersByLifetimeEarned(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewLeaderboardService(db)
	seedAccount(t, db, "user-a", 300, 2)
	seedAccount(t, db, "user-b", 900, 4)
	seedAccount(t, db, "user-c", 600, 3)

	rows, err := svc.GetTokenLeaderboard(testTenant, PeriodAllTime, 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"user-b", "user-c", "user-a"}, []string{rows[0].UserID, rows[1].UserID, rows[2].UserID})
	assert.Equal(t, int64(900), rows[0].Tokens)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, 3, rows[2].Rank)
	assert.Equal(t, 4, rows[0].Level)
}

func TestLeaderboardDefaultPeriodAndLimit(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewLeaderboardService(db)
	seedAccount(t, db, "user-a", 100, 1)
	seedAccount(t, db, "user-b", 200, 1)

	rows, err := svc.GetTokenLeaderboard(testTenant, "", 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "user-b", rows[0].UserID)
}

func TestLeaderboardWeeklyWindowExcludesOldEarnings(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewLeaderboardService(db)
	a := seedAccount(t, db, "user-a", 0, 1)
	b := seedAccount(t, db, "user-b", 0, 1)

	now := time.Now().UTC()
	seedCredit(t, db, a, 50, now.Add(-2*time.Hour))
	seedCredit(t, db, a, 30, now.Add(-3*24*time.Hour))
	seedCredit(t, db, a, 500, now.Add(-10*24*time.Hour)) // outside the window
	seedCredit(t, db, b, 120, now.Add(-24*time.Hour))

	rows, err := svc.GetTokenLeaderboard(testTenant, PeriodWeekly, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "user-b", rows[0].UserID)
	assert.Equal(t, int64(120), rows[0].Tokens)
	assert.Equal(t, "user-a", rows[1].UserID)
	assert.Equal(t, int64(80), rows[1].Tokens)
}

func TestLeaderboardMonthlyIncludesWeekOldEarnings(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewLeaderboardService(db)
	a := seedAccount(t, db, "user-a", 0, 1)

	now := time.Now().UTC()
	seedCredit(t, db, a, 500, now.Add(-10*24*time.Hour))
	seedCredit(t, db, a, 50, now.Add(-40*24*time.Hour)) // outside the window

	rows, err := svc.GetTokenLeaderboard(testTenant, PeriodMonthly, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(500), rows[0].Tokens)
}

func TestLeaderboardWindowIgnoresSpending(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewLeaderboardService(db)
	a := seedAccount(t, db, "user-a", 0, 1)

	now := time.Now().UTC()
	seedCredit(t, db, a, 100, now.Add(-time.Hour))
	require.NoError(t, db.Create(&models.TokenTransaction{
		ID:           uuid.NewString(),
		TenantID:     testTenant,
		UserID:       "user-a",
		AccountID:    a.ID,
		Amount:       -60,
		BalanceAfter: 40,
		Type:         models.TxTypePurchase,
		CreatedAt:    now.Add(-30 * time.Minute),
	}).Error)

	rows, err := svc.GetTokenLeaderboard(testTenant, PeriodWeekly, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(100), rows[0].Tokens)
}

func TestLeaderboardUnknownPeriod(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewLeaderboardService(db)

	_, err := svc.GetTokenLeaderboard(testTenant, "fortnightly", 10)
	require.Error(t, err)
	assert.Equal(t, errs.CodeValidation, errs.CodeOf(err))
}

func TestLeaderboardResolvesDisplayNames(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewLeaderboardService(db)
	seedAccount(t, db, "user-a", 100, 1)
	require.NoError(t, db.Create(&models.ProfileMirror{
		ID:             uuid.NewString(),
		ExternalUserID: "user-a",
		DisplayName:    "Ada",
		AvatarURL:      "https://cdn.example.com/ada.png",
		IsActive:       true,
	}).Error)

	rows, err := svc.GetTokenLeaderboard(testTenant, PeriodAllTime, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ada", rows[0].DisplayName)
	assert.Equal(t, "https://cdn.example.com/ada.png", rows[0].AvatarURL)
}
