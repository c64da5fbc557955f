package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"arcade-economy-system/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:economy_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.GameDefinition{},
		&models.GameSession{},
		&models.ScoreRecord{},
		&models.TokenAccount{},
		&models.TokenTransaction{},
		&models.StoreItem{},
		&models.InventoryEntry{},
		&models.ProfileMirror{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

const testTenant = "tenant-1"

func seedGame(t *testing.T, db *gorm.DB, mutate func(*models.GameDefinition)) *models.GameDefinition {
	t.Helper()
	game := &models.GameDefinition{
		ID:                 uuid.NewString(),
		TenantID:           testTenant,
		Code:               "math-blaster-" + uuid.NewString()[:8],
		Name:               "Math Blaster",
		MaxPlayers:         4,
		DurationSeconds:    120,
		BaseTokenReward:    10,
		PerfectTokenReward: 25,
		WinTokenReward:     15,
		XPReward:           20,
		IsActive:           true,
	}
	if mutate != nil {
		mutate(game)
	}
	if err := db.Create(game).Error; err != nil {
		t.Fatalf("seed game: %v", err)
	}
	return game
}

func seedAccount(t *testing.T, db *gorm.DB, userID string, balance int64, level int) *models.TokenAccount {
	t.Helper()
	acct := &models.TokenAccount{
		ID:             uuid.NewString(),
		TenantID:       testTenant,
		UserID:         userID,
		Balance:        balance,
		LifetimeEarned: balance,
		Level:          level,
	}
	if err := db.Create(acct).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return acct
}

func seedCredit(t *testing.T, db *gorm.DB, acct *models.TokenAccount, amount int64, at time.Time) {
	t.Helper()
	tx := &models.TokenTransaction{
		ID:           uuid.NewString(),
		TenantID:     acct.TenantID,
		AccountID:    acct.ID,
		UserID:       acct.UserID,
		Amount:       amount,
		BalanceAfter: acct.Balance,
		Type:         models.TxTypeGameReward,
		SourceRef:    "seed",
		CreatedAt:    at,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("seed transaction: %v", err)
	}
}

// startedSession creates an in-progress solo session whose clock started far
// enough in the past to clear the minimum-play gate.
func startedSession(t *testing.T, db *gorm.DB, game *models.GameDefinition, userID string) *models.GameSession {
	t.Helper()
	started := time.Now().Add(-30 * time.Second)
	session := &models.GameSession{
		ID:         uuid.NewString(),
		TenantID:   testTenant,
		GameID:     game.ID,
		HostUserID: userID,
		Mode:       models.SessionModeSolo,
		Difficulty: models.DifficultyNormal,
		State:      models.SessionStateInProgress,
		Round:      1,
		StartedAt:  &started,
	}
	if err := db.Create(session).Error; err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return session
}
