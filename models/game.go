// models/game.go
package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	SessionModeSolo        = "solo"
	SessionModeMultiplayer = "multiplayer"
)

const (
	SessionStateWaiting    = "waiting"
	SessionStateInProgress = "in_progress"
	SessionStateFinished   = "finished" // terminal
)

const (
	DifficultyEasy   = "easy"
	DifficultyNormal = "normal"
	DifficultyHard   = "hard"
)

// GameDefinition is the catalog entry for a mini-game. It is read-only during
// play; the reward columns are the authoritative reward schedule.
type GameDefinition struct {
	ID          string `json:"id" gorm:"primaryKey;type:uuid"`
	TenantID    string `json:"tenant_id" gorm:"index;not null"`
	Code        string `json:"code" gorm:"uniqueIndex;not null"` // slugified name
	Name        string `json:"name" gorm:"not null"`
	Description string `json:"description"`
	Subject     string `json:"subject"` // e.g., "math", "spelling"

	MaxPlayers      int `json:"max_players" gorm:"default:1"`
	DurationSeconds int `json:"duration_seconds" gorm:"default:120"`

	// 🎁 Reward schedule
	BaseTokenReward    int64 `json:"base_token_reward" gorm:"default:10"`
	PerfectTokenReward int64 `json:"perfect_token_reward" gorm:"default:25"`
	WinTokenReward     int64 `json:"win_token_reward" gorm:"default:15"`
	XPReward           int64 `json:"xp_reward" gorm:"default:20"`

	IsActive bool `json:"is_active" gorm:"default:true"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// RewardConfig is the typed reward schedule handed to the score pipeline.
type RewardConfig struct {
	BaseTokens    int64 `json:"base_tokens"`
	PerfectTokens int64 `json:"perfect_tokens"`
	WinTokens     int64 `json:"win_tokens"`
	XP            int64 `json:"xp"`
}

func (g *GameDefinition) RewardConfig() RewardConfig {
	return RewardConfig{
		BaseTokens:    g.BaseTokenReward,
		PerfectTokens: g.PerfectTokenReward,
		WinTokens:     g.WinTokenReward,
		XP:            g.XPReward,
	}
}

// GameSession is one play-through of a mini-game. Sessions are never deleted;
// they end in the terminal "finished" state.
type GameSession struct {
	ID         string `json:"id" gorm:"primaryKey;type:uuid"`
	TenantID   string `json:"tenant_id" gorm:"index;not null"`
	GameID     string `json:"game_id" gorm:"index;not null"`
	HostUserID string `json:"host_user_id" gorm:"index;not null"`

	Mode       string `json:"mode" gorm:"type:varchar(16);default:'solo'"`
	Difficulty string `json:"difficulty" gorm:"type:varchar(16);default:'normal'"`
	State      string `json:"state" gorm:"type:varchar(16);default:'waiting';index"`
	Round      int    `json:"round" gorm:"default:0"`

	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Game *GameDefinition `json:"game,omitempty" gorm:"foreignKey:GameID"`
}
