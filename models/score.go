// models/score.go
package models

import "time"

// ScoreRecord is the single row per (session, user). The composite unique
// index is the idempotency key for both join placeholders and submissions:
// a row is created with zero metrics on join, completed exactly once on
// submit (completed_at set), and never updated again.
type ScoreRecord struct {
	ID        string `json:"id" gorm:"primaryKey;type:uuid"`
	TenantID  string `json:"tenant_id" gorm:"index;not null"`
	SessionID string `json:"session_id" gorm:"not null;uniqueIndex:idx_score_session_user,priority:1"`
	UserID    string `json:"user_id" gorm:"not null;uniqueIndex:idx_score_session_user,priority:2;index"`
	GameID    string `json:"game_id" gorm:"index;not null"` // denormalized for best-score lookups

	// Raw metrics (clamped on submission)
	Score          int64   `json:"score" gorm:"default:0"`
	Accuracy       float64 `json:"accuracy" gorm:"default:0"`
	TimeTaken      int     `json:"time_taken" gorm:"default:0"` // seconds
	CorrectAnswers int     `json:"correct_answers" gorm:"default:0"`
	TotalQuestions int     `json:"total_questions" gorm:"default:0"`

	// Computed on completion
	IsPersonalBest bool  `json:"is_personal_best" gorm:"default:false"`
	IsHighScore    bool  `json:"is_high_score" gorm:"default:false"`
	TokensEarned   int64 `json:"tokens_earned" gorm:"default:0"`
	XPEarned       int64 `json:"xp_earned" gorm:"default:0"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *ScoreRecord) Completed() bool {
	return r.CompletedAt != nil
}
