// services/score_service.go
package services

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"arcade-economy-system/errs"
	"arcade-economy-system/models"
	"arcade-economy-system/utils"
)

// Metric bounds. Anything outside is clamped, not rejected.
const (
	maxScore     = 1_000_000
	maxAccuracy  = 100.0
	maxTimeTaken = 7200 // seconds
)

// Submissions arriving earlier than this after session start are treated as
// replayed or scripted.
const minPlaySeconds = 5

// ScoreMetrics is the raw payload a client submits.
type ScoreMetrics struct {
	Score          int64   `json:"score"`
	Accuracy       float64 `json:"accuracy"`
	TimeTaken      int     `json:"time_taken"`
	CorrectAnswers int     `json:"correct_answers"`
	TotalQuestions int     `json:"total_questions"`
}

// SubmitResult is the authoritative outcome of a submission. TokensEarned is
// what the ledger actually applied, not what the reward schedule computed.
type SubmitResult struct {
	ScoreID         string       `json:"score_id"`
	Metrics         ScoreMetrics `json:"metrics"`
	RankInSession   int          `json:"rank_in_session"`
	TokensEarned    int64        `json:"tokens_earned"`
	XPEarned        int64        `json:"xp_earned"`
	IsPersonalBest  bool         `json:"is_personal_best"`
	IsHighScore     bool         `json:"is_high_score"`
	DailyCapReached bool         `json:"daily_cap_reached"`
	Balance         int64        `json:"balance"`
	SessionState    string       `json:"session_state"`
}

// ScoreService runs the submission pipeline: clamp, gate, resolve bests,
// credit, record, rank. The steps after the first write are not wrapped in a
// transaction; each is individually safe and partial failures are logged for
// reconciliation.
type ScoreService struct {
	DB                *gorm.DB
	Ledger            *LedgerService
	Cache             *utils.StalenessSignal
	PersonalBestBonus int64
}

func NewScoreService(db *gorm.DB, ledger *LedgerService, cache *utils.StalenessSignal, pbBonus int64) *ScoreService {
	return &ScoreService{DB: db, Ledger: ledger, Cache: cache, PersonalBestBonus: pbBonus}
}

func clampMetrics(m ScoreMetrics) ScoreMetrics {
	if m.Score < 0 {
		m.Score = 0
	}
	if m.Score > maxScore {
		m.Score = maxScore
	}
	if m.Accuracy < 0 {
		m.Accuracy = 0
	}
	if m.Accuracy > maxAccuracy {
		m.Accuracy = maxAccuracy
	}
	if m.TimeTaken < 0 {
		m.TimeTaken = 0
	}
	if m.TimeTaken > maxTimeTaken {
		m.TimeTaken = maxTimeTaken
	}
	if m.TotalQuestions < 0 {
		m.TotalQuestions = 0
	}
	if m.CorrectAnswers < 0 {
		m.CorrectAnswers = 0
	}
	if m.CorrectAnswers > m.TotalQuestions {
		m.CorrectAnswers = m.TotalQuestions
	}
	return m
}

// computeReward applies the reward schedule: perfect accuracy substitutes
// the perfect reward for the base (not additive), a personal best adds the
// fixed bonus. XP is flat.
func (s *ScoreService) computeReward(cfg models.RewardConfig, m ScoreMetrics, personalBest bool) (tokens, xp int64) {
	tokens = cfg.BaseTokens
	if m.Accuracy >= maxAccuracy {
		tokens = cfg.PerfectTokens
	}
	if personalBest {
		tokens += s.PersonalBestBonus
	}
	return tokens, cfg.XP
}

// SubmitScore completes a (session, user) score exactly once.
func (s *ScoreService) SubmitScore(tenantID, userID, sessionID string, raw ScoreMetrics) (*SubmitResult, error) {
	metrics := clampMetrics(raw)

	var session models.GameSession
	if err := s.DB.Where("id = ? AND tenant_id = ?", sessionID, tenantID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.CodeNotFound, "session not found")
		}
		return nil, errs.Wrap(errs.CodeInternal, err, "DB error loading session")
	}
	if session.State != models.SessionStateInProgress {
		return nil, errs.Newf(errs.CodeStateConflict, "session is %s, submissions require in_progress", session.State)
	}

	// Idempotency: a completed record never changes again.
	var existing models.ScoreRecord
	err := s.DB.Where("session_id = ? AND user_id = ?", sessionID, userID).First(&existing).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.Wrap(errs.CodeInternal, err, "DB error checking prior submission")
	}
	if err == nil && existing.Completed() {
		return nil, errs.New(errs.CodeStateConflict, "score already submitted for this session")
	}

	// Anti-cheat gate on wall-clock elapsed since start.
	if session.StartedAt != nil {
		if elapsed := time.Since(*session.StartedAt); elapsed < minPlaySeconds*time.Second {
			return nil, errs.Newf(errs.CodeValidation, "submission too fast (%.1fs since start)", elapsed.Seconds())
		}
	}

	var game models.GameDefinition
	if err := s.DB.First(&game, "id = ?", session.GameID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.CodeNotFound, "game definition missing for session")
		}
		return nil, errs.Wrap(errs.CodeInternal, err, "DB error loading game")
	}

	personalBest, err := s.isPersonalBest(userID, game.ID, metrics.Score)
	if err != nil {
		return nil, err
	}
	highScore, err := s.isHighScore(tenantID, game.ID, metrics.Score)
	if err != nil {
		return nil, err
	}

	nominalTokens, xpReward := s.computeReward(game.RewardConfig(), metrics, personalBest)

	// The ledger's clamp is authoritative for the reported reward.
	credit, err := s.Ledger.CreditTokens(tenantID, userID, nominalTokens, models.TxTypeGameReward, sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Ledger.AddXP(tenantID, userID, xpReward); err != nil {
		log.Printf("⚠️  [SCORE] xp award failed after token credit: user=%s session=%s xp=%d err=%v",
			userID, sessionID, xpReward, err)
	}

	now := time.Now()
	record := models.ScoreRecord{
		ID:             uuid.NewString(),
		TenantID:       tenantID,
		SessionID:      sessionID,
		UserID:         userID,
		GameID:         game.ID,
		Score:          metrics.Score,
		Accuracy:       metrics.Accuracy,
		TimeTaken:      metrics.TimeTaken,
		CorrectAnswers: metrics.CorrectAnswers,
		TotalQuestions: metrics.TotalQuestions,
		IsPersonalBest: personalBest,
		IsHighScore:    highScore,
		TokensEarned:   credit.Applied,
		XPEarned:       xpReward,
		CompletedAt:    &now,
	}

	// One conditional insert-or-update against the unique (session, user)
	// key — join placeholders are completed in place, first submissions
	// insert. Existence was only checked above to reject completed rows.
	if err := s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"score", "accuracy", "time_taken", "correct_answers", "total_questions",
			"is_personal_best", "is_high_score", "tokens_earned", "xp_earned",
			"completed_at", "updated_at",
		}),
	}).Create(&record).Error; err != nil {
		log.Printf("❌ [SCORE] record upsert failed after credit: user=%s session=%s credited=%d err=%v",
			userID, sessionID, credit.Applied, err)
		return nil, errs.Wrap(errs.CodeInternal, err, "failed to record score")
	}

	if session.Mode == models.SessionModeSolo {
		session.State = models.SessionStateFinished
		session.EndedAt = &now
		if err := s.DB.Save(&session).Error; err != nil {
			log.Printf("⚠️  [SCORE] failed to finish solo session %s: %v", sessionID, err)
		}
	}

	rank, err := s.rankInSession(sessionID, userID)
	if err != nil {
		return nil, err
	}

	s.Cache.Invalidate(context.Background(),
		utils.TokensKey(tenantID, userID),
		utils.LeaderboardKey(tenantID, "weekly"),
		utils.LeaderboardKey(tenantID, "monthly"),
		utils.LeaderboardKey(tenantID, "all_time"),
	)

	storedID := record.ID
	var stored models.ScoreRecord
	if err := s.DB.Where("session_id = ? AND user_id = ?", sessionID, userID).First(&stored).Error; err == nil {
		storedID = stored.ID
	}

	return &SubmitResult{
		ScoreID:         storedID,
		Metrics:         metrics,
		RankInSession:   rank,
		TokensEarned:    credit.Applied,
		XPEarned:        xpReward,
		IsPersonalBest:  personalBest,
		IsHighScore:     highScore,
		DailyCapReached: credit.CapReached,
		Balance:         credit.Balance,
		SessionState:    session.State,
	}, nil
}

// isPersonalBest reports whether score beats the user's best completed score
// for the game. No prior score counts as a best.
func (s *ScoreService) isPersonalBest(userID, gameID string, score int64) (bool, error) {
	var best sql.NullInt64
	row := s.DB.Model(&models.ScoreRecord{}).
		Select("MAX(score)").
		Where("user_id = ? AND game_id = ? AND completed_at IS NOT NULL", userID, gameID).
		Row()
	if err := row.Scan(&best); err != nil {
		return false, errs.Wrap(errs.CodeInternal, err, "DB error resolving personal best")
	}
	return !best.Valid || score > best.Int64, nil
}

// isHighScore is the same check scoped to all users of the tenant.
func (s *ScoreService) isHighScore(tenantID, gameID string, score int64) (bool, error) {
	var best sql.NullInt64
	row := s.DB.Model(&models.ScoreRecord{}).
		Select("MAX(score)").
		Where("tenant_id = ? AND game_id = ? AND completed_at IS NOT NULL", tenantID, gameID).
		Row()
	if err := row.Scan(&best); err != nil {
		return false, errs.Wrap(errs.CodeInternal, err, "DB error resolving high score")
	}
	return !best.Valid || score > best.Int64, nil
}

// rankInSession is the 1-based position of the user's row with all session
// rows ordered by score descending, ties kept in stored order.
func (s *ScoreService) rankInSession(sessionID, userID string) (int, error) {
	var records []models.ScoreRecord
	if err := s.DB.Where("session_id = ?", sessionID).
		Order("score DESC, created_at ASC").
		Find(&records).Error; err != nil {
		return 0, errs.Wrap(errs.CodeInternal, err, "DB error ranking session")
	}
	for i, r := range records {
		if r.UserID == userID {
			return i + 1, nil
		}
	}
	return 0, errs.New(errs.CodeInternal, "submitted score missing from session ranking")
}

// HighScoreEntry is one row of a game's tenant-wide top list.
type HighScoreEntry struct {
	UserID      string  `json:"user_id"`
	DisplayName string  `json:"display_name,omitempty"`
	Score       int64   `json:"score"`
	Accuracy    float64 `json:"accuracy"`
}

// GetHighScores returns the top completed scores for a game, one row per
// user (each user's best), with display names resolved from the profile
// mirror.
func (s *ScoreService) GetHighScores(tenantID, gameID string, limit int) ([]HighScoreEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	var game models.GameDefinition
	if err := s.DB.Where("id = ? AND tenant_id = ?", gameID, tenantID).First(&game).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.CodeNotFound, "game not found")
		}
		return nil, errs.Wrap(errs.CodeInternal, err, "DB error loading game")
	}

	var entries []HighScoreEntry
	if err := s.DB.Raw(`
		SELECT sr.user_id, MAX(sr.score) AS score, MAX(sr.accuracy) AS accuracy
		FROM score_records sr
		WHERE sr.tenant_id = ? AND sr.game_id = ? AND sr.completed_at IS NOT NULL
		GROUP BY sr.user_id
		ORDER BY score DESC
		LIMIT ?
	`, tenantID, gameID, limit).Scan(&entries).Error; err != nil {
		return nil, errs.Wrap(errs.CodeInternal, err, "DB error fetching high scores")
	}

	attachDisplayNames(s.DB, entries, func(e *HighScoreEntry) string { return e.UserID },
		func(e *HighScoreEntry, name string) { e.DisplayName = name })
	return entries, nil
}

// PersonalBest is a user's best completed score for one game.
type PersonalBest struct {
	GameID   string `json:"game_id"`
	GameName string `json:"game_name"`
	Score    int64  `json:"score"`
	Plays    int64  `json:"plays"`
}

// GetPersonalBests returns the user's best score per game.
func (s *ScoreService) GetPersonalBests(tenantID, userID string) ([]PersonalBest, error) {
	var bests []PersonalBest
	if err := s.DB.Raw(`
		SELECT sr.game_id, g.name AS game_name, MAX(sr.score) AS score, COUNT(*) AS plays
		FROM score_records sr
		INNER JOIN game_definitions g ON g.id = sr.game_id
		WHERE sr.tenant_id = ? AND sr.user_id = ? AND sr.completed_at IS NOT NULL
		GROUP BY sr.game_id, g.name
		ORDER BY score DESC
	`, tenantID, userID).Scan(&bests).Error; err != nil {
		return nil, errs.Wrap(errs.CodeInternal, err, "DB error fetching personal bests")
	}
	return bests, nil
}

// attachDisplayNames resolves profile mirror names for an already-truncated
// result set.
func attachDisplayNames[T any](db *gorm.DB, rows []T, key func(*T) string, set func(*T, string)) {
	if len(rows) == 0 {
		return
	}
	ids := make([]string, 0, len(rows))
	for i := range rows {
		ids = append(ids, key(&rows[i]))
	}
	var profiles []models.ProfileMirror
	if err := db.Where("external_user_id IN ?", ids).Find(&profiles).Error; err != nil {
		log.Printf("⚠️  failed to resolve display names: %v", err)
		return
	}
	names := make(map[string]string, len(profiles))
	for _, p := range profiles {
		names[p.ExternalUserID] = p.DisplayName
	}
	for i := range rows {
		if name, ok := names[key(&rows[i])]; ok {
			set(&rows[i], name)
		}
	}
}
