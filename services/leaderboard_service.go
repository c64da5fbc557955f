// services/leaderboard_service.go
package services

import (
	"time"

	"gorm.io/gorm"

	"arcade-economy-system/errs"
	"arcade-economy-system/models"
)

const (
	PeriodAllTime = "all_time"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
)

// LeaderboardService is a read-only aggregation over the ledger. all_time
// reads the precomputed lifetime counters; the rolling windows scan the
// transaction log and sum per account before truncating.
type LeaderboardService struct {
	DB *gorm.DB
}

func NewLeaderboardService(db *gorm.DB) *LeaderboardService {
	return &LeaderboardService{DB: db}
}

type LeaderboardRow struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Tokens      int64  `json:"tokens"`
	Level       int    `json:"level,omitempty"`
}

// GetTokenLeaderboard returns the top earners for the period. Display
// metadata is resolved only for the truncated set.
func (s *LeaderboardService) GetTokenLeaderboard(tenantID, period string, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var rows []LeaderboardRow
	switch period {
	case PeriodAllTime, "":
		var accounts []models.TokenAccount
		if err := s.DB.Where("tenant_id = ?", tenantID).
			Order("lifetime_earned DESC").
			Limit(limit).
			Find(&accounts).Error; err != nil {
			return nil, errs.Wrap(errs.CodeInternal, err, "DB error fetching accounts")
		}
		for _, a := range accounts {
			rows = append(rows, LeaderboardRow{UserID: a.UserID, Tokens: a.LifetimeEarned, Level: a.Level})
		}

	case PeriodWeekly, PeriodMonthly:
		since := time.Now().UTC().AddDate(0, 0, -7)
		if period == PeriodMonthly {
			since = time.Now().UTC().AddDate(0, -1, 0)
		}
		if err := s.DB.Raw(`
			SELECT user_id, SUM(amount) AS tokens
			FROM token_transactions
			WHERE tenant_id = ? AND amount > 0 AND created_at >= ?
			GROUP BY user_id
			ORDER BY tokens DESC
			LIMIT ?
		`, tenantID, since, limit).Scan(&rows).Error; err != nil {
			return nil, errs.Wrap(errs.CodeInternal, err, "DB error aggregating window")
		}

	default:
		return nil, errs.Newf(errs.CodeValidation, "unknown leaderboard period %q", period)
	}

	s.resolveProfiles(rows)
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows, nil
}

func (s *LeaderboardService) resolveProfiles(rows []LeaderboardRow) {
	if len(rows) == 0 {
		return
	}
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.UserID
	}
	var profiles []models.ProfileMirror
	if err := s.DB.Where("external_user_id IN ?", ids).Find(&profiles).Error; err != nil {
		return // display metadata is optional
	}
	byID := make(map[string]models.ProfileMirror, len(profiles))
	for _, p := range profiles {
		byID[p.ExternalUserID] = p
	}
	for i := range rows {
		if p, ok := byID[rows[i].UserID]; ok {
			rows[i].DisplayName = p.DisplayName
			rows[i].AvatarURL = p.AvatarURL
		}
	}
}
