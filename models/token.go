// models/token.go
package models

import "time"

// Transaction types recorded on the ledger.
const (
	TxTypeGameReward = "game_reward"
	TxTypeAdminAward = "admin_award"
	TxTypePurchase   = "purchase"
)

// TokenAccount holds the current balance for one (tenant, user) pair.
// Balance is mutated only through the ledger's conditional writes and is
// never negative. XP and level live here too so the store can level-gate
// without a second lookup.
type TokenAccount struct {
	ID       string `json:"id" gorm:"primaryKey;type:uuid"`
	TenantID string `json:"tenant_id" gorm:"not null;uniqueIndex:idx_account_tenant_user,priority:1"`
	UserID   string `json:"user_id" gorm:"not null;uniqueIndex:idx_account_tenant_user,priority:2;index"`

	Balance        int64 `json:"balance" gorm:"default:0"`
	LifetimeEarned int64 `json:"lifetime_earned" gorm:"default:0"`
	LifetimeSpent  int64 `json:"lifetime_spent" gorm:"default:0"`

	XP    int64 `json:"xp" gorm:"default:0"`
	Level int   `json:"level" gorm:"default:1"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TokenTransaction is the append-only audit trail. Rows are never mutated or
// deleted; leaderboard windows and the daily earning cap are computed from
// them.
type TokenTransaction struct {
	ID        string `json:"id" gorm:"primaryKey;type:uuid"`
	TenantID  string `json:"tenant_id" gorm:"index;not null"`
	AccountID string `json:"account_id" gorm:"index;not null"`
	UserID    string `json:"user_id" gorm:"index;not null"`

	Amount       int64  `json:"amount" gorm:"not null"` // signed: credits > 0, debits < 0
	BalanceAfter int64  `json:"balance_after" gorm:"not null"`
	Type         string `json:"type" gorm:"type:varchar(32);not null;index"`
	SourceRef    string `json:"source_ref" gorm:"index"` // session id, item id, admin note...

	CreatedAt time.Time `json:"created_at" gorm:"index"`
}
