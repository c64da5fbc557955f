// services/ledger_service.go
package services

import (
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"arcade-economy-system/errs"
	"arcade-economy-system/models"
)

// Balance writes use a conditional update against the last-read balance.
// A lost race re-reads and retries with a short backoff; exhausting the
// attempts surfaces a retryable CONCURRENCY error to the caller.
const balanceWriteAttempts = 3
const balanceRetryBackoff = 10 * time.Millisecond

// XP needed per level. Level is derived, never stored independently of XP.
const xpPerLevel = 250

type LedgerService struct {
	DB       *gorm.DB
	DailyCap int64
}

func NewLedgerService(db *gorm.DB, dailyCap int64) *LedgerService {
	return &LedgerService{DB: db, DailyCap: dailyCap}
}

// CreditResult reports what the ledger actually applied. The applied amount
// is authoritative: it may be less than requested when the daily cap clamps
// the credit, down to zero ("cap reached" — a marker, not an error).
type CreditResult struct {
	AccountID     string `json:"account_id"`
	Requested     int64  `json:"requested"`
	Applied       int64  `json:"applied"`
	CapReached    bool   `json:"cap_reached"`
	Balance       int64  `json:"balance"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// GetOrCreateAccount returns the (tenant, user) account, creating it with a
// zero balance on first touch. The unique index absorbs the create race.
func (s *LedgerService) GetOrCreateAccount(tenantID, userID string) (*models.TokenAccount, error) {
	var acct models.TokenAccount
	err := s.DB.Where("tenant_id = ? AND user_id = ?", tenantID, userID).First(&acct).Error
	if err == nil {
		return &acct, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.Wrap(errs.CodeInternal, err, "DB error loading token account")
	}

	acct = models.TokenAccount{
		ID:       uuid.NewString(),
		TenantID: tenantID,
		UserID:   userID,
		Level:    1,
	}
	if err := s.DB.Create(&acct).Error; err != nil {
		// Lost the create race — the row exists now, load it.
		var existing models.TokenAccount
		if ferr := s.DB.Where("tenant_id = ? AND user_id = ?", tenantID, userID).First(&existing).Error; ferr == nil {
			return &existing, nil
		}
		return nil, errs.Wrap(errs.CodeInternal, err, "failed to create token account")
	}
	return &acct, nil
}

// GetAccount loads an existing account without creating one.
func (s *LedgerService) GetAccount(tenantID, userID string) (*models.TokenAccount, error) {
	var acct models.TokenAccount
	if err := s.DB.Where("tenant_id = ? AND user_id = ?", tenantID, userID).First(&acct).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.CodeNotFound, "token account not found")
		}
		return nil, errs.Wrap(errs.CodeInternal, err, "DB error loading token account")
	}
	return &acct, nil
}

// EarnedToday sums the positive transactions of one account since the start
// of the current UTC day.
func (s *LedgerService) EarnedToday(accountID string) (int64, error) {
	dayStart := time.Now().UTC().Truncate(24 * time.Hour)

	var earned sql.NullInt64
	row := s.DB.Model(&models.TokenTransaction{}).
		Select("SUM(amount)").
		Where("account_id = ? AND amount > 0 AND created_at >= ?", accountID, dayStart).
		Row()
	if err := row.Scan(&earned); err != nil {
		return 0, errs.Wrap(errs.CodeInternal, err, "DB error summing daily earnings")
	}
	return earned.Int64, nil
}

// CreditTokens adds tokens to an account, clamped to the remaining daily
// allowance. amount <= 0 is a no-op. A fully clamped credit appends no
// transaction and returns a cap-reached marker.
func (s *LedgerService) CreditTokens(tenantID, userID string, amount int64, txType, sourceRef string) (*CreditResult, error) {
	acct, err := s.GetOrCreateAccount(tenantID, userID)
	if err != nil {
		return nil, err
	}

	if amount <= 0 {
		return &CreditResult{AccountID: acct.ID, Requested: amount, Balance: acct.Balance}, nil
	}

	earned, err := s.EarnedToday(acct.ID)
	if err != nil {
		return nil, err
	}
	capRemaining := s.DailyCap - earned
	if capRemaining < 0 {
		capRemaining = 0
	}
	applied := amount
	if applied > capRemaining {
		applied = capRemaining
	}

	if applied == 0 {
		return &CreditResult{
			AccountID:  acct.ID,
			Requested:  amount,
			Applied:    0,
			CapReached: true,
			Balance:    acct.Balance,
		}, nil
	}

	newBalance, err := s.applyDelta(acct, applied)
	if err != nil {
		return nil, err
	}

	tx := models.TokenTransaction{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		AccountID:    acct.ID,
		UserID:       userID,
		Amount:       applied,
		BalanceAfter: newBalance,
		Type:         txType,
		SourceRef:    sourceRef,
	}
	if err := s.DB.Create(&tx).Error; err != nil {
		// Balance already moved; log enough to reconcile by hand.
		log.Printf("❌ [LEDGER] transaction append failed after balance write: account=%s delta=%d balance_after=%d source=%s err=%v",
			acct.ID, applied, newBalance, sourceRef, err)
		return nil, errs.Wrap(errs.CodeInternal, err, "failed to append token transaction")
	}

	return &CreditResult{
		AccountID:     acct.ID,
		Requested:     amount,
		Applied:       applied,
		CapReached:    applied < amount,
		Balance:       newBalance,
		TransactionID: tx.ID,
	}, nil
}

// DebitTokens removes tokens from an account. The balance must cover the
// full amount; the daily cap does not apply to debits.
func (s *LedgerService) DebitTokens(tenantID, userID string, amount int64, sourceRef string) (*CreditResult, error) {
	if amount <= 0 {
		return nil, errs.New(errs.CodeValidation, "debit amount must be positive")
	}

	acct, err := s.GetAccount(tenantID, userID)
	if err != nil {
		return nil, err
	}

	newBalance, err := s.applyDelta(acct, -amount)
	if err != nil {
		return nil, err
	}

	tx := models.TokenTransaction{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		AccountID:    acct.ID,
		UserID:       userID,
		Amount:       -amount,
		BalanceAfter: newBalance,
		Type:         models.TxTypePurchase,
		SourceRef:    sourceRef,
	}
	if err := s.DB.Create(&tx).Error; err != nil {
		log.Printf("❌ [LEDGER] transaction append failed after balance write: account=%s delta=%d balance_after=%d source=%s err=%v",
			acct.ID, -amount, newBalance, sourceRef, err)
		return nil, errs.Wrap(errs.CodeInternal, err, "failed to append token transaction")
	}

	return &CreditResult{
		AccountID:     acct.ID,
		Requested:     amount,
		Applied:       amount,
		Balance:       newBalance,
		TransactionID: tx.ID,
	}, nil
}

// applyDelta mutates the balance via a conditional write: the update only
// lands if the stored balance still equals the one we read. On a lost race
// the fresh balance is re-read and the conditional write re-issued, up to
// balanceWriteAttempts times.
func (s *LedgerService) applyDelta(acct *models.TokenAccount, delta int64) (int64, error) {
	current := acct.Balance

	for attempt := 1; attempt <= balanceWriteAttempts; attempt++ {
		if attempt > 1 {
			var fresh models.TokenAccount
			if err := s.DB.First(&fresh, "id = ?", acct.ID).Error; err != nil {
				return 0, errs.Wrap(errs.CodeInternal, err, "DB error re-reading account balance")
			}
			current = fresh.Balance
		}

		if delta < 0 && current+delta < 0 {
			return 0, errs.Newf(errs.CodeInsufficientFunds, "balance %d cannot cover debit of %d", current, -delta)
		}

		newBalance := current + delta
		updates := map[string]any{"balance": newBalance}
		if delta > 0 {
			updates["lifetime_earned"] = gorm.Expr("lifetime_earned + ?", delta)
		} else {
			updates["lifetime_spent"] = gorm.Expr("lifetime_spent + ?", -delta)
		}

		res := s.DB.Model(&models.TokenAccount{}).
			Where("id = ? AND balance = ?", acct.ID, current).
			Updates(updates)
		if res.Error != nil {
			return 0, errs.Wrap(errs.CodeInternal, res.Error, "DB error updating balance")
		}
		if res.RowsAffected == 1 {
			return newBalance, nil
		}

		log.Printf("⚠️  [LEDGER] balance write lost race (attempt %d/%d): account=%s expected=%d delta=%d",
			attempt, balanceWriteAttempts, acct.ID, current, delta)
		time.Sleep(balanceRetryBackoff * time.Duration(attempt))
	}

	log.Printf("❌ [LEDGER] balance write retries exhausted: account=%s delta=%d", acct.ID, delta)
	return 0, errs.New(errs.CodeConcurrency, "balance update lost too many races, retry the operation")
}

// AddXP accumulates experience and re-derives the level. XP has no daily cap
// and no ledger row; it is not currency.
func (s *LedgerService) AddXP(tenantID, userID string, xp int64) (*models.TokenAccount, error) {
	if xp <= 0 {
		return s.GetOrCreateAccount(tenantID, userID)
	}
	acct, err := s.GetOrCreateAccount(tenantID, userID)
	if err != nil {
		return nil, err
	}

	acct.XP += xp
	acct.Level = int(acct.XP/xpPerLevel) + 1
	if err := s.DB.Model(&models.TokenAccount{}).
		Where("id = ?", acct.ID).
		Updates(map[string]any{
			"xp":    gorm.Expr("xp + ?", xp),
			"level": acct.Level,
		}).Error; err != nil {
		return nil, errs.Wrap(errs.CodeInternal, err, "DB error updating xp")
	}
	return acct, nil
}

// TokenInfo is the balance view returned to the client.
type TokenInfo struct {
	Account      *models.TokenAccount      `json:"account"`
	EarnedToday  int64                     `json:"earned_today"`
	DailyCap     int64                     `json:"daily_cap"`
	CapRemaining int64                     `json:"cap_remaining"`
	Recent       []models.TokenTransaction `json:"recent_transactions"`
}

// GetTokenInfo returns the account, today's earnings against the cap, and
// the most recent ledger rows.
func (s *LedgerService) GetTokenInfo(tenantID, userID string) (*TokenInfo, error) {
	acct, err := s.GetOrCreateAccount(tenantID, userID)
	if err != nil {
		return nil, err
	}
	earned, err := s.EarnedToday(acct.ID)
	if err != nil {
		return nil, err
	}
	capRemaining := s.DailyCap - earned
	if capRemaining < 0 {
		capRemaining = 0
	}

	var recent []models.TokenTransaction
	if err := s.DB.Where("account_id = ?", acct.ID).
		Order("created_at DESC").
		Limit(20).
		Find(&recent).Error; err != nil {
		return nil, errs.Wrap(errs.CodeInternal, err, "DB error fetching transactions")
	}

	return &TokenInfo{
		Account:      acct,
		EarnedToday:  earned,
		DailyCap:     s.DailyCap,
		CapRemaining: capRemaining,
		Recent:       recent,
	}, nil
}
