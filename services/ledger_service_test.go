package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arcade-economy-system/errs"
	"arcade-economy-system/models"
)

func TestCreditTokensAppendsTransaction(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ledger := NewLedgerService(db, 500)

	res, err := ledger.CreditTokens(testTenant, "user-1", 50, models.TxTypeGameReward, "session-1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), res.Applied)
	assert.Equal(t, int64(50), res.Balance)
	assert.False(t, res.CapReached)

	var tx models.TokenTransaction
	require.NoError(t, db.First(&tx, "id = ?", res.TransactionID).Error)
	assert.Equal(t, int64(50), tx.Amount)
	assert.Equal(t, int64(50), tx.BalanceAfter)
	assert.Equal(t, "session-1", tx.SourceRef)

	var acct models.TokenAccount
	require.NoError(t, db.First(&acct, "id = ?", res.AccountID).Error)
	assert.Equal(t, int64(50), acct.Balance)
	assert.Equal(t, int64(50), acct.LifetimeEarned)
}

func TestCreditTokensZeroAmountIsNoop(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ledger := NewLedgerService(db, 500)
	seedAccount(t, db, "user-1", 100, 1)

	res, err := ledger.CreditTokens(testTenant, "user-1", 0, models.TxTypeGameReward, "x")
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Applied)
	assert.Equal(t, int64(100), res.Balance)

	var count int64
	db.Model(&models.TokenTransaction{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestCreditTokensClampsToDailyCap(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ledger := NewLedgerService(db, 500)
	acct := seedAccount(t, db, "user-1", 480, 1)
	seedCredit(t, db, acct, 480, time.Now())

	// Nominal 50, only 20 left under the cap today.
	res, err := ledger.CreditTokens(testTenant, "user-1", 50, models.TxTypeGameReward, "session-9")
	require.NoError(t, err)
	assert.Equal(t, int64(20), res.Applied)
	assert.True(t, res.CapReached)
	assert.Equal(t, int64(500), res.Balance)
}

func TestCreditTokensCapExhaustedReturnsMarker(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ledger := NewLedgerService(db, 500)
	acct := seedAccount(t, db, "user-1", 500, 1)
	seedCredit(t, db, acct, 500, time.Now())

	res, err := ledger.CreditTokens(testTenant, "user-1", 10, models.TxTypeGameReward, "session-9")
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Applied)
	assert.True(t, res.CapReached)
	assert.Equal(t, int64(500), res.Balance)

	// No transaction row is appended for a fully clamped credit.
	var count int64
	db.Model(&models.TokenTransaction{}).Where("source_ref = ?", "session-9").Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestDailyCapIgnoresYesterday(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ledger := NewLedgerService(db, 500)
	acct := seedAccount(t, db, "user-1", 490, 1)
	seedCredit(t, db, acct, 490, time.Now().Add(-48*time.Hour))

	res, err := ledger.CreditTokens(testTenant, "user-1", 100, models.TxTypeGameReward, "s")
	require.NoError(t, err)
	assert.Equal(t, int64(100), res.Applied)
	assert.False(t, res.CapReached)
}

func TestDebitTokensRequiresBalance(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ledger := NewLedgerService(db, 500)
	seedAccount(t, db, "user-1", 30, 1)

	_, err := ledger.DebitTokens(testTenant, "user-1", 50, "item-1")
	require.Error(t, err)
	assert.Equal(t, errs.CodeInsufficientFunds, errs.CodeOf(err))

	var acct models.TokenAccount
	require.NoError(t, db.First(&acct, "tenant_id = ? AND user_id = ?", testTenant, "user-1").Error)
	assert.Equal(t, int64(30), acct.Balance)
}

func TestDebitTokensRecordsNegativeAmount(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ledger := NewLedgerService(db, 500)
	seedAccount(t, db, "user-1", 100, 1)

	res, err := ledger.DebitTokens(testTenant, "user-1", 40, "item-1")
	require.NoError(t, err)
	assert.Equal(t, int64(60), res.Balance)

	var tx models.TokenTransaction
	require.NoError(t, db.First(&tx, "id = ?", res.TransactionID).Error)
	assert.Equal(t, int64(-40), tx.Amount)
	assert.Equal(t, int64(60), tx.BalanceAfter)

	var acct models.TokenAccount
	require.NoError(t, db.First(&acct, "id = ?", res.AccountID).Error)
	assert.Equal(t, int64(40), acct.LifetimeSpent)
}

// A writer holding a stale balance must observe the competing write via
// re-read and land on the combined total, never overwrite it.
func TestApplyDeltaConvergesAfterLostRace(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ledger := NewLedgerService(db, 500)
	acct := seedAccount(t, db, "user-1", 100, 1)

	stale := *acct // balance 100 as read by the slow writer

	// The fast writer lands first: 100 → 110.
	require.NoError(t, db.Model(&models.TokenAccount{}).
		Where("id = ?", acct.ID).
		Update("balance", 110).Error)

	newBalance, err := ledger.applyDelta(&stale, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(120), newBalance)

	var fresh models.TokenAccount
	require.NoError(t, db.First(&fresh, "id = ?", acct.ID).Error)
	assert.Equal(t, int64(120), fresh.Balance)
}

func TestGetTokenInfoReportsCapRemaining(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ledger := NewLedgerService(db, 500)
	acct := seedAccount(t, db, "user-1", 120, 1)
	seedCredit(t, db, acct, 120, time.Now())

	info, err := ledger.GetTokenInfo(testTenant, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(120), info.EarnedToday)
	assert.Equal(t, int64(380), info.CapRemaining)
	assert.Len(t, info.Recent, 1)
}

func TestAddXPDerivesLevel(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ledger := NewLedgerService(db, 500)

	_, err := ledger.AddXP(testTenant, "user-1", 600)
	require.NoError(t, err)

	var acct models.TokenAccount
	require.NoError(t, db.First(&acct, "tenant_id = ? AND user_id = ?", testTenant, "user-1").Error)
	assert.Equal(t, int64(600), acct.XP)
	assert.Equal(t, 3, acct.Level) // 600 / 250 + 1
}
