package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplySignConventions(t *testing.T) {
	var totals LedgerTotals

	_, err := totals.Apply(CreditTransaction{Type: TxAllocation, Amount: -5})
	assert.Error(t, err)

	_, err = totals.Apply(CreditTransaction{Type: TxBooking, Amount: 5})
	assert.Error(t, err)

	_, err = totals.Apply(CreditTransaction{Type: TxRefund, Amount: -5})
	assert.Error(t, err)

	_, err = totals.Apply(CreditTransaction{Type: TxExpiry, Amount: 5})
	assert.Error(t, err)

	_, err = totals.Apply(CreditTransaction{Type: "bonus", Amount: 5})
	assert.Error(t, err)

	next, err := totals.Apply(CreditTransaction{Type: TxAllocation, Amount: 40})
	require.NoError(t, err)
	assert.Equal(t, 40, next.Allocated)
	assert.Equal(t, 40, next.Remaining())
}

func TestApplyForfeitureLeavesBalance(t *testing.T) {
	totals := LedgerTotals{Allocated: 40, Used: 10}

	next, err := totals.Apply(CreditTransaction{Type: TxForfeiture, Amount: -10})
	require.NoError(t, err)
	assert.Equal(t, totals, next)
	assert.Equal(t, 30, next.Remaining())
}

func TestApplyAdjustmentEitherSign(t *testing.T) {
	totals := LedgerTotals{Allocated: 40}

	next, err := totals.Apply(CreditTransaction{Type: TxAdjustment, Amount: 5})
	require.NoError(t, err)
	assert.Equal(t, 45, next.Allocated)

	next, err = next.Apply(CreditTransaction{Type: TxAdjustment, Amount: -15})
	require.NoError(t, err)
	assert.Equal(t, 30, next.Allocated)
}

func TestReplayLedgerFullMonth(t *testing.T) {
	// Allocation, charge, late cancellation with forfeiture, another charge
	// with refund, then the period expiry writes off the remainder.
	txs := []CreditTransaction{
		{ID: 1, Type: TxAllocation, Amount: 40, BalanceAfter: 40},
		{ID: 2, Type: TxBooking, Amount: -12, BalanceAfter: 28},
		{ID: 3, Type: TxForfeiture, Amount: -12, BalanceAfter: 28},
		{ID: 4, Type: TxBooking, Amount: -6, BalanceAfter: 22},
		{ID: 5, Type: TxRefund, Amount: 6, BalanceAfter: 28},
		{ID: 6, Type: TxExpiry, Amount: -28, BalanceAfter: 0},
	}

	totals, err := ReplayLedger(txs)
	require.NoError(t, err)
	assert.Equal(t, 40, totals.Allocated)
	assert.Equal(t, 12, totals.Used)
	assert.Equal(t, 28, totals.Expired)
	assert.Equal(t, 0, totals.Remaining())
}

func TestReplayLedgerRejectsBadSnapshot(t *testing.T) {
	txs := []CreditTransaction{
		{ID: 1, Type: TxAllocation, Amount: 40, BalanceAfter: 40},
		{ID: 2, Type: TxBooking, Amount: -12, BalanceAfter: 30},
	}

	_, err := ReplayLedger(txs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recorded balance 30")
}

func TestReplayLedgerRejectsNegativeBalance(t *testing.T) {
	txs := []CreditTransaction{
		{ID: 1, Type: TxAllocation, Amount: 10, BalanceAfter: 10},
		{ID: 2, Type: TxBooking, Amount: -12, BalanceAfter: -2},
	}

	_, err := ReplayLedger(txs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative")
}

func TestVerifyAccount(t *testing.T) {
	txs := []CreditTransaction{
		{ID: 1, Type: TxAllocation, Amount: 40, BalanceAfter: 40},
		{ID: 2, Type: TxBooking, Amount: -12, BalanceAfter: 28},
	}

	account := &CreditAccount{Allocated: 40, Used: 12}
	assert.NoError(t, VerifyAccount(account, txs))
	assert.Equal(t, 28, account.Remaining())

	stale := &CreditAccount{Allocated: 40, Used: 10}
	assert.Error(t, VerifyAccount(stale, txs))
}
