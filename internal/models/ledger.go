package models

import "fmt"

// LedgerTotals are the account projection fields recomputed from the
// transaction log.
type LedgerTotals struct {
	Allocated int
	Used      int
	Expired   int
}

// Remaining is the derived balance of the replayed totals
func (t LedgerTotals) Remaining() int {
	return t.Allocated - t.Used - t.Expired
}

// Apply folds one posting into the totals. Sign conventions:
// allocation and refund carry positive amounts, booking and expiry negative,
// forfeiture is documentation only and leaves the balance untouched,
// adjustment carries either sign and moves the allocation.
func (t LedgerTotals) Apply(tx CreditTransaction) (LedgerTotals, error) {
	switch tx.Type {
	case TxAllocation:
		if tx.Amount <= 0 {
			return t, fmt.Errorf("allocation amount must be positive, got %d", tx.Amount)
		}
		t.Allocated += tx.Amount
	case TxBooking:
		if tx.Amount >= 0 {
			return t, fmt.Errorf("booking amount must be negative, got %d", tx.Amount)
		}
		t.Used += -tx.Amount
	case TxRefund:
		if tx.Amount <= 0 {
			return t, fmt.Errorf("refund amount must be positive, got %d", tx.Amount)
		}
		t.Used -= tx.Amount
	case TxForfeiture:
		// Records the loss; the charge already counted the spend.
	case TxExpiry:
		if tx.Amount > 0 {
			return t, fmt.Errorf("expiry amount must not be positive, got %d", tx.Amount)
		}
		t.Expired += -tx.Amount
	case TxAdjustment:
		t.Allocated += tx.Amount
	default:
		return t, fmt.Errorf("unknown transaction type %q", tx.Type)
	}
	return t, nil
}

// ReplayLedger recomputes the account projection by folding every transaction
// in creation order, verifying the recorded balance_after snapshot at each
// step. The log is the source of truth; any divergence means a bug.
func ReplayLedger(txs []CreditTransaction) (LedgerTotals, error) {
	var totals LedgerTotals
	for i, tx := range txs {
		next, err := totals.Apply(tx)
		if err != nil {
			return totals, fmt.Errorf("transaction %d (id=%d): %w", i, tx.ID, err)
		}
		if next.Remaining() < 0 {
			return totals, fmt.Errorf("transaction %d (id=%d) drives balance negative: %d",
				i, tx.ID, next.Remaining())
		}
		if tx.BalanceAfter != next.Remaining() {
			return totals, fmt.Errorf("transaction %d (id=%d) recorded balance %d, replay gives %d",
				i, tx.ID, tx.BalanceAfter, next.Remaining())
		}
		totals = next
	}
	return totals, nil
}

// VerifyAccount checks that the cached account fields match the replayed log
func VerifyAccount(account *CreditAccount, txs []CreditTransaction) error {
	totals, err := ReplayLedger(txs)
	if err != nil {
		return err
	}
	if totals.Allocated != account.Allocated || totals.Used != account.Used || totals.Expired != account.Expired {
		return fmt.Errorf("account fields (allocated=%d used=%d expired=%d) diverge from replay (allocated=%d used=%d expired=%d)",
			account.Allocated, account.Used, account.Expired,
			totals.Allocated, totals.Used, totals.Expired)
	}
	return nil
}
