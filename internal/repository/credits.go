package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"kidbook/internal/database"
	apperrors "kidbook/internal/errors"
	"kidbook/internal/models"
)

type CreditRepository struct {
	db *database.DB
}

func NewCreditRepository(db *database.DB) *CreditRepository {
	return &CreditRepository{db: db}
}

const accountColumns = `id, user_id, year, month, allocated, used, expired, closed, created_at, updated_at`

func scanAccount(row *sql.Row) (*models.CreditAccount, error) {
	account := &models.CreditAccount{}
	err := row.Scan(
		&account.ID,
		&account.UserID,
		&account.Year,
		&account.Month,
		&account.Allocated,
		&account.Used,
		&account.Expired,
		&account.Closed,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return account, err
}

func (r *CreditRepository) GetAccount(ctx context.Context, userID int64, year, month int) (*models.CreditAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM credit_accounts WHERE user_id = $1 AND year = $2 AND month = $3`
	return scanAccount(r.db.QueryRowContext(ctx, query, userID, year, month))
}

func (r *CreditRepository) GetAccountByID(ctx context.Context, id int64) (*models.CreditAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM credit_accounts WHERE id = $1`
	return scanAccount(r.db.QueryRowContext(ctx, query, id))
}

// lockAccountTx loads an account row under FOR UPDATE inside a transaction.
// Every posting must go through this lock: charge and adjust read the balance
// before writing, so per-account serialization is what prevents over-spending.
func lockAccountTx(ctx context.Context, tx *sql.Tx, accountID int64) (*models.CreditAccount, error) {
	account := &models.CreditAccount{}
	query := `SELECT ` + accountColumns + ` FROM credit_accounts WHERE id = $1 FOR UPDATE`
	err := tx.QueryRowContext(ctx, query, accountID).Scan(
		&account.ID,
		&account.UserID,
		&account.Year,
		&account.Month,
		&account.Allocated,
		&account.Used,
		&account.Expired,
		&account.Closed,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

func lockAccountForPeriodTx(ctx context.Context, tx *sql.Tx, userID int64, year, month int) (*models.CreditAccount, error) {
	var id int64
	query := `SELECT id FROM credit_accounts WHERE user_id = $1 AND year = $2 AND month = $3 FOR UPDATE`
	err := tx.QueryRowContext(ctx, query, userID, year, month).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return lockAccountTx(ctx, tx, id)
}

// ledgerTotalsTx aggregates the transaction log for an account
func ledgerTotalsTx(ctx context.Context, tx *sql.Tx, accountID int64) (models.LedgerTotals, error) {
	var totals models.LedgerTotals
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN type IN ('allocation', 'adjustment') THEN amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN type = 'booking' THEN -amount WHEN type = 'refund' THEN -amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN type = 'expiry' THEN -amount ELSE 0 END), 0)
		FROM credit_transactions
		WHERE account_id = $1`

	err := tx.QueryRowContext(ctx, query, accountID).Scan(&totals.Allocated, &totals.Used, &totals.Expired)
	return totals, err
}

// verifyAccountTx checks the cached projection against the replayed log
// before any new posting is applied. A divergence is a bug and is reported as
// LedgerInconsistencyError so it reaches an operator instead of being
// silently absorbed.
func verifyAccountTx(ctx context.Context, tx *sql.Tx, account *models.CreditAccount) error {
	totals, err := ledgerTotalsTx(ctx, tx, account.ID)
	if err != nil {
		return fmt.Errorf("failed to aggregate ledger: %w", err)
	}
	if totals.Allocated != account.Allocated || totals.Used != account.Used || totals.Expired != account.Expired {
		return &apperrors.LedgerInconsistencyError{
			AccountID: account.ID,
			Detail: fmt.Sprintf("cached allocated=%d used=%d expired=%d, replay allocated=%d used=%d expired=%d",
				account.Allocated, account.Used, account.Expired,
				totals.Allocated, totals.Used, totals.Expired),
		}
	}
	return nil
}

// postCreditTx appends one ledger entry and moves the cached projection in
// the same transaction. The account must already be locked and verified.
func postCreditTx(ctx context.Context, tx *sql.Tx, account *models.CreditAccount, posting *models.CreditTransaction) error {
	totals := models.LedgerTotals{
		Allocated: account.Allocated,
		Used:      account.Used,
		Expired:   account.Expired,
	}
	next, err := totals.Apply(*posting)
	if err != nil {
		return err
	}
	if next.Remaining() < 0 {
		return apperrors.ErrInsufficientCredits
	}

	posting.AccountID = account.ID
	posting.BalanceAfter = next.Remaining()

	query := `
		INSERT INTO credit_transactions (account_id, booking_id, type, amount, balance_after, description, actor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err = tx.QueryRowContext(ctx, query,
		posting.AccountID,
		posting.BookingID,
		posting.Type,
		posting.Amount,
		posting.BalanceAfter,
		posting.Description,
		posting.ActorID,
	).Scan(&posting.ID, &posting.CreatedAt)
	if err != nil {
		return err
	}

	updateQuery := `
		UPDATE credit_accounts
		SET allocated = $1, used = $2, expired = $3, updated_at = NOW()
		WHERE id = $4`
	if _, err := tx.ExecContext(ctx, updateQuery, next.Allocated, next.Used, next.Expired, account.ID); err != nil {
		return err
	}

	account.Allocated = next.Allocated
	account.Used = next.Used
	account.Expired = next.Expired
	return nil
}

// Allocate posts the period-start allocation. Exactly one allocation may
// exist per (user, period).
func (r *CreditRepository) Allocate(ctx context.Context, userID int64, year, month, amount int, actorID int64) (*models.CreditAccount, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	insertQuery := `
		INSERT INTO credit_accounts (user_id, year, month)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, year, month) DO NOTHING`
	if _, err := tx.ExecContext(ctx, insertQuery, userID, year, month); err != nil {
		return nil, err
	}

	account, err := lockAccountForPeriodTx(ctx, tx, userID, year, month)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("account for user %d period %d-%02d not found after insert", userID, year, month)
	}
	if account.Closed {
		return nil, apperrors.ErrAccountClosed
	}

	var allocations int
	countQuery := `SELECT COUNT(*) FROM credit_transactions WHERE account_id = $1 AND type = 'allocation'`
	if err := tx.QueryRowContext(ctx, countQuery, account.ID).Scan(&allocations); err != nil {
		return nil, err
	}
	if allocations > 0 {
		return nil, apperrors.ErrAllocationExists
	}

	if err := verifyAccountTx(ctx, tx, account); err != nil {
		return nil, err
	}

	posting := &models.CreditTransaction{
		Type:        models.TxAllocation,
		Amount:      amount,
		Description: fmt.Sprintf("Monthly allocation for %d-%02d", year, month),
		ActorID:     &actorID,
	}
	if err := postCreditTx(ctx, tx, account, posting); err != nil {
		return nil, err
	}

	return account, tx.Commit()
}

// Adjust posts a manual correction. The actor is mandatory, which is what
// separates adjustments from system-generated postings.
func (r *CreditRepository) Adjust(ctx context.Context, accountID int64, amount int, description string, actorID int64) (*models.CreditTransaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	account, err := lockAccountTx(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, apperrors.ErrNotFound
	}
	if account.Closed {
		return nil, apperrors.ErrAccountClosed
	}

	if err := verifyAccountTx(ctx, tx, account); err != nil {
		return nil, err
	}

	posting := &models.CreditTransaction{
		Type:        models.TxAdjustment,
		Amount:      amount,
		Description: description,
		ActorID:     &actorID,
	}
	if err := postCreditTx(ctx, tx, account, posting); err != nil {
		return nil, err
	}

	return posting, tx.Commit()
}

// ExpireAccount posts the terminal expiry for whatever balance remains and
// closes the period. Idempotent: an already closed account is left alone.
func (r *CreditRepository) ExpireAccount(ctx context.Context, accountID int64) (*models.CreditTransaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	account, err := lockAccountTx(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, apperrors.ErrNotFound
	}
	if account.Closed {
		return nil, tx.Commit()
	}

	if err := verifyAccountTx(ctx, tx, account); err != nil {
		return nil, err
	}

	var posting *models.CreditTransaction
	if remaining := account.Remaining(); remaining > 0 {
		posting = &models.CreditTransaction{
			Type:        models.TxExpiry,
			Amount:      -remaining,
			Description: fmt.Sprintf("Period %d-%02d expiry of unused balance", account.Year, account.Month),
		}
		if err := postCreditTx(ctx, tx, account, posting); err != nil {
			return nil, err
		}
	}

	closeQuery := `UPDATE credit_accounts SET closed = TRUE, updated_at = NOW() WHERE id = $1`
	if _, err := tx.ExecContext(ctx, closeQuery, account.ID); err != nil {
		return nil, err
	}

	return posting, tx.Commit()
}

// ListOpenAccountsBefore returns accounts of periods that ended before the
// given moment and have not been closed yet
func (r *CreditRepository) ListOpenAccountsBefore(ctx context.Context, now time.Time) ([]models.CreditAccount, error) {
	var accounts []models.CreditAccount
	query := `
		SELECT ` + accountColumns + `
		FROM credit_accounts
		WHERE closed = FALSE AND (year < $1 OR (year = $1 AND month < $2))
		ORDER BY year, month, id`

	rows, err := r.db.QueryContext(ctx, query, now.Year(), int(now.Month()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var account models.CreditAccount
		err := rows.Scan(
			&account.ID,
			&account.UserID,
			&account.Year,
			&account.Month,
			&account.Allocated,
			&account.Used,
			&account.Expired,
			&account.Closed,
			&account.CreatedAt,
			&account.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

func (r *CreditRepository) ListTransactions(ctx context.Context, accountID int64) ([]models.CreditTransaction, error) {
	var txs []models.CreditTransaction
	query := `
		SELECT id, account_id, booking_id, type, amount, balance_after, description, actor_id, created_at
		FROM credit_transactions
		WHERE account_id = $1
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var t models.CreditTransaction
		err := rows.Scan(
			&t.ID,
			&t.AccountID,
			&t.BookingID,
			&t.Type,
			&t.Amount,
			&t.BalanceAfter,
			&t.Description,
			&t.ActorID,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}

	return txs, rows.Err()
}

// CompanyCreditReport aggregates per-employee credit usage for one period
func (r *CreditRepository) CompanyCreditReport(ctx context.Context, companyID int64, year, month int) ([]models.CreditReportRow, error) {
	var report []models.CreditReportRow
	query := `
		SELECT u.user_id, u.email,
		       COALESCE(a.allocated, 0), COALESCE(a.used, 0), COALESCE(a.expired, 0)
		FROM users u
		LEFT JOIN credit_accounts a ON a.user_id = u.user_id AND a.year = $2 AND a.month = $3
		WHERE u.company_id = $1 AND u.role = 'parent'
		ORDER BY u.user_id`

	rows, err := r.db.QueryContext(ctx, query, companyID, year, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var row models.CreditReportRow
		if err := rows.Scan(&row.UserID, &row.Email, &row.Allocated, &row.Used, &row.Expired); err != nil {
			return nil, err
		}
		row.Remaining = row.Allocated - row.Used - row.Expired
		report = append(report, row)
	}

	return report, rows.Err()
}
