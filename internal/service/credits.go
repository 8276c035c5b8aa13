package service

import (
	"context"
	"fmt"
	"time"

	apperrors "kidbook/internal/errors"
	"kidbook/internal/logger"
	"kidbook/internal/messaging"
	"kidbook/internal/metrics"
	"kidbook/internal/models"
	"kidbook/internal/repository"
)

type CreditService struct {
	creditRepo *repository.CreditRepository
	natsClient *messaging.NATSClient
}

func NewCreditService(creditRepo *repository.CreditRepository, natsClient *messaging.NATSClient) *CreditService {
	return &CreditService{
		creditRepo: creditRepo,
		natsClient: natsClient,
	}
}

// Allocate posts the monthly benefit for one employee. Repeating the call
// for the same period is rejected, the allocation is not topped up.
func (s *CreditService) Allocate(ctx context.Context, actorID int64, req *models.AllocateCreditsRequest) (*models.CreditAccountResponse, error) {
	account, err := s.creditRepo.Allocate(ctx, req.UserID, req.Year, req.Month, req.Amount, actorID)
	if err != nil {
		return nil, err
	}

	eventData := models.CreditAllocatedEvent{
		AccountID: account.ID,
		UserID:    account.UserID,
		Year:      account.Year,
		Month:     account.Month,
		Amount:    req.Amount,
		Timestamp: time.Now(),
	}
	if err := s.natsClient.Publish(models.EventCreditAllocated, eventData); err != nil {
		// Log error but don't fail the operation
		logger.WithContext(ctx).Error("Failed to publish credit allocated event",
			"error", err,
			"account_id", account.ID,
			"event_type", "credit.allocated")
	}

	return &models.CreditAccountResponse{CreditAccount: *account, RemainingCredits: account.Remaining()}, nil
}

// Adjust posts a manual correction to an open account
func (s *CreditService) Adjust(ctx context.Context, actorID int64, req *models.AdjustCreditsRequest) (*models.CreditTransaction, error) {
	return s.creditRepo.Adjust(ctx, req.AccountID, req.Amount, req.Description, actorID)
}

func (s *CreditService) GetAccount(ctx context.Context, userID int64, year, month int) (*models.CreditAccountResponse, error) {
	account, err := s.creditRepo.GetAccount(ctx, userID, year, month)
	if err != nil {
		return nil, fmt.Errorf("failed to get credit account: %w", err)
	}
	if account == nil {
		return nil, apperrors.ErrNotFound
	}
	return &models.CreditAccountResponse{CreditAccount: *account, RemainingCredits: account.Remaining()}, nil
}

func (s *CreditService) ListTransactions(ctx context.Context, accountID int64) ([]models.CreditTransaction, error) {
	return s.creditRepo.ListTransactions(ctx, accountID)
}

// VerifyAccount replays the full transaction log of an account against its
// cached balance. Divergence is an operator incident.
func (s *CreditService) VerifyAccount(ctx context.Context, accountID int64) error {
	account, err := s.creditRepo.GetAccountByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to get credit account: %w", err)
	}
	if account == nil {
		return apperrors.ErrNotFound
	}

	txs, err := s.creditRepo.ListTransactions(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to list transactions: %w", err)
	}

	if err := models.VerifyAccount(account, txs); err != nil {
		logger.WithContext(ctx).Error("Credit ledger replay diverged",
			"error", err,
			"account_id", accountID)
		return &apperrors.LedgerInconsistencyError{AccountID: accountID, Detail: err.Error()}
	}

	return nil
}

// ExpireDueAccounts closes every account whose period has ended, writing off
// whatever balance is left. Called by the background worker.
func (s *CreditService) ExpireDueAccounts(ctx context.Context) (int, error) {
	accounts, err := s.creditRepo.ListOpenAccountsBefore(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to list due accounts: %w", err)
	}

	expired := 0
	for i := range accounts {
		writeOff, err := s.creditRepo.ExpireAccount(ctx, accounts[i].ID)
		if err != nil {
			// Log error but keep closing the remaining accounts
			logger.WithContext(ctx).Error("Failed to expire credit account",
				"error", err,
				"account_id", accounts[i].ID)
			continue
		}
		expired++

		amount := 0
		if writeOff != nil {
			amount = -writeOff.Amount
		}
		metrics.CreditsExpired.Add(float64(amount))

		eventData := models.CreditExpiredEvent{
			AccountID: accounts[i].ID,
			UserID:    accounts[i].UserID,
			Amount:    amount,
			Timestamp: time.Now(),
		}
		if err := s.natsClient.Publish(models.EventCreditExpired, eventData); err != nil {
			logger.WithContext(ctx).Error("Failed to publish credit expired event",
				"error", err,
				"account_id", accounts[i].ID,
				"event_type", "credit.expired")
		}
	}

	return expired, nil
}

// CompanyReport is the HR view over all employee accounts of one period
func (s *CreditService) CompanyReport(ctx context.Context, companyID int64, year, month int) (models.CreditReportResponse, error) {
	rows, err := s.creditRepo.CompanyCreditReport(ctx, companyID, year, month)
	if err != nil {
		return nil, fmt.Errorf("failed to build credit report: %w", err)
	}
	return models.CreditReportResponse(rows), nil
}
