package jobs

import (
	"context"
	"log/slog"
	"time"

	"kidbook/internal/service"
)

const creditSweepInterval = 1 * time.Hour

// CreditExpiryJob closes credit accounts whose calendar month has ended,
// writing off the unused balance
type CreditExpiryJob struct {
	credits *service.CreditService
	ticker  *time.Ticker
	done    chan bool
}

func NewCreditExpiryJob(credits *service.CreditService) *CreditExpiryJob {
	return &CreditExpiryJob{
		credits: credits,
		done:    make(chan bool),
	}
}

// Start begins the background job that expires due accounts every hour
func (j *CreditExpiryJob) Start(ctx context.Context) {
	slog.Info("Starting credit expiry job", "check_interval", creditSweepInterval.String())

	j.ticker = time.NewTicker(creditSweepInterval)

	// Run initial check immediately
	go j.sweep(ctx)

	go func() {
		for {
			select {
			case <-j.ticker.C:
				go j.sweep(ctx)
			case <-j.done:
				slog.Info("Credit expiry job stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the background job
func (j *CreditExpiryJob) Stop() {
	if j.ticker != nil {
		j.ticker.Stop()
	}
	close(j.done)
}

func (j *CreditExpiryJob) sweep(ctx context.Context) {
	expired, err := j.credits.ExpireDueAccounts(ctx)
	if err != nil {
		slog.Error("Failed to expire due credit accounts", "error", err)
		return
	}

	if expired > 0 {
		slog.Info("Expired credit accounts", "count", expired)
	}
}
