package jobs

import (
	"context"
	"log/slog"
	"time"

	"kidbook/internal/service"
)

const waitlistSweepInterval = 1 * time.Minute

// WaitlistExpiryJob periodically expires overdue conversion holds and moves
// the freed capacity down the queue
type WaitlistExpiryJob struct {
	waitlist *service.WaitlistService
	ticker   *time.Ticker
	done     chan bool
}

func NewWaitlistExpiryJob(waitlist *service.WaitlistService) *WaitlistExpiryJob {
	return &WaitlistExpiryJob{
		waitlist: waitlist,
		done:     make(chan bool),
	}
}

// Start begins the background job that sweeps stale holds every minute
func (j *WaitlistExpiryJob) Start(ctx context.Context) {
	slog.Info("Starting waitlist expiry job", "check_interval", waitlistSweepInterval.String())

	j.ticker = time.NewTicker(waitlistSweepInterval)

	// Run initial check immediately
	go j.sweep(ctx)

	go func() {
		for {
			select {
			case <-j.ticker.C:
				go j.sweep(ctx)
			case <-j.done:
				slog.Info("Waitlist expiry job stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the background job
func (j *WaitlistExpiryJob) Stop() {
	if j.ticker != nil {
		j.ticker.Stop()
	}
	close(j.done)
}

func (j *WaitlistExpiryJob) sweep(ctx context.Context) {
	processed, err := j.waitlist.SweepExpiredHolds(ctx)
	if err != nil {
		slog.Error("Failed to sweep expired waitlist holds", "error", err)
		return
	}

	if processed > 0 {
		slog.Info("Processed slots with stale waitlist holds", "count", processed)
	}
}
