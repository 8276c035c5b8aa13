package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCancellationOutcome(t *testing.T) {
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	// Venue cancellations refund in full regardless of timing
	refund, forfeit := CancellationOutcome(true, start, start.Add(-1*time.Hour), 12)
	assert.Equal(t, 12, refund)
	assert.Equal(t, 0, forfeit)

	// Exactly 48 hours ahead still refunds
	refund, forfeit = CancellationOutcome(false, start, start.Add(-48*time.Hour), 12)
	assert.Equal(t, 12, refund)
	assert.Equal(t, 0, forfeit)

	// One second inside the window forfeits everything
	refund, forfeit = CancellationOutcome(false, start, start.Add(-48*time.Hour+time.Second), 12)
	assert.Equal(t, 0, refund)
	assert.Equal(t, 12, forfeit)

	refund, forfeit = CancellationOutcome(false, start, start.Add(-time.Hour), 12)
	assert.Equal(t, 0, refund)
	assert.Equal(t, 12, forfeit)
}

func TestBookingCanCancel(t *testing.T) {
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	booking := &Booking{Status: BookingConfirmed}
	assert.True(t, booking.CanCancel(start, start.Add(-72*time.Hour)))
	assert.True(t, booking.CanCancel(start, start.Add(-48*time.Hour)))
	assert.False(t, booking.CanCancel(start, start.Add(-47*time.Hour)))

	// Terminal bookings cannot be cancelled at all
	booking.Status = BookingCompleted
	assert.False(t, booking.CanCancel(start, start.Add(-72*time.Hour)))
}

func TestHoldDeadline(t *testing.T) {
	notifiedAt := time.Date(2026, 3, 8, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, notifiedAt.Add(4*time.Hour), HoldDeadline(notifiedAt))
}

func TestWaitlistEntryHoldExpired(t *testing.T) {
	deadline := time.Date(2026, 3, 8, 13, 0, 0, 0, time.UTC)
	entry := &WaitlistEntry{Status: WaitlistNotified, ExpiresAt: &deadline}

	assert.False(t, entry.HoldExpired(deadline.Add(-time.Minute)))
	assert.True(t, entry.HoldExpired(deadline))
	assert.True(t, entry.HoldExpired(deadline.Add(time.Minute)))

	// Waiting entries have no hold to expire
	waiting := &WaitlistEntry{Status: WaitlistWaiting, ExpiresAt: &deadline}
	assert.False(t, waiting.HoldExpired(deadline.Add(time.Hour)))
}

func TestVerifyQueuePositions(t *testing.T) {
	queue := func(positions ...int) []WaitlistEntry {
		entries := make([]WaitlistEntry, len(positions))
		for i, p := range positions {
			entries[i] = WaitlistEntry{ID: int64(100 + i), Position: p, Status: WaitlistWaiting}
		}
		return entries
	}

	assert.NoError(t, VerifyQueuePositions(nil))
	assert.NoError(t, VerifyQueuePositions(queue(1, 2, 3, 4)))

	// Removing an entry mid-queue must recompact, a gap is a defect
	assert.Error(t, VerifyQueuePositions(queue(1, 3, 4)))
	assert.Error(t, VerifyQueuePositions(queue(2, 3)))
	assert.Error(t, VerifyQueuePositions(queue(1, 2, 2)))

	// Recompacted survivors of [1,2,3,4] minus the second entry
	assert.NoError(t, VerifyQueuePositions(queue(1, 2, 3)))

	converted := queue(1, 2)
	converted[1].Status = WaitlistConverted
	assert.Error(t, VerifyQueuePositions(converted))
}

func TestAttendanceHelpers(t *testing.T) {
	children := []BookingChild{
		{Attendance: AttendancePresent},
		{Attendance: AttendancePending},
	}
	assert.False(t, AllAttendanceResolved(children))
	assert.True(t, AnyPresent(children))

	children[1].Attendance = AttendanceNoShow
	assert.True(t, AllAttendanceResolved(children))

	allAbsent := []BookingChild{{Attendance: AttendanceNoShow}}
	assert.True(t, AllAttendanceResolved(allAbsent))
	assert.False(t, AnyPresent(allAbsent))
}
