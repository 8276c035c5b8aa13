package models

import "time"

// CancellationOutcome computes the ledger effect of cancelling a booking
// charged for `charged` credits. Venue-caused cancellations always refund in
// full. Parent cancellations refund only outside the 48-hour window; inside
// it the whole charge is forfeited, and the forfeiture is still posted so the
// ledger has a closing entry for the booking.
func CancellationOutcome(byVenue bool, slotStart, now time.Time, charged int) (refund, forfeit int) {
	if byVenue {
		return charged, 0
	}
	if slotStart.Sub(now) >= CancellationWindow {
		return charged, 0
	}
	return 0, charged
}

// HoldDeadline returns the conversion deadline for a waitlist entry notified
// at the given moment
func HoldDeadline(notifiedAt time.Time) time.Time {
	return notifiedAt.Add(WaitlistHoldWindow)
}
