package models

// Role determines which portal a user belongs to
type Role string

const (
	RoleParent        Role = "parent"
	RoleHRAdmin       Role = "hr_admin"
	RoleVenueAdmin    Role = "venue_admin"
	RolePlatformAdmin Role = "platform_admin"
)

// BookingStatus is the booking lifecycle state
type BookingStatus string

const (
	BookingPending         BookingStatus = "pending"
	BookingConfirmed       BookingStatus = "confirmed"
	BookingCompleted       BookingStatus = "completed"
	BookingNoShow          BookingStatus = "no_show"
	BookingCancelledParent BookingStatus = "cancelled_parent"
	BookingCancelledVenue  BookingStatus = "cancelled_venue"
)

// bookingTransitions is the full legal transition table. Everything absent
// here is rejected with InvalidTransition.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingCancelledParent, BookingCancelledVenue},
	BookingConfirmed: {BookingCompleted, BookingNoShow, BookingCancelledParent, BookingCancelledVenue},
}

// CanTransitionTo reports whether the status change is legal
func (s BookingStatus) CanTransitionTo(to BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Active reports whether the booking still occupies slot capacity
func (s BookingStatus) Active() bool {
	return s == BookingPending || s == BookingConfirmed
}

// Terminal reports whether the status is final
func (s BookingStatus) Terminal() bool {
	switch s {
	case BookingCompleted, BookingNoShow, BookingCancelledParent, BookingCancelledVenue:
		return true
	}
	return false
}

// Cancelled reports whether the booking ended in a cancellation by either party
func (s BookingStatus) Cancelled() bool {
	return s == BookingCancelledParent || s == BookingCancelledVenue
}

// AttendanceStatus is the per-child attendance flag within a booking
type AttendanceStatus string

const (
	AttendancePending AttendanceStatus = "pending"
	AttendancePresent AttendanceStatus = "present"
	AttendanceNoShow  AttendanceStatus = "no_show"
)

// Valid reports whether the value is a known attendance status
func (s AttendanceStatus) Valid() bool {
	return s == AttendancePending || s == AttendancePresent || s == AttendanceNoShow
}

// Final reports whether the attendee no longer blocks session completion
func (s AttendanceStatus) Final() bool {
	return s == AttendancePresent || s == AttendanceNoShow
}

// WaitlistStatus is the waitlist entry lifecycle state
type WaitlistStatus string

const (
	WaitlistWaiting   WaitlistStatus = "waiting"
	WaitlistNotified  WaitlistStatus = "notified"
	WaitlistConverted WaitlistStatus = "converted"
	WaitlistExpired   WaitlistStatus = "expired"
)

// InQueue reports whether the entry still holds a position in the slot queue
func (s WaitlistStatus) InQueue() bool {
	return s == WaitlistWaiting || s == WaitlistNotified
}

// SlotStatus is the session state of a slot
type SlotStatus string

const (
	SlotScheduled SlotStatus = "scheduled"
	SlotCompleted SlotStatus = "completed"
	SlotCancelled SlotStatus = "cancelled"
)

// TransactionType is the kind of a credit ledger posting
type TransactionType string

const (
	TxAllocation TransactionType = "allocation"
	TxBooking    TransactionType = "booking"
	TxRefund     TransactionType = "refund"
	TxForfeiture TransactionType = "forfeiture"
	TxExpiry     TransactionType = "expiry"
	TxAdjustment TransactionType = "adjustment"
)
