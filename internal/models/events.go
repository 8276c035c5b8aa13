package models

import "time"

// NATS Event Types
const (
	EventBookingCreated    = "booking.created"
	EventBookingConfirmed  = "booking.confirmed"
	EventBookingCancelled  = "booking.cancelled"
	EventBookingCompleted  = "booking.completed"
	EventWaitlistJoined    = "waitlist.joined"
	EventWaitlistNotified  = "waitlist.notified"
	EventWaitlistExpired   = "waitlist.expired"
	EventWaitlistConverted = "waitlist.converted"
	EventCreditAllocated   = "credit.allocated"
	EventCreditExpired     = "credit.expired"
)

// BookingCreatedEvent represents a booking creation event
type BookingCreatedEvent struct {
	BookingID    int64     `json:"booking_id"`
	SlotID       int64     `json:"slot_id"`
	ParentID     int64     `json:"parent_id"`
	TotalCredits int       `json:"total_credits"`
	Timestamp    time.Time `json:"timestamp"`
}

// BookingConfirmedEvent represents a venue accepting a booking
type BookingConfirmedEvent struct {
	BookingID int64     `json:"booking_id"`
	SlotID    int64     `json:"slot_id"`
	ParentID  int64     `json:"parent_id"`
	Timestamp time.Time `json:"timestamp"`
}

// BookingCancelledEvent represents a booking cancellation by either party
type BookingCancelledEvent struct {
	BookingID        int64     `json:"booking_id"`
	SlotID           int64     `json:"slot_id"`
	ParentID         int64     `json:"parent_id"`
	CancelledBy      string    `json:"cancelled_by"`
	Reason           string    `json:"reason"`
	RefundedCredits  int       `json:"refunded_credits"`
	ForfeitedCredits int       `json:"forfeited_credits"`
	Timestamp        time.Time `json:"timestamp"`
}

// BookingCompletedEvent represents a session outcome for one booking
type BookingCompletedEvent struct {
	BookingID int64     `json:"booking_id"`
	SlotID    int64     `json:"slot_id"`
	ParentID  int64     `json:"parent_id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// WaitlistJoinedEvent represents a new waitlist entry
type WaitlistJoinedEvent struct {
	EntryID   int64     `json:"entry_id"`
	SlotID    int64     `json:"slot_id"`
	ParentID  int64     `json:"parent_id"`
	ChildID   string    `json:"child_id"`
	Position  int       `json:"position"`
	Timestamp time.Time `json:"timestamp"`
}

// WaitlistNotifiedEvent represents an offer of a freed spot with a deadline
type WaitlistNotifiedEvent struct {
	EntryID   int64     `json:"entry_id"`
	SlotID    int64     `json:"slot_id"`
	ParentID  int64     `json:"parent_id"`
	ChildID   string    `json:"child_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Timestamp time.Time `json:"timestamp"`
}

// WaitlistExpiredEvent represents a hold that ran out before conversion
type WaitlistExpiredEvent struct {
	EntryID   int64     `json:"entry_id"`
	SlotID    int64     `json:"slot_id"`
	ParentID  int64     `json:"parent_id"`
	Timestamp time.Time `json:"timestamp"`
}

// WaitlistConvertedEvent represents a waitlist entry turning into a booking
type WaitlistConvertedEvent struct {
	EntryID   int64     `json:"entry_id"`
	SlotID    int64     `json:"slot_id"`
	BookingID int64     `json:"booking_id"`
	ParentID  int64     `json:"parent_id"`
	Timestamp time.Time `json:"timestamp"`
}

// CreditAllocatedEvent represents a monthly allocation posting
type CreditAllocatedEvent struct {
	AccountID int64     `json:"account_id"`
	UserID    int64     `json:"user_id"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Amount    int       `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// CreditExpiredEvent represents the terminal expiry posting of a period
type CreditExpiredEvent struct {
	AccountID int64     `json:"account_id"`
	UserID    int64     `json:"user_id"`
	Amount    int       `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}
