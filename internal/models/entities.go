package models

import (
	"fmt"
	"time"
)

// Booking policy constants. The cancellation window is the exact boundary of
// the refund-vs-forfeiture rule, the hold duration is how long a notified
// waitlist entry may claim a freed spot.
const (
	CancellationWindow = 48 * time.Hour
	WaitlistHoldWindow = 4 * time.Hour
)

// User represents an account in one of the four portals
type User struct {
	UserID       int64     `json:"user_id" db:"user_id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FirstName    string    `json:"first_name" db:"first_name"`
	Surname      string    `json:"surname" db:"surname"`
	Role         Role      `json:"role" db:"role"`
	CompanyID    *int64    `json:"company_id" db:"company_id"`
	VenueID      *int64    `json:"venue_id" db:"venue_id"`
	RegisteredAt time.Time `json:"registered_at" db:"registered_at"`
	IsActive     bool      `json:"is_active" db:"is_active"`
}

// Child belongs to a parent user; bookings reference children, never own them
type Child struct {
	ID        string     `json:"id" db:"id"`
	ParentID  int64      `json:"parent_id" db:"parent_id"`
	FirstName string     `json:"first_name" db:"first_name"`
	BirthDate *time.Time `json:"birth_date" db:"birth_date"`
	Notes     *string    `json:"notes" db:"notes"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// Venue represents a place that runs activities
type Venue struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	City      string    `json:"city" db:"city"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Activity is a bookable program offered by a venue
type Activity struct {
	ID              int64     `json:"id" db:"id"`
	VenueID         int64     `json:"venue_id" db:"venue_id"`
	Title           string    `json:"title" db:"title"`
	Description     *string   `json:"description" db:"description"`
	Category        string    `json:"category" db:"category"`
	AgeMin          int       `json:"age_min" db:"age_min"`
	AgeMax          int       `json:"age_max" db:"age_max"`
	CreditsPerChild int       `json:"credits_per_child" db:"credits_per_child"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// Slot is one scheduled occurrence of an activity with fixed capacity
type Slot struct {
	ID         int64      `json:"id" db:"id"`
	ActivityID int64      `json:"activity_id" db:"activity_id"`
	StartsAt   time.Time  `json:"starts_at" db:"starts_at"`
	EndsAt     time.Time  `json:"ends_at" db:"ends_at"`
	Capacity   int        `json:"capacity" db:"capacity"`
	Status     SlotStatus `json:"status" db:"status"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`

	BookedCount int `json:"booked_count,omitempty" db:"-"` // Not from DB, filled separately
}

// Booking reserves one or more children into one slot. Bookings are never
// physically deleted; terminal states are kept for history.
type Booking struct {
	ID                 int64          `json:"id" db:"id"`
	SlotID             int64          `json:"slot_id" db:"slot_id"`
	ParentID           int64          `json:"parent_id" db:"parent_id"`
	Status             BookingStatus  `json:"status" db:"status"`
	TotalCredits       int            `json:"total_credits" db:"total_credits"`
	CancellationReason *string        `json:"cancellation_reason" db:"cancellation_reason"`
	BookedAt           time.Time      `json:"booked_at" db:"booked_at"`
	ConfirmedAt        *time.Time     `json:"confirmed_at" db:"confirmed_at"`
	CancelledAt        *time.Time     `json:"cancelled_at" db:"cancelled_at"`
	CompletedAt        *time.Time     `json:"completed_at" db:"completed_at"`
	CreatedAt          time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at" db:"updated_at"`
	Children           []BookingChild `json:"children,omitempty"` // Not from DB, filled separately
}

// CanCancel is the derived flag shown to parents: true while the booking is
// still cancellable with a full refund.
func (b *Booking) CanCancel(slotStart, now time.Time) bool {
	return b.Status.Active() && slotStart.Sub(now) >= CancellationWindow
}

// ChildrenTotal sums the per-child charges. Must always equal TotalCredits.
func ChildrenTotal(children []BookingChild) int {
	total := 0
	for _, bc := range children {
		total += bc.CreditsCharged
	}
	return total
}

// BookingChild is one attending child within a booking, with its own credit
// charge and attendance flag
type BookingChild struct {
	ID             int64            `json:"id" db:"id"`
	BookingID      int64            `json:"booking_id" db:"booking_id"`
	ChildID        string           `json:"child_id" db:"child_id"`
	CreditsCharged int              `json:"credits_charged" db:"credits_charged"`
	Attendance     AttendanceStatus `json:"attendance" db:"attendance"`
	MarkedAt       *time.Time       `json:"marked_at" db:"marked_at"`
}

// AllAttendanceResolved reports whether every attendee has a final status.
// A session may only complete once this holds.
func AllAttendanceResolved(children []BookingChild) bool {
	for _, bc := range children {
		if bc.Attendance == AttendancePending {
			return false
		}
	}
	return true
}

// AnyPresent reports whether at least one child was marked present, which
// decides completed vs no_show for the whole booking at session completion.
func AnyPresent(children []BookingChild) bool {
	for _, bc := range children {
		if bc.Attendance == AttendancePresent {
			return true
		}
	}
	return false
}

// WaitlistEntry is a parent+child claim on a full slot. Positions are 1-based
// and contiguous per slot among active entries.
type WaitlistEntry struct {
	ID         int64          `json:"id" db:"id"`
	SlotID     int64          `json:"slot_id" db:"slot_id"`
	ParentID   int64          `json:"parent_id" db:"parent_id"`
	ChildID    string         `json:"child_id" db:"child_id"`
	Position   int            `json:"position" db:"position"`
	Status     WaitlistStatus `json:"status" db:"status"`
	BookingID  *int64         `json:"booking_id" db:"booking_id"`
	JoinedAt   time.Time      `json:"joined_at" db:"joined_at"`
	NotifiedAt *time.Time     `json:"notified_at" db:"notified_at"`
	ExpiresAt  *time.Time     `json:"expires_at" db:"expires_at"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at" db:"updated_at"`
}

// HoldExpired reports whether a notified entry is past its conversion deadline
func (w *WaitlistEntry) HoldExpired(now time.Time) bool {
	return w.Status == WaitlistNotified && w.ExpiresAt != nil && !now.Before(*w.ExpiresAt)
}

// VerifyQueuePositions checks one slot's live queue, in position order:
// active entries must hold positions 1..N with no gaps or duplicates
func VerifyQueuePositions(entries []WaitlistEntry) error {
	for i := range entries {
		if !entries[i].Status.InQueue() {
			return fmt.Errorf("entry %d with status %q does not belong to the live queue", entries[i].ID, entries[i].Status)
		}
		if entries[i].Position != i+1 {
			return fmt.Errorf("entry %d holds position %d, expected %d", entries[i].ID, entries[i].Position, i+1)
		}
	}
	return nil
}

// CreditAccount is one user's credit balance for one calendar month. The
// cached allocated/used/expired fields are a projection of the transaction
// log, which remains the source of truth.
type CreditAccount struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Year      int       `json:"year" db:"year"`
	Month     int       `json:"month" db:"month"`
	Allocated int       `json:"allocated" db:"allocated"`
	Used      int       `json:"used" db:"used"`
	Expired   int       `json:"expired" db:"expired"`
	Closed    bool      `json:"closed" db:"closed"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Remaining is the derived balance. Never negative.
func (a *CreditAccount) Remaining() int {
	return a.Allocated - a.Used - a.Expired
}

// CreditTransaction is an immutable, append-only ledger entry. Amount is
// signed with its balance effect; BalanceAfter snapshots the account balance
// right after the posting. ActorID is nil for system-generated postings.
type CreditTransaction struct {
	ID           int64           `json:"id" db:"id"`
	AccountID    int64           `json:"account_id" db:"account_id"`
	BookingID    *int64          `json:"booking_id" db:"booking_id"`
	Type         TransactionType `json:"type" db:"type"`
	Amount       int             `json:"amount" db:"amount"`
	BalanceAfter int             `json:"balance_after" db:"balance_after"`
	Description  string          `json:"description" db:"description"`
	ActorID      *int64          `json:"actor_id" db:"actor_id"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}
