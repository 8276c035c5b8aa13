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

type BookingRepository struct {
	db *database.DB
}

func NewBookingRepository(db *database.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `id, slot_id, parent_id, status, total_credits, cancellation_reason,
	       booked_at, confirmed_at, cancelled_at, completed_at, created_at, updated_at`

func scanBooking(scanner interface{ Scan(...interface{}) error }) (*models.Booking, error) {
	booking := &models.Booking{}
	err := scanner.Scan(
		&booking.ID,
		&booking.SlotID,
		&booking.ParentID,
		&booking.Status,
		&booking.TotalCredits,
		&booking.CancellationReason,
		&booking.BookedAt,
		&booking.ConfirmedAt,
		&booking.CancelledAt,
		&booking.CompletedAt,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	booking, err := scanBooking(r.db.QueryRowContext(ctx, query, id))
	if err != nil || booking == nil {
		return booking, err
	}

	children, err := r.getChildren(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	booking.Children = children
	return booking, nil
}

func (r *BookingRepository) getChildren(ctx context.Context, bookingID int64) ([]models.BookingChild, error) {
	var children []models.BookingChild
	query := `
		SELECT id, booking_id, child_id, credits_charged, attendance, marked_at
		FROM booking_children
		WHERE booking_id = $1
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var bc models.BookingChild
		err := rows.Scan(&bc.ID, &bc.BookingID, &bc.ChildID, &bc.CreditsCharged, &bc.Attendance, &bc.MarkedAt)
		if err != nil {
			return nil, err
		}
		children = append(children, bc)
	}

	return children, rows.Err()
}

func (r *BookingRepository) GetByParentID(ctx context.Context, parentID int64) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE parent_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, parentID)
}

func (r *BookingRepository) GetBySlotID(ctx context.Context, slotID int64) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE slot_id = $1 ORDER BY created_at`
	return r.list(ctx, query, slotID)
}

func (r *BookingRepository) list(ctx context.Context, query string, arg interface{}) ([]models.Booking, error) {
	var bookings []models.Booking
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *booking)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range bookings {
		children, err := r.getChildren(ctx, bookings[i].ID)
		if err != nil {
			return nil, err
		}
		bookings[i].Children = children
	}

	return bookings, nil
}

func lockBookingTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`
	return scanBooking(tx.QueryRowContext(ctx, query, id))
}

// createBookingTx inserts a booking with its children and posts the credit
// charge, all inside the caller's transaction. The slot row must already be
// locked. reservedHold marks a waitlist conversion: the converting entry's
// own notified hold is the capacity being consumed and must not count
// against availability.
func createBookingTx(ctx context.Context, tx *sql.Tx, slot *models.Slot, parentID int64, childIDs []string, now time.Time, reservedHold bool) (*models.Booking, error) {
	if slot.Status != models.SlotScheduled || !now.Before(slot.StartsAt) {
		return nil, apperrors.ErrSlotClosed
	}

	active, err := activeChildrenCountTx(ctx, tx, slot.ID)
	if err != nil {
		return nil, err
	}
	holds, err := notifiedHoldsCountTx(ctx, tx, slot.ID)
	if err != nil {
		return nil, err
	}
	if reservedHold && holds > 0 {
		holds--
	}
	if active+holds+len(childIDs) > slot.Capacity {
		return nil, apperrors.ErrSlotFull
	}

	var creditsPerChild int
	err = tx.QueryRowContext(ctx, `SELECT credits_per_child FROM activities WHERE id = $1`, slot.ActivityID).Scan(&creditsPerChild)
	if err != nil {
		return nil, fmt.Errorf("failed to load activity price: %w", err)
	}
	total := creditsPerChild * len(childIDs)

	account, err := lockAccountForPeriodTx(ctx, tx, parentID, now.Year(), int(now.Month()))
	if err != nil {
		return nil, err
	}
	if account == nil || account.Closed {
		return nil, apperrors.ErrInsufficientCredits
	}
	if err := verifyAccountTx(ctx, tx, account); err != nil {
		return nil, err
	}
	if total > account.Remaining() {
		return nil, apperrors.ErrInsufficientCredits
	}

	booking := &models.Booking{
		SlotID:       slot.ID,
		ParentID:     parentID,
		Status:       models.BookingPending,
		TotalCredits: total,
		BookedAt:     now,
	}

	insertQuery := `
		INSERT INTO bookings (slot_id, parent_id, status, total_credits, booked_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	err = tx.QueryRowContext(ctx, insertQuery,
		booking.SlotID, booking.ParentID, booking.Status, booking.TotalCredits, booking.BookedAt,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return nil, err
	}

	for _, childID := range childIDs {
		bc := models.BookingChild{
			BookingID:      booking.ID,
			ChildID:        childID,
			CreditsCharged: creditsPerChild,
			Attendance:     models.AttendancePending,
		}
		childQuery := `
			INSERT INTO booking_children (booking_id, child_id, credits_charged, attendance)
			VALUES ($1, $2, $3, $4)
			RETURNING id`
		if err := tx.QueryRowContext(ctx, childQuery, bc.BookingID, bc.ChildID, bc.CreditsCharged, bc.Attendance).Scan(&bc.ID); err != nil {
			return nil, err
		}
		booking.Children = append(booking.Children, bc)
	}

	posting := &models.CreditTransaction{
		BookingID:   &booking.ID,
		Type:        models.TxBooking,
		Amount:      -total,
		Description: fmt.Sprintf("Charge for booking %d", booking.ID),
	}
	if err := postCreditTx(ctx, tx, account, posting); err != nil {
		return nil, err
	}

	// A parent booking a slot directly while holding a waitlist spot for the
	// same child is treated as a conversion through normal availability.
	if err := convertEntriesForBookingTx(ctx, tx, slot.ID, parentID, childIDs, booking.ID); err != nil {
		return nil, err
	}

	return booking, nil
}

// Create books children into a slot, charging the parent's credit account
// for the current period. Capacity check and charge are one transaction.
func (r *BookingRepository) Create(ctx context.Context, parentID, slotID int64, childIDs []string, now time.Time) (*models.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	slot, err := lockSlotTx(ctx, tx, slotID)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, apperrors.ErrNotFound
	}

	booking, err := createBookingTx(ctx, tx, slot, parentID, childIDs, now, false)
	if err != nil {
		return nil, err
	}

	return booking, tx.Commit()
}

// Confirm moves a pending booking to confirmed
func (r *BookingRepository) Confirm(ctx context.Context, bookingID int64, now time.Time) (*models.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	booking, err := lockBookingTx(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, apperrors.ErrNotFound
	}
	if !booking.Status.CanTransitionTo(models.BookingConfirmed) {
		return nil, apperrors.NewInvalidTransition(string(booking.Status), string(models.BookingConfirmed))
	}

	query := `UPDATE bookings SET status = $1, confirmed_at = $2, updated_at = NOW() WHERE id = $3`
	if _, err := tx.ExecContext(ctx, query, models.BookingConfirmed, now, booking.ID); err != nil {
		return nil, err
	}

	booking.Status = models.BookingConfirmed
	booking.ConfirmedAt = &now
	return booking, tx.Commit()
}

// cancelOneTx cancels one already locked booking and posts the ledger
// effect. Status change and posting commit or roll back together.
func cancelOneTx(ctx context.Context, tx *sql.Tx, booking *models.Booking, slotStart time.Time, byVenue bool, reason *string, now time.Time) (refund, forfeit int, err error) {
	target := models.BookingCancelledParent
	if byVenue {
		target = models.BookingCancelledVenue
	}
	if !booking.Status.CanTransitionTo(target) {
		return 0, 0, apperrors.NewInvalidTransition(string(booking.Status), string(target))
	}

	refund, forfeit = models.CancellationOutcome(byVenue, slotStart, now, booking.TotalCredits)

	// The charge transaction identifies which period's account to settle.
	var accountID int64
	chargeQuery := `SELECT account_id FROM credit_transactions WHERE booking_id = $1 AND type = 'booking' ORDER BY id LIMIT 1`
	chargeErr := tx.QueryRowContext(ctx, chargeQuery, booking.ID).Scan(&accountID)
	if chargeErr != nil && chargeErr != sql.ErrNoRows {
		return 0, 0, chargeErr
	}

	if chargeErr == nil && booking.TotalCredits > 0 {
		account, err := lockAccountTx(ctx, tx, accountID)
		if err != nil {
			return 0, 0, err
		}
		if account == nil {
			return 0, 0, fmt.Errorf("charge account %d not found for booking %d", accountID, booking.ID)
		}
		if err := verifyAccountTx(ctx, tx, account); err != nil {
			return 0, 0, err
		}

		posting := &models.CreditTransaction{
			BookingID: &booking.ID,
		}
		if refund > 0 {
			posting.Type = models.TxRefund
			posting.Amount = refund
			posting.Description = fmt.Sprintf("Refund for cancelled booking %d", booking.ID)
		} else {
			posting.Type = models.TxForfeiture
			posting.Amount = -forfeit
			posting.Description = fmt.Sprintf("Forfeiture for late cancellation of booking %d", booking.ID)
		}
		if err := postCreditTx(ctx, tx, account, posting); err != nil {
			return 0, 0, err
		}
	}

	query := `
		UPDATE bookings
		SET status = $1, cancellation_reason = $2, cancelled_at = $3, updated_at = NOW()
		WHERE id = $4`
	if _, err := tx.ExecContext(ctx, query, target, reason, now, booking.ID); err != nil {
		return 0, 0, err
	}

	booking.Status = target
	booking.CancellationReason = reason
	booking.CancelledAt = &now
	return refund, forfeit, nil
}

// Cancel cancels a booking on behalf of the parent or the venue and settles
// credits per the cancellation policy
func (r *BookingRepository) Cancel(ctx context.Context, bookingID int64, byVenue bool, reason *string, now time.Time) (*models.Booking, int, int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, 0, err
	}
	defer tx.Rollback()

	booking, err := lockBookingTx(ctx, tx, bookingID)
	if err != nil {
		return nil, 0, 0, err
	}
	if booking == nil {
		return nil, 0, 0, apperrors.ErrNotFound
	}

	var slotStart time.Time
	if err := tx.QueryRowContext(ctx, `SELECT starts_at FROM slots WHERE id = $1`, booking.SlotID).Scan(&slotStart); err != nil {
		return nil, 0, 0, err
	}

	refund, forfeit, err := cancelOneTx(ctx, tx, booking, slotStart, byVenue, reason, now)
	if err != nil {
		return nil, 0, 0, err
	}

	return booking, refund, forfeit, tx.Commit()
}

// MarkAttendance records one child's attendance. Idempotent: re-marking the
// same status is a no-op, a different status overwrites.
func (r *BookingRepository) MarkAttendance(ctx context.Context, bookingChildID int64, status models.AttendanceStatus, now time.Time) (*models.BookingChild, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	bc := &models.BookingChild{}
	var bookingStatus models.BookingStatus
	query := `
		SELECT bc.id, bc.booking_id, bc.child_id, bc.credits_charged, bc.attendance, bc.marked_at, b.status
		FROM booking_children bc
		JOIN bookings b ON b.id = bc.booking_id
		WHERE bc.id = $1
		FOR UPDATE OF bc`
	err = tx.QueryRowContext(ctx, query, bookingChildID).Scan(
		&bc.ID, &bc.BookingID, &bc.ChildID, &bc.CreditsCharged, &bc.Attendance, &bc.MarkedAt, &bookingStatus,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if !bookingStatus.Active() {
		return nil, apperrors.NewInvalidTransition(string(bookingStatus), string(bookingStatus))
	}

	if bc.Attendance != status {
		update := `UPDATE booking_children SET attendance = $1, marked_at = $2 WHERE id = $3`
		if _, err := tx.ExecContext(ctx, update, status, now, bookingChildID); err != nil {
			return nil, err
		}
		bc.Attendance = status
		bc.MarkedAt = &now
	}

	return bc, tx.Commit()
}

// CompleteSlot finalizes a session. Rejected while any attendee of an active
// booking is still pending; pending bookings themselves must be resolved by
// the venue first. Each confirmed booking ends as completed if at least one
// child was present, otherwise no_show.
func (r *BookingRepository) CompleteSlot(ctx context.Context, slotID int64, now time.Time) ([]models.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	slot, err := lockSlotTx(ctx, tx, slotID)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, apperrors.ErrNotFound
	}
	if slot.Status != models.SlotScheduled {
		return nil, apperrors.NewInvalidTransition(string(slot.Status), string(models.SlotCompleted))
	}

	bookings, err := listActiveBookingsTx(ctx, tx, slotID)
	if err != nil {
		return nil, err
	}

	for i := range bookings {
		if bookings[i].Status == models.BookingPending {
			return nil, apperrors.NewInvalidTransition(string(models.BookingPending), string(models.BookingCompleted))
		}
		if !models.AllAttendanceResolved(bookings[i].Children) {
			return nil, apperrors.ErrSessionNotResolved
		}
	}

	for i := range bookings {
		target := models.BookingNoShow
		if models.AnyPresent(bookings[i].Children) {
			target = models.BookingCompleted
		}
		query := `UPDATE bookings SET status = $1, completed_at = $2, updated_at = NOW() WHERE id = $3`
		if _, err := tx.ExecContext(ctx, query, target, now, bookings[i].ID); err != nil {
			return nil, err
		}
		bookings[i].Status = target
		bookings[i].CompletedAt = &now
	}

	slotQuery := `UPDATE slots SET status = $1, updated_at = NOW() WHERE id = $2`
	if _, err := tx.ExecContext(ctx, slotQuery, models.SlotCompleted, slotID); err != nil {
		return nil, err
	}

	return bookings, tx.Commit()
}

// CancelSlot cancels a whole session: every active booking is cancelled by
// the venue with a full refund and the waitlist queue is expired
func (r *BookingRepository) CancelSlot(ctx context.Context, slotID int64, reason *string, now time.Time) ([]models.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	slot, err := lockSlotTx(ctx, tx, slotID)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, apperrors.ErrNotFound
	}
	if slot.Status != models.SlotScheduled {
		return nil, apperrors.NewInvalidTransition(string(slot.Status), string(models.SlotCancelled))
	}

	bookings, err := listActiveBookingsTx(ctx, tx, slotID)
	if err != nil {
		return nil, err
	}

	for i := range bookings {
		if _, _, err := cancelOneTx(ctx, tx, &bookings[i], slot.StartsAt, true, reason, now); err != nil {
			return nil, err
		}
	}

	expireQuery := `
		UPDATE waitlist_entries
		SET status = 'expired', updated_at = NOW()
		WHERE slot_id = $1 AND status IN ('waiting', 'notified')`
	if _, err := tx.ExecContext(ctx, expireQuery, slotID); err != nil {
		return nil, err
	}

	slotQuery := `UPDATE slots SET status = $1, updated_at = NOW() WHERE id = $2`
	if _, err := tx.ExecContext(ctx, slotQuery, models.SlotCancelled, slotID); err != nil {
		return nil, err
	}

	return bookings, tx.Commit()
}

// listActiveBookingsTx loads active bookings with their children, locking
// the booking rows
func listActiveBookingsTx(ctx context.Context, tx *sql.Tx, slotID int64) ([]models.Booking, error) {
	var bookings []models.Booking
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE slot_id = $1 AND status IN ('pending', 'confirmed')
		ORDER BY id
		FOR UPDATE`

	rows, err := tx.QueryContext(ctx, query, slotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *booking)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range bookings {
		childQuery := `
			SELECT id, booking_id, child_id, credits_charged, attendance, marked_at
			FROM booking_children
			WHERE booking_id = $1
			ORDER BY id`
		childRows, err := tx.QueryContext(ctx, childQuery, bookings[i].ID)
		if err != nil {
			return nil, err
		}
		for childRows.Next() {
			var bc models.BookingChild
			if err := childRows.Scan(&bc.ID, &bc.BookingID, &bc.ChildID, &bc.CreditsCharged, &bc.Attendance, &bc.MarkedAt); err != nil {
				childRows.Close()
				return nil, err
			}
			bookings[i].Children = append(bookings[i].Children, bc)
		}
		if err := childRows.Err(); err != nil {
			childRows.Close()
			return nil, err
		}
		childRows.Close()
	}

	return bookings, nil
}
