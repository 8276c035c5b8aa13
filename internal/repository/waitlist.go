package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"kidbook/internal/database"
	apperrors "kidbook/internal/errors"
	"kidbook/internal/models"
)

type WaitlistRepository struct {
	db *database.DB
}

func NewWaitlistRepository(db *database.DB) *WaitlistRepository {
	return &WaitlistRepository{db: db}
}

const waitlistColumns = `id, slot_id, parent_id, child_id, position, status, booking_id,
	       joined_at, notified_at, expires_at, created_at, updated_at`

func scanWaitlistEntry(scanner interface{ Scan(...interface{}) error }) (*models.WaitlistEntry, error) {
	entry := &models.WaitlistEntry{}
	err := scanner.Scan(
		&entry.ID,
		&entry.SlotID,
		&entry.ParentID,
		&entry.ChildID,
		&entry.Position,
		&entry.Status,
		&entry.BookingID,
		&entry.JoinedAt,
		&entry.NotifiedAt,
		&entry.ExpiresAt,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *WaitlistRepository) GetByID(ctx context.Context, id int64) (*models.WaitlistEntry, error) {
	query := `SELECT ` + waitlistColumns + ` FROM waitlist_entries WHERE id = $1`
	return scanWaitlistEntry(r.db.QueryRowContext(ctx, query, id))
}

// ListBySlot returns the live queue of a slot in position order
func (r *WaitlistRepository) ListBySlot(ctx context.Context, slotID int64) ([]models.WaitlistEntry, error) {
	query := `SELECT ` + waitlistColumns + ` FROM waitlist_entries
		WHERE slot_id = $1 AND status IN ('waiting', 'notified')
		ORDER BY position`
	return r.listEntries(ctx, query, slotID)
}

func (r *WaitlistRepository) ListByParent(ctx context.Context, parentID int64) ([]models.WaitlistEntry, error) {
	query := `SELECT ` + waitlistColumns + ` FROM waitlist_entries
		WHERE parent_id = $1
		ORDER BY created_at DESC`
	return r.listEntries(ctx, query, parentID)
}

func (r *WaitlistRepository) listEntries(ctx context.Context, query string, arg interface{}) ([]models.WaitlistEntry, error) {
	var entries []models.WaitlistEntry
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		entry, err := scanWaitlistEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}

	return entries, rows.Err()
}

// Join appends a parent+child to a full slot's queue. Joining an open slot is
// rejected, the parent should just book it.
func (r *WaitlistRepository) Join(ctx context.Context, parentID, slotID int64, childID string, now time.Time) (*models.WaitlistEntry, error) {
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
	if slot.Status != models.SlotScheduled || !now.Before(slot.StartsAt) {
		return nil, apperrors.ErrSlotClosed
	}

	active, err := activeChildrenCountTx(ctx, tx, slotID)
	if err != nil {
		return nil, err
	}
	holds, err := notifiedHoldsCountTx(ctx, tx, slotID)
	if err != nil {
		return nil, err
	}
	if active+holds < slot.Capacity {
		return nil, apperrors.ErrSlotNotFull
	}

	entry := &models.WaitlistEntry{
		SlotID:   slotID,
		ParentID: parentID,
		ChildID:  childID,
		Status:   models.WaitlistWaiting,
		JoinedAt: now,
	}

	query := `
		INSERT INTO waitlist_entries (slot_id, parent_id, child_id, position, status, joined_at)
		SELECT $1, $2, $3, COALESCE(MAX(position), 0) + 1, $4, $5
		FROM waitlist_entries
		WHERE slot_id = $1 AND status IN ('waiting', 'notified')
		RETURNING id, position, created_at, updated_at`

	err = tx.QueryRowContext(ctx, query, slotID, parentID, childID, entry.Status, entry.JoinedAt).
		Scan(&entry.ID, &entry.Position, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, apperrors.ErrDuplicateWaitlistEntry
		}
		return nil, err
	}

	return entry, tx.Commit()
}

// PromoteNext expires stale holds on a slot and hands freed capacity to the
// head of the queue. Returns the newly notified and newly expired entries so
// the caller can publish events for both.
func (r *WaitlistRepository) PromoteNext(ctx context.Context, slotID int64, now time.Time) (notified, expired []models.WaitlistEntry, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	slot, err := lockSlotTx(ctx, tx, slotID)
	if err != nil {
		return nil, nil, err
	}
	if slot == nil {
		return nil, nil, apperrors.ErrNotFound
	}

	expired, err = expireStaleHoldsTx(ctx, tx, slotID, now)
	if err != nil {
		return nil, nil, err
	}

	// Past-start and non-scheduled slots only shed stale holds, nobody gets
	// promoted into a session that cannot be booked anymore.
	if slot.Status != models.SlotScheduled || !now.Before(slot.StartsAt) {
		return nil, expired, tx.Commit()
	}

	active, err := activeChildrenCountTx(ctx, tx, slotID)
	if err != nil {
		return nil, nil, err
	}
	holds, err := notifiedHoldsCountTx(ctx, tx, slotID)
	if err != nil {
		return nil, nil, err
	}

	free := slot.Capacity - active - holds
	for free > 0 {
		query := `SELECT ` + waitlistColumns + ` FROM waitlist_entries
			WHERE slot_id = $1 AND status = 'waiting'
			ORDER BY position
			LIMIT 1
			FOR UPDATE`
		entry, err := scanWaitlistEntry(tx.QueryRowContext(ctx, query, slotID))
		if err != nil {
			return nil, nil, err
		}
		if entry == nil {
			break
		}

		deadline := models.HoldDeadline(now)
		update := `
			UPDATE waitlist_entries
			SET status = 'notified', notified_at = $1, expires_at = $2, updated_at = NOW()
			WHERE id = $3`
		if _, err := tx.ExecContext(ctx, update, now, deadline, entry.ID); err != nil {
			return nil, nil, err
		}

		entry.Status = models.WaitlistNotified
		entry.NotifiedAt = &now
		entry.ExpiresAt = &deadline
		notified = append(notified, *entry)
		free--
	}

	return notified, expired, tx.Commit()
}

// Convert turns a notified entry into a booking for its child, consuming the
// entry's own hold. A stale hold is expired on the spot and reported back.
func (r *WaitlistRepository) Convert(ctx context.Context, entryID int64, now time.Time) (*models.Booking, *models.WaitlistEntry, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	// Slot first, entry second. Every writer of one slot's queue takes the
	// slot lock before touching entry rows.
	var slotID int64
	err = tx.QueryRowContext(ctx, `SELECT slot_id FROM waitlist_entries WHERE id = $1`, entryID).Scan(&slotID)
	if err == sql.ErrNoRows {
		return nil, nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	slot, err := lockSlotTx(ctx, tx, slotID)
	if err != nil {
		return nil, nil, err
	}
	if slot == nil {
		return nil, nil, apperrors.ErrNotFound
	}

	query := `SELECT ` + waitlistColumns + ` FROM waitlist_entries WHERE id = $1 FOR UPDATE`
	entry, err := scanWaitlistEntry(tx.QueryRowContext(ctx, query, entryID))
	if err != nil {
		return nil, nil, err
	}
	if entry == nil {
		return nil, nil, apperrors.ErrNotFound
	}
	if entry.Status != models.WaitlistNotified {
		return nil, nil, apperrors.NewInvalidTransition(string(entry.Status), string(models.WaitlistConverted))
	}

	if entry.HoldExpired(now) {
		if err := markEntryExpiredTx(ctx, tx, entry, now); err != nil {
			return nil, nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, nil, err
		}
		return nil, entry, apperrors.ErrHoldExpired
	}

	booking, err := createBookingTx(ctx, tx, slot, entry.ParentID, []string{entry.ChildID}, now, true)
	if err != nil {
		return nil, nil, err
	}

	// createBookingTx already marked the entry converted via the slot+parent+
	// child match, reload it for the caller.
	entry, err = scanWaitlistEntry(tx.QueryRowContext(ctx, `SELECT `+waitlistColumns+` FROM waitlist_entries WHERE id = $1`, entryID))
	if err != nil {
		return nil, nil, err
	}

	return booking, entry, tx.Commit()
}

// SlotsWithStaleHolds lists slots holding notified entries past their
// conversion deadline
func (r *WaitlistRepository) SlotsWithStaleHolds(ctx context.Context, now time.Time) ([]int64, error) {
	var slotIDs []int64
	query := `
		SELECT DISTINCT slot_id
		FROM waitlist_entries
		WHERE status = 'notified' AND expires_at <= $1`

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		slotIDs = append(slotIDs, id)
	}

	return slotIDs, rows.Err()
}

func expireStaleHoldsTx(ctx context.Context, tx *sql.Tx, slotID int64, now time.Time) ([]models.WaitlistEntry, error) {
	var stale []models.WaitlistEntry
	query := `
		UPDATE waitlist_entries
		SET status = 'expired', updated_at = NOW()
		WHERE slot_id = $1 AND status = 'notified' AND expires_at <= $2
		RETURNING ` + waitlistColumns

	rows, err := tx.QueryContext(ctx, query, slotID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		entry, err := scanWaitlistEntry(rows)
		if err != nil {
			return nil, err
		}
		stale = append(stale, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(stale) > 0 {
		if err := renumberQueueTx(ctx, tx, slotID); err != nil {
			return nil, err
		}
	}

	return stale, nil
}

func markEntryExpiredTx(ctx context.Context, tx *sql.Tx, entry *models.WaitlistEntry, now time.Time) error {
	query := `UPDATE waitlist_entries SET status = 'expired', updated_at = NOW() WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, entry.ID); err != nil {
		return err
	}
	entry.Status = models.WaitlistExpired
	entry.UpdatedAt = now
	return renumberQueueTx(ctx, tx, entry.SlotID)
}

// convertEntriesForBookingTx closes out live queue entries satisfied by a
// fresh booking for the same slot, parent and children
func convertEntriesForBookingTx(ctx context.Context, tx *sql.Tx, slotID, parentID int64, childIDs []string, bookingID int64) error {
	query := `
		UPDATE waitlist_entries
		SET status = 'converted', booking_id = $1, updated_at = NOW()
		WHERE slot_id = $2 AND parent_id = $3 AND child_id = ANY($4::uuid[])
		  AND status IN ('waiting', 'notified')`

	res, err := tx.ExecContext(ctx, query, bookingID, slotID, parentID, pq.Array(childIDs))
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return renumberQueueTx(ctx, tx, slotID)
	}
	return nil
}

// renumberQueueTx restores contiguous 1-based positions after removals
func renumberQueueTx(ctx context.Context, tx *sql.Tx, slotID int64) error {
	query := `
		UPDATE waitlist_entries w
		SET position = ranked.rn, updated_at = NOW()
		FROM (
		    SELECT id, ROW_NUMBER() OVER (ORDER BY position) AS rn
		    FROM waitlist_entries
		    WHERE slot_id = $1 AND status IN ('waiting', 'notified')
		) ranked
		WHERE w.id = ranked.id AND w.position <> ranked.rn`

	_, err := tx.ExecContext(ctx, query, slotID)
	return err
}
