package repository

import (
	"context"
	"database/sql"

	"kidbook/internal/database"
	"kidbook/internal/models"
)

type SlotRepository struct {
	db *database.DB
}

func NewSlotRepository(db *database.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

const slotColumns = `id, activity_id, starts_at, ends_at, capacity, status, created_at, updated_at`

func (r *SlotRepository) Create(ctx context.Context, slot *models.Slot) error {
	query := `
		INSERT INTO slots (activity_id, starts_at, ends_at, capacity, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		slot.ActivityID,
		slot.StartsAt,
		slot.EndsAt,
		slot.Capacity,
		models.SlotScheduled,
	).Scan(&slot.ID, &slot.CreatedAt, &slot.UpdatedAt)

	return err
}

func (r *SlotRepository) GetByID(ctx context.Context, id int64) (*models.Slot, error) {
	slot := &models.Slot{}
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&slot.ID,
		&slot.ActivityID,
		&slot.StartsAt,
		&slot.EndsAt,
		&slot.Capacity,
		&slot.Status,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return slot, err
}

// ListAvailability returns slots of an activity together with the number of
// child spots taken by active bookings
func (r *SlotRepository) ListAvailability(ctx context.Context, activityID int64) ([]models.SlotAvailabilityItem, error) {
	var items []models.SlotAvailabilityItem
	query := `
		SELECT s.id, s.activity_id, s.starts_at, s.ends_at, s.capacity, s.status,
		       COALESCE((
		           SELECT COUNT(*)
		           FROM booking_children bc
		           JOIN bookings b ON b.id = bc.booking_id
		           WHERE b.slot_id = s.id AND b.status IN ('pending', 'confirmed')
		       ), 0) AS booked_count
		FROM slots s
		WHERE s.activity_id = $1
		ORDER BY s.starts_at`

	rows, err := r.db.QueryContext(ctx, query, activityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item models.SlotAvailabilityItem
		err := rows.Scan(
			&item.ID,
			&item.ActivityID,
			&item.StartsAt,
			&item.EndsAt,
			&item.Capacity,
			&item.Status,
			&item.BookedCount,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// lockSlotTx takes the per-slot lock. Capacity checks and waitlist promotion
// both read-then-write shared counters, so everything touching one slot's
// capacity serializes on this row.
func lockSlotTx(ctx context.Context, tx *sql.Tx, slotID int64) (*models.Slot, error) {
	slot := &models.Slot{}
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1 FOR UPDATE`

	err := tx.QueryRowContext(ctx, query, slotID).Scan(
		&slot.ID,
		&slot.ActivityID,
		&slot.StartsAt,
		&slot.EndsAt,
		&slot.Capacity,
		&slot.Status,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return slot, nil
}

// activeChildrenCountTx counts child spots taken by active bookings
func activeChildrenCountTx(ctx context.Context, tx *sql.Tx, slotID int64) (int, error) {
	var count int
	query := `
		SELECT COUNT(*)
		FROM booking_children bc
		JOIN bookings b ON b.id = bc.booking_id
		WHERE b.slot_id = $1 AND b.status IN ('pending', 'confirmed')`

	err := tx.QueryRowContext(ctx, query, slotID).Scan(&count)
	return count, err
}

// notifiedHoldsCountTx counts waitlist entries currently holding freed
// capacity with a live notification
func notifiedHoldsCountTx(ctx context.Context, tx *sql.Tx, slotID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM waitlist_entries WHERE slot_id = $1 AND status = 'notified'`
	err := tx.QueryRowContext(ctx, query, slotID).Scan(&count)
	return count, err
}
