package repository

import (
	"context"

	"kidbook/internal/database"
	"kidbook/internal/models"
)

type ReportRepository struct {
	db *database.DB
}

func NewReportRepository(db *database.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// VenueReport aggregates a venue's bookings straight from the booking store.
// Attendance rate is present children over finally marked children of
// finished sessions.
func (r *ReportRepository) VenueReport(ctx context.Context, venueID int64) (*models.VenueReportResponse, error) {
	report := &models.VenueReportResponse{
		VenueID:  venueID,
		Bookings: make(map[string]int64),
	}

	statusQuery := `
		SELECT b.status, COUNT(*)
		FROM bookings b
		JOIN slots s ON s.id = b.slot_id
		JOIN activities a ON a.id = s.activity_id
		WHERE a.venue_id = $1
		GROUP BY b.status`

	rows, err := r.db.QueryContext(ctx, statusQuery, venueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		report.Bookings[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	attendanceQuery := `
		SELECT COUNT(*) FILTER (WHERE bc.attendance = 'present'),
		       COUNT(*) FILTER (WHERE bc.attendance IN ('present', 'no_show'))
		FROM booking_children bc
		JOIN bookings b ON b.id = bc.booking_id
		JOIN slots s ON s.id = b.slot_id
		JOIN activities a ON a.id = s.activity_id
		WHERE a.venue_id = $1 AND b.status IN ('completed', 'no_show')`

	var present, marked int64
	if err := r.db.QueryRowContext(ctx, attendanceQuery, venueID).Scan(&present, &marked); err != nil {
		return nil, err
	}
	if marked > 0 {
		report.AttendanceRate = float64(present) / float64(marked)
	}

	waitlistQuery := `
		SELECT COUNT(*)
		FROM waitlist_entries w
		JOIN slots s ON s.id = w.slot_id
		JOIN activities a ON a.id = s.activity_id
		WHERE a.venue_id = $1 AND w.status IN ('waiting', 'notified')`

	if err := r.db.QueryRowContext(ctx, waitlistQuery, venueID).Scan(&report.WaitlistDepth); err != nil {
		return nil, err
	}

	return report, nil
}
