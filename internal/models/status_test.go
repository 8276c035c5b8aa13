package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBookingStatusTransitions(t *testing.T) {
	cases := []struct {
		from    BookingStatus
		to      BookingStatus
		allowed bool
	}{
		{BookingPending, BookingConfirmed, true},
		{BookingPending, BookingCancelledParent, true},
		{BookingPending, BookingCancelledVenue, true},
		{BookingPending, BookingCompleted, false},
		{BookingPending, BookingNoShow, false},
		{BookingConfirmed, BookingCompleted, true},
		{BookingConfirmed, BookingNoShow, true},
		{BookingConfirmed, BookingCancelledParent, true},
		{BookingConfirmed, BookingCancelledVenue, true},
		{BookingConfirmed, BookingPending, false},
		{BookingCompleted, BookingCancelledParent, false},
		{BookingNoShow, BookingConfirmed, false},
		{BookingCancelledParent, BookingConfirmed, false},
		{BookingCancelledVenue, BookingPending, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to),
			"transition %s -> %s", tc.from, tc.to)
	}
}

func TestBookingStatusPredicates(t *testing.T) {
	assert.True(t, BookingPending.Active())
	assert.True(t, BookingConfirmed.Active())
	assert.False(t, BookingCompleted.Active())
	assert.False(t, BookingCancelledParent.Active())

	assert.True(t, BookingCompleted.Terminal())
	assert.True(t, BookingNoShow.Terminal())
	assert.True(t, BookingCancelledVenue.Terminal())
	assert.False(t, BookingPending.Terminal())

	assert.True(t, BookingCancelledParent.Cancelled())
	assert.True(t, BookingCancelledVenue.Cancelled())
	assert.False(t, BookingNoShow.Cancelled())
}

func TestAttendanceStatus(t *testing.T) {
	assert.True(t, AttendancePending.Valid())
	assert.True(t, AttendancePresent.Valid())
	assert.True(t, AttendanceNoShow.Valid())
	assert.False(t, AttendanceStatus("late").Valid())

	assert.False(t, AttendancePending.Final())
	assert.True(t, AttendancePresent.Final())
	assert.True(t, AttendanceNoShow.Final())
}

func TestWaitlistStatusInQueue(t *testing.T) {
	assert.True(t, WaitlistWaiting.InQueue())
	assert.True(t, WaitlistNotified.InQueue())
	assert.False(t, WaitlistConverted.InQueue())
	assert.False(t, WaitlistExpired.InQueue())
}
