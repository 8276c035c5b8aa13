package repository

import (
	"kidbook/internal/database"
)

type Repositories struct {
	Users      *UserRepository
	Activities *ActivityRepository
	Slots      *SlotRepository
	Bookings   *BookingRepository
	Waitlist   *WaitlistRepository
	Credits    *CreditRepository
	Reports    *ReportRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Users:      NewUserRepository(db),
		Activities: NewActivityRepository(db),
		Slots:      NewSlotRepository(db),
		Bookings:   NewBookingRepository(db),
		Waitlist:   NewWaitlistRepository(db),
		Credits:    NewCreditRepository(db),
		Reports:    NewReportRepository(db),
	}
}
