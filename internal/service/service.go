package service

import (
	"kidbook/internal/cache"
	"kidbook/internal/messaging"
	"kidbook/internal/repository"
	"kidbook/internal/search"
)

type Services struct {
	Activities *ActivityService
	Slots      *SlotService
	Bookings   *BookingService
	Waitlist   *WaitlistService
	Credits    *CreditService
	Reports    *ReportService
}

func NewServices(repos *repository.Repositories, natsClient *messaging.NATSClient, esClient *search.ElasticsearchClient, valkeyClient *cache.ValkeyClient) *Services {
	activityService := NewActivityService(repos.Activities, esClient)
	slotService := NewSlotService(repos.Slots, repos.Activities, repos.Bookings, natsClient, valkeyClient)
	waitlistService := NewWaitlistService(repos.Waitlist, repos.Users, repos.Slots, natsClient, valkeyClient)
	bookingService := NewBookingService(repos.Bookings, repos.Slots, repos.Users, waitlistService, natsClient, valkeyClient)
	creditService := NewCreditService(repos.Credits, natsClient)
	reportService := NewReportService(repos.Reports)

	return &Services{
		Activities: activityService,
		Slots:      slotService,
		Bookings:   bookingService,
		Waitlist:   waitlistService,
		Credits:    creditService,
		Reports:    reportService,
	}
}
