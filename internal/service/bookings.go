package service

import (
	"context"
	"fmt"
	"time"

	"kidbook/internal/cache"
	apperrors "kidbook/internal/errors"
	"kidbook/internal/logger"
	"kidbook/internal/messaging"
	"kidbook/internal/metrics"
	"kidbook/internal/models"
	"kidbook/internal/repository"
)

type BookingService struct {
	bookingRepo  *repository.BookingRepository
	slotRepo     *repository.SlotRepository
	userRepo     *repository.UserRepository
	waitlist     *WaitlistService
	natsClient   *messaging.NATSClient
	valkeyClient *cache.ValkeyClient
}

func NewBookingService(bookingRepo *repository.BookingRepository, slotRepo *repository.SlotRepository, userRepo *repository.UserRepository, waitlist *WaitlistService, natsClient *messaging.NATSClient, valkeyClient *cache.ValkeyClient) *BookingService {
	return &BookingService{
		bookingRepo:  bookingRepo,
		slotRepo:     slotRepo,
		userRepo:     userRepo,
		waitlist:     waitlist,
		natsClient:   natsClient,
		valkeyClient: valkeyClient,
	}
}

func (s *BookingService) Create(ctx context.Context, parentID int64, req *models.CreateBookingRequest) (*models.CreateBookingResponse, error) {
	// Children must exist and belong to the booking parent
	for _, childID := range req.ChildIDs {
		child, err := s.userRepo.GetChild(ctx, childID)
		if err != nil {
			return nil, fmt.Errorf("failed to get child: %w", err)
		}
		if child == nil {
			return nil, apperrors.ErrNotFound
		}
		if child.ParentID != parentID {
			return nil, apperrors.ErrForbidden
		}
	}

	booking, err := s.bookingRepo.Create(ctx, parentID, req.SlotID, req.ChildIDs, time.Now())
	if err != nil {
		return nil, err
	}

	metrics.BookingsCreated.Inc()
	metrics.CreditsCharged.Add(float64(booking.TotalCredits))
	s.invalidateAvailability(ctx, booking.SlotID)

	eventData := models.BookingCreatedEvent{
		BookingID:    booking.ID,
		SlotID:       booking.SlotID,
		ParentID:     booking.ParentID,
		TotalCredits: booking.TotalCredits,
		Timestamp:    time.Now(),
	}
	if err := s.natsClient.Publish(models.EventBookingCreated, eventData); err != nil {
		// Log error but don't fail the operation
		logger.WithContext(ctx).Error("Failed to publish booking created event",
			"error", err,
			"booking_id", booking.ID,
			"event_type", "booking.created")
	}

	return &models.CreateBookingResponse{ID: booking.ID, TotalCredits: booking.TotalCredits}, nil
}

func (s *BookingService) Get(ctx context.Context, id int64) (*models.BookingResponse, error) {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return nil, apperrors.ErrNotFound
	}

	slot, err := s.slotRepo.GetByID(ctx, booking.SlotID)
	if err != nil {
		return nil, fmt.Errorf("failed to get slot: %w", err)
	}
	if slot == nil {
		return nil, apperrors.ErrNotFound
	}

	return &models.BookingResponse{
		Booking:      *booking,
		CanCancelNow: booking.CanCancel(slot.StartsAt, time.Now()),
	}, nil
}

func (s *BookingService) ListByParent(ctx context.Context, parentID int64) ([]models.Booking, error) {
	bookings, err := s.bookingRepo.GetByParentID(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings: %w", err)
	}
	return bookings, nil
}

func (s *BookingService) ListBySlot(ctx context.Context, slotID int64) ([]models.Booking, error) {
	bookings, err := s.bookingRepo.GetBySlotID(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("failed to get slot bookings: %w", err)
	}
	return bookings, nil
}

// Confirm is the venue accepting a pending booking
func (s *BookingService) Confirm(ctx context.Context, bookingID int64) (*models.Booking, error) {
	booking, err := s.bookingRepo.Confirm(ctx, bookingID, time.Now())
	if err != nil {
		return nil, err
	}

	eventData := models.BookingConfirmedEvent{
		BookingID: booking.ID,
		SlotID:    booking.SlotID,
		ParentID:  booking.ParentID,
		Timestamp: time.Now(),
	}
	if err := s.natsClient.Publish(models.EventBookingConfirmed, eventData); err != nil {
		// Log error but don't fail the operation
		logger.WithContext(ctx).Error("Failed to publish booking confirmed event",
			"error", err,
			"booking_id", booking.ID,
			"event_type", "booking.confirmed")
	}

	return booking, nil
}

// Cancel cancels a booking and hands any freed capacity to the waitlist
func (s *BookingService) Cancel(ctx context.Context, actor *models.User, req *models.CancelBookingRequest) (*models.CancelBookingResponse, error) {
	booking, err := s.bookingRepo.GetByID(ctx, req.BookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return nil, apperrors.ErrNotFound
	}

	byVenue := actor.Role == models.RoleVenueAdmin
	if !byVenue && booking.ParentID != actor.UserID {
		return nil, apperrors.ErrForbidden
	}

	booking, refunded, forfeited, err := s.bookingRepo.Cancel(ctx, req.BookingID, byVenue, req.Reason, time.Now())
	if err != nil {
		return nil, err
	}

	cancelledBy := "parent"
	if byVenue {
		cancelledBy = "venue"
	}
	metrics.BookingsCancelled.WithLabelValues(cancelledBy).Inc()
	metrics.CreditsRefunded.Add(float64(refunded))
	s.invalidateAvailability(ctx, booking.SlotID)

	reason := ""
	if req.Reason != nil {
		reason = *req.Reason
	}
	eventData := models.BookingCancelledEvent{
		BookingID:        booking.ID,
		SlotID:           booking.SlotID,
		ParentID:         booking.ParentID,
		CancelledBy:      cancelledBy,
		Reason:           reason,
		RefundedCredits:  refunded,
		ForfeitedCredits: forfeited,
		Timestamp:        time.Now(),
	}
	if err := s.natsClient.Publish(models.EventBookingCancelled, eventData); err != nil {
		// Log error but don't fail the operation
		logger.WithContext(ctx).Error("Failed to publish booking cancelled event",
			"error", err,
			"booking_id", booking.ID,
			"event_type", "booking.cancelled")
	}

	// Freed spots go to the queue right away, ahead of the periodic sweep
	if err := s.waitlist.PromoteSlot(ctx, booking.SlotID); err != nil {
		logger.WithContext(ctx).Error("Failed to promote waitlist after cancellation",
			"error", err,
			"slot_id", booking.SlotID)
	}

	return &models.CancelBookingResponse{
		Booking:          booking,
		RefundedCredits:  refunded,
		ForfeitedCredits: forfeited,
	}, nil
}

// MarkAttendance records one child's attendance on an active booking
func (s *BookingService) MarkAttendance(ctx context.Context, req *models.MarkAttendanceRequest) (*models.BookingChild, error) {
	if !req.Status.Valid() || !req.Status.Final() {
		return nil, fmt.Errorf("attendance can only be marked present or no_show")
	}
	return s.bookingRepo.MarkAttendance(ctx, req.BookingChildID, req.Status, time.Now())
}

func (s *BookingService) invalidateAvailability(ctx context.Context, slotID int64) {
	if s.valkeyClient == nil {
		return
	}
	slot, err := s.slotRepo.GetByID(ctx, slotID)
	if err != nil || slot == nil {
		return
	}
	if err := s.valkeyClient.InvalidateSlotAvailability(ctx, slot.ActivityID); err != nil {
		logger.WithContext(ctx).Error("Failed to invalidate slot availability cache",
			"error", err,
			"activity_id", slot.ActivityID)
	}
}
