package service

import (
	"context"
	"encoding/json"
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

type SlotService struct {
	slotRepo     *repository.SlotRepository
	activityRepo *repository.ActivityRepository
	bookingRepo  *repository.BookingRepository
	natsClient   *messaging.NATSClient
	valkeyClient *cache.ValkeyClient
}

func NewSlotService(slotRepo *repository.SlotRepository, activityRepo *repository.ActivityRepository, bookingRepo *repository.BookingRepository, natsClient *messaging.NATSClient, valkeyClient *cache.ValkeyClient) *SlotService {
	return &SlotService{
		slotRepo:     slotRepo,
		activityRepo: activityRepo,
		bookingRepo:  bookingRepo,
		natsClient:   natsClient,
		valkeyClient: valkeyClient,
	}
}

func (s *SlotService) Create(ctx context.Context, req *models.CreateSlotRequest) (*models.CreateSlotResponse, error) {
	activity, err := s.activityRepo.GetByID(ctx, req.ActivityID)
	if err != nil {
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	if activity == nil {
		return nil, apperrors.ErrNotFound
	}
	if !req.EndsAt.After(req.StartsAt) {
		return nil, fmt.Errorf("slot must end after it starts")
	}

	slot := &models.Slot{
		ActivityID: req.ActivityID,
		StartsAt:   req.StartsAt,
		EndsAt:     req.EndsAt,
		Capacity:   req.Capacity,
	}
	if err := s.slotRepo.Create(ctx, slot); err != nil {
		return nil, fmt.Errorf("failed to create slot: %w", err)
	}

	s.invalidateAvailability(ctx, req.ActivityID)

	return &models.CreateSlotResponse{ID: slot.ID}, nil
}

func (s *SlotService) GetByID(ctx context.Context, id int64) (*models.Slot, error) {
	slot, err := s.slotRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get slot: %w", err)
	}
	if slot == nil {
		return nil, apperrors.ErrNotFound
	}
	return slot, nil
}

// Availability lists an activity's slots with live occupancy. The list is
// served from Valkey under a short TTL, booking mutations invalidate it.
func (s *SlotService) Availability(ctx context.Context, activityID int64) (json.RawMessage, error) {
	if s.valkeyClient != nil {
		if data, err := s.valkeyClient.GetSlotAvailabilityRaw(ctx, activityID); err == nil {
			return data, nil
		}
	}

	items, err := s.slotRepo.ListAvailability(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list slot availability: %w", err)
	}

	response := models.SlotAvailabilityResponse(items)
	payload, err := json.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal availability: %w", err)
	}

	if s.valkeyClient != nil {
		if err := s.valkeyClient.SetSlotAvailability(ctx, activityID, response); err != nil {
			logger.WithContext(ctx).Error("Failed to cache slot availability",
				"error", err,
				"activity_id", activityID)
		}
	}

	return payload, nil
}

// Cancel calls off a whole session: every active booking gets a full refund
// and the waitlist queue is closed out
func (s *SlotService) Cancel(ctx context.Context, slotID int64, reason *string) ([]models.Booking, error) {
	cancelled, err := s.bookingRepo.CancelSlot(ctx, slotID, reason, time.Now())
	if err != nil {
		return nil, err
	}

	reasonText := ""
	if reason != nil {
		reasonText = *reason
	}
	for i := range cancelled {
		metrics.BookingsCancelled.WithLabelValues("venue").Inc()
		metrics.CreditsRefunded.Add(float64(cancelled[i].TotalCredits))

		eventData := models.BookingCancelledEvent{
			BookingID:       cancelled[i].ID,
			SlotID:          slotID,
			ParentID:        cancelled[i].ParentID,
			CancelledBy:     "venue",
			Reason:          reasonText,
			RefundedCredits: cancelled[i].TotalCredits,
			Timestamp:       time.Now(),
		}
		if err := s.natsClient.Publish(models.EventBookingCancelled, eventData); err != nil {
			// Log error but don't fail the operation
			logger.WithContext(ctx).Error("Failed to publish booking cancelled event",
				"error", err,
				"booking_id", cancelled[i].ID,
				"event_type", "booking.cancelled")
		}
	}

	s.invalidateAvailabilityBySlot(ctx, slotID)

	return cancelled, nil
}

// Complete finalizes a held session and settles each booking's outcome
func (s *SlotService) Complete(ctx context.Context, slotID int64) ([]models.Booking, error) {
	finished, err := s.bookingRepo.CompleteSlot(ctx, slotID, time.Now())
	if err != nil {
		return nil, err
	}

	for i := range finished {
		eventData := models.BookingCompletedEvent{
			BookingID: finished[i].ID,
			SlotID:    slotID,
			ParentID:  finished[i].ParentID,
			Status:    string(finished[i].Status),
			Timestamp: time.Now(),
		}
		if err := s.natsClient.Publish(models.EventBookingCompleted, eventData); err != nil {
			// Log error but don't fail the operation
			logger.WithContext(ctx).Error("Failed to publish booking completed event",
				"error", err,
				"booking_id", finished[i].ID,
				"event_type", "booking.completed")
		}
	}

	s.invalidateAvailabilityBySlot(ctx, slotID)

	return finished, nil
}

func (s *SlotService) invalidateAvailability(ctx context.Context, activityID int64) {
	if s.valkeyClient == nil {
		return
	}
	if err := s.valkeyClient.InvalidateSlotAvailability(ctx, activityID); err != nil {
		logger.WithContext(ctx).Error("Failed to invalidate slot availability cache",
			"error", err,
			"activity_id", activityID)
	}
}

func (s *SlotService) invalidateAvailabilityBySlot(ctx context.Context, slotID int64) {
	slot, err := s.slotRepo.GetByID(ctx, slotID)
	if err != nil || slot == nil {
		return
	}
	s.invalidateAvailability(ctx, slot.ActivityID)
}
