package service

import (
	"context"
	"errors"
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

type WaitlistService struct {
	waitlistRepo *repository.WaitlistRepository
	userRepo     *repository.UserRepository
	slotRepo     *repository.SlotRepository
	natsClient   *messaging.NATSClient
	valkeyClient *cache.ValkeyClient
}

func NewWaitlistService(waitlistRepo *repository.WaitlistRepository, userRepo *repository.UserRepository, slotRepo *repository.SlotRepository, natsClient *messaging.NATSClient, valkeyClient *cache.ValkeyClient) *WaitlistService {
	return &WaitlistService{
		waitlistRepo: waitlistRepo,
		userRepo:     userRepo,
		slotRepo:     slotRepo,
		natsClient:   natsClient,
		valkeyClient: valkeyClient,
	}
}

func (s *WaitlistService) Join(ctx context.Context, parentID int64, req *models.JoinWaitlistRequest) (*models.JoinWaitlistResponse, error) {
	child, err := s.userRepo.GetChild(ctx, req.ChildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	if child == nil {
		return nil, apperrors.ErrNotFound
	}
	if child.ParentID != parentID {
		return nil, apperrors.ErrForbidden
	}

	entry, err := s.waitlistRepo.Join(ctx, parentID, req.SlotID, req.ChildID, time.Now())
	if err != nil {
		return nil, err
	}

	eventData := models.WaitlistJoinedEvent{
		EntryID:   entry.ID,
		SlotID:    entry.SlotID,
		ParentID:  entry.ParentID,
		ChildID:   entry.ChildID,
		Position:  entry.Position,
		Timestamp: time.Now(),
	}
	if err := s.natsClient.Publish(models.EventWaitlistJoined, eventData); err != nil {
		// Log error but don't fail the operation
		logger.WithContext(ctx).Error("Failed to publish waitlist joined event",
			"error", err,
			"entry_id", entry.ID,
			"event_type", "waitlist.joined")
	}

	return &models.JoinWaitlistResponse{ID: entry.ID, Position: entry.Position}, nil
}

func (s *WaitlistService) ListBySlot(ctx context.Context, slotID int64) ([]models.WaitlistEntry, error) {
	entries, err := s.waitlistRepo.ListBySlot(ctx, slotID)
	if err != nil {
		return nil, err
	}

	// Позиции после каждого удаления перенумеровываются, дыра здесь - баг
	if err := models.VerifyQueuePositions(entries); err != nil {
		logger.WithContext(ctx).Error("Waitlist queue positions are not contiguous",
			"error", err,
			"slot_id", slotID)
	}

	return entries, nil
}

func (s *WaitlistService) ListByParent(ctx context.Context, parentID int64) ([]models.WaitlistEntry, error) {
	return s.waitlistRepo.ListByParent(ctx, parentID)
}

// Convert turns a notified hold into a booking. A hold found expired is
// finalized as such before the error comes back.
func (s *WaitlistService) Convert(ctx context.Context, parentID int64, req *models.ConvertWaitlistRequest) (*models.CreateBookingResponse, error) {
	entry, err := s.waitlistRepo.GetByID(ctx, req.EntryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get waitlist entry: %w", err)
	}
	if entry == nil {
		return nil, apperrors.ErrNotFound
	}
	if entry.ParentID != parentID {
		return nil, apperrors.ErrForbidden
	}

	booking, entry, err := s.waitlistRepo.Convert(ctx, req.EntryID, time.Now())
	if errors.Is(err, apperrors.ErrHoldExpired) {
		metrics.WaitlistExpirations.Inc()
		s.publishExpired(ctx, *entry)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	metrics.BookingsCreated.Inc()
	metrics.CreditsCharged.Add(float64(booking.TotalCredits))
	s.invalidateAvailability(ctx, booking.SlotID)

	eventData := models.WaitlistConvertedEvent{
		EntryID:   entry.ID,
		SlotID:    entry.SlotID,
		BookingID: booking.ID,
		ParentID:  entry.ParentID,
		Timestamp: time.Now(),
	}
	if err := s.natsClient.Publish(models.EventWaitlistConverted, eventData); err != nil {
		// Log error but don't fail the operation
		logger.WithContext(ctx).Error("Failed to publish waitlist converted event",
			"error", err,
			"entry_id", entry.ID,
			"event_type", "waitlist.converted")
	}

	return &models.CreateBookingResponse{ID: booking.ID, TotalCredits: booking.TotalCredits}, nil
}

// PromoteSlot expires stale holds on one slot and notifies the queue head
// about freed capacity
func (s *WaitlistService) PromoteSlot(ctx context.Context, slotID int64) error {
	notified, expired, err := s.waitlistRepo.PromoteNext(ctx, slotID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to promote waitlist for slot %d: %w", slotID, err)
	}

	for _, entry := range expired {
		metrics.WaitlistExpirations.Inc()
		s.publishExpired(ctx, entry)
	}

	for _, entry := range notified {
		metrics.WaitlistPromotions.Inc()
		eventData := models.WaitlistNotifiedEvent{
			EntryID:   entry.ID,
			SlotID:    entry.SlotID,
			ParentID:  entry.ParentID,
			ChildID:   entry.ChildID,
			ExpiresAt: *entry.ExpiresAt,
			Timestamp: time.Now(),
		}
		if err := s.natsClient.Publish(models.EventWaitlistNotified, eventData); err != nil {
			logger.WithContext(ctx).Error("Failed to publish waitlist notified event",
				"error", err,
				"entry_id", entry.ID,
				"event_type", "waitlist.notified")
		}
	}

	return nil
}

// SweepExpiredHolds finds every slot with overdue holds and reruns promotion
// on it. Called periodically by the background worker.
func (s *WaitlistService) SweepExpiredHolds(ctx context.Context) (int, error) {
	slotIDs, err := s.waitlistRepo.SlotsWithStaleHolds(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to find slots with stale holds: %w", err)
	}

	for _, slotID := range slotIDs {
		if err := s.PromoteSlot(ctx, slotID); err != nil {
			// Log error but keep sweeping the remaining slots
			logger.WithContext(ctx).Error("Failed to process stale holds",
				"error", err,
				"slot_id", slotID)
		}
	}

	return len(slotIDs), nil
}

func (s *WaitlistService) publishExpired(ctx context.Context, entry models.WaitlistEntry) {
	eventData := models.WaitlistExpiredEvent{
		EntryID:   entry.ID,
		SlotID:    entry.SlotID,
		ParentID:  entry.ParentID,
		Timestamp: time.Now(),
	}
	if err := s.natsClient.Publish(models.EventWaitlistExpired, eventData); err != nil {
		logger.WithContext(ctx).Error("Failed to publish waitlist expired event",
			"error", err,
			"entry_id", entry.ID,
			"event_type", "waitlist.expired")
	}
}

func (s *WaitlistService) invalidateAvailability(ctx context.Context, slotID int64) {
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
