package consumers

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/stan.go"

	"kidbook/internal/external"
	"kidbook/internal/models"
	"kidbook/internal/repository"
)

type Handlers struct {
	repos        *repository.Repositories
	notifyClient *external.NotifyClient
}

func NewHandlers(repos *repository.Repositories, notifyClient *external.NotifyClient) *Handlers {
	return &Handlers{
		repos:        repos,
		notifyClient: notifyClient,
	}
}

func (h *Handlers) HandleBookingConfirmed(m *stan.Msg) {
	var event models.BookingConfirmedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal booking confirmed event", "error", err)
		return
	}

	slog.Info("Processing booking confirmed event", "booking_id", event.BookingID)

	h.send(event.ParentID, external.TemplateBookingConfirmed, map[string]interface{}{
		"booking_id": event.BookingID,
		"slot_id":    event.SlotID,
	})

	m.Ack()
}

func (h *Handlers) HandleBookingCancelled(m *stan.Msg) {
	var event models.BookingCancelledEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal booking cancelled event", "error", err)
		return
	}

	slog.Info("Processing booking cancelled event",
		"booking_id", event.BookingID,
		"cancelled_by", event.CancelledBy)

	// Родителя уведомляем только о чужих отменах
	if event.CancelledBy == "venue" {
		h.send(event.ParentID, external.TemplateBookingCancelled, map[string]interface{}{
			"booking_id":       event.BookingID,
			"slot_id":          event.SlotID,
			"reason":           event.Reason,
			"refunded_credits": event.RefundedCredits,
		})
	}

	m.Ack()
}

func (h *Handlers) HandleWaitlistNotified(m *stan.Msg) {
	var event models.WaitlistNotifiedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal waitlist notified event", "error", err)
		return
	}

	slog.Info("Processing waitlist notified event",
		"entry_id", event.EntryID,
		"slot_id", event.SlotID)

	h.send(event.ParentID, external.TemplateWaitlistOffer, map[string]interface{}{
		"entry_id":   event.EntryID,
		"slot_id":    event.SlotID,
		"child_id":   event.ChildID,
		"expires_at": event.ExpiresAt,
	})

	m.Ack()
}

func (h *Handlers) HandleWaitlistExpired(m *stan.Msg) {
	var event models.WaitlistExpiredEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal waitlist expired event", "error", err)
		return
	}

	// Просроченный холд фиксируем только в логах, писем не шлём
	slog.Info("Waitlist hold expired",
		"entry_id", event.EntryID,
		"slot_id", event.SlotID)

	m.Ack()
}

func (h *Handlers) HandleCreditExpired(m *stan.Msg) {
	var event models.CreditExpiredEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal credit expired event", "error", err)
		return
	}

	slog.Info("Processing credit expired event",
		"account_id", event.AccountID,
		"amount", event.Amount)

	if event.Amount > 0 {
		h.send(event.UserID, external.TemplateCreditsExpired, map[string]interface{}{
			"account_id": event.AccountID,
			"amount":     event.Amount,
		})
	}

	m.Ack()
}

func (h *Handlers) send(recipientID int64, template string, data map[string]interface{}) {
	if h.notifyClient == nil {
		return
	}

	user, err := h.repos.Users.GetByID(context.Background(), recipientID)
	if err != nil {
		slog.Error("Failed to load notification recipient",
			"error", err,
			"user_id", recipientID,
			"template", template)
		return
	}
	if !notifiable(user) {
		// Удалённым и деактивированным пользователям не шлём
		slog.Info("Skipping notification",
			"user_id", recipientID,
			"template", template)
		return
	}

	n := external.Notification{
		RecipientID: recipientID,
		Email:       user.Email,
		Template:    template,
		Data:        data,
	}
	if _, err := h.notifyClient.Send(n); err != nil {
		// Доставка не критична, событие уже обработано
		slog.Error("Failed to send notification",
			"error", err,
			"template", n.Template,
			"recipient_id", n.RecipientID)
	}
}

// notifiable отсекает получателей, которым гейтвей писать не должен
func notifiable(user *models.User) bool {
	return user != nil && user.IsActive
}
