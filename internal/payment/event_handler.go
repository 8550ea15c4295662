package payment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/venue-management/internal/core/events"
	"github.com/frahmantamala/venue-management/internal/notification"
	"github.com/frahmantamala/venue-management/internal/staff"
)

type OwnerDirectory interface {
	ListActiveEmailsByRole(ctx context.Context, venueID string, role staff.Role) ([]string, error)
}

// EventHandler tells venue owners about payment onboarding changes. Delivery
// is best effort: failures are logged and never reach the webhook caller.
type EventHandler struct {
	owners   OwnerDirectory
	venues   staff.VenueLookup
	notifier notification.Enqueuer
	logger   *slog.Logger
}

func NewEventHandler(owners OwnerDirectory, venues staff.VenueLookup, notifier notification.Enqueuer, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		owners:   owners,
		venues:   venues,
		notifier: notifier,
		logger:   logger,
	}
}

func (h *EventHandler) HandleAccountUpdated(ctx context.Context, event events.Event) error {
	updated, ok := event.(*events.PaymentAccountUpdatedEvent)
	if !ok {
		h.logger.Error("invalid event type for account updated handler", "event_type", event.EventType())
		return fmt.Errorf("expected PaymentAccountUpdatedEvent, got %T", event)
	}

	venueName, err := h.venues.VenueName(ctx, updated.VenueID)
	if err != nil {
		h.logger.Warn("skipping owner notification, venue lookup failed", "venue_id", updated.VenueID, "error", err)
		return nil
	}

	emails, err := h.owners.ListActiveEmailsByRole(ctx, updated.VenueID, staff.RoleOwner)
	if err != nil {
		h.logger.Warn("skipping owner notification, owner lookup failed", "venue_id", updated.VenueID, "error", err)
		return nil
	}

	for _, email := range emails {
		msg := notification.NewMessage(email, notification.KindPaymentAccountStatus, map[string]string{
			"venue_name": venueName,
			"status":     updated.NewStatus,
		})
		if err := h.notifier.Enqueue(msg); err != nil {
			h.logger.Warn("failed to enqueue owner notification",
				"venue_id", updated.VenueID,
				"message_id", msg.ID,
				"error", err)
		}
	}

	h.logger.Info("owners notified of payment status change",
		"venue_id", updated.VenueID,
		"status", updated.NewStatus,
		"recipients", len(emails),
		"event_id", updated.EventID())
	return nil
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypePaymentAccountUpdated, h.HandleAccountUpdated)

	h.logger.Info("payment event handlers registered",
		"handlers", []string{events.EventTypePaymentAccountUpdated})
}
