package realtime

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sitewatch/sitewatch-api/internal/models"
)

// pushPayload carries a notification's public fields over the wire. The
// recipient is implied by the target connection set, not repeated here.
type pushPayload struct {
	ID        string                      `json:"id"`
	Title     string                      `json:"title"`
	Message   string                      `json:"message"`
	Category  models.NotificationCategory `json:"category"`
	Priority  models.NotificationPriority `json:"priority"`
	IsRead    bool                        `json:"is_read"`
	ActionURL *string                     `json:"action_url,omitempty"`
	CreatedAt time.Time                   `json:"created_at"`
}

// HubNotifier pushes freshly persisted notifications to the recipient's live
// connections. An offline recipient is the expected path, not an error.
type HubNotifier struct {
	hub    *Hub
	logger zerolog.Logger
}

func NewHubNotifier(hub *Hub, logger zerolog.Logger) *HubNotifier {
	return &HubNotifier{
		hub:    hub,
		logger: logger.With().Str("notifier", "realtime").Logger(),
	}
}

func (n *HubNotifier) Notify(_ context.Context, notif models.Notification) error {
	if !n.hub.IsOnline(notif.RecipientID) {
		return nil
	}

	err := n.hub.SendToUser(notif.RecipientID, ServerMessage{
		Type: msgTypeNewNotification,
		Data: pushPayload{
			ID:        notif.ID,
			Title:     notif.Title,
			Message:   notif.Message,
			Category:  notif.Category,
			Priority:  notif.Priority,
			IsRead:    false,
			ActionURL: notif.ActionURL,
			CreatedAt: notif.CreatedAt,
		},
	})
	if err != nil {
		return err
	}

	n.logger.Debug().
		Str("notification_id", notif.ID).
		Str("recipient_id", notif.RecipientID).
		Int("connections", n.hub.ConnectionCount(notif.RecipientID)).
		Msg("notification pushed")
	return nil
}

func (n *HubNotifier) String() string {
	return "HubNotifier"
}
