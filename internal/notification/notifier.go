package notification

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/sitewatch/sitewatch-api/internal/models"
)

// Notifier is a best-effort delivery channel for an already-persisted
// notification. Implementations must never be relied on for durability; the
// stored record is the only guaranteed artifact.
type Notifier interface {
	Notify(ctx context.Context, notification models.Notification) error
}

func logNotifyError(logger zerolog.Logger, err error, channel string, notif models.Notification) {
	if err == nil {
		return
	}
	logger.Warn().
		Err(err).
		Str("notification_id", notif.ID).
		Str("recipient_id", notif.RecipientID).
		Str("channel", channel).
		Msg("failed to deliver notification")
}
