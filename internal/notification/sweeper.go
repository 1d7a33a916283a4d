package notification

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// StartExpirySweeper periodically deletes expired notifications. Expired rows
// are already invisible to ListActive; the sweep only reclaims storage. It
// stops when ctx is cancelled.
func StartExpirySweeper(ctx context.Context, svc Service, interval time.Duration, logger zerolog.Logger) {
	log := logger.With().Str("component", "expiry_sweeper").Logger()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deleted, err := svc.DeleteExpired(ctx)
				if err != nil {
					log.Error().Err(err).Msg("expiry sweep failed")
					continue
				}
				if deleted > 0 {
					log.Info().Int64("deleted", deleted).Msg("expired notifications removed")
				}
			}
		}
	}()
}
