package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/smrs-space/smrs-backend/internal/plagiarism/service"
)

// StartTokenRefresher refreshes the vendor token on a fixed schedule so API
// calls rarely pay the login round trip. Returns the cron for shutdown.
func StartTokenRefresher(svc *service.Service, log zerolog.Logger) *cron.Cron {
	c := cron.New()

	_, err := c.AddFunc("@every 12h", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if _, err := svc.RefreshToken(ctx); err != nil {
			log.Error().Err(err).Msg("scheduled token refresh failed")
		}
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to schedule token refresh")
		return c
	}

	c.Start()
	return c
}
