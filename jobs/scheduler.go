package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const jobTimeout = 5 * time.Minute

// NewScheduler registers the pending digest under spec. The caller starts
// and stops the returned cron.
func NewScheduler(spec string, digest *PendingDigestJob) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if _, err := digest.Run(ctx); err != nil {
			log.Error().Err(err).Msg("pending digest job failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule pending digest %q: %w", spec, err)
	}

	return c, nil
}
