package jobs

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/superfunded/payout_portal/models"
	"github.com/superfunded/payout_portal/notifications"
	"github.com/superfunded/payout_portal/repository"
	"github.com/superfunded/payout_portal/services"
)

type TotalsStore interface {
	Totals(ctx context.Context) (*repository.PayoutTotals, error)
}

type AdminLister interface {
	ListAdmins(ctx context.Context) ([]models.User, error)
}

// PendingDigestJob emails every admin the size of the review queue.
type PendingDigestJob struct {
	payouts TotalsStore
	admins  AdminLister
	mailer  services.Notifier
}

func NewPendingDigestJob(payouts TotalsStore, admins AdminLister, mailer services.Notifier) *PendingDigestJob {
	return &PendingDigestJob{payouts: payouts, admins: admins, mailer: mailer}
}

// Run returns the number of admins emailed. An empty queue sends nothing.
func (j *PendingDigestJob) Run(ctx context.Context) (int, error) {
	log.Debug().Msg("Running job: PendingDigest...")

	totals, err := j.payouts.Totals(ctx)
	if err != nil {
		return 0, fmt.Errorf("payout totals: %w", err)
	}
	if totals.Pending == 0 || totals.OldestPendingAt == nil {
		return 0, nil
	}

	admins, err := j.admins.ListAdmins(ctx)
	if err != nil {
		return 0, fmt.Errorf("list admins: %w", err)
	}

	subject, body := notifications.PendingDigestEmail(totals.Pending, *totals.OldestPendingAt)
	sent := 0
	for _, admin := range admins {
		if err := j.mailer.SendEmail(ctx, admin.Name(), admin.Email, subject, body); err != nil {
			log.Warn().Err(err).Str("user_id", admin.ID.String()).Msg("pending digest email failed")
			continue
		}
		sent++
	}

	log.Info().Int64("pending", totals.Pending).Int("admins", sent).Msg("pending digest sent")
	return sent, nil
}
