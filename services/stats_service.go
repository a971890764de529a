package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/superfunded/payout_portal/repository"
	"github.com/superfunded/payout_portal/session"
)

type TotalsStore interface {
	Totals(ctx context.Context) (*repository.PayoutTotals, error)
}

type VerifiedCounter interface {
	CountVerified(ctx context.Context) (int64, error)
}

type USDConverter interface {
	TotalUSD(ctx context.Context, byCurrency map[string]decimal.Decimal) (decimal.Decimal, error)
}

type PublicStats struct {
	ApprovedPayouts int64           `json:"approved_payouts"`
	TotalPaidOut    decimal.Decimal `json:"total_paid_out"`
	VerifiedTraders int64           `json:"verified_traders"`
}

type AdminStats struct {
	TotalPending  int64           `json:"total_pending"`
	TotalApproved int64           `json:"total_approved"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

type StatsService struct {
	payouts   TotalsStore
	users     VerifiedCounter
	converter USDConverter
}

// NewStatsService builds the counters service. converter may be nil, in
// which case approved amounts are summed as recorded.
func NewStatsService(payouts TotalsStore, users VerifiedCounter, converter USDConverter) *StatsService {
	return &StatsService{payouts: payouts, users: users, converter: converter}
}

func (s *StatsService) Public(ctx context.Context) (*PublicStats, error) {
	totals, err := s.payouts.Totals(ctx)
	if err != nil {
		return nil, fmt.Errorf("payout totals: %w", err)
	}
	verified, err := s.users.CountVerified(ctx)
	if err != nil {
		return nil, fmt.Errorf("count verified traders: %w", err)
	}

	return &PublicStats{
		ApprovedPayouts: totals.Approved,
		TotalPaidOut:    s.total(ctx, totals.ApprovedByCurrency),
		VerifiedTraders: verified,
	}, nil
}

func (s *StatsService) Admin(ctx context.Context, caller *session.Session) (*AdminStats, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	totals, err := s.payouts.Totals(ctx)
	if err != nil {
		return nil, fmt.Errorf("payout totals: %w", err)
	}

	return &AdminStats{
		TotalPending:  totals.Pending,
		TotalApproved: totals.Approved,
		TotalAmount:   s.total(ctx, totals.ApprovedByCurrency),
	}, nil
}

func (s *StatsService) total(ctx context.Context, byCurrency map[string]decimal.Decimal) decimal.Decimal {
	if s.converter != nil {
		total, err := s.converter.TotalUSD(ctx, byCurrency)
		if err == nil {
			return total
		}
		log.Warn().Err(err).Msg("currency conversion failed, summing raw amounts")
	}

	total := decimal.Zero
	for _, amount := range byCurrency {
		total = total.Add(amount)
	}
	return total
}
