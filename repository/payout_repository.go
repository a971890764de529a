package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/superfunded/payout_portal/models"
	"gorm.io/gorm"
)

// Decision is the column set written when an admin reviews a payout.
type Decision struct {
	Status     models.PayoutStatus
	AdminID    uuid.UUID
	Notes      *string
	VerifiedAt *time.Time
	DecidedAt  time.Time
}

type PayoutTotals struct {
	Pending            int64
	Approved           int64
	ApprovedByCurrency map[string]decimal.Decimal
	OldestPendingAt    *time.Time
}

type PayoutRepository struct {
	db *gorm.DB
}

func NewPayoutRepository(db *gorm.DB) *PayoutRepository {
	return &PayoutRepository{db: db}
}

// CreatePayout inserts the payout together with its "submitted" event.
func (r *PayoutRepository) CreatePayout(ctx context.Context, payout *models.Payout) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(payout).Error; err != nil {
			return fmt.Errorf("insert payout: %w", err)
		}
		event := models.PayoutEvent{
			PayoutID:  payout.ID,
			Action:    "submitted",
			ActorID:   payout.UserID,
			CreatedAt: payout.CreatedAt,
		}
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("insert payout event: %w", err)
		}
		return nil
	})
}

func (r *PayoutRepository) GetPayout(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	err := r.db.WithContext(ctx).Preload("User").First(&payout, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *PayoutRepository) ListApproved(ctx context.Context) ([]models.Payout, error) {
	var payouts []models.Payout
	err := r.db.WithContext(ctx).
		Where("status = ?", models.PayoutStatusApproved).
		Order("verified_at desc").
		Find(&payouts).Error
	return payouts, err
}

func (r *PayoutRepository) ListPending(ctx context.Context) ([]models.Payout, error) {
	var payouts []models.Payout
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("status = ?", models.PayoutStatusPending).
		Order("created_at desc").
		Find(&payouts).Error
	return payouts, err
}

func (r *PayoutRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Payout, error) {
	var payouts []models.Payout
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&payouts).Error
	return payouts, err
}

// Decide writes the review columns keyed by id only; concurrent reviewers
// resolve as last write wins.
func (r *PayoutRepository) Decide(ctx context.Context, id uuid.UUID, d Decision) (*models.Payout, error) {
	var payout models.Payout
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Payout{}).Where("id = ?", id).Updates(map[string]any{
			"status":      d.Status,
			"admin_id":    d.AdminID,
			"admin_notes": d.Notes,
			"verified_at": d.VerifiedAt,
		})
		if res.Error != nil {
			return fmt.Errorf("update payout: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		event := models.PayoutEvent{
			PayoutID:  id,
			Action:    string(d.Status),
			ActorID:   d.AdminID,
			Notes:     d.Notes,
			CreatedAt: d.DecidedAt,
		}
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("insert payout event: %w", err)
		}

		return tx.Preload("User").First(&payout, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *PayoutRepository) SetCertificate(ctx context.Context, id uuid.UUID, objectPath string) error {
	return r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("id = ?", id).
		Update("certificate_url", objectPath).Error
}

func (r *PayoutRepository) ListEvents(ctx context.Context, payoutID uuid.UUID) ([]models.PayoutEvent, error) {
	var events []models.PayoutEvent
	err := r.db.WithContext(ctx).
		Where("payout_id = ?", payoutID).
		Order("created_at asc").
		Find(&events).Error
	return events, err
}

func (r *PayoutRepository) Totals(ctx context.Context) (*PayoutTotals, error) {
	db := r.db.WithContext(ctx)
	totals := &PayoutTotals{ApprovedByCurrency: map[string]decimal.Decimal{}}

	if err := db.Model(&models.Payout{}).
		Where("status = ?", models.PayoutStatusPending).
		Count(&totals.Pending).Error; err != nil {
		return nil, fmt.Errorf("count pending: %w", err)
	}

	var oldest models.Payout
	err := db.Where("status = ?", models.PayoutStatusPending).Order("created_at asc").Limit(1).Find(&oldest).Error
	if err != nil {
		return nil, fmt.Errorf("oldest pending: %w", err)
	}
	if oldest.ID != uuid.Nil {
		createdAt := oldest.CreatedAt
		totals.OldestPendingAt = &createdAt
	}

	var rows []struct {
		Currency string
		Count    int64
		Total    decimal.Decimal
	}
	if err := db.Model(&models.Payout{}).
		Select("currency, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total").
		Where("status = ?", models.PayoutStatusApproved).
		Group("currency").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("sum approved: %w", err)
	}
	for _, row := range rows {
		totals.Approved += row.Count
		totals.ApprovedByCurrency[row.Currency] = row.Total
	}

	return totals, nil
}
