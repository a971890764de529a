package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PayoutStatus string

const (
	PayoutStatusPending  PayoutStatus = "pending"
	PayoutStatusApproved PayoutStatus = "approved"
	PayoutStatusRejected PayoutStatus = "rejected"
)

// Terminal reports whether no further transition is allowed from s.
func (s PayoutStatus) Terminal() bool {
	return s == PayoutStatusApproved || s == PayoutStatusRejected
}

type Payout struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	UserID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	TraderName     string          `gorm:"size:100;not null" json:"trader_name"`
	TwitterHandle  *string         `gorm:"size:100" json:"twitter_handle"`
	Amount         decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Currency       string          `gorm:"size:10;not null" json:"currency"`
	Date           datatypes.Date  `gorm:"not null" json:"date"`
	ProofURL       string          `gorm:"type:text;not null" json:"proof_url"`
	Status         PayoutStatus    `gorm:"size:20;not null;index" json:"status"`
	AdminID        *uuid.UUID      `gorm:"type:uuid" json:"admin_id"`
	AdminNotes     *string         `gorm:"type:text" json:"admin_notes"`
	CertificateURL *string         `gorm:"type:text" json:"certificate_url"`
	CreatedAt      time.Time       `gorm:"not null;index" json:"created_at"`
	VerifiedAt     *time.Time      `gorm:"index" json:"verified_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (p *Payout) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PayoutEvent is one row of a payout's review trail.
type PayoutEvent struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	PayoutID  uuid.UUID `gorm:"type:uuid;not null;index" json:"payout_id"`
	Action    string    `gorm:"size:20;not null" json:"action"`
	ActorID   uuid.UUID `gorm:"type:uuid;not null" json:"actor_id"`
	Notes     *string   `gorm:"type:text" json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

func (e *PayoutEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
