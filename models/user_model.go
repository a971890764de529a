package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Email         string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Password      string    `gorm:"not null" json:"-"`
	DisplayName   *string   `gorm:"size:100" json:"display_name"`
	TwitterHandle *string   `gorm:"size:100" json:"twitter_handle"`

	// IsAdmin is provisioned out of band and never written by the API.
	IsVerified bool `gorm:"not null;default:false" json:"is_verified"`
	IsAdmin    bool `gorm:"not null;default:false" json:"is_admin"`

	VerificationToken           *string    `gorm:"size:64;uniqueIndex" json:"-"`
	ResetPasswordToken          *string    `gorm:"size:64;uniqueIndex" json:"-"`
	ResetPasswordTokenExpiresAt *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Name is the display name, falling back to the email address.
func (u *User) Name() string {
	if u.DisplayName != nil && *u.DisplayName != "" {
		return *u.DisplayName
	}
	return u.Email
}
