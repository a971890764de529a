package services

import (
	"errors"
	"fmt"
)

var (
	ErrPayoutNotFound     = errors.New("payout not found")
	ErrPayoutNotPending   = errors.New("payout has already been reviewed")
	ErrReviewNotFound     = errors.New("review not found")
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrNotVerified        = errors.New("email verification required")
	ErrForbidden          = errors.New("forbidden")
	ErrStorage            = errors.New("object storage unavailable")
)

// ValidationError reports bad caller input. Nothing has been written when
// one is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
