// Package session holds the authenticated caller for the lifetime of one
// request. A Session is created by the auth middleware after the bearer token
// is verified and the profile is loaded, and is torn down by sign-out, which
// revokes the token id until it would have expired anyway.
package session

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// LocalsKey is the fiber locals key the session is stored under.
const LocalsKey = "session"

type Profile struct {
	UserID        uuid.UUID `json:"user_id"`
	Email         string    `json:"email"`
	DisplayName   string    `json:"display_name"`
	TwitterHandle string    `json:"twitter_handle,omitempty"`
	IsVerified    bool      `json:"is_verified"`
	IsAdmin       bool      `json:"is_admin"`
}

type Session struct {
	profile   Profile
	tokenID   string
	expiresAt time.Time
}

func New(profile Profile, tokenID string, expiresAt time.Time) *Session {
	return &Session{profile: profile, tokenID: tokenID, expiresAt: expiresAt}
}

func (s *Session) Profile() Profile { return s.profile }
func (s *Session) UserID() uuid.UUID { return s.profile.UserID }
func (s *Session) IsAdmin() bool { return s.profile.IsAdmin }
func (s *Session) IsVerified() bool { return s.profile.IsVerified }
func (s *Session) TokenID() string { return s.tokenID }
func (s *Session) ExpiresAt() time.Time { return s.expiresAt }

// Attach stores the session on the request.
func Attach(c *fiber.Ctx, s *Session) {
	c.Locals(LocalsKey, s)
}

// From returns the request's session, or nil for anonymous requests.
func From(c *fiber.Ctx) *Session {
	s, _ := c.Locals(LocalsKey).(*Session)
	return s
}

// Revoker tracks signed-out token ids.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
