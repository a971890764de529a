package middleware

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog/log"

	"github.com/superfunded/payout_portal/services"
	"github.com/superfunded/payout_portal/session"
)

type SessionLoader interface {
	LoadSession(ctx context.Context, claims jwt.MapClaims) (*session.Session, error)
}

// Protected authenticates the bearer token and attaches the caller's session.
func Protected(secret []byte, loader SessionLoader) fiber.Handler {
	return protect(secret, loader, "header:Authorization", "Bearer")
}

// ProtectedQuery reads the token from ?token=, for websocket upgrades where
// browsers cannot set headers.
func ProtectedQuery(secret []byte, loader SessionLoader) fiber.Handler {
	return protect(secret, loader, "query:token", "")
}

// protect wires jwtware for one token source. The scheme is only applied to
// header lookups and must be set explicitly once TokenLookup is.
func protect(secret []byte, loader SessionLoader, lookup, scheme string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:    secret,
		SigningMethod: "HS256",
		TokenLookup:   lookup,
		AuthScheme:    scheme,
		ErrorHandler:  jwtError,
		SuccessHandler: func(c *fiber.Ctx) error {
			token, ok := c.Locals("user").(*jwt.Token)
			if !ok {
				return jwtError(c, errors.New("token missing from context"))
			}
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return jwtError(c, errors.New("unexpected claims type"))
			}

			sess, err := loader.LoadSession(c.UserContext(), claims)
			if err != nil {
				if errors.Is(err, services.ErrInvalidToken) {
					return jwtError(c, err)
				}
				log.Error().Err(err).Str("path", c.Path()).Msg("failed to load session")
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load session"})
			}

			session.Attach(c, sess)
			return c.Next()
		},
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	if err.Error() == "Missing or malformed JWT" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing or malformed JWT"})
	}
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired JWT"})
}

func VerifiedRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := session.From(c)
		if sess == nil || !sess.IsVerified() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "email verification required",
			})
		}
		return c.Next()
	}
}

func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := session.From(c)
		if sess == nil || !sess.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Forbidden: Admin access required",
			})
		}
		return c.Next()
	}
}
