package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/superfunded/payout_portal/services"
	"github.com/superfunded/payout_portal/session"
)

type UpdateProfileRequest struct {
	DisplayName   *string `json:"display_name" validate:"omitempty,max=100"`
	TwitterHandle *string `json:"twitter_handle" validate:"omitempty,max=100"`
}

type ProfileHandler struct {
	auth *services.AuthService
}

func NewProfileHandler(auth *services.AuthService) *ProfileHandler {
	return &ProfileHandler{auth: auth}
}

func (h *ProfileHandler) GetMe(c *fiber.Ctx) error {
	return c.JSON(session.From(c).Profile())
}

func (h *ProfileHandler) UpdateMe(c *fiber.Ctx) error {
	var req UpdateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	profile, err := h.auth.UpdateProfile(c.UserContext(), session.From(c), services.ProfileUpdate{
		DisplayName:   req.DisplayName,
		TwitterHandle: req.TwitterHandle,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}
