package handlers

import (
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/superfunded/payout_portal/services"
	"github.com/superfunded/payout_portal/session"
)

type PayoutHandler struct {
	payouts *services.PayoutService
}

func NewPayoutHandler(payouts *services.PayoutService) *PayoutHandler {
	return &PayoutHandler{payouts: payouts}
}

// ListApproved serves the public payouts wall.
func (h *PayoutHandler) ListApproved(c *fiber.Ctx) error {
	payouts, err := h.payouts.ListApproved(c.UserContext(), c.Query("search"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(payouts)
}

// Submit accepts a multipart form with the proof image in field "proof".
func (h *PayoutHandler) Submit(c *fiber.Ctx) error {
	in := services.SubmitPayoutInput{
		TraderName:    c.FormValue("trader_name"),
		TwitterHandle: c.FormValue("twitter_handle"),
		Amount:        c.FormValue("amount"),
		Currency:      c.FormValue("currency"),
		Date:          c.FormValue("date"),
	}

	if fileHeader, err := c.FormFile("proof"); err == nil {
		in.Proof = &services.ProofUpload{
			Filename: fileHeader.Filename,
			Size:     fileHeader.Size,
			Open: func() (io.ReadCloser, error) {
				f, err := fileHeader.Open()
				return f, err
			},
		}
	}

	payout, err := h.payouts.Submit(c.UserContext(), session.From(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(payout)
}

func (h *PayoutHandler) ListMine(c *fiber.Ctx) error {
	payouts, err := h.payouts.ListMine(c.UserContext(), session.From(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(payouts)
}
