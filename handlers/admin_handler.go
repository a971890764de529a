package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/superfunded/payout_portal/services"
	"github.com/superfunded/payout_portal/session"
)

type ReviewDecisionRequest struct {
	AdminNotes string `json:"admin_notes" validate:"max=2000"`
}

type AdminHandler struct {
	payouts *services.PayoutService
	stats   *services.StatsService
	reviews *services.ReviewService
}

func NewAdminHandler(payouts *services.PayoutService, stats *services.StatsService, reviews *services.ReviewService) *AdminHandler {
	return &AdminHandler{payouts: payouts, stats: stats, reviews: reviews}
}

func (h *AdminHandler) ListPendingPayouts(c *fiber.Ctx) error {
	payouts, err := h.payouts.ListPending(c.UserContext(), session.From(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(payouts)
}

func (h *AdminHandler) PayoutStats(c *fiber.Ctx) error {
	stats, err := h.stats.Admin(c.UserContext(), session.From(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

func (h *AdminHandler) ApprovePayout(c *fiber.Ctx) error {
	id, req, err := h.decisionRequest(c)
	if err != nil {
		return respondError(c, err)
	}

	payout, err := h.payouts.Approve(c.UserContext(), session.From(c), id, req.AdminNotes)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(payout)
}

func (h *AdminHandler) RejectPayout(c *fiber.Ctx) error {
	id, req, err := h.decisionRequest(c)
	if err != nil {
		return respondError(c, err)
	}

	payout, err := h.payouts.Reject(c.UserContext(), session.From(c), id, req.AdminNotes)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(payout)
}

func (h *AdminHandler) PayoutEvents(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("payoutId"))
	if err != nil {
		return respondError(c, services.ErrPayoutNotFound)
	}

	events, err := h.payouts.Events(c.UserContext(), session.From(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(events)
}

func (h *AdminHandler) DeleteReview(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("reviewId"))
	if err != nil {
		return respondError(c, services.ErrReviewNotFound)
	}

	if err := h.reviews.Delete(c.UserContext(), session.From(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// decisionRequest reads the payout id and an optional notes body.
func (h *AdminHandler) decisionRequest(c *fiber.Ctx) (uuid.UUID, ReviewDecisionRequest, error) {
	var req ReviewDecisionRequest
	id, err := uuid.Parse(c.Params("payoutId"))
	if err != nil {
		return uuid.Nil, req, services.ErrPayoutNotFound
	}
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return uuid.Nil, req, err
		}
	}
	return id, req, nil
}
