package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/superfunded/payout_portal/services"
	"github.com/superfunded/payout_portal/session"
)

type CreateReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"required,max=1000"`
}

type ReviewHandler struct {
	reviews *services.ReviewService
}

func NewReviewHandler(reviews *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

func (h *ReviewHandler) List(c *fiber.Ctx) error {
	reviews, err := h.reviews.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(reviews)
}

func (h *ReviewHandler) Create(c *fiber.Ctx) error {
	var req CreateReviewRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	review, err := h.reviews.Create(c.UserContext(), session.From(c), req.Rating, req.Comment)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(review)
}
