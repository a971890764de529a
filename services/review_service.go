package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/superfunded/payout_portal/models"
	"github.com/superfunded/payout_portal/repository"
	"github.com/superfunded/payout_portal/session"
)

const maxCommentLength = 1000

type ReviewStore interface {
	CreateReview(ctx context.Context, review *models.Review) error
	ListReviews(ctx context.Context) ([]models.Review, error)
	DeleteReview(ctx context.Context, id uuid.UUID) error
}

type ReviewView struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Handle    *string   `json:"handle"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}

type ReviewService struct {
	store ReviewStore
	now   func() time.Time
}

func NewReviewService(store ReviewStore) *ReviewService {
	return &ReviewService{store: store, now: func() time.Time { return time.Now().UTC() }}
}

func (s *ReviewService) List(ctx context.Context) ([]ReviewView, error) {
	reviews, err := s.store.ListReviews(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	views := make([]ReviewView, 0, len(reviews))
	for _, r := range reviews {
		views = append(views, ReviewView{
			ID:        r.ID,
			Name:      r.Name,
			Handle:    r.Handle,
			Rating:    r.Rating,
			Comment:   r.Comment,
			Verified:  r.User.IsVerified,
			CreatedAt: r.CreatedAt,
		})
	}
	return views, nil
}

// Create posts a review under the caller's profile name and handle.
func (s *ReviewService) Create(ctx context.Context, caller *session.Session, rating int, comment string) (*ReviewView, error) {
	if caller == nil {
		return nil, ErrForbidden
	}
	if !caller.IsVerified() {
		return nil, ErrNotVerified
	}
	if rating < 1 || rating > 5 {
		return nil, invalid("rating", "rating must be between 1 and 5")
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, invalid("comment", "comment is required")
	}
	if utf8.RuneCountInString(comment) > maxCommentLength {
		return nil, invalid("comment", "comment must be 1000 characters or fewer")
	}

	profile := caller.Profile()
	name := profile.DisplayName
	if name == "" {
		name = profile.Email
	}

	review := &models.Review{
		UserID:    profile.UserID,
		Name:      name,
		Handle:    optional(profile.TwitterHandle),
		Rating:    rating,
		Comment:   comment,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateReview(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	return &ReviewView{
		ID:        review.ID,
		Name:      review.Name,
		Handle:    review.Handle,
		Rating:    review.Rating,
		Comment:   review.Comment,
		Verified:  true,
		CreatedAt: review.CreatedAt,
	}, nil
}

func (s *ReviewService) Delete(ctx context.Context, caller *session.Session, id uuid.UUID) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if err := s.store.DeleteReview(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrReviewNotFound
		}
		return fmt.Errorf("delete review: %w", err)
	}
	return nil
}
