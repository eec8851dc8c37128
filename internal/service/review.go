package service

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/freshmart/grocery-api/internal/model"
	"github.com/freshmart/grocery-api/internal/repository"
)

var (
	ErrNotPurchased    = errors.New("product not purchased")
	ErrAlreadyReviewed = errors.New("already reviewed")
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
	ErrInvalidComment  = errors.New("comment must be between 10 and 1000 characters")
)

const (
	reasonNotPurchased    = "you must purchase this product to review it"
	reasonAlreadyReviewed = "you have already reviewed this product"

	minCommentLen = 10
	maxCommentLen = 1000
)

type ReviewService struct {
	reviewRepo repository.ReviewRepository
}

func NewReviewService(reviewRepo repository.ReviewRepository) *ReviewService {
	return &ReviewService{reviewRepo: reviewRepo}
}

// CanReview reports review eligibility. The policy is per purchase event:
// eligible while some order containing the product has no review yet, so a
// repeat purchase opens a fresh slot.
func (s *ReviewService) CanReview(ctx context.Context, userID, productID uuid.UUID) (bool, string, error) {
	purchased, err := s.reviewRepo.HasPurchased(ctx, userID, productID)
	if err != nil {
		return false, "", err
	}
	if !purchased {
		return false, reasonNotPurchased, nil
	}

	_, ok, err := s.reviewRepo.LatestReviewableOrder(ctx, userID, productID)
	if err != nil {
		return false, "", err
	}
	if !ok {
		return false, reasonAlreadyReviewed, nil
	}
	return true, "", nil
}

// SubmitReview binds a review to the most recent order of the user that
// contains the product and has no review yet. The unique index decides
// concurrent duplicates; the loser surfaces ErrAlreadyReviewed.
func (s *ReviewService) SubmitReview(ctx context.Context, userID, productID uuid.UUID, rating int, comment string) (*model.Review, error) {
	purchased, err := s.reviewRepo.HasPurchased(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	if !purchased {
		return nil, ErrNotPurchased
	}

	orderID, ok, err := s.reviewRepo.LatestReviewableOrder(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyReviewed
	}

	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}
	if n := utf8.RuneCountInString(comment); n < minCommentLen || n > maxCommentLen {
		return nil, ErrInvalidComment
	}

	review := &model.Review{
		ProductID: productID,
		UserID:    userID,
		OrderID:   orderID,
		Rating:    rating,
		Comment:   comment,
	}
	if err := s.reviewRepo.Insert(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicateReview) {
			return nil, ErrAlreadyReviewed
		}
		return nil, err
	}
	return review, nil
}

func (s *ReviewService) ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.Review, error) {
	return s.reviewRepo.ListByProduct(ctx, productID)
}
