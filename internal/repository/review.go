package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freshmart/grocery-api/internal/model"
)

type ReviewRepository interface {
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.Review, error)
	Find(ctx context.Context, productID, userID, orderID uuid.UUID) (*model.Review, error)
	Insert(ctx context.Context, review *model.Review) error
	HasPurchased(ctx context.Context, userID, productID uuid.UUID) (bool, error)
	LatestReviewableOrder(ctx context.Context, userID, productID uuid.UUID) (uuid.UUID, bool, error)
	StatsByProduct(ctx context.Context, productID uuid.UUID) (*model.ReviewStats, error)
}

type pgReviewRepo struct{ pool *pgxpool.Pool }

func NewReviewRepository(pool *pgxpool.Pool) ReviewRepository {
	return &pgReviewRepo{pool: pool}
}

func (r *pgReviewRepo) ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.Review, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, product_id, user_id, order_id, rating, comment, created_at
		 FROM reviews WHERE product_id = $1 ORDER BY created_at DESC`, productID,
	)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []model.Review
	for rows.Next() {
		var rv model.Review
		if err := rows.Scan(&rv.ID, &rv.ProductID, &rv.UserID, &rv.OrderID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, rv)
	}
	return reviews, nil
}

func (r *pgReviewRepo) Find(ctx context.Context, productID, userID, orderID uuid.UUID) (*model.Review, error) {
	rv := &model.Review{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, product_id, user_id, order_id, rating, comment, created_at
		 FROM reviews WHERE product_id = $1 AND user_id = $2 AND order_id = $3`,
		productID, userID, orderID,
	).Scan(&rv.ID, &rv.ProductID, &rv.UserID, &rv.OrderID, &rv.Rating, &rv.Comment, &rv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find review: %w", err)
	}
	return rv, nil
}

// Insert persists a review. The unique index on (product_id, user_id,
// order_id) is the arbiter for concurrent submissions: the loser gets
// ErrDuplicateReview, never a second row.
func (r *pgReviewRepo) Insert(ctx context.Context, review *model.Review) error {
	review.ID = uuid.New()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO reviews (id, product_id, user_id, order_id, rating, comment, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW()) RETURNING created_at`,
		review.ID, review.ProductID, review.UserID, review.OrderID, review.Rating, review.Comment,
	).Scan(&review.CreatedAt)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return ErrDuplicateReview
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (r *pgReviewRepo) HasPurchased(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var purchased bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM orders o
			JOIN order_items oi ON oi.order_id = o.id
			WHERE o.user_id = $1 AND oi.product_id = $2
		)`, userID, productID,
	).Scan(&purchased)
	if err != nil {
		return false, fmt.Errorf("has purchased: %w", err)
	}
	return purchased, nil
}

// LatestReviewableOrder returns the most recent order of the user that
// contains the product and has no review for it yet. A repeat purchase
// opens a fresh review slot.
func (r *pgReviewRepo) LatestReviewableOrder(ctx context.Context, userID, productID uuid.UUID) (uuid.UUID, bool, error) {
	var orderID uuid.UUID
	err := r.pool.QueryRow(ctx,
		`SELECT o.id FROM orders o
		 JOIN order_items oi ON oi.order_id = o.id
		 WHERE o.user_id = $1 AND oi.product_id = $2
		   AND NOT EXISTS (
			 SELECT 1 FROM reviews r
			 WHERE r.order_id = o.id AND r.product_id = $2 AND r.user_id = $1
		   )
		 ORDER BY o.created_at DESC LIMIT 1`,
		userID, productID,
	).Scan(&orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, fmt.Errorf("latest reviewable order: %w", err)
	}
	return orderID, true, nil
}

func (r *pgReviewRepo) StatsByProduct(ctx context.Context, productID uuid.UUID) (*model.ReviewStats, error) {
	stats := &model.ReviewStats{Distribution: make(map[int]int)}
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(AVG(rating), 0), COUNT(*) FROM reviews WHERE product_id = $1`, productID,
	).Scan(&stats.AverageRating, &stats.TotalReviews)
	if err != nil {
		return nil, fmt.Errorf("review stats: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT rating, COUNT(*) FROM reviews WHERE product_id = $1 GROUP BY rating`, productID,
	)
	if err != nil {
		return nil, fmt.Errorf("review distribution: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			return nil, fmt.Errorf("scan review distribution: %w", err)
		}
		stats.Distribution[rating] = count
	}
	return stats, nil
}
