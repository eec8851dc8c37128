package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freshmart/grocery-api/internal/model"
	"github.com/freshmart/grocery-api/internal/repository"
)

type mockPurchase struct {
	orderID   uuid.UUID
	userID    uuid.UUID
	productID uuid.UUID
	at        time.Time
}

// mockReviewRepo enforces the (product, user, order) uniqueness under a
// mutex, mirroring the unique index that arbitrates concurrent inserts.
type mockReviewRepo struct {
	mu        sync.Mutex
	purchases []mockPurchase
	reviews   map[string]*model.Review
}

func newMockReviewRepo() *mockReviewRepo {
	return &mockReviewRepo{reviews: make(map[string]*model.Review)}
}

func reviewKey(productID, userID, orderID uuid.UUID) string {
	return productID.String() + "|" + userID.String() + "|" + orderID.String()
}

func (m *mockReviewRepo) addPurchase(userID, productID uuid.UUID, at time.Time) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	orderID := uuid.New()
	m.purchases = append(m.purchases, mockPurchase{orderID: orderID, userID: userID, productID: productID, at: at})
	return orderID
}

func (m *mockReviewRepo) ListByProduct(_ context.Context, productID uuid.UUID) ([]model.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var reviews []model.Review
	for _, rv := range m.reviews {
		if rv.ProductID == productID {
			reviews = append(reviews, *rv)
		}
	}
	return reviews, nil
}

func (m *mockReviewRepo) Find(_ context.Context, productID, userID, orderID uuid.UUID) (*model.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reviews[reviewKey(productID, userID, orderID)], nil
}

func (m *mockReviewRepo) Insert(_ context.Context, review *model.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := reviewKey(review.ProductID, review.UserID, review.OrderID)
	if _, exists := m.reviews[key]; exists {
		return repository.ErrDuplicateReview
	}
	review.ID = uuid.New()
	review.CreatedAt = time.Now()
	m.reviews[key] = review
	return nil
}

func (m *mockReviewRepo) HasPurchased(_ context.Context, userID, productID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.purchases {
		if p.userID == userID && p.productID == productID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockReviewRepo) LatestReviewableOrder(_ context.Context, userID, productID uuid.UUID) (uuid.UUID, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var (
		latest   uuid.UUID
		latestAt time.Time
		found    bool
	)
	for _, p := range m.purchases {
		if p.userID != userID || p.productID != productID {
			continue
		}
		if _, reviewed := m.reviews[reviewKey(productID, userID, p.orderID)]; reviewed {
			continue
		}
		if !found || p.at.After(latestAt) {
			latest, latestAt, found = p.orderID, p.at, true
		}
	}
	return latest, found, nil
}

func (m *mockReviewRepo) StatsByProduct(_ context.Context, productID uuid.UUID) (*model.ReviewStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &model.ReviewStats{Distribution: make(map[int]int)}
	sum := 0
	for _, rv := range m.reviews {
		if rv.ProductID != productID {
			continue
		}
		stats.TotalReviews++
		stats.Distribution[rv.Rating]++
		sum += rv.Rating
	}
	if stats.TotalReviews > 0 {
		stats.AverageRating = decimal.NewFromInt(int64(sum)).
			Div(decimal.NewFromInt(int64(stats.TotalReviews)))
	}
	return stats, nil
}

const validComment = "Fresh and tasty, would buy again."

func TestReviewService_CanReview_NotPurchased(t *testing.T) {
	svc := NewReviewService(newMockReviewRepo())

	eligible, reason, err := svc.CanReview(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.False(t, eligible)
	assert.Equal(t, "you must purchase this product to review it", reason)
}

func TestReviewService_CanReview_AfterPurchase(t *testing.T) {
	repo := newMockReviewRepo()
	userID, productID := uuid.New(), uuid.New()
	repo.addPurchase(userID, productID, time.Now())
	svc := NewReviewService(repo)

	eligible, reason, err := svc.CanReview(context.Background(), userID, productID)
	require.NoError(t, err)
	assert.True(t, eligible)
	assert.Empty(t, reason)
}

func TestReviewService_CanReview_AlreadyReviewed(t *testing.T) {
	repo := newMockReviewRepo()
	userID, productID := uuid.New(), uuid.New()
	repo.addPurchase(userID, productID, time.Now())
	svc := NewReviewService(repo)

	_, err := svc.SubmitReview(context.Background(), userID, productID, 5, validComment)
	require.NoError(t, err)

	eligible, reason, err := svc.CanReview(context.Background(), userID, productID)
	require.NoError(t, err)
	assert.False(t, eligible)
	assert.Equal(t, "you have already reviewed this product", reason)
}

func TestReviewService_CanReview_RepeatPurchaseReopens(t *testing.T) {
	repo := newMockReviewRepo()
	userID, productID := uuid.New(), uuid.New()
	repo.addPurchase(userID, productID, time.Now().Add(-48*time.Hour))
	svc := NewReviewService(repo)

	_, err := svc.SubmitReview(context.Background(), userID, productID, 4, validComment)
	require.NoError(t, err)

	// Buying the product again opens a fresh review slot.
	repo.addPurchase(userID, productID, time.Now())

	eligible, _, err := svc.CanReview(context.Background(), userID, productID)
	require.NoError(t, err)
	assert.True(t, eligible)
}

func TestReviewService_SubmitReview_BindsToLatestUnreviewedOrder(t *testing.T) {
	repo := newMockReviewRepo()
	userID, productID := uuid.New(), uuid.New()
	repo.addPurchase(userID, productID, time.Now().Add(-24*time.Hour))
	newest := repo.addPurchase(userID, productID, time.Now())
	svc := NewReviewService(repo)

	review, err := svc.SubmitReview(context.Background(), userID, productID, 5, validComment)
	require.NoError(t, err)
	assert.Equal(t, newest, review.OrderID)
	assert.Equal(t, 5, review.Rating)
}

func TestReviewService_SubmitReview_NotPurchased(t *testing.T) {
	svc := NewReviewService(newMockReviewRepo())

	_, err := svc.SubmitReview(context.Background(), uuid.New(), uuid.New(), 5, validComment)
	assert.ErrorIs(t, err, ErrNotPurchased)
}

func TestReviewService_SubmitReview_InvalidRating(t *testing.T) {
	repo := newMockReviewRepo()
	userID, productID := uuid.New(), uuid.New()
	repo.addPurchase(userID, productID, time.Now())
	svc := NewReviewService(repo)

	// Purchase history and comment are valid; only the rating is out of range.
	_, err := svc.SubmitReview(context.Background(), userID, productID, 6, validComment)
	assert.ErrorIs(t, err, ErrInvalidRating)

	_, err = svc.SubmitReview(context.Background(), userID, productID, 0, validComment)
	assert.ErrorIs(t, err, ErrInvalidRating)
}

func TestReviewService_SubmitReview_InvalidComment(t *testing.T) {
	repo := newMockReviewRepo()
	userID, productID := uuid.New(), uuid.New()
	repo.addPurchase(userID, productID, time.Now())
	svc := NewReviewService(repo)

	_, err := svc.SubmitReview(context.Background(), userID, productID, 4, "Too short")
	assert.ErrorIs(t, err, ErrInvalidComment)

	_, err = svc.SubmitReview(context.Background(), userID, productID, 4, strings.Repeat("a", 1001))
	assert.ErrorIs(t, err, ErrInvalidComment)

	// Boundary lengths are accepted.
	_, err = svc.SubmitReview(context.Background(), userID, productID, 4, strings.Repeat("a", 10))
	require.NoError(t, err)
}

func TestReviewService_SubmitReview_AlreadyReviewed(t *testing.T) {
	repo := newMockReviewRepo()
	userID, productID := uuid.New(), uuid.New()
	repo.addPurchase(userID, productID, time.Now())
	svc := NewReviewService(repo)

	_, err := svc.SubmitReview(context.Background(), userID, productID, 5, validComment)
	require.NoError(t, err)

	_, err = svc.SubmitReview(context.Background(), userID, productID, 3, validComment)
	assert.ErrorIs(t, err, ErrAlreadyReviewed)
}

func TestReviewService_SubmitReview_ConcurrentDuplicate(t *testing.T) {
	repo := newMockReviewRepo()
	userID, productID := uuid.New(), uuid.New()
	repo.addPurchase(userID, productID, time.Now())
	svc := NewReviewService(repo)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SubmitReview(context.Background(), userID, productID, 5, validComment)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded, rejected := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorIs(t, err, ErrAlreadyReviewed):
			rejected++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)
	assert.Len(t, repo.reviews, 1)
}
