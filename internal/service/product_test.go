package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freshmart/grocery-api/internal/dto"
	"github.com/freshmart/grocery-api/internal/model"
	"github.com/freshmart/grocery-api/internal/repository"
)

type mockProductRepo struct {
	products   map[uuid.UUID]*model.Product
	referenced map[uuid.UUID]bool
}

func newMockProductRepo() *mockProductRepo {
	return &mockProductRepo{
		products:   make(map[uuid.UUID]*model.Product),
		referenced: make(map[uuid.UUID]bool),
	}
}

func (m *mockProductRepo) Create(_ context.Context, p *model.Product) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.products[p.ID] = p
	return nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	return m.products[id], nil
}

func (m *mockProductRepo) List(_ context.Context, limit, offset int, categoryID *uuid.UUID, search string) ([]model.Product, int, error) {
	var all []model.Product
	for _, p := range m.products {
		if categoryID != nil && p.CategoryID != *categoryID {
			continue
		}
		all = append(all, *p)
	}
	return all, len(all), nil
}

func (m *mockProductRepo) Update(_ context.Context, p *model.Product) error {
	m.products[p.ID] = p
	return nil
}

func (m *mockProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.products[id]; !ok {
		return pgx.ErrNoRows
	}
	if m.referenced[id] {
		return repository.ErrProductReferenced
	}
	delete(m.products, id)
	return nil
}

type mockCategoryRepo struct {
	categories map[uuid.UUID]*model.Category
	referenced map[uuid.UUID]bool
}

func newMockCategoryRepo() *mockCategoryRepo {
	return &mockCategoryRepo{
		categories: make(map[uuid.UUID]*model.Category),
		referenced: make(map[uuid.UUID]bool),
	}
}

func (m *mockCategoryRepo) Create(_ context.Context, c *model.Category) error {
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	c.UpdatedAt = time.Now()
	m.categories[c.ID] = c
	return nil
}

func (m *mockCategoryRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Category, error) {
	return m.categories[id], nil
}

func (m *mockCategoryRepo) List(_ context.Context) ([]model.Category, error) {
	var all []model.Category
	for _, c := range m.categories {
		all = append(all, *c)
	}
	return all, nil
}

func (m *mockCategoryRepo) Update(_ context.Context, c *model.Category) error {
	m.categories[c.ID] = c
	return nil
}

func (m *mockCategoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.categories[id]; !ok {
		return pgx.ErrNoRows
	}
	if m.referenced[id] {
		return repository.ErrCategoryReferenced
	}
	delete(m.categories, id)
	return nil
}

func newProductService(productRepo *mockProductRepo, categoryRepo *mockCategoryRepo) *ProductService {
	return NewProductService(productRepo, categoryRepo, newMockOrderRepo(), newMockReviewRepo(), nil)
}

func addCategory(t *testing.T, repo *mockCategoryRepo, name string) uuid.UUID {
	t.Helper()
	c := &model.Category{Name: name}
	require.NoError(t, repo.Create(context.Background(), c))
	return c.ID
}

func TestProductService_Create(t *testing.T) {
	categoryRepo := newMockCategoryRepo()
	categoryID := addCategory(t, categoryRepo, "Dairy")
	svc := newProductService(newMockProductRepo(), categoryRepo)

	resp, err := svc.Create(context.Background(), dto.CreateProductRequest{
		Name: "Milk", Price: decimal.NewFromFloat(2.49), Stock: 100, CategoryID: categoryID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Milk", resp.Name)
	assert.Equal(t, 100, resp.Stock)
	assert.Equal(t, categoryID, resp.CategoryID)
}

func TestProductService_Create_CategoryNotFound(t *testing.T) {
	svc := newProductService(newMockProductRepo(), newMockCategoryRepo())

	_, err := svc.Create(context.Background(), dto.CreateProductRequest{
		Name: "Milk", Price: decimal.NewFromFloat(2.49), Stock: 100, CategoryID: uuid.New(),
	})
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestProductService_Create_ZeroPriceAllowed(t *testing.T) {
	categoryRepo := newMockCategoryRepo()
	categoryID := addCategory(t, categoryRepo, "Samples")
	svc := newProductService(newMockProductRepo(), categoryRepo)

	resp, err := svc.Create(context.Background(), dto.CreateProductRequest{
		Name: "Tasting Cup", Price: decimal.Zero, Stock: 10, CategoryID: categoryID,
	})
	require.NoError(t, err)
	assert.True(t, resp.Price.Equal(decimal.Zero))
}

func TestProductService_Create_NegativePrice(t *testing.T) {
	categoryRepo := newMockCategoryRepo()
	categoryID := addCategory(t, categoryRepo, "Samples")
	svc := newProductService(newMockProductRepo(), categoryRepo)

	_, err := svc.Create(context.Background(), dto.CreateProductRequest{
		Name: "Tasting Cup", Price: decimal.NewFromFloat(-0.01), Stock: 10, CategoryID: categoryID,
	})
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestProductService_Update_NegativePrice(t *testing.T) {
	repo := newMockProductRepo()
	id := uuid.New()
	repo.products[id] = &model.Product{ID: id, Name: "Milk", Price: decimal.NewFromFloat(2.49)}
	svc := newProductService(repo, newMockCategoryRepo())

	bad := decimal.NewFromFloat(-1)
	_, err := svc.Update(context.Background(), id, dto.UpdateProductRequest{Price: &bad})
	assert.ErrorIs(t, err, ErrInvalidPrice)
	assert.True(t, repo.products[id].Price.Equal(decimal.NewFromFloat(2.49)))
}

func TestProductService_GetByID_NotFound(t *testing.T) {
	svc := newProductService(newMockProductRepo(), newMockCategoryRepo())
	_, err := svc.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductService_Delete(t *testing.T) {
	repo := newMockProductRepo()
	id := uuid.New()
	repo.products[id] = &model.Product{ID: id}
	svc := newProductService(repo, newMockCategoryRepo())

	err := svc.Delete(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, repo.products)
}

func TestProductService_Delete_ReferencedByOrders(t *testing.T) {
	repo := newMockProductRepo()
	id := uuid.New()
	repo.products[id] = &model.Product{ID: id}
	repo.referenced[id] = true
	svc := newProductService(repo, newMockCategoryRepo())

	err := svc.Delete(context.Background(), id)
	assert.ErrorIs(t, err, ErrProductInOrders)
	assert.Len(t, repo.products, 1)
}

func TestProductService_SalesData(t *testing.T) {
	productRepo := newMockProductRepo()
	orderRepo := newMockOrderRepo()
	reviewRepo := newMockReviewRepo()

	price := decimal.NewFromFloat(3.99)
	pid := orderRepo.addProduct("Yogurt", price, 50)
	productRepo.products[pid] = &model.Product{ID: pid, Name: "Yogurt", Price: price, Stock: 50}

	userID := uuid.New()
	_, err := orderRepo.PlaceOrder(context.Background(), userID, []model.CartLine{
		{ProductID: pid, Quantity: 4, ExpectedPrice: price},
	})
	require.NoError(t, err)

	reviewRepo.addPurchase(userID, pid, time.Now())
	reviewSvc := NewReviewService(reviewRepo)
	_, err = reviewSvc.SubmitReview(context.Background(), userID, pid, 4, validComment)
	require.NoError(t, err)

	svc := NewProductService(productRepo, newMockCategoryRepo(), orderRepo, reviewRepo, nil)
	resp, err := svc.SalesData(context.Background(), pid)
	require.NoError(t, err)
	assert.Equal(t, int64(4), resp.UnitsSold)
	assert.Equal(t, 50, resp.CurrentStock)
	assert.Equal(t, 1, resp.Reviews.TotalReviews)
	assert.Equal(t, 1, resp.Reviews.Distribution[4])
}
