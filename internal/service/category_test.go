package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryService_CreateAndGet(t *testing.T) {
	repo := newMockCategoryRepo()
	svc := NewCategoryService(repo)

	category, err := svc.Create(context.Background(), "Produce")
	require.NoError(t, err)
	assert.Equal(t, "Produce", category.Name)

	found, err := svc.GetByID(context.Background(), category.ID)
	require.NoError(t, err)
	assert.Equal(t, category.ID, found.ID)
}

func TestCategoryService_GetByID_NotFound(t *testing.T) {
	svc := NewCategoryService(newMockCategoryRepo())
	_, err := svc.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestCategoryService_Update(t *testing.T) {
	repo := newMockCategoryRepo()
	svc := NewCategoryService(repo)

	category, err := svc.Create(context.Background(), "Bakery")
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), category.ID, "Bakery & Pastry")
	require.NoError(t, err)
	assert.Equal(t, "Bakery & Pastry", updated.Name)
}

func TestCategoryService_Update_NotFound(t *testing.T) {
	svc := NewCategoryService(newMockCategoryRepo())
	_, err := svc.Update(context.Background(), uuid.New(), "anything")
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestCategoryService_Delete_WithProducts(t *testing.T) {
	repo := newMockCategoryRepo()
	svc := NewCategoryService(repo)

	category, err := svc.Create(context.Background(), "Frozen")
	require.NoError(t, err)
	repo.referenced[category.ID] = true

	err = svc.Delete(context.Background(), category.ID)
	assert.ErrorIs(t, err, ErrCategoryHasProducts)
	assert.Len(t, repo.categories, 1)
}
