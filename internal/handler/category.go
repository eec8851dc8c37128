package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/freshmart/grocery-api/internal/dto"
	"github.com/freshmart/grocery-api/internal/model"
	"github.com/freshmart/grocery-api/internal/service"
)

type CategoryHandler struct {
	categoryService *service.CategoryService
	log             *slog.Logger
}

func NewCategoryHandler(categoryService *service.CategoryService, log *slog.Logger) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService, log: log}
}

func (h *CategoryHandler) List(c *gin.Context) {
	categories, err := h.categoryService.List(c.Request.Context())
	if err != nil {
		internalError(c, h.log, "list categories", err)
		return
	}

	items := make([]dto.CategoryResponse, 0, len(categories))
	for _, cat := range categories {
		items = append(items, toCategoryResponse(&cat))
	}
	c.JSON(http.StatusOK, items)
}

func (h *CategoryHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "invalid category ID")
		return
	}

	category, err := h.categoryService.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrCategoryNotFound) {
			respondError(c, http.StatusNotFound, "category_not_found", "category not found")
			return
		}
		internalError(c, h.log, "get category", err)
		return
	}

	c.JSON(http.StatusOK, toCategoryResponse(category))
}

func (h *CategoryHandler) Create(c *gin.Context) {
	var req dto.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	category, err := h.categoryService.Create(c.Request.Context(), req.Name)
	if err != nil {
		internalError(c, h.log, "create category", err)
		return
	}

	c.JSON(http.StatusCreated, toCategoryResponse(category))
}

func (h *CategoryHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "invalid category ID")
		return
	}

	var req dto.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	category, err := h.categoryService.Update(c.Request.Context(), id, req.Name)
	if err != nil {
		if errors.Is(err, service.ErrCategoryNotFound) {
			respondError(c, http.StatusNotFound, "category_not_found", "category not found")
			return
		}
		internalError(c, h.log, "update category", err)
		return
	}

	c.JSON(http.StatusOK, toCategoryResponse(category))
}

func (h *CategoryHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "invalid category ID")
		return
	}

	if err := h.categoryService.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			respondError(c, http.StatusNotFound, "category_not_found", "category not found")
			return
		}
		if errors.Is(err, service.ErrCategoryHasProducts) {
			respondError(c, http.StatusConflict, "category_in_use", "category still has products")
			return
		}
		internalError(c, h.log, "delete category", err)
		return
	}

	c.Status(http.StatusNoContent)
}

func toCategoryResponse(category *model.Category) dto.CategoryResponse {
	return dto.CategoryResponse{ID: category.ID, Name: category.Name}
}
