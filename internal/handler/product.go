package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/freshmart/grocery-api/internal/dto"
	"github.com/freshmart/grocery-api/internal/service"
)

type ProductHandler struct {
	productService *service.ProductService
	log            *slog.Logger
}

func NewProductHandler(productService *service.ProductService, log *slog.Logger) *ProductHandler {
	return &ProductHandler{productService: productService, log: log}
}

func (h *ProductHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	resp, err := h.productService.Create(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrCategoryNotFound) {
			respondError(c, http.StatusBadRequest, "category_not_found", "category not found")
			return
		}
		if errors.Is(err, service.ErrInvalidPrice) {
			respondError(c, http.StatusBadRequest, "invalid_price", "price must not be negative")
			return
		}
		internalError(c, h.log, "create product", err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *ProductHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "invalid product ID")
		return
	}

	resp, err := h.productService.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			respondError(c, http.StatusNotFound, "product_not_found", "product not found")
			return
		}
		internalError(c, h.log, "get product", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ProductHandler) List(c *gin.Context) {
	var req dto.ListProductsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	resp, err := h.productService.List(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrCategoryNotFound) {
			respondError(c, http.StatusBadRequest, "category_not_found", "invalid category filter")
			return
		}
		internalError(c, h.log, "list products", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ProductHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "invalid product ID")
		return
	}

	var req dto.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	resp, err := h.productService.Update(c.Request.Context(), id, req)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			respondError(c, http.StatusNotFound, "product_not_found", "product not found")
			return
		}
		if errors.Is(err, service.ErrCategoryNotFound) {
			respondError(c, http.StatusBadRequest, "category_not_found", "category not found")
			return
		}
		if errors.Is(err, service.ErrInvalidPrice) {
			respondError(c, http.StatusBadRequest, "invalid_price", "price must not be negative")
			return
		}
		internalError(c, h.log, "update product", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ProductHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "invalid product ID")
		return
	}

	if err := h.productService.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			respondError(c, http.StatusNotFound, "product_not_found", "product not found")
			return
		}
		if errors.Is(err, service.ErrProductInOrders) {
			respondError(c, http.StatusConflict, "product_in_orders", "product is referenced by existing orders")
			return
		}
		internalError(c, h.log, "delete product", err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ProductHandler) Sales(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "invalid product ID")
		return
	}

	resp, err := h.productService.SalesData(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			respondError(c, http.StatusNotFound, "product_not_found", "product not found")
			return
		}
		internalError(c, h.log, "product sales", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
