package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/freshmart/grocery-api/internal/dto"
	"github.com/freshmart/grocery-api/internal/middleware"
	"github.com/freshmart/grocery-api/internal/model"
	"github.com/freshmart/grocery-api/internal/service"
)

type ReviewHandler struct {
	reviewService *service.ReviewService
	log           *slog.Logger
}

func NewReviewHandler(reviewService *service.ReviewService, log *slog.Logger) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService, log: log}
}

func (h *ReviewHandler) ListByProduct(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "invalid product ID")
		return
	}

	reviews, err := h.reviewService.ListByProduct(c.Request.Context(), productID)
	if err != nil {
		internalError(c, h.log, "list reviews", err)
		return
	}

	var items []dto.ReviewResponse
	for _, rv := range reviews {
		items = append(items, toReviewResponse(&rv))
	}
	c.JSON(http.StatusOK, dto.ReviewListResponse{Reviews: items, Total: len(items)})
}

func (h *ReviewHandler) CanReview(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "invalid product ID")
		return
	}

	eligible, reason, err := h.reviewService.CanReview(c.Request.Context(), middleware.GetUserID(c), productID)
	if err != nil {
		internalError(c, h.log, "can review", err)
		return
	}

	c.JSON(http.StatusOK, dto.CanReviewResponse{CanReview: eligible, Reason: reason})
}

func (h *ReviewHandler) Create(c *gin.Context) {
	var req dto.SubmitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	review, err := h.reviewService.SubmitReview(c.Request.Context(), middleware.GetUserID(c), req.ProductID, req.Rating, req.Comment)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotPurchased):
			respondError(c, http.StatusForbidden, "not_purchased", "you can only review purchased products")
		case errors.Is(err, service.ErrAlreadyReviewed):
			respondError(c, http.StatusConflict, "already_reviewed", "you have already reviewed this product")
		case errors.Is(err, service.ErrInvalidRating):
			respondError(c, http.StatusBadRequest, "invalid_rating", "rating must be between 1 and 5")
		case errors.Is(err, service.ErrInvalidComment):
			respondError(c, http.StatusBadRequest, "invalid_comment", "comment must be between 10 and 1000 characters")
		default:
			internalError(c, h.log, "submit review", err)
		}
		return
	}

	c.JSON(http.StatusCreated, toReviewResponse(review))
}

func toReviewResponse(rv *model.Review) dto.ReviewResponse {
	return dto.ReviewResponse{
		ID:        rv.ID,
		ProductID: rv.ProductID,
		UserID:    rv.UserID,
		OrderID:   rv.OrderID,
		Rating:    rv.Rating,
		Comment:   rv.Comment,
		CreatedAt: rv.CreatedAt,
	}
}
