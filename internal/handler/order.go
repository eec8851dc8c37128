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
	"github.com/freshmart/grocery-api/internal/repository"
	"github.com/freshmart/grocery-api/internal/service"
)

type OrderHandler struct {
	orderService *service.OrderService
	log          *slog.Logger
}

func NewOrderHandler(orderService *service.OrderService, log *slog.Logger) *OrderHandler {
	return &OrderHandler{orderService: orderService, log: log}
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	if middleware.GetUserRole(c) == "admin" {
		respondError(c, http.StatusForbidden, "forbidden", "admin users cannot place orders")
		return
	}
	userID := middleware.GetUserID(c)

	var req dto.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	lines := make([]model.CartLine, 0, len(req))
	for _, line := range req {
		lines = append(lines, model.CartLine{
			ProductID:     line.ProductID,
			Quantity:      line.Quantity,
			ExpectedPrice: line.ExpectedPrice,
		})
	}

	order, err := h.orderService.PlaceOrder(c.Request.Context(), userID, lines)
	if err != nil {
		h.placementError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toOrderResponse(order))
}

// placementError maps the order-placement error taxonomy onto wire codes,
// attaching the offending product id and the authoritative current value
// so the client can re-sync.
func (h *OrderHandler) placementError(c *gin.Context, err error) {
	var (
		notFound     *repository.ProductNotFoundError
		outOfStock   *repository.InsufficientStockError
		priceChanged *repository.PriceMismatchError
	)
	switch {
	case errors.Is(err, service.ErrEmptyCart):
		respondError(c, http.StatusBadRequest, "empty_cart", "order must contain at least one item")
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Code: "product_not_found", Message: err.Error(), ProductID: &notFound.ProductID,
		})
	case errors.As(err, &outOfStock):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Code: "insufficient_stock", Message: err.Error(),
			ProductID: &outOfStock.ProductID, Available: &outOfStock.Available,
		})
	case errors.As(err, &priceChanged):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Code: "price_mismatch", Message: err.Error(),
			ProductID: &priceChanged.ProductID, CurrentPrice: &priceChanged.CurrentPrice,
		})
	case errors.Is(err, repository.ErrTransactionConflict):
		respondError(c, http.StatusConflict, "transaction_conflict", "concurrent update, retry with fresh data")
	default:
		internalError(c, h.log, "place order", err)
	}
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	var (
		orders []model.Order
		err    error
	)
	if middleware.GetUserRole(c) == "admin" {
		orders, err = h.orderService.ListAll(c.Request.Context())
	} else {
		orders, err = h.orderService.ListByUserID(c.Request.Context(), middleware.GetUserID(c))
	}
	if err != nil {
		internalError(c, h.log, "list orders", err)
		return
	}

	var items []dto.OrderResponse
	for _, o := range orders {
		items = append(items, toOrderResponse(&o))
	}
	c.JSON(http.StatusOK, dto.OrderListResponse{Orders: items, Total: len(items)})
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "invalid order ID")
		return
	}

	isAdmin := middleware.GetUserRole(c) == "admin"
	order, err := h.orderService.GetByID(c.Request.Context(), orderID, middleware.GetUserID(c), isAdmin)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			respondError(c, http.StatusNotFound, "order_not_found", "order not found")
			return
		}
		if errors.Is(err, service.ErrOrderAccessDenied) {
			respondError(c, http.StatusForbidden, "forbidden", "access denied")
			return
		}
		internalError(c, h.log, "get order", err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) SalesSummary(c *gin.Context) {
	summary, err := h.orderService.SalesSummary(c.Request.Context())
	if err != nil {
		internalError(c, h.log, "sales summary", err)
		return
	}
	c.JSON(http.StatusOK, dto.SalesSummaryResponse{
		TotalOrders:  summary.TotalOrders,
		TotalRevenue: summary.TotalRevenue,
	})
}

func toOrderResponse(order *model.Order) dto.OrderResponse {
	var items []dto.OrderItemResponse
	for _, item := range order.Items {
		items = append(items, dto.OrderItemResponse{
			ID:              item.ID,
			ProductID:       item.ProductID,
			ProductName:     item.ProductName,
			PriceAtPurchase: item.PriceAtPurchase,
			Quantity:        item.Quantity,
		})
	}
	return dto.OrderResponse{
		ID:        order.ID,
		UserID:    order.UserID,
		Items:     items,
		CreatedAt: order.CreatedAt,
	}
}
