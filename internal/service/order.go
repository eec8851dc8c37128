package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/freshmart/grocery-api/internal/model"
	"github.com/freshmart/grocery-api/internal/repository"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderAccessDenied = errors.New("access denied")
)

const orderPlacedQueue = "orders.placed"

// orderPublisher is the part of *amqp.Channel the service uses.
type orderPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type OrderService struct {
	orderRepo repository.OrderRepository
	publisher orderPublisher
	log       *slog.Logger
}

func NewOrderService(orderRepo repository.OrderRepository, publisher orderPublisher, log *slog.Logger) *OrderService {
	return &OrderService{orderRepo: orderRepo, publisher: publisher, log: log}
}

// PlaceOrder validates the cart against the live catalog and commits the
// order, its item snapshots, and the stock decrements as one atomic unit.
// A serialization conflict is retried once with fresh reads before the
// caller sees the failure.
func (s *OrderService) PlaceOrder(ctx context.Context, userID uuid.UUID, lines []model.CartLine) (*model.Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	order, err := s.orderRepo.PlaceOrder(ctx, userID, lines)
	if errors.Is(err, repository.ErrTransactionConflict) {
		order, err = s.orderRepo.PlaceOrder(ctx, userID, lines)
	}
	if err != nil {
		return nil, err
	}

	s.publishOrderPlaced(ctx, order)
	return order, nil
}

// publishOrderPlaced emits the after-commit event consumed by the sales
// worker. Delivery is best-effort: the order is already durable.
func (s *OrderService) publishOrderPlaced(ctx context.Context, order *model.Order) {
	if s.publisher == nil {
		return
	}
	msg := model.OrderPlacedMessage{OrderID: order.ID, UserID: order.UserID}
	for _, item := range order.Items {
		msg.Items = append(msg.Items, model.OrderPlacedItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	body, _ := json.Marshal(msg)
	err := s.publisher.PublishWithContext(ctx, "", orderPlacedQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		s.log.Error("publish order placed", "order_id", order.ID, "error", err)
	}
}

func (s *OrderService) GetByID(ctx context.Context, orderID, userID uuid.UUID, isAdmin bool) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.UserID != userID && !isAdmin {
		return nil, ErrOrderAccessDenied
	}
	return order, nil
}

func (s *OrderService) ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	return s.orderRepo.ListByUserID(ctx, userID)
}

func (s *OrderService) ListAll(ctx context.Context) ([]model.Order, error) {
	return s.orderRepo.ListAll(ctx)
}

func (s *OrderService) SalesSummary(ctx context.Context) (*model.SalesSummary, error) {
	return s.orderRepo.SalesSummary(ctx)
}
