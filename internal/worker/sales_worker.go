package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/freshmart/grocery-api/internal/model"
)

const (
	orderPlacedQueue = "orders.placed"
	dlxExchange      = "orders.placed.dlx"
	dlqQueueName     = "orders.placed.dlq"
	idempotencyTTL   = 24 * time.Hour
	salesCounterKey  = "sales:product:"
)

// SalesWorker consumes order-placed events and maintains per-product
// units-sold counters in redis. Orders are already durable when the event
// is published; the worker only aggregates.
type SalesWorker struct {
	channel     *amqp.Channel
	redisClient *redis.Client
	log         *slog.Logger
	done        chan struct{}
}

func NewSalesWorker(ch *amqp.Channel, redisClient *redis.Client, log *slog.Logger) *SalesWorker {
	return &SalesWorker{
		channel:     ch,
		redisClient: redisClient,
		log:         log,
		done:        make(chan struct{}),
	}
}

// SetupRabbitMQ declares the order-placed queue with its DLX/DLQ.
func SetupRabbitMQ(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(dlxExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLX: %w", err)
	}
	if _, err := ch.QueueDeclare(dlqQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}
	if err := ch.QueueBind(dlqQueueName, orderPlacedQueue, dlxExchange, false, nil); err != nil {
		return fmt.Errorf("bind DLQ: %w", err)
	}
	if _, err := ch.QueueDeclare(orderPlacedQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    dlxExchange,
		"x-dead-letter-routing-key": orderPlacedQueue,
	}); err != nil {
		return fmt.Errorf("declare order-placed queue: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}
	return nil
}

func (w *SalesWorker) Start(ctx context.Context) error {
	msgs, err := w.channel.Consume(orderPlacedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				w.processMessage(ctx, msg)
			case <-w.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	w.log.Info("sales worker started")
	return nil
}

func (w *SalesWorker) Stop() { close(w.done) }

func (w *SalesWorker) processMessage(ctx context.Context, msg amqp.Delivery) {
	var placed model.OrderPlacedMessage
	if err := json.Unmarshal(msg.Body, &placed); err != nil {
		w.log.Error("unmarshal order-placed message", "error", err)
		_ = msg.Nack(false, false)
		return
	}

	log := w.log.With("order_id", placed.OrderID, "user_id", placed.UserID)

	// Redelivered messages must not double-count.
	idempotencyKey := "sales_counted:" + placed.OrderID.String()
	exists, err := w.redisClient.Exists(ctx, idempotencyKey).Result()
	if err != nil {
		log.Error("check idempotency key", "error", err)
		_ = msg.Nack(false, true)
		return
	}
	if exists > 0 {
		log.Info("order already counted, skipping")
		_ = msg.Ack(false)
		return
	}

	if err := w.countOrder(ctx, placed); err != nil {
		log.Error("count order failed", "error", err)
		_ = msg.Nack(false, false) // to DLQ
		return
	}

	if err := w.redisClient.Set(ctx, idempotencyKey, "1", idempotencyTTL).Err(); err != nil {
		log.Error("set idempotency key", "error", err)
	}

	_ = msg.Ack(false)
	log.Info("order counted")
}

func (w *SalesWorker) countOrder(ctx context.Context, placed model.OrderPlacedMessage) error {
	for _, item := range placed.Items {
		key := salesCounterKey + item.ProductID.String()
		if err := w.redisClient.IncrBy(ctx, key, int64(item.Quantity)).Err(); err != nil {
			return fmt.Errorf("increment %s: %w", key, err)
		}
	}
	return nil
}
