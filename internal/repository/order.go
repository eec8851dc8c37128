package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/freshmart/grocery-api/internal/model"
)

type OrderRepository interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, lines []model.CartLine) (*model.Order, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error)
	ListAll(ctx context.Context) ([]model.Order, error)
	SalesSummary(ctx context.Context) (*model.SalesSummary, error)
	UnitsSold(ctx context.Context, productID uuid.UUID) (int64, error)
}

type pgOrderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &pgOrderRepo{pool: pool}
}

// PlaceOrder validates every line against a consistent read, then decrements
// stock and persists the order with name/price snapshots as one transaction.
// The decrement is conditional (stock >= quantity) so concurrent placements
// cannot oversell: the snapshot comes from the row the decrement actually
// hit, not from the earlier validation read.
func (r *pgOrderRepo) PlaceOrder(ctx context.Context, userID uuid.UUID, lines []model.CartLine) (*model.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Validation pass: nothing is written until every line checks out.
	for _, line := range lines {
		var (
			price decimal.Decimal
			stock int
		)
		err := tx.QueryRow(ctx, `SELECT price, stock FROM products WHERE id = $1`, line.ProductID).Scan(&price, &stock)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, &ProductNotFoundError{ProductID: line.ProductID}
			}
			return nil, fmt.Errorf("read product %s: %w", line.ProductID, mapTxError(err))
		}
		if stock < line.Quantity {
			return nil, &InsufficientStockError{ProductID: line.ProductID, Available: stock}
		}
		if !price.Equal(line.ExpectedPrice) {
			return nil, &PriceMismatchError{ProductID: line.ProductID, CurrentPrice: price}
		}
	}

	order := &model.Order{ID: uuid.New(), UserID: userID}
	err = tx.QueryRow(ctx,
		`INSERT INTO orders (id, user_id, created_at) VALUES ($1, $2, NOW()) RETURNING created_at`,
		order.ID, order.UserID,
	).Scan(&order.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", mapTxError(err))
	}

	for _, line := range lines {
		var (
			name  string
			price decimal.Decimal
		)
		err := tx.QueryRow(ctx,
			`UPDATE products SET stock = stock - $2, updated_at = NOW()
			 WHERE id = $1 AND stock >= $2 RETURNING name, price`,
			line.ProductID, line.Quantity,
		).Scan(&name, &price)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// A concurrent writer got here first; re-read for the
				// authoritative available count.
				var available int
				if err := tx.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, line.ProductID).Scan(&available); err != nil {
					if errors.Is(err, pgx.ErrNoRows) {
						return nil, &ProductNotFoundError{ProductID: line.ProductID}
					}
					return nil, fmt.Errorf("read stock for %s: %w", line.ProductID, mapTxError(err))
				}
				return nil, &InsufficientStockError{ProductID: line.ProductID, Available: available}
			}
			return nil, fmt.Errorf("decrement stock for %s: %w", line.ProductID, mapTxError(err))
		}

		item := model.OrderItem{
			ID:              uuid.New(),
			OrderID:         order.ID,
			ProductID:       line.ProductID,
			ProductName:     name,
			PriceAtPurchase: price,
			Quantity:        line.Quantity,
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO order_items (id, order_id, product_id, product_name, price_at_purchase, quantity)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			item.ID, item.OrderID, item.ProductID, item.ProductName, item.PriceAtPurchase, item.Quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("insert order item: %w", mapTxError(err))
		}
		order.Items = append(order.Items, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit order: %w", mapTxError(err))
	}
	return order, nil
}

func (r *pgOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order := &model.Order{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, created_at FROM orders WHERE id = $1`, id,
	).Scan(&order.ID, &order.UserID, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, product_id, product_name, price_at_purchase, quantity FROM order_items WHERE order_id = $1`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.ProductName, &item.PriceAtPurchase, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		item.OrderID = order.ID
		order.Items = append(order.Items, item)
	}
	return order, nil
}

func (r *pgOrderRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	return r.list(ctx, `SELECT id, user_id, created_at FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *pgOrderRepo) ListAll(ctx context.Context) ([]model.Order, error) {
	return r.list(ctx, `SELECT id, user_id, created_at FROM orders ORDER BY created_at DESC`)
}

// list returns orders with their items fully populated.
func (r *pgOrderRepo) list(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	var ids []uuid.UUID
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	itemRows, err := r.pool.Query(ctx,
		`SELECT id, order_id, product_id, product_name, price_at_purchase, quantity
		 FROM order_items WHERE order_id = ANY($1)`, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer itemRows.Close()

	byOrder := make(map[uuid.UUID][]model.OrderItem, len(orders))
	for itemRows.Next() {
		var item model.OrderItem
		if err := itemRows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.PriceAtPurchase, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}
	for i := range orders {
		orders[i].Items = byOrder[orders[i].ID]
	}
	return orders, nil
}

func (r *pgOrderRepo) SalesSummary(ctx context.Context) (*model.SalesSummary, error) {
	summary := &model.SalesSummary{}
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT o.id), COALESCE(SUM(oi.price_at_purchase * oi.quantity), 0)
		 FROM orders o LEFT JOIN order_items oi ON oi.order_id = o.id`,
	).Scan(&summary.TotalOrders, &summary.TotalRevenue)
	if err != nil {
		return nil, fmt.Errorf("sales summary: %w", err)
	}
	return summary, nil
}

func (r *pgOrderRepo) UnitsSold(ctx context.Context, productID uuid.UUID) (int64, error) {
	var units int64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM order_items WHERE product_id = $1`, productID,
	).Scan(&units)
	if err != nil {
		return 0, fmt.Errorf("units sold: %w", err)
	}
	return units, nil
}
