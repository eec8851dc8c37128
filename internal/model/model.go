package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID        uuid.UUID
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Category struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Product struct {
	ID          uuid.UUID
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	CategoryID  uuid.UUID
	ImageURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CartLine is one line of a proposed order. ExpectedPrice is the client's
// last-known price and must match the live catalog price exactly.
type CartLine struct {
	ProductID     uuid.UUID
	Quantity      int
	ExpectedPrice decimal.Decimal
}

// Order is an immutable receipt once committed. Items are set at creation
// and never mutated afterwards.
type Order struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Items     []OrderItem
	CreatedAt time.Time
}

// OrderItem snapshots the product name and price at purchase time so
// historical orders survive later product edits or deletion.
type OrderItem struct {
	ID              uuid.UUID
	OrderID         uuid.UUID
	ProductID       uuid.UUID
	ProductName     string
	PriceAtPurchase decimal.Decimal
	Quantity        int
}

type Review struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	UserID    uuid.UUID
	OrderID   uuid.UUID
	Rating    int
	Comment   string
	CreatedAt time.Time
}

// ReviewStats aggregates a product's reviews for the admin sales view.
type ReviewStats struct {
	AverageRating decimal.Decimal
	TotalReviews  int
	Distribution  map[int]int
}

type SalesSummary struct {
	TotalOrders  int
	TotalRevenue decimal.Decimal
}

// OrderPlacedMessage is published after an order commits.
type OrderPlacedMessage struct {
	OrderID uuid.UUID         `json:"order_id"`
	UserID  uuid.UUID         `json:"user_id"`
	Items   []OrderPlacedItem `json:"items"`
}

type OrderPlacedItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}
