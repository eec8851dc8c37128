package repository

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

var (
	// ErrTransactionConflict marks a serialization failure or deadlock;
	// the whole operation is safe to retry with fresh reads.
	ErrTransactionConflict = errors.New("transaction conflict")

	// ErrDuplicateReview is returned when the (product, user, order)
	// uniqueness constraint rejects an insert.
	ErrDuplicateReview = errors.New("duplicate review")

	// ErrProductReferenced is returned when a product cannot be deleted
	// because order items still reference it.
	ErrProductReferenced = errors.New("product referenced by order items")

	// ErrCategoryReferenced is returned when a category cannot be deleted
	// because products still reference it.
	ErrCategoryReferenced = errors.New("category referenced by products")
)

type ProductNotFoundError struct {
	ProductID uuid.UUID
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

type InsufficientStockError struct {
	ProductID uuid.UUID
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: %d available", e.ProductID, e.Available)
}

type PriceMismatchError struct {
	ProductID    uuid.UUID
	CurrentPrice decimal.Decimal
}

func (e *PriceMismatchError) Error() string {
	return fmt.Sprintf("price mismatch for product %s: current price is %s", e.ProductID, e.CurrentPrice)
}

const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

func isPgError(err error, codes ...string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	for _, code := range codes {
		if pgErr.Code == code {
			return true
		}
	}
	return false
}

// mapTxError folds retryable postgres failures into ErrTransactionConflict.
func mapTxError(err error) error {
	if isPgError(err, pgSerializationFailure, pgDeadlockDetected) {
		return ErrTransactionConflict
	}
	return err
}
