package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/orderflow/internal/domain/model"
)

// OrderRepository describes the storage collaborator contract for orders.
// Implementations must be transactional at the single-record level and are
// expected to surface domain errors (ErrNotFound, ErrStorageUnavailable).
type OrderRepository interface {
	// Create persists a new order and assigns the surrogate key and timestamps.
	Create(ctx context.Context, order *model.Order) (*model.Order, error)

	GetByID(ctx context.Context, id int64) (*model.Order, error)
	GetByOrderID(ctx context.Context, orderID string) (*model.Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]model.Order, error)
	ListAll(ctx context.Context) ([]model.Order, error)
	ListByStatus(ctx context.Context, status model.OrderStatus) ([]model.Order, error)
	ListByAmountRange(ctx context.Context, min, max decimal.Decimal) ([]model.Order, error)

	// Exists reports whether an order with the given opaque id is recorded.
	Exists(ctx context.Context, orderID string) (bool, error)

	// UpdateStatus persists a status change (and optionally the paid amount)
	// and returns the updated record. Lifecycle validity is the ledger's
	// concern, not the repository's.
	UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus, paid *decimal.Decimal) (*model.Order, error)

	// CountByStatus returns per-status order counts from one consistent read.
	CountByStatus(ctx context.Context) (map[model.OrderStatus]int64, error)
}
