package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/domain/repository"
	"github.com/polkiloo/orderflow/internal/lifecycle"
	"github.com/polkiloo/orderflow/internal/metrics"
	"github.com/polkiloo/orderflow/internal/pkg/keymutex"
)

// OrderUseCase is the order ledger: it owns order records, validates input
// on creation, and is the single mutation entry point for status changes.
// Mutations for the same order are serialized by a keyed mutex; distinct
// orders proceed independently.
type OrderUseCase struct {
	orders repository.OrderRepository
	locks  *keymutex.KeyMutex
}

// NewOrderUseCase constructs OrderUseCase.
func NewOrderUseCase(orders repository.OrderRepository) *OrderUseCase {
	return &OrderUseCase{orders: orders, locks: keymutex.New()}
}

// GenerateOrderID produces a fresh opaque order identifier with no side effects.
func (u *OrderUseCase) GenerateOrderID() string {
	return uuid.NewString()
}

// Create validates input and records a new order in the NEW status.
func (u *OrderUseCase) Create(ctx context.Context, customerID, productName string, amount decimal.Decimal) (*model.Order, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, fmt.Errorf("customer id is required: %w", domainErrors.ErrValidation)
	}
	if strings.TrimSpace(productName) == "" {
		return nil, fmt.Errorf("product name is required: %w", domainErrors.ErrValidation)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive, got %s: %w", amount, domainErrors.ErrValidation)
	}

	order := &model.Order{
		OrderID:     u.GenerateOrderID(),
		CustomerID:  customerID,
		ProductName: productName,
		Amount:      amount,
		Status:      lifecycle.Initial(),
	}
	created, err := u.orders.Create(ctx, order)
	if err != nil {
		return nil, err
	}
	metrics.OrdersCreatedTotal.Inc()
	return created, nil
}

// GetByID fetches an order by its surrogate key.
func (u *OrderUseCase) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	return u.orders.GetByID(ctx, id)
}

// GetByOrderID fetches an order by its opaque identifier.
func (u *OrderUseCase) GetByOrderID(ctx context.Context, orderID string) (*model.Order, error) {
	return u.orders.GetByOrderID(ctx, orderID)
}

// ListByCustomer returns all orders registered by the customer.
func (u *OrderUseCase) ListByCustomer(ctx context.Context, customerID string) ([]model.Order, error) {
	return u.orders.ListByCustomer(ctx, customerID)
}

// ListAll returns every recorded order.
func (u *OrderUseCase) ListAll(ctx context.Context) ([]model.Order, error) {
	return u.orders.ListAll(ctx)
}

// ListByStatus returns orders currently in the given status.
func (u *OrderUseCase) ListByStatus(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	if _, ok := model.ParseOrderStatus(string(status)); !ok {
		return nil, fmt.Errorf("unknown status %q: %w", status, domainErrors.ErrValidation)
	}
	return u.orders.ListByStatus(ctx, status)
}

// ListByAmountRange returns orders with min <= amount <= max.
func (u *OrderUseCase) ListByAmountRange(ctx context.Context, min, max decimal.Decimal) ([]model.Order, error) {
	if min.IsNegative() || max.LessThan(min) {
		return nil, fmt.Errorf("invalid amount range [%s, %s]: %w", min, max, domainErrors.ErrValidation)
	}
	return u.orders.ListByAmountRange(ctx, min, max)
}

// Exists reports whether the opaque order id references a recorded order.
func (u *OrderUseCase) Exists(ctx context.Context, orderID string) (bool, error) {
	return u.orders.Exists(ctx, orderID)
}

// ApplyTransition moves the order to target if the lifecycle table allows it.
// Invalid transitions leave the record untouched.
func (u *OrderUseCase) ApplyTransition(ctx context.Context, orderID string, target model.OrderStatus) (*model.Order, error) {
	u.locks.Lock(orderID)
	defer u.locks.Unlock(orderID)
	return u.applyLocked(ctx, orderID, target, nil)
}

// ApplyPayment records payment for the order and moves it to PAID. Payment is
// accepted from NEW or PROCESSING; an order still in NEW passes through
// PROCESSING first so the status only ever moves along lifecycle edges.
// Partial or mismatched payments are rejected.
func (u *OrderUseCase) ApplyPayment(ctx context.Context, orderID string, amount decimal.Decimal) (*model.Order, error) {
	u.locks.Lock(orderID)
	defer u.locks.Unlock(orderID)

	order, err := u.orders.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != model.OrderStatusNew && order.Status != model.OrderStatusProcessing {
		return nil, fmt.Errorf("payment for order in %s: %w", order.Status, domainErrors.ErrInvalidTransition)
	}
	if !amount.Equal(order.Amount) {
		return nil, fmt.Errorf("payment %s does not match order amount %s: %w", amount, order.Amount, domainErrors.ErrValidation)
	}

	if order.Status == model.OrderStatusNew {
		if _, err := u.applyLocked(ctx, orderID, model.OrderStatusProcessing, nil); err != nil {
			return nil, err
		}
	}
	return u.applyLocked(ctx, orderID, model.OrderStatusPaid, &amount)
}

// Cancel moves the order to CANCELLED where the lifecycle allows it.
func (u *OrderUseCase) Cancel(ctx context.Context, orderID string) (*model.Order, error) {
	return u.ApplyTransition(ctx, orderID, model.OrderStatusCancelled)
}

func (u *OrderUseCase) applyLocked(ctx context.Context, orderID string, target model.OrderStatus, paid *decimal.Decimal) (*model.Order, error) {
	order, err := u.orders.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !lifecycle.Allowed(order.Status, target) {
		return nil, fmt.Errorf("%s -> %s: %w", order.Status, target, domainErrors.ErrInvalidTransition)
	}
	updated, err := u.orders.UpdateStatus(ctx, orderID, target, paid)
	if err != nil {
		return nil, err
	}
	metrics.OrderTransitionsTotal.WithLabelValues(string(target)).Inc()
	return updated, nil
}
