package test

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
)

// OrderRepositoryStub stores orders in-memory for tests. All methods are
// safe for concurrent use; Err (or the per-method overrides) injects
// failures into any call.
type OrderRepositoryStub struct {
	mu       sync.Mutex
	ByKey    map[string]*model.Order
	Next     int64
	Err      error
	ExistsFn func(ctx context.Context, orderID string) (bool, error)
}

// NewOrderRepositoryStub constructs a stub repository with initialized maps.
func NewOrderRepositoryStub() *OrderRepositoryStub {
	return &OrderRepositoryStub{ByKey: make(map[string]*model.Order), Next: 1}
}

// Seed inserts an order directly, bypassing validation. Handy for arranging
// a starting state in tests.
func (s *OrderRepositoryStub) Seed(order *model.Order) *model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	if order.ID == 0 {
		order.ID = s.Next
		s.Next++
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
		order.UpdatedAt = order.CreatedAt
	}
	s.ByKey[order.OrderID] = order
	clone := *order
	return &clone
}

func (s *OrderRepositoryStub) Create(ctx context.Context, order *model.Order) (*model.Order, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *order
	stored.ID = s.Next
	s.Next++
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.ByKey[stored.OrderID] = &stored
	clone := stored
	return &clone, nil
}

func (s *OrderRepositoryStub) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, order := range s.ByKey {
		if order.ID == id {
			clone := *order
			return &clone, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

func (s *OrderRepositoryStub) GetByOrderID(ctx context.Context, orderID string) (*model.Order, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if order, ok := s.ByKey[orderID]; ok {
		clone := *order
		return &clone, nil
	}
	return nil, domainErrors.ErrNotFound
}

func (s *OrderRepositoryStub) ListByCustomer(ctx context.Context, customerID string) ([]model.Order, error) {
	return s.list(func(o *model.Order) bool { return o.CustomerID == customerID })
}

func (s *OrderRepositoryStub) ListAll(ctx context.Context) ([]model.Order, error) {
	return s.list(func(*model.Order) bool { return true })
}

func (s *OrderRepositoryStub) ListByStatus(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	return s.list(func(o *model.Order) bool { return o.Status == status })
}

func (s *OrderRepositoryStub) ListByAmountRange(ctx context.Context, min, max decimal.Decimal) ([]model.Order, error) {
	return s.list(func(o *model.Order) bool {
		return o.Amount.GreaterThanOrEqual(min) && o.Amount.LessThanOrEqual(max)
	})
}

func (s *OrderRepositoryStub) Exists(ctx context.Context, orderID string) (bool, error) {
	if s.ExistsFn != nil {
		return s.ExistsFn(ctx, orderID)
	}
	if s.Err != nil {
		return false, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ByKey[orderID]
	return ok, nil
}

func (s *OrderRepositoryStub) UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus, paid *decimal.Decimal) (*model.Order, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.ByKey[orderID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	order.Status = status
	if paid != nil {
		amount := *paid
		order.PaidAmount = &amount
	}
	order.UpdatedAt = time.Now()
	clone := *order
	return &clone, nil
}

func (s *OrderRepositoryStub) CountByStatus(ctx context.Context) (map[model.OrderStatus]int64, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[model.OrderStatus]int64)
	for _, order := range s.ByKey {
		counts[order.Status]++
	}
	return counts, nil
}

func (s *OrderRepositoryStub) list(keep func(*model.Order) bool) ([]model.Order, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Order
	for _, order := range s.ByKey {
		if keep(order) {
			out = append(out, *order)
		}
	}
	return out, nil
}
