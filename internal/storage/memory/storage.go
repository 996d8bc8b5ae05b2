// Package memory implements the order storage collaborator in process
// memory. It backs tests and DSN-less deployments; committed state does not
// survive a restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
)

// Storage is a mutex-guarded order store. Snapshot-style reads take the
// lock once, so counts always come from one consistent view.
type Storage struct {
	mu     sync.RWMutex
	byKey  map[string]*model.Order
	byID   map[int64]*model.Order
	nextID int64
}

// New constructs empty in-memory storage.
func New() *Storage {
	return &Storage{
		byKey:  make(map[string]*model.Order),
		byID:   make(map[int64]*model.Order),
		nextID: 1,
	}
}

func (s *Storage) Create(ctx context.Context, order *model.Order) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byKey[order.OrderID]; exists {
		return nil, domainErrors.ErrValidation
	}

	stored := *order
	stored.ID = s.nextID
	s.nextID++
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	s.byKey[stored.OrderID] = &stored
	s.byID[stored.ID] = &stored

	clone := stored
	return &clone, nil
}

func (s *Storage) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.byID[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	clone := *order
	return &clone, nil
}

func (s *Storage) GetByOrderID(ctx context.Context, orderID string) (*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.byKey[orderID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	clone := *order
	return &clone, nil
}

func (s *Storage) ListByCustomer(ctx context.Context, customerID string) ([]model.Order, error) {
	return s.list(func(o *model.Order) bool { return o.CustomerID == customerID }), nil
}

func (s *Storage) ListAll(ctx context.Context) ([]model.Order, error) {
	return s.list(func(*model.Order) bool { return true }), nil
}

func (s *Storage) ListByStatus(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	return s.list(func(o *model.Order) bool { return o.Status == status }), nil
}

func (s *Storage) ListByAmountRange(ctx context.Context, min, max decimal.Decimal) ([]model.Order, error) {
	return s.list(func(o *model.Order) bool {
		return o.Amount.GreaterThanOrEqual(min) && o.Amount.LessThanOrEqual(max)
	}), nil
}

func (s *Storage) Exists(ctx context.Context, orderID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byKey[orderID]
	return ok, nil
}

func (s *Storage) UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus, paid *decimal.Decimal) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.byKey[orderID]
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

func (s *Storage) CountByStatus(ctx context.Context) (map[model.OrderStatus]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[model.OrderStatus]int64, len(model.Statuses))
	for _, order := range s.byKey {
		counts[order.Status]++
	}
	return counts, nil
}

func (s *Storage) list(keep func(*model.Order) bool) []model.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Order
	for _, order := range s.byKey {
		if keep(order) {
			out = append(out, *order)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
