package app

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/orderflow/internal/dispatch"
	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/usecase"
)

// EventPublisher is the durable ingress used when a caller asks for
// broker-backed admission instead of the in-process queue.
type EventPublisher interface {
	Publish(ctx context.Context, event *model.OrderEvent) error
}

// OrderFilter narrows Orders listings. The first populated field wins:
// customer, then status, then amount range.
type OrderFilter struct {
	CustomerID string
	Status     *model.OrderStatus
	MinAmount  *decimal.Decimal
	MaxAmount  *decimal.Decimal
}

// OrderFacade exposes the application surface consumed by transport layers.
type OrderFacade struct {
	orders     *usecase.OrderUseCase
	stats      *usecase.StatsUseCase
	dispatcher *dispatch.Dispatcher
	publisher  EventPublisher
}

func NewOrderFacade(orders *usecase.OrderUseCase, stats *usecase.StatsUseCase, dispatcher *dispatch.Dispatcher, publisher EventPublisher) *OrderFacade {
	return &OrderFacade{orders: orders, stats: stats, dispatcher: dispatcher, publisher: publisher}
}

func (f *OrderFacade) CreateOrder(ctx context.Context, customerID, productName string, amount decimal.Decimal) (*model.Order, error) {
	return f.orders.Create(ctx, customerID, productName, amount)
}

// GenerateOrderID hands out a fresh order identifier without recording
// anything; callers use it to make creation idempotent on their side.
func (f *OrderFacade) GenerateOrderID() string {
	return f.orders.GenerateOrderID()
}

func (f *OrderFacade) Order(ctx context.Context, orderID string) (*model.Order, error) {
	return f.orders.GetByOrderID(ctx, orderID)
}

func (f *OrderFacade) OrderByID(ctx context.Context, id int64) (*model.Order, error) {
	return f.orders.GetByID(ctx, id)
}

func (f *OrderFacade) Orders(ctx context.Context, filter OrderFilter) ([]model.Order, error) {
	switch {
	case filter.CustomerID != "":
		return f.orders.ListByCustomer(ctx, filter.CustomerID)
	case filter.Status != nil:
		return f.orders.ListByStatus(ctx, *filter.Status)
	case filter.MinAmount != nil && filter.MaxAmount != nil:
		return f.orders.ListByAmountRange(ctx, *filter.MinAmount, *filter.MaxAmount)
	default:
		return f.orders.ListAll(ctx)
	}
}

func (f *OrderFacade) UpdateStatus(ctx context.Context, id int64, target model.OrderStatus) (*model.Order, error) {
	order, err := f.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return f.orders.ApplyTransition(ctx, order.OrderID, target)
}

func (f *OrderFacade) ProcessPayment(ctx context.Context, orderID string, amount decimal.Decimal) (*model.Order, error) {
	return f.orders.ApplyPayment(ctx, orderID, amount)
}

func (f *OrderFacade) CancelOrder(ctx context.Context, orderID string) (*model.Order, error) {
	return f.orders.Cancel(ctx, orderID)
}

func (f *OrderFacade) Statistics(ctx context.Context) (*model.OrderStatistics, error) {
	return f.stats.Snapshot(ctx)
}

// AdmitEvent hands an event to the dispatcher with immediate backpressure.
func (f *OrderFacade) AdmitEvent(ctx context.Context, event *model.OrderEvent) error {
	return f.dispatcher.Admit(ctx, event)
}

// PublishEvent routes an event through the durable broker ingress when one
// is configured, falling back to direct admission otherwise.
func (f *OrderFacade) PublishEvent(ctx context.Context, event *model.OrderEvent) error {
	if f.publisher == nil {
		return f.dispatcher.Admit(ctx, event)
	}
	return f.publisher.Publish(ctx, event)
}

func (f *OrderFacade) DeadLetters() []dispatch.DeadLetter {
	return f.dispatcher.DeadLetters()
}
