package handlers

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/orderflow/internal/app"
	"github.com/polkiloo/orderflow/internal/dispatch"
	"github.com/polkiloo/orderflow/internal/domain/model"
)

// OrderFacade encapsulates order operations exposed via HTTP.
type OrderFacade interface {
	CreateOrder(ctx context.Context, customerID, productName string, amount decimal.Decimal) (*model.Order, error)
	GenerateOrderID() string
	Order(ctx context.Context, orderID string) (*model.Order, error)
	Orders(ctx context.Context, filter app.OrderFilter) ([]model.Order, error)
	ProcessPayment(ctx context.Context, orderID string, amount decimal.Decimal) (*model.Order, error)
	CancelOrder(ctx context.Context, orderID string) (*model.Order, error)
	AdmitEvent(ctx context.Context, event *model.OrderEvent) error
	PublishEvent(ctx context.Context, event *model.OrderEvent) error
}

// AdminFacade provides privileged operations.
type AdminFacade interface {
	UpdateStatus(ctx context.Context, id int64, target model.OrderStatus) (*model.Order, error)
	Statistics(ctx context.Context) (*model.OrderStatistics, error)
	DeadLetters() []dispatch.DeadLetter
}

// Facade aggregates the full set of operations used across handlers.
type Facade interface {
	OrderFacade
	AdminFacade
}
