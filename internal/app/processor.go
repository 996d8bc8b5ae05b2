package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/orderflow/internal/dispatch"
	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/usecase"
)

// Payload actions understood by the event processor.
const (
	actionAdvance = "advance"
	actionPay     = "pay"
	actionShip    = "ship"
	actionDeliver = "deliver"
	actionCancel  = "cancel"
)

// advanceTargets lists the steps an "advance" event may take without extra
// payload data. Payment carries money and needs the explicit "pay" action.
var advanceTargets = map[model.OrderStatus]model.OrderStatus{
	model.OrderStatusNew:     model.OrderStatusProcessing,
	model.OrderStatusPaid:    model.OrderStatusShipped,
	model.OrderStatusShipped: model.OrderStatusDelivered,
}

// NewEventProcessor builds the ProcessFunc the dispatcher runs for each
// dequeued event. The payload "action" field selects the ledger operation;
// an absent action defaults to "advance".
func NewEventProcessor(orders *usecase.OrderUseCase, logger *slog.Logger) dispatch.ProcessFunc {
	return func(ctx context.Context, event *model.OrderEvent) error {
		action := actionAdvance
		if raw, ok := event.Payload["action"].(string); ok && raw != "" {
			action = raw
		}

		var err error
		switch action {
		case actionAdvance:
			err = advance(ctx, orders, event.OrderID)
		case actionPay:
			err = pay(ctx, orders, event)
		case actionShip:
			_, err = orders.ApplyTransition(ctx, event.OrderID, model.OrderStatusShipped)
		case actionDeliver:
			_, err = orders.ApplyTransition(ctx, event.OrderID, model.OrderStatusDelivered)
		case actionCancel:
			_, err = orders.Cancel(ctx, event.OrderID)
		default:
			return dispatch.Permanent(fmt.Errorf("unknown action %q: %w", action, domainErrors.ErrValidation))
		}
		if err != nil {
			return classify(err)
		}

		logger.Debug("event processed",
			slog.String("order_id", event.OrderID),
			slog.String("action", action),
		)
		return nil
	}
}

func advance(ctx context.Context, orders *usecase.OrderUseCase, orderID string) error {
	order, err := orders.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return domainErrors.ErrUnknownOrder
		}
		return err
	}

	target, ok := advanceTargets[order.Status]
	if !ok {
		// Nothing to advance: awaiting payment or already terminal.
		return nil
	}

	_, err = orders.ApplyTransition(ctx, orderID, target)
	return err
}

func pay(ctx context.Context, orders *usecase.OrderUseCase, event *model.OrderEvent) error {
	amount, err := payloadAmount(event.Payload)
	if err != nil {
		return dispatch.Permanent(err)
	}
	_, err = orders.ApplyPayment(ctx, event.OrderID, amount)
	return err
}

func payloadAmount(payload map[string]any) (decimal.Decimal, error) {
	switch v := payload["amount"].(type) {
	case string:
		amount, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, fmt.Errorf("amount %q: %w", v, domainErrors.ErrValidation)
		}
		return amount, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case nil:
		return decimal.Zero, fmt.Errorf("amount missing: %w", domainErrors.ErrValidation)
	default:
		return decimal.Zero, fmt.Errorf("amount has unsupported type %T: %w", v, domainErrors.ErrValidation)
	}
}

// classify separates errors that cannot succeed on replay from transient
// ones the retry policy should handle.
func classify(err error) error {
	switch {
	case errors.Is(err, domainErrors.ErrValidation),
		errors.Is(err, domainErrors.ErrInvalidTransition),
		errors.Is(err, domainErrors.ErrUnknownOrder),
		errors.Is(err, domainErrors.ErrNotFound):
		return dispatch.Permanent(err)
	default:
		return err
	}
}
