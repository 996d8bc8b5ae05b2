package handlers

import (
	"errors"
	"net/http"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/server/http/dto"
)

// statusFromError maps domain errors onto HTTP status codes.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, domainErrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domainErrors.ErrNotFound),
		errors.Is(err, domainErrors.ErrUnknownOrder):
		return http.StatusNotFound
	case errors.Is(err, domainErrors.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domainErrors.ErrQueueFull):
		return http.StatusTooManyRequests
	case errors.Is(err, domainErrors.ErrDispatcherStopped),
		errors.Is(err, domainErrors.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func toOrderResponse(order model.Order) dto.OrderResponse {
	resp := dto.OrderResponse{
		ID:          order.ID,
		OrderID:     order.OrderID,
		CustomerID:  order.CustomerID,
		ProductName: order.ProductName,
		Amount:      order.Amount.String(),
		Status:      string(order.Status),
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
	}
	if order.PaidAmount != nil {
		paid := order.PaidAmount.String()
		resp.PaidAmount = &paid
	}
	return resp
}
