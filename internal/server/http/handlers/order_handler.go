package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/polkiloo/orderflow/internal/app"
	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/server/http/dto"
)

// OrderHandler manages the public order endpoints.
type OrderHandler struct {
	facade OrderFacade
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(facade OrderFacade) *OrderHandler {
	return &OrderHandler{facade: facade}
}

// Create handles POST /api/orders.
func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	order, err := h.facade.CreateOrder(c.Request.Context(), req.CustomerID, req.ProductName, amount)
	if err != nil {
		c.Status(statusFromError(err))
		return
	}

	c.JSON(http.StatusCreated, toOrderResponse(*order))
}

// NewOrderID handles GET /api/order-id. It only generates an identifier;
// nothing is recorded until the order is created with it.
func (h *OrderHandler) NewOrderID(c *gin.Context) {
	c.JSON(http.StatusOK, dto.OrderIDResponse{OrderID: h.facade.GenerateOrderID()})
}

// Get handles GET /api/orders/:orderID.
func (h *OrderHandler) Get(c *gin.Context) {
	order, err := h.facade.Order(c.Request.Context(), c.Param("orderID"))
	if err != nil {
		c.Status(statusFromError(err))
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(*order))
}

// List handles GET /api/orders with optional customer, status, and amount
// range filters.
func (h *OrderHandler) List(c *gin.Context) {
	filter := app.OrderFilter{CustomerID: c.Query("customer")}

	if raw := c.Query("status"); raw != "" {
		status, ok := model.ParseOrderStatus(raw)
		if !ok {
			c.Status(http.StatusBadRequest)
			return
		}
		filter.Status = &status
	}

	minRaw, maxRaw := c.Query("min"), c.Query("max")
	if (minRaw == "") != (maxRaw == "") {
		c.Status(http.StatusBadRequest)
		return
	}
	if minRaw != "" {
		min, err := decimal.NewFromString(minRaw)
		if err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		max, err := decimal.NewFromString(maxRaw)
		if err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		filter.MinAmount, filter.MaxAmount = &min, &max
	}

	orders, err := h.facade.Orders(c.Request.Context(), filter)
	if err != nil {
		c.Status(statusFromError(err))
		return
	}
	if len(orders) == 0 {
		c.Status(http.StatusNoContent)
		return
	}

	response := make([]dto.OrderResponse, 0, len(orders))
	for _, o := range orders {
		response = append(response, toOrderResponse(o))
	}

	c.JSON(http.StatusOK, response)
}

// Payment handles POST /api/orders/:orderID/payment.
func (h *OrderHandler) Payment(c *gin.Context) {
	var req dto.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	order, err := h.facade.ProcessPayment(c.Request.Context(), c.Param("orderID"), amount)
	if err != nil {
		c.Status(statusFromError(err))
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(*order))
}

// Cancel handles POST /api/orders/:orderID/cancel.
func (h *OrderHandler) Cancel(c *gin.Context) {
	order, err := h.facade.CancelOrder(c.Request.Context(), c.Param("orderID"))
	if err != nil {
		c.Status(statusFromError(err))
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(*order))
}

// SubmitEvent handles POST /api/orders/:orderID/events.
func (h *OrderHandler) SubmitEvent(c *gin.Context) {
	var req dto.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	priority, ok := model.ParsePriority(req.Priority)
	if !ok {
		c.Status(http.StatusBadRequest)
		return
	}

	event := &model.OrderEvent{
		OrderID:   c.Param("orderID"),
		Priority:  priority,
		Payload:   req.Payload,
		Status:    model.EventStatusPending,
		CreatedAt: time.Now(),
	}

	var err error
	if req.Durable {
		err = h.facade.PublishEvent(c.Request.Context(), event)
	} else {
		err = h.facade.AdmitEvent(c.Request.Context(), event)
	}
	if err != nil {
		c.Status(statusFromError(err))
		return
	}

	c.Status(http.StatusAccepted)
}
