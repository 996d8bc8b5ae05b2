package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/server/http/dto"
)

// AdminHandler serves the privileged endpoints.
type AdminHandler struct {
	facade AdminFacade
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(facade AdminFacade) *AdminHandler {
	return &AdminHandler{facade: facade}
}

// UpdateStatus handles PATCH /api/admin/orders/:id/status.
func (h *AdminHandler) UpdateStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	status, ok := model.ParseOrderStatus(req.Status)
	if !ok {
		c.Status(http.StatusBadRequest)
		return
	}

	order, err := h.facade.UpdateStatus(c.Request.Context(), id, status)
	if err != nil {
		c.Status(statusFromError(err))
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(*order))
}

// Statistics handles GET /api/admin/statistics.
func (h *AdminHandler) Statistics(c *gin.Context) {
	stats, err := h.facade.Statistics(c.Request.Context())
	if err != nil {
		c.Status(statusFromError(err))
		return
	}

	c.JSON(http.StatusOK, dto.StatisticsResponse{
		Total:      stats.Total,
		New:        stats.New,
		Processing: stats.Processing,
		Paid:       stats.Paid,
		Shipped:    stats.Shipped,
		Delivered:  stats.Delivered,
		Cancelled:  stats.Cancelled,
	})
}

// DeadLetters handles GET /api/admin/dead-letters.
func (h *AdminHandler) DeadLetters(c *gin.Context) {
	letters := h.facade.DeadLetters()

	response := make([]dto.DeadLetterResponse, 0, len(letters))
	for _, l := range letters {
		item := dto.DeadLetterResponse{Reason: l.Reason, At: l.At}
		if l.Event != nil {
			item.OrderID = l.Event.OrderID
			item.Priority = l.Event.Priority.String()
			item.RetryCount = l.Event.RetryCount
		}
		response = append(response, item)
	}

	c.JSON(http.StatusOK, response)
}
