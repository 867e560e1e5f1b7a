package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/lumina_api/internal/auth"
	"github.com/GTDGit/lumina_api/internal/middleware"
	"github.com/GTDGit/lumina_api/internal/models"
	"github.com/GTDGit/lumina_api/internal/repository"
	"github.com/GTDGit/lumina_api/internal/service"
	"github.com/GTDGit/lumina_api/internal/utils"
)

const (
	defaultOrderPageSize = 20
	maxOrderPageSize     = 100
)

// OrderAPI is the checkout and fulfilment surface used by OrderHandler.
type OrderAPI interface {
	Create(ctx context.Context, sc *auth.SessionContext, req service.CreateOrderRequest) (*models.Order, error)
	Mine(ctx context.Context, sc *auth.SessionContext) ([]models.Order, error)
	List(ctx context.Context, filter repository.OrderFilter) (*repository.OrderListResult, error)
	Get(ctx context.Context, id int) (*models.Order, error)
	UpdateStatus(ctx context.Context, id int, status models.OrderStatus) (*models.Order, error)
}

// OrderHandler serves checkout and order administration.
type OrderHandler struct {
	orders OrderAPI
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orders OrderAPI) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// Create handles POST /api/orders. Guests may check out.
func (h *OrderHandler) Create(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c)
		return
	}

	order, err := h.orders.Create(c.Request.Context(), middleware.GetSession(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusCreated, "Order placed", order)
}

// Mine handles GET /api/orders/mine
func (h *OrderHandler) Mine(c *gin.Context) {
	orders, err := h.orders.Mine(c.Request.Context(), middleware.GetSession(c))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Orders retrieved", orders)
}

// List handles GET /api/admin/orders?status=&page=&limit=
func (h *OrderHandler) List(c *gin.Context) {
	var errs utils.ValidationErrors
	filter := repository.OrderFilter{Page: 1, Limit: defaultOrderPageSize}
	if v := queryInt(c, "page", &errs); v != nil && *v > 0 {
		filter.Page = *v
	}
	if v := queryInt(c, "limit", &errs); v != nil && *v > 0 {
		filter.Limit = min(*v, maxOrderPageSize)
	}
	if s := c.Query("status"); s != "" {
		status := models.OrderStatus(s)
		filter.Status = &status
	}
	if err := errs.OrNil(); err != nil {
		respondError(c, err)
		return
	}

	res, err := h.orders.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithPagination(c, http.StatusOK, "Orders retrieved", res.Orders, res.Page, res.Limit, res.TotalItems)
}

// Get handles GET /api/admin/orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	order, err := h.orders.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Order retrieved", order)
}

// UpdateStatus handles PATCH /api/admin/orders/:id/status
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	var req struct {
		Status models.OrderStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c)
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Order status updated", order)
}
