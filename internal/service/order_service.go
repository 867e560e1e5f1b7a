package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/lumina_api/internal/auth"
	"github.com/GTDGit/lumina_api/internal/cache"
	"github.com/GTDGit/lumina_api/internal/flashsale"
	"github.com/GTDGit/lumina_api/internal/models"
	"github.com/GTDGit/lumina_api/internal/repository"
	"github.com/GTDGit/lumina_api/internal/sse"
	"github.com/GTDGit/lumina_api/internal/utils"
)

const maxLineQuantity = 1000

// OrderStore is the order persistence used by OrderService.
type OrderStore interface {
	Create(ctx context.Context, order *models.Order, lines []repository.OrderLine, price repository.PriceFunc) error
	List(ctx context.Context, filter repository.OrderFilter) (*repository.OrderListResult, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	GetByID(ctx context.Context, id int) (*models.Order, error)
	UpdateStatus(ctx context.Context, id int, status models.OrderStatus) (*models.Order, error)
}

// CustomerInput holds the delivery details of a checkout.
type CustomerInput struct {
	CustomerName    string `json:"customerName"`
	CustomerPhone   string `json:"customerPhone"`
	CustomerAddress string `json:"customerAddress"`
}

// OrderItemInput is one requested line. Prices are never taken from clients.
type OrderItemInput struct {
	ProductID int `json:"productId"`
	Quantity  int `json:"quantity"`
}

// CreateOrderRequest is the checkout body.
type CreateOrderRequest struct {
	Order CustomerInput    `json:"order"`
	Items []OrderItemInput `json:"items"`
}

// OrderService handles checkout and order administration.
type OrderService struct {
	orders   OrderStore
	catalog  *cache.CatalogCache
	notifier sse.OrderNotifier
	now      func() time.Time
}

// NewOrderService constructs an OrderService.
func NewOrderService(orders OrderStore, catalog *cache.CatalogCache, notifier sse.OrderNotifier) *OrderService {
	if notifier == nil {
		notifier = sse.NopNotifier{}
	}
	return &OrderService{
		orders:   orders,
		catalog:  catalog,
		notifier: notifier,
		now:      time.Now,
	}
}

// Create places an order for a guest (nil sc) or a signed-in customer. Each
// line is charged the product's effective price at the moment of checkout.
func (s *OrderService) Create(ctx context.Context, sc *auth.SessionContext, req CreateOrderRequest) (*models.Order, error) {
	lines, err := validateOrder(req)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		CustomerName:    strings.TrimSpace(req.Order.CustomerName),
		CustomerPhone:   strings.TrimSpace(req.Order.CustomerPhone),
		CustomerAddress: strings.TrimSpace(req.Order.CustomerAddress),
	}
	if sc != nil {
		userID := sc.UserID
		order.UserID = &userID
	}

	now := s.now()
	price := func(p *models.Product) int { return flashsale.EffectivePrice(p, now) }

	if err := s.orders.Create(ctx, order, lines, price); err != nil {
		var le *repository.LineError
		if errors.As(err, &le) {
			switch {
			case errors.Is(le, utils.ErrNotFound):
				return nil, utils.NewValidationError("items", fmt.Sprintf("product %d does not exist", le.ProductID))
			case errors.Is(le, utils.ErrInsufficientStock):
				return nil, utils.NewValidationError("items", fmt.Sprintf("product %d does not have enough stock", le.ProductID))
			}
		}
		return nil, err
	}
	// stock changed
	s.catalog.Invalidate(ctx)

	log.Info().
		Int("order_id", order.ID).
		Int("total", order.TotalAmount).
		Int("lines", len(order.Items)).
		Bool("guest", order.UserID == nil).
		Msg("Order created")

	s.notifier.NotifyOrderCreated(order)
	return order, nil
}

// Mine returns the orders of the signed-in customer.
func (s *OrderService) Mine(ctx context.Context, sc *auth.SessionContext) ([]models.Order, error) {
	if err := auth.RequireUser(sc); err != nil {
		return nil, err
	}
	return s.orders.ListByUser(ctx, sc.UserID)
}

// List returns one page of all orders.
func (s *OrderService) List(ctx context.Context, filter repository.OrderFilter) (*repository.OrderListResult, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, utils.NewValidationError("status", fmt.Sprintf("unknown status %q", *filter.Status))
	}
	return s.orders.List(ctx, filter)
}

// Get returns one order with its items.
func (s *OrderService) Get(ctx context.Context, id int) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return order, nil
}

// UpdateStatus moves an order to status.
func (s *OrderService) UpdateStatus(ctx context.Context, id int, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, utils.NewValidationError("status", fmt.Sprintf("unknown status %q", status))
	}

	order, err := s.orders.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, notFound(err)
	}

	log.Info().Int("order_id", id).Str("status", string(status)).Msg("Order status updated")
	s.notifier.NotifyOrderStatusChanged(order)
	return order, nil
}

// validateOrder checks the request and merges repeated products into one line.
func validateOrder(req CreateOrderRequest) ([]repository.OrderLine, error) {
	var errs utils.ValidationErrors
	if strings.TrimSpace(req.Order.CustomerName) == "" {
		errs.Add("order.customerName", "customer name is required")
	}
	if strings.TrimSpace(req.Order.CustomerPhone) == "" {
		errs.Add("order.customerPhone", "customer phone is required")
	}
	if strings.TrimSpace(req.Order.CustomerAddress) == "" {
		errs.Add("order.customerAddress", "customer address is required")
	}
	if len(req.Items) == 0 {
		errs.Add("items", "order must contain at least one item")
	}

	lines := make([]repository.OrderLine, 0, len(req.Items))
	index := make(map[int]int, len(req.Items))
	for i, item := range req.Items {
		if item.ProductID <= 0 {
			errs.Add(fmt.Sprintf("items[%d].productId", i), "product id is required")
			continue
		}
		if item.Quantity <= 0 || item.Quantity > maxLineQuantity {
			errs.Add(fmt.Sprintf("items[%d].quantity", i), fmt.Sprintf("quantity must be between 1 and %d", maxLineQuantity))
			continue
		}
		if j, ok := index[item.ProductID]; ok {
			lines[j].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(lines)
		lines = append(lines, repository.OrderLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	if err := errs.OrNil(); err != nil {
		return nil, err
	}
	return lines, nil
}
