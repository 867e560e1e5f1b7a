package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/lumina_api/internal/models"
	"github.com/GTDGit/lumina_api/internal/utils"
)

const orderColumns = `id, user_id, customer_name, customer_phone, customer_address,
	total_amount, status, created_at`

// OrderLine is one requested product and quantity at checkout.
type OrderLine struct {
	ProductID int
	Quantity  int
}

// PriceFunc returns the unit price charged for p at checkout.
type PriceFunc func(p *models.Product) int

// OrderFilter narrows the admin order list. Page begins at 1.
type OrderFilter struct {
	Status *models.OrderStatus
	Page   int
	Limit  int
}

// OrderListResult contains one page of orders.
type OrderListResult struct {
	Orders     []models.Order
	TotalItems int
	Page       int
	Limit      int
}

// OrderRepository handles data access for orders and their items.
type OrderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create places order in one transaction: each product row is locked, its
// tracked stock checked and decremented, and its unit price taken from price.
// Unknown products and short stock yield a *LineError wrapping
// utils.ErrNotFound or utils.ErrInsufficientStock. On success order.ID, TotalAmount, Status,
// CreatedAt and Items are filled.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order, lines []OrderLine, price PriceFunc) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// lock rows in id order so concurrent checkouts cannot deadlock
	sorted := make([]OrderLine, len(lines))
	copy(sorted, lines)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })

	unitPrice := make(map[int]int, len(sorted))
	total := 0
	for _, line := range sorted {
		var p models.Product
		q := `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE`
		if err := tx.GetContext(ctx, &p, q, line.ProductID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return &LineError{ProductID: line.ProductID, Err: utils.ErrNotFound}
			}
			return err
		}

		if p.Stock != nil {
			if *p.Stock < line.Quantity {
				return &LineError{ProductID: p.ID, Err: utils.ErrInsufficientStock}
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE products SET stock = stock - $2 WHERE id = $1`, p.ID, line.Quantity); err != nil {
				return err
			}
		}

		unitPrice[p.ID] = price(&p)
		total += unitPrice[p.ID] * line.Quantity
	}

	order.TotalAmount = total
	const insertOrder = `
		INSERT INTO orders (user_id, customer_name, customer_phone, customer_address, total_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	order.Status = models.OrderStatusNew
	if err := tx.QueryRowxContext(ctx, insertOrder,
		order.UserID, order.CustomerName, order.CustomerPhone, order.CustomerAddress, order.TotalAmount, order.Status,
	).Scan(&order.ID, &order.CreatedAt); err != nil {
		return err
	}

	const insertItem = `
		INSERT INTO order_items (order_id, product_id, quantity, price_at_purchase)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	order.Items = make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		item := models.OrderItem{
			OrderID:         order.ID,
			ProductID:       line.ProductID,
			Quantity:        line.Quantity,
			PriceAtPurchase: unitPrice[line.ProductID],
		}
		if err := tx.QueryRowxContext(ctx, insertItem,
			item.OrderID, item.ProductID, item.Quantity, item.PriceAtPurchase,
		).Scan(&item.ID); err != nil {
			return err
		}
		order.Items = append(order.Items, item)
	}

	return tx.Commit()
}

// List returns one page of orders, newest first.
func (r *OrderRepository) List(ctx context.Context, filter OrderFilter) (*OrderListResult, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}

	baseQ := ` FROM orders WHERE 1=1`
	args := []interface{}{}
	argIdx := 1
	if filter.Status != nil {
		baseQ += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*)"+baseQ, args...); err != nil {
		return nil, err
	}

	listQ := "SELECT " + orderColumns + baseQ +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	orders := []models.Order{}
	if err := r.db.SelectContext(ctx, &orders, listQ, args...); err != nil {
		return nil, err
	}

	return &OrderListResult{Orders: orders, TotalItems: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// ListByUser returns a customer's orders with their items, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC`

	orders := []models.Order{}
	if err := r.db.SelectContext(ctx, &orders, q, userID); err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetByID returns an order with its items, or sql.ErrNoRows.
func (r *OrderRepository) GetByID(ctx context.Context, id int) (*models.Order, error) {
	var order models.Order
	q := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if err := r.db.GetContext(ctx, &order, q, id); err != nil {
		return nil, err
	}

	orders := []models.Order{order}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// UpdateStatus sets the status of an order, or returns sql.ErrNoRows.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int, status models.OrderStatus) (*models.Order, error) {
	var order models.Order
	q := `UPDATE orders SET status = $2 WHERE id = $1 RETURNING ` + orderColumns
	if err := r.db.GetContext(ctx, &order, q, id, status); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) attachItems(ctx context.Context, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int, 0, len(orders))
	byID := make(map[int]int, len(orders))
	for i := range orders {
		ids = append(ids, orders[i].ID)
		byID[orders[i].ID] = i
		orders[i].Items = []models.OrderItem{}
	}

	q, args, err := sqlx.In(`
		SELECT id, order_id, product_id, quantity, price_at_purchase
		FROM order_items WHERE order_id IN (?) ORDER BY id`, ids)
	if err != nil {
		return err
	}

	var items []models.OrderItem
	if err := r.db.SelectContext(ctx, &items, r.db.Rebind(q), args...); err != nil {
		return err
	}
	for _, item := range items {
		i := byID[item.OrderID]
		orders[i].Items = append(orders[i].Items, item)
	}
	return nil
}
