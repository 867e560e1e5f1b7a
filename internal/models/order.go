package models

import "time"

type OrderStatus string

const (
	OrderStatusNew        OrderStatus = "new"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Valid reports whether s is one of the known order statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusNew, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Order is a checkout placed by a guest or a signed-in customer.
type Order struct {
	ID              int         `db:"id" json:"id"`
	UserID          *string     `db:"user_id" json:"userId,omitempty"`
	CustomerName    string      `db:"customer_name" json:"customerName"`
	CustomerPhone   string      `db:"customer_phone" json:"customerPhone"`
	CustomerAddress string      `db:"customer_address" json:"customerAddress"`
	TotalAmount     int         `db:"total_amount" json:"totalAmount"`
	Status          OrderStatus `db:"status" json:"status"`
	CreatedAt       time.Time   `db:"created_at" json:"createdAt"`

	Items []OrderItem `db:"-" json:"items,omitempty"`
}

// OrderItem records the price charged for a product at checkout time.
type OrderItem struct {
	ID              int `db:"id" json:"id"`
	OrderID         int `db:"order_id" json:"orderId"`
	ProductID       int `db:"product_id" json:"productId"`
	Quantity        int `db:"quantity" json:"quantity"`
	PriceAtPurchase int `db:"price_at_purchase" json:"priceAtPurchase"`
}
