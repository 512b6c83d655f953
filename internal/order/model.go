package order

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPaid      OrderStatus = "paid"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) String() string {
	return string(s)
}

func ParseStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if _, ok := allowedTransitions[status]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return status, nil
}

// OrderItem is a snapshot of a menu item's price at order time.
// MenuItemName and MenuItemImageURL are filled by read queries only.
type OrderItem struct {
	ID               uuid.UUID `json:"id"`
	OrderID          uuid.UUID `json:"order_id"`
	MenuItemID       uuid.UUID `json:"menu_item_id"`
	Quantity         int       `json:"quantity"`
	Price            float64   `json:"price"`
	CreatedAt        time.Time `json:"created_at"`
	MenuItemName     string    `json:"menu_item_name,omitempty"`
	MenuItemImageURL string    `json:"menu_item_image_url,omitempty"`
}

type Order struct {
	ID              uuid.UUID   `json:"id"`
	UserID          uuid.UUID   `json:"user_id"`
	Status          OrderStatus `json:"status"`
	Total           float64     `json:"total"`
	CustomerEmail   string      `json:"customer_email"`
	PaymentIntentID string      `json:"payment_intent_id,omitempty"`
	StripeSessionID string      `json:"stripe_session_id,omitempty"`
	Items           []OrderItem `json:"items"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// ItemsTotal sums price × quantity over the order lines.
func (o *Order) ItemsTotal() float64 {
	cents := int64(0)
	for _, item := range o.Items {
		cents += ToCents(item.Price) * int64(item.Quantity)
	}
	return FromCents(cents)
}

// Query windows and pages projector reads. Zero From/To mean unbounded.
type Query struct {
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

func (q Query) normalized() Query {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

type DashboardStats struct {
	TotalOrders    int     `json:"total_orders"`
	TodayOrders    int     `json:"today_orders"`
	TotalRevenue   float64 `json:"total_revenue"`
	TodayRevenue   float64 `json:"today_revenue"`
	TotalCustomers int     `json:"total_customers"`
}
