package model

import "time"

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// Order records a checkout attempt for one shopper session.  It is
// created pending before seats are confirmed and settles to completed or
// cancelled depending on the confirmation outcome.
type Order struct {
	ID            string      `json:"id"`
	SessionID     string      `json:"session_id"`
	CustomerName  string      `json:"customer_name"`
	CustomerEmail string      `json:"customer_email"`
	CustomerPhone string      `json:"customer_phone,omitempty"`
	TotalAmount   int64       `json:"total_amount"`
	Status        OrderStatus `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
	Items         []OrderItem `json:"items,omitempty"`
}

// OrderItem is one seat sold within an order.  A ticket is the printed
// form of an order item; CheckedInAt is set when it is scanned at the door.
type OrderItem struct {
	ID          string     `json:"id"`
	OrderID     string     `json:"order_id"`
	SeatID      string     `json:"seat_id"`
	Price       int64      `json:"price"`
	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
}
