// Package queue carries order events over RabbitMQ.
package queue

// OrderConfirmedQueue is the durable queue checkout publishes to.
const OrderConfirmedQueue = "order.confirmed"

// OrderConfirmedEvent is published after an order's seats were sold.  It
// carries enough for downstream consumers to log or notify without
// reading the database.
type OrderConfirmedEvent struct {
	OrderID       string   `json:"order_id"`
	SessionID     string   `json:"session_id"`
	CustomerName  string   `json:"customer_name"`
	CustomerEmail string   `json:"customer_email"`
	SeatIDs       []string `json:"seat_ids"`
	TotalAmount   int64    `json:"total_amount"`
	ConfirmedAt   string   `json:"confirmed_at"` // RFC 3339, UTC
}
