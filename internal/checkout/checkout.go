// Package checkout turns a cart into a sold order.  A pending order is
// written first, then every seat is confirmed in one all-or-nothing batch,
// and the order settles to completed or cancelled accordingly.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/iliyamo/seat-hold/internal/model"
	"github.com/iliyamo/seat-hold/internal/queue"
	"github.com/iliyamo/seat-hold/internal/reservation"
)

// ErrInvalidCustomer wraps customer validation failures.
var ErrInvalidCustomer = errors.New("invalid customer details")

// PartialFailureError is returned when at least one seat could not be
// sold.  No seat of the batch was sold and the order was cancelled.
type PartialFailureError struct {
	OrderID string
	SeatIDs []string
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("checkout rejected: seats no longer held: %s", strings.Join(e.SeatIDs, ","))
}

// Customer carries the buyer's contact details.
type Customer struct {
	Name  string `json:"name" validate:"required,min=2,max=100"`
	Email string `json:"email" validate:"required,email,max=254"`
	Phone string `json:"phone" validate:"omitempty,max=32"`
}

// Confirmer sells held seats; *reservation.Engine satisfies it.
type Confirmer interface {
	ConfirmAll(ctx context.Context, session string, seatIDs []string) (reservation.ConfirmResult, error)
}

// PriceBook returns the current price of each named seat.
type PriceBook interface {
	SeatPrices(ctx context.Context, seatIDs []string) (map[string]int64, error)
}

// OrderStore persists orders; *repository.OrderRepo satisfies it.
type OrderStore interface {
	CreatePending(ctx context.Context, o *model.Order) error
	SetStatus(ctx context.Context, orderID string, from, to model.OrderStatus) error
}

// Publisher announces completed orders.
type Publisher interface {
	PublishOrderConfirmed(ctx context.Context, ev queue.OrderConfirmedEvent) error
}

// Finalizer runs checkouts.
type Finalizer struct {
	seats     Confirmer
	prices    PriceBook
	orders    OrderStore
	publisher Publisher
	validate  *validator.Validate
	now       func() time.Time
	log       *zap.Logger
}

// Option customises a Finalizer.
type Option func(*Finalizer)

// WithPublisher enables order events.  Without one nothing is published.
func WithPublisher(p Publisher) Option { return func(f *Finalizer) { f.publisher = p } }

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option { return func(f *Finalizer) { f.log = l } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(f *Finalizer) { f.now = now } }

// NewFinalizer wires a finalizer.  All three dependencies are required.
func NewFinalizer(seats Confirmer, prices PriceBook, orders OrderStore, opts ...Option) *Finalizer {
	if seats == nil || prices == nil || orders == nil {
		panic("nil dependency passed to NewFinalizer")
	}
	f := &Finalizer{
		seats:    seats,
		prices:   prices,
		orders:   orders,
		validate: validator.New(),
		now:      time.Now,
		log:      zap.NewNop(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Checkout sells seatIDs to session.  Prices are read server-side.  On
// success the completed order is returned; when any seat is no longer
// held a *PartialFailureError is returned.
func (f *Finalizer) Checkout(ctx context.Context, session string, cust Customer, seatIDs []string) (model.Order, error) {
	cust.Name = strings.TrimSpace(cust.Name)
	cust.Email = strings.TrimSpace(cust.Email)
	cust.Phone = strings.TrimSpace(cust.Phone)
	if err := f.validate.Struct(cust); err != nil {
		return model.Order{}, fmt.Errorf("%w: %v", ErrInvalidCustomer, err)
	}
	ids := unique(seatIDs)
	if len(ids) == 0 {
		return model.Order{}, reservation.ErrEmptyBatch
	}

	prices, err := f.prices.SeatPrices(ctx, ids)
	if err != nil {
		return model.Order{}, fmt.Errorf("price seats: %w", err)
	}
	order := model.Order{
		SessionID:     session,
		CustomerName:  cust.Name,
		CustomerEmail: cust.Email,
		CustomerPhone: cust.Phone,
		CreatedAt:     f.now().UTC(),
	}
	for _, id := range ids {
		price, ok := prices[id]
		if !ok {
			return model.Order{}, fmt.Errorf("%w: %s", reservation.ErrSeatNotFound, id)
		}
		order.TotalAmount += price
		order.Items = append(order.Items, model.OrderItem{SeatID: id, Price: price})
	}

	if err := f.orders.CreatePending(ctx, &order); err != nil {
		return model.Order{}, fmt.Errorf("create order: %w", err)
	}

	res, err := f.seats.ConfirmAll(ctx, session, ids)
	if err != nil {
		// The batch is atomic but the outcome is unknown to us; the order
		// stays pending for an operator to inspect.
		f.log.Error("confirm failed, order left pending", zap.String("order_id", order.ID), zap.Error(err))
		return model.Order{}, err
	}
	if !res.OK() {
		if err := f.orders.SetStatus(ctx, order.ID, model.OrderPending, model.OrderCancelled); err != nil {
			f.log.Warn("cancel order failed", zap.String("order_id", order.ID), zap.Error(err))
		}
		return model.Order{}, &PartialFailureError{OrderID: order.ID, SeatIDs: res.Failed}
	}

	if err := f.orders.SetStatus(ctx, order.ID, model.OrderPending, model.OrderCompleted); err != nil {
		// Seats are sold; report the order as completed regardless.
		f.log.Error("complete order failed", zap.String("order_id", order.ID), zap.Error(err))
	}
	order.Status = model.OrderCompleted
	f.log.Info("order completed",
		zap.String("order_id", order.ID),
		zap.Int("seats", len(ids)),
		zap.Int64("total", order.TotalAmount))

	f.publish(ctx, order, ids)
	return order, nil
}

func (f *Finalizer) publish(ctx context.Context, o model.Order, ids []string) {
	if f.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	ev := queue.OrderConfirmedEvent{
		OrderID:       o.ID,
		SessionID:     o.SessionID,
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		SeatIDs:       ids,
		TotalAmount:   o.TotalAmount,
		ConfirmedAt:   f.now().UTC().Format(time.RFC3339),
	}
	if err := f.publisher.PublishOrderConfirmed(ctx, ev); err != nil {
		f.log.Warn("order event not published", zap.String("order_id", o.ID), zap.Error(err))
	}
}

func unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
