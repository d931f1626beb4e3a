package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/seat-hold/internal/model"
)

// OrderRepo persists orders and their items (tickets).  All timestamps are
// stored in UTC.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// CreatePending inserts o and its items in one transaction with status
// pending.  Missing ids are generated; o is updated in place.
func (r *OrderRepo) CreatePending(ctx context.Context, o *model.Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.Status = model.OrderPending
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const ins = `INSERT INTO orders (id, session_id, customer_name, customer_email, customer_phone, total_amount, status, created_at)
	             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, ins, o.ID, o.SessionID, o.CustomerName, o.CustomerEmail,
		o.CustomerPhone, o.TotalAmount, string(o.Status), o.CreatedAt); err != nil {
		return err
	}
	if len(o.Items) > 0 {
		query := `INSERT INTO order_items (id, order_id, seat_id, price) VALUES `
		args := make([]interface{}, 0, len(o.Items)*4)
		for i := range o.Items {
			it := &o.Items[i]
			if it.ID == "" {
				it.ID = uuid.NewString()
			}
			it.OrderID = o.ID
			if i > 0 {
				query += ","
			}
			query += "(?, ?, ?, ?)"
			args = append(args, it.ID, it.OrderID, it.SeatID, it.Price)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// SetStatus moves an order from one status to another.  It returns
// ErrConflict when the order is not currently in from (or does not exist).
func (r *OrderRepo) SetStatus(ctx context.Context, orderID string, from, to model.OrderStatus) error {
	const q = `UPDATE orders SET status = ? WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, string(to), orderID, string(from))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return ErrConflict
	}
	return nil
}

// ListRecent returns the latest orders with their items, newest first.
func (r *OrderRepo) ListRecent(ctx context.Context, limit int) ([]model.Order, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const q = `SELECT id, session_id, customer_name, customer_email, customer_phone, total_amount, status, created_at
	           FROM orders ORDER BY created_at DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	orders := []model.Order{}
	index := map[string]int{}
	for rows.Next() {
		var (
			o      model.Order
			status string
			phone  sql.NullString
		)
		if err := rows.Scan(&o.ID, &o.SessionID, &o.CustomerName, &o.CustomerEmail, &phone,
			&o.TotalAmount, &status, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.CustomerPhone = phone.String
		o.Status = model.OrderStatus(status)
		index[o.ID] = len(orders)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	iq := `SELECT id, order_id, seat_id, price, checked_in_at FROM order_items WHERE order_id IN (` + placeholders(len(ids)) + `)`
	irows, err := r.db.QueryContext(ctx, iq, stringArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer irows.Close()
	for irows.Next() {
		it, err := scanOrderItem(irows)
		if err != nil {
			return nil, err
		}
		if i, ok := index[it.OrderID]; ok {
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	return orders, irows.Err()
}

func scanOrderItem(sc scanner) (model.OrderItem, error) {
	var (
		it model.OrderItem
		at sql.NullTime
	)
	if err := sc.Scan(&it.ID, &it.OrderID, &it.SeatID, &it.Price, &at); err != nil {
		return model.OrderItem{}, err
	}
	if at.Valid {
		t := at.Time.UTC()
		it.CheckedInAt = &t
	}
	return it, nil
}

// CheckIn marks a ticket of a completed order as used.  It returns
// ErrNotFound when the item does not exist or its order is not completed,
// and ErrConflict when the ticket was already checked in.
func (r *OrderRepo) CheckIn(ctx context.Context, itemID string, at time.Time) (model.OrderItem, error) {
	const upd = `UPDATE order_items SET checked_in_at = ?
	             WHERE id = ? AND checked_in_at IS NULL
	               AND order_id IN (SELECT id FROM orders WHERE status = ?)`
	res, err := r.db.ExecContext(ctx, upd, at.UTC(), itemID, string(model.OrderCompleted))
	if err != nil {
		return model.OrderItem{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.OrderItem{}, err
	}

	const sel = `SELECT i.id, i.order_id, i.seat_id, i.price, i.checked_in_at
	             FROM order_items i JOIN orders o ON o.id = i.order_id
	             WHERE i.id = ? AND o.status = ?`
	it, err := scanOrderItem(r.db.QueryRowContext(ctx, sel, itemID, string(model.OrderCompleted)))
	if errors.Is(err, sql.ErrNoRows) {
		return model.OrderItem{}, ErrNotFound
	}
	if err != nil {
		return model.OrderItem{}, err
	}
	if n == 0 {
		return it, ErrConflict
	}
	return it, nil
}
