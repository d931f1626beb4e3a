package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/seat-hold/internal/model"
)

// Hold state lives on the seats row itself: status, hold_expiry and
// held_by.  Every method in this file changes those columns through a
// single UPDATE whose WHERE clause carries the guard, so two shoppers
// racing for the same seat are ordered by MySQL's row lock and only the
// first matching write applies.

// transitionSQL builds the guarded UPDATE for t.  The SET list assigns
// hold_expiry before status because MySQL evaluates single-table SET
// assignments left to right.
func transitionSQL(t Transition) (string, []interface{}) {
	var (
		set  string
		args []interface{}
	)
	switch {
	case t.To == model.SeatHeld && t.From == model.SeatHeld:
		set = `hold_expiry = GREATEST(hold_expiry, ?), status = ?, held_by = ?`
		args = append(args, utc(*t.Expiry), string(t.To), t.Holder)
	case t.To == model.SeatHeld:
		set = `hold_expiry = ?, status = ?, held_by = ?`
		args = append(args, utc(*t.Expiry), string(t.To), t.Holder)
	default:
		set = `hold_expiry = NULL, status = ?, held_by = NULL`
		args = append(args, string(t.To))
	}
	where := `id = ? AND status = ?`
	args = append(args, t.SeatID, string(t.From))
	if !t.ReclaimAt.IsZero() {
		where = `id = ? AND (status = ? OR (status = ? AND hold_expiry <= ?))`
		args = append(args, string(model.SeatHeld), utc(t.ReclaimAt))
	}
	if t.From == model.SeatHeld && t.Holder != "" {
		where += ` AND held_by = ?`
		args = append(args, t.Holder)
	}
	if !t.LiveAt.IsZero() {
		where += ` AND hold_expiry > ?`
		args = append(args, utc(t.LiveAt))
	}
	if !t.LapsedAt.IsZero() {
		where += ` AND hold_expiry <= ?`
		args = append(args, utc(t.LapsedAt))
	}
	return `UPDATE seats SET ` + set + ` WHERE ` + where, args
}

// ConditionalUpdate applies a single guarded transition.  It reports false
// when no row matched the guard (contention or unknown seat).
func (r *SeatRepo) ConditionalUpdate(ctx context.Context, t Transition) (bool, error) {
	if err := t.Validate(); err != nil {
		return false, err
	}
	q, args := transitionSQL(t)
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ConditionalUpdateAll applies all transitions inside one transaction.  The
// seats are locked with SELECT ... FOR UPDATE, every guard is checked, and
// the batch is rolled back untouched when any guard fails.
func (r *SeatRepo) ConditionalUpdateAll(ctx context.Context, ts []Transition) ([]string, error) {
	if len(ts) == 0 {
		return nil, nil
	}
	if err := validateBatch(ts); err != nil {
		return nil, err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	ids := make([]string, len(ts))
	for i, t := range ts {
		ids[i] = t.SeatID
	}
	q := `SELECT ` + seatColumns + ` FROM seats WHERE id IN (` + placeholders(len(ids)) + `) FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, stringArgs(ids)...)
	if err != nil {
		return nil, err
	}
	locked, err := collectSeats(rows)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.Seat, len(locked))
	for _, s := range locked {
		byID[s.ID] = s
	}

	var failed []string
	for _, t := range ts {
		s, ok := byID[t.SeatID]
		if !ok || !t.Admits(s) {
			failed = append(failed, t.SeatID)
		}
	}
	if len(failed) > 0 {
		return failed, nil
	}

	for _, t := range ts {
		uq, args := transitionSQL(t)
		res, err := tx.ExecContext(ctx, uq, args...)
		if err != nil {
			return nil, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n != 1 {
			// The row is locked, so this only happens if the guard and the
			// Go-side check disagree.
			return nil, fmt.Errorf("seat %s: guarded update matched %d rows under lock", t.SeatID, n)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return nil, nil
}

// ReleaseExpired returns every lapsed hold to available in one statement.
// Running it concurrently with itself is safe: a row released by one
// statement no longer matches status = 'held' for the other.
func (r *SeatRepo) ReleaseExpired(ctx context.Context, now time.Time) (int64, error) {
	const q = `UPDATE seats SET hold_expiry = NULL, status = ?, held_by = NULL
	           WHERE status = ? AND hold_expiry <= ?`
	res, err := r.db.ExecContext(ctx, q, string(model.SeatAvailable), string(model.SeatHeld), utc(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

var _ SeatStore = (*SeatRepo)(nil)
