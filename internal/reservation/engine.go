// Package reservation mediates every seat status transition between
// available, held and sold.  All writes are guarded transitions against a
// repository.SeatStore; losing a race is reported as a typed result and
// only store faults surface as errors.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/seat-hold/internal/model"
	"github.com/iliyamo/seat-hold/internal/repository"
)

// DefaultHoldTTL is used when no hold duration is configured.
const DefaultHoldTTL = 10 * time.Minute

// Engine is safe for concurrent use; it keeps no mutable state of its own.
type Engine struct {
	store   repository.SeatStore
	holdTTL time.Duration
	now     func() time.Time
	log     *zap.Logger
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger attaches a logger; the default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine builds an engine over store.  A non-positive holdTTL falls back
// to DefaultHoldTTL.
func NewEngine(store repository.SeatStore, holdTTL time.Duration, opts ...Option) *Engine {
	if store == nil {
		panic("nil seat store passed to NewEngine")
	}
	if holdTTL <= 0 {
		holdTTL = DefaultHoldTTL
	}
	e := &Engine{
		store:   store,
		holdTTL: holdTTL,
		now:     time.Now,
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// HoldTTL is the single hold duration used for new and extended holds.
func (e *Engine) HoldTTL() time.Duration { return e.holdTTL }

// Now returns the engine's clock reading in UTC.
func (e *Engine) Now() time.Time { return e.now().UTC() }

// TryHold claims an available seat for session.  A hold that has lapsed
// but was not swept yet counts as available.  The claim is one guarded
// write; when it does not apply the seat is read only to tell a missing
// seat from contention.
func (e *Engine) TryHold(ctx context.Context, session, seatID string) (HoldResult, error) {
	if session == "" {
		return HoldResult{}, ErrNoSession
	}
	now := e.Now()
	exp := now.Add(e.holdTTL)
	ok, err := e.store.ConditionalUpdate(ctx, repository.Transition{
		SeatID:    seatID,
		From:      model.SeatAvailable,
		To:        model.SeatHeld,
		Holder:    session,
		ReclaimAt: now,
		Expiry:    &exp,
	})
	if err != nil {
		return HoldResult{}, e.storeErr("hold", err)
	}
	if ok {
		e.log.Debug("seat held", zap.String("seat_id", seatID), zap.String("session", session), zap.Time("expires_at", exp))
		return HoldResult{Outcome: Held, ExpiresAt: exp}, nil
	}
	if _, err := e.lookup(ctx, seatID); err != nil {
		return HoldResult{}, err
	}
	return HoldResult{Outcome: Conflict}, nil
}

// Release returns a seat held by session to available.  Releasing a seat
// that is not held by session is a no-op.
func (e *Engine) Release(ctx context.Context, session, seatID string) error {
	if session == "" {
		return ErrNoSession
	}
	ok, err := e.store.ConditionalUpdate(ctx, repository.Transition{
		SeatID: seatID,
		From:   model.SeatHeld,
		To:     model.SeatAvailable,
		Holder: session,
	})
	if err != nil {
		return e.storeErr("release", err)
	}
	if ok {
		e.log.Debug("seat released", zap.String("seat_id", seatID), zap.String("session", session))
		return nil
	}
	_, err = e.lookup(ctx, seatID)
	return err
}

// ReleaseLapsed releases seatID only if session holds it and the hold has
// expired by now.  A live hold is never touched, so callers acting on a
// stale copy of the expiry cannot free a seat early.  It reports whether
// the seat was released.
func (e *Engine) ReleaseLapsed(ctx context.Context, session, seatID string) (bool, error) {
	if session == "" {
		return false, ErrNoSession
	}
	ok, err := e.store.ConditionalUpdate(ctx, repository.Transition{
		SeatID:   seatID,
		From:     model.SeatHeld,
		To:       model.SeatAvailable,
		Holder:   session,
		LapsedAt: e.Now(),
	})
	if err != nil {
		return false, e.storeErr("release lapsed", err)
	}
	if ok {
		e.log.Debug("lapsed hold released", zap.String("seat_id", seatID), zap.String("session", session))
	}
	return ok, nil
}

// Extend refreshes a live hold of session to now plus the hold duration.
// The stored expiry never moves backwards.
func (e *Engine) Extend(ctx context.Context, session, seatID string) (ExtendResult, error) {
	if session == "" {
		return ExtendResult{}, ErrNoSession
	}
	now := e.Now()
	exp := now.Add(e.holdTTL)
	ok, err := e.store.ConditionalUpdate(ctx, repository.Transition{
		SeatID: seatID,
		From:   model.SeatHeld,
		To:     model.SeatHeld,
		Holder: session,
		LiveAt: now,
		Expiry: &exp,
	})
	if err != nil {
		return ExtendResult{}, e.storeErr("extend", err)
	}
	seat, err := e.lookup(ctx, seatID)
	if err != nil {
		return ExtendResult{}, err
	}
	if !ok {
		return ExtendResult{}, nil
	}
	res := ExtendResult{Extended: true, ExpiresAt: exp}
	if seat.IsHeldBy(session, now) && seat.HoldExpiry.After(exp) {
		res.ExpiresAt = *seat.HoldExpiry
	}
	return res, nil
}

// ConfirmAll sells every seat in seatIDs or none of them.  Each seat must be
// held by session with an unexpired hold.
func (e *Engine) ConfirmAll(ctx context.Context, session string, seatIDs []string) (ConfirmResult, error) {
	if session == "" {
		return ConfirmResult{}, ErrNoSession
	}
	ids := dedupe(seatIDs)
	if len(ids) == 0 {
		return ConfirmResult{}, ErrEmptyBatch
	}
	now := e.Now()
	ts := make([]repository.Transition, len(ids))
	for i, id := range ids {
		ts[i] = repository.Transition{
			SeatID: id,
			From:   model.SeatHeld,
			To:     model.SeatSold,
			Holder: session,
			LiveAt: now,
		}
	}
	failed, err := e.store.ConditionalUpdateAll(ctx, ts)
	if err != nil {
		return ConfirmResult{}, e.storeErr("confirm", err)
	}
	if len(failed) > 0 {
		e.log.Info("confirm rejected",
			zap.String("session", session),
			zap.Strings("failed_seat_ids", failed),
			zap.Int("batch", len(ids)))
		return ConfirmResult{Failed: failed}, nil
	}
	e.log.Info("seats sold", zap.String("session", session), zap.Int("count", len(ids)))
	return ConfirmResult{}, nil
}

// ReleaseExpired sweeps every lapsed hold back to available and returns how
// many seats were released.
func (e *Engine) ReleaseExpired(ctx context.Context) (int64, error) {
	n, err := e.store.ReleaseExpired(ctx, e.Now())
	if err != nil {
		return 0, e.storeErr("release expired", err)
	}
	return n, nil
}

// Reconcile reports the authoritative state of the named seats as seen by
// session.  Seats missing from the store are absent from the map.
func (e *Engine) Reconcile(ctx context.Context, session string, seatIDs []string) (map[string]SeatState, error) {
	ids := dedupe(seatIDs)
	out := make(map[string]SeatState, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	seats, err := e.store.Read(ctx, ids)
	if err != nil {
		return nil, e.storeErr("reconcile", err)
	}
	now := e.Now()
	for _, s := range seats {
		st := SeatState{Status: s.Status}
		switch s.Status {
		case model.SeatHeld:
			st.ExpiresAt = s.HoldExpiry
			st.Mine = session != "" && s.IsHeldBy(session, now)
		case model.SeatAvailable, model.SeatSold:
		}
		out[s.ID] = st
	}
	return out, nil
}

// lookup reads one seat, mapping absence to ErrSeatNotFound.
func (e *Engine) lookup(ctx context.Context, seatID string) (model.Seat, error) {
	seats, err := e.store.Read(ctx, []string{seatID})
	if err != nil {
		return model.Seat{}, e.storeErr("read", err)
	}
	for _, s := range seats {
		if s.ID == seatID {
			return s, nil
		}
	}
	return model.Seat{}, fmt.Errorf("%w: %s", ErrSeatNotFound, seatID)
}

func (e *Engine) storeErr(op string, err error) error {
	if errors.Is(err, repository.ErrInvalidTransition) || errors.Is(err, context.Canceled) {
		return err
	}
	e.log.Warn("seat store call failed", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
