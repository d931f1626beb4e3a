// Package cart keeps each shopper session's optimistic view of its seat
// holds.  The store stays authoritative: a cart only lists a seat after the
// reservation engine granted the hold, and periodic reconciliation drops
// anything the store no longer attributes to the session.
package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/iliyamo/seat-hold/internal/model"
	"github.com/iliyamo/seat-hold/internal/reservation"
)

// UrgentThreshold is the remaining time below which a countdown turns
// urgent.
const UrgentThreshold = 2 * time.Minute

// ErrNotInCart is returned for operations on a seat the cart does not hold.
var ErrNotInCart = errors.New("seat not in cart")

// Holder is the subset of the reservation engine a cart needs.
type Holder interface {
	TryHold(ctx context.Context, session, seatID string) (reservation.HoldResult, error)
	Release(ctx context.Context, session, seatID string) error
	ReleaseLapsed(ctx context.Context, session, seatID string) (bool, error)
	Extend(ctx context.Context, session, seatID string) (reservation.ExtendResult, error)
	Reconcile(ctx context.Context, session string, seatIDs []string) (map[string]reservation.SeatState, error)
}

// AddResult describes what Add did.  Duplicate is set when the seat was
// already in the cart and nothing was written.
type AddResult struct {
	Outcome   reservation.HoldOutcome
	Hold      model.SeatHold
	Duplicate bool
}

// Countdown is the timer shown to the shopper.  The soonest expiring hold
// governs it.
type Countdown struct {
	Remaining time.Duration `json:"-"`
	// RemainingMS mirrors Remaining for JSON clients.
	RemainingMS int64 `json:"remaining_ms"`
	Urgent      bool  `json:"urgent"`
	Active      bool  `json:"active"`
}

// Cart is one session's ordered list of holds.  It is safe for concurrent
// use; engine calls are made without holding the cart lock.
type Cart struct {
	session string
	holder  Holder
	now     func() time.Time

	mu         sync.Mutex
	holds      []model.SeatHold
	lastAccess time.Time
}

// Option customises a Cart.
type Option func(*Cart)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(c *Cart) { c.now = now } }

// New builds an empty cart for session.
func New(session string, holder Holder, opts ...Option) *Cart {
	if holder == nil {
		panic("nil holder passed to cart.New")
	}
	c := &Cart{session: session, holder: holder, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	c.lastAccess = c.now()
	return c
}

// Session returns the owning session id.
func (c *Cart) Session() string { return c.session }

// Add asks the engine for a hold on seatID and appends it only when the
// hold was granted.  Adding a seat already in the cart is a no-op.
func (c *Cart) Add(ctx context.Context, seatID, zoneID string, price int64) (AddResult, error) {
	if h, ok := c.find(seatID); ok {
		return AddResult{Outcome: reservation.Held, Hold: h, Duplicate: true}, nil
	}

	acquired := c.now().UTC()
	res, err := c.holder.TryHold(ctx, c.session, seatID)
	if err != nil {
		return AddResult{}, err
	}
	if res.Outcome != reservation.Held {
		return AddResult{Outcome: res.Outcome}, nil
	}

	hold := model.SeatHold{
		SeatID:     seatID,
		ZoneID:     zoneID,
		Price:      price,
		AcquiredAt: acquired,
		ExpiresAt:  res.ExpiresAt,
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastAccess = c.now()
	for _, h := range c.holds {
		if h.SeatID == seatID {
			return AddResult{Outcome: reservation.Held, Hold: h, Duplicate: true}, nil
		}
	}
	c.holds = append(c.holds, hold)
	return AddResult{Outcome: reservation.Held, Hold: hold}, nil
}

// Remove drops seatID from the cart and releases it in the store.  The
// local removal stands even when the release fails.
func (c *Cart) Remove(ctx context.Context, seatID string) error {
	c.mu.Lock()
	c.lastAccess = c.now()
	c.holds = without(c.holds, map[string]struct{}{seatID: {}})
	c.mu.Unlock()

	return c.holder.Release(ctx, c.session, seatID)
}

// Clear empties the cart without touching the store.  Used after the seats
// were sold.
func (c *Cart) Clear() {
	c.mu.Lock()
	c.holds = nil
	c.mu.Unlock()
}

// Abandon releases every hold and empties the cart.  Release errors are
// joined and returned after all seats were attempted.
func (c *Cart) Abandon(ctx context.Context) error {
	c.mu.Lock()
	ids := seatIDs(c.holds)
	c.holds = nil
	c.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := c.holder.Release(ctx, c.session, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Tick drops every hold that has expired at now and returns the dropped
// seat ids.  It never calls the store.
func (c *Cart) Tick(now time.Time) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var dropped []string
	kept := c.holds[:0]
	for _, h := range c.holds {
		if h.Expired(now) {
			dropped = append(dropped, h.SeatID)
			continue
		}
		kept = append(kept, h)
	}
	c.holds = kept
	return dropped
}

// Expire drops the holds that have lapsed locally at now, but only after
// the store agrees.  A hold the store still attributes to this session
// (its expiry was pushed out elsewhere) is kept with the store's expiry.
// Every other dropped hold is released with a lapsed-only guard, so a seat
// whose hold is still live is never freed.  It returns the dropped ids.
func (c *Cart) Expire(ctx context.Context, now time.Time) ([]string, error) {
	c.mu.Lock()
	var lapsed []string
	for _, h := range c.holds {
		if h.Expired(now) {
			lapsed = append(lapsed, h.SeatID)
		}
	}
	c.mu.Unlock()
	if len(lapsed) == 0 {
		return nil, nil
	}

	states, err := c.holder.Reconcile(ctx, c.session, lapsed)
	if err != nil {
		return nil, err
	}

	gone := make(map[string]struct{}, len(lapsed))
	c.mu.Lock()
	for _, id := range lapsed {
		if st, ok := states[id]; ok && st.Mine && st.ExpiresAt != nil {
			for i := range c.holds {
				if c.holds[i].SeatID == id {
					c.holds[i].ExpiresAt = st.ExpiresAt.UTC()
				}
			}
			continue
		}
		gone[id] = struct{}{}
	}
	var dropped []string
	for _, h := range c.holds {
		if _, ok := gone[h.SeatID]; ok {
			dropped = append(dropped, h.SeatID)
		}
	}
	c.holds = without(c.holds, gone)
	c.mu.Unlock()

	var errs []error
	for _, id := range dropped {
		if _, err := c.holder.ReleaseLapsed(ctx, c.session, id); err != nil {
			errs = append(errs, err)
		}
	}
	return dropped, errors.Join(errs...)
}

// Reconcile compares the cart with the store and drops every hold the
// store no longer attributes to this session.  Holds added while the read
// was in flight are left alone.
func (c *Cart) Reconcile(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	ids := seatIDs(c.holds)
	c.mu.Unlock()
	if len(ids) == 0 {
		return nil, nil
	}

	states, err := c.holder.Reconcile(ctx, c.session, ids)
	if err != nil {
		return nil, err
	}

	stale := make(map[string]struct{})
	for _, id := range ids {
		if st, ok := states[id]; !ok || !st.Mine {
			stale[id] = struct{}{}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	var dropped []string
	for i := range c.holds {
		h := &c.holds[i]
		if _, ok := stale[h.SeatID]; ok {
			dropped = append(dropped, h.SeatID)
			continue
		}
		if st, ok := states[h.SeatID]; ok && st.ExpiresAt != nil {
			h.ExpiresAt = st.ExpiresAt.UTC()
		}
	}
	c.holds = without(c.holds, stale)
	return dropped, nil
}

// Extend refreshes the hold on one seat.  When the engine refuses, the
// hold is gone from the store and is dropped from the cart as well.
func (c *Cart) Extend(ctx context.Context, seatID string) (reservation.ExtendResult, error) {
	if _, ok := c.find(seatID); !ok {
		return reservation.ExtendResult{}, ErrNotInCart
	}
	res, err := c.holder.Extend(ctx, c.session, seatID)
	if err != nil {
		return reservation.ExtendResult{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !res.Extended {
		c.holds = without(c.holds, map[string]struct{}{seatID: {}})
		return res, nil
	}
	for i := range c.holds {
		if c.holds[i].SeatID == seatID {
			c.holds[i].ExpiresAt = res.ExpiresAt
		}
	}
	return res, nil
}

// ExtendAll refreshes every hold.  Holds the engine refuses to extend are
// dropped and returned.  A store fault stops the pass and is returned with
// the holds dropped so far.
func (c *Cart) ExtendAll(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	ids := seatIDs(c.holds)
	c.lastAccess = c.now()
	c.mu.Unlock()

	expiry := make(map[string]time.Time, len(ids))
	lost := make(map[string]struct{})
	var firstErr error
	for _, id := range ids {
		res, err := c.holder.Extend(ctx, c.session, id)
		if err != nil {
			firstErr = err
			break
		}
		if res.Extended {
			expiry[id] = res.ExpiresAt
		} else {
			lost[id] = struct{}{}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.holds {
		if exp, ok := expiry[c.holds[i].SeatID]; ok {
			c.holds[i].ExpiresAt = exp
		}
	}
	var dropped []string
	for _, h := range c.holds {
		if _, ok := lost[h.SeatID]; ok {
			dropped = append(dropped, h.SeatID)
		}
	}
	c.holds = without(c.holds, lost)
	return dropped, firstErr
}

// Items returns a copy of the holds in insertion order.
func (c *Cart) Items() []model.SeatHold {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.SeatHold, len(c.holds))
	copy(out, c.holds)
	return out
}

// SeatIDs returns the held seat ids in insertion order.
func (c *Cart) SeatIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return seatIDs(c.holds)
}

// ItemCount returns the number of holds.
func (c *Cart) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.holds)
}

// TotalPrice sums the captured prices.
func (c *Cart) TotalPrice() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total int64
	for _, h := range c.holds {
		total += h.Price
	}
	return total
}

// Countdown reports the time left on the soonest expiring hold.
func (c *Cart) Countdown(now time.Time) Countdown {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.holds) == 0 {
		return Countdown{}
	}
	soonest := c.holds[0].ExpiresAt
	for _, h := range c.holds[1:] {
		if h.ExpiresAt.Before(soonest) {
			soonest = h.ExpiresAt
		}
	}
	remaining := soonest.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return Countdown{
		Remaining:   remaining,
		RemainingMS: remaining.Milliseconds(),
		Urgent:      remaining > 0 && remaining < UrgentThreshold,
		Active:      remaining > 0,
	}
}

// Touch marks the cart as used at now.
func (c *Cart) Touch() {
	c.mu.Lock()
	c.lastAccess = c.now()
	c.mu.Unlock()
}

// idleSince reports whether the cart is empty and untouched since before
// cutoff.
func (c *Cart) idleSince(cutoff time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.holds) == 0 && c.lastAccess.Before(cutoff)
}

func (c *Cart) find(seatID string) (model.SeatHold, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastAccess = c.now()
	for _, h := range c.holds {
		if h.SeatID == seatID {
			return h, true
		}
	}
	return model.SeatHold{}, false
}

func seatIDs(holds []model.SeatHold) []string {
	ids := make([]string, len(holds))
	for i, h := range holds {
		ids[i] = h.SeatID
	}
	return ids
}

func without(holds []model.SeatHold, drop map[string]struct{}) []model.SeatHold {
	if len(drop) == 0 {
		return holds
	}
	kept := make([]model.SeatHold, 0, len(holds))
	for _, h := range holds {
		if _, ok := drop[h.SeatID]; !ok {
			kept = append(kept, h)
		}
	}
	return kept
}
