package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/seat-hold/internal/model"
)

// SeatStore is the access contract for the shared seats table.  Every status
// change goes through a guarded write; no implementation may change a
// seat's status without matching the expected prior state in the same
// atomic step.
type SeatStore interface {
	// ConditionalUpdate applies t if and only if its guard holds.  It
	// returns false, not an error, when the guard does not match or the
	// seat does not exist.
	ConditionalUpdate(ctx context.Context, t Transition) (bool, error)
	// ConditionalUpdateAll applies every transition or none of them.  The
	// returned slice names the seats whose guard failed, in input order;
	// when it is non-empty nothing was written.
	ConditionalUpdateAll(ctx context.Context, ts []Transition) ([]string, error)
	// ReleaseExpired moves every held seat whose hold_expiry is at or
	// before now back to available and returns how many rows changed.
	ReleaseExpired(ctx context.Context, now time.Time) (int64, error)
	// Read returns the current state of the named seats.  Unknown ids are
	// omitted from the result.
	Read(ctx context.Context, seatIDs []string) ([]model.Seat, error)
}

// Transition describes one guarded status change of a seat.
//
// Guard: the seat's status equals From; when From is held and Holder is
// set, held_by equals Holder; when LiveAt is non-zero, hold_expiry is
// strictly after LiveAt; when LapsedAt is non-zero, hold_expiry is at or
// before LapsedAt.  With From available, a non-zero ReclaimAt also admits a
// seat held by anyone whose hold_expiry is at or before ReclaimAt.
//
// Effect: status becomes To.  Entering held stores Holder and Expiry; a
// held→held transition keeps the later of the current and new expiry.
// Any other target clears held_by and hold_expiry.
type Transition struct {
	SeatID   string
	From     model.SeatStatus
	To       model.SeatStatus
	Holder   string
	LiveAt   time.Time
	LapsedAt time.Time
	// ReclaimAt lets a claim take over a hold that lapsed but was not swept.
	ReclaimAt time.Time
	Expiry    *time.Time
}

// Validate rejects transitions that no caller should ever build.
func (t Transition) Validate() error {
	if t.SeatID == "" {
		return fmt.Errorf("%w: empty seat id", ErrInvalidTransition)
	}
	if !t.From.Valid() || !t.To.Valid() {
		return fmt.Errorf("%w: %q -> %q", ErrInvalidTransition, t.From, t.To)
	}
	if t.From.Terminal() {
		return fmt.Errorf("%w: seat %s cannot leave %s", ErrInvalidTransition, t.SeatID, t.From)
	}
	if t.To == model.SeatHeld && (t.Expiry == nil || t.Holder == "") {
		return fmt.Errorf("%w: hold on %s needs holder and expiry", ErrInvalidTransition, t.SeatID)
	}
	if !t.LapsedAt.IsZero() && (t.From != model.SeatHeld || !t.LiveAt.IsZero()) {
		return fmt.Errorf("%w: lapsed guard on %s needs a held seat and no live guard", ErrInvalidTransition, t.SeatID)
	}
	if !t.ReclaimAt.IsZero() && t.From != model.SeatAvailable {
		return fmt.Errorf("%w: reclaim on %s must start from available", ErrInvalidTransition, t.SeatID)
	}
	return nil
}

// Admits reports whether the guard of t holds for s.
func (t Transition) Admits(s model.Seat) bool {
	if s.Status != t.From {
		return t.reclaims(s)
	}
	if t.From == model.SeatHeld && t.Holder != "" {
		if s.HeldBy == nil || *s.HeldBy != t.Holder {
			return false
		}
	}
	if !t.LiveAt.IsZero() {
		if s.HoldExpiry == nil || !s.HoldExpiry.After(t.LiveAt) {
			return false
		}
	}
	if !t.LapsedAt.IsZero() {
		if s.HoldExpiry == nil || s.HoldExpiry.After(t.LapsedAt) {
			return false
		}
	}
	return true
}

func (t Transition) reclaims(s model.Seat) bool {
	return !t.ReclaimAt.IsZero() && t.From == model.SeatAvailable &&
		s.Status == model.SeatHeld && s.HoldExpiry != nil && !s.HoldExpiry.After(t.ReclaimAt)
}

// Apply writes the effect of t onto s.  Callers must check Admits first.
func (t Transition) Apply(s *model.Seat) {
	switch t.To {
	case model.SeatHeld:
		exp := *t.Expiry
		if t.From == model.SeatHeld && s.HoldExpiry != nil && s.HoldExpiry.After(exp) {
			exp = *s.HoldExpiry
		}
		holder := t.Holder
		s.HoldExpiry = &exp
		s.HeldBy = &holder
	case model.SeatAvailable, model.SeatSold:
		s.HoldExpiry = nil
		s.HeldBy = nil
	}
	s.Status = t.To
}

// validateBatch checks every transition and rejects duplicate seat ids.
func validateBatch(ts []Transition) error {
	seen := make(map[string]struct{}, len(ts))
	for _, t := range ts {
		if err := t.Validate(); err != nil {
			return err
		}
		if _, dup := seen[t.SeatID]; dup {
			return fmt.Errorf("%w: seat %s named twice", ErrInvalidTransition, t.SeatID)
		}
		seen[t.SeatID] = struct{}{}
	}
	return nil
}
