package model

import (
	"fmt"
	"time"
)

// SeatStatus is the availability state of a seat in the store.  The set is
// closed: every consumer switches over all three values.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatHeld      SeatStatus = "held"
	SeatSold      SeatStatus = "sold"
)

// ParseSeatStatus converts a stored string into a SeatStatus.  Unknown
// values are rejected rather than passed through.
func ParseSeatStatus(s string) (SeatStatus, error) {
	switch SeatStatus(s) {
	case SeatAvailable, SeatHeld, SeatSold:
		return SeatStatus(s), nil
	}
	return "", fmt.Errorf("unknown seat status %q", s)
}

// Valid reports whether s is one of the known statuses.
func (s SeatStatus) Valid() bool {
	_, err := ParseSeatStatus(string(s))
	return err == nil
}

// Terminal reports whether no further transition is permitted out of s.
func (s SeatStatus) Terminal() bool {
	switch s {
	case SeatSold:
		return true
	case SeatAvailable, SeatHeld:
		return false
	}
	return false
}

// Seat is a single sellable seat as persisted by the seat store.
//
// Fields:
//
//	ID         – primary key (UUID string).
//	ZoneID     – zone used for pricing and grouping.
//	RowNumber  – row within the zone.
//	SeatNumber – seat within the row.
//	Status     – available, held or sold.
//	HoldExpiry – set iff Status is held.
//	HeldBy     – session that owns the hold, set iff Status is held.
type Seat struct {
	ID         string     // seats.id
	ZoneID     string     // seats.zone_id
	RowNumber  int        // seats.row_no
	SeatNumber int        // seats.seat_no
	Status     SeatStatus // seats.status
	HoldExpiry *time.Time // seats.hold_expiry (nullable)
	HeldBy     *string    // seats.held_by (nullable)
}

// IsHeldBy reports whether the seat is held by session and the hold is still
// live at now.
func (s Seat) IsHeldBy(session string, now time.Time) bool {
	if s.Status != SeatHeld || s.HeldBy == nil || s.HoldExpiry == nil {
		return false
	}
	return *s.HeldBy == session && s.HoldExpiry.After(now)
}
