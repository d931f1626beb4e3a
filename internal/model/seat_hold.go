package model

import "time"

// SeatHold is a time-bounded exclusive claim on a seat by one shopper
// session.  It lives only as long as the session's cart.
//
// Fields:
//
//	SeatID     – seat being held.
//	ZoneID     – zone of the seat, kept for display.
//	Price      – price captured when the seat was added to the cart.
//	AcquiredAt – when the hold was granted by the store.
//	ExpiresAt  – AcquiredAt plus the hold duration, refreshed by extend.
type SeatHold struct {
	SeatID     string    `json:"seat_id"`
	ZoneID     string    `json:"zone_id"`
	Price      int64     `json:"price"`
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Expired reports whether the hold is no longer valid at now.  A hold whose
// expiry equals now is already expired.
func (h SeatHold) Expired(now time.Time) bool {
	return !h.ExpiresAt.After(now)
}
