package reservation

import (
	"time"

	"github.com/iliyamo/seat-hold/internal/model"
)

// HoldOutcome is the result of a hold attempt.
type HoldOutcome int

const (
	// Held means the seat now belongs to the caller until ExpiresAt.
	Held HoldOutcome = iota + 1
	// Conflict means another shopper holds or bought the seat.
	Conflict
)

func (o HoldOutcome) String() string {
	switch o {
	case Held:
		return "held"
	case Conflict:
		return "conflict"
	}
	return "unknown"
}

// HoldResult is returned by TryHold.  ExpiresAt is zero on Conflict.
type HoldResult struct {
	Outcome   HoldOutcome
	ExpiresAt time.Time
}

// ExtendResult is returned by Extend.  When Extended is false the caller
// no longer holds the seat (released, swept, or expired).
type ExtendResult struct {
	Extended  bool
	ExpiresAt time.Time
}

// ConfirmResult is returned by ConfirmAll.  A non-empty Failed lists the
// seats whose precondition did not hold; in that case no seat of the batch
// was sold.
type ConfirmResult struct {
	Failed []string
}

// OK reports whether the whole batch was sold.
func (r ConfirmResult) OK() bool { return len(r.Failed) == 0 }

// SeatState is one entry of a reconciliation read.
type SeatState struct {
	Status    model.SeatStatus `json:"status"`
	ExpiresAt *time.Time       `json:"expires_at,omitempty"`
	// Mine is true when the seat is held by the querying session and the
	// hold has not lapsed.
	Mine bool `json:"mine"`
}
