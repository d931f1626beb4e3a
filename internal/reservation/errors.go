package reservation

import "errors"

var (
	// ErrSeatNotFound means the caller named a seat the store does not
	// know.  It is a programming error on the caller's side.
	ErrSeatNotFound = errors.New("seat not found")

	// ErrStoreUnavailable wraps every fault reported by the seat store.
	// Conditional writes are idempotent, so callers may retry; the engine
	// itself never does.
	ErrStoreUnavailable = errors.New("seat store unavailable")

	// ErrEmptyBatch is returned by ConfirmAll when no seat ids are given.
	ErrEmptyBatch = errors.New("empty seat batch")

	// ErrNoSession is returned when an operation is attempted without a
	// session id to attribute the hold to.
	ErrNoSession = errors.New("missing session id")
)
