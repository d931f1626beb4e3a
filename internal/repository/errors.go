// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// reservation engine and handlers to distinguish between different failure
// scenarios without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a requested row does not exist. Handlers
// should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an update cannot be applied because the
// row is not in the expected state, such as checking in a ticket twice.
// Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrInvalidTransition is returned when a seat transition is malformed:
// leaving the terminal sold state, entering held without an expiry or
// holder, or naming the same seat twice in one batch. It signals a
// programming error in the caller, never contention.
var ErrInvalidTransition = errors.New("invalid seat transition")
