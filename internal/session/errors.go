package session

import "errors"

var (
	// ErrNotFound is returned when a code has no live session. Expired
	// sessions are reported the same way at the gateway boundary.
	ErrNotFound = errors.New("session not found")

	// ErrSessionExpired is returned by mutating operations on a session
	// whose TTL has elapsed but that the reaper has not removed yet.
	ErrSessionExpired = errors.New("session expired")

	// ErrTooLarge is returned when appending a file would push the
	// session's running total past the aggregate size ceiling.
	ErrTooLarge = errors.New("total upload size exceeds limit")
)
