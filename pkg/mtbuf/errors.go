package mtbuf

import "github.com/pkg/errors"

// Sentinel errors. Callers should match them with errors.Is since the
// buffer wraps them with slot/operation context.
var (
	// ErrSlotAcqTimeout is returned when a per-slot lock or the buffer
	// lock cannot be acquired before the deadline.
	ErrSlotAcqTimeout = errors.New("slot acquisition timed out")

	// ErrDataAvailableTimeout is returned when no consumable slot shows up
	// before the deadline.
	ErrDataAvailableTimeout = errors.New("no data available before timeout")
)
