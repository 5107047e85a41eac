package domain

import "errors"

var (
	ErrRoomNotFound = errors.New("room-not-found")
	// ErrStaleRoom is returned by stores that detected a concurrent write to the room
	// between their read and their write. Nothing was written; callers re-read and
	// re-apply their rules.
	ErrStaleRoom        = errors.New("stale-room")
	ErrStoreUnavailable = errors.New("store-unavailable")
)

// ErrIntegrityFault marks data that breaks a room invariant. It is a defect, never a
// player mistake.
var ErrIntegrityFault = errors.New("integrity-fault")

// ErrUnchanged is returned by a Mutation that decided the stored room must stay as it is.
var ErrUnchanged = errors.New("unchanged")
