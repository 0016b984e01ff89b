package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	ErrOutOfHorizon = errors.New("booking start is outside the reservation horizon")

	ErrAlreadyBooked = errors.New("requester already holds an active booking")

	ErrSlotTaken = errors.New("slot is already reserved")

	ErrInvalidTransition = errors.New("booking status cannot change from its current state")

	// ErrStore marks I/O and timeout failures of the backing store.
	ErrStore = errors.New("booking store unavailable")
)
