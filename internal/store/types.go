package store

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"service-booking-backend/internal/model"
)

var (
	// ErrNotFound is returned when a referenced slot, booking or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateSlot is returned when a slot for the same day and window already exists.
	ErrDuplicateSlot = errors.New("slot already exists for this window")
	// ErrSlotAlreadyHeld is returned when a booking tries to reserve a second slot.
	ErrSlotAlreadyHeld = errors.New("booking already holds another slot")
	// ErrBookingClosed is returned when a booking can no longer reserve capacity.
	ErrBookingClosed = errors.New("booking does not accept reservations in its current status")
)

// Sentinels used inside transactions to force a rollback without surfacing an error.
var (
	errSlotFull        = errors.New("slot full")
	errAlreadyReserved = errors.New("already reserved")
	errStale           = errors.New("stale booking state")
)

// reservableStatuses are the booking statuses allowed to claim slot capacity.
var reservableStatuses = []string{
	string(model.BookingStatusPending),
	string(model.BookingStatusConfirmed),
}

// Transition describes a compare-and-set status change on a booking. The
// update only applies while the row still has status From and the observed
// completion flag FromCallTriggered.
type Transition struct {
	BookingID         uuid.UUID
	From              model.BookingStatus
	FromCallTriggered bool
	To                model.BookingStatus
	Notes             *string
	ActualCompletion  *time.Time
	CancelledAt       *time.Time
	MarkCallTriggered bool
	At                time.Time
}
