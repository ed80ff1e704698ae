package booking

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"service-booking-backend/internal/model"
	"service-booking-backend/internal/parse"
	"service-booking-backend/internal/store"
)

// Allocator hands out and takes back units of slot capacity. It is the only
// component that changes a slot's counter.
type Allocator struct {
	store store.Store
	log   *zap.Logger
}

func NewAllocator(s store.Store, log *zap.Logger) *Allocator {
	return &Allocator{store: s, log: log}
}

// Reserve claims one unit of the slot for the booking. ok is false when the
// slot is already full; that is an expected outcome, not an error.
func (a *Allocator) Reserve(ctx context.Context, slotID, bookingID uuid.UUID) (bool, error) {
	ok, err := a.store.ReserveSlot(ctx, slotID, bookingID)
	if err != nil {
		return false, err
	}
	if !ok {
		a.log.Info("slot full, reservation rejected",
			zap.String("slot_id", slotID.String()),
			zap.String("booking_id", bookingID.String()))
		return false, nil
	}
	a.log.Debug("slot reserved",
		zap.String("slot_id", slotID.String()),
		zap.String("booking_id", bookingID.String()))
	return true, nil
}

// Release gives one unit back to the slot. Releasing an empty slot is a no-op.
func (a *Allocator) Release(ctx context.Context, slotID uuid.UUID) error {
	if err := a.store.ReleaseSlot(ctx, slotID); err != nil {
		return err
	}
	a.log.Debug("slot released", zap.String("slot_id", slotID.String()))
	return nil
}

// ReleaseBooking frees whatever slot the booking holds. It reports whether a
// unit was actually returned; repeated calls return false.
func (a *Allocator) ReleaseBooking(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	released, err := a.store.ReleaseBookingSlot(ctx, bookingID)
	if err != nil {
		return false, err
	}
	if released {
		a.log.Debug("booking slot released", zap.String("booking_id", bookingID.String()))
	}
	return released, nil
}

// ListAvailable returns the open slots of one day ordered by start time.
func (a *Allocator) ListAvailable(ctx context.Context, date string) ([]model.TimeSlot, error) {
	day, err := parse.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	return a.store.ListAvailableSlots(ctx, parse.FormatDate(day))
}

// ListInRange returns all slots, full or not, whose day lies in [start, end].
func (a *Allocator) ListInRange(ctx context.Context, start, end string) ([]model.TimeSlot, error) {
	from, err := parse.ParseDate(start)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	to, err := parse.ParseDate(end)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	if from.After(to) {
		return nil, fmt.Errorf("%w: start %s is after end %s", ErrInvalidRange, start, end)
	}
	return a.store.ListSlotsInRange(ctx, parse.FormatDate(from), parse.FormatDate(to))
}

// CreateSlot adds a single slot outside of batch generation.
func (a *Allocator) CreateSlot(ctx context.Context, date, start, end string, capacity int) (*model.TimeSlot, error) {
	day, err := parse.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	from, err := parse.ParseClock(start)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	to, err := parse.ParseClock(end)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	if from >= to {
		return nil, fmt.Errorf("%w: start %s is not before end %s", ErrInvalidRange, start, end)
	}
	if capacity < 1 {
		return nil, fmt.Errorf("%w: capacity must be at least 1, got %d", ErrInvalidRange, capacity)
	}

	slot := &model.TimeSlot{
		Date:        parse.FormatDate(day),
		StartTime:   from.String(),
		EndTime:     to.String(),
		MaxCapacity: capacity,
	}
	if err := a.store.CreateSlot(ctx, slot); err != nil {
		return nil, err
	}
	a.log.Info("slot created",
		zap.String("slot_id", slot.ID.String()),
		zap.String("date", slot.Date),
		zap.String("window", slot.StartTime+"-"+slot.EndTime),
		zap.Int("capacity", slot.MaxCapacity))
	return slot, nil
}
