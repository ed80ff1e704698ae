package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"service-booking-backend/internal/model"
)

// CreateSlot inserts a single slot with an empty capacity counter.
func (s *gormStore) CreateSlot(ctx context.Context, slot *model.TimeSlot) error {
	slot.CurrentBookings = 0
	slot.IsAvailable = true
	slot.BookedBy = nil
	if err := s.db.WithContext(ctx).Create(slot).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("slot %s %s-%s: %w", slot.Date, slot.StartTime, slot.EndTime, ErrDuplicateSlot)
		}
		return fmt.Errorf("failed to create slot: %w", err)
	}
	return nil
}

// CreateSlots inserts slots in one transaction, skipping windows that already
// exist. Only the rows actually inserted are returned.
func (s *gormStore) CreateSlots(ctx context.Context, slots []model.TimeSlot) ([]model.TimeSlot, error) {
	created := make([]model.TimeSlot, 0, len(slots))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range slots {
			slot := slots[i]
			slot.CurrentBookings = 0
			slot.IsAvailable = true
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&slot)
			if res.Error != nil {
				return fmt.Errorf("failed to create slot %s %s-%s: %w", slot.Date, slot.StartTime, slot.EndTime, res.Error)
			}
			if res.RowsAffected == 1 {
				created = append(created, slot)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetSlot loads a slot by ID.
func (s *gormStore) GetSlot(ctx context.Context, id uuid.UUID) (*model.TimeSlot, error) {
	var slot model.TimeSlot
	if err := s.db.WithContext(ctx).First(&slot, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("slot %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load slot %s: %w", id, err)
	}
	return &slot, nil
}

// ListAvailableSlots returns the slots of one day that still have capacity.
func (s *gormStore) ListAvailableSlots(ctx context.Context, date string) ([]model.TimeSlot, error) {
	var slots []model.TimeSlot
	if err := s.db.WithContext(ctx).
		Where("date = ? AND is_available = ?", date, true).
		Order("start_time ASC").
		Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("failed to list available slots for %s: %w", date, err)
	}
	return slots, nil
}

// ListSlotsInRange returns every slot whose day lies in [from, to].
func (s *gormStore) ListSlotsInRange(ctx context.Context, from, to string) ([]model.TimeSlot, error) {
	var slots []model.TimeSlot
	if err := s.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", from, to).
		Order("date ASC").
		Order("start_time ASC").
		Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("failed to list slots in %s..%s: %w", from, to, err)
	}
	return slots, nil
}

// ReserveSlot claims one unit of the slot's capacity for the booking.
//
// The booking claim and the capacity increment commit together. The
// increment is a single conditional UPDATE guarded by
// current_bookings < max_capacity, so concurrent callers racing for the last
// unit cannot both succeed. Losing the race returns (false, nil).
func (s *gormStore) ReserveSlot(ctx context.Context, slotID, bookingID uuid.UUID) (bool, error) {
	now := s.now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := claimBooking(tx, slotID, bookingID, now); err != nil {
			return err
		}

		res := tx.Model(&model.TimeSlot{}).
			Where("id = ? AND current_bookings < max_capacity", slotID).
			Updates(map[string]any{
				"current_bookings": gorm.Expr("current_bookings + 1"),
				"is_available":     gorm.Expr("current_bookings + 1 < max_capacity"),
				"booked_by":        bookingID,
				"updated_at":       now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to reserve slot %s: %w", slotID, res.Error)
		}
		if res.RowsAffected == 0 {
			if err := slotExists(tx, slotID); err != nil {
				return err
			}
			return errSlotFull
		}
		return nil
	})

	switch {
	case err == nil, errors.Is(err, errAlreadyReserved):
		return true, nil
	case errors.Is(err, errSlotFull):
		return false, nil
	}
	return false, err
}

// claimBooking records slotID on the booking, provided it holds no slot yet
// and is still open for reservations.
func claimBooking(tx *gorm.DB, slotID, bookingID uuid.UUID, now time.Time) error {
	res := tx.Model(&model.Booking{}).
		Where("id = ? AND time_slot_id IS NULL AND status IN ?", bookingID, reservableStatuses).
		Updates(map[string]any{
			"time_slot_id": slotID,
			"updated_at":   now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to claim booking %s: %w", bookingID, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var b model.Booking
	if err := tx.Select("id", "status", "time_slot_id").First(&b, "id = ?", bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("booking %s: %w", bookingID, ErrNotFound)
		}
		return fmt.Errorf("failed to load booking %s: %w", bookingID, err)
	}
	switch {
	case b.TimeSlotID != nil && *b.TimeSlotID == slotID:
		return errAlreadyReserved
	case b.TimeSlotID != nil:
		return fmt.Errorf("booking %s holds slot %s: %w", bookingID, *b.TimeSlotID, ErrSlotAlreadyHeld)
	default:
		return fmt.Errorf("booking %s is %s: %w", bookingID, b.Status, ErrBookingClosed)
	}
}

// ReleaseSlot gives one unit of capacity back to the slot and detaches one
// booking holding it, the one in booked_by first. Units with no holding
// booking are released as is. Releasing an empty slot is a no-op.
func (s *gormStore) ReleaseSlot(ctx context.Context, slotID uuid.UUID) error {
	now := s.now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var slot model.TimeSlot
		if err := tx.Select("id", "booked_by").First(&slot, "id = ?", slotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("slot %s: %w", slotID, ErrNotFound)
			}
			return fmt.Errorf("failed to load slot %s: %w", slotID, err)
		}

		var holders []uuid.UUID
		if err := tx.Model(&model.Booking{}).
			Where("time_slot_id = ?", slotID).
			Order("created_at").
			Pluck("id", &holders).Error; err != nil {
			return fmt.Errorf("failed to list holders of slot %s: %w", slotID, err)
		}
		if slot.BookedBy != nil {
			for i, id := range holders {
				if id == *slot.BookedBy {
					holders[0], holders[i] = holders[i], holders[0]
					break
				}
			}
		}

		for _, id := range holders {
			detached, err := detachSlot(tx, id, slotID, now)
			if err != nil {
				return err
			}
			if detached {
				_, err := releaseUnit(tx, slotID, &id, now)
				return err
			}
		}
		if len(holders) > 0 {
			// every holder was detached by a concurrent release
			return nil
		}
		_, err := releaseUnit(tx, slotID, nil, now)
		return err
	})
}

// ReleaseBookingSlot frees the slot held by the booking, if any, and clears
// the booking's slot reference. Calling it again is a no-op.
func (s *gormStore) ReleaseBookingSlot(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	var released bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var b model.Booking
		if err := tx.Select("id", "time_slot_id").First(&b, "id = ?", bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("booking %s: %w", bookingID, ErrNotFound)
			}
			return fmt.Errorf("failed to load booking %s: %w", bookingID, err)
		}
		var err error
		released, err = releaseHeldSlot(tx, bookingID, b.TimeSlotID, s.now())
		return err
	})
	if err != nil {
		return false, err
	}
	return released, nil
}

// releaseHeldSlot detaches slotID from the booking and returns its unit of
// capacity. The detach is guarded on the observed slot reference so two
// concurrent releases decrement at most once.
func releaseHeldSlot(tx *gorm.DB, bookingID uuid.UUID, slotID *uuid.UUID, now time.Time) (bool, error) {
	if slotID == nil {
		return false, nil
	}
	detached, err := detachSlot(tx, bookingID, *slotID, now)
	if err != nil || !detached {
		return false, err
	}
	return releaseUnit(tx, *slotID, &bookingID, now)
}

// detachSlot clears the booking's slot reference if it still points at slotID.
func detachSlot(tx *gorm.DB, bookingID, slotID uuid.UUID, now time.Time) (bool, error) {
	res := tx.Model(&model.Booking{}).
		Where("id = ? AND time_slot_id = ?", bookingID, slotID).
		Updates(map[string]any{
			"time_slot_id": nil,
			"updated_at":   now,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to detach slot from booking %s: %w", bookingID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// releaseUnit decrements current_bookings, never below zero. booked_by is
// cleared when the slot empties or when it points at holder.
func releaseUnit(tx *gorm.DB, slotID uuid.UUID, holder *uuid.UUID, now time.Time) (bool, error) {
	bookedBy := gorm.Expr("CASE WHEN current_bookings <= 1 THEN NULL ELSE booked_by END")
	if holder != nil {
		bookedBy = gorm.Expr("CASE WHEN current_bookings <= 1 OR booked_by = ? THEN NULL ELSE booked_by END", *holder)
	}
	res := tx.Model(&model.TimeSlot{}).
		Where("id = ? AND current_bookings > 0", slotID).
		Updates(map[string]any{
			"current_bookings": gorm.Expr("current_bookings - 1"),
			"is_available":     true,
			"booked_by":        bookedBy,
			"updated_at":       now,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to release slot %s: %w", slotID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func slotExists(tx *gorm.DB, slotID uuid.UUID) error {
	var count int64
	if err := tx.Model(&model.TimeSlot{}).Where("id = ?", slotID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up slot %s: %w", slotID, err)
	}
	if count == 0 {
		return fmt.Errorf("slot %s: %w", slotID, ErrNotFound)
	}
	return nil
}
