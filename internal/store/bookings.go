package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"service-booking-backend/internal/model"
)

// CreateBooking inserts a booking row. Booking creation proper belongs to the
// surrounding application; the core only needs it for seeding and tests.
func (s *gormStore) CreateBooking(ctx context.Context, booking *model.Booking) error {
	if err := s.db.WithContext(ctx).Create(booking).Error; err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// GetBooking loads a booking by ID.
func (s *gormStore) GetBooking(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	var b model.Booking
	if err := s.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("booking %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load booking %s: %w", id, err)
	}
	return &b, nil
}

// ApplyTransition writes a status change if the booking still matches the
// state the caller observed. It reports false when another writer got there
// first; the caller is expected to re-read and decide again.
//
// The completion flag is part of the same UPDATE as the status, and a
// transition into cancelled releases the held slot inside the same
// transaction.
func (s *gormStore) ApplyTransition(ctx context.Context, t Transition) (bool, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"status":     string(t.To),
			"updated_at": t.At,
		}
		if t.Notes != nil {
			updates["technician_notes"] = *t.Notes
		}
		if t.ActualCompletion != nil {
			updates["actual_completion"] = *t.ActualCompletion
		}
		if t.CancelledAt != nil {
			updates["cancelled_at"] = *t.CancelledAt
		}
		if t.MarkCallTriggered {
			updates["completion_call_triggered"] = true
		}

		res := tx.Model(&model.Booking{}).
			Where("id = ? AND status = ? AND completion_call_triggered = ?", t.BookingID, string(t.From), t.FromCallTriggered).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to update booking %s: %w", t.BookingID, res.Error)
		}
		if res.RowsAffected == 0 {
			return errStale
		}

		if t.To != model.BookingStatusCancelled || t.From == model.BookingStatusCancelled {
			return nil
		}
		// The row is now locked by our UPDATE, so the slot reference read
		// here cannot move under us.
		var b model.Booking
		if err := tx.Select("id", "time_slot_id").First(&b, "id = ?", t.BookingID).Error; err != nil {
			return fmt.Errorf("failed to reload booking %s: %w", t.BookingID, err)
		}
		_, err := releaseHeldSlot(tx, t.BookingID, b.TimeSlotID, t.At)
		return err
	})

	if errors.Is(err, errStale) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
