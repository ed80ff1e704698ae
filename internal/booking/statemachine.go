package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"service-booking-backend/internal/model"
	"service-booking-backend/internal/store"
)

// CompletionNotifier performs the one-time side effect of a booking reaching
// completed. delivered is false when nobody could be reached.
type CompletionNotifier interface {
	NotifyCompletion(ctx context.Context, b model.Booking) (delivered bool, err error)
}

// transitions lists, per status, the statuses it may move to. A status may
// always be re-applied to itself.
var transitions = map[model.BookingStatus][]model.BookingStatus{
	model.BookingStatusPending:    {model.BookingStatusConfirmed, model.BookingStatusCancelled},
	model.BookingStatusConfirmed:  {model.BookingStatusInProgress, model.BookingStatusCancelled},
	model.BookingStatusInProgress: {model.BookingStatusCompleted, model.BookingStatusCancelled},
}

// CanTransition reports whether a booking in status from may move to to.
func CanTransition(from, to model.BookingStatus) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StatusUpdate is the outcome of a committed status change.
type StatusUpdate struct {
	Booking *model.Booking
	// Notified is true when this call ran the completion notifier and it
	// reported delivery.
	Notified bool
	// Warning carries a notifier failure. The status change stands regardless.
	Warning error
}

// Options tune a StateMachine.
type Options struct {
	MaxAttempts int
	// AllowAnyTransition skips the transition table. The completion flag is
	// still never reset, so the notifier still runs at most once.
	AllowAnyTransition bool
}

// StateMachine moves bookings through their status lifecycle.
type StateMachine struct {
	store    store.Store
	notifier CompletionNotifier
	log      *zap.Logger
	opts     Options
	now      func() time.Time
}

func NewStateMachine(s store.Store, notifier CompletionNotifier, log *zap.Logger, opts Options) *StateMachine {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	return &StateMachine{
		store:    s,
		notifier: notifier,
		log:      log,
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// UpdateStatus moves the booking to status, storing notes as the technician
// notes when given.
//
// Entering completed sets completion_call_triggered in the same write as the
// status. Only the caller whose write flipped the flag calls the notifier, and
// it does so after the write committed. Entering cancelled releases the held
// slot.
func (m *StateMachine) UpdateStatus(ctx context.Context, id uuid.UUID, status model.BookingStatus, notes *string) (*StatusUpdate, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	for attempt := 1; attempt <= m.opts.MaxAttempts; attempt++ {
		current, err := m.store.GetBooking(ctx, id)
		if err != nil {
			return nil, err
		}
		if !m.opts.AllowAnyTransition && !CanTransition(current.Status, status) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, status)
		}

		t := m.plan(current, status, notes)
		applied, err := m.store.ApplyTransition(ctx, t)
		if err != nil {
			return nil, err
		}
		if !applied {
			m.log.Debug("booking changed during status update, retrying",
				zap.String("booking_id", id.String()),
				zap.Int("attempt", attempt))
			continue
		}

		updated := applyLocal(*current, t)
		m.log.Info("booking status updated",
			zap.String("booking_id", id.String()),
			zap.String("from", string(current.Status)),
			zap.String("to", string(status)))

		result := &StatusUpdate{Booking: &updated}
		if t.MarkCallTriggered {
			result.Notified, result.Warning = m.notify(ctx, updated)
		}
		return result, nil
	}
	return nil, fmt.Errorf("booking %s: %w", id, ErrConcurrentUpdate)
}

// plan builds the compare-and-set write for moving current to status.
func (m *StateMachine) plan(current *model.Booking, status model.BookingStatus, notes *string) store.Transition {
	now := m.now()
	t := store.Transition{
		BookingID:         current.ID,
		From:              current.Status,
		FromCallTriggered: current.CompletionCallTriggered,
		To:                status,
		Notes:             notes,
		At:                now,
	}
	switch status {
	case model.BookingStatusCompleted:
		if current.ActualCompletion == nil {
			t.ActualCompletion = &now
		}
		t.MarkCallTriggered = !current.CompletionCallTriggered
	case model.BookingStatusCancelled:
		if current.CancelledAt == nil {
			t.CancelledAt = &now
		}
	}
	return t
}

// applyLocal mirrors a committed transition onto the row read before it.
func applyLocal(b model.Booking, t store.Transition) model.Booking {
	b.Status = t.To
	b.UpdatedAt = t.At
	if t.Notes != nil {
		notes := *t.Notes
		b.TechnicianNotes = &notes
	}
	if t.ActualCompletion != nil {
		b.ActualCompletion = t.ActualCompletion
	}
	if t.CancelledAt != nil {
		b.CancelledAt = t.CancelledAt
	}
	if t.MarkCallTriggered {
		b.CompletionCallTriggered = true
	}
	if t.To == model.BookingStatusCancelled {
		b.TimeSlotID = nil
	}
	return b
}

func (m *StateMachine) notify(ctx context.Context, b model.Booking) (bool, error) {
	if m.notifier == nil {
		return false, nil
	}
	delivered, err := m.notifier.NotifyCompletion(ctx, b)
	switch {
	case err != nil:
		m.log.Warn("completion notification failed",
			zap.String("booking_id", b.ID.String()),
			zap.Error(err))
		if !errors.Is(err, ErrNotifier) {
			err = fmt.Errorf("%w: %w", ErrNotifier, err)
		}
		return false, err
	case !delivered:
		m.log.Info("completion notification not delivered",
			zap.String("booking_id", b.ID.String()))
	default:
		m.log.Info("completion notification delivered",
			zap.String("booking_id", b.ID.String()))
	}
	return delivered, nil
}
