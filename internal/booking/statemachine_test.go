package booking

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"service-booking-backend/internal/model"
	"service-booking-backend/internal/store"
)

type fakeNotifier struct {
	calls     atomic.Int32
	delivered bool
	err       error
	delay     time.Duration

	mu   sync.Mutex
	seen []model.Booking
}

func (f *fakeNotifier) NotifyCompletion(_ context.Context, b model.Booking) (bool, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	f.seen = append(f.seen, b)
	f.mu.Unlock()
	return f.delivered, f.err
}

// staleStore loses every compare-and-set.
type staleStore struct {
	store.Store
	attempts atomic.Int32
}

func (s *staleStore) ApplyTransition(context.Context, store.Transition) (bool, error) {
	s.attempts.Add(1)
	return false, nil
}

func advance(t *testing.T, m *StateMachine, id uuid.UUID, statuses ...model.BookingStatus) *StatusUpdate {
	t.Helper()
	var last *StatusUpdate
	for _, st := range statuses {
		res, err := m.UpdateStatus(context.Background(), id, st, nil)
		require.NoError(t, err, "moving to %s", st)
		last = res
	}
	return last
}

func TestCanTransition(t *testing.T) {
	testCases := []struct {
		from, to model.BookingStatus
		want     bool
	}{
		{model.BookingStatusPending, model.BookingStatusConfirmed, true},
		{model.BookingStatusPending, model.BookingStatusCancelled, true},
		{model.BookingStatusPending, model.BookingStatusInProgress, false},
		{model.BookingStatusPending, model.BookingStatusCompleted, false},
		{model.BookingStatusConfirmed, model.BookingStatusInProgress, true},
		{model.BookingStatusConfirmed, model.BookingStatusPending, false},
		{model.BookingStatusInProgress, model.BookingStatusCompleted, true},
		{model.BookingStatusInProgress, model.BookingStatusCancelled, true},
		{model.BookingStatusCompleted, model.BookingStatusPending, false},
		{model.BookingStatusCompleted, model.BookingStatusCancelled, false},
		{model.BookingStatusCancelled, model.BookingStatusConfirmed, false},
		{model.BookingStatusCompleted, model.BookingStatusCompleted, true},
		{model.BookingStatusCancelled, model.BookingStatusCancelled, true},
	}

	for _, tc := range testCases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.want, CanTransition(tc.from, tc.to))
		})
	}
}

func TestStateMachine_FullLifecycle(t *testing.T) {
	s := newTestStore(t)
	n := &fakeNotifier{delivered: true}
	m := NewStateMachine(s, n, zap.NewNop(), Options{})
	b := createBooking(t, s, model.BookingStatusPending)

	res := advance(t, m, b.ID,
		model.BookingStatusConfirmed,
		model.BookingStatusInProgress,
		model.BookingStatusCompleted,
	)

	assert.True(t, res.Notified)
	assert.NoError(t, res.Warning)
	assert.Equal(t, model.BookingStatusCompleted, res.Booking.Status)
	assert.True(t, res.Booking.CompletionCallTriggered)
	require.NotNil(t, res.Booking.ActualCompletion)
	assert.Equal(t, int32(1), n.calls.Load())
	assert.True(t, n.seen[0].CompletionCallTriggered, "notifier sees the committed row")

	stored, err := s.GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCompleted, stored.Status)
	assert.True(t, stored.CompletionCallTriggered)
	require.NotNil(t, stored.ActualCompletion)
}

func TestStateMachine_RejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	m := NewStateMachine(s, &fakeNotifier{}, zap.NewNop(), Options{})
	ctx := context.Background()

	pending := createBooking(t, s, model.BookingStatusPending)
	_, err := m.UpdateStatus(ctx, pending.ID, model.BookingStatusCompleted, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	completed := createBooking(t, s, model.BookingStatusCompleted)
	_, err = m.UpdateStatus(ctx, completed.ID, model.BookingStatusPending, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = m.UpdateStatus(ctx, pending.ID, model.BookingStatus("archived"), nil)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = m.UpdateStatus(ctx, uuid.New(), model.BookingStatusConfirmed, nil)
	assert.ErrorIs(t, err, store.ErrNotFound)

	got, err := s.GetBooking(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPending, got.Status, "rejected transitions write nothing")
}

func TestStateMachine_CompletedTwiceNotifiesOnce(t *testing.T) {
	s := newTestStore(t)
	n := &fakeNotifier{delivered: true}
	m := NewStateMachine(s, n, zap.NewNop(), Options{})
	b := createBooking(t, s, model.BookingStatusInProgress)

	first := advance(t, m, b.ID, model.BookingStatusCompleted)
	second := advance(t, m, b.ID, model.BookingStatusCompleted)

	assert.True(t, first.Notified)
	assert.False(t, second.Notified)
	assert.Equal(t, int32(1), n.calls.Load())
	assert.True(t, first.Booking.ActualCompletion.Equal(*second.Booking.ActualCompletion),
		"actual completion is stamped once")
}

func TestStateMachine_ConcurrentCompletionNotifiesOnce(t *testing.T) {
	s := newTestStore(t)
	n := &fakeNotifier{delivered: true, delay: 20 * time.Millisecond}
	m := NewStateMachine(s, n, zap.NewNop(), Options{MaxAttempts: 5})
	b := createBooking(t, s, model.BookingStatusInProgress)

	const callers = 10
	var wg sync.WaitGroup
	var notified atomic.Int32
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			res, err := m.UpdateStatus(context.Background(), b.ID, model.BookingStatusCompleted, nil)
			if !assert.NoError(t, err) {
				return
			}
			assert.Equal(t, model.BookingStatusCompleted, res.Booking.Status)
			if res.Notified {
				notified.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), n.calls.Load())
	assert.Equal(t, int32(1), notified.Load())
}

func TestStateMachine_NotifierFailureKeepsCompletion(t *testing.T) {
	s := newTestStore(t)
	n := &fakeNotifier{err: errors.New("carrier unreachable")}
	m := NewStateMachine(s, n, zap.NewNop(), Options{})
	b := createBooking(t, s, model.BookingStatusInProgress)

	res, err := m.UpdateStatus(context.Background(), b.ID, model.BookingStatusCompleted, nil)
	require.NoError(t, err)
	assert.False(t, res.Notified)
	assert.ErrorIs(t, res.Warning, ErrNotifier)
	assert.ErrorContains(t, res.Warning, "carrier unreachable")

	stored, err := s.GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCompleted, stored.Status)
	assert.True(t, stored.CompletionCallTriggered)

	// No retry of the failed call on a later update.
	advance(t, m, b.ID, model.BookingStatusCompleted)
	assert.Equal(t, int32(1), n.calls.Load())
}

func TestStateMachine_UndeliveredIsNotAWarning(t *testing.T) {
	s := newTestStore(t)
	n := &fakeNotifier{delivered: false}
	m := NewStateMachine(s, n, zap.NewNop(), Options{})
	b := createBooking(t, s, model.BookingStatusInProgress)

	res := advance(t, m, b.ID, model.BookingStatusCompleted)
	assert.False(t, res.Notified)
	assert.NoError(t, res.Warning)
	assert.True(t, res.Booking.CompletionCallTriggered)
}

func TestStateMachine_NotesOverwrite(t *testing.T) {
	s := newTestStore(t)
	m := NewStateMachine(s, nil, zap.NewNop(), Options{})
	b := createBooking(t, s, model.BookingStatusPending)
	ctx := context.Background()

	first := "waiting on parts"
	_, err := m.UpdateStatus(ctx, b.ID, model.BookingStatusConfirmed, &first)
	require.NoError(t, err)

	second := "parts arrived"
	res, err := m.UpdateStatus(ctx, b.ID, model.BookingStatusInProgress, &second)
	require.NoError(t, err)
	require.NotNil(t, res.Booking.TechnicianNotes)
	assert.Equal(t, second, *res.Booking.TechnicianNotes)

	// Omitted notes leave the stored value alone.
	_, err = m.UpdateStatus(ctx, b.ID, model.BookingStatusInProgress, nil)
	require.NoError(t, err)
	stored, err := s.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.TechnicianNotes)
	assert.Equal(t, second, *stored.TechnicianNotes)
}

func TestStateMachine_CancelReleasesSlot(t *testing.T) {
	s := newTestStore(t)
	a := NewAllocator(s, zap.NewNop())
	m := NewStateMachine(s, &fakeNotifier{}, zap.NewNop(), Options{})
	ctx := context.Background()

	slot, err := a.CreateSlot(ctx, "2025-06-02", "09:00", "10:00", 1)
	require.NoError(t, err)
	b := createBooking(t, s, model.BookingStatusPending)
	ok, err := a.Reserve(ctx, slot.ID, b.ID)
	require.NoError(t, err)
	require.True(t, ok)

	res := advance(t, m, b.ID, model.BookingStatusConfirmed, model.BookingStatusCancelled)
	assert.Equal(t, model.BookingStatusCancelled, res.Booking.Status)
	assert.NotNil(t, res.Booking.CancelledAt)
	assert.Nil(t, res.Booking.TimeSlotID)

	got, err := s.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CurrentBookings)
	assert.True(t, got.IsAvailable)

	// Re-cancelling does not release a second time.
	other := createBooking(t, s, model.BookingStatusPending)
	ok, err = a.Reserve(ctx, slot.ID, other.ID)
	require.NoError(t, err)
	require.True(t, ok)
	advance(t, m, b.ID, model.BookingStatusCancelled)
	got, err = s.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentBookings)
}

func TestStateMachine_PermissiveNeverResetsFlag(t *testing.T) {
	s := newTestStore(t)
	n := &fakeNotifier{delivered: true}
	m := NewStateMachine(s, n, zap.NewNop(), Options{AllowAnyTransition: true})
	b := createBooking(t, s, model.BookingStatusPending)

	done := advance(t, m, b.ID, model.BookingStatusCompleted)
	assert.True(t, done.Notified)

	reopened := advance(t, m, b.ID, model.BookingStatusPending)
	assert.Equal(t, model.BookingStatusPending, reopened.Booking.Status)
	assert.True(t, reopened.Booking.CompletionCallTriggered)

	again := advance(t, m, b.ID, model.BookingStatusCompleted)
	assert.False(t, again.Notified)
	assert.Equal(t, int32(1), n.calls.Load())
	assert.True(t, done.Booking.ActualCompletion.Equal(*again.Booking.ActualCompletion))
}

func TestStateMachine_GivesUpAfterMaxAttempts(t *testing.T) {
	base := newTestStore(t)
	b := createBooking(t, base, model.BookingStatusPending)
	s := &staleStore{Store: base}
	m := NewStateMachine(s, nil, zap.NewNop(), Options{MaxAttempts: 4})

	_, err := m.UpdateStatus(context.Background(), b.ID, model.BookingStatusConfirmed, nil)
	assert.ErrorIs(t, err, ErrConcurrentUpdate)
	assert.Equal(t, int32(4), s.attempts.Load())
}
