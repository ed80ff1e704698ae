package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"service-booking-backend/internal/dbtest"
	"service-booking-backend/internal/model"
	"service-booking-backend/internal/store"
)

type fakeCaller struct {
	dialled []string
	err     error
}

func (f *fakeCaller) PlaceCall(_ context.Context, to string) (string, error) {
	f.dialled = append(f.dialled, to)
	if f.err != nil {
		return "", f.err
	}
	return "CA123", nil
}

func TestNormalizePhone(t *testing.T) {
	testCases := []struct {
		raw      string
		region   string
		expected string
		wantErr  bool
	}{
		{raw: "+16502530000", expected: "+16502530000"},
		{raw: " +1 (650) 253-0000 ", expected: "+16502530000"},
		{raw: "0044 20 7031 3000", expected: "+442070313000"},
		{raw: "(650) 253-0000", region: "US", expected: "+16502530000"},
		{raw: "020 7031 3000", region: "gb", expected: "+442070313000"},
		{raw: "+44 20 7031 3000", region: "US", expected: "+442070313000"},
		{raw: "6502530000", wantErr: true},
		{raw: "+1 555 123 4567", wantErr: true},
		{raw: "+0123456789", wantErr: true},
		{raw: "+1650", wantErr: true},
		{raw: "call me maybe", region: "US", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.raw+"/"+tc.region, func(t *testing.T) {
			got, err := NormalizePhone(tc.raw, tc.region)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrNoContact)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestVoiceNotifier_NotifyCompletion(t *testing.T) {
	gormDB := dbtest.Open(t)
	s := store.NewGormStore(gormDB)

	reachable := model.User{ID: uuid.New(), FullName: "Ada", Phone: "(650) 253-0000"}
	noPhone := model.User{ID: uuid.New(), FullName: "Bo"}
	badPhone := model.User{ID: uuid.New(), FullName: "Cy", Phone: "call me maybe"}
	require.NoError(t, gormDB.Create(&[]model.User{reachable, noPhone, badPhone}).Error)

	ctx := context.Background()

	t.Run("places call to normalised number", func(t *testing.T) {
		caller := &fakeCaller{}
		v := NewVoiceNotifier(s, caller, "US", zap.NewNop())

		delivered, err := v.NotifyCompletion(ctx, model.Booking{ID: uuid.New(), UserID: reachable.ID})
		require.NoError(t, err)
		assert.True(t, delivered)
		assert.Equal(t, []string{"+16502530000"}, caller.dialled)
	})

	for name, userID := range map[string]uuid.UUID{
		"missing user":  uuid.New(),
		"no phone":      noPhone.ID,
		"invalid phone": badPhone.ID,
	} {
		t.Run(name, func(t *testing.T) {
			caller := &fakeCaller{}
			v := NewVoiceNotifier(s, caller, "US", zap.NewNop())

			delivered, err := v.NotifyCompletion(ctx, model.Booking{ID: uuid.New(), UserID: userID})
			assert.ErrorIs(t, err, ErrNoContact)
			assert.False(t, delivered)
			assert.Empty(t, caller.dialled, "nothing is dialled without a valid number")
		})
	}

	t.Run("call failure", func(t *testing.T) {
		caller := &fakeCaller{err: errors.New("busy")}
		v := NewVoiceNotifier(s, caller, "US", zap.NewNop())

		delivered, err := v.NotifyCompletion(ctx, model.Booking{ID: uuid.New(), UserID: reachable.ID})
		assert.ErrorContains(t, err, "busy")
		assert.False(t, delivered)
	})
}

func TestCompletion_PushThenVoice(t *testing.T) {
	gormDB := dbtest.Open(t)
	s := store.NewGormStore(gormDB)
	user := model.User{ID: uuid.New(), Phone: "+16502530000"}
	require.NoError(t, gormDB.Create(&user).Error)

	// Pool is not started so the job stays queued for inspection.
	pool := NewWorkerPool(1, s, nil, zap.NewNop())
	caller := &fakeCaller{}
	c := NewCompletion(pool, NewVoiceNotifier(s, caller, "US", zap.NewNop()))

	b := model.Booking{ID: uuid.New(), UserID: user.ID}
	delivered, err := c.NotifyCompletion(context.Background(), b)
	require.NoError(t, err)
	assert.True(t, delivered)
	assert.Len(t, caller.dialled, 1)

	require.Len(t, pool.jobs, 1)
	assert.Equal(t, Job{BookingID: b.ID, UserID: user.ID}, <-pool.jobs)

	pushOnly := NewCompletion(pool, nil)
	delivered, err = pushOnly.NotifyCompletion(context.Background(), b)
	assert.NoError(t, err)
	assert.False(t, delivered)
}
