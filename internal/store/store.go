package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"service-booking-backend/internal/model"
)

// Store defines the interface for all database operations of the booking core.
type Store interface {
	CreateSlot(ctx context.Context, slot *model.TimeSlot) error
	CreateSlots(ctx context.Context, slots []model.TimeSlot) ([]model.TimeSlot, error)
	GetSlot(ctx context.Context, id uuid.UUID) (*model.TimeSlot, error)
	ListAvailableSlots(ctx context.Context, date string) ([]model.TimeSlot, error)
	ListSlotsInRange(ctx context.Context, from, to string) ([]model.TimeSlot, error)
	ReserveSlot(ctx context.Context, slotID, bookingID uuid.UUID) (bool, error)
	ReleaseSlot(ctx context.Context, slotID uuid.UUID) error
	ReleaseBookingSlot(ctx context.Context, bookingID uuid.UUID) (bool, error)

	CreateBooking(ctx context.Context, booking *model.Booking) error
	GetBooking(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	ApplyTransition(ctx context.Context, t Transition) (bool, error)

	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	ListPushSubscriptions(ctx context.Context, userID uuid.UUID) ([]model.PushSubscription, error)
	GetPushSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	SavePushSubscription(ctx context.Context, sub *model.PushSubscription) error
	DeletePushSubscription(ctx context.Context, endpoint string) error

	Ping(ctx context.Context) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Ping checks that the underlying connection pool can reach the database.
func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
