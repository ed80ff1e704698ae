package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusInProgress,
		BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition may leave s.
func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

// Booking is a customer's appointment for a vehicle service.
type Booking struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"userId"`
	VehicleID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"vehicleId"`
	ServiceID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"serviceId"`
	TimeSlotID *uuid.UUID `gorm:"type:uuid;index" json:"timeSlotId,omitempty"`

	Status BookingStatus `gorm:"type:varchar(32);not null;default:'pending';index" json:"status"`

	ScheduledDate       time.Time  `gorm:"not null" json:"scheduledDate"`
	EstimatedCompletion *time.Time `json:"estimatedCompletion,omitempty"`
	ActualCompletion    *time.Time `json:"actualCompletion,omitempty"`
	CancelledAt         *time.Time `json:"cancelledAt,omitempty"`

	// Set together with the transition into completed; never reset.
	CompletionCallTriggered bool    `gorm:"not null;default:false" json:"completionCallTriggered"`
	TechnicianNotes         *string `gorm:"type:text" json:"technicianNotes,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Status == "" {
		b.Status = BookingStatusPending
	}
	return nil
}
