package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Layouts used for the day and wall-clock columns of a time slot.
const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// TimeSlot is a bookable window on a single calendar day.
//
// CurrentBookings and IsAvailable are only written by the store's reserve and
// release operations; IsAvailable always equals CurrentBookings < MaxCapacity.
type TimeSlot struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Date            string     `gorm:"size:10;not null;uniqueIndex:idx_time_slots_window,priority:1;index" json:"date"`
	StartTime       string     `gorm:"size:5;not null;uniqueIndex:idx_time_slots_window,priority:2" json:"startTime"`
	EndTime         string     `gorm:"size:5;not null;uniqueIndex:idx_time_slots_window,priority:3" json:"endTime"`
	MaxCapacity     int        `gorm:"not null;default:1" json:"maxCapacity"`
	CurrentBookings int        `gorm:"not null;default:0" json:"currentBookings"`
	IsAvailable     bool       `gorm:"not null;default:true;index" json:"isAvailable"`
	BookedBy        *uuid.UUID `gorm:"type:uuid" json:"bookedBy,omitempty"`
	CreatedAt       time.Time  `gorm:"not null" json:"createdAt"`
	UpdatedAt       time.Time  `gorm:"not null" json:"updatedAt"`
}

// BeforeCreate assigns an ID so inserts do not depend on a database-side generator.
func (s *TimeSlot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
