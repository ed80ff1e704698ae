// Package schedule turns a day-range template into concrete time slots.
package schedule

import (
	"errors"
	"fmt"

	"service-booking-backend/internal/model"
	"service-booking-backend/internal/parse"
)

// ErrInvalidRange is returned for templates that describe no valid window.
var ErrInvalidRange = errors.New("invalid range")

// Template describes identical slots repeated on every day of a range.
type Template struct {
	StartDate           string `json:"startDate"`
	EndDate             string `json:"endDate"`
	StartTime           string `json:"startTime"`
	EndTime             string `json:"endTime"`
	SlotDurationMinutes int    `json:"slotDurationMinutes"`
	MaxCapacity         int    `json:"maxCapacity"`
}

// Expand lists the slots a template describes, day by day and in start time
// order. A slot that would run past EndTime is dropped, so 09:00-09:45 in
// 30 minute steps yields only 09:00-09:30.
func Expand(tpl Template) ([]model.TimeSlot, error) {
	from, err := parse.ParseDate(tpl.StartDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	to, err := parse.ParseDate(tpl.EndDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	if from.After(to) {
		return nil, fmt.Errorf("%w: start date %s is after end date %s", ErrInvalidRange, tpl.StartDate, tpl.EndDate)
	}

	open, err := parse.ParseClock(tpl.StartTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	closing, err := parse.ParseClock(tpl.EndTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	if open >= closing {
		return nil, fmt.Errorf("%w: start time %s is not before end time %s", ErrInvalidRange, tpl.StartTime, tpl.EndTime)
	}
	if tpl.SlotDurationMinutes <= 0 {
		return nil, fmt.Errorf("%w: slot duration must be positive, got %d", ErrInvalidRange, tpl.SlotDurationMinutes)
	}
	if tpl.MaxCapacity < 1 {
		return nil, fmt.Errorf("%w: capacity must be at least 1, got %d", ErrInvalidRange, tpl.MaxCapacity)
	}

	var slots []model.TimeSlot
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		date := parse.FormatDate(day)
		// compare against the minutes left so very long durations cannot overflow
		for start := open; int(closing-start) >= tpl.SlotDurationMinutes; start = start.Add(tpl.SlotDurationMinutes) {
			slots = append(slots, model.TimeSlot{
				Date:        date,
				StartTime:   start.String(),
				EndTime:     start.Add(tpl.SlotDurationMinutes).String(),
				MaxCapacity: tpl.MaxCapacity,
				IsAvailable: true,
			})
		}
	}
	return slots, nil
}
