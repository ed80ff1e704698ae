package schedule

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func windows(t *testing.T, tpl Template) []string {
	t.Helper()
	slots, err := Expand(tpl)
	require.NoError(t, err)
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Date+" "+s.StartTime+"-"+s.EndTime)
	}
	return out
}

func TestExpand(t *testing.T) {
	testCases := []struct {
		name     string
		tpl      Template
		expected []string
	}{
		{
			name: "exact fit",
			tpl:  Template{StartDate: "2025-06-02", EndDate: "2025-06-02", StartTime: "09:00", EndTime: "10:00", SlotDurationMinutes: 30, MaxCapacity: 1},
			expected: []string{
				"2025-06-02 09:00-09:30",
				"2025-06-02 09:30-10:00",
			},
		},
		{
			name:     "overrunning slot is dropped",
			tpl:      Template{StartDate: "2025-06-02", EndDate: "2025-06-02", StartTime: "09:00", EndTime: "09:45", SlotDurationMinutes: 30, MaxCapacity: 1},
			expected: []string{"2025-06-02 09:00-09:30"},
		},
		{
			name:     "duration longer than the day",
			tpl:      Template{StartDate: "2025-06-02", EndDate: "2025-06-02", StartTime: "09:00", EndTime: "09:20", SlotDurationMinutes: 30, MaxCapacity: 1},
			expected: []string{},
		},
		{
			name:     "duration too large to add to a clock",
			tpl:      Template{StartDate: "2025-06-02", EndDate: "2025-06-02", StartTime: "09:00", EndTime: "10:00", SlotDurationMinutes: math.MaxInt, MaxCapacity: 1},
			expected: []string{},
		},
		{
			name: "every day in range, month boundary",
			tpl:  Template{StartDate: "2025-01-31", EndDate: "2025-02-01", StartTime: "8:00", EndTime: "09:00", SlotDurationMinutes: 60, MaxCapacity: 3},
			expected: []string{
				"2025-01-31 08:00-09:00",
				"2025-02-01 08:00-09:00",
			},
		},
		{
			name: "runs up to the last minute of the day",
			tpl:  Template{StartDate: "2025-06-02", EndDate: "2025-06-02", StartTime: "22:59", EndTime: "23:59", SlotDurationMinutes: 30, MaxCapacity: 1},
			expected: []string{
				"2025-06-02 22:59-23:29",
				"2025-06-02 23:29-23:59",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, windows(t, tc.tpl))
		})
	}
}

func TestExpand_SlotFields(t *testing.T) {
	slots, err := Expand(Template{StartDate: "2025-06-02", EndDate: "2025-06-03", StartTime: "09:00", EndTime: "12:00", SlotDurationMinutes: 45, MaxCapacity: 4})
	require.NoError(t, err)

	// 09:00 09:45 10:30 11:15 per day; 12:00 would overrun.
	require.Len(t, slots, 8)
	for _, s := range slots {
		assert.Equal(t, 4, s.MaxCapacity)
		assert.Equal(t, 0, s.CurrentBookings)
		assert.True(t, s.IsAvailable)
		assert.Less(t, s.StartTime, s.EndTime)
		assert.LessOrEqual(t, s.EndTime, "12:00")
	}
}

func TestExpand_InvalidRange(t *testing.T) {
	valid := Template{StartDate: "2025-06-02", EndDate: "2025-06-03", StartTime: "09:00", EndTime: "10:00", SlotDurationMinutes: 30, MaxCapacity: 1}

	testCases := []struct {
		name   string
		mutate func(*Template)
	}{
		{"start date after end date", func(t *Template) { t.StartDate = "2025-06-04" }},
		{"start time equals end time", func(t *Template) { t.EndTime = "09:00" }},
		{"start time after end time", func(t *Template) { t.StartTime = "11:00" }},
		{"zero duration", func(t *Template) { t.SlotDurationMinutes = 0 }},
		{"negative duration", func(t *Template) { t.SlotDurationMinutes = -15 }},
		{"zero capacity", func(t *Template) { t.MaxCapacity = 0 }},
		{"malformed date", func(t *Template) { t.EndDate = "06/03/2025" }},
		{"malformed time", func(t *Template) { t.StartTime = "25:00" }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tpl := valid
			tc.mutate(&tpl)
			_, err := Expand(tpl)
			assert.ErrorIs(t, err, ErrInvalidRange)
		})
	}
}
