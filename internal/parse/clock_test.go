package parse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseClock(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  Clock
		expectErr bool
	}{
		{name: "Morning", raw: "09:00", expected: 9 * 60},
		{name: "Single digit hour", raw: "9:05", expected: 9*60 + 5},
		{name: "Last minute of day", raw: "23:59", expected: 23*60 + 59},
		{name: "Midnight", raw: "00:00", expected: 0},
		{name: "Surrounding spaces", raw: " 14:30 ", expected: 14*60 + 30},
		{name: "Hour out of range", raw: "24:00", expectErr: true},
		{name: "Minute out of range", raw: "10:60", expectErr: true},
		{name: "Seconds not allowed", raw: "10:00:00", expectErr: true},
		{name: "Empty", raw: "", expectErr: true},
		{name: "Garbage", raw: "noon", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := ParseClock(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, c)
		})
	}
}

func TestClock_String(t *testing.T) {
	assert.Equal(t, "09:05", Clock(9*60+5).String())
	assert.Equal(t, "00:00", Clock(0).String())
	assert.Equal(t, "10:00", Clock(9*60+30).Add(30).String())
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-09")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), d)
	assert.Equal(t, "2025-03-09", FormatDate(d))

	_, err = ParseDate("09.03.2025")
	assert.Error(t, err)
	_, err = ParseDate("2025-02-30")
	assert.Error(t, err)
}
