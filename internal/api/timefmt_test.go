package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatChatTime(t *testing.T) {
	// a Thursday afternoon
	now := time.Date(2025, time.June, 12, 15, 30, 0, 0, time.Local)

	tt := []struct {
		name     string
		at       time.Time
		expected string
	}{
		{
			name:     "earlier today shows the clock time",
			at:       time.Date(2025, time.June, 12, 9, 5, 0, 0, time.Local),
			expected: "09:05",
		},
		{
			name:     "yesterday",
			at:       time.Date(2025, time.June, 11, 23, 59, 0, 0, time.Local),
			expected: "yesterday",
		},
		{
			name:     "three days ago shows the weekday",
			at:       time.Date(2025, time.June, 9, 12, 0, 0, 0, time.Local),
			expected: "Mon",
		},
		{
			name:     "six days ago shows the weekday",
			at:       time.Date(2025, time.June, 6, 12, 0, 0, 0, time.Local),
			expected: "Fri",
		},
		{
			name:     "a week ago shows the date",
			at:       time.Date(2025, time.June, 5, 12, 0, 0, 0, time.Local),
			expected: "05.06.2025",
		},
		{
			name:     "zero time renders empty",
			at:       time.Time{},
			expected: "",
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, formatChatTime(tc.at, now))
		})
	}
}
