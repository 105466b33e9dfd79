package expiry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestDate(t *testing.T) {
	start := date(2024, time.January, 20)

	t.Run("nil start is undefined", func(t *testing.T) {
		assert.Nil(t, Date(nil, 30))
	})

	t.Run("zero duration is undefined", func(t *testing.T) {
		assert.Nil(t, Date(&start, 0))
	})

	t.Run("negative duration is undefined", func(t *testing.T) {
		assert.Nil(t, Date(&start, -5))
	})

	t.Run("thirty days", func(t *testing.T) {
		got := Date(&start, 30)
		require.NotNil(t, got)
		assert.Equal(t, date(2024, time.February, 19), *got)
	})

	t.Run("month boundary crossing", func(t *testing.T) {
		// Jan 20 + 15 days = Feb 4
		got := Date(&start, 15)
		require.NotNil(t, got)
		assert.Equal(t, date(2024, time.February, 4), *got)
	})
}

func TestDaysRemaining(t *testing.T) {
	today := date(2024, time.March, 10)

	tests := []struct {
		name     string
		expiry   time.Time
		expected int
	}{
		{"same day", date(2024, time.March, 10), 0},
		{"same day with time of day", time.Date(2024, time.March, 10, 23, 30, 0, 0, time.Local), 0},
		{"tomorrow", date(2024, time.March, 11), 1},
		{"next week", date(2024, time.March, 17), 7},
		{"three days overdue", date(2024, time.March, 7), -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DaysRemaining(tt.expiry, today))
		})
	}
}

func TestCountdown(t *testing.T) {
	today := date(2024, time.March, 10)

	t.Run("nil expiry", func(t *testing.T) {
		assert.Equal(t, "N/A", Countdown(nil, today))
	})

	tests := []struct {
		name     string
		expiry   time.Time
		expected string
	}{
		{"one day left is singular", date(2024, time.March, 11), "expires in 1 day"},
		{"several days left", date(2024, time.March, 15), "expires in 5 days"},
		{"expires today", date(2024, time.March, 10), "expires today"},
		{"one day overdue is singular", date(2024, time.March, 9), "expired 1 day ago"},
		{"three days overdue", date(2024, time.March, 7), "expired 3 days ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := tt.expiry
			assert.Equal(t, tt.expected, Countdown(&e, today))
		})
	}
}

func TestWindowContains(t *testing.T) {
	today := date(2024, time.March, 10)
	w := DefaultWindow // 10 ahead, 7 overdue

	contains := func(d time.Time) bool {
		return w.Contains(&d, today)
	}

	assert.True(t, contains(date(2024, time.March, 10)), "expiring today is inside")
	assert.True(t, contains(date(2024, time.March, 20)), "ten days ahead is inside")
	assert.False(t, contains(date(2024, time.March, 21)), "eleven days ahead is outside")
	assert.True(t, contains(date(2024, time.March, 3)), "seven days overdue is inside")
	assert.False(t, contains(date(2024, time.March, 2)), "eight days overdue is outside")
	assert.False(t, w.Contains(nil, today), "undefined expiry is never inside")

	strict := Window{AheadDays: 10, OverdueDays: 0}
	assert.False(t, strict.Contains(ptr(date(2024, time.March, 9)), today), "strict window excludes overdue")
	assert.True(t, strict.Contains(ptr(date(2024, time.March, 10)), today))
}

func ptr(t time.Time) *time.Time { return &t }
