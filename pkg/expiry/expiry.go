// Package expiry derives pricing-plan expiry dates and countdown messages.
// Expiry is never stored; it is always computed from the plan's creation date
// and duration. Callers capture "today" once per request and pass it through
// so every record in a response is compared against the same reference day.
package expiry

import (
	"fmt"
	"math"
	"time"

	"github.com/jinzhu/now"
)

// NA is the display fallback for an undefined expiry.
const NA = "N/A"

// Date computes start + days calendar days. A nil start or non-positive
// duration yields nil (undefined expiry).
func Date(start *time.Time, days int) *time.Time {
	if start == nil || days <= 0 {
		return nil
	}
	d := start.AddDate(0, 0, days)
	return &d
}

// DaysRemaining returns the whole days between today-at-midnight and the
// expiry's calendar day. Positive means the plan is still running, zero means
// it expires today, negative means it is overdue.
func DaysRemaining(expiry time.Time, today time.Time) int {
	startOfToday := now.New(today).BeginningOfDay()
	startOfExpiry := now.New(expiry).BeginningOfDay()
	// Round instead of truncate so a DST-shortened day still counts as one day.
	return int(math.Round(startOfExpiry.Sub(startOfToday).Hours() / 24))
}

// Countdown renders the human-readable expiry message for an expiry date.
func Countdown(expiry *time.Time, today time.Time) string {
	if expiry == nil {
		return NA
	}

	days := DaysRemaining(*expiry, today)
	switch {
	case days > 0:
		return fmt.Sprintf("expires in %d %s", days, plural(days))
	case days == 0:
		return "expires today"
	default:
		overdue := -days
		return fmt.Sprintf("expired %d %s ago", overdue, plural(overdue))
	}
}

func plural(n int) string {
	if n == 1 {
		return "day"
	}
	return "days"
}

// Window bounds how far ahead and how far overdue an expiry may be to count
// as "expiring". Both bounds are inclusive.
type Window struct {
	AheadDays   int
	OverdueDays int
}

// DefaultWindow is the reconciled policy for the expiring view: ten days of
// runway ahead, seven days of grace behind.
var DefaultWindow = Window{AheadDays: 10, OverdueDays: 7}

// Contains reports whether the expiry falls inside the window relative to
// today. A nil expiry is never inside any window.
func (w Window) Contains(expiry *time.Time, today time.Time) bool {
	if expiry == nil {
		return false
	}
	days := DaysRemaining(*expiry, today)
	return days <= w.AheadDays && days >= -w.OverdueDays
}
