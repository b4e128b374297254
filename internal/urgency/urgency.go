// Package urgency turns a due date into the "days left" badge shown in the dashboard header.
package urgency

import (
	"fmt"
	"math"
	"time"
)

// Threshold is the largest number of remaining days that still counts as urgent.
const Threshold = 7

const day = 24 * time.Hour

// Clock supplies the current instant. Nothing in this package reads the wall clock directly.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always reports the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

// DaysRemaining is ceil((due - now) / 1 day). Past due dates give negative values.
func DaysRemaining(due, now time.Time) int {
	return int(math.Ceil(float64(due.Sub(now)) / float64(day)))
}

// IsUrgent reports whether days is at or under Threshold, overdue included.
func IsUrgent(days int) bool {
	return days <= Threshold
}

// Signal is the evaluated urgency of one due date.
type Signal struct {
	Due    time.Time
	Days   int
	Urgent bool
}

// Evaluate computes the signal for due at the clock's current instant.
func Evaluate(due time.Time, c Clock) Signal {
	return At(due, c.Now())
}

// At computes the signal for due at now.
func At(due, now time.Time) Signal {
	days := DaysRemaining(due, now)
	return Signal{Due: due, Days: days, Urgent: IsUrgent(days)}
}

// Overdue reports whether the due date has passed.
func (s Signal) Overdue() bool {
	return s.Days < 0
}

// Label renders the header text for the signal.
func (s Signal) Label() string {
	switch {
	case s.Days == 0:
		return "Due today"
	case s.Days == 1:
		return "Due in 1 day"
	case s.Days == -1:
		return "Overdue by 1 day"
	case s.Days < 0:
		return fmt.Sprintf("Overdue by %d days", -s.Days)
	}
	return fmt.Sprintf("Due in %d days", s.Days)
}
