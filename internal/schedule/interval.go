package schedule

import (
	"fmt"
	"time"
)

// Interval is a half-open time range [Start, End). Two intervals that
// share only a boundary point do not overlap.
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval builds an interval, rejecting empty or inverted ranges.
func NewInterval(start, end time.Time) (Interval, error) {
	if !start.Before(end) {
		return Interval{}, fmt.Errorf("interval start %s must be before end %s",
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return Interval{Start: start, End: end}, nil
}

// Overlaps reports whether a and b share at least one instant.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// ContainedIn reports whether a lies entirely inside window.
func ContainedIn(a, window Interval) bool {
	return !a.Start.Before(window.Start) && !a.End.After(window.End)
}

// Duration returns the length of the interval.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

func (i Interval) String() string {
	return i.Start.Format("15:04") + "-" + i.End.Format("15:04")
}
