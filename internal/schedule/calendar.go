package schedule

import (
	"fmt"
	"time"
)

// Calendar encodes the shop's business hours: open/close times, working
// weekdays and the slot step used when offering appointment start times.
// It is loaded once at startup and never mutated; all methods are pure.
type Calendar struct {
	OpenHour        int
	CloseHour       int
	WorkingWeekdays map[time.Weekday]bool
	SlotGranularity time.Duration
}

// NewCalendar builds and validates a calendar. weekdays uses time.Weekday
// values (Sunday = 0).
func NewCalendar(openHour, closeHour int, weekdays []time.Weekday, granularity time.Duration) (Calendar, error) {
	working := make(map[time.Weekday]bool, len(weekdays))
	for _, d := range weekdays {
		working[d] = true
	}
	cal := Calendar{
		OpenHour:        openHour,
		CloseHour:       closeHour,
		WorkingWeekdays: working,
		SlotGranularity: granularity,
	}
	if err := cal.Validate(); err != nil {
		return Calendar{}, err
	}
	return cal, nil
}

// Validate checks the configuration for nonsense values. A calendar
// that fails validation must not be used; callers treat this as fatal.
func (c Calendar) Validate() error {
	if c.OpenHour < 0 || c.OpenHour > 23 {
		return fmt.Errorf("open hour %d out of range", c.OpenHour)
	}
	if c.CloseHour < 1 || c.CloseHour > 24 {
		return fmt.Errorf("close hour %d out of range", c.CloseHour)
	}
	if c.OpenHour >= c.CloseHour {
		return fmt.Errorf("open hour %d must be before close hour %d", c.OpenHour, c.CloseHour)
	}
	if c.SlotGranularity < time.Minute {
		return fmt.Errorf("slot granularity %s too small", c.SlotGranularity)
	}
	if len(c.WorkingWeekdays) == 0 {
		return fmt.Errorf("no working weekdays configured")
	}
	for d := range c.WorkingWeekdays {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("invalid weekday %d", d)
		}
	}
	return nil
}

// IsWorkingDay reports whether the shop is open on the given date.
func (c Calendar) IsWorkingDay(date time.Time) bool {
	return c.WorkingWeekdays[date.Weekday()]
}

// BusinessWindow returns the open-to-close interval for date. The
// second return value is false when the shop is closed that day.
func (c Calendar) BusinessWindow(date time.Time) (Interval, bool) {
	if !c.IsWorkingDay(date) {
		return Interval{}, false
	}
	open := time.Date(date.Year(), date.Month(), date.Day(), c.OpenHour, 0, 0, 0, date.Location())
	return Interval{Start: open, End: open.Add(time.Duration(c.CloseHour-c.OpenHour) * time.Hour)}, true
}
