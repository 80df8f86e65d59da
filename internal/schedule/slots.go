package schedule

import "time"

// Generator produces bookable start times for a service request against
// a mechanic's existing commitments.
type Generator struct {
	cal Calendar
}

// NewGenerator creates a slot generator over the given calendar.
func NewGenerator(cal Calendar) *Generator {
	return &Generator{cal: cal}
}

// Slots returns every start time on date where an appointment of the
// given duration fits inside the business window without overlapping
// any busy interval. Results are in ascending order. The function is a
// pure function of its inputs and safe to call repeatedly.
func (g *Generator) Slots(date time.Time, duration time.Duration, busy []Interval) []time.Time {
	if duration <= 0 {
		return nil
	}
	window, ok := g.cal.BusinessWindow(date)
	if !ok {
		return nil
	}

	var starts []time.Time
	for cursor := window.Start; cursor.Before(window.End); cursor = cursor.Add(g.cal.SlotGranularity) {
		candidate := Interval{Start: cursor, End: cursor.Add(duration)}
		if candidate.End.After(window.End) {
			// Every later candidate ends even later; nothing more fits.
			break
		}
		if overlapsAny(candidate, busy) {
			continue
		}
		starts = append(starts, cursor)
	}
	return starts
}

func overlapsAny(candidate Interval, busy []Interval) bool {
	for _, b := range busy {
		if Overlaps(candidate, b) {
			return true
		}
	}
	return false
}
