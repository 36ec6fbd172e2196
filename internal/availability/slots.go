package availability

import (
	"math"
	"time"

	"github.com/teemow/apptdesk/internal/calendar"
)

// SlotStep is the spacing between candidate slot starts in EnumerateSlots.
const SlotStep = 30 * time.Minute

// maxDurationMinutes is the longest duration a time.Duration can hold.
const maxDurationMinutes = math.MaxInt64 / int64(time.Minute)

// slotDuration converts a positive number of minutes into a time.Duration.
func slotDuration(durationMinutes int) (time.Duration, error) {
	if durationMinutes <= 0 {
		return 0, &calendar.ValidationError{Field: "duration", Reason: "must be a positive number of minutes"}
	}
	if int64(durationMinutes) > maxDurationMinutes {
		return 0, &calendar.ValidationError{Field: "duration", Reason: "is too large"}
	}
	return time.Duration(durationMinutes) * time.Minute, nil
}

// Slot is a free period of DurationMinutes starting at Start.
type Slot struct {
	Start           time.Time
	DurationMinutes int
}

// End returns the end of the slot.
func (s Slot) End() time.Time {
	return s.Start.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// EnumerateSlots returns every slot of durationMinutes inside window that
// starts on a 30-minute step from window.Start and does not overlap any busy
// interval. A slot is offered only if it ends at or before window.End.
//
// Busy intervals may be unsorted or overlapping; each candidate is checked
// against all of them. The result is in chronological order and may be empty.
func EnumerateSlots(window calendar.TimeWindow, durationMinutes int, busy []calendar.EventInterval) ([]Slot, error) {
	duration, err := slotDuration(durationMinutes)
	if err != nil {
		return nil, err
	}
	if err := window.Validate(); err != nil {
		return nil, err
	}

	slots := []Slot{}

	for step := window.Start; ; step = step.Add(SlotStep) {
		slotEnd := step.Add(duration)
		if slotEnd.After(window.End) {
			break
		}
		if isFree(step, slotEnd, busy) {
			slots = append(slots, Slot{Start: step, DurationMinutes: durationMinutes})
		}
	}

	return slots, nil
}

// isFree reports whether [start, end) overlaps none of the busy intervals.
func isFree(start, end time.Time, busy []calendar.EventInterval) bool {
	candidate := calendar.TimeWindow{Start: start, End: end}
	for _, b := range busy {
		if candidate.Overlaps(b.Start, b.End) {
			return false
		}
	}
	return true
}
