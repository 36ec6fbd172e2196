package calendar

import (
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

const dateLayout = "2006-01-02"

// TimeWindow is a half-open interval [Start, End).
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Validate checks that the window is not empty.
func (w TimeWindow) Validate() error {
	if w.Start.IsZero() {
		return &ValidationError{Field: "start", Reason: "is required"}
	}
	if w.End.IsZero() {
		return &ValidationError{Field: "end", Reason: "is required"}
	}
	if !w.Start.Before(w.End) {
		return &ValidationError{Field: "end", Reason: "must be after start"}
	}
	return nil
}

// Duration returns the length of the window.
func (w TimeWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Overlaps reports whether the window intersects [start, end).
// Intervals that only touch at an endpoint do not overlap.
func (w TimeWindow) Overlaps(start, end time.Time) bool {
	return w.Start.Before(end) && w.End.After(start)
}

// EventInterval is a busy period read from the calendar.
type EventInterval struct {
	ID    string
	Title string
	Start time.Time
	End   time.Time
}

// Window returns the interval as a TimeWindow.
func (e EventInterval) Window() TimeWindow {
	return TimeWindow{Start: e.Start, End: e.End}
}

// Attendee is a guest on an event
type Attendee struct {
	Email          string
	DisplayName    string
	ResponseStatus string // "needsAction", "declined", "tentative", "accepted"
}

// Event is the full view of a single appointment.
type Event struct {
	EventInterval
	Description string
	Status      string
	Attendees   []Attendee
}

// AppointmentInput is the request to create a new event.
type AppointmentInput struct {
	Summary       string
	Description   string
	Start         time.Time
	End           time.Time
	TimeZone      string // IANA name, defaults to UTC
	AttendeeEmail string
	AttendeeName  string
}

// Validate checks the fields required to insert an event.
func (in AppointmentInput) Validate() error {
	if in.Summary == "" {
		return &ValidationError{Field: "summary", Reason: "is required"}
	}
	return TimeWindow{Start: in.Start, End: in.End}.Validate()
}

// toEventInterval converts a Google Calendar event to an EventInterval.
// All-day events span whole days in loc. Events without a usable start are
// reported as ok == false.
func toEventInterval(event *calendar.Event, loc *time.Location) (EventInterval, bool) {
	if event == nil {
		return EventInterval{}, false
	}

	start, ok := parseEventTime(event.Start, loc)
	if !ok {
		return EventInterval{}, false
	}
	end, ok := parseEventTime(event.End, loc)
	if !ok {
		end = start
	}

	return EventInterval{
		ID:    event.Id,
		Title: event.Summary,
		Start: start,
		End:   end,
	}, true
}

// toEvent converts a Google Calendar event to the full Event view.
func toEvent(event *calendar.Event, loc *time.Location) (*Event, bool) {
	interval, ok := toEventInterval(event, loc)
	if !ok {
		return nil, false
	}

	out := &Event{
		EventInterval: interval,
		Description:   event.Description,
		Status:        event.Status,
	}
	for _, att := range event.Attendees {
		out.Attendees = append(out.Attendees, Attendee{
			Email:          att.Email,
			DisplayName:    att.DisplayName,
			ResponseStatus: att.ResponseStatus,
		})
	}
	return out, true
}

func parseEventTime(edt *calendar.EventDateTime, loc *time.Location) (time.Time, bool) {
	if edt == nil {
		return time.Time{}, false
	}
	if edt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, edt.DateTime)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	if edt.Date != "" {
		t, err := time.ParseInLocation(dateLayout, edt.Date, loc)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}

func toEventDateTime(t time.Time, timeZone string) *calendar.EventDateTime {
	if timeZone == "" {
		timeZone = "UTC"
	}
	return &calendar.EventDateTime{
		DateTime: t.Format(time.RFC3339),
		TimeZone: timeZone,
	}
}
