package availability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/apptdesk/internal/calendar"
	"github.com/teemow/apptdesk/internal/instrumentation"
)

// BusinessHours bounds the hours in which appointments may start.
// Hours are whole hours on a 24-hour clock; Close is exclusive.
type BusinessHours struct {
	Open  int
	Close int
}

// DefaultBusinessHours is 09:00 to 17:00.
var DefaultBusinessHours = BusinessHours{Open: 9, Close: 17}

// Validate checks that the hours describe a non-empty part of one day.
func (h BusinessHours) Validate() error {
	if h.Open < 0 || h.Open > 23 {
		return &calendar.ValidationError{Field: "hours.open", Reason: "must be between 0 and 23"}
	}
	if h.Close <= h.Open || h.Close > 24 {
		return &calendar.ValidationError{Field: "hours.close", Reason: "must be after open and at most 24"}
	}
	return nil
}

// lastStartHour returns the exclusive upper bound of candidate start hours
// for an appointment of durationMinutes.
func (h BusinessHours) lastStartHour(durationMinutes int) int {
	hoursNeeded := (durationMinutes + 59) / 60
	return h.Close - hoursNeeded
}

// Config configures an Engine. Zero values select the defaults.
type Config struct {
	Hours    BusinessHours
	Location *time.Location
	Now      func() time.Time
	Metrics  *instrumentation.Metrics
}

// Engine searches a calendar for the next free appointment slot.
type Engine struct {
	gateway  calendar.Gateway
	hours    BusinessHours
	location *time.Location
	now      func() time.Time
	metrics  *instrumentation.Metrics
}

// NewEngine creates an Engine reading busy periods from gateway.
func NewEngine(gateway calendar.Gateway, cfg Config) (*Engine, error) {
	if gateway == nil {
		return nil, fmt.Errorf("calendar gateway cannot be nil")
	}

	if cfg.Hours == (BusinessHours{}) {
		cfg.Hours = DefaultBusinessHours
	}
	if err := cfg.Hours.Validate(); err != nil {
		return nil, err
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Engine{
		gateway:  gateway,
		hours:    cfg.Hours,
		location: cfg.Location,
		now:      cfg.Now,
		metrics:  cfg.Metrics,
	}, nil
}

// FindNextAvailable returns the first free slot of durationMinutes starting
// tomorrow and looking daysAhead further days, inclusive. Weekends are
// skipped and candidates start on the hour within business hours.
//
// The calendar is queried once per candidate hour for events overlapping
// exactly that slot. found is false when no candidate is free. A gateway
// error aborts the search.
func (e *Engine) FindNextAvailable(ctx context.Context, durationMinutes, daysAhead int) (slot Slot, found bool, err error) {
	duration, err := slotDuration(durationMinutes)
	if err != nil {
		return Slot{}, false, err
	}
	if daysAhead < 0 {
		return Slot{}, false, &calendar.ValidationError{Field: "days_ahead", Reason: "must not be negative"}
	}

	ctx, span := instrumentation.StartSpan(ctx, "availability.find_next",
		attribute.Int(instrumentation.SpanAttrDuration, durationMinutes),
		attribute.Int(instrumentation.SpanAttrDaysAhead, daysAhead),
	)
	defer span.End()

	queries := 0
	defer func() {
		e.metrics.RecordSlotSearch(ctx, queries, found)
		if err != nil {
			instrumentation.SetSpanError(span, err)
		}
	}()

	lastHour := e.hours.lastStartHour(durationMinutes)

	now := e.now().In(e.location)
	first := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, e.location).AddDate(0, 0, 1)

	for day := 0; day <= daysAhead; day++ {
		if err := ctx.Err(); err != nil {
			return Slot{}, false, err
		}
		date := first.AddDate(0, 0, day)
		if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
			continue
		}

		for hour := e.hours.Open; hour < lastHour; hour++ {
			start := time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, e.location)
			window := calendar.TimeWindow{Start: start, End: start.Add(duration)}

			queries++
			events, err := e.gateway.ListEvents(ctx, window)
			if err != nil {
				return Slot{}, false, fmt.Errorf("failed to search availability on %s: %w", start.Format("2006-01-02"), err)
			}
			if len(events) == 0 {
				instrumentation.AddSpanEvent(span, "slot_found", attribute.Int("availability.queries", queries))
				return Slot{Start: start, DurationMinutes: durationMinutes}, true, nil
			}
		}
	}

	return Slot{}, false, nil
}

// Hours returns the business hours the engine searches within.
func (e *Engine) Hours() BusinessHours {
	return e.hours
}

// Location returns the location dates and hours are interpreted in.
func (e *Engine) Location() *time.Location {
	return e.location
}
