package calendar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/apptdesk/internal/instrumentation"
)

// Client is the Gateway backed by the Google Calendar v3 API.
type Client struct {
	svc        *calendar.Service
	calendarID string
	location   *time.Location
	metrics    *instrumentation.Metrics
}

// NewHTTPClient returns an HTTP client that authorizes requests with
// tokenSource. It is meant to be shared between Calendar clients.
func NewHTTPClient(ctx context.Context, tokenSource oauth2.TokenSource) (*http.Client, error) {
	if tokenSource == nil {
		return nil, fmt.Errorf("token source cannot be nil")
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)

	// Force HTTP/1.1 by disabling HTTP/2
	if transport, ok := httpClient.Transport.(*oauth2.Transport); ok {
		base := http.DefaultTransport.(*http.Transport).Clone()
		base.ForceAttemptHTTP2 = false
		transport.Base = base
	}
	return httpClient, nil
}

// CloseIdleConnections closes the idle connections of a client built by
// NewHTTPClient.
func CloseIdleConnections(httpClient *http.Client) {
	if httpClient == nil {
		return
	}
	if transport, ok := httpClient.Transport.(*oauth2.Transport); ok {
		if base, ok := transport.Base.(*http.Transport); ok {
			base.CloseIdleConnections()
		}
		return
	}
	httpClient.CloseIdleConnections()
}

// NewClient creates a Calendar client for calendarID that authenticates
// with tokenSource. Extra client options are applied after the HTTP client,
// so callers can point the client at a different endpoint.
func NewClient(ctx context.Context, calendarID string, tokenSource oauth2.TokenSource, opts ...option.ClientOption) (*Client, error) {
	httpClient, err := NewHTTPClient(ctx, tokenSource)
	if err != nil {
		return nil, err
	}
	return NewClientWithHTTPClient(ctx, calendarID, httpClient, opts...)
}

// NewClientWithHTTPClient creates a Calendar client on top of an existing
// authorized HTTP client.
func NewClientWithHTTPClient(ctx context.Context, calendarID string, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("http client cannot be nil")
	}

	clientOpts := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := calendar.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	return NewClientWithService(svc, calendarID), nil
}

// NewClientWithService wraps an already configured Calendar service.
func NewClientWithService(svc *calendar.Service, calendarID string) *Client {
	if calendarID == "" {
		calendarID = "primary"
	}
	return &Client{
		svc:        svc,
		calendarID: calendarID,
		location:   time.UTC,
	}
}

// CalendarID returns the ID of the calendar this client operates on.
func (c *Client) CalendarID() string {
	return c.calendarID
}

// SetLocation sets the location used to interpret all-day events.
func (c *Client) SetLocation(loc *time.Location) {
	if loc != nil {
		c.location = loc
	}
}

// SetMetrics enables recording of calendar API metrics.
func (c *Client) SetMetrics(m *instrumentation.Metrics) {
	c.metrics = m
}

// ListEvents lists events overlapping the window.
func (c *Client) ListEvents(ctx context.Context, window TimeWindow) ([]EventInterval, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}

	var intervals []EventInterval
	err := c.observe(ctx, instrumentation.OperationList, "", func(ctx context.Context) error {
		call := c.svc.Events.List(c.calendarID).
			TimeMin(window.Start.Format(time.RFC3339)).
			TimeMax(window.End.Format(time.RFC3339)).
			SingleEvents(true).
			OrderBy("startTime")

		return call.Pages(ctx, func(page *calendar.Events) error {
			for _, item := range page.Items {
				if interval, ok := toEventInterval(item, c.location); ok {
					intervals = append(intervals, interval)
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	return intervals, nil
}

// InsertEvent creates a new event with the patient as attendee.
func (c *Client) InsertEvent(ctx context.Context, input AppointmentInput) (string, error) {
	if err := input.Validate(); err != nil {
		return "", err
	}

	event := &calendar.Event{
		Summary:     input.Summary,
		Description: input.Description,
		Start:       toEventDateTime(input.Start, input.TimeZone),
		End:         toEventDateTime(input.End, input.TimeZone),
	}
	if input.AttendeeEmail != "" {
		event.Attendees = []*calendar.EventAttendee{{
			Email:       input.AttendeeEmail,
			DisplayName: input.AttendeeName,
		}}
	}

	var id string
	err := c.observe(ctx, instrumentation.OperationCreate, "", func(ctx context.Context) error {
		created, err := c.svc.Events.Insert(c.calendarID, event).Context(ctx).Do()
		if err != nil {
			return err
		}
		id = created.Id
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to create event: %w", err)
	}

	return id, nil
}

// GetEvent retrieves a specific event by ID
func (c *Client) GetEvent(ctx context.Context, id string) (*Event, error) {
	if id == "" {
		return nil, &ValidationError{Field: "appointment_id", Reason: "is required"}
	}

	var out *Event
	err := c.observe(ctx, instrumentation.OperationGet, id, func(ctx context.Context) error {
		event, err := c.svc.Events.Get(c.calendarID, id).Context(ctx).Do()
		if err != nil {
			return err
		}
		converted, ok := toEvent(event, c.location)
		if !ok {
			return fmt.Errorf("%w: event %s has no start time", ErrUpstreamRejected, id)
		}
		out = converted
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	return out, nil
}

// UpdateEvent moves an event to the given window. The event's time zone
// is preserved.
func (c *Client) UpdateEvent(ctx context.Context, id string, window TimeWindow) (*Event, error) {
	if id == "" {
		return nil, &ValidationError{Field: "appointment_id", Reason: "is required"}
	}
	if err := window.Validate(); err != nil {
		return nil, err
	}

	var out *Event
	err := c.observe(ctx, instrumentation.OperationUpdate, id, func(ctx context.Context) error {
		// Get the existing event first
		existing, err := c.svc.Events.Get(c.calendarID, id).Context(ctx).Do()
		if err != nil {
			return err
		}

		timeZone := ""
		if existing.Start != nil {
			timeZone = existing.Start.TimeZone
		}
		existing.Start = toEventDateTime(window.Start, timeZone)
		existing.End = toEventDateTime(window.End, timeZone)

		updated, err := c.svc.Events.Update(c.calendarID, id, existing).Context(ctx).Do()
		if err != nil {
			return err
		}
		converted, ok := toEvent(updated, c.location)
		if !ok {
			return fmt.Errorf("%w: event %s has no start time", ErrUpstreamRejected, id)
		}
		out = converted
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	return out, nil
}

// DeleteEvent deletes a calendar event
func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	if id == "" {
		return &ValidationError{Field: "appointment_id", Reason: "is required"}
	}

	err := c.observe(ctx, instrumentation.OperationDelete, id, func(ctx context.Context) error {
		return c.svc.Events.Delete(c.calendarID, id).Context(ctx).Do()
	})
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

// observe runs fn inside a client span, records the operation metric and
// classifies the returned error.
func (c *Client) observe(ctx context.Context, operation, eventID string, fn func(context.Context) error) error {
	attrs := []attribute.KeyValue{attribute.String(instrumentation.SpanAttrCalendarID, c.calendarID)}
	if eventID != "" {
		attrs = append(attrs, attribute.String(instrumentation.SpanAttrEventID, eventID))
	}

	ctx, span := instrumentation.StartCalendarSpan(ctx, operation, attrs...)
	defer span.End()

	start := time.Now()
	err := classifyError(fn(ctx))

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}

	if c.metrics != nil {
		c.metrics.RecordCalendarAPIOperation(ctx, operation, status, time.Since(start))
	}

	return err
}
