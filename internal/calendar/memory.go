package calendar

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryGateway keeps events in process. It follows the same error contract
// as Client and is used by tests and by the memory backend.
type MemoryGateway struct {
	mu        sync.RWMutex
	events    map[string]*Event
	err       error
	listCalls int
}

// NewMemoryGateway creates an empty in-memory calendar.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		events: make(map[string]*Event),
	}
}

// SetError makes every subsequent call fail with err. Pass nil to clear.
func (m *MemoryGateway) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// ListCalls returns how many times ListEvents has been called.
func (m *MemoryGateway) ListCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listCalls
}

// Add stores an event directly and returns its ID. A missing ID is generated.
func (m *MemoryGateway) Add(interval EventInterval) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if interval.ID == "" {
		interval.ID = newEventID()
	}
	m.events[interval.ID] = &Event{EventInterval: interval, Status: "confirmed"}
	return interval.ID
}

// Len returns the number of stored events.
func (m *MemoryGateway) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}

func (m *MemoryGateway) ListEvents(ctx context.Context, window TimeWindow) ([]EventInterval, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.listCalls++
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.check(ctx); err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	var out []EventInterval
	for _, event := range m.events {
		if window.Overlaps(event.Start, event.End) {
			out = append(out, event.EventInterval)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}

func (m *MemoryGateway) InsertEvent(ctx context.Context, input AppointmentInput) (string, error) {
	if err := input.Validate(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(ctx); err != nil {
		return "", fmt.Errorf("failed to create event: %w", err)
	}

	event := &Event{
		EventInterval: EventInterval{
			ID:    newEventID(),
			Title: input.Summary,
			Start: input.Start,
			End:   input.End,
		},
		Description: input.Description,
		Status:      "confirmed",
	}
	if input.AttendeeEmail != "" {
		event.Attendees = []Attendee{{
			Email:          input.AttendeeEmail,
			DisplayName:    input.AttendeeName,
			ResponseStatus: "needsAction",
		}}
	}
	m.events[event.ID] = event
	return event.ID, nil
}

func (m *MemoryGateway) GetEvent(ctx context.Context, id string) (*Event, error) {
	if id == "" {
		return nil, &ValidationError{Field: "appointment_id", Reason: "is required"}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.check(ctx); err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	event, ok := m.events[id]
	if !ok {
		return nil, fmt.Errorf("failed to get event: %w: %s", ErrNotFound, id)
	}
	return cloneEvent(event), nil
}

func (m *MemoryGateway) UpdateEvent(ctx context.Context, id string, window TimeWindow) (*Event, error) {
	if id == "" {
		return nil, &ValidationError{Field: "appointment_id", Reason: "is required"}
	}
	if err := window.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(ctx); err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	event, ok := m.events[id]
	if !ok {
		return nil, fmt.Errorf("failed to update event: %w: %s", ErrNotFound, id)
	}
	event.Start = window.Start
	event.End = window.End
	return cloneEvent(event), nil
}

func (m *MemoryGateway) DeleteEvent(ctx context.Context, id string) error {
	if id == "" {
		return &ValidationError{Field: "appointment_id", Reason: "is required"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(ctx); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	if _, ok := m.events[id]; !ok {
		return fmt.Errorf("failed to delete event: %w: %s", ErrNotFound, id)
	}
	delete(m.events, id)
	return nil
}

// check must be called with the lock held.
func (m *MemoryGateway) check(ctx context.Context) error {
	if m.err != nil {
		return m.err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	return nil
}

func cloneEvent(e *Event) *Event {
	out := *e
	out.Attendees = append([]Attendee(nil), e.Attendees...)
	return &out
}

func newEventID() string {
	// Google event IDs are base32hex, so drop the dashes
	id := uuid.New()
	return fmt.Sprintf("%x", id[:])
}
