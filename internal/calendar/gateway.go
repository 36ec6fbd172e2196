package calendar

import "context"

// Gateway is the set of calendar operations the scheduler depends on.
// Implementations must be safe for concurrent use.
type Gateway interface {
	// ListEvents returns events overlapping the window, recurring events
	// expanded into single instances, ordered by start time.
	ListEvents(ctx context.Context, window TimeWindow) ([]EventInterval, error)

	// InsertEvent creates an event and returns its ID.
	InsertEvent(ctx context.Context, input AppointmentInput) (string, error)

	GetEvent(ctx context.Context, id string) (*Event, error)

	// UpdateEvent moves an existing event to a new window and returns the
	// updated event.
	UpdateEvent(ctx context.Context, id string, window TimeWindow) (*Event, error)

	DeleteEvent(ctx context.Context, id string) error
}

var (
	_ Gateway = (*Client)(nil)
	_ Gateway = (*MemoryGateway)(nil)
)
