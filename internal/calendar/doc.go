// Package calendar is the gateway to the external calendar that holds every
// appointment.
//
// The Gateway interface lists, reads, inserts, moves and deletes events in a
// single calendar. Two implementations are provided: Client talks to the
// Google Calendar v3 API, and MemoryGateway keeps events in process for tests
// and local development.
//
// Gateway failures are classified into ErrUpstreamUnavailable,
// ErrUpstreamRejected and ErrNotFound so callers can tell them apart with
// errors.Is. Malformed input is reported as a *ValidationError.
//
// Example usage:
//
//	ts, err := provider.TokenSource(ctx)
//	if err != nil {
//	    return err
//	}
//	client, err := calendar.NewClient(ctx, "primary", ts)
//	if err != nil {
//	    return err
//	}
//
//	busy, err := client.ListEvents(ctx, calendar.TimeWindow{Start: from, End: to})
package calendar
