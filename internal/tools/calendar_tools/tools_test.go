package calendar_tools

import (
	"context"
	"strings"
	"testing"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/apptdesk/internal/calendar"
	"github.com/teemow/apptdesk/internal/config"
	"github.com/teemow/apptdesk/internal/server"

	_ "time/tzdata"
)

// tuesday is the clock used by most tests; "tomorrow" is Wednesday 2025-01-15.
var tuesday = time.Date(2025, 1, 14, 15, 0, 0, 0, time.UTC)

type fixture struct {
	catalog *Catalog
	gateway *calendar.MemoryGateway
	sc      *server.ServerContext
}

func newFixture(t *testing.T, mutate ...func(*config.Config)) *fixture {
	t.Helper()

	cfg := config.Defaults()
	cfg.Calendar.Backend = config.BackendMemory
	for _, m := range mutate {
		m(&cfg)
	}

	sc, err := server.NewServerContext(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	sc.SetClock(func() time.Time { return tuesday })

	s := mcpserver.NewMCPServer("test", "1.0.0", mcpserver.WithToolCapabilities(true))
	catalog, err := RegisterCalendarTools(s, sc)
	require.NoError(t, err)

	return &fixture{catalog: catalog, gateway: sc.MemoryGateway(), sc: sc}
}

func (f *fixture) call(t *testing.T, name string, args map[string]any) (string, bool) {
	t.Helper()
	result, err := f.catalog.Call(context.Background(), name, args)
	require.NoError(t, err)
	require.NotNil(t, result)
	return server.ResultText(result), result.IsError
}

func at(day, hour, minute int) time.Time {
	return time.Date(2025, 1, day, hour, minute, 0, 0, time.UTC)
}

func TestRegisterCalendarTools(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, []string{
		ToolBookAppointment,
		ToolCancelAppointment,
		ToolCheckAvailability,
		ToolFindNextAvailable,
		ToolGetAppointments,
		ToolRescheduleAppointment,
	}, f.catalog.Names())

	tools := f.catalog.Tools()
	require.Len(t, tools, 6)
	assert.Equal(t, ToolCheckAvailability, tools[0].Name)
	assert.Contains(t, tools[0].InputSchema.Required, "date")

	assert.True(t, f.catalog.Has(ToolBookAppointment))
	assert.False(t, f.catalog.Has("send_email"))

	_, err := f.catalog.Call(context.Background(), "send_email", nil)
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestRegisterCalendarTools_WithoutMCPServer(t *testing.T) {
	f := newFixture(t)

	catalog, err := RegisterCalendarTools(nil, f.sc)
	require.NoError(t, err)
	assert.Len(t, catalog.Tools(), 6)

	_, err = RegisterCalendarTools(nil, nil)
	assert.Error(t, err)
}

func TestCheckAvailability(t *testing.T) {
	tests := []struct {
		name    string
		busy    []calendar.EventInterval
		args    map[string]any
		want    string
		wantErr string
	}{
		{
			name: "free window",
			args: map[string]any{"date": "2025-01-15", "start_time": "09:00", "end_time": "11:00"},
			want: "Available 60-minute slots on 2025-01-15: 3 slots found\n- 09:00\n- 09:30\n- 10:00",
		},
		{
			name: "busy interval blocks every candidate",
			busy: []calendar.EventInterval{{Title: "busy", Start: at(15, 9, 30), End: at(15, 10, 30)}},
			args: map[string]any{"date": "2025-01-15", "start_time": "09:00", "end_time": "11:00"},
			want: "Available 60-minute slots on 2025-01-15: 0 slots found\n",
		},
		{
			name: "duration as string",
			busy: []calendar.EventInterval{{Title: "busy", Start: at(15, 9, 30), End: at(15, 10, 0)}},
			args: map[string]any{"date": "2025-01-15", "start_time": "09:00", "end_time": "11:00", "duration": "30"},
			want: "Available 30-minute slots on 2025-01-15: 3 slots found\n- 09:00\n- 10:00\n- 10:30",
		},
		{
			name: "adjacent events do not conflict",
			busy: []calendar.EventInterval{
				{Title: "before", Start: at(15, 8, 0), End: at(15, 9, 0)},
				{Title: "after", Start: at(15, 10, 0), End: at(15, 11, 0)},
			},
			args: map[string]any{"date": "2025-01-15", "start_time": "09:00", "end_time": "10:00"},
			want: "Available 60-minute slots on 2025-01-15: 1 slots found\n- 09:00",
		},
		{
			name:    "missing date",
			args:    map[string]any{"start_time": "09:00", "end_time": "11:00"},
			wantErr: "Failed to check availability: date is required",
		},
		{
			name:    "malformed time",
			args:    map[string]any{"date": "2025-01-15", "start_time": "9am", "end_time": "11:00"},
			wantErr: "Failed to check availability: start_time must be a time in HH:MM format",
		},
		{
			name:    "end before start",
			args:    map[string]any{"date": "2025-01-15", "start_time": "11:00", "end_time": "09:00"},
			wantErr: "Failed to check availability: end_time must be after start_time",
		},
		{
			name:    "zero duration",
			args:    map[string]any{"date": "2025-01-15", "start_time": "09:00", "end_time": "11:00", "duration": 0},
			wantErr: "Failed to check availability: duration must be greater than 0",
		},
		{
			name:    "duration longer than a day",
			args:    map[string]any{"date": "2025-01-15", "start_time": "09:00", "end_time": "11:00", "duration": 200000000},
			wantErr: "Failed to check availability: duration must be at most 1440",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			for _, b := range tt.busy {
				f.gateway.Add(b)
			}

			text, isErr := f.call(t, ToolCheckAvailability, tt.args)
			if tt.wantErr != "" {
				assert.True(t, isErr)
				assert.Equal(t, tt.wantErr, text)
				return
			}
			assert.False(t, isErr, text)
			assert.Equal(t, tt.want, text)
		})
	}
}

func TestCheckAvailability_GatewayFailure(t *testing.T) {
	f := newFixture(t)
	f.gateway.SetError(calendar.ErrUpstreamUnavailable)

	text, isErr := f.call(t, ToolCheckAvailability, map[string]any{
		"date": "2025-01-15", "start_time": "09:00", "end_time": "11:00",
	})
	assert.True(t, isErr)
	assert.True(t, strings.HasPrefix(text, "Failed to check availability: "), text)
}

func TestFindNextAvailable(t *testing.T) {
	t.Run("empty calendar returns tomorrow at opening", func(t *testing.T) {
		f := newFixture(t)

		text, isErr := f.call(t, ToolFindNextAvailable, map[string]any{})
		assert.False(t, isErr, text)
		assert.Equal(t, "Next available 60-minute slot:\nDate: 2025-01-15\nTime: 09:00\nDay: Wednesday", text)
	})

	t.Run("skips a fully booked day", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.Add(calendar.EventInterval{Title: "all day", Start: at(15, 0, 0), End: at(16, 0, 0)})

		text, isErr := f.call(t, ToolFindNextAvailable, map[string]any{"duration": 30})
		assert.False(t, isErr, text)
		assert.Equal(t, "Next available 30-minute slot:\nDate: 2025-01-16\nTime: 09:00\nDay: Thursday", text)
	})

	t.Run("weekend tomorrow with no days ahead", func(t *testing.T) {
		f := newFixture(t)
		friday := at(17, 12, 0)
		f.sc.SetClock(func() time.Time { return friday })

		text, isErr := f.call(t, ToolFindNextAvailable, map[string]any{"days_ahead": "0"})
		assert.False(t, isErr, text)
		assert.Equal(t, "No available 60-minute slots found in the next 0 days", text)
		assert.Zero(t, f.gateway.ListCalls())
	})

	t.Run("negative days ahead", func(t *testing.T) {
		f := newFixture(t)

		text, isErr := f.call(t, ToolFindNextAvailable, map[string]any{"days_ahead": -1})
		assert.True(t, isErr)
		assert.Equal(t, "Failed to find next available slot: days_ahead must be at least 0", text)
	})

	t.Run("days ahead beyond a year", func(t *testing.T) {
		f := newFixture(t)

		text, isErr := f.call(t, ToolFindNextAvailable, map[string]any{"days_ahead": 1000000000})
		assert.True(t, isErr)
		assert.Equal(t, "Failed to find next available slot: days_ahead must be at most 365", text)
		assert.Zero(t, f.gateway.ListCalls())
	})

	t.Run("duration longer than a day", func(t *testing.T) {
		f := newFixture(t)

		text, isErr := f.call(t, ToolFindNextAvailable, map[string]any{"duration": "1441"})
		assert.True(t, isErr)
		assert.Equal(t, "Failed to find next available slot: duration must be at most 1440", text)
		assert.Zero(t, f.gateway.ListCalls())
	})

	t.Run("gateway failure aborts", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.SetError(calendar.ErrUpstreamRejected)

		text, isErr := f.call(t, ToolFindNextAvailable, nil)
		assert.True(t, isErr)
		assert.Contains(t, text, "Failed to find next available slot: ")
		assert.Equal(t, 1, f.gateway.ListCalls())
	})
}
