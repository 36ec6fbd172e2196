package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/apptdesk/internal/availability"
	"github.com/teemow/apptdesk/internal/calendar"
	"github.com/teemow/apptdesk/internal/server"
	"github.com/teemow/apptdesk/internal/tools/common"
)

// Resource URIs.
const (
	SettingsURI = "calendar://settings"
	TodayURI    = "calendar://appointments/today"
)

// Settings describes how the server schedules appointments.
type Settings struct {
	CalendarID        string `json:"calendar_id"`
	Backend           string `json:"backend"`
	TimeZone          string `json:"time_zone"`
	EventPrefix       string `json:"event_prefix"`
	OpenHour          int    `json:"open_hour"`
	CloseHour         int    `json:"close_hour"`
	SlotStepMinutes   int    `json:"slot_step_minutes"`
	SearchStepMinutes int    `json:"search_step_minutes"`
	WeekdaysOnly      bool   `json:"weekdays_only"`
}

// Appointment is one entry of the daily agenda.
type Appointment struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// Agenda lists the appointments of one day.
type Agenda struct {
	Date         string        `json:"date"`
	TimeZone     string        `json:"time_zone"`
	Appointments []Appointment `json:"appointments"`
}

// RegisterCalendarResources registers the calendar resources with the MCP server.
func RegisterCalendarResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if s == nil || sc == nil {
		return fmt.Errorf("mcp server and server context are required")
	}

	settingsResource := mcp.NewResource(
		SettingsURI,
		"Scheduling Settings",
		mcp.WithResourceDescription("Calendar, time zone and business hours used for scheduling"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(settingsResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return jsonContents(request.Params.URI, settingsFor(sc))
	})

	todayResource := mcp.NewResource(
		TodayURI,
		"Today's Appointments",
		mcp.WithResourceDescription("Appointments booked for the current day in the calendar time zone"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(todayResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		agenda, err := TodayAgenda(ctx, sc)
		if err != nil {
			return nil, err
		}
		return jsonContents(request.Params.URI, agenda)
	})

	return nil
}

func settingsFor(sc *server.ServerContext) Settings {
	cfg := sc.Config()
	hours := sc.Hours()
	return Settings{
		CalendarID:        sc.CalendarID(),
		Backend:           cfg.Calendar.Backend,
		TimeZone:          sc.Location().String(),
		EventPrefix:       sc.EventPrefix(),
		OpenHour:          hours.Open,
		CloseHour:         hours.Close,
		SlotStepMinutes:   int(availability.SlotStep / time.Minute),
		SearchStepMinutes: 60,
		WeekdaysOnly:      true,
	}
}

// TodayAgenda reads the appointments between midnight and midnight of the
// current day in the calendar time zone.
func TodayAgenda(ctx context.Context, sc *server.ServerContext) (Agenda, error) {
	loc := sc.Location()
	now := sc.Now().In(loc)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	gw, err := sc.Gateway(ctx)
	if err != nil {
		return Agenda{}, fmt.Errorf("failed to get calendar gateway: %w", err)
	}

	events, err := gw.ListEvents(ctx, calendar.TimeWindow{Start: day, End: day.AddDate(0, 0, 1)})
	if err != nil {
		return Agenda{}, fmt.Errorf("failed to list today's appointments: %w", err)
	}

	agenda := Agenda{
		Date:         day.Format(common.DateLayout),
		TimeZone:     loc.String(),
		Appointments: make([]Appointment, 0, len(events)),
	}
	for _, event := range events {
		agenda.Appointments = append(agenda.Appointments, Appointment{
			ID:    event.ID,
			Title: event.Title,
			Start: event.Start.In(loc).Format(time.RFC3339),
			End:   event.End.In(loc).Format(time.RFC3339),
		})
	}
	return agenda, nil
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
