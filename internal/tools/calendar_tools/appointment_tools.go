package calendar_tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/apptdesk/internal/calendar"
	"github.com/teemow/apptdesk/internal/instrumentation"
	"github.com/teemow/apptdesk/internal/server"
	"github.com/teemow/apptdesk/internal/tools/common"
)

func registerAppointmentTools(s *mcpserver.MCPServer, sc *server.ServerContext, c *Catalog) error {
	bookAppointmentTool := mcp.NewTool(ToolBookAppointment,
		mcp.WithDescription("Book a new appointment"),
		mcp.WithString("date",
			mcp.Required(),
			mcp.Description("Date in YYYY-MM-DD format"),
		),
		mcp.WithString("time",
			mcp.Required(),
			mcp.Description("Time in HH:MM format"),
		),
		mcp.WithNumber("duration",
			mcp.Description("Appointment duration in minutes, at most 1440 (default: 60)"),
			mcp.DefaultNumber(defaultDuration),
		),
		mcp.WithString("patient_name",
			mcp.Required(),
			mcp.Description("Patient full name"),
		),
		mcp.WithString("patient_email",
			mcp.Required(),
			mcp.Description("Patient email address"),
		),
		mcp.WithString("phone",
			mcp.Description("Patient phone number"),
		),
		mcp.WithString("service",
			mcp.Required(),
			mcp.Description("Type of service (e.g., cleaning, checkup, consultation)"),
		),
	)

	c.add(s, bookAppointmentTool, common.InstrumentedToolHandler(ToolBookAppointment, instrumentation.OperationCreate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleBookAppointment(ctx, request, sc)
		}))

	cancelAppointmentTool := mcp.NewTool(ToolCancelAppointment,
		mcp.WithDescription("Cancel an existing appointment"),
		mcp.WithString("appointment_id",
			mcp.Required(),
			mcp.Description("Calendar event ID of the appointment"),
		),
		mcp.WithString("reason",
			mcp.Description("Reason for cancellation"),
		),
	)

	c.add(s, cancelAppointmentTool, common.InstrumentedToolHandler(ToolCancelAppointment, instrumentation.OperationDelete, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCancelAppointment(ctx, request, sc)
		}))

	rescheduleAppointmentTool := mcp.NewTool(ToolRescheduleAppointment,
		mcp.WithDescription("Move an existing appointment to a new date and time"),
		mcp.WithString("appointment_id",
			mcp.Required(),
			mcp.Description("Calendar event ID of the appointment"),
		),
		mcp.WithString("new_date",
			mcp.Required(),
			mcp.Description("New date in YYYY-MM-DD format"),
		),
		mcp.WithString("new_time",
			mcp.Required(),
			mcp.Description("New time in HH:MM format"),
		),
		mcp.WithNumber("duration",
			mcp.Description("Appointment duration in minutes, at most 1440 (default: 60)"),
			mcp.DefaultNumber(defaultDuration),
		),
	)

	c.add(s, rescheduleAppointmentTool, common.InstrumentedToolHandler(ToolRescheduleAppointment, instrumentation.OperationUpdate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleRescheduleAppointment(ctx, request, sc)
		}))

	getAppointmentsTool := mcp.NewTool(ToolGetAppointments,
		mcp.WithDescription("List appointments between two dates, inclusive"),
		mcp.WithString("start_date",
			mcp.Required(),
			mcp.Description("Start date in YYYY-MM-DD format"),
		),
		mcp.WithString("end_date",
			mcp.Required(),
			mcp.Description("End date in YYYY-MM-DD format"),
		),
	)

	c.add(s, getAppointmentsTool, common.InstrumentedToolHandler(ToolGetAppointments, instrumentation.OperationList, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetAppointments(ctx, request, sc)
		}))

	return nil
}

type bookAppointmentArgs struct {
	Date         string `json:"date" validate:"required,datetime=2006-01-02"`
	Time         string `json:"time" validate:"required,datetime=15:04"`
	Duration     int    `json:"duration" validate:"gt=0,lte=1440"`
	PatientName  string `json:"patient_name" validate:"required"`
	PatientEmail string `json:"patient_email" validate:"required,email"`
	Phone        string `json:"phone"`
	Service      string `json:"service" validate:"required"`
}

func handleBookAppointment(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	const action = "book appointment"
	args := request.GetArguments()

	in := bookAppointmentArgs{
		Date:         common.OptionalString(args, "date", ""),
		Time:         common.OptionalString(args, "time", ""),
		PatientName:  common.OptionalString(args, "patient_name", ""),
		PatientEmail: common.OptionalString(args, "patient_email", ""),
		Phone:        common.OptionalString(args, "phone", ""),
		Service:      common.OptionalString(args, "service", ""),
	}
	var err error
	if in.Duration, err = common.OptionalInt(args, "duration", defaultDuration); err != nil {
		return failure(action, err), nil
	}
	if err := common.ValidateArgs(in); err != nil {
		return failure(action, err), nil
	}

	loc := sc.Location()
	start, err := common.ParseDateTime("date", in.Date, "time", in.Time, loc)
	if err != nil {
		return failure(action, err), nil
	}

	gw, err := sc.Gateway(ctx)
	if err != nil {
		return failure(action, err), nil
	}

	id, err := gw.InsertEvent(ctx, calendar.AppointmentInput{
		Summary:       fmt.Sprintf("%s - %s", sc.EventPrefix(), in.PatientName),
		Description:   fmt.Sprintf("Service: %s\nPatient: %s\nPhone: %s", in.Service, in.PatientName, in.Phone),
		Start:         start,
		End:           start.Add(time.Duration(in.Duration) * time.Minute),
		TimeZone:      loc.String(),
		AttendeeEmail: in.PatientEmail,
		AttendeeName:  in.PatientName,
	})
	if err != nil {
		return failure(action, err), nil
	}

	sc.Metrics().RecordAppointment(ctx, instrumentation.ActionBooked)

	result := fmt.Sprintf("Appointment booked successfully!\nDate: %s at %s\nPatient: %s\nService: %s\nDuration: %d minutes\nEvent ID: %s",
		in.Date, in.Time, in.PatientName, in.Service, in.Duration, id)

	return mcp.NewToolResultText(result), nil
}

type cancelAppointmentArgs struct {
	AppointmentID string `json:"appointment_id" validate:"required"`
	Reason        string `json:"reason"`
}

func handleCancelAppointment(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	const action = "cancel appointment"
	args := request.GetArguments()

	in := cancelAppointmentArgs{
		AppointmentID: common.OptionalString(args, "appointment_id", ""),
		Reason:        common.OptionalString(args, "reason", "No reason provided"),
	}
	if err := common.ValidateArgs(in); err != nil {
		return failure(action, err), nil
	}

	gw, err := sc.Gateway(ctx)
	if err != nil {
		return failure(action, err), nil
	}

	event, err := gw.GetEvent(ctx, in.AppointmentID)
	if err != nil {
		return failure(action, err), nil
	}

	if err := gw.DeleteEvent(ctx, in.AppointmentID); err != nil {
		return failure(action, err), nil
	}

	sc.Metrics().RecordAppointment(ctx, instrumentation.ActionCancelled)

	result := fmt.Sprintf("Appointment cancelled successfully!\nEvent: %s\nReason: %s",
		titleOr(event.Title, "Unknown"), in.Reason)

	return mcp.NewToolResultText(result), nil
}

type rescheduleAppointmentArgs struct {
	AppointmentID string `json:"appointment_id" validate:"required"`
	NewDate       string `json:"new_date" validate:"required,datetime=2006-01-02"`
	NewTime       string `json:"new_time" validate:"required,datetime=15:04"`
	Duration      int    `json:"duration" validate:"gt=0,lte=1440"`
}

func handleRescheduleAppointment(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	const action = "reschedule appointment"
	args := request.GetArguments()

	in := rescheduleAppointmentArgs{
		AppointmentID: common.OptionalString(args, "appointment_id", ""),
		NewDate:       common.OptionalString(args, "new_date", ""),
		NewTime:       common.OptionalString(args, "new_time", ""),
	}
	var err error
	if in.Duration, err = common.OptionalInt(args, "duration", defaultDuration); err != nil {
		return failure(action, err), nil
	}
	if err := common.ValidateArgs(in); err != nil {
		return failure(action, err), nil
	}

	start, err := common.ParseDateTime("new_date", in.NewDate, "new_time", in.NewTime, sc.Location())
	if err != nil {
		return failure(action, err), nil
	}

	gw, err := sc.Gateway(ctx)
	if err != nil {
		return failure(action, err), nil
	}

	// UpdateEvent reads the event first, so an unknown ID fails before any write.
	event, err := gw.UpdateEvent(ctx, in.AppointmentID, calendar.TimeWindow{
		Start: start,
		End:   start.Add(time.Duration(in.Duration) * time.Minute),
	})
	if err != nil {
		return failure(action, err), nil
	}

	sc.Metrics().RecordAppointment(ctx, instrumentation.ActionRescheduled)

	result := fmt.Sprintf("Appointment rescheduled successfully!\nNew date: %s at %s\nDuration: %d minutes\nEvent: %s",
		in.NewDate, in.NewTime, in.Duration, titleOr(event.Title, "Unknown"))

	return mcp.NewToolResultText(result), nil
}

type getAppointmentsArgs struct {
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

func handleGetAppointments(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	const action = "get appointments"
	args := request.GetArguments()

	in := getAppointmentsArgs{
		StartDate: common.OptionalString(args, "start_date", ""),
		EndDate:   common.OptionalString(args, "end_date", ""),
	}
	if err := common.ValidateArgs(in); err != nil {
		return failure(action, err), nil
	}

	loc := sc.Location()
	start, err := common.ParseDate("start_date", in.StartDate, loc)
	if err != nil {
		return failure(action, err), nil
	}
	end, err := common.ParseDate("end_date", in.EndDate, loc)
	if err != nil {
		return failure(action, err), nil
	}
	if end.Before(start) {
		return failure(action, &calendar.ValidationError{Field: "end_date", Reason: "must not be before start_date"}), nil
	}

	gw, err := sc.Gateway(ctx)
	if err != nil {
		return failure(action, err), nil
	}

	// The end date is inclusive.
	events, err := gw.ListEvents(ctx, calendar.TimeWindow{Start: start, End: end.AddDate(0, 0, 1)})
	if err != nil {
		return failure(action, err), nil
	}

	if len(events) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No appointments found between %s and %s", in.StartDate, in.EndDate)), nil
	}

	lines := make([]string, 0, len(events))
	for _, ev := range events {
		lines = append(lines, fmt.Sprintf("- %s: %s (ID: %s)",
			ev.Start.In(loc).Format(common.DateTimeLayout), titleOr(ev.Title, "No title"), ev.ID))
	}

	result := fmt.Sprintf("Appointments from %s to %s:\n", in.StartDate, in.EndDate) + strings.Join(lines, "\n")
	return mcp.NewToolResultText(result), nil
}

func titleOr(title, fallback string) string {
	if title == "" {
		return fallback
	}
	return title
}
