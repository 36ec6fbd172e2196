package calendar_tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/apptdesk/internal/availability"
	"github.com/teemow/apptdesk/internal/calendar"
	"github.com/teemow/apptdesk/internal/instrumentation"
	"github.com/teemow/apptdesk/internal/server"
	"github.com/teemow/apptdesk/internal/tools/common"
)

const (
	defaultDuration  = 60
	defaultDaysAhead = 30
)

func registerAvailabilityTools(s *mcpserver.MCPServer, sc *server.ServerContext, c *Catalog) error {
	checkAvailabilityTool := mcp.NewTool(ToolCheckAvailability,
		mcp.WithDescription("Check available appointment slots for a specific date and time range"),
		mcp.WithString("date",
			mcp.Required(),
			mcp.Description("Date in YYYY-MM-DD format"),
		),
		mcp.WithString("start_time",
			mcp.Required(),
			mcp.Description("Start time in HH:MM format"),
		),
		mcp.WithString("end_time",
			mcp.Required(),
			mcp.Description("End time in HH:MM format"),
		),
		mcp.WithNumber("duration",
			mcp.Description("Appointment duration in minutes, at most 1440 (default: 60)"),
			mcp.DefaultNumber(defaultDuration),
		),
	)

	c.add(s, checkAvailabilityTool, common.InstrumentedToolHandler(ToolCheckAvailability, instrumentation.OperationList, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCheckAvailability(ctx, request, sc)
		}))

	findNextAvailableTool := mcp.NewTool(ToolFindNextAvailable,
		mcp.WithDescription("Find the next available appointment slot on a weekday within business hours"),
		mcp.WithNumber("duration",
			mcp.Description("Appointment duration in minutes, at most 1440 (default: 60)"),
			mcp.DefaultNumber(defaultDuration),
		),
		mcp.WithNumber("days_ahead",
			mcp.Description("Number of days to search ahead, at most 365 (default: 30)"),
			mcp.DefaultNumber(defaultDaysAhead),
		),
	)

	c.add(s, findNextAvailableTool, common.InstrumentedToolHandler(ToolFindNextAvailable, instrumentation.OperationSearch, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleFindNextAvailable(ctx, request, sc)
		}))

	return nil
}

type checkAvailabilityArgs struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime   string `json:"end_time" validate:"required,datetime=15:04"`
	Duration  int    `json:"duration" validate:"gt=0,lte=1440"`
}

func handleCheckAvailability(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	const action = "check availability"
	args := request.GetArguments()

	in := checkAvailabilityArgs{
		Date:      common.OptionalString(args, "date", ""),
		StartTime: common.OptionalString(args, "start_time", ""),
		EndTime:   common.OptionalString(args, "end_time", ""),
	}
	var err error
	if in.Duration, err = common.OptionalInt(args, "duration", defaultDuration); err != nil {
		return failure(action, err), nil
	}
	if err := common.ValidateArgs(in); err != nil {
		return failure(action, err), nil
	}

	loc := sc.Location()
	start, err := common.ParseDateTime("date", in.Date, "start_time", in.StartTime, loc)
	if err != nil {
		return failure(action, err), nil
	}
	end, err := common.ParseDateTime("date", in.Date, "end_time", in.EndTime, loc)
	if err != nil {
		return failure(action, err), nil
	}
	if !start.Before(end) {
		return failure(action, &calendar.ValidationError{Field: "end_time", Reason: "must be after start_time"}), nil
	}

	gw, err := sc.Gateway(ctx)
	if err != nil {
		return failure(action, err), nil
	}

	window := calendar.TimeWindow{Start: start, End: end}
	busy, err := gw.ListEvents(ctx, window)
	if err != nil {
		return failure(action, err), nil
	}

	slots, err := availability.EnumerateSlots(window, in.Duration, busy)
	if err != nil {
		return failure(action, err), nil
	}

	lines := make([]string, 0, len(slots))
	for _, slot := range slots {
		lines = append(lines, "- "+slot.Start.In(loc).Format(common.TimeLayout))
	}

	result := fmt.Sprintf("Available %d-minute slots on %s: %d slots found\n", in.Duration, in.Date, len(slots)) +
		strings.Join(lines, "\n")

	return mcp.NewToolResultText(result), nil
}

type findNextAvailableArgs struct {
	Duration  int `json:"duration" validate:"gt=0,lte=1440"`
	DaysAhead int `json:"days_ahead" validate:"gte=0,lte=365"`
}

func handleFindNextAvailable(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	const action = "find next available slot"
	args := request.GetArguments()

	var in findNextAvailableArgs
	var err error
	if in.Duration, err = common.OptionalInt(args, "duration", defaultDuration); err != nil {
		return failure(action, err), nil
	}
	if in.DaysAhead, err = common.OptionalInt(args, "days_ahead", defaultDaysAhead); err != nil {
		return failure(action, err), nil
	}
	if err := common.ValidateArgs(in); err != nil {
		return failure(action, err), nil
	}

	gw, err := sc.Gateway(ctx)
	if err != nil {
		return failure(action, err), nil
	}

	engine, err := sc.NewEngine(gw)
	if err != nil {
		return failure(action, err), nil
	}

	slot, found, err := engine.FindNextAvailable(ctx, in.Duration, in.DaysAhead)
	if err != nil {
		return failure(action, err), nil
	}
	if !found {
		return mcp.NewToolResultText(fmt.Sprintf("No available %d-minute slots found in the next %d days", in.Duration, in.DaysAhead)), nil
	}

	start := slot.Start.In(engine.Location())
	result := fmt.Sprintf("Next available %d-minute slot:\nDate: %s\nTime: %s\nDay: %s",
		in.Duration,
		start.Format(common.DateLayout),
		start.Format(common.TimeLayout),
		start.Weekday())

	return mcp.NewToolResultText(result), nil
}
