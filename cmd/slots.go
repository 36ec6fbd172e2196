package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/teemow/apptdesk/internal/config"
	"github.com/teemow/apptdesk/internal/instrumentation"
	"github.com/teemow/apptdesk/internal/server"
	"github.com/teemow/apptdesk/internal/tools/calendar_tools"
)

type slotsOptions struct {
	configPath string
	backend    string
	date       string
	startTime  string
	endTime    string
	duration   int
	next       bool
	daysAhead  int
}

func newSlotsCmd() *cobra.Command {
	var opts slotsOptions

	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Preview free appointment slots",
		Long: `Preview free appointment slots without starting a server.

With --date the slots of one day between --start and --end are listed, as the
check_availability tool reports them. With --next the earliest free slot on a
weekday within business hours is searched, as find_next_available does.`,
		Example: `  apptdesk slots --date 2025-01-15 --start 09:00 --end 12:00
  apptdesk slots --next --duration 30 --days-ahead 14`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.next && opts.date == "" {
				return fmt.Errorf("either --date or --next is required")
			}

			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("backend") {
				cfg.Calendar.Backend = opts.backend
			}

			return runSlots(cmd.Context(), cfg, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "Path to a YAML configuration file")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "Calendar backend: google or memory. Defaults to the configured backend.")
	cmd.Flags().StringVar(&opts.date, "date", "", "Date in YYYY-MM-DD format")
	cmd.Flags().StringVar(&opts.startTime, "start", "09:00", "Start time in HH:MM format")
	cmd.Flags().StringVar(&opts.endTime, "end", "17:00", "End time in HH:MM format")
	cmd.Flags().IntVar(&opts.duration, "duration", 60, "Appointment duration in minutes")
	cmd.Flags().BoolVar(&opts.next, "next", false, "Find the next available slot instead of listing one day")
	cmd.Flags().IntVar(&opts.daysAhead, "days-ahead", 30, "Number of days to search ahead (with --next)")

	return cmd
}

func runSlots(ctx context.Context, cfg config.Config, opts slotsOptions, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	serverContext, err := server.NewServerContext(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		_ = serverContext.Shutdown()
	}()

	catalog, err := calendar_tools.RegisterCalendarTools(nil, serverContext)
	if err != nil {
		return fmt.Errorf("failed to register calendar tools: %w", err)
	}

	name := calendar_tools.ToolCheckAvailability
	args := map[string]any{
		"date":       opts.date,
		"start_time": opts.startTime,
		"end_time":   opts.endTime,
		"duration":   opts.duration,
	}
	if opts.next {
		name = calendar_tools.ToolFindNextAvailable
		args = map[string]any{
			"duration":   opts.duration,
			"days_ahead": opts.daysAhead,
		}
	}

	result, err := catalog.Call(instrumentation.WithCaller(ctx, instrumentation.CallerCLI), name, args)
	if err != nil {
		return err
	}
	text := server.ResultText(result)
	if result.IsError {
		return fmt.Errorf("%s", text)
	}

	_, err = fmt.Fprintln(w, text)
	return err
}
