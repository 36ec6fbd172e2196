package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/apptdesk/internal/config"
	"github.com/teemow/apptdesk/internal/instrumentation"
	"github.com/teemow/apptdesk/internal/logging"
	"github.com/teemow/apptdesk/internal/resources"
	"github.com/teemow/apptdesk/internal/server"
	"github.com/teemow/apptdesk/internal/tools/calendar_tools"
)

const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"

	shutdownTimeout = 30 * time.Second
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

type serveOptions struct {
	configPath  string
	transport   string
	httpAddr    string
	backend     string
	corsOrigins []string
	debug       bool
	metrics     MetricsConfig
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the appointment server",
		Long: `Start the appointment server.

Supports multiple transport types:
  - stdio: MCP over standard input/output
  - streamable-http: MCP at /mcp plus the JSON-RPC routes and the
    ElevenLabs webhook (default)

Configuration is read from the optional --config YAML file, then from
APPTDESK_* environment variables, then from the variable names of earlier
deployments (GOOGLE_ACCESS_TOKEN, GOOGLE_REFRESH_TOKEN, GOOGLE_CLIENT_ID,
GOOGLE_CLIENT_SECRET, GOOGLE_CALENDAR_ID, PORT). A .env file in the working
directory is loaded first. Flags override everything.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			loadMetricsEnvVars(cmd, &opts.metrics)
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "Path to a YAML configuration file")
	cmd.Flags().StringVar(&opts.transport, "transport", transportStreamableHTTP, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", server.DefaultHTTPAddr, "HTTP server address (for streamable-http transport). Defaults to the configured address.")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "Calendar backend: google or memory. Defaults to the configured backend.")
	cmd.Flags().StringSliceVar(&opts.corsOrigins, "cors-origins", nil, "Allowed CORS origins (comma-separated). Defaults to all origins.")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	// Metrics server flags
	cmd.Flags().BoolVar(&opts.metrics.Enabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&opts.metrics.Addr, "metrics-addr", ":9090", "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// loadServeConfig loads the configuration and applies the flags that were set.
func loadServeConfig(cmd *cobra.Command, opts serveOptions) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("http-addr") {
		cfg.Server.Addr = opts.httpAddr
	}
	if flags.Changed("backend") {
		cfg.Calendar.Backend = opts.backend
	}
	if flags.Changed("cors-origins") {
		cfg.Server.AllowedOrigins = opts.corsOrigins
	}
	if opts.debug {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// newLogger logs JSON for the HTTP transport and text otherwise. stdout
// belongs to the protocol in stdio mode, so logs always go to stderr.
func newLogger(cfg config.Config, transport string) *slog.Logger {
	format := cfg.Log.Format
	if format == "" {
		format = logging.FormatText
		if transport == transportStreamableHTTP {
			format = logging.FormatJSON
		}
	}
	return logging.NewLogger(logging.Options{
		Level:  cfg.Log.Level,
		Format: format,
		Writer: os.Stderr,
	})
}

func runServe(cmd *cobra.Command, opts serveOptions) (err error) {
	switch opts.transport {
	case transportStdio, transportStreamableHTTP:
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", opts.transport)
	}

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadServeConfig(cmd, opts)
	if err != nil {
		return err
	}

	logger := newLogger(cfg, opts.transport)
	slog.SetDefault(logger)

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}

	serverContext, err := server.NewServerContext(shutdownCtx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	serverContext.SetLogger(logger)

	// Set metrics and audit logger on server context for tool instrumentation
	if provider.Enabled() {
		serverContext.SetMetrics(provider.Metrics())
		serverContext.SetAuditLogger(instrumentation.NewAuditLogger(logger, instrConfig.AuditLogging))
	}

	var metricsServer *server.MetricsServer
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if metricsServer != nil {
			if err := metricsServer.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
			}
		}
		if err := serverContext.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("server context shutdown: %w", err))
		}
		if err := provider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("instrumentation shutdown: %w", err))
		}
		err = errors.Join(err, errors.Join(errs...))
	}()

	if !serverContext.BackendConfigured() {
		logger.Warn("Google Calendar credentials incomplete, tool calls will fail",
			slog.Any("missing", cfg.GoogleCredentials().Missing()))
	}

	mcpSrv := mcpserver.NewMCPServer(server.ServerName, version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)

	catalog, err := calendar_tools.RegisterCalendarTools(mcpSrv, serverContext)
	if err != nil {
		return fmt.Errorf("failed to register calendar tools: %w", err)
	}
	if err := resources.RegisterCalendarResources(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register calendar resources: %w", err)
	}

	if opts.transport == transportStdio {
		return runStdioServer(mcpSrv)
	}

	// Start metrics server if enabled and not in stdio mode
	if opts.metrics.Enabled && provider.Enabled() && provider.PrometheusHandler() != nil {
		metricsServer, err = startMetricsServer(provider, opts.metrics, logger)
		if err != nil {
			return err
		}
	}

	httpServer, err := server.NewHTTPServer(serverContext, server.HTTPServerConfig{
		Addr:           cfg.Server.Addr,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimit:      cfg.Server.RateLimit,
		MCPServer:      mcpSrv,
		Catalog:        catalog,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	logger.Info("appointment server starting",
		slog.String("addr", httpServer.Addr()),
		slog.String("backend", cfg.Calendar.Backend),
		logging.Calendar(cfg.Calendar.ID),
		slog.String("time_zone", cfg.Calendar.TimeZone),
		slog.Int("tools", len(catalog.Tools())),
	)

	return runHTTPServer(shutdownCtx, httpServer, logger)
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runHTTPServer(ctx context.Context, httpServer *server.HTTPServer, logger *slog.Logger) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		logger.Info("HTTP server stopped normally")
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}

func startMetricsServer(provider *instrumentation.Provider, cfg MetricsConfig, logger *slog.Logger) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    cfg.Addr,
		Enabled:                 true,
		InstrumentationProvider: provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	// A bind failure surfaces immediately.
	select {
	case err := <-metricsErr:
		if err != nil {
			return nil, fmt.Errorf("metrics server failed to start: %w", err)
		}
	case <-time.After(100 * time.Millisecond):
	}

	logger.Info("metrics server started", slog.String("addr", metricsServer.Addr()))
	return metricsServer, nil
}

// loadMetricsEnvVars applies METRICS_ENABLED and METRICS_ADDR unless the
// matching flag was set explicitly.
func loadMetricsEnvVars(cmd *cobra.Command, cfg *MetricsConfig) {
	if !cmd.Flags().Changed("metrics-enabled") {
		if v := os.Getenv("METRICS_ENABLED"); v != "" {
			cfg.Enabled = strings.EqualFold(v, "true")
		}
	}
	if !cmd.Flags().Changed("metrics-addr") {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			cfg.Addr = addr
		}
	}
}
