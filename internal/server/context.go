package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"google.golang.org/api/option"

	"github.com/teemow/apptdesk/internal/availability"
	"github.com/teemow/apptdesk/internal/calendar"
	"github.com/teemow/apptdesk/internal/config"
	"github.com/teemow/apptdesk/internal/google"
	"github.com/teemow/apptdesk/internal/instrumentation"
)

// ServerContext holds the context for the MCP server
type ServerContext struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      config.Config
	location *time.Location
	logger   *slog.Logger

	memory        *calendar.MemoryGateway
	gateway       calendar.Gateway // fixed gateway, overrides the backend
	httpClient    *http.Client // authorized, shared by all Google clients
	clientOptions []option.ClientOption

	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
	now         func() time.Time

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a new server context
func NewServerContext(ctx context.Context, cfg config.Config) (*ServerContext, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	shutdownCtx, cancel := context.WithCancel(ctx)

	sc := &ServerContext{
		ctx:      shutdownCtx,
		cancel:   cancel,
		cfg:      cfg,
		location: loc,
		logger:   slog.Default(),
		now:      time.Now,
	}
	if cfg.Calendar.Backend == config.BackendMemory {
		sc.memory = calendar.NewMemoryGateway()
	}
	return sc, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Config returns the configuration the context was built from.
func (sc *ServerContext) Config() config.Config {
	return sc.cfg
}

// Location is the time zone dates and times are interpreted in.
func (sc *ServerContext) Location() *time.Location {
	return sc.location
}

// CalendarID returns the configured calendar ID.
func (sc *ServerContext) CalendarID() string {
	return sc.cfg.Calendar.ID
}

// EventPrefix is prepended to the title of booked appointments.
func (sc *ServerContext) EventPrefix() string {
	return sc.cfg.Calendar.EventPrefix
}

// Hours returns the business hours of the next-slot search.
func (sc *ServerContext) Hours() availability.BusinessHours {
	return availability.BusinessHours{Open: sc.cfg.Hours.Open, Close: sc.cfg.Hours.Close}
}

// SetLogger sets the logger used by the server components.
func (sc *ServerContext) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.logger = logger
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.logger
}

// SetMetrics sets the metrics recorder.
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
}

// Metrics returns the metrics recorder, nil when instrumentation is off.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetAuditLogger sets the audit logger for tool invocations.
func (sc *ServerContext) SetAuditLogger(al *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.auditLogger = al
}

// AuditLogger returns the audit logger, nil when not configured.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// SetClock replaces the clock used to compute "tomorrow" in slot searches.
func (sc *ServerContext) SetClock(now func() time.Time) {
	if now == nil {
		return
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.now = now
}

// Now returns the current time of the context clock.
func (sc *ServerContext) Now() time.Time {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.now()
}

// SetGateway pins the gateway returned by Gateway regardless of backend.
func (sc *ServerContext) SetGateway(gw calendar.Gateway) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.gateway = gw
}

// SetCalendarOptions adds client options to every Google Calendar client,
// e.g. a custom endpoint.
func (sc *ServerContext) SetCalendarOptions(opts ...option.ClientOption) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.clientOptions = append(sc.clientOptions, opts...)
}

// MemoryGateway returns the shared in-memory calendar, nil for other backends.
func (sc *ServerContext) MemoryGateway() *calendar.MemoryGateway {
	return sc.memory
}

// BackendConfigured reports whether Gateway can build a gateway.
func (sc *ServerContext) BackendConfigured() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	if sc.gateway != nil || sc.memory != nil {
		return true
	}
	return len(sc.cfg.GoogleCredentials().Missing()) == 0
}

// Gateway returns the calendar gateway for one request. Google clients are
// built per call on top of a shared token source.
func (sc *ServerContext) Gateway(ctx context.Context) (calendar.Gateway, error) {
	if sc.IsShutdown() {
		return nil, fmt.Errorf("server is shutting down")
	}

	sc.mu.RLock()
	gw, memory := sc.gateway, sc.memory
	sc.mu.RUnlock()

	if gw != nil {
		return gw, nil
	}
	if memory != nil {
		return memory, nil
	}
	return sc.googleClient(ctx)
}

func (sc *ServerContext) googleClient(ctx context.Context) (*calendar.Client, error) {
	httpClient, err := sc.getHTTPClient()
	if err != nil {
		return nil, err
	}

	sc.mu.RLock()
	opts := append([]option.ClientOption(nil), sc.clientOptions...)
	metrics := sc.metrics
	sc.mu.RUnlock()

	client, err := calendar.NewClientWithHTTPClient(ctx, sc.cfg.Calendar.ID, httpClient, opts...)
	if err != nil {
		return nil, err
	}
	client.SetLocation(sc.location)
	client.SetMetrics(metrics)
	return client, nil
}

func (sc *ServerContext) getHTTPClient() (*http.Client, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.httpClient != nil {
		return sc.httpClient, nil
	}

	provider, err := google.NewCredentialsTokenProvider(sc.cfg.GoogleCredentials(), sc.logger)
	if err != nil {
		return nil, err
	}
	ts, err := provider.TokenSource(sc.ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create token source: %w", err)
	}
	httpClient, err := calendar.NewHTTPClient(sc.ctx, ts)
	if err != nil {
		return nil, err
	}
	sc.httpClient = httpClient
	return httpClient, nil
}

// NewEngine creates an availability engine over gw with the context's
// business hours, location and clock.
func (sc *ServerContext) NewEngine(gw calendar.Gateway) (*availability.Engine, error) {
	return availability.NewEngine(gw, availability.Config{
		Hours:    sc.Hours(),
		Location: sc.location,
		Now:      sc.Now,
		Metrics:  sc.Metrics(),
	})
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	calendar.CloseIdleConnections(sc.httpClient)
	return nil
}
