package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

const (
	// DefaultHTTPAddr is the default listen address of the HTTP transport.
	DefaultHTTPAddr = ":8000"

	// DefaultHTTPReadHeaderTimeout bounds the time to read request headers.
	DefaultHTTPReadHeaderTimeout = 10 * time.Second

	// DefaultHTTPIdleTimeout is the keep-alive idle timeout.
	DefaultHTTPIdleTimeout = 120 * time.Second

	// MCPEndpoint is the path of the streamable HTTP MCP endpoint.
	MCPEndpoint = "/mcp"
)

// HTTPServerConfig configures the HTTP transport.
type HTTPServerConfig struct {
	Addr string

	// AllowedOrigins for CORS. Empty allows every origin.
	AllowedOrigins []string

	// RateLimit is requests per minute per client IP on the tool routes. Zero disables it.
	RateLimit int

	// MCPServer answers POST /mcp through the streamable HTTP transport.
	MCPServer *mcpserver.MCPServer

	// Catalog backs the legacy JSON-RPC routes and the webhook.
	Catalog ToolCatalog
}

// HTTPServer serves MCP, the legacy JSON-RPC routes and the voice-agent webhook.
type HTTPServer struct {
	sc         *ServerContext
	catalog    ToolCatalog
	health     *HealthChecker
	router     chi.Router
	httpServer *http.Server
	addr       string
	logger     *slog.Logger
}

// NewHTTPServer builds the router. Call Start to listen.
func NewHTTPServer(sc *ServerContext, config HTTPServerConfig) (*HTTPServer, error) {
	if sc == nil {
		return nil, fmt.Errorf("server context is required")
	}
	if config.Catalog == nil {
		return nil, fmt.Errorf("tool catalog is required")
	}
	if config.Addr == "" {
		config.Addr = DefaultHTTPAddr
	}
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = []string{"*"}
	}

	s := &HTTPServer{
		sc:      sc,
		catalog: config.Catalog,
		health:  NewHealthChecker(sc),
		addr:    config.Addr,
		logger:  sc.Logger(),
	}
	s.router = s.routes(config)
	return s, nil
}

func (s *HTTPServer) routes(config HTTPServerConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "HEAD"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Mcp-Session-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s.health.RegisterHealthEndpoints(r)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)

	r.Get("/", s.handleServerInfo)
	r.Get("/mcp/info", s.handleServerInfo)
	r.Get(MCPEndpoint, s.handleServerInfo)

	if config.MCPServer != nil {
		streamable := mcpserver.NewStreamableHTTPServer(config.MCPServer,
			mcpserver.WithEndpointPath(MCPEndpoint),
			mcpserver.WithStateLess(true),
		)
		r.Post(MCPEndpoint, streamable.ServeHTTP)
		r.Delete(MCPEndpoint, streamable.ServeHTTP)
	}

	r.Get("/tools", s.handleListOpenAITools)
	r.Get("/mcp/tools", s.handleListMCPTools)
	r.Get("/elevenlabs/tools", s.handleListElevenLabsTools)
	r.Get("/elevenlabs/webhook", s.handleWebhookInfo)

	// Routes that execute tools are rate limited per client IP.
	r.Group(func(r chi.Router) {
		if config.RateLimit > 0 {
			r.Use(httprate.LimitByIP(config.RateLimit, time.Minute))
		}
		r.Post("/", s.handleRootRPC)
		r.Post("/tools", s.handleToolsRPC)
		r.Post("/mcp/tools", s.handleToolsRPC)
		r.Post("/elevenlabs/webhook", s.handleWebhook)
	})

	return r
}

// Handler returns the HTTP handler of the server.
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

// HealthChecker returns the health checker behind /healthz and /readyz.
func (s *HTTPServer) HealthChecker() *HealthChecker {
	return s.health
}

// Addr returns the configured listen address.
func (s *HTTPServer) Addr() string {
	return s.addr
}

// Start listens and serves until Shutdown is called.
func (s *HTTPServer) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: DefaultHTTPReadHeaderTimeout,
		IdleTimeout:       DefaultHTTPIdleTimeout,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown marks the server as not ready and drains open connections.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// observe records request metrics and logs each request.
func (s *HTTPServer) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}

		s.sc.Metrics().RecordHTTPRequest(r.Context(), r.Method, route, status, duration)
		s.logger.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", route),
			slog.Int("status", status),
			slog.Duration("duration", duration),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
