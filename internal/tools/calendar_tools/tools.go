package calendar_tools

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/apptdesk/internal/server"
	"github.com/teemow/apptdesk/internal/tools/common"
)

// Tool names.
const (
	ToolCheckAvailability     = "check_availability"
	ToolBookAppointment       = "book_appointment"
	ToolCancelAppointment     = "cancel_appointment"
	ToolRescheduleAppointment = "reschedule_appointment"
	ToolGetAppointments       = "get_appointments"
	ToolFindNextAvailable     = "find_next_available"
)

// ErrUnknownTool is returned by Catalog.Call for names that were not registered.
var ErrUnknownTool = errors.New("unknown tool")

// Catalog holds the registered tools and their instrumented handlers.
type Catalog struct {
	tools    []mcp.Tool
	handlers map[string]common.ToolHandler
}

func newCatalog() *Catalog {
	return &Catalog{handlers: make(map[string]common.ToolHandler)}
}

// Tools returns the tool definitions in registration order.
func (c *Catalog) Tools() []mcp.Tool {
	out := make([]mcp.Tool, len(c.tools))
	copy(out, c.tools)
	return out
}

// Names returns the registered tool names, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.handlers))
	for name := range c.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a tool with name is registered.
func (c *Catalog) Has(name string) bool {
	_, ok := c.handlers[name]
	return ok
}

// Call invokes the named tool with args, as an MCP tools/call would.
func (c *Catalog) Call(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	handler, ok := c.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	if args == nil {
		args = map[string]any{}
	}
	return handler(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	})
}

func (c *Catalog) add(s *mcpserver.MCPServer, tool mcp.Tool, handler common.ToolHandler) {
	c.tools = append(c.tools, tool)
	c.handlers[tool.Name] = handler
	if s != nil {
		s.AddTool(tool, mcpserver.ToolHandlerFunc(handler))
	}
}

// RegisterCalendarTools registers the scheduling tools with the MCP server
// and returns them as a Catalog. s may be nil to build the catalog only.
func RegisterCalendarTools(s *mcpserver.MCPServer, sc *server.ServerContext) (*Catalog, error) {
	if sc == nil {
		return nil, fmt.Errorf("server context is required")
	}

	c := newCatalog()

	if err := registerAvailabilityTools(s, sc, c); err != nil {
		return nil, fmt.Errorf("failed to register availability tools: %w", err)
	}

	if err := registerAppointmentTools(s, sc, c); err != nil {
		return nil, fmt.Errorf("failed to register appointment tools: %w", err)
	}

	return c, nil
}

// failure renders err as the tool's error text, e.g. "Failed to book appointment: ...".
func failure(action string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: %v", action, err))
}
