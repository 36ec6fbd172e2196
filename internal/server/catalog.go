package server

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// ToolCatalog is the set of tools the HTTP routes can list and call by name.
type ToolCatalog interface {
	Tools() []mcp.Tool
	Has(name string) bool
	Call(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
}

// ResultText returns the concatenated text content of a tool result.
func ResultText(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	var text string
	for _, content := range result.Content {
		switch tc := content.(type) {
		case mcp.TextContent:
			text += tc.Text
		case *mcp.TextContent:
			text += tc.Text
		}
	}
	return text
}
