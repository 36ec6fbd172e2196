package instrumentation

import "context"

type callerKey struct{}

// WithCaller records which surface (mcp, webhook, jsonrpc, cli) invoked a tool.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFromContext returns the caller stored by WithCaller, CallerMCP if none.
func CallerFromContext(ctx context.Context) string {
	if caller, ok := ctx.Value(callerKey{}).(string); ok && caller != "" {
		return caller
	}
	return CallerMCP
}
