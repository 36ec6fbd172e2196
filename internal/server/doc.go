// Package server provides the server context and the HTTP surface of the
// appointment desk.
//
// # Key Components
//
// ServerContext carries the configuration, the time zone and the clock used
// by the tools. It hands out one calendar gateway per request: the shared
// in-memory calendar for the memory backend, or a Google Calendar client built
// on a token source that is refreshed from the configured credentials.
//
// HTTPServer exposes the tools to three kinds of clients:
//   - MCP clients over the streamable HTTP transport at /mcp
//   - Legacy JSON-RPC clients at /, /tools and /mcp/tools
//   - Voice agents through the ElevenLabs webhook at /elevenlabs/webhook
//
// Tool listings are available in OpenAI function format (/tools), as a
// JSON-RPC envelope (/mcp/tools) and as a plain list (/elevenlabs/tools).
//
// HealthChecker answers the Kubernetes probes (/healthz, /readyz) and
// MetricsServer serves the Prometheus scrape endpoint on a separate port.
package server
