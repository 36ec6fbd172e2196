// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for the apptdesk server.
//
// # Metrics
//
// Server/HTTP:
//   - http_requests_total: requests by method, path and status
//   - http_request_duration_seconds: request durations
//
// Calendar provider:
//   - calendar_api_operations_total: provider calls by operation and status
//   - calendar_api_operation_duration_seconds: provider call durations
//
// Scheduling:
//   - mcp_tool_invocations_total / mcp_tool_duration_seconds: tool calls by tool and status
//   - webhook_tool_calls_total: entries of voice agent tool_calls batches
//   - appointments_total: bookings, cancellations and reschedules
//   - availability_slot_search_queries: calendar queries per next-slot search
//
// # Tracing
//
// Tool invocations get a server span named tool.<name>; every calendar
// provider call gets a client span named calendar.<operation>.
//
// # Configuration
//
// Configuration comes from the environment:
//   - INSTRUMENTATION_ENABLED (default: true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE
//   - OTEL_TRACES_SAMPLER_ARG (default: 0.1)
//   - OTEL_SERVICE_NAME (default: apptdesk)
//   - AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_PII
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordToolInvocation(ctx, "check_availability", instrumentation.CallerMCP, "success", time.Since(start))
package instrumentation
