package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/apptdesk/internal/logging"
)

// ToolInvocation captures one tool call for the audit trail.
//
// PatientEmail is PII. LogAttrs reduces it to a domain and a hash; only
// LogAuditAttrs emits it in full.
type ToolInvocation struct {
	Tool   string
	Caller string // mcp, webhook, jsonrpc or cli

	PatientEmail  string
	AppointmentID string
	Operation     string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewToolInvocation creates a new ToolInvocation with timing started.
// Call Complete when the tool finishes.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		StartTime: time.Now(),
	}
}

// PatientDomain returns the domain of the patient email.
func (ti *ToolInvocation) PatientDomain() string {
	return ExtractUserDomain(ti.PatientEmail)
}

// Status returns "success" or "error" based on the Success field.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

func (ti *ToolInvocation) WithCaller(caller string) *ToolInvocation {
	ti.Caller = caller
	return ti
}

func (ti *ToolInvocation) WithPatient(email string) *ToolInvocation {
	ti.PatientEmail = email
	return ti
}

func (ti *ToolInvocation) WithAppointment(id string) *ToolInvocation {
	ti.AppointmentID = id
	return ti
}

func (ti *ToolInvocation) WithOperation(operation string) *ToolInvocation {
	ti.Operation = operation
	return ti
}

// WithSpanContext copies the trace and span IDs from the span in ctx.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.IsValid() {
		ti.TraceID = sc.TraceID().String()
		ti.SpanID = sc.SpanID().String()
	}
	return ti
}

// Complete marks the invocation as finished and records its duration.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// LogAttrs returns attributes safe for operational logs.
func (ti *ToolInvocation) LogAttrs() []slog.Attr {
	attrs := ti.baseAttrs()
	if ti.PatientEmail != "" {
		attrs = append(attrs,
			slog.String("patient_domain", ti.PatientDomain()),
			logging.UserHash(ti.PatientEmail),
		)
	}
	return ti.appendOptional(attrs, false)
}

// LogAuditAttrs returns attributes for the audit stream, including the full
// patient email. Audit logs must be stored with access controls.
func (ti *ToolInvocation) LogAuditAttrs() []slog.Attr {
	attrs := ti.baseAttrs()
	if ti.PatientEmail != "" {
		attrs = append(attrs, slog.String("patient", ti.PatientEmail))
	}
	return ti.appendOptional(attrs, true)
}

func (ti *ToolInvocation) baseAttrs() []slog.Attr {
	return []slog.Attr{
		logging.Tool(ti.Tool),
		slog.Duration(logging.KeyDuration, ti.Duration),
		slog.Bool("success", ti.Success),
	}
}

func (ti *ToolInvocation) appendOptional(attrs []slog.Attr, withSpan bool) []slog.Attr {
	if ti.Caller != "" {
		attrs = append(attrs, slog.String("caller", ti.Caller))
	}
	if ti.Operation != "" {
		attrs = append(attrs, logging.Operation(ti.Operation))
	}
	if ti.AppointmentID != "" {
		attrs = append(attrs, slog.String("appointment_id", ti.AppointmentID))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if withSpan && ti.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ti.SpanID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String(logging.KeyError, ti.Error))
	}
	return attrs
}

// AuditLogger writes tool invocations to a structured log.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates an AuditLogger. A nil logger uses slog.Default().
func NewAuditLogger(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// LogToolInvocation logs ti as "tool_executed" or "tool_failed". Patient
// emails are only included when the logger was configured with IncludePII.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}

	var attrs []slog.Attr
	if al.includePII {
		attrs = ti.LogAuditAttrs()
	} else {
		attrs = ti.LogAttrs()
	}

	if ti.Success {
		al.logger.LogAttrs(context.Background(), slog.LevelInfo, "tool_executed", attrs...)
	} else {
		al.logger.LogAttrs(context.Background(), slog.LevelWarn, "tool_failed", attrs...)
	}
}
