package instrumentation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T, detailedLabels bool) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp.Meter("test"), detailedLabels)
	require.NoError(t, err)
	return m, reader
}

// collectSum returns the data points of the named Int64 sum.
func collectSum(t *testing.T, reader *sdkmetric.ManualReader, name string) []metricdata.DataPoint[int64] {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			return sum.DataPoints
		}
	}
	t.Fatalf("metric %s not found", name)
	return nil
}

func hasAttr(dp metricdata.DataPoint[int64], key, value string) bool {
	v, ok := dp.Attributes.Value(attribute.Key(key))
	return ok && v.AsString() == value
}

func TestMetrics_RecordHTTPRequest(t *testing.T) {
	m, reader := newTestMetrics(t, false)
	ctx := context.Background()

	m.RecordHTTPRequest(ctx, "POST", "/elevenlabs/webhook", 200, 10*time.Millisecond)
	m.RecordHTTPRequest(ctx, "POST", "/elevenlabs/webhook", 200, 20*time.Millisecond)
	m.RecordHTTPRequest(ctx, "GET", "/health", 500, time.Millisecond)

	points := collectSum(t, reader, "http_requests_total")
	require.Len(t, points, 2)
	for _, dp := range points {
		if hasAttr(dp, attrPath, "/elevenlabs/webhook") {
			assert.Equal(t, int64(2), dp.Value)
			assert.True(t, hasAttr(dp, attrStatus, "200"))
		}
	}
}

func TestMetrics_RecordCalendarAPIOperation(t *testing.T) {
	m, reader := newTestMetrics(t, false)
	ctx := context.Background()

	m.RecordCalendarAPIOperation(ctx, OperationList, StatusSuccess, 200*time.Millisecond)
	m.RecordCalendarAPIOperation(ctx, OperationCreate, StatusError, 500*time.Millisecond)

	points := collectSum(t, reader, "calendar_api_operations_total")
	assert.Len(t, points, 2)
}

func TestMetrics_RecordToolInvocation_CallerLabel(t *testing.T) {
	tests := []struct {
		name       string
		detailed   bool
		wantCaller bool
	}{
		{name: "caller omitted by default", detailed: false, wantCaller: false},
		{name: "caller added with detailed labels", detailed: true, wantCaller: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, reader := newTestMetrics(t, tt.detailed)
			m.RecordToolInvocation(context.Background(), "check_availability", CallerWebhook, StatusSuccess, time.Millisecond)

			points := collectSum(t, reader, "mcp_tool_invocations_total")
			require.Len(t, points, 1)
			assert.True(t, hasAttr(points[0], attrTool, "check_availability"))
			assert.Equal(t, tt.wantCaller, hasAttr(points[0], attrCaller, CallerWebhook))
		})
	}
}

func TestMetrics_RecordWebhookToolCall(t *testing.T) {
	m, reader := newTestMetrics(t, false)

	m.RecordWebhookToolCall(context.Background(), "book_appointment", StatusSuccess)
	m.RecordWebhookToolCall(context.Background(), "book_appointment", StatusSuccess)

	points := collectSum(t, reader, "webhook_tool_calls_total")
	require.Len(t, points, 1)
	assert.Equal(t, int64(2), points[0].Value)
}

func TestMetrics_RecordAppointment(t *testing.T) {
	m, reader := newTestMetrics(t, false)
	ctx := context.Background()

	m.RecordAppointment(ctx, ActionBooked)
	m.RecordAppointment(ctx, ActionCancelled)
	m.RecordAppointment(ctx, ActionBooked)

	points := collectSum(t, reader, "appointments_total")
	require.Len(t, points, 2)
	for _, dp := range points {
		if hasAttr(dp, attrAction, ActionBooked) {
			assert.Equal(t, int64(2), dp.Value)
		}
	}
}

func TestMetrics_NoOp_WhenDisabled(t *testing.T) {
	ctx := context.Background()

	provider, err := NewProvider(ctx, Config{
		ServiceName:    "test-service",
		ServiceVersion: "1.0.0",
		Enabled:        false,
	})
	require.NoError(t, err)

	metrics := provider.Metrics()
	require.NotNil(t, metrics)

	// None of these may panic with nil instruments
	metrics.RecordHTTPRequest(ctx, "GET", "/mcp", 200, 100*time.Millisecond)
	metrics.RecordCalendarAPIOperation(ctx, OperationList, StatusSuccess, 200*time.Millisecond)
	metrics.RecordToolInvocation(ctx, "test_tool", CallerMCP, StatusSuccess, 100*time.Millisecond)
	metrics.RecordWebhookToolCall(ctx, "test_tool", StatusError)
	metrics.RecordAppointment(ctx, ActionRescheduled)
	metrics.RecordSlotSearch(ctx, 3, true)

	var nilMetrics *Metrics
	nilMetrics.RecordSlotSearch(ctx, 1, false)
}
