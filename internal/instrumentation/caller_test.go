package instrumentation

import (
	"context"
	"testing"
)

func TestCallerFromContext(t *testing.T) {
	if got := CallerFromContext(context.Background()); got != CallerMCP {
		t.Errorf("CallerFromContext() = %q, want %q", got, CallerMCP)
	}

	ctx := WithCaller(context.Background(), CallerWebhook)
	if got := CallerFromContext(ctx); got != CallerWebhook {
		t.Errorf("CallerFromContext() = %q, want %q", got, CallerWebhook)
	}

	ctx = WithCaller(context.Background(), "")
	if got := CallerFromContext(ctx); got != CallerMCP {
		t.Errorf("CallerFromContext() with empty caller = %q, want %q", got, CallerMCP)
	}
}
