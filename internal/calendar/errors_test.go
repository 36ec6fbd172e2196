package calendar

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "not found", err: &googleapi.Error{Code: http.StatusNotFound}, want: ErrNotFound},
		{name: "gone", err: &googleapi.Error{Code: http.StatusGone}, want: ErrNotFound},
		{name: "forbidden", err: &googleapi.Error{Code: http.StatusForbidden}, want: ErrUpstreamRejected},
		{name: "unauthorized", err: &googleapi.Error{Code: http.StatusUnauthorized}, want: ErrUpstreamRejected},
		{name: "server error", err: &googleapi.Error{Code: http.StatusServiceUnavailable}, want: ErrUpstreamUnavailable},
		{name: "transport error", err: errors.New("connection refused"), want: ErrUpstreamUnavailable},
		{name: "wrapped api error", err: fmt.Errorf("call: %w", &googleapi.Error{Code: http.StatusConflict}), want: ErrUpstreamRejected},
		{name: "already classified", err: fmt.Errorf("%w: x", ErrNotFound), want: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyError(tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err)
		})
	}

	assert.NoError(t, classifyError(nil))
}

func TestClassifyError_KeepsValidation(t *testing.T) {
	verr := &ValidationError{Field: "date", Reason: "is required"}
	got := classifyError(verr)
	assert.True(t, IsValidation(got))
	assert.False(t, errors.Is(got, ErrUpstreamUnavailable))
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Field: "duration", Reason: "must be positive"}
	assert.Equal(t, "duration must be positive", err.Error())
}
