package calendar

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

var (
	// ErrUpstreamUnavailable means the calendar provider could not be reached
	// or answered with a server error.
	ErrUpstreamUnavailable = errors.New("calendar provider unavailable")

	// ErrUpstreamRejected means the provider refused the request.
	ErrUpstreamRejected = errors.New("calendar provider rejected the request")

	// ErrNotFound means the requested event does not exist.
	ErrNotFound = errors.New("appointment not found")
)

// ValidationError reports a missing or malformed parameter.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// classifyError maps a Google API error onto one of the gateway error kinds.
// The original error stays in the chain.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrUpstreamRejected) || errors.Is(err, ErrUpstreamUnavailable) || IsValidation(err) {
		return err
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	switch {
	case gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone:
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case gerr.Code >= 400 && gerr.Code < 500:
		return fmt.Errorf("%w: %w", ErrUpstreamRejected, err)
	default:
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
}
