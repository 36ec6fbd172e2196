package common

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/teemow/apptdesk/internal/calendar"
)

// Layouts of date and time arguments.
const (
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04"
	DateTimeLayout = DateLayout + " " + TimeLayout
)

// OptionalString returns args[key] as a trimmed string, or def when absent or empty.
func OptionalString(args map[string]any, key, def string) string {
	v, ok := args[key]
	if !ok || v == nil {
		return def
	}
	var s string
	switch val := v.(type) {
	case string:
		s = val
	case fmt.Stringer:
		s = val.String()
	default:
		s = fmt.Sprint(val)
	}
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

// OptionalInt returns args[key] as an integer. JSON numbers and numeric
// strings are accepted since voice platforms send numbers as text.
func OptionalInt(args map[string]any, key string, def int) (int, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return def, nil
	}

	invalid := &calendar.ValidationError{Field: key, Reason: "must be an integer"}

	switch val := v.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case float64:
		if val != math.Trunc(val) || math.IsInf(val, 0) {
			return 0, invalid
		}
		return int(val), nil
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return 0, invalid
		}
		return int(n), nil
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return def, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, invalid
		}
		return n, nil
	default:
		return 0, invalid
	}
}

// ParseDate parses a YYYY-MM-DD value as midnight in loc.
func ParseDate(field, value string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, value, loc)
	if err != nil {
		return time.Time{}, &calendar.ValidationError{Field: field, Reason: "must be a date in YYYY-MM-DD format"}
	}
	return t, nil
}

// ParseDateTime combines a YYYY-MM-DD date and an HH:MM time in loc.
func ParseDateTime(dateField, date, timeField, clock string, loc *time.Location) (time.Time, error) {
	if _, err := ParseDate(dateField, date, loc); err != nil {
		return time.Time{}, err
	}
	t, err := time.ParseInLocation(DateTimeLayout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, &calendar.ValidationError{Field: timeField, Reason: "must be a time in HH:MM format"}
	}
	return t, nil
}
