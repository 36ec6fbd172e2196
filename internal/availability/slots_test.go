package availability

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/apptdesk/internal/calendar"
)

func at(h, m int) time.Time {
	return time.Date(2025, 1, 15, h, m, 0, 0, time.UTC)
}

func startTimes(slots []Slot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Start.Format("15:04")
	}
	return out
}

func TestEnumerateSlots(t *testing.T) {
	tests := []struct {
		name     string
		window   calendar.TimeWindow
		duration int
		busy     []calendar.EventInterval
		want     []string
	}{
		{
			name:     "free two-hour window",
			window:   calendar.TimeWindow{Start: at(9, 0), End: at(11, 0)},
			duration: 60,
			want:     []string{"09:00", "09:30", "10:00"},
		},
		{
			name:     "busy interval overlapping every candidate",
			window:   calendar.TimeWindow{Start: at(9, 0), End: at(11, 0)},
			duration: 60,
			busy:     []calendar.EventInterval{{Start: at(9, 30), End: at(10, 30)}},
			want:     []string{},
		},
		{
			name:     "busy interval touching slot edges",
			window:   calendar.TimeWindow{Start: at(9, 0), End: at(12, 0)},
			duration: 60,
			busy:     []calendar.EventInterval{{Start: at(10, 0), End: at(11, 0)}},
			want:     []string{"09:00", "11:00"},
		},
		{
			name:     "unsorted busy intervals",
			window:   calendar.TimeWindow{Start: at(9, 0), End: at(12, 0)},
			duration: 30,
			busy: []calendar.EventInterval{
				{Start: at(11, 0), End: at(11, 30)},
				{Start: at(9, 0), End: at(9, 30)},
			},
			want: []string{"09:30", "10:00", "10:30", "11:30"},
		},
		{
			name:     "duration longer than window",
			window:   calendar.TimeWindow{Start: at(9, 0), End: at(9, 45)},
			duration: 60,
			want:     []string{},
		},
		{
			name:     "window not aligned to half hour",
			window:   calendar.TimeWindow{Start: at(9, 15), End: at(10, 45)},
			duration: 45,
			want:     []string{"09:15", "09:45"},
		},
		{
			name:     "busy interval outside window is ignored",
			window:   calendar.TimeWindow{Start: at(9, 0), End: at(10, 0)},
			duration: 30,
			busy:     []calendar.EventInterval{{Start: at(13, 0), End: at(14, 0)}},
			want:     []string{"09:00", "09:30"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots, err := EnumerateSlots(tt.window, tt.duration, tt.busy)
			require.NoError(t, err)
			assert.Equal(t, tt.want, startTimes(slots))
			for _, s := range slots {
				assert.Equal(t, tt.duration, s.DurationMinutes)
				assert.False(t, s.End().After(tt.window.End), "slot must fit in the window")
			}
		})
	}
}

func TestEnumerateSlots_InvalidDuration(t *testing.T) {
	window := calendar.TimeWindow{Start: at(9, 0), End: at(11, 0)}

	tests := []struct {
		name     string
		duration int
	}{
		{"zero", 0},
		{"negative", -30},
		{"wraps time.Duration", 200_000_000},
		{"max int", math.MaxInt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots, err := EnumerateSlots(window, tt.duration, nil)
			require.Error(t, err)
			assert.True(t, calendar.IsValidation(err))
			assert.Empty(t, slots)
		})
	}
}

func TestEnumerateSlots_DurationBeyondWindow(t *testing.T) {
	window := calendar.TimeWindow{Start: at(9, 0), End: at(11, 0)}

	// A full year still fits in a time.Duration but never fits the window.
	slots, err := EnumerateSlots(window, 365*24*60, nil)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestEnumerateSlots_CountOnFreeWindow(t *testing.T) {
	window := calendar.TimeWindow{Start: at(8, 0), End: at(18, 0)}

	for _, duration := range []int{15, 30, 45, 60, 90, 120, 600} {
		slots, err := EnumerateSlots(window, duration, nil)
		require.NoError(t, err)

		free := window.Duration() - time.Duration(duration)*time.Minute
		want := int(free/SlotStep) + 1
		assert.Len(t, slots, want, "duration %d", duration)
	}
}

func TestEnumerateSlots_SingleConflictRemovesOneStep(t *testing.T) {
	window := calendar.TimeWindow{Start: at(9, 0), End: at(17, 0)}
	all, err := EnumerateSlots(window, 30, nil)
	require.NoError(t, err)

	for i, candidate := range all {
		busy := []calendar.EventInterval{{Start: candidate.Start, End: candidate.End()}}
		remaining, err := EnumerateSlots(window, 30, busy)
		require.NoError(t, err)
		require.Len(t, remaining, len(all)-1)
		for _, s := range remaining {
			assert.False(t, s.Start.Equal(all[i].Start))
		}
	}
}

func TestEnumerateSlots_Idempotent(t *testing.T) {
	window := calendar.TimeWindow{Start: at(9, 0), End: at(17, 0)}
	busy := []calendar.EventInterval{{Start: at(12, 0), End: at(13, 15)}}

	first, err := EnumerateSlots(window, 60, busy)
	require.NoError(t, err)
	second, err := EnumerateSlots(window, 60, busy)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEnumerateSlots_Validation(t *testing.T) {
	valid := calendar.TimeWindow{Start: at(9, 0), End: at(10, 0)}

	tests := []struct {
		name      string
		window    calendar.TimeWindow
		duration  int
		wantField string
	}{
		{name: "zero duration", window: valid, duration: 0, wantField: "duration"},
		{name: "negative duration", window: valid, duration: -30, wantField: "duration"},
		{name: "empty window", window: calendar.TimeWindow{Start: at(9, 0), End: at(9, 0)}, duration: 30, wantField: "end"},
		{name: "reversed window", window: calendar.TimeWindow{Start: at(10, 0), End: at(9, 0)}, duration: 30, wantField: "end"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EnumerateSlots(tt.window, tt.duration, nil)
			var verr *calendar.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}
