package calendar

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	calendar "google.golang.org/api/calendar/v3"
)

func TestTimeWindow_Validate(t *testing.T) {
	base := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		window    TimeWindow
		wantField string
	}{
		{name: "valid", window: TimeWindow{Start: base, End: base.Add(time.Hour)}},
		{name: "missing start", window: TimeWindow{End: base}, wantField: "start"},
		{name: "missing end", window: TimeWindow{Start: base}, wantField: "end"},
		{name: "empty window", window: TimeWindow{Start: base, End: base}, wantField: "end"},
		{name: "reversed window", window: TimeWindow{Start: base.Add(time.Hour), End: base}, wantField: "end"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.window.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestTimeWindow_Overlaps(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2025, 1, 15, h, m, 0, 0, time.UTC) }
	window := TimeWindow{Start: at(10, 0), End: at(11, 0)}

	assert.True(t, window.Overlaps(at(10, 30), at(11, 30)))
	assert.True(t, window.Overlaps(at(9, 0), at(12, 0)))
	assert.False(t, window.Overlaps(at(11, 0), at(12, 0)), "touching at end")
	assert.False(t, window.Overlaps(at(9, 0), at(10, 0)), "touching at start")
	assert.Equal(t, time.Hour, window.Duration())
}

func TestToEventInterval(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	t.Run("nil event", func(t *testing.T) {
		_, ok := toEventInterval(nil, time.UTC)
		assert.False(t, ok)
	})

	t.Run("all-day event uses location", func(t *testing.T) {
		interval, ok := toEventInterval(&calendar.Event{
			Id:    "x",
			Start: &calendar.EventDateTime{Date: "2025-01-15"},
			End:   &calendar.EventDateTime{Date: "2025-01-16"},
		}, berlin)
		require.True(t, ok)
		assert.True(t, interval.Start.Equal(time.Date(2025, 1, 15, 0, 0, 0, 0, berlin)))
		assert.True(t, interval.End.Equal(time.Date(2025, 1, 16, 0, 0, 0, 0, berlin)))
	})

	t.Run("missing end collapses to start", func(t *testing.T) {
		interval, ok := toEventInterval(&calendar.Event{
			Start: &calendar.EventDateTime{DateTime: "2025-01-15T10:00:00+01:00"},
		}, time.UTC)
		require.True(t, ok)
		assert.True(t, interval.Start.Equal(interval.End))
	})

	t.Run("malformed start", func(t *testing.T) {
		_, ok := toEventInterval(&calendar.Event{
			Start: &calendar.EventDateTime{DateTime: "yesterday"},
		}, time.UTC)
		assert.False(t, ok)
	})
}
