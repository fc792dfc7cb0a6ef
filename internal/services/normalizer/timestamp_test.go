package normalizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 5, 1, 12, 30, 15, 0, time.UTC)

	tests := []struct {
		name  string
		value any
		want  time.Time
		ok    bool
	}{
		{"unix seconds int", int(1714566615), want, true},
		{"unix seconds int64", int64(1714566615), want, true},
		{"unix millis int64", int64(1714566615000), want, true},
		{"unix seconds float", float64(1714566615), want, true},
		{"unix millis float", float64(1714566615000), want, true},
		{"digit string seconds", "1714566615", want, true},
		{"digit string millis", "1714566615000", want, true},
		{"iso with zone", "2024-05-01T12:30:15Z", want, true},
		{"iso with offset", "2024-05-01T14:30:15+02:00", want, true},
		{"iso without zone", "2024-05-01T12:30:15", want, true},
		{"space separated", "2024-05-01 12:30:15", want, true},
		{"dash separated", "2024-05-01-12-30-15", want, true},
		{"time.Time passthrough", want, want, true},
		{"nil", nil, time.Time{}, false},
		{"empty string", "", time.Time{}, false},
		{"garbage", "not-a-time", time.Time{}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseTimestamp(tc.value)
			require.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.True(t, tc.want.Equal(got), "want %s got %s", tc.want, got)
			}
		})
	}
}

func TestParseTimestampFractionalMillis(t *testing.T) {
	got, ok := ParseTimestamp(float64(1714566615500))
	require.True(t, ok)
	assert.Equal(t, int64(1714566615), got.Unix())
	assert.InDelta(t, 500_000_000, got.Nanosecond(), 1_000_000)
}
