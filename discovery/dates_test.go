package discovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseDate verifies supported layouts and the regex fallback
func TestParseDate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want time.Time
	}{
		{name: "iso date", text: "2024-03-15", want: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{name: "iso datetime", text: "2024-03-15T08:30:00", want: time.Date(2024, 3, 15, 8, 30, 0, 0, time.UTC)},
		{name: "space datetime", text: "2024-03-15 08:30:00", want: time.Date(2024, 3, 15, 8, 30, 0, 0, time.UTC)},
		{name: "day first", text: "05/03/2024", want: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{name: "month first when day first is impossible", text: "03/15/2024", want: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{name: "long month", text: "March 15, 2024", want: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{name: "short month", text: "Mar 15, 2024", want: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{name: "rfc3339", text: "2024-03-15T08:30:00Z", want: time.Date(2024, 3, 15, 8, 30, 0, 0, time.UTC)},
		{name: "embedded iso", text: "Published on 2024-03-15 by staff", want: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{name: "embedded long", text: "Updated: March 5, 2024", want: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{name: "extra whitespace", text: "  March   5,\n 2024 ", want: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDate(tt.text)
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "got %s", got)
		})
	}
}

// TestParseDate_Unparseable verifies nil for non-dates
func TestParseDate_Unparseable(t *testing.T) {
	for _, text := range []string{"", "   ", "yesterday", "2024-13-45"} {
		assert.Nil(t, ParseDate(text), text)
	}
}
