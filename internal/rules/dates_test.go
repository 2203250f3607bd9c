package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlexibleDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{"iso date", "2025-01-15", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), false},
		{"day first slashes", "15/1/2025", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), false},
		{"day first dashes", "15-01-2025", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), false},
		{"two digit year means 20xx", "5/3/25", time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), false},
		{"surrounding whitespace", "  2025-06-01 ", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), false},
		{"rfc3339 timestamp", "2025-01-15T10:30:00Z", time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC), false},
		{"empty", "", time.Time{}, true},
		{"garbage", "next tuesday", time.Time{}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseFlexibleDate(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got), "want %s got %s", tc.want, got)
		})
	}
}
