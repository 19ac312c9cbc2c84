package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silverpulse/heat/internal/contracts"
)

func TestFilterTrend(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	var evals []*contracts.Evaluation
	for d := 1; d <= 5; d++ {
		evals = append(evals, &contracts.Evaluation{AsOf: day(d), Heat: 10 + d})
	}

	tests := []struct {
		name     string
		from, to time.Time
		limit    int
		want     []int
	}{
		{"all", time.Time{}, time.Time{}, 0, []int{11, 12, 13, 14, 15}},
		{"inclusive bounds", day(2), day(4), 0, []int{12, 13, 14}},
		{"limit keeps most recent", time.Time{}, time.Time{}, 2, []int{14, 15}},
		{"empty range", day(6), time.Time{}, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filterTrend(evals, tt.from, tt.to, tt.limit)
			var heats []int
			for _, e := range got {
				heats = append(heats, e.Heat)
			}
			assert.Equal(t, tt.want, heats)
		})
	}
}

func TestParseDateFlag(t *testing.T) {
	got, err := parseDateFlag("from", "")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	got, err = parseDateFlag("from", "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), got)

	_, err = parseDateFlag("to", "03/01/2024")
	assert.ErrorContains(t, err, "--to")
}
