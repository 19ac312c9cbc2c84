package parse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silverpulse/heat/internal/contracts"
)

func TestDate(t *testing.T) {
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	for _, in := range []string{
		"2024-03-05",
		" 2024-03-05 ",
		"2024-03-05T16:30:00-05:00",
		"03/05/2024",
		"3/5/2024",
		"2024.03.05",
		"20240305",
		"240305",
		"Mar 5, 2024",
	} {
		got, err := Date(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := Date("last tuesday")
	assert.Error(t, err)
}

func TestNumber(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"1,234.5", 1234.5, false},
		{"12.5%", 12.5, false},
		{"$3", 3, false},
		{"+7", 7, false},
		{"(250)", -250, false},
		{"-0.75", -0.75, false},
		{"", 0, true},
		{"-", 0, true},
		{"n/a", 0, true},
		{"NaN", 0, true},
		{"Inf", 0, true},
	}

	for _, tt := range tests {
		got, err := Number(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestColumns(t *testing.T) {
	header := []string{"\ufeffMarket_and_Exchange_Names", " Report_Date_as_YYYY-MM-DD", "NONREPT_LONG_ALL"}

	cols, err := Columns(header, map[string][]string{
		"market": {"Market_and_Exchange_Names"},
		"date":   {"As_of_Date_In_Form_YYMMDD", "Report_Date_as_YYYY-MM-DD"},
		"long":   {"NonRept_Positions_Long_All", "NonRept_Long_All"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"market": 0, "date": 1, "long": 2}, cols)

	_, err = Columns(header, map[string][]string{
		"short": {"NonRept_Short_All"},
		"oi":    {"Open_Interest_All"},
	})
	assert.ErrorIs(t, err, ErrColumnNotFound)
	assert.Contains(t, err.Error(), "oi, short")
}

func TestSeries(t *testing.T) {
	d := func(day int) time.Time { return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC) }

	s := Series(contracts.SeriesFlow, []contracts.Point{
		{Date: d(3), Value: 3},
		{Date: d(1), Value: 1},
		{Date: d(2), Value: 2},
		{Date: d(2), Value: 22},
	})

	require.NoError(t, s.Validate())
	assert.Equal(t, contracts.SeriesFlow, s.Name)
	assert.Equal(t, []float64{1, 22, 3}, s.Values())
}
