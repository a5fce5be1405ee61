package quarter

import (
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/wfc-ingest/internal/types"
)

func TestLabelFor(t *testing.T) {
	tests := []struct {
		fileName string
		want     string
	}{
		{"WFC-2023-05-15.csv", "Q4 2022/23"},
		{"WFC-2023-08-01.csv", "Q1 2023/24"},
		{"WFC-2023-11-30.csv", "Q2 2023/24"},
		{"WFC-2024-02-01.csv", "Q3 2023/24"},
		{"WFC-2024-04-01.csv", "Q4 2023/24"},
		{"WFC-2024-06-30.csv", "Q4 2023/24"},
		{"WFC-2024-07-01.csv", "Q1 2024/25"},
		{"WFC-2024-09-30.csv", "Q1 2024/25"},
		{"WFC-2024-10-01.csv", "Q2 2024/25"},
		{"WFC-2025-01-01.csv", "Q3 2024/25"},
		{"WFC-2025-03-31.csv", "Q3 2024/25"},
		{"WFC - 1 August 2023.csv", "Q1 2023/24"},
		{"WFC - August 2023.csv", "Q1 2023/24"},
		{"WFC - 15/05/2023.csv", "Q4 2022/23"},
		{"WFC-2023-05.CSV", "Q4 2022/23"},
		{"WFC-2099-12-01.csv", "Q2 2099/00"},
		{"WFC-2023-08-01.xlsx", "Q1 2023/24"},
	}

	for _, tt := range tests {
		t.Run(tt.fileName, func(t *testing.T) {
			got, err := LabelFor(tt.fileName)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLabelFor_Malformed(t *testing.T) {
	names := []string{
		"WFC.csv",
		"WFC-.csv",
		"WFC-latest.csv",
		"WFC-2023-13-01.csv",
		"",
	}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			_, err := LabelFor(name)
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrMalformedFileName))

			kind, ok := types.KindOf(err)
			require.True(t, ok)
			assert.Equal(t, types.KindParse, kind)
			assert.True(t, types.IsFileScoped(err))
		})
	}
}

func TestForDate_CoversEveryMonth(t *testing.T) {
	want := map[time.Month]Label{
		time.January:   {3, 2023},
		time.February:  {3, 2023},
		time.March:     {3, 2023},
		time.April:     {4, 2023},
		time.May:       {4, 2023},
		time.June:      {4, 2023},
		time.July:      {1, 2024},
		time.August:    {1, 2024},
		time.September: {1, 2024},
		time.October:   {2, 2024},
		time.November:  {2, 2024},
		time.December:  {2, 2024},
	}

	for month, label := range want {
		got := ForDate(time.Date(2024, month, 15, 0, 0, 0, 0, time.UTC))
		assert.Equal(t, label, got, month.String())
	}
}

func TestParse(t *testing.T) {
	l, err := Parse("Q1 2023/24")
	require.NoError(t, err)
	assert.Equal(t, Label{Quarter: 1, Year: 2023}, l)

	for _, bad := range []string{"Q5 2023/24", "Q1 2023/25", "Q1 2023-24", "q1 2023/24", ""} {
		_, err := Parse(bad)
		assert.Error(t, err, bad)
	}
}

func TestLess(t *testing.T) {
	assert.True(t, Less("Q4 2022/23", "Q1 2023/24"))
	assert.False(t, Less("Q1 2024/25", "Q4 2022/23"))
	assert.True(t, Less("Q1 2023/24", "Q2 2023/24"))
	assert.False(t, Less("Q1 2023/24", "Q1 2023/24"))
	assert.True(t, Less("Q1 2023/24", "unlabelled"), "unparsable labels fall back to text order")
}
