package workbook

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/wfc-ingest/internal/canonical"
	"github.com/ginjaninja78/wfc-ingest/internal/types"
)

func TestToCSV(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Department", "ALB, Agency or Organisation", "FTE (Person)"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"Cabinet Office", "GDS", 1.5}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	out, err := ToCSV(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "Department,\"ALB, Agency or Organisation\",FTE (Person)\nCabinet Office,GDS,1.5\n", string(out))
}

func TestToCSV_NotAWorkbook(t *testing.T) {
	_, err := ToCSV(bytes.NewReader([]byte("Department,FTE\n")))
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	at := time.Date(2023, 8, 2, 9, 30, 15, 0, time.UTC)
	records := []types.IngestedRecord{
		{
			Department: canonical.HMT, Quarter: "Q1 2023/24", Source: "WFC", Classification: "Department",
			Permanent:  decimal.NullDecimal{Decimal: decimal.RequireFromString("3"), Valid: true},
			IngestedAt: at,
		},
		{
			Department: canonical.CO, Quarter: "Q1 2023/24", Source: "WFC", Classification: "Department",
			Permanent:   decimal.NullDecimal{Decimal: decimal.RequireFromString("12.5"), Valid: true},
			VacancyRate: decimal.NullDecimal{Decimal: decimal.RequireFromString("10.0"), Valid: true},
			IngestedAt:  at,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, records))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, types.CodeSource, rows[0][0])
	assert.Equal(t, types.CodeVacancyRate, rows[0][7])
	assert.Equal(t, "Department", rows[1][2])

	assert.Equal(t, "CO", rows[2][2], "rows are ordered by department")
	assert.Equal(t, "2023-08-02 09:30:15", rows[2][1])
	assert.Equal(t, "12.5", rows[2][5])
	assert.Equal(t, "", rows[2][6])
	assert.Equal(t, "10", rows[2][7])

	assert.Equal(t, "HMT", rows[3][2])
}

func TestExport_QuartersInChronologicalOrder(t *testing.T) {
	records := []types.IngestedRecord{
		{Department: canonical.CO, Quarter: "Q1 2024/25", Source: "WFC"},
		{Department: canonical.CO, Quarter: "Q4 2022/23", Source: "WFC"},
		{Department: canonical.CO, Quarter: "Q2 2023/24", Source: "WFC"},
	}

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, records))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 5)

	assert.Equal(t, "Q4 2022/23", rows[2][3])
	assert.Equal(t, "Q2 2023/24", rows[3][3])
	assert.Equal(t, "Q1 2024/25", rows[4][3])
}
