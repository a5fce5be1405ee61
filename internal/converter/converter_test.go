package converter

import (
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ginjaninja78/wfc-ingest/internal/canonical"
	"github.com/ginjaninja78/wfc-ingest/internal/config"
	"github.com/ginjaninja78/wfc-ingest/internal/types"
)

var (
	testSettings = config.CSVSettings{Delimiter: ",", HeaderRows: 1, DataStartRow: 2}
	fixedNow     = time.Date(2023, 8, 2, 9, 30, 15, 500, time.UTC)
)

func testPreparer() Preparer {
	return Preparer{
		Source:         "WFC",
		Classification: "Department",
		Clock:          func() time.Time { return fixedNow },
	}
}

const header = `Department,"ALB, Agency, Business Unit or Organisation",Profession,Employment Type,Role Status,FTE (Person)`

func payload(lines ...string) []byte {
	return []byte(header + "\n" + strings.Join(lines, "\n") + "\n")
}

func TestRun_ComputesRecords(t *testing.T) {
	c := New(testSettings, testPreparer(), zap.NewNop())

	result, err := c.Run("WFC-2023-08-01.csv", "Q1 2023/24", payload(
		`Cabinet Office,Cabinet Office,"Digital, Data and Technology",Permanent,Filled,60`,
		`Cabinet Office,Cabinet Office,"Digital, Data and Technology",Temporary,Filled,30`,
		`Cabinet Office,Cabinet Office,"Digital, Data and Technology",Permanent,Vacancy,10`,
		`Cabinet Office,Cabinet Office,Policy,Permanent,Filled,500`,
		`Department for Transport,Driver and Vehicle Standards Agency,"Digital, Data and Technology",Fixed term,Filled,4`,
		`Food Standards Agency,FSA,"Digital, Data and Technology",Permanent,Filled,9`,
	))
	require.NoError(t, err)

	require.Len(t, result.Records, 2)
	assert.Equal(t, 6, result.Stats.RowsRead)
	assert.Equal(t, 4, result.Stats.RowsKept)
	assert.Equal(t, 1, result.Stats.RowsDropped)

	co := result.Records[0]
	assert.Equal(t, canonical.CO, co.Department)
	assert.Equal(t, "60", co.Permanent.Decimal.String())
	assert.Equal(t, "30", co.Temporary.Decimal.String())
	assert.Equal(t, "10.0", co.VacancyRate.Decimal.StringFixed(1))
	assert.Equal(t, "Q1 2023/24", co.Quarter)
	assert.Equal(t, "WFC", co.Source)
	assert.Equal(t, "Department", co.Classification)
	assert.Equal(t, fixedNow.Truncate(time.Second), co.IngestedAt)

	dvsa := result.Records[1]
	assert.Equal(t, canonical.DVSA, dvsa.Department)
	assert.Equal(t, "4", dvsa.Permanent.Decimal.String())
	assert.False(t, dvsa.Temporary.Valid)
	assert.False(t, dvsa.VacancyRate.Valid)
}

func TestRun_AlternativeALBHeader(t *testing.T) {
	c := New(testSettings, testPreparer(), nil)
	data := "\xEF\xBB\xBFDepartment,\"ALB, Agency or Organisation\",Profession,Employment Type,Role Status,FTE (Person)\n" +
		`DfE,SLC,"Digital, Data and Technology",Permanent,Filled,2` + "\n"

	result, err := c.Run("WFC-2023-08-01.csv", "Q1 2023/24", []byte(data))
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, canonical.SLC, result.Records[0].Department)
}

func TestRun_BadFTEIsWarning(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	c := New(testSettings, testPreparer(), zap.New(core))

	result, err := c.Run("WFC-2023-08-01.csv", "Q1 2023/24", payload(
		`HM Treasury,HM Treasury,"Digital, Data and Technology",Temporary,Filled,n/a`,
		`HM Treasury,HM Treasury,"Digital, Data and Technology",Temporary,Filled,`,
		`HM Treasury,HM Treasury,"Digital, Data and Technology",Temporary,Filled,1.5`,
	))
	require.NoError(t, err)

	require.Len(t, result.Warnings, 1)
	w := result.Warnings[0]
	assert.Equal(t, 2, w.Line)
	assert.Equal(t, ColumnFTE, w.Column)
	assert.Equal(t, "n/a", w.Value)

	require.Len(t, result.Records, 1)
	assert.Equal(t, "1.5", result.Records[0].Temporary.Decimal.String())
	assert.Equal(t, 1, logs.FilterMessage("data quality").Len())
}

func TestRun_MissingALBColumnIsSchemaError(t *testing.T) {
	c := New(testSettings, testPreparer(), nil)
	data := []byte("Department,Profession,Employment Type,Role Status,FTE (Person)\nCO,DDaT,Permanent,Filled,1\n")

	_, err := c.Run("WFC-2023-08-01.csv", "Q1 2023/24", data)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrMissingColumn))

	kind, _ := types.KindOf(err)
	assert.Equal(t, types.KindSchema, kind)
}

func TestRun_MissingFTEColumnIsSchemaError(t *testing.T) {
	c := New(testSettings, testPreparer(), nil)
	data := []byte("Department,\"ALB, Agency or Organisation\",Profession,Employment Type,Role Status\n")

	_, err := c.Run("f.csv", "Q1 2023/24", data)
	kind, ok := types.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, types.KindSchema, kind)
}

func TestRun_EmptyPayloadIsParseError(t *testing.T) {
	c := New(testSettings, testPreparer(), nil)

	_, err := c.Run("f.csv", "Q1 2023/24", nil)
	kind, ok := types.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, types.KindParse, kind)
}

func TestRun_BadQuarterIsValidationError(t *testing.T) {
	c := New(testSettings, testPreparer(), nil)

	_, err := c.Run("f.csv", "someday", payload(
		`Home Office,Home Office,"Digital, Data and Technology",Permanent,Filled,1`,
	))
	kind, ok := types.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, types.KindValidation, kind)
}

func TestRun_NoMatchingRowsProducesNothing(t *testing.T) {
	c := New(testSettings, testPreparer(), nil)

	result, err := c.Run("f.csv", "Q1 2023/24", payload(
		`Home Office,Home Office,Policy,Permanent,Filled,1`,
	))
	require.NoError(t, err)
	assert.Empty(t, result.Records)
}

func TestPrepare_ReadsClockOnce(t *testing.T) {
	calls := 0
	p := Preparer{
		Source:         "WFC",
		Classification: "Department",
		Clock: func() time.Time {
			calls++
			return fixedNow.Add(time.Duration(calls) * time.Hour)
		},
	}

	records := p.Prepare([]types.DepartmentMetrics{
		{Department: canonical.CO},
		{Department: canonical.HO},
	}, "Q2 2023/24")

	require.Len(t, records, 2)
	assert.Equal(t, 1, calls)
	assert.Equal(t, records[0].IngestedAt, records[1].IngestedAt)
	assert.Equal(t, "Q2 2023/24", records[1].Quarter)
	assert.Equal(t, canonical.HO, records[1].Department)
}
