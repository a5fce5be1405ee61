package converter

import (
	"time"

	"github.com/ginjaninja78/wfc-ingest/internal/types"
)

// Preparer stamps merged metrics with the constant attributes of a record.
type Preparer struct {
	// Source is the dataset tag, "WFC".
	Source string

	// Classification is "Department" for every record of this dataset.
	Classification string

	// Clock returns the ingestion time. Nil means time.Now.
	Clock func() time.Time
}

// Prepare returns one record per department. The clock is read once, so
// every record of a call shares the same timestamp. The timestamp is
// truncated to seconds to match types.TimestampLayout.
func (p Preparer) Prepare(metrics []types.DepartmentMetrics, quarter string) []types.IngestedRecord {
	clock := p.Clock
	if clock == nil {
		clock = time.Now
	}
	now := clock().Truncate(time.Second)

	records := make([]types.IngestedRecord, 0, len(metrics))
	for _, m := range metrics {
		records = append(records, types.IngestedRecord{
			Department:     m.Department,
			Permanent:      m.Permanent,
			Temporary:      m.Temporary,
			VacancyRate:    m.VacancyRate,
			Quarter:        quarter,
			Source:         p.Source,
			Classification: p.Classification,
			IngestedAt:     now,
		})
	}
	return records
}
