// =============================================================================
// WFC Ingest - Quarter Labeler
// =============================================================================
//
// Each export carries its snapshot date in the file name, after the first "-":
//
//   WFC-2023-05-15.csv        -> Q4 2022/23
//   WFC - 1 August 2023.csv   -> Q1 2023/24
//
// The snapshot is taken after the quarter it reports on has closed, so the
// label trails the file date. UK fiscal years start in April:
//
//   | Snapshot month | Label                |
//   |----------------|----------------------|
//   | Apr - Jun      | Q4 of (year - 1)     |
//   | Jul - Sep      | Q1 of year           |
//   | Oct - Dec      | Q2 of year           |
//   | Jan - Mar      | Q3 of (year - 1)     |
//
// The label is the deduplication key for the whole pipeline.
//
// =============================================================================

package quarter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/ginjaninja78/wfc-ingest/internal/types"
)

// dateLayouts are tried in order against the date token.
var dateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"2006-01",
	"02/01/2006",
	"2/1/2006",
	"02.01.2006",
	"02-01-2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2006",
	"Jan 2006",
	"January 2 2006",
	"20060102",
}

// fileExtensions are stripped from the date token, ignoring case.
var fileExtensions = []string{".csv", ".xlsx"}

var labelPattern = regexp.MustCompile(`^Q([1-4]) (\d{4})/(\d{2})$`)

// Label is a fiscal-quarter identifier such as "Q1 2023/24".
type Label struct {
	Quarter int
	Year    int
}

// String renders the label in "Q{n} {year}/{yy}" form.
func (l Label) String() string {
	return fmt.Sprintf("Q%d %d/%02d", l.Quarter, l.Year, (l.Year+1)%100)
}

// ForDate maps a snapshot date onto its fiscal-quarter label.
func ForDate(date time.Time) Label {
	year := date.Year()
	switch month := date.Month(); {
	case month >= time.April && month <= time.June:
		return Label{Quarter: 4, Year: year - 1}
	case month >= time.July && month <= time.September:
		return Label{Quarter: 1, Year: year}
	case month >= time.January && month <= time.March:
		return Label{Quarter: 3, Year: year - 1}
	default:
		return Label{Quarter: 2, Year: year}
	}
}

// LabelFor derives the quarter label from a file name.
func LabelFor(fileName string) (string, error) {
	date, err := DateFromFileName(fileName)
	if err != nil {
		return "", err
	}
	return ForDate(date).String(), nil
}

// DateFromFileName extracts the embedded snapshot date.
func DateFromFileName(fileName string) (time.Time, error) {
	_, token, found := strings.Cut(fileName, "-")
	if !found {
		return time.Time{}, malformed(fileName, errors.New("no date separator"))
	}

	token = strings.TrimSpace(token)
	for _, ext := range fileExtensions {
		if len(token) >= len(ext) && strings.EqualFold(token[len(token)-len(ext):], ext) {
			token = strings.TrimSpace(token[:len(token)-len(ext)])
			break
		}
	}
	if token == "" {
		return time.Time{}, malformed(fileName, errors.New("empty date token"))
	}

	for _, layout := range dateLayouts {
		if date, err := time.Parse(layout, token); err == nil {
			return date, nil
		}
	}
	return time.Time{}, malformed(fileName, errors.Errorf("unrecognised date %q", token))
}

// Parse reads a rendered label back. It rejects labels whose second year
// does not follow the first.
func Parse(label string) (Label, error) {
	m := labelPattern.FindStringSubmatch(label)
	if m == nil {
		return Label{}, errors.Errorf("invalid quarter label %q", label)
	}
	q, _ := strconv.Atoi(m[1])
	y, _ := strconv.Atoi(m[2])
	l := Label{Quarter: q, Year: y}
	if l.String() != label {
		return Label{}, errors.Errorf("invalid quarter label %q", label)
	}
	return l, nil
}

// Less orders labels chronologically. Labels that do not parse fall back to
// text order.
func Less(a, b string) bool {
	la, errA := Parse(a)
	lb, errB := Parse(b)
	if errA != nil || errB != nil {
		return a < b
	}
	if la.Year != lb.Year {
		return la.Year < lb.Year
	}
	return la.Quarter < lb.Quarter
}

func malformed(fileName string, cause error) error {
	return types.NewPipelineError(types.KindParse, fileName,
		errors.Wrap(types.ErrMalformedFileName, cause.Error()))
}
