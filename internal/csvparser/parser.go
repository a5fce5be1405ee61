// =============================================================================
// WFC Ingest - CSV Parser Module
// =============================================================================
//
// This module parses the WFC exports. The exports come from a spreadsheet
// tool, so they are small, UTF-8 and sometimes carry a byte order mark. The
// parser handles:
//   - Different delimiters (comma, pipe, tab, semicolon)
//   - Multi-line headers
//   - Custom data start rows
//   - A leading UTF-8 BOM
//   - Header spellings that changed between collection rounds
//
// The whole payload is read into memory. Exports are a few thousand rows.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/go-faster/errors"

	"github.com/ginjaninja78/wfc-ingest/internal/config"
	"github.com/ginjaninja78/wfc-ingest/internal/types"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// =============================================================================
// CSV DATA STRUCTURE
// =============================================================================

// CSVData represents the parsed CSV file.
type CSVData struct {
	// Headers contains the column headers. For multi-line headers these are
	// the merged headers. Values are kept as written, trailing spaces included,
	// because some historical exports differ only by a trailing space.
	Headers []string

	// Rows contains the data rows as maps of header -> value.
	Rows []map[string]string

	// Lines holds the 1-indexed source line of each entry in Rows.
	Lines []int

	// SourceFile is the file name the payload came from.
	SourceFile string

	// RowCount is the total number of data rows (excluding headers).
	RowCount int

	// ColumnCount is the number of columns in the CSV.
	ColumnCount int
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// ParseBytes parses an in-memory payload. See Parse.
func ParseBytes(data []byte, sourceFile string, settings config.CSVSettings) (*CSVData, error) {
	return Parse(bytes.NewReader(data), sourceFile, settings)
}

// Parse reads a CSV payload and returns the parsed data.
//
// PARAMETERS:
//   - r: The payload.
//   - sourceFile: The file name, used in errors.
//   - settings: The CSV parsing settings from the main configuration.
//
// RETURNS:
//   - The parsed data.
//   - A parse-kind PipelineError if the payload is empty or not CSV.
//
// PARSING PROCESS:
//   1. Strip a leading UTF-8 BOM
//   2. Configure the CSV reader with the specified delimiter
//   3. Read and merge header rows
//   4. Read data rows starting from the configured data start row
//   5. Convert each row to a map of header -> value
func Parse(r io.Reader, sourceFile string, settings config.CSVSettings) (*CSVData, error) {
	reader := bufio.NewReader(r)
	if err := skipBOM(reader); err != nil {
		return nil, parseError(sourceFile, errors.Wrap(err, "read payload"))
	}

	csvReader := csv.NewReader(reader)
	configureReader(csvReader, settings)

	allRows, err := csvReader.ReadAll()
	if err != nil {
		return nil, parseError(sourceFile, errors.Wrap(err, "read csv"))
	}

	if len(allRows) == 0 {
		return nil, parseError(sourceFile, errors.New("csv file is empty"))
	}

	headers, err := extractHeaders(allRows, settings)
	if err != nil {
		return nil, parseError(sourceFile, errors.Wrap(err, "extract headers"))
	}

	dataRows, lines := extractDataRows(allRows, headers, settings)

	return &CSVData{
		Headers:     headers,
		Rows:        dataRows,
		Lines:       lines,
		SourceFile:  sourceFile,
		RowCount:    len(dataRows),
		ColumnCount: len(headers),
	}, nil
}

func parseError(sourceFile string, err error) error {
	return types.NewPipelineError(types.KindParse, sourceFile, err)
}

// skipBOM drops a UTF-8 byte order mark if the payload starts with one.
func skipBOM(reader *bufio.Reader) error {
	head, err := reader.Peek(len(utf8BOM))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	if bytes.Equal(head, utf8BOM) {
		_, err = reader.Discard(len(utf8BOM))
	}
	return err
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	switch settings.Delimiter {
	case "\\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = rune(settings.Delimiter[0])
		} else {
			reader.Comma = ','
		}
	}

	// Exports occasionally have ragged trailing columns.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
}

// extractHeaders extracts and merges headers from the CSV.
//
// MULTI-LINE HEADER HANDLING:
//   Non-empty values in each column are joined with a space.
//
//   Row 1: "Role", "", "FTE"
//   Row 2: "Status", "Profession", "(Person)"
//   Result: "Role Status", "Profession", "FTE (Person)"
func extractHeaders(allRows [][]string, settings config.CSVSettings) ([]string, error) {
	if settings.HeaderRows <= 0 {
		return nil, fmt.Errorf("header_rows must be at least 1")
	}

	if len(allRows) < settings.HeaderRows {
		return nil, fmt.Errorf("file has fewer rows than header_rows setting")
	}

	if settings.HeaderRows == 1 {
		return cleanHeaders(allRows[0]), nil
	}

	maxCols := 0
	for i := 0; i < settings.HeaderRows; i++ {
		if len(allRows[i]) > maxCols {
			maxCols = len(allRows[i])
		}
	}

	headers := make([]string, maxCols)
	for col := 0; col < maxCols; col++ {
		var parts []string
		for row := 0; row < settings.HeaderRows; row++ {
			if col < len(allRows[row]) {
				if value := strings.TrimSpace(allRows[row][col]); value != "" {
					parts = append(parts, value)
				}
			}
		}
		headers[col] = strings.Join(parts, " ")
	}

	return cleanHeaders(headers), nil
}

// cleanHeaders names blank headers by position. Other headers are left alone.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, header := range headers {
		if strings.TrimSpace(header) == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		cleaned[i] = header
	}
	return cleaned
}

// extractDataRows converts data rows to maps, skipping blank lines.
func extractDataRows(allRows [][]string, headers []string, settings config.CSVSettings) ([]map[string]string, []int) {
	startIndex := settings.DataStartRow - 1
	if startIndex < settings.HeaderRows {
		startIndex = settings.HeaderRows
	}

	if startIndex >= len(allRows) {
		return []map[string]string{}, []int{}
	}

	dataRows := make([]map[string]string, 0, len(allRows)-startIndex)
	lines := make([]int, 0, len(allRows)-startIndex)

	for rowIndex := startIndex; rowIndex < len(allRows); rowIndex++ {
		row := allRows[rowIndex]
		if isRowEmpty(row) {
			continue
		}

		rowMap := make(map[string]string, len(headers))
		for colIndex, header := range headers {
			if colIndex < len(row) {
				rowMap[header] = strings.TrimSpace(row[colIndex])
			} else {
				rowMap[header] = ""
			}
		}

		dataRows = append(dataRows, rowMap)
		lines = append(lines, rowIndex+1)
	}

	return dataRows, lines
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// COLUMN RESOLUTION
// =============================================================================

// HasColumn reports whether header is present, compared exactly.
func (d *CSVData) HasColumn(header string) bool {
	for _, h := range d.Headers {
		if h == header {
			return true
		}
	}
	return false
}

// ResolveColumn returns the first candidate present in the headers. Candidates
// are compared exactly, in order. A miss is a schema-kind PipelineError
// wrapping types.ErrMissingColumn.
func (d *CSVData) ResolveColumn(candidates ...string) (string, error) {
	for _, c := range candidates {
		if d.HasColumn(c) {
			return c, nil
		}
	}
	return "", types.NewPipelineError(types.KindSchema, d.SourceFile,
		errors.Wrapf(types.ErrMissingColumn, "none of %q", candidates))
}

// RequireColumns checks that every header is present.
func (d *CSVData) RequireColumns(headers ...string) error {
	for _, h := range headers {
		if _, err := d.ResolveColumn(h); err != nil {
			return err
		}
	}
	return nil
}
