// =============================================================================
// WFC Ingest - Run Report Utility
// =============================================================================
//
// This module writes the human-readable artefacts of a run to the output
// directory:
//   - A run summary (always)
//   - An error log (only when files were rejected or cells were unreadable)
//   - Output file names for exports
//
// The structured log stream is the primary record of a run. These files are
// for the analysts who pick up rejected exports.
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	logTimeLayout  = "2006-01-02 15:04:05"
	fileTimeLayout = "20060102_150405"
	rule           = "================================================================================\n"
	thinRule       = "--------------------------------------------------------------------------------\n"
)

// EnsureDir creates dir and its parents if needed.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// =============================================================================
// FILE NAMING
// =============================================================================

// GenerateOutputFileName generates a file name from a format string.
//
// PARAMETERS:
//   - format: The format string for the file name.
//             Placeholders:
//               {uuid}      - A random UUID
//               {timestamp} - The timestamp (YYYYMMDD_HHMMSS)
//               {date}      - The date (YYYYMMDD)
//               {time}      - The time (HHMMSS)
//             plus one placeholder per key of params.
//   - ext: The extension to enforce, e.g. ".xlsx".
//   - now: The time to render.
//   - params: A map of placeholder values.
//
// EXAMPLE:
//   format: "{source}_{timestamp}"
//   params: {"source": "WFC"}
//   output: "WFC_20230802_093015.xlsx"
func GenerateOutputFileName(format, ext string, now time.Time, params map[string]string) string {
	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format(fileTimeLayout),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = sanitizeFileName(value)
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if ext != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(ext)) {
		result += ext
	}
	return result
}

// sanitizeFileName replaces characters that are awkward in file names,
// such as the "/" in a quarter label.
func sanitizeFileName(s string) string {
	return strings.NewReplacer("/", "-", "\\", "-", " ", "_", "&", "and").Replace(s)
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// ErrorLogEntry represents a single error log entry.
type ErrorLogEntry struct {
	Timestamp    time.Time
	FileName     string
	Quarter      string
	ErrorType    string
	ErrorMessage string
	RowNumber    int
	FieldName    string
	FieldValue   string
}

// WriteErrorLog writes error entries to a log file named after runID.
//
// RETURNS:
//   - The path to the error log file, or "" when there is nothing to write.
//   - An error if writing fails.
func WriteErrorLog(entries []ErrorLogEntry, outputDir, runID string, now time.Time) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	logPath := filepath.Join(outputDir, fmt.Sprintf("error_log_%s_%s.txt", now.Format(fileTimeLayout), shortID(runID)))
	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "WFC Ingest - Error Log\n"+
		"Run:          %s\n"+
		"Generated:    %s\n"+
		"Total Errors: %d\n"+
		rule+"\n",
		runID, now.Format(logTimeLayout), len(entries))

	for i, entry := range entries {
		fmt.Fprintf(writer, "Error #%d\n"+
			"  Timestamp:  %s\n"+
			"  File:       %s\n"+
			"  Error Type: %s\n"+
			"  Message:    %s\n",
			i+1,
			entry.Timestamp.Format(logTimeLayout),
			entry.FileName,
			entry.ErrorType,
			entry.ErrorMessage)

		if entry.Quarter != "" {
			fmt.Fprintf(writer, "  Quarter:    %s\n", entry.Quarter)
		}
		if entry.RowNumber > 0 {
			fmt.Fprintf(writer, "  Row Number: %d\n", entry.RowNumber)
		}
		if entry.FieldName != "" {
			fmt.Fprintf(writer, "  Field:      %s\n", entry.FieldName)
		}
		if entry.FieldValue != "" {
			fmt.Fprintf(writer, "  Value:      %s\n", entry.FieldValue)
		}
		writer.WriteString("\n")
	}

	writer.WriteString(rule + "End of Error Log\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush error log: %w", err)
	}
	return logPath, nil
}

// =============================================================================
// RUN SUMMARY
// =============================================================================

// RunSummary contains summary information about an ingest run.
type RunSummary struct {
	RunID           string
	StartTime       time.Time
	EndTime         time.Time
	DryRun          bool
	FilesListed     int
	NewQuarters     []string
	SkippedQuarters []string
	NewRecords      int
	Warnings        int
	FailedFiles     []FailedFileInfo
	RunError        string
}

// FailedFileInfo contains information about a rejected file.
type FailedFileInfo struct {
	InputFile    string
	Quarter      string
	ErrorType    string
	ErrorMessage string
}

// WriteSummaryLog writes a run summary to a file.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary RunSummary, outputDir string) (string, error) {
	summaryPath := filepath.Join(outputDir,
		fmt.Sprintf("run_summary_%s_%s.txt", summary.StartTime.Format(fileTimeLayout), shortID(summary.RunID)))

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	mode := "ingest"
	if summary.DryRun {
		mode = "dry run"
	}
	fmt.Fprintf(writer, "WFC Ingest - Run Summary\n"+
		rule+"\n"+
		"Run Information:\n"+
		"  Run ID:     %s\n"+
		"  Mode:       %s\n"+
		"  Start Time: %s\n"+
		"  End Time:   %s\n"+
		"  Duration:   %s\n\n"+
		"Statistics:\n"+
		"  Files Listed:     %d\n"+
		"  New Quarters:     %s\n"+
		"  Skipped Quarters: %s\n"+
		"  New Records:      %d\n"+
		"  Rejected Files:   %d\n"+
		"  Warnings:         %d\n\n",
		summary.RunID,
		mode,
		summary.StartTime.Format(logTimeLayout),
		summary.EndTime.Format(logTimeLayout),
		summary.EndTime.Sub(summary.StartTime).String(),
		summary.FilesListed,
		listOrNone(summary.NewQuarters),
		listOrNone(summary.SkippedQuarters),
		summary.NewRecords,
		len(summary.FailedFiles),
		summary.Warnings)

	if summary.RunError != "" {
		fmt.Fprintf(writer, "Run Error:\n  %s\n\n", summary.RunError)
	}

	if len(summary.FailedFiles) > 0 {
		writer.WriteString("Rejected Files:\n" + thinRule)
		for _, ff := range summary.FailedFiles {
			fmt.Fprintf(writer, "  File:    %s\n", ff.InputFile)
			if ff.Quarter != "" {
				fmt.Fprintf(writer, "  Quarter: %s\n", ff.Quarter)
			}
			fmt.Fprintf(writer, "  Kind:    %s\n", ff.ErrorType)
			fmt.Fprintf(writer, "  Error:   %s\n\n", ff.ErrorMessage)
		}
	}

	writer.WriteString(rule + "End of Summary\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}
	return summaryPath, nil
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
