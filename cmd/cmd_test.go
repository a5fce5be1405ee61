package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/ginjaninja78/wfc-ingest/internal/canonical"
	"github.com/ginjaninja78/wfc-ingest/internal/config"
	"github.com/ginjaninja78/wfc-ingest/internal/store"
	"github.com/ginjaninja78/wfc-ingest/internal/types"
)

const exportHeader = `Department,"ALB, Agency, Business Unit or Organisation",Profession,Employment Type,Role Status,FTE (Person)`

func localConfig(t *testing.T, in string) *config.MainConfig {
	t.Helper()
	cfg, err := config.LoadMainConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	cfg.Source = config.SourceLocal
	cfg.Local.Dir = in
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")
	cfg.Store.DSN = ""
	cfg.Lock.RedisAddr = ""
	cfg.Metrics.PushGatewayURL = ""
	return cfg
}

func TestRunIngest_LocalSourceWritesReports(t *testing.T) {
	in := t.TempDir()
	data := exportHeader + "\n" +
		`Cabinet Office,Cabinet Office,"Digital, Data and Technology",Permanent,Filled,n/a` + "\n" +
		`Cabinet Office,Cabinet Office,"Digital, Data and Technology",Permanent,Filled,4` + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(in, "WFC-2023-08-01.csv"), []byte(data), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(in, "WFC-latest.csv"), []byte(data), 0o600))

	cfg := localConfig(t, in)
	require.NoError(t, runIngest(context.Background(), cfg, zap.NewNop(), true))

	entries, err := os.ReadDir(cfg.OutputDir)
	require.NoError(t, err)

	var summary, errorLog string
	for _, e := range entries {
		switch {
		case strings.HasPrefix(e.Name(), "run_summary_"):
			summary = e.Name()
		case strings.HasPrefix(e.Name(), "error_log_"):
			errorLog = e.Name()
		}
	}
	require.NotEmpty(t, summary)
	require.NotEmpty(t, errorLog)

	text, err := os.ReadFile(filepath.Join(cfg.OutputDir, summary))
	require.NoError(t, err)
	assert.Contains(t, string(text), "Mode:       dry run")
	assert.Contains(t, string(text), "New Quarters:     Q1 2023/24")
	assert.Contains(t, string(text), "File:    WFC-latest.csv")

	text, err = os.ReadFile(filepath.Join(cfg.OutputDir, errorLog))
	require.NoError(t, err)
	assert.Contains(t, string(text), "data_quality")
	assert.Contains(t, string(text), "Value:      n/a")
}

func TestRunIngest_AbortPolicyFails(t *testing.T) {
	in := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(in, "WFC-2023-08-01.csv"), []byte("Department\nCO\n"), 0o600))

	cfg := localConfig(t, in)
	cfg.FileErrorPolicy = config.PolicyAbort
	err := runIngest(context.Background(), cfg, zap.NewNop(), true)
	require.Error(t, err)

	entries, readErr := os.ReadDir(cfg.OutputDir)
	require.NoError(t, readErr)
	assert.NotEmpty(t, entries)
}

func TestRunIngest_UnknownSource(t *testing.T) {
	cfg := localConfig(t, t.TempDir())
	cfg.Source = "ftp"
	assert.Error(t, runIngest(context.Background(), cfg, zap.NewNop(), true))
}

func TestRunIngest_RequiresStoreUnlessDryRun(t *testing.T) {
	in := t.TempDir()
	data := exportHeader + "\n" +
		`Cabinet Office,Cabinet Office,"Digital, Data and Technology",Permanent,Filled,4` + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(in, "WFC-2023-08-01.csv"), []byte(data), 0o600))

	cfg := localConfig(t, in)
	err := runIngest(context.Background(), cfg, zap.NewNop(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.dsn is required")
	assert.NoDirExists(t, cfg.OutputDir, "nothing runs without a store")
}

func TestExportRecords_RequiresStore(t *testing.T) {
	cfg := localConfig(t, t.TempDir())
	_, _, err := exportRecords(context.Background(), cfg, zap.NewNop(), t.TempDir(), time.Now())
	assert.Error(t, err)
}

func TestWriteExport(t *testing.T) {
	st := store.NewMemoryStore(
		types.IngestedRecord{Source: "WFC", Quarter: "Q1 2024/25", Department: canonical.CO},
		types.IngestedRecord{Source: "WFC", Quarter: "Q4 2022/23", Department: canonical.CO},
		types.IngestedRecord{Source: "OTHER", Quarter: "Q4 2022/23", Department: canonical.CO},
	)
	out := t.TempDir()
	now := time.Date(2023, 8, 2, 9, 30, 15, 0, time.UTC)

	path, n, err := writeExport(context.Background(), st, "WFC", out, now, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, filepath.Join(out, "WFC_records_20230802_093015.xlsx"), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("WFC")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Q4 2022/23", rows[2][3])
	assert.Equal(t, "Q1 2024/25", rows[3][3])
}

func TestQuarterCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"quarter", "WFC-2023-08-01.csv", "WFC - 2024-02-01"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "WFC-2023-08-01.csv\tQ1 2023/24\nWFC - 2024-02-01\tQ3 2023/24\n", out.String())

	out.Reset()
	rootCmd.SetArgs([]string{"quarter", "notes.csv"})
	assert.Error(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "notes.csv\terror:")
}
