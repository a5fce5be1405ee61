package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMainConfig_Defaults(t *testing.T) {
	cfg, err := LoadMainConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "WFC", cfg.SourceTag)
	assert.Equal(t, "Department", cfg.Classification)
	assert.Equal(t, PolicySkip, cfg.FileErrorPolicy)
	assert.Equal(t, SourceDrive, cfg.Source)
	assert.Equal(t, ",", cfg.CSVSettings.Delimiter)
	assert.Equal(t, 1, cfg.CSVSettings.HeaderRows)
	assert.Equal(t, 2, cfg.CSVSettings.DataStartRow)
	assert.Equal(t, "wfc_records", cfg.Store.Table)
	assert.Equal(t, 15*time.Minute, cfg.Lock.TTL)
}

func TestLoadMainConfig_FileValues(t *testing.T) {
	path := writeConfig(t, `
source_tag: WFC-TEST
file_error_policy: abort
source: LOCAL
local:
  dir: /data/wfc
store:
  table: wfc_test
csv_settings:
  delimiter: ";"
`)

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "WFC-TEST", cfg.SourceTag)
	assert.Equal(t, PolicyAbort, cfg.FileErrorPolicy)
	assert.Equal(t, SourceLocal, cfg.Source)
	assert.Equal(t, "/data/wfc", cfg.Local.Dir)
	assert.Equal(t, "wfc_test", cfg.Store.Table)
	assert.Equal(t, ";", cfg.CSVSettings.Delimiter)
	assert.NoError(t, cfg.RequireLocal())
}

func TestLoadMainConfig_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "file_error_policy: skip\ndrive:\n  folder_id: from-file\n")

	t.Setenv("WFC_FILE_ERROR_POLICY", "abort")
	t.Setenv("WFC_DRIVE_FOLDER_ID", "from-env")
	t.Setenv("WFC_LOCK_TTL", "30s")

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, PolicyAbort, cfg.FileErrorPolicy)
	assert.Equal(t, "from-env", cfg.Drive.FolderID)
	assert.Equal(t, 30*time.Second, cfg.Lock.TTL)
}

func TestLoadMainConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"policy":     "file_error_policy: retry\n",
		"source":     "source: ftp\n",
		"data start": "csv_settings:\n  header_rows: 2\n  data_start_row: 2\n",
		"table":      "store:\n  table: \"records; drop table x\"\n",
		"yaml":       "source: [unterminated\n",
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadMainConfig(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestRequireDrive(t *testing.T) {
	cfg := &MainConfig{}
	assert.Error(t, cfg.RequireDrive())

	cfg.Drive.FolderID = "folder"
	assert.Error(t, cfg.RequireDrive())

	cfg.Drive.CredentialsFile = "creds.json"
	assert.NoError(t, cfg.RequireDrive())

	assert.Error(t, (&MainConfig{}).RequireLocal())
}

func TestRequireStore(t *testing.T) {
	cfg := &MainConfig{}
	assert.Error(t, cfg.RequireStore())

	cfg.Store.DSN = "postgres://localhost/wfc"
	assert.NoError(t, cfg.RequireStore())
}
