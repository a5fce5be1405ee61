// =============================================================================
// WFC Ingest - Configuration Module
// =============================================================================
//
// This module loads the runtime configuration. Values are layered:
//   1. config.yaml (path from --config)
//   2. .env / .env.local files, if present
//   3. WFC_* environment variables, which override the file
//   4. Defaults for anything still unset
//
// The canonicalization rules are NOT configurable: they are a fixed part of
// the reporting contract and live in internal/canonical.
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// File error policies.
const (
	// PolicySkip drops a malformed file and keeps ingesting the others.
	PolicySkip = "skip"

	// PolicyAbort stops the run at the first malformed file.
	PolicyAbort = "abort"
)

// Source kinds.
const (
	SourceDrive = "drive"
	SourceLocal = "local"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// SourceTag identifies this dataset in the store. It scopes the
	// "already ingested quarters" query.
	// Default: "WFC"
	SourceTag string `yaml:"source_tag" env:"WFC_SOURCE_TAG"`

	// Classification is stamped on every record.
	// Default: "Department"
	Classification string `yaml:"classification" env:"WFC_CLASSIFICATION"`

	// FileErrorPolicy decides what a schema or parse failure does to the run.
	// Valid values: "skip", "abort"
	// Default: "skip"
	FileErrorPolicy string `yaml:"file_error_policy" env:"WFC_FILE_ERROR_POLICY"`

	// Source selects the discovery backend.
	// Valid values: "drive", "local"
	// Default: "drive"
	Source string `yaml:"source" env:"WFC_SOURCE"`

	// OutputDir receives run summaries, error logs and workbook exports.
	// Default: "./output"
	OutputDir string `yaml:"output_dir" env:"WFC_OUTPUT_DIR"`

	// LogLevel: "debug", "info", "warn", "error".
	// Default: "info"
	LogLevel string `yaml:"log_level" env:"WFC_LOG_LEVEL"`

	CSVSettings CSVSettings   `yaml:"csv_settings"`
	Drive       DriveConfig   `yaml:"drive" envPrefix:"WFC_DRIVE_"`
	Local       LocalConfig   `yaml:"local" envPrefix:"WFC_LOCAL_"`
	Store       StoreConfig   `yaml:"store" envPrefix:"WFC_STORE_"`
	Lock        LockConfig    `yaml:"lock" envPrefix:"WFC_LOCK_"`
	Metrics     MetricsConfig `yaml:"metrics" envPrefix:"WFC_METRICS_"`
}

// CSVSettings contains settings for parsing the exported CSV files.
type CSVSettings struct {
	// Delimiter separates fields. Default: ","
	Delimiter string `yaml:"delimiter"`

	// HeaderRows is the number of header rows. Default: 1
	HeaderRows int `yaml:"header_rows"`

	// DataStartRow is the 1-indexed first data row. Default: HeaderRows + 1
	DataStartRow int `yaml:"data_start_row"`
}

// DriveConfig points at the shared-drive folder the exports are uploaded to.
type DriveConfig struct {
	FolderID        string `yaml:"folder_id" env:"FOLDER_ID"`
	DriveID         string `yaml:"drive_id" env:"DRIVE_ID"`
	CredentialsFile string `yaml:"credentials_file" env:"CREDENTIALS_FILE"`

	// Endpoint overrides the API base URL. Only used in tests.
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`
}

// LocalConfig points at a directory of exports, used instead of Drive.
type LocalConfig struct {
	Dir string `yaml:"dir" env:"DIR"`
}

// StoreConfig selects where records are appended.
type StoreConfig struct {
	// DSN is a PostgreSQL connection string. Empty means in-memory.
	DSN string `yaml:"dsn" env:"DSN"`

	// Table is the append-only record table. Default: "wfc_records"
	Table string `yaml:"table" env:"TABLE"`

	// EnsureSchema creates the table on start.
	EnsureSchema bool `yaml:"ensure_schema" env:"ENSURE_SCHEMA"`
}

// LockConfig enables a Redis run lock.
type LockConfig struct {
	// RedisAddr empty disables locking.
	RedisAddr string        `yaml:"redis_addr" env:"REDIS_ADDR"`
	Password  string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB        int           `yaml:"db" env:"REDIS_DB"`
	Key       string        `yaml:"key" env:"KEY"`
	TTL       time.Duration `yaml:"ttl" env:"TTL"`
}

// MetricsConfig enables pushing run metrics.
type MetricsConfig struct {
	// PushGatewayURL empty disables pushing.
	PushGatewayURL string `yaml:"push_gateway_url" env:"PUSH_GATEWAY_URL"`
	Job            string `yaml:"job" env:"JOB"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the configuration from a YAML file and the environment.
// A missing file is not an error: the environment alone can configure a run.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	var config MainConfig

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := loadEnvFiles(".env", ".env.local"); err != nil {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}
	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func loadEnvFiles(files ...string) error {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.SourceTag == "" {
		config.SourceTag = "WFC"
	}
	if config.Classification == "" {
		config.Classification = "Department"
	}
	if config.FileErrorPolicy == "" {
		config.FileErrorPolicy = PolicySkip
	}
	if config.Source == "" {
		config.Source = SourceDrive
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}

	if config.CSVSettings.Delimiter == "" {
		config.CSVSettings.Delimiter = ","
	}
	if config.CSVSettings.HeaderRows == 0 {
		config.CSVSettings.HeaderRows = 1
	}
	if config.CSVSettings.DataStartRow == 0 {
		config.CSVSettings.DataStartRow = config.CSVSettings.HeaderRows + 1
	}

	if config.Store.Table == "" {
		config.Store.Table = "wfc_records"
	}
	if config.Lock.Key == "" {
		config.Lock.Key = "wfc-ingest:run"
	}
	if config.Lock.TTL == 0 {
		config.Lock.TTL = 15 * time.Minute
	}
	if config.Metrics.Job == "" {
		config.Metrics.Job = "wfc_ingest"
	}
}

// validateMainConfig rejects combinations that cannot run.
func validateMainConfig(config *MainConfig) error {
	switch config.FileErrorPolicy {
	case PolicySkip, PolicyAbort:
	default:
		return fmt.Errorf("file_error_policy must be %q or %q, got %q", PolicySkip, PolicyAbort, config.FileErrorPolicy)
	}

	switch strings.ToLower(config.Source) {
	case SourceDrive, SourceLocal:
		config.Source = strings.ToLower(config.Source)
	default:
		return fmt.Errorf("source must be %q or %q, got %q", SourceDrive, SourceLocal, config.Source)
	}

	if config.CSVSettings.DataStartRow <= config.CSVSettings.HeaderRows {
		return fmt.Errorf("data_start_row (%d) must come after the header rows (%d)",
			config.CSVSettings.DataStartRow, config.CSVSettings.HeaderRows)
	}

	if !validTableName(config.Store.Table) {
		return fmt.Errorf("store table %q is not a plain identifier", config.Store.Table)
	}

	return nil
}

// RequireDrive checks the settings the Drive source needs.
func (c *MainConfig) RequireDrive() error {
	if c.Drive.FolderID == "" {
		return fmt.Errorf("drive.folder_id is required")
	}
	if c.Drive.CredentialsFile == "" && c.Drive.Endpoint == "" {
		return fmt.Errorf("drive.credentials_file is required")
	}
	return nil
}

// RequireLocal checks the settings the local source needs.
func (c *MainConfig) RequireLocal() error {
	if c.Local.Dir == "" {
		return fmt.Errorf("local.dir is required")
	}
	return nil
}

// RequireStore checks that records have somewhere durable to go.
func (c *MainConfig) RequireStore() error {
	if c.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required")
	}
	return nil
}

func validTableName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
