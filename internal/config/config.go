package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config is the root configuration for worklog, stored in
// ~/.worklog/config.json. The file supports single-line // comments.
// Environment variables override values from the file.
type Config struct {
	Storage StorageConfig `json:"storage"`
	Log     LogConfig     `json:"log"`
	Drive   DriveConfig   `json:"drive"`
}

// StorageConfig selects where day records live.
type StorageConfig struct {
	// Backend is auto, sqlite, flat or memory. auto tries them in that order.
	Backend string `json:"backend" env:"WORKLOG_BACKEND"`
	// DataDir holds the database, the flat file and snapshots. Empty means the base directory.
	DataDir string `json:"data_dir" env:"WORKLOG_DATA_DIR"`
	// SnapshotFile is written after every change, relative to DataDir. "-" disables it.
	SnapshotFile string `json:"snapshot_file" env:"WORKLOG_SNAPSHOT_FILE"`
}

// LogConfig controls diagnostic output on stderr.
type LogConfig struct {
	Level  string `json:"level" env:"WORKLOG_LOG_LEVEL"`
	Format string `json:"format" env:"WORKLOG_LOG_FORMAT"`
}

// DriveConfig holds the Google Drive backup settings.
type DriveConfig struct {
	// FileName is the name of the backup file created in Drive.
	FileName string `json:"file_name" env:"WORKLOG_DRIVE_FILE"`
}

const (
	DefaultBackend      = "auto"
	DefaultSnapshotFile = "snapshot.json"
	DefaultLogLevel     = "warn"
	DefaultLogFormat    = "text"
	DefaultDriveFile    = "worklog-backup.json"

	// SnapshotDisabled as SnapshotFile turns snapshots off.
	SnapshotDisabled = "-"
)

// defaultConfig returns a Config pre-filled with sensible defaults.
func defaultConfig() Config {
	return Config{
		Storage: StorageConfig{
			Backend:      DefaultBackend,
			SnapshotFile: DefaultSnapshotFile,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Drive: DriveConfig{
			FileName: DefaultDriveFile,
		},
	}
}

// configTemplate is the annotated config written on first run.
// Lines whose trimmed content starts with // are stripped before JSON parsing.
const configTemplate = `// worklog configuration - ~/.worklog/config.json
//
// All settings are optional; the defaults shown below work out of the box.
// Environment variables (WORKLOG_*) and a .env file in the working
// directory override anything set here.
{
  // ── Storage ───────────────────────────────────────────────────────────────
  "storage": {
    // Backend for day records: "auto", "sqlite", "flat" or "memory".
    // "auto" tries sqlite, then a flat JSON file, then memory only.
    // Env: WORKLOG_BACKEND
    "backend": "auto",

    // Directory for worklog.db, ledger.json and the snapshot.
    // Leave empty to use ~/.worklog. Env: WORKLOG_DATA_DIR
    "data_dir": "",

    // Backup written after every change, relative to data_dir.
    // Use "-" to disable. Env: WORKLOG_SNAPSHOT_FILE
    "snapshot_file": "snapshot.json"
  },

  // ── Diagnostics (stderr) ──────────────────────────────────────────────────
  "log": {
    // "debug", "info", "warn" or "error". Env: WORKLOG_LOG_LEVEL
    "level": "warn",
    // "text" or "json". Env: WORKLOG_LOG_FORMAT
    "format": "text"
  },

  // ── Google Drive backup ───────────────────────────────────────────────────
  "drive": {
    // Name of the backup file in your Drive. Env: WORKLOG_DRIVE_FILE
    "file_name": "worklog-backup.json"
  }
}
`

// BaseDir returns the worklog home directory: $WORKLOG_HOME or ~/.worklog.
func BaseDir() (string, error) {
	if dir := os.Getenv("WORKLOG_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".worklog"), nil
}

// FilePath returns the path to the config file.
func FilePath() (string, error) {
	base, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "config.json"), nil
}

// stripLineComments removes lines whose leading non-whitespace content starts
// with //. Only full-line comments are handled; inline comments are not stripped.
func stripLineComments(data []byte) []byte {
	var out []byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		if bytes.HasPrefix(bytes.TrimLeft(line, " \t"), []byte("//")) {
			continue
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out
}

// Load reads the config file, creating it with annotated defaults on first
// run, then applies .env and environment overrides.
func Load() (Config, error) {
	path, err := FilePath()
	if err != nil {
		return defaultConfig(), err
	}
	return LoadFrom(path)
}

// LoadFrom is Load for an explicit config file path.
func LoadFrom(path string) (Config, error) {
	cfg, err := readFile(path)
	if err != nil {
		return cfg, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: could not load .env file: %v\n", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing environment: %w", err)
	}

	applyDefaults(&cfg)
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = filepath.Dir(path)
	}
	return cfg, validate(cfg)
}

func readFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		// First run: write the annotated template so users can discover options.
		if writeErr := writeDefault(path); writeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create config file %s: %v\n", path, writeErr)
		}
		return defaultConfig(), nil
	}
	if err != nil {
		return defaultConfig(), fmt.Errorf("reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(stripLineComments(data), &cfg); err != nil {
		return defaultConfig(), fmt.Errorf("parsing config file %s: %w\nTip: delete the file to regenerate defaults", path, err)
	}
	return cfg, nil
}

// applyDefaults fills zero-value fields so callers always get a usable
// Config even if the user only partially fills in the file.
func applyDefaults(cfg *Config) {
	def := defaultConfig()
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = def.Storage.Backend
	}
	if cfg.Storage.SnapshotFile == "" {
		cfg.Storage.SnapshotFile = def.Storage.SnapshotFile
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}
	if cfg.Drive.FileName == "" {
		cfg.Drive.FileName = def.Drive.FileName
	}
}

func validate(cfg Config) error {
	switch cfg.Storage.Backend {
	case "auto", "sqlite", "flat", "memory":
	default:
		return fmt.Errorf("invalid storage backend %q: use auto, sqlite, flat or memory", cfg.Storage.Backend)
	}
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q: use debug, info, warn or error", cfg.Log.Level)
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q: use text or json", cfg.Log.Format)
	}
	return nil
}

// SnapshotPath returns the absolute snapshot path, or "" when disabled.
func (c Config) SnapshotPath() string {
	switch c.Storage.SnapshotFile {
	case "", SnapshotDisabled:
		return ""
	}
	if filepath.IsAbs(c.Storage.SnapshotFile) {
		return c.Storage.SnapshotFile
	}
	return filepath.Join(c.Storage.DataDir, c.Storage.SnapshotFile)
}

// writeDefault creates the config directory and writes the annotated default
// config template.
func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
