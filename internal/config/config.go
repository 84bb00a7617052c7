package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default config file path.
const DefaultConfigPath = "~/.config/prodhelper/config.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PRODHELPER_"

// Config holds all Productivity Helper configuration.
type Config struct {
	Extension ExtensionConfig `yaml:"extension"`
	Storage   StorageConfig   `yaml:"storage"`
	Daemon    DaemonConfig    `yaml:"daemon"`
	Logging   LoggingConfig   `yaml:"logging"`
	Backup    BackupConfig    `yaml:"backup"`
}

type ExtensionConfig struct {
	Version string `yaml:"version"`
}

type StorageConfig struct {
	Path              string `yaml:"path"`
	SQLiteFile        string `yaml:"sqlite_file"`
	Driver            string `yaml:"driver"`
	SQLiteJournalMode string `yaml:"sqlite_journal_mode"`
	BusyTimeoutMS     int    `yaml:"busy_timeout_ms"`
}

type DaemonConfig struct {
	Host                  string `yaml:"host"`
	Port                  int    `yaml:"port"`
	AuthToken             string `yaml:"auth_token"`
	MaxRequestSize        int    `yaml:"max_request_size"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
}

type BackupConfig struct {
	Driver string   `yaml:"driver"`
	Dir    string   `yaml:"dir"`
	S3     S3Config `yaml:"s3"`
}

type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	Prefix          string `yaml:"prefix"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// Load reads a YAML config file at path and merges it with defaults.
// Returns an error if the file cannot be read or contains invalid YAML.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := ExpandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0600); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		return cfg, nil
	}

	return Load(path)
}

// LoadEnv loads variables from a .env file into the process environment.
// A missing file is not an error; variables already set are kept.
func LoadEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides cfg from PRODHELPER_* environment variables.
func ApplyEnv(cfg *Config) error {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v, ok := os.LookupEnv(EnvPrefix + name)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = n
		return nil
	}

	str("STORAGE_PATH", &cfg.Storage.Path)
	str("STORAGE_DRIVER", &cfg.Storage.Driver)
	str("DAEMON_HOST", &cfg.Daemon.Host)
	str("AUTH_TOKEN", &cfg.Daemon.AuthToken)
	str("LOG_LEVEL", &cfg.Logging.Level)
	str("LOG_FILE", &cfg.Logging.File)
	str("BACKUP_DRIVER", &cfg.Backup.Driver)
	str("BACKUP_DIR", &cfg.Backup.Dir)
	str("S3_BUCKET", &cfg.Backup.S3.Bucket)
	str("S3_REGION", &cfg.Backup.S3.Region)
	str("S3_ENDPOINT", &cfg.Backup.S3.Endpoint)
	str("S3_ACCESS_KEY_ID", &cfg.Backup.S3.AccessKeyID)
	str("S3_SECRET_ACCESS_KEY", &cfg.Backup.S3.SecretAccessKey)
	if err := num("DAEMON_PORT", &cfg.Daemon.Port); err != nil {
		return err
	}
	return nil
}

// Validate rejects settings no component can honor.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite3", "sqlite":
	default:
		return fmt.Errorf("storage.driver: unknown driver %q (expected sqlite3 or sqlite)", c.Storage.Driver)
	}
	switch c.Backup.Driver {
	case "fs", "s3":
	default:
		return fmt.Errorf("backup.driver: unknown driver %q (expected fs or s3)", c.Backup.Driver)
	}
	if c.Backup.Driver == "s3" && c.Backup.S3.Bucket == "" {
		return fmt.Errorf("backup.s3.bucket: required when backup.driver is s3")
	}
	if c.Storage.BusyTimeoutMS < 0 {
		return fmt.Errorf("storage.busy_timeout_ms: must not be negative")
	}
	if c.Daemon.Port <= 0 || c.Daemon.Port > 65535 {
		return fmt.Errorf("daemon.port: %d out of range", c.Daemon.Port)
	}
	if c.Extension.Version == "" {
		return fmt.Errorf("extension.version: required")
	}
	return nil
}

// DBPath returns the expanded SQLite file path.
func (c *Config) DBPath() (string, error) {
	dir, err := ExpandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Storage.SQLiteFile), nil
}

// DaemonURL returns the base URL of the local daemon.
func (c *Config) DaemonURL() string {
	return fmt.Sprintf("http://%s:%d", c.Daemon.Host, c.Daemon.Port)
}
