package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Extension: ExtensionConfig{
			Version: "1.0.0",
		},
		Storage: StorageConfig{
			Path:              "~/.config/prodhelper",
			SQLiteFile:        "prodhelper.db",
			Driver:            "sqlite3",
			SQLiteJournalMode: "wal",
			BusyTimeoutMS:     5000,
		},
		Daemon: DaemonConfig{
			Host:                  "127.0.0.1",
			Port:                  8732,
			AuthToken:             "",
			MaxRequestSize:        10485760,
			RequestTimeoutSeconds: 5,
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "",
			MaxSize:    10485760,
			MaxBackups: 3,
		},
		Backup: BackupConfig{
			Driver: "fs",
			Dir:    "~/.config/prodhelper/backups",
			S3: S3Config{
				Region: "us-east-1",
			},
		},
	}
}
