// Package logging builds the process logger from the logging config.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/runnerr0/prodhelper/internal/config"
)

const megabyte = 1 << 20

// ParseLevel maps a config level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
}

// New returns a text logger at the configured level. With cfg.File set,
// output goes to a rotating file; otherwise to fallback. The returned
// closer releases the file and is never nil.
func New(cfg config.LoggingConfig, fallback io.Writer) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	out := fallback
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		path, err := config.ExpandPath(cfg.File)
		if err != nil {
			return nil, nil, err
		}
		rot := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    sizeMB(cfg.MaxSize),
			MaxBackups: cfg.MaxBackups,
		}
		out, closer = rot, rot
	}
	if out == nil {
		out = io.Discard
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	return logger, closer, nil
}

// sizeMB converts a byte limit to lumberjack's megabytes, at least 1.
func sizeMB(bytes int) int {
	mb := bytes / megabyte
	if mb < 1 {
		return 1
	}
	return mb
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
