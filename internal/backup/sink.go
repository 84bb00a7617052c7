package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Driver identifies a backup sink implementation.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
)

// Sink stores backup documents by name.
type Sink interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
	Get(ctx context.Context, name string) ([]byte, error)
	Driver() Driver
}

// SinkOptions selects and configures a sink.
type SinkOptions struct {
	Driver Driver
	Dir    string
	S3     S3Options
}

// OpenSink builds the sink described by opts.
func OpenSink(ctx context.Context, opts SinkOptions) (Sink, error) {
	switch opts.Driver {
	case "", DriverFilesystem:
		return NewFileSink(opts.Dir)
	case DriverS3:
		return NewS3Sink(ctx, opts.S3)
	default:
		return nil, fmt.Errorf("unknown backup driver %q", opts.Driver)
	}
}

// FileSink writes backups into a local directory.
type FileSink struct {
	dir string
}

// NewFileSink returns a sink rooted at dir, creating it if needed.
func NewFileSink(dir string) (*FileSink, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}
	return &FileSink{dir: dir}, nil
}

func (s *FileSink) Driver() Driver { return DriverFilesystem }

// Put writes data to dir/name and returns the file path.
func (s *FileSink) Put(_ context.Context, name string, data []byte) (string, error) {
	path, err := s.pathFor(name)
	if err != nil {
		return "", err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	return path, nil
}

// Get reads dir/name.
func (s *FileSink) Get(_ context.Context, name string) ([]byte, error) {
	path, err := s.pathFor(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read backup: %w", err)
	}
	return data, nil
}

func (s *FileSink) pathFor(name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name), nil
}

// checkName forbids empty names and path traversal.
func checkName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("empty backup name")
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid backup name %q", name)
	}
	return nil
}
