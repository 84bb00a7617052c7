package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/runnerr0/prodhelper/internal/backup"
	"github.com/runnerr0/prodhelper/internal/config"
	"github.com/runnerr0/prodhelper/internal/coordinator"
	"github.com/runnerr0/prodhelper/internal/logging"
	"github.com/runnerr0/prodhelper/internal/messaging"
	"github.com/runnerr0/prodhelper/internal/storage"
)

// runtime is what a command works against: the store for reads and a
// sender for writes. Writes go to a running daemon when one answers,
// otherwise to a coordinator started in-process for the command.
type runtime struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *storage.SQLiteStore
	db     *sql.DB
	dbPath string
	sender messaging.Sender
	remote bool

	closers []func() error
}

// loadConfig resolves the config file, then .env and PRODHELPER_* overrides.
func loadConfig(globals *GlobalFlags) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if globals != nil && globals.Config != "" {
		cfg, err = config.Load(globals.Config)
	} else {
		cfg, err = config.LoadOrCreate()
	}
	if err != nil {
		return nil, err
	}

	if err := config.LoadEnv(""); err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, globals *GlobalFlags) (*slog.Logger, io.Closer, error) {
	lc := cfg.Logging
	if globals != nil && globals.Verbose {
		lc.Level = "debug"
	}
	return logging.New(lc, os.Stderr)
}

// openBase opens the store described by cfg. No writer is attached yet.
func openBase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*runtime, error) {
	dbPath, err := cfg.DBPath()
	if err != nil {
		return nil, fmt.Errorf("resolve db path: %w", err)
	}

	store, db, err := storage.Open(ctx, storage.Options{
		Driver:      cfg.Storage.Driver,
		Path:        dbPath,
		JournalMode: cfg.Storage.SQLiteJournalMode,
		BusyTimeout: time.Duration(cfg.Storage.BusyTimeoutMS) * time.Millisecond,
	})
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, logger: logger, store: store, db: db, dbPath: dbPath}
	rt.closers = append(rt.closers, db.Close, store.Close)
	return rt, nil
}

// openRuntime is the common setup for every command that reads or writes
// data.
func openRuntime(ctx context.Context, globals *GlobalFlags) (*runtime, error) {
	cfg, err := loadConfig(globals)
	if err != nil {
		return nil, err
	}
	logger, logCloser, err := newLogger(cfg, globals)
	if err != nil {
		return nil, err
	}

	rt, err := openBase(ctx, cfg, logger)
	if err != nil {
		logCloser.Close()
		return nil, err
	}
	rt.closers = append([]func() error{logCloser.Close}, rt.closers...)

	if checkDaemon(cfg.DaemonURL()) {
		rt.useDaemon()
		logger.Debug("using running daemon", "url", cfg.DaemonURL())
		return rt, nil
	}
	if err := rt.startLocal(ctx); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *runtime) timeout() time.Duration {
	return time.Duration(rt.cfg.Daemon.RequestTimeoutSeconds) * time.Second
}

func (rt *runtime) useDaemon() {
	rt.sender = messaging.NewClient(messaging.HTTPTransport{
		BaseURL: rt.cfg.DaemonURL(),
		Token:   rt.cfg.Daemon.AuthToken,
	}, rt.timeout())
	rt.remote = true
}

// own takes the store's owner lock for the lifetime of the runtime. Only
// the owner may run a coordinator; everyone else goes through its daemon.
func (rt *runtime) own() error {
	lock, err := storage.AcquireOwner(rt.dbPath)
	if errors.Is(err, storage.ErrStoreLocked) {
		return fmt.Errorf("%w: no daemon answered at %s; run `prodhelper serve` so processes can share the store",
			err, rt.cfg.DaemonURL())
	}
	if err != nil {
		return err
	}
	rt.closers = append(rt.closers, lock.Release)
	return nil
}

// startLocal runs a coordinator in-process for the lifetime of the runtime.
// It fails with storage.ErrStoreLocked when another process owns the store.
func (rt *runtime) startLocal(ctx context.Context) error {
	if err := rt.own(); err != nil {
		return err
	}

	coord := coordinator.New(rt.store, rt.cfg.Extension.Version, coordinator.Options{Logger: rt.logger})
	router := messaging.NewRouter(rt.logger)
	coord.Register(router)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan error, 1)
	go func() { done <- coord.Run(runCtx) }()
	rt.closers = append(rt.closers, func() error {
		cancel()
		return <-done
	})

	reason, err := coord.Boot(ctx)
	if err != nil {
		return fmt.Errorf("boot: %w", err)
	}
	rt.logger.Debug("coordinator booted", "reason", reason, "version", coord.Version())

	rt.sender = messaging.NewClient(messaging.LocalTransport{Router: router}, rt.timeout())
	return nil
}

// Close releases everything in reverse order of acquisition.
func (rt *runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

// sink returns the configured backup destination, or dir when set.
func (rt *runtime) sink(ctx context.Context, dir string) (backup.Sink, error) {
	if dir != "" {
		return backup.NewFileSink(dir)
	}
	b := rt.cfg.Backup
	backupDir, err := config.ExpandPath(b.Dir)
	if err != nil {
		return nil, err
	}
	return backup.OpenSink(ctx, backup.SinkOptions{
		Driver: backup.Driver(b.Driver),
		Dir:    backupDir,
		S3: backup.S3Options{
			Bucket:          b.S3.Bucket,
			Region:          b.S3.Region,
			Endpoint:        b.S3.Endpoint,
			Prefix:          b.S3.Prefix,
			PathStyle:       b.S3.PathStyle,
			AccessKeyID:     b.S3.AccessKeyID,
			SecretAccessKey: b.S3.SecretAccessKey,
		},
	})
}

// readLine prints prompt and returns the next trimmed line from in.
func readLine(in io.Reader, prompt string) (string, error) {
	if in == nil {
		in = os.Stdin
	}
	fmt.Print(prompt)
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return "", fmt.Errorf("aborted: no input received")
	}
	return strings.TrimSpace(scanner.Text()), nil
}
