package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/runnerr0/prodhelper/internal/config"
	"github.com/runnerr0/prodhelper/internal/coordinator"
	"github.com/runnerr0/prodhelper/internal/daemon"
	"github.com/runnerr0/prodhelper/internal/logging"
	"github.com/runnerr0/prodhelper/internal/messaging"
	"github.com/runnerr0/prodhelper/internal/metrics"
	"github.com/runnerr0/prodhelper/internal/storage"
)

// Execute implements the go-flags Commander interface for ServeCommand.
func (c *ServeCommand) Execute(args []string) error {
	if c.LogLevel != "" {
		if _, err := logging.ParseLevel(c.LogLevel); err != nil {
			return err
		}
	}

	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	c.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if checkDaemon(cfg.DaemonURL()) {
		return fmt.Errorf("a daemon is already running at %s", cfg.DaemonURL())
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(cfg.Daemon.Host, strconv.Itoa(cfg.Daemon.Port)))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return c.serve(ctx, cfg, ln)
}

// apply layers command-line overrides on top of the config.
func (c *ServeCommand) apply(cfg *config.Config) {
	if c.Host != "" {
		cfg.Daemon.Host = c.Host
	}
	if c.Port != 0 {
		cfg.Daemon.Port = c.Port
	}
	if c.LogLevel != "" {
		cfg.Logging.Level = c.LogLevel
	}
}

// serve runs the daemon on ln until ctx is done. It closes ln.
func (c *ServeCommand) serve(ctx context.Context, cfg *config.Config, ln net.Listener) error {
	logger, logCloser, err := newLogger(cfg, c.globals)
	if err != nil {
		ln.Close()
		return err
	}
	defer logCloser.Close()

	rt, err := openBase(ctx, cfg, logger)
	if err != nil {
		ln.Close()
		return err
	}
	defer rt.Close()
	lock, err := storage.AcquireOwner(rt.dbPath)
	if err != nil {
		ln.Close()
		if errors.Is(err, storage.ErrStoreLocked) {
			return fmt.Errorf("%w: stop the other prodhelper process (a local mcp session, for example) before serving", err)
		}
		return err
	}
	defer lock.Release() //nolint:errcheck

	m := metrics.New()
	coord := coordinator.New(rt.store, cfg.Extension.Version, coordinator.Options{
		Logger: logger,
		Counts: m,
	})
	router := messaging.NewRouter(logger)
	router.SetObserver(m)
	coord.Register(router)

	srv := daemon.New(coord, router, rt.store, m, daemon.Options{
		AuthToken:      cfg.Daemon.AuthToken,
		MaxRequestSize: int64(cfg.Daemon.MaxRequestSize),
		RequestTimeout: time.Duration(cfg.Daemon.RequestTimeoutSeconds) * time.Second,
	}, logger)

	if cfg.Daemon.AuthToken == "" {
		logger.Warn("daemon running without an auth token")
	}
	logger.Info("starting daemon", "db", rt.dbPath, "version", c.version)

	if err := srv.Run(ctx, ln); err != nil {
		return fmt.Errorf("daemon: %w", err)
	}
	logger.Info("daemon stopped")
	return nil
}
