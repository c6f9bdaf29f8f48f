package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/guildsync/internal/infra/buildinfo"
	"github.com/yndnr/guildsync/internal/infra/confloader"
	"github.com/yndnr/guildsync/internal/infra/shutdown"
	"github.com/yndnr/guildsync/internal/server/config"
	"github.com/yndnr/guildsync/internal/session"
	"github.com/yndnr/guildsync/internal/telemetry/logger"
)

// shutdownTimeout bounds the whole shutdown sequence.
const shutdownTimeout = 30 * time.Second

// RunCommand returns the run command.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:   "run",
		Usage:  "Run the ingestion session",
		Action: runServer,
	}
}

// loadVerified loads the configuration named by the global flags and
// verifies it.
func loadVerified(flags *GlobalFlags) (*config.ServerConfig, error) {
	cfg, err := confloader.LoadServerConfig(flags.LoaderOptions()...)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runServer(c *cli.Context) error {
	flags := ParseGlobalFlags(c)
	cfg, err := loadVerified(flags)
	if err != nil {
		return err
	}

	log, logCloser, err := logger.New(config.ToLoggerConfig(cfg))
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logCloser.Close()
	logger.SetDefault(log)

	log.Info("starting guildsync-server",
		"version", buildinfo.Version,
		"commit", buildinfo.Get().Commit,
		"config", flags.Config)
	log.Debug("effective configuration", "config", fmt.Sprintf("%+v", *config.Sanitize(cfg)))
	if unknown, err := confloader.UnknownKeys(flags.LoaderOptions()...); err == nil && len(unknown) > 0 {
		log.Warn("configuration has unknown keys", "keys", unknown)
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	sess, err := session.Open(ctx, session.Options{Config: cfg, Logger: log})
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}

	sh := shutdown.NewHandler(shutdownTimeout, log)
	sh.OnShutdown("session", sess.Close)

	if flags.Config != "" {
		if w, err := watchConfig(flags, log); err != nil {
			log.Warn("config watcher disabled", "error", err)
		} else {
			sh.OnShutdown("watcher", func(context.Context) error { return w.Stop() })
		}
	}

	var runErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		runErr = sess.Run(ctx)
		if runErr == nil && cfg.Gateway.Mode == config.GatewayModeReplay {
			log.Info("replay finished, flushing")
			runErr = sess.Flush(ctx)
		}
	}()

	// Registered last so it runs first: stop the source before closing
	// the session underneath it.
	sh.OnShutdown("source", func(sctx context.Context) error {
		cancel()
		select {
		case <-done:
			return nil
		case <-sctx.Done():
			return sctx.Err()
		}
	})

	log.Info("server started, press Ctrl+C to stop")
	shutdownErr := sh.WaitContext(ctx)

	select {
	case <-done:
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			log.Error("session stopped with error", "error", runErr)
			return errors.Join(runErr, shutdownErr)
		}
	default:
	}
	if shutdownErr != nil {
		return shutdownErr
	}
	log.Info("server stopped gracefully")
	return nil
}

func watchConfig(flags *GlobalFlags, log logger.Logger) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(flags.Config); err != nil {
		w.Stop()
		return nil, err
	}
	w.OnChange(confloader.LogLevelReloader(log, flags.LoaderOptions()...))
	w.StartAsync()
	return w, nil
}
