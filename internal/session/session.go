package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/yndnr/guildsync/internal/core/domain"
	"github.com/yndnr/guildsync/internal/core/ingest"
	"github.com/yndnr/guildsync/internal/gateway"
	"github.com/yndnr/guildsync/internal/infra/buildinfo"
	"github.com/yndnr/guildsync/internal/infra/tlsroots"
	"github.com/yndnr/guildsync/internal/persist"
	"github.com/yndnr/guildsync/internal/server/config"
	"github.com/yndnr/guildsync/internal/server/httpserver"
	"github.com/yndnr/guildsync/internal/storage/counter"
	"github.com/yndnr/guildsync/internal/storage/guildcache"
	"github.com/yndnr/guildsync/internal/storage/rolestore"
	"github.com/yndnr/guildsync/internal/telemetry/logger"
	"github.com/yndnr/guildsync/internal/telemetry/metric"
	"github.com/yndnr/guildsync/internal/telemetry/report"
	"github.com/yndnr/guildsync/internal/telemetry/stats"
)

// Options customise Open. Only Config is required.
type Options struct {
	Config *config.ServerConfig

	// Logger replaces the logger built from Config.Log.
	Logger logger.Logger

	// Source replaces the source selected by Config.Gateway.Mode.
	Source gateway.Source

	// Repository replaces the role store selected by Config.Storage.
	Repository rolestore.RoleRepository

	// StatsReaders are extra OTel readers, such as a periodic exporter.
	StatsReaders []sdkmetric.Reader
}

// Session is one running ingestion pipeline.
type Session struct {
	cfg       *config.ServerConfig
	logger    logger.Logger
	logCloser io.Closer

	metrics   *metric.Store
	cache     *guildcache.Cache
	counters  *counter.Store
	provider  *sdkmetric.MeterProvider
	collector *stats.Collector
	reporter  report.Reporter
	sentry    *report.SentryReporter

	repo      rolestore.RoleRepository
	persister *persist.Persister

	dispatcher *ingest.Dispatcher
	runner     *ingest.Runner
	source     gateway.Source
	http       *httpserver.Server

	closeOnce sync.Once
	closeErr  error
	closers   []closer
}

type closer struct {
	name string
	fn   func(context.Context) error
}

// Open builds every component. On error everything acquired so far is
// released.
func Open(ctx context.Context, opts Options) (_ *Session, err error) {
	if opts.Config == nil {
		return nil, domain.ErrInvalidConfig.WithDetails("session: nil config")
	}
	cfg := opts.Config
	s := &Session{cfg: cfg}
	defer func() {
		if err != nil {
			s.Close(context.Background())
		}
	}()

	if err := s.openLogger(opts.Logger); err != nil {
		return nil, err
	}
	if err := s.openTelemetry(opts.StatsReaders); err != nil {
		return nil, err
	}
	if err := s.openStorage(ctx, opts.Repository); err != nil {
		return nil, err
	}
	if err := s.openIngest(); err != nil {
		return nil, err
	}
	if err := s.openSource(opts.Source); err != nil {
		return nil, err
	}
	s.openHTTP()

	s.logger.Info("session opened",
		"version", buildinfo.Version,
		"shards", cfg.Gateway.ShardCount,
		"gateway", cfg.Gateway.Mode,
		"storage", storageKind(cfg),
	)
	return s, nil
}

func (s *Session) onClose(name string, fn func(context.Context) error) {
	s.closers = append(s.closers, closer{name: name, fn: fn})
}

func (s *Session) openLogger(l logger.Logger) error {
	if l == nil {
		built, c, err := logger.New(config.ToLoggerConfig(s.cfg))
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		l = built
		s.logCloser = c
	}
	s.logger = l
	return nil
}

func (s *Session) openTelemetry(readers []sdkmetric.Reader) error {
	reg, err := metric.NewStandardRegistry()
	if err != nil {
		return err
	}
	var mopts []metric.Option
	if s.cfg.Metrics.RuntimeCollectors {
		mopts = append(mopts, metric.WithRuntimeCollectors())
	}
	if s.metrics, err = metric.NewStore(reg, mopts...); err != nil {
		return fmt.Errorf("create metric store: %w", err)
	}

	s.provider, s.collector = stats.NewProvider(readers...)
	s.onClose("stats", s.provider.Shutdown)

	s.reporter = report.LogReporter{Logger: s.logger}
	if dsn := s.cfg.Report.SentryDSN; dsn != "" {
		sr, err := report.NewSentryReporter(sentry.ClientOptions{
			Dsn:         dsn,
			Environment: s.cfg.Report.Environment,
			Release:     "guildsync@" + buildinfo.Version,
		})
		if err != nil {
			return fmt.Errorf("create sentry reporter: %w", err)
		}
		s.sentry = sr
		s.reporter = report.Multi{s.reporter, sr}
		s.onClose("sentry", func(context.Context) error {
			sr.Flush(2 * time.Second)
			return nil
		})
	}
	return nil
}

func (s *Session) openStorage(ctx context.Context, repo rolestore.RoleRepository) error {
	if repo == nil {
		if s.cfg.Storage.DataDir == "" {
			repo = rolestore.NewMemoryStore()
		} else {
			bs, err := rolestore.OpenBadger(config.ToRoleStoreConfig(s.cfg), s.logger)
			if err != nil {
				return fmt.Errorf("open role store: %w", err)
			}
			if err := bs.RegisterMetrics(s.metrics.Registerer(), s.metrics.Namespace()); err != nil {
				bs.Close()
				return fmt.Errorf("register role store metrics: %w", err)
			}
			repo = bs
		}
	}
	s.repo = repo
	s.onClose("rolestore", func(context.Context) error { return repo.Close() })

	s.cache = guildcache.New()
	s.counters = counter.New(counter.Users, counter.Guilds)
	if err := s.warmStart(ctx); err != nil {
		return fmt.Errorf("warm start: %w", err)
	}

	s.persister = persist.New(repo, config.ToPersistConfig(s.cfg), s.metrics, s.reporter, s.logger)
	s.onClose("persister", s.persister.Close)
	return nil
}

// warmStart loads persisted roles into the cache. Guilds loaded this way
// are known but not available until their backfill arrives.
func (s *Session) warmStart(ctx context.Context) error {
	n := 0
	err := s.repo.Scan(ctx, func(guildID domain.GuildID, role domain.Role) error {
		s.cache.UpsertRole(guildID, role)
		n++
		return nil
	})
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info("roles restored from store", "roles", n, "guilds", s.cache.Len())
	}
	return nil
}

func (s *Session) openIngest() error {
	st := &ingest.State{
		SelfID:    domain.UserID(s.cfg.Bot.SelfID),
		Cache:     s.cache,
		Counters:  s.counters,
		Metrics:   s.metrics,
		Stats:     stats.NewOTelSink(s.provider.Meter("guildsync"), s.statsError),
		Persister: s.persister,
		Reporter:  s.reporter,
		Logger:    s.logger,
	}
	d, err := ingest.NewDispatcher(ingest.Config{
		ShardCount:  s.cfg.Gateway.ShardCount,
		BacklogSize: s.cfg.Ingest.BacklogSize,
	}, st, ingest.DefaultRegistrations()...)
	if err != nil {
		return fmt.Errorf("create dispatcher: %w", err)
	}
	s.dispatcher = d
	s.runner = ingest.NewRunner(d, s.cfg.Ingest.QueueSize)
	s.onClose("runner", func(context.Context) error {
		s.runner.Close()
		return nil
	})
	return nil
}

func (s *Session) statsError(name string, err error) {
	s.reporter.Report(context.Background(), report.Incident{
		Err:       err,
		Component: "stats",
		Tags:      map[string]string{"stat": name},
	})
}

func (s *Session) openSource(src gateway.Source) error {
	if src != nil {
		s.source = src
		return nil
	}
	codec := gateway.NewCodec(s.cfg.Gateway.ShardCount)
	switch s.cfg.Gateway.Mode {
	case config.GatewayModeWebSocket:
		wsCfg := config.ToWebSocketConfig(s.cfg)
		tlsCfg, err := tlsroots.ClientConfig(s.cfg.Gateway.CAFile)
		if err != nil {
			return fmt.Errorf("gateway ca: %w", err)
		}
		wsCfg.TLSConfig = tlsCfg
		s.source = gateway.NewWebSocketSource(wsCfg, codec, s.decodeError, s.logger)
	case config.GatewayModeReplay:
		rs, err := gateway.OpenReplayFile(s.cfg.Gateway.ReplayFile, codec, s.decodeError, s.logger)
		if err != nil {
			return err
		}
		s.source = rs
	default:
		return domain.ErrInvalidConfig.WithDetailsf("gateway.mode %q", s.cfg.Gateway.Mode)
	}
	return nil
}

// decodeError counts frames the gateway could not turn into envelopes.
func (s *Session) decodeError(_ []byte, err error) {
	tuple := metric.L(metric.LabelShard, metric.InvalidShard, metric.LabelReason, metric.ReasonMalformed)
	if mErr := s.metrics.Inc(metric.EventErrorsTotal, tuple); mErr != nil {
		s.logger.Warn("metric update failed", "metric", metric.EventErrorsTotal, "error", mErr)
	}
	if errors.Is(err, domain.ErrUnknownEventType) {
		return
	}
	s.reporter.Report(context.Background(), report.Incident{Err: err, Component: "gateway"})
}

func (s *Session) openHTTP() {
	if s.cfg.Metrics.Addr == "" {
		return
	}
	router, limiter := httpserver.NewRouter(&httpserver.RouterConfig{
		Metrics:   s.metrics.Handler(),
		Status:    s,
		Logger:    s.logger,
		RateLimit: s.cfg.Metrics.RateLimit,
		RateBurst: s.cfg.Metrics.RateBurst,
	})
	var opts []httpserver.Option
	if m := s.cfg.Metrics; m.TLSCertFile != "" {
		w, err := tlsroots.NewWatcher(m.TLSCertFile, m.TLSKeyFile, tlsroots.WithLogger(s.logger))
		if err != nil {
			s.logger.Error("status server disabled", "addr", m.Addr, "error", err)
			return
		}
		w.StartAsync()
		s.onClose("certwatcher", func(context.Context) error {
			w.Stop()
			return nil
		})
		opts = append(opts, httpserver.WithTLSConfig(w.ServerConfig()))
	}
	srv := httpserver.New(s.cfg.Metrics.Addr, router, limiter, s.logger, opts...)
	if err := srv.Start(); err != nil {
		s.logger.Error("status server disabled", "addr", s.cfg.Metrics.Addr, "error", err)
		return
	}
	s.http = srv
	s.onClose("httpserver", srv.Shutdown)
}

func storageKind(cfg *config.ServerConfig) string {
	if cfg.Storage.DataDir == "" {
		return "memory"
	}
	return "badger"
}

// Run feeds the gateway source into the shard runner until the source
// returns or ctx ends. Counters are published as gauges on
// Metrics.CounterInterval while it runs.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if iv := s.cfg.Metrics.CounterInterval; iv > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.publishLoop(ctx, iv)
		}()
	}

	err := s.source.Run(ctx, s.runner.Submit)
	cancel()
	wg.Wait()
	s.PublishCounters()

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Session) publishLoop(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.PublishCounters()
		}
	}
}

// PublishCounters copies the approximate counters and the cache size to
// their gauges.
func (s *Session) PublishCounters() {
	for name, v := range s.counters.Snapshot() {
		if err := s.metrics.Set(metric.ApproximateCount, metric.L(metric.LabelCounter, name), float64(v)); err != nil {
			s.logger.Warn("metric update failed", "metric", metric.ApproximateCount, "counter", name, "error", err)
		}
	}
	if err := s.metrics.Set(metric.CachedGuilds, nil, float64(s.cache.Len())); err != nil {
		s.logger.Warn("metric update failed", "metric", metric.CachedGuilds, "error", err)
	}
}

// Flush waits until every envelope accepted so far has been dispatched
// and every resulting persistence job has completed.
func (s *Session) Flush(ctx context.Context) error {
	if err := s.runner.Flush(ctx); err != nil {
		return err
	}
	return s.persister.Flush(ctx)
}

// Close releases every component in reverse order of acquisition. The
// runner drains before the persister, so every dispatched change is
// submitted for persistence before the store closes. Close is idempotent.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		var errs []error
		for i := len(s.closers) - 1; i >= 0; i-- {
			c := s.closers[i]
			if err := c.fn(ctx); err != nil {
				if s.logger != nil {
					s.logger.Error("close failed", "component", c.name, "error", err)
				}
				errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
			}
		}
		if s.logger != nil {
			s.logger.Info("session closed")
		}
		if s.logCloser != nil {
			if err := s.logCloser.Close(); err != nil {
				errs = append(errs, fmt.Errorf("logger: %w", err))
			}
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}
